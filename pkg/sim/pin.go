package sim

import "sync"

// Pin is a simulated digital pin usable as input and output.
type Pin struct {
	level    bool
	onChange func(bool)
	lock     sync.Mutex
}

// NewPin creates a Pin at level.
func NewPin(level bool) *Pin {
	return &Pin{level: level}
}

// OnChange installs fn to be called with the new level on every change.
func (p *Pin) OnChange(fn func(high bool)) *Pin {
	p.lock.Lock()
	p.onChange = fn
	p.lock.Unlock()
	return p
}

// Get implements hal.InputPin.
func (p *Pin) Get() bool {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.level
}

// Set implements hal.OutputPin.
func (p *Pin) Set(high bool) {
	p.lock.Lock()
	changed := p.level != high
	p.level = high
	fn := p.onChange
	p.lock.Unlock()
	if changed && fn != nil {
		fn(high)
	}
}
