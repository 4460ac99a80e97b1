// Package sim provides simulated peripherals implementing pkg/hal.
//
// All types are safe for concurrent use so a shell can poke them while
// an executor drives them on another goroutine.
package sim

import (
	"sync"

	"github.com/robotalks/wonder.go/pkg/hal"
)

// SPIDevice is a target on a simulated byte bus.
type SPIDevice interface {
	// Exchange receives the byte sent by the controller and returns
	// the byte shifted back.
	Exchange(out byte) byte
}

// ExchangeFunc is the func form of SPIDevice.
type ExchangeFunc func(out byte) byte

// Exchange implements SPIDevice.
func (f ExchangeFunc) Exchange(out byte) byte {
	return f(out)
}

// Echo shifts back every byte sent.
var Echo = ExchangeFunc(func(out byte) byte { return out })

// ByteBusStats counts attempts made on a ByteBus.
type ByteBusStats struct {
	Sends       int
	Receives    int
	WouldBlocks int
}

// ByteBus is a simulated full-duplex byte bus. Every successful send
// queues the byte shifted back by the device for the next receive.
type ByteBus struct {
	// Latency is the number of would-block answers before each
	// successful attempt.
	Latency int

	dev  SPIDevice
	rx   []byte
	wait int

	failAfter int
	failErr   error

	stats ByteBusStats
	lock  sync.Mutex
}

// NewByteBus creates a ByteBus with dev attached.
func NewByteBus(dev SPIDevice) *ByteBus {
	return &ByteBus{dev: dev}
}

// FailAfter makes the attempt following the next n attempts fail
// with err, once.
func (b *ByteBus) FailAfter(n int, err error) {
	b.lock.Lock()
	b.failAfter, b.failErr = n, err
	b.lock.Unlock()
}

// Stats returns the attempt counters.
func (b *ByteBus) Stats() ByteBusStats {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.stats
}

// TrySend implements hal.FullDuplex.
func (b *ByteBus) TrySend(v byte) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.stats.Sends++
	if err := b.attempt(); err != nil {
		return err
	}
	in := byte(0xff)
	if b.dev != nil {
		in = b.dev.Exchange(v)
	}
	b.rx = append(b.rx, in)
	return nil
}

// TryReceive implements hal.FullDuplex.
func (b *ByteBus) TryReceive() (byte, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.stats.Receives++
	if len(b.rx) == 0 {
		b.stats.WouldBlocks++
		return 0, hal.ErrWouldBlock
	}
	if err := b.attempt(); err != nil {
		return 0, err
	}
	v := b.rx[0]
	b.rx = b.rx[1:]
	return v, nil
}

func (b *ByteBus) attempt() error {
	if b.failErr != nil {
		if b.failAfter == 0 {
			err := b.failErr
			b.failErr = nil
			return err
		}
		b.failAfter--
	}
	if b.wait < b.Latency {
		b.wait++
		b.stats.WouldBlocks++
		return hal.ErrWouldBlock
	}
	b.wait = 0
	return nil
}
