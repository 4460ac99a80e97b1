package sim

import (
	"io"
	"sync"

	"github.com/robotalks/wonder.go/pkg/hal"
)

// UART is a simulated serial port. The device side implements
// hal.FullDuplex, the host side implements io.ReadWriteCloser.
type UART struct {
	tx     chan byte
	rx     []byte
	doneCh chan struct{}
	once   sync.Once
	lock   sync.Mutex
}

// NewUART creates a UART buffering up to capacity bytes towards the host.
func NewUART(capacity int) *UART {
	if capacity < 1 {
		capacity = 1
	}
	return &UART{
		tx:     make(chan byte, capacity),
		doneCh: make(chan struct{}),
	}
}

// TrySend implements hal.FullDuplex. It would block while the host
// side buffer is full.
func (u *UART) TrySend(b byte) error {
	select {
	case <-u.doneCh:
		return io.ErrClosedPipe
	default:
	}
	select {
	case u.tx <- b:
		return nil
	default:
		return hal.ErrWouldBlock
	}
}

// TryReceive implements hal.FullDuplex.
func (u *UART) TryReceive() (byte, error) {
	u.lock.Lock()
	defer u.lock.Unlock()
	if len(u.rx) == 0 {
		return 0, hal.ErrWouldBlock
	}
	b := u.rx[0]
	u.rx = u.rx[1:]
	return b, nil
}

// Read implements io.Reader for the host side. It blocks until at
// least one byte is available.
func (u *UART) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	// drain what was sent before Close.
	select {
	case b := <-u.tx:
		p[0] = b
	default:
		select {
		case b := <-u.tx:
			p[0] = b
		case <-u.doneCh:
			return 0, io.EOF
		}
	}
	n := 1
	for n < len(p) {
		select {
		case b := <-u.tx:
			p[n] = b
			n++
		default:
			return n, nil
		}
	}
	return n, nil
}

// Write implements io.Writer for the host side.
func (u *UART) Write(p []byte) (int, error) {
	select {
	case <-u.doneCh:
		return 0, io.ErrClosedPipe
	default:
	}
	u.lock.Lock()
	u.rx = append(u.rx, p...)
	u.lock.Unlock()
	return len(p), nil
}

// Close implements io.Closer.
func (u *UART) Close() error {
	u.once.Do(func() { close(u.doneCh) })
	return nil
}
