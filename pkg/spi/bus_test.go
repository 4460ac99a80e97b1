package spi

import (
	"errors"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/wonder.go/pkg/exec"
	"github.com/robotalks/wonder.go/pkg/sim"
)

func run[T any](f exec.Future[T]) *exec.Handle[T] {
	ex := exec.New(clock.NewMock())
	h := exec.Spawn(ex, "op", f)
	for i := 0; i < 100 && !h.Done(); i++ {
		ex.Step()
	}
	return h
}

func TestTransferEcho(t *testing.T) {
	for n := 0; n <= 4; n++ {
		dev := sim.NewByteBus(sim.Echo)
		buf := make([]byte, n)
		for i := range buf {
			buf[i] = byte(0x10 + i)
		}
		expected := append([]byte(nil), buf...)
		h := run[[]byte](NewBus(dev).Transfer(buf))
		require.True(t, h.Result().Ok())
		require.Equal(t, expected, h.Result().Value)
		require.Equal(t, 1, h.Polls())
		require.Equal(t, sim.ByteBusStats{Sends: n, Receives: n}, dev.Stats())
	}
}

func TestTransferConstantResponse(t *testing.T) {
	dev := sim.NewByteBus(sim.ExchangeFunc(func(byte) byte { return 0xff }))
	h := run[[]byte](NewBus(dev).Transfer([]byte{0x01, 0x02}))
	require.True(t, h.Result().Ok())
	require.Equal(t, []byte{0xff, 0xff}, h.Result().Value)
	require.Equal(t, sim.ByteBusStats{Sends: 2, Receives: 2}, dev.Stats())
}

func TestTransferWouldBlock(t *testing.T) {
	dev := sim.NewByteBus(sim.ExchangeFunc(func(b byte) byte { return ^b }))
	dev.Latency = 2
	h := run[[]byte](NewBus(dev).Transfer([]byte{0x00, 0x0f, 0xf0}))
	require.True(t, h.Result().Ok())
	require.Equal(t, []byte{0xff, 0xf0, 0x0f}, h.Result().Value)
	require.Equal(t, 13, h.Polls())
	require.Equal(t, 12, dev.Stats().WouldBlocks)
}

func TestTransferAbortsOnError(t *testing.T) {
	errBus := errors.New("overrun")
	dev := sim.NewByteBus(sim.ExchangeFunc(func(byte) byte { return 0xaa }))
	dev.FailAfter(2, errBus)
	buf := []byte{1, 2, 3}
	op := NewBus(dev).Transfer(buf)
	h := run[[]byte](op)
	require.True(t, h.Done())
	require.ErrorIs(t, h.Result().Err, errBus)
	require.Equal(t, []byte{0xaa, 2, 3}, buf)
	require.Equal(t, 1, op.Transferred())
}

func TestReadWrite(t *testing.T) {
	dev := sim.NewByteBus(sim.Echo)
	bus := NewBus(dev)

	rd := run[byte](bus.Read())
	require.False(t, rd.Done())

	wr := run[struct{}](bus.Write(0x5a))
	require.True(t, wr.Result().Ok())
	rd = run[byte](bus.Read())
	require.True(t, rd.Result().Ok())
	require.Equal(t, byte(0x5a), rd.Result().Value)
}

func TestReadWriteErrorsPassThrough(t *testing.T) {
	errHW := errors.New("mode fault")
	dev := sim.NewByteBus(sim.Echo)
	bus := NewBus(dev)
	dev.FailAfter(0, errHW)
	h := run[struct{}](bus.Write(1))
	require.Equal(t, errHW, h.Result().Err)
}
