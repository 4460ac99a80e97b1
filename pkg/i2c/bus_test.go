package i2c

import (
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/wonder.go/pkg/exec"
	"github.com/robotalks/wonder.go/pkg/hal"
	"github.com/robotalks/wonder.go/pkg/sim"
)

const testAddr = 0x1e

func newTestBus() (*Bus, *sim.I2C, *sim.Registers) {
	regs := &sim.Registers{}
	ctl := sim.NewI2C().Attach(testAddr, regs)
	return NewBus(ctl, testAddr), ctl, regs
}

func run[T any](f exec.Future[T]) *exec.Handle[T] {
	ex := exec.New(clock.NewMock())
	h := exec.Spawn(ex, "op", f)
	for i := 0; i < 1000 && !h.Done(); i++ {
		ex.Step()
	}
	return h
}

func kinds(events []sim.I2CEvent) []sim.I2CEventKind {
	var k []sim.I2CEventKind
	for _, ev := range events {
		k = append(k, ev.Kind)
	}
	return k
}

func TestWrite(t *testing.T) {
	bus, ctl, regs := newTestBus()
	h := run[int](bus.Write([]byte{0x02, 0xaa, 0xbb}, false))
	require.True(t, h.Result().Ok())
	require.Equal(t, 3, h.Result().Value)
	require.Equal(t, 3, h.Polls())
	require.Equal(t, byte(0xaa), regs.Get(0x02))
	require.Equal(t, byte(0xbb), regs.Get(0x03))
	require.Equal(t, []sim.I2CEventKind{sim.I2CEventStart, sim.I2CEventStop}, kinds(ctl.Events()))
	require.Equal(t, hal.AutoStop, ctl.Events()[0].Mode)
	require.False(t, bus.Held())
}

func TestRead(t *testing.T) {
	bus, ctl, regs := newTestBus()
	ctl.Latency = 2
	regs.Set(0x00, 1, 2, 3, 4)
	buf := make([]byte, 4)
	h := run[int](bus.Read(buf))
	require.True(t, h.Result().Ok())
	require.Equal(t, []byte{1, 2, 3, 4}, buf)
	require.Equal(t, hal.I2CRead, ctl.Events()[0].Dir)
	require.Equal(t, 4, ctl.Events()[0].N)
}

func TestHoldThenRead(t *testing.T) {
	bus, ctl, regs := newTestBus()
	regs.Set(0x03, 0x10, 0x20, 0x30)

	w := bus.Write([]byte{0x03}, true)
	h := run[int](w)
	require.True(t, h.Result().Ok())
	require.True(t, bus.Held())
	require.Equal(t, []sim.I2CEventKind{sim.I2CEventStart}, kinds(ctl.Events()))

	buf := make([]byte, 3)
	r := run[int](w.ContinueWithRead(buf))
	require.True(t, r.Result().Ok())
	require.Equal(t, []byte{0x10, 0x20, 0x30}, buf)

	events := ctl.Events()
	require.Equal(t, []sim.I2CEventKind{sim.I2CEventStart, sim.I2CEventStart, sim.I2CEventStop}, kinds(events))
	require.Equal(t, hal.HoldBus, events[0].Mode)
	require.Equal(t, hal.I2CWrite, events[0].Dir)
	require.Equal(t, hal.I2CRead, events[1].Dir)
	require.False(t, bus.Held())
}

func TestWriteRead(t *testing.T) {
	bus, ctl, regs := newTestBus()
	regs.Set(0x03, 6, 5, 4, 3, 2, 1)
	h := run[[]byte](bus.WriteRead([]byte{0x03}, make([]byte, 6)))
	require.True(t, h.Result().Ok())
	require.Equal(t, []byte{6, 5, 4, 3, 2, 1}, h.Result().Value)
	require.Equal(t, 2, ctl.Count(sim.I2CEventStart))
	require.Equal(t, 1, ctl.Count(sim.I2CEventStop))
}

func TestNackWaitsForStop(t *testing.T) {
	ctl := sim.NewI2C()
	ctl.StopDelay = 3
	bus := NewBus(ctl, 0x42)

	ex := exec.New(clock.NewMock())
	h := exec.Spawn[int](ex, "op", bus.Write([]byte{1, 2}, false))
	for i := 0; i < 3; i++ {
		ex.Step()
		require.False(t, h.Done())
		require.Zero(t, ctl.Count(sim.I2CEventStop))
	}
	ex.Step()
	require.True(t, h.Done())
	require.Equal(t, 1, ctl.Count(sim.I2CEventStop))
	require.ErrorIs(t, h.Result().Err, FaultNack)
	require.False(t, ctl.Status().Has(hal.I2CNack))
	require.False(t, ctl.Status().Has(hal.I2CStop))
}

func TestNackOnData(t *testing.T) {
	bus, ctl, regs := newTestBus()
	regs.RefuseWrites = true
	tr := bus.Write([]byte{0x00, 1, 2, 3}, false)
	h := run[int](tr)
	require.ErrorIs(t, h.Result().Err, FaultNack)
	require.Equal(t, 2, tr.Transferred())
	require.Equal(t, 1, ctl.Count(sim.I2CEventStop))
}

func TestNackOnLastByteDoesNotLeak(t *testing.T) {
	testCases := []struct {
		name       string
		readStatus bool
	}{
		{"stop latched", true},
		{"stop pending", false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			bus, ctl, regs := newTestBus()
			regs.RefuseWrites = true
			regs.Set(0x00, 0x77)
			require.True(t, run[int](bus.Write([]byte{0x00, 0x55}, false)).Result().Ok())
			if tc.readStatus {
				require.True(t, ctl.Status().Has(hal.I2CNack|hal.I2CStop))
			}

			ctl.Latency = 2
			buf := make([]byte, 1)
			h := run[int](bus.Read(buf))
			require.True(t, h.Done())
			require.NoError(t, h.Result().Err)
			require.Equal(t, []byte{0x77}, buf)
			require.Equal(t, []sim.I2CEventKind{
				sim.I2CEventStart, sim.I2CEventStop, sim.I2CEventStart, sim.I2CEventStop,
			}, kinds(ctl.Events()))
			require.False(t, ctl.Status().Has(hal.I2CNack))
			require.False(t, bus.Held())
		})
	}
}

func TestFaults(t *testing.T) {
	testCases := []struct {
		name  string
		flag  hal.I2CStatus
		fault Fault
	}{
		{"arbitration lost", hal.I2CArbitrationLost, FaultArbitrationLost},
		{"bus error", hal.I2CBusError, FaultBusError},
		{"nack", hal.I2CNack, FaultNack},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			bus, ctl, regs := newTestBus()
			ctl.InjectFault(tc.flag)
			h := run[int](bus.Write([]byte{0x00, 1}, false))
			require.ErrorIs(t, h.Result().Err, tc.fault)
			require.Zero(t, ctl.Status()&(hal.I2CArbitrationLost|hal.I2CBusError|hal.I2CNack))

			h = run[int](bus.Write([]byte{0x00, 7}, false))
			require.True(t, h.Result().Ok())
			require.Equal(t, byte(7), regs.Get(0x00))
		})
	}
}

func TestContractViolations(t *testing.T) {
	bus, ctl, _ := newTestBus()

	h := run[int](bus.Write(nil, false))
	require.ErrorIs(t, h.Result().Err, ErrEmpty)
	h = run[int](bus.Read(make([]byte, 256)))
	require.ErrorIs(t, h.Result().Err, ErrTooLong)

	h = run[int](bus.Read(make([]byte, 2)).ContinueWithRead(make([]byte, 1)))
	require.ErrorIs(t, h.Result().Err, ErrNotHeld)
	require.Zero(t, ctl.Count(sim.I2CEventStart))

	ctl.Latency = 10
	ex := exec.New(clock.NewMock())
	first := exec.Spawn[int](ex, "first", bus.Read(make([]byte, 1)))
	second := exec.Spawn[int](ex, "second", bus.Read(make([]byte, 1)))
	ex.Step()
	require.False(t, first.Done())
	require.ErrorIs(t, second.Result().Err, ErrBusy)
	require.Equal(t, 1, ctl.Count(sim.I2CEventStart))
	for i := 0; i < 20 && !first.Done(); i++ {
		ex.Step()
	}
	require.True(t, first.Result().Ok())
}

func TestRelease(t *testing.T) {
	bus, ctl, _ := newTestBus()
	h := run[int](bus.Write([]byte{0x00, 1}, true))
	require.True(t, h.Result().Ok())
	require.Zero(t, ctl.Count(sim.I2CEventStop))
	bus.Release()
	require.Equal(t, 1, ctl.Count(sim.I2CEventStop))
	require.False(t, ctl.Held())
	bus.Release()
	require.Equal(t, 1, ctl.Count(sim.I2CEventStop))
}
