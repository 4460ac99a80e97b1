// Package board assembles a simulated board: pins, buses and sensor
// models wired to the drivers and the firmware tasks on one executor.
package board

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/glog"

	"github.com/robotalks/wonder.go/pkg/button"
	"github.com/robotalks/wonder.go/pkg/exec"
	"github.com/robotalks/wonder.go/pkg/firmware"
	"github.com/robotalks/wonder.go/pkg/hal"
	"github.com/robotalks/wonder.go/pkg/handoff"
	"github.com/robotalks/wonder.go/pkg/i2c"
	"github.com/robotalks/wonder.go/pkg/link"
	"github.com/robotalks/wonder.go/pkg/sensor/l3gd20"
	"github.com/robotalks/wonder.go/pkg/sensor/lsm303dlhc"
	"github.com/robotalks/wonder.go/pkg/sim"
	"github.com/robotalks/wonder.go/pkg/spi"
)

// Task names on the executor.
const (
	TaskGyro         = "gyro"
	TaskTelemetry    = "telemetry"
	TaskMagnetometer = "magnetometer"
)

// FaultKind names a fault the simulated hardware can inject.
type FaultKind string

// Supported faults.
const (
	FaultArbitration FaultKind = "arbitration"
	FaultBus         FaultKind = "bus"
	FaultNack        FaultKind = "nack"
	FaultSPI         FaultKind = "spi"
)

// ErrSPIFault is the error injected by FaultSPI.
var ErrSPIFault = errors.New("spi: injected fault")

// UnknownFaultError is returned by InjectFault for unsupported kinds.
type UnknownFaultError struct {
	Kind FaultKind
}

// Error implements error.
func (e *UnknownFaultError) Error() string {
	return fmt.Sprintf("unknown fault %q", string(e.Kind))
}

// Stats is a snapshot of the board counters.
type Stats struct {
	Rounds       int
	Tasks        []exec.TaskStatus
	SPI          sim.ByteBusStats
	I2CStarts    int
	I2CStops     int
	FramesSent   int
	Orientations int
}

// Board is a simulated board running the firmware.
type Board struct {
	Config   *Config
	Executor *exec.Executor

	ButtonPin    *sim.Pin
	Gyro         *sim.Gyro
	GyroBus      *sim.ByteBus
	Magnetometer *sim.Magnetometer
	I2C          *sim.I2C
	// UART is the link towards the host, read it from the host side.
	UART *sim.UART

	sender  *link.Sender
	lock    sync.Mutex
	last    lsm303dlhc.Orientation
	reports int
}

// New assembles a board from conf. clk is the executor time source,
// nil for wall time.
func New(conf *Config, clk clock.Clock) *Board {
	b := &Board{
		Config:       conf,
		Executor:     exec.New(clk),
		ButtonPin:    sim.NewPin(false),
		Gyro:         sim.NewGyro(),
		Magnetometer: sim.NewMagnetometer(),
		I2C:          sim.NewI2C(),
		UART:         sim.NewUART(conf.UARTCapacity),
	}
	b.Executor.PollInterval = conf.PollInterval
	b.GyroBus = sim.NewByteBus(b.Gyro)
	b.GyroBus.Latency = conf.SPILatency
	b.I2C.Latency, b.I2C.StopDelay = conf.I2CLatency, conf.I2CStopDelay
	b.I2C.Attach(lsm303dlhc.Addr, b.Magnetometer)

	gyro := l3gd20.New(spi.NewBus(b.GyroBus), b.Gyro.ChipSelect())
	mag := lsm303dlhc.New(i2c.NewBus(b.I2C, lsm303dlhc.Addr))
	btn := button.New(b.ButtonPin, button.ActiveHigh)
	b.sender = link.NewSender(spi.NewBus(b.UART))
	pusher, popper := handoff.New[l3gd20.Sample]().Split()

	b.Executor.
		Add(TaskGyro, firmware.GyroTask(gyro, pusher)).
		Add(TaskTelemetry, firmware.TelemetryTask(popper, b.sender)).
		Add(TaskMagnetometer, firmware.MagnetometerTask(btn, conf.DebounceTimeout, mag, b.report))
	return b
}

func (b *Board) report(o lsm303dlhc.Orientation) {
	b.lock.Lock()
	b.last = o
	b.reports++
	b.lock.Unlock()
}

// Name implements framework.Named.
func (b *Board) Name() string {
	return "board"
}

// Run implements framework.Runnable. The UART is closed when the
// executor stops so the host side sees EOF.
func (b *Board) Run(ctx context.Context) error {
	defer b.UART.Close()
	glog.Infof("board %s running", b.Config.BoardID())
	return b.Executor.Run(ctx)
}

// Press drives the button pin high. A positive d releases it again
// after d on the board clock.
func (b *Board) Press(d time.Duration) {
	b.ButtonPin.Set(true)
	b.Executor.Wake(exec.AllTasks)
	if d > 0 {
		b.Executor.Clock.AfterFunc(d, b.Release)
	}
}

// Release drives the button pin low.
func (b *Board) Release() {
	b.ButtonPin.Set(false)
	b.Executor.Wake(exec.AllTasks)
}

// SetRates updates the angular rates the gyro reports.
func (b *Board) SetRates(x, y, z int16) {
	b.Gyro.SetRates(x, y, z)
}

// SetField updates the field the magnetometer reports.
func (b *Board) SetField(x, y, z int16) {
	b.Magnetometer.SetField(x, y, z)
}

// InjectFault makes the simulated hardware fail once.
func (b *Board) InjectFault(kind FaultKind) error {
	switch FaultKind(strings.ToLower(string(kind))) {
	case FaultArbitration:
		b.I2C.InjectFault(hal.I2CArbitrationLost)
	case FaultBus:
		b.I2C.InjectFault(hal.I2CBusError)
	case FaultNack:
		b.I2C.InjectFault(hal.I2CNack)
	case FaultSPI:
		b.GyroBus.FailAfter(0, ErrSPIFault)
	default:
		return &UnknownFaultError{Kind: kind}
	}
	b.Executor.Wake(exec.AllTasks)
	return nil
}

// LastOrientation returns the latest orientation read on a press.
func (b *Board) LastOrientation() (o lsm303dlhc.Orientation, ok bool) {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.last, b.reports > 0
}

// Stats returns a snapshot of the counters.
func (b *Board) Stats() Stats {
	b.lock.Lock()
	reports := b.reports
	b.lock.Unlock()
	return Stats{
		Rounds:       b.Executor.Rounds(),
		Tasks:        b.Executor.Tasks(),
		SPI:          b.GyroBus.Stats(),
		I2CStarts:    b.I2C.Count(sim.I2CEventStart),
		I2CStops:     b.I2C.Count(sim.I2CEventStop),
		FramesSent:   b.sender.Sent(),
		Orientations: reports,
	}
}
