// Package firmware contains the application tasks of the board: a gyro
// sampler feeding the telemetry link through a handoff, and a
// magnetometer read on a debounced button press.
package firmware

import (
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/wonder.go/pkg/button"
	"github.com/robotalks/wonder.go/pkg/exec"
	"github.com/robotalks/wonder.go/pkg/handoff"
	"github.com/robotalks/wonder.go/pkg/link"
	"github.com/robotalks/wonder.go/pkg/sensor/l3gd20"
	"github.com/robotalks/wonder.go/pkg/sensor/lsm303dlhc"
	"github.com/robotalks/wonder.go/pkg/telemetry"
)

// AlertThreshold is the absolute X rate above which an alert frame
// precedes the gyro frame.
const AlertThreshold = 20000

// GyroTask enables the gyro, then forever reads a sample and pushes it
// into out. A full handoff paces the sampling.
func GyroTask(dev *l3gd20.Device, out *handoff.Pusher[l3gd20.Sample]) exec.Task {
	return exec.Seq(dev.Enable(), exec.Loop(func() exec.Task {
		return exec.Then[l3gd20.Sample, struct{}](dev.ReadValues(), out.Push)
	}))
}

// TelemetryTask forever pops a gyro sample and sends it over the link.
func TelemetryTask(in *handoff.Popper[l3gd20.Sample], tx *link.Sender) exec.Task {
	return exec.Loop(func() exec.Task {
		return exec.Then[l3gd20.Sample, struct{}](in.Pop(), func(v l3gd20.Sample) exec.Task {
			return sendSample(tx, v)
		})
	})
}

func sendSample(tx *link.Sender, v l3gd20.Sample) exec.Task {
	gyro := telemetry.Sample{Kind: telemetry.KindGyro, X: v.X, Y: v.Y, Z: v.Z, Temp: v.Temp}
	code, data := gyro.Packet()
	if x := int(v.X); x > AlertThreshold || x < -AlertThreshold {
		alert := telemetry.Sample{Kind: telemetry.KindAlert, X: v.X}
		alertCode, alertData := alert.Packet()
		return exec.Seq(tx.Send(alertCode, alertData), tx.Send(code, data))
	}
	return tx.Send(code, data)
}

// OrientationFunc receives each orientation read on a valid press.
type OrientationFunc func(lsm303dlhc.Orientation)

// MagnetometerTask sets up the magnetometer, then forever waits for a
// debounced press, reads the orientation and waits for the release.
// A bus fault ends the task.
func MagnetometerTask(btn *button.Button, debounce time.Duration, dev *lsm303dlhc.Device, report OrientationFunc) exec.Task {
	return exec.Seq(dev.Setup(), exec.Loop(func() exec.Task {
		return exec.Then[bool, struct{}](button.DebouncedPress(btn, debounce), func(valid bool) exec.Task {
			if !valid {
				glog.V(2).Info("press too short")
				return exec.Value(struct{}{})
			}
			read := exec.Then[lsm303dlhc.Orientation, struct{}](dev.Orientation(), func(o lsm303dlhc.Orientation) exec.Task {
				return exec.Do(func() error {
					glog.Infof("orientation x=%d y=%d z=%d", o.X, o.Y, o.Z)
					if report != nil {
						report(o)
					}
					return nil
				})
			})
			return exec.Seq(read, btn.WaitForRelease())
		})
	}))
}
