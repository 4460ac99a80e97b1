package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"os"

	"github.com/golang/glog"

	"github.com/robotalks/wonder.go/pkg/board"
	"github.com/robotalks/wonder.go/pkg/framework"
	"github.com/robotalks/wonder.go/pkg/link"
	"github.com/robotalks/wonder.go/pkg/telemetry"
	"github.com/robotalks/wonder.go/pkg/telemetry/mqtt"
	"github.com/robotalks/wonder.go/pkg/telemetry/stream"
	"github.com/robotalks/wonder.go/pkg/telemetry/websocket"
)

//go-build: CGO_ENABLED=0

func init() {
	board.SetupFlags()
}

// Outputs opens the telemetry writers selected by conf.
func Outputs(conf *board.Config) (writers []telemetry.PacketWriter, closers []io.Closer, err error) {
	defer func() {
		if err != nil {
			for _, c := range closers {
				c.Close()
			}
		}
	}()
	if conf.MQTTBrokerURL != "" {
		q, err := mqtt.NewQueueFromURL(conf.MQTTBrokerURL)
		if err != nil {
			return nil, closers, err
		}
		if err = q.Connect(); err != nil {
			return nil, closers, err
		}
		closers = append(closers, q)
		writers = append(writers, mqtt.NewWriter(q, mqtt.SampleTopic(conf.BoardID())))
	}
	if conf.WebsocketURL != "" {
		ws, err := websocket.Dial(conf.WebsocketURL, "http://localhost/")
		if err != nil {
			return nil, closers, err
		}
		closers = append(closers, ws)
		writers = append(writers, ws)
	}
	if conf.RecordFile != "" {
		f, err := os.OpenFile(conf.RecordFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, closers, err
		}
		closers = append(closers, f)
		writers = append(writers, stream.New(f))
	}
	return writers, closers, nil
}

func main() {
	flag.Parse()
	conf := board.Default()

	writers, closers, err := Outputs(conf)
	if err != nil {
		glog.Exitf("open telemetry output: %v", err)
	}
	defer func() {
		for _, c := range closers {
			c.Close()
		}
	}()
	if len(writers) == 0 {
		glog.Warning("no telemetry output, samples are only logged at -v=3")
	}

	b := board.New(conf, nil)
	bridge := telemetry.NewBridge(conf.BoardID(), writers...)
	rcv := link.NewReceiver(b.UART, bridge)
	runner := framework.NewRunner().HandleSignals().Go(
		b,
		framework.NamedRun("link", framework.RunFunc(func(ctx context.Context) error {
			if err := rcv.Run(ctx); !errors.Is(err, io.EOF) {
				return err
			}
			return nil
		})),
	)
	err = runner.Wait()
	st := bridge.Stats()
	glog.Infof("samples=%d dropped=%d write-errors=%d", st.Samples, st.Dropped, st.WriteErrors)
	if err != nil {
		glog.Exit(err)
	}
}
