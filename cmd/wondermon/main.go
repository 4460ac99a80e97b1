package main

import (
	"errors"
	"flag"
	"io"
	"os"

	"github.com/golang/glog"

	"github.com/robotalks/wonder.go/pkg/framework"
	"github.com/robotalks/wonder.go/pkg/telemetry"
	"github.com/robotalks/wonder.go/pkg/telemetry/mqtt"
	"github.com/robotalks/wonder.go/pkg/telemetry/stream"
)

var (
	mqttURL    = "mqtt://localhost:1883/"
	replayFile string
)

func init() {
	if val := os.Getenv("WONDER_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
	flag.StringVar(&replayFile, "replay", replayFile, "Print samples recorded in a file instead.")
}

func printSample(topic string, payload []byte) {
	s, err := telemetry.Decode(payload)
	if err != nil {
		glog.Warningf("%s: bad sample: %v", topic, err)
		return
	}
	glog.Infof("%s: %s %s", topic, s.Time.Format("15:04:05.000"), s)
}

func replay(fn string) error {
	f, err := os.Open(fn)
	if err != nil {
		return err
	}
	defer f.Close()
	r := stream.New(struct {
		io.Reader
		io.Writer
	}{Reader: f})
	for {
		pkt, err := r.ReadPacket()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		printSample(fn, pkt)
	}
}

func main() {
	flag.Parse()
	defer glog.Flush()

	if replayFile != "" {
		if err := replay(replayFile); err != nil {
			glog.Exit(err)
		}
		return
	}

	q, err := mqtt.NewQueueFromURL(mqttURL)
	if err != nil {
		glog.Exit(err)
	}
	q.Sub("#", mqtt.Handler(printSample))
	if err := q.Connect(); err != nil {
		glog.Exit(err)
	}
	defer q.Close()

	runner := framework.NewRunner().HandleSignals()
	<-runner.Context.Done()
}
