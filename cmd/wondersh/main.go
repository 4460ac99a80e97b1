package main

import (
	"flag"

	"github.com/golang/glog"

	"github.com/robotalks/wonder.go/pkg/board"
	"github.com/robotalks/wonder.go/pkg/cli/sh"
	"github.com/robotalks/wonder.go/pkg/framework"
	"github.com/robotalks/wonder.go/pkg/link"
	"github.com/robotalks/wonder.go/pkg/telemetry"
)

//go-build: CGO_ENABLED=0

func init() {
	board.SetupFlags()
}

func main() {
	flag.Parse()
	conf := board.Default()
	b := board.New(conf, nil)
	bridge := telemetry.NewBridge(conf.BoardID())
	runner := framework.NewRunner().Go(b, framework.NamedRun("link", link.NewReceiver(b.UART, bridge)))

	sh.New(b).Run(flag.Args()...)

	runner.Stop()
	if err := runner.Wait(); err != nil {
		glog.V(2).Info(err)
	}
}
