package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"flag"
	"os"

	"github.com/golang/glog"

	"github.com/robotalks/rtio.go/pkg/cli/sh"
	"github.com/robotalks/rtio.go/pkg/config"
	fx "github.com/robotalks/rtio.go/pkg/framework"
	"github.com/robotalks/rtio.go/pkg/rc"
	"github.com/robotalks/rtio.go/pkg/system"
	"github.com/robotalks/rtio.go/pkg/telemetry"
	"github.com/robotalks/rtio.go/pkg/telemetry/mqtt"
	"github.com/robotalks/rtio.go/pkg/telemetry/websocket"

	_ "github.com/robotalks/rtio.go/pkg/cli/cmds/diag"
)

func init() {
	config.SetupFlags()
}

func newReporter(conf *config.Config, sys *system.System) (*telemetry.Reporter, []fx.Runnable, error) {
	var (
		sinks   []telemetry.Sink
		runners []fx.Runnable
	)
	if conf.TelemetryURL != "" {
		pub, err := mqtt.NewPublisher(conf.TelemetryURL, "rtio:"+sys.Node, sys.Node+"/meta")
		if err != nil {
			return nil, nil, err
		}
		sinks, runners = append(sinks, pub), append(runners, pub)
	}
	if conf.WebsocketAddr != "" {
		hub := websocket.NewHub(conf.WebsocketAddr)
		sinks, runners = append(sinks, hub), append(runners, hub)
	}
	if len(sinks) == 0 {
		return nil, nil, nil
	}
	r := telemetry.NewReporter(sys.Node, telemetry.NewSession(), telemetry.Sources{
		Registry:  sys.Registry,
		Groups:    []*rc.Group{sys.Group},
		Pipelines: sys.Pipelines(),
		Motors:    sys.Motors,
	}, sinks...)
	r.Interval = conf.ReportInterval
	return r, runners, nil
}

func main() {
	flag.Parse()
	defer glog.Flush()

	conf := config.Default()
	f, err := config.Load(conf.File)
	if err != nil {
		glog.Exitf("load %s: %v", conf.File, err)
	}
	sys, err := f.NewSystem(conf.NodeName(f, telemetry.NodeID))
	if err != nil {
		glog.Exitf("build system: %v", err)
	}

	reporter, runners, err := newReporter(conf, sys)
	if err != nil {
		sys.Close()
		glog.Exitf("telemetry: %v", err)
	}
	if reporter != nil {
		sys.Loop.Add(reporter)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runner := fx.NewRunnerWith(ctx).HandleSignals()
	runner.Go(fx.NamedRun("system", sys)).Go(runners...)
	if conf.Shell {
		shell := sh.New(sys).WithReporter(reporter)
		runner.Go(fx.NamedRun("shell", fx.RunFunc(func(ctx context.Context) error {
			defer cancel()
			return shell.Run(ctx)
		})))
	}
	if err := runner.Wait(); err != nil {
		glog.Errorf("stopped: %v", err)
		glog.Flush()
		os.Exit(1)
	}
}
