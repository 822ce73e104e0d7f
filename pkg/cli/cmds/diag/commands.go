package diag

import (
	"context"
	"time"

	"github.com/abiosoft/ishell"
	"github.com/golang/protobuf/proto"

	"github.com/robotalks/rtio.go/pkg/cli/sh"
)

// CommandTimeout bounds commands which transmit frames.
const CommandTimeout = time.Second

func printAll[T proto.Message](c *ishell.Context, list []T) {
	sh.Output(c, list, func() {
		if len(list) == 0 {
			c.Println("None")
			return
		}
		for _, m := range list {
			c.Println(proto.CompactTextString(m))
		}
	})
}

func ok(c *ishell.Context, err error) {
	if err != nil {
		c.Err(err)
		return
	}
	c.Println("OK")
}

var (
	// LinksCmd lists links.
	LinksCmd = ishell.Cmd{
		Name:    "links",
		Aliases: []string{"l"},
		Help:    "",
		Func: func(c *ishell.Context) {
			printAll(c, Links(sh.ShellFrom(c).System))
		},
	}

	// SnapshotCmd prints the latest controls.
	SnapshotCmd = ishell.Cmd{
		Name:    "snapshot",
		Aliases: []string{"s"},
		Help:    "[LINK]",
		Func: func(c *ishell.Context) {
			var name string
			if len(c.Args) > 0 {
				name = c.Args[0]
			}
			snapshot, err := Snapshot(sh.ShellFrom(c).System, name)
			if err != nil {
				c.Err(err)
				return
			}
			sh.Output(c, snapshot, func() { c.Println(proto.CompactTextString(snapshot)) })
		},
	}

	// LockCmd prints the lock state of a link.
	LockCmd = ishell.Cmd{
		Name: "lock",
		Help: "LINK",
		Func: sh.RequireArgs(1, func(c *ishell.Context) {
			state, err := LockState(sh.ShellFrom(c).System, c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			sh.Output(c, state, func() {
				c.Printf("readers %d, writers waiting %d, read gate %v, write gate %v\n",
					state.Readers, state.WritersWaiting, state.ReadGateHeld, state.WriteGateHeld)
			})
		}),
	}

	// EnableCmd enables a link.
	EnableCmd = ishell.Cmd{
		Name: "enable",
		Help: "LINK",
		Func: sh.RequireArgs(1, func(c *ishell.Context) {
			ok(c, sh.ShellFrom(c).System.EnableLink(c.Args[0]))
		}),
	}

	// DisableCmd disables a link.
	DisableCmd = ishell.Cmd{
		Name: "disable",
		Help: "LINK",
		Func: sh.RequireArgs(1, func(c *ishell.Context) {
			ok(c, sh.ShellFrom(c).System.DisableLink(c.Args[0]))
		}),
	}

	// FramesCmd lists merge frames.
	FramesCmd = ishell.Cmd{
		Name:    "frames",
		Aliases: []string{"f"},
		Help:    "",
		Func: func(c *ishell.Context) {
			printAll(c, Frames(sh.ShellFrom(c).System))
		},
	}

	// SlotCmd writes a merge frame slot.
	SlotCmd = ishell.Cmd{
		Name: "slot",
		Help: "BUS ID SLOT VALUE",
		Func: sh.RequireArgs(4, func(c *ishell.Context) {
			ctx, cancel := context.WithTimeout(context.Background(), CommandTimeout)
			defer cancel()
			ok(c, WriteSlot(ctx, sh.ShellFrom(c).System, c.Args[0], c.Args[1], c.Args[2], c.Args[3]))
		}),
	}

	// BusesCmd lists buses.
	BusesCmd = ishell.Cmd{
		Name:    "buses",
		Aliases: []string{"b"},
		Help:    "",
		Func: func(c *ishell.Context) {
			printAll(c, Buses(sh.ShellFrom(c).System))
		},
	}

	// PipelinesCmd lists capture pipelines.
	PipelinesCmd = ishell.Cmd{
		Name:    "pipelines",
		Aliases: []string{"p"},
		Help:    "",
		Func: func(c *ishell.Context) {
			printAll(c, Pipelines(sh.ShellFrom(c).System))
		},
	}

	// MotorCmd lists motors or changes one.
	MotorCmd = ishell.Cmd{
		Name:    "motor",
		Aliases: []string{"m"},
		Help:    "[NAME on|off|torque VALUE]",
		Func: func(c *ishell.Context) {
			sys := sh.ShellFrom(c).System
			if len(c.Args) > 0 {
				ok(c, SetMotor(sys, c.Args[0], c.Args[1:]...))
				return
			}
			for _, name := range sys.MotorNames() {
				m := sys.Motor(name)
				c.Printf("%s enabled=%v torque=%g\n", name, m.Enabled(), m.Torque())
			}
		},
	}

	// StatsCmd prints loop and telemetry counters.
	StatsCmd = ishell.Cmd{
		Name: "stats",
		Help: "",
		Func: func(c *ishell.Context) {
			s := sh.ShellFrom(c)
			stats := map[string]interface{}{"loop": s.System.Loop.Stats()}
			if s.Reporter != nil {
				stats["telemetry"] = s.Reporter.Stats()
			}
			sh.Output(c, stats, func() {
				ls := s.System.Loop.Stats()
				c.Printf("loop: iterations %d, overruns %d, errors %d, last %s\n",
					ls.Iterations, ls.Overruns, ls.Errors, ls.LastRun)
				if s.Reporter != nil {
					c.Printf("telemetry: %+v\n", s.Reporter.Stats())
				}
			})
		},
	}
)

func init() {
	sh.AddCmds(
		&LinksCmd,
		&SnapshotCmd,
		&LockCmd,
		&EnableCmd,
		&DisableCmd,
		&FramesCmd,
		&SlotCmd,
		&BusesCmd,
		&PipelinesCmd,
		&MotorCmd,
		&StatsCmd,
	)
}
