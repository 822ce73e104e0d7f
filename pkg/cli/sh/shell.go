package sh

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/rtio.go/pkg/system"
	"github.com/robotalks/rtio.go/pkg/telemetry"
)

// Shell provides ishell backed diagnostic shell running inside a node.
type Shell struct {
	OutputJSON bool

	Shell    *ishell.Shell
	System   *system.System
	Reporter *telemetry.Reporter
}

const shellKey = "$shell"

var (
	outputJSON bool

	commands []*ishell.Cmd
)

func init() {
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print shell output in JSON.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(sys *system.System) *Shell {
	s := &Shell{
		OutputJSON: outputJSON,
		Shell:      ishell.New(),
		System:     sys,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(sys.Node + " > ")
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// WithReporter attaches the telemetry reporter for the stats command.
func (s *Shell) WithReporter(r *telemetry.Reporter) *Shell {
	s.Reporter = r
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// Output prints v as JSON if requested, otherwise calls text.
func Output(c *ishell.Context, v interface{}, text func()) {
	if ShellFrom(c).OutputJSON {
		out, err := json.Marshal(v)
		if err != nil {
			c.Err(err)
			return
		}
		c.Println(string(out))
		return
	}
	text()
}

// RequireArgs wraps a command func requiring at least n arguments.
func RequireArgs(n int, fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if len(c.Args) < n {
			c.Err(fmt.Errorf("expect %d arguments, usage: %s", n, c.Cmd.Help))
			return
		}
		fn(c)
	}
}

// Process runs a single command line.
func (s *Shell) Process(args ...string) error {
	return s.Shell.Process(args...)
}

// Run implements framework.Runnable. It returns when the user exits the
// shell or ctx is done, without waiting for a pending line read.
func (s *Shell) Run(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Shell.Run()
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.Shell.Close()
		return ctx.Err()
	}
}

// Name implements framework.Named.
func (s *Shell) Name() string {
	return "shell"
}
