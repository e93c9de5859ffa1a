package power

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/oshokin/power-alert/internal/logger"
)

// ErrShutdownInvocation indicates the shutdown command could not be launched or failed.
var ErrShutdownInvocation = errors.New("shutdown invocation failed")

// errCommandRequired is returned when no executable is given.
var errCommandRequired = errors.New("shutdown command must be provided")

// waitDelay is how long Wait keeps draining output after the command is killed.
const waitDelay = time.Second

// Shutdowner halts the host.
type Shutdowner interface {
	Shutdown(ctx context.Context) error
}

// Command runs an OS shutdown executable such as `/sbin/shutdown -h now`.
type Command struct {
	// path is the executable, normally absolute.
	path string
	// args are passed verbatim to the executable.
	args []string
	// timeout bounds the command run.
	timeout time.Duration
}

// NewCommand builds a Command from argv. A non-positive timeout disables the bound.
func NewCommand(argv []string, timeout time.Duration) (*Command, error) {
	if len(argv) == 0 || argv[0] == "" {
		return nil, errCommandRequired
	}

	return &Command{
		path:    argv[0],
		args:    append([]string(nil), argv[1:]...),
		timeout: timeout,
	}, nil
}

// String returns the command line.
func (c *Command) String() string {
	return strings.Join(append([]string{c.path}, c.args...), " ")
}

// Shutdown runs the command and waits for it to exit so failures are visible.
// The run is detached from ctx cancellation: once halting starts the init
// system signals every process, and that must not kill the command itself.
func (c *Command) Shutdown(ctx context.Context) error {
	var (
		parent = context.WithoutCancel(ctx)
		runCtx context.Context
		cancel context.CancelFunc
	)

	if c.timeout > 0 {
		runCtx, cancel = context.WithTimeout(parent, c.timeout)
	} else {
		runCtx, cancel = context.WithCancel(parent)
	}

	defer cancel()

	logger.InfoKV(ctx, "Invoking shutdown", "command", c.String())

	cmd := exec.CommandContext(runCtx, c.path, c.args...)
	// Children that inherit the output pipe must not hold Wait open past the kill.
	cmd.WaitDelay = waitDelay

	output, err := cmd.CombinedOutput()
	if err != nil {
		output = bytes.TrimSpace(output)
		if len(output) > 0 {
			return fmt.Errorf("%w: %s: %w: %s", ErrShutdownInvocation, c, err, output)
		}

		return fmt.Errorf("%w: %s: %w", ErrShutdownInvocation, c, err)
	}

	return nil
}

// DryRun logs the shutdown instead of performing it.
type DryRun struct {
	// Command is the command line that would have been run.
	Command string
}

// Shutdown only logs.
func (d DryRun) Shutdown(ctx context.Context) error {
	logger.WarnKV(ctx, "Debug mode, shutdown skipped", "command", d.Command)

	return nil
}
