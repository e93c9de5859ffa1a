//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mitchellh/go-ps"
)

// ErrAlreadyRunning indicates another process with the same executable owns the pin.
var ErrAlreadyRunning = errors.New("another instance is already running")

// passiveCommands never claim the alert pin; processes running them are not twins.
//
//nolint:gochecknoglobals // Read-only lookup table.
var passiveCommands = map[string]struct{}{
	"status":     {},
	"version":    {},
	"help":       {},
	"completion": {},
	"--help":     {},
	"-h":         {},
}

// EnsureSingleInstance fails when another process with this executable name
// may claim the alert pin. The pin is owned by exactly one process at a time.
func EnsureSingleInstance() error {
	self, err := ps.FindProcess(os.Getpid())
	if err != nil {
		return fmt.Errorf("inspect own process: %w", err)
	}

	// Process tables that cannot see us cannot see a twin either.
	if self == nil {
		return nil
	}

	processList, err := ps.Processes()
	if err != nil {
		return fmt.Errorf("list processes: %w", err)
	}

	if twin := findTwin(self, processList, procCommandLine); twin != nil {
		return fmt.Errorf("%w: %s (pid %d)", ErrAlreadyRunning, twin.Executable(), twin.Pid())
	}

	return nil
}

// findTwin returns the first process other than self sharing its executable
// name and able to claim the pin. commandLine returns nil when the arguments
// of a process are unknown; such a process is assumed to hold the pin.
//
//nolint:ireturn // go-ps models processes as an interface.
func findTwin(self ps.Process, processList []ps.Process, commandLine func(pid int) []string) ps.Process {
	for _, process := range processList {
		if process.Pid() == self.Pid() || process.Executable() != self.Executable() {
			continue
		}

		if claimsPin(commandLine(process.Pid())) {
			return process
		}
	}

	return nil
}

// claimsPin reports whether a command line may open the alert pin.
func claimsPin(args []string) bool {
	if len(args) < 2 {
		return true
	}

	for _, arg := range args[1:] {
		if _, ok := passiveCommands[arg]; ok {
			return false
		}
	}

	return true
}

// procCommandLine reads the arguments of pid from procfs. go-ps exposes only
// the executable name. Returns nil where procfs is unavailable.
func procCommandLine(pid int) []string {
	data, err := os.ReadFile(filepath.Join("/proc", strconv.Itoa(pid), "cmdline"))
	if err != nil || len(data) == 0 {
		return nil
	}

	return strings.Split(strings.TrimRight(string(data), "\x00"), "\x00")
}
