package installer

import (
	"fmt"
	"slices"
	"strings"

	"github.com/mitchellh/go-ps"
)

// ProcessLister returns executable names of running processes.
type ProcessLister func() ([]string, error)

// SystemProcesses lists processes of the current machine.
func SystemProcesses() ([]string, error) {
	processes, err := ps.Processes()
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}

	names := make([]string, 0, len(processes))
	for _, p := range processes {
		names = append(names, p.Executable())
	}

	return names, nil
}

// runningGame returns the first running executable among names.
func runningGame(list ProcessLister, names []string) (string, error) {
	if list == nil || len(names) == 0 {
		return "", nil
	}

	running, err := list()
	if err != nil {
		return "", err
	}

	for _, executable := range running {
		if slices.ContainsFunc(names, func(name string) bool {
			return strings.EqualFold(name, executable)
		}) {
			return executable, nil
		}
	}

	return "", nil
}
