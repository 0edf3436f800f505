package process

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/mitchellh/go-ps"
)

// Running returns the IDs of processes, other than the current one, whose
// executable name matches the base name of path.
func Running(path string) ([]int, error) {
	name := filepath.Base(path)

	processList, err := ps.Processes()
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}

	thisProcessID := os.Getpid()

	var ids []int

	for _, process := range processList {
		if process.Pid() == thisProcessID {
			continue
		}

		if !sameExecutable(process.Executable(), name) {
			continue
		}

		ids = append(ids, process.Pid())
	}

	return ids, nil
}

// IsRunning reports whether an executable named like path is running.
// Listing failures count as not running.
func IsRunning(path string) bool {
	ids, err := Running(path)

	return err == nil && len(ids) > 0
}

// sameExecutable compares process names, case-insensitively on Windows.
func sameExecutable(processName, name string) bool {
	if strings.Contains(strings.ToLower(runtime.GOOS), "windows") {
		return strings.EqualFold(processName, name)
	}

	return processName == name
}
