//go:build !windows && !linux

package container

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// processStart identifies a process instance by the start time ps reports for it.
func processStart(pid int) (string, error) {
	out, err := exec.Command("ps", "-o", "lstart=", "-p", strconv.Itoa(pid)).Output()
	if err != nil {
		return "", err
	}
	start := strings.Join(strings.Fields(string(out)), " ")
	if start == "" {
		return "", fmt.Errorf("no start time for pid %d", pid)
	}
	return start, nil
}
