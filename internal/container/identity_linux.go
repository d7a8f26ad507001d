package container

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// processStart identifies a process instance by its start time in clock ticks since boot,
// field 22 of /proc/<pid>/stat.
func processStart(pid int) (string, error) {
	data, err := os.ReadFile("/proc/" + strconv.Itoa(pid) + "/stat")
	if err != nil {
		return "", err
	}
	// the command name may contain spaces and parentheses; fields resume after the last ')'
	stat := string(data)
	end := strings.LastIndexByte(stat, ')')
	if end < 0 {
		return "", fmt.Errorf("malformed stat for pid %d", pid)
	}
	fields := strings.Fields(stat[end+1:])
	if len(fields) < 20 {
		return "", fmt.Errorf("malformed stat for pid %d", pid)
	}
	return fields[19], nil
}
