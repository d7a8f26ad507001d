// Package testutil holds helpers shared by package tests.
package testutil

import (
	"net"
	"sync"
	"testing"
)

var (
	portMu    sync.Mutex
	usedPorts = map[int]struct{}{}
)

// GetRandomPort returns a free TCP port that no other caller in this test binary has received.
func GetRandomPort(t *testing.T) int {
	t.Helper()
	portMu.Lock()
	defer portMu.Unlock()

	for {
		l, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("failed to get random port: %v", err)
		}
		p := l.Addr().(*net.TCPAddr).Port
		if err := l.Close(); err != nil {
			t.Fatalf("failed to close listener: %v", err)
		}
		if _, ok := usedPorts[p]; ok {
			continue
		}
		usedPorts[p] = struct{}{}
		return p
	}
}
