//go:build !windows

package main

import (
	"context"
	"io"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"testing"
	"time"

	"github.com/atlanticdynamic/cargolynx/internal/session"
	"github.com/atlanticdynamic/cargolynx/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHelperProcess is the fake runtime started through the CLI. It is not a test.
func TestHelperProcess(t *testing.T) {
	if os.Getenv(helperEnv) != "1" {
		return
	}
	port := os.Args[len(os.Args)-1]

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGTERM, os.Interrupt)
	ln, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", port))
	if err != nil {
		os.Exit(5)
	}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			_ = conn.Close()
		}
	}()
	<-sigs
	os.Exit(0)
}

func listening(port int) bool {
	conn, err := net.DialTimeout("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)), 100*time.Millisecond)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

func TestStartStatusStop(t *testing.T) {
	p := newProject(t)
	t.Cleanup(func() { _, _ = runApp(t, "-c", p.configPath, "stop") })

	out, err := runApp(t, "-c", p.configPath, "start")
	require.NoError(t, err)
	assert.Contains(t, out, "fake is running on port "+strconv.Itoa(p.port))
	assert.True(t, listening(p.port))

	out, err = runApp(t, "-c", p.configPath, "start")
	require.NoError(t, err, "starting a running container is a no-op")
	assert.Contains(t, out, "fake is running")

	out, err = runApp(t, "-c", p.configPath, "status", "--verbose")
	require.NoError(t, err)
	assert.Contains(t, out, "fake")
	assert.Contains(t, out, "Running")
	assert.Contains(t, out, "Provision log: fake")
	assert.Contains(t, out, "Container provisioned")

	out, err = runApp(t, "-c", p.configPath, "stop")
	require.NoError(t, err)
	assert.Contains(t, out, "fake is Stopped")
	assert.Eventually(t, func() bool { return !listening(p.port) }, 5*time.Second, 20*time.Millisecond)

	sess, err := session.Open(p.target("session"))
	require.NoError(t, err)
	rec, ok := sess.Registry().Restored("fake")
	require.True(t, ok)
	assert.Equal(t, "Stopped", rec.State)
	assert.Zero(t, rec.PID)
}

func TestSessionEnd_StopsContainer(t *testing.T) {
	p := newProject(t)
	t.Cleanup(func() { _, _ = runApp(t, "-c", p.configPath, "stop") })

	_, err := runApp(t, "-c", p.configPath, "start")
	require.NoError(t, err)
	require.True(t, listening(p.port))

	_, err = runApp(t, "-c", p.configPath, "session", "end")
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return !listening(p.port) }, 5*time.Second, 20*time.Millisecond)
	assert.NoDirExists(t, p.target("session", "containers"))

	out, err := runApp(t, "-c", p.configPath, "start")
	require.NoError(t, err, "a new session provisions again")
	assert.Contains(t, out, "fake is running on port "+strconv.Itoa(p.port))
}

func TestServe(t *testing.T) {
	p := newProject(t)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	var errOut testutil.ThreadSafeBuffer
	errCh := make(chan error, 1)
	go func() {
		app := newApp()
		app.Writer = io.Discard
		app.ErrWriter = &errOut
		errCh <- app.Run(ctx, []string{"cargolynx", "-c", p.configPath, "serve"})
	}()

	assert.Eventually(t, func() bool { return listening(p.port) }, 10*time.Second, 20*time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
	assert.True(t, errOut.Contains("Serve shutdown complete"))
	assert.Eventually(t, func() bool { return !listening(p.port) }, 5*time.Second, 20*time.Millisecond)
}
