package testutil

import (
	"bytes"
	"strings"
	"sync"
)

// ThreadSafeBuffer is a bytes.Buffer safe for a log handler and a test to share.
type ThreadSafeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *ThreadSafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *ThreadSafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Contains reports whether the accumulated output contains s.
func (b *ThreadSafeBuffer) Contains(s string) bool {
	return strings.Contains(b.String(), s)
}

func (b *ThreadSafeBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
}
