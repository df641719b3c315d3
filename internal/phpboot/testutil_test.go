package phpboot

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeRunner answers php -v with a fixed banner and records what it ran.
type fakeRunner struct {
	mu     sync.Mutex
	output string
	err    error
	calls  []string
}

func (f *fakeRunner) Output(_ context.Context, name string, args ...string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	return []byte(f.output), f.err
}

func (f *fakeRunner) ran() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// recordingSink collects published statuses.
type recordingSink struct {
	mu       sync.Mutex
	messages []string
}

func (s *recordingSink) Publish(status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, status)
}

func (s *recordingSink) got() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.messages...)
}

func requireErrorAs[T error](t *testing.T, err error) T {
	t.Helper()
	var target T
	require.Error(t, err)
	require.True(t, errors.As(err, &target), "expected %T, got %v", target, err)
	return target
}
