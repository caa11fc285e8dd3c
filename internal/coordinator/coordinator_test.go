package coordinator

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/dreamware/clusterscope/internal/info"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeNode answers info commands from a fixed table.
type fakeNode struct {
	id      string
	answers map[string]string
	delay   time.Duration
	calls   atomic.Int32

	mu  sync.Mutex
	err error
}

func newFakeNode(id string, answers map[string]string) *fakeNode {
	return &fakeNode{id: id, answers: answers}
}

func (f *fakeNode) ID() string { return f.id }

func (f *fakeNode) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *fakeNode) Info(ctx context.Context, cmd string) (string, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %v", info.ErrTimeout, ctx.Err())
		}
	}
	f.mu.Lock()
	err := f.err
	f.mu.Unlock()
	if err != nil {
		return "", err
	}
	if a, ok := f.answers[cmd]; ok {
		return a, nil
	}
	return "", fmt.Errorf("%w: unknown command %q", info.ErrProtocol, cmd)
}

func clients(nodes ...*fakeNode) []NodeClient {
	out := make([]NodeClient, len(nodes))
	for i, n := range nodes {
		out[i] = n
	}
	return out
}
