package ports

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeBackend scripts listener state per port and records kills.
type fakeBackend struct {
	listeners map[int][]Listener
	lookupErr map[int]error
	killErr   map[int]error
	killed    []int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		listeners: map[int][]Listener{},
		lookupErr: map[int]error{},
		killErr:   map[int]error{},
	}
}

func (f *fakeBackend) ListListeners(_ context.Context, port int) ([]Listener, error) {
	if err := f.lookupErr[port]; err != nil {
		return nil, err
	}
	return f.listeners[port], nil
}

func (f *fakeBackend) Terminate(_ context.Context, pid int) error {
	if err := f.killErr[pid]; err != nil {
		return err
	}
	f.killed = append(f.killed, pid)
	// Reflect the kill in subsequent lookups.
	for port, ls := range f.listeners {
		var remaining []Listener
		for _, l := range ls {
			if l.PID != pid {
				remaining = append(remaining, l)
			}
		}
		f.listeners[port] = remaining
	}
	return nil
}

func TestReclaim_KillsAllListeners(t *testing.T) {
	b := newFakeBackend()
	b.listeners[3000] = []Listener{{PID: 111, Command: "node"}, {PID: 222, Command: "bun"}}
	b.listeners[8899] = []Listener{{PID: 333, Command: "solana-test-validator"}}

	r := NewReclaimerWithBackend(b, zap.NewNop())
	require.NoError(t, r.Reclaim(context.Background(), []int{3000, 8899}))
	assert.Equal(t, []int{111, 222, 333}, b.killed)
}

func TestReclaim_FreePortIsNoOpSuccess(t *testing.T) {
	b := newFakeBackend()
	r := NewReclaimerWithBackend(b, zap.NewNop())

	require.NoError(t, r.Reclaim(context.Background(), []int{3000}))
	assert.Empty(t, b.killed)
}

func TestReclaim_Idempotent(t *testing.T) {
	b := newFakeBackend()
	b.listeners[3000] = []Listener{{PID: 111}}
	r := NewReclaimerWithBackend(b, zap.NewNop())

	require.NoError(t, r.Reclaim(context.Background(), []int{3000}))
	assert.Equal(t, []int{111}, b.killed)

	// Second call sees a free port: success, no further kills.
	require.NoError(t, r.Reclaim(context.Background(), []int{3000}))
	assert.Equal(t, []int{111}, b.killed)
}

func TestReclaim_ContinuesPastFailures(t *testing.T) {
	b := newFakeBackend()
	b.lookupErr[3000] = errors.New("lsof missing")
	b.listeners[8899] = []Listener{{PID: 333}}

	r := NewReclaimerWithBackend(b, zap.NewNop())
	err := r.Reclaim(context.Background(), []int{3000, 8899})
	require.Error(t, err)
	// The failing port did not stop the healthy one.
	assert.Equal(t, []int{333}, b.killed)
}

func TestReclaim_KillFailureReported(t *testing.T) {
	b := newFakeBackend()
	b.listeners[3000] = []Listener{{PID: 111}, {PID: 222}}
	b.killErr[111] = errors.New("operation not permitted")

	r := NewReclaimerWithBackend(b, zap.NewNop())
	err := r.Reclaim(context.Background(), []int{3000})
	require.Error(t, err)
	// The other listener was still terminated.
	assert.Equal(t, []int{222}, b.killed)
}
