package autotick

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loykin/acqsim/internal/yield"
)

type fakeTicker struct {
	mu    sync.Mutex
	calls map[string]int
	fail  string
}

func (f *fakeTicker) Tick(_ context.Context, runID string) (yield.Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[runID]++
	if runID == f.fail {
		return yield.Summary{}, errors.New("boom")
	}
	return yield.Summary{ReadCount: int64(f.calls[runID])}, nil
}

func (f *fakeTicker) count(run string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[run]
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"every", Config{Schedule: "@every 2s", Runs: []string{"a"}}, false},
		{"cron with seconds", Config{Schedule: "*/5 * * * * *", Runs: []string{"a"}}, false},
		{"standard cron", Config{Schedule: "0 * * * *", Runs: []string{"a", "b"}}, false},
		{"empty schedule", Config{Runs: []string{"a"}}, true},
		{"bad schedule", Config{Schedule: "every two seconds", Runs: []string{"a"}}, true},
		{"no runs", Config{Schedule: "@every 1s"}, true},
		{"blank run", Config{Schedule: "@every 1s", Runs: []string{" "}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewRejectsNilTicker(t *testing.T) {
	_, err := New(nil, Config{Schedule: "@every 1s", Runs: []string{"a"}}, nil)
	assert.Error(t, err)
}

func TestFireTicksEveryRunAndSurvivesErrors(t *testing.T) {
	ft := &fakeTicker{fail: "bad"}
	s, err := New(ft, Config{Schedule: "@every 1s", Runs: []string{"a", "bad", "b"}}, nil)
	require.NoError(t, err)

	s.fire(context.Background())
	s.fire(context.Background())

	assert.Equal(t, 2, ft.count("a"))
	assert.Equal(t, 2, ft.count("bad"))
	assert.Equal(t, 2, ft.count("b"))
	assert.Equal(t, uint64(2), s.Fired())
}

func TestFireStopsOnCanceledContext(t *testing.T) {
	ft := &fakeTicker{}
	s, err := New(ft, Config{Schedule: "@every 1s", Runs: []string{"a", "b"}}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.fire(ctx)
	assert.Equal(t, 0, ft.count("a"))
}

func TestStartStopLifecycle(t *testing.T) {
	ft := &fakeTicker{}
	s, err := New(ft, Config{Schedule: "@every 1s", Runs: []string{"live"}}, nil)
	require.NoError(t, err)

	assert.True(t, s.Next().IsZero())
	require.NoError(t, s.Start())
	assert.Error(t, s.Start(), "double start")
	assert.False(t, s.Next().IsZero())

	require.Eventually(t, func() bool { return ft.count("live") >= 1 }, 3*time.Second, 50*time.Millisecond)

	s.Stop()
	s.Stop()
	after := ft.count("live")
	time.Sleep(1200 * time.Millisecond)
	assert.Equal(t, after, ft.count("live"), "no ticks after Stop")
	assert.True(t, s.Next().IsZero())
}
