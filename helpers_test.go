package gogine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/GoCodeAlone/gogine/config"
)

// Static errors for tests
var (
	errStartupRefused  = errors.New("startup refused")
	errShutdownRefused = errors.New("shutdown refused")
	errListenerBroken  = errors.New("interrupt listener broken")
)

type logEntry struct {
	level string
	msg   string
	args  []any
}

// testLogger records every entry for later inspection
type testLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *testLogger) record(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg, args: args})
}

func (l *testLogger) Info(msg string, args ...any)  { l.record("INFO", msg, args) }
func (l *testLogger) Error(msg string, args ...any) { l.record("ERROR", msg, args) }
func (l *testLogger) Warn(msg string, args ...any)  { l.record("WARN", msg, args) }
func (l *testLogger) Debug(msg string, args ...any) { l.record("DEBUG", msg, args) }

func (l *testLogger) has(level, msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.level == level && e.msg == msg {
			return true
		}
	}
	return false
}

type call struct {
	name string
	op   string
}

// callLog records lifecycle calls across subsystems in call order
type callLog struct {
	mu    sync.Mutex
	calls []call
}

func (c *callLog) add(name, op string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, call{name: name, op: op})
}

// all renders every call as "name.op"
func (c *callLog) all() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.calls))
	for _, cl := range c.calls {
		out = append(out, cl.name+"."+cl.op)
	}
	return out
}

// op returns the names of subsystems that received op, in call order
func (c *callLog) op(op string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, cl := range c.calls {
		if cl.op == op {
			out = append(out, cl.name)
		}
	}
	return out
}

type recordingSubsystem struct {
	name        string
	log         *callLog
	startupErr  error
	shutdownErr error
	panicOn     string

	mu           sync.Mutex
	stopDeadline time.Time
	hadDeadline  bool
}

func newRecording(name string, log *callLog) *recordingSubsystem {
	return &recordingSubsystem{name: name, log: log}
}

func (s *recordingSubsystem) Startup(ctx context.Context) error {
	s.log.add(s.name, OpStartup)
	if s.panicOn == OpStartup {
		panic("startup exploded")
	}
	return s.startupErr
}

func (s *recordingSubsystem) Shutdown(ctx context.Context) error {
	s.log.add(s.name, OpShutdown)
	s.mu.Lock()
	s.stopDeadline, s.hadDeadline = ctx.Deadline()
	s.mu.Unlock()
	if s.panicOn == OpShutdown {
		panic("shutdown exploded")
	}
	return s.shutdownErr
}

// blockingInterrupt never fires; it returns once ctx is done
func blockingInterrupt(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func newTestState(t *testing.T, opts ...Option) (*State, *testLogger) {
	t.Helper()
	logger := &testLogger{}
	state, err := Initialize(config.Default(), append([]Option{WithLogger(logger)}, opts...)...)
	require.NoError(t, err)
	return state, logger
}

func runAsync(ctx context.Context, r *Runner) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- r.Run(ctx)
	}()
	return done
}

// triggerWhenWaiting fires the shutdown signal once the runner subscribed
func triggerWhenWaiting(t *testing.T, state *State) {
	t.Helper()
	require.Eventually(t, func() bool {
		return state.Shutdown().SubscriberCount() > 0
	}, 2*time.Second, time.Millisecond, "runner never started waiting")
	state.Shutdown().Trigger()
}

func waitResult(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("runner did not return")
		return nil
	}
}
