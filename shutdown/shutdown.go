package shutdown

import (
	"context"
	"time"

	"github.com/vinayprograms/toolhost/errors"
)

// Phases used by the tool client. Lower runs first.
const (
	// PhaseCaches flushes derived state such as discovered tool lists.
	PhaseCaches = 10

	// PhaseConnections stops running servers and closes transports.
	PhaseConnections = 20

	// PhaseDefault is assigned when no phase is given.
	PhaseDefault = 100
)

// Handler is implemented by components that need orderly teardown. The
// context is cancelled when the grace period runs out, so in-progress
// work should be abandoned at that point.
type Handler interface {
	OnShutdown(ctx context.Context) error
}

// Func adapts a plain function to Handler.
type Func func(ctx context.Context) error

// OnShutdown implements Handler.
func (f Func) OnShutdown(ctx context.Context) error {
	return f(ctx)
}

// HandlerResult records one handler's teardown outcome.
type HandlerResult struct {
	Name     string
	Phase    int
	Duration time.Duration
	Err      error
}

// Result records the complete teardown outcome.
type Result struct {
	TotalDuration time.Duration
	Results       []HandlerResult
	Err           error
}

// FailedHandlers returns the names of handlers that returned errors.
func (r *Result) FailedHandlers() []string {
	var failed []string
	for _, hr := range r.Results {
		if hr.Err != nil {
			failed = append(failed, hr.Name)
		}
	}
	return failed
}

// Config configures a Coordinator.
type Config struct {
	// GraceTimeout bounds the whole teardown when triggered by a signal
	// or by ShutdownWithTimeout(0). Default 30s.
	GraceTimeout time.Duration

	// StopOnError aborts remaining phases after the first handler
	// failure. By default later phases still run.
	StopOnError bool
}

// DefaultConfig returns the defaults used by NewCoordinator.
func DefaultConfig() Config {
	return Config{
		GraceTimeout: 30 * time.Second,
	}
}

func errAlreadyShutdown() error {
	return errors.InvalidOperation("shutdown already initiated")
}

func errGraceExceeded() error {
	return errors.New(errors.ErrCodeTimeout, "shutdown grace period exceeded")
}

func errHandlersFailed() error {
	return errors.Internal("one or more shutdown handlers failed")
}

type registration struct {
	name    string
	handler Handler
	phase   int
}
