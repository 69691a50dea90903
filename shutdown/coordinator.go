package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/vinayprograms/toolhost/logging"
)

// Coordinator runs registered handlers phase by phase during teardown.
type Coordinator struct {
	config Config
	log    *logging.Logger

	mu       sync.Mutex
	handlers []registration

	once       sync.Once
	err        error
	done       chan struct{}
	result     *Result
	signalChan chan os.Signal
}

// NewCoordinator creates a coordinator. A nil logger gets the package
// default.
func NewCoordinator(config Config, log *logging.Logger) *Coordinator {
	if config.GraceTimeout == 0 {
		config.GraceTimeout = DefaultConfig().GraceTimeout
	}
	if log == nil {
		log = logging.New()
	}
	return &Coordinator{
		config:     config,
		log:        log.WithComponent("shutdown"),
		done:       make(chan struct{}),
		signalChan: make(chan os.Signal, 1),
	}
}

// Register adds a handler in the default phase.
func (c *Coordinator) Register(name string, handler Handler) {
	c.RegisterPhase(name, handler, PhaseDefault)
}

// RegisterPhase adds a handler in a specific phase. Handlers in the
// same phase run concurrently; phases run in ascending order.
func (c *Coordinator) RegisterPhase(name string, handler Handler, phase int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, registration{name: name, handler: handler, phase: phase})
}

// RegisterFunc registers a plain function in the default phase.
func (c *Coordinator) RegisterFunc(name string, fn func(ctx context.Context) error) {
	c.Register(name, Func(fn))
}

// RegisterFuncPhase registers a plain function in a specific phase.
func (c *Coordinator) RegisterFuncPhase(name string, fn func(ctx context.Context) error, phase int) {
	c.RegisterPhase(name, Func(fn), phase)
}

// Shutdown runs every registered handler once. Later calls return the
// first run's error, or an invalid-operation error while the first run
// is still in flight.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.once.Do(func() {
		c.err = c.run(ctx)
		close(c.done)
	})

	select {
	case <-c.done:
		return c.err
	default:
		return errAlreadyShutdown()
	}
}

// ShutdownWithTimeout runs Shutdown under a deadline. A zero timeout
// uses the configured grace period.
func (c *Coordinator) ShutdownWithTimeout(timeout time.Duration) error {
	if timeout == 0 {
		timeout = c.config.GraceTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return c.Shutdown(ctx)
}

// HandleSignals triggers teardown on SIGTERM or SIGINT.
func (c *Coordinator) HandleSignals() {
	signal.Notify(c.signalChan, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		sig := <-c.signalChan
		c.log.Info("signal_received", map[string]interface{}{"signal": sig.String()})
		_ = c.ShutdownWithTimeout(0)
	}()
}

// Trigger injects a synthetic SIGTERM, for callers that want the signal
// path without a real signal.
func (c *Coordinator) Trigger() {
	select {
	case c.signalChan <- syscall.SIGTERM:
	default:
	}
}

// Done is closed once teardown has completed.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

// Err returns the teardown error. Nil until Done is closed.
func (c *Coordinator) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

// Result returns per-handler outcomes. Nil until Done is closed.
func (c *Coordinator) Result() *Result {
	select {
	case <-c.done:
		return c.result
	default:
		return nil
	}
}

func (c *Coordinator) run(ctx context.Context) error {
	start := time.Now()

	c.mu.Lock()
	handlers := make([]registration, len(c.handlers))
	copy(handlers, c.handlers)
	c.mu.Unlock()

	sort.SliceStable(handlers, func(i, j int) bool {
		return handlers[i].phase < handlers[j].phase
	})

	result := &Result{Results: make([]HandlerResult, 0, len(handlers))}
	finish := func(err error) error {
		result.Err = err
		result.TotalDuration = time.Since(start)
		c.result = result
		return err
	}

	var failed bool
	for _, group := range groupByPhase(handlers) {
		select {
		case <-ctx.Done():
			c.log.Warn("shutdown_grace_exceeded", map[string]interface{}{
				"remaining": len(handlers) - len(result.Results),
			})
			return finish(errGraceExceeded())
		default:
		}

		for _, hr := range c.runPhase(ctx, group) {
			result.Results = append(result.Results, hr)
			if hr.Err != nil {
				failed = true
				if c.config.StopOnError {
					return finish(errHandlersFailed())
				}
			}
		}
	}

	if failed {
		return finish(errHandlersFailed())
	}
	return finish(nil)
}

// runPhase runs one phase's handlers concurrently and waits for all.
func (c *Coordinator) runPhase(ctx context.Context, group []registration) []HandlerResult {
	results := make([]HandlerResult, len(group))
	var wg sync.WaitGroup

	for i, reg := range group {
		wg.Add(1)
		go func(idx int, r registration) {
			defer wg.Done()

			start := time.Now()
			err := r.handler.OnShutdown(ctx)
			results[idx] = HandlerResult{
				Name:     r.name,
				Phase:    r.phase,
				Duration: time.Since(start),
				Err:      err,
			}

			fields := map[string]interface{}{
				"handler":  r.name,
				"phase":    r.phase,
				"duration": time.Since(start).String(),
			}
			if err != nil {
				fields["error"] = err.Error()
				c.log.Warn("shutdown_handler_failed", fields)
			} else {
				c.log.Debug("shutdown_handler_done", fields)
			}
		}(i, reg)
	}

	wg.Wait()
	return results
}

func groupByPhase(handlers []registration) [][]registration {
	if len(handlers) == 0 {
		return nil
	}

	var groups [][]registration
	var current []registration
	phase := handlers[0].phase

	for _, h := range handlers {
		if h.phase != phase {
			groups = append(groups, current)
			current = nil
			phase = h.phase
		}
		current = append(current, h)
	}
	return append(groups, current)
}
