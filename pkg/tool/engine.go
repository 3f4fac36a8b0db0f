package tool

import (
	"context"
	"fmt"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog/log"
)

// State tracks an invocation through the engine. Received, validated,
// gated, and executing are transient; completed and failed are terminal.
type State string

const (
	StateReceived  State = "received"
	StateValidated State = "validated"
	StateGated     State = "gated"
	StateExecuting State = "executing"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// Request describes a single invocation.
type Request struct {
	Tool   string                 `json:"tool"`
	Args   map[string]interface{} `json:"args,omitempty"`
	Caller Caller                 `json:"caller,omitempty"`
	// Timeout overrides the engine default when positive.
	Timeout time.Duration `json:"timeout,omitempty"`
	// InvocationID is assigned by the engine when empty.
	InvocationID string `json:"invocation_id,omitempty"`
}

// Result is the terminal record of an invocation: completed with an
// output, or failed with a classified error.
type Result struct {
	InvocationID string                 `json:"invocation_id"`
	Tool         string                 `json:"tool"`
	State        State                  `json:"state"`
	Success      bool                   `json:"success"`
	Output       interface{}            `json:"output,omitempty"`
	Error        *Error                 `json:"error,omitempty"`
	StartedAt    time.Time              `json:"started_at"`
	Duration     time.Duration          `json:"duration"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// Recorder receives invocation outcomes, e.g. for Prometheus counters.
type Recorder interface {
	RecordInvocation(tool string, outcome string, duration time.Duration)
	RecordInvocationError(tool string, code ErrorCode)
}

// Engine drives invocations through validation, gating, and handler
// execution. A handler never runs unless validation and gating both
// passed for that invocation.
type Engine struct {
	registry *Registry
	gate     *Gate

	mu             sync.RWMutex
	subscribers    []EventHandler
	recorder       Recorder
	retry          RetryConfig
	defaultTimeout time.Duration
	active         map[string]struct{}
}

// NewEngine creates an engine over the given registry. A nil gate gets
// replaced with an ungated-confirmation gate, see NewGate.
func NewEngine(registry *Registry, gate *Gate) *Engine {
	if gate == nil {
		gate = NewGate(nil)
	}
	e := &Engine{
		registry: registry,
		gate:     gate,
		active:   make(map[string]struct{}),
	}

	log.Info().Msg("Tool engine initialized")

	return e
}

// SetDefaultTimeout bounds handler execution for requests that do not
// carry their own timeout. Zero disables the engine-level timeout.
func (e *Engine) SetDefaultTimeout(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.defaultTimeout = d
}

// SetRetryConfig configures InvokeWithRetry.
func (e *Engine) SetRetryConfig(cfg RetryConfig) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.retry = cfg
}

// SetRecorder wires invocation metrics recording.
func (e *Engine) SetRecorder(r Recorder) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.recorder = r
}

// Subscribe registers a handler for invocation lifecycle events.
func (e *Engine) Subscribe(h EventHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subscribers = append(e.subscribers, h)
}

// Registry returns the registry this engine dispatches against.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// ActiveInvocations returns the number of handlers currently running.
func (e *Engine) ActiveInvocations() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.active)
}

// Invoke runs one invocation to completion and returns its terminal
// result. Lookups, validation, and gating happen synchronously; the
// handler runs on its own goroutine bounded by the effective timeout.
func (e *Engine) Invoke(ctx context.Context, req Request) Result {
	startedAt := time.Now()

	if req.InvocationID == "" {
		req.InvocationID = newInvocationID()
	}

	log.Debug().
		Str("invocation_id", req.InvocationID).
		Str("tool", req.Tool).
		Str("actor", req.Caller.Actor).
		Msg("Invocation received")

	ent, err := e.registry.lookup(req.Tool)
	if err != nil {
		return e.fail(req, startedAt, StateReceived, toError(err))
	}

	args, err := validateArgs(ent, req.Args)
	if err != nil {
		return e.fail(req, startedAt, StateReceived, toError(err))
	}

	if err := e.gate.Check(ent.def, req.Caller); err != nil {
		return e.fail(req, startedAt, StateValidated, toError(err))
	}

	e.trackStart(req.InvocationID)
	defer e.trackEnd(req.InvocationID)

	e.emit(Event{
		Type:         EventInvocationStarted,
		InvocationID: req.InvocationID,
		Tool:         req.Tool,
		Actor:        req.Caller.Actor,
		Class:        req.Caller.Class,
		Timestamp:    time.Now(),
	})

	output, terr := e.run(ctx, ent.def, req, args)
	if terr != nil {
		return e.fail(req, startedAt, StateExecuting, terr)
	}
	return e.complete(req, startedAt, output)
}

// run executes the handler on its own goroutine and waits for the first
// of: output, handler error, or context expiry. Channel sends are
// buffered so an abandoned handler cannot leak its goroutine.
func (e *Engine) run(ctx context.Context, def Definition, req Request, args map[string]interface{}) (interface{}, *Error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = e.getDefaultTimeout()
	}

	runCtx := WithInvocation(ctx, Invocation{ID: req.InvocationID, Tool: req.Tool, Caller: req.Caller})
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, timeout)
		defer cancel()
	}

	outputCh := make(chan interface{}, 1)
	errCh := make(chan error, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				errCh <- fmt.Errorf("handler panic: %v", r)
			}
		}()

		output, err := def.Handler(runCtx, args)
		if err != nil {
			errCh <- err
			return
		}
		outputCh <- output
	}()

	select {
	case output := <-outputCh:
		return output, nil
	case err := <-errCh:
		return nil, NewError(ErrHandlerError, "tool %q: %v", def.ID, err).WithCause(err)
	case <-runCtx.Done():
		if runCtx.Err() == context.DeadlineExceeded {
			return nil, NewError(ErrInvocationTimeout, "tool %q timed out after %s", def.ID, timeout).
				WithCause(runCtx.Err())
		}
		return nil, NewError(ErrInvocationTimeout, "tool %q canceled: %v", def.ID, runCtx.Err()).
			WithCause(runCtx.Err())
	}
}

// fail finalizes an invocation that stopped at the given stage.
func (e *Engine) fail(req Request, startedAt time.Time, stage State, terr *Error) Result {
	duration := time.Since(startedAt)

	if rec := e.getRecorder(); rec != nil {
		rec.RecordInvocation(req.Tool, "failure", duration)
		rec.RecordInvocationError(req.Tool, terr.Code)
	}

	e.emit(Event{
		Type:         EventInvocationFailed,
		InvocationID: req.InvocationID,
		Tool:         req.Tool,
		Actor:        req.Caller.Actor,
		Class:        req.Caller.Class,
		Timestamp:    time.Now(),
		Data: map[string]interface{}{
			"error_code":  string(terr.Code),
			"stage":       string(stage),
			"duration_ms": duration.Milliseconds(),
		},
	})

	log.Warn().
		Str("invocation_id", req.InvocationID).
		Str("tool", req.Tool).
		Str("error_code", string(terr.Code)).
		Str("stage", string(stage)).
		Dur("duration", duration).
		Msg("Invocation failed")

	return Result{
		InvocationID: req.InvocationID,
		Tool:         req.Tool,
		State:        StateFailed,
		Error:        terr,
		StartedAt:    startedAt,
		Duration:     duration,
		Metadata:     map[string]interface{}{"stage": string(stage)},
	}
}

// complete finalizes a successful invocation.
func (e *Engine) complete(req Request, startedAt time.Time, output interface{}) Result {
	duration := time.Since(startedAt)

	if rec := e.getRecorder(); rec != nil {
		rec.RecordInvocation(req.Tool, "success", duration)
	}

	e.emit(Event{
		Type:         EventInvocationCompleted,
		InvocationID: req.InvocationID,
		Tool:         req.Tool,
		Actor:        req.Caller.Actor,
		Class:        req.Caller.Class,
		Timestamp:    time.Now(),
		Data: map[string]interface{}{
			"duration_ms": duration.Milliseconds(),
		},
	})

	log.Debug().
		Str("invocation_id", req.InvocationID).
		Str("tool", req.Tool).
		Dur("duration", duration).
		Msg("Invocation completed")

	return Result{
		InvocationID: req.InvocationID,
		Tool:         req.Tool,
		State:        StateCompleted,
		Success:      true,
		Output:       output,
		StartedAt:    startedAt,
		Duration:     duration,
	}
}

func (e *Engine) emit(ev Event) {
	e.mu.RLock()
	subscribers := make([]EventHandler, len(e.subscribers))
	copy(subscribers, e.subscribers)
	e.mu.RUnlock()

	for _, h := range subscribers {
		h(ev)
	}
}

func (e *Engine) trackStart(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.active[id] = struct{}{}
}

func (e *Engine) trackEnd(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.active, id)
}

func (e *Engine) getRecorder() Recorder {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.recorder
}

func (e *Engine) getDefaultTimeout() time.Duration {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.defaultTimeout
}

func (e *Engine) getRetryConfig() RetryConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.retry
}

// newInvocationID returns a short unique ID for one invocation.
func newInvocationID() string {
	id, err := gonanoid.New()
	if err != nil {
		return fmt.Sprintf("inv-%d", time.Now().UnixNano())
	}
	return id
}
