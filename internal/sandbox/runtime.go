package sandbox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"
)

var (
	ErrTimeout   = errors.New("execution timeout exceeded")
	ErrUnsettled = errors.New("promise never settled")
	ErrClosed    = errors.New("runtime closed")
)

// Runtime wraps a goja VM with the host globals removed. Scripts can only
// reach what the host defines with DefineFrozen.
type Runtime struct {
	vm     *goja.Runtime
	config Config
	mu     sync.Mutex

	console   []LogEntry
	consoleMu sync.Mutex

	// jobs carries async completions back to the VM goroutine. abandon is
	// closed when the Execute that started them stops listening.
	jobs    chan func()
	abandon chan struct{}
	pending int
	execCtx context.Context
	flush   *goja.Program
}

// New creates a new sandboxed runtime.
func New(config Config) (*Runtime, error) {
	r := &Runtime{
		vm:      goja.New(),
		config:  config,
		jobs:    make(chan func(), 16),
		abandon: make(chan struct{}),
		execCtx: context.Background(),
		flush:   goja.MustCompile("flush", "", false),
	}

	if config.MaxCallStackSize > 0 {
		r.vm.SetMaxCallStackSize(config.MaxCallStackSize)
	}
	if err := r.setupGlobals(); err != nil {
		return nil, err
	}
	return r, nil
}

// DefineFrozen installs a frozen, non-writable global object whose only
// members are the given promise-returning functions.
func (r *Runtime) DefineFrozen(name string, fns map[string]AsyncFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.vm == nil {
		return ErrClosed
	}

	obj := r.vm.NewObject()
	for method, fn := range fns {
		fn := fn
		value := r.vm.ToValue(func(goja.FunctionCall) goja.Value {
			return r.Async(fn)
		})
		if err := obj.DefineDataProperty(method, value, goja.FLAG_FALSE, goja.FLAG_FALSE, goja.FLAG_TRUE); err != nil {
			return fmt.Errorf("define %s.%s: %w", name, method, err)
		}
	}

	freeze, ok := goja.AssertFunction(r.vm.Get("Object").ToObject(r.vm).Get("freeze"))
	if !ok {
		return fmt.Errorf("Object.freeze unavailable")
	}
	if _, err := freeze(goja.Undefined(), obj); err != nil {
		return fmt.Errorf("freeze %s: %w", name, err)
	}

	return r.vm.GlobalObject().DefineDataProperty(name, obj, goja.FLAG_FALSE, goja.FLAG_FALSE, goja.FLAG_TRUE)
}

// Async starts fn on its own goroutine and returns a pending promise that
// Execute settles on the VM goroutine. Call it only from host functions
// invoked by the running script.
func (r *Runtime) Async(fn AsyncFunc) goja.Value {
	promise, resolve, _ := r.vm.NewPromise()
	ctx, jobs, abandon := r.execCtx, r.jobs, r.abandon
	r.pending++

	go func() {
		v := fn(ctx)
		select {
		case jobs <- func() { resolve(v) }:
		case <-abandon:
		}
	}()

	return r.vm.ToValue(promise)
}

// Execute runs script, then services async host calls until none remain.
// If the script evaluates to a promise its settled value is returned.
func (r *Runtime) Execute(ctx context.Context, script string) (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.vm == nil {
		return nil, ErrClosed
	}

	start := time.Now()
	result := &Result{}

	if r.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.Timeout)
		defer cancel()
	}
	r.execCtx = ctx
	r.jobs = make(chan func(), 16)
	r.abandon = make(chan struct{})
	r.pending = 0
	defer func() {
		close(r.abandon)
		r.execCtx = context.Background()
	}()

	done := make(chan struct{})
	watched := make(chan struct{})
	go func() {
		defer close(watched)
		select {
		case <-ctx.Done():
			r.vm.Interrupt(ctx.Err())
		case <-done:
		}
	}()
	defer func() {
		close(done)
		<-watched
		r.vm.ClearInterrupt()
	}()

	r.consoleMu.Lock()
	r.console = []LogEntry{}
	r.consoleMu.Unlock()

	val, err := r.vm.RunString(script)
	if err == nil {
		err = r.drain(ctx)
	}
	result.Duration = time.Since(start)
	result.Console = r.consoleSnapshot()

	if err != nil {
		return result, r.classify(ctx, err)
	}

	value, err := r.settle(val)
	if err != nil {
		return result, err
	}
	result.Value = value
	return result, nil
}

// drain runs async completions on this goroutine until none are pending.
func (r *Runtime) drain(ctx context.Context) error {
	for r.pending > 0 {
		select {
		case job := <-r.jobs:
			r.pending--
			job()
			// Run the promise reactions the resolution queued.
			if _, err := r.vm.RunProgram(r.flush); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (r *Runtime) settle(val goja.Value) (interface{}, error) {
	if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
		return nil, nil
	}
	p, ok := val.Export().(*goja.Promise)
	if !ok {
		return val.Export(), nil
	}
	switch p.State() {
	case goja.PromiseStateFulfilled:
		if res := p.Result(); res != nil && !goja.IsUndefined(res) {
			return res.Export(), nil
		}
		return nil, nil
	case goja.PromiseStateRejected:
		return nil, fmt.Errorf("promise rejected: %s", p.Result().String())
	default:
		return nil, ErrUnsettled
	}
}

func (r *Runtime) classify(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		return fmt.Errorf("interrupted: %w", ctx.Err())
	}
	return err
}

// setupGlobals removes host escape hatches.
func (r *Runtime) setupGlobals() error {
	for _, name := range []string{"require", "process", "module", "exports", "fetch", "XMLHttpRequest", "WebSocket"} {
		if err := r.vm.Set(name, goja.Undefined()); err != nil {
			return err
		}
	}

	noop := func(goja.FunctionCall) goja.Value { return goja.Undefined() }
	r.vm.Set("setTimeout", noop)
	r.vm.Set("setInterval", noop)

	if r.config.EnableConsole {
		console := r.vm.NewObject()
		for _, level := range []string{"log", "warn", "error", "info"} {
			console.Set(level, r.makeConsoleFunc(level))
		}
		r.vm.Set("console", console)
	}
	return nil
}

func (r *Runtime) makeConsoleFunc(level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}

		r.consoleMu.Lock()
		r.console = append(r.console, LogEntry{
			Level:   level,
			Message: strings.Join(parts, " "),
			Time:    time.Now(),
		})
		r.consoleMu.Unlock()

		return goja.Undefined()
	}
}

func (r *Runtime) consoleSnapshot() []LogEntry {
	r.consoleMu.Lock()
	defer r.consoleMu.Unlock()
	return append([]LogEntry{}, r.console...)
}

// Close releases the VM. Async work still running is abandoned.
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.vm = nil
	r.console = nil
	return nil
}
