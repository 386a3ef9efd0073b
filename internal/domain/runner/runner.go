package runner

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/oneclick/internal/domain/action"
	"github.com/GriffinCanCode/oneclick/internal/infrastructure/logging"
	"github.com/GriffinCanCode/oneclick/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/oneclick/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/oneclick/internal/shared/id"
)

// Runner executes action descriptors.
type Runner struct {
	exec    Executor
	environ func() []string
	timeout time.Duration
	logger  *logging.Logger
	metrics *monitoring.Metrics
}

// Option configures a Runner.
type Option func(*Runner)

// WithExecutor replaces the process executor.
func WithExecutor(e Executor) Option {
	return func(r *Runner) { r.exec = e }
}

// WithEnviron replaces the source of the inherited environment.
func WithEnviron(fn func() []string) Option {
	return func(r *Runner) { r.environ = fn }
}

// WithTimeout bounds each child process. Zero means no bound.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) { r.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(r *Runner) { r.logger = l.Named("runner") }
}

// New creates a runner that uses the OS executor and os.Environ by default.
func New(opts ...Option) *Runner {
	r := &Runner{
		exec:    OSExecutor{},
		environ: os.Environ,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WithMetrics attaches a metrics collector.
func (r *Runner) WithMetrics(m *monitoring.Metrics) *Runner {
	r.metrics = m
	return r
}

// Run spawns one child process for d and waits for it.
func (r *Runner) Run(ctx context.Context, d action.Descriptor) (res Result) {
	invocation := id.NewInvocationID()
	log := r.logger.With(
		zap.String("invocation", invocation.String()),
		zap.String("action", d.Name),
	)
	if trace := tracing.GetTraceID(ctx); trace != "" {
		log = log.With(zap.String("trace_id", string(trace)))
	}

	var timer *monitoring.Timer
	if r.metrics != nil {
		timer = monitoring.NewTimer(r.metrics, d.Name)
	}
	start := time.Now()

	defer func() {
		if p := recover(); p != nil {
			log.Error("Executor panicked", zap.Any("panic", p))
			res = Failure(fmt.Sprintf("%s: internal error: %v", d.Name, p))
		}
		if timer != nil {
			timer.Stop(res.Kind.String())
		}
		log.Info("Invocation finished",
			zap.Stringer("outcome", res.Kind),
			zap.Duration("duration", time.Since(start)),
		)
	}()

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	cmd := Command{
		Path: d.Executable,
		Args: append([]string(nil), d.Args...),
		Dir:  d.Dir,
		Env:  Environment(r.environ(), d.Env, d.DefaultEnv),
	}
	log.Info("Starting invocation",
		zap.String("executable", cmd.Path),
		zap.Strings("args", cmd.Args),
		zap.String("dir", cmd.Dir),
	)

	out := r.exec.Execute(ctx, cmd)
	return resultFrom(out)
}

// resultFrom maps an Outcome onto the tagged Result.
func resultFrom(out Outcome) Result {
	if out.Err == nil {
		return Success(out.Stdout)
	}
	if out.Stderr != "" {
		return Failure(out.Stderr)
	}
	return Failure(out.Err.Error())
}
