package ipc

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/oneclick/internal/infrastructure/logging"
	"github.com/GriffinCanCode/oneclick/internal/infrastructure/monitoring"
)

var (
	ErrSealed           = errors.New("dispatcher is sealed")
	ErrDuplicateChannel = errors.New("channel already has a handler")
	ErrEmptyChannel     = errors.New("channel name cannot be empty")
)

// HandlerFunc serves one request. It returns the response payload.
type HandlerFunc func(ctx context.Context) string

// Dispatcher maps channel names to handlers.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
	sealed   bool
	logger   *logging.Logger
	metrics  *monitoring.Metrics
}

// NewDispatcher creates an empty, unsealed dispatcher.
func NewDispatcher(logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Dispatcher{
		handlers: make(map[string]HandlerFunc),
		logger:   logger.Named("ipc"),
	}
}

// WithMetrics attaches a metrics collector.
func (d *Dispatcher) WithMetrics(m *monitoring.Metrics) *Dispatcher {
	d.metrics = m
	return d
}

// Handle binds fn to channel. It fails once the dispatcher is sealed.
func (d *Dispatcher) Handle(channel string, fn HandlerFunc) error {
	if channel == "" {
		return ErrEmptyChannel
	}
	if fn == nil {
		return fmt.Errorf("handler for %q is nil", channel)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.sealed {
		return fmt.Errorf("register %q: %w", channel, ErrSealed)
	}
	if _, ok := d.handlers[channel]; ok {
		return fmt.Errorf("register %q: %w", channel, ErrDuplicateChannel)
	}
	d.handlers[channel] = fn
	return nil
}

// Seal stops further registration.
func (d *Dispatcher) Seal() {
	d.mu.Lock()
	d.sealed = true
	d.mu.Unlock()
}

// Sealed reports whether Seal has been called.
func (d *Dispatcher) Sealed() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.sealed
}

// Channels returns the registered channel names, sorted.
func (d *Dispatcher) Channels() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]string, 0, len(d.handlers))
	for ch := range d.handlers {
		out = append(out, ch)
	}
	sort.Strings(out)
	return out
}

// Call invokes channel and returns its payload.
func (d *Dispatcher) Call(ctx context.Context, channel string) string {
	return d.Invoke(ctx, Request{Channel: channel}).Payload
}

// Invoke serves req. It always returns a Response and never panics.
func (d *Dispatcher) Invoke(ctx context.Context, req Request) (resp Response) {
	resp = Response{ID: req.ID, Channel: req.Channel}
	d.record("in", req.Channel)
	defer func() {
		if p := recover(); p != nil {
			d.logger.Error("Handler panicked",
				zap.String("channel", req.Channel),
				zap.String("request", req.ID),
				zap.Any("panic", p),
			)
			resp.Payload = ErrorReport("channel %q failed: %v", req.Channel, p)
		}
		d.record("out", req.Channel)
	}()

	d.mu.RLock()
	fn, ok := d.handlers[req.Channel]
	d.mu.RUnlock()

	if !ok {
		d.logger.Warn("Request for unregistered channel",
			zap.String("channel", req.Channel),
			zap.String("request", req.ID),
		)
		resp.Payload = ErrorReport("no handler registered for channel %q", req.Channel)
		return resp
	}

	resp.Payload = fn(ctx)
	return resp
}

func (d *Dispatcher) record(direction, channel string) {
	if d.metrics == nil {
		return
	}
	if !d.knows(channel) {
		channel = "unknown"
	}
	d.metrics.RecordIPCMessage(direction, channel)
}

func (d *Dispatcher) knows(channel string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.handlers[channel]
	return ok
}
