package bridge

import (
	"context"
	"fmt"

	"github.com/GriffinCanCode/oneclick/internal/domain/action"
	"github.com/GriffinCanCode/oneclick/internal/domain/runner"
	"github.com/GriffinCanCode/oneclick/internal/ipc"
)

// GlobalName is the name the surface is published under.
const GlobalName = "shellAPI"

// Binding ties an exposed method to its boundary channel.
type Binding struct {
	Method  string `json:"method"`
	Channel string `json:"channel"`
}

// Func is one exposed method. The channel always yields exactly one string.
type Func func(ctx context.Context) <-chan string

// Invoker sends a request over the boundary. ipc.Dispatcher implements it.
type Invoker interface {
	Call(ctx context.Context, channel string) string
}

// Registrar accepts channel handlers. ipc.Dispatcher implements it.
type Registrar interface {
	Handle(channel string, fn ipc.HandlerFunc) error
}

// Runner runs an action to completion.
type Runner interface {
	Run(ctx context.Context, d action.Descriptor) runner.Result
}

// Bridge holds the fixed set of bindings.
type Bridge struct {
	bindings []Binding
	invoker  Invoker
}

// New binds every action in reg. The set is fixed for the Bridge's lifetime.
func New(reg *action.Registry, invoker Invoker) *Bridge {
	descs := reg.Descriptors()
	bindings := make([]Binding, 0, len(descs))
	for _, d := range descs {
		bindings = append(bindings, Binding{Method: d.Method, Channel: d.Name})
	}
	return &Bridge{bindings: bindings, invoker: invoker}
}

// Methods returns the exposed method names in registry order.
func (b *Bridge) Methods() []string {
	out := make([]string, len(b.bindings))
	for i, bd := range b.bindings {
		out[i] = bd.Method
	}
	return out
}

// Bindings returns a copy of the bindings.
func (b *Bridge) Bindings() []Binding {
	return append([]Binding(nil), b.bindings...)
}

// Functions returns the exposed surface keyed by method name.
func (b *Bridge) Functions() map[string]Func {
	fns := make(map[string]Func, len(b.bindings))
	for _, bd := range b.bindings {
		fns[bd.Method] = b.call(bd.Channel)
	}
	return fns
}

func (b *Bridge) call(channel string) Func {
	return func(ctx context.Context) <-chan string {
		out := make(chan string, 1)
		go func() {
			defer func() {
				if p := recover(); p != nil {
					out <- ipc.ErrorReport("%v", p)
				}
			}()
			out <- b.invoker.Call(ctx, channel)
		}()
		return out
	}
}

// Flatten renders a result as boundary text.
func Flatten(r runner.Result) string {
	if r.OK() {
		return r.Output
	}
	return ipc.ErrorPrefix + r.Message
}

// Register binds each action's channel to a run of that action.
func Register(d Registrar, reg *action.Registry, run Runner) error {
	for _, desc := range reg.Descriptors() {
		desc := desc
		err := d.Handle(desc.Name, func(ctx context.Context) string {
			return Flatten(run.Run(ctx, desc))
		})
		if err != nil {
			return fmt.Errorf("register %s: %w", desc.Name, err)
		}
	}
	return nil
}
