package bridge

import (
	"context"

	"github.com/GriffinCanCode/oneclick/internal/sandbox"
)

// Expose publishes the surface as a frozen global in rt. Every function
// returns a promise that resolves with the report string. A sandbox
// deadline or cancellation stops the script, never the action it started.
func (b *Bridge) Expose(rt *sandbox.Runtime) error {
	fns := make(map[string]sandbox.AsyncFunc, len(b.bindings))
	for method, fn := range b.Functions() {
		fn := fn
		fns[method] = func(ctx context.Context) interface{} {
			return <-fn(context.WithoutCancel(ctx))
		}
	}
	return rt.DefineFrozen(GlobalName, fns)
}
