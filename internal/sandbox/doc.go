/*
Package sandbox provides the restricted JavaScript context used by the
headless shell.

# Overview

A Runtime is a goja VM with the host escape hatches removed: there is no
require, process, module, fetch, XMLHttpRequest or WebSocket, and timers
are inert. A script can reach the host only through objects installed with
DefineFrozen, which are frozen and bound to non-writable globals, so the
script can neither add members nor replace the object.

# Async host calls

Functions installed with DefineFrozen return promises. The host work runs
on its own goroutine; its completion is handed back to the VM goroutine
and resolved there, because a goja VM is not safe for concurrent use.
Execute keeps servicing completions until none are pending, then unwraps
the script's final promise.

# Usage

	rt, _ := sandbox.New(sandbox.DefaultConfig())
	rt.DefineFrozen("shellAPI", map[string]sandbox.AsyncFunc{
		"installNode": func(ctx context.Context) interface{} { return "done" },
	})
	res, err := rt.Execute(ctx, "shellAPI.installNode()")
*/
package sandbox
