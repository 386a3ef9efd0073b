/*
Package bridge is the only surface a restricted context can use to reach
the backend.

A Bridge is built from the action registry and exposes exactly one
function per whitelisted action. Each function takes no arguments and
yields one string: the action's output on success, or "Error: " followed by
the failure message. There is no generic invoke or channel parameter on any
exposed surface, so a caller cannot name an action that was not bound at
construction.

The same bindings are published three ways:

  - Expose installs a frozen shellAPI global in a goja sandbox (headless).
  - Preload renders the browser shim that defines window.shellAPI over
    the ipc websocket.
  - Mount adds one POST /bridge/<method> route per binding.

Register is the backend half: it binds each action's channel on the ipc
dispatcher to a runner call, and Flatten is where the runner's tagged
result becomes text.
*/
package bridge
