// Package ipc implements the invocation boundary between a restricted page
// and the backend.
//
// Traffic is a request/response pair keyed by a fixed channel name:
//
//	-> {"id": "req_01J...", "channel": "install-node"}
//	<- {"id": "req_01J...", "channel": "install-node", "payload": "..."}
//
// The request carries no payload. The response payload is always text and
// errors never cross the boundary as faults: an unknown channel or a
// failing handler resolves the request with a text report starting with
// ErrorPrefix.
//
// Handlers are registered on a Dispatcher during startup and the
// Dispatcher is then sealed; nothing can be registered afterwards.
//
// Server carries requests over a websocket. Each request is served on its
// own goroutine, so overlapping invocations neither block nor fail each
// other. Connection open and close notifications let the shell treat the
// websocket as a live view of its window.
package ipc
