// Package shell drives the application lifecycle around a single window.
//
// The window is the embedded page served by the backend and opened in the
// user's browser. Each ipc websocket connection counts as a live view of
// it; once no view remains for the close grace period the window counts as
// closed. On darwin, or when persistence is forced, the shell then stays
// resident and a later connection reactivates the window. Elsewhere it
// moves through Closing to Terminated and Done is closed.
//
// In headless mode the renderer runs inside a sandbox with the bridge
// exposed, reports once and quits.
package shell
