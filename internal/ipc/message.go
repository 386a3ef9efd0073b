package ipc

import "fmt"

// ErrorPrefix marks a payload as an error report.
const ErrorPrefix = "Error: "

// Request asks the backend to run the handler bound to Channel.
type Request struct {
	ID      string `json:"id"`
	Channel string `json:"channel"`
}

// Response answers a Request with the same ID and Channel.
type Response struct {
	ID      string `json:"id"`
	Channel string `json:"channel"`
	Payload string `json:"payload"`
}

// ErrorReport formats an error payload.
func ErrorReport(format string, args ...any) string {
	return ErrorPrefix + fmt.Sprintf(format, args...)
}
