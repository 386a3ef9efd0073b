package shell

import "fmt"

// State is the shell lifecycle state.
type State int

const (
	Uninitialized State = iota
	Ready
	Closing
	Terminated
)

var stateNames = []string{"uninitialized", "ready", "closing", "terminated"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// States lists every state name, for metrics.
func States() []string {
	return append([]string(nil), stateNames...)
}
