package action

import "maps"

// Descriptor describes one privileged external invocation.
type Descriptor struct {
	Name        string
	Method      string
	Description string
	Executable  string
	Args        []string
	Dir         string
	// Env is applied over the inherited environment.
	Env map[string]string
	// DefaultEnv is applied only for variables the inherited environment lacks.
	DefaultEnv map[string]string
}

// clone returns a deep copy so callers cannot reach registry state.
func (d Descriptor) clone() Descriptor {
	out := d
	out.Args = append([]string(nil), d.Args...)
	out.Env = maps.Clone(d.Env)
	out.DefaultEnv = maps.Clone(d.DefaultEnv)
	return out
}
