package action

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"
)

//go:embed actions.yaml
var defaultManifest []byte

// DefaultPlatform is the manifest key used when no GOOS entry matches.
const DefaultPlatform = "default"

var (
	ErrInvalidManifest = errors.New("invalid action manifest")
	ErrDuplicate       = errors.New("duplicate action")
)

type manifest struct {
	Actions []manifestAction `yaml:"actions"`
}

type manifestAction struct {
	Name        string                      `yaml:"name"`
	Method      string                      `yaml:"method"`
	Description string                      `yaml:"description"`
	Args        []string                    `yaml:"args"`
	Platforms   map[string]manifestPlatform `yaml:"platforms"`
}

type manifestPlatform struct {
	Executable string            `yaml:"executable"`
	Env        map[string]string `yaml:"env"`
	DefaultEnv map[string]string `yaml:"default_env"`
}

// Registry is the fixed set of actions. It is safe for concurrent use
// because nothing mutates it after Load returns.
type Registry struct {
	byName map[string]Descriptor
	order  []string
}

// Default loads the embedded manifest for the running platform.
func Default(appDir string) (*Registry, error) {
	return Load(defaultManifest, appDir, runtime.GOOS)
}

// Load parses a manifest and resolves it for goos against appDir.
func Load(data []byte, appDir, goos string) (*Registry, error) {
	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	if !filepath.IsAbs(appDir) {
		return nil, fmt.Errorf("%w: app dir %q is not absolute", ErrInvalidManifest, appDir)
	}
	appDir = filepath.Clean(appDir)

	r := &Registry{byName: make(map[string]Descriptor, len(m.Actions))}
	methods := make(map[string]string, len(m.Actions))

	for i, a := range m.Actions {
		if a.Name == "" {
			return nil, fmt.Errorf("%w: action %d has no name", ErrInvalidManifest, i)
		}
		if a.Method == "" {
			return nil, fmt.Errorf("%w: action %q has no method", ErrInvalidManifest, a.Name)
		}
		if _, ok := r.byName[a.Name]; ok {
			return nil, fmt.Errorf("%w: name %q", ErrDuplicate, a.Name)
		}
		if other, ok := methods[a.Method]; ok {
			return nil, fmt.Errorf("%w: method %q used by %q and %q", ErrDuplicate, a.Method, other, a.Name)
		}

		p, ok := a.Platforms[goos]
		if !ok {
			p, ok = a.Platforms[DefaultPlatform]
		}
		if !ok {
			return nil, fmt.Errorf("%w: action %q has no entry for %s", ErrInvalidManifest, a.Name, goos)
		}
		if !isAbs(p.Executable, goos) {
			return nil, fmt.Errorf("%w: action %q executable %q is not absolute", ErrInvalidManifest, a.Name, p.Executable)
		}

		d := Descriptor{
			Name:        a.Name,
			Method:      a.Method,
			Description: a.Description,
			Executable:  p.Executable,
			Args:        expandArgs(a.Args, appDir),
			Dir:         appDir,
			Env:         p.Env,
			DefaultEnv:  p.DefaultEnv,
		}
		r.byName[d.Name] = d.clone()
		r.order = append(r.order, d.Name)
		methods[a.Method] = a.Name
	}

	return r, nil
}

// Lookup returns a copy of the named descriptor.
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	d, ok := r.byName[name]
	if !ok {
		return Descriptor{}, false
	}
	return d.clone(), true
}

// Names returns the registered action names, sorted.
func (r *Registry) Names() []string {
	names := append([]string(nil), r.order...)
	sort.Strings(names)
	return names
}

// Descriptors returns copies of all descriptors in manifest order.
func (r *Registry) Descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name].clone())
	}
	return out
}

// Len returns the number of registered actions.
func (r *Registry) Len() int {
	return len(r.order)
}

// expandArgs substitutes ${APP_DIR}. Arguments that referenced it are
// cleaned into native path form; others pass through untouched.
func expandArgs(args []string, appDir string) []string {
	out := make([]string, len(args))
	for i, arg := range args {
		if !strings.Contains(arg, "${APP_DIR}") {
			out[i] = arg
			continue
		}
		expanded := os.Expand(arg, func(key string) string {
			if key == "APP_DIR" {
				return filepath.ToSlash(appDir)
			}
			return "${" + key + "}"
		})
		out[i] = filepath.Clean(filepath.FromSlash(expanded))
	}
	return out
}

// isAbs checks an executable path by the rules of the target platform, so
// a Windows manifest entry validates on any host.
func isAbs(path, goos string) bool {
	if path == "" {
		return false
	}
	if goos == "windows" {
		return len(path) >= 3 && path[1] == ':' && (path[2] == '\\' || path[2] == '/') ||
			strings.HasPrefix(path, `\\`)
	}
	return strings.HasPrefix(path, "/")
}
