package runner

import (
	"runtime"
	"sort"
	"strings"
)

// Environment builds the child environment from inherited KEY=VALUE pairs.
// Entries of env replace inherited values; entries of defaults are added
// only when the key is absent or empty. A fresh slice is returned and the
// inputs are not modified.
func Environment(inherited []string, env, defaults map[string]string) []string {
	return environment(inherited, env, defaults, runtime.GOOS == "windows")
}

func environment(inherited []string, env, defaults map[string]string, foldCase bool) []string {
	norm := func(k string) string {
		if foldCase {
			return strings.ToUpper(k)
		}
		return k
	}

	type entry struct{ key, value string }
	order := make([]string, 0, len(inherited)+len(env)+len(defaults))
	vars := make(map[string]entry, cap(order))

	set := func(k, v string) {
		n := norm(k)
		if prev, ok := vars[n]; ok {
			// Keep the original spelling of the key.
			vars[n] = entry{key: prev.key, value: v}
			return
		}
		vars[n] = entry{key: k, value: v}
		order = append(order, n)
	}

	for _, kv := range inherited {
		k, v, ok := strings.Cut(kv, "=")
		// Windows carries per-drive entries like "=C:=C:\\"; skip them.
		if !ok || k == "" {
			continue
		}
		set(k, v)
	}
	for _, k := range sortedKeys(env) {
		set(k, env[k])
	}
	for _, k := range sortedKeys(defaults) {
		if prev, ok := vars[norm(k)]; ok && prev.value != "" {
			continue
		}
		set(k, defaults[k])
	}

	out := make([]string, 0, len(order))
	for _, n := range order {
		e := vars[n]
		out = append(out, e.key+"="+e.value)
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
