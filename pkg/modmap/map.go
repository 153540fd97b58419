package modmap

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// ModuleRef identifies a lazy module required by a route, as recorded by
// the client build.
type ModuleRef struct {
	// Name is the lazy-route identifier (e.g. "heroes-detail").
	Name string `json:"name"`

	// Bundle is the module's bundle file inside the client bundle
	// directory (e.g. "heroes-detail.3f9a12cd.js").
	Bundle string `json:"bundle"`
}

// mapFile is the on-disk schema of the module map metadata.
type mapFile struct {
	Routes map[string][]ModuleRef `json:"routes"`
}

// Map is the route-to-modules mapping. It is built once from build-time
// metadata and read-only afterwards, so concurrent reads need no locking.
type Map struct {
	routes map[string][]ModuleRef

	// prefixes holds route patterns sorted longest-first for prefix
	// matching of nested routes.
	prefixes []string
}

// Parse builds a Map from raw metadata JSON.
func Parse(data []byte) (*Map, error) {
	var file mapFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("modmap: parse metadata: %w", err)
	}

	m := &Map{routes: make(map[string][]ModuleRef, len(file.Routes))}
	for pattern, refs := range file.Routes {
		norm, err := normalizePattern(pattern)
		if err != nil {
			return nil, err
		}
		for _, ref := range refs {
			if ref.Name == "" || ref.Bundle == "" {
				return nil, fmt.Errorf("modmap: route %q has an incomplete module entry (name=%q bundle=%q)", pattern, ref.Name, ref.Bundle)
			}
		}
		m.routes[norm] = refs
		m.prefixes = append(m.prefixes, norm)
	}

	sort.Slice(m.prefixes, func(i, j int) bool {
		if len(m.prefixes[i]) != len(m.prefixes[j]) {
			return len(m.prefixes[i]) > len(m.prefixes[j])
		}
		return m.prefixes[i] < m.prefixes[j]
	})
	return m, nil
}

// Load reads and parses a module map metadata file.
func Load(path string) (*Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("modmap: read %s: %w", path, err)
	}
	return Parse(data)
}

// Empty returns a map with no routes. Useful for applications without
// lazy modules.
func Empty() *Map {
	return &Map{routes: make(map[string][]ModuleRef)}
}

// ModulesFor returns the lazy modules the given route depends on.
// Exact pattern match wins; otherwise the longest registered pattern
// that is a path prefix of the route applies. Routes with no lazy
// modules return (nil, false).
func (m *Map) ModulesFor(route string) ([]ModuleRef, bool) {
	route = normalizeRoute(route)
	if refs, ok := m.routes[route]; ok {
		return refs, true
	}
	for _, pattern := range m.prefixes {
		if isPathPrefix(pattern, route) {
			return m.routes[pattern], true
		}
	}
	return nil, false
}

// Routes returns all registered route patterns, longest first.
func (m *Map) Routes() []string {
	out := make([]string, len(m.prefixes))
	copy(out, m.prefixes)
	return out
}

// Len returns the number of registered routes.
func (m *Map) Len() int { return len(m.routes) }

func normalizePattern(pattern string) (string, error) {
	if pattern == "" || !strings.HasPrefix(pattern, "/") {
		return "", fmt.Errorf("modmap: route pattern %q must start with /", pattern)
	}
	return normalizeRoute(pattern), nil
}

func normalizeRoute(route string) string {
	if route == "" {
		return "/"
	}
	if len(route) > 1 {
		route = strings.TrimSuffix(route, "/")
	}
	return route
}

// isPathPrefix reports whether pattern is a path-segment prefix of
// route, so "/heroes" matches "/heroes/12" but not "/heroesx".
func isPathPrefix(pattern, route string) bool {
	if pattern == "/" {
		return true
	}
	if !strings.HasPrefix(route, pattern) {
		return false
	}
	return len(route) == len(pattern) || route[len(pattern)] == '/'
}
