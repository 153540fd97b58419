// Package origin decides whether outbound data-fetch calls use absolute
// or relative URLs based on execution context. In a browser a relative
// URL resolves against the page origin; during a server render no such
// origin exists, so relative paths must be rewritten against a
// configured base origin.
package origin

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrNoBaseOrigin is returned when a server-side context has no base
// origin to resolve relative paths against. Gateways are expected to
// reject this configuration at startup, before any request is served.
var ErrNoBaseOrigin = errors.New("origin: server context without base origin")

// Context describes the execution environment of a render.
// It is resolved once per request at the boundary and never mutated.
type Context struct {
	// IsServer is true when code runs off-browser.
	IsServer bool

	// BaseOrigin is the absolute origin (scheme://host[:port]) used to
	// resolve relative paths server-side. Unused when IsServer is false.
	BaseOrigin string
}

// Server returns a server-side context with the given base origin.
func Server(baseOrigin string) Context {
	return Context{IsServer: true, BaseOrigin: strings.TrimSuffix(baseOrigin, "/")}
}

// Browser returns a client-side context. Relative URLs pass through
// untouched and resolve against the page origin.
func Browser() Context {
	return Context{}
}

// Validate checks that the context is usable. A server context without a
// base origin is a configuration error.
func (c Context) Validate() error {
	if !c.IsServer {
		return nil
	}
	if c.BaseOrigin == "" {
		return ErrNoBaseOrigin
	}
	u, err := url.Parse(c.BaseOrigin)
	if err != nil {
		return fmt.Errorf("origin: invalid base origin %q: %w", c.BaseOrigin, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("origin: base origin %q must use http or https", c.BaseOrigin)
	}
	if u.Host == "" {
		return fmt.Errorf("origin: base origin %q has no host", c.BaseOrigin)
	}
	return nil
}

// BuildURL resolves a data-fetch path for the given context. Server-side
// the path is prefixed with the base origin to produce an absolute URL;
// client-side it is returned unchanged. Absolute inputs pass through in
// both modes.
func BuildURL(path string, octx Context) (string, error) {
	if !octx.IsServer {
		return path, nil
	}
	if isAbsolute(path) {
		return path, nil
	}
	if octx.BaseOrigin == "" {
		return "", ErrNoBaseOrigin
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return strings.TrimSuffix(octx.BaseOrigin, "/") + path, nil
}

func isAbsolute(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}
