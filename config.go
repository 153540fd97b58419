package prerend

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prerend-dev/prerend/pkg/modmap"
	"github.com/prerend-dev/prerend/pkg/render"
)

// =============================================================================
// Configuration Types
// =============================================================================

// Config is the main gateway configuration.
// This is the user-friendly entry point for configuring a prerend gateway.
type Config struct {
	// AppID is the application id stamped into hydration markers.
	// The client runtime adopts server markup whose marker carries the
	// same id. Required for SSR.
	AppID string

	// Origin configures how relative data URLs are made absolute during
	// server-side renders.
	Origin OriginConfig

	// Render configures the render pipeline.
	Render RenderConfig

	// Static configures client bundle (static file) serving.
	Static StaticConfig

	// API configures the data-API reverse proxy.
	API APIConfig

	// Modules configures lazy route module resolution.
	Modules ModulesConfig

	// Document is the HTML document shell rendered around every page.
	Document render.DocumentData

	// DevMode enables development mode: live-reload endpoint, reload
	// script injection, and pretty-printed HTML.
	DevMode bool

	// Logger is the structured logger for the gateway.
	// If nil, slog.Default() is used.
	Logger *slog.Logger

	// HTTPClient is the client used for server-side data fetches.
	// If nil, a client bounded by the render deadline is used.
	HTTPClient *http.Client
}

// OriginConfig configures server-side URL resolution.
type OriginConfig struct {
	// BaseOrigin is the absolute origin (e.g. "http://localhost:4000")
	// prepended to relative data URLs while rendering off-browser.
	// Required: New() refuses to build a gateway without it.
	BaseOrigin string
}

// RenderConfig configures the render pipeline.
type RenderConfig struct {
	// Timeout bounds each page render. When exceeded the request fails
	// with 503 and the render goroutine is cancelled.
	// Default: 2 seconds.
	Timeout time.Duration

	// Pretty enables indented HTML output. Defaults to DevMode.
	Pretty bool
}

// StaticConfig configures client bundle serving.
type StaticConfig struct {
	// Dir is the directory containing the client bundle.
	// Files in this directory are served at the URL prefix.
	Dir string

	// Prefix is the URL path prefix for bundle files (e.g., "/").
	// Default: "/".
	Prefix string

	// CacheControl determines caching behavior for bundle files.
	// Default: CacheControlNone (no-store).
	CacheControl CacheControlStrategy

	// Manifest is the path to the build's fingerprint manifest
	// (manifest.json). When set, document shell asset references are
	// resolved to their fingerprinted names.
	Manifest string

	// Headers are custom headers to add to all static file responses.
	Headers map[string]string
}

// APIConfig configures the data-API reverse proxy.
type APIConfig struct {
	// Prefix is the URL path prefix classified as data-API traffic.
	// Default: "/api".
	Prefix string

	// Backend is the origin data-API requests are forwarded to
	// (e.g., "http://localhost:9000"). Empty disables forwarding;
	// data-API requests then fail with 502.
	Backend string

	// Timeout bounds each proxied request.
	// Default: 10 seconds.
	Timeout time.Duration
}

// ModulesConfig configures lazy route module resolution.
type ModulesConfig struct {
	// Path is the path to the build-produced module map JSON.
	// Ignored when Map is set.
	Path string

	// Map is a pre-parsed module map. Takes precedence over Path.
	Map *modmap.Map

	// Loader overrides how module bundles are loaded. When nil, bundles
	// are read from Static.Dir.
	Loader modmap.Loader
}

// CacheControlStrategy determines caching behavior for bundle files.
type CacheControlStrategy int

const (
	// CacheControlNone disables caching (no-store).
	// Use in development for instant updates.
	CacheControlNone CacheControlStrategy = iota

	// CacheControlProduction uses appropriate caching:
	// - Fingerprinted files (main.abc12345.js): immutable, 1 year max-age
	// - Other files: short cache with revalidation
	CacheControlProduction
)

// =============================================================================
// Default Configurations
// =============================================================================

// DefaultRenderTimeout is the default per-request render deadline.
const DefaultRenderTimeout = 2 * time.Second

// DefaultConfig returns a Config with sensible defaults.
// Origin.BaseOrigin has no default; it must be set by the caller.
func DefaultConfig() Config {
	return Config{
		Render: RenderConfig{
			Timeout: DefaultRenderTimeout,
		},
		Static: StaticConfig{
			Prefix:       "/",
			CacheControl: CacheControlNone,
		},
		API: APIConfig{
			Prefix:  "/api",
			Timeout: 10 * time.Second,
		},
		DevMode: false,
	}
}

// applyDefaults fills in zero-valued fields.
func (cfg *Config) applyDefaults() {
	if cfg.Render.Timeout == 0 {
		cfg.Render.Timeout = DefaultRenderTimeout
	}
	if cfg.Static.Prefix == "" {
		cfg.Static.Prefix = "/"
	}
	if cfg.API.Prefix == "" {
		cfg.API.Prefix = "/api"
	}
	if cfg.API.Timeout == 0 {
		cfg.API.Timeout = 10 * time.Second
	}
	if cfg.DevMode {
		cfg.Render.Pretty = true
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
}
