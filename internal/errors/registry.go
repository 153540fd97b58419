package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category   Category
	Message    string
	Detail     string
	Suggestion string
	DocURL     string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Module resolution (E101-E199)
	// ============================================

	"E101": {
		Category:   CategoryResolve,
		Message:    "Lazy module could not be resolved",
		Detail:     "A route depends on a lazily-loaded module whose module map entry is missing or whose bundle file cannot be read. The page cannot be rendered without it: server-rendered HTML must never contain a loading placeholder for a module that could not be materialized.",
		Suggestion: "Rebuild the client bundle and regenerate the module map so every entry points at an existing bundle file.",
		DocURL:     "https://prerend.dev/docs/errors/E101",
	},
	"E102": {
		Category:   CategoryResolve,
		Message:    "Module map metadata is invalid",
		Detail:     "The module map file exists but does not parse as valid metadata, or contains incomplete entries.",
		Suggestion: "Check that the build emitted the module map in the expected JSON schema.",
		DocURL:     "https://prerend.dev/docs/errors/E102",
	},

	// ============================================
	// Rendering (E201-E299)
	// ============================================

	"E201": {
		Category:   CategoryTimeout,
		Message:    "Render exceeded its deadline",
		Detail:     "The page render did not complete within the configured render timeout. The in-flight render was cancelled and its snapshot released; no partial HTML was emitted. The gateway does not retry timed-out renders, since retrying a slow upstream tends to make it slower.",
		Suggestion: "Check upstream data API latency, or raise Render.Timeout if the route legitimately needs more time.",
		DocURL:     "https://prerend.dev/docs/errors/E201",
	},
	"E202": {
		Category:   CategoryRender,
		Message:    "Application rendering logic failed",
		Detail:     "A page handler returned an error or panicked. Re-running the render with the same inputs would fail the same way, so the gateway serves the fallback error page instead of retrying.",
		Suggestion: "Inspect the wrapped error; component logic that assumes a browser must gate on the origin context's IsServer flag.",
		DocURL:     "https://prerend.dev/docs/errors/E202",
	},

	// ============================================
	// Configuration (E301-E399)
	// ============================================

	"E301": {
		Category:   CategoryConfig,
		Message:    "Base origin required for server-side rendering",
		Detail:     "Server execution has no implicit page origin, so relative data-fetch URLs cannot be resolved. Serving in this state would silently target unresolvable URLs on every request, so startup is refused instead.",
		Suggestion: "Set Origin.BaseOrigin (or PREREND_BASE_ORIGIN) to the absolute origin of the data API, e.g. https://api.example.com.",
		DocURL:     "https://prerend.dev/docs/errors/E301",
	},
	"E302": {
		Category:   CategoryConfig,
		Message:    "Module map could not be loaded",
		Detail:     "The configured module map file is missing or unreadable. The gateway refuses to start without it, since lazy routes would fail on first use.",
		Suggestion: "Point ModuleMap.Path at the metadata file produced by the client build, or leave it empty for applications without lazy modules.",
		DocURL:     "https://prerend.dev/docs/errors/E302",
	},
	"E303": {
		Category:   CategoryConfig,
		Message:    "Invalid gateway configuration",
		Detail:     "One or more configuration values are out of range or mutually inconsistent.",
		DocURL:     "https://prerend.dev/docs/errors/E303",
	},

	// ============================================
	// Hydration (E401-E499)
	// ============================================

	"E401": {
		Category:   CategoryHydration,
		Message:    "Hydration marker missing or mismatched",
		Detail:     "The markup carries no marker for the configured application id. The client-side recovery is a full client render; this is never fatal to the application.",
		Suggestion: "Verify the client runtime is configured with the same application id the gateway renders with.",
		DocURL:     "https://prerend.dev/docs/errors/E401",
	},

	// ============================================
	// Proxy (E501-E599)
	// ============================================

	"E501": {
		Category:   CategoryProxy,
		Message:    "Data API backend unreachable",
		Detail:     "A data-API request could not be forwarded to the configured backend.",
		Suggestion: "Check API.Backend and the backend service's health.",
		DocURL:     "https://prerend.dev/docs/errors/E501",
	},
}

// Register adds a template at the given code. Intended for tests.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
