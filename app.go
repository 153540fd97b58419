package prerend

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/prerend-dev/prerend/internal/dev"
	"github.com/prerend-dev/prerend/internal/errors"
	"github.com/prerend-dev/prerend/pkg/assets"
	"github.com/prerend-dev/prerend/pkg/modmap"
	"github.com/prerend-dev/prerend/pkg/origin"
	"github.com/prerend-dev/prerend/pkg/render"
)

// =============================================================================
// App Type
// =============================================================================

// App is the SSR gateway entry point.
// It classifies every request as a static asset, a data-API call, or a
// page, and wraps asset serving, API forwarding, and the render pipeline
// into a single http.Handler.
//
// Create an App with prerend.New():
//
//	app, err := prerend.New(prerend.Config{
//	    AppID:  "tour-of-heroes",
//	    Origin: prerend.OriginConfig{BaseOrigin: "http://localhost:4000"},
//	    Static: prerend.StaticConfig{Dir: "dist/browser"},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	app.Page("/heroes", heroesPage)
//	http.ListenAndServe(":4000", app)
type App struct {
	// Internal components
	engine   *render.Engine
	resolver *modmap.Resolver
	modules  *modmap.Map
	router   chi.Router

	// Static file serving
	staticDir    string
	staticPrefix string
	staticFS     http.FileSystem

	// Data-API forwarding
	proxy *httputil.ReverseProxy

	// Dev-mode live reload
	reload *dev.ReloadServer

	// Configuration
	config Config
	octx   origin.Context
	hc     *http.Client
	logger *slog.Logger
}

// New creates a new gateway with the given configuration.
// It fails fast: a missing or invalid base origin, an unreadable module
// map, or a missing app id refuse to build a gateway rather than
// surfacing as broken responses later.
func New(cfg Config) (*App, error) {
	cfg.applyDefaults()

	if cfg.AppID == "" {
		return nil, errors.New("E303").
			WithDetail("AppID is required").
			WithSuggestion("Set Config.AppID to the application id the client runtime hydrates with")
	}

	octx := origin.Server(cfg.Origin.BaseOrigin)
	if err := octx.Validate(); err != nil {
		return nil, errors.New("E301").Wrap(err)
	}

	// Module map: pre-parsed map wins, then the metadata file, then empty
	// (every route renders with no lazy modules).
	modules := cfg.Modules.Map
	if modules == nil && cfg.Modules.Path != "" {
		m, err := modmap.Load(cfg.Modules.Path)
		if err != nil {
			return nil, errors.New("E302").Wrap(err)
		}
		modules = m
	}
	if modules == nil {
		modules = modmap.Empty()
	}

	loader := cfg.Modules.Loader
	if loader == nil {
		dir := cfg.Static.Dir
		if dir == "" {
			dir = "."
		}
		loader = modmap.NewBundleLoader(os.DirFS(dir))
	}

	app := &App{
		engine: render.NewEngine(render.EngineConfig{
			AppID:       cfg.AppID,
			AssetPrefix: cfg.Static.Prefix,
			Renderer:    render.RendererConfig{Pretty: cfg.Render.Pretty},
		}),
		resolver:     modmap.NewResolver(modules, loader),
		modules:      modules,
		router:       chi.NewRouter(),
		staticDir:    cfg.Static.Dir,
		staticPrefix: cfg.Static.Prefix,
		config:       cfg,
		octx:         octx,
		hc:           cfg.HTTPClient,
		logger:       cfg.Logger,
	}
	if app.hc == nil {
		app.hc = &http.Client{}
	}

	app.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	if cfg.Static.Dir != "" {
		app.staticFS = http.Dir(cfg.Static.Dir)
	}

	if cfg.API.Backend != "" {
		backend, err := url.Parse(cfg.API.Backend)
		if err != nil || backend.Scheme == "" || backend.Host == "" {
			return nil, errors.New("E303").
				WithDetail("API backend " + cfg.API.Backend + " is not an absolute URL")
		}
		app.proxy = newBackendProxy(backend, app.logger)
	}

	if cfg.Static.Manifest != "" {
		manifest, err := assets.Load(cfg.Static.Manifest)
		if err != nil {
			return nil, errors.New("E303").
				WithDetail("Asset manifest " + cfg.Static.Manifest + " is not readable: " + err.Error())
		}
		prefix := cfg.Static.Prefix
		if !strings.HasSuffix(prefix, "/") {
			prefix += "/"
		}
		resolveDocumentAssets(&app.config.Document, assets.NewResolver(manifest, prefix))
	}

	if cfg.DevMode {
		app.reload = dev.NewReloadServer()
	}

	return app, nil
}

// resolveDocumentAssets maps the document shell's stable asset names to
// their fingerprinted paths. Absolute paths and full URLs pass through.
func resolveDocumentAssets(doc *render.DocumentData, resolver assets.Resolver) {
	resolve := func(p string) string {
		if strings.HasPrefix(p, "/") || strings.Contains(p, "://") {
			return p
		}
		return resolver.Asset(p)
	}

	for i, href := range doc.StyleSheets {
		doc.StyleSheets[i] = resolve(href)
	}
	for i, script := range doc.HeadScripts {
		if script.Src != "" {
			doc.HeadScripts[i].Src = resolve(script.Src)
		}
	}
	for i, script := range doc.BodyScripts {
		if script.Src != "" {
			doc.BodyScripts[i].Src = resolve(script.Src)
		}
	}
}

// =============================================================================
// http.Handler Implementation
// =============================================================================

// ServeHTTP implements http.Handler.
// Classification order: dev endpoints, static assets, data-API, pages.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	if a.reload != nil && path == dev.ReloadPath {
		a.reload.ServeHTTP(w, r)
		return
	}

	if a.staticFS != nil && a.shouldServeStatic(path) {
		a.serveStatic(w, r)
		return
	}

	if a.isAPIPath(path) {
		a.serveAPI(w, r)
		return
	}

	// Pages are GET-only for SSR.
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	a.router.ServeHTTP(w, r)
}

// RequestClass is the gateway's classification of an incoming request.
type RequestClass string

const (
	ClassAsset RequestClass = "asset"
	ClassAPI   RequestClass = "api"
	ClassPage  RequestClass = "page"
	ClassDev   RequestClass = "dev"
)

// Classify reports how the gateway will treat a request path. Exposed
// for instrumentation middleware that labels by request class.
func (a *App) Classify(r *http.Request) RequestClass {
	path := r.URL.Path
	switch {
	case a.reload != nil && path == dev.ReloadPath:
		return ClassDev
	case a.staticFS != nil && a.shouldServeStatic(path):
		return ClassAsset
	case a.isAPIPath(path):
		return ClassAPI
	default:
		return ClassPage
	}
}

// isAPIPath reports whether a request path is classified as data-API
// traffic.
func (a *App) isAPIPath(path string) bool {
	prefix := a.config.API.Prefix
	if prefix == "" || prefix == "/" {
		return false
	}
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

// =============================================================================
// Data-API Forwarding
// =============================================================================

// newBackendProxy builds the reverse proxy for data-API requests.
// An unreachable backend answers 502 with a JSON error body.
func newBackendProxy(backend *url.URL, logger *slog.Logger) *httputil.ReverseProxy {
	proxy := httputil.NewSingleHostReverseProxy(backend)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Error("API backend unreachable", "backend", backend.String(), "path", r.URL.Path, "error", err)
		writeJSONError(w, http.StatusBadGateway, errors.FromError(err, "E501"))
	}
	return proxy
}

// serveAPI forwards a data-API request to the configured backend.
func (a *App) serveAPI(w http.ResponseWriter, r *http.Request) {
	if a.proxy == nil {
		writeJSONError(w, http.StatusBadGateway, errors.New("E501").
			WithDetail("No API backend configured"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), a.config.API.Timeout)
	defer cancel()
	a.proxy.ServeHTTP(w, r.WithContext(ctx))
}

func writeJSONError(w http.ResponseWriter, status int, err *errors.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"code":  err.Code,
		"error": err.Message,
	})
}

// =============================================================================
// Page Rendering
// =============================================================================

// Page registers a page handler for a route pattern.
// Patterns follow chi syntax ("/heroes", "/heroes/{id}").
func (a *App) Page(pattern string, page render.PageFunc) {
	a.router.Get(pattern, func(w http.ResponseWriter, r *http.Request) {
		a.renderPage(w, r, page, http.StatusOK)
	})
}

// SetNotFound renders a page for unmatched routes instead of the plain
// 404 response.
func (a *App) SetNotFound(page render.PageFunc) {
	a.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		a.renderPage(w, r, page, http.StatusNotFound)
	})
}

// renderPage runs the SSR pipeline for one request: resolve the route's
// lazy modules, render the page under the deadline, and write either the
// composed document or a fallback. Partial HTML never escapes; a render
// that misses its deadline is abandoned and its result discarded.
func (a *App) renderPage(w http.ResponseWriter, r *http.Request, page render.PageFunc, status int) {
	ctx, cancel := context.WithTimeout(r.Context(), a.config.Render.Timeout)
	defer cancel()

	route := r.URL.Path

	mods, err := a.resolver.Resolve(ctx, route)
	if err != nil {
		if ctx.Err() != nil {
			a.writeTimeout(w, route)
			return
		}
		a.logger.Error("module resolution failed", "route", route, "error", err)
		a.writeFallback(w, http.StatusInternalServerError)
		return
	}

	snap := render.NewSnapshot(ctx, render.RouteRequestFrom(r), a.octx, mods, a.hc)

	type outcome struct {
		res *render.Result
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		res, err := a.engine.RenderPage(snap, page, a.config.Document)
		ch <- outcome{res, err}
	}()

	select {
	case <-ctx.Done():
		a.writeTimeout(w, route)
	case out := <-ch:
		if out.err != nil {
			if ctx.Err() != nil {
				a.writeTimeout(w, route)
				return
			}
			a.logger.Error("render failed", "route", route, "error", out.err)
			a.writeFallback(w, http.StatusInternalServerError)
			return
		}

		html := out.res.HTML
		if a.reload != nil {
			html = dev.InjectScript(html)
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		io.WriteString(w, html)
	}
}

// writeTimeout answers a render that exceeded its deadline: 503 and the
// unrendered shell, no retry. The render goroutine keeps running until
// its context cancellation propagates, but its result is discarded.
func (a *App) writeTimeout(w http.ResponseWriter, route string) {
	err := errors.New("E201")
	a.logger.Error("render deadline exceeded", "route", route, "deadline", a.config.Render.Timeout, "code", err.Code)
	a.writeFallback(w, http.StatusServiceUnavailable)
}

// =============================================================================
// Accessors
// =============================================================================

// Handler returns the App as an http.Handler.
func (a *App) Handler() http.Handler {
	return a
}

// Config returns the gateway configuration.
func (a *App) Config() Config {
	return a.config
}

// Modules returns the frozen module map.
func (a *App) Modules() *modmap.Map {
	return a.modules
}

// Reload returns the live-reload server, or nil outside dev mode.
func (a *App) Reload() *dev.ReloadServer {
	return a.reload
}

// Run starts the gateway and blocks.
// For graceful shutdown and metrics endpoints use cmd/prerend or wire
// the App into your own http.Server.
func (a *App) Run(addr string) error {
	a.logger.Info("gateway listening", "addr", addr)
	return http.ListenAndServe(addr, a)
}
