package prerend

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prerend-dev/prerend/internal/errors"
	"github.com/prerend-dev/prerend/pkg/modmap"
	"github.com/prerend-dev/prerend/pkg/render"
	"github.com/prerend-dev/prerend/pkg/vdom"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestApp builds a gateway with test-friendly defaults. mutate may
// adjust the config before New.
func newTestApp(t *testing.T, mutate func(*Config)) *App {
	t.Helper()
	cfg := Config{
		AppID:  "tour-of-heroes",
		Origin: OriginConfig{BaseOrigin: "http://localhost:4200"},
		Logger: discardLogger(),
	}
	if mutate != nil {
		mutate(&cfg)
	}
	app, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return app
}

func simplePage(snap *render.Snapshot) (*vdom.VNode, error) {
	return vdom.Main(
		vdom.H1("Tour of Heroes"),
		vdom.P(vdom.Textf("path: %s", snap.Path())),
	), nil
}

// =============================================================================
// Construction
// =============================================================================

func TestNewRequiresAppID(t *testing.T) {
	_, err := New(Config{Origin: OriginConfig{BaseOrigin: "http://localhost:4200"}})
	var ge *errors.Error
	if !stderrors.As(err, &ge) || ge.Code != "E303" {
		t.Fatalf("err = %v, want E303", err)
	}
}

func TestNewRequiresBaseOrigin(t *testing.T) {
	_, err := New(Config{AppID: "tour-of-heroes"})
	var ge *errors.Error
	if !stderrors.As(err, &ge) || ge.Code != "E301" {
		t.Fatalf("err = %v, want E301", err)
	}
}

func TestNewRejectsInvalidBaseOrigin(t *testing.T) {
	_, err := New(Config{
		AppID:  "tour-of-heroes",
		Origin: OriginConfig{BaseOrigin: "not a url"},
	})
	var ge *errors.Error
	if !stderrors.As(err, &ge) || ge.Code != "E301" {
		t.Fatalf("err = %v, want E301", err)
	}
}

func TestNewRejectsUnreadableModuleMap(t *testing.T) {
	_, err := New(Config{
		AppID:   "tour-of-heroes",
		Origin:  OriginConfig{BaseOrigin: "http://localhost:4200"},
		Modules: ModulesConfig{Path: filepath.Join(t.TempDir(), "missing.json")},
	})
	var ge *errors.Error
	if !stderrors.As(err, &ge) || ge.Code != "E302" {
		t.Fatalf("err = %v, want E302", err)
	}
}

func TestNewRejectsRelativeBackend(t *testing.T) {
	_, err := New(Config{
		AppID:  "tour-of-heroes",
		Origin: OriginConfig{BaseOrigin: "http://localhost:4200"},
		API:    APIConfig{Backend: "/not-absolute"},
	})
	var ge *errors.Error
	if !stderrors.As(err, &ge) || ge.Code != "E303" {
		t.Fatalf("err = %v, want E303", err)
	}
}

// =============================================================================
// Classification
// =============================================================================

func TestClassify(t *testing.T) {
	dir := t.TempDir()
	writeBundleFile(t, dir, "main.3f9a12cd.js", "console.log('main')")

	app := newTestApp(t, func(cfg *Config) {
		cfg.Static.Dir = dir
		cfg.API.Backend = "http://localhost:9999"
		cfg.DevMode = true
	})

	tests := []struct {
		path string
		want RequestClass
	}{
		{"/main.3f9a12cd.js", ClassAsset},
		{"/api/heroes", ClassAPI},
		{"/api", ClassAPI},
		{"/heroes", ClassPage},
		{"/heroes/12", ClassPage},
		{"/apiary", ClassPage},
		{"/missing.js", ClassPage},
		{"/_prerend/reload", ClassDev},
	}
	for _, tt := range tests {
		r := httptest.NewRequest("GET", tt.path, nil)
		if got := app.Classify(r); got != tt.want {
			t.Fatalf("Classify(%s) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestNonGetPageRejected(t *testing.T) {
	app := newTestApp(t, nil)
	app.Page("/heroes", simplePage)

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest("POST", "/heroes", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

func TestUnregisteredRoute404(t *testing.T) {
	app := newTestApp(t, nil)
	app.Page("/heroes", simplePage)

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest("GET", "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

// =============================================================================
// Page Rendering
// =============================================================================

func TestRenderPageSuccess(t *testing.T) {
	app := newTestApp(t, func(cfg *Config) {
		cfg.Document.Title = "Tour of Heroes"
	})
	app.Page("/heroes", simplePage)

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest("GET", "/heroes", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("Content-Type = %q, want text/html", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `data-ssr-app="tour-of-heroes"`) {
		t.Fatalf("response missing hydration marker:\n%s", body)
	}
	if !strings.Contains(body, "path: /heroes") {
		t.Fatalf("response missing rendered content:\n%s", body)
	}
	if !strings.Contains(body, "<title>Tour of Heroes</title>") {
		t.Fatalf("response missing document title:\n%s", body)
	}
}

func TestRenderPageRouteParams(t *testing.T) {
	app := newTestApp(t, nil)
	app.Page("/heroes/{id}", simplePage)

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest("GET", "/heroes/12", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "path: /heroes/12") {
		t.Fatalf("parameterized route not rendered:\n%s", rec.Body.String())
	}
}

func TestRenderPageFailureServesFallback(t *testing.T) {
	app := newTestApp(t, nil)
	app.Page("/broken", func(*render.Snapshot) (*vdom.VNode, error) {
		return nil, fmt.Errorf("component assumed a browser")
	})

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest("GET", "/broken", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `<div id="app"></div>`) {
		t.Fatalf("fallback missing shell root:\n%s", body)
	}
	if strings.Contains(body, "data-ssr-app") {
		t.Fatalf("fallback must carry no hydration marker:\n%s", body)
	}
}

func TestRenderPagePanicServesFallback(t *testing.T) {
	app := newTestApp(t, nil)
	app.Page("/panic", func(*render.Snapshot) (*vdom.VNode, error) {
		panic("window is not defined")
	})

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest("GET", "/panic", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "data-ssr-app") {
		t.Fatal("panic response carries a hydration marker")
	}
}

func TestRenderPageDeadline503(t *testing.T) {
	app := newTestApp(t, func(cfg *Config) {
		cfg.Render.Timeout = 50 * time.Millisecond
	})
	app.Page("/slow", func(snap *render.Snapshot) (*vdom.VNode, error) {
		<-snap.Context().Done()
		return vdom.Div("too late"), nil
	})

	start := time.Now()
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest("GET", "/slow", nil))
	elapsed := time.Since(start)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if elapsed > time.Second {
		t.Fatalf("response took %v, deadline not enforced", elapsed)
	}
	body := rec.Body.String()
	if strings.Contains(body, "too late") {
		t.Fatalf("partial render escaped:\n%s", body)
	}
	if strings.Contains(body, "data-ssr-app") {
		t.Fatalf("timeout response carries a hydration marker:\n%s", body)
	}
}

func TestRenderPageNoPartialOutputOnLateFinish(t *testing.T) {
	app := newTestApp(t, func(cfg *Config) {
		cfg.Render.Timeout = 30 * time.Millisecond
	})
	app.Page("/late", func(snap *render.Snapshot) (*vdom.VNode, error) {
		// Finishes after the deadline without observing cancellation.
		time.Sleep(150 * time.Millisecond)
		return vdom.Div("late result"), nil
	})

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest("GET", "/late", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "late result") {
		t.Fatal("late render result escaped into the response")
	}
}

func TestSetNotFoundRendersPage(t *testing.T) {
	app := newTestApp(t, nil)
	app.SetNotFound(func(snap *render.Snapshot) (*vdom.VNode, error) {
		return vdom.Div(vdom.H1("Page not found"), vdom.P(snap.Path())), nil
	})

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest("GET", "/missing", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Page not found") {
		t.Fatalf("custom 404 page not rendered:\n%s", rec.Body.String())
	}
}

// =============================================================================
// Heroes Scenario: lazy module + transfer state
// =============================================================================

func TestHeroesRouteWithLazyModule(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/heroes" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":12,"name":"Dr Nice"},{"id":13,"name":"Bombasto"}]`))
	}))
	defer backend.Close()

	dir := t.TempDir()
	writeBundleFile(t, dir, "heroes-detail.3f9a12cd.js", "export const heroesDetail = true;")

	modules, err := modmap.Parse([]byte(`{
	  "routes": {
	    "/heroes": [{"name": "heroes-detail", "bundle": "heroes-detail.3f9a12cd.js"}]
	  }
	}`))
	if err != nil {
		t.Fatalf("parse module map: %v", err)
	}

	app := newTestApp(t, func(cfg *Config) {
		cfg.Origin.BaseOrigin = backend.URL
		cfg.Static.Dir = dir
		cfg.Modules.Map = modules
	})

	app.Page("/heroes", func(snap *render.Snapshot) (*vdom.VNode, error) {
		var heroes []struct {
			ID   int    `json:"id"`
			Name string `json:"name"`
		}
		if err := snap.Client().GetJSON(snap.Context(), "/api/heroes", &heroes); err != nil {
			return nil, err
		}
		items := make([]*vdom.VNode, 0, len(heroes))
		for _, h := range heroes {
			items = append(items, vdom.Li(vdom.Textf("%d %s", h.ID, h.Name)))
		}
		return vdom.Main(vdom.H1("Heroes"), vdom.Ul(items)), nil
	})

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest("GET", "/heroes", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200\n%s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()

	// Rendered content from the data API.
	if !strings.Contains(body, "12 Dr Nice") {
		t.Fatalf("response missing hero list:\n%s", body)
	}

	// Exactly one marker, carrying the app id.
	if got := strings.Count(body, "data-ssr-app="); got != 1 {
		t.Fatalf("marker count = %d, want 1:\n%s", got, body)
	}
	if !strings.Contains(body, `data-ssr-app="tour-of-heroes"`) {
		t.Fatalf("marker does not carry the app id:\n%s", body)
	}

	// Resolved lazy module emitted as a script tag.
	if !strings.Contains(body, `src="/heroes-detail.3f9a12cd.js"`) {
		t.Fatalf("response missing lazy module script:\n%s", body)
	}
	if !strings.Contains(body, `integrity="sha256-`) {
		t.Fatalf("module script has no integrity attribute:\n%s", body)
	}

	// Transfer state embedded for the client.
	if !strings.Contains(body, `data-ssr-state="tour-of-heroes"`) {
		t.Fatalf("response missing transfer state:\n%s", body)
	}
}

func TestLazyModuleMissingBundleFailsRender(t *testing.T) {
	modules, err := modmap.Parse([]byte(`{
	  "routes": {
	    "/heroes": [{"name": "heroes-detail", "bundle": "heroes-detail.3f9a12cd.js"}]
	  }
	}`))
	if err != nil {
		t.Fatalf("parse module map: %v", err)
	}

	app := newTestApp(t, func(cfg *Config) {
		cfg.Static.Dir = t.TempDir() // no bundle files
		cfg.Modules.Map = modules
	})
	app.Page("/heroes", simplePage)

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest("GET", "/heroes", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500 for unresolvable module", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "data-ssr-app") {
		t.Fatal("response with failed module resolution carries a marker")
	}
}

func TestConcurrentRendersIsolated(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Echo the hero id from the path so each render gets distinct data.
		id := strings.TrimPrefix(r.URL.Path, "/api/heroes/")
		fmt.Fprintf(w, `{"id":%s}`, id)
	}))
	defer backend.Close()

	app := newTestApp(t, func(cfg *Config) {
		cfg.Origin.BaseOrigin = backend.URL
	})
	app.Page("/heroes/{id}", func(snap *render.Snapshot) (*vdom.VNode, error) {
		id := strings.TrimPrefix(snap.Path(), "/heroes/")
		var hero struct {
			ID int `json:"id"`
		}
		if err := snap.Client().GetJSON(snap.Context(), "/api/heroes/"+id, &hero); err != nil {
			return nil, err
		}
		return vdom.Div(vdom.Textf("hero-%d", hero.ID)), nil
	})

	const n = 16
	var wg sync.WaitGroup
	bodies := make([]string, n)
	codes := make([]int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := httptest.NewRecorder()
			app.ServeHTTP(rec, httptest.NewRequest("GET", fmt.Sprintf("/heroes/%d", i), nil))
			bodies[i], codes[i] = rec.Body.String(), rec.Code
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		if codes[i] != http.StatusOK {
			t.Fatalf("request %d: status = %d\n%s", i, codes[i], bodies[i])
		}
		want := fmt.Sprintf("hero-%d", i)
		if !strings.Contains(bodies[i], want) {
			t.Fatalf("request %d: body missing %q (state leaked across renders?)", i, want)
		}
		wantState := fmt.Sprintf("/api/heroes/%d", i)
		if !strings.Contains(bodies[i], wantState) {
			t.Fatalf("request %d: transfer state missing %q", i, wantState)
		}
	}
}

// =============================================================================
// Data-API Forwarding
// =============================================================================

func TestAPIProxyForwards(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"path":%q}`, r.URL.Path)
	}))
	defer backend.Close()

	app := newTestApp(t, func(cfg *Config) {
		cfg.API.Backend = backend.URL
	})

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest("GET", "/api/heroes", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"/api/heroes"`) {
		t.Fatalf("backend did not see the API path:\n%s", rec.Body.String())
	}
}

func TestAPIProxyBackendUnreachable(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	backend.Close() // nothing is listening

	app := newTestApp(t, func(cfg *Config) {
		cfg.API.Backend = backend.URL
	})

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest("GET", "/api/heroes", nil))

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	var payload map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("error body is not JSON: %v\n%s", err, rec.Body.String())
	}
	if payload["code"] != "E501" {
		t.Fatalf("error code = %q, want E501", payload["code"])
	}
}

func TestAPIWithoutBackend502(t *testing.T) {
	app := newTestApp(t, nil)

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest("GET", "/api/heroes", nil))

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
}

func writeBundleFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}
