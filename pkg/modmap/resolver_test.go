package modmap

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"testing/fstest"
	"time"
)

func testMap(t *testing.T) *Map {
	t.Helper()
	m, err := Parse([]byte(`{
	  "routes": {
	    "/heroes": [{"name": "heroes-detail", "bundle": "heroes-detail.3f9a12cd.js"}]
	  }
	}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return m
}

func TestBundleLoader(t *testing.T) {
	fsys := fstest.MapFS{
		"heroes-detail.3f9a12cd.js": {Data: []byte("export const heroes = 1;\n")},
	}
	loader := NewBundleLoader(fsys)

	mod, err := loader.LoadModule(context.Background(), ModuleRef{Name: "heroes-detail", Bundle: "heroes-detail.3f9a12cd.js"})
	if err != nil {
		t.Fatalf("LoadModule: %v", err)
	}
	if mod.Name != "heroes-detail" {
		t.Fatalf("Name = %q, want heroes-detail", mod.Name)
	}
	if mod.Size != int64(len("export const heroes = 1;\n")) {
		t.Fatalf("Size = %d", mod.Size)
	}
	if !strings.HasPrefix(mod.Integrity, "sha256-") {
		t.Fatalf("Integrity = %q, want sha256- prefix", mod.Integrity)
	}
}

func TestBundleLoaderMissingBundle(t *testing.T) {
	loader := NewBundleLoader(fstest.MapFS{})

	_, err := loader.LoadModule(context.Background(), ModuleRef{Name: "heroes-detail", Bundle: "gone.js"})
	if !errors.Is(err, ErrBundleMissing) {
		t.Fatalf("err = %v, want ErrBundleMissing", err)
	}
}

func TestBundleLoaderEmptyBundle(t *testing.T) {
	loader := NewBundleLoader(fstest.MapFS{"empty.js": {Data: nil}})

	if _, err := loader.LoadModule(context.Background(), ModuleRef{Name: "x", Bundle: "empty.js"}); err == nil {
		t.Fatal("expected error for empty bundle")
	}
}

func TestBundleLoaderCancelledContext(t *testing.T) {
	loader := NewBundleLoader(fstest.MapFS{"a.js": {Data: []byte("x")}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := loader.LoadModule(ctx, ModuleRef{Name: "a", Bundle: "a.js"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

// countingLoader wraps a Loader and counts invocations per module.
type countingLoader struct {
	inner Loader
	calls atomic.Int64
	gate  chan struct{}
}

func (l *countingLoader) LoadModule(ctx context.Context, ref ModuleRef) (*Module, error) {
	l.calls.Add(1)
	if l.gate != nil {
		<-l.gate
	}
	return l.inner.LoadModule(ctx, ref)
}

func TestResolverResolve(t *testing.T) {
	fsys := fstest.MapFS{
		"heroes-detail.3f9a12cd.js": {Data: []byte("bundle")},
	}
	r := NewResolver(testMap(t), NewBundleLoader(fsys))

	mods, err := r.Resolve(context.Background(), "/heroes")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(mods) != 1 || mods[0].Name != "heroes-detail" {
		t.Fatalf("mods = %+v, want one heroes-detail module", mods)
	}
	if !r.Cached("heroes-detail") {
		t.Fatal("module not cached after successful resolve")
	}
}

func TestResolverNoModules(t *testing.T) {
	r := NewResolver(testMap(t), NewBundleLoader(fstest.MapFS{}))

	mods, err := r.Resolve(context.Background(), "/about")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if mods != nil {
		t.Fatalf("mods = %+v, want nil for route without lazy modules", mods)
	}
}

func TestResolverCachesAfterFirstLoad(t *testing.T) {
	loader := &countingLoader{inner: NewBundleLoader(fstest.MapFS{
		"heroes-detail.3f9a12cd.js": {Data: []byte("bundle")},
	})}
	r := NewResolver(testMap(t), loader)

	for i := 0; i < 5; i++ {
		if _, err := r.Resolve(context.Background(), "/heroes"); err != nil {
			t.Fatalf("Resolve %d: %v", i, err)
		}
	}
	if got := loader.calls.Load(); got != 1 {
		t.Fatalf("loader calls = %d, want 1", got)
	}
}

func TestResolverDoesNotCacheFailures(t *testing.T) {
	fsys := fstest.MapFS{}
	loader := &countingLoader{inner: NewBundleLoader(fsys)}
	r := NewResolver(testMap(t), loader)

	if _, err := r.Resolve(context.Background(), "/heroes"); !errors.Is(err, ErrBundleMissing) {
		t.Fatalf("first resolve err = %v, want ErrBundleMissing", err)
	}

	// The bundle shows up later; the next resolve must retry the load.
	fsys["heroes-detail.3f9a12cd.js"] = &fstest.MapFile{Data: []byte("bundle")}
	if _, err := r.Resolve(context.Background(), "/heroes"); err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if got := loader.calls.Load(); got != 2 {
		t.Fatalf("loader calls = %d, want 2", got)
	}
}

func TestResolverCollapsesConcurrentLoads(t *testing.T) {
	loader := &countingLoader{
		inner: NewBundleLoader(fstest.MapFS{
			"heroes-detail.3f9a12cd.js": {Data: []byte("bundle")},
		}),
		gate: make(chan struct{}),
	}
	r := NewResolver(testMap(t), loader)

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = r.Resolve(context.Background(), "/heroes")
		}(i)
	}

	// Hold the first load open until the other goroutines are queued
	// behind it.
	for loader.calls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	close(loader.gate)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("resolve %d: %v", i, err)
		}
	}
	if got := loader.calls.Load(); got != 1 {
		t.Fatalf("loader calls = %d, want 1 (concurrent loads collapsed)", got)
	}
}
