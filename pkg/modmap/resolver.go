package modmap

import (
	"context"
	"sync"
)

// Resolver resolves the lazy modules a route needs, synchronously with
// respect to the render that asked for them.
//
// Modules are cached after the first successful load and treated as
// read-only afterwards; concurrent first loads of the same module are
// collapsed into one. Failed loads are not cached, so a bundle that
// appears later (e.g. after a redeploy) resolves on the next request.
type Resolver struct {
	m      *Map
	loader Loader

	mu       sync.Mutex
	cache    map[string]*Module
	inflight map[string]*loadCall
}

type loadCall struct {
	done chan struct{}
	mod  *Module
	err  error
}

// NewResolver returns a resolver over the given map and loader.
func NewResolver(m *Map, loader Loader) *Resolver {
	return &Resolver{
		m:        m,
		loader:   loader,
		cache:    make(map[string]*Module),
		inflight: make(map[string]*loadCall),
	}
}

// Resolve returns every lazy module the route depends on, in the order
// the module map lists them. It returns only when all modules are fully
// loaded; any failure aborts resolution and must surface as a render
// failure to the caller.
func (r *Resolver) Resolve(ctx context.Context, route string) ([]*Module, error) {
	refs, ok := r.m.ModulesFor(route)
	if !ok {
		return nil, nil
	}

	mods := make([]*Module, 0, len(refs))
	for _, ref := range refs {
		mod, err := r.load(ctx, ref)
		if err != nil {
			return nil, err
		}
		mods = append(mods, mod)
	}
	return mods, nil
}

// load returns the cached module or loads it, collapsing concurrent
// loads of the same module into a single loader call.
func (r *Resolver) load(ctx context.Context, ref ModuleRef) (*Module, error) {
	r.mu.Lock()
	if mod, ok := r.cache[ref.Name]; ok {
		r.mu.Unlock()
		return mod, nil
	}
	if call, ok := r.inflight[ref.Name]; ok {
		r.mu.Unlock()
		select {
		case <-call.done:
			return call.mod, call.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	call := &loadCall{done: make(chan struct{})}
	r.inflight[ref.Name] = call
	r.mu.Unlock()

	call.mod, call.err = r.loader.LoadModule(ctx, ref)
	close(call.done)

	r.mu.Lock()
	delete(r.inflight, ref.Name)
	if call.err == nil {
		r.cache[ref.Name] = call.mod
	}
	r.mu.Unlock()

	return call.mod, call.err
}

// Cached reports whether the named module has been resolved already.
func (r *Resolver) Cached(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.cache[name]
	return ok
}
