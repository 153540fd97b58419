package render

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sort"
	"sync"

	"github.com/prerend-dev/prerend/pkg/modmap"
	"github.com/prerend-dev/prerend/pkg/origin"
)

// RouteRequest is the immutable description of the inbound page request
// a render works from.
type RouteRequest struct {
	Path    string
	Query   url.Values
	Headers http.Header
}

// RouteRequestFrom extracts a RouteRequest from an HTTP request.
func RouteRequestFrom(r *http.Request) RouteRequest {
	return RouteRequest{
		Path:    r.URL.Path,
		Query:   r.URL.Query(),
		Headers: r.Header,
	}
}

// TransferState collects payloads fetched during a server render, keyed
// by absolute request URL, so the client can reuse them instead of
// re-fetching. It implements origin.Recorder.
type TransferState struct {
	mu      sync.Mutex
	entries map[string]json.RawMessage
}

// NewTransferState returns an empty transfer state.
func NewTransferState() *TransferState {
	return &TransferState{entries: make(map[string]json.RawMessage)}
}

// Record stores a fetched payload under its request URL.
func (t *TransferState) Record(url string, payload []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[url] = json.RawMessage(append([]byte(nil), payload...))
}

// Get returns the recorded payload for a URL, if any.
func (t *TransferState) Get(url string) ([]byte, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	payload, ok := t.entries[url]
	return payload, ok
}

// Len returns the number of recorded entries.
func (t *TransferState) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// MarshalJSON serializes entries with sorted keys for deterministic
// output.
func (t *TransferState) MarshalJSON() ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	keys := make([]string, 0, len(t.entries))
	for key := range t.entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	ordered := make(map[string]json.RawMessage, len(t.entries))
	for _, key := range keys {
		ordered[key] = t.entries[key]
	}
	// encoding/json already sorts map keys; the copy keeps the lock
	// window short.
	return json.Marshal(ordered)
}

// Snapshot is the application snapshot for one render: the route, the
// resolved lazy modules, the origin context and the transfer state.
// It is owned exclusively by the render that created it.
type Snapshot struct {
	stdCtx  context.Context
	request RouteRequest
	octx    origin.Context
	modules []*modmap.Module
	state   *TransferState
	client  *origin.Client
	values  map[any]any
}

// NewSnapshot builds a request-scoped snapshot. hc may be nil to use the
// default HTTP client for data fetches.
func NewSnapshot(ctx context.Context, req RouteRequest, octx origin.Context, modules []*modmap.Module, hc *http.Client) *Snapshot {
	state := NewTransferState()
	return &Snapshot{
		stdCtx:  ctx,
		request: req,
		octx:    octx,
		modules: modules,
		state:   state,
		client:  origin.NewClient(octx, hc, state),
		values:  make(map[any]any),
	}
}

// Context returns the context bounding the render. Data fetches made
// through Client() abort when it is cancelled.
func (s *Snapshot) Context() context.Context { return s.stdCtx }

// Request returns the route request being rendered.
func (s *Snapshot) Request() RouteRequest { return s.request }

// Path returns the request path.
func (s *Snapshot) Path() string { return s.request.Path }

// QueryParam returns a single query parameter value.
func (s *Snapshot) QueryParam(key string) string { return s.request.Query.Get(key) }

// Origin returns the render's origin context.
func (s *Snapshot) Origin() origin.Context { return s.octx }

// Modules returns the lazy modules resolved for this route.
func (s *Snapshot) Modules() []*modmap.Module { return s.modules }

// Client returns the origin-aware data-fetch client for this render.
// Payloads fetched through it are recorded into the transfer state.
func (s *Snapshot) Client() *origin.Client { return s.client }

// State returns the transfer state collected so far.
func (s *Snapshot) State() *TransferState { return s.state }

// SetValue stores a request-scoped value, for handler-to-layout
// communication within one render.
func (s *Snapshot) SetValue(key, value any) { s.values[key] = value }

// Value returns a request-scoped value.
func (s *Snapshot) Value(key any) any { return s.values[key] }
