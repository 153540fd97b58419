// Package render is the server-side render engine. It turns a page
// handler's vdom tree into a complete HTML document: deterministic
// markup for identical trees, hydration markers on every application
// root, serialized transfer state, and script tags for the route's
// resolved lazy modules.
//
// A render is a pure function of its Snapshot. Snapshots are built fresh
// per request and never shared, which is what keeps concurrent renders
// for unrelated users isolated from each other.
package render
