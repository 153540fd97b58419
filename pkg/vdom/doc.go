// Package vdom defines the node tree that server-side renders are built
// from. A page handler produces a *VNode tree; pkg/render serializes it
// to HTML. Nodes are plain values with no behavior of their own, which
// keeps render output a pure function of the tree.
package vdom
