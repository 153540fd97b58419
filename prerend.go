// Package prerend provides the public API for the prerend SSR gateway.
//
// This is the recommended import for most applications:
//
//	import "github.com/prerend-dev/prerend"
//
// Usage:
//
//	app, err := prerend.New(prerend.Config{
//	    AppID:  "tour-of-heroes",
//	    Origin: prerend.OriginConfig{BaseOrigin: "http://localhost:4000"},
//	    Static: prerend.StaticConfig{Dir: "dist/browser"},
//	    Modules: prerend.ModulesConfig{Path: "dist/modules.json"},
//	})
//	app.Page("/heroes", heroesPage)
package prerend

import (
	"github.com/prerend-dev/prerend/pkg/origin"
	"github.com/prerend-dev/prerend/pkg/render"
	"github.com/prerend-dev/prerend/pkg/vdom"
)

// =============================================================================
// Rendering (re-export from pkg/render and pkg/vdom)
// =============================================================================

// VNode is a node in the component tree.
type VNode = vdom.VNode

// Props holds element attributes.
type Props = vdom.Props

// PageFunc produces a page's component tree from the request snapshot.
type PageFunc = render.PageFunc

// Snapshot is the per-request render context: route request, origin
// context, resolved lazy modules, and transfer state.
type Snapshot = render.Snapshot

// DocumentData describes the document shell around the application root.
type DocumentData = render.DocumentData

// ScriptTag represents a script element in the document shell.
type ScriptTag = render.ScriptTag

// =============================================================================
// Element helpers (re-export from pkg/vdom)
// =============================================================================

var (
	El       = vdom.El
	Fragment = vdom.Fragment
	Text     = vdom.Text
	Textf    = vdom.Textf
	Raw      = vdom.Raw

	Div  = vdom.Div
	Span = vdom.Span
	Main = vdom.Main
	Nav  = vdom.Nav
	H1   = vdom.H1
	H2   = vdom.H2
	P    = vdom.P
	Ul   = vdom.Ul
	Li   = vdom.Li
	A    = vdom.A
)

// =============================================================================
// Origin context (re-export from pkg/origin)
// =============================================================================

// OriginContext tells rendering code whether it runs server-side and
// which base origin absolute URLs are built from.
type OriginContext = origin.Context

// BuildURL resolves a possibly-relative data URL against the origin
// context.
var BuildURL = origin.BuildURL
