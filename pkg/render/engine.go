package render

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"runtime/debug"

	"github.com/prerend-dev/prerend/pkg/hydrate"
	"github.com/prerend-dev/prerend/pkg/vdom"
)

// ErrNilPage is returned when a page handler produces no node.
var ErrNilPage = errors.New("render: page handler returned nil node")

// PanicError reports a panic recovered from application rendering
// logic. Renders that panic produce no partial output.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("render: page handler panicked: %v", e.Value)
}

// PageFunc produces the vdom tree for one route from its snapshot.
type PageFunc func(*Snapshot) (*vdom.VNode, error)

// Result is the output of a completed render. It is created once,
// consumed once by the gateway, then discarded.
type Result struct {
	// HTML is the complete document, doctype included.
	HTML string

	// Markers lists the hydration marker ids embedded in the document,
	// in emission order. Each id is unique within the response.
	Markers []string

	// State is the serialized transfer state embedded in the document,
	// nil when the render fetched nothing.
	State []byte
}

// EngineConfig configures a render Engine.
type EngineConfig struct {
	// AppID is the application identifier stamped onto the rendered
	// root for the hydration handoff.
	AppID string

	// AssetPrefix is the URL prefix module bundle script paths are
	// emitted under. Defaults to "/".
	AssetPrefix string

	// Renderer configures the underlying HTML renderer.
	Renderer RendererConfig
}

// Engine drives a page render end to end: executes the page handler,
// stamps hydration markers, and composes the final document.
type Engine struct {
	appID       string
	assetPrefix string
	renderer    *Renderer
}

// NewEngine creates an Engine.
func NewEngine(cfg EngineConfig) *Engine {
	prefix := cfg.AssetPrefix
	if prefix == "" {
		prefix = "/"
	}
	return &Engine{
		appID:       cfg.AppID,
		assetPrefix: prefix,
		renderer:    NewRenderer(cfg.Renderer),
	}
}

// RenderPage executes the page handler against the snapshot and
// composes the complete HTML document. Identical snapshots yield
// byte-identical documents. Any handler error or panic aborts the whole
// render; no partial document is ever returned.
func (e *Engine) RenderPage(snap *Snapshot, page PageFunc, doc DocumentData) (result *Result, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			result = nil
			err = &PanicError{Value: rec, Stack: debug.Stack()}
		}
	}()

	node, err := page(snap)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, ErrNilPage
	}

	// A render that outlived its deadline must not produce a result,
	// even if the handler happened to finish.
	if err := snap.Context().Err(); err != nil {
		return nil, err
	}

	markers := hydrate.NewMarkerSet(e.appID)
	root := stampRoot(node, markers)

	var state []byte
	if snap.State().Len() > 0 {
		state, err = snap.State().MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("render: serialize transfer state: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := e.composeDocument(&buf, root, snap, markers, state, doc); err != nil {
		return nil, err
	}

	return &Result{
		HTML:    buf.String(),
		Markers: markers.IDs(),
		State:   state,
	}, nil
}

// Renderer returns the engine's HTML renderer.
func (e *Engine) Renderer() *Renderer {
	return e.renderer
}

// stampRoot marks the application root with its hydration id. Fragments
// and non-element roots are wrapped so the marker has a DOM anchor.
func stampRoot(node *vdom.VNode, markers *hydrate.MarkerSet) *vdom.VNode {
	if node.Kind != vdom.KindElement {
		node = vdom.Div(node)
	}
	node.SetAttr(hydrate.AttrApp, markers.Next())
	return node
}

func (e *Engine) composeDocument(w io.Writer, root *vdom.VNode, snap *Snapshot, markers *hydrate.MarkerSet, state []byte, doc DocumentData) error {
	lang := doc.Lang
	if lang == "" {
		lang = "en"
	}

	if _, err := io.WriteString(w, "<!DOCTYPE html>\n"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, `<html lang="%s">`+"\n", escapeAttr(lang)); err != nil {
		return err
	}
	if err := e.renderer.renderHead(w, doc); err != nil {
		return err
	}
	if _, err := io.WriteString(w, "<body>\n"); err != nil {
		return err
	}

	if err := e.renderer.RenderToWriter(w, root); err != nil {
		return err
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return err
	}

	if err := e.renderTransferState(w, markers, state); err != nil {
		return err
	}
	if err := e.renderModuleScripts(w, snap); err != nil {
		return err
	}
	for _, script := range doc.BodyScripts {
		if err := renderScriptTag(w, script); err != nil {
			return err
		}
	}

	_, err := io.WriteString(w, "</body>\n</html>\n")
	return err
}

// renderTransferState embeds the data fetched during the render so the
// client can skip re-fetching it.
func (e *Engine) renderTransferState(w io.Writer, markers *hydrate.MarkerSet, state []byte) error {
	if len(state) == 0 {
		return nil
	}
	_, err := fmt.Fprintf(w, `  <script type="application/json" %s="%s">%s</script>`+"\n",
		hydrate.AttrState, escapeAttr(markers.AppID()), escapeStateJSON(string(state)))
	return err
}

// renderModuleScripts emits one script tag per resolved lazy module, so
// the client loads exactly the code whose UI the document already
// contains.
func (e *Engine) renderModuleScripts(w io.Writer, snap *Snapshot) error {
	for _, mod := range snap.Modules() {
		tag := ScriptTag{
			Src:       path.Join(e.assetPrefix, mod.Bundle),
			Integrity: mod.Integrity,
			Defer:     true,
		}
		if err := renderScriptTag(w, tag); err != nil {
			return err
		}
	}
	return nil
}
