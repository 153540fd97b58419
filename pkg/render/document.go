package render

import (
	"fmt"
	"io"

	"github.com/prerend-dev/prerend/pkg/vdom"
)

// DocumentData describes the document shell around the rendered
// application root.
type DocumentData struct {
	// Title is the page title.
	Title string

	// Lang is the html element's language attribute. Defaults to "en".
	Lang string

	// Meta contains additional meta tags for the head.
	Meta []MetaTag

	// Links contains link tags (favicon, preload, etc.).
	Links []LinkTag

	// StyleSheets contains external stylesheet paths.
	StyleSheets []string

	// HeadScripts are script tags emitted in the head (defer/async).
	HeadScripts []ScriptTag

	// BodyScripts are script tags emitted at the end of the body,
	// after the application root and module bundles.
	BodyScripts []ScriptTag
}

// MetaTag represents a meta element in the document head.
type MetaTag struct {
	Name      string
	Content   string
	Property  string
	HTTPEquiv string
}

// LinkTag represents a link element in the document head.
type LinkTag struct {
	Rel   string
	Href  string
	Type  string
	Sizes string
}

// ScriptTag represents a script element.
type ScriptTag struct {
	Src       string
	Type      string
	Defer     bool
	Async     bool
	Module    bool
	Integrity string
	Inline    string
}

// RenderDocument writes a complete document shell carrying the given
// body nodes and no hydration markers. The gateway serves this shell
// when a render fails and the client must perform a full client-side
// render instead of adopting server markup.
func (r *Renderer) RenderDocument(w io.Writer, doc DocumentData, body ...*vdom.VNode) error {
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
	if err := r.renderHead(w, doc); err != nil {
		return err
	}
	if _, err := io.WriteString(w, "<body>\n"); err != nil {
		return err
	}
	for _, node := range body {
		if err := r.RenderToWriter(w, node); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}
	for _, script := range doc.BodyScripts {
		if err := renderScriptTag(w, script); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "</body>\n</html>\n")
	return err
}

func (r *Renderer) renderHead(w io.Writer, doc DocumentData) error {
	if _, err := io.WriteString(w, "<head>\n"); err != nil {
		return err
	}
	if _, err := io.WriteString(w, `  <meta charset="utf-8">`+"\n"); err != nil {
		return err
	}
	if _, err := io.WriteString(w, `  <meta name="viewport" content="width=device-width, initial-scale=1">`+"\n"); err != nil {
		return err
	}

	if doc.Title != "" {
		if _, err := fmt.Fprintf(w, "  <title>%s</title>\n", escapeHTML(doc.Title)); err != nil {
			return err
		}
	}

	for _, meta := range doc.Meta {
		if err := renderMetaTag(w, meta); err != nil {
			return err
		}
	}
	for _, link := range doc.Links {
		if err := renderLinkTag(w, link); err != nil {
			return err
		}
	}
	for _, href := range doc.StyleSheets {
		if _, err := fmt.Fprintf(w, `  <link rel="stylesheet" href="%s">`+"\n", escapeAttr(href)); err != nil {
			return err
		}
	}
	for _, script := range doc.HeadScripts {
		if err := renderScriptTag(w, script); err != nil {
			return err
		}
	}

	_, err := io.WriteString(w, "</head>\n")
	return err
}

func renderMetaTag(w io.Writer, meta MetaTag) error {
	if _, err := io.WriteString(w, "  <meta"); err != nil {
		return err
	}
	for _, attr := range []struct{ name, value string }{
		{"name", meta.Name},
		{"property", meta.Property},
		{"http-equiv", meta.HTTPEquiv},
		{"content", meta.Content},
	} {
		if attr.value == "" {
			continue
		}
		if _, err := fmt.Fprintf(w, ` %s="%s"`, attr.name, escapeAttr(attr.value)); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, ">\n")
	return err
}

func renderLinkTag(w io.Writer, link LinkTag) error {
	if _, err := io.WriteString(w, "  <link"); err != nil {
		return err
	}
	for _, attr := range []struct{ name, value string }{
		{"rel", link.Rel},
		{"href", link.Href},
		{"type", link.Type},
		{"sizes", link.Sizes},
	} {
		if attr.value == "" {
			continue
		}
		if _, err := fmt.Fprintf(w, ` %s="%s"`, attr.name, escapeAttr(attr.value)); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, ">\n")
	return err
}

func renderScriptTag(w io.Writer, script ScriptTag) error {
	if _, err := io.WriteString(w, "  <script"); err != nil {
		return err
	}
	if script.Src != "" {
		if _, err := fmt.Fprintf(w, ` src="%s"`, escapeAttr(script.Src)); err != nil {
			return err
		}
	}
	if script.Module {
		if _, err := io.WriteString(w, ` type="module"`); err != nil {
			return err
		}
	} else if script.Type != "" {
		if _, err := fmt.Fprintf(w, ` type="%s"`, escapeAttr(script.Type)); err != nil {
			return err
		}
	}
	if script.Integrity != "" {
		if _, err := fmt.Fprintf(w, ` integrity="%s"`, escapeAttr(script.Integrity)); err != nil {
			return err
		}
	}
	if script.Defer {
		if _, err := io.WriteString(w, " defer"); err != nil {
			return err
		}
	}
	if script.Async {
		if _, err := io.WriteString(w, " async"); err != nil {
			return err
		}
	}
	if _, err := io.WriteString(w, ">"); err != nil {
		return err
	}
	if script.Inline != "" {
		if _, err := io.WriteString(w, script.Inline); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "</script>\n")
	return err
}
