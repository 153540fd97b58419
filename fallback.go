package prerend

import (
	"net/http"
	"strings"

	"github.com/prerend-dev/prerend/internal/dev"
	"github.com/prerend-dev/prerend/pkg/vdom"
)

// =============================================================================
// Fallback Responses
// =============================================================================

// writeFallback answers a failed render with the unrendered document
// shell: an unmarked application root plus the configured body scripts.
// The client runtime finds no hydration marker and performs a full
// client-side render. No partial server HTML is ever written.
func (a *App) writeFallback(w http.ResponseWriter, status int) {
	var b strings.Builder
	root := vdom.Div(vdom.Props{"id": "app"})

	if err := a.engine.Renderer().RenderDocument(&b, a.config.Document, root); err != nil {
		// Composing the shell failed too; a plain error is all that is left.
		a.logger.Error("fallback shell failed", "error", err)
		http.Error(w, http.StatusText(status), status)
		return
	}

	html := b.String()
	if a.reload != nil {
		html = dev.InjectScript(html)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	w.Write([]byte(html))
}
