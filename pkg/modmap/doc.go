// Package modmap maps routes to the lazily-loaded modules they need and
// resolves those modules during a server render.
//
// The module map is produced by the client build as a JSON metadata file
// and loaded once at gateway startup:
//
//	{
//	  "routes": {
//	    "/heroes": [{"name": "heroes-detail", "bundle": "heroes-detail.3f9a12cd.js"}]
//	  }
//	}
//
// The map is frozen after Load and shared read-only across concurrent
// renders. Resolution is synchronous relative to the render call: a page
// response never reflects a lazy route whose module is still pending,
// because there is no later event-loop turn on the server to finish it.
package modmap
