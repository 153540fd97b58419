// Package dev implements the development-mode live reload loop: a
// WebSocket endpoint browsers connect to, a polling watcher over the
// client bundle directory, and the script injected into rendered pages
// that reloads the browser when the bundle changes.
package dev
