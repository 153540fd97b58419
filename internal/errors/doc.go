// Package errors provides structured, actionable errors for the prerend
// gateway.
//
// Each error carries a stable code, a category, a plain-language
// message, and optionally a fix suggestion and documentation link. The
// CLI uses the formatted form; the gateway logs the short form.
//
// # Error Categories
//
// Errors are organized into categories:
//   - resolve: module map / lazy module resolution failures
//   - render: errors raised inside application rendering logic
//   - timeout: renders exceeding their deadline
//   - config: startup configuration problems (fatal before serving)
//   - hydration: server/client marker mismatches
//   - proxy: data-API forwarding failures
package errors
