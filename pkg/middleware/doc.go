// Package middleware provides HTTP middleware for the SSR gateway:
// Prometheus metrics and OpenTelemetry tracing.
//
// Both middlewares are standard func(http.Handler) http.Handler wrappers
// and can be applied to the App directly or mounted on an outer mux:
//
//	handler := middleware.Prometheus(middleware.WithClassifier(app.Classify))(app)
//	handler = middleware.OpenTelemetry()(handler)
//	http.ListenAndServe(":4000", handler)
package middleware
