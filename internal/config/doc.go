// Package config loads prerend.json and overlays PREREND_* environment
// variables on top of it.
//
// The file carries deployment-stable settings (paths, prefixes, timeouts);
// the environment carries per-instance settings such as the listen address
// and the base origin. Environment values always win over file values.
//
// Validation is fail-fast: a gateway must not start without a base origin
// or with a module map it cannot read, because both failures would
// otherwise surface as broken responses under load.
package config
