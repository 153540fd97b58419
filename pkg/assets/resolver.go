package assets

// Resolver provides asset path resolution.
// It combines manifest lookup with path prefixing.
type Resolver interface {
	// Asset resolves a source asset path to its full URL path,
	// including any configured prefix and fingerprinted filename.
	//
	// Example:
	//   resolver.Asset("main.js") -> "/main.3f9a12cd.js"
	Asset(source string) string
}

// manifestResolver wraps a Manifest to implement Resolver.
type manifestResolver struct {
	manifest *Manifest
	prefix   string
}

// NewResolver creates a Resolver from a Manifest with an optional path
// prefix. The prefix is prepended to all resolved paths.
//
// Example:
//
//	manifest, _ := assets.Load("dist/browser/manifest.json")
//	resolver := assets.NewResolver(manifest, "/")
//	resolver.Asset("main.js") // "/main.3f9a12cd.js"
func NewResolver(m *Manifest, prefix string) Resolver {
	return &manifestResolver{
		manifest: m,
		prefix:   prefix,
	}
}

func (r *manifestResolver) Asset(source string) string {
	resolved := r.manifest.Resolve(source)
	return r.prefix + resolved
}

// passthrough returns assets unchanged (for development mode).
type passthrough struct {
	prefix string
}

// NewPassthroughResolver creates a resolver that returns paths
// unchanged. Use this in development mode where fingerprinting is
// disabled. The prefix is still applied, so dev and prod paths remain
// consistent.
func NewPassthroughResolver(prefix string) Resolver {
	return &passthrough{prefix: prefix}
}

func (p *passthrough) Asset(source string) string {
	return p.prefix + source
}
