package modmap

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"io/fs"
)

// ErrBundleMissing indicates a module map entry whose bundle file does
// not exist in the client bundle directory.
var ErrBundleMissing = errors.New("modmap: bundle file missing")

// Module is a fully resolved lazy module, ready to be referenced from a
// rendered page. Resolved modules are read-only artifacts.
type Module struct {
	// Name is the lazy-route identifier.
	Name string

	// Bundle is the bundle file path relative to the client bundle
	// directory, used to emit the module's script tag.
	Bundle string

	// Size is the bundle size in bytes.
	Size int64

	// Integrity is the subresource integrity value (sha256-<base64>)
	// of the bundle contents.
	Integrity string
}

// Loader materializes a module from its build-time reference.
type Loader interface {
	LoadModule(ctx context.Context, ref ModuleRef) (*Module, error)
}

// BundleLoader loads modules by reading their bundle files from the
// client bundle filesystem.
type BundleLoader struct {
	fsys fs.FS
}

// NewBundleLoader returns a loader reading bundles from fsys, typically
// os.DirFS of the client bundle directory.
func NewBundleLoader(fsys fs.FS) *BundleLoader {
	return &BundleLoader{fsys: fsys}
}

// LoadModule reads the referenced bundle and returns the resolved
// module. A missing or unreadable bundle is a resolution failure, not
// something to skip: the page render must not proceed without it.
func (l *BundleLoader) LoadModule(ctx context.Context, ref ModuleRef) (*Module, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := l.fsys.Open(ref.Bundle)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("modmap: module %q: %w: %s", ref.Name, ErrBundleMissing, ref.Bundle)
		}
		return nil, fmt.Errorf("modmap: module %q: open %s: %w", ref.Name, ref.Bundle, err)
	}
	defer f.Close()

	h := sha256.New()
	size, err := io.Copy(h, f)
	if err != nil {
		return nil, fmt.Errorf("modmap: module %q: read %s: %w", ref.Name, ref.Bundle, err)
	}
	if size == 0 {
		return nil, fmt.Errorf("modmap: module %q: bundle %s is empty", ref.Name, ref.Bundle)
	}

	return &Module{
		Name:      ref.Name,
		Bundle:    ref.Bundle,
		Size:      size,
		Integrity: "sha256-" + base64.StdEncoding.EncodeToString(h.Sum(nil)),
	}, nil
}
