// Package hydrate implements the marker protocol that hands
// server-rendered markup over to the client runtime.
//
// The protocol is a write/read-once contract over a shared identifier
// namespace: the server stamps every rendered application root with a
// data-ssr-app marker, and the client locates the marked subtree, adopts
// it instead of re-rendering, and strips the marker. A marker is
// consumed exactly once; a missing or mismatched marker means the client
// must fall back to a full client-side render.
package hydrate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	// AttrApp marks a server-rendered application root with its appID.
	AttrApp = "data-ssr-app"

	// AttrState marks the serialized transfer-state script for an appID.
	AttrState = "data-ssr-state"
)

// ErrMarkerMismatch is returned when markup carries no marker for the
// requested appID. The caller's recovery is a full client-side render;
// this error is never fatal to the application.
var ErrMarkerMismatch = errors.New("hydrate: no marker for app id")

// MarkerSet issues response-unique marker ids for one render. The first
// root gets the bare appID, later roots get a numbered suffix, so
// multiple server-rendered regions on one page stay distinguishable.
type MarkerSet struct {
	appID  string
	issued []string
}

// NewMarkerSet returns a marker set scoped to one response.
func NewMarkerSet(appID string) *MarkerSet {
	return &MarkerSet{appID: appID}
}

// AppID returns the application identifier the set was created with.
func (s *MarkerSet) AppID() string { return s.appID }

// Next issues the next marker id.
func (s *MarkerSet) Next() string {
	var id string
	if len(s.issued) == 0 {
		id = s.appID
	} else {
		id = fmt.Sprintf("%s-%d", s.appID, len(s.issued)+1)
	}
	s.issued = append(s.issued, id)
	return id
}

// IDs returns every marker id issued so far.
func (s *MarkerSet) IDs() []string {
	out := make([]string, len(s.issued))
	copy(out, s.issued)
	return out
}

// Anchor describes a located server-rendered subtree.
type Anchor struct {
	// ID is the marker id found on the root element.
	ID string

	// Tag is the root element's tag name.
	Tag string

	// InnerHTML is the server-rendered content of the subtree.
	InnerHTML string
}

// Annotate stamps the first top-level element of the fragment with the
// given marker id. Rendered documents normally get their markers from
// the renderer directly; Annotate covers markup produced elsewhere.
func Annotate(html, id string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("hydrate: parse markup: %w", err)
	}
	root := doc.Find("body > *").First()
	if root.Length() == 0 {
		return "", fmt.Errorf("hydrate: no element to annotate")
	}
	root.SetAttr(AttrApp, id)
	return doc.Find("body").Html()
}

// Locate finds the subtree marked with the given appID. It accepts both
// full documents and fragments. When no matching marker exists it
// returns ErrMarkerMismatch, signalling the full-client-render fallback.
func Locate(html, appID string) (*Anchor, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("hydrate: parse markup: %w", err)
	}
	sel := doc.Find(fmt.Sprintf("[%s=%q]", AttrApp, appID))
	if sel.Length() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrMarkerMismatch, appID)
	}
	root := sel.First()
	inner, err := root.Html()
	if err != nil {
		return nil, fmt.Errorf("hydrate: extract subtree: %w", err)
	}
	return &Anchor{
		ID:        appID,
		Tag:       goquery.NodeName(root),
		InnerHTML: inner,
	}, nil
}

// Strip removes the marker for appID and its transfer-state script from
// the markup, completing the read-once handoff. Locating the same appID
// in the stripped markup reports ErrMarkerMismatch.
func Strip(html, appID string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("hydrate: parse markup: %w", err)
	}
	sel := doc.Find(fmt.Sprintf("[%s=%q]", AttrApp, appID))
	if sel.Length() == 0 {
		return "", fmt.Errorf("%w: %s", ErrMarkerMismatch, appID)
	}
	sel.RemoveAttr(AttrApp)
	doc.Find(fmt.Sprintf("script[%s=%q]", AttrState, appID)).Remove()
	return doc.Find("body").Html()
}

// State extracts the serialized transfer state embedded for appID, or
// ErrMarkerMismatch when none is present.
func State(html, appID string) ([]byte, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("hydrate: parse markup: %w", err)
	}
	sel := doc.Find(fmt.Sprintf("script[%s=%q]", AttrState, appID))
	if sel.Length() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrMarkerMismatch, appID)
	}
	return []byte(sel.First().Text()), nil
}
