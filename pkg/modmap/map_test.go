package modmap

import (
	"os"
	"path/filepath"
	"testing"
)

const heroesMapJSON = `{
  "routes": {
    "/heroes": [
      {"name": "heroes-detail", "bundle": "heroes-detail.3f9a12cd.js"}
    ],
    "/dashboard": [
      {"name": "dashboard", "bundle": "dashboard.91be04aa.js"},
      {"name": "charts", "bundle": "charts.0cc17de2.js"}
    ]
  }
}`

func writeMapFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "modules.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write map file: %v", err)
	}
	return path
}

func TestParse(t *testing.T) {
	m, err := Parse([]byte(heroesMapJSON))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if m.Len() != 2 {
		t.Fatalf("Len = %d, want 2", m.Len())
	}

	refs, ok := m.ModulesFor("/heroes")
	if !ok {
		t.Fatal("ModulesFor(/heroes) = false, want true")
	}
	if len(refs) != 1 || refs[0].Name != "heroes-detail" {
		t.Fatalf("refs = %+v, want one heroes-detail entry", refs)
	}
}

func TestParseInvalidJSON(t *testing.T) {
	if _, err := Parse([]byte("{not json")); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestParseRejectsIncompleteEntry(t *testing.T) {
	_, err := Parse([]byte(`{"routes": {"/heroes": [{"name": "heroes-detail"}]}}`))
	if err == nil {
		t.Fatal("expected error for entry without bundle")
	}
}

func TestParseRejectsRelativePattern(t *testing.T) {
	_, err := Parse([]byte(`{"routes": {"heroes": []}}`))
	if err == nil {
		t.Fatal("expected error for pattern missing leading slash")
	}
}

func TestModulesForExactBeforePrefix(t *testing.T) {
	m, err := Parse([]byte(`{
	  "routes": {
	    "/heroes": [{"name": "heroes", "bundle": "heroes.js"}],
	    "/heroes/detail": [{"name": "heroes-detail", "bundle": "heroes-detail.js"}]
	  }
	}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	refs, ok := m.ModulesFor("/heroes/detail")
	if !ok || refs[0].Name != "heroes-detail" {
		t.Fatalf("ModulesFor(/heroes/detail) = %+v, want heroes-detail (exact match wins)", refs)
	}
}

func TestModulesForPrefixMatch(t *testing.T) {
	m, err := Parse([]byte(heroesMapJSON))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	refs, ok := m.ModulesFor("/heroes/12")
	if !ok {
		t.Fatal("ModulesFor(/heroes/12) = false, want prefix match on /heroes")
	}
	if refs[0].Name != "heroes-detail" {
		t.Fatalf("refs[0].Name = %q, want heroes-detail", refs[0].Name)
	}
}

func TestModulesForSegmentBoundary(t *testing.T) {
	m, err := Parse([]byte(heroesMapJSON))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, ok := m.ModulesFor("/heroesx"); ok {
		t.Fatal("ModulesFor(/heroesx) = true, want false: /heroes must not match mid-segment")
	}
}

func TestModulesForUnknownRoute(t *testing.T) {
	m, err := Parse([]byte(heroesMapJSON))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if refs, ok := m.ModulesFor("/about"); ok || refs != nil {
		t.Fatalf("ModulesFor(/about) = %+v, %v; want nil, false", refs, ok)
	}
}

func TestModulesForTrailingSlash(t *testing.T) {
	m, err := Parse([]byte(heroesMapJSON))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	refs, ok := m.ModulesFor("/heroes/")
	if !ok || refs[0].Name != "heroes-detail" {
		t.Fatalf("ModulesFor(/heroes/) = %+v, %v; want heroes-detail", refs, ok)
	}
}

func TestLoad(t *testing.T) {
	path := writeMapFile(t, heroesMapJSON)
	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Len() != 2 {
		t.Fatalf("Len = %d, want 2", m.Len())
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestEmpty(t *testing.T) {
	m := Empty()
	if m.Len() != 0 {
		t.Fatalf("Len = %d, want 0", m.Len())
	}
	if _, ok := m.ModulesFor("/heroes"); ok {
		t.Fatal("empty map matched a route")
	}
}

func TestRoutesLongestFirst(t *testing.T) {
	m, err := Parse([]byte(`{
	  "routes": {
	    "/a": [{"name": "a", "bundle": "a.js"}],
	    "/a/b/c": [{"name": "c", "bundle": "c.js"}],
	    "/a/b": [{"name": "b", "bundle": "b.js"}]
	  }
	}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	routes := m.Routes()
	want := []string{"/a/b/c", "/a/b", "/a"}
	for i := range want {
		if routes[i] != want[i] {
			t.Fatalf("Routes[%d] = %q, want %q", i, routes[i], want[i])
		}
	}
}
