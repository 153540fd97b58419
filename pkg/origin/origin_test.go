package origin

import (
	"errors"
	"testing"
)

func TestBuildURLServerRelative(t *testing.T) {
	octx := Server("http://localhost:4200")
	got, err := BuildURL("/api/heroes", octx)
	if err != nil {
		t.Fatalf("BuildURL: %v", err)
	}
	if got != "http://localhost:4200/api/heroes" {
		t.Fatalf("BuildURL = %q, want %q", got, "http://localhost:4200/api/heroes")
	}
}

func TestBuildURLServerMissingSlash(t *testing.T) {
	octx := Server("http://localhost:4200")
	got, err := BuildURL("api/heroes", octx)
	if err != nil {
		t.Fatalf("BuildURL: %v", err)
	}
	if got != "http://localhost:4200/api/heroes" {
		t.Fatalf("BuildURL = %q, want %q", got, "http://localhost:4200/api/heroes")
	}
}

func TestBuildURLServerTrailingSlashOrigin(t *testing.T) {
	octx := Context{IsServer: true, BaseOrigin: "http://localhost:4200/"}
	got, err := BuildURL("/api/heroes", octx)
	if err != nil {
		t.Fatalf("BuildURL: %v", err)
	}
	if got != "http://localhost:4200/api/heroes" {
		t.Fatalf("BuildURL = %q, double slash not collapsed", got)
	}
}

func TestBuildURLClientPassthrough(t *testing.T) {
	got, err := BuildURL("/api/heroes", Browser())
	if err != nil {
		t.Fatalf("BuildURL: %v", err)
	}
	if got != "/api/heroes" {
		t.Fatalf("BuildURL = %q, want unchanged relative path", got)
	}
}

func TestBuildURLAbsolutePassthrough(t *testing.T) {
	for _, octx := range []Context{Server("http://localhost:4200"), Browser()} {
		got, err := BuildURL("https://api.example.com/heroes", octx)
		if err != nil {
			t.Fatalf("BuildURL: %v", err)
		}
		if got != "https://api.example.com/heroes" {
			t.Fatalf("BuildURL = %q, want absolute passthrough", got)
		}
	}
}

func TestBuildURLServerWithoutBaseOrigin(t *testing.T) {
	_, err := BuildURL("/api/heroes", Context{IsServer: true})
	if !errors.Is(err, ErrNoBaseOrigin) {
		t.Fatalf("err = %v, want ErrNoBaseOrigin", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		octx    Context
		wantErr bool
	}{
		{"browser", Browser(), false},
		{"server with origin", Server("http://localhost:4200"), false},
		{"server https", Server("https://app.example.com"), false},
		{"server without origin", Context{IsServer: true}, true},
		{"bad scheme", Server("ftp://host"), true},
		{"no host", Server("http://"), true},
		{"not a url", Server("localhost:4200"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.octx.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestServerTrimsTrailingSlash(t *testing.T) {
	octx := Server("http://localhost:4200/")
	if octx.BaseOrigin != "http://localhost:4200" {
		t.Fatalf("BaseOrigin = %q, want trailing slash trimmed", octx.BaseOrigin)
	}
}
