package flags

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	tests := []struct{ in, want string }{
		{"/a/b/../c", "/a/c"},
		{"~/keys/owner.json", filepath.Join(home, "keys/owner.json")},
		{"relative/./dir", "relative/dir"},
	}
	for _, tt := range tests {
		if got := ExpandPath(tt.in); got != tt.want {
			t.Errorf("ExpandPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewAppVersion(t *testing.T) {
	app := NewApp("0123456789abcdef", "20260101", "test")
	if app.Version != "0.3.0-unstable-01234567-20260101" {
		t.Fatalf("unexpected version %q", app.Version)
	}
}
