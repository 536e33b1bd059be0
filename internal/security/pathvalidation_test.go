package security

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestConfine(t *testing.T) {
	root := t.TempDir()
	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(root, "volumes"), 0o755); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr bool
	}{
		{"relative file", "volumes/a.json", filepath.Join(realRoot, "volumes", "a.json"), false},
		{"absolute inside", filepath.Join(root, "b.json"), filepath.Join(realRoot, "b.json"), false},
		{"missing subdirectory", "new/dir/c.json", filepath.Join(realRoot, "new", "dir", "c.json"), false},
		{"root itself", ".", realRoot, false},
		{"dot-dot escape", "../etc/passwd", "", true},
		{"absolute outside", "/etc/passwd", "", true},
		{"hidden escape", "volumes/../../x.json", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Confine(tt.path, root)
			if tt.wantErr {
				if !errors.Is(err, ErrOutsideRoot) {
					t.Fatalf("Confine(%q) error = %v, want ErrOutsideRoot", tt.path, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Confine(%q) unexpected error: %v", tt.path, err)
			}
			if got != tt.want {
				t.Errorf("Confine(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestConfine_SymlinkEscape(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	if err := os.Symlink(outside, filepath.Join(root, "link")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	if _, err := Confine("link/volume.json", root); !errors.Is(err, ErrOutsideRoot) {
		t.Errorf("expected ErrOutsideRoot through symlink, got %v", err)
	}
}

func TestConfine_MissingRoot(t *testing.T) {
	if _, err := Confine("a.json", filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("expected error for missing root")
	}
}
