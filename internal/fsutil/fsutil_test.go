package fsutil

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReadRequired(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "prompt.txt")
	if err := os.WriteFile(path, []byte("  A  \n"), 0600); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	data, err := ReadRequired(path)
	if err != nil {
		t.Fatalf("ReadRequired() error = %v", err)
	}
	if string(data) != "  A  \n" {
		t.Errorf("ReadRequired() = %q, want raw content", string(data))
	}

	missing := filepath.Join(tmpDir, "missing.txt")
	_, err = ReadRequired(missing)
	if err == nil {
		t.Fatal("ReadRequired() on missing file should fail")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("ReadRequired() error should wrap os.ErrNotExist, got %v", err)
	}
	if !strings.Contains(err.Error(), missing) {
		t.Errorf("ReadRequired() error should name the path, got %v", err)
	}
}

func TestReadOptional(t *testing.T) {
	tmpDir := t.TempDir()
	present := filepath.Join(tmpDir, "brain.md")
	if err := os.WriteFile(present, []byte("Brain content"), 0600); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	tests := []struct {
		name     string
		path     string
		maxBytes int64
		want     string
		wantOK   bool
	}{
		{name: "present", path: present, want: "Brain content", wantOK: true},
		{name: "missing", path: filepath.Join(tmpDir, "nope.md"), wantOK: false},
		{name: "directory", path: tmpDir, wantOK: false},
		{name: "truncated", path: present, maxBytes: 5, want: "Brain", wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, ok := ReadOptional(tt.path, tt.maxBytes)
			if ok != tt.wantOK {
				t.Fatalf("ReadOptional() ok = %v, want %v", ok, tt.wantOK)
			}
			if string(data) != tt.want {
				t.Errorf("ReadOptional() = %q, want %q", string(data), tt.want)
			}
		})
	}
}

func TestResolveAgainstRoot(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "repo")
	abs := filepath.Join(string(filepath.Separator), "elsewhere", "notes.md")

	if got := ResolveAgainstRoot(root, "docs/extra.md"); got != filepath.Join(root, "docs", "extra.md") {
		t.Errorf("relative path resolved to %s", got)
	}
	if got := ResolveAgainstRoot(root, abs); got != abs {
		t.Errorf("absolute path resolved to %s, want %s", got, abs)
	}
}

func TestResolveRootPath(t *testing.T) {
	root := t.TempDir()
	canonicalRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		t.Fatalf("failed to canonicalize root: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(root, "docs"), 0755); err != nil {
		t.Fatalf("failed to create docs: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "docs", "project_brain.md"), []byte("x"), 0600); err != nil {
		t.Fatalf("failed to write brain: %v", err)
	}

	tests := []struct {
		name     string
		relative string
		want     string
		wantErr  bool
	}{
		{name: "existing file", relative: "docs/project_brain.md", want: filepath.Join(canonicalRoot, "docs", "project_brain.md")},
		{name: "missing file stays inside", relative: "claude.md", want: filepath.Join(canonicalRoot, "claude.md")},
		{name: "dot segments inside", relative: "docs/../claude.md", want: filepath.Join(canonicalRoot, "claude.md")},
		{name: "parent escape", relative: "../outside.md", wantErr: true},
		{name: "absolute rejected", relative: filepath.Join(root, "claude.md"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveRootPath(root, tt.relative)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ResolveRootPath() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ResolveRootPath() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestResolveRootPathSymlinkEscape(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	target := filepath.Join(outside, "secret.md")
	if err := os.WriteFile(target, []byte("secret"), 0600); err != nil {
		t.Fatalf("failed to write target: %v", err)
	}
	if err := os.Symlink(target, filepath.Join(root, "claude.md")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	_, err := ResolveRootPath(root, "claude.md")
	if !errors.Is(err, ErrEscapesRoot) {
		t.Fatalf("expected ErrEscapesRoot, got %v", err)
	}
}

func TestAtomicWrite(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name string
		path string
		data []byte
	}{
		{name: "write to new file", path: filepath.Join(tmpDir, "new.txt"), data: []byte("hello world")},
		{name: "write empty file", path: filepath.Join(tmpDir, "empty.txt"), data: []byte{}},
		{name: "write to nested directory", path: filepath.Join(tmpDir, "nested", "deep", "file.txt"), data: []byte("nested content")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := AtomicWrite(tt.path, tt.data); err != nil {
				t.Fatalf("AtomicWrite() error = %v", err)
			}

			content, err := os.ReadFile(tt.path)
			if err != nil {
				t.Fatalf("failed to read written file: %v", err)
			}
			if string(content) != string(tt.data) {
				t.Errorf("file content = %q, want %q", string(content), string(tt.data))
			}

			info, err := os.Stat(tt.path)
			if err != nil {
				t.Fatalf("failed to stat file: %v", err)
			}
			if mode := info.Mode().Perm(); mode != 0600 {
				t.Errorf("file permissions = %o, want 0600", mode)
			}
		})
	}
}

func TestAtomicWriteNoTempFilesLeft(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "prox-mesh.json")

	for i := 0; i < 5; i++ {
		if err := AtomicWriteJSON(testFile, map[string]int{"n": i}); err != nil {
			t.Fatalf("AtomicWriteJSON() failed: %v", err)
		}
	}

	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		t.Fatalf("failed to read dir: %v", err)
	}
	for _, entry := range entries {
		if entry.Name() != "prox-mesh.json" {
			t.Errorf("unexpected file left behind: %s", entry.Name())
		}
	}

	content, err := os.ReadFile(testFile)
	if err != nil {
		t.Fatalf("failed to read file: %v", err)
	}
	if content[len(content)-1] != '\n' {
		t.Error("JSON file should end with newline")
	}
}

func TestAtomicWriteJSONNil(t *testing.T) {
	if err := AtomicWriteJSON(filepath.Join(t.TempDir(), "nil.json"), nil); err == nil {
		t.Fatal("AtomicWriteJSON(nil) should fail")
	}
}
