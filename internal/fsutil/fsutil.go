// Package fsutil holds the two file-read policies prox-mesh relies on, plus the
// atomic writer used when a configuration file is generated.
//
// ReadRequired is for files the user explicitly asked for: any failure is
// returned. ReadOptional is for conventional context files: any failure means
// "no content".
package fsutil

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DefaultMaxContextBytes caps how much of a single context file is injected.
const DefaultMaxContextBytes int64 = 1 << 20

// ErrEscapesRoot is returned when a root-relative path points outside the root.
var ErrEscapesRoot = errors.New("path escapes root")

// ReadRequired reads a file that the caller must have. The OS error is wrapped
// so callers can surface it verbatim.
func ReadRequired(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// ReadOptional reads at most maxBytes of path. A missing, unreadable or
// non-regular file yields ok=false and never an error.
func ReadOptional(path string, maxBytes int64) (data []byte, ok bool) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxContextBytes
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, false
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil || !info.Mode().IsRegular() {
		return nil, false
	}

	data, err = io.ReadAll(io.LimitReader(file, maxBytes))
	if err != nil {
		return nil, false
	}
	return data, true
}

// ResolveAgainstRoot returns p unchanged if absolute, otherwise p joined to root.
// It is used for user-supplied paths, which may point anywhere.
func ResolveAgainstRoot(root, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(root, p)
}

// ResolveRootPath resolves a configured root-relative path and rejects paths
// (or symlinks) that leave the root.
func ResolveRootPath(root, relative string) (string, error) {
	rootAbs, err := filepath.Abs(filepath.Clean(root))
	if err != nil {
		return "", fmt.Errorf("failed to resolve root: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(rootAbs); err == nil {
		rootAbs = resolved
	}

	if filepath.IsAbs(relative) {
		return "", fmt.Errorf("absolute paths not allowed: %s", relative)
	}

	cleanPath := filepath.Join(rootAbs, relative)
	if !within(rootAbs, cleanPath) {
		return "", fmt.Errorf("%w: %s", ErrEscapesRoot, relative)
	}

	if _, err := os.Lstat(cleanPath); err == nil {
		resolved, err := filepath.EvalSymlinks(cleanPath)
		if err != nil {
			return "", fmt.Errorf("failed to resolve symlinks: %w", err)
		}
		if !within(rootAbs, resolved) {
			return "", fmt.Errorf("%w: symlink %s", ErrEscapesRoot, relative)
		}
		return resolved, nil
	}

	return cleanPath, nil
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// AtomicWrite writes data to path via a temp file in the same directory and a
// rename, so readers never observe a partial file. Files are created 0600.
func AtomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmpPath, err := generateTempPath(path)
	if err != nil {
		return fmt.Errorf("failed to generate temp path: %w", err)
	}

	tmpFile, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0600)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	success := false
	defer func() {
		tmpFile.Close()
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

// AtomicWriteJSON writes v as indented JSON with a trailing newline.
func AtomicWriteJSON(path string, v interface{}) error {
	if v == nil {
		return fmt.Errorf("cannot write nil value")
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	return AtomicWrite(path, append(data, '\n'))
}

// generateTempPath returns .<basename>.tmp.<pid>.<rand> next to path.
func generateTempPath(path string) (string, error) {
	randBytes := make([]byte, 4)
	if _, err := rand.Read(randBytes); err != nil {
		return "", fmt.Errorf("failed to generate random suffix: %w", err)
	}

	tmpName := fmt.Sprintf(".%s.tmp.%d.%s", filepath.Base(path), os.Getpid(), hex.EncodeToString(randBytes))
	return filepath.Join(filepath.Dir(path), tmpName), nil
}
