// Package note keeps item notes as files named by the SHA-1 of their content.
package note

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrNotFound   = errors.New("note: not found")
	ErrInvalidRef = errors.New("note: invalid reference")
)

type Store struct {
	dir string
}

// Open returns a store rooted at dir, creating the directory when needed.
func Open(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("note: directory is empty")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("note: create dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Dir() string { return s.dir }

// Ref returns the reference content would be stored under.
func Ref(content string) string {
	sum := sha1.Sum([]byte(content))
	return hex.EncodeToString(sum[:])
}

// Save stores content and returns its reference. Saving the same content
// twice yields the same reference and leaves a single file.
func (s *Store) Save(content string) (string, error) {
	ref := Ref(content)
	path := filepath.Join(s.dir, ref)
	if _, err := os.Stat(path); err == nil {
		return ref, nil
	}

	tmp, err := os.CreateTemp(s.dir, ".note-*.tmp")
	if err != nil {
		return "", fmt.Errorf("note: save: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return "", fmt.Errorf("note: save: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("note: save: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return "", fmt.Errorf("note: save: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return "", fmt.Errorf("note: save: %w", err)
	}
	return ref, nil
}

func (s *Store) Load(ref string) (string, error) {
	if !validRef(ref) {
		return "", fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}
	data, err := os.ReadFile(filepath.Join(s.dir, ref))
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	if err != nil {
		return "", fmt.Errorf("note: load: %w", err)
	}
	return string(data), nil
}

// Prune removes every note file whose reference is not in keep and returns
// how many were removed.
func (s *Store) Prune(keep map[string]bool) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("note: prune: %w", err)
	}
	removed := 0
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !validRef(name) || keep[name] {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
			return removed, fmt.Errorf("note: prune: %w", err)
		}
		removed++
	}
	return removed, nil
}

func validRef(ref string) bool {
	if len(ref) != sha1.Size*2 {
		return false
	}
	_, err := hex.DecodeString(ref)
	return err == nil
}
