// Package workspace is the on-disk stand-in for the notes app: a vault
// directory of Markdown notes, the active note and a cursor inside it.
package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	ErrNoteExists   = errors.New("note already exists")
	ErrNoteNotFound = errors.New("note not found")
	ErrOutsideVault = errors.New("path escapes the vault")
)

type cacheEntry struct {
	modTime time.Time
	size    int64
	content string
}

// Vault is a directory of notes addressed by slash-separated relative paths.
type Vault struct {
	root string

	mu    sync.Mutex
	cache map[string]cacheEntry
}

func OpenVault(root string) (*Vault, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("vault: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("vault: %s is not a directory", abs)
	}
	return &Vault{root: abs, cache: make(map[string]cacheEntry)}, nil
}

func (v *Vault) Root() string { return v.root }

// Name is the vault's directory name, which is also its name in the notes app.
func (v *Vault) Name() string { return filepath.Base(v.root) }

// Resolve maps a vault-relative path to an absolute one.
func (v *Vault) Resolve(rel string) (string, error) {
	if rel == "" {
		return "", fmt.Errorf("empty note path: %w", ErrNoteNotFound)
	}
	p := filepath.Join(v.root, filepath.FromSlash(rel))
	if filepath.IsAbs(rel) {
		p = filepath.Clean(rel)
	}
	r, err := filepath.Rel(v.root, p)
	if err != nil || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s: %w", rel, ErrOutsideVault)
	}
	return p, nil
}

// Rel is the inverse of Resolve.
func (v *Vault) Rel(abs string) (string, error) {
	r, err := filepath.Rel(v.root, abs)
	if err != nil || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s: %w", abs, ErrOutsideVault)
	}
	return filepath.ToSlash(r), nil
}

func (v *Vault) Exists(rel string) bool {
	p, err := v.Resolve(rel)
	if err != nil {
		return false
	}
	_, err = os.Stat(p)
	return err == nil
}

// Create writes a new note, creating parent folders. It fails with
// ErrNoteExists rather than overwrite.
func (v *Vault) Create(rel, content string) error {
	p, err := v.Resolve(rel)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%s: %w", rel, ErrNoteExists)
		}
		return err
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (v *Vault) Read(rel string) (string, error) {
	p, err := v.Resolve(rel)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%s: %w", rel, ErrNoteNotFound)
		}
		return "", err
	}
	return string(data), nil
}

// CachedRead serves the note from memory while its mtime and size are
// unchanged.
func (v *Vault) CachedRead(rel string) (string, error) {
	p, err := v.Resolve(rel)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%s: %w", rel, ErrNoteNotFound)
		}
		return "", err
	}

	v.mu.Lock()
	e, ok := v.cache[p]
	v.mu.Unlock()
	if ok && e.modTime.Equal(info.ModTime()) && e.size == info.Size() {
		return e.content, nil
	}

	content, err := v.Read(rel)
	if err != nil {
		return "", err
	}
	v.mu.Lock()
	v.cache[p] = cacheEntry{modTime: info.ModTime(), size: info.Size(), content: content}
	v.mu.Unlock()
	return content, nil
}

// Modify replaces an existing note's content atomically.
func (v *Vault) Modify(rel, content string) error {
	p, err := v.Resolve(rel)
	if err != nil {
		return err
	}
	info, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s: %w", rel, ErrNoteNotFound)
		}
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), ".auralite-*")
	if err != nil {
		return err
	}
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	os.Chmod(tmp.Name(), info.Mode().Perm())
	if err := os.Rename(tmp.Name(), p); err != nil {
		os.Remove(tmp.Name())
		return err
	}

	v.mu.Lock()
	delete(v.cache, p)
	v.mu.Unlock()
	return nil
}

// List returns every Markdown note, sorted, skipping hidden folders such as
// .obsidian and .trash.
func (v *Vault) List() ([]string, error) {
	var notes []string
	err := filepath.WalkDir(v.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != v.root && isHidden(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !IsNote(p) {
			return nil
		}
		rel, err := v.Rel(p)
		if err != nil {
			return err
		}
		notes = append(notes, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(notes)
	return notes, nil
}

// IsNote reports whether the path names a visible Markdown file.
func IsNote(p string) bool {
	base := filepath.Base(p)
	return strings.EqualFold(filepath.Ext(base), ".md") && !isHidden(base)
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
