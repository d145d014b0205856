package workspace

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Workspace tracks which note is active and owns its editor.
type Workspace struct {
	vault *Vault
	log   zerolog.Logger

	mu     sync.Mutex
	active string
	editor *FileEditor
}

func New(v *Vault, logger zerolog.Logger) *Workspace {
	return &Workspace{vault: v, log: logger}
}

func (w *Workspace) Vault() *Vault { return w.vault }

// SetActive makes rel the active note. A nil cursor means end of file.
func (w *Workspace) SetActive(rel string, cursor *Position, selection string) error {
	content, err := w.vault.Read(rel)
	if err != nil {
		return err
	}
	at := EndOf(content)
	if cursor != nil {
		at = *cursor
	}

	w.mu.Lock()
	w.active = rel
	w.editor = NewFileEditor(w.vault, rel, at, selection)
	w.mu.Unlock()

	w.log.Debug().Str("note", rel).Stringer("cursor", at).Msg("active note")
	return nil
}

// ClearActive leaves the workspace without an active note.
func (w *Workspace) ClearActive() {
	w.mu.Lock()
	w.active = ""
	w.editor = nil
	w.mu.Unlock()
}

func (w *Workspace) ActiveFile() (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.active, w.active != ""
}

func (w *Workspace) ActiveEditor() (Editor, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.editor == nil {
		return nil, false
	}
	return w.editor, true
}

// Follow watches the vault and makes the most recently written note active
// until ctx ends. Writes to the note that is already active keep its cursor.
func (w *Workspace) Follow(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := w.watchTree(watcher, w.vault.Root()); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(watcher, ev)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn().Err(err).Msg("vault watcher")
		}
	}
}

func (w *Workspace) handleEvent(watcher *fsnotify.Watcher, ev fsnotify.Event) {
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.watchTree(watcher, ev.Name); err != nil {
				w.log.Warn().Err(err).Str("dir", ev.Name).Msg("watch new folder")
			}
			return
		}
	}
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
		return
	}
	if !IsNote(ev.Name) {
		return
	}
	rel, err := w.vault.Rel(ev.Name)
	if err != nil {
		return
	}
	if cur, _ := w.ActiveFile(); cur == rel {
		return
	}
	if err := w.SetActive(rel, nil, ""); err != nil {
		w.log.Debug().Err(err).Str("note", rel).Msg("follow")
	}
}

func (w *Workspace) watchTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != w.vault.Root() && isHidden(d.Name()) {
			return filepath.SkipDir
		}
		return watcher.Add(p)
	})
}
