package action

import (
	"bytes"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"auralite/llm"
	"auralite/workspace"
)

// Context is built fresh for every execution and shared by the actions of
// one run, including the children of a composite.
type Context struct {
	Workspace *workspace.Workspace
	Vault     *workspace.Vault
	LLM       llm.Client
	Model     string
	Results   *Results
	State     EditorState
	Settings  Settings
	Open      workspace.Opener
	Log       zerolog.Logger
}

// Settings is the slice of user settings actions read.
type Settings struct {
	TemplatePath     string
	OpenCreatedNotes bool
	InsertBuffer     int
}

// FileState is the active note at capture time.
type FileState struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// EditorState is a snapshot of the active note, cursor and selection. It
// goes stale as soon as the note changes.
type EditorState struct {
	Editor           workspace.Editor   `json:"-"`
	Cursor           workspace.Position `json:"cursor"`
	CurrentLine      string             `json:"currentLine"`
	CurrentSelection string             `json:"currentSelection"`
	CurrentFile      *FileState         `json:"currentFile,omitempty"`
}

func (s EditorState) HasEditor() bool { return s.Editor != nil }

// activeEditor prefers the live workspace and falls back to the snapshot.
func (c *Context) activeEditor() (workspace.Editor, bool) {
	if c.Workspace != nil {
		if ed, ok := c.Workspace.ActiveEditor(); ok {
			return ed, true
		}
	}
	if c.State.Editor != nil {
		return c.State.Editor, true
	}
	return nil, false
}

func (c *Context) vault() *workspace.Vault {
	if c.Vault != nil {
		return c.Vault
	}
	if c.Workspace != nil {
		return c.Workspace.Vault()
	}
	return nil
}

func (c *Context) insertBuffer() int {
	if c.Settings.InsertBuffer > 0 {
		return c.Settings.InsertBuffer
	}
	return workspace.DefaultInsertBuffer
}

// Results is the ordered key/value map actions accumulate output in. Later
// actions see earlier results through prompt placeholders.
type Results struct {
	mu     sync.Mutex
	keys   []string
	values map[string]any
}

func NewResults() *Results {
	return &Results{values: make(map[string]any)}
}

// Set stores v under key. Overwriting keeps the original position.
func (r *Results) Set(key string, v any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.values == nil {
		r.values = make(map[string]any)
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = v
}

func (r *Results) Get(key string) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.values[key]
	return v, ok
}

// Lookup lets Results act as template variables.
func (r *Results) Lookup(key string) (any, bool) { return r.Get(key) }

func (r *Results) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.keys...)
}

func (r *Results) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.keys)
}

// MarshalJSON writes the entries as an object in insertion order.
func (r *Results) MarshalJSON() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
