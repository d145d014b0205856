package workspace

import (
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"
)

// Position is a zero-based line and a rune offset within that line.
type Position struct {
	Line int `json:"line"`
	Ch   int `json:"ch"`
}

func (p Position) String() string { return fmt.Sprintf("%d:%d", p.Line, p.Ch) }

// Editor is the cursor-and-splice surface actions write through.
type Editor interface {
	Path() string
	Cursor() Position
	SetCursor(p Position)
	Selection() string
	Line(n int) (string, error)
	Content() (string, error)
	ReplaceRange(text string, at Position) error
}

// EndOf returns the position just past the last character of content.
func EndOf(content string) Position {
	lines := strings.Split(content, "\n")
	last := len(lines) - 1
	return Position{Line: last, Ch: utf8.RuneCountInString(lines[last])}
}

// Advance returns the position after inserting text at p.
func Advance(p Position, text string) Position {
	lines := strings.Split(text, "\n")
	if len(lines) == 1 {
		p.Ch += utf8.RuneCountInString(text)
		return p
	}
	p.Line += len(lines) - 1
	p.Ch = utf8.RuneCountInString(lines[len(lines)-1])
	return p
}

// offset converts p to a byte offset in content, clamping past-the-end lines
// and columns the way an editor does.
func offset(content string, p Position) int {
	if p.Line < 0 {
		return 0
	}
	off := 0
	for line := 0; line < p.Line; line++ {
		i := strings.IndexByte(content[off:], '\n')
		if i < 0 {
			return len(content)
		}
		off += i + 1
	}
	end := strings.IndexByte(content[off:], '\n')
	if end < 0 {
		end = len(content) - off
	}
	lineText := content[off : off+end]
	ch := 0
	for i := range lineText {
		if ch == p.Ch {
			return off + i
		}
		ch++
	}
	return off + end
}

// Splice inserts text into content at p.
func Splice(content, text string, p Position) string {
	off := offset(content, p)
	return content[:off] + text + content[off:]
}

func lineAt(content string, n int) (string, error) {
	lines := strings.Split(content, "\n")
	if n < 0 || n >= len(lines) {
		return "", fmt.Errorf("line %d out of range (%d lines)", n, len(lines))
	}
	return lines[n], nil
}

// Buffer is an in-memory Editor.
type Buffer struct {
	path string

	mu        sync.Mutex
	content   string
	cursor    Position
	selection string
}

func NewBuffer(path, content string) *Buffer {
	return &Buffer{path: path, content: content}
}

func (b *Buffer) Path() string { return b.path }

func (b *Buffer) Cursor() Position {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cursor
}

func (b *Buffer) SetCursor(p Position) {
	b.mu.Lock()
	b.cursor = p
	b.mu.Unlock()
}

func (b *Buffer) Selection() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.selection
}

func (b *Buffer) Select(text string) {
	b.mu.Lock()
	b.selection = text
	b.mu.Unlock()
}

func (b *Buffer) Line(n int) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return lineAt(b.content, n)
}

func (b *Buffer) Content() (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.content, nil
}

func (b *Buffer) ReplaceRange(text string, at Position) error {
	b.mu.Lock()
	b.content = Splice(b.content, text, at)
	b.mu.Unlock()
	return nil
}

// FileEditor edits a vault note. Every splice re-reads the file so edits
// made by other programs are never lost.
type FileEditor struct {
	vault *Vault
	path  string

	mu        sync.Mutex
	cursor    Position
	selection string
}

func NewFileEditor(v *Vault, path string, cursor Position, selection string) *FileEditor {
	return &FileEditor{vault: v, path: path, cursor: cursor, selection: selection}
}

func (e *FileEditor) Path() string { return e.path }

func (e *FileEditor) Cursor() Position {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cursor
}

func (e *FileEditor) SetCursor(p Position) {
	e.mu.Lock()
	e.cursor = p
	e.mu.Unlock()
}

func (e *FileEditor) Selection() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selection
}

func (e *FileEditor) Line(n int) (string, error) {
	content, err := e.vault.Read(e.path)
	if err != nil {
		return "", err
	}
	return lineAt(content, n)
}

func (e *FileEditor) Content() (string, error) {
	return e.vault.Read(e.path)
}

func (e *FileEditor) ReplaceRange(text string, at Position) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	content, err := e.vault.Read(e.path)
	if err != nil {
		return err
	}
	return e.vault.Modify(e.path, Splice(content, text, at))
}
