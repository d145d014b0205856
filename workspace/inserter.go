package workspace

import (
	"strings"
	"sync"
)

// DefaultInsertBuffer is how many bytes the streaming actions batch per
// write.
const DefaultInsertBuffer = 50

// Inserter splices streamed chunks into an editor at an advancing cursor.
// With a positive buffer size, chunks are batched until the buffer fills
// or Flush is called.
type Inserter struct {
	editor     Editor
	bufferSize int
	onAdvance  func(Position)

	mu      sync.Mutex
	cursor  Position
	pending strings.Builder
	written strings.Builder
}

func NewInserter(editor Editor, at Position, bufferSize int) *Inserter {
	return &Inserter{editor: editor, cursor: at, bufferSize: bufferSize}
}

// OnAdvance registers a callback run after each write with the new cursor.
func (in *Inserter) OnAdvance(fn func(Position)) { in.onAdvance = fn }

func (in *Inserter) Insert(chunk string) error {
	if chunk == "" {
		return nil
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	in.pending.WriteString(chunk)
	if in.pending.Len() < in.bufferSize {
		return nil
	}
	return in.flushLocked()
}

func (in *Inserter) Flush() error {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.flushLocked()
}

func (in *Inserter) flushLocked() error {
	if in.pending.Len() == 0 {
		return nil
	}
	text := in.pending.String()
	if err := in.editor.ReplaceRange(text, in.cursor); err != nil {
		return err
	}
	in.pending.Reset()
	in.written.WriteString(text)
	in.cursor = Advance(in.cursor, text)
	if in.onAdvance != nil {
		in.onAdvance(in.cursor)
	}
	return nil
}

// Cursor is the position after the last flushed chunk.
func (in *Inserter) Cursor() Position {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.cursor
}

// Written returns everything flushed so far.
func (in *Inserter) Written() string {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.written.String()
}
