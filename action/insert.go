package action

import (
	"context"
	"encoding/json"
	"fmt"

	"auralite/llm"
	"auralite/workspace"
)

// insertion writes the reply into the active note at the cursor captured
// when the action started. field names the structured property carrying
// the text; empty means the reply is raw text.
type insertion struct {
	id     string
	field  string
	editor workspace.Editor
	cursor workspace.Position
}

func prepareInsertion(c *Context, id, field string) (*insertion, error) {
	ed, ok := c.activeEditor()
	if !ok {
		return nil, ErrNoActiveEditor
	}
	return &insertion{id: id, field: field, editor: ed, cursor: ed.Cursor()}, nil
}

func (in *insertion) Perform(ctx context.Context, c *Context, out Output) error {
	text := out.Text
	if in.field != "" {
		var obj map[string]any
		if err := json.Unmarshal(out.JSON, &obj); err != nil {
			return fmt.Errorf("%s: decode reply: %w", in.id, err)
		}
		text, _ = obj[in.field].(string)
	}
	if err := in.editor.ReplaceRange(text, in.cursor); err != nil {
		return fmt.Errorf("%s: %w", in.id, err)
	}
	in.editor.SetCursor(workspace.Advance(in.cursor, text))
	c.Results.Set(in.id, map[string]any{"content": text})
	return nil
}

func (in *insertion) PerformStream(ctx context.Context, c *Context, s llm.Stream) error {
	ins := workspace.NewInserter(in.editor, in.cursor, c.insertBuffer())
	ins.OnAdvance(in.editor.SetCursor)

	var diff *FieldDiffer
	if in.field != "" {
		diff = NewFieldDiffer(in.field)
	}
	for s.Next() {
		if err := checkCancelled(ctx); err != nil {
			return err
		}
		chunk := s.Delta()
		if diff != nil {
			chunk = diff.Feed(chunk)
		}
		if err := ins.Insert(chunk); err != nil {
			return fmt.Errorf("%s: %w", in.id, err)
		}
	}
	if err := s.Err(); err != nil {
		return err
	}
	if err := checkCancelled(ctx); err != nil {
		return err
	}
	if err := ins.Flush(); err != nil {
		return fmt.Errorf("%s: %w", in.id, err)
	}

	content := ins.Written()
	c.Results.Set(in.id, map[string]any{"content": content})
	c.Log.Debug().Str("action", in.id).Int("bytes", len(content)).Stringer("cursor", ins.Cursor()).Msg("inserted")
	return nil
}
