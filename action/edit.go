package action

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"auralite/llm"
	"auralite/tmpl"
	"auralite/workspace"
)

const EditID = "edit"

var editPrompt = tmpl.RemoveWhitespace(`
	You are an AI assistant updating a file's content based on specific instructions.
	Be precise: modify only the parts of the file the instructions are about and keep the rest intact.

	Here is the original content of the file:

	<original_content>
	{{currentFileContent}}
	</original_content>

	Update the file according to these instructions:

	<update_instructions>
	{{userInput}}
	</update_instructions>

	Follow these steps:

	1. Analyze the original content and the update instructions.
	2. Find the region of the original content that needs to change, using headers, unique phrases or other clues from the instructions. If you are unsure, explain your reasoning in a <thinking> tag.
	3. Decide whether the change is a replacement, an insertion or a deletion, and locate the exact text or position.
	4. Apply the change.
	5. Check that the result follows the instructions and keeps the structure and formatting of the file.
	6. Explain any ambiguity you had to resolve in a <thinking> tag.
	7. Return the entire updated file inside <updated_content> tags, including all the text you did not modify.

	Keep the original formatting, indentation and structure unless the instructions ask otherwise.
	Do not make any edits the user did not ask for.
`)

var updatedContent = regexp.MustCompile(`<updated_content>([\s\S]*?)</updated_content>`)

// Edit rewrites the active note and three-way merges the rewrite with any
// changes made on disk while the model was working.
type Edit struct {
	Descriptor
}

func NewEdit() *Edit {
	return &Edit{Descriptor{
		id:          EditID,
		description: "Edit the currently open file. Used when user asks for a specific change to be made.",
		prompt:      editPrompt,
	}}
}

func (e *Edit) Execute(ctx context.Context, c *Context) error { return Run(ctx, e, c) }

func (e *Edit) PreExecute(ctx context.Context, c *Context) (Invocation, error) {
	v := c.vault()
	if v == nil {
		return nil, errors.New("edit: no vault")
	}
	if _, ok := c.activeEditor(); !ok {
		return nil, ErrNoActiveEditor
	}
	file := ""
	if c.Workspace != nil {
		file, _ = c.Workspace.ActiveFile()
	}
	if file == "" && c.State.Editor != nil {
		file = c.State.Editor.Path()
	}
	if file == "" {
		return nil, ErrNoActiveEditor
	}

	original, err := v.CachedRead(file)
	if err != nil {
		return nil, fmt.Errorf("edit: %w", err)
	}
	c.Results.Set("currentFileContent", original)
	return &editInvocation{vault: v, file: file, original: original}, nil
}

// ExtractUpdatedContent returns the trimmed text between the first pair of
// <updated_content> tags.
func ExtractUpdatedContent(reply string) (string, bool) {
	m := updatedContent.FindStringSubmatch(reply)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

type editInvocation struct {
	vault    *workspace.Vault
	file     string
	original string
}

func (e *editInvocation) Perform(ctx context.Context, c *Context, out Output) error {
	if out.Text == "" {
		return errors.New("edit: empty reply")
	}
	proposed, ok := ExtractUpdatedContent(out.Text)
	if !ok || proposed == "" {
		return ErrNoUpdatedContent
	}

	live, err := e.vault.Read(e.file)
	if err != nil {
		return fmt.Errorf("edit: %w", err)
	}
	merged, err := Merge3(live, e.original, proposed)
	if err != nil {
		c.Log.Warn().Err(err).Str("note", e.file).Msg("edit not applied")
		return err
	}
	if err := checkCancelled(ctx); err != nil {
		return err
	}
	if err := e.vault.Modify(e.file, merged); err != nil {
		return fmt.Errorf("edit: %w", err)
	}
	c.Log.Debug().Str("note", e.file).Int("bytes", len(merged)).Msg("edit applied")
	c.Results.Set(EditID, map[string]any{"file": e.file})
	return nil
}

func (e *editInvocation) PerformStream(ctx context.Context, c *Context, s llm.Stream) error {
	text, err := llm.Collect(s)
	if err != nil {
		return err
	}
	return e.Perform(ctx, c, Output{Text: text})
}
