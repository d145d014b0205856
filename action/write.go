package action

import (
	"context"

	"auralite/tmpl"
)

const WriteID = "write"

var writePrompt = tmpl.RemoveWhitespace(`You are an AI assistant writing content directly into an Obsidian note.
	Format your responses using Markdown syntax.
	Use the [[Obsidian]] link format for internal links.
	You can give a link an alias with the [[Obsidian|alias]] format.
	Use LaTeX for mathematical notation, surrounded by $$ for block equations or $ for inline expressions.
`)

// Write streams new content in at the cursor.
type Write struct {
	Descriptor
}

func NewWrite() *Write {
	return &Write{Descriptor{
		id:          WriteID,
		description: "Write content where the user has their cursor.",
		prompt:      writePrompt,
		streaming:   true,
	}}
}

func (w *Write) PreExecute(ctx context.Context, c *Context) (Invocation, error) {
	return prepareInsertion(c, w.id, "")
}

func (w *Write) Execute(ctx context.Context, c *Context) error { return Run(ctx, w, c) }
