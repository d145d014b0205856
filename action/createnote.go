package action

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"auralite/llm"
	"auralite/tmpl"
	"auralite/workspace"
)

const CreateNoteID = "create-note"

var createNotePrompt = tmpl.RemoveWhitespace(`You are an expert at creating notes in Obsidian.
	As an AI assistant working inside an Obsidian vault, your primary goal is to help the user manage their ideas and knowledge.
	Format your responses using Markdown syntax.
	Use the [[Obsidian]] link format for internal links.
	You can give a link an alias by writing [[Obsidian|the alias after the pipe symbol]].
	Use LaTeX syntax for mathematical notation.
	Put larger equations on their own lines surrounded with double dollar signs ($$).
	Inline math goes between single $ symbols.
`)

type noteInput struct {
	NoteName  string `json:"noteName" jsonschema:"The name of the note to create. Must be a valid markdown filename."`
	Content   string `json:"content,omitempty" jsonschema:"The content of the note."`
	PaneType  string `json:"paneType,omitempty" jsonschema:"The type of pane to open the file in."`
	Direction string `json:"direction,omitempty" jsonschema:"The direction to split the pane, if paneType is split."`
	Mode      string `json:"mode,omitempty" jsonschema:"The view mode to open the file in."`
	Focus     *bool  `json:"focus,omitempty" jsonschema:"Whether to focus the file after opening."`
}

func (in noteInput) openOptions() workspace.OpenOptions {
	opts := workspace.DefaultOpenOptions()
	if in.PaneType != "" {
		opts.PaneType = in.PaneType
	}
	if in.Mode != "" {
		opts.Mode = in.Mode
	}
	if in.Focus != nil {
		opts.Focus = *in.Focus
	}
	opts.Direction = in.Direction
	return opts
}

func noteSchema() *llm.Schema {
	s := llm.MustSchemaFor[noteInput](CreateNoteID)
	for field, values := range map[string][]string{
		"paneType":  {"tab", "split", "window"},
		"direction": {"horizontal", "vertical"},
		"mode":      {"source", "preview", "default"},
	} {
		var err error
		if s, err = s.WithEnum(field, values); err != nil {
			panic(err)
		}
	}
	return s
}

// CreateNote asks the model for a note name and body and creates the note,
// merged into the default template when one is configured.
type CreateNote struct {
	Descriptor
	now func() time.Time
}

func NewCreateNote() *CreateNote {
	return &CreateNote{
		Descriptor: Descriptor{
			id:          CreateNoteID,
			description: "Create a new note.",
			prompt:      createNotePrompt,
			schema:      noteSchema(),
			structured:  true,
		},
		now: time.Now,
	}
}

func (a *CreateNote) Execute(ctx context.Context, c *Context) error { return Run(ctx, a, c) }

func (a *CreateNote) PreExecute(ctx context.Context, c *Context) (Invocation, error) {
	v := c.vault()
	if v == nil {
		return nil, errors.New("create-note: no vault")
	}
	inv := &noteInvocation{action: a, vault: v}
	if p := c.Settings.TemplatePath; p != "" {
		t, err := v.Read(p)
		if err != nil {
			c.Log.Warn().Err(err).Str("template", p).Msg("note template unavailable")
		} else {
			inv.template = t
			inv.hasTemplate = true
		}
	}
	return inv, nil
}

type noteInvocation struct {
	action      *CreateNote
	vault       *workspace.Vault
	template    string
	hasTemplate bool
}

func (n *noteInvocation) Perform(ctx context.Context, c *Context, out Output) error {
	var in noteInput
	if err := json.Unmarshal(out.JSON, &in); err != nil {
		return fmt.Errorf("create-note: decode reply: %w", err)
	}
	if strings.TrimSpace(in.NoteName) == "" {
		return errors.New("create-note: empty note name")
	}
	if err := checkCancelled(ctx); err != nil {
		return err
	}

	name := in.NoteName
	if !strings.HasSuffix(name, ".md") {
		name += ".md"
	}
	content := in.Content
	if n.hasTemplate {
		content = n.applyTemplate(name, in.Content)
	}
	if err := n.vault.Create(name, content); err != nil {
		return fmt.Errorf("create-note: %w", err)
	}
	c.Log.Info().Str("note", name).Int("bytes", len(content)).Msg("note created")

	opts := in.openOptions()
	if opts.Focus && c.Workspace != nil {
		if err := c.Workspace.SetActive(name, nil, ""); err != nil {
			c.Log.Warn().Err(err).Str("note", name).Msg("activate note")
		}
	}
	if c.Settings.OpenCreatedNotes && c.Open != nil {
		if err := c.Open(n.vault.OpenURI(name, opts)); err != nil {
			c.Log.Warn().Err(err).Str("note", name).Msg("open note")
		}
	}

	c.Results.Set(n.action.id, map[string]any{
		"noteName": in.NoteName,
		"content":  in.Content,
	})
	return nil
}

func (n *noteInvocation) applyTemplate(name, content string) string {
	now := n.action.now()
	vars := tmpl.MapVars{
		"title":   strings.TrimSuffix(path.Base(name), ".md"),
		"date":    now.Format("2006-01-02"),
		"time":    now.Format("15:04"),
		"content": content,
	}
	out := tmpl.Render(n.template, vars)
	if tmpl.Has(n.template, "content") || content == "" {
		return out
	}
	if out != "" && !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	return out + "\n" + content
}

func (n *noteInvocation) PerformStream(ctx context.Context, c *Context, s llm.Stream) error {
	raw, err := llm.Collect(s)
	if err != nil {
		return err
	}
	return n.Perform(ctx, c, Output{JSON: json.RawMessage(raw)})
}
