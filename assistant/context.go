package assistant

import (
	"path"

	"github.com/rs/zerolog"

	"auralite/action"
	"auralite/llm"
	"auralite/workspace"
)

// Context kinds the planner may ask for.
const (
	ContextCurrentFile      = "currentFile"
	ContextCurrentLine      = "currentLine"
	ContextCurrentSelection = "currentSelection"
)

var contextKinds = []string{ContextCurrentFile, ContextCurrentLine, ContextCurrentSelection}

// ContextBuilder snapshots the workspace and assembles action contexts.
type ContextBuilder struct {
	Workspace *workspace.Workspace
	LLM       llm.Client
	Model     string
	Settings  action.Settings
	Open      workspace.Opener
	Log       zerolog.Logger
}

// CaptureEditorState snapshots the active note. With no active note the
// state is empty.
func (b *ContextBuilder) CaptureEditorState() action.EditorState {
	if b.Workspace == nil {
		return action.EditorState{}
	}
	ed, ok := b.Workspace.ActiveEditor()
	if !ok {
		return action.EditorState{}
	}

	state := action.EditorState{
		Editor:           ed,
		Cursor:           ed.Cursor(),
		CurrentSelection: ed.Selection(),
	}
	if line, err := ed.Line(state.Cursor.Line); err == nil {
		state.CurrentLine = line
	}
	content, err := ed.Content()
	if err != nil {
		b.Log.Warn().Err(err).Str("note", ed.Path()).Msg("capture note content")
	} else {
		state.CurrentFile = &action.FileState{Name: path.Base(ed.Path()), Content: content}
	}
	return state
}

// Build returns a fresh action context over results and state.
func (b *ContextBuilder) Build(results *action.Results, state action.EditorState) *action.Context {
	if results == nil {
		results = action.NewResults()
	}
	c := &action.Context{
		Workspace: b.Workspace,
		LLM:       b.LLM,
		Model:     b.Model,
		Results:   results,
		State:     state,
		Settings:  b.Settings,
		Open:      b.Open,
		Log:       b.Log,
	}
	if b.Workspace != nil {
		c.Vault = b.Workspace.Vault()
	}
	return c
}

// selectContexts copies the requested kinds from state into results.
// Kinds the state has no value for are skipped.
func selectContexts(results *action.Results, state action.EditorState, kinds []string) {
	for _, kind := range kinds {
		switch kind {
		case ContextCurrentFile:
			if state.CurrentFile != nil {
				results.Set(kind, state.CurrentFile)
			}
		case ContextCurrentLine:
			if state.HasEditor() {
				results.Set(kind, state.CurrentLine)
			}
		case ContextCurrentSelection:
			if state.HasEditor() {
				results.Set(kind, state.CurrentSelection)
			}
		}
	}
}
