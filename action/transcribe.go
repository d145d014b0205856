package action

import (
	"context"

	"auralite/llm"
	"auralite/tmpl"
)

const TranscribeID = "transcribe"

var transcribePrompt = tmpl.RemoveWhitespace(`You format transcribed audio to be more readable.

	As an AI assistant working inside an Obsidian vault, your primary goal is to help the user manage their ideas and knowledge.
	Format your responses using Markdown syntax.
	Use the [[Obsidian]] link format for internal links.
	You can give a link an alias by writing [[Obsidian|the alias after the pipe symbol]].

	The transcription of the audio is provided as "userInput".
	Format it so it is easy for the user to read.
	Drop the part where the user asks you to transcribe and keep the actual content.
`)

type transcribeInput struct {
	Transcription string `json:"transcription" jsonschema:"The formatted transcription of the audio."`
}

var transcribeSchema = llm.MustSchemaFor[transcribeInput](TranscribeID)

// Transcribe formats the user's words and streams them in at the cursor.
type Transcribe struct {
	Descriptor
}

func NewTranscribe() *Transcribe {
	return &Transcribe{Descriptor{
		id:          TranscribeID,
		description: "Format transcribed audio to be more readable.",
		prompt:      transcribePrompt,
		schema:      transcribeSchema,
		streaming:   true,
	}}
}

// NewStructuredTranscribe asks for a schema-constrained reply and streams
// the transcription field as it grows.
func NewStructuredTranscribe() *Transcribe {
	t := NewTranscribe()
	t.structured = true
	return t
}

func (t *Transcribe) PreExecute(ctx context.Context, c *Context) (Invocation, error) {
	field := ""
	if t.UseStructured() {
		field = "transcription"
	}
	return prepareInsertion(c, t.id, field)
}

func (t *Transcribe) Execute(ctx context.Context, c *Context) error { return Run(ctx, t, c) }
