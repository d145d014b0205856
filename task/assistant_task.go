package task

import (
	"fmt"
	"strings"

	"auralite/action"
	"auralite/assistant"
	"auralite/audio"
	"auralite/events"
	"auralite/transcriber"
)

// AssistantTask records, transcribes, lets the planner pick an action and
// runs it.
type AssistantTask struct {
	*base
}

func newAssistantTask(deps Deps) *AssistantTask {
	t := &AssistantTask{base: newBase(KindAssistant, deps)}
	t.subscribe()
	return t
}

// assistantEvents are the assistant events shown in the status bar.
var assistantEvents = []assistant.Event{
	assistant.TranscriptionComplete,
	assistant.ProcessingStarted,
	assistant.ActionPlanned,
	assistant.ActionExecutionStarted,
	assistant.ActionExecutionComplete,
	assistant.Error,
}

// Describe is the status line for an assistant event.
func Describe(ev assistant.Event, p assistant.Payload) (string, bool) {
	switch ev {
	case assistant.TranscriptionComplete:
		return fmt.Sprintf("Transcription: %q", preview(p.Text, 30)), true
	case assistant.ProcessingStarted:
		return "Assistant is thinking...", true
	case assistant.ActionPlanned:
		return fmt.Sprintf("Planning action: %s\nContexts: %s", p.Action, strings.Join(p.Contexts, ", ")), true
	case assistant.ActionExecutionStarted:
		return "Executing action: " + p.Action, true
	case assistant.ActionExecutionComplete:
		return "Completed action: " + p.Action, true
	case assistant.Error:
		if p.Err == nil {
			return "Error", true
		}
		return "Error: " + p.Err.Error(), true
	}
	return "", false
}

// ShowAssistant mirrors assistant events on sink until the returned refs
// are released.
func ShowAssistant(m *assistant.Manager, sink StatusSink) []events.Ref {
	refs := make([]events.Ref, 0, len(assistantEvents))
	for _, ev := range assistantEvents {
		refs = append(refs, m.On(ev, func(p assistant.Payload) {
			if msg, ok := Describe(ev, p); ok {
				sink.SetStatus(msg)
			}
		}))
	}
	return refs
}

func (t *AssistantTask) subscribe() {
	t.showRecording()
	t.onRecorder(audio.RecordingComplete, t.recordingComplete)

	t.onAssistant(assistant.Error, func(p assistant.Payload) { t.fail(p.Err) })
	for _, ref := range ShowAssistant(t.deps.Assistant, t.deps.Status) {
		t.subs.Add(t.deps.Assistant, ref)
	}
}

func (t *AssistantTask) Start() error { return t.start() }

func (t *AssistantTask) Stop() error { return t.stop() }

func (t *AssistantTask) recordingComplete(p audio.Payload) {
	state := t.deps.Assistant.Builder().CaptureEditorState()
	t.deps.Status.SetStatus("Transcribing...")
	rec := p.Recording
	go t.process(transcriber.Audio{Data: rec.Data, MimeType: rec.MimeType}, state)
}

func (t *AssistantTask) process(a transcriber.Audio, state action.EditorState) {
	defer t.finishLater()

	err := t.deps.Assistant.Process(t.ctx, a, state)
	switch {
	case err == nil:
	case t.cancelledRun(err):
		t.log.Info().Msg("run cancelled")
	default:
		// The assistant's error event already set the status.
		t.log.Debug().Err(err).Msg("run failed")
	}
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
