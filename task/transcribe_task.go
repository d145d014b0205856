package task

import (
	"sync"

	"auralite/action"
	"auralite/audio"
	"auralite/transcriber"
	"auralite/workspace"
)

// TranscribeTask records and inserts the raw transcription at the cursor
// captured when recording stopped. Without an editor the text goes to the
// clipboard.
type TranscribeTask struct {
	*base

	mu    sync.Mutex
	state action.EditorState
}

func newTranscribeTask(deps Deps) *TranscribeTask {
	t := &TranscribeTask{base: newBase(KindTranscribe, deps)}
	t.showRecording()
	t.onRecorder(audio.RecordingStopped, t.recordingStopped)
	t.onRecorder(audio.RecordingComplete, t.recordingComplete)
	return t
}

func (t *TranscribeTask) Start() error { return t.start() }

func (t *TranscribeTask) Stop() error { return t.stop() }

func (t *TranscribeTask) recordingStopped(audio.Payload) {
	state := t.deps.Assistant.Builder().CaptureEditorState()
	t.mu.Lock()
	t.state = state
	t.mu.Unlock()
	t.deps.Status.SetStatus("Finished recording")
}

func (t *TranscribeTask) recordingComplete(p audio.Payload) {
	t.mu.Lock()
	state := t.state
	t.mu.Unlock()
	rec := p.Recording
	go t.insert(transcriber.Audio{Data: rec.Data, MimeType: rec.MimeType}, state)
}

func (t *TranscribeTask) insert(a transcriber.Audio, state action.EditorState) {
	defer t.finishLater()
	status := t.deps.Status

	status.SetStatus("Transcribing...")
	text, err := t.deps.Assistant.Transcribe(t.ctx, a)
	if err != nil {
		if t.cancelledRun(err) {
			t.log.Info().Msg("transcription cancelled")
			return
		}
		t.fail(err)
		status.SetStatus("Error transcribing")
		return
	}
	if t.ctx.Err() != nil {
		return
	}

	if !state.HasEditor() {
		t.copyFallback(text)
		return
	}
	if err := state.Editor.ReplaceRange(text, state.Cursor); err != nil {
		t.fail(err)
		status.SetStatus("Error: " + err.Error())
		return
	}
	state.Editor.SetCursor(workspace.Advance(state.Cursor, text))
	t.log.Info().Str("note", state.Editor.Path()).Stringer("cursor", state.Cursor).Int("chars", len(text)).Msg("inserted transcription")
	status.SetStatus("Added to editor")
}

func (t *TranscribeTask) copyFallback(text string) {
	status := t.deps.Status
	if t.deps.Copy == nil {
		status.SetStatus("No cursor or active editor found")
		return
	}
	if err := t.deps.Copy(text); err != nil {
		t.log.Warn().Err(err).Msg("clipboard copy failed")
		status.SetStatus("No cursor or active editor found")
		return
	}
	status.SetStatus("No cursor or active editor found, copied to clipboard")
}
