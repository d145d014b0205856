package assistant

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"auralite/action"
	"auralite/llm"
	"auralite/transcriber"
	"auralite/workspace"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
	last   map[Event]Payload
}

func record(m *Manager) *recorder {
	r := &recorder{last: map[Event]Payload{}}
	for _, ev := range []Event{ProcessingStarted, TranscriptionComplete, ActionPlanned,
		ActionExecutionStarted, ActionExecutionComplete, ProcessingComplete, Error} {
		ev := ev
		m.On(ev, func(p Payload) {
			r.mu.Lock()
			r.events = append(r.events, ev)
			r.last[ev] = p
			r.mu.Unlock()
		})
	}
	return r
}

func (r *recorder) seq() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	parts := make([]string, len(r.events))
	for i, e := range r.events {
		parts[i] = string(e)
	}
	return strings.Join(parts, ",")
}

func setup(t *testing.T, note, content string, stt transcriber.Transcriber, replies ...llm.FakeReply) (*Manager, *llm.FakeClient, *workspace.Workspace) {
	t.Helper()
	v, err := workspace.OpenVault(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ws := workspace.New(v, zerolog.Nop())
	if note != "" {
		v.Create(note, content)
		if err := ws.SetActive(note, nil, ""); err != nil {
			t.Fatal(err)
		}
	}
	fake := llm.NewFake(replies...)
	b := &ContextBuilder{Workspace: ws, LLM: fake, Model: "m", Log: zerolog.Nop()}
	if stt == nil {
		stt = transcriber.NewFake("unused", nil)
	}
	return New(stt, action.Defaults(), b, zerolog.Nop()), fake, ws
}

func TestProcessEventOrder(t *testing.T) {
	m, fake, ws := setup(t, "n.md", "line one\n",
		transcriber.NewFake("  add a greeting  ", nil),
		llm.FakeReply{Text: `{"action":"write","contexts":["currentLine"]}`},
		llm.FakeReply{Chunks: []string{"Hi", "!"}},
	)
	r := record(m)
	state := m.Builder().CaptureEditorState()

	if err := m.Process(context.Background(), transcriber.Audio{Data: []byte{1}, MimeType: "audio/flac"}, state); err != nil {
		t.Fatal(err)
	}
	want := "processingStarted,transcriptionComplete,actionPlanned,actionExecutionStarted,actionExecutionComplete,processingComplete"
	if got := r.seq(); got != want {
		t.Errorf("events = %s\nwant     %s", got, want)
	}
	if p := r.last[TranscriptionComplete]; p.Text != "add a greeting" {
		t.Errorf("transcription = %q", p.Text)
	}
	if p := r.last[ActionPlanned]; p.Action != "write" || len(p.Contexts) != 1 {
		t.Errorf("planned = %+v", p)
	}

	content, _ := ws.Vault().Read("n.md")
	if content != "line one\nHi!" {
		t.Errorf("note = %q", content)
	}

	reqs := fake.Requests()
	if len(reqs) != 2 {
		t.Fatalf("requests = %d", len(reqs))
	}
	if reqs[0].Messages[1].Content != "add a greeting" || reqs[0].Messages[1].Role != llm.RoleUser {
		t.Errorf("plan user message = %+v", reqs[0].Messages[1])
	}
	ctxMsg := reqs[1].Messages[1].Content
	if want := `{"action":"write","userInput":"add a greeting","currentLine":""}`; !strings.HasSuffix(ctxMsg, want) {
		t.Errorf("context = %s", ctxMsg)
	}
}

func TestPlanSchemaRestrictsActions(t *testing.T) {
	m, fake, _ := setup(t, "", "", nil, llm.FakeReply{Text: `{"action":"launch-rocket"}`})
	r := record(m)

	err := m.Run(context.Background(), "do it", action.EditorState{})
	if err == nil {
		t.Fatal("expected validation failure for unknown action")
	}
	if got := r.seq(); got != "processingStarted,error" {
		t.Errorf("events = %s", got)
	}

	schema := string(fake.Schemas()[0].JSON())
	for _, id := range action.Defaults().IDs() {
		if !strings.Contains(schema, `"`+id+`"`) {
			t.Errorf("schema missing %s", id)
		}
	}
	if !strings.Contains(schema, `"currentSelection"`) {
		t.Error("schema missing context kinds")
	}
	prompt := fake.Requests()[0].Messages[0].Content
	if !strings.Contains(prompt, "- edit: Edit the currently open file.") {
		t.Errorf("prompt = %q", prompt)
	}
}

func TestRunCopiesOnlyRequestedContext(t *testing.T) {
	m, fake, ws := setup(t, "n.md", "first\nsecond",
		nil,
		llm.FakeReply{Text: `{"action":"none","contexts":["currentFile","currentSelection"]}`},
	)
	ws.SetActive("n.md", &workspace.Position{Line: 1, Ch: 2}, "sec")
	state := m.Builder().CaptureEditorState()

	if state.CurrentLine != "second" || state.CurrentSelection != "sec" || state.CurrentFile.Name != "n.md" {
		t.Fatalf("state = %+v", state)
	}

	var planned []string
	m.On(ActionPlanned, func(p Payload) { planned = p.Contexts })
	if err := m.Run(context.Background(), "nothing", state); err != nil {
		t.Fatal(err)
	}
	if len(planned) != 2 {
		t.Errorf("contexts = %v", planned)
	}
	if n := len(fake.Requests()); n != 1 {
		t.Errorf("requests = %d, noop should not call the model", n)
	}
}

func TestSelectContexts(t *testing.T) {
	ed := workspace.NewBuffer("a.md", "x\ny")
	state := action.EditorState{
		Editor:           ed,
		CurrentLine:      "y",
		CurrentSelection: "",
		CurrentFile:      &action.FileState{Name: "a.md", Content: "x\ny"},
	}
	r := action.NewResults()
	selectContexts(r, state, []string{ContextCurrentLine, "bogus"})
	if keys := r.Keys(); len(keys) != 1 || keys[0] != ContextCurrentLine {
		t.Errorf("keys = %v", keys)
	}

	empty := action.NewResults()
	selectContexts(empty, action.EditorState{}, contextKinds)
	if empty.Len() != 0 {
		t.Errorf("empty state produced %v", empty.Keys())
	}
}

func TestActionErrorEmitted(t *testing.T) {
	m, _, _ := setup(t, "", "", nil, llm.FakeReply{Text: `{"action":"write"}`})
	var got error
	m.On(Error, func(p Payload) { got = p.Err })

	err := m.Run(context.Background(), "write something", action.EditorState{})
	if !errors.Is(err, action.ErrNoActiveEditor) {
		t.Fatalf("err = %v", err)
	}
	if !errors.Is(got, action.ErrNoActiveEditor) {
		t.Errorf("error event = %v", got)
	}
}

func TestCancelDuringPlan(t *testing.T) {
	m, _, _ := setup(t, "", "", nil, llm.FakeReply{Text: `{"action":"none"}`, Delay: time.Second})
	r := record(m)

	time.AfterFunc(30*time.Millisecond, m.Cancel)
	start := time.Now()
	err := m.Run(context.Background(), "slow", action.EditorState{})
	if !action.IsCancelled(err) {
		t.Fatalf("err = %v, want cancellation", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("cancel did not interrupt the model call")
	}
	if strings.Contains(r.seq(), "error") {
		t.Errorf("cancellation reported as error: %s", r.seq())
	}
}

func TestCancelDuringTranscription(t *testing.T) {
	stt := transcriber.NewFake("late", nil).WithDelay(time.Second)
	m, fake, _ := setup(t, "", "", stt)
	r := record(m)

	time.AfterFunc(30*time.Millisecond, m.Cancel)
	err := m.Process(context.Background(), transcriber.Audio{Data: []byte{1}}, action.EditorState{})
	if !errors.Is(err, transcriber.ErrCancelled) {
		t.Fatalf("err = %v", err)
	}
	if strings.Contains(r.seq(), "error") {
		t.Errorf("events = %s", r.seq())
	}
	if len(fake.Requests()) != 0 {
		t.Error("planner ran after cancelled transcription")
	}
}

func TestCancelIdle(t *testing.T) {
	m, _, _ := setup(t, "", "", nil)
	m.Cancel()
}

func TestCancelReachesLiveCallAfterStraggler(t *testing.T) {
	stt := transcriber.NewFake("slow", nil).WithDelay(2 * time.Second)
	m, _, _ := setup(t, "", "", stt)

	live := make(chan error, 1)
	go func() {
		_, err := m.Transcribe(context.Background(), transcriber.Audio{Data: []byte{1}})
		live <- err
	}()
	deadline := time.Now().Add(time.Second)
	for m.inFlightCalls() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("live call never started")
		}
		time.Sleep(time.Millisecond)
	}

	// A leftover call from an earlier task starts and ends on its own ctx.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := m.Transcribe(ctx, transcriber.Audio{Data: []byte{1}}); !errors.Is(err, transcriber.ErrCancelled) {
		t.Fatalf("straggler err = %v", err)
	}
	if n := m.inFlightCalls(); n != 1 {
		t.Fatalf("in flight = %d after straggler, want 1", n)
	}

	m.Cancel()
	select {
	case err := <-live:
		if !errors.Is(err, transcriber.ErrCancelled) {
			t.Errorf("live err = %v", err)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Cancel did not reach the live call")
	}
}

func TestCancelledContextDoesNoWork(t *testing.T) {
	stt := transcriber.NewFake("text", nil)
	m, fake, _ := setup(t, "", "", stt)
	r := record(m)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := m.Run(ctx, "hi", action.EditorState{}); !action.IsCancelled(err) {
		t.Errorf("Run err = %v", err)
	}
	if err := m.Process(ctx, transcriber.Audio{Data: []byte{1}}, action.EditorState{}); !action.IsCancelled(err) {
		t.Errorf("Process err = %v", err)
	}
	if r.seq() != "" {
		t.Errorf("events = %s, want none", r.seq())
	}
	if len(fake.Requests()) != 0 || len(stt.Calls()) != 0 {
		t.Error("work started on a cancelled context")
	}
	if n := m.inFlightCalls(); n != 0 {
		t.Errorf("in flight = %d", n)
	}
}
