// Package assistant turns a recording into an executed action: it
// transcribes, asks the model which action fits, and runs it.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"auralite/action"
	"auralite/events"
	"auralite/llm"
	"auralite/log"
	"auralite/transcriber"
)

type Event string

const (
	ProcessingStarted       Event = "processingStarted"
	TranscriptionComplete   Event = "transcriptionComplete"
	ActionPlanned           Event = "actionPlanned"
	ActionExecutionStarted  Event = "actionExecutionStarted"
	ActionExecutionComplete Event = "actionExecutionComplete"
	ProcessingComplete      Event = "processingComplete"
	Error                   Event = "error"
)

// Payload carries whichever fields apply to the event.
type Payload struct {
	Text     string
	Action   string
	Contexts []string
	Err      error
}

// Plan is the planner's choice.
type Plan struct {
	Action   string   `json:"action" jsonschema:"The action to take"`
	Contexts []string `json:"contexts,omitempty" jsonschema:"Editor context the action needs"`
}

var planSchema = llm.MustSchemaFor[Plan]("plan")

// Manager runs one request at a time. Cancel aborts whatever is in flight.
type Manager struct {
	stt     transcriber.Transcriber
	actions *action.Manager
	builder *ContextBuilder
	log     zerolog.Logger

	emitter events.Emitter[Event, Payload]

	mu       sync.Mutex
	inFlight map[uint64]context.CancelFunc
	gen      uint64
}

func New(stt transcriber.Transcriber, actions *action.Manager, builder *ContextBuilder, logger zerolog.Logger) *Manager {
	return &Manager{stt: stt, actions: actions, builder: builder, log: logger}
}

func (m *Manager) On(ev Event, fn func(Payload)) events.Ref { return m.emitter.On(ev, fn) }

func (m *Manager) Off(ref events.Ref) bool { return m.emitter.Off(ref) }

func (m *Manager) Listeners() int { return m.emitter.Listeners() }

func (m *Manager) Builder() *ContextBuilder { return m.builder }

func (m *Manager) Actions() *action.Manager { return m.actions }

// begin derives the cancellable context for one call and tracks it until
// the returned done func runs. Each call owns its own entry, so a straggler
// from an earlier task cannot hide a newer call from Cancel.
func (m *Manager) begin(parent context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)
	m.mu.Lock()
	if m.inFlight == nil {
		m.inFlight = make(map[uint64]context.CancelFunc)
	}
	m.gen++
	id := m.gen
	m.inFlight[id] = cancel
	m.mu.Unlock()
	return ctx, func() {
		m.mu.Lock()
		delete(m.inFlight, id)
		m.mu.Unlock()
		cancel()
	}
}

// Cancel aborts every transcription or run in flight. Those calls fail with
// a cancellation error that is not reported as an Error event.
func (m *Manager) Cancel() {
	m.mu.Lock()
	cancels := m.inFlight
	m.inFlight = nil
	m.mu.Unlock()
	if len(cancels) > 0 {
		m.log.Info().Int("calls", len(cancels)).Msg("cancelling assistant run")
	}
	for _, cancel := range cancels {
		cancel()
	}
}

// inFlightCalls is the number of calls Cancel would reach.
func (m *Manager) inFlightCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.inFlight)
}

// cancelled reports ctx ending before any work was started.
func (m *Manager) cancelled(ctx context.Context) error {
	if ctx.Err() == nil {
		return nil
	}
	return m.fail(fmt.Errorf("%w: %w", action.ErrCancelled, ctx.Err()))
}

func (m *Manager) fail(err error) error {
	if action.IsCancelled(err) || errors.Is(err, transcriber.ErrCancelled) {
		m.log.Info().Err(err).Msg("cancelled")
		return err
	}
	m.log.Error().Err(err).Msg("assistant failed")
	m.emitter.Emit(Error, Payload{Err: err})
	return err
}

// Transcribe sends audio to the speech-to-text provider.
func (m *Manager) Transcribe(ctx context.Context, audio transcriber.Audio) (string, error) {
	if err := m.cancelled(ctx); err != nil {
		return "", err
	}
	ctx, done := m.begin(ctx)
	defer done()

	res, err := m.stt.Transcribe(ctx, audio)
	if err != nil {
		return "", m.fail(fmt.Errorf("transcribe: %w", err))
	}
	if res.Metrics != nil {
		log.Request(log.RequestMetrics{
			Provider:    m.stt.Name(),
			Endpoint:    "transcriptions",
			AudioS:      res.Duration,
			PayloadKB:   float64(len(audio.Data)) / 1024,
			DNSMs:       ms(res.Metrics.DNS.Seconds()),
			TLSMs:       ms(res.Metrics.TLS.Seconds()),
			TTFBMs:      ms(res.Metrics.TTFB.Seconds()),
			TotalMs:     ms(res.Metrics.Total.Seconds()),
			ConnReused:  res.Metrics.ConnReused,
			TLSProtocol: res.Metrics.TLSProtocol,
		})
	}
	text := strings.TrimSpace(res.Text)
	log.TranscriptionText(text)
	m.log.Debug().Int("chars", len(text)).Str("provider", m.stt.Name()).Msg("transcribed")
	m.emitter.Emit(TranscriptionComplete, Payload{Text: text})
	return text, nil
}

func ms(s float64) float64 { return s * 1000 }

func (m *Manager) planPrompt() string {
	var b strings.Builder
	b.WriteString("You are an assistant that can execute actions.\n\nAvailable actions:\n")
	for _, a := range m.actions.All() {
		fmt.Fprintf(&b, "- %s: %s\n", a.ID(), a.Description())
	}
	b.WriteString("\nYou may request editor context for the action:\n")
	b.WriteString("- currentFile: the name and content of the open note\n")
	b.WriteString("- currentLine: the line the cursor is on\n")
	b.WriteString("- currentSelection: the selected text\n")
	b.WriteString("Only request context the action needs.")
	return b.String()
}

// Plan asks the model which action fits userInput.
func (m *Manager) Plan(ctx context.Context, userInput string) (Plan, error) {
	schema, err := planSchema.WithEnum("action", m.actions.IDs())
	if err == nil {
		schema, err = schema.WithEnum("contexts", contextKinds)
	}
	if err != nil {
		return Plan{}, err
	}

	req := llm.Request{
		Model:    m.builder.Model,
		Messages: []llm.Message{llm.System(m.planPrompt()), llm.User(userInput)},
	}
	var plan Plan
	if err := m.builder.LLM.CompleteStructured(ctx, req, schema, &plan); err != nil {
		return Plan{}, fmt.Errorf("plan: %w", err)
	}
	return plan, nil
}

// Run plans an action for already transcribed userInput and executes it
// with the requested parts of state.
func (m *Manager) Run(ctx context.Context, userInput string, state action.EditorState) error {
	if err := m.cancelled(ctx); err != nil {
		return err
	}
	m.emitter.Emit(ProcessingStarted, Payload{Text: userInput})
	return m.run(ctx, userInput, state)
}

func (m *Manager) run(ctx context.Context, userInput string, state action.EditorState) error {
	if err := m.cancelled(ctx); err != nil {
		return err
	}
	ctx, done := m.begin(ctx)
	defer done()

	plan, err := m.Plan(ctx, userInput)
	if err != nil {
		return m.fail(err)
	}
	m.log.Info().Str("action", plan.Action).Strs("contexts", plan.Contexts).Msg("planned")
	m.emitter.Emit(ActionPlanned, Payload{Text: userInput, Action: plan.Action, Contexts: plan.Contexts})

	results := action.NewResults()
	results.Set("action", plan.Action)
	results.Set("userInput", userInput)
	selectContexts(results, state, plan.Contexts)

	c := m.builder.Build(results, state)
	c.Log = m.log.With().Str("run_action", plan.Action).Logger()

	m.emitter.Emit(ActionExecutionStarted, Payload{Action: plan.Action})
	if err := m.actions.Execute(ctx, plan.Action, c); err != nil {
		return m.fail(fmt.Errorf("%s: %w", plan.Action, err))
	}
	m.emitter.Emit(ActionExecutionComplete, Payload{Action: plan.Action})
	m.emitter.Emit(ProcessingComplete, Payload{Action: plan.Action})
	return nil
}

// Process transcribes audio and runs the result as one request. Events
// fire as processingStarted, transcriptionComplete, actionPlanned,
// actionExecutionStarted, actionExecutionComplete, processingComplete.
func (m *Manager) Process(ctx context.Context, audio transcriber.Audio, state action.EditorState) error {
	if err := m.cancelled(ctx); err != nil {
		return err
	}
	m.emitter.Emit(ProcessingStarted, Payload{})
	text, err := m.Transcribe(ctx, audio)
	if err != nil {
		return err
	}
	return m.run(ctx, text, state)
}
