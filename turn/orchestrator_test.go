package turn

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// scriptedModel returns one scripted event stream per turn and records the
// prompt it was asked to stream.
type scriptedModel struct {
	events    []StreamEvent
	streamErr error
	finalErr  error
	prompts   []Prompt
}

func (m *scriptedModel) Stream(_ context.Context, prompt Prompt) (EventStream, error) {
	m.prompts = append(m.prompts, prompt)
	if m.streamErr != nil {
		return nil, m.streamErr
	}
	return &scriptedEventStream{events: m.events, finalErr: m.finalErr}, nil
}

// capturingSink records published events for assertions.
type capturingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *capturingSink) Publish(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *capturingSink) typesSeen() []EventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	types := make([]EventType, 0, len(s.events))
	for _, event := range s.events {
		types = append(types, event.Type)
	}
	return types
}

func (s *capturingSink) has(eventType EventType) bool {
	for _, seen := range s.typesSeen() {
		if seen == eventType {
			return true
		}
	}
	return false
}

func emptyRegistry(t *testing.T) *Registry {
	t.Helper()
	return BuildRegistry(discardLogger(), nil, nil, nil)
}

func fullRegistry(t *testing.T, evaluator SafetyEvaluator, retriever Retriever, store ConversationStore) *Registry {
	t.Helper()
	return BuildRegistry(discardLogger(),
		NewSafetyAdapter(evaluator, "gr-12345", "DRAFT", testPolicy()),
		NewRetrievalAdapter(retriever, "kb-12345", DefaultNumResults, testPolicy()),
		NewPersistenceAdapter(store, "mem-12345", testPolicy()),
	)
}

func newTestOrchestrator(t *testing.T, model ModelStream, registry *Registry, sink EventSink, opts Options) *Orchestrator {
	t.Helper()
	o, err := NewOrchestrator(Dependencies{
		Model:    model,
		Registry: registry,
		Events:   sink,
		Logger:   discardLogger(),
	}, opts)
	if err != nil {
		t.Fatalf("NewOrchestrator() error = %v", err)
	}
	return o
}

func runTurn(t *testing.T, o *Orchestrator, req Request) (State, []string) {
	t.Helper()
	var fragments []string
	state, err := o.Execute(context.Background(), req, func(_ context.Context, fragment string) error {
		fragments = append(fragments, fragment)
		return nil
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	return state, fragments
}

func TestNewOrchestrator_RequiresModelAndRegistry(t *testing.T) {
	t.Parallel()

	if _, err := NewOrchestrator(Dependencies{Registry: emptyRegistry(t)}, Options{}); err == nil {
		t.Fatal("NewOrchestrator() without model succeeded, want error")
	}
	if _, err := NewOrchestrator(Dependencies{Model: &scriptedModel{}}, Options{}); err == nil {
		t.Fatal("NewOrchestrator() without registry succeeded, want error")
	}
}

func TestExecute_NoCapabilitiesStreamsText(t *testing.T) {
	t.Parallel()

	model := &scriptedModel{events: []StreamEvent{
		{Origin: OriginText, Text: "Hello"},
		{Origin: OriginText, Text: ", world"},
	}}
	sink := &capturingSink{}
	o := newTestOrchestrator(t, model, emptyRegistry(t), sink, Options{})

	state, fragments := runTurn(t, o, Request{InputText: "hi"})
	if state.Status != StatusCompleted {
		t.Fatalf("Status = %q, want %q", state.Status, StatusCompleted)
	}
	if diff := cmp.Diff([]string{"Hello", ", world"}, fragments); diff != "" {
		t.Fatalf("fragments mismatch (-want +got):\n%s", diff)
	}
	if got := state.AssembledOutput(); got != "Hello, world" {
		t.Fatalf("AssembledOutput() = %q", got)
	}
	if !sink.has(EventTypeTurnStarted) || !sink.has(EventTypeTurnCompleted) {
		t.Fatalf("events = %v, want turn_started and turn_completed", sink.typesSeen())
	}
}

func TestExecute_AppliesDefaultsAndGeneratesTurnID(t *testing.T) {
	t.Parallel()

	model := &scriptedModel{events: []StreamEvent{{Origin: OriginText, Text: "ok"}}}
	o := newTestOrchestrator(t, model, emptyRegistry(t), &capturingSink{}, Options{})

	state, _ := runTurn(t, o, Request{InputText: "hi"})
	if state.TurnID == "" {
		t.Fatal("TurnID was not generated")
	}
	if state.ActorID != DefaultActorID || state.ThreadID != DefaultThreadID {
		t.Fatalf("identifiers = (%q, %q), want defaults", state.ActorID, state.ThreadID)
	}
}

func TestExecute_EmptyInputRejected(t *testing.T) {
	t.Parallel()

	o := newTestOrchestrator(t, &scriptedModel{}, emptyRegistry(t), &capturingSink{}, Options{})
	_, err := o.Execute(context.Background(), Request{InputText: "   "}, func(context.Context, string) error { return nil })
	if !errors.Is(err, ErrInputEmpty) {
		t.Fatalf("Execute() error = %v, want ErrInputEmpty", err)
	}
}

func TestExecute_FullPipeline(t *testing.T) {
	t.Parallel()

	model := &scriptedModel{events: []StreamEvent{{Origin: OriginText, Text: "answer"}}}
	store := &scriptedStore{history: []Message{
		{Role: RoleUser, Content: "earlier question"},
		{Role: RoleAssistant, Content: "earlier answer"},
	}}
	retriever := &scriptedRetriever{passages: []Passage{{Content: "a fact"}}}
	registry := fullRegistry(t, &scriptedSafety{}, retriever, store)
	o := newTestOrchestrator(t, model, registry, &capturingSink{}, Options{SystemPrompt: "be brief"})

	state, _ := runTurn(t, o, Request{InputText: "question", ActorID: "a1", ThreadID: "t1"})
	if state.Status != StatusCompleted {
		t.Fatalf("Status = %q, want %q", state.Status, StatusCompleted)
	}

	if len(model.prompts) != 1 {
		t.Fatalf("model called %d times, want 1", len(model.prompts))
	}
	prompt := model.prompts[0]
	if prompt.System != "be brief" || prompt.Input != "question" {
		t.Fatalf("prompt = %+v, want system prompt and input carried through", prompt)
	}
	if !strings.Contains(prompt.Context, "a fact") {
		t.Fatalf("prompt.Context = %q, want retrieved passage", prompt.Context)
	}
	if len(prompt.History) != 2 {
		t.Fatalf("prompt.History length = %d, want prior turns", len(prompt.History))
	}

	if len(store.saved) != 4 {
		t.Fatalf("saved history length = %d, want 4", len(store.saved))
	}
	last := store.saved[3]
	if last.Role != RoleAssistant || last.Content != "answer" {
		t.Fatalf("last saved message = %+v", last)
	}
}

func TestExecute_InputBlockedShortCircuits(t *testing.T) {
	t.Parallel()

	model := &scriptedModel{events: []StreamEvent{{Origin: OriginText, Text: "never"}}}
	retriever := &scriptedRetriever{}
	store := &scriptedStore{}
	evaluator := &scriptedSafety{verdicts: []Verdict{{Allowed: false, Reason: "topic policy"}}}
	registry := fullRegistry(t, evaluator, retriever, store)
	sink := &capturingSink{}
	o := newTestOrchestrator(t, model, registry, sink, Options{})

	state, fragments := runTurn(t, o, Request{InputText: "blocked topic"})
	if state.Status != StatusBlockedAtInput {
		t.Fatalf("Status = %q, want %q", state.Status, StatusBlockedAtInput)
	}
	if diff := cmp.Diff([]string{InterventionMessage}, fragments); diff != "" {
		t.Fatalf("fragments mismatch (-want +got):\n%s", diff)
	}
	if len(model.prompts) != 0 {
		t.Fatal("model was called on a blocked turn")
	}
	if retriever.calls != 0 {
		t.Fatal("retrieval ran on a blocked turn")
	}
	if store.saveCalls != 0 {
		t.Fatal("persistence save ran on a blocked turn")
	}
	if !sink.has(EventTypePolicyIntervention) || !sink.has(EventTypeTurnBlocked) {
		t.Fatalf("events = %v, want policy_intervention and turn_blocked", sink.typesSeen())
	}
}

func TestExecute_OutputBlockedAppendsNotice(t *testing.T) {
	t.Parallel()

	model := &scriptedModel{events: []StreamEvent{{Origin: OriginText, Text: "already streamed"}}}
	evaluator := &scriptedSafety{verdicts: []Verdict{
		{Allowed: true},
		{Allowed: false, Reason: "content policy"},
	}}
	registry := BuildRegistry(discardLogger(),
		NewSafetyAdapter(evaluator, "gr-12345", "DRAFT", testPolicy()), nil, nil)
	sink := &capturingSink{}
	o := newTestOrchestrator(t, model, registry, sink, Options{})

	state, fragments := runTurn(t, o, Request{InputText: "hi"})
	if state.Status != StatusCompleted {
		t.Fatalf("Status = %q, want %q", state.Status, StatusCompleted)
	}
	want := []string{"already streamed", "\n\n" + InterventionMessage}
	if diff := cmp.Diff(want, fragments); diff != "" {
		t.Fatalf("fragments mismatch (-want +got):\n%s", diff)
	}
	if !sink.has(EventTypePolicyIntervention) {
		t.Fatalf("events = %v, want policy_intervention", sink.typesSeen())
	}
	if got := evaluator.sources; len(got) != 2 || got[1] != SafetySourceOutput {
		t.Fatalf("evaluator sources = %v, want input then output", got)
	}
}

func TestExecute_RetrievalFailureDegrades(t *testing.T) {
	t.Parallel()

	model := &scriptedModel{events: []StreamEvent{{Origin: OriginText, Text: "answer"}}}
	retriever := &scriptedRetriever{errs: []error{errThrottled, errThrottled, errThrottled}}
	registry := BuildRegistry(discardLogger(), nil,
		NewRetrievalAdapter(retriever, "kb-12345", DefaultNumResults, testPolicy()), nil)
	sink := &capturingSink{}
	o := newTestOrchestrator(t, model, registry, sink, Options{})

	state, fragments := runTurn(t, o, Request{InputText: "question"})
	if state.Status != StatusCompleted {
		t.Fatalf("Status = %q, want %q", state.Status, StatusCompleted)
	}
	if diff := cmp.Diff([]string{"answer"}, fragments); diff != "" {
		t.Fatalf("fragments mismatch (-want +got):\n%s", diff)
	}
	if model.prompts[0].Context != "" {
		t.Fatalf("prompt.Context = %q, want empty after degradation", model.prompts[0].Context)
	}
	if !sink.has(EventTypeCapabilityDegraded) {
		t.Fatalf("events = %v, want capability_degraded", sink.typesSeen())
	}
	result, ok := state.ResultFor(KindRetrieval)
	if !ok || result.Succeeded || result.ErrorKind != ErrorKindTransient {
		t.Fatalf("retrieval result = %+v, want recorded transient failure", result)
	}
}

func TestExecute_PersistenceLoadFailureDegrades(t *testing.T) {
	t.Parallel()

	model := &scriptedModel{events: []StreamEvent{{Origin: OriginText, Text: "answer"}}}
	store := &scriptedStore{loadErrs: []error{errors.New("access denied")}}
	registry := BuildRegistry(discardLogger(), nil, nil,
		NewPersistenceAdapter(store, "mem-12345", testPolicy()))
	o := newTestOrchestrator(t, model, registry, &capturingSink{}, Options{})

	state, _ := runTurn(t, o, Request{InputText: "question"})
	if state.Status != StatusCompleted {
		t.Fatalf("Status = %q, want %q", state.Status, StatusCompleted)
	}
	if len(model.prompts[0].History) != 0 {
		t.Fatalf("prompt.History = %v, want empty after load failure", model.prompts[0].History)
	}
	// The save still runs with the degraded empty history.
	if store.saveCalls != 1 {
		t.Fatalf("saveCalls = %d, want 1", store.saveCalls)
	}
}

func TestExecute_SafetyFailureDegradesToPassThrough(t *testing.T) {
	t.Parallel()

	model := &scriptedModel{events: []StreamEvent{{Origin: OriginText, Text: "answer"}}}
	evaluator := &scriptedSafety{errs: []error{errors.New("access denied"), errors.New("access denied")}}
	registry := BuildRegistry(discardLogger(),
		NewSafetyAdapter(evaluator, "gr-12345", "DRAFT", testPolicy()), nil, nil)
	o := newTestOrchestrator(t, model, registry, &capturingSink{}, Options{})

	state, fragments := runTurn(t, o, Request{InputText: "question"})
	if state.Status != StatusCompleted {
		t.Fatalf("Status = %q, want %q", state.Status, StatusCompleted)
	}
	if diff := cmp.Diff([]string{"answer"}, fragments); diff != "" {
		t.Fatalf("fragments mismatch (-want +got):\n%s", diff)
	}
	if state.InputVerdict != nil || state.OutputVerdict != nil {
		t.Fatal("verdicts set despite evaluator failures")
	}
}

func TestExecute_ModelSetupFailureFailsTurn(t *testing.T) {
	t.Parallel()

	model := &scriptedModel{streamErr: errors.New("model unavailable")}
	sink := &capturingSink{}
	o := newTestOrchestrator(t, model, emptyRegistry(t), sink, Options{})

	state, err := o.Execute(context.Background(), Request{InputText: "hi"},
		func(context.Context, string) error { return nil })
	if err == nil {
		t.Fatal("Execute() succeeded, want model error")
	}
	if state.Status != StatusFailed {
		t.Fatalf("Status = %q, want %q", state.Status, StatusFailed)
	}
	if !sink.has(EventTypeTurnFailed) {
		t.Fatalf("events = %v, want turn_failed", sink.typesSeen())
	}
}

func TestExecute_MidStreamFailureFailsTurn(t *testing.T) {
	t.Parallel()

	model := &scriptedModel{
		events:   []StreamEvent{{Origin: OriginText, Text: "partial"}},
		finalErr: errors.New("connection reset"),
	}
	o := newTestOrchestrator(t, model, emptyRegistry(t), &capturingSink{}, Options{})

	var fragments []string
	state, err := o.Execute(context.Background(), Request{InputText: "hi"},
		func(_ context.Context, fragment string) error {
			fragments = append(fragments, fragment)
			return nil
		})
	if err == nil {
		t.Fatal("Execute() succeeded, want stream error")
	}
	if state.Status != StatusFailed {
		t.Fatalf("Status = %q, want %q", state.Status, StatusFailed)
	}
	if diff := cmp.Diff([]string{"partial"}, fragments); diff != "" {
		t.Fatalf("fragments before failure mismatch (-want +got):\n%s", diff)
	}
}

func TestExecute_CancellationSavesWhenConfigured(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	model := &scriptedModel{events: []StreamEvent{
		{Origin: OriginText, Text: "first"},
		{Origin: OriginText, Text: "second"},
	}}
	store := &scriptedStore{}
	registry := BuildRegistry(discardLogger(), nil, nil,
		NewPersistenceAdapter(store, "mem-12345", testPolicy()))
	o := newTestOrchestrator(t, model, registry, &capturingSink{}, Options{SaveOnCancel: true})

	_, err := o.Execute(ctx, Request{InputText: "hi"}, func(_ context.Context, fragment string) error {
		if fragment == "first" {
			cancel()
		}
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Execute() error = %v, want context.Canceled", err)
	}
	if store.saveCalls != 1 {
		t.Fatalf("saveCalls = %d, want 1", store.saveCalls)
	}
	if len(store.saved) == 0 || store.saved[len(store.saved)-1].Content != "first" {
		t.Fatalf("saved = %+v, want partial assistant reply persisted", store.saved)
	}
}

func TestExecute_CancellationWithoutSaveOption(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	model := &scriptedModel{events: []StreamEvent{
		{Origin: OriginText, Text: "first"},
		{Origin: OriginText, Text: "second"},
	}}
	store := &scriptedStore{}
	registry := BuildRegistry(discardLogger(), nil, nil,
		NewPersistenceAdapter(store, "mem-12345", testPolicy()))
	o := newTestOrchestrator(t, model, registry, &capturingSink{}, Options{})

	_, err := o.Execute(ctx, Request{InputText: "hi"}, func(_ context.Context, fragment string) error {
		if fragment == "first" {
			cancel()
		}
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Execute() error = %v, want context.Canceled", err)
	}
	if store.saveCalls != 0 {
		t.Fatalf("saveCalls = %d, want 0", store.saveCalls)
	}
}

func TestConverse_AssemblesOutput(t *testing.T) {
	t.Parallel()

	model := &scriptedModel{events: []StreamEvent{
		{Origin: OriginToolCall, ToolName: "search"},
		{Origin: OriginText, Text: "Hi"},
		{Origin: OriginToolResult, ToolName: "search"},
		{Origin: OriginText, Text: " there"},
	}}
	o := newTestOrchestrator(t, model, emptyRegistry(t), &capturingSink{}, Options{})

	got, err := o.Converse(context.Background(), Request{InputText: "hello"})
	if err != nil {
		t.Fatalf("Converse() error = %v", err)
	}
	if got != "Hi there" {
		t.Fatalf("Converse() = %q, want %q", got, "Hi there")
	}
}

func TestNewOrchestrator_DefaultsSinkAndLogger(t *testing.T) {
	t.Parallel()

	o, err := NewOrchestrator(Dependencies{
		Model:    &scriptedModel{events: []StreamEvent{{Origin: OriginText, Text: "ok"}}},
		Registry: emptyRegistry(t),
	}, Options{})
	if err != nil {
		t.Fatalf("NewOrchestrator() error = %v", err)
	}
	if _, err := o.Converse(context.Background(), Request{InputText: "hi"}); err != nil {
		t.Fatalf("Converse() error = %v", err)
	}
}
