package turn

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

const (
	DefaultActorID  = "default-user"
	DefaultThreadID = "default-session"
)

// Request identifies one conversational turn. ActorID and ThreadID are
// opaque caller-supplied identifiers scoping persistence lookups; an empty
// TurnID is replaced with a generated one.
type Request struct {
	TurnID    string
	ActorID   string
	ThreadID  string
	InputText string
}

// EmitFunc receives each user-visible fragment as it arrives. An error stops
// fragment forwarding and is treated like caller cancellation.
type EmitFunc func(ctx context.Context, fragment string) error

// Dependencies wires the collaborators into the orchestrator.
type Dependencies struct {
	Model    ModelStream
	Registry *Registry
	Events   EventSink
	Logger   *slog.Logger
}

// Options carries the turn-policy knobs.
type Options struct {
	// SystemPrompt is passed through to the model collaborator.
	SystemPrompt string
	// SaveOnCancel attempts a best-effort persistence write when the caller
	// cancels after streaming began, so partial conversation value is not
	// silently lost.
	SaveOnCancel bool
}

// Orchestrator drives one conversational turn: resolve enabled capabilities,
// pre-process the request, stream the model response through the
// demultiplexer, and persist the result, isolating failures per capability.
// It holds no per-turn state and is safe for concurrent use; each turn runs
// on its caller's goroutine.
type Orchestrator struct {
	model        ModelStream
	registry     *Registry
	events       EventSink
	logger       *slog.Logger
	systemPrompt string
	saveOnCancel bool
}

// NewOrchestrator validates the wiring and returns a ready orchestrator.
func NewOrchestrator(deps Dependencies, opts Options) (*Orchestrator, error) {
	if deps.Model == nil {
		return nil, errors.New("new orchestrator: model stream is required")
	}
	if deps.Registry == nil {
		return nil, errors.New("new orchestrator: capability registry is required")
	}
	if deps.Events == nil {
		deps.Events = noopEventSink{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Orchestrator{
		model:        deps.Model,
		registry:     deps.Registry,
		events:       deps.Events,
		logger:       deps.Logger,
		systemPrompt: opts.SystemPrompt,
		saveOnCancel: opts.SaveOnCancel,
	}, nil
}

// Execute runs one turn end to end, forwarding visible fragments to emit as
// they arrive. Capability failures degrade silently; only a model-stream
// failure (or caller cancellation) returns an error.
func (o *Orchestrator) Execute(ctx context.Context, req Request, emit EmitFunc) (State, error) {
	if ctx == nil {
		return State{}, ErrContextNil
	}
	if emit == nil {
		return State{}, ErrEmitNil
	}
	if strings.TrimSpace(req.InputText) == "" {
		return State{}, ErrInputEmpty
	}
	if req.TurnID == "" {
		req.TurnID = uuid.NewString()
	}
	if req.ActorID == "" {
		req.ActorID = DefaultActorID
	}
	if req.ThreadID == "" {
		req.ThreadID = DefaultThreadID
	}

	state := State{
		TurnID:    req.TurnID,
		ActorID:   req.ActorID,
		ThreadID:  req.ThreadID,
		InputText: req.InputText,
	}
	o.publish(ctx, Event{TurnID: state.TurnID, Type: EventTypeTurnStarted})

	// Prior history. A failed load degrades to an empty history.
	if o.registry.Enabled(KindPersistence) {
		o.observe(ctx, &state, o.registry.Persistence().LoadHistory(ctx, &state))
	}

	// Input-side safety. A blocked verdict short-circuits the turn; an
	// evaluation failure degrades to pass-through.
	if o.registry.Enabled(KindSafety) {
		result := o.registry.Safety().EvaluateInput(ctx, &state)
		o.observe(ctx, &state, result)
		if result.Succeeded && state.InputVerdict != nil && !state.InputVerdict.Allowed {
			return o.blockAtInput(ctx, state, emit)
		}
	}

	// Retrieval context. The sentinel payload for an empty match is merged
	// like any other context.
	if o.registry.Enabled(KindRetrieval) {
		o.observe(ctx, &state, o.registry.Retrieval().FetchContext(ctx, &state))
	}

	// Model stream, demultiplexed to the caller as fragments arrive.
	if err := o.streamModel(ctx, &state, emit); err != nil {
		return state, err
	}

	// Output-side safety. Already-streamed fragments cannot be recalled; a
	// post-hoc block appends the intervention notice as the final fragment.
	if o.registry.Enabled(KindSafety) {
		result := o.registry.Safety().EvaluateOutput(ctx, &state)
		o.observe(ctx, &state, result)
		if result.Succeeded && state.OutputVerdict != nil && !state.OutputVerdict.Allowed {
			notice := "\n\n" + InterventionMessage
			state.EmittedText = append(state.EmittedText, notice)
			o.publish(ctx, Event{
				TurnID:      state.TurnID,
				Type:        EventTypePolicyIntervention,
				Capability:  KindSafety,
				Description: "output blocked after streaming",
			})
			if emitErr := emit(ctx, notice); emitErr != nil {
				return o.interruptTurn(ctx, &state, fmt.Errorf("emit intervention notice: %w", emitErr))
			}
		}
	}

	// Persist the updated history. A failed save is logged; the turn still
	// reports success to the caller.
	if o.registry.Enabled(KindPersistence) {
		o.observe(ctx, &state, o.registry.Persistence().SaveHistory(ctx, &state))
	}

	state.Status = StatusCompleted
	o.publish(ctx, Event{TurnID: state.TurnID, Type: EventTypeTurnCompleted})
	return state, nil
}

// Converse runs one turn and returns the assembled response text, for
// callers that do not need incremental delivery.
func (o *Orchestrator) Converse(ctx context.Context, req Request) (string, error) {
	state, err := o.Execute(ctx, req, func(context.Context, string) error { return nil })
	if err != nil {
		return "", err
	}
	return state.AssembledOutput(), nil
}

func (o *Orchestrator) streamModel(ctx context.Context, state *State, emit EmitFunc) error {
	prompt := Prompt{
		System:  o.systemPrompt,
		Input:   state.InputText,
		Context: state.RetrievedContext,
		History: CloneMessages(state.History),
	}
	stream, err := o.model.Stream(ctx, prompt)
	if err != nil {
		return o.failTurn(ctx, state, fmt.Errorf("model stream: %w", err))
	}

	demux := NewDemux(stream)
	defer func() { _ = demux.Close() }()

	for {
		fragment, err := demux.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if cancellation := cancellationError(ctx, err); cancellation != nil {
				_, interruptErr := o.interruptTurn(ctx, state, cancellation)
				return interruptErr
			}
			return o.failTurn(ctx, state, fmt.Errorf("model stream: %w", err))
		}

		state.EmittedText = append(state.EmittedText, fragment)
		if emitErr := emit(ctx, fragment); emitErr != nil {
			_, interruptErr := o.interruptTurn(ctx, state, fmt.Errorf("emit fragment: %w", emitErr))
			return interruptErr
		}
	}
}

func (o *Orchestrator) blockAtInput(ctx context.Context, state State, emit EmitFunc) (State, error) {
	state.Status = StatusBlockedAtInput
	state.EmittedText = append(state.EmittedText, InterventionMessage)
	o.publish(ctx, Event{
		TurnID:      state.TurnID,
		Type:        EventTypePolicyIntervention,
		Capability:  KindSafety,
		Description: "input blocked",
	})
	o.publish(ctx, Event{TurnID: state.TurnID, Type: EventTypeTurnBlocked})

	if err := emit(ctx, InterventionMessage); err != nil {
		return state, fmt.Errorf("emit intervention message: %w", err)
	}
	return state, nil
}

// interruptTurn handles caller cancellation and emit failures mid-stream.
// When configured, it attempts a best-effort persistence write so the partial
// turn survives the interruption.
func (o *Orchestrator) interruptTurn(ctx context.Context, state *State, cause error) (State, error) {
	detached := context.WithoutCancel(ctx)
	if o.saveOnCancel && o.registry.Enabled(KindPersistence) {
		o.observe(detached, state, o.registry.Persistence().SaveHistory(detached, state))
	}
	state.Status = StatusFailed
	o.publish(detached, Event{
		TurnID:      state.TurnID,
		Type:        EventTypeTurnFailed,
		Description: cause.Error(),
	})
	return *state, cause
}

func (o *Orchestrator) failTurn(ctx context.Context, state *State, cause error) error {
	state.Status = StatusFailed
	o.publish(context.WithoutCancel(ctx), Event{
		TurnID:      state.TurnID,
		Type:        EventTypeTurnFailed,
		Description: cause.Error(),
	})
	return cause
}

// observe logs and publishes a degraded capability outcome. Successful
// results stay quiet; the turn must not be disrupted by an optional
// feature's unavailability.
func (o *Orchestrator) observe(ctx context.Context, state *State, result Result) {
	if result.Succeeded {
		return
	}
	o.logger.Warn("capability degraded, turn proceeds without it",
		"capability", string(result.Kind),
		"turn_id", state.TurnID,
		"error_kind", string(result.ErrorKind),
		"detail", result.ErrorDetail,
	)
	o.publish(ctx, Event{
		TurnID:     state.TurnID,
		Type:       EventTypeCapabilityDegraded,
		Capability: result.Kind,
		ErrorKind:  result.ErrorKind,
	})
}

func (o *Orchestrator) publish(ctx context.Context, event Event) {
	_ = o.events.Publish(ctx, event)
}

func cancellationError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	switch {
	case errors.Is(err, context.Canceled):
		return context.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return context.DeadlineExceeded
	default:
		return nil
	}
}
