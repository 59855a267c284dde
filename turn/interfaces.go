package turn

import "context"

// Prompt carries everything the model collaborator needs to form the actual
// wire prompt for one turn. Prompt construction beyond this struct is the
// model adapter's concern.
type Prompt struct {
	System  string
	Input   string
	Context string
	History []Message
}

// ModelStream is the mandatory model collaborator. A failure here is the only
// error that propagates to the caller as a turn failure.
type ModelStream interface {
	Stream(ctx context.Context, prompt Prompt) (EventStream, error)
}

// SafetySource tells the evaluator whether it is inspecting user input or
// model output.
type SafetySource string

const (
	SafetySourceInput  SafetySource = "input"
	SafetySourceOutput SafetySource = "output"
)

// Verdict is the typed outcome of a safety evaluation. A blocked verdict is a
// successful call, never an error.
type Verdict struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// SafetyEvaluator is the content-safety collaborator.
type SafetyEvaluator interface {
	Evaluate(ctx context.Context, source SafetySource, text string) (Verdict, error)
}

// Passage is one ranked fragment returned by the retrieval collaborator.
type Passage struct {
	Content string
	Score   float64
	Source  string
}

// Retriever is the retrieval collaborator. The returned passages are ordered
// by rank; an empty slice is a valid outcome.
type Retriever interface {
	Query(ctx context.Context, text string) ([]Passage, error)
}

// ConversationStore is the cross-session persistence collaborator, keyed by
// the caller-supplied (threadID, actorID) pair. Load returns
// ErrHistoryNotFound when the pair has no stored history.
type ConversationStore interface {
	Load(ctx context.Context, threadID, actorID string) ([]Message, error)
	Save(ctx context.Context, threadID, actorID string, history []Message) error
}

// EventSink receives turn lifecycle events for observability.
type EventSink interface {
	Publish(ctx context.Context, event Event) error
}
