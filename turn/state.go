package turn

import "strings"

// Status is the terminal state of one turn. Capability degradation never
// produces a failed status; only a model-stream error does.
type Status string

const (
	StatusCompleted      Status = "completed"
	StatusBlockedAtInput Status = "blocked_at_input"
	StatusFailed         Status = "failed"
)

// State is the per-turn working set. It is created at turn start, mutated by
// each orchestration phase, and discarded after the persistence write; the
// external store is the system of record.
type State struct {
	TurnID   string
	ActorID  string
	ThreadID string

	InputText        string
	RetrievedContext string
	History          []Message

	InputVerdict  *Verdict
	OutputVerdict *Verdict

	// EmittedText preserves the visible fragments in arrival order.
	EmittedText []string

	Status  Status
	Results []Result
}

// AssembledOutput joins the emitted fragments into the full visible response.
func (s *State) AssembledOutput() string {
	return strings.Join(s.EmittedText, "")
}

func (s *State) recordResult(result Result) {
	s.Results = append(s.Results, result)
}

// ResultFor returns the recorded result for a capability kind, if any was
// produced this turn. When a kind was invoked more than once (safety input
// and output passes, persistence load and save), the last result wins.
func (s *State) ResultFor(kind Kind) (Result, bool) {
	for i := len(s.Results) - 1; i >= 0; i-- {
		if s.Results[i].Kind == kind {
			return s.Results[i], true
		}
	}
	return Result{}, false
}
