package turn

// Kind identifies one of the optional conversational capabilities. The set is
// closed; no new kinds appear at runtime.
type Kind string

const (
	KindSafety      Kind = "safety"
	KindRetrieval   Kind = "retrieval"
	KindPersistence Kind = "persistence"
)

// Kinds returns every capability kind in registry priority order.
func Kinds() []Kind {
	return []Kind{KindSafety, KindRetrieval, KindPersistence}
}

// ErrorKind classifies a failed capability invocation.
type ErrorKind string

const (
	ErrorKindConfig    ErrorKind = "config"
	ErrorKindTransient ErrorKind = "transient"
	ErrorKindTerminal  ErrorKind = "terminal"
)

// Result is the uniform outcome of invoking one capability adapter for one
// turn. Exactly one of Payload (success) or ErrorKind (failure) is populated.
// A failed result never terminates the turn; the orchestrator records it and
// proceeds with the capability's fallback. Results are created fresh per
// invocation and discarded when the turn completes.
type Result struct {
	Kind        Kind      `json:"kind"`
	Succeeded   bool      `json:"succeeded"`
	Payload     string    `json:"payload,omitempty"`
	ErrorKind   ErrorKind `json:"error_kind,omitempty"`
	ErrorDetail string    `json:"error_detail,omitempty"`
}

// PayloadBlocked is the payload of a successful safety result whose verdict
// declines to proceed. A policy intervention is a normal outcome, not an
// error.
const PayloadBlocked = "blocked"

func successResult(kind Kind, payload string) Result {
	return Result{
		Kind:      kind,
		Succeeded: true,
		Payload:   payload,
	}
}

func failedResult(kind Kind, errorKind ErrorKind, err error) Result {
	result := Result{
		Kind:      kind,
		ErrorKind: errorKind,
	}
	if err != nil {
		result.ErrorDetail = err.Error()
	}
	return result
}
