package turn

import (
	"context"
	"fmt"
	"strings"

	"turnflow/policy/retry"
)

// NoContextSentinel is the retrieval payload when the query matched nothing.
// An empty result list is a successful invocation, never an error.
const NoContextSentinel = "No relevant information found in the knowledge base."

// RetrievalAdapter fetches ranked context passages for the turn's input text
// and concatenates them into a single labeled context string.
type RetrievalAdapter struct {
	retriever       Retriever
	knowledgeBaseID string
	numResults      int
	policy          retry.Policy
}

const (
	// DefaultNumResults balances grounding context against noise.
	DefaultNumResults = 5
	minNumResults     = 1
	maxNumResults     = 20
)

// NewRetrievalAdapter builds the retrieval capability around its collaborator.
func NewRetrievalAdapter(retriever Retriever, knowledgeBaseID string, numResults int, policy retry.Policy) *RetrievalAdapter {
	return &RetrievalAdapter{
		retriever:       retriever,
		knowledgeBaseID: knowledgeBaseID,
		numResults:      numResults,
		policy:          policy,
	}
}

func (a *RetrievalAdapter) Kind() Kind {
	return KindRetrieval
}

func (a *RetrievalAdapter) Validate() error {
	if a.retriever == nil {
		return &ConfigError{Kind: KindRetrieval, Field: "retriever", Reason: "collaborator is not configured"}
	}
	if err := validateIdentifier(KindRetrieval, "knowledge_base_id", a.knowledgeBaseID); err != nil {
		return err
	}
	if a.numResults < minNumResults || a.numResults > maxNumResults {
		return &ConfigError{
			Kind:   KindRetrieval,
			Field:  "num_results",
			Reason: fmt.Sprintf("result count %d is outside %d..%d", a.numResults, minNumResults, maxNumResults),
		}
	}
	return nil
}

// FetchContext queries the retriever and stores the formatted context on the
// turn state. The prompt-forming collaborator merges it into the model call.
func (a *RetrievalAdapter) FetchContext(ctx context.Context, state *State) Result {
	passages, err := retry.Do(ctx, a.policy, func(ctx context.Context) ([]Passage, error) {
		return a.retriever.Query(ctx, state.InputText)
	})

	var result Result
	if err != nil {
		result = failedResult(KindRetrieval, invocationErrorKind(err), err)
	} else {
		formatted := FormatPassages(passages)
		state.RetrievedContext = formatted
		result = successResult(KindRetrieval, formatted)
	}
	state.recordResult(result)
	return result
}

// FormatPassages concatenates ranked passages with 1-based ordinal labels.
func FormatPassages(passages []Passage) string {
	if len(passages) == 0 {
		return NoContextSentinel
	}
	parts := make([]string, 0, len(passages))
	for i, passage := range passages {
		parts = append(parts, fmt.Sprintf("Result %d:\n%s\n", i+1, passage.Content))
	}
	return strings.Join(parts, "\n")
}
