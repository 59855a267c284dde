package turn

import (
	"context"
	"errors"
	"fmt"

	"turnflow/policy/retry"
)

// NoHistorySentinel is the load payload when the (threadID, actorID) pair has
// no stored conversation yet. Not-found is a successful invocation.
const NoHistorySentinel = "no persisted state"

// PersistenceAdapter loads prior conversation state before the model call and
// appends the new turn afterwards. Failures on either path never block
// response delivery; the turn completes without persistence.
type PersistenceAdapter struct {
	store    ConversationStore
	memoryID string
	policy   retry.Policy
}

// NewPersistenceAdapter builds the persistence capability around its
// collaborator store.
func NewPersistenceAdapter(store ConversationStore, memoryID string, policy retry.Policy) *PersistenceAdapter {
	// A missing history entry must not burn retry attempts.
	classify := policy.Classify
	policy.Classify = func(err error) retry.Class {
		if errors.Is(err, ErrHistoryNotFound) {
			return retry.ClassTerminal
		}
		if classify == nil {
			return retry.ClassRetryable
		}
		return classify(err)
	}
	return &PersistenceAdapter{
		store:    store,
		memoryID: memoryID,
		policy:   policy,
	}
}

func (a *PersistenceAdapter) Kind() Kind {
	return KindPersistence
}

func (a *PersistenceAdapter) Validate() error {
	if a.store == nil {
		return &ConfigError{Kind: KindPersistence, Field: "store", Reason: "collaborator is not configured"}
	}
	return validateIdentifier(KindPersistence, "memory_id", a.memoryID)
}

// LoadHistory fetches prior conversation state into the turn state. A
// not-found outcome is success with empty history.
func (a *PersistenceAdapter) LoadHistory(ctx context.Context, state *State) Result {
	history, err := retry.Do(ctx, a.policy, func(ctx context.Context) ([]Message, error) {
		return a.store.Load(ctx, state.ThreadID, state.ActorID)
	})

	var result Result
	switch {
	case errors.Is(err, ErrHistoryNotFound):
		state.History = nil
		result = successResult(KindPersistence, NoHistorySentinel)
	case err != nil:
		result = failedResult(KindPersistence, invocationErrorKind(err), err)
	default:
		state.History = history
		if len(history) == 0 {
			result = successResult(KindPersistence, NoHistorySentinel)
		} else {
			result = successResult(KindPersistence, fmt.Sprintf("loaded %d messages", len(history)))
		}
	}
	state.recordResult(result)
	return result
}

// SaveHistory appends the completed turn to the store keyed by the same
// (threadID, actorID) pair the load used.
func (a *PersistenceAdapter) SaveHistory(ctx context.Context, state *State) Result {
	history := appendTurn(state.History, state.InputText, state.AssembledOutput())
	_, err := retry.Do(ctx, a.policy, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, a.store.Save(ctx, state.ThreadID, state.ActorID, history)
	})

	var result Result
	if err != nil {
		result = failedResult(KindPersistence, invocationErrorKind(err), err)
	} else {
		result = successResult(KindPersistence, fmt.Sprintf("saved %d messages", len(history)))
	}
	state.recordResult(result)
	return result
}

func appendTurn(history []Message, input, output string) []Message {
	updated := make([]Message, 0, len(history)+2)
	updated = append(updated, history...)
	updated = append(updated, Message{Role: RoleUser, Content: input})
	if output != "" {
		updated = append(updated, Message{Role: RoleAssistant, Content: output})
	}
	return updated
}
