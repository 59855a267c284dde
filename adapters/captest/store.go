package captest

import (
	"context"
	"sync"

	"turnflow/turn"
)

// MemoryStore is an in-memory conversation store keyed like the production
// DynamoDB table. Load and save errors can be scripted per call to exercise
// degradation paths.
type MemoryStore struct {
	mu            sync.Mutex
	conversations map[string][]turn.Message
	loadErrs      []error
	saveErrs      []error
	loadCalls     int
	saveCalls     int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{conversations: make(map[string][]turn.Message)}
}

var _ turn.ConversationStore = (*MemoryStore)(nil)

// ScriptLoadErrors queues errors returned by successive Load calls; a nil
// entry means that call succeeds.
func (s *MemoryStore) ScriptLoadErrors(errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadErrs = append(s.loadErrs, errs...)
}

// ScriptSaveErrors queues errors returned by successive Save calls; a nil
// entry means that call succeeds.
func (s *MemoryStore) ScriptSaveErrors(errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveErrs = append(s.saveErrs, errs...)
}

// Seed stores a history for the pair without counting as a save.
func (s *MemoryStore) Seed(threadID, actorID string, history []turn.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[threadID+"#"+actorID] = turn.CloneMessages(history)
}

func (s *MemoryStore) Load(_ context.Context, threadID, actorID string) ([]turn.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	call := s.loadCalls
	s.loadCalls++
	if call < len(s.loadErrs) && s.loadErrs[call] != nil {
		return nil, s.loadErrs[call]
	}

	history, ok := s.conversations[threadID+"#"+actorID]
	if !ok {
		return nil, turn.ErrHistoryNotFound
	}
	return turn.CloneMessages(history), nil
}

func (s *MemoryStore) Save(_ context.Context, threadID, actorID string, history []turn.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	call := s.saveCalls
	s.saveCalls++
	if call < len(s.saveErrs) && s.saveErrs[call] != nil {
		return s.saveErrs[call]
	}

	s.conversations[threadID+"#"+actorID] = turn.CloneMessages(history)
	return nil
}

// History returns the stored transcript for the pair, or nil.
func (s *MemoryStore) History(threadID, actorID string) []turn.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return turn.CloneMessages(s.conversations[threadID+"#"+actorID])
}

// LoadCalls returns how many loads were attempted.
func (s *MemoryStore) LoadCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadCalls
}

// SaveCalls returns how many saves were attempted.
func (s *MemoryStore) SaveCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveCalls
}
