// Package captest provides deterministic scripted collaborators for wiring
// and transport tests. Every double is safe for concurrent use.
package captest

import (
	"context"
	"fmt"
	"io"
	"sync"

	"turnflow/turn"
)

// Stream configures one scripted model turn: the events to play back, then
// an optional terminal error instead of a clean end of stream.
type Stream struct {
	Events   []turn.StreamEvent
	FinalErr error
}

// ScriptedModel plays back one configured stream per turn and records the
// prompts it was asked to stream.
type ScriptedModel struct {
	mu      sync.Mutex
	index   int
	streams []Stream
	prompts []turn.Prompt
}

func NewScriptedModel(streams ...Stream) *ScriptedModel {
	cloned := make([]Stream, len(streams))
	copy(cloned, streams)
	return &ScriptedModel{streams: cloned}
}

var _ turn.ModelStream = (*ScriptedModel)(nil)

func (m *ScriptedModel) Stream(_ context.Context, prompt turn.Prompt) (turn.EventStream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.prompts = append(m.prompts, prompt)
	if m.index >= len(m.streams) {
		return nil, fmt.Errorf("script exhausted at turn %d", m.index+1)
	}
	current := m.streams[m.index]
	m.index++
	return &scriptedStream{events: current.Events, finalErr: current.FinalErr}, nil
}

// Prompts returns the prompts streamed so far.
func (m *ScriptedModel) Prompts() []turn.Prompt {
	m.mu.Lock()
	defer m.mu.Unlock()
	cloned := make([]turn.Prompt, len(m.prompts))
	copy(cloned, m.prompts)
	return cloned
}

type scriptedStream struct {
	mu       sync.Mutex
	events   []turn.StreamEvent
	finalErr error
	pos      int
}

func (s *scriptedStream) Next(ctx context.Context) (turn.StreamEvent, error) {
	if err := ctx.Err(); err != nil {
		return turn.StreamEvent{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pos >= len(s.events) {
		if s.finalErr != nil {
			return turn.StreamEvent{}, s.finalErr
		}
		return turn.StreamEvent{}, io.EOF
	}
	event := s.events[s.pos]
	s.pos++
	return event, nil
}

func (s *scriptedStream) Close() error {
	return nil
}

// Evaluation configures one scripted safety call.
type Evaluation struct {
	Verdict turn.Verdict
	Err     error
}

// ScriptedSafety plays back configured evaluations in order, defaulting to
// an allowed verdict once the script runs out.
type ScriptedSafety struct {
	mu          sync.Mutex
	index       int
	evaluations []Evaluation
	sources     []turn.SafetySource
}

func NewScriptedSafety(evaluations ...Evaluation) *ScriptedSafety {
	cloned := make([]Evaluation, len(evaluations))
	copy(cloned, evaluations)
	return &ScriptedSafety{evaluations: cloned}
}

var _ turn.SafetyEvaluator = (*ScriptedSafety)(nil)

func (s *ScriptedSafety) Evaluate(_ context.Context, source turn.SafetySource, _ string) (turn.Verdict, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sources = append(s.sources, source)
	if s.index >= len(s.evaluations) {
		return turn.Verdict{Allowed: true}, nil
	}
	current := s.evaluations[s.index]
	s.index++
	if current.Err != nil {
		return turn.Verdict{}, current.Err
	}
	return current.Verdict, nil
}

// Calls returns the number of evaluations performed.
func (s *ScriptedSafety) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sources)
}

// Retrieval configures one scripted retriever call.
type Retrieval struct {
	Passages []turn.Passage
	Err      error
}

// ScriptedRetriever plays back configured retrievals in order, defaulting to
// no passages once the script runs out.
type ScriptedRetriever struct {
	mu         sync.Mutex
	index      int
	retrievals []Retrieval
	queries    []string
}

func NewScriptedRetriever(retrievals ...Retrieval) *ScriptedRetriever {
	cloned := make([]Retrieval, len(retrievals))
	copy(cloned, retrievals)
	return &ScriptedRetriever{retrievals: cloned}
}

var _ turn.Retriever = (*ScriptedRetriever)(nil)

func (r *ScriptedRetriever) Query(_ context.Context, text string) ([]turn.Passage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.queries = append(r.queries, text)
	if r.index >= len(r.retrievals) {
		return nil, nil
	}
	current := r.retrievals[r.index]
	r.index++
	if current.Err != nil {
		return nil, current.Err
	}
	cloned := make([]turn.Passage, len(current.Passages))
	copy(cloned, current.Passages)
	return cloned, nil
}

// Queries returns the query texts seen so far.
func (r *ScriptedRetriever) Queries() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	cloned := make([]string, len(r.queries))
	copy(cloned, r.queries)
	return cloned
}
