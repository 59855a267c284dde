// Package wiring assembles the orchestrator from configuration: AWS clients,
// capability adapters, registry, and event sink.
package wiring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"turnflow/adapters/bedrock"
	"turnflow/config"
	"turnflow/eventing/slogsink"
	"turnflow/policy/retry"
	"turnflow/turn"
)

// Collaborators carries the capability implementations behind the adapters.
// Model is mandatory; a nil capability collaborator leaves that capability
// disabled regardless of configuration.
type Collaborators struct {
	Model  turn.ModelStream
	Safety turn.SafetyEvaluator
	Search turn.Retriever
	Store  turn.ConversationStore
	Events turn.EventSink
}

// Runtime is the wired orchestrator plus the registry it runs against.
type Runtime struct {
	Orchestrator *turn.Orchestrator
	Registry     *turn.Registry
}

// New builds the production runtime: AWS clients from the default credential
// chain, one adapter per configured capability.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Runtime, error) {
	clients, err := bedrock.NewClients(ctx, cfg.Region)
	if err != nil {
		return nil, fmt.Errorf("wire aws clients: %w", err)
	}

	collabs := Collaborators{
		Model: bedrock.NewModel(clients.Runtime, cfg.ModelID),
	}
	if cfg.Safety.Enabled() {
		collabs.Safety = bedrock.NewGuardrail(clients.Runtime, cfg.Safety.GuardrailID, cfg.Safety.GuardrailVersion)
	}
	if cfg.Retrieval.Enabled() {
		collabs.Search = bedrock.NewKnowledgeBase(clients.AgentRuntime, cfg.Retrieval.KnowledgeBaseID, cfg.Retrieval.NumResults)
	}
	if cfg.Persistence.Enabled() {
		collabs.Store = bedrock.NewDynamoStore(clients.DynamoDB, cfg.Persistence.MemoryID)
	}
	return NewWithCollaborators(cfg, logger, collabs)
}

// NewWithCollaborators wires the runtime around externally supplied
// collaborators. Tests and offline commands use this to avoid AWS.
func NewWithCollaborators(cfg config.Config, logger *slog.Logger, collabs Collaborators) (*Runtime, error) {
	if collabs.Model == nil {
		return nil, errors.New("wire runtime: model collaborator is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	policy := retry.DefaultPolicy()
	policy.Classify = bedrock.Classify

	var safety *turn.SafetyAdapter
	if cfg.Safety.Enabled() && collabs.Safety != nil {
		safety = turn.NewSafetyAdapter(collabs.Safety, cfg.Safety.GuardrailID, cfg.Safety.GuardrailVersion, policy)
	}
	var retrieval *turn.RetrievalAdapter
	if cfg.Retrieval.Enabled() && collabs.Search != nil {
		retrieval = turn.NewRetrievalAdapter(collabs.Search, cfg.Retrieval.KnowledgeBaseID, cfg.Retrieval.NumResults, policy)
	}
	var persistence *turn.PersistenceAdapter
	if cfg.Persistence.Enabled() && collabs.Store != nil {
		persistence = turn.NewPersistenceAdapter(collabs.Store, cfg.Persistence.MemoryID, policy)
	}

	registry := turn.BuildRegistry(logger, safety, retrieval, persistence)
	for _, kind := range turn.Kinds() {
		logger.Info("capability", "kind", string(kind), "enabled", registry.Enabled(kind))
	}

	events := collabs.Events
	if events == nil {
		events = slogsink.New(logger)
	}

	orchestrator, err := turn.NewOrchestrator(turn.Dependencies{
		Model:    collabs.Model,
		Registry: registry,
		Events:   events,
		Logger:   logger,
	}, turn.Options{
		SystemPrompt: cfg.SystemPrompt,
		SaveOnCancel: cfg.SaveOnCancel,
	})
	if err != nil {
		return nil, fmt.Errorf("wire orchestrator: %w", err)
	}

	return &Runtime{
		Orchestrator: orchestrator,
		Registry:     registry,
	}, nil
}
