package httpapi

import (
	"net/http"

	"turnflow/turn"
)

type handlers struct {
	orchestrator *turn.Orchestrator
}

// NewRouter exposes the invocation endpoint and the readiness probe.
func NewRouter(orchestrator *turn.Orchestrator) http.Handler {
	h := &handlers{orchestrator: orchestrator}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /invocations", h.handleInvocation)
	mux.HandleFunc("GET /ping", h.handlePing)
	return mux
}
