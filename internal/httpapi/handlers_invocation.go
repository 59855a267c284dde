package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"turnflow/turn"
)

type invocationRequest struct {
	Prompt    string `json:"prompt"`
	ActorID   string `json:"actor_id"`
	SessionID string `json:"session_id"`
}

// invocationLine is one NDJSON line of the streamed response. Fragment lines
// carry text; the end line carries the terminal status.
type invocationLine struct {
	Type     string      `json:"type"`
	Text     string      `json:"text,omitempty"`
	TurnID   string      `json:"turn_id,omitempty"`
	Status   turn.Status `json:"status,omitempty"`
	Error    string      `json:"error,omitempty"`
	Degraded []turn.Kind `json:"degraded,omitempty"`
}

const (
	lineTypeFragment = "fragment"
	lineTypeEnd      = "end"
	lineTypeError    = "error"
)

// handleInvocation runs one turn and streams visible fragments as NDJSON
// lines. Headers go out before the model responds, so turn failures after
// the first byte surface as an error line, not an HTTP status.
func (h *handlers) handleInvocation(w http.ResponseWriter, r *http.Request) {
	var req invocationRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeInvalidRequest(w, err.Error())
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeInvalidRequest(w, "prompt is required")
		return
	}

	writer, err := newStreamWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, errorCodeRuntime, err.Error())
		return
	}

	state, execErr := h.orchestrator.Execute(r.Context(), turn.Request{
		ActorID:   req.ActorID,
		ThreadID:  req.SessionID,
		InputText: req.Prompt,
	}, func(_ context.Context, fragment string) error {
		return writer.writeLine(invocationLine{Type: lineTypeFragment, Text: fragment})
	})

	if execErr != nil {
		if errors.Is(execErr, turn.ErrInputEmpty) {
			_ = writer.writeLine(invocationLine{Type: lineTypeError, Error: "prompt is required"})
			return
		}
		_ = writer.writeLine(invocationLine{
			Type:   lineTypeError,
			TurnID: state.TurnID,
			Status: state.Status,
			Error:  execErr.Error(),
		})
		return
	}

	_ = writer.writeLine(invocationLine{
		Type:     lineTypeEnd,
		TurnID:   state.TurnID,
		Status:   state.Status,
		Degraded: degradedKinds(state),
	})
}

func degradedKinds(state turn.State) []turn.Kind {
	var kinds []turn.Kind
	for _, kind := range turn.Kinds() {
		if result, ok := state.ResultFor(kind); ok && !result.Succeeded {
			kinds = append(kinds, kind)
		}
	}
	return kinds
}

func (h *handlers) handlePing(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
