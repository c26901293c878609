package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/deskkube/clustercore/internal/db"
	"github.com/deskkube/clustercore/internal/permission"
)

type createAISessionRequest struct {
	ClusterContext string `json:"cluster_context"`
	Title          string `json:"title,omitempty"`
}

// PostAISession records a new AI chat session against a cluster context
// and returns the id used for every subsequent call.
func (h *Handler) PostAISession(w http.ResponseWriter, r *http.Request) {
	var req createAISessionRequest
	if err := decodeJSON(r, &req); err != nil || req.ClusterContext == "" {
		writeBadRequest(w, "cluster_context is required")
		return
	}
	now := time.Now().UTC().Format(time.RFC3339)
	id := uuid.NewString()
	sess := db.Session{
		SessionID:      id,
		ClusterContext: req.ClusterContext,
		CreatedAt:      now,
		LastActiveAt:   now,
		PermissionMode: string(h.Agent.PermissionMode),
		Title:          req.Title,
	}
	if err := h.Store.CreateSession(r.Context(), sess); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// GetAISessions lists every AI session recorded against a cluster context.
func (h *Handler) GetAISessions(w http.ResponseWriter, r *http.Request) {
	clusterContext := r.URL.Query().Get("cluster_context")
	if clusterContext == "" {
		writeBadRequest(w, "missing cluster_context query parameter")
		return
	}
	sessions, err := h.Store.ListSessionsByCluster(r.Context(), clusterContext)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"sessions": sessions})
}

// GetAIMessages returns the full message history of one AI session.
func (h *Handler) GetAIMessages(w http.ResponseWriter, r *http.Request) {
	id := pathVar(r, "id")
	messages, err := h.Store.ListMessages(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"messages": messages})
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

// PostAIMessage records the user's message and kicks off one subprocess
// turn in the background; the turn's output arrives on channel "ai-<id>"
// via the event sink, not in this response.
func (h *Handler) PostAIMessage(w http.ResponseWriter, r *http.Request) {
	id := pathVar(r, "id")
	var req sendMessageRequest
	if err := decodeJSON(r, &req); err != nil || req.Content == "" {
		writeBadRequest(w, "content is required")
		return
	}

	sess, err := h.Store.GetSession(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if sess == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no such AI session"})
		return
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if err := h.Store.AppendMessage(r.Context(), db.Message{
		MessageID: uuid.NewString(),
		SessionID: id,
		Role:      "user",
		Content:   req.Content,
		Timestamp: now,
	}); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	_ = h.Store.TouchSession(r.Context(), id, now)

	coord := h.coordinatorFor(id)
	if coord.IsProcessing() {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "a message is already being processed for this session"})
		return
	}

	go func() {
		// Detached from the request context: the turn must survive the
		// HTTP round trip, and runs until the subprocess exits or is
		// interrupted.
		_ = coord.SendMessage(context.Background(), req.Content)
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "processing", "channel": "ai-" + id})
}

// PostAIInterrupt kills the in-flight subprocess for a session, if any.
func (h *Handler) PostAIInterrupt(w http.ResponseWriter, r *http.Request) {
	id := pathVar(r, "id")
	coord := h.coordinatorFor(id)
	coord.Interrupt()
	writeJSON(w, http.StatusOK, map[string]string{"status": "interrupted"})
}

// DeleteAISession removes a session and its messages, and drops its
// in-memory coordinator/gate.
func (h *Handler) DeleteAISession(w http.ResponseWriter, r *http.Request) {
	id := pathVar(r, "id")
	if err := h.Store.DeleteSession(r.Context(), id); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	h.dropAISession(id)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type submitApprovalRequest struct {
	Approved bool   `json:"approved"`
	Reason   string `json:"reason,omitempty"`
}

// PostApproval resolves a pending tool-call approval. The request id is
// global (generated by the gate), so every live gate is tried until one
// recognizes it.
func (h *Handler) PostApproval(w http.ResponseWriter, r *http.Request) {
	requestID := pathVar(r, "requestId")
	var req submitApprovalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	h.mu.Lock()
	gates := make([]*permission.Gate, 0, len(h.gates))
	for _, g := range h.gates {
		gates = append(gates, g)
	}
	h.mu.Unlock()

	var lastErr error
	for _, g := range gates {
		if err := g.SubmitApproval(requestID, req.Approved, req.Reason); err == nil {
			writeJSON(w, http.StatusOK, map[string]string{"status": "resolved"})
			return
		} else {
			lastErr = err
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no pending approval with id %q", requestID)
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": lastErr.Error()})
}
