package rest

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/deskkube/clustercore/internal/pkg/validate"
	"github.com/deskkube/clustercore/internal/stream/shell"
)

type startShellRequest struct {
	Namespace string   `json:"namespace"`
	Pod       string   `json:"pod"`
	Container string   `json:"container,omitempty"`
	Command   []string `json:"command,omitempty"`
}

// PostShell opens an interactive exec session and returns the id the UI
// subscribes to on channel "shell-<id>" and sends input against.
func (h *Handler) PostShell(w http.ResponseWriter, r *http.Request) {
	client := h.Session.Client()
	if client == nil {
		writeBadRequest(w, "not connected")
		return
	}
	var req startShellRequest
	if err := decodeJSON(r, &req); err != nil || !validate.Namespace(req.Namespace) || req.Namespace == "" || !validate.Name(req.Pod) {
		writeBadRequest(w, "a valid namespace and pod name are required")
		return
	}

	id := uuid.NewString()
	sess, err := shell.Start(r.Context(), client, h.Registry, h.Sink, id, req.Namespace, req.Pod, req.Container, req.Command)
	if err != nil {
		writeError(w, err)
		return
	}
	h.putShell(id, sess)
	writeJSON(w, http.StatusOK, map[string]string{"session_id": id, "channel": "shell-" + id})
}

type shellInputRequest struct {
	Data   []byte        `json:"data,omitempty"`
	Resize *shell.Resize `json:"resize,omitempty"`
}

// PostShellInput forwards keystrokes or a terminal resize to a live shell
// session.
func (h *Handler) PostShellInput(w http.ResponseWriter, r *http.Request) {
	id := pathVar(r, "id")
	sess, ok := h.getShell(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no such shell session"})
		return
	}
	var req shellInputRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	select {
	case sess.In <- shell.Input{Data: req.Data, Resize: req.Resize}:
	case <-r.Context().Done():
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

// DeleteShell stops an interactive exec session.
func (h *Handler) DeleteShell(w http.ResponseWriter, r *http.Request) {
	id := pathVar(r, "id")
	h.dropShell(id)
	if !h.Registry.Stop(id) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no such shell session"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}
