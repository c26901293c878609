package rest

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/deskkube/clustercore/internal/pkg/validate"
	"github.com/deskkube/clustercore/internal/registry"
	"github.com/deskkube/clustercore/internal/stream/watch"
)

type startWatchRequest struct {
	ResourceKind string `json:"resource_kind"`
	Namespace    string `json:"namespace,omitempty"`
}

// PostWatch opens a watch stream against the active cluster and returns
// the session id the UI subscribes to on channel "watch-<id>".
func (h *Handler) PostWatch(w http.ResponseWriter, r *http.Request) {
	var req startWatchRequest
	if err := decodeJSON(r, &req); err != nil || !validate.Kind(req.ResourceKind) {
		writeBadRequest(w, "resource_kind is required and must be a valid resource kind name")
		return
	}
	if !validate.Namespace(req.Namespace) {
		writeBadRequest(w, "namespace is not a valid Kubernetes namespace name")
		return
	}
	client := h.Session.Client()
	if client == nil {
		writeBadRequest(w, "not connected")
		return
	}

	id := uuid.NewString()
	if err := watch.Start(r.Context(), client, h.Registry, h.Sink, id, req.ResourceKind, req.Namespace); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"session_id": id, "channel": "watch-" + id})
}

// DeleteWatch stops a watch session.
func (h *Handler) DeleteWatch(w http.ResponseWriter, r *http.Request) {
	id := pathVar(r, "id")
	if !h.Registry.Stop(id) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no such watch session"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

// GetStreams lists every live stream session of a given kind (watch, log,
// shell, portforward), or every kind when the query is omitted.
func (h *Handler) GetStreams(w http.ResponseWriter, r *http.Request) {
	kind := registry.Kind(r.URL.Query().Get("kind"))
	entries := h.Registry.List(kind)
	out := make([]map[string]interface{}, 0, len(entries))
	for _, e := range entries {
		out = append(out, map[string]interface{}{
			"id":       e.ID,
			"kind":     e.Kind,
			"metadata": e.Metadata,
			"active":   !e.IsStopped(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"streams": out})
}
