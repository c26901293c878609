package rest

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/deskkube/clustercore/internal/pkg/validate"
	"github.com/deskkube/clustercore/internal/stream/portforward"
)

type startPortForwardRequest struct {
	Namespace  string `json:"namespace"`
	Pod        string `json:"pod,omitempty"`
	Service    string `json:"service,omitempty"`
	TargetPort string `json:"target_port,omitempty"`
	LocalPort  int    `json:"local_port,omitempty"`
}

// PostPortForward opens a port-forward against a pod or service and
// returns the bound local port.
func (h *Handler) PostPortForward(w http.ResponseWriter, r *http.Request) {
	client := h.Session.Client()
	if client == nil {
		writeBadRequest(w, "not connected")
		return
	}
	var req startPortForwardRequest
	if err := decodeJSON(r, &req); err != nil || req.Namespace == "" || !validate.Namespace(req.Namespace) || (req.Pod == "" && req.Service == "") {
		writeBadRequest(w, "a valid namespace and one of pod/service are required")
		return
	}
	if req.Pod != "" && !validate.Name(req.Pod) {
		writeBadRequest(w, "invalid pod name")
		return
	}
	if req.Service != "" && !validate.Name(req.Service) {
		writeBadRequest(w, "invalid service name")
		return
	}

	id := uuid.NewString()
	opts := portforward.Options{
		Target: portforward.Target{
			Namespace:  req.Namespace,
			Pod:        req.Pod,
			Service:    req.Service,
			TargetPort: req.TargetPort,
		},
		LocalPort: req.LocalPort,
	}
	sess, err := portforward.Start(r.Context(), client, h.Registry, h.Sink, id, opts)
	if err != nil {
		writeError(w, err)
		return
	}
	h.putForward(id, sess)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": id,
		"channel":    "portforward-" + id,
		"local_port": sess.LocalPort,
	})
}

// DeletePortForward tears down a port-forward session.
func (h *Handler) DeletePortForward(w http.ResponseWriter, r *http.Request) {
	id := pathVar(r, "id")
	sess, ok := h.getForward(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no such port-forward session"})
		return
	}
	sess.Stop()
	h.dropForward(id)
	h.Registry.Stop(id)
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}
