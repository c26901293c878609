package rest

import (
	"net/http"

	"github.com/gorilla/mux"
)

type connectRequest struct {
	ContextName string `json:"context_name"`
}

// PostConnect resolves the requested context against the configured
// kubeconfig sources and swaps it in as the active cluster client.
func (h *Handler) PostConnect(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	trace, err := h.Session.Connect(r.Context(), req.ContextName)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"trace": trace, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"trace": trace, "context": h.Session.CurrentContext()})
}

// GetStatus reports whether a cluster client is currently active.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"connected": h.Session.IsConnected(),
		"context":   h.Session.CurrentContext(),
	})
}

// GetConnectionTrace returns the trace of the most recent connect attempt.
func (h *Handler) GetConnectionTrace(w http.ResponseWriter, r *http.Request) {
	trace := h.Session.GetLastConnectionLog()
	if trace == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no connection attempt has been made yet"})
		return
	}
	writeJSON(w, http.StatusOK, trace)
}

// GetTestConnection probes the active client with a cheap API call.
func (h *Handler) GetTestConnection(w http.ResponseWriter, r *http.Request) {
	latency, err := h.Session.TestConnection(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"latency_ms": latency.Milliseconds()})
}

// GetNamespaces lists namespaces visible to the active client.
func (h *Handler) GetNamespaces(w http.ResponseWriter, r *http.Request) {
	names, err := h.Session.ListNamespaces(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"namespaces": names})
}

// GetDiscoverResources lists every resource kind the active client's API
// server advertises, for populating a "resource kind" picker.
func (h *Handler) GetDiscoverResources(w http.ResponseWriter, r *http.Request) {
	client := h.Session.Client()
	if client == nil {
		writeBadRequest(w, "not connected")
		return
	}
	resources, err := client.DiscoverAllResources(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"resources": resources})
}

// pathVar returns the named path variable matched by gorilla/mux.
func pathVar(r *http.Request, name string) string {
	return mux.Vars(r)[name]
}
