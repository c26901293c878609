package rest

import (
	"net/http"

	"github.com/deskkube/clustercore/internal/kubeconfig"
)

// GetSources lists the configured kubeconfig sources and merge-mode flag.
func (h *Handler) GetSources(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sources":    h.Settings.ListSources(),
		"merge_mode": h.Settings.IsMergeMode(),
	})
}

type addSourceRequest struct {
	Path string              `json:"path"`
	Kind kubeconfig.SourceKind `json:"kind"`
}

// PostSources adds a new kubeconfig source (file or folder).
func (h *Handler) PostSources(w http.ResponseWriter, r *http.Request) {
	var req addSourceRequest
	if err := decodeJSON(r, &req); err != nil || req.Path == "" {
		writeBadRequest(w, "invalid request body")
		return
	}
	if req.Kind == "" {
		req.Kind = kubeconfig.SourceFile
	}
	if err := h.Settings.AddSource(kubeconfig.Source{Path: req.Path, Kind: req.Kind}); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"sources": h.Settings.ListSources()})
}

// DeleteSource removes a previously configured kubeconfig source.
func (h *Handler) DeleteSource(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeBadRequest(w, "missing path query parameter")
		return
	}
	if err := h.Settings.RemoveSource(path); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"sources": h.Settings.ListSources()})
}

type mergeModeRequest struct {
	Enabled bool `json:"enabled"`
}

// PutMergeMode toggles whether configured sources are merged into one
// context namespace or kept independent.
func (h *Handler) PutMergeMode(w http.ResponseWriter, r *http.Request) {
	var req mergeModeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if err := h.Settings.SetMergeMode(req.Enabled); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"merge_mode": req.Enabled})
}

// GetValidateSource validates a candidate kubeconfig path without adding it.
func (h *Handler) GetValidateSource(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeBadRequest(w, "missing path query parameter")
		return
	}
	writeJSON(w, http.StatusOK, h.Resolver.Validate(path))
}

// GetContexts returns the merged, normalized view of every context across
// configured sources.
func (h *Handler) GetContexts(w http.ResponseWriter, r *http.Request) {
	parsed, err := h.Resolver.Load(h.Settings.ListSources(), h.Settings.IsMergeMode())
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, parsed)
}
