package rest

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/deskkube/clustercore/internal/pkg/validate"
	"github.com/deskkube/clustercore/internal/stream/logs"
)

func parseLogOptions(r *http.Request) logs.Options {
	q := r.URL.Query()
	opts := logs.Options{
		Container:  q.Get("container"),
		Follow:     q.Get("follow") != "false",
		Timestamps: q.Get("timestamps") != "false",
		Previous:   q.Get("previous") == "true",
	}
	if v, err := strconv.ParseInt(q.Get("tail_lines"), 10, 64); err == nil {
		opts.TailLines = v
	}
	if v, err := strconv.ParseInt(q.Get("since_seconds"), 10, 64); err == nil {
		opts.SinceSeconds = v
	}
	return opts
}

// GetLogs fetches the current log body for a pod in one shot (no streaming).
func (h *Handler) GetLogs(w http.ResponseWriter, r *http.Request) {
	client := h.Session.Client()
	if client == nil {
		writeBadRequest(w, "not connected")
		return
	}
	namespace, pod := pathVar(r, "namespace"), pathVar(r, "pod")
	if !validate.Namespace(namespace) || !validate.Name(pod) {
		writeBadRequest(w, "invalid namespace or pod name")
		return
	}
	opts := parseLogOptions(r)
	opts.Follow = false

	records, err := logs.GetLogs(r.Context(), client, namespace, pod, opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"lines": records})
}

// PostLogStream starts a follow-stream on channel "log-<id>".
func (h *Handler) PostLogStream(w http.ResponseWriter, r *http.Request) {
	client := h.Session.Client()
	if client == nil {
		writeBadRequest(w, "not connected")
		return
	}
	namespace, pod := pathVar(r, "namespace"), pathVar(r, "pod")
	if !validate.Namespace(namespace) || !validate.Name(pod) {
		writeBadRequest(w, "invalid namespace or pod name")
		return
	}
	opts := parseLogOptions(r)
	opts.Follow = true

	id := uuid.NewString()
	if err := logs.StreamLogs(r.Context(), client, h.Registry, h.Sink, id, namespace, pod, opts); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"session_id": id, "channel": "log-" + id})
}

// DeleteLogStream stops a follow-stream.
func (h *Handler) DeleteLogStream(w http.ResponseWriter, r *http.Request) {
	id := pathVar(r, "id")
	if !h.Registry.Stop(id) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no such log stream"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}
