// Package rest exposes the core's operations over HTTP: one handler per
// command group (cluster, kubeconfig, watch, logs, shell, port-forward, AI
// agent, permission gate), mounted under /api/v1 by SetupRoutes, grounded
// in the teacher's rest.Handler/SetupRoutes split.
package rest

import (
	"encoding/json"
	"net/http"

	"github.com/deskkube/clustercore/internal/classify"
)

// statusForKind maps a classified error kind to the HTTP status the REST
// layer reports it as.
var statusForKind = map[classify.Kind]int{
	classify.Forbidden:    http.StatusForbidden,
	classify.Unauthorized: http.StatusUnauthorized,
	classify.NotFound:     http.StatusNotFound,
	classify.Conflict:     http.StatusConflict,
	classify.RateLimited:  http.StatusTooManyRequests,
	classify.ServerError:  http.StatusBadGateway,
	classify.Network:      http.StatusBadGateway,
	classify.Timeout:      http.StatusGatewayTimeout,
	classify.Unknown:      http.StatusInternalServerError,
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError classifies err (it may already be a *classify.Error, e.g.
// from Session methods) and writes it as the response body with the
// matching HTTP status.
func writeError(w http.ResponseWriter, err error) {
	ce, ok := err.(*classify.Error)
	if !ok {
		ce = classify.Classify(err)
	}
	status, ok := statusForKind[ce.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, map[string]interface{}{"error": ce})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": message})
}

func decodeJSON(r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
