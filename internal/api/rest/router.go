package rest

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/deskkube/clustercore/internal/eventsink"
)

// SetupRoutes mounts every command group's handlers onto router.
func SetupRoutes(router *mux.Router, h *Handler) {
	router.HandleFunc("/cluster/connect", h.PostConnect).Methods(http.MethodPost)
	router.HandleFunc("/cluster/status", h.GetStatus).Methods(http.MethodGet)
	router.HandleFunc("/cluster/connection-trace", h.GetConnectionTrace).Methods(http.MethodGet)
	router.HandleFunc("/cluster/test-connection", h.GetTestConnection).Methods(http.MethodGet)
	router.HandleFunc("/cluster/namespaces", h.GetNamespaces).Methods(http.MethodGet)
	router.HandleFunc("/cluster/resources", h.GetDiscoverResources).Methods(http.MethodGet)

	router.HandleFunc("/kubeconfig/sources", h.GetSources).Methods(http.MethodGet)
	router.HandleFunc("/kubeconfig/sources", h.PostSources).Methods(http.MethodPost)
	router.HandleFunc("/kubeconfig/sources", h.DeleteSource).Methods(http.MethodDelete)
	router.HandleFunc("/kubeconfig/merge-mode", h.PutMergeMode).Methods(http.MethodPut)
	router.HandleFunc("/kubeconfig/validate", h.GetValidateSource).Methods(http.MethodGet)
	router.HandleFunc("/kubeconfig/contexts", h.GetContexts).Methods(http.MethodGet)

	router.HandleFunc("/streams", h.GetStreams).Methods(http.MethodGet)

	router.HandleFunc("/watch", h.PostWatch).Methods(http.MethodPost)
	router.HandleFunc("/watch/{id}", h.DeleteWatch).Methods(http.MethodDelete)

	router.HandleFunc("/logs/{namespace}/{pod}", h.GetLogs).Methods(http.MethodGet)
	router.HandleFunc("/logs/{namespace}/{pod}/stream", h.PostLogStream).Methods(http.MethodPost)
	router.HandleFunc("/logs/stream/{id}", h.DeleteLogStream).Methods(http.MethodDelete)

	router.HandleFunc("/shell", h.PostShell).Methods(http.MethodPost)
	router.HandleFunc("/shell/{id}/input", h.PostShellInput).Methods(http.MethodPost)
	router.HandleFunc("/shell/{id}", h.DeleteShell).Methods(http.MethodDelete)

	router.HandleFunc("/portforward", h.PostPortForward).Methods(http.MethodPost)
	router.HandleFunc("/portforward/{id}", h.DeletePortForward).Methods(http.MethodDelete)

	router.HandleFunc("/ai/sessions", h.PostAISession).Methods(http.MethodPost)
	router.HandleFunc("/ai/sessions", h.GetAISessions).Methods(http.MethodGet)
	router.HandleFunc("/ai/sessions/{id}", h.DeleteAISession).Methods(http.MethodDelete)
	router.HandleFunc("/ai/sessions/{id}/messages", h.GetAIMessages).Methods(http.MethodGet)
	router.HandleFunc("/ai/sessions/{id}/messages", h.PostAIMessage).Methods(http.MethodPost)
	router.HandleFunc("/ai/sessions/{id}/interrupt", h.PostAIInterrupt).Methods(http.MethodPost)
	router.HandleFunc("/ai/approvals/{requestId}", h.PostApproval).Methods(http.MethodPost)
}

// upgrader mirrors the teacher's permissive desktop-app posture: Origin is
// already constrained by CORS at the HTTP layer, so the WebSocket upgrade
// itself does not re-check it.
var upgrader = websocket.Upgrader{
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// WebSocketHandler upgrades a connection and hands it to hub for the
// lifetime of the socket; the client filters the firehose by channel key.
func WebSocketHandler(hub *eventsink.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.ServeClient(conn)
	}
}
