package rest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskkube/clustercore/internal/aiagent"
	"github.com/deskkube/clustercore/internal/clustersession"
	"github.com/deskkube/clustercore/internal/db"
	"github.com/deskkube/clustercore/internal/eventsink"
	"github.com/deskkube/clustercore/internal/kubeconfig"
	"github.com/deskkube/clustercore/internal/permission"
	"github.com/deskkube/clustercore/internal/registry"
)

func newTestHandler(t *testing.T) (*Handler, *mux.Router) {
	t.Helper()
	settingsPath := filepath.Join(t.TempDir(), "settings.json")
	settings, err := kubeconfig.LoadSettings(settingsPath)
	require.NoError(t, err)
	// The default source is always configured and can't be removed.
	require.Error(t, settings.RemoveSource(kubeconfig.DefaultKubeconfigPath()))

	sess := clustersession.New(settings, 0)
	reg := registry.New()
	store, err := db.Open(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	h := New(sess, settings, kubeconfig.NewResolver(), reg, noopSink{}, store, AgentConfig{
		Binary:         "echo",
		Provider:       aiagent.ProviderA,
		Args:           aiagent.DefaultArgs(aiagent.ProviderA),
		PermissionMode: permission.ModeDefault,
	})

	router := mux.NewRouter()
	SetupRoutes(router, h)
	return h, router
}

type noopSink struct{}

func (noopSink) Emit(channel, eventType string, data interface{}) {}

var _ eventsink.Sink = noopSink{}

func doRequest(router *mux.Router, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestGetStatus_InitiallyDisconnected(t *testing.T) {
	_, router := newTestHandler(t)
	w := doRequest(router, http.MethodGet, "/cluster/status", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["connected"])
}

func TestWatch_NotConnectedReturnsBadRequest(t *testing.T) {
	_, router := newTestHandler(t)
	w := doRequest(router, http.MethodPost, "/watch", map[string]string{"resource_kind": "pods"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWatch_InvalidResourceKindRejected(t *testing.T) {
	_, router := newTestHandler(t)
	w := doRequest(router, http.MethodPost, "/watch", map[string]string{"resource_kind": "../etc/passwd"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSources_AddListRemoveRoundTrip(t *testing.T) {
	_, router := newTestHandler(t)

	path := filepath.Join(t.TempDir(), "kubeconfig")
	w := doRequest(router, http.MethodPost, "/kubeconfig/sources", map[string]string{"path": path, "kind": "file"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, http.MethodGet, "/kubeconfig/sources", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	sources, ok := body["sources"].([]interface{})
	require.True(t, ok)
	assert.Len(t, sources, 2) // the default source plus the one just added

	w = doRequest(router, http.MethodDelete, "/kubeconfig/sources?path="+path, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStreams_EmptyInitially(t *testing.T) {
	_, router := newTestHandler(t)
	w := doRequest(router, http.MethodGet, "/streams", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	streams, ok := body["streams"].([]interface{})
	require.True(t, ok)
	assert.Empty(t, streams)
}

func TestAISession_CreateListMessagesRoundTrip(t *testing.T) {
	_, router := newTestHandler(t)

	w := doRequest(router, http.MethodPost, "/ai/sessions", map[string]string{"cluster_context": "dev", "title": "debug"})
	require.Equal(t, http.StatusOK, w.Code)
	var created map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	id, ok := created["session_id"].(string)
	require.True(t, ok)
	require.NotEmpty(t, id)

	w = doRequest(router, http.MethodGet, "/ai/sessions?cluster_context=dev", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, http.MethodGet, "/ai/sessions/"+id+"/messages", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var msgs map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &msgs))
	assert.Empty(t, msgs["messages"])
}

func TestAIMessage_UnknownSessionReturnsNotFound(t *testing.T) {
	_, router := newTestHandler(t)
	w := doRequest(router, http.MethodPost, "/ai/sessions/does-not-exist/messages", map[string]string{"content": "hi"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestApproval_UnknownRequestIDReturnsNotFound(t *testing.T) {
	_, router := newTestHandler(t)
	w := doRequest(router, http.MethodPost, "/ai/approvals/does-not-exist", map[string]interface{}{"approved": true})
	assert.Equal(t, http.StatusNotFound, w.Code)
}
