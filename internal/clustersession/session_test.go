package clustersession

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskkube/clustercore/internal/kubeconfig"
)

const testKubeconfig = `apiVersion: v1
kind: Config
clusters:
- name: test-cluster
  cluster:
    server: https://127.0.0.1:6443
contexts:
- name: test-ctx
  context:
    cluster: test-cluster
    user: test-user
current-context: test-ctx
users:
- name: test-user
  user:
    token: fake-token
`

func writeTempKubeconfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config")
	require.NoError(t, os.WriteFile(path, []byte(testKubeconfig), 0o600))
	return path
}

func newTestSettings(t *testing.T, kubeconfigPath string) *kubeconfig.Settings {
	t.Helper()
	settingsPath := filepath.Join(t.TempDir(), "settings.json")
	s, err := kubeconfig.LoadSettings(settingsPath)
	require.NoError(t, err)
	// The default source is always configured and can't be removed.
	require.Error(t, s.RemoveSource(kubeconfig.DefaultKubeconfigPath()))
	require.NoError(t, s.AddSource(kubeconfig.Source{Path: kubeconfigPath, Kind: kubeconfig.SourceFile}))
	return s
}

func TestSession_ConnectSuccess(t *testing.T) {
	path := writeTempKubeconfig(t)
	settings := newTestSettings(t, path)

	sess := New(settings, 0)
	assert.False(t, sess.IsConnected())

	trace, err := sess.Connect(context.Background(), "test-ctx")
	require.NoError(t, err)
	assert.True(t, trace.Success)
	assert.True(t, sess.IsConnected())
	assert.Equal(t, "test-ctx", sess.CurrentContext())
	assert.NotNil(t, sess.GetLastConnectionLog())
}

func TestSession_ConnectUnknownContextKeepsPrevious(t *testing.T) {
	path := writeTempKubeconfig(t)
	settings := newTestSettings(t, path)

	sess := New(settings, 0)
	_, err := sess.Connect(context.Background(), "test-ctx")
	require.NoError(t, err)

	_, err = sess.Connect(context.Background(), "does-not-exist")
	assert.Error(t, err)
	assert.Equal(t, "test-ctx", sess.CurrentContext(), "failed connect must retain the previous active client")
}

func TestSession_NotConnectedOperationsError(t *testing.T) {
	settings := newTestSettings(t, writeTempKubeconfig(t))
	sess := New(settings, 0)

	_, err := sess.TestConnection(context.Background())
	assert.Error(t, err)

	_, err = sess.ListNamespaces(context.Background())
	assert.Error(t, err)
}
