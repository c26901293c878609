package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sessions.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_CreateAndGetSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sess := Session{
		SessionID:      "sess-1",
		ClusterContext: "dev-cluster",
		CreatedAt:      "2026-08-01T00:00:00Z",
		LastActiveAt:   "2026-08-01T00:00:00Z",
		PermissionMode: "default",
		Title:          "debug crashloop",
	}
	require.NoError(t, s.CreateSession(ctx, sess))

	got, err := s.GetSession(ctx, "sess-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, sess.ClusterContext, got.ClusterContext)
	assert.Equal(t, sess.Title, got.Title)
}

func TestStore_GetSession_MissingReturnsNilNoError(t *testing.T) {
	s := newTestStore(t)
	got, err := s.GetSession(context.Background(), "does-not-exist")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_ListSessionsByCluster(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateSession(ctx, Session{SessionID: "a", ClusterContext: "prod", CreatedAt: "t1", LastActiveAt: "t1", PermissionMode: "plan"}))
	require.NoError(t, s.CreateSession(ctx, Session{SessionID: "b", ClusterContext: "prod", CreatedAt: "t2", LastActiveAt: "t2", PermissionMode: "plan"}))
	require.NoError(t, s.CreateSession(ctx, Session{SessionID: "c", ClusterContext: "dev", CreatedAt: "t3", LastActiveAt: "t3", PermissionMode: "plan"}))

	sessions, err := s.ListSessionsByCluster(ctx, "prod")
	require.NoError(t, err)
	assert.Len(t, sessions, 2)
}

func TestStore_AppendAndListMessages(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateSession(ctx, Session{SessionID: "sess-1", ClusterContext: "dev", CreatedAt: "t0", LastActiveAt: "t0", PermissionMode: "default"}))
	require.NoError(t, s.AppendMessage(ctx, Message{MessageID: "m1", SessionID: "sess-1", Role: "user", Content: "why is my pod crashlooping?", Timestamp: "t1"}))
	require.NoError(t, s.AppendMessage(ctx, Message{MessageID: "m2", SessionID: "sess-1", Role: "assistant", Content: "checking logs now", Timestamp: "t2"}))

	messages, err := s.ListMessages(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "user", messages[0].Role)
	assert.Equal(t, "assistant", messages[1].Role)
}

func TestStore_DeleteSessionCascadesMessages(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateSession(ctx, Session{SessionID: "sess-1", ClusterContext: "dev", CreatedAt: "t0", LastActiveAt: "t0", PermissionMode: "default"}))
	require.NoError(t, s.AppendMessage(ctx, Message{MessageID: "m1", SessionID: "sess-1", Role: "user", Content: "hi", Timestamp: "t1"}))

	require.NoError(t, s.DeleteSession(ctx, "sess-1"))

	messages, err := s.ListMessages(ctx, "sess-1")
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestStore_DeleteSession_MissingIsNoError(t *testing.T) {
	s := newTestStore(t)
	err := s.DeleteSession(context.Background(), "does-not-exist")
	assert.NoError(t, err)
}
