package permission

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskkube/clustercore/internal/events"
)

type recordedEvent struct {
	channel, eventType string
	data               interface{}
}

type recordingSink struct {
	events []recordedEvent
}

func (r *recordingSink) Emit(channel, eventType string, data interface{}) {
	r.events = append(r.events, recordedEvent{channel, eventType, data})
}

func (r *recordingSink) find(eventType string) (recordedEvent, bool) {
	for _, ev := range r.events {
		if ev.eventType == eventType {
			return ev, true
		}
	}
	return recordedEvent{}, false
}

func TestEvaluate_DefaultModeAllowsReadOnly(t *testing.T) {
	sink := &recordingSink{}
	g := New(Config{Mode: ModeDefault}, sink, "ai-1")

	d, err := g.Evaluate(context.Background(), "kubectl_get", "kubectl get pods", "default")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.False(t, d.Blocked)
}

func TestEvaluate_DefaultModeRequiresApprovalForMedium(t *testing.T) {
	sink := &recordingSink{}
	g := New(Config{Mode: ModeDefault}, sink, "ai-1")

	resultCh := make(chan Decision, 1)
	go func() {
		d, err := g.Evaluate(context.Background(), "kubectl_apply", "kubectl apply -f x.yaml", "default")
		require.NoError(t, err)
		resultCh <- d
	}()

	require.Eventually(t, func() bool {
		_, ok := sink.find(events.AIApprovalRequired)
		return ok
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, g.SubmitApproval(firstPendingID(g), true, "looks fine"))

	select {
	case d := <-resultCh:
		assert.True(t, d.Allowed)
	case <-time.After(time.Second):
		t.Fatal("Evaluate did not return after approval")
	}
}

func TestEvaluate_PlanModeRequiresApprovalForReadOnly(t *testing.T) {
	sink := &recordingSink{}
	g := New(Config{Mode: ModePlan}, sink, "ai-1")

	resultCh := make(chan Decision, 1)
	go func() {
		d, err := g.Evaluate(context.Background(), "kubectl_get", "kubectl get pods", "default")
		require.NoError(t, err)
		resultCh <- d
	}()

	require.Eventually(t, func() bool {
		return len(g.pending) == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, g.SubmitApproval(firstPendingID(g), false, "not now"))

	select {
	case d := <-resultCh:
		assert.False(t, d.Allowed)
	case <-time.After(time.Second):
		t.Fatal("Evaluate did not return after denial")
	}
}

func TestEvaluate_HardBlocksRestrictedNamespace(t *testing.T) {
	sink := &recordingSink{}
	g := New(Config{Mode: ModeAcceptEdits}, sink, "ai-1")

	d, err := g.Evaluate(context.Background(), "kubectl_delete", "kubectl delete pod my-pod", "kube-system")
	require.NoError(t, err)
	assert.True(t, d.Blocked)
	assert.Equal(t, SeverityHigh, d.Severity)

	_, ok := sink.find(events.AIToolBlocked)
	assert.True(t, ok)
}

func TestEvaluate_AcceptEditsAllowsNamespaceOnAllowList(t *testing.T) {
	sink := &recordingSink{}
	g := New(Config{Mode: ModeAcceptEdits, AllowedNamespaces: []string{"dev"}}, sink, "ai-1")

	d, err := g.Evaluate(context.Background(), "kubectl_apply", "kubectl apply -f x.yaml", "dev")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestSubmitApproval_UnknownIDFails(t *testing.T) {
	sink := &recordingSink{}
	g := New(Config{Mode: ModeDefault}, sink, "ai-1")

	err := g.SubmitApproval("does-not-exist", true, "")
	assert.Error(t, err)
}

func TestSubmitApproval_DuplicateSubmitFails(t *testing.T) {
	sink := &recordingSink{}
	g := New(Config{Mode: ModePlan}, sink, "ai-1")

	resultCh := make(chan Decision, 1)
	go func() {
		d, _ := g.Evaluate(context.Background(), "kubectl_get", "kubectl get pods", "default")
		resultCh <- d
	}()

	require.Eventually(t, func() bool {
		return len(g.pending) == 1
	}, time.Second, 5*time.Millisecond)

	id := firstPendingID(g)
	require.NoError(t, g.SubmitApproval(id, true, ""))
	<-resultCh

	err := g.SubmitApproval(id, true, "")
	assert.Error(t, err)
}

func firstPendingID(g *Gate) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	for id := range g.pending {
		return id
	}
	return ""
}
