package permission

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/deskkube/clustercore/internal/eventsink"
	"github.com/deskkube/clustercore/internal/events"
	"github.com/deskkube/clustercore/internal/pkg/metrics"
)

// Mode selects how aggressively the gate requires interactive approval.
type Mode string

const (
	ModePlan        Mode = "plan"
	ModeDefault     Mode = "default"
	ModeAcceptEdits Mode = "accept-edits"
)

const approvalTimeout = 60 * time.Second

// Decision is the gate's verdict on one tool call.
type Decision struct {
	Allowed   bool
	Blocked   bool
	Severity  Severity
	RequestID string
	Reason    string
}

// pendingApproval is a one-shot reply channel registered while a caller
// waits on an ApprovalRequired round-trip.
type pendingApproval struct {
	reply chan approvalResult
}

type approvalResult struct {
	approved bool
	reason   string
}

// Gate implements the plan/default/accept-edits approval contract
// described in §4.6: classification, hard-blocking on restricted
// namespaces, and the approval round-trip keyed by request id.
type Gate struct {
	mode                 Mode
	restrictedNamespaces []string
	allowedNamespaces    []string // accept-edits mode's allow-list
	sink                 eventsink.Sink
	sessionChannel       string
	limiter              *rate.Limiter

	mu      sync.Mutex
	pending map[string]*pendingApproval
}

// Config configures a new Gate.
type Config struct {
	Mode                 Mode
	RestrictedNamespaces []string
	AllowedNamespaces    []string
	RateLimitPerSec      float64
	RateLimitBurst       int
}

// New builds a Gate that emits approval events on the given session's
// "ai-<id>" channel.
func New(cfg Config, sink eventsink.Sink, sessionChannel string) *Gate {
	restricted := cfg.RestrictedNamespaces
	if len(restricted) == 0 {
		restricted = DefaultRestrictedNamespaces
	}
	var limiter *rate.Limiter
	if cfg.RateLimitPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)
	}
	return &Gate{
		mode:                 cfg.Mode,
		restrictedNamespaces: restricted,
		allowedNamespaces:    cfg.AllowedNamespaces,
		sink:                 sink,
		sessionChannel:       sessionChannel,
		limiter:              limiter,
		pending:              make(map[string]*pendingApproval),
	}
}

func newRequestID() string {
	return uuid.NewString()
}

// Evaluate classifies and routes a tool call. It blocks when the gate
// needs interactive approval, up to 60 seconds, and returns immediately
// otherwise. Blocked calls never reach the caller's subprocess; Evaluate
// emits ToolBlocked itself and returns Decision.Blocked=true.
func (g *Gate) Evaluate(ctx context.Context, toolName, command, namespace string) (Decision, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return Decision{}, err
		}
	}

	severity := Classify(command)

	if severity.AtLeast(SeverityMedium) && IsRestricted(namespace, g.restrictedNamespaces) {
		reason := fmt.Sprintf("%s operations are blocked in restricted namespace %q", severity, namespace)
		eventsink.Emit(g.sink, g.sessionChannel, events.AIToolBlocked, events.ToolBlockedPayload{ToolName: toolName, Reason: reason})
		metrics.PermissionDecisionsTotal.WithLabelValues(string(severity), "blocked").Inc()
		return Decision{Blocked: true, Severity: severity, Reason: reason}, nil
	}

	if !g.requiresApproval(severity, namespace) {
		metrics.PermissionDecisionsTotal.WithLabelValues(string(severity), "allowed").Inc()
		return Decision{Allowed: true, Severity: severity}, nil
	}

	return g.requestApproval(ctx, toolName, command, severity)
}

// requiresApproval implements the per-mode policy: plan requires approval
// for everything, default requires it from medium severity up,
// accept-edits only needs it outside the configured namespace allow-list.
func (g *Gate) requiresApproval(severity Severity, namespace string) bool {
	switch g.mode {
	case ModePlan:
		return true
	case ModeAcceptEdits:
		for _, ns := range g.allowedNamespaces {
			if ns == namespace {
				return false
			}
		}
		return severity.AtLeast(SeverityLow)
	default: // ModeDefault
		return severity.AtLeast(SeverityMedium)
	}
}

func (g *Gate) requestApproval(ctx context.Context, toolName, command string, severity Severity) (Decision, error) {
	id := newRequestID()
	pa := &pendingApproval{reply: make(chan approvalResult, 1)}

	g.mu.Lock()
	g.pending[id] = pa
	g.mu.Unlock()

	waitStart := time.Now()
	eventsink.Emit(g.sink, g.sessionChannel, events.AIApprovalRequired, events.ApprovalRequiredPayload{
		RequestID:      id,
		ToolName:       toolName,
		CommandPreview: command,
		Reason:         fmt.Sprintf("%s severity operation requires approval", severity),
		Severity:       string(severity),
	})

	defer func() {
		g.mu.Lock()
		delete(g.pending, id)
		g.mu.Unlock()
		metrics.PermissionApprovalWaitSeconds.Observe(time.Since(waitStart).Seconds())
	}()

	select {
	case res, ok := <-pa.reply:
		if !ok {
			metrics.PermissionDecisionsTotal.WithLabelValues(string(severity), "timed_out").Inc()
			return Decision{}, fmt.Errorf("approval channel closed for request %s", id)
		}
		verdict := "denied"
		if res.approved {
			verdict = "allowed"
		}
		metrics.PermissionDecisionsTotal.WithLabelValues(string(severity), verdict).Inc()
		return Decision{Allowed: res.approved, Severity: severity, RequestID: id, Reason: res.reason}, nil
	case <-time.After(approvalTimeout):
		metrics.PermissionDecisionsTotal.WithLabelValues(string(severity), "timed_out").Inc()
		return Decision{}, fmt.Errorf("approval request %s timed out after %s", id, approvalTimeout)
	case <-ctx.Done():
		return Decision{}, ctx.Err()
	}
}

// SubmitApproval resolves a pending approval request. Resolving an
// already-resolved or unknown id fails with "not-found".
func (g *Gate) SubmitApproval(id string, approved bool, reason string) error {
	g.mu.Lock()
	pa, ok := g.pending[id]
	if ok {
		delete(g.pending, id)
	}
	g.mu.Unlock()

	if !ok {
		return fmt.Errorf("not-found: no pending approval request %s", id)
	}

	eventsink.Emit(g.sink, g.sessionChannel, events.AIApprovalResponse, events.ApprovalResponsePayload{RequestID: id, Approved: approved})
	pa.reply <- approvalResult{approved: approved, reason: reason}
	close(pa.reply)
	return nil
}
