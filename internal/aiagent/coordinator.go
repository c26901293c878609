// Package aiagent coordinates one subprocess-backed AI chat session: it
// spawns an external LLM CLI per message in JSONL mode, decodes its
// stdout line by line, and re-emits the decoded events into the core
// event taxonomy, grounded in the teacher's kcli-stream subprocess
// lifecycle (PTY-free: this is a line-oriented protocol, not a terminal).
package aiagent

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/deskkube/clustercore/internal/eventsink"
	"github.com/deskkube/clustercore/internal/events"
	"github.com/deskkube/clustercore/internal/permission"
	"github.com/deskkube/clustercore/internal/pkg/metrics"
)

const (
	maxAttempts       = 2
	retrySleep        = 2 * time.Second
	stderrRingDefault = 8192
)

// transientPatterns are matched case-insensitively against captured
// stderr to decide whether a non-zero exit is worth retrying.
var transientPatterns = []string{"500", "529", "overloaded", "internal server error", "rate limit"}

func isTransient(stderr string) bool {
	lower := strings.ToLower(stderr)
	for _, p := range transientPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// Config holds the fixed per-session settings needed to spawn the agent
// binary.
type Config struct {
	Binary        string
	Provider      Provider
	Args          func(message string) []string
	StderrRingLen int

	// Gate is consulted before any tool_use event is allowed to stand; nil
	// means every tool call is observed but never gated.
	Gate *permission.Gate
}

// Coordinator runs at most one subprocess turn at a time for one session.
// send_message while a turn is in flight fails fast.
type Coordinator struct {
	cfg   Config
	sink  eventsink.Sink
	id    string
	chKey string

	mu         sync.Mutex
	processing bool
	current    *exec.Cmd
}

// New builds a Coordinator for one AI session, identified by id, emitting
// to channel "ai-<id>".
func New(cfg Config, sink eventsink.Sink, id string) *Coordinator {
	if cfg.StderrRingLen <= 0 {
		cfg.StderrRingLen = stderrRingDefault
	}
	return &Coordinator{cfg: cfg, sink: sink, id: id, chKey: events.ChannelKey("ai", id)}
}

// IsProcessing reports whether a turn is currently in flight.
func (c *Coordinator) IsProcessing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.processing
}

// ErrBusy is returned by SendMessage when a turn is already in flight.
var ErrBusy = fmt.Errorf("a message is already being processed for this session")

// SendMessage spawns the subprocess for message and streams decoded
// events to the sink until the turn completes, retries once, or fails.
// It blocks for the duration of the turn; callers run it in a goroutine.
func (c *Coordinator) SendMessage(ctx context.Context, message string) error {
	c.mu.Lock()
	if c.processing {
		c.mu.Unlock()
		return ErrBusy
	}
	c.processing = true
	c.mu.Unlock()

	start := time.Now()
	defer func() {
		c.mu.Lock()
		c.processing = false
		c.current = nil
		c.mu.Unlock()
		metrics.AIRequestDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	outcome := "failed"
	err := c.runWithRetry(ctx, message, &outcome)
	metrics.AIRequestsTotal.WithLabelValues(outcome).Inc()
	return err
}

func (c *Coordinator) runWithRetry(ctx context.Context, message string, outcome *string) error {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		stderr, exitErr := c.runOnce(ctx, message)
		if exitErr == nil {
			*outcome = "success"
			return nil
		}
		if attempt < maxAttempts && isTransient(stderr) {
			*outcome = "retried"
			eventsink.Emit(c.sink, c.chKey, events.AIMessageChunk, events.MessageChunkPayload{Content: "retrying after a transient upstream error...", Done: false})
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retrySleep):
			}
			continue
		}
		eventsink.Emit(c.sink, c.chKey, events.AIError, events.ErrorPayload{Message: exitErr.Error()})
		return exitErr
	}
	return nil
}

// runOnce spawns one subprocess attempt, decodes its stdout concurrently
// with stderr capture, and returns the captured stderr tail plus any
// process error (nil on clean exit).
func (c *Coordinator) runOnce(ctx context.Context, message string) (string, error) {
	args := c.cfg.Args(message)
	cmd := exec.CommandContext(ctx, c.cfg.Binary, args...)
	cmd.Env = withPATH(cmd.Environ(), BuildPATH())
	cmd.Cancel = func() error { return cmd.Process.Kill() }

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", err
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return "", err
	}

	if err := cmd.Start(); err != nil {
		return "", err
	}

	c.mu.Lock()
	c.current = cmd
	c.mu.Unlock()

	eventsink.Emit(c.sink, c.chKey, events.AISessionStarted, nil)

	var (
		stderrBuf bytes.Buffer
		stderrMu  sync.Mutex
		gateErr   error
	)
	group, _ := errgroup.WithContext(ctx)
	group.Go(func() error {
		buf := make([]byte, 4096)
		for {
			n, readErr := stderrPipe.Read(buf)
			if n > 0 {
				stderrMu.Lock()
				stderrBuf.Write(buf[:n])
				if stderrBuf.Len() > c.cfg.StderrRingLen {
					trimmed := stderrBuf.Bytes()[stderrBuf.Len()-c.cfg.StderrRingLen:]
					stderrBuf.Reset()
					stderrBuf.Write(trimmed)
				}
				stderrMu.Unlock()
			}
			if readErr != nil {
				return nil
			}
		}
	})
	group.Go(func() error {
		gateErr = c.decodeStdout(ctx, stdout)
		return nil
	})
	_ = group.Wait()

	waitErr := cmd.Wait()
	stderrMu.Lock()
	captured := stderrBuf.String()
	stderrMu.Unlock()

	if gateErr != nil {
		return captured, gateErr
	}
	return captured, waitErr
}

// withPATH replaces any existing PATH entry in env with computed, since
// exec.Cmd does not dedupe keys and the last match is not guaranteed to
// win on every platform.
func withPATH(env []string, computed string) []string {
	out := make([]string, 0, len(env)+1)
	for _, e := range env {
		if strings.HasPrefix(e, "PATH=") {
			continue
		}
		out = append(out, e)
	}
	return append(out, "PATH="+computed)
}

// decodeStdout performs no speculative buffering: one input line is one
// decode attempt. Lines that don't start with '{' are emitted as raw text.
// It returns a non-nil error only when the permission gate aborts the turn
// (approval timeout or context cancellation; a denial does not abort), in
// which case the subprocess has already been killed.
func (c *Coordinator) decodeStdout(ctx context.Context, stdout io.Reader) error {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	thinkingSent := false

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if line[0] != '{' {
			eventsink.Emit(c.sink, c.chKey, events.AIMessageChunk, events.MessageChunkPayload{Content: string(line), Done: false})
			continue
		}

		for _, ev := range Decode(c.cfg.Provider, line) {
			if !thinkingSent {
				thinkingSent = true
				eventsink.Emit(c.sink, c.chKey, events.AIThinking, events.ThinkingPayload{Active: false})
			}
			switch ev.Kind {
			case "text":
				eventsink.Emit(c.sink, c.chKey, events.AIMessageChunk, events.MessageChunkPayload{Content: ev.Text, Done: false})
			case "tool_use":
				eventsink.Emit(c.sink, c.chKey, events.AIToolExecution, events.ToolExecutionPayload{ToolName: ev.ToolName, Status: "running"})
				if err := c.gateToolCall(ctx, ev); err != nil {
					c.Interrupt()
					return err
				}
			case "turn_done":
				eventsink.Emit(c.sink, c.chKey, events.AIMessageChunk, events.MessageChunkPayload{Content: "", Done: true})
			}
		}
	}
	eventsink.Emit(c.sink, c.chKey, events.AISessionEnded, nil)
	return nil
}

// gateToolCall asks the configured permission gate whether ev may proceed.
// A nil Gate (no permission policy attached to this session) observes the
// call without ever blocking it. The gate itself emits ApprovalRequired/
// ApprovalResponse/ToolBlocked; gateToolCall only reacts to the outcome: a
// denial or hard block is recorded against the tool call, while a timeout
// or context cancellation aborts the whole turn, since the subprocess
// cannot be told "no" mid-flight and must be stopped instead.
func (c *Coordinator) gateToolCall(ctx context.Context, ev DecodedEvent) error {
	if c.cfg.Gate == nil {
		return nil
	}

	command := ev.ToolName
	if len(ev.ToolArgs) > 0 {
		command = ev.ToolName + " " + string(ev.ToolArgs)
	}

	decision, err := c.cfg.Gate.Evaluate(ctx, ev.ToolName, command, extractNamespace(ev.ToolArgs))
	if err != nil {
		return fmt.Errorf("permission gate aborted tool call %q: %w", ev.ToolName, err)
	}

	if decision.Blocked || !decision.Allowed {
		eventsink.Emit(c.sink, c.chKey, events.AIToolExecution, events.ToolExecutionPayload{
			ToolName: ev.ToolName,
			Status:   "failed",
			Output:   decision.Reason,
		})
	}
	return nil
}

// extractNamespace looks for a top-level "namespace" string field in a
// tool call's JSON arguments; absent or unparseable arguments yield "".
func extractNamespace(args json.RawMessage) string {
	if len(args) == 0 {
		return ""
	}
	var parsed struct {
		Namespace string `json:"namespace"`
	}
	if err := json.Unmarshal(args, &parsed); err != nil {
		return ""
	}
	return parsed.Namespace
}

// Interrupt cancels the in-flight subprocess, if any, by killing it.
// kill_on_drop semantics: dropping the process handle after Kill ensures
// termination even if the child ignores signals gracefully.
func (c *Coordinator) Interrupt() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != nil && c.current.Process != nil {
		_ = c.current.Process.Kill()
	}
}
