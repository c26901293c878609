package clustersession

import "time"

// TraceStep is one recorded step of a connect attempt.
type TraceStep struct {
	Step   string `json:"step"`
	Detail string `json:"detail,omitempty"`
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
}

// ConnectionTrace is the human-readable, ordered log of the most recent
// connect attempt; it survives failures so the UI can export it for
// debugging.
type ConnectionTrace struct {
	ContextName string        `json:"context_name"`
	Steps       []TraceStep   `json:"steps"`
	Success     bool          `json:"success"`
	Elapsed     time.Duration `json:"elapsed_ns"`
	StartedAt   time.Time     `json:"started_at"`
}

// tracer accumulates steps for one connect attempt.
type tracer struct {
	trace *ConnectionTrace
}

func newTracer(contextName string) *tracer {
	return &tracer{trace: &ConnectionTrace{ContextName: contextName, StartedAt: time.Now()}}
}

func (t *tracer) step(name, detail string, err error) {
	s := TraceStep{Step: name, Detail: detail, OK: err == nil}
	if err != nil {
		s.Error = err.Error()
	}
	t.trace.Steps = append(t.trace.Steps, s)
}

func (t *tracer) finish(success bool) *ConnectionTrace {
	t.trace.Success = success
	t.trace.Elapsed = time.Since(t.trace.StartedAt)
	return t.trace
}
