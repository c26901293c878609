// Package logs implements the log stream driver: a one-shot fetch of the
// full log body, and a follow-stream that emits Line events until EOF,
// stop, or upstream error.
package logs

import (
	"bufio"
	"context"
	"io"
	"time"

	corev1 "k8s.io/api/core/v1"

	"github.com/deskkube/clustercore/internal/classify"
	"github.com/deskkube/clustercore/internal/eventsink"
	"github.com/deskkube/clustercore/internal/events"
	"github.com/deskkube/clustercore/internal/k8s"
	"github.com/deskkube/clustercore/internal/registry"
)

// Options configures a log fetch or stream; zero values take the defaults
// noted per field.
type Options struct {
	Container    string
	Follow       bool // stream_logs default: true
	Timestamps   bool // stream_logs default: true
	TailLines    int64
	SinceSeconds int64
	Previous     bool
}

func (o Options) toPodLogOptions() *corev1.PodLogOptions {
	opts := &corev1.PodLogOptions{
		Container:  o.Container,
		Follow:     o.Follow,
		Timestamps: o.Timestamps,
		Previous:   o.Previous,
	}
	if o.TailLines > 0 {
		opts.TailLines = &o.TailLines
	}
	if o.SinceSeconds > 0 {
		opts.SinceSeconds = &o.SinceSeconds
	}
	return opts
}

// Record is one parsed log line, returned in bulk by GetLogs.
type Record struct {
	Timestamp string `json:"timestamp,omitempty"`
	Message   string `json:"message"`
}

// timestampPrefixLen is how many leading characters are inspected for an
// RFC-3339 timestamp before the line is considered untimestamped.
const timestampPrefixLen = 30

func splitTimestamp(line string) (string, string) {
	if len(line) < 20 {
		return "", line
	}
	// One extra character so the space after a full-length timestamp is seen.
	probe := line
	if len(probe) > timestampPrefixLen+1 {
		probe = probe[:timestampPrefixLen+1]
	}
	spaceIdx := -1
	for i, r := range probe {
		if r == ' ' {
			spaceIdx = i
			break
		}
	}
	if spaceIdx == -1 {
		return "", line
	}
	candidate := line[:spaceIdx]
	if _, err := time.Parse(time.RFC3339Nano, candidate); err != nil {
		if _, err := time.Parse(time.RFC3339, candidate); err != nil {
			return "", line
		}
	}
	rest := line[spaceIdx:]
	for len(rest) > 0 && rest[0] == ' ' {
		rest = rest[1:]
	}
	return candidate, rest
}

// GetLogs fetches the full, non-streaming log body and parses it into one
// Record per line.
func GetLogs(ctx context.Context, client *k8s.Client, namespace, pod string, opts Options) ([]Record, error) {
	req := client.Clientset.CoreV1().Pods(namespace).GetLogs(pod, opts.toPodLogOptions())
	stream, err := req.Stream(ctx)
	if err != nil {
		return nil, classify.Classify(err)
	}
	defer stream.Close()

	var records []Record
	scanner := bufio.NewScanner(stream)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		ts, msg := splitTimestamp(scanner.Text())
		records = append(records, Record{Timestamp: ts, Message: msg})
	}
	if err := scanner.Err(); err != nil {
		return records, classify.Classify(err)
	}
	return records, nil
}

// defaultOptions applies stream_logs's documented defaults where the caller
// left a field at its zero value.
func defaultOptions(o Options) Options {
	o.Follow = true
	o.Timestamps = true
	if o.TailLines == 0 {
		o.TailLines = 100
	}
	return o
}

// StreamLogs opens a follow-stream and emits Line events on channel
// "log-<id>" until EOF, the registry entry is stopped, or an upstream
// error occurs (emitted as a terminal Error event). It registers and
// removes its own entry.
func StreamLogs(ctx context.Context, client *k8s.Client, reg *registry.Registry, sink eventsink.Sink, id, namespace, pod string, opts Options) error {
	opts = defaultOptions(opts)
	channel := events.ChannelKey("log", id)

	entry := registry.NewEntry(id, registry.KindLog, map[string]string{
		"namespace": namespace,
		"pod":       pod,
		"container": opts.Container,
	})

	// The follow stream's HTTP connection must survive past this request:
	// client-go keys the connection's whole lifetime off the context it was
	// opened with, so the open itself has to use the session-scoped context,
	// not the request's.
	streamCtx, cancel := registry.DetachedContext(entry)
	req := client.Clientset.CoreV1().Pods(namespace).GetLogs(pod, opts.toPodLogOptions())
	stream, err := req.Stream(streamCtx)
	if err != nil {
		cancel()
		return classify.Classify(err)
	}

	reg.Add(entry)
	eventsink.Emit(sink, channel, events.LogStarted, nil)

	go runFollow(entry, reg, stream, sink, channel, namespace, pod, opts.Container, cancel)
	return nil
}

func runFollow(entry *registry.Entry, reg *registry.Registry, stream io.ReadCloser, sink eventsink.Sink, channel, namespace, pod, container string, cancel context.CancelFunc) {
	defer cancel()
	defer reg.Remove(entry.ID)
	defer stream.Close()

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(stream)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-entry.Stopped():
				return
			}
		}
		select {
		case scanErr <- scanner.Err():
		case <-entry.Stopped():
		}
	}()

	for {
		select {
		case <-entry.Stopped():
			eventsink.Emit(sink, channel, events.LogStopped, nil)
			return
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					if err != nil && err != io.EOF {
						eventsink.Emit(sink, channel, events.LogError, classify.Classify(err))
					} else {
						eventsink.Emit(sink, channel, events.LogStopped, nil)
					}
				case <-entry.Stopped():
					eventsink.Emit(sink, channel, events.LogStopped, nil)
				}
				return
			}
			ts, msg := splitTimestamp(line)
			eventsink.Emit(sink, channel, events.LogLine, events.LogLinePayload{
				Timestamp: ts,
				Message:   msg,
				Container: container,
				Pod:       pod,
				Namespace: namespace,
			})
		}
	}
}
