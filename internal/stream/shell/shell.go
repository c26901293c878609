// Package shell implements the shell stream driver: an interactive TTY
// exec session against a pod container, grounded in the teacher's
// WebSocket exec handler but decoupled from HTTP — input arrives over a
// channel of typed messages, output is emitted through the event sink.
package shell

import (
	"context"
	"io"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/tools/remotecommand"

	"github.com/deskkube/clustercore/internal/classify"
	"github.com/deskkube/clustercore/internal/eventsink"
	"github.com/deskkube/clustercore/internal/events"
	"github.com/deskkube/clustercore/internal/k8s"
	"github.com/deskkube/clustercore/internal/registry"
)

// inputBufferSize is the suggested minimum backlog for the input channel
// (§4.4.3: "suggested ≥ 256 messages").
const inputBufferSize = 256

const defaultCommand = "sh"

// Resize is a terminal-size change forwarded to the TTY side-channel.
type Resize struct {
	Cols uint16
	Rows uint16
}

// Input is one message sent down a Session's input channel: exactly one of
// Data or Resize is set.
type Input struct {
	Data   []byte
	Resize *Resize
}

// Session is a live interactive exec; the caller sends Input messages on
// In and the driver emits Output/Started/Closed/Error events to the sink.
type Session struct {
	In chan Input
}

type sizeQueue struct {
	ch  chan *remotecommand.TerminalSize
	ctx context.Context
}

func (q *sizeQueue) Next() *remotecommand.TerminalSize {
	select {
	case s := <-q.ch:
		return s
	case <-q.ctx.Done():
		return nil
	}
}

func (q *sizeQueue) push(r Resize) {
	select {
	case q.ch <- &remotecommand.TerminalSize{Width: r.Cols, Height: r.Rows}:
	default:
	}
}

// chanWriter adapts a sink's Output events to io.Writer for stdout/stderr.
type chanWriter struct {
	sink    eventsink.Sink
	channel string
}

func (w *chanWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	eventsink.Emit(w.sink, w.channel, events.ShellOutput, string(p))
	return len(p), nil
}

// Start opens an interactive TTY exec against namespace/pod/container,
// resolving container to the pod's first container and command to "sh"
// when unset. It registers with reg and removes itself on termination.
func Start(ctx context.Context, client *k8s.Client, reg *registry.Registry, sink eventsink.Sink, id, namespace, pod, container string, command []string) (*Session, error) {
	channel := events.ChannelKey("shell", id)

	podObj, err := client.Clientset.CoreV1().Pods(namespace).Get(ctx, pod, metav1.GetOptions{})
	if err != nil {
		return nil, classify.Classify(err)
	}
	if container == "" {
		if len(podObj.Spec.Containers) > 0 {
			container = podObj.Spec.Containers[0].Name
		}
	}
	if len(command) == 0 {
		command = []string{defaultCommand}
	}

	req := client.Clientset.CoreV1().RESTClient().Post().
		Resource("pods").
		Namespace(namespace).
		Name(pod).
		SubResource("exec").
		VersionedParams(&corev1.PodExecOptions{
			Container: container,
			Command:   command,
			Stdin:     true,
			Stdout:    true,
			Stderr:    true,
			TTY:       true,
		}, scheme.ParameterCodec)

	executor, err := remotecommand.NewSPDYExecutor(client.Config, "POST", req.URL())
	if err != nil {
		return nil, classify.Classify(err)
	}

	entry := registry.NewEntry(id, registry.KindShell, map[string]string{
		"namespace": namespace,
		"pod":       pod,
		"container": container,
	})
	reg.Add(entry)

	sess := &Session{In: make(chan Input, inputBufferSize)}
	stdinR, stdinW := io.Pipe()

	// The exec stream outlives this request; stop_stream must be able to
	// terminate it even after the starting HTTP response has been written.
	execCtx, cancel := registry.DetachedContext(entry)
	sq := &sizeQueue{ch: make(chan *remotecommand.TerminalSize, 4), ctx: execCtx}

	go pumpInput(execCtx, entry, sess.In, stdinW, sq)
	go runExec(execCtx, entry, reg, executor, sink, channel, stdinR, sq, cancel)

	eventsink.Emit(sink, channel, events.ShellStarted, nil)
	return sess, nil
}

func pumpInput(ctx context.Context, entry *registry.Entry, in <-chan Input, stdinW io.WriteCloser, sq *sizeQueue) {
	defer stdinW.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case <-entry.Stopped():
			return
		case msg, ok := <-in:
			if !ok {
				return
			}
			if msg.Resize != nil {
				sq.push(*msg.Resize)
				continue
			}
			if len(msg.Data) > 0 {
				if _, err := stdinW.Write(msg.Data); err != nil {
					return
				}
			}
		}
	}
}

func runExec(ctx context.Context, entry *registry.Entry, reg *registry.Registry, executor remotecommand.Executor, sink eventsink.Sink, channel string, stdinR io.Reader, sq *sizeQueue, cancel context.CancelFunc) {
	defer cancel()
	defer reg.Remove(entry.ID)

	err := executor.StreamWithContext(ctx, remotecommand.StreamOptions{
		Stdin:             stdinR,
		Stdout:            &chanWriter{sink: sink, channel: channel},
		Stderr:            &chanWriter{sink: sink, channel: channel},
		Tty:               true,
		TerminalSizeQueue: sq,
	})
	if err != nil {
		eventsink.Emit(sink, channel, events.ShellError, classify.Classify(err))
		return
	}
	eventsink.Emit(sink, channel, events.ShellClosed, nil)
}
