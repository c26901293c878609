// Package portforward implements the port-forward stream driver: it picks
// a local TCP port, resolves a pod or service target to a concrete
// (pod, container port) pair the way kubectl's own port-forward command
// does, and hands the rest to client-go's SPDY-based PortForwarder.
package portforward

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"strconv"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/util/httpstream"
	"k8s.io/apimachinery/pkg/util/intstr"
	"k8s.io/client-go/tools/portforward"
	"k8s.io/client-go/transport/spdy"

	"github.com/deskkube/clustercore/internal/classify"
	"github.com/deskkube/clustercore/internal/eventsink"
	"github.com/deskkube/clustercore/internal/events"
	"github.com/deskkube/clustercore/internal/k8s"
	"github.com/deskkube/clustercore/internal/registry"
)

const (
	localPortRangeStart = 30000
	localPortRangeEnd   = 60000
)

// Target names either a pod directly or a service to be resolved to one of
// its running pods.
type Target struct {
	Namespace  string
	Pod        string // direct pod target; takes precedence over Service
	Service    string
	TargetPort string // numeric, named, or "" to use the service's only port
}

// Options configures a port-forward session.
type Options struct {
	Target    Target
	LocalPort int // 0 means caller has no preference
}

// Session is a live port-forward: LocalPort is the bound address callers
// connect to.
type Session struct {
	LocalPort int
	fwd       *portforward.PortForwarder
}

// Stop tears down the forwarder immediately.
func (s *Session) Stop() { s.fwd.Close() }

// Start resolves the target, binds a local port, and forwards connections
// to the target pod until the registry entry is stopped. It registers with
// reg and removes itself on termination; once registered, a terminal
// Stopped event is always emitted when the session is removed.
func Start(ctx context.Context, client *k8s.Client, reg *registry.Registry, sink eventsink.Sink, id string, opts Options) (*Session, error) {
	channel := events.ChannelKey("portforward", id)
	eventsink.Emit(sink, channel, events.PortForwardStarted, nil)

	podName, containerPort, err := resolvePodAndPort(ctx, client, opts.Target)
	if err != nil {
		eventsink.Emit(sink, channel, events.PortForwardError, err.Error())
		return nil, err
	}

	roundTripper, upgrader, err := spdy.RoundTripperFor(client.Config)
	if err != nil {
		eventsink.Emit(sink, channel, events.PortForwardError, err.Error())
		return nil, fmt.Errorf("build SPDY round tripper: %w", err)
	}
	req := client.Clientset.CoreV1().RESTClient().Post().
		Resource("pods").
		Namespace(opts.Target.Namespace).
		Name(podName).
		SubResource("portforward")
	dialer := spdy.NewDialer(upgrader, &http.Client{Transport: roundTripper}, "POST", req.URL())

	entry := registry.NewEntry(id, registry.KindPortForward, map[string]string{
		"namespace":      opts.Target.Namespace,
		"pod":            podName,
		"container_port": strconv.Itoa(containerPort),
	})
	reg.Add(entry)

	sess, err := bindAndForward(dialer, opts.LocalPort, containerPort, entry)
	if err != nil {
		eventsink.Emit(sink, channel, events.PortForwardError, err.Error())
		reg.Remove(id)
		eventsink.Emit(sink, channel, events.PortForwardStopped, nil)
		return nil, err
	}
	entry.Metadata["local_port"] = strconv.Itoa(sess.LocalPort)

	go watch(entry, reg, sess, sink, channel)
	return sess, nil
}

// bindAndForward tries only the caller-preferred local port when one is
// given; otherwise it starts at a random port within [30000,60000) and
// falls back sequentially through the range, per §4.4.4.
func bindAndForward(dialer httpstream.Dialer, preferred, containerPort int, entry *registry.Entry) (*Session, error) {
	candidates := portCandidates(preferred)
	var lastErr error
	for _, p := range candidates {
		if !probeFree(p) {
			continue
		}
		readyCh := make(chan struct{})
		fwd, err := portforward.New(dialer, []string{fmt.Sprintf("%d:%d", p, containerPort)}, entry.Stopped(), readyCh, io.Discard, io.Discard)
		if err != nil {
			lastErr = err
			continue
		}
		errCh := make(chan error, 1)
		go func() { errCh <- fwd.ForwardPorts() }()
		select {
		case <-readyCh:
			return &Session{LocalPort: p, fwd: fwd}, nil
		case err := <-errCh:
			lastErr = err
			continue
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no free local port available")
	}
	return nil, lastErr
}

func portCandidates(preferred int) []int {
	if preferred > 0 {
		return []int{preferred}
	}
	start := localPortRangeStart + rand.Intn(localPortRangeEnd-localPortRangeStart)
	out := make([]int, 0, localPortRangeEnd-localPortRangeStart)
	for p := start; p < localPortRangeEnd; p++ {
		out = append(out, p)
	}
	for p := localPortRangeStart; p < start; p++ {
		out = append(out, p)
	}
	return out
}

func probeFree(port int) bool {
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return false
	}
	ln.Close()
	return true
}

// watch waits for the session's stop signal, closes the forwarder and
// emits Disconnected then Stopped. It does not observe the forwarder's own
// exit: if ForwardPorts fails upstream, the session stays registered and
// no event is emitted until it is stopped.
func watch(entry *registry.Entry, reg *registry.Registry, sess *Session, sink eventsink.Sink, channel string) {
	defer reg.Remove(entry.ID)
	eventsink.Emit(sink, channel, events.PortForwardConnected, nil)

	<-entry.Stopped()
	sess.fwd.Close()
	eventsink.Emit(sink, channel, events.PortForwardDisconnected, nil)
	eventsink.Emit(sink, channel, events.PortForwardStopped, nil)
}

// resolvePodAndPort resolves Target to a concrete (pod name, container
// port), following service -> label selector -> running pod -> port
// mapping when Target.Pod is empty.
func resolvePodAndPort(ctx context.Context, client *k8s.Client, t Target) (string, int, error) {
	if t.Pod != "" {
		port, err := strconv.Atoi(t.TargetPort)
		if err != nil {
			return "", 0, fmt.Errorf("target port %q must be numeric for a direct pod target", t.TargetPort)
		}
		return t.Pod, port, nil
	}

	svc, err := client.Clientset.CoreV1().Services(t.Namespace).Get(ctx, t.Service, metav1.GetOptions{})
	if err != nil {
		return "", 0, classify.Classify(err)
	}

	targetPort, err := resolveServicePort(svc, t.TargetPort)
	if err != nil {
		return "", 0, err
	}

	pods, err := client.Clientset.CoreV1().Pods(t.Namespace).List(ctx, metav1.ListOptions{
		LabelSelector: labels.SelectorFromSet(svc.Spec.Selector).String(),
	})
	if err != nil {
		return "", 0, classify.Classify(err)
	}
	var runningPod *corev1.Pod
	for i := range pods.Items {
		if pods.Items[i].Status.Phase == corev1.PodRunning {
			runningPod = &pods.Items[i]
			break
		}
	}
	if runningPod == nil {
		return "", 0, fmt.Errorf("service %s/%s has no running pods", t.Namespace, t.Service)
	}

	containerPort, err := resolveContainerPort(runningPod, targetPort)
	if err != nil {
		return "", 0, err
	}
	return runningPod.Name, containerPort, nil
}

// resolveServicePort maps a requested numeric/named/omitted target port to
// the service's corresponding TargetPort spec (still possibly named).
func resolveServicePort(svc *corev1.Service, requested string) (intstr.IntOrString, error) {
	if len(svc.Spec.Ports) == 0 {
		return intstr.IntOrString{}, fmt.Errorf("service %s/%s exposes no ports", svc.Namespace, svc.Name)
	}
	if requested == "" {
		if len(svc.Spec.Ports) != 1 {
			return intstr.IntOrString{}, fmt.Errorf("service %s/%s exposes multiple ports; a target port is required", svc.Namespace, svc.Name)
		}
		return defaultedTargetPort(svc.Spec.Ports[0]), nil
	}
	if n, err := strconv.Atoi(requested); err == nil {
		for _, sp := range svc.Spec.Ports {
			if int(sp.Port) == n {
				return defaultedTargetPort(sp), nil
			}
		}
	}
	for _, sp := range svc.Spec.Ports {
		if sp.Name == requested {
			return defaultedTargetPort(sp), nil
		}
	}
	return intstr.IntOrString{}, fmt.Errorf("service %s/%s has no port matching %q", svc.Namespace, svc.Name, requested)
}

// defaultedTargetPort returns sp.TargetPort, defaulting an omitted
// TargetPort to sp.Port per the Service API's documented behavior.
func defaultedTargetPort(sp corev1.ServicePort) intstr.IntOrString {
	if sp.TargetPort.IntVal == 0 && sp.TargetPort.StrVal == "" {
		return intstr.FromInt(int(sp.Port))
	}
	return sp.TargetPort
}

// resolveContainerPort resolves a possibly-named TargetPort against the
// pod's own container port declarations.
func resolveContainerPort(pod *corev1.Pod, targetPort intstr.IntOrString) (int, error) {
	if targetPort.Type == intstr.Int {
		return targetPort.IntValue(), nil
	}
	for _, c := range pod.Spec.Containers {
		for _, p := range c.Ports {
			if p.Name == targetPort.StrVal {
				return int(p.ContainerPort), nil
			}
		}
	}
	return 0, fmt.Errorf("named container port %q not found on pod %s", targetPort.StrVal, pod.Name)
}
