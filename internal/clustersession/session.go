// Package clustersession manages the single active cluster connection: it
// resolves a context name against the currently configured kubeconfig
// sources, builds a client, and swaps it in atomically so in-flight
// operations on the previous client are unaffected by a later reconnect.
package clustersession

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/deskkube/clustercore/internal/classify"
	"github.com/deskkube/clustercore/internal/k8s"
	"github.com/deskkube/clustercore/internal/kubeconfig"
	"k8s.io/client-go/tools/clientcmd"
)

// Session owns the single active cluster client. Connect replaces the
// active client atomically; readers never observe a half-built client.
type Session struct {
	resolver *kubeconfig.Resolver
	settings *kubeconfig.Settings

	timeout time.Duration

	active atomic.Pointer[k8s.Client]

	mu       sync.Mutex
	lastLog  *ConnectionTrace
}

// New builds a Session around the given settings store; timeout bounds
// every outbound API call made through the active client.
func New(settings *kubeconfig.Settings, timeout time.Duration) *Session {
	return &Session{
		resolver: kubeconfig.NewResolver(),
		settings: settings,
		timeout:  timeout,
	}
}

// Connect resolves contextName against the configured sources, builds a
// client, and on success replaces the active client atomically. On failure
// the previously active client (if any) is retained untouched.
func (s *Session) Connect(ctx context.Context, contextName string) (*ConnectionTrace, error) {
	tr := newTracer(contextName)

	sources := s.settings.ListSources()
	mergeMode := s.settings.IsMergeMode()

	files := kubeconfig.ExpandSources(sources)
	tr.step("expand-sources", fmt.Sprintf("%d source file(s)", len(files)), nil)

	parsed, err := s.resolver.Load(sources, mergeMode)
	if err != nil {
		tr.step("load-sources", "", err)
		s.record(tr.finish(false))
		return tr.trace, classifyConnectErr(err)
	}
	tr.step("load-sources", fmt.Sprintf("%d context(s)", len(parsed.Contexts)), nil)

	resolvedContext := contextName
	if resolvedContext == "" {
		resolvedContext = parsed.CurrentContext
	}

	var clusterRef, userRef, authKind, sourceFile string
	found := false
	for _, c := range parsed.Contexts {
		if c.Name == resolvedContext {
			clusterRef = c.Cluster
			userRef = c.User
			sourceFile = c.SourceFile
			found = true
			break
		}
	}
	if !found {
		err := fmt.Errorf("context %q not found among configured kubeconfig sources", resolvedContext)
		tr.step("resolve-context", "", err)
		s.record(tr.finish(false))
		return tr.trace, err
	}
	for _, u := range parsed.Users {
		if u.Name == userRef {
			authKind = string(u.Auth)
			break
		}
	}
	tr.step("resolve-context", fmt.Sprintf("cluster=%s source=%s auth=%s", clusterRef, sourceFile, authKind), nil)

	loadingRules := &clientcmd.ClientConfigLoadingRules{Precedence: files}
	restConfig, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(
		loadingRules,
		&clientcmd.ConfigOverrides{CurrentContext: resolvedContext},
	).ClientConfig()
	if err != nil {
		tr.step("build-config", "", err)
		s.record(tr.finish(false))
		return tr.trace, classifyConnectErr(err)
	}
	tr.step("build-config", "", nil)

	client, err := k8s.NewClientFromRESTConfig(restConfig, resolvedContext)
	if err != nil {
		tr.step("build-client", "", err)
		s.record(tr.finish(false))
		return tr.trace, classifyConnectErr(err)
	}
	client.SetTimeout(s.timeout)
	client.SetClusterID(resolvedContext)
	tr.step("build-client", "", nil)

	s.active.Store(client)
	s.record(tr.finish(true))
	return tr.trace, nil
}

func (s *Session) record(trace *ConnectionTrace) {
	s.mu.Lock()
	s.lastLog = trace
	s.mu.Unlock()
}

// classifyConnectErr runs err through the normal transport/status
// classifier. Auth-plugin (exec, OIDC) failures get no special treatment:
// they keep the classifier's retryable flag and suggestions and carry no
// login hint.
func classifyConnectErr(err error) error {
	ce := classify.Classify(err)
	if ce == nil {
		return err
	}
	return ce
}

// CurrentContext returns the context name of the active client, or "" if
// none is connected.
func (s *Session) CurrentContext() string {
	c := s.active.Load()
	if c == nil {
		return ""
	}
	return c.Context
}

// IsConnected reports whether a client has ever been successfully built.
func (s *Session) IsConnected() bool {
	return s.active.Load() != nil
}

// TestConnection probes the active client with a cheap, rate-limited API
// call and returns the elapsed latency on success.
func (s *Session) TestConnection(ctx context.Context) (time.Duration, error) {
	c := s.active.Load()
	if c == nil {
		return 0, fmt.Errorf("not connected")
	}
	start := time.Now()
	if err := c.TestConnection(ctx); err != nil {
		return 0, classify.Classify(err)
	}
	return time.Since(start), nil
}

// ListNamespaces lists namespaces visible to the active client.
func (s *Session) ListNamespaces(ctx context.Context) ([]string, error) {
	c := s.active.Load()
	if c == nil {
		return nil, fmt.Errorf("not connected")
	}
	names, err := c.ListNamespaces(ctx)
	if err != nil {
		return nil, classify.Classify(err)
	}
	return names, nil
}

// GetLastConnectionLog returns the trace of the most recent connect
// attempt, or nil if none has been made.
func (s *Session) GetLastConnectionLog() *ConnectionTrace {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastLog
}

// Client returns the active client, or nil if not connected. Other
// components (drivers, registry) use this to reach the typed/dynamic
// clientsets.
func (s *Session) Client() *k8s.Client {
	return s.active.Load()
}
