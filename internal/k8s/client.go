// Package k8s wraps client-go with the thin conveniences every component in
// this module needs: context-driven client construction from kubeconfig
// bytes or a path, auth-kind detection, GVR resolution for arbitrary
// resource kinds, and per-client resilience (rate limiting, retry, circuit
// breaking) around outbound API calls.
package k8s

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// AuthKind classifies how a kubeconfig user authenticates.
type AuthKind string

const (
	AuthClientCertificate AuthKind = "client-certificate"
	AuthToken             AuthKind = "token"
	AuthExecPlugin        AuthKind = "exec-plugin"
	AuthOIDC              AuthKind = "oidc"
	AuthUnknown           AuthKind = "unknown"
)

// DetectAuthKind classifies the auth method of a raw kubeconfig AuthInfo by
// the presence of specific sub-fields, checked in the order client
// certificate, token, exec plugin, OIDC auth-provider.
func DetectAuthKind(hasClientCertData, hasToken, hasExec, hasAuthProvider bool) AuthKind {
	switch {
	case hasClientCertData:
		return AuthClientCertificate
	case hasToken:
		return AuthToken
	case hasExec:
		return AuthExecPlugin
	case hasAuthProvider:
		return AuthOIDC
	default:
		return AuthUnknown
	}
}

// GetKubeconfigContexts returns all context names and the current context from a kubeconfig file.
func GetKubeconfigContexts(kubeconfigPath string) ([]string, string, error) {
	if kubeconfigPath == "" {
		homeDir, _ := os.UserHomeDir()
		if homeDir != "" {
			kubeconfigPath = filepath.Join(homeDir, ".kube", "config")
		}
	}
	if kubeconfigPath == "" {
		return nil, "", nil
	}
	raw, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(
		&clientcmd.ClientConfigLoadingRules{ExplicitPath: kubeconfigPath},
		&clientcmd.ConfigOverrides{},
	).RawConfig()
	if err != nil {
		return nil, "", err
	}
	names := make([]string, 0, len(raw.Contexts))
	for name := range raw.Contexts {
		names = append(names, name)
	}
	return names, raw.CurrentContext, nil
}

// Client wraps client-go's typed, dynamic, and discovery clients for one
// authenticated connection to a single cluster context.
type Client struct {
	Clientset kubernetes.Interface
	Dynamic   dynamic.Interface
	Config    *rest.Config
	Context   string

	kubeconfigPath string

	// Timeout bounds outbound API calls; 0 means no timeout beyond the caller's context.
	Timeout time.Duration
	limiter *rate.Limiter

	circuitBreaker *CircuitBreaker

	// gvrCache memoizes the live-discovery fallback path in ResolveGVR, so
	// a watch opened repeatedly on the same CRD kind doesn't re-scan
	// ServerPreferredResources every time.
	gvrCache *lru.Cache[string, schema.GroupVersionResource]

	healthMu        sync.RWMutex
	lastSuccessTime time.Time
	lastError       error
}

// NewClient builds a Client for the named context, falling back to
// in-cluster config and then the default kubeconfig path when kubeconfigPath
// is empty.
func NewClient(kubeconfigPath, context string) (*Client, error) {
	var config *rest.Config
	var err error

	if kubeconfigPath == "" {
		config, err = rest.InClusterConfig()
		if err != nil {
			homeDir, _ := os.UserHomeDir()
			if homeDir != "" {
				kubeconfigPath = filepath.Join(homeDir, ".kube", "config")
			}
		}
	}

	if config == nil {
		config, err = buildConfigFromFlags(context, kubeconfigPath)
		if err != nil {
			return nil, fmt.Errorf("failed to build config: %w", err)
		}
	}

	return newClientFromConfig(config, context, kubeconfigPath)
}

// NewClientFromBytes builds a Client directly from in-memory kubeconfig
// bytes, used when a kubeconfig source has already been merged in-process
// rather than read from a single file on disk.
func NewClientFromBytes(kubeconfigBytes []byte, context string) (*Client, error) {
	rawConfig, err := clientcmd.Load(kubeconfigBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to load kubeconfig: %w", err)
	}

	contextToUse := context
	if contextToUse == "" {
		contextToUse = rawConfig.CurrentContext
	}
	if contextToUse == "" {
		return nil, fmt.Errorf("no context specified and no current context in kubeconfig")
	}
	if _, exists := rawConfig.Contexts[contextToUse]; !exists {
		return nil, fmt.Errorf("context %s not found in kubeconfig", contextToUse)
	}

	config, err := clientcmd.NewNonInteractiveClientConfig(
		*rawConfig,
		contextToUse,
		&clientcmd.ConfigOverrides{},
		&clientcmd.ClientConfigLoadingRules{},
	).ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to build config for context %s: %w", contextToUse, err)
	}

	return newClientFromConfig(config, contextToUse, "")
}

// NewClientFromRESTConfig builds a Client around an already-constructed
// rest.Config, used when the caller (clustersession) has resolved the
// config itself via clientcmd's deferred loading rules.
func NewClientFromRESTConfig(config *rest.Config, context string) (*Client, error) {
	return newClientFromConfig(config, context, "")
}

func newClientFromConfig(config *rest.Config, context, kubeconfigPath string) (*Client, error) {
	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create clientset: %w", err)
	}
	dynamicClient, err := dynamic.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create dynamic client: %w", err)
	}
	gvrCache, err := lru.New[string, schema.GroupVersionResource](128)
	if err != nil {
		return nil, fmt.Errorf("failed to create GVR cache: %w", err)
	}
	return &Client{
		Clientset:       clientset,
		Dynamic:         dynamicClient,
		Config:          config,
		Context:         context,
		kubeconfigPath:  kubeconfigPath,
		circuitBreaker:  NewCircuitBreaker(""),
		gvrCache:        gvrCache,
		lastSuccessTime: time.Now(),
	}, nil
}

// SetTimeout sets the timeout applied to outbound API calls.
func (c *Client) SetTimeout(d time.Duration) { c.Timeout = d }

// SetClusterID labels this client's circuit breaker metrics.
func (c *Client) SetClusterID(id string) {
	if c.circuitBreaker != nil {
		c.circuitBreaker.clusterID = id
	}
}

// SetLimiter installs a token-bucket limiter on outbound API calls.
func (c *Client) SetLimiter(l *rate.Limiter) { c.limiter = l }

func (c *Client) waitRateLimit(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.Timeout > 0 {
		return context.WithTimeout(ctx, c.Timeout)
	}
	return ctx, func() {}
}

func buildConfigFromFlags(context, kubeconfigPath string) (*rest.Config, error) {
	return clientcmd.NewNonInteractiveDeferredLoadingClientConfig(
		&clientcmd.ClientConfigLoadingRules{ExplicitPath: kubeconfigPath},
		&clientcmd.ConfigOverrides{CurrentContext: context},
	).ClientConfig()
}

// GetServerVersion returns the cluster's git version string.
func (c *Client) GetServerVersion(ctx context.Context) (string, error) {
	version, err := c.Clientset.Discovery().ServerVersion()
	if err != nil {
		return "", err
	}
	return version.GitVersion, nil
}

// TestConnection probes connectivity with a cheap, rate-limited,
// circuit-broken, retried API call and returns nil on success so callers can
// measure elapsed time themselves.
func (c *Client) TestConnection(ctx context.Context) error {
	if err := c.waitRateLimit(ctx); err != nil {
		return err
	}
	err := c.circuitBreaker.Execute(ctx, func() error {
		ctx, cancel := c.withTimeout(ctx)
		defer cancel()
		return doWithRetry(ctx, defaultRetryAttempts, func() error {
			_, err := c.Clientset.CoreV1().Namespaces().List(ctx, metav1.ListOptions{Limit: 1})
			return err
		})
	})
	c.updateHealth(err)
	return err
}

// ListNamespaces lists namespace names visible to this client.
func (c *Client) ListNamespaces(ctx context.Context) ([]string, error) {
	if err := c.waitRateLimit(ctx); err != nil {
		return nil, err
	}
	var names []string
	err := c.circuitBreaker.Execute(ctx, func() error {
		ctx, cancel := c.withTimeout(ctx)
		defer cancel()
		return doWithRetry(ctx, defaultRetryAttempts, func() error {
			list, err := c.Clientset.CoreV1().Namespaces().List(ctx, metav1.ListOptions{})
			if err != nil {
				return err
			}
			names = make([]string, 0, len(list.Items))
			for _, ns := range list.Items {
				names = append(names, ns.Name)
			}
			return nil
		})
	})
	c.updateHealth(err)
	return names, err
}

func (c *Client) updateHealth(err error) {
	c.healthMu.Lock()
	defer c.healthMu.Unlock()
	if err == nil {
		c.lastSuccessTime = time.Now()
		c.lastError = nil
	} else {
		c.lastError = err
	}
}

// HealthStatus reports the client's last-known connectivity state.
func (c *Client) HealthStatus() (healthy bool, lastSuccess time.Time, lastErr error, state CircuitBreakerState) {
	c.healthMu.RLock()
	defer c.healthMu.RUnlock()
	state = c.circuitBreaker.State()
	healthy = state == StateClosed && c.lastError == nil
	return healthy, c.lastSuccessTime, c.lastError, state
}

// NewClientForTest builds a Client around a pre-built fake Clientset; Config and Dynamic are left nil.
func NewClientForTest(clientset kubernetes.Interface) *Client {
	return &Client{
		Clientset:       clientset,
		circuitBreaker:  NewCircuitBreaker(""),
		lastSuccessTime: time.Now(),
	}
}
