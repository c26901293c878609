package rest

import (
	"sync"
	"time"

	"github.com/deskkube/clustercore/internal/aiagent"
	"github.com/deskkube/clustercore/internal/clustersession"
	"github.com/deskkube/clustercore/internal/db"
	"github.com/deskkube/clustercore/internal/eventsink"
	"github.com/deskkube/clustercore/internal/kubeconfig"
	"github.com/deskkube/clustercore/internal/permission"
	"github.com/deskkube/clustercore/internal/registry"
	"github.com/deskkube/clustercore/internal/stream/portforward"
	"github.com/deskkube/clustercore/internal/stream/shell"
)

// AgentConfig carries the fixed, process-wide settings a Handler uses to
// build a Coordinator and Gate for each new AI session; the per-session
// pieces (sink, channel id) are filled in by coordinatorFor.
type AgentConfig struct {
	Binary        string
	Provider      aiagent.Provider
	Args          func(message string) []string
	StderrRingLen int

	PermissionMode        permission.Mode
	ApprovalTimeoutSec    int
	RestrictedNamespaces  []string
	AllowedNamespaces     []string
	RateLimitPerSec       float64
	RateLimitBurst        int
}

// Handler wires every core component into HTTP-reachable operations. It
// holds no per-request state; everything it touches is itself
// concurrency-safe.
type Handler struct {
	Session  *clustersession.Session
	Settings *kubeconfig.Settings
	Resolver *kubeconfig.Resolver
	Registry *registry.Registry
	Sink     eventsink.Sink
	Store    *db.Store
	Agent    AgentConfig

	mu          sync.Mutex
	shells      map[string]*shell.Session
	forwards    map[string]*portforward.Session
	coordinators map[string]*aiagent.Coordinator
	gates       map[string]*permission.Gate
}

// New builds a Handler around its already-constructed dependencies.
func New(sess *clustersession.Session, settings *kubeconfig.Settings, resolver *kubeconfig.Resolver, reg *registry.Registry, sink eventsink.Sink, store *db.Store, agent AgentConfig) *Handler {
	return &Handler{
		Session:      sess,
		Settings:     settings,
		Resolver:     resolver,
		Registry:     reg,
		Sink:         sink,
		Store:        store,
		Agent:        agent,
		shells:       make(map[string]*shell.Session),
		forwards:     make(map[string]*portforward.Session),
		coordinators: make(map[string]*aiagent.Coordinator),
		gates:        make(map[string]*permission.Gate),
	}
}

func (h *Handler) putShell(id string, s *shell.Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.shells[id] = s
}

func (h *Handler) getShell(id string) (*shell.Session, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.shells[id]
	return s, ok
}

func (h *Handler) dropShell(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.shells, id)
}

func (h *Handler) putForward(id string, s *portforward.Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.forwards[id] = s
}

func (h *Handler) getForward(id string) (*portforward.Session, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.forwards[id]
	return s, ok
}

func (h *Handler) dropForward(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.forwards, id)
}

// coordinatorFor returns the existing Coordinator/Gate pair for an AI
// session id, creating them on first use.
func (h *Handler) coordinatorFor(id string) *aiagent.Coordinator {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.coordinators[id]; ok {
		return c
	}
	channel := "ai-" + id
	gate := permission.New(permission.Config{
		Mode:                 h.Agent.PermissionMode,
		RestrictedNamespaces: h.Agent.RestrictedNamespaces,
		AllowedNamespaces:    h.Agent.AllowedNamespaces,
		RateLimitPerSec:      h.Agent.RateLimitPerSec,
		RateLimitBurst:       h.Agent.RateLimitBurst,
	}, h.Sink, channel)

	c := aiagent.New(aiagent.Config{
		Binary:        h.Agent.Binary,
		Provider:      h.Agent.Provider,
		Args:          h.Agent.Args,
		StderrRingLen: h.Agent.StderrRingLen,
		Gate:          gate,
	}, h.Sink, id)

	h.coordinators[id] = c
	h.gates[id] = gate
	return c
}

func (h *Handler) gateFor(id string) (*permission.Gate, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	g, ok := h.gates[id]
	return g, ok
}

func (h *Handler) dropAISession(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.coordinators, id)
	delete(h.gates, id)
}

// approvalTimeout is used only to document the HTTP-visible contract;
// the gate itself owns the real timeout.
const approvalTimeout = 60 * time.Second
