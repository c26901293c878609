package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the flat, mapstructure-tagged settings struct loaded by Load.
// Every field has a viper default so the process runs with zero
// configuration; a config file or CLUSTERCORE_* environment variable
// overrides any subset of them.
type Config struct {
	Port               int      `mapstructure:"port"`
	DatabasePath       string   `mapstructure:"database_path"`
	LogLevel           string   `mapstructure:"log_level"`  // debug | info | warn | error
	LogFormat          string   `mapstructure:"log_format"` // json | text
	AllowedOrigins     []string `mapstructure:"allowed_origins"`
	KubeconfigPath     string   `mapstructure:"kubeconfig_path"`
	KubeconfigAutoLoad bool     `mapstructure:"kubeconfig_auto_load"` // on startup, try to connect to the current context of the configured sources
	RequestTimeoutSec  int      `mapstructure:"request_timeout_sec"`  // HTTP read/write timeout; 0 = server default
	ShutdownTimeoutSec int      `mapstructure:"shutdown_timeout_sec"` // graceful shutdown wait
	K8sTimeoutSec      int      `mapstructure:"k8s_timeout_sec"`      // timeout for outbound K8s API calls; 0 = no timeout
	K8sRateLimitPerSec float64  `mapstructure:"k8s_rate_limit_per_sec"`
	K8sRateLimitBurst  int      `mapstructure:"k8s_rate_limit_burst"`

	// Stream registry and drivers.
	RegistryMaxSessionsPerKind int `mapstructure:"registry_max_sessions_per_kind"` // 0 = unlimited
	WatchEventBufferSize       int `mapstructure:"watch_event_buffer_size"`
	LogLineBufferSize          int `mapstructure:"log_line_buffer_size"`
	ShellIdleTimeoutSec        int `mapstructure:"shell_idle_timeout_sec"`
	PortForwardIdleTimeoutSec  int `mapstructure:"port_forward_idle_timeout_sec"`

	// AI agent coordinator.
	AIAgentBinary        string `mapstructure:"ai_agent_binary"`         // name or path of the LLM CLI to exec
	AIAgentTimeoutSec    int    `mapstructure:"ai_agent_timeout_sec"`    // per-turn subprocess timeout
	AIAgentStderrRingLen int    `mapstructure:"ai_agent_stderr_ring_len"` // bytes retained for transient-error matching

	// Permission gate.
	PermissionMode              string  `mapstructure:"permission_mode"` // plan | default | accept-edits
	PermissionApprovalTimeoutSec int    `mapstructure:"permission_approval_timeout_sec"`
	PermissionRateLimitPerSec   float64 `mapstructure:"permission_rate_limit_per_sec"`
	PermissionRateLimitBurst    int     `mapstructure:"permission_rate_limit_burst"`

	MetricsAuthEnabled bool `mapstructure:"metrics_auth_enabled"`
}

// Load reads configuration from (in ascending precedence) built-in defaults,
// a config file discovered on the standard search path, and CLUSTERCORE_*
// environment variables.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("/etc/clustercore/")
	viper.AddConfigPath("$HOME/.clustercore")
	viper.AddConfigPath(".")

	viper.SetDefault("port", 8190)
	viper.SetDefault("database_path", "./clustercore.db")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_format", "json")
	// The desktop shell's WebView uses the tauri:// origin for every fetch()
	// call; it must be allowed or the browser blocks local API requests even
	// though the backend only ever listens on loopback.
	viper.SetDefault("allowed_origins", []string{
		"tauri://localhost",
		"tauri://",
		"http://localhost:5173",
		"http://localhost:8190",
	})
	viper.SetDefault("kubeconfig_path", "")
	viper.SetDefault("kubeconfig_auto_load", true)
	viper.SetDefault("request_timeout_sec", 30)
	viper.SetDefault("shutdown_timeout_sec", 15)
	viper.SetDefault("k8s_timeout_sec", 30)
	viper.SetDefault("k8s_rate_limit_per_sec", 0) // 0 = disabled
	viper.SetDefault("k8s_rate_limit_burst", 0)

	viper.SetDefault("registry_max_sessions_per_kind", 64)
	viper.SetDefault("watch_event_buffer_size", 256)
	viper.SetDefault("log_line_buffer_size", 256)
	viper.SetDefault("shell_idle_timeout_sec", 1800)
	viper.SetDefault("port_forward_idle_timeout_sec", 0) // 0 = no idle timeout

	viper.SetDefault("ai_agent_binary", "claude")
	viper.SetDefault("ai_agent_timeout_sec", 120)
	viper.SetDefault("ai_agent_stderr_ring_len", 8192)

	viper.SetDefault("permission_mode", "default")
	viper.SetDefault("permission_approval_timeout_sec", 60)
	viper.SetDefault("permission_rate_limit_per_sec", 12.0)
	viper.SetDefault("permission_rate_limit_burst", 24)

	viper.SetDefault("metrics_auth_enabled", false)

	viper.SetEnvPrefix("CLUSTERCORE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.AllowedOrigins = normalizeOrigins(cfg.AllowedOrigins)

	tauriOrigins := []string{"tauri://localhost", "tauri://"}
	for _, o := range tauriOrigins {
		found := false
		for _, existing := range cfg.AllowedOrigins {
			if existing == o {
				found = true
				break
			}
		}
		if !found {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
		}
	}

	return &cfg, nil
}

// normalizeOrigins handles both a single comma-separated origin string (as
// produced by some env-var injection tooling) and an already-split list,
// trimming whitespace from each element either way.
func normalizeOrigins(origins []string) []string {
	if len(origins) == 1 && strings.Contains(origins[0], ",") {
		parts := strings.Split(origins[0], ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if o := strings.TrimSpace(p); o != "" {
				out = append(out, o)
			}
		}
		return out
	}
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if trimmed := strings.TrimSpace(o); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
