package config

import (
	"os"
	"strings"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg == nil {
		t.Fatal("Config should not be nil")
	}

	if cfg.Port != 8190 {
		t.Errorf("Expected default port 8190, got %d", cfg.Port)
	}
	if cfg.DatabasePath != "./clustercore.db" {
		t.Errorf("Expected default database path './clustercore.db', got %s", cfg.DatabasePath)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("Expected default log level 'info', got %s", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("Expected default log format 'json', got %s", cfg.LogFormat)
	}
	if cfg.PermissionMode != "default" {
		t.Errorf("Expected default permission mode 'default', got %s", cfg.PermissionMode)
	}
	if cfg.AIAgentBinary != "claude" {
		t.Errorf("Expected default AI agent binary 'claude', got %s", cfg.AIAgentBinary)
	}
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	os.Setenv("CLUSTERCORE_PORT", "9000")
	os.Setenv("CLUSTERCORE_DATABASE_PATH", "/tmp/test.db")
	os.Setenv("CLUSTERCORE_LOG_LEVEL", "debug")
	os.Setenv("CLUSTERCORE_PERMISSION_MODE", "deny_mutations")
	defer func() {
		os.Unsetenv("CLUSTERCORE_PORT")
		os.Unsetenv("CLUSTERCORE_DATABASE_PATH")
		os.Unsetenv("CLUSTERCORE_LOG_LEVEL")
		os.Unsetenv("CLUSTERCORE_PERMISSION_MODE")
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Port != 9000 {
		t.Errorf("Expected port 9000 from env, got %d", cfg.Port)
	}
	if cfg.DatabasePath != "/tmp/test.db" {
		t.Errorf("Expected database path '/tmp/test.db' from env, got %s", cfg.DatabasePath)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("Expected log level 'debug' from env, got %s", cfg.LogLevel)
	}
	if cfg.PermissionMode != "deny_mutations" {
		t.Errorf("Expected permission mode 'deny_mutations' from env, got %s", cfg.PermissionMode)
	}
}

func TestLoad_AllowedOriginsCommaSeparated(t *testing.T) {
	os.Setenv("CLUSTERCORE_ALLOWED_ORIGINS", "http://localhost:3000,https://example.com,http://localhost:5173")
	defer os.Unsetenv("CLUSTERCORE_ALLOWED_ORIGINS")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	joined := strings.Join(cfg.AllowedOrigins, ",")
	for _, want := range []string{"http://localhost:3000", "https://example.com", "http://localhost:5173", "tauri://localhost"} {
		if !strings.Contains(joined, want) {
			t.Errorf("Expected allowed origins to contain %q, got %v", want, cfg.AllowedOrigins)
		}
	}
}

func TestLoad_AlwaysIncludesTauriOrigins(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	found := map[string]bool{}
	for _, o := range cfg.AllowedOrigins {
		found[o] = true
	}
	if !found["tauri://localhost"] || !found["tauri://"] {
		t.Errorf("Expected tauri origins to always be present, got %v", cfg.AllowedOrigins)
	}
}
