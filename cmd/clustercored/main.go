// Command clustercored is the composition root: it loads configuration,
// wires the kubeconfig resolver, cluster session, stream registry, AI
// agent coordinator, and permission gate together, and serves them over
// HTTP and WebSocket until told to stop.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/deskkube/clustercore/internal/aiagent"
	"github.com/deskkube/clustercore/internal/api/middleware"
	"github.com/deskkube/clustercore/internal/api/rest"
	"github.com/deskkube/clustercore/internal/clustersession"
	"github.com/deskkube/clustercore/internal/config"
	"github.com/deskkube/clustercore/internal/db"
	"github.com/deskkube/clustercore/internal/eventsink"
	"github.com/deskkube/clustercore/internal/kubeconfig"
	"github.com/deskkube/clustercore/internal/permission"
	"github.com/deskkube/clustercore/internal/pkg/logger"
	"github.com/deskkube/clustercore/internal/registry"
)

func main() {
	log := logger.StdLogger()

	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	store, err := db.Open(cfg.DatabasePath)
	if err != nil {
		log.Error("failed to open session store", "error", err, "path", cfg.DatabasePath)
		os.Exit(1)
	}
	defer store.Close()

	settingsPath, err := kubeconfig.SettingsPath()
	if err != nil {
		log.Error("failed to resolve settings path", "error", err)
		os.Exit(1)
	}
	settings, err := kubeconfig.LoadSettings(settingsPath)
	if err != nil {
		log.Error("failed to load kubeconfig settings", "error", err, "path", settingsPath)
		os.Exit(1)
	}
	if cfg.KubeconfigPath != "" {
		_ = settings.AddSource(kubeconfig.Source{Path: cfg.KubeconfigPath, Kind: kubeconfig.SourceFile})
	}

	sess := clustersession.New(settings, time.Duration(cfg.K8sTimeoutSec)*time.Second)
	if cfg.KubeconfigAutoLoad {
		if _, err := sess.Connect(context.Background(), ""); err != nil {
			log.Warn("initial cluster connect failed, continuing disconnected", "error", err)
		}
	}

	reg := registry.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := eventsink.NewHub(ctx)
	go hub.Run()

	agentCfg := rest.AgentConfig{
		Binary:               cfg.AIAgentBinary,
		Provider:             aiagent.ProviderA,
		Args:                 aiagent.DefaultArgs(aiagent.ProviderA),
		StderrRingLen:        cfg.AIAgentStderrRingLen,
		PermissionMode:       permission.Mode(cfg.PermissionMode),
		RestrictedNamespaces: permission.DefaultRestrictedNamespaces,
		RateLimitPerSec:      cfg.PermissionRateLimitPerSec,
		RateLimitBurst:       cfg.PermissionRateLimitBurst,
	}
	handler := rest.New(sess, settings, kubeconfig.NewResolver(), reg, hub, store, agentCfg)

	router := mux.NewRouter()
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":    "ok",
			"connected": sess.IsConnected(),
		})
	}).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	apiRouter := router.PathPrefix("/api/v1").Subrouter()
	rest.SetupRoutes(apiRouter, handler)

	router.HandleFunc("/ws/events", rest.WebSocketHandler(hub)).Methods(http.MethodGet)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "not found"})
	})

	router.Use(middleware.SecureHeaders)
	router.Use(middleware.RequestID)
	router.Use(middleware.StructuredLog)
	router.Use(middleware.Recovery)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-ID"},
		AllowCredentials: true,
	})

	readTimeout := 15 * time.Second
	writeTimeout := 15 * time.Second
	if cfg.RequestTimeoutSec > 0 {
		readTimeout = time.Duration(cfg.RequestTimeoutSec) * time.Second
		writeTimeout = time.Duration(cfg.RequestTimeoutSec) * time.Second
	}
	shutdownTimeout := 10 * time.Second
	if cfg.ShutdownTimeoutSec > 0 {
		shutdownTimeout = time.Duration(cfg.ShutdownTimeoutSec) * time.Second
	}

	maxPort := cfg.Port + 99
	if maxPort > 65535 {
		maxPort = 65535
	}
	var listener net.Listener
	actualPort := cfg.Port
	for port := cfg.Port; port <= maxPort; port++ {
		l, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
		if err != nil {
			var errno syscall.Errno
			if errors.As(err, &errno) && errno == syscall.EADDRINUSE {
				continue
			}
			log.Error("failed to listen", "error", err)
			os.Exit(1)
		}
		listener = l
		actualPort = port
		break
	}
	if listener == nil {
		log.Error("no port available", "range_start", cfg.Port, "range_end", maxPort)
		os.Exit(1)
	}
	defer listener.Close()

	srv := &http.Server{
		Handler:      corsHandler.Handler(router),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("clustercored listening", "port", actualPort)
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	hub.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("server forced to shutdown", "error", err)
	}
	log.Info("shutdown complete")
}
