package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/shehryarbajwa/devtools-inspector/internal/api"
	"github.com/shehryarbajwa/devtools-inspector/internal/config"
	"github.com/shehryarbajwa/devtools-inspector/internal/proxy"
	"github.com/shehryarbajwa/devtools-inspector/internal/ratelimit"
	"github.com/shehryarbajwa/devtools-inspector/internal/runtimes"
	"github.com/shehryarbajwa/devtools-inspector/internal/session"
	"github.com/shehryarbajwa/devtools-inspector/internal/snapshot"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load(os.Getenv("INSPECTOR_CONFIG"))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Println("Starting DevTools Inspector...")

	// Initialize runtime manager when containerized debuggees are enabled
	var debuggees session.Launcher
	if cfg.EnableLauncher {
		runtimeMgr, err := runtimes.NewManager(cfg.Runtimes, cfg.DefaultRuntime, cfg.ScriptDir)
		if err != nil {
			log.Fatalf("Failed to create runtime manager: %v", err)
		}
		defer runtimeMgr.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		log.Println("⏳ Ensuring Node.js images are available...")
		if err := runtimeMgr.EnsureImages(ctx); err != nil {
			log.Fatalf("Failed to ensure images: %v", err)
		}
		cancel()

		debuggees = runtimeMgr
		log.Printf("✓ Runtime manager initialized (%d runtimes, default %s)", len(runtimeMgr.Runtimes()), runtimeMgr.Default())
	} else {
		log.Println("✓ Launcher disabled, sessions attach to running debuggees only")
	}

	// Initialize snapshot manager
	snapshotMgr, err := snapshot.NewManager(cfg.SnapshotDir)
	if err != nil {
		log.Fatalf("Failed to create snapshot manager: %v", err)
	}
	log.Println("✓ Snapshot manager initialized")

	// Initialize session manager
	sessionMgr := session.NewManager(debuggees, session.Options{
		MaxSessions: cfg.MaxSessions,
		Debug:       cfg.Debug,
	})
	defer sessionMgr.Close()
	log.Printf("✓ Session manager initialized (max %d sessions)", cfg.MaxSessions)

	// Initialize event stream
	proxyServer := proxy.NewServer(sessionMgr)
	log.Println("✓ Event stream initialized")

	// Initialize rate limiter
	rateLimiter := ratelimit.NewLimiter(cfg.RequestsPerHour, cfg.Burst)
	log.Printf("✓ Rate limiter initialized (%d req/hour per client)", cfg.RequestsPerHour)

	// Setup HTTP handlers
	handler := api.NewHandler(sessionMgr, snapshotMgr, cfg.RequestTimeout)
	router := handler.SetupRoutes(proxyServer, rateLimiter)
	log.Println("✓ HTTP routes configured")

	// Create HTTP server. Event streams and snapshot captures outlive a
	// write timeout, so none is set.
	srv := &http.Server{
		Addr:        cfg.Addr,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// Drop idle rate limit buckets
	pruneCtx, stopPrune := context.WithCancel(context.Background())
	defer stopPrune()
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := rateLimiter.Prune(2 * time.Hour); n > 0 {
					log.Printf("Pruned %d idle rate limit clients", n)
				}
			case <-pruneCtx.Done():
				return
			}
		}
	}()

	// Start server in background
	go func() {
		base := "http://localhost" + cfg.Addr
		if !strings.HasPrefix(cfg.Addr, ":") {
			base = "http://" + cfg.Addr
		}
		log.Printf("🚀 Server starting on %s", base)
		log.Printf("📍 API endpoints available at %s/v1", base)
		log.Println("🔍 Debug: evaluate, step and inspect remote objects")
		log.Println("📸 Snapshots: capture and download heap snapshots")
		log.Printf("⏱️  Rate Limit: %d requests/hour per client", cfg.RequestsPerHour)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("\n⏳ Shutting down server gracefully...")

	// Shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("✅ Server stopped cleanly")
}
