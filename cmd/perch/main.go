package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/perchd/perch/internal/ai"
	"github.com/perchd/perch/internal/database"
	"github.com/perchd/perch/internal/files"
	"github.com/perchd/perch/internal/logging"
	"github.com/perchd/perch/internal/push"
	"github.com/perchd/perch/internal/server"
)

func main() {
	logger := logging.Setup(os.Getenv("PERCH_LOG_LEVEL"), os.Getenv("PERCH_LOG_FORMAT"))

	port := envOr("PERCH_PORT", "8080")
	dbPath := envOr("PERCH_DB_PATH", "perch.db")

	db, err := database.Open(dbPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	apiKey := os.Getenv("PERCH_GEMINI_API_KEY")
	if apiKey == "" {
		slog.Error("PERCH_GEMINI_API_KEY is required")
		os.Exit(1)
	}
	backend, err := ai.NewGemini(context.Background(), apiKey)
	if err != nil {
		slog.Error("failed to create ai backend", "error", err)
		os.Exit(1)
	}

	fileStore, err := buildFileStore(logger)
	if err != nil {
		slog.Error("failed to create file store", "error", err)
		os.Exit(1)
	}

	pushCfg := push.Config{
		VAPIDPublicKey:  os.Getenv("PERCH_VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("PERCH_VAPID_PRIVATE_KEY"),
		Subscriber:      os.Getenv("PERCH_VAPID_SUBSCRIBER"),
	}
	if pushCfg.VAPIDPublicKey == "" || pushCfg.VAPIDPrivateKey == "" {
		pub, priv, err := push.GenerateVAPIDKeys()
		if err != nil {
			slog.Error("failed to generate VAPID keys", "error", err)
			os.Exit(1)
		}
		pushCfg.VAPIDPublicKey = pub
		pushCfg.VAPIDPrivateKey = priv
		logger.Warn("using ephemeral VAPID keys, set PERCH_VAPID_PUBLIC_KEY/PERCH_VAPID_PRIVATE_KEY to persist subscriptions across restarts")
	}

	tokenSecret := os.Getenv("PERCH_TOKEN_SECRET")
	if tokenSecret == "" {
		slog.Error("PERCH_TOKEN_SECRET is required")
		os.Exit(1)
	}

	srv := server.New(db, server.Config{
		TokenSecret: tokenSecret,
		TokenTTL:    24 * time.Hour,
		Push:        pushCfg,
		Files:       fileStore,
		Backend:     backend,
	}, logger)

	httpServer := &http.Server{
		Addr:              ":" + port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Background cleanup goroutine
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				srv.RateLimiter().Cleanup()
			case <-cleanupCtx.Done():
				return
			}
		}
	}()

	go func() {
		slog.Info("perch starting", "addr", ":"+port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")
	cleanupCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}

// buildFileStore picks S3 when a bucket is configured, a local directory
// otherwise.
func buildFileStore(logger *slog.Logger) (files.Store, error) {
	bucket := os.Getenv("PERCH_S3_BUCKET")
	if bucket != "" {
		logger.Info("using s3 file store", "bucket", bucket)
		return files.NewS3(files.S3Config{
			Endpoint:  os.Getenv("PERCH_S3_ENDPOINT"),
			Region:    envOr("PERCH_S3_REGION", "auto"),
			Bucket:    bucket,
			AccessKey: os.Getenv("PERCH_S3_ACCESS_KEY"),
			SecretKey: os.Getenv("PERCH_S3_SECRET_KEY"),
			Prefix:    os.Getenv("PERCH_S3_PREFIX"),
		}), nil
	}
	return files.NewLocal(envOr("PERCH_UPLOADS_DIR", "uploads"))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
