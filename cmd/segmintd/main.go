package main

import (
	"context"
	"embed"
	"io/fs"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/segmint-dev/segmint/internal/api"
	"github.com/segmint-dev/segmint/internal/model"
	"github.com/segmint-dev/segmint/internal/server"
	"github.com/segmint-dev/segmint/internal/store"
	"github.com/segmint-dev/segmint/internal/vault"
)

//go:embed static
var landing embed.FS

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	modelPath := envOr("SEGMINT_MODEL_PATH", "models/segmentation.json")
	dbPath := envOr("SEGMINT_DB_PATH", "customer_segments.db")
	httpPort := envOr("SEGMINT_HTTP_PORT", "7002")
	apiKey := os.Getenv("API_KEY")
	useTLS := os.Getenv("SEGMINT_DISABLE_TLS") != "true"

	ratePerHour := 100
	if v := os.Getenv("RATE_LIMIT_PER_HOUR"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			log.Fatalf("Invalid RATE_LIMIT_PER_HOUR %q", v)
		}
		ratePerHour = n
	}

	// A missing or corrupt artifact is fatal: the process must not come up
	// half-initialized and serve predictions against nothing.
	m, err := model.Load(modelPath)
	if err != nil {
		log.Fatalf("Failed to load model artifact: %v", err)
	}
	log.WithFields(log.Fields{
		"version":   m.Version,
		"centroids": len(m.Centroids),
		"path":      modelPath,
	}).Info("Model artifact loaded")

	st, err := store.OpenSQLite(dbPath)
	if err != nil {
		log.Fatalf("Failed to open predictions store: %v", err)
	}
	defer st.Close()
	log.WithFields(log.Fields{"path": dbPath}).Info("Predictions store ready")

	if apiKey == "" {
		log.Warn("API_KEY is not set; /api/history and /api/stats will reject all requests")
	}

	static, _ := fs.Sub(landing, "static")

	h := &api.Handler{Model: m, Store: st}
	router := server.NewRouter(h, server.Config{
		APIKey:      apiKey,
		RatePerHour: ratePerHour,
		Static:      static,
	})

	if useTLS {
		log.Info("Generating self-signed certificate for TLS...")
		cert, err := vault.GenerateSelfSignedCert()
		if err != nil {
			log.Fatalf("Failed to generate TLS certificate: %v", err)
		}
		router.SetCertificate(cert)
	} else {
		log.Info("TLS disabled (SEGMINT_DISABLE_TLS=true)")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info("Shutdown signal received, draining requests...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := router.Stop(ctx); err != nil {
			log.Errorf("Shutdown error: %v", err)
		}
	}()

	log.WithFields(log.Fields{"port": httpPort, "tls": useTLS}).Info("Segmint daemon listening")
	if err := router.Listen(httpPort); err != nil {
		log.Fatalf("HTTP server failed: %v", err)
	}
	log.Info("Shutdown complete")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
