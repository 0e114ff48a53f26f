// Package server assembles the HTTP router and owns the listener lifecycle.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"io/fs"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/segmint-dev/segmint/internal/api"
	"github.com/segmint-dev/segmint/internal/vault"
)

// Config carries the router's process-wide settings, loaded once at startup.
type Config struct {
	// APIKey is the shared secret gating /api/history and /api/stats.
	// Empty means those endpoints reject everything.
	APIKey string
	// RatePerHour caps requests per client IP across the API. 0 disables
	// rate limiting.
	RatePerHour int
	// Static is the embedded landing page filesystem, served for non-API
	// routes. May be nil.
	Static fs.FS
}

// Router wraps the gin engine and the HTTP server lifecycle.
type Router struct {
	engine *gin.Engine
	cert   *tls.Certificate

	mu  sync.Mutex
	srv *http.Server
}

// NewRouter builds the full route table around the given handler.
func NewRouter(h *api.Handler, cfg Config) *Router {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger())

	// CORS
	engine.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-API-KEY")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	if cfg.RatePerHour > 0 {
		engine.Use(perIPRateLimit(cfg.RatePerHour))
	}

	engine.GET("/healthz", h.Health)
	engine.GET("/download_report/:persona", h.DownloadReport)

	apiGroup := engine.Group("/api")
	{
		apiGroup.POST("/predict", h.Predict)

		gated := apiGroup.Group("", requireAPIKey(cfg.APIKey))
		gated.GET("/history", h.History)
		gated.GET("/stats", h.Stats)
	}

	// Serve the landing page for everything else; API paths that fall
	// through get a JSON 404.
	engine.NoRoute(func(c *gin.Context) {
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/api") {
			c.JSON(http.StatusNotFound, gin.H{"error": "API route not found"})
			return
		}
		if cfg.Static == nil {
			c.Status(http.StatusNotFound)
			return
		}
		if f, err := cfg.Static.Open(strings.TrimPrefix(path, "/")); err == nil {
			f.Close()
			http.FileServer(http.FS(cfg.Static)).ServeHTTP(c.Writer, c.Request)
			return
		}
		c.FileFromFS("/", http.FS(cfg.Static))
	})

	return &Router{engine: engine}
}

// Engine exposes the underlying gin engine, mainly for tests.
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// SetCertificate enables TLS for Listen using the given certificate.
func (r *Router) SetCertificate(cert tls.Certificate) {
	r.cert = &cert
}

// Listen serves HTTP (or HTTPS when a certificate is set) on the given port
// until Stop is called. Returns nil on graceful shutdown.
func (r *Router) Listen(port string) error {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           r.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	r.mu.Lock()
	r.srv = srv
	r.mu.Unlock()

	var err error
	if r.cert != nil {
		srv.TLSConfig = &tls.Config{Certificates: []tls.Certificate{*r.cert}}
		err = srv.ListenAndServeTLS("", "")
	} else {
		err = srv.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop shuts the server down, letting in-flight requests finish.
func (r *Router) Stop(ctx context.Context) error {
	r.mu.Lock()
	srv := r.srv
	r.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// requireAPIKey rejects requests whose X-API-KEY header does not match the
// shared secret. The comparison is constant time and the failure path does
// no further work.
func requireAPIKey(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !vault.MatchKey(c.GetHeader("X-API-KEY"), secret) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Next()
	}
}

// requestLogger emits one structured line per request.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(log.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"elapsed": time.Since(start).String(),
			"client":  c.ClientIP(),
		}).Info("request")
	}
}

// perIPRateLimit applies a token bucket per client IP, refilled at n tokens
// per hour with a burst of n. Stale buckets are pruned as new clients appear.
func perIPRateLimit(n int) gin.HandlerFunc {
	type bucket struct {
		limiter  *rate.Limiter
		lastSeen time.Time
	}

	var (
		mu      sync.Mutex
		buckets = make(map[string]*bucket)
	)

	return func(c *gin.Context) {
		ip := c.ClientIP()

		mu.Lock()
		b, ok := buckets[ip]
		if !ok {
			b = &bucket{limiter: rate.NewLimiter(rate.Every(time.Hour/time.Duration(n)), n)}
			buckets[ip] = b
		}
		b.lastSeen = time.Now()
		if len(buckets) > 10000 {
			cutoff := time.Now().Add(-2 * time.Hour)
			for k, v := range buckets {
				if v.lastSeen.Before(cutoff) {
					delete(buckets, k)
				}
			}
		}
		allowed := b.limiter.Allow()
		mu.Unlock()

		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}
		c.Next()
	}
}
