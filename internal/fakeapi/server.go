// Package fakeapi serves a fixed set of v1 resources the way the public
// Pokemon API does, for tests and local development.
package fakeapi

import (
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkmn-dev/pkmn/pkg/version"
)

// APIRoot is the path prefix resources are served under.
const APIRoot = "/api/v1/"

// Config tunes the fake server's middleware. Zero values disable rate limiting.
type Config struct {
	RateLimitRPS   float64
	RateLimitBurst int
	AllowedOrigins []string
}

// Server serves fixture resources over HTTP.
type Server struct {
	store     *Store
	engine    *gin.Engine
	startedAt time.Time
	hits      atomic.Int64
}

// New wires the gin engine for store. A nil log discards request logs.
func New(store *Store, cfg Config, log *slog.Logger) *Server {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		store:     store,
		startedAt: time.Now().UTC(),
	}

	r := gin.New()
	r.Use(
		gin.Recovery(),
		requestLogger(log),
		securityHeaders(cfg.AllowedOrigins),
		rateLimit(newIPLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)),
	)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ok":   true,
			"time": time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, version.Get())
	})
	r.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"startedAt": s.startedAt.Format(time.RFC3339Nano),
			"uptimeSec": int64(time.Since(s.startedAt).Seconds()),
			"hits":      s.hits.Load(),
			"kinds":     s.store.Kinds(),
		})
	})

	v1 := r.Group(strings.TrimSuffix(APIRoot, "/"))
	v1.GET("/:kind/:ref/", s.getResource)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	s.engine = r
	return s
}

func (s *Server) Handler() http.Handler { return s.engine }

// Hits counts resource lookups served, including misses.
func (s *Server) Hits() int64 { return s.hits.Load() }

func (s *Server) getResource(c *gin.Context) {
	s.hits.Add(1)

	item, ok := s.store.Lookup(c.Param("kind"), c.Param("ref"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", item)
}
