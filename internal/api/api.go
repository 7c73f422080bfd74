// Package api serves the summarizer over HTTP for the browser extension.
package api

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"clipgenie/internal/domain"
	"clipgenie/internal/pipeline"

	"github.com/gin-gonic/gin"
)

// ExtensionUserID namespaces the clips saved through the API.
const ExtensionUserID int64 = 0

const (
	shutdownTimeout = 10 * time.Second

	// APITokenHeader carries the shared token that unlocks server-held
	// resources: the configured OpenRouter key and the saved clips.
	APITokenHeader = "X-API-Token"
)

type ClipStore interface {
	AddClip(ctx context.Context, userID int64, text string) (domain.Clip, error)
	GetClips(ctx context.Context, userID int64) ([]domain.Clip, error)
	RemoveClip(ctx context.Context, userID int64, clipID int64) error
}

type Options struct {
	// DefaultAPIKey is used for requests that carry the API token instead of
	// their own OpenRouter key.
	DefaultAPIKey string
	// APIToken gates the default key and the clips. Empty disables both.
	APIToken string
	// AllowedOrigins holds exact origins or scheme prefixes ending in "://".
	AllowedOrigins []string
}

type Server struct {
	engine         *gin.Engine
	sessions       *pipeline.Sessions
	clips          ClipStore
	defaultAPIKey  string
	apiToken       string
	allowedOrigins []string
	log            *slog.Logger
}

func New(
	sessions *pipeline.Sessions,
	clips ClipStore,
	opts Options,
	log *slog.Logger,
) *Server {
	s := &Server{
		engine:         gin.New(),
		sessions:       sessions,
		clips:          clips,
		defaultAPIKey:  strings.TrimSpace(opts.DefaultAPIKey),
		apiToken:       strings.TrimSpace(opts.APIToken),
		allowedOrigins: opts.AllowedOrigins,
		log:            log,
	}

	s.engine.Use(gin.Recovery(), requestLogger(log), cors(s.allowedOrigins))
	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	api := s.engine.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		api.POST("/summarize", s.summarize)

		clips := api.Group("/clips", s.requireAPIToken())
		{
			clips.GET("", s.listClips)
			clips.POST("", s.addClip)
			clips.DELETE("/:id", s.removeClip)
		}

		api.POST("/export/:kind", s.exportFile)
	}
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves until ctx is done and then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.InfoContext(ctx, "HTTP server is listening",
			"addr", addr)

		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen and serve: %w", err)

	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}

		return nil
	}
}

// credential is the bearer token of the request. The configured key is used
// only for requests carrying the API token.
func (s *Server) credential(c *gin.Context) string {
	if token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer "); ok {
		if token = strings.TrimSpace(token); token != "" {
			return token
		}
	}

	if s.hasAPIToken(c) {
		return s.defaultAPIKey
	}

	return ""
}

func (s *Server) hasAPIToken(c *gin.Context) bool {
	if s.apiToken == "" {
		return false
	}

	token := strings.TrimSpace(c.GetHeader(APITokenHeader))

	return subtle.ConstantTimeCompare([]byte(token), []byte(s.apiToken)) == 1
}

func (s *Server) requireAPIToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.hasAPIToken(c) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "a valid " + APITokenHeader + " header is required",
				"code":  "unauthorized",
			})
			return
		}

		c.Next()
	}
}

// sessionKey keeps one session per credential without holding the raw key.
func sessionKey(credential string) string {
	sum := sha256.Sum256([]byte(credential))
	return "api:" + hex.EncodeToString(sum[:8])
}

func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		log.InfoContext(c.Request.Context(), "HTTP request is served",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"clientIP", c.ClientIP())
	}
}

// cors answers allowed origins and refuses the others outright. Requests
// without an Origin header are not from a browser page and pass through.
func cors(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			c.Next()
			return
		}

		if !originAllowed(origin, allowedOrigins) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "origin is not allowed",
				"code":  "forbidden_origin",
			})
			return
		}

		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Set("Vary", "Origin")
		c.Writer.Header().Set("Access-Control-Allow-Headers",
			"Content-Type, Authorization, Accept, Origin, "+APITokenHeader)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, Retry-After")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func originAllowed(origin string, allowedOrigins []string) bool {
	for _, allowed := range allowedOrigins {
		allowed = strings.TrimSpace(allowed)

		switch {
		case allowed == "":
			continue
		case strings.HasSuffix(allowed, "://"):
			if strings.HasPrefix(origin, allowed) && len(origin) > len(allowed) {
				return true
			}
		case origin == allowed:
			return true
		}
	}

	return false
}
