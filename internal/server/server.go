package server

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"strings"
	"time"

	"github.com/cbr4l0k/Scoop/internal/runner"
	"github.com/cbr4l0k/Scoop/internal/storage"
	"github.com/cbr4l0k/Scoop/internal/version"
	"github.com/fatih/color"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Server exposes the invoker over HTTP
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	config     *Config
	runner     *runner.Runner
	history    *storage.SQLiteStorage
	results    *storage.LocalStorage
	lookPath   func(string) (string, error)
	log        io.Writer
	slots      chan struct{}
}

// Config holds server configuration
type Config struct {
	Port           int
	Host           string
	APIKey         string // generated by the serve command when empty
	AllowedOrigins []string
	Debug          bool

	// ResultsDir holds saved result files, served by /invocations/:id/result.
	ResultsDir string

	// MaxInvocations caps tool processes started through the API at once.
	MaxInvocations int

	// LookPath resolves tool binaries for /api/v1/tools. Defaults to exec.LookPath.
	LookPath func(string) (string, error)
	// Log receives request lines. Defaults to color.Output.
	Log io.Writer
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Port:           8899,
		Host:           "127.0.0.1",
		AllowedOrigins: []string{"http://localhost:8899", "http://127.0.0.1:8899"},
		MaxInvocations: 4,
	}
}

// New creates a new server instance. history may be nil.
func New(cfg *Config, r *runner.Runner, history *storage.SQLiteStorage) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		router:   gin.New(),
		config:   cfg,
		runner:   r,
		history:  history,
		lookPath: cfg.LookPath,
		log:      cfg.Log,
	}
	if s.lookPath == nil {
		s.lookPath = exec.LookPath
	}
	if s.log == nil {
		s.log = color.Output
	}
	if cfg.MaxInvocations <= 0 {
		cfg.MaxInvocations = DefaultConfig().MaxInvocations
	}
	s.slots = make(chan struct{}, cfg.MaxInvocations)
	if cfg.ResultsDir != "" {
		s.results = storage.NewLocalStorage(cfg.ResultsDir)
	}

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.requestLogger())
	s.router.Use(s.securityHeaders())

	corsConfig := cors.Config{
		AllowOrigins:     s.config.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-API-Key"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(corsConfig.AllowOrigins) == 0 {
		corsConfig.AllowOrigins = DefaultConfig().AllowedOrigins
	}
	s.router.Use(cors.New(corsConfig))
}

func (s *Server) securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Content-Security-Policy", "default-src 'none'")
		c.Header("Referrer-Policy", "no-referrer")
		c.Next()
	}
}

// requestLogger prints one coloured line per API request
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		if !strings.HasPrefix(path, "/api/") {
			return
		}
		if raw != "" {
			path = path + "?" + raw
		}

		status := c.Writer.Status()
		statusColor := color.New(color.FgGreen)
		if status >= 500 {
			statusColor = color.New(color.FgRed)
		} else if status >= 400 {
			statusColor = color.New(color.FgYellow)
		}

		statusColor.Fprintf(s.log, "[%d]", status)
		fmt.Fprintf(s.log, " %-6s %-50s %15s %10s\n",
			c.Request.Method, path, c.ClientIP(), time.Since(start).Round(time.Microsecond))
	}
}

// apiKeyAuth accepts the key in X-API-Key or as a Bearer token
func (s *Server) apiKeyAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.config.APIKey == "" {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "Server misconfiguration: API key not set",
			})
			return
		}

		apiKey := c.GetHeader("X-API-Key")
		if apiKey == "" {
			apiKey = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		}

		if subtle.ConstantTimeCompare([]byte(apiKey), []byte(s.config.APIKey)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or missing API key. Provide it in the X-API-Key header or as a Bearer token.",
			})
			return
		}
		c.Next()
	}
}

// invocationLimiter rejects new invocations while MaxInvocations are running
func (s *Server) invocationLimiter() gin.HandlerFunc {
	return func(c *gin.Context) {
		select {
		case s.slots <- struct{}{}:
		default:
			c.Header("Retry-After", "30")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Too many invocations running. Please try again later.",
			})
			return
		}
		defer func() { <-s.slots }()
		c.Next()
	}
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthCheck)

	api := s.router.Group("/api/v1")
	{
		api.GET("/version", s.getVersion)

		protected := api.Group("")
		protected.Use(s.apiKeyAuth())
		{
			protected.GET("/tools", s.listTools)
			protected.POST("/invocations", s.invocationLimiter(), s.createInvocation)
			protected.GET("/invocations", s.listInvocations)
			protected.GET("/invocations/:id", s.getInvocation)
			protected.GET("/invocations/:id/result", s.getInvocationResult)
		}
	}
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:        addr,
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
		// No WriteTimeout: an invocation holds the response for as long as the tool runs
	}

	cyan := color.New(color.FgCyan)
	cyan.Fprintf(s.log, "\n[*] Scoop API\n")
	fmt.Fprintf(s.log, "    Version: %s\n", version.Version)
	fmt.Fprintf(s.log, "    Address: http://%s/api/v1\n", addr)
	fmt.Fprintf(s.log, "    API Key: %s\n\n", maskAPIKey(s.config.APIKey))

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		fmt.Fprintln(s.log, "\n[*] Shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	fmt.Fprintln(s.log, "[*] Server stopped")
	return nil
}

// GenerateAPIKey generates a random 32-byte hex API key
func GenerateAPIKey() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("crypto/rand failed: %v", err))
	}
	return hex.EncodeToString(b)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
