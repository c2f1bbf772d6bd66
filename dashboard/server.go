package dashboard

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rustyeddy/levtrader/internal/logger"
)

const DefaultAddr = "127.0.0.1:5000"

type Server struct {
	addr   string
	hub    *Hub
	router *gin.Engine
}

func NewServer(addr string, hub *Hub) *Server {
	if addr == "" {
		addr = DefaultAddr
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(), allowOrigins())

	s := &Server{addr: addr, hub: hub, router: router}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.router.GET("/", s.index)

	api := s.router.Group("/api")
	api.GET("/status", func(c *gin.Context) { c.JSON(http.StatusOK, s.hub.State().Status()) })
	api.GET("/prices", func(c *gin.Context) { c.JSON(http.StatusOK, s.hub.State().Prices) })
	api.GET("/price_history", func(c *gin.Context) { c.JSON(http.StatusOK, s.hub.State().PriceHistory) })
	api.GET("/value_history", func(c *gin.Context) { c.JSON(http.StatusOK, s.hub.State().ValueHistory) })
	api.GET("/positions", func(c *gin.Context) { c.JSON(http.StatusOK, s.hub.State().Positions) })
	api.GET("/trades", func(c *gin.Context) { c.JSON(http.StatusOK, s.hub.State().Trades) })
	api.GET("/stats", func(c *gin.Context) { c.JSON(http.StatusOK, s.hub.State().Stats) })
	api.GET("/llm_conversations", func(c *gin.Context) { c.JSON(http.StatusOK, s.hub.State().Conversations) })
	api.GET("/all", func(c *gin.Context) { c.JSON(http.StatusOK, s.hub.State()) })
}

func (s *Server) index(c *gin.Context) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	if err := renderValueChart(c.Writer, s.hub.State()); err != nil {
		logger.Errorf("dashboard: render chart: %v", err)
	}
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) Addr() string { return s.addr }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	logger.Infof("dashboard listening on http://%s", ln.Addr())

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shCtx)
	case err := <-errCh:
		return err
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debugf("HTTP %s %s status=%d ip=%s dur=%s",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(), c.ClientIP(), time.Since(start))
	}
}

// allowOrigins lets a dashboard served elsewhere poll the API.
func allowOrigins() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
