// Package server exposes the engine over a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/julianstephens/streakly/internal/config"
	"github.com/julianstephens/streakly/internal/constants"
	"github.com/julianstephens/streakly/internal/engine"
	"github.com/julianstephens/streakly/internal/logger"
	"github.com/julianstephens/streakly/internal/metrics"
	"github.com/julianstephens/streakly/internal/models"
)

// Store is the part of the provider the handlers read and write directly.
type Store interface {
	Ping(ctx context.Context) error
	AddHabit(ctx context.Context, habit models.Habit) error
	GetHabit(ctx context.Context, id string) (models.Habit, error)
	GetHabitByName(ctx context.Context, userID, name string) (models.Habit, error)
	DeactivateHabit(ctx context.Context, id string) error
	GetProfile(ctx context.Context, userID string) (models.Profile, error)
	ListAchievements(ctx context.Context, userID string) ([]models.Achievement, error)
}

type Server struct {
	engine  *engine.Engine
	store   Store
	metrics *metrics.Metrics
	cfg     config.ServerConfig
	router  *gin.Engine
	now     func() time.Time
}

// New builds the router. m may be nil, in which case /metrics is not served.
func New(cfg config.ServerConfig, eng *engine.Engine, store Store, m *metrics.Metrics) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		engine:  eng,
		store:   store,
		metrics: m,
		cfg:     cfg,
		router:  gin.New(),
		now:     time.Now,
	}
	s.routes()
	return s
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := s.router
	r.Use(gin.Recovery(), requestLogger(), s.metrics.Middleware())

	r.GET("/healthz", s.health)
	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	api := r.Group("/api")
	api.Use(RateLimit(s.cfg.RateLimit, s.cfg.RateWindow))
	{
		api.GET("/habits", s.listHabits)
		api.POST("/habits", s.createHabit)
		api.DELETE("/habits/:id", s.deactivateHabit)
		api.POST("/habits/:id/toggle", s.toggleToday)
		api.PUT("/habits/:id/completions/:date", s.togglePast)

		api.GET("/stats", s.stats)
		api.GET("/points", s.points)
		api.GET("/achievements", s.achievements)
	}
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := s.cfg.Addr
	if addr == "" {
		addr = constants.DefaultServerAddr
	}
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  constants.ServerReadTimeout,
		WriteTimeout: constants.ServerWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logger.Info("http server shutting down")
	return srv.Shutdown(shutdownCtx)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"client", c.ClientIP(),
		)
	}
}
