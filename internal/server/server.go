// Package server is the HTTP backend the client talks to: chapter
// generation, chapter persistence and the story collections, over SQLite.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/azyu/chapterstudio/internal/generation"
	"github.com/azyu/chapterstudio/internal/search"
	"github.com/azyu/chapterstudio/internal/storage"
	"github.com/azyu/chapterstudio/pkg/types"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultAddr matches the client's default base URL.
const DefaultAddr = "localhost:8000"

const shutdownTimeout = 10 * time.Second

// Generator writes chapter variants.
type Generator interface {
	Generate(ctx context.Context, w generation.World, req types.GenerationRequest) ([]string, error)
}

// Server serves the backend API.
type Server struct {
	db     *storage.SQLiteDB
	gen    Generator
	world  generation.Source
	index  *search.Engine
	logger *zap.Logger
	newID  func() string
	engine *gin.Engine
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used for requests and failures.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithIDFunc overrides how chapter ids are minted.
func WithIDFunc(f func() string) Option {
	return func(s *Server) {
		s.newID = f
	}
}

// New builds a server over db. Generation reads its world context from the
// same database.
func New(db *storage.SQLiteDB, gen Generator, opts ...Option) *Server {
	s := &Server{
		db:     db,
		gen:    gen,
		world:  generation.SourceFrom(db),
		index:  search.NewEngine(db),
		logger: zap.NewNop(),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.engine = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("backend listening", zap.String("addr", addr), zap.String("db", s.db.Path()))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	<-errCh
	return nil
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(recovery(s.logger), requestLogger(s.logger), cors())

	r.GET("/healthz", s.health)

	r.POST("/generate", s.generate)
	r.GET("/chapter/:id", s.chapter)
	r.GET("/all", s.chapters)
	r.POST("/select", s.selectVariant)
	r.POST("/edit", s.saveEdit)

	r.GET("/search", s.search)
	r.POST("/search/reindex", s.reindex)

	registerCollection[types.Character](r, s, "/characters", s.db.Characters(), "Character")
	registerCollection[types.TimelineEvent](r, s, "/timeline", s.db.Timeline(), "Event")
	registerCollection[types.GlossaryTerm](r, s, "/glossary", s.db.Glossary(), "Glossary item")

	return r
}

func (s *Server) health(c *gin.Context) {
	if err := s.db.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// fail writes err as a {"detail"} body with the status it maps to.
func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	detail := "internal error"

	var verr *types.ValidationError
	switch {
	case errors.As(err, &verr):
		status, detail = http.StatusUnprocessableEntity, verr.Error()
	case errors.Is(err, storage.ErrNotFound):
		status, detail = http.StatusNotFound, "not found"
	case errors.Is(err, storage.ErrConflict):
		status, detail = http.StatusConflict, "already exists"
	default:
		s.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.AbortWithStatusJSON(status, types.MessageResponse{Detail: detail})
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, types.MessageResponse{Detail: err.Error()})
}

func ok(c *gin.Context, message string) {
	c.JSON(http.StatusOK, types.MessageResponse{Message: message})
}
