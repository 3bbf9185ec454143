// Package api serves the barony REST boundary and the live websocket event feed.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/TheNaotagrey/Asgaria/storage"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Options bound what the server accepts.
type Options struct {
	// MapWidth and MapHeight reject out-of-bounds coordinates when positive.
	MapWidth  int
	MapHeight int
	// MaxBodyBytes caps request bodies. Zero means DefaultMaxBodyBytes.
	MaxBodyBytes int64
	// MaxInflatedBytes caps a gzip request body after decompression.
	// Zero means inflateRatio times MaxBodyBytes.
	MaxInflatedBytes int64
}

const (
	DefaultMaxBodyBytes = 64 << 20
	inflateRatio        = 8
)

// Server is the REST backend.
type Server struct {
	store   storage.Store
	hub     *Hub
	opts    Options
	started time.Time

	revision atomic.Int64
	log      *logrus.Entry
}

// NewServer wires a store and a hub. The hub must be started with Run.
func NewServer(ctx context.Context, store storage.Store, hub *Hub, opts Options) *Server {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.MaxInflatedBytes <= 0 {
		opts.MaxInflatedBytes = opts.MaxBodyBytes * inflateRatio
	}
	s := &Server{
		store:   store,
		hub:     hub,
		opts:    opts,
		started: time.Now(),
		log:     logrus.WithField("component", "api"),
	}

	if _, rev, err := store.GetPixels(ctx); err == nil {
		s.revision.Store(rev)
	} else if !errors.Is(err, storage.ErrNotFound) {
		s.log.WithError(err).Warn("failed to read pixel revision")
	}

	hub.Handle(MessageTypeGetStatus, s.handleGetStatus)
	return s
}

// Router builds the gin engine.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	api := r.Group("/api")
	{
		api.GET("/barony_pixels", s.getPixels)
		api.PUT("/barony_pixels", s.putPixels)

		api.GET("/baronies", s.listBaronies)
		api.POST("/baronies", s.createBarony)
		api.PUT("/baronies/:id", s.putBarony)
		api.DELETE("/baronies/:id", s.deleteBarony)

		api.GET("/status", s.getStatus)
	}
	r.GET("/ws", s.hub.ServeWS)
	return r
}

// ListenAndServe runs the HTTP server until ctx is cancelled, then shuts it down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.log.Info("server stopped")
	return nil
}
