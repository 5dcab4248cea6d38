// Package server is the local story viewer and editor: a JSON API over the
// story store, media file serving, narration, and a change feed.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jmylchreest/iwsaver/internal/logger"
	"github.com/jmylchreest/iwsaver/internal/narration"
	"github.com/jmylchreest/iwsaver/internal/story"
	"github.com/jmylchreest/iwsaver/internal/tts"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = ":5000"

// Options configures a Server.
type Options struct {
	Addr string

	// WebDir holds story_viewer.html or index.html served at /.
	WebDir string

	// Debug puts gin in debug mode.
	Debug bool

	// MaxUploadBytes bounds multipart memory for image uploads.
	MaxUploadBytes int64
}

// Server wires the HTTP routes to a story store and a voice registry.
type Server struct {
	store    *story.Store
	voices   *tts.Registry
	narrator *narration.Narrator
	opts     Options
	hub      *Hub
	engine   *gin.Engine
}

// New creates a server. The registry may be nil, which disables narration.
func New(store *story.Store, voices *tts.Registry, opts Options) *Server {
	if opts.Addr == "" {
		opts.Addr = DefaultAddr
	}
	if opts.MaxUploadBytes == 0 {
		opts.MaxUploadBytes = 32 << 20
	}
	if opts.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		store:  store,
		voices: voices,
		opts:   opts,
		hub:    NewHub(),
	}
	if voices != nil {
		s.narrator = narration.New(store, voices)
	}
	s.engine = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.engine }

// Hub returns the change feed hub.
func (s *Server) Hub() *Hub { return s.hub }

// Run serves until ctx is cancelled, then shuts down gracefully. Story file
// changes on disk are pushed to websocket clients while it runs.
func (s *Server) Run(ctx context.Context) error {
	if err := s.hub.Watch(ctx, s.store.StoriesDir()); err != nil {
		logger.Warn("story change feed disabled", "error", err)
	}

	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	logger.Info("story server listening", "addr", s.opts.Addr, "stories", s.store.StoriesDir())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down story server")
	s.hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = s.opts.MaxUploadBytes
	r.Use(requestLogger(), recovery())

	r.GET("/", s.index)

	api := r.Group("/api")
	{
		api.GET("/stories", s.listStories)
		api.GET("/story/:name", s.getStory)

		api.POST("/update-paragraph", s.updateParagraph)
		api.POST("/add-paragraph", s.addParagraph)
		api.POST("/delete-paragraph", s.deleteParagraph)

		api.POST("/delete-image", s.deleteImage)
		api.POST("/add-image", s.addImage)
		api.POST("/bulk-add-images", s.bulkAddImages)
		api.POST("/reorder-image", s.reorderImage)

		api.GET("/tts/models", s.ttsModels)
		api.POST("/tts/generate", s.ttsGenerate)
		api.POST("/tts/preview", s.ttsPreview)

		api.GET("/story/:name/voices", s.listVoices)
		api.POST("/story/:name/voices", s.setVoice)
		api.DELETE("/story/:name/voices/:nickname", s.deleteVoice)
	}

	r.GET("/images/:story/:file", s.serveImage)
	r.GET("/audio/:story/:file", s.serveAudio)
	r.GET("/ws/stories", s.hub.serve)

	r.NoRoute(func(c *gin.Context) {
		abortError(c, http.StatusNotFound, "not found")
	})
	return r
}
