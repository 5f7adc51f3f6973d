// Package server exposes the transcript pipeline over HTTP for the practice
// UI.
package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Innoddu/speakflow/internal/cache"
	"github.com/Innoddu/speakflow/internal/extract"
	"github.com/Innoddu/speakflow/internal/pipeline"
	"github.com/Innoddu/speakflow/internal/youtube"
)

// TranscriptProvider is the service surface the handlers need.
type TranscriptProvider interface {
	GetPracticeTranscript(ctx context.Context, videoID string) (*pipeline.Result, error)
	GetCachedTranscript(ctx context.Context, videoID string) (*pipeline.Result, error)
}

// Catalog is the video search/metadata surface.
type Catalog interface {
	Search(ctx context.Context, query string) ([]youtube.Video, error)
	GetVideo(ctx context.Context, id string) (*youtube.VideoDetails, error)
}

// Server hosts the HTTP API.
type Server struct {
	app        *fiber.App
	transcript TranscriptProvider
	catalog    Catalog
}

// transcriptResponse is the practice payload consumed by the playback UI.
type transcriptResponse struct {
	Sentences     []pipeline.Sentence `json:"sentences"`
	TotalDuration float64             `json:"totalDuration"`
	Source        string              `json:"source"`
	ProcessedAt   time.Time           `json:"processedAt"`
}

// New builds the fiber app and its routes.
func New(transcript TranscriptProvider, catalog Catalog) *Server {
	s := &Server{
		app: fiber.New(fiber.Config{
			DisableStartupMessage: true,
			ReadTimeout:           15 * time.Second,
		}),
		transcript: transcript,
		catalog:    catalog,
	}

	s.app.Use(requestLogger)

	api := s.app.Group("/api")
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	api.Get("/videos/search", s.handleSearch)
	api.Get("/videos/:id", s.handleGetVideo)
	api.Get("/transcripts/:videoID", s.handleTranscript)
	api.Get("/transcripts/:videoID/cached", s.handleCachedTranscript)

	return s
}

// App exposes the underlying fiber app, mainly for tests.
func (s *Server) App() *fiber.App { return s.app }

// Listen serves until the context is canceled, then shuts down gracefully.
func (s *Server) Listen(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.app.Listen(addr)
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down HTTP server")
		return s.app.ShutdownWithTimeout(10 * time.Second)
	case err := <-errCh:
		return err
	}
}

// requestLogger tags each request with an ID and logs its outcome.
func requestLogger(c *fiber.Ctx) error {
	reqID := uuid.NewString()
	c.Locals("requestID", reqID)
	c.Set("X-Request-ID", reqID)

	start := time.Now()
	err := c.Next()

	slog.Info("request",
		"id", reqID,
		"method", c.Method(),
		"path", c.Path(),
		"status", c.Response().StatusCode(),
		"duration_ms", time.Since(start).Milliseconds())
	return err
}

func (s *Server) handleSearch(c *fiber.Ctx) error {
	query := c.Query("q")
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "missing query parameter q",
		})
	}

	videos, err := s.catalog.Search(c.Context(), query)
	if err != nil {
		slog.Error("search failed", "query", query, "err", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "video search failed",
		})
	}
	return c.JSON(fiber.Map{"videos": videos})
}

func (s *Server) handleGetVideo(c *fiber.Ctx) error {
	details, err := s.catalog.GetVideo(c.Context(), c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "video not found",
		})
	}
	return c.JSON(details)
}

func (s *Server) handleTranscript(c *fiber.Ctx) error {
	videoID := c.Params("videoID")

	result, err := s.transcript.GetPracticeTranscript(c.Context(), videoID)
	if err != nil {
		var noSource *extract.NoCaptionSourceError
		if errors.As(err, &noSource) {
			// User-facing: this video has no usable transcript; surface
			// what was tried so the UI can suggest picking another video.
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error":    "no transcript available for this video",
				"attempts": noSource.Attempts,
			})
		}
		slog.Error("transcript pipeline failed", "video", videoID, "err", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "transcript processing failed",
		})
	}

	return c.JSON(transcriptResponse{
		Sentences:     result.Sentences,
		TotalDuration: result.TotalDuration(),
		Source:        result.Source,
		ProcessedAt:   result.ProcessedAt,
	})
}

func (s *Server) handleCachedTranscript(c *fiber.Ctx) error {
	videoID := c.Params("videoID")

	result, err := s.transcript.GetCachedTranscript(c.Context(), videoID)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "transcript not cached",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "cache read failed",
		})
	}

	return c.JSON(transcriptResponse{
		Sentences:     result.Sentences,
		TotalDuration: result.TotalDuration(),
		Source:        result.Source,
		ProcessedAt:   result.ProcessedAt,
	})
}
