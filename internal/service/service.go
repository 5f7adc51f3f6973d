// Package service exposes the practice-transcript entry points, combining
// extraction, sentence building, refinement, and the artifact cache.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Innoddu/speakflow/internal/cache"
	"github.com/Innoddu/speakflow/internal/config"
	"github.com/Innoddu/speakflow/internal/extract"
	"github.com/Innoddu/speakflow/internal/ffmpeg"
	"github.com/Innoddu/speakflow/internal/pipeline"
)

// Extractor obtains cues for a video, reporting which method produced them.
type Extractor interface {
	Extract(ctx context.Context, videoID string) ([]pipeline.Cue, string, error)
}

// Transcriber runs speech-to-text over an audio file.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (*pipeline.Transcription, error)
}

// Service is the transcript pipeline entry point used by the HTTP server and
// the CLI.
type Service struct {
	store       cache.Store
	extractor   Extractor
	transcriber Transcriber
	segmenter   pipeline.Segmenter

	merger  *pipeline.Merger
	builder *pipeline.Builder
	refiner *pipeline.Refiner

	workDir string

	// FetchAudio downloads a video's audio for the engine path. Swappable
	// in tests.
	FetchAudio func(ctx context.Context, videoID, dir string) (string, error)

	// group coalesces concurrent requests for the same video so the
	// expensive subprocess/engine work runs at most once per ID.
	group singleflight.Group
}

// New wires a service from its collaborators.
func New(cfg *config.Config, store cache.Store, extractor Extractor, transcriber Transcriber, segmenter pipeline.Segmenter) *Service {
	return &Service{
		store:       store,
		extractor:   extractor,
		transcriber: transcriber,
		segmenter:   segmenter,
		merger:      pipeline.NewMerger(&cfg.PipelineSettings),
		builder:     pipeline.NewBuilder(&cfg.PipelineSettings),
		refiner:     pipeline.NewRefiner(&cfg.PipelineSettings),
		workDir:     os.TempDir(),
		FetchAudio:  ffmpeg.DownloadAudio,
	}
}

// GetPracticeTranscript returns the refined transcript for a video,
// computing and caching it on first request. Cache failures degrade to
// recomputation, never to request failure.
func (s *Service) GetPracticeTranscript(ctx context.Context, videoID string) (*pipeline.Result, error) {
	if res := s.cachedBest(videoID); res != nil {
		return res, nil
	}

	v, err, _ := s.group.Do(videoID, func() (any, error) {
		// A racing request may have stored the entry while this one
		// waited; the re-check is cheap, and a duplicate compute would
		// only be wasted work, not corruption.
		if res := s.cachedBest(videoID); res != nil {
			return res, nil
		}
		return s.compute(ctx, videoID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*pipeline.Result), nil
}

// GetCachedTranscript returns the cached artifact for a video without
// computing, preferring the refined variant. cache.ErrNotFound on a miss.
func (s *Service) GetCachedTranscript(_ context.Context, videoID string) (*pipeline.Result, error) {
	if res, err := s.store.Get(cache.RefinedKey(videoID)); err == nil {
		return res, nil
	}
	return s.store.Get(videoID)
}

func (s *Service) cachedBest(videoID string) *pipeline.Result {
	for _, key := range []string{cache.RefinedKey(videoID), videoID} {
		res, err := s.store.Get(key)
		if err == nil {
			return res
		}
		if !errors.Is(err, cache.ErrNotFound) {
			slog.Warn("cache read failed", "key", key, "err", err)
		}
	}
	return nil
}

// compute runs the full pipeline: caption extraction with fallback, sentence
// building, then a best-effort refinement pass. The unrefined result is
// cached under the plain key so it survives as a fallback for the refined
// one.
func (s *Service) compute(ctx context.Context, videoID string) (*pipeline.Result, error) {
	sentences, source, err := s.buildSentences(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if len(sentences) == 0 {
		return nil, fmt.Errorf("video %s: pipeline produced no sentences", videoID)
	}

	base := &pipeline.Result{
		Sentences:   sentences,
		Source:      source,
		ProcessedAt: time.Now().UTC(),
	}
	s.put(videoID, base)

	refined, err := s.refine(ctx, sentences)
	if err != nil || len(refined) == 0 {
		if err != nil {
			slog.Warn("refinement pass skipped", "video", videoID, "err", err)
		}
		return base, nil
	}

	result := &pipeline.Result{
		Sentences:   refined,
		Source:      source + "+refined",
		ProcessedAt: time.Now().UTC(),
	}
	s.put(cache.RefinedKey(videoID), result)
	return result, nil
}

// buildSentences tries the cue path first; when every caption source is
// exhausted it falls back to audio download plus the speech engine.
func (s *Service) buildSentences(ctx context.Context, videoID string) ([]pipeline.Sentence, string, error) {
	cues, method, err := s.extractor.Extract(ctx, videoID)
	if err == nil {
		sentences := s.merger.MergeCues(cues)
		for i := range sentences {
			sentences[i].Source = method
		}
		return sentences, method, nil
	}

	var noSource *extract.NoCaptionSourceError
	if !errors.As(err, &noSource) {
		return nil, "", err
	}

	slog.Info("caption sources exhausted, falling back to speech engine", "video", videoID)

	sentences, engineErr := s.engineSentences(ctx, videoID)
	if engineErr != nil {
		noSource.Attempts = append(noSource.Attempts, extract.Attempt{
			Method: "speech-engine",
			Reason: engineErr.Error(),
		})
		return nil, "", noSource
	}
	return sentences, "speech-engine", nil
}

func (s *Service) engineSentences(ctx context.Context, videoID string) ([]pipeline.Sentence, error) {
	audioPath, err := s.FetchAudio(ctx, videoID, s.workDir)
	if err != nil {
		return nil, fmt.Errorf("fetch audio: %w", err)
	}
	defer os.Remove(audioPath)

	tr, err := s.transcriber.Transcribe(ctx, audioPath)
	if err != nil {
		return nil, err
	}

	sentences, err := s.builder.BuildSentences(ctx, tr, s.segmenter)
	if errors.Is(err, pipeline.ErrSegmenterUnavailable) {
		slog.Warn("segmenter unavailable, using heuristic splitter")
		sentences, err = s.builder.BuildSentences(ctx, tr, pipeline.HeuristicSegmenter{})
	}
	if err != nil {
		return nil, err
	}

	for i := range sentences {
		sentences[i].Source = "speech-engine"
	}
	return sentences, nil
}

// refine runs the linguistic refinement pass, downgrading to the heuristic
// splitter when the external segmenter cannot run.
func (s *Service) refine(ctx context.Context, sentences []pipeline.Sentence) ([]pipeline.Sentence, error) {
	refined, err := s.refiner.Refine(ctx, sentences, s.segmenter)
	if errors.Is(err, pipeline.ErrSegmenterUnavailable) {
		return s.refiner.Refine(ctx, sentences, pipeline.HeuristicSegmenter{})
	}
	return refined, err
}

func (s *Service) put(key string, result *pipeline.Result) {
	if err := s.store.Put(key, result); err != nil {
		slog.Warn("cache write failed", "key", key, "err", err)
	}
}
