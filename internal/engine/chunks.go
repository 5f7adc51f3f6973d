package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/Innoddu/speakflow/internal/pipeline"
)

type chunkResult struct {
	Index      int
	Transcript *pipeline.Transcription
}

// transcribeChunks processes audio chunks concurrently with bounded
// parallelism, API rate limiting, and per-chunk retry with exponential
// backoff. Chunk timestamps are offset by their position before merging.
func (e *Engine) transcribeChunks(ctx context.Context, chunks []string) (*pipeline.Transcription, error) {
	slog.Info("starting concurrent chunk transcription",
		"chunks", len(chunks),
		"max_concurrent", e.maxConcurrent,
		"rate_limit_rpm", e.ratePerMin)

	limiter := rate.NewLimiter(rate.Limit(float64(e.ratePerMin)/60.0), 1)

	var (
		mu      sync.Mutex
		results []chunkResult
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.maxConcurrent)

	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			if err := limiter.Wait(gctx); err != nil {
				return fmt.Errorf("rate limiter: %w", err)
			}

			offset := float64(i * e.splitDurationSec)

			var transcript *pipeline.Transcription
			var lastErr error

			for attempt := 0; attempt < e.maxRetries; attempt++ {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}

				t, err := e.transcribeOne(gctx, chunk, offset)
				if err == nil {
					transcript = t
					break
				}

				lastErr = err
				if attempt < e.maxRetries-1 {
					backoff := 1 << uint(attempt) // 1s, 2s, 4s...
					slog.Warn("chunk failed, retrying",
						"chunk", i+1,
						"attempt", attempt+1,
						"backoff_sec", backoff,
						"err", err)

					timer := time.NewTimer(time.Duration(backoff) * time.Second)
					select {
					case <-gctx.Done():
						timer.Stop()
						return gctx.Err()
					case <-timer.C:
					}
				}
			}

			if transcript == nil {
				return fmt.Errorf("chunk %d/%d failed after %d retries: %w",
					i+1, len(chunks), e.maxRetries, lastErr)
			}

			mu.Lock()
			results = append(results, chunkResult{Index: i, Transcript: transcript})
			mu.Unlock()

			slog.Info("chunk completed", "chunk", fmt.Sprintf("%d/%d", i+1, len(chunks)))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Index < results[j].Index
	})

	parts := make([]*pipeline.Transcription, len(results))
	for i, r := range results {
		parts[i] = r.Transcript
	}
	return mergeTranscriptions(parts), nil
}
