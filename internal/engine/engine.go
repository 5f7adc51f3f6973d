// Package engine runs speech-to-text over a video's audio using the OpenAI
// Whisper API. Long audio is split into chunks that are transcribed
// concurrently and stitched back together with time offsets.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/Innoddu/speakflow/internal/config"
	"github.com/Innoddu/speakflow/internal/ffmpeg"
	"github.com/Innoddu/speakflow/internal/pipeline"
)

// Engine is a Whisper-backed transcription client.
type Engine struct {
	client *openai.Client

	splitDurationSec int
	maxConcurrent    int
	maxRetries       int
	ratePerMin       int
}

// New creates an engine from the application config.
func New(cfg *config.Config) *Engine {
	return &Engine{
		client:           openai.NewClient(cfg.OpenAIAPIKey),
		splitDurationSec: cfg.SplitDurationMin * 60,
		maxConcurrent:    cfg.MaxConcurrentChunks,
		maxRetries:       cfg.MaxRetries,
		ratePerMin:       cfg.APIRateLimitPerMin,
	}
}

// Transcribe runs Whisper over a media file and returns segment- and
// word-level timestamps. Video containers have their audio stream extracted
// first; files longer than the split threshold are chunked and processed
// concurrently.
func (e *Engine) Transcribe(ctx context.Context, mediaPath string) (*pipeline.Transcription, error) {
	audioPath, cleanup, err := prepareAudio(ctx, mediaPath)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	duration := 0.0
	if info, err := ffmpeg.ProbeMedia(ctx, audioPath); err == nil {
		duration = info.Duration
	}

	if duration > float64(e.splitDurationSec) && ffmpeg.Available() {
		slog.Info("audio exceeds split threshold, chunking",
			"duration_min", int(duration/60), "threshold_min", e.splitDurationSec/60)

		chunks, err := ffmpeg.SplitAudio(ctx, audioPath, filepath.Dir(audioPath), e.splitDurationSec)
		if err != nil {
			return nil, fmt.Errorf("split audio: %w", err)
		}
		defer cleanupChunks(chunks)

		return e.transcribeChunks(ctx, chunks)
	}

	return e.transcribeOne(ctx, audioPath, 0)
}

var audioExtensions = map[string]struct{}{
	".m4a": {}, ".mp3": {}, ".wav": {}, ".aac": {},
	".flac": {}, ".ogg": {}, ".opus": {}, ".webm": {},
}

// prepareAudio returns an audio-only path for the given media file. Audio
// formats pass through untouched; anything else gets its audio stream
// extracted to a sibling m4a, which the cleanup func removes.
func prepareAudio(ctx context.Context, mediaPath string) (string, func(), error) {
	ext := strings.ToLower(filepath.Ext(mediaPath))
	if _, ok := audioExtensions[ext]; ok {
		return mediaPath, func() {}, nil
	}

	audioPath := strings.TrimSuffix(mediaPath, ext) + ".m4a"
	if err := ffmpeg.ExtractAudio(ctx, mediaPath, audioPath); err != nil {
		return "", nil, fmt.Errorf("prepare audio: %w", err)
	}
	return audioPath, func() { os.Remove(audioPath) }, nil
}

// transcribeOne sends a single file to Whisper, offsetting all timestamps by
// offsetSec.
func (e *Engine) transcribeOne(ctx context.Context, path string, offsetSec float64) (*pipeline.Transcription, error) {
	resp, err := e.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: path,
		Format:   openai.AudioResponseFormatVerboseJSON,
		TimestampGranularities: []openai.TranscriptionTimestampGranularity{
			openai.TranscriptionTimestampGranularitySegment,
			openai.TranscriptionTimestampGranularityWord,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("whisper transcription: %w", err)
	}

	return convertResponse(&resp, offsetSec), nil
}

// convertResponse maps the Whisper verbose-JSON response onto pipeline types,
// attaching word timestamps to the segment whose time range contains them.
func convertResponse(resp *openai.AudioResponse, offsetSec float64) *pipeline.Transcription {
	tr := &pipeline.Transcription{
		Text:     strings.TrimSpace(resp.Text),
		Duration: resp.Duration,
	}

	for _, w := range resp.Words {
		tr.Words = append(tr.Words, pipeline.Word{
			Text:  w.Word,
			Start: round3(w.Start + offsetSec),
			End:   round3(w.End + offsetSec),
		})
	}

	for _, s := range resp.Segments {
		tr.Segments = append(tr.Segments, pipeline.Segment{
			Text:  strings.TrimSpace(s.Text),
			Start: round3(s.Start + offsetSec),
			End:   round3(s.End + offsetSec),
		})
	}
	attachWords(tr.Segments, tr.Words)

	return tr
}

// attachWords assigns each word to the one segment containing its midpoint.
// A word straddling a segment boundary would pass a plain overlap test for
// both neighbors and end up duplicated downstream.
func attachWords(segments []pipeline.Segment, words []pipeline.Word) {
	if len(segments) == 0 {
		return
	}
	for _, w := range words {
		mid := (w.Start + w.End) / 2
		idx := len(segments) - 1
		for i := range segments {
			if mid < segments[i].End {
				idx = i
				break
			}
		}
		segments[idx].Words = append(segments[idx].Words, w)
	}
}

func mergeTranscriptions(parts []*pipeline.Transcription) *pipeline.Transcription {
	combined := &pipeline.Transcription{}
	for _, p := range parts {
		if p == nil {
			continue
		}
		if combined.Text != "" {
			combined.Text += " "
		}
		combined.Text += p.Text
		combined.Segments = append(combined.Segments, p.Segments...)
		combined.Words = append(combined.Words, p.Words...)
		combined.Duration += p.Duration
	}
	return combined
}

func cleanupChunks(chunks []string) {
	for _, chunk := range chunks {
		if err := os.Remove(chunk); err != nil && !os.IsNotExist(err) {
			slog.Debug("cleanup chunk", "file", filepath.Base(chunk), "err", err)
		}
	}
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
