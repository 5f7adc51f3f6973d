package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/Innoddu/speakflow/internal/config"
)

// Refiner re-segments an already-timed sentence list with an independent
// sentence boundary detector and remaps the results onto the original
// timing. Boundary detection and timing estimation are deliberately separate
// knobs: raw caption timing is noisiest exactly at sentence boundaries, so
// durations are re-derived from a speaking-rate model instead of trusted
// directly.
type Refiner struct {
	WordsPerSecond     float64
	SecondsPerWord     float64
	MinRefinedDuration float64
	MaxRefinedDuration float64
}

// NewRefiner creates a refiner with the given speaking-rate model.
func NewRefiner(settings *config.PipelineSettings) *Refiner {
	return &Refiner{
		WordsPerSecond:     settings.WordsPerSecond,
		SecondsPerWord:     settings.SecondsPerWord,
		MinRefinedDuration: settings.MinRefinedDuration,
		MaxRefinedDuration: settings.MaxRefinedDuration,
	}
}

// Refine re-segments the concatenated sentence text and maps each refined
// sentence onto the time ranges of the original sentences it overlaps.
// Refined sentences with no matching original span are dropped with a log,
// never fatally. A segmenter failure is returned so the caller can keep the
// unrefined list.
func (r *Refiner) Refine(ctx context.Context, sentences []Sentence, seg Segmenter) ([]Sentence, error) {
	if len(sentences) == 0 {
		return nil, nil
	}

	fullText, spans := concatSentences(sentences)

	refined, err := seg.Segment(ctx, fullText)
	if err != nil {
		return nil, fmt.Errorf("segment sentence text: %w", err)
	}

	var out []Sentence
	cursor := 0

	for _, text := range refined {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		// Same monotonic cursor as the builder: a repeated short sentence
		// binds to its in-order occurrence rather than the first one.
		idx := strings.Index(fullText[cursor:], text)
		if idx < 0 {
			slog.Warn("refined sentence not found in original text", "sentence", text)
			continue
		}
		start := cursor + idx
		end := start + len(text)
		cursor = end

		earliestStart, latestEnd, matched := overlapTiming(spans, start, end)
		if !matched {
			slog.Warn("refined sentence overlaps no original sentence", "sentence", text)
			continue
		}

		wordCount := len(strings.Fields(text))
		duration := r.modelDuration(wordCount, latestEnd-earliestStart)

		src := sentences[0].Source

		out = append(out, Sentence{
			Text:      text,
			Start:     earliestStart,
			End:       roundMillis(earliestStart + duration),
			Duration:  duration,
			WordCount: wordCount,
			Improved:  true,
			Source:    src,
		})
	}

	return out, nil
}

// modelDuration estimates how long a sentence should play. Raw timing serves
// only as an upper bound: when cue timing spans a disproportionate silence,
// the speaking-rate estimate wins.
func (r *Refiner) modelDuration(wordCount int, rawDuration float64) float64 {
	estimated := float64(wordCount) / r.WordsPerSecond
	minDur := math.Max(r.MinRefinedDuration, float64(wordCount)*r.SecondsPerWord)
	maxDur := math.Min(rawDuration, estimated+0.5)

	var d float64
	if wordCount <= 5 {
		// Short sentences get a conservative fixed-rate formula.
		d = float64(wordCount)/r.WordsPerSecond + 0.5
		d = math.Min(d, maxDur)
	} else {
		d = math.Min(estimated, math.Min(maxDur, r.MaxRefinedDuration))
	}
	d = math.Max(d, minDur)
	return roundMillis(math.Min(d, r.MaxRefinedDuration))
}

// overlapTiming returns the earliest start and latest end across original
// sentence spans overlapping [start, end).
func overlapTiming(spans []charSpan, start, end int) (float64, float64, bool) {
	var (
		matched  bool
		earliest float64
		latest   float64
	)
	for _, span := range spans {
		if !span.overlaps(start, end) {
			continue
		}
		if !matched || span.startSec < earliest {
			earliest = span.startSec
		}
		if !matched || span.endSec > latest {
			latest = span.endSec
		}
		matched = true
	}
	return earliest, latest, matched
}

// concatSentences joins sentence texts with single spaces and records each
// sentence's character range, mirroring concatSegments.
func concatSentences(sentences []Sentence) (string, []charSpan) {
	var sb strings.Builder
	spans := make([]charSpan, 0, len(sentences))

	offset := 0
	for i, s := range sentences {
		text := strings.TrimSpace(s.Text)
		if i > 0 {
			sb.WriteByte(' ')
			offset++
		}
		sb.WriteString(text)
		spans = append(spans, charSpan{
			start:    offset,
			end:      offset + len(text),
			startSec: s.Start,
			endSec:   s.End,
		})
		offset += len(text)
	}
	return sb.String(), spans
}
