package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Innoddu/speakflow/internal/config"
)

// Builder derives timed sentences from speech-engine segments. Sentence
// boundaries are found in the concatenated transcript text, then mapped back
// onto the segments whose character ranges overlap each sentence.
type Builder struct {
	MinWordCount        int
	MinSentenceDuration float64
	MaxSentenceDuration float64
}

// NewBuilder creates a builder with the given plausibility bounds.
func NewBuilder(settings *config.PipelineSettings) *Builder {
	return &Builder{
		MinWordCount:        settings.MinWordCount,
		MinSentenceDuration: settings.MinSentenceDuration,
		MaxSentenceDuration: settings.MaxSentenceDuration,
	}
}

// charSpan is a half-open character range [start, end) within a concatenated
// text, paired with the timing of the unit it came from.
type charSpan struct {
	start, end int
	startSec   float64
	endSec     float64
	words      []Word
}

// overlaps is the open-interval overlap test.
func (s charSpan) overlaps(start, end int) bool {
	return s.start < end && s.end > start
}

// BuildSentences locates sentence boundaries inside the transcription and
// derives each sentence's timing from the overlapping segments. Sentences
// failing the plausibility filter (word count, duration bounds) are dropped
// silently; a segmenter failure is returned to the caller so it can retry
// with a simpler tokenizer.
func (b *Builder) BuildSentences(ctx context.Context, tr *Transcription, seg Segmenter) ([]Sentence, error) {
	if tr == nil || len(tr.Segments) == 0 {
		return nil, nil
	}

	fullText, spans := concatSegments(tr.Segments)

	candidates, err := seg.Segment(ctx, fullText)
	if err != nil {
		return nil, fmt.Errorf("segment transcript text: %w", err)
	}

	var sentences []Sentence
	cursor := 0

	for _, candidate := range candidates {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}

		// Monotonic search cursor: matches stay in order and repeated
		// phrases bind to their next occurrence, not their first.
		idx := strings.Index(fullText[cursor:], candidate)
		if idx < 0 {
			slog.Warn("sentence not found in transcript text", "sentence", candidate)
			continue
		}
		start := cursor + idx
		end := start + len(candidate)
		cursor = end

		sentence, ok := b.mapToSpans(candidate, start, end, spans)
		if !ok {
			continue
		}
		sentences = append(sentences, sentence)
	}

	return sentences, nil
}

// mapToSpans derives a sentence's timing from every segment span overlapping
// its character range, then applies the plausibility filter.
func (b *Builder) mapToSpans(text string, start, end int, spans []charSpan) (Sentence, bool) {
	var (
		matched  bool
		startSec float64
		endSec   float64
		words    []Word
	)

	for _, span := range spans {
		if !span.overlaps(start, end) {
			continue
		}
		if !matched || span.startSec < startSec {
			startSec = span.startSec
		}
		if !matched || span.endSec > endSec {
			endSec = span.endSec
		}
		words = append(words, span.words...)
		matched = true
	}
	if !matched {
		return Sentence{}, false
	}

	duration := roundMillis(endSec - startSec)
	wordCount := len(strings.Fields(text))

	// Quality gate against engine hallucinations and implausibly long
	// merged spans. Not an error.
	if wordCount < b.MinWordCount ||
		duration < b.MinSentenceDuration ||
		duration > b.MaxSentenceDuration {
		return Sentence{}, false
	}

	return Sentence{
		Text:      text,
		Start:     startSec,
		End:       endSec,
		Duration:  duration,
		WordCount: wordCount,
		Words:     words,
	}, true
}

// concatSegments joins segment texts with single spaces and records each
// segment's character range within the joined text. The running offset
// advances len(text)+1 per segment to account for the inserted space.
func concatSegments(segments []Segment) (string, []charSpan) {
	var sb strings.Builder
	spans := make([]charSpan, 0, len(segments))

	offset := 0
	for i, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if i > 0 {
			sb.WriteByte(' ')
			offset++
		}
		sb.WriteString(text)
		spans = append(spans, charSpan{
			start:    offset,
			end:      offset + len(text),
			startSec: seg.Start,
			endSec:   seg.End,
			words:    seg.Words,
		})
		offset += len(text)
	}
	return sb.String(), spans
}
