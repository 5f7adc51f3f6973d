package pipeline

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Innoddu/speakflow/internal/config"
)

// Merger folds timed cues into sentence-level units. Cue boundaries rarely
// align with sentence boundaries, so closing decisions use punctuation,
// length, and capitalization heuristics with no external NLP dependency.
type Merger struct {
	SoftCharLimit    int
	HardCharLimit    int
	MinSentenceChars int
}

// NewMerger creates a merger from pipeline settings.
func NewMerger(settings *config.PipelineSettings) *Merger {
	return &Merger{
		SoftCharLimit:    settings.SoftCharLimit,
		HardCharLimit:    settings.HardCharLimit,
		MinSentenceChars: settings.MinSentenceChars,
	}
}

// transitionWords are conjunctions and discourse markers that commonly begin
// a new spoken sentence after a comma pause.
var transitionWords = map[string]struct{}{
	"and": {}, "but": {}, "so": {}, "however": {}, "therefore": {},
	"meanwhile": {}, "after": {}, "before": {}, "since": {}, "while": {},
	"although": {}, "because": {},
}

// MergeCues folds cues left to right into sentences. Timing comes purely from
// source cue boundaries: a sentence starts at its first cue's start and ends
// at its last cue's end. Every cue of a well-formed parse lands in exactly
// one sentence; only fragments below the minimum length are discarded.
func (m *Merger) MergeCues(cues []Cue) []Sentence {
	if len(cues) == 0 {
		return nil
	}

	var sentences []Sentence
	var buf strings.Builder
	bufStart := cues[0].Start
	bufEnd := cues[0].End()

	flush := func() {
		text := strings.TrimSpace(buf.String())
		if utf8.RuneCountInString(text) > m.MinSentenceChars {
			sentences = append(sentences, Sentence{
				Text:      text,
				Start:     bufStart,
				End:       bufEnd,
				Duration:  roundMillis(bufEnd - bufStart),
				WordCount: len(strings.Fields(text)),
			})
		}
		buf.Reset()
	}

	for i, cue := range cues {
		if buf.Len() == 0 {
			bufStart = cue.Start
		}
		if buf.Len() > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(strings.TrimSpace(cue.Text))
		bufEnd = cue.End()

		var next *Cue
		if i+1 < len(cues) {
			next = &cues[i+1]
		}
		if m.shouldClose(buf.String(), next) {
			flush()
		}
	}

	// The last-cue condition below makes this unreachable for non-empty
	// input, but guard against an all-fragment tail anyway.
	if buf.Len() > 0 {
		flush()
	}

	return sentences
}

// shouldClose decides whether the accumulated text ends a sentence. next is
// nil for the final cue, which always closes.
func (m *Merger) shouldClose(accumulated string, next *Cue) bool {
	text := strings.TrimSpace(accumulated)
	if text == "" {
		return false
	}
	if next == nil {
		return true
	}
	if endsWithTerminalPunctuation(text) {
		return true
	}

	length := utf8.RuneCountInString(text)
	if length > m.HardCharLimit {
		return true
	}

	nextText := strings.TrimSpace(next.Text)
	if length > m.SoftCharLimit && startsWithCapital(nextText) {
		return true
	}

	if strings.HasSuffix(text, ",") {
		if startsWithCapital(nextText) || startsWithTransitionWord(nextText) {
			return true
		}
	}
	return false
}

func endsWithTerminalPunctuation(text string) bool {
	r, _ := utf8.DecodeLastRuneInString(text)
	return r == '.' || r == '!' || r == '?'
}

func startsWithCapital(text string) bool {
	r, _ := utf8.DecodeRuneInString(text)
	return unicode.IsUpper(r)
}

func startsWithTransitionWord(text string) bool {
	fields := strings.Fields(strings.ToLower(text))
	if len(fields) == 0 {
		return false
	}
	first := strings.TrimRight(fields[0], ",.!?;:")
	_, ok := transitionWords[first]
	return ok
}
