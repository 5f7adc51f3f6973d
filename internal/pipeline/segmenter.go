package pipeline

import (
	"context"
	"errors"
	"strings"
	"unicode"
)

// ErrSegmenterUnavailable reports that a sentence segmenter cannot run at all
// (missing binary, failed capability check). Callers fall back to the
// heuristic splitter instead of failing the request.
var ErrSegmenterUnavailable = errors.New("sentence segmenter unavailable")

// Segmenter splits running text into ordered sentence strings.
type Segmenter interface {
	Segment(ctx context.Context, text string) ([]string, error)
}

// HeuristicSegmenter is the zero-dependency fallback: it splits on terminal
// punctuation, keeping the punctuation with the sentence. It knows a handful
// of common abbreviations so "Dr. Smith" stays in one piece.
type HeuristicSegmenter struct{}

var abbreviations = map[string]struct{}{
	"mr": {}, "mrs": {}, "ms": {}, "dr": {}, "prof": {}, "st": {},
	"vs": {}, "etc": {}, "e.g": {}, "i.e": {},
}

// Segment splits text into sentences. It never fails.
func (HeuristicSegmenter) Segment(_ context.Context, text string) ([]string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	var sentences []string
	runes := []rune(text)
	start := 0

	for i, r := range runes {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		// A period inside a number or an abbreviation does not end a sentence.
		if r == '.' {
			if i+1 < len(runes) && unicode.IsDigit(runes[i+1]) {
				continue
			}
			// A letter straight after the period means the period is
			// internal to a token, as in "e.g." or a bare domain name.
			if i+1 < len(runes) && unicode.IsLetter(runes[i+1]) {
				continue
			}
			if isAbbreviation(runes[start : i+1]) {
				continue
			}
		}
		// Consume trailing closers like quotes before cutting.
		end := i + 1
		for end < len(runes) && (runes[end] == '"' || runes[end] == '\'' || runes[end] == ')') {
			end++
		}
		if s := strings.TrimSpace(string(runes[start:end])); s != "" {
			sentences = append(sentences, s)
		}
		start = end
	}

	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		sentences = append(sentences, s)
	}
	return sentences, nil
}

// isAbbreviation reports whether the text up to and including a period ends
// in a known abbreviation.
func isAbbreviation(runes []rune) bool {
	text := strings.TrimSuffix(string(runes), ".")
	idx := strings.LastIndexFunc(text, unicode.IsSpace)
	word := strings.ToLower(text[idx+1:])
	_, ok := abbreviations[word]
	return ok
}
