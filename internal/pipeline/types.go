package pipeline

import "time"

// Cue is a single timed caption unit from any extraction source, before
// sentence merging.
type Cue struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

// End returns the cue's end time in seconds.
func (c Cue) End() float64 {
	return c.Start + c.Duration
}

// Word is a single word-level timestamp from the speech engine.
type Word struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Segment is a speech-engine chunk of recognized audio. A segment may span
// multiple sentences or only a fragment of one.
type Segment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Words []Word  `json:"words,omitempty"`
}

// Transcription is the full output of a speech-to-text engine run.
type Transcription struct {
	Text     string    `json:"text"`
	Segments []Segment `json:"segments"`
	Words    []Word    `json:"words,omitempty"`
	Duration float64   `json:"duration"`
}

// Sentence is the pipeline's output unit: a natural-language sentence with a
// derived start/end time suitable for audio seeking.
type Sentence struct {
	Text       string  `json:"text"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Duration   float64 `json:"duration"`
	WordCount  int     `json:"wordCount"`
	Words      []Word  `json:"words,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Improved   bool    `json:"improved,omitempty"`
	Source     string  `json:"source,omitempty"`
}

// Result is the top-level transcript artifact returned to callers and
// persisted in the cache. Immutable once written: a refinement pass produces
// a new Result rather than mutating a cached one.
type Result struct {
	Sentences   []Sentence `json:"sentences"`
	Source      string     `json:"source"`
	ProcessedAt time.Time  `json:"processedAt"`
}

// TotalDuration returns the end time of the last sentence, in seconds.
func (r *Result) TotalDuration() float64 {
	if len(r.Sentences) == 0 {
		return 0
	}
	return r.Sentences[len(r.Sentences)-1].End
}
