package pipeline

import (
	"math"
	"strings"
	"testing"

	"github.com/Innoddu/speakflow/internal/config"
)

func defaultMerger() *Merger {
	return NewMerger(&config.Default().PipelineSettings)
}

func TestMergeCues_EmptyInput(t *testing.T) {
	m := defaultMerger()
	if got := m.MergeCues(nil); got != nil {
		t.Errorf("expected nil for empty input, got %v", got)
	}
}

func TestMergeCues_TerminalPunctuationScenario(t *testing.T) {
	m := defaultMerger()
	cues := []Cue{
		{Text: "Hello world", Start: 0, Duration: 1.5},
		{Text: "Nice to meet you.", Start: 1.5, Duration: 2.0},
	}

	sentences := m.MergeCues(cues)
	if len(sentences) != 1 {
		t.Fatalf("expected 1 sentence, got %d", len(sentences))
	}

	s := sentences[0]
	if s.Text != "Hello world Nice to meet you." {
		t.Errorf("text = %q", s.Text)
	}
	if s.Start != 0 || s.End != 3.5 {
		t.Errorf("timing = (%f, %f), want (0, 3.5)", s.Start, s.End)
	}
	if s.Duration != 3.5 {
		t.Errorf("duration = %f, want 3.5", s.Duration)
	}
	if s.WordCount != 6 {
		t.Errorf("wordCount = %d, want 6", s.WordCount)
	}
}

func TestMergeCues_SplitsOnTerminalPunctuation(t *testing.T) {
	m := defaultMerger()
	cues := []Cue{
		{Text: "This is the first sentence.", Start: 0, Duration: 2},
		{Text: "This is the second one.", Start: 2, Duration: 2},
	}

	sentences := m.MergeCues(cues)
	if len(sentences) != 2 {
		t.Fatalf("expected 2 sentences, got %d", len(sentences))
	}
	if sentences[0].End != 2 || sentences[1].Start != 2 {
		t.Errorf("boundary timing = (%f, %f), want (2, 2)",
			sentences[0].End, sentences[1].Start)
	}
}

func TestMergeCues_LastCueAlwaysFlushed(t *testing.T) {
	m := defaultMerger()
	// Trailing cue without terminal punctuation must still be emitted.
	cues := []Cue{
		{Text: "A complete sentence here.", Start: 0, Duration: 2},
		{Text: "and then it just trails off", Start: 2, Duration: 1.5},
	}

	sentences := m.MergeCues(cues)
	if len(sentences) != 2 {
		t.Fatalf("expected 2 sentences, got %d", len(sentences))
	}
	last := sentences[len(sentences)-1]
	if last.End != cues[len(cues)-1].End() {
		t.Errorf("final sentence end = %f, want last cue end %f",
			last.End, cues[len(cues)-1].End())
	}
}

func TestMergeCues_HardCharCap(t *testing.T) {
	m := defaultMerger()
	long := strings.Repeat("word ", 13) // 65 chars, no punctuation
	cues := []Cue{
		{Text: strings.TrimSpace(long), Start: 0, Duration: 3},
		{Text: "next piece continues lowercase", Start: 3, Duration: 2},
	}

	sentences := m.MergeCues(cues)
	if len(sentences) != 2 {
		t.Fatalf("expected hard cap split into 2 sentences, got %d", len(sentences))
	}
}

func TestMergeCues_SoftCapNeedsCapitalizedNext(t *testing.T) {
	m := defaultMerger()
	mid := "this text is over forty characters long okay" // 44 chars

	// Next cue starts lowercase: no split at soft cap.
	cues := []Cue{
		{Text: mid, Start: 0, Duration: 2},
		{Text: "still going.", Start: 2, Duration: 1.5},
	}
	if got := m.MergeCues(cues); len(got) != 1 {
		t.Fatalf("lowercase next: expected 1 sentence, got %d", len(got))
	}

	// Next cue starts with a capital: split.
	cues[1].Text = "Then it resumes."
	if got := m.MergeCues(cues); len(got) != 2 {
		t.Fatalf("capitalized next: expected 2 sentences, got %d", len(got))
	}
}

func TestMergeCues_CommaBeforeTransitionWord(t *testing.T) {
	m := defaultMerger()

	tests := []struct {
		next   string
		splits bool
	}{
		{"but then something changed", true},
		{"however it was fine", true},
		{"Suddenly it stopped", true}, // capitalized counts too
		{"quietly continuing on", false},
	}

	for _, tt := range tests {
		cues := []Cue{
			{Text: "It started raining,", Start: 0, Duration: 1.5},
			{Text: tt.next, Start: 1.5, Duration: 1.5},
		}
		got := m.MergeCues(cues)
		want := 1
		if tt.splits {
			want = 2
		}
		if len(got) != want {
			t.Errorf("next=%q: got %d sentences, want %d", tt.next, len(got), want)
		}
	}
}

func TestMergeCues_DiscardsTinyFragments(t *testing.T) {
	m := defaultMerger()
	cues := []Cue{
		{Text: "Hm.", Start: 0, Duration: 0.5},
	}
	if got := m.MergeCues(cues); len(got) != 0 {
		t.Errorf("expected fragment to be discarded, got %v", got)
	}
}

func TestMergeCues_OrderingAndNoCueLost(t *testing.T) {
	m := defaultMerger()
	cues := []Cue{
		{Text: "One sentence ends here.", Start: 0, Duration: 2},
		{Text: "Another begins and", Start: 2, Duration: 1.5},
		{Text: "keeps on going until done.", Start: 3.5, Duration: 2},
		{Text: "Final thought here.", Start: 5.5, Duration: 1.8},
	}

	sentences := m.MergeCues(cues)
	if len(sentences) == 0 {
		t.Fatal("expected at least one sentence")
	}

	// Strictly ordered by start.
	for i := 1; i < len(sentences); i++ {
		if sentences[i].Start <= sentences[i-1].Start {
			t.Errorf("sentences not strictly ordered at %d: %f <= %f",
				i, sentences[i].Start, sentences[i-1].Start)
		}
	}

	// Every cue's text appears exactly once across the output.
	joined := ""
	for _, s := range sentences {
		joined += s.Text + " "
	}
	for _, cue := range cues {
		if strings.Count(joined, cue.Text) != 1 {
			t.Errorf("cue %q appears %d times in output, want 1",
				cue.Text, strings.Count(joined, cue.Text))
		}
	}

	// Termination: final sentence ends at the last cue's end.
	if got := sentences[len(sentences)-1].End; math.Abs(got-cues[len(cues)-1].End()) > 1e-9 {
		t.Errorf("final end = %f, want %f", got, cues[len(cues)-1].End())
	}
}
