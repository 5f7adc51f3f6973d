package cache

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/Innoddu/speakflow/internal/pipeline"
)

func sampleResult() *pipeline.Result {
	return &pipeline.Result{
		Sentences: []pipeline.Sentence{
			{Text: "Hello world.", Start: 0, End: 1.5, Duration: 1.5, WordCount: 2},
			{Text: "Second sentence here.", Start: 1.5, End: 3.5, Duration: 2.0, WordCount: 3, Improved: true},
		},
		Source:      "yt-dlp+refined",
		ProcessedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestFileStore_PutGetRoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	want := sampleResult()
	if err := store.Put("abc123", want); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := store.Get("abc123")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.Sentences) != len(want.Sentences) {
		t.Fatalf("sentences = %d, want %d", len(got.Sentences), len(want.Sentences))
	}
	for i := range want.Sentences {
		if !reflect.DeepEqual(got.Sentences[i], want.Sentences[i]) {
			t.Errorf("sentence %d = %+v, want %+v", i, got.Sentences[i], want.Sentences[i])
		}
	}
	if got.Source != want.Source {
		t.Errorf("source = %q, want %q", got.Source, want.Source)
	}
	if !got.ProcessedAt.Equal(want.ProcessedAt) {
		t.Errorf("processedAt = %v, want %v", got.ProcessedAt, want.ProcessedAt)
	}
}

func TestFileStore_MissReturnsErrNotFound(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	if _, err := store.Get("nothing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get miss error = %v, want ErrNotFound", err)
	}
	if store.Exists("nothing") {
		t.Error("Exists = true for missing key")
	}
}

func TestFileStore_RefinedKeyIsSeparateEntry(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	base := sampleResult()
	base.Source = "yt-dlp"
	if err := store.Put("abc123", base); err != nil {
		t.Fatalf("Put base: %v", err)
	}

	refined := sampleResult()
	if err := store.Put(RefinedKey("abc123"), refined); err != nil {
		t.Fatalf("Put refined: %v", err)
	}

	gotBase, err := store.Get("abc123")
	if err != nil {
		t.Fatalf("Get base: %v", err)
	}
	if gotBase.Source != "yt-dlp" {
		t.Errorf("base source = %q, refined entry clobbered the original", gotBase.Source)
	}

	gotRefined, err := store.Get(RefinedKey("abc123"))
	if err != nil {
		t.Fatalf("Get refined: %v", err)
	}
	if gotRefined.Source != "yt-dlp+refined" {
		t.Errorf("refined source = %q", gotRefined.Source)
	}
}

func TestFileStore_ExistsAfterPut(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	if err := store.Put("vid", sampleResult()); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !store.Exists("vid") {
		t.Error("Exists = false after Put")
	}
}
