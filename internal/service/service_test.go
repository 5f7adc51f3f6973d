package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/Innoddu/speakflow/internal/cache"
	"github.com/Innoddu/speakflow/internal/config"
	"github.com/Innoddu/speakflow/internal/extract"
	"github.com/Innoddu/speakflow/internal/pipeline"
)

// memStore is an in-memory cache.Store.
type memStore struct {
	mu      sync.Mutex
	entries map[string]*pipeline.Result
	putErr  error
	getErr  error
}

func newMemStore() *memStore {
	return &memStore{entries: map[string]*pipeline.Result{}}
}

func (m *memStore) Exists(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[key]
	return ok
}

func (m *memStore) Get(key string) (*pipeline.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	if res, ok := m.entries[key]; ok {
		return res, nil
	}
	return nil, cache.ErrNotFound
}

func (m *memStore) Put(key string, result *pipeline.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	m.entries[key] = result
	return nil
}

// stubExtractor returns scripted cues or error.
type stubExtractor struct {
	cues   []pipeline.Cue
	method string
	err    error
	calls  int
}

func (s *stubExtractor) Extract(context.Context, string) ([]pipeline.Cue, string, error) {
	s.calls++
	return s.cues, s.method, s.err
}

// stubTranscriber returns a scripted transcription.
type stubTranscriber struct {
	tr    *pipeline.Transcription
	err   error
	calls int
}

func (s *stubTranscriber) Transcribe(context.Context, string) (*pipeline.Transcription, error) {
	s.calls++
	return s.tr, s.err
}

func captionCues() []pipeline.Cue {
	return []pipeline.Cue{
		{Text: "Welcome back to the channel everyone.", Start: 0, Duration: 2.5},
		{Text: "Today we are looking at verbs.", Start: 2.5, Duration: 2.5},
	}
}

func newTestService(t *testing.T, store cache.Store, ex Extractor, tr Transcriber) *Service {
	t.Helper()
	svc := New(config.Default(), store, ex, tr, pipeline.HeuristicSegmenter{})
	svc.FetchAudio = func(ctx context.Context, videoID, dir string) (string, error) {
		path := filepath.Join(t.TempDir(), videoID+".m4a")
		if err := os.WriteFile(path, []byte("fake audio"), 0o644); err != nil {
			return "", err
		}
		return path, nil
	}
	return svc
}

func TestGetPracticeTranscript_CuePath(t *testing.T) {
	store := newMemStore()
	ex := &stubExtractor{cues: captionCues(), method: "yt-dlp"}
	svc := newTestService(t, store, ex, &stubTranscriber{})

	result, err := svc.GetPracticeTranscript(context.Background(), "vid1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(result.Source, "yt-dlp") {
		t.Errorf("source = %q, want yt-dlp prefix", result.Source)
	}
	if len(result.Sentences) == 0 {
		t.Fatal("expected sentences")
	}

	// Both the base and the refined artifact must be cached.
	if !store.Exists("vid1") {
		t.Error("base result not cached")
	}
	if result.Source == "yt-dlp+refined" && !store.Exists(cache.RefinedKey("vid1")) {
		t.Error("refined result not cached under its own key")
	}
}

func TestGetPracticeTranscript_RefinementMarksImproved(t *testing.T) {
	store := newMemStore()
	ex := &stubExtractor{cues: captionCues(), method: "yt-dlp"}
	svc := newTestService(t, store, ex, &stubTranscriber{})

	result, err := svc.GetPracticeTranscript(context.Background(), "vid1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Source != "yt-dlp+refined" {
		t.Fatalf("source = %q, want refined", result.Source)
	}
	for _, s := range result.Sentences {
		if !s.Improved {
			t.Errorf("sentence %q not marked improved", s.Text)
		}
	}
}

func TestGetPracticeTranscript_CacheHitSkipsPipeline(t *testing.T) {
	store := newMemStore()
	ex := &stubExtractor{cues: captionCues(), method: "yt-dlp"}
	svc := newTestService(t, store, ex, &stubTranscriber{})

	first, err := svc.GetPracticeTranscript(context.Background(), "vid1")
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	second, err := svc.GetPracticeTranscript(context.Background(), "vid1")
	if err != nil {
		t.Fatalf("second call: %v", err)
	}

	if ex.calls != 1 {
		t.Errorf("extractor called %d times, want 1", ex.calls)
	}
	if first.Source != second.Source {
		t.Errorf("cached source %q != computed %q", second.Source, first.Source)
	}
}

func TestGetPracticeTranscript_EngineFallback(t *testing.T) {
	store := newMemStore()
	ex := &stubExtractor{err: &extract.NoCaptionSourceError{
		VideoID:  "vid2",
		Attempts: []extract.Attempt{{Method: "yt-dlp", Reason: "no captions"}},
	}}
	tr := &stubTranscriber{tr: &pipeline.Transcription{
		Segments: []pipeline.Segment{
			{Text: "This video has no captions at all.", Start: 0, End: 3},
			{Text: "So the engine steps in instead.", Start: 3, End: 6},
		},
	}}
	svc := newTestService(t, store, ex, tr)

	result, err := svc.GetPracticeTranscript(context.Background(), "vid2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.calls != 1 {
		t.Errorf("transcriber called %d times, want 1", tr.calls)
	}
	if !strings.HasPrefix(result.Source, "speech-engine") {
		t.Errorf("source = %q, want speech-engine prefix", result.Source)
	}
}

func TestGetPracticeTranscript_TotalExhaustion(t *testing.T) {
	store := newMemStore()
	ex := &stubExtractor{err: &extract.NoCaptionSourceError{
		VideoID:  "vid3",
		Attempts: []extract.Attempt{{Method: "yt-dlp", Reason: "no captions"}},
	}}
	tr := &stubTranscriber{err: errors.New("engine unreachable")}
	svc := newTestService(t, store, ex, tr)

	_, err := svc.GetPracticeTranscript(context.Background(), "vid3")

	var noSource *extract.NoCaptionSourceError
	if !errors.As(err, &noSource) {
		t.Fatalf("error = %v, want *NoCaptionSourceError", err)
	}
	// The engine attempt must appear in the diagnostics too.
	last := noSource.Attempts[len(noSource.Attempts)-1]
	if last.Method != "speech-engine" {
		t.Errorf("last attempt = %q, want speech-engine", last.Method)
	}
}

func TestGetPracticeTranscript_CacheFailureIsNotFatal(t *testing.T) {
	store := newMemStore()
	store.putErr = errors.New("disk full")
	store.getErr = errors.New("disk on fire")

	ex := &stubExtractor{cues: captionCues(), method: "yt-dlp"}
	svc := newTestService(t, store, ex, &stubTranscriber{})

	result, err := svc.GetPracticeTranscript(context.Background(), "vid4")
	if err != nil {
		t.Fatalf("cache failure leaked: %v", err)
	}
	if len(result.Sentences) == 0 {
		t.Error("expected computed sentences despite cache failure")
	}
}

func TestGetCachedTranscript(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store, &stubExtractor{}, &stubTranscriber{})

	if _, err := svc.GetCachedTranscript(context.Background(), "missing"); !errors.Is(err, cache.ErrNotFound) {
		t.Errorf("miss error = %v, want ErrNotFound", err)
	}

	store.entries["vid5"] = &pipeline.Result{Source: "yt-dlp"}
	store.entries[cache.RefinedKey("vid5")] = &pipeline.Result{Source: "yt-dlp+refined"}

	got, err := svc.GetCachedTranscript(context.Background(), "vid5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Source != "yt-dlp+refined" {
		t.Errorf("source = %q, want the refined variant preferred", got.Source)
	}
}
