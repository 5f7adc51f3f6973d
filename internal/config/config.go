package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// PipelineSettings holds the tunable heuristics of the sentence pipeline.
// The defaults were chosen empirically; treat them as knobs, not law.
type PipelineSettings struct {
	// Merger thresholds.
	SoftCharLimit    int // close at this length when the next cue starts a new sentence
	HardCharLimit    int // close unconditionally past this length
	MinSentenceChars int // discard fragments shorter than this

	// Builder plausibility bounds.
	MinWordCount        int
	MinSentenceDuration float64
	MaxSentenceDuration float64

	// Refinement speaking-rate model.
	WordsPerSecond     float64 // average speaking rate
	SecondsPerWord     float64 // floor contribution per word
	MinRefinedDuration float64
	MaxRefinedDuration float64
}

// Config is the full application configuration.
type Config struct {
	PipelineSettings

	// Extraction.
	AttemptTimeout time.Duration // deadline for each caption fetch method
	CaptionLangs   []string      // preference order for caption tracks

	// Engine chunking.
	SplitDurationMin    int
	MaxConcurrentChunks int
	MaxRetries          int
	APIRateLimitPerMin  int

	// Collaborators.
	YouTubeAPIKey string
	OpenAIAPIKey  string
	CacheDir      string
	ListenAddr    string
}

// Default returns a Config with the standard tuning.
func Default() *Config {
	return &Config{
		PipelineSettings: PipelineSettings{
			SoftCharLimit:    40,
			HardCharLimit:    60,
			MinSentenceChars: 3,

			MinWordCount:        3,
			MinSentenceDuration: 1.0,
			MaxSentenceDuration: 15.0,

			WordsPerSecond:     2.5,
			SecondsPerWord:     0.25,
			MinRefinedDuration: 0.8,
			MaxRefinedDuration: 8.0,
		},
		AttemptTimeout: 30 * time.Second,
		CaptionLangs:   []string{"en", "en-US", "en-GB"},

		SplitDurationMin:    10,
		MaxConcurrentChunks: 3,
		MaxRetries:          3,
		APIRateLimitPerMin:  30,

		CacheDir:   "cache",
		ListenAddr: ":8080",
	}
}

// Load builds a Config from defaults plus the environment. A .env file in the
// working directory is honored when present; a missing file is not an error.
func Load() *Config {
	_ = godotenv.Load()

	cfg := Default()
	cfg.YouTubeAPIKey = os.Getenv("YOUTUBE_API_KEY")
	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")

	if v := os.Getenv("SPEAKFLOW_CACHE_DIR"); v != "" {
		cfg.CacheDir = v
	}
	if v := os.Getenv("SPEAKFLOW_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("SPEAKFLOW_ATTEMPT_TIMEOUT_SEC"); v != "" {
		if sec, err := strconv.Atoi(v); err == nil && sec > 0 {
			cfg.AttemptTimeout = time.Duration(sec) * time.Second
		}
	}
	return cfg
}
