package cmd

import (
	"fmt"

	"github.com/Innoddu/speakflow/internal/cache"
	"github.com/Innoddu/speakflow/internal/config"
	"github.com/Innoddu/speakflow/internal/engine"
	"github.com/Innoddu/speakflow/internal/extract"
	"github.com/Innoddu/speakflow/internal/nlp"
	"github.com/Innoddu/speakflow/internal/pipeline"
	"github.com/Innoddu/speakflow/internal/service"
	"github.com/Innoddu/speakflow/internal/youtube"
)

// buildService assembles the pipeline service and the catalog client from
// config. With noCache the artifact store is an in-memory discard so every
// run recomputes.
func buildService(cfg *config.Config, noCache bool) (*service.Service, *youtube.Client, error) {
	var store cache.Store
	if noCache {
		store = discardStore{}
	} else {
		fs, err := cache.NewFileStore(cfg.CacheDir)
		if err != nil {
			return nil, nil, fmt.Errorf("open cache: %w", err)
		}
		store = fs
	}

	catalog := youtube.New(cfg.YouTubeAPIKey)

	orchestrator := extract.NewOrchestrator(cfg.AttemptTimeout,
		&extract.YtDlp{Langs: cfg.CaptionLangs},
		&extract.CaptionAPI{Client: catalog, Langs: cfg.CaptionLangs},
		&extract.Scraper{},
	)

	segmenter := nlp.NewPunktSegmenter("", cfg.AttemptTimeout)

	svc := service.New(cfg, store, orchestrator, engine.New(cfg), segmenter)
	return svc, catalog, nil
}

// discardStore never hits and never stores.
type discardStore struct{}

func (discardStore) Exists(string) bool                   { return false }
func (discardStore) Get(string) (*pipeline.Result, error) { return nil, cache.ErrNotFound }
func (discardStore) Put(string, *pipeline.Result) error   { return nil }
