package cli

import (
	"github.com/rs/zerolog/log"

	"document-search/internal/config"
	"document-search/internal/embedder"
	"document-search/internal/extract"
	"document-search/internal/search"
	"document-search/internal/summarizer"
	"document-search/internal/tagstore"
	"document-search/internal/vectorstore/chromemdb"
)

// Package-level collaborators, assembled once per invocation by setup.
var (
	cfg    *config.Config
	tags   *tagstore.Store
	engine *search.Engine
)

// setup wires the engine from the config. Every collaborator is optional:
// failures log a warning and leave the engine degraded rather than aborting,
// so commands like status still work.
func setup(path string) error {
	var err error
	cfg, err = config.Load(path)
	if err != nil {
		return err
	}

	deps := search.Deps{Extract: extract.Content}

	tags, err = tagstore.Connect(cfg.Database)
	if err != nil {
		log.Warn().Err(err).Msg("tag database unavailable, tag features disabled")
		tags = nil
	} else {
		deps.Tags = tags
	}

	emb, err := embedder.New(cfg.Embedder)
	if err != nil {
		log.Warn().Err(err).Msg("embedder unavailable, running degraded")
	} else {
		store, err := chromemdb.New(cfg.Vector.Path, cfg.Vector.Collection, cfg.Vector.InMemory, emb)
		if err != nil {
			log.Warn().Err(err).Msg("vector store unavailable, running degraded")
		} else {
			deps.Store = store
		}
	}

	sum, err := summarizer.New(cfg.Summary)
	if err != nil {
		log.Warn().Err(err).Msg("summarizer unavailable, using heuristic summaries")
	} else if sum != nil {
		deps.Summarize = sum
	}

	engine = search.New(deps, cfg.Search)
	return nil
}

func teardown() {
	if tags != nil {
		if err := tags.Close(); err != nil {
			log.Warn().Err(err).Msg("closing tag database")
		}
	}
}
