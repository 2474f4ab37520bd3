// Filmoteket - Movie Catalog Ingestion and Reconciliation
// Copyright 2026 Filmoteket contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/filmoteket/filmoteket

package main

import (
	"fmt"
	"os"

	"github.com/filmoteket/filmoteket/internal/bulkfeed"
	"github.com/filmoteket/filmoteket/internal/config"
	"github.com/filmoteket/filmoteket/internal/dispatch"
	"github.com/filmoteket/filmoteket/internal/ingest"
	"github.com/filmoteket/filmoteket/internal/logging"
	"github.com/filmoteket/filmoteket/internal/reconcile"
	"github.com/filmoteket/filmoteket/internal/store"
	"github.com/filmoteket/filmoteket/internal/tmdb"
)

// app bundles the wired components behind every command.
type app struct {
	cfg      *config.Config
	store    *store.Store
	client   *tmdb.Client
	merger   *reconcile.Merger
	service  *ingest.Service
	bus      *dispatch.Bus
	importer *bulkfeed.Importer
}

// newApp loads configuration and wires the full pipeline.
func newApp(configFlag string) (*app, error) {
	if configFlag != "" {
		os.Setenv(config.ConfigPathEnvVar, configFlag)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	client := tmdb.NewClient(tmdb.Config{
		BaseURL:           cfg.TMDB.BaseURL,
		ExportBaseURL:     cfg.TMDB.ExportBaseURL,
		APIKey:            cfg.TMDB.APIKey,
		Timeout:           cfg.TMDB.Timeout,
		RequestsPerSecond: cfg.TMDB.RequestsPerSecond,
		MaxAttempts:       cfg.TMDB.MaxAttempts,
		TimeoutDelay:      cfg.TMDB.TimeoutDelay,
		ConnectDelay:      cfg.TMDB.ConnectDelay,
		RetryAfterMargin:  cfg.TMDB.RetryAfterMargin,
	})

	merger := reconcile.NewMerger(st)
	service := ingest.NewService(ingest.Config{Workers: cfg.Pool.Workers}, client, st, merger)

	bus, err := dispatch.NewBus(dispatch.Config{
		BufferSize:           cfg.Dispatch.BufferSize,
		RetryMaxRetries:      cfg.Dispatch.RetryMaxRetries,
		RetryInitialInterval: cfg.Dispatch.RetryInitialInterval,
		RetryMaxInterval:     cfg.Dispatch.RetryMaxInterval,
		CloseTimeout:         cfg.Dispatch.CloseTimeout,
	})
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("build dispatch bus: %w", err)
	}
	bus.RegisterRatingsHandler(merger.ApplyRatings)
	bus.RegisterTitlesHandler(merger.ApplyTitles)

	importer := bulkfeed.NewImporter(bulkfeed.Config{
		RatingsURL: cfg.Feeds.RatingsURL,
		TitlesURL:  cfg.Feeds.TitlesURL,
		ChunkSize:  cfg.Feeds.ChunkSize,
	}, st, bus)

	return &app{
		cfg:      cfg,
		store:    st,
		client:   client,
		merger:   merger,
		service:  service,
		bus:      bus,
		importer: importer,
	}, nil
}

func (a *app) close() {
	if err := a.bus.Close(); err != nil {
		logging.Warn().Err(err).Msg("closing dispatch bus")
	}
	if err := a.store.Close(); err != nil {
		logging.Warn().Err(err).Msg("closing store")
	}
}
