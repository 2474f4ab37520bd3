// Filmoteket - Movie Catalog Ingestion and Reconciliation
// Copyright 2026 Filmoteket contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/filmoteket/filmoteket

package dispatch

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/filmoteket/filmoteket/internal/models"
)

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.RetryMaxRetries = 2
	cfg.RetryInitialInterval = time.Millisecond
	cfg.RetryMaxInterval = 5 * time.Millisecond
	cfg.CloseTimeout = 2 * time.Second
	return cfg
}

func startBus(t *testing.T, bus *Bus) context.CancelFunc {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		if err := bus.Run(ctx); err != nil {
			t.Errorf("bus run: %v", err)
		}
	}()

	select {
	case <-bus.Running():
	case <-time.After(5 * time.Second):
		t.Fatal("bus did not start")
	}
	t.Cleanup(func() {
		cancel()
		bus.Close()
	})
	return cancel
}

func TestBusDeliversRatingChunks(t *testing.T) {
	bus, err := NewBus(fastConfig())
	if err != nil {
		t.Fatalf("NewBus() error = %v", err)
	}

	var mu sync.Mutex
	var got [][]models.RatingRow
	done := make(chan struct{})

	bus.RegisterRatingsHandler(func(_ context.Context, rows []models.RatingRow) error {
		mu.Lock()
		got = append(got, rows)
		n := len(got)
		mu.Unlock()
		if n == 2 {
			close(done)
		}
		return nil
	})
	startBus(t, bus)

	chunks := [][]models.RatingRow{
		{{IMDBID: "tt0000001", AverageRating: 7.1, NumVotes: 100}},
		{{IMDBID: "tt0000002", AverageRating: 5.0, NumVotes: 42}},
	}
	for _, chunk := range chunks {
		if err := bus.PublishRatings(context.Background(), chunk); err != nil {
			t.Fatalf("PublishRatings() error = %v", err)
		}
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("chunks not delivered")
	}

	mu.Lock()
	defer mu.Unlock()
	if !reflect.DeepEqual(got, chunks) {
		t.Errorf("delivered = %+v, want %+v", got, chunks)
	}
}

func TestBusRetriesBeforeSucceeding(t *testing.T) {
	bus, err := NewBus(fastConfig())
	if err != nil {
		t.Fatalf("NewBus() error = %v", err)
	}

	var mu sync.Mutex
	attempts := 0
	done := make(chan struct{})

	bus.RegisterTitlesHandler(func(_ context.Context, rows []models.TitleRow) error {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts < 2 {
			return errors.New("transient")
		}
		close(done)
		return nil
	})
	startBus(t, bus)

	rows := []models.TitleRow{{IMDBID: "tt0000001", Title: "Matrix", Region: "SE"}}
	if err := bus.PublishTitles(context.Background(), rows); err != nil {
		t.Fatalf("PublishTitles() error = %v", err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("chunk never succeeded")
	}

	mu.Lock()
	defer mu.Unlock()
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestBusParksPoisonedChunks(t *testing.T) {
	bus, err := NewBus(fastConfig())
	if err != nil {
		t.Fatalf("NewBus() error = %v", err)
	}

	// Watch the poison topic directly, alongside the bus's own logger.
	poisoned, err := bus.pubsub.Subscribe(context.Background(), TopicPoison)
	if err != nil {
		t.Fatalf("subscribe poison: %v", err)
	}

	bus.RegisterRatingsHandler(func(_ context.Context, rows []models.RatingRow) error {
		return errors.New("permanently broken")
	})
	startBus(t, bus)

	rows := []models.RatingRow{{IMDBID: "tt0000001", AverageRating: 1.0, NumVotes: 1}}
	if err := bus.PublishRatings(context.Background(), rows); err != nil {
		t.Fatalf("PublishRatings() error = %v", err)
	}

	select {
	case msg := <-poisoned:
		msg.Ack()
		var chunk RatingChunk
		if err := unmarshalChunk(msg, &chunk); err != nil {
			t.Fatalf("poisoned chunk unreadable: %v", err)
		}
		if !reflect.DeepEqual(chunk.Rows, rows) {
			t.Errorf("poisoned rows = %+v, want %+v", chunk.Rows, rows)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("chunk was not parked on the poison topic")
	}
}
