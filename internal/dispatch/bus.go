// Filmoteket - Movie Catalog Ingestion and Reconciliation
// Copyright 2026 Filmoteket contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/filmoteket/filmoteket

// Package dispatch carries chunked bulk feed rows from the importers to the
// reconciliation consumers over an in-process Watermill pub/sub.
//
// Delivery is at-least-once: a nacked chunk is retried with backoff and, once
// retries are exhausted, parked on the poison topic instead of blocking the
// rest of the feed. Consumers must therefore converge under redelivery, which
// the reconcile package guarantees.
package dispatch

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/filmoteket/filmoteket/internal/metrics"
	"github.com/filmoteket/filmoteket/internal/models"
)

// Topics carrying feed chunks.
const (
	TopicRatings = "feed.ratings"
	TopicTitles  = "feed.titles"
	TopicPoison  = "feed.poison"
)

// Config holds dispatch settings.
type Config struct {
	// BufferSize bounds how many chunks may sit between importer and
	// consumers before publishing blocks.
	BufferSize int

	// Retry settings for failed chunk handlers.
	RetryMaxRetries      int
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration

	CloseTimeout time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		BufferSize:           64,
		RetryMaxRetries:      5,
		RetryInitialInterval: time.Second,
		RetryMaxInterval:     time.Minute,
		CloseTimeout:         30 * time.Second,
	}
}

// Bus is the in-process chunk bus: publisher and consumer router in one.
type Bus struct {
	pubsub *gochannel.GoChannel
	router *message.Router

	// published and settled track chunks in flight so Drain can tell when
	// the bus is empty. A chunk settles by being processed or poisoned.
	published atomic.Int64
	settled   atomic.Int64
}

// NewBus builds the bus and its consumer router. Handlers must be registered
// before Run.
func NewBus(cfg Config) (*Bus, error) {
	logger := newWatermillLogger()

	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: int64(cfg.BufferSize),
	}, logger)

	router, err := message.NewRouter(message.RouterConfig{
		CloseTimeout: cfg.CloseTimeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("new router: %w", err)
	}

	poison, err := middleware.PoisonQueue(pubsub, TopicPoison)
	if err != nil {
		return nil, fmt.Errorf("poison queue: %w", err)
	}

	router.AddMiddleware(
		poison,
		middleware.Retry{
			MaxRetries:      cfg.RetryMaxRetries,
			InitialInterval: cfg.RetryInitialInterval,
			MaxInterval:     cfg.RetryMaxInterval,
			Multiplier:      2.0,
			Logger:          logger,
		}.Middleware,
		middleware.Recoverer,
	)

	bus := &Bus{pubsub: pubsub, router: router}
	bus.addPoisonLogger(logger)
	return bus, nil
}

// addPoisonLogger drains the poison topic so parked chunks are visible in
// logs and metrics instead of silently buffered.
func (b *Bus) addPoisonLogger(logger watermill.LoggerAdapter) {
	b.router.AddNoPublisherHandler(
		"poison-logger",
		TopicPoison,
		b.pubsub,
		func(msg *message.Message) error {
			topic := msg.Metadata.Get(middleware.PoisonedTopicKey)
			b.settled.Add(1)
			metrics.ChunksProcessed.WithLabelValues(topic, "poisoned").Inc()
			logger.Error("chunk poisoned", nil, watermill.LogFields{
				"message_id": msg.UUID,
				"topic":      topic,
				"reason":     msg.Metadata.Get(middleware.ReasonForPoisonedKey),
			})
			return nil
		},
	)
}

// RegisterRatingsHandler binds fn to the ratings topic.
func (b *Bus) RegisterRatingsHandler(fn func(ctx context.Context, rows []models.RatingRow) error) {
	b.router.AddNoPublisherHandler(
		"ratings-consumer",
		TopicRatings,
		b.pubsub,
		func(msg *message.Message) error {
			var chunk RatingChunk
			if err := unmarshalChunk(msg, &chunk); err != nil {
				return err
			}
			if err := fn(msg.Context(), chunk.Rows); err != nil {
				return err
			}
			b.settled.Add(1)
			metrics.ChunksProcessed.WithLabelValues(TopicRatings, "ok").Inc()
			return nil
		},
	)
}

// RegisterTitlesHandler binds fn to the titles topic.
func (b *Bus) RegisterTitlesHandler(fn func(ctx context.Context, rows []models.TitleRow) error) {
	b.router.AddNoPublisherHandler(
		"titles-consumer",
		TopicTitles,
		b.pubsub,
		func(msg *message.Message) error {
			var chunk TitleChunk
			if err := unmarshalChunk(msg, &chunk); err != nil {
				return err
			}
			if err := fn(msg.Context(), chunk.Rows); err != nil {
				return err
			}
			b.settled.Add(1)
			metrics.ChunksProcessed.WithLabelValues(TopicTitles, "ok").Inc()
			return nil
		},
	)
}

// PublishRatings hands one chunk of rating rows to the consumers.
func (b *Bus) PublishRatings(ctx context.Context, rows []models.RatingRow) error {
	msg, err := marshalChunk(RatingChunk{Rows: rows})
	if err != nil {
		return err
	}
	msg.SetContext(ctx)
	if err := b.pubsub.Publish(TopicRatings, msg); err != nil {
		return fmt.Errorf("publish ratings chunk: %w", err)
	}
	b.published.Add(1)
	metrics.FeedChunksPublished.WithLabelValues("ratings").Inc()
	return nil
}

// PublishTitles hands one chunk of title rows to the consumers.
func (b *Bus) PublishTitles(ctx context.Context, rows []models.TitleRow) error {
	msg, err := marshalChunk(TitleChunk{Rows: rows})
	if err != nil {
		return err
	}
	msg.SetContext(ctx)
	if err := b.pubsub.Publish(TopicTitles, msg); err != nil {
		return fmt.Errorf("publish titles chunk: %w", err)
	}
	b.published.Add(1)
	metrics.FeedChunksPublished.WithLabelValues("titles").Inc()
	return nil
}

// Run starts the consumer router and blocks until ctx is cancelled or the
// router is closed.
func (b *Bus) Run(ctx context.Context) error {
	return b.router.Run(ctx)
}

// Running returns a channel closed once all handlers are up. Publish before
// that point and a non-persistent in-process topic drops the chunk.
func (b *Bus) Running() <-chan struct{} {
	return b.router.Running()
}

// Drain blocks until every published chunk has settled (processed or
// poisoned), or ctx expires. Call after the importers finish and before Close
// so buffered chunks aren't dropped with the pub/sub.
func (b *Bus) Drain(ctx context.Context) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		if b.settled.Load() >= b.published.Load() {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("drain: %d chunks still in flight: %w",
				b.published.Load()-b.settled.Load(), ctx.Err())
		case <-ticker.C:
		}
	}
}

// Close shuts the router and the underlying pub/sub down.
func (b *Bus) Close() error {
	if err := b.router.Close(); err != nil {
		return err
	}
	return b.pubsub.Close()
}
