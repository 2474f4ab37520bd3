// Filmoteket - Movie Catalog Ingestion and Reconciliation
// Copyright 2026 Filmoteket contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/filmoteket/filmoteket

// Package ingest drives catalog runs: reference refresh, id listing sync,
// per-item enrichment through a bounded worker pool, and rescans of items
// changed upstream.
package ingest

import (
	"context"
	"sync"

	"github.com/filmoteket/filmoteket/internal/metrics"
)

// DefaultWorkers is the fan-out for per-item enrichment.
const DefaultWorkers = 5

// runPool fans ids out to at most workers concurrent calls of work.
//
// A non-nil error from work is fatal: the pool cancels remaining items and
// returns the first such error. Item-level failures must be absorbed inside
// work so siblings keep flowing.
func runPool(ctx context.Context, workers int, ids []int64, work func(ctx context.Context, id int64) error) error {
	if workers <= 0 {
		workers = DefaultWorkers
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	queue := make(chan int64)
	var wg sync.WaitGroup

	var once sync.Once
	var fatal error
	abort := func(err error) {
		once.Do(func() {
			fatal = err
			cancel()
		})
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range queue {
				metrics.PoolActiveWorkers.Inc()
				err := work(ctx, id)
				metrics.PoolActiveWorkers.Dec()
				if err != nil {
					abort(err)
					return
				}
			}
		}()
	}

	metrics.PoolQueueDepth.Set(float64(len(ids)))
feed:
	for _, id := range ids {
		select {
		case queue <- id:
			metrics.PoolQueueDepth.Dec()
		case <-ctx.Done():
			break feed
		}
	}
	close(queue)
	wg.Wait()
	metrics.PoolQueueDepth.Set(0)

	if fatal != nil {
		return fatal
	}
	return ctx.Err()
}
