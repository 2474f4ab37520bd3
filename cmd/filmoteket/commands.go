// Filmoteket - Movie Catalog Ingestion and Reconciliation
// Copyright 2026 Filmoteket contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/filmoteket/filmoteket

package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/filmoteket/filmoteket/internal/logging"
)

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// startBus runs the dispatch router and waits until its handlers are up.
func startBus(ctx context.Context, a *app) {
	go func() {
		if err := a.bus.Run(ctx); err != nil {
			logging.Err(err).Msg("dispatch bus stopped")
		}
	}()
	<-a.bus.Running()
}

// parseDate accepts YYYY-MM-DD; empty means yesterday, when the provider's
// daily export is guaranteed published.
func parseDate(flag string) (time.Time, error) {
	if flag == "" {
		return time.Now().AddDate(0, 0, -1), nil
	}
	return time.Parse("2006-01-02", flag)
}

func newRunCommand(configFlag *string) *cobra.Command {
	var dateFlag string
	var metricsAddr string
	var skipFeeds bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a full ingestion cycle: references, id listing, enrichment, bulk feeds",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			date, err := parseDate(dateFlag)
			if err != nil {
				return fmt.Errorf("bad --date: %w", err)
			}

			a, err := newApp(*configFlag)
			if err != nil {
				return err
			}
			defer a.close()

			if metricsAddr != "" {
				go serveMetrics(metricsAddr)
			}
			startBus(ctx, a)

			if err := a.service.RefreshReferences(ctx); err != nil {
				return err
			}
			if err := a.service.SyncIDListing(ctx, date); err != nil {
				return err
			}
			if err := a.service.EnrichUnfetched(ctx); err != nil {
				return err
			}

			if !skipFeeds {
				if err := a.importer.ImportRatings(ctx); err != nil {
					return err
				}
				if err := a.importer.ImportTitles(ctx); err != nil {
					return err
				}
			}

			drainCtx, cancelDrain := context.WithTimeout(ctx, a.cfg.Dispatch.CloseTimeout)
			defer cancelDrain()
			return a.bus.Drain(drainCtx)
		},
	}

	cmd.Flags().StringVar(&dateFlag, "date", "", "Id listing date (YYYY-MM-DD, default yesterday)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	cmd.Flags().BoolVar(&skipFeeds, "skip-feeds", false, "Skip the bulk feed imports")
	return cmd
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	logging.Info().Str("addr", addr).Msg("serving metrics")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logging.Err(err).Msg("metrics server stopped")
	}
}

func newImportCommand(configFlag *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a single data source",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(newImportRefsCommand(configFlag))
	cmd.AddCommand(newImportListingCommand(configFlag))
	cmd.AddCommand(newImportRatingsCommand(configFlag))
	cmd.AddCommand(newImportTitlesCommand(configFlag))
	return cmd
}

func newImportRefsCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "refs",
		Short: "Refresh the genre, language and country reference tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			a, err := newApp(*configFlag)
			if err != nil {
				return err
			}
			defer a.close()

			return a.service.RefreshReferences(ctx)
		},
	}
}

func newImportListingCommand(configFlag *string) *cobra.Command {
	var dateFlag string

	cmd := &cobra.Command{
		Use:   "listing",
		Short: "Sync the daily id export into unfetched stubs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			date, err := parseDate(dateFlag)
			if err != nil {
				return fmt.Errorf("bad --date: %w", err)
			}

			a, err := newApp(*configFlag)
			if err != nil {
				return err
			}
			defer a.close()

			return a.service.SyncIDListing(ctx, date)
		},
	}
	cmd.Flags().StringVar(&dateFlag, "date", "", "Id listing date (YYYY-MM-DD, default yesterday)")
	return cmd
}

func newImportRatingsCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "ratings",
		Short: "Import the bulk ratings feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			a, err := newApp(*configFlag)
			if err != nil {
				return err
			}
			defer a.close()

			startBus(ctx, a)
			if err := a.importer.ImportRatings(ctx); err != nil {
				return err
			}

			drainCtx, cancelDrain := context.WithTimeout(ctx, a.cfg.Dispatch.CloseTimeout)
			defer cancelDrain()
			return a.bus.Drain(drainCtx)
		},
	}
}

func newImportTitlesCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "titles",
		Short: "Import the bulk alternate-titles feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			a, err := newApp(*configFlag)
			if err != nil {
				return err
			}
			defer a.close()

			startBus(ctx, a)
			if err := a.importer.ImportTitles(ctx); err != nil {
				return err
			}

			drainCtx, cancelDrain := context.WithTimeout(ctx, a.cfg.Dispatch.CloseTimeout)
			defer cancelDrain()
			return a.bus.Drain(drainCtx)
		},
	}
}

func newFetchCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch [id...]",
		Short: "Fetch and merge specific movie ids (default: all unfetched)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			a, err := newApp(*configFlag)
			if err != nil {
				return err
			}
			defer a.close()

			if len(args) == 0 {
				return a.service.EnrichUnfetched(ctx)
			}

			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := strconv.ParseInt(arg, 10, 64)
				if err != nil {
					return fmt.Errorf("bad movie id %q", arg)
				}
				ids = append(ids, id)
			}
			return a.service.EnrichIDs(ctx, ids)
		},
	}
}

func newRescanCommand(configFlag *string) *cobra.Command {
	var since time.Duration

	cmd := &cobra.Command{
		Use:   "rescan",
		Short: "Re-fetch catalog members changed upstream",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			a, err := newApp(*configFlag)
			if err != nil {
				return err
			}
			defer a.close()

			end := time.Now()
			return a.service.RescanChanged(ctx, end.Add(-since), end)
		},
	}
	cmd.Flags().DurationVar(&since, "since", 24*time.Hour, "Change window to rescan")
	return cmd
}
