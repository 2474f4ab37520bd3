// Filmoteket - Movie Catalog Ingestion and Reconciliation
// Copyright 2026 Filmoteket contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/filmoteket/filmoteket

package tmdb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/filmoteket/filmoteket/internal/logging"
	"github.com/filmoteket/filmoteket/internal/metrics"
)

// appendToResponse lists the sub-resources fetched together with the movie
// detail in a single request.
const appendToResponse = "alternative_titles,credits,external_ids,images,recommendations,watch/providers"

// Config holds the HTTP gateway settings.
type Config struct {
	BaseURL string
	APIKey  string

	// ExportBaseURL hosts the daily id export dumps; it is a plain file
	// server, not the API.
	ExportBaseURL string

	// Timeout bounds each individual request; it never stretches with load.
	Timeout time.Duration

	// RequestsPerSecond paces outgoing requests across all workers.
	RequestsPerSecond float64

	// MaxAttempts caps transient retries per fetch. Rate-limit waits do not
	// count against it.
	MaxAttempts int

	// TimeoutDelay and ConnectDelay seed the backoff for the two transient
	// failure classes.
	TimeoutDelay time.Duration
	ConnectDelay time.Duration

	// RetryAfterMargin is added on top of the provider's Retry-After value.
	RetryAfterMargin time.Duration
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.themoviedb.org/3"
	}
	if c.ExportBaseURL == "" {
		c.ExportBaseURL = "https://files.tmdb.org/p/exports"
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = 40
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 8
	}
	if c.TimeoutDelay <= 0 {
		c.TimeoutDelay = 10 * time.Second
	}
	if c.ConnectDelay <= 0 {
		c.ConnectDelay = 30 * time.Second
	}
	if c.RetryAfterMargin <= 0 {
		c.RetryAfterMargin = time.Second
	}
	return c
}

// Client fetches provider resources over HTTP. A single Client is shared by
// all pool workers; the limiter and breaker coordinate them.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[*http.Response]
	logger  zerolog.Logger

	// sleep is swapped out in tests so retry waits don't run in real time.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient builds a Client from cfg, filling zero values with defaults.
func NewClient(cfg Config) *Client {
	cfg = cfg.withDefaults()

	breaker := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:     "tmdb",
		Interval: time.Minute,
		Timeout:  30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 10
		},
	})

	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		breaker: breaker,
		logger:  logging.With().Str("component", "tmdb").Logger(),
		sleep:   sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// failureClass categorizes a failed attempt for the retry ladder.
type failureClass int

const (
	classFatal failureClass = iota
	classTimeout
	classConnect
	classRateLimited
)

// FetchMovie fetches one movie with all appended sub-resources, validating
// the payload before returning it.
//
// Transient failures (timeouts, connection errors) are retried with
// exponential backoff and jitter up to MaxAttempts. A 429 waits out the
// provider's Retry-After without consuming an attempt. A 404 returns
// ErrMovieGone, a 401 ErrUnauthorized; any other status is fatal.
func (c *Client) FetchMovie(ctx context.Context, id int64) (*MoviePayload, error) {
	endpoint := fmt.Sprintf("%s/movie/%d", c.cfg.BaseURL, id)
	query := url.Values{"append_to_response": {appendToResponse}}

	// Each transient class backs off on its own schedule: timeouts start
	// shorter than connection failures.
	timeoutBackoff := newBackoff(c.cfg.TimeoutDelay)
	connectBackoff := newBackoff(c.cfg.ConnectDelay)

	attempts := 0
	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		payload, class, err := c.fetchOnce(ctx, id, endpoint, query)
		if err == nil {
			return payload, nil
		}

		switch class {
		case classFatal:
			return nil, err

		case classRateLimited:
			// Does not count as an attempt; the provider told us when to
			// come back.
			var wait time.Duration
			var rle *rateLimitedError
			if errors.As(err, &rle) {
				wait = rle.retryAfter
			}
			wait += c.cfg.RetryAfterMargin
			c.logger.Warn().Int64("movie_id", id).Dur("wait", wait).Msg("rate limited, backing off")
			metrics.FetchRateLimited()
			if err := c.sleep(ctx, wait); err != nil {
				return nil, err
			}
			continue

		case classTimeout, classConnect:
			attempts++
			if attempts >= c.cfg.MaxAttempts {
				metrics.FetchFailed("exhausted")
				return nil, &RetryExhaustedError{MovieID: id, Attempts: attempts, Last: err}
			}

			wait := timeoutBackoff.NextBackOff()
			if class == classConnect {
				wait = connectBackoff.NextBackOff()
			}
			c.logger.Warn().
				Int64("movie_id", id).
				Int("attempt", attempts).
				Dur("wait", wait).
				Err(err).
				Msg("transient fetch failure, retrying")
			if err := c.sleep(ctx, wait); err != nil {
				return nil, err
			}
		}
	}
}

// maxBackoff caps the per-class wait so a long outage doesn't stretch waits
// unboundedly.
const maxBackoff = 5 * time.Minute

// newBackoff builds the wait schedule for one transient failure class:
// exponential growth from the class's base delay, jittered so pool workers
// don't retry in lockstep. The attempt ceiling bounds the retries, not
// elapsed time.
func newBackoff(base time.Duration) *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = base
	bo.RandomizationFactor = 0.5
	bo.Multiplier = 2
	bo.MaxInterval = maxBackoff
	bo.MaxElapsedTime = 0
	bo.Reset()
	return bo
}

type rateLimitedError struct {
	retryAfter time.Duration
}

func (e *rateLimitedError) Error() string {
	return fmt.Sprintf("tmdb: rate limited, retry after %s", e.retryAfter)
}

// fetchOnce sends one request and classifies the outcome.
func (c *Client) fetchOnce(ctx context.Context, id int64, endpoint string, query url.Values) (*MoviePayload, failureClass, error) {
	resp, err := c.do(ctx, endpoint, query)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, classConnect, err
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			metrics.FetchFailed("timeout")
			return nil, classTimeout, err
		}
		if ctx.Err() != nil {
			return nil, classFatal, ctx.Err()
		}
		metrics.FetchFailed("connect")
		return nil, classConnect, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var payload MoviePayload
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			metrics.FetchFailed("decode")
			return nil, classFatal, &PayloadValidationError{MovieID: id, Reason: err.Error()}
		}
		if err := payload.Validate(); err != nil {
			metrics.FetchFailed("invalid")
			return nil, classFatal, err
		}
		metrics.FetchSucceeded()
		return &payload, 0, nil

	case http.StatusNotFound:
		return nil, classFatal, ErrMovieGone

	case http.StatusUnauthorized:
		return nil, classFatal, ErrUnauthorized

	case http.StatusTooManyRequests:
		retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
		io.Copy(io.Discard, resp.Body)
		return nil, classRateLimited, &rateLimitedError{retryAfter: retryAfter}

	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		metrics.FetchFailed("status")
		return nil, classFatal, &UnexpectedStatusError{MovieID: id, Status: resp.StatusCode, Body: string(body)}
	}
}

// do issues one GET through the circuit breaker, with the API key attached.
func (c *Client) do(ctx context.Context, endpoint string, query url.Values) (*http.Response, error) {
	return c.breaker.Execute(func() (*http.Response, error) {
		q := url.Values{}
		for k, vs := range query {
			q[k] = vs
		}
		q.Set("api_key", c.cfg.APIKey)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")

		return c.http.Do(req)
	})
}

func parseRetryAfter(header string) time.Duration {
	secs, err := strconv.Atoi(header)
	if err != nil || secs < 0 {
		return time.Second
	}
	return time.Duration(secs) * time.Second
}
