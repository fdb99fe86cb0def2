package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/pathconvert/pathconvert/internal/metrics"
	"github.com/pathconvert/pathconvert/internal/models"
)

// Circuit breaker configuration.
const (
	cbFailureThreshold = 5
	cbCooldown         = 30 * time.Second
)

// ErrCircuitOpen is returned when the circuit breaker is open and requests
// are being rejected without calling the embedding service.
var ErrCircuitOpen = errors.New("embedding circuit breaker is open")

// ResilientConfig tunes ResilientEmbedder.
type ResilientConfig struct {
	RatePerSec float64
	Burst      int
	MaxRetries uint64
	BaseDelay  time.Duration
	Dimensions int
}

// ResilientEmbedder paces calls with a token bucket, retries throttling and
// transient failures with exponential backoff, and fails fast through a
// circuit breaker once the provider keeps failing.
type ResilientEmbedder struct {
	inner   Embedder
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[[]float32]
	log     *logrus.Logger

	maxRetries uint64
	baseDelay  time.Duration
	dims       int
}

// NewResilientEmbedder wraps inner.
func NewResilientEmbedder(inner Embedder, cfg ResilientConfig, log *logrus.Logger) *ResilientEmbedder {
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 500 * time.Millisecond
	}

	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}

	breaker := gobreaker.NewCircuitBreaker[[]float32](gobreaker.Settings{
		Name:        "embedder",
		MaxRequests: 1,
		Timeout:     cbCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cbFailureThreshold
		},
		IsSuccessful: func(err error) bool {
			// Input the provider rejects says nothing about its health.
			return err == nil || isPermanent(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.EmbedderBreakerState.Set(float64(to))
			log.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("embedder circuit breaker state changed")
		},
	})

	return &ResilientEmbedder{
		inner:      inner,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.Burst),
		breaker:    breaker,
		log:        log,
		maxRetries: cfg.MaxRetries,
		baseDelay:  cfg.BaseDelay,
		dims:       cfg.Dimensions,
	}
}

// Model returns the wrapped embedder's model name.
func (e *ResilientEmbedder) Model() string { return e.inner.Model() }

// Generate produces a vector embedding for the given text.
func (e *ResilientEmbedder) Generate(ctx context.Context, text string) ([]float32, error) {
	vec, err := e.breaker.Execute(func() ([]float32, error) {
		return e.generateWithRetry(ctx, text)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, ErrCircuitOpen
	}

	if err != nil {
		return nil, err
	}

	if e.dims > 0 && len(vec) != e.dims {
		return nil, fmt.Errorf("%w: model returned %d dimensions, want %d", models.ErrDimensionMismatch, len(vec), e.dims)
	}

	return vec, nil
}

func (e *ResilientEmbedder) generateWithRetry(ctx context.Context, text string) ([]float32, error) {
	backoff := retry.WithMaxRetries(e.maxRetries,
		retry.WithJitterPercent(20,
			retry.WithCappedDuration(30*time.Second, retry.NewExponential(e.baseDelay))))

	var vec []float32

	attempt := 0

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++

		if err := e.limiter.Wait(ctx); err != nil {
			return err
		}

		v, err := e.inner.Generate(ctx, text)
		if err == nil {
			vec = v
			return nil
		}

		if isPermanent(err) || ctx.Err() != nil {
			return err
		}

		e.log.WithError(err).WithField("attempt", attempt).Debug("embedding call failed, retrying")

		return retry.RetryableError(err)
	})

	return vec, err
}

// isPermanent reports whether retrying err cannot help.
func isPermanent(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode != http.StatusTooManyRequests && se.StatusCode < 500
	}

	return false
}
