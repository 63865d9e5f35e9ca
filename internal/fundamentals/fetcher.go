package fundamentals

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/sudhan/stockpicks/internal/contracts"
	"github.com/sudhan/stockpicks/pkg/logger"
)

// ErrThrottled signals the data source is rate limiting us
var ErrThrottled = errors.New("market data source throttled")

// Source fetches fundamentals for one ticker
type Source interface {
	Fetch(ctx context.Context, ticker string) (contracts.Fundamentals, error)
}

// errorClass drives the retry policy for primary source failures
type errorClass int

const (
	classOther errorClass = iota
	classThrottled
	classTransient
)

// Fetcher resolves fundamentals for a ticker: primary source with a retry
// budget, then the secondary source when configured, then deterministic
// synthetic data. The chain never stalls the pipeline on one unreachable
// ticker; provenance records which level answered.
// ⭐ SSOT: 종목 펀더멘털 조회는 여기서만
type Fetcher struct {
	primary   Source
	secondary Source // nil when no credential is configured
	limiter   *rate.Limiter
	logger    *logger.Logger

	maxRetries int
	baseDelay  time.Duration
}

// NewFetcher creates a fetcher. secondary may be nil.
func NewFetcher(primary, secondary Source, rps int, log *logger.Logger) *Fetcher {
	if rps <= 0 {
		rps = 10
	}
	return &Fetcher{
		primary:    primary,
		secondary:  secondary,
		limiter:    rate.NewLimiter(rate.Limit(rps), rps),
		logger:     log.WithField("module", "fundamentals"),
		maxRetries: 3,
		baseDelay:  500 * time.Millisecond,
	}
}

// Fetch returns fundamentals for the ticker. It always succeeds: if every
// real source fails the result is synthetic, tagged as such.
func (f *Fetcher) Fetch(ctx context.Context, ticker string) contracts.Fundamentals {
	if fund, err := f.fetchPrimary(ctx, ticker); err == nil {
		return fund
	}

	if f.secondary != nil {
		fund, err := f.secondary.Fetch(ctx, ticker)
		if err == nil {
			f.logger.WithField("ticker", ticker).Debug("Fundamentals from secondary source")
			return fund
		}
		f.logger.WithError(err).WithField("ticker", ticker).Warn("Secondary source failed, using synthetic data")
	} else {
		f.logger.WithField("ticker", ticker).Warn("No secondary source configured, using synthetic data")
	}

	return Synthetic(ticker)
}

// fetchPrimary tries the primary source up to the retry budget.
// Throttling and transient network failures escalate the backoff per
// attempt; other failures retry without escalation.
func (f *Fetcher) fetchPrimary(ctx context.Context, ticker string) (contracts.Fundamentals, error) {
	var lastErr error

	for attempt := 0; attempt < f.maxRetries; attempt++ {
		if attempt > 0 {
			if err := f.waitBeforeRetry(ctx, classify(lastErr), attempt); err != nil {
				return contracts.Fundamentals{}, err
			}
		}

		if err := f.limiter.Wait(ctx); err != nil {
			return contracts.Fundamentals{}, err
		}

		fund, err := f.primary.Fetch(ctx, ticker)
		if err == nil {
			if !valid(fund, 5) {
				lastErr = errors.New("primary payload failed validation")
				continue
			}
			return fund, nil
		}

		lastErr = err
		f.logger.WithFields(map[string]interface{}{
			"ticker":  ticker,
			"attempt": attempt + 1,
			"error":   err.Error(),
		}).Warn("Primary fetch failed")
	}

	return contracts.Fundamentals{}, lastErr
}

// waitBeforeRetry sleeps according to the failure class
func (f *Fetcher) waitBeforeRetry(ctx context.Context, class errorClass, attempt int) error {
	var delay time.Duration
	switch class {
	case classThrottled, classTransient:
		// Exponential backoff with jitter: base * 2^attempt + [0, base)
		delay = f.baseDelay * (1 << uint(attempt))
		if f.baseDelay > 0 {
			delay += time.Duration(rand.Int63n(int64(f.baseDelay)))
		}
	default:
		delay = f.baseDelay
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

// valid checks the minimum field count and the P/E eligibility gate
func valid(f contracts.Fundamentals, minFields int) bool {
	return f.ValidCount() >= minFields && f.Eligible()
}

// classify buckets an error for retry policy purposes
func classify(err error) errorClass {
	if err == nil {
		return classOther
	}
	if errors.Is(err, ErrThrottled) {
		return classThrottled
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return classTransient
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "rate limit") || strings.Contains(msg, "too many requests") {
		return classThrottled
	}
	if strings.Contains(msg, "timeout") || strings.Contains(msg, "connection") || strings.Contains(msg, "network") {
		return classTransient
	}

	return classOther
}
