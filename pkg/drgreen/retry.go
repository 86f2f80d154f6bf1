package drgreen

import (
	"context"
	"errors"
	"io"
	"math"
	"math/rand/v2"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"github.com/angelmondragon/greengate/pkg/config"
	"github.com/sethvargo/go-retry"
)

// RetryPolicy is exponential backoff with additive jitter and a hard cap.
// Total attempts are 1 + MaxRetries.
type RetryPolicy struct {
	MaxRetries     int
	InitialDelay   time.Duration
	Multiplier     float64
	MaxDelay       time.Duration
	JitterFraction float64

	// random returns a value in [0, 1); nil uses math/rand/v2.
	random func() float64
}

// RetryHook observes each retry before the policy sleeps. attempt is the
// zero-based index of the attempt that just failed.
type RetryHook func(attempt int, delay time.Duration, err error)

var retryableStatuses = map[int]struct{}{
	http.StatusRequestTimeout:      {},
	http.StatusTooManyRequests:     {},
	http.StatusInternalServerError: {},
	http.StatusBadGateway:          {},
	http.StatusServiceUnavailable:  {},
	http.StatusGatewayTimeout:      {},
}

var transientPatterns = []string{
	"connection reset",
	"connection refused",
	"broken pipe",
	"timeout",
	"timed out",
	"unexpected eof",
	"no such host",
	"tls handshake",
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:     3,
		InitialDelay:   500 * time.Millisecond,
		Multiplier:     2,
		MaxDelay:       10 * time.Second,
		JitterFraction: 0.3,
	}
}

// RetryPolicyFromConfig applies configured values over the defaults.
func RetryPolicyFromConfig(cfg config.DrGreenConfig) RetryPolicy {
	p := DefaultRetryPolicy()
	p.MaxRetries = cfg.MaxRetries
	if cfg.InitialDelay > 0 {
		p.InitialDelay = cfg.InitialDelay
	}
	if cfg.Multiplier >= 1 {
		p.Multiplier = cfg.Multiplier
	}
	if cfg.MaxDelay > 0 {
		p.MaxDelay = cfg.MaxDelay
	}
	if cfg.JitterFraction >= 0 {
		p.JitterFraction = cfg.JitterFraction
	}
	return p
}

// BaseDelay is InitialDelay * Multiplier^attempt without jitter.
func (p RetryPolicy) BaseDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := float64(p.InitialDelay) * math.Pow(p.Multiplier, float64(attempt))
	if p.MaxDelay > 0 && base > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(base)
}

// Delay returns min(base + jitter, MaxDelay) with jitter in [0, base*JitterFraction).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	base := p.BaseDelay(attempt)
	jitter := time.Duration(float64(base) * p.JitterFraction * p.jitterSample())
	delay := base + jitter
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

func (p RetryPolicy) jitterSample() float64 {
	if p.random != nil {
		return p.random()
	}
	return rand.Float64()
}

// Do runs op until it succeeds, fails terminally, or retries are exhausted.
// The final error is returned unwrapped.
func (p RetryPolicy) Do(ctx context.Context, op func(ctx context.Context) error, hook RetryHook) error {
	attempt := 0
	var lastErr error

	backoff := retry.BackoffFunc(func() (time.Duration, bool) {
		if attempt >= p.MaxRetries {
			return 0, true
		}
		delay := p.Delay(attempt)
		if hook != nil {
			hook(attempt, delay, lastErr)
		}
		attempt++
		return delay, false
	})

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if ctx.Err() != nil || !IsRetryableError(err) {
			return err
		}
		return retry.RetryableError(err)
	})
}

// IsRetryableStatus reports whether an upstream HTTP status is transient.
func IsRetryableStatus(status int) bool {
	_, ok := retryableStatuses[status]
	return ok
}

// IsRetryableError classifies transport failures and upstream statuses.
// Cancellation is always terminal.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return IsRetryableStatus(upstream.Status)
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.EPIPE) {
		return true
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range transientPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
