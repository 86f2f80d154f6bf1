package drgreen

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func fastPolicy(maxRetries int) RetryPolicy {
	return RetryPolicy{
		MaxRetries:     maxRetries,
		InitialDelay:   time.Millisecond,
		Multiplier:     2,
		MaxDelay:       5 * time.Millisecond,
		JitterFraction: 0.3,
		random:         func() float64 { return 0 },
	}
}

func TestRetryableStatusesUseEveryRetry(t *testing.T) {
	for _, status := range []int{408, 429, 500, 502, 503, 504} {
		t.Run(fmt.Sprint(status), func(t *testing.T) {
			policy := fastPolicy(3)
			calls := 0
			err := policy.Do(context.Background(), func(context.Context) error {
				calls++
				return &UpstreamError{Status: status}
			}, nil)

			require.Error(t, err)
			require.Equal(t, 1+policy.MaxRetries, calls)
			upstream, ok := AsUpstreamError(err)
			require.True(t, ok)
			require.Equal(t, status, upstream.Status)
		})
	}
}

func TestNonRetryableStatusesAreNotRetried(t *testing.T) {
	for _, status := range []int{400, 401, 403, 404, 409, 422, 501} {
		t.Run(fmt.Sprint(status), func(t *testing.T) {
			calls := 0
			err := fastPolicy(3).Do(context.Background(), func(context.Context) error {
				calls++
				return &UpstreamError{Status: status}
			}, nil)

			require.Error(t, err)
			require.Equal(t, 1, calls)
		})
	}
}

func TestRetryStopsOnSuccess(t *testing.T) {
	calls := 0
	var hooked []int
	err := fastPolicy(3).Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return &UpstreamError{Status: http.StatusServiceUnavailable}
		}
		return nil
	}, func(attempt int, _ time.Duration, err error) {
		require.Error(t, err)
		hooked = append(hooked, attempt)
	})

	require.NoError(t, err)
	require.Equal(t, 3, calls)
	require.Equal(t, []int{0, 1}, hooked)
}

func TestZeroRetriesMeansSingleAttempt(t *testing.T) {
	calls := 0
	err := fastPolicy(0).Do(context.Background(), func(context.Context) error {
		calls++
		return &UpstreamError{Status: http.StatusBadGateway}
	}, nil)
	require.Error(t, err)
	require.Equal(t, 1, calls)
}

func TestCancellationIsTerminal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := fastPolicy(5).Do(ctx, func(context.Context) error {
		calls++
		cancel()
		return &UpstreamError{Status: http.StatusServiceUnavailable}
	}, nil)

	require.Error(t, err)
	require.Equal(t, 1, calls)
}

func TestDelayBounds(t *testing.T) {
	policy := DefaultRetryPolicy()
	for _, sample := range []float64{0, 0.5, 0.999999} {
		policy.random = func() float64 { return sample }
		for attempt := 0; attempt < 8; attempt++ {
			delay := policy.Delay(attempt)
			require.LessOrEqual(t, delay, policy.MaxDelay)

			uncapped := time.Duration(float64(policy.InitialDelay) * pow(policy.Multiplier, attempt))
			if uncapped <= policy.MaxDelay {
				require.GreaterOrEqual(t, delay, uncapped, "attempt %d", attempt)
				maxJitter := time.Duration(float64(uncapped) * policy.JitterFraction)
				require.Less(t, delay-uncapped, maxJitter+1, "attempt %d", attempt)
			} else {
				require.Equal(t, policy.MaxDelay, delay)
			}
		}
	}
}

func TestDelayGrowsExponentially(t *testing.T) {
	policy := DefaultRetryPolicy()
	policy.random = func() float64 { return 0 }

	require.Equal(t, 500*time.Millisecond, policy.Delay(0))
	require.Equal(t, time.Second, policy.Delay(1))
	require.Equal(t, 2*time.Second, policy.Delay(2))
	require.Equal(t, 8*time.Second, policy.Delay(4))
	require.Equal(t, 10*time.Second, policy.Delay(5))
}

func pow(base float64, exp int) float64 {
	out := 1.0
	for i := 0; i < exp; i++ {
		out *= base
	}
	return out
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o deadline" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestIsRetryableError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"conn reset", fmt.Errorf("read: %w", syscall.ECONNRESET), true},
		{"conn refused", fmt.Errorf("dial: %w", syscall.ECONNREFUSED), true},
		{"unexpected eof", io.ErrUnexpectedEOF, true},
		{"net timeout", timeoutErr{}, true},
		{"message pattern", errors.New("write: broken pipe"), true},
		{"503", &UpstreamError{Status: 503}, true},
		{"404", &UpstreamError{Status: 404}, false},
		{"validation", errors.New("quantity must be positive"), false},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, IsRetryableError(tc.err), tc.name)
	}
}
