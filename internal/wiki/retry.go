package wiki

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// DefaultRetryInterval is the first wait between retried lookups.
const DefaultRetryInterval = 250 * time.Millisecond

// Retry runs fn until it succeeds, fails with anything other than a network
// error, or has been retried retries times. Callers choose the policy; the
// Client itself never retries.
func Retry(ctx context.Context, retries uint64, interval time.Duration, fn func() error) error {
	if retries == 0 {
		return fn()
	}
	if interval <= 0 {
		interval = DefaultRetryInterval
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = interval
	b.MaxElapsedTime = 0

	return backoff.Retry(func() error {
		err := fn()
		if err != nil && !IsNetwork(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(b, retries), ctx))
}
