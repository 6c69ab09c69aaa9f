package sheets

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/atlasschools/finboard-go/pkg/config"
)

// Retry runs fn with exponential backoff, retrying only transient failures.
// Not-found and other permanent errors abort immediately.
func Retry(ctx context.Context, fn func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 250 * time.Millisecond
	policy.MaxInterval = 5 * time.Second

	wrapped := backoff.WithContext(
		backoff.WithMaxRetries(policy, uint64(config.SheetsRetryMax)), ctx)

	return backoff.Retry(func() error {
		err := fn()
		if err == nil {
			return nil
		}
		if !IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}, wrapped)
}
