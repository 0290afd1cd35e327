package scheduler

import (
	"context"
	"time"

	"storefront/notifications"
	"storefront/ratelim"
)

const (
	purgeSpec   = "0 3 * * *"
	cleanupSpec = "@every 10m"
)

// PurgeNotificationsJob deletes read notifications older than retention,
// nightly.
func PurgeNotificationsJob(retention time.Duration) Job {
	return Job{
		Name: "purge-read-notifications",
		Spec: purgeSpec,
		Run: func(ctx context.Context) error {
			_, err := notifications.PurgeRead(ctx, retention)
			return err
		},
	}
}

// LimiterCleanupJob evicts idle rate limiter buckets.
func LimiterCleanupJob(rl *ratelim.RateLimiter) Job {
	return Job{
		Name: "ratelimiter-cleanup",
		Spec: cleanupSpec,
		Run: func(context.Context) error {
			rl.Cleanup()
			return nil
		},
	}
}
