package sitesync

import (
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/forgekit/sitesync/synctypes"
)

// WithRegion sets the AWS region for the handler's clients. Ignored when a
// custom AWS config is supplied.
func WithRegion(region string) synctypes.Option {
	return func(c *synctypes.ClientConfig) {
		c.Region = region
	}
}

// WithAWSConfig supplies a pre-built AWS configuration, bypassing the
// default credential and region resolution. Useful for localstack endpoints
// and tests.
func WithAWSConfig(cfg aws.Config) synctypes.Option {
	return func(c *synctypes.ClientConfig) {
		c.CustomAWSConfig = &cfg
	}
}

// WithMaxRetries sets the per-operation attempt budget (including the first
// attempt) for listing, transfers, and reporting.
func WithMaxRetries(retries int) synctypes.Option {
	return func(c *synctypes.ClientConfig) {
		if retries > 0 {
			c.MaxRetries = retries
		}
	}
}

// WithRetryBaseDelay sets the delay before the second attempt; subsequent
// delays double with jitter.
func WithRetryBaseDelay(delay time.Duration) synctypes.Option {
	return func(c *synctypes.ClientConfig) {
		if delay > 0 {
			c.RetryBaseDelay = delay
		}
	}
}

// WithTimeout bounds each HTTP request made by the handler's clients.
func WithTimeout(timeout time.Duration) synctypes.Option {
	return func(c *synctypes.ClientConfig) {
		if timeout > 0 {
			c.Timeout = timeout
		}
	}
}

// WithConcurrency bounds the transfer worker pool.
func WithConcurrency(concurrency int) synctypes.Option {
	return func(c *synctypes.ClientConfig) {
		if concurrency > 0 {
			c.Concurrency = concurrency
		}
	}
}

// WithMaxEntrySize sets the per-entry extraction limit in bytes. A job's own
// MaxEntrySize takes precedence when set.
func WithMaxEntrySize(size int64) synctypes.Option {
	return func(c *synctypes.ClientConfig) {
		if size > 0 {
			c.MaxEntrySize = size
		}
	}
}

// WithLogger sets the structured logger for job progress. Without it the
// handler is silent.
func WithLogger(logger *slog.Logger) synctypes.Option {
	return func(c *synctypes.ClientConfig) {
		c.Logger = logger
	}
}
