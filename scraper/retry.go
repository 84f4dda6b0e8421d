package scraper

import (
	"time"

	"github.com/paurush33/alberta-procurement-scraper/config"
)

// RetryPolicy describes how pagination attempts are bounded, spaced and
// confirmed. It is injected into the Controller so retry semantics stay
// testable without a browser.
type RetryPolicy struct {
	// MaxAttempts is the retry ceiling per target page.
	MaxAttempts int
	// Backoff returns the deterministic part of the post-failure sleep for
	// an attempt. It must be strictly increasing in the attempt number.
	Backoff func(attempt int) time.Duration
	// Jitter returns the random extra added to every backoff sleep.
	Jitter func() time.Duration
	// WaitTimeout returns the change-confirmation window for an attempt;
	// later attempts get more room to absorb slow renders.
	WaitTimeout func(attempt int) time.Duration
}

// PolicyFromConfig builds the production retry policy: backoff grows by
// BackoffStep per attempt on top of the rate-limit base, jitter is uniform
// in [JitterMin, JitterMax), and the confirmation window widens by 5s per
// attempt.
func PolicyFromConfig(cfg config.Config) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: cfg.MaxRetries,
		Backoff: func(attempt int) time.Duration {
			return cfg.BaseRateLimit + time.Duration(attempt)*cfg.BackoffStep
		},
		Jitter: func() time.Duration {
			return config.Jitter(cfg.JitterMin, cfg.JitterMax)
		},
		WaitTimeout: func(attempt int) time.Duration {
			return cfg.WaitTimeout + time.Duration(attempt)*5*time.Second
		},
	}
}
