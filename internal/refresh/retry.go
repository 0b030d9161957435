package refresh

import (
	"math"
	"time"

	"pmconsole/internal/config"
)

// RetryPolicy defines exponential backoff parameters.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// PolicyFromConfig builds the confirm-loop backoff from the refresh section.
func PolicyFromConfig(cfg config.RefreshConfig) RetryPolicy {
	return RetryPolicy{
		MaxRetries:    cfg.MaxRetries,
		InitialDelay:  time.Duration(cfg.BackoffMillis) * time.Millisecond,
		MaxDelay:      time.Duration(cfg.MaxBackoffMillis) * time.Millisecond,
		BackoffFactor: cfg.BackoffFactor,
	}
}

// NextDelay returns delay for a given retry (1-based) with clamping.
func (r RetryPolicy) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if r.InitialDelay <= 0 {
		r.InitialDelay = time.Second
	}
	if r.BackoffFactor <= 0 {
		r.BackoffFactor = 2
	}

	delay := float64(r.InitialDelay) * math.Pow(r.BackoffFactor, float64(attempt-1))
	d := time.Duration(delay)
	if r.MaxDelay > 0 && (d > r.MaxDelay || delay > float64(math.MaxInt64)) {
		d = r.MaxDelay
	}
	if d <= 0 {
		d = time.Second
	}
	return d
}

// Schedule lists the waits before each retry.
func (r RetryPolicy) Schedule() []time.Duration {
	out := make([]time.Duration, 0, r.MaxRetries)
	for i := 1; i <= r.MaxRetries; i++ {
		out = append(out, r.NextDelay(i))
	}
	return out
}
