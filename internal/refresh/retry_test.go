package refresh

import (
	"testing"
	"time"

	"pmconsole/internal/config"

	"github.com/stretchr/testify/assert"
)

func TestRetryPolicyNextDelay(t *testing.T) {
	p := RetryPolicy{MaxRetries: 4, InitialDelay: 2 * time.Second, MaxDelay: 10 * time.Second, BackoffFactor: 2}

	assert.Equal(t, 2*time.Second, p.NextDelay(0))
	assert.Equal(t, 2*time.Second, p.NextDelay(1))
	assert.Equal(t, 4*time.Second, p.NextDelay(2))
	assert.Equal(t, 8*time.Second, p.NextDelay(3))
	assert.Equal(t, 10*time.Second, p.NextDelay(4))
	assert.Equal(t, 10*time.Second, p.NextDelay(200))
}

func TestRetryPolicyDefaults(t *testing.T) {
	var p RetryPolicy
	assert.Equal(t, time.Second, p.NextDelay(1))
	assert.Equal(t, 2*time.Second, p.NextDelay(2))
}

func TestPolicyFromConfig(t *testing.T) {
	p := PolicyFromConfig(config.RefreshConfig{
		BackoffMillis:    500,
		MaxBackoffMillis: 1500,
		BackoffFactor:    3,
		MaxRetries:       3,
	})
	assert.Equal(t, []time.Duration{500 * time.Millisecond, 1500 * time.Millisecond, 1500 * time.Millisecond}, p.Schedule())
}
