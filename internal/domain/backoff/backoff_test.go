package backoff

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pushretry/internal/domain/entity"
)

func testConfig(jitter entity.JitterType) entity.RetryConfig {
	cfg := entity.DefaultRetryConfig()
	cfg.InitialDelay = 1 * time.Second
	cfg.MaxDelay = 60 * time.Second
	cfg.BackoffFactor = 2.0
	cfg.JitterType = jitter
	return cfg
}

func TestDelay_NoJitterExactFormula(t *testing.T) {
	cfg := testConfig(entity.JitterNone)

	tests := []struct {
		name    string
		attempt uint
		want    time.Duration
	}{
		{"first attempt", 1, 1 * time.Second},
		{"second attempt", 2, 2 * time.Second},
		{"third attempt", 3, 4 * time.Second},
		{"sixth attempt", 6, 32 * time.Second},
		{"capped at max delay", 7, 60 * time.Second},
		{"far past the cap", 30, 60 * time.Second},
		{"attempt zero treated as one", 0, 1 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Delay(cfg, tt.attempt, 0))
		})
	}
}

func TestDelay_AllJitterTypesWithinBounds(t *testing.T) {
	jitters := []entity.JitterType{
		entity.JitterNone,
		entity.JitterFull,
		entity.JitterEqual,
		entity.JitterDecorrelated,
	}

	for _, jt := range jitters {
		cfg := testConfig(jt)
		var prev time.Duration
		for attempt := uint(1); attempt <= 20; attempt++ {
			for i := 0; i < 50; i++ {
				d := Delay(cfg, attempt, prev)
				require.GreaterOrEqual(t, d, time.Duration(0),
					"jitter %s attempt %d produced negative delay", jt, attempt)
				require.LessOrEqual(t, d, cfg.MaxDelay,
					"jitter %s attempt %d exceeded max delay", jt, attempt)
				prev = d
			}
		}
	}
}

func TestDelay_EqualJitterLowerBound(t *testing.T) {
	cfg := testConfig(entity.JitterEqual)

	// Equal jitter keeps at least half of the base delay.
	for i := 0; i < 200; i++ {
		d := Delay(cfg, 3, 0)
		assert.GreaterOrEqual(t, d, 2*time.Second)
		assert.LessOrEqual(t, d, 4*time.Second)
	}
}

func TestDelay_FullJitterRoughlyUniform(t *testing.T) {
	cfg := testConfig(entity.JitterFull)

	// Base delay for attempt 4 is 8s. The sample mean of a uniform
	// distribution over [0, 8s] should land near 4s.
	const samples = 5000
	base := 8 * time.Second

	var sum time.Duration
	buckets := make([]int, 4)
	for i := 0; i < samples; i++ {
		d := Delay(cfg, 4, 0)
		require.LessOrEqual(t, d, base)
		sum += d
		idx := int(d * 4 / (base + 1))
		buckets[idx]++
	}

	mean := sum / samples
	assert.InDelta(t, float64(base/2), float64(mean), float64(base)*0.05,
		"sample mean should be near base/2")

	// Every quartile of [0, base] should receive a reasonable share.
	for i, n := range buckets {
		assert.Greater(t, n, samples/8, "quartile %d underpopulated", i)
	}
}

func TestDelay_DecorrelatedUsesPreviousDelay(t *testing.T) {
	cfg := testConfig(entity.JitterDecorrelated)

	// With a previous delay recorded, the result is drawn from
	// [initialDelay, 3*prev] before the max-delay clamp.
	prev := 5 * time.Second
	for i := 0; i < 200; i++ {
		d := Delay(cfg, 3, prev)
		assert.GreaterOrEqual(t, d, cfg.InitialDelay)
		assert.LessOrEqual(t, d, 15*time.Second)
	}

	// Without history the base delay seeds the range.
	for i := 0; i < 200; i++ {
		d := Delay(cfg, 1, 0)
		assert.GreaterOrEqual(t, d, cfg.InitialDelay)
		assert.LessOrEqual(t, d, 3*time.Second)
	}
}

func TestDelay_DecorrelatedClampedToMax(t *testing.T) {
	cfg := testConfig(entity.JitterDecorrelated)

	// 3 * prev would exceed the cap; every draw must still respect it.
	prev := 50 * time.Second
	for i := 0; i < 200; i++ {
		d := Delay(cfg, 8, prev)
		assert.LessOrEqual(t, d, cfg.MaxDelay)
	}
}
