package llmclient

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoff_DelayGrowsExponentiallyWithinBounds(t *testing.T) {
	bo := newBackoff(1*time.Second, 10*time.Second)

	d1 := bo.delay(1)
	d2 := bo.delay(2)
	d3 := bo.delay(2)

	assert.GreaterOrEqual(t, d1, time.Duration(500*time.Millisecond))
	assert.LessOrEqual(t, d1, 1*time.Second)

	assert.GreaterOrEqual(t, d2, 1*time.Second)
	assert.LessOrEqual(t, d2, 2*time.Second)
	assert.NotEqual(t, d2, d3, "jitter should vary successive calls at the same attempt")
}

func TestBackoff_ClampsToMax(t *testing.T) {
	bo := newBackoff(1*time.Second, 3*time.Second)
	d := bo.delay(10) // 2^9 seconds uncapped, must clamp to max
	assert.LessOrEqual(t, d, 3*time.Second)
}

func TestBackoff_ZeroOrNegativeDefaults(t *testing.T) {
	bo := newBackoff(0, 0)
	assert.Equal(t, 2*time.Second, bo.base)
	assert.Equal(t, 30*time.Second, bo.max)
}

func TestSleepWithContext_ReturnsEarlyOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := sleepWithContext(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSleepWithContext_ZeroDurationNoops(t *testing.T) {
	err := sleepWithContext(context.Background(), 0)
	assert.NoError(t, err)
}
