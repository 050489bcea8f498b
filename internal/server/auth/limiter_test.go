package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginLimiter_BurstThenRefill(t *testing.T) {
	l := NewLoginLimiter(3, 30*time.Second)
	require.NotNil(t, l)

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow(5551234567, now), "attempt %d", i+1)
	}
	assert.False(t, l.Allow(5551234567, now), "fourth attempt throttled")
	assert.True(t, l.Allow(5557654321, now), "other identifiers unaffected")

	assert.False(t, l.Allow(5551234567, now.Add(10*time.Second)))
	assert.True(t, l.Allow(5551234567, now.Add(31*time.Second)), "token refilled")
}

func TestLoginLimiter_Reset(t *testing.T) {
	l := NewLoginLimiter(1, time.Hour)
	now := time.Now()

	assert.True(t, l.Allow(5551234567, now))
	assert.False(t, l.Allow(5551234567, now))

	l.Reset(5551234567)
	assert.True(t, l.Allow(5551234567, now))
}

func TestLoginLimiter_EvictsIdle(t *testing.T) {
	l := NewLoginLimiter(1, time.Second)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := int64(0); i < 511; i++ {
		l.Allow(5550000000+i, start)
	}
	require.Equal(t, 511, l.size())

	l.Allow(5559999999, start.Add(time.Hour))
	assert.Equal(t, 1, l.size())
}

func TestLoginLimiter_NilAllowsEverything(t *testing.T) {
	var l *LoginLimiter
	assert.Nil(t, NewLoginLimiter(0, time.Second))
	assert.Nil(t, NewLoginLimiter(3, 0))

	assert.True(t, l.Allow(5551234567, time.Now()))
	assert.NotPanics(t, func() { l.Reset(5551234567) })
}
