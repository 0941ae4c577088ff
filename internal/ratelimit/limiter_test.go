package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowExactlyLimitWithinWindow(t *testing.T) {
	now := time.Now()
	l := New(WithClock(func() time.Time { return now }))

	for i := 1; i <= 10; i++ {
		assert.True(t, l.Allow("addToCart", 10, time.Minute), "call %d should be allowed", i)
	}
	assert.False(t, l.Allow("addToCart", 10, time.Minute), "11th call must be rejected")
}

func TestWindowResetsAfterElapse(t *testing.T) {
	now := time.Now()
	l := New(WithClock(func() time.Time { return now }))

	for i := 0; i < 11; i++ {
		l.Allow("addToCart", 10, time.Minute)
	}
	require.False(t, l.Allow("addToCart", 10, time.Minute))

	now = now.Add(time.Minute)
	assert.True(t, l.Allow("addToCart", 10, time.Minute), "fresh window admits again")
	assert.Equal(t, 1, l.Count("addToCart"))
}

func TestAbuseDoesNotResetWindowEarly(t *testing.T) {
	now := time.Now()
	l := New(WithClock(func() time.Time { return now }))

	for i := 0; i < 10; i++ {
		l.Allow("addToCart", 10, time.Minute)
	}

	// Keep hammering past the limit for most of the window.
	for i := 0; i < 50; i++ {
		now = now.Add(time.Second)
		require.False(t, l.Allow("addToCart", 10, time.Minute))
	}
	assert.Equal(t, 60, l.Count("addToCart"), "counter keeps incrementing past the limit")

	// 50s in, the original window still stands.
	assert.False(t, l.Allow("addToCart", 10, time.Minute))

	// Only once the window started at t=0 elapses does it reset.
	now = now.Add(10 * time.Second)
	assert.True(t, l.Allow("addToCart", 10, time.Minute))
}

func TestKeysAreIsolated(t *testing.T) {
	now := time.Now()
	l := New(WithClock(func() time.Time { return now }))

	for i := 0; i < 3; i++ {
		require.True(t, l.Allow("actor-a:addToCart", 3, time.Minute))
	}
	assert.False(t, l.Allow("actor-a:addToCart", 3, time.Minute))
	assert.True(t, l.Allow("actor-b:addToCart", 3, time.Minute), "other actors keep their own window")
}

func TestReset(t *testing.T) {
	now := time.Now()
	l := New(WithClock(func() time.Time { return now }))

	require.True(t, l.Allow("k", 1, time.Minute))
	require.False(t, l.Allow("k", 1, time.Minute))

	l.Reset("k")
	assert.True(t, l.Allow("k", 1, time.Minute))
}
