// ABOUTME: Tests for the fixed-window rate limiter.
// ABOUTME: Validates ceilings, window reset, key isolation, sweep, and concurrency.

package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiter_AllowsUpToMax(t *testing.T) {
	l := New(3, time.Minute)
	defer l.Close()

	assert.True(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.1"))

	// The (N+1)-th request within the window is denied
	assert.False(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"))
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	l := New(1, time.Minute)
	defer l.Close()

	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"))

	// A different key has its own window
	assert.True(t, l.Allow("10.0.0.2"))
}

func TestLimiter_WindowReset(t *testing.T) {
	l := New(1, 20*time.Millisecond)
	defer l.Close()

	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"))

	time.Sleep(30 * time.Millisecond)

	// After the window elapses the counter starts fresh
	assert.True(t, l.Allow("10.0.0.1"))
}

func TestLimiter_RunSweepDropsExpired(t *testing.T) {
	l := New(5, 10*time.Millisecond)
	defer l.Close()

	l.Allow("10.0.0.1")
	l.Allow("10.0.0.2")
	assert.Equal(t, 2, l.Len())

	time.Sleep(20 * time.Millisecond)
	l.runSweep()

	assert.Equal(t, 0, l.Len())
}

func TestLimiter_Concurrent(t *testing.T) {
	l := New(50, time.Minute)
	defer l.Close()

	var wg sync.WaitGroup
	allowed := make(chan bool, 100)

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			allowed <- l.Allow("shared-key")
		}()
	}
	wg.Wait()
	close(allowed)

	var yes int
	for ok := range allowed {
		if ok {
			yes++
		}
	}
	assert.Equal(t, 50, yes, "exactly the ceiling must be admitted")
}

func TestLimiter_CloseIsIdempotent(t *testing.T) {
	l := New(1, time.Minute)
	l.Close()
	l.Close()
}

func TestLimiter_ManyKeys(t *testing.T) {
	l := New(2, time.Minute)
	defer l.Close()

	for i := 0; i < 100; i++ {
		key := fmt.Sprintf("192.0.2.%d", i)
		assert.True(t, l.Allow(key))
	}
	assert.Equal(t, 100, l.Len())
}
