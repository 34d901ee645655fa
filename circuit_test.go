package apiclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(config CircuitBreakerConfig) (*CircuitBreaker, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	cb := NewCircuitBreaker(config)
	cb.now = clock.Now
	return cb, clock
}

func TestCircuitBreakerDefaults(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{})

	assert.Equal(t, 5, cb.config.FailureThreshold)
	assert.Equal(t, 30*time.Second, cb.config.RecoveryTimeout)
	assert.Equal(t, 2, cb.config.SuccessThreshold)
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, "closed", cb.State().String())
}

func TestCircuitBreakerTransitions(t *testing.T) {
	cb, clock := newTestBreaker(CircuitBreakerConfig{FailureThreshold: 2, RecoveryTimeout: time.Minute, SuccessThreshold: 2})

	cb.RecordFailure()
	assert.Equal(t, StateClosed, cb.State())
	cb.RecordFailure()
	assert.Equal(t, StateOpen, cb.State())
	assert.False(t, cb.Allow())

	clock.Advance(time.Minute)
	assert.True(t, cb.Allow())
	assert.Equal(t, StateHalfOpen, cb.State())

	cb.RecordFailure()
	assert.Equal(t, StateOpen, cb.State(), "a half-open failure reopens")

	clock.Advance(time.Minute)
	require.True(t, cb.Allow())
	cb.RecordSuccess()
	assert.Equal(t, StateHalfOpen, cb.State())
	cb.RecordSuccess()
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreakerHalfOpenAdmitsLimitedTrials(t *testing.T) {
	cb, clock := newTestBreaker(CircuitBreakerConfig{FailureThreshold: 1, RecoveryTimeout: time.Minute, SuccessThreshold: 1})

	cb.RecordFailure()
	require.Equal(t, StateOpen, cb.State())

	clock.Advance(time.Minute)
	assert.True(t, cb.Allow(), "first call after recovery timeout is a trial")
	assert.False(t, cb.Allow(), "half-open circuit must not admit a second trial")
	assert.False(t, cb.Allow())
	assert.Equal(t, StateHalfOpen, cb.State())

	cb.RecordSuccess()
	assert.Equal(t, StateClosed, cb.State())
	assert.True(t, cb.Allow())
	assert.True(t, cb.Allow())

	cb.RecordFailure()
	clock.Advance(time.Minute)
	assert.True(t, cb.Allow(), "trial budget resets after reopening")
	assert.False(t, cb.Allow())
}

func TestCircuitBreakerHalfOpenRejectsConcurrentCalls(t *testing.T) {
	release := make(chan struct{})
	var hits atomic.Int32
	var failing atomic.Bool
	failing.Store(true)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if failing.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		<-release
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	cb, clock := newTestBreaker(CircuitBreakerConfig{FailureThreshold: 1, RecoveryTimeout: time.Minute, SuccessThreshold: 1})
	client := New(WithBaseURL(server.URL), WithMiddleware(cb.Middleware()))

	_, err := client.Post(context.Background(), "/orders", nil, nil)
	require.Equal(t, http.StatusBadGateway, StatusOf(err))
	require.Equal(t, StateOpen, cb.State())

	failing.Store(false)
	clock.Advance(time.Minute)

	done := make(chan error, 1)
	go func() {
		_, err := client.Post(context.Background(), "/orders", nil, nil)
		done <- err
	}()
	require.Eventually(t, func() bool { return hits.Load() == 2 }, time.Second, time.Millisecond)

	_, err = client.Post(context.Background(), "/orders", nil, nil)
	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, CodeCircuitOpen, apiErr.Code)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, int32(2), hits.Load())
}

func TestCircuitBreakerSuccessResetsStreak(t *testing.T) {
	cb, _ := newTestBreaker(CircuitBreakerConfig{FailureThreshold: 2})

	cb.RecordFailure()
	cb.RecordSuccess()
	cb.RecordFailure()

	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreakerMiddleware(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	cb, _ := newTestBreaker(CircuitBreakerConfig{FailureThreshold: 2, RecoveryTimeout: time.Hour})
	client := New(WithBaseURL(server.URL), WithMiddleware(cb.Middleware()))

	for i := 0; i < 2; i++ {
		_, err := client.Post(context.Background(), "/orders", nil, nil)
		assert.Equal(t, http.StatusBadGateway, StatusOf(err))
	}

	_, err := client.Post(context.Background(), "/orders", nil, nil)
	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, CodeCircuitOpen, apiErr.Code)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.Status)
	assert.Equal(t, int32(2), hits.Load())
}

func TestCircuitBreakerIgnoresClientErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := New(WithBaseURL(server.URL), WithCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1}))

	for i := 0; i < 3; i++ {
		_, err := client.Get(context.Background(), "/missing", nil)
		assert.True(t, IsNotFound(err))
	}
}
