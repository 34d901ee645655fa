// Package singleflight coalesces concurrent calls that share a key into a
// single execution.
//
// Unlike golang.org/x/sync/singleflight, every caller honours its own
// context and a key is released the moment its call settles: the next Do for
// the same key always runs fn again.
package singleflight

import (
	"context"
	"fmt"
	"sync"
)

// Group manages a set of in-flight calls to prevent duplicate work.
// The zero value is ready to use.
type Group[T any] struct {
	mu      sync.Mutex
	m       map[string]*call[T]
	observe func(inFlight int)
}

// call represents an active function call.
type call[T any] struct {
	done    chan struct{}
	val     T
	err     error
	waiters int
	refs    int
	cancel  context.CancelFunc
}

// New creates a new singleflight Group.
func New[T any]() *Group[T] {
	return &Group[T]{
		m: make(map[string]*call[T]),
	}
}

// NewWithObserver creates a Group that reports the number of keys in flight
// to observe every time it changes. observe runs under the group lock and
// must not call back into the Group.
func NewWithObserver[T any](observe func(inFlight int)) *Group[T] {
	g := New[T]()
	g.observe = observe
	return g
}

// Do executes and returns the results of fn, making sure that only one
// execution is in-flight for a given key at a time. A duplicate caller waits
// for the original to complete and receives the same results; joined reports
// whether this caller waited on another caller's execution.
//
// fn runs in its own goroutine under a context that keeps the first caller's
// values but not its cancellation. Any caller whose ctx ends stops waiting
// and gets ctx.Err() without affecting the others. Once every caller has
// left, the shared context is canceled and the key released.
//
// A panic in fn is recovered and reported to all callers as ErrAbandoned.
func (g *Group[T]) Do(ctx context.Context, key string, fn func(ctx context.Context) (T, error)) (val T, err error, joined bool) {
	g.mu.Lock()
	if g.m == nil {
		g.m = make(map[string]*call[T])
	}
	c, joined := g.m[key]
	if joined {
		c.waiters++
		c.refs++
	} else {
		shared, cancel := context.WithCancel(context.WithoutCancel(ctx))
		c = &call[T]{done: make(chan struct{}), refs: 1, cancel: cancel}
		g.m[key] = c
		g.changed()
		go g.doCall(shared, c, key, fn)
	}
	g.mu.Unlock()

	select {
	case <-c.done:
		return c.val, c.err, joined
	case <-ctx.Done():
		g.leave(c, key, joined)
		var zero T
		return zero, ctx.Err(), joined
	}
}

// doCall runs fn and releases the key whether fn returns or panics.
func (g *Group[T]) doCall(ctx context.Context, c *call[T], key string, fn func(context.Context) (T, error)) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			c.val, c.err = zero, fmt.Errorf("%w: %v", ErrAbandoned, r)
		}
		g.mu.Lock()
		g.release(c, key)
		g.mu.Unlock()
		c.cancel()
		close(c.done)
	}()

	c.val, c.err = fn(ctx)
}

// leave drops a caller that stopped waiting. The last one out cancels the
// shared call so it does not outlive everyone interested in it.
func (g *Group[T]) leave(c *call[T], key string, joined bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if joined {
		c.waiters--
	}
	c.refs--
	if c.refs == 0 {
		g.release(c, key)
		c.cancel()
	}
}

// release removes c from the map if it still owns key. g.mu must be held.
func (g *Group[T]) release(c *call[T], key string) {
	if g.m[key] == c {
		delete(g.m, key)
		g.changed()
	}
}

func (g *Group[T]) changed() {
	if g.observe != nil {
		g.observe(len(g.m))
	}
}

// Len reports the number of keys currently in flight.
func (g *Group[T]) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.m)
}

// Waiters reports how many callers are currently waiting on key, not
// counting the owner.
func (g *Group[T]) Waiters(key string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if c, ok := g.m[key]; ok {
		return c.waiters
	}
	return 0
}
