package view

import (
	"context"
	"fmt"
	"sync"
)

// Status is the resolution state of a Remote value.
type Status int

// Remote statuses.
const (
	StatusLoading Status = iota
	StatusLoaded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusLoaded:
		return "loaded"
	case StatusFailed:
		return "failed"
	default:
		return "loading"
	}
}

// Remote is data fetched from the pizza service: still loading, loaded
// with a value, or failed with an error. Exactly one state holds.
type Remote[T any] struct {
	status Status
	value  T
	err    error
}

// Loading returns a Remote that has not resolved yet.
func Loading[T any]() Remote[T] {
	return Remote[T]{status: StatusLoading}
}

// Loaded returns a resolved Remote holding v.
func Loaded[T any](v T) Remote[T] {
	return Remote[T]{status: StatusLoaded, value: v}
}

// Failed returns a Remote that resolved with err.
func Failed[T any](err error) Remote[T] {
	return Remote[T]{status: StatusFailed, err: err}
}

// Status returns the current state.
func (r Remote[T]) Status() Status { return r.status }

// IsLoading reports whether the fetch is still pending.
func (r Remote[T]) IsLoading() bool { return r.status == StatusLoading }

// IsLoaded reports whether a value is available.
func (r Remote[T]) IsLoaded() bool { return r.status == StatusLoaded }

// IsFailed reports whether the fetch failed.
func (r Remote[T]) IsFailed() bool { return r.status == StatusFailed }

// Value returns the loaded value, or the zero value in other states.
func (r Remote[T]) Value() T { return r.value }

// Err returns the failure, or nil in other states.
func (r Remote[T]) Err() error { return r.err }

// Loader ties one fetch to one mount. Mount starts the fetch at most once,
// Unmount cancels it and discards any result that arrives afterwards.
// The zero value is not usable; create loaders with NewLoader.
type Loader[T any] struct {
	mu        sync.Mutex
	state     Remote[T]
	mounted   bool
	unmounted bool
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewLoader returns an unmounted loader in the loading state.
func NewLoader[T any]() *Loader[T] {
	return &Loader[T]{state: Loading[T](), done: make(chan struct{})}
}

// Mount starts fetch in its own goroutine with a context derived from ctx.
// Calls after the first, or after Unmount, do nothing.
func (l *Loader[T]) Mount(ctx context.Context, fetch func(context.Context) (T, error)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.mounted || l.unmounted {
		return
	}
	l.mounted = true

	fetchCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel

	go func() {
		defer close(l.done)
		defer cancel()

		v, err := safeFetch(fetchCtx, fetch)

		l.mu.Lock()
		defer l.mu.Unlock()
		if l.unmounted {
			return
		}
		if err != nil {
			l.state = Failed[T](err)
			return
		}
		l.state = Loaded(v)
	}()
}

func safeFetch[T any](ctx context.Context, fetch func(context.Context) (T, error)) (v T, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("fetch panicked: %v", p)
		}
	}()
	return fetch(ctx)
}

// Wait blocks until the fetch resolves or ctx ends, then returns the
// current state. An unmounted loader returns immediately.
func (l *Loader[T]) Wait(ctx context.Context) Remote[T] {
	l.mu.Lock()
	pending := l.mounted && !l.unmounted
	l.mu.Unlock()

	if pending {
		select {
		case <-l.done:
		case <-ctx.Done():
		}
	}
	return l.State()
}

// State returns the current state without side effects.
func (l *Loader[T]) State() Remote[T] {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Done is closed when the fetch goroutine has exited.
func (l *Loader[T]) Done() <-chan struct{} {
	return l.done
}

// Unmount cancels a pending fetch. The state is frozen from here on.
func (l *Loader[T]) Unmount() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.unmounted {
		return
	}
	l.unmounted = true
	if l.cancel != nil {
		l.cancel()
	}
	if !l.mounted {
		close(l.done)
	}
}
