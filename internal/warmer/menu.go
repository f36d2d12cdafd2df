// Package warmer keeps the menu cache filled so that the first diner after
// an expiry does not pay for the pizza service round trip.
package warmer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jwtpizza/pizzaweb/internal/model"
)

// MenuSource loads the menu from the pizza service.
type MenuSource interface {
	GetMenu(ctx context.Context) ([]model.MenuItem, error)
}

// MenuCache stores the menu.
type MenuCache interface {
	SetMenu(ctx context.Context, items []model.MenuItem, ttl time.Duration) error
}

// MenuWarmer refreshes the menu cache on an interval.
type MenuWarmer struct {
	source   MenuSource
	cache    MenuCache
	logger   *slog.Logger
	interval time.Duration
	ttl      time.Duration

	started bool
	cancel  context.CancelFunc
	done    chan struct{}
	mu      sync.Mutex
}

// NewMenuWarmer creates a warmer that refreshes every interval and writes
// entries living for ttl. The interval should be shorter than ttl.
func NewMenuWarmer(source MenuSource, cache MenuCache, logger *slog.Logger, interval, ttl time.Duration) *MenuWarmer {
	return &MenuWarmer{
		source:   source,
		cache:    cache,
		logger:   logger.With("component", "menu.warmer"),
		interval: interval,
		ttl:      ttl,
	}
}

// Run refreshes once immediately, then on every tick. Blocks until ctx is
// cancelled. Refresh failures are logged and retried on the next tick.
func (w *MenuWarmer) Run(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return errors.New("menu warmer already started")
	}
	w.started = true
	w.done = make(chan struct{})
	ctx, w.cancel = context.WithCancel(ctx)
	w.mu.Unlock()

	defer close(w.done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if err := w.Refresh(ctx); err != nil && ctx.Err() == nil {
			w.logger.Warn("menu refresh failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Refresh loads the menu and stores it.
func (w *MenuWarmer) Refresh(ctx context.Context) error {
	items, err := w.source.GetMenu(ctx)
	if err != nil {
		return err
	}
	if err := w.cache.SetMenu(ctx, items, w.ttl); err != nil {
		return err
	}
	w.logger.Debug("menu cache refreshed", "items", len(items))
	return nil
}

// Shutdown stops the warmer and waits for an in-flight refresh.
// It implements server.ShutdownFunc.
func (w *MenuWarmer) Shutdown(ctx context.Context) error {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return nil
	}
	cancel := w.cancel
	done := w.done
	w.mu.Unlock()

	cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		w.logger.Warn("menu warmer shutdown timed out")
		return ctx.Err()
	}
}
