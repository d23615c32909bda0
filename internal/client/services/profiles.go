package services

import (
	"context"
	"sync"
	"time"

	"github.com/okatkov/mxkeeper/internal/client/models"
	"github.com/okatkov/mxkeeper/internal/logging"
	"github.com/okatkov/mxkeeper/internal/pubsub"
)

// ProfileWatcher keeps an up-to-date list of remote profile items for the
// stored accounts. It refreshes whenever the account list changes and again
// every interval; a refresh still in flight when the next one starts is
// cancelled, so only the newest snapshot is ever published.
type ProfileWatcher struct {
	accounts *AccountService
	interval time.Duration
	log      logging.Logger
	items    *pubsub.Watchable[[]models.AccountItem]

	mu         sync.Mutex
	cancel     context.CancelFunc
	generation uint64

	// beforePublish is a test seam invoked between fetching a snapshot and
	// taking the lock to publish it.
	beforePublish func()
}

func NewProfileWatcher(accounts *AccountService, interval time.Duration, log logging.Logger) *ProfileWatcher {
	return &ProfileWatcher{
		accounts: accounts,
		interval: interval,
		log:      log.With("service", "profiles"),
		items:    pubsub.NewWatchable[[]models.AccountItem](),
	}
}

// Run drives the watcher until ctx is cancelled. excludeUserID is left out
// of every published snapshot, mirroring the switch picker which never shows
// the account that is already active.
func (w *ProfileWatcher) Run(ctx context.Context, excludeUserID string) {
	updates := w.accounts.WatchLocalAccounts(ctx)

	var ticker *time.Ticker
	var tick <-chan time.Time
	if w.interval > 0 {
		ticker = time.NewTicker(w.interval)
		tick = ticker.C
		defer ticker.Stop()
	}

	for {
		select {
		case <-ctx.Done():
			w.stopRefresh()
			return
		case _, ok := <-updates:
			if !ok {
				w.stopRefresh()
				return
			}
			w.startRefresh(ctx, excludeUserID)
		case <-tick:
			w.startRefresh(ctx, excludeUserID)
		}
	}
}

// Watch returns a channel yielding the latest published profile snapshot
// and every later one, until ctx is cancelled.
func (w *ProfileWatcher) Watch(ctx context.Context) <-chan []models.AccountItem {
	return w.items.Subscribe(ctx)
}

// Latest returns the most recent snapshot, if any was published yet.
func (w *ProfileWatcher) Latest() ([]models.AccountItem, bool) {
	return w.items.Latest()
}

func (w *ProfileWatcher) startRefresh(parent context.Context, excludeUserID string) {
	w.mu.Lock()
	if w.cancel != nil {
		w.cancel()
	}
	ctx, cancel := context.WithCancel(parent)
	w.cancel = cancel
	w.generation++
	gen := w.generation
	w.mu.Unlock()

	go func() {
		defer cancel()
		items, err := w.accounts.ListRemoteProfiles(ctx, excludeUserID)
		if err != nil {
			w.log.Warn(ctx, "profile refresh failed", "error", err)
			return
		}

		if w.beforePublish != nil {
			w.beforePublish()
		}

		// the generation check and the publish must be one atomic step, or
		// a descheduled refresh could overwrite a fresher snapshot
		w.mu.Lock()
		defer w.mu.Unlock()
		if gen == w.generation {
			w.items.Publish(items)
		}
	}()
}

func (w *ProfileWatcher) stopRefresh() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
}
