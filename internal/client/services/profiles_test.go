package services

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileWatcher_RefreshesOnAccountChange(t *testing.T) {
	fake := &fakeAuthClient{
		getProfile: func(_ context.Context, userID string) (map[string]any, error) {
			return map[string]any{"displayname": "Name of " + userID}, nil
		},
	}
	svc, repo, _ := newAccountService(t, fake)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, repo.Upsert(ctx, storedAccount("@p1:example.org")))

	w := NewProfileWatcher(svc, 0, testLogger())
	go w.Run(ctx, "")

	require.Eventually(t, func() bool {
		items, ok := w.Latest()
		return ok && len(items) == 1
	}, 2*time.Second, 10*time.Millisecond)

	items, _ := w.Latest()
	assert.Equal(t, "Name of @p1:example.org", items[0].DisplayName)

	require.NoError(t, svc.DeleteAccount(ctx, "@p1:example.org"))

	require.Eventually(t, func() bool {
		items, ok := w.Latest()
		return ok && len(items) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestProfileWatcher_ExcludesActiveAccount(t *testing.T) {
	fake := &fakeAuthClient{
		getProfile: func(_ context.Context, userID string) (map[string]any, error) {
			return map[string]any{"displayname": userID}, nil
		},
	}
	svc, repo, _ := newAccountService(t, fake)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, repo.Upsert(ctx, storedAccount("@active:example.org")))
	require.NoError(t, repo.Upsert(ctx, storedAccount("@other:example.org")))

	w := NewProfileWatcher(svc, 0, testLogger())
	go w.Run(ctx, "@active:example.org")

	require.Eventually(t, func() bool {
		items, ok := w.Latest()
		return ok && len(items) == 1
	}, 2*time.Second, 10*time.Millisecond)

	items, _ := w.Latest()
	assert.Equal(t, "@other:example.org", items[0].UserID)
}

func TestProfileWatcher_StaleRefreshNeverOverwritesFresher(t *testing.T) {
	var name atomic.Value
	name.Store("old")
	fake := &fakeAuthClient{
		getProfile: func(_ context.Context, userID string) (map[string]any, error) {
			return map[string]any{"displayname": name.Load().(string)}, nil
		},
	}
	svc, repo, _ := newAccountService(t, fake)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, repo.Upsert(ctx, storedAccount("@p1:example.org")))

	w := NewProfileWatcher(svc, 0, testLogger())

	entered := make(chan struct{})
	release := make(chan struct{})
	var first atomic.Bool
	first.Store(true)
	w.beforePublish = func() {
		if first.CompareAndSwap(true, false) {
			entered <- struct{}{}
			<-release
		}
	}

	// the first refresh fetches the old snapshot and stalls before publishing
	w.startRefresh(ctx, "")
	<-entered

	// a newer refresh supersedes it and publishes the fresh snapshot
	name.Store("new")
	w.startRefresh(ctx, "")
	require.Eventually(t, func() bool {
		items, ok := w.Latest()
		return ok && len(items) == 1 && items[0].DisplayName == "new"
	}, 2*time.Second, 10*time.Millisecond)

	// releasing the superseded refresh must not bring the old snapshot back
	close(release)
	time.Sleep(50 * time.Millisecond)
	items, ok := w.Latest()
	require.True(t, ok)
	assert.Equal(t, "new", items[0].DisplayName)
}
