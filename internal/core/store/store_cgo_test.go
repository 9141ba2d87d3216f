//go:build cgo

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/personalens/personalens/internal/config"
	"github.com/personalens/personalens/internal/core"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	ctx := context.Background()
	store, err := Open(ctx, config.StoreConfig{Driver: "libsql", Path: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, store.Migrate(ctx))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpenMemoryStore(t *testing.T) {
	ctx := context.Background()
	cfg := config.StoreConfig{
		Driver: "libsql",
		Path:   ":memory:",
	}

	store, err := Open(ctx, cfg)
	require.NoError(t, err)
	require.NotNil(t, store)
	require.Equal(t, "libsql", store.Driver())
	require.NoError(t, store.Close())
}

func TestLimiterSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	now := time.Now().UTC().Truncate(time.Millisecond)
	failedAt := now.Add(-30 * time.Second)
	snap := &core.LimiterSnapshot{
		Service:             "apify",
		Minute:              []time.Time{now.Add(-10 * time.Second), now.Add(-5 * time.Second)},
		Hour:                []time.Time{now.Add(-40 * time.Minute), now.Add(-10 * time.Second), now.Add(-5 * time.Second)},
		Day:                 []time.Time{now.Add(-20 * time.Hour)},
		ConsecutiveFailures: 2,
		LastFailureAt:       &failedAt,
		SavedAt:             now,
	}

	require.NoError(t, store.SaveLimiterSnapshot(ctx, snap))

	loaded, err := store.GetLimiterSnapshot(ctx, "apify")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Equal(t, snap.Minute, loaded.Minute)
	require.Equal(t, snap.Hour, loaded.Hour)
	require.Equal(t, snap.Day, loaded.Day)
	require.Equal(t, 2, loaded.ConsecutiveFailures)
	require.NotNil(t, loaded.LastFailureAt)
	require.Equal(t, failedAt, *loaded.LastFailureAt)
}

func TestLimiterSnapshotMissing(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	loaded, err := store.GetLimiterSnapshot(ctx, "gemini")
	require.NoError(t, err)
	require.Nil(t, loaded)
}

func TestLimiterSnapshotOverwrite(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	now := time.Now().UTC().Truncate(time.Millisecond)
	first := &core.LimiterSnapshot{Service: "apify", ConsecutiveFailures: 3, SavedAt: now}
	require.NoError(t, store.SaveLimiterSnapshot(ctx, first))

	second := &core.LimiterSnapshot{
		Service: "apify",
		Minute:  []time.Time{now},
		SavedAt: now.Add(time.Minute),
	}
	require.NoError(t, store.SaveLimiterSnapshot(ctx, second))

	loaded, err := store.GetLimiterSnapshot(ctx, "apify")
	require.NoError(t, err)
	require.Equal(t, 0, loaded.ConsecutiveFailures)
	require.Len(t, loaded.Minute, 1)
}

func TestListAndResetLimiterSnapshots(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	now := time.Now().UTC()
	for _, service := range []string{"apify", "gemini", "browser"} {
		require.NoError(t, store.SaveLimiterSnapshot(ctx, &core.LimiterSnapshot{Service: service, SavedAt: now}))
	}

	snapshots, err := store.ListLimiterSnapshots(ctx, ServiceQuery{All: true})
	require.NoError(t, err)
	require.Len(t, snapshots, 3)
	require.Equal(t, "apify", snapshots[0].Service)
	require.Equal(t, "browser", snapshots[1].Service)
	require.Equal(t, "gemini", snapshots[2].Service)

	count, err := store.CountLimiterSnapshots(ctx, ServiceQuery{Prefix: "gem"})
	require.NoError(t, err)
	require.Equal(t, 1, count)

	affected, err := store.ResetLimiterSnapshots(ctx, ServiceQuery{Service: "apify"})
	require.NoError(t, err)
	require.EqualValues(t, 1, affected)

	remaining, err := store.ListLimiterSnapshots(ctx, ServiceQuery{All: true})
	require.NoError(t, err)
	require.Len(t, remaining, 2)
}

func TestAnalysisCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	result := &core.MBTIResult{
		Username:   "jack",
		Type:       "INTJ",
		Confidence: 0.82,
		Model:      "gemini-2.5-flash",
		TweetCount: 30,
		AnalyzedAt: time.Now().UTC().Truncate(time.Millisecond),
	}

	require.NoError(t, store.SetCachedAnalysis(ctx, result, time.Hour))

	cached, err := store.GetCachedAnalysis(ctx, "@Jack", "gemini-2.5-flash")
	require.NoError(t, err)
	require.NotNil(t, cached)
	require.Equal(t, "INTJ", cached.Type)
	require.Equal(t, 30, cached.TweetCount)

	// Different model misses the cache.
	cached, err = store.GetCachedAnalysis(ctx, "jack", "gemini-2.5-pro")
	require.NoError(t, err)
	require.Nil(t, cached)
}

func TestAnalysisCacheExpiry(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	result := &core.MBTIResult{Username: "jack", Type: "ENFP", Model: "gemini-2.5-flash"}
	require.NoError(t, store.SetCachedAnalysis(ctx, result, time.Millisecond))

	time.Sleep(5 * time.Millisecond)

	cached, err := store.GetCachedAnalysis(ctx, "jack", "gemini-2.5-flash")
	require.NoError(t, err)
	require.Nil(t, cached)

	pruned, err := store.PruneExpired(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, pruned)
}

func TestSampleCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	sample := &core.TweetSample{
		Username:  "jack",
		Originals: []core.Tweet{{ID: "1", Text: "just setting up my twttr"}},
		Replies:   []core.Tweet{{ID: "2", Text: "@biz yes", IsReply: true}},
		FetchedAt: time.Now().UTC().Truncate(time.Millisecond),
	}

	require.NoError(t, store.SetCachedSample(ctx, sample, time.Hour))

	cached, err := store.GetCachedSample(ctx, "jack")
	require.NoError(t, err)
	require.NotNil(t, cached)
	require.Equal(t, 2, cached.Total())
	require.Equal(t, "just setting up my twttr", cached.Originals[0].Text)
}
