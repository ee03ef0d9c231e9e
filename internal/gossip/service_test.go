package gossip

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Marwakhot/chronicles/internal/platform/config"
	"github.com/Marwakhot/chronicles/internal/platform/metadata"
	"github.com/Marwakhot/chronicles/internal/progress"
	"github.com/Marwakhot/chronicles/internal/testutil"
	"github.com/Marwakhot/chronicles/internal/user"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var pipelineNow = time.Date(2025, 5, 20, 8, 0, 0, 0, time.UTC)

type pipeline struct {
	db    *gorm.DB
	svc   *Service
	users *user.Repository
	store *Store
}

type pipelineOption func(cfg *config.GossipConfig, deps *Deps)

func withCache(client *redis.Client) pipelineOption {
	return withFlakyCache(client, nil)
}

func withFlakyCache(client *redis.Client, healthy func() bool) pipelineOption {
	return func(cfg *config.GossipConfig, deps *Deps) {
		deps.Cache = NewFeedCache(client, time.Minute, healthy)
	}
}

func withProgress(src ProgressSource) pipelineOption {
	return func(_ *config.GossipConfig, deps *Deps) {
		deps.Progress = src
	}
}

func newPipeline(t *testing.T, opts ...pipelineOption) *pipeline {
	t.Helper()
	db := testutil.NewTestDB(t, &user.User{}, &progress.Record{}, &Item{}, &metadata.Metadata{})
	cfg := testConfig(t)

	set, err := LoadTemplates("")
	require.NoError(t, err)
	clock := func() time.Time { return pipelineNow }

	users := user.NewRepository(db)
	store := NewStore(db, cfg.Retention, NewRandom(9, 9))
	deps := Deps{
		DB:          db,
		Users:       users,
		Progress:    progress.NewRepository(db),
		Synthesizer: NewSynthesizer(set, NewRandom(5, 6), clock),
		Store:       store,
		Now:         clock,
	}
	for _, opt := range opts {
		opt(&cfg, &deps)
	}
	return &pipeline{db: db, svc: NewService(cfg, deps, nil), users: users, store: store}
}

func (p *pipeline) addUser(t *testing.T, id string, stats user.CumulativeStats) {
	t.Helper()
	require.NoError(t, p.users.Create(context.Background(), &user.User{
		ID:              id,
		Email:           id + "@example.com",
		Username:        id,
		PasswordHash:    "h",
		TotalChoices:    stats.TotalChoices,
		StoriesStarted:  stats.StoriesStarted,
		StoriesFinished: stats.StoriesFinished,
		EndingsUnlocked: stats.EndingsUnlocked,
	}))
}

func (p *pipeline) addRecord(t *testing.T, userID, storyID string, traits map[string]interface{}) {
	t.Helper()
	require.NoError(t, progress.NewRepository(p.db).Upsert(context.Background(), &progress.Record{
		UserID:         userID,
		StoryID:        storyID,
		ChoiceSequence: []string{"a"},
		TraitDeltas:    datatypes.JSONMap(traits),
		LastUpdatedAt:  pipelineNow.Add(-time.Hour),
	}))
}

func (p *pipeline) storedSignals(t *testing.T) []Signal {
	t.Helper()
	items, err := p.store.Recent(context.Background(), 100)
	require.NoError(t, err)
	signals := make([]Signal, 0, len(items))
	for _, item := range items {
		signals = append(signals, item.SignalType)
	}
	return signals
}

func TestGenerateWithNoEligibleUsersFallsBack(t *testing.T) {
	p := newPipeline(t)
	p.addUser(t, "lurker", user.CumulativeStats{TotalChoices: 2})

	result, err := p.svc.Generate(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Fallback)
	assert.Zero(t, result.Eligible)
	assert.Equal(t, 2, result.Generated)
	assert.Equal(t, 2, result.Stored)
	assert.Equal(t, "2025-05-20", result.Edition)
	assert.ElementsMatch(t, []Signal{SignalQuietSeason, SignalSocietyWhispers}, p.storedSignals(t))

	edition, err := metadata.GetLastGossipEdition(p.db)
	require.NoError(t, err)
	assert.Equal(t, "2025-05-20", edition)
	at, err := metadata.GetLastGossipGeneratedAt(p.db)
	require.NoError(t, err)
	assert.True(t, at.Equal(pipelineNow))
}

func TestGenerateClassifiesEachEligibleUser(t *testing.T) {
	p := newPipeline(t)
	p.addUser(t, "fresh", user.CumulativeStats{TotalChoices: 8, StoriesStarted: 1})
	p.addUser(t, "traitor", user.CumulativeStats{TotalChoices: 60, StoriesStarted: 1, StoriesFinished: 1})
	for _, story := range []string{"rome", "plague", "egypt"} {
		p.addRecord(t, "traitor", story, map[string]interface{}{"loyalty": 20})
	}

	result, err := p.svc.Generate(context.Background())
	require.NoError(t, err)
	assert.False(t, result.Fallback)
	assert.Equal(t, 2, result.Eligible)

	// fresh: newPlayer; traitor: speedRunner + highBetrayal
	assert.Equal(t, 3, result.Generated)
	assert.ElementsMatch(t, []Signal{SignalNewPlayer, SignalSpeedRunner, SignalHighBetrayal}, p.storedSignals(t))

	items, err := p.store.Recent(context.Background(), 100)
	require.NoError(t, err)
	for _, item := range items {
		assert.True(t, item.Anonymous)
		assert.NotContains(t, item.Text, "traitor")
	}
}

func TestGenerateRespectsBatchLimit(t *testing.T) {
	p := newPipeline(t)
	for _, id := range []string{"a", "b", "c", "d", "e", "f"} {
		p.addUser(t, id, user.CumulativeStats{TotalChoices: 100, StoriesStarted: 1, StoriesFinished: 3,
			EndingsUnlocked: []string{"1", "2", "3", "4", "5"}})
	}

	result, err := p.svc.Generate(context.Background())
	require.NoError(t, err)
	// 每人命中 activePlayer、achievementHunter、bingePlayer
	assert.Equal(t, 18, result.Generated)
	assert.Equal(t, 10, result.Stored)
}

type failingProgress struct{}

func (failingProgress) ListByUser(context.Context, string) ([]progress.Record, error) {
	return nil, errors.New("store unreachable")
}

func TestGenerateAbortsOnDataAccessFailure(t *testing.T) {
	p := newPipeline(t, withProgress(failingProgress{}))
	p.addUser(t, "u1", user.CumulativeStats{TotalChoices: 20})

	_, err := p.svc.Generate(context.Background())
	require.Error(t, err)

	n, err := p.store.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestFeedLimits(t *testing.T) {
	p := newPipeline(t)
	require.NoError(t, p.store.InsertMany(context.Background(), makeItems(30, pipelineNow.Add(-time.Hour))))

	for _, tc := range []struct{ limit, want int }{{5, 5}, {0, 20}, {-3, 20}, {1000, 30}} {
		feed, err := p.svc.Feed(context.Background(), tc.limit)
		require.NoError(t, err)
		assert.Len(t, feed.Items, tc.want, "limit %d", tc.limit)
	}
	assert.Equal(t, 100, p.svc.NormalizeLimit(1000))
}

func TestFeedEditionDefaultsToToday(t *testing.T) {
	p := newPipeline(t)

	feed, err := p.svc.Feed(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, feed.Items)
	assert.Equal(t, "2025-05-20", feed.Edition)
}

func TestFeedCacheIsInvalidatedByGenerate(t *testing.T) {
	client, mr := testutil.NewTestRedis(t)
	p := newPipeline(t, withCache(client))
	ctx := context.Background()

	feed, err := p.svc.Feed(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, feed.Items)
	assert.True(t, mr.Exists(FeedCacheKey))

	// 直接写库不会影响缓存中的结果
	require.NoError(t, p.store.InsertMany(ctx, makeItems(2, pipelineNow)))
	feed, err = p.svc.Feed(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, feed.Items)

	_, err = p.svc.Generate(ctx)
	require.NoError(t, err)
	assert.False(t, mr.Exists(FeedCacheKey))

	feed, err = p.svc.Feed(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, feed.Items, 4)
}

func TestFeedFallsBackToStoreWhenRedisIsDown(t *testing.T) {
	client, mr := testutil.NewTestRedis(t)
	p := newPipeline(t, withCache(client))
	mr.Close()

	require.NoError(t, p.store.InsertMany(context.Background(), makeItems(3, pipelineNow)))
	feed, err := p.svc.Feed(context.Background(), 5)
	require.NoError(t, err)
	assert.Len(t, feed.Items, 3)
}

func TestGenerateClearsCacheDuringRedisHealthBlip(t *testing.T) {
	client, mr := testutil.NewTestRedis(t)
	healthy := true
	p := newPipeline(t, withFlakyCache(client, func() bool { return healthy }))
	ctx := context.Background()

	_, err := p.svc.Generate(ctx)
	require.NoError(t, err)
	feed, err := p.svc.Feed(ctx, 20)
	require.NoError(t, err)
	require.Len(t, feed.Items, 2)
	require.True(t, mr.Exists(FeedCacheKey))

	// 健康检查暂时报告不可用时完成的一次生成
	healthy = false
	_, err = p.svc.Generate(ctx)
	require.NoError(t, err)
	assert.False(t, mr.Exists(FeedCacheKey))

	healthy = true
	feed, err = p.svc.Feed(ctx, 20)
	require.NoError(t, err)
	assert.Len(t, feed.Items, 4)
}

func TestFeedDropsCacheWrittenDuringConcurrentGenerate(t *testing.T) {
	client, mr := testutil.NewTestRedis(t)
	p := newPipeline(t, withCache(client))
	ctx := context.Background()

	_, err := p.svc.Generate(ctx)
	require.NoError(t, err)

	// 在 Feed 读完条目之后、写缓存之前，插入一次完整的生成
	fired := false
	err = p.db.Callback().Query().After("gorm:query").Register("test:interleave_generate", func(tx *gorm.DB) {
		if fired || tx.Statement.Table != "gossip_items" {
			return
		}
		fired = true
		assert.NoError(t, p.store.InsertMany(ctx, makeItems(3, pipelineNow.Add(time.Minute))))
		assert.NoError(t, metadata.RecordGossipGeneration(p.db, "2025-05-20", pipelineNow.Add(time.Minute)))
		assert.NoError(t, p.svc.cache.Invalidate(ctx))
	})
	require.NoError(t, err)

	stale, err := p.svc.Feed(ctx, 20)
	require.NoError(t, err)
	require.True(t, fired)
	assert.Len(t, stale.Items, 2)
	assert.False(t, mr.Exists(FeedCacheKey))

	fresh, err := p.svc.Feed(ctx, 20)
	require.NoError(t, err)
	assert.Len(t, fresh.Items, 5)
}

func TestReturningToSameStoryIsDetected(t *testing.T) {
	p := newPipeline(t)
	p.addUser(t, "wanderer", user.CumulativeStats{TotalChoices: 20, StoriesStarted: 1})

	clock := pipelineNow.Add(-61 * 24 * time.Hour)
	recorder := progress.NewRecorder(p.db, p.users, progress.NewRepository(p.db), nil).
		WithClock(func() time.Time { return clock })
	ctx := context.Background()

	require.NoError(t, recorder.Save(ctx, "wanderer", progress.SaveInput{StoryID: "s", Choices: []string{"a"}}))
	clock = clock.Add(60 * 24 * time.Hour)
	require.NoError(t, recorder.Save(ctx, "wanderer", progress.SaveInput{StoryID: "s", Choices: []string{"a", "b"}}))

	_, err := p.svc.Generate(ctx)
	require.NoError(t, err)
	assert.Contains(t, p.storedSignals(t), SignalReturningPlayer)
}
