package gossip

import (
	"context"
	"fmt"
	"time"

	"github.com/Marwakhot/chronicles/internal/platform/config"
	"github.com/Marwakhot/chronicles/internal/platform/logger"
	"github.com/Marwakhot/chronicles/internal/platform/metadata"
	"github.com/Marwakhot/chronicles/internal/progress"
	"github.com/Marwakhot/chronicles/internal/user"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// UserSource 提供参与生成的用户。
type UserSource interface {
	ListActive(ctx context.Context, minTotalChoices int) ([]user.User, error)
}

// ProgressSource 提供单个用户的全部进度记录。
type ProgressSource interface {
	ListByUser(ctx context.Context, userID string) ([]progress.Record, error)
}

// Result 是一次生成流程的结果摘要。
type Result struct {
	Generated int
	Eligible  int
	Stored    int
	Fallback  bool
	Edition   string
}

// Service 串联 Aggregator、Classifier、Synthesizer 与 Store，完成一次完整的生成，
// 并为读接口提供带缓存的列表。
type Service struct {
	db          *gorm.DB
	users       UserSource
	progress    ProgressSource
	aggregator  *Aggregator
	classifier  *Classifier
	synthesizer *Synthesizer
	store       *Store
	cache       *FeedCache
	cfg         config.GossipConfig
	log         *logger.Logger
	now         func() time.Time
}

// Deps 汇总 Service 的协作者。Cache 可以为nil。
type Deps struct {
	DB          *gorm.DB
	Users       UserSource
	Progress    ProgressSource
	Synthesizer *Synthesizer
	Store       *Store
	Cache       *FeedCache
	Now         func() time.Time
}

// NewService 创建八卦服务。
func NewService(cfg config.GossipConfig, deps Deps, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if len(cfg.FallbackSignals) == 0 {
		cfg.FallbackSignals = []string{string(SignalQuietSeason), string(SignalSocietyWhispers)}
	}
	return &Service{
		db:          deps.DB,
		users:       deps.Users,
		progress:    deps.Progress,
		aggregator:  NewAggregator(cfg.Aliases),
		classifier:  NewClassifier(cfg.Rules, now),
		synthesizer: deps.Synthesizer,
		store:       deps.Store,
		cache:       deps.Cache,
		cfg:         cfg,
		log:         log.With("service", "gossip"),
		now:         now,
	}
}

// Generate 执行一次完整的生成流程。
//
// 每个活跃用户的统计与分类相互独立，并发执行；合成与写入在全部分类完成后顺序进行。
// 任何数据访问错误都会中止本次流程。没有任何信号命中时使用兜底信号，
// 因此只要流程成功，存储中总会有新的一批条目。
func (s *Service) Generate(ctx context.Context) (*Result, error) {
	start := time.Now()
	defer func() { generationDuration.Observe(time.Since(start).Seconds()) }()

	result, err := s.generate(ctx)
	if err != nil {
		generationRuns.WithLabelValues("error").Inc()
		s.log.Error("八卦生成失败", "error", err)
		return nil, err
	}
	if result.Fallback {
		generationRuns.WithLabelValues("fallback").Inc()
	} else {
		generationRuns.WithLabelValues("success").Inc()
	}
	s.log.Info("八卦生成完成",
		"eligible_users", result.Eligible,
		"generated", result.Generated,
		"stored", result.Stored,
		"edition", result.Edition,
		"fallback", result.Fallback,
	)
	return result, nil
}

func (s *Service) generate(ctx context.Context) (*Result, error) {
	users, err := s.users.ListActive(ctx, s.cfg.MinTotalChoices)
	if err != nil {
		return nil, fmt.Errorf("读取活跃用户失败: %w", err)
	}

	signals, err := s.classifyAll(ctx, users)
	if err != nil {
		return nil, err
	}

	result := &Result{Eligible: len(users)}
	if len(signals) == 0 {
		result.Fallback = true
		for _, name := range s.cfg.FallbackSignals {
			signals = append(signals, Signal(name))
		}
	}

	items := s.synthesizer.SynthesizeAll(signals)
	for _, item := range items {
		generatedItems.WithLabelValues(string(item.SignalType)).Inc()
	}
	result.Generated = len(items)

	stored, err := s.store.Save(ctx, items)
	if err != nil {
		return nil, err
	}
	result.Stored = stored

	at := s.now().UTC()
	result.Edition = EditionOf(at)
	if len(items) > 0 {
		result.Edition = items[0].Edition
	}
	if err := metadata.RecordGossipGeneration(s.db.WithContext(ctx), result.Edition, at); err != nil {
		return nil, fmt.Errorf("记录八卦期号失败: %w", err)
	}

	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.Warn("清除八卦缓存失败", "error", err)
	}
	return result, nil
}

// classifyAll 并发地为每个用户求出信号，结果按用户顺序拼接，保证输出可复现。
func (s *Service) classifyAll(ctx context.Context, users []user.User) ([]Signal, error) {
	perUser := make([][]Signal, len(users))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for i := range users {
		u := &users[i]
		g.Go(func() error {
			records, err := s.progress.ListByUser(gctx, u.ID)
			if err != nil {
				return fmt.Errorf("读取用户进度失败: %w", err)
			}
			perUser[i] = s.classifier.Classify(Subject{
				Stats:  u.Stats(),
				Traits: s.aggregator.Aggregate(records),
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var signals []Signal
	for _, sigs := range perUser {
		signals = append(signals, sigs...)
	}
	return signals, nil
}

// NormalizeLimit 把请求的条数限制在 [1, ListMaxLimit]，非正数使用默认值。
func (s *Service) NormalizeLimit(limit int) int {
	if limit <= 0 {
		limit = s.cfg.ListDefaultLimit
	}
	if s.cfg.ListMaxLimit > 0 && limit > s.cfg.ListMaxLimit {
		limit = s.cfg.ListMaxLimit
	}
	if limit <= 0 {
		limit = 1
	}
	return limit
}

// Feed 返回最近的八卦与当前期号。优先读缓存，缓存不可用时直接读库。
func (s *Service) Feed(ctx context.Context, limit int) (*Feed, error) {
	limit = s.NormalizeLimit(limit)

	cached, ok, err := s.cache.Get(ctx, limit)
	if err != nil {
		s.log.Warn("读取八卦缓存失败，改为直接查询数据库", "error", err)
	}
	if ok {
		feedCacheLookups.WithLabelValues("hit").Inc()
		return cached, nil
	}
	feedCacheLookups.WithLabelValues("miss").Inc()

	db := s.db.WithContext(ctx)
	generatedAt, err := metadata.GetLastGossipGeneratedAt(db)
	if err != nil {
		return nil, fmt.Errorf("读取八卦生成时间失败: %w", err)
	}
	items, err := s.store.Recent(ctx, limit)
	if err != nil {
		return nil, err
	}
	edition, err := metadata.GetLastGossipEdition(db)
	if err != nil {
		return nil, fmt.Errorf("读取八卦期号失败: %w", err)
	}
	if edition == "" {
		edition = EditionOf(s.now())
	}

	feed := &Feed{Items: items, Edition: edition}
	if s.cache.enabled() {
		if err := s.cache.Set(ctx, limit, feed); err != nil {
			s.log.Warn("写入八卦缓存失败", "error", err)
		}
		s.dropIfRegenerated(ctx, generatedAt)
	}
	return feed, nil
}

// dropIfRegenerated 在读库期间有新的一次生成完成时清除刚写入的缓存，
// 否则那次生成的 Invalidate 可能先于本次 Set 执行，旧列表会一直留到过期。
func (s *Service) dropIfRegenerated(ctx context.Context, readAt time.Time) {
	latest, err := metadata.GetLastGossipGeneratedAt(s.db.WithContext(ctx))
	if err == nil && latest.Equal(readAt) {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.Warn("清除八卦缓存失败", "error", err)
	}
}
