package progress

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Marwakhot/chronicles/internal/platform/logger"
	"github.com/Marwakhot/chronicles/internal/user"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RecentLimit 是 GET /api/progress 返回的最大记录数。
const RecentLimit = 50

// ErrMissingStory 表示请求中没有故事ID。
var ErrMissingStory = errors.New("storyId is required")

// SaveInput 是一次进度保存请求。
type SaveInput struct {
	StoryID  string
	EndingID string
	Choices  []string
	Stats    map[string]interface{}
}

// Recorder 负责保存游玩进度并同步更新用户的累计统计。
type Recorder struct {
	db      *gorm.DB
	users   *user.Repository
	records *Repository
	log     *logger.Logger
	now     func() time.Time
}

// NewRecorder 创建进度记录服务。
func NewRecorder(db *gorm.DB, users *user.Repository, records *Repository, log *logger.Logger) *Recorder {
	if log == nil {
		log = logger.Nop()
	}
	return &Recorder{
		db:      db,
		users:   users,
		records: records,
		log:     log.With("service", "progress"),
		now:     time.Now,
	}
}

// WithClock 替换时间来源，用于测试。
func (r *Recorder) WithClock(now func() time.Time) *Recorder {
	r.now = now
	return r
}

// Save 在一个事务内更新用户累计统计并写入进度记录。
//
// totalChoices 只累加相对已存序列新增的选择数（重复提交同一序列不会重复计数）；首次保存且选择为空时计为开始一个新故事；
// 带结局的保存会解锁 "故事ID-结局ID"，并在该故事首次完成时累加完成数。
func (r *Recorder) Save(ctx context.Context, userID string, in SaveInput) error {
	storyID := strings.TrimSpace(in.StoryID)
	if storyID == "" {
		return ErrMissingStory
	}
	endingID := strings.TrimSpace(in.EndingID)
	choices := in.Choices
	if choices == nil {
		choices = []string{}
	}
	stats := in.Stats
	if stats == nil {
		stats = map[string]interface{}{}
	}
	now := r.now().UTC()

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := r.users.WithTx(tx)
		records := r.records.WithTx(tx)

		u, err := users.GetByIDForUpdate(ctx, userID)
		if err != nil {
			return err
		}

		existing, err := records.FindByUserAndStory(ctx, userID, storyID)
		if err != nil && !errors.Is(err, ErrRecordNotFound) {
			return err
		}

		var delta user.StatsDelta
		stored := 0
		if existing != nil {
			stored = len(existing.ChoiceSequence)
		} else if len(choices) == 0 {
			delta.StartedStory = true
		}
		if added := len(choices) - stored; added > 0 {
			delta.Choices = added
		}

		rec := &Record{
			UserID:         userID,
			StoryID:        storyID,
			ChoiceSequence: datatypes.JSONSlice[string](choices),
			TraitDeltas:    datatypes.JSONMap(stats),
			LastUpdatedAt:  now,
		}
		if existing != nil {
			prev := existing.LastUpdatedAt
			rec.PreviousUpdatedAt = &prev
		}
		if endingID != "" {
			delta.UnlockedEnding = storyID + "-" + endingID
			delta.CompletedStory = storyID
			rec.EndingID = &endingID
			rec.CompletedAt = &now
		}

		if err := users.ApplyStatsDelta(ctx, u, delta); err != nil {
			return err
		}
		if err := records.Upsert(ctx, rec); err != nil {
			return err
		}

		r.log.Debug("进度已保存", "user_id", userID, "story_id", storyID, "new_choices", delta.Choices)
		return nil
	})
}

// Recent 返回用户最近更新的进度记录。
func (r *Recorder) Recent(ctx context.Context, userID string) ([]Record, error) {
	return r.records.ListRecent(ctx, userID, RecentLimit)
}

// ListByUser 返回用户的全部进度记录，供八卦统计使用。
func (r *Recorder) ListByUser(ctx context.Context, userID string) ([]Record, error) {
	return r.records.ListByUser(ctx, userID)
}
