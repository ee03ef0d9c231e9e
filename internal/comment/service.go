package comment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Marwakhot/chronicles/internal/platform/logger"
	"github.com/Marwakhot/chronicles/internal/user"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	// MaxCommentLength 是评论正文的最大字符数。
	MaxCommentLength = 500
	// ListLimit 是单个故事一次返回的最大评论数。
	ListLimit = 100
)

var (
	ErrMissingFields   = errors.New("story id and comment are required")
	ErrCommentTooLong  = fmt.Errorf("comment must be %d characters or less", MaxCommentLength)
	ErrParentNotFound  = errors.New("parent comment not found")
	ErrNotCommentOwner = errors.New("only the author may delete a comment")
)

// UserLookup 用于在发表评论时读取作者的用户名。
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*user.User, error)
}

// Service 提供评论的发表、点赞与删除。
type Service struct {
	db    *gorm.DB
	repo  *Repository
	users UserLookup
	log   *logger.Logger
	now   func() time.Time
}

func NewService(db *gorm.DB, repo *Repository, users UserLookup, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{db: db, repo: repo, users: users, log: log.With("service", "comment"), now: time.Now}
}

// PostInput 是一次发表评论的请求。
type PostInput struct {
	StoryID  string
	Comment  string
	ParentID string
}

// List 返回某个故事的最新评论。
func (s *Service) List(ctx context.Context, storyID string) ([]Comment, error) {
	storyID = strings.TrimSpace(storyID)
	if storyID == "" {
		return nil, ErrMissingFields
	}
	return s.repo.ListByStory(ctx, storyID, ListLimit)
}

// Post 发表一条评论或回复。回复的父评论必须属于同一个故事。
func (s *Service) Post(ctx context.Context, userID string, in PostInput) (*Comment, error) {
	storyID := strings.TrimSpace(in.StoryID)
	text := strings.TrimSpace(in.Comment)
	if storyID == "" || text == "" {
		return nil, ErrMissingFields
	}
	if utf8.RuneCountInString(text) > MaxCommentLength {
		return nil, ErrCommentTooLong
	}

	author, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	c := &Comment{
		StoryID:   storyID,
		UserID:    userID,
		Username:  author.Username,
		Comment:   text,
		LikedBy:   []string{},
		CreatedAt: s.now().UTC(),
	}

	if parentID := strings.TrimSpace(in.ParentID); parentID != "" {
		parent, err := s.repo.GetByID(ctx, parentID, false)
		if errors.Is(err, ErrCommentNotFound) || (err == nil && parent.StoryID != storyID) {
			return nil, ErrParentNotFound
		}
		if err != nil {
			return nil, err
		}
		c.ParentID = &parent.ID
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("无法生成UUID v7: %w", err)
	}
	c.ID = id.String()

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// ToggleLike 切换当前用户对评论的点赞，返回更新后的评论。
func (s *Service) ToggleLike(ctx context.Context, userID, commentID string) (*Comment, error) {
	var updated *Comment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		c, err := repo.GetByID(ctx, commentID, true)
		if err != nil {
			return err
		}
		c.ToggleLike(userID)
		if err := repo.SaveLikes(ctx, c); err != nil {
			return err
		}
		updated = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete 删除评论，只有作者本人可以删除。
func (s *Service) Delete(ctx context.Context, userID, commentID string) error {
	c, err := s.repo.GetByID(ctx, commentID, false)
	if err != nil {
		return err
	}
	if c.UserID != userID {
		return ErrNotCommentOwner
	}
	if err := s.repo.Delete(ctx, commentID); err != nil {
		return err
	}
	s.log.Info("评论已删除", "comment_id", commentID, "user_id", userID)
	return nil
}
