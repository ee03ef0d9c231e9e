package comment

import (
	"slices"
	"time"

	"gorm.io/datatypes"
)

// Comment 是挂在某个故事下的一条评论，ParentID 非空时为回复。
type Comment struct {
	ID       string  `gorm:"primarykey;type:varchar(36)" json:"id"`
	StoryID  string  `gorm:"not null;type:varchar(128);index:idx_comment_story_created,priority:1" json:"storyId"`
	UserID   string  `gorm:"not null;type:varchar(36);index" json:"userId"`
	Username string  `gorm:"not null" json:"username"`
	ParentID *string `gorm:"type:varchar(36);index" json:"parentId"`
	Comment  string  `gorm:"not null;type:text" json:"comment"`

	Likes   int                         `gorm:"not null;default:0" json:"likes"`
	LikedBy datatypes.JSONSlice[string] `json:"likedBy"`

	CreatedAt time.Time `gorm:"index:idx_comment_story_created,priority:2" json:"createdAt"`
	UpdatedAt time.Time `json:"-"`
}

// LikedByUser 判断某个用户是否已点赞。
func (c *Comment) LikedByUser(userID string) bool {
	return slices.Contains(c.LikedBy, userID)
}

// ToggleLike 切换某个用户的点赞状态，返回切换后是否处于已点赞。
func (c *Comment) ToggleLike(userID string) bool {
	if i := slices.Index(c.LikedBy, userID); i >= 0 {
		c.LikedBy = slices.Delete(c.LikedBy, i, i+1)
		c.Likes = len(c.LikedBy)
		return false
	}
	c.LikedBy = append(c.LikedBy, userID)
	c.Likes = len(c.LikedBy)
	return true
}
