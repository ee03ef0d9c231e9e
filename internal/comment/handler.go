package comment

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Marwakhot/chronicles/internal/platform/logger"
	"github.com/Marwakhot/chronicles/internal/user"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *Service
	log *logger.Logger
}

func NewHandler(svc *Service, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{svc: svc, log: log.With("handler", "comment")}
}

type postRequest struct {
	StoryID  string `json:"storyId"`
	Comment  string `json:"comment"`
	ParentID string `json:"parentId"`
}

type likeRequest struct {
	CommentID string `json:"commentId" binding:"required"`
}

// ListComments 处理 GET /api/comments?storyId=
func (h *Handler) ListComments(c *gin.Context) {
	comments, err := h.svc.List(c.Request.Context(), c.Query("storyId"))
	if errors.Is(err, ErrMissingFields) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Story ID is required"})
		return
	}
	if err != nil {
		h.log.Error("读取评论失败", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "comments": comments})
}

// PostComment 处理 POST /api/comments
func (h *Handler) PostComment(c *gin.Context) {
	var body postRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Story ID and comment are required"})
		return
	}

	created, err := h.svc.Post(c.Request.Context(), user.CurrentUserID(c), PostInput(body))
	switch {
	case errors.Is(err, ErrMissingFields):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Story ID and comment are required"})
		return
	case errors.Is(err, ErrCommentTooLong):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Comment must be 500 characters or less"})
		return
	case errors.Is(err, user.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	case errors.Is(err, ErrParentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Parent comment not found"})
		return
	case err != nil:
		h.log.Error("发表评论失败", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "comment": created})
}

// LikeComment 处理 PATCH /api/comments
func (h *Handler) LikeComment(c *gin.Context) {
	var body likeRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Comment ID is required"})
		return
	}

	updated, err := h.svc.ToggleLike(c.Request.Context(), user.CurrentUserID(c), strings.TrimSpace(body.CommentID))
	if errors.Is(err, ErrCommentNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Comment not found"})
		return
	}
	if err != nil {
		h.log.Error("点赞失败", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "likes": updated.Likes, "liked": updated.LikedByUser(user.CurrentUserID(c))})
}

// DeleteComment 处理 DELETE /api/comments?commentId=
func (h *Handler) DeleteComment(c *gin.Context) {
	commentID := strings.TrimSpace(c.Query("commentId"))
	if commentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Comment ID is required"})
		return
	}

	err := h.svc.Delete(c.Request.Context(), user.CurrentUserID(c), commentID)
	switch {
	case errors.Is(err, ErrCommentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Comment not found"})
		return
	case errors.Is(err, ErrNotCommentOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only delete your own comments"})
		return
	case err != nil:
		h.log.Error("删除评论失败", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Comment deleted"})
}
