package progress

import (
	"errors"
	"net/http"

	"github.com/Marwakhot/chronicles/internal/platform/logger"
	"github.com/Marwakhot/chronicles/internal/user"
	"github.com/gin-gonic/gin"
)

// Handler 暴露进度保存与查询接口。
type Handler struct {
	recorder *Recorder
	log      *logger.Logger
}

func NewHandler(recorder *Recorder, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{recorder: recorder, log: log.With("handler", "progress")}
}

type saveRequest struct {
	StoryID  string                 `json:"storyId"`
	EndingID string                 `json:"endingId"`
	Choices  []string               `json:"choices"`
	Stats    map[string]interface{} `json:"stats"`
}

// SaveProgress 处理 POST /api/progress
func (h *Handler) SaveProgress(c *gin.Context) {
	var body saveRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误: " + err.Error()})
		return
	}

	err := h.recorder.Save(c.Request.Context(), user.CurrentUserID(c), SaveInput(body))
	switch {
	case errors.Is(err, ErrMissingStory):
		c.JSON(http.StatusBadRequest, gin.H{"error": "storyId is required"})
		return
	case errors.Is(err, user.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	case err != nil:
		h.log.Error("保存进度失败", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Progress saved"})
}

// GetProgress 处理 GET /api/progress
func (h *Handler) GetProgress(c *gin.Context) {
	records, err := h.recorder.Recent(c.Request.Context(), user.CurrentUserID(c))
	if err != nil {
		h.log.Error("读取进度失败", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "progress": records})
}
