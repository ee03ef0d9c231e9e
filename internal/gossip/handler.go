package gossip

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/Marwakhot/chronicles/internal/platform/logger"
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
	return &Handler{svc: svc, log: log.With("handler", "gossip")}
}

// Generate 处理 POST /api/gossip/generate，立即执行一次生成。
func (h *Handler) Generate(c *gin.Context) {
	result, err := h.svc.Generate(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate gossip"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"gossipGenerated": result.Generated,
		"eligibleUsers":   result.Eligible,
		"stored":          result.Stored,
		"edition":         result.Edition,
		"message":         fmt.Sprintf("Generated %d gossip items", result.Generated),
	})
}

// List 处理 GET /api/gossip?limit=N，非法的 limit 按默认值处理。
func (h *Handler) List(c *gin.Context) {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil {
		limit = 0
	}

	feed, err := h.svc.Feed(c.Request.Context(), limit)
	if err != nil {
		h.log.Error("读取八卦失败", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch gossip"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"gossip":  feed.Items,
		"edition": feed.Edition,
	})
}
