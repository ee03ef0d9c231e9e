package user

import (
	"errors"
	"net/http"

	"github.com/Marwakhot/chronicles/internal/platform/logger"
	"github.com/gin-gonic/gin"
)

// Handler 暴露账户与个人资料相关的HTTP接口。
type Handler struct {
	svc *Service
	log *logger.Logger
}

// NewHandler 创建用户接口处理器。
func NewHandler(svc *Service, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{svc: svc, log: log.With("handler", "user")}
}

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type profileRequest struct {
	Bio    *string `json:"bio"`
	Avatar *string `json:"avatar"`
}

// Signup 处理注册请求
func (h *Handler) Signup(c *gin.Context) {
	var body signupRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email, password, and username are required"})
		return
	}

	u, signed, err := h.svc.Signup(c.Request.Context(), SignupInput(body))
	switch {
	case errors.Is(err, ErrMissingFields):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email, password, and username are required"})
		return
	case errors.Is(err, ErrPasswordTooShort):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Password must be at least 6 characters"})
		return
	case errors.Is(err, ErrDuplicateUser):
		c.JSON(http.StatusConflict, gin.H{"error": "Email or username already exists"})
		return
	case err != nil:
		h.log.Error("注册失败", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"token":   signed,
		"user":    PublicUser{ID: u.ID, Email: u.Email, Username: u.Username},
	})
}

// Login 处理登录请求
func (h *Handler) Login(c *gin.Context) {
	var body loginRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password are required"})
		return
	}

	u, signed, err := h.svc.Login(c.Request.Context(), body.Email, body.Password)
	switch {
	case errors.Is(err, ErrMissingFields):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password are required"})
		return
	case errors.Is(err, ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	case err != nil:
		h.log.Error("登录失败", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"token":   signed,
		"user":    u.ToPublic(),
	})
}

// GetProfile 返回当前用户的资料
func (h *Handler) GetProfile(c *gin.Context) {
	u, err := h.svc.GetProfile(c.Request.Context(), CurrentUserID(c))
	if errors.Is(err, ErrUserNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if err != nil {
		h.log.Error("读取个人资料失败", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": u.ToPublic()})
}

// UpdateProfile 更新当前用户的简介与头像
func (h *Handler) UpdateProfile(c *gin.Context) {
	var body profileRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误: " + err.Error()})
		return
	}

	err := h.svc.UpdateProfile(c.Request.Context(), CurrentUserID(c), ProfileUpdate(body))
	if errors.Is(err, ErrUserNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if err != nil {
		h.log.Error("更新个人资料失败", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Profile updated successfully"})
}
