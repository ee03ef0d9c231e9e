package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Marwakhot/chronicles/internal/platform/logger"
	"github.com/Marwakhot/chronicles/pkg/token"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const MinPasswordLength = 6

var (
	// ErrInvalidCredentials 表示邮箱不存在或密码错误，两者不做区分。
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrMissingFields 表示注册或登录缺少必填字段。
	ErrMissingFields = errors.New("missing required fields")
	// ErrPasswordTooShort 表示密码长度不足。
	ErrPasswordTooShort = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
)

// Service 提供注册、登录与个人资料相关的业务逻辑。
type Service struct {
	repo   *Repository
	tokens *token.Issuer
	log    *logger.Logger
}

// NewService 创建用户服务。
func NewService(repo *Repository, tokens *token.Issuer, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{repo: repo, tokens: tokens, log: log.With("service", "user")}
}

// SignupInput 是注册所需的字段。
type SignupInput struct {
	Email    string
	Password string
	Username string
}

// ProfileUpdate 描述一次资料更新，nil 字段表示不修改。
type ProfileUpdate struct {
	Bio    *string
	Avatar *string
}

// newUserID 生成一个按时间有序的用户ID。
func newUserID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("无法生成UUID v7: %w", err)
	}
	return id.String(), nil
}

// Signup 创建新账户并返回签发的令牌。
// 新用户的累计统计全部为零、结局集合为空。
func (s *Service) Signup(ctx context.Context, in SignupInput) (*User, string, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	username := strings.TrimSpace(in.Username)
	if email == "" || in.Password == "" || username == "" {
		return nil, "", ErrMissingFields
	}
	if len(in.Password) < MinPasswordLength {
		return nil, "", ErrPasswordTooShort
	}

	exists, err := s.repo.ExistsByEmailOrUsername(ctx, email, username)
	if err != nil {
		return nil, "", err
	}
	if exists {
		return nil, "", ErrDuplicateUser
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("密码哈希失败: %w", err)
	}

	id, err := newUserID()
	if err != nil {
		return nil, "", err
	}
	u := &User{
		ID:               id,
		Email:            email,
		Username:         username,
		PasswordHash:     string(hashed),
		EndingsUnlocked:  []string{},
		StoriesCompleted: []string{},
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, "", err
	}

	signed, err := s.tokens.Issue(u.ID)
	if err != nil {
		return nil, "", err
	}
	s.log.Info("新用户注册成功", "user_id", u.ID)
	return u, signed, nil
}

// Login 校验凭据并签发令牌。
func (s *Service) Login(ctx context.Context, email, password string) (*User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, "", ErrMissingFields
	}

	u, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	signed, err := s.tokens.Issue(u.ID)
	if err != nil {
		return nil, "", err
	}
	return u, signed, nil
}

// GetProfile 读取用户完整资料。
func (s *Service) GetProfile(ctx context.Context, userID string) (*User, error) {
	return s.repo.GetByID(ctx, userID)
}

// UpdateProfile 只更新请求中提供的字段。
func (s *Service) UpdateProfile(ctx context.Context, userID string, in ProfileUpdate) error {
	fields := map[string]interface{}{}
	if in.Bio != nil {
		fields["bio"] = *in.Bio
	}
	if in.Avatar != nil {
		fields["avatar"] = *in.Avatar
	}
	return s.repo.UpdateProfile(ctx, userID, fields)
}

// Authenticate 解析令牌并返回用户ID，供中间件使用。
func (s *Service) Authenticate(tokenString string) (string, error) {
	return s.tokens.Parse(tokenString)
}
