package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"chat-go/internal/auth"
	"chat-go/internal/config"
	"chat-go/internal/models"
	"chat-go/internal/storage"

	"gorm.io/gorm"
)

var (
	ErrUserAlreadyExists  = errors.New("用户名已存在")
	ErrInvalidCredentials = errors.New("无效的用户名或密码")
	ErrUserNotFound       = errors.New("用户未找到")
)

// AuthService 定义了用户认证服务的接口。
type AuthService interface {
	Register(ctx context.Context, username, nickname, password string) (token string, user *models.User, err error)
	Login(ctx context.Context, username, password string) (token string, user *models.User, err error)
}

// authService 是 AuthService 的实现。
type authService struct {
	userRepo storage.UserRepository
	cfg      config.Config // 包含 AuthConfig
}

// NewAuthService 创建一个新的 AuthService 实例。
func NewAuthService(userRepo storage.UserRepository, cfg config.Config) AuthService {
	return &authService{
		userRepo: userRepo,
		cfg:      cfg,
	}
}

// Register 处理用户注册逻辑。注册成功后直接签发令牌。
func (s *authService) Register(ctx context.Context, username, nickname, password string) (string, *models.User, error) {
	// 检查用户名是否存在
	_, err := s.userRepo.GetByUsername(ctx, username)
	if err == nil {
		return "", nil, ErrUserAlreadyExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil, fmt.Errorf("检查用户名时出错: %w", err)
	}

	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return "", nil, fmt.Errorf("密码哈希失败: %w", err)
	}

	newUser := &models.User{
		Username:     username,
		Nickname:     nickname,
		PasswordHash: hashedPassword,
		AvatarURL:    defaultAvatarURL(username),
	}

	if err := s.userRepo.Create(ctx, newUser); err != nil {
		return "", nil, fmt.Errorf("创建用户失败: %w", err)
	}

	token, err := auth.GenerateToken(newUser.ID, newUser.Username, s.cfg.Auth)
	if err != nil {
		return "", nil, fmt.Errorf("生成令牌失败: %w", err)
	}

	return token, newUser, nil
}

// Login 处理用户登录逻辑。
func (s *authService) Login(ctx context.Context, username, password string) (string, *models.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil, ErrUserNotFound
	} else if err != nil {
		return "", nil, fmt.Errorf("通过用户名查找用户失败: %w", err)
	}

	if !auth.CheckPasswordHash(password, user.PasswordHash) {
		return "", nil, ErrInvalidCredentials
	}

	token, err := auth.GenerateToken(user.ID, user.Username, s.cfg.Auth)
	if err != nil {
		return "", nil, fmt.Errorf("生成令牌失败: %w", err)
	}

	return token, user, nil
}

// defaultAvatarURL 为新用户生成基于用户名的头像地址。
func defaultAvatarURL(username string) string {
	return "https://ui-avatars.com/api/?name=" + url.QueryEscape(username) + "&background=random"
}
