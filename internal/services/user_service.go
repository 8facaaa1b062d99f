package services

import (
	"context"
	"fmt"

	"chat-go/internal/models"
	"chat-go/internal/storage"
)

// UserService 定义了用户相关服务的接口。
type UserService interface {
	GetUserProfile(ctx context.Context, userID uint) (*models.User, error)
	UpdateUserProfile(ctx context.Context, userID uint, nickname, avatarURL, bio string) (*models.User, error)
	SearchUsers(ctx context.Context, query string, currentUserID uint) ([]models.User, error)
}

// userService 是 UserService 的实现。
type userService struct {
	userRepo storage.UserRepository
}

// NewUserService 创建一个新的 UserService 实例。
func NewUserService(userRepo storage.UserRepository) UserService {
	return &userService{userRepo: userRepo}
}

// GetUserProfile 获取用户公开的个人资料。
func (s *userService) GetUserProfile(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("获取用户 %d 失败: %w", userID, err)
	}
	// 清理敏感信息，即使它在 JSON 中通常被忽略
	user.PasswordHash = ""
	return user, nil
}

// UpdateUserProfile 更新用户的个人资料。
func (s *userService) UpdateUserProfile(ctx context.Context, userID uint, nickname, avatarURL, bio string) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("更新用户资料失败，用户 %d 未找到: %w", userID, err)
	}

	// 按需更新字段
	updated := false
	if nickname != "" && user.Nickname != nickname {
		user.Nickname = nickname
		updated = true
	}
	if avatarURL != "" && user.AvatarURL != avatarURL {
		user.AvatarURL = avatarURL
		updated = true
	}
	if bio != "" && user.Bio != bio {
		user.Bio = bio
		updated = true
	}

	if !updated {
		user.PasswordHash = ""
		return user, nil // 没有字段被更新
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("更新用户 %d 资料失败: %w", userID, err)
	}
	user.PasswordHash = ""
	return user, nil
}

// SearchUsers 按用户名或昵称搜索其他用户。
func (s *userService) SearchUsers(ctx context.Context, query string, currentUserID uint) ([]models.User, error) {
	return s.userRepo.SearchUsers(ctx, query, currentUserID)
}
