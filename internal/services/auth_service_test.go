package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"chat-go/internal/auth"
	"chat-go/internal/config"
	"chat-go/internal/models"

	"gorm.io/gorm"
)

// memUserRepo 是测试用的内存用户仓库。
type memUserRepo struct {
	users  map[string]*models.User
	nextID uint
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]*models.User), nextID: 1}
}

func (r *memUserRepo) Create(ctx context.Context, user *models.User) error {
	user.ID = r.nextID
	r.nextID++
	r.users[user.Username] = user
	return nil
}

func (r *memUserRepo) GetByID(ctx context.Context, id uint) (*models.User, error) {
	for _, u := range r.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memUserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	u, ok := r.users[username]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (r *memUserRepo) Update(ctx context.Context, user *models.User) error {
	r.users[user.Username] = user
	return nil
}

func (r *memUserRepo) SearchUsers(ctx context.Context, query string, currentUserID uint) ([]models.User, error) {
	var out []models.User
	for _, u := range r.users {
		if u.ID == currentUserID {
			continue
		}
		if strings.Contains(strings.ToLower(u.Username), strings.ToLower(query)) ||
			strings.Contains(strings.ToLower(u.Nickname), strings.ToLower(query)) {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (r *memUserRepo) GetBasicInfoByID(ctx context.Context, id uint) (*models.UserBasicInfo, error) {
	u, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.UserBasicInfo{ID: u.ID, Username: u.Username, Nickname: u.Nickname, AvatarURL: u.AvatarURL}, nil
}

func (r *memUserRepo) GetMultipleBasicInfoByIDs(ctx context.Context, userIDs []uint) ([]*models.UserBasicInfo, error) {
	var out []*models.UserBasicInfo
	for _, id := range userIDs {
		if info, err := r.GetBasicInfoByID(ctx, id); err == nil {
			out = append(out, info)
		}
	}
	return out, nil
}

func testConfig() config.Config {
	return config.Config{
		Auth: config.AuthConfig{
			JWTSecretKey: "test-secret",
			JWTExpiry:    time.Hour,
		},
	}
}

func TestAuthServiceRegister(t *testing.T) {
	repo := newMemUserRepo()
	svc := NewAuthService(repo, testConfig())
	ctx := context.Background()

	token, user, err := svc.Register(ctx, "alice", "Alice", "s3cret!")
	if err != nil {
		t.Fatalf("Register 返回错误: %v", err)
	}
	if user.ID == 0 {
		t.Error("注册后应分配用户 ID")
	}
	if user.PasswordHash == "s3cret!" {
		t.Error("密码不应以明文存储")
	}
	if !strings.Contains(user.AvatarURL, "ui-avatars.com") {
		t.Errorf("应生成缺省头像, 实际: %q", user.AvatarURL)
	}

	// 注册即登录：令牌立即可用
	claims, err := auth.ValidateToken(ctx, token, "test-secret", nil)
	if err != nil {
		t.Fatalf("注册签发的令牌验证失败: %v", err)
	}
	if claims.UserID != user.ID || claims.Username != "alice" {
		t.Errorf("claims = {%d, %q}, 期望 {%d, alice}", claims.UserID, claims.Username, user.ID)
	}

	// 用户名唯一
	_, _, err = svc.Register(ctx, "alice", "Another", "other")
	if !errors.Is(err, ErrUserAlreadyExists) {
		t.Errorf("重复用户名应返回 ErrUserAlreadyExists, 实际: %v", err)
	}
}

func TestAuthServiceLogin(t *testing.T) {
	repo := newMemUserRepo()
	svc := NewAuthService(repo, testConfig())
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, "alice", "Alice", "s3cret!"); err != nil {
		t.Fatalf("Register 返回错误: %v", err)
	}

	token, user, err := svc.Login(ctx, "alice", "s3cret!")
	if err != nil {
		t.Fatalf("Login 返回错误: %v", err)
	}
	if token == "" || user.Username != "alice" {
		t.Errorf("Login 返回 (token=%q, user=%q)", token, user.Username)
	}

	if _, _, err := svc.Login(ctx, "alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("错误密码应返回 ErrInvalidCredentials, 实际: %v", err)
	}
	if _, _, err := svc.Login(ctx, "nobody", "s3cret!"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("未知用户应返回 ErrUserNotFound, 实际: %v", err)
	}
}

func TestUserServiceUpdateProfile(t *testing.T) {
	repo := newMemUserRepo()
	authSvc := NewAuthService(repo, testConfig())
	userSvc := NewUserService(repo)
	ctx := context.Background()

	_, user, err := authSvc.Register(ctx, "alice", "Alice", "s3cret!")
	if err != nil {
		t.Fatalf("Register 返回错误: %v", err)
	}

	updated, err := userSvc.UpdateUserProfile(ctx, user.ID, "Ally", "https://example.com/a.png", "hello")
	if err != nil {
		t.Fatalf("UpdateUserProfile 返回错误: %v", err)
	}
	if updated.Nickname != "Ally" || updated.Bio != "hello" {
		t.Errorf("更新后的资料 = {Nickname: %q, Bio: %q}", updated.Nickname, updated.Bio)
	}

	got, err := userSvc.GetUserProfile(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUserProfile 返回错误: %v", err)
	}
	if got.Nickname != "Ally" {
		t.Errorf("读取到的昵称 = %q, 期望 Ally", got.Nickname)
	}
}
