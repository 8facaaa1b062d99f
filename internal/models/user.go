package models

import "time"

// User 代表系统中的用户账号。
// 账号是本系统中唯一需要持久化的记录；消息和会话只存在于聊天服务进程内存中。
type User struct {
	BaseModel
	Username     string     `gorm:"type:varchar(100);uniqueIndex;not null" json:"username"`
	PasswordHash string     `gorm:"type:varchar(255);not null" json:"-"` // 不暴露密码哈希
	Nickname     string     `gorm:"type:varchar(100)" json:"nickname,omitempty"`
	AvatarURL    string     `gorm:"type:varchar(255)" json:"avatarUrl,omitempty"`
	LastSeenAt   *time.Time `json:"lastSeenAt,omitempty"`
	Bio          string     `gorm:"type:text" json:"bio,omitempty"`
}

// UserBasicInfo holds minimal public information about a user.
// This is the shape broadcast in presence updates and embedded in messages.
type UserBasicInfo struct {
	ID        uint   `json:"id"`
	Username  string `json:"username"`
	Nickname  string `json:"nickname,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// TableName 指定 User 模型的表名。
func (User) TableName() string {
	return "users"
}
