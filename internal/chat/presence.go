package chat

import (
	"context"
	"fmt"
	"sort"

	"chat-go/internal/models"
	"chat-go/internal/storage"
)

// Presence 从会话注册表推导在线用户集合，并通过用户仓库解析为公开资料。
// 在线状态不单独存储，永远按会话数现算。
type Presence struct {
	registry *SessionRegistry
	users    storage.UserRepository
}

// NewPresence 创建 Presence 服务。
func NewPresence(registry *SessionRegistry, users storage.UserRepository) *Presence {
	return &Presence{registry: registry, users: users}
}

// OnlineUsers 返回去重后的在线用户公开资料。
// 返回顺序在单次调用内稳定（按用户 ID 升序）。
func (p *Presence) OnlineUsers(ctx context.Context) ([]*models.UserBasicInfo, error) {
	ids := p.registry.OnlineUserIDs()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	infos, err := p.users.GetMultipleBasicInfoByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("解析在线用户资料失败: %w", err)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos, nil
}
