package chat

import (
	"sort"
	"sync"
)

// TypingCoordinator 维护每个房间当前正在输入的用户集合。
// 状态是瞬态的，随算随发，从不持久化。
// 服务端不做超时过期：停止输入由客户端显式上报；客户端失联时留下的
// 陈旧条目由断连级联清理（Clear）兜底移除。
type TypingCoordinator struct {
	mu    sync.Mutex
	rooms map[string]map[uint]bool // roomID -> 正在输入的用户
}

// NewTypingCoordinator 创建输入状态协调器。
func NewTypingCoordinator() *TypingCoordinator {
	return &TypingCoordinator{rooms: make(map[string]map[uint]bool)}
}

// Start 标记用户在某房间正在输入；返回集合是否发生变化。
func (t *TypingCoordinator) Start(roomID string, userID uint) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	users := t.rooms[roomID]
	if users == nil {
		users = make(map[uint]bool)
		t.rooms[roomID] = users
	}
	if users[userID] {
		return false
	}
	users[userID] = true
	return true
}

// Stop 清除用户在某房间的输入标记；返回集合是否发生变化。
// 用户在房间里成功发出消息时也会由 Router 隐式调用。
func (t *TypingCoordinator) Stop(roomID string, userID uint) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	users := t.rooms[roomID]
	if !users[userID] {
		return false
	}
	delete(users, userID)
	return true
}

// TypingUsers 返回房间当前正在输入的用户 ID。
func (t *TypingCoordinator) TypingUsers(roomID string) []uint {
	t.mu.Lock()
	defer t.mu.Unlock()

	ids := make([]uint, 0, len(t.rooms[roomID]))
	for id := range t.rooms[roomID] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Clear 移除用户在所有房间的输入标记，返回受影响的房间 ID。
// 断连级联清理调用此方法并向这些房间重播输入列表。
func (t *TypingCoordinator) Clear(userID uint) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var affected []string
	for roomID, users := range t.rooms {
		if users[userID] {
			delete(users, userID)
			affected = append(affected, roomID)
		}
	}
	sort.Strings(affected)
	return affected
}
