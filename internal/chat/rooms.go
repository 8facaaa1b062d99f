package chat

import (
	"sort"
	"sync"
	"time"

	"chat-go/internal/chattypes"
	"chat-go/internal/config"
	"chat-go/internal/models"
)

// roomState 是单个房间的内部状态：成员集合和只追加的消息日志。
// 成员关系以用户为单位；连接级别的投递目标由 Router 单独维护，两者不混用。
type roomState struct {
	id          string
	name        string
	description string
	members     map[uint]bool
	log         []*chattypes.RoomMessage
}

// RoomDirectory 持有启动时创建的静态房间集合。
// 房间永不删除；消息日志只追加、不重排，存储顺序即权威顺序。
type RoomDirectory struct {
	mu          sync.RWMutex
	rooms       map[string]*roomState
	replayLimit int
}

// NewRoomDirectory 按配置创建房间目录。
func NewRoomDirectory(cfg config.ChatConfig) *RoomDirectory {
	d := &RoomDirectory{
		rooms:       make(map[string]*roomState),
		replayLimit: cfg.ReplayLimit,
	}
	if d.replayLimit <= 0 {
		d.replayLimit = 50
	}
	for _, rc := range cfg.Rooms {
		d.rooms[rc.ID] = &roomState{
			id:          rc.ID,
			name:        rc.Name,
			description: rc.Description,
			members:     make(map[uint]bool),
		}
	}
	return d
}

// Exists 报告房间是否已注册。
func (d *RoomDirectory) Exists(roomID string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	_, ok := d.rooms[roomID]
	return ok
}

// Join 将用户加入房间成员集合；重复加入是幂等的。
func (d *RoomDirectory) Join(roomID string, userID uint) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	room, ok := d.rooms[roomID]
	if !ok {
		return ErrUnknownRoom
	}
	room.members[userID] = true
	return nil
}

// Leave 将用户移出房间成员集合。
func (d *RoomDirectory) Leave(roomID string, userID uint) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	room, ok := d.rooms[roomID]
	if !ok {
		return ErrUnknownRoom
	}
	delete(room.members, userID)
	return nil
}

// RoomsOf 返回用户是成员的全部房间 ID（断连级联清理用）。
func (d *RoomDirectory) RoomsOf(userID uint) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var ids []string
	for id, room := range d.rooms {
		if room.members[userID] {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Append 构造一条新的房间消息并追加到日志。
// readBy 初始只含发送者自己。
func (d *RoomDirectory) Append(roomID string, sender *models.UserBasicInfo, content string, msgType chattypes.MessageType) (chattypes.RoomMessage, error) {
	if msgType == "" {
		msgType = chattypes.TextMessageType
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	room, ok := d.rooms[roomID]
	if !ok {
		return chattypes.RoomMessage{}, ErrUnknownRoom
	}

	msg := &chattypes.RoomMessage{
		ID:        nextMessageID(),
		RoomID:    roomID,
		UserID:    sender.ID,
		Username:  sender.Username,
		Avatar:    sender.AvatarURL,
		Content:   content,
		Type:      msgType,
		Timestamp: time.Now(),
		Reactions: make(map[string][]uint),
		ReadBy:    []uint{sender.ID},
	}
	room.log = append(room.log, msg)
	return msg.Clone(), nil
}

// Recent 返回房间日志中最近的若干条消息（回放窗口），按存储顺序。
func (d *RoomDirectory) Recent(roomID string) ([]chattypes.RoomMessage, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	room, ok := d.rooms[roomID]
	if !ok {
		return nil, ErrUnknownRoom
	}

	start := 0
	if len(room.log) > d.replayLimit {
		start = len(room.log) - d.replayLimit
	}
	out := make([]chattypes.RoomMessage, 0, len(room.log)-start)
	for _, msg := range room.log[start:] {
		out = append(out, msg.Clone())
	}
	return out, nil
}

// ToggleReaction 切换用户对某条消息的表情回应：不存在则加入，已存在则移除。
// 连续两次切换恢复原状。返回更新后的完整回应表。
func (d *RoomDirectory) ToggleReaction(roomID, messageID, emoji string, userID uint) (map[string][]uint, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	msg, err := d.findMessage(roomID, messageID)
	if err != nil {
		return nil, err
	}

	users := msg.Reactions[emoji]
	idx := -1
	for i, id := range users {
		if id == userID {
			idx = i
			break
		}
	}
	if idx >= 0 {
		msg.Reactions[emoji] = append(users[:idx], users[idx+1:]...)
	} else {
		msg.Reactions[emoji] = append(users, userID)
	}

	snapshot := msg.Clone()
	return snapshot.Reactions, nil
}

// MarkRead 将用户加入消息的已读集合；已在集合中则无变化。
// 集合单调增长，永不移除。返回更新后的已读集合和是否发生了变化。
func (d *RoomDirectory) MarkRead(roomID, messageID string, userID uint) (readBy []uint, changed bool, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	msg, err := d.findMessage(roomID, messageID)
	if err != nil {
		return nil, false, err
	}

	for _, id := range msg.ReadBy {
		if id == userID {
			return append([]uint(nil), msg.ReadBy...), false, nil
		}
	}
	msg.ReadBy = append(msg.ReadBy, userID)
	return append([]uint(nil), msg.ReadBy...), true, nil
}

// Snapshot 返回全部房间的只读视图，userCount 为成员数。
func (d *RoomDirectory) Snapshot() []chattypes.RoomInfo {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]chattypes.RoomInfo, 0, len(d.rooms))
	for _, room := range d.rooms {
		out = append(out, chattypes.RoomInfo{
			ID:          room.id,
			Name:        room.name,
			Description: room.description,
			UserCount:   len(room.members),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// findMessage 在房间日志中定位消息。调用方必须持有写锁。
func (d *RoomDirectory) findMessage(roomID, messageID string) (*chattypes.RoomMessage, error) {
	room, ok := d.rooms[roomID]
	if !ok {
		return nil, ErrUnknownRoom
	}
	for _, msg := range room.log {
		if msg.ID == messageID {
			return msg, nil
		}
	}
	return nil, ErrMessageNotFound
}
