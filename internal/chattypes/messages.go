package chattypes

import "time"

// MessageType defines the type of a message.
type MessageType string

const (
	TextMessageType  MessageType = "text"
	ImageMessageType MessageType = "image"
	EmojiMessageType MessageType = "emoji"
)

// RoomMessage 是房间内的一条消息。
// 发送者的用户名和头像冗余存储，客户端渲染时无需再查询用户资料。
// Reactions 和 ReadBy 在消息追加到日志后仍会原地更新。
type RoomMessage struct {
	ID        string            `json:"id"`
	RoomID    string            `json:"roomId"`
	UserID    uint              `json:"userId"`
	Username  string            `json:"username"`
	Avatar    string            `json:"avatar,omitempty"`
	Content   string            `json:"content"`
	Type      MessageType       `json:"type"`
	Timestamp time.Time         `json:"timestamp"`
	Reactions map[string][]uint `json:"reactions"` // emoji -> 点过该表情的用户（无重复）
	ReadBy    []uint            `json:"readBy"`    // 已读用户，只增不减
}

// Clone returns a copy whose Reactions and ReadBy are independent of the
// original, so callers can marshal it outside the directory's lock.
func (m *RoomMessage) Clone() RoomMessage {
	out := *m
	out.Reactions = make(map[string][]uint, len(m.Reactions))
	for emoji, users := range m.Reactions {
		out.Reactions[emoji] = append([]uint(nil), users...)
	}
	out.ReadBy = append([]uint(nil), m.ReadBy...)
	return out
}

// PrivateMessage 是两个用户之间的一条私聊消息。
// Read 只会从 false 翻转为 true，由接收方确认时触发。
type PrivateMessage struct {
	ID             string      `json:"id"`
	ConversationID string      `json:"conversationId"`
	SenderID       uint        `json:"senderId"`
	RecipientID    uint        `json:"recipientId"`
	SenderName     string      `json:"senderName"`
	Avatar         string      `json:"avatar,omitempty"`
	Content        string      `json:"content"`
	Type           MessageType `json:"type"`
	Timestamp      time.Time   `json:"timestamp"`
	Read           bool        `json:"read"`
}

// RoomInfo 是房间目录对外的只读视图（REST 房间列表用）。
type RoomInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	UserCount   int    `json:"userCount"`
}
