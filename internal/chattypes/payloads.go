package chattypes

import "chat-go/internal/models"

// 入站事件的 Data 结构。

type RoomRequest struct {
	RoomID string `json:"roomId"`
}

type SendMessageRequest struct {
	RoomID  string      `json:"roomId"`
	Content string      `json:"content"`
	Type    MessageType `json:"type,omitempty"` // 缺省按 text 处理
}

type ReactRequest struct {
	MessageID string `json:"messageId"`
	RoomID    string `json:"roomId"`
	Reaction  string `json:"reaction"`
}

type ReadRequest struct {
	MessageID string `json:"messageId"`
	RoomID    string `json:"roomId"`
}

type PrivateSendRequest struct {
	RecipientID uint        `json:"recipientId"`
	Content     string      `json:"content"`
	Type        MessageType `json:"type,omitempty"`
}

type PrivateLoadRequest struct {
	UserID uint `json:"userId"` // 会话另一方
}

type PrivateReadRequest struct {
	SenderID uint `json:"senderId"` // 要确认已读的消息来自谁
}

// 出站事件的 Data 结构。
// users:online 的 Data 直接是 []*models.UserBasicInfo。

type UserConnectedPayload struct {
	User *models.UserBasicInfo `json:"user"`
}

type RoomMessagesPayload struct {
	RoomID   string        `json:"roomId"`
	Messages []RoomMessage `json:"messages"`
}

type RoomUserJoinedPayload struct {
	RoomID string                `json:"roomId"`
	User   *models.UserBasicInfo `json:"user"`
}

type RoomUserLeftPayload struct {
	RoomID   string `json:"roomId"`
	UserID   uint   `json:"userId"`
	Username string `json:"username"`
}

type ReactionUpdatePayload struct {
	MessageID string            `json:"messageId"`
	Reactions map[string][]uint `json:"reactions"`
}

type ReadUpdatePayload struct {
	MessageID string `json:"messageId"`
	ReadBy    []uint `json:"readBy"`
}

type TypingUpdatePayload struct {
	RoomID string   `json:"roomId"`
	Users  []string `json:"users"` // 正在输入的用户名
}

type PrivateMessagesPayload struct {
	RecipientID uint             `json:"recipientId"` // 会话另一方
	Messages    []PrivateMessage `json:"messages"`
}

type PrivateReadReceiptPayload struct {
	UserID         uint   `json:"userId"` // 完成阅读的一方
	ConversationID string `json:"conversationId"`
}
