package chat

import (
	"fmt"
	"sync"
	"time"

	"chat-go/internal/chattypes"
	"chat-go/internal/models"
)

// ConversationStore 按无序用户对保存私聊日志。
// 会话在首条消息时惰性创建，之后永不删除；日志只追加。
type ConversationStore struct {
	mu          sync.RWMutex
	logs        map[string][]*chattypes.PrivateMessage // conversationID -> 日志
	replayLimit int
}

// NewConversationStore 创建私聊存储。
func NewConversationStore(replayLimit int) *ConversationStore {
	if replayLimit <= 0 {
		replayLimit = 50
	}
	return &ConversationStore{
		logs:        make(map[string][]*chattypes.PrivateMessage),
		replayLimit: replayLimit,
	}
}

// PairID 为一对用户计算规范会话 ID，与参数顺序无关：
// PairID(a, b) == PairID(b, a)。
func PairID(a, b uint) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d_%d", a, b)
}

// Append 构造一条私聊消息并追加到对应会话，read 初始为 false。
func (s *ConversationStore) Append(sender *models.UserBasicInfo, recipientID uint, content string, msgType chattypes.MessageType) chattypes.PrivateMessage {
	if msgType == "" {
		msgType = chattypes.TextMessageType
	}

	msg := &chattypes.PrivateMessage{
		ID:             nextMessageID(),
		ConversationID: PairID(sender.ID, recipientID),
		SenderID:       sender.ID,
		RecipientID:    recipientID,
		SenderName:     sender.Username,
		Avatar:         sender.AvatarURL,
		Content:        content,
		Type:           msgType,
		Timestamp:      time.Now(),
		Read:           false,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs[msg.ConversationID] = append(s.logs[msg.ConversationID], msg)
	return *msg
}

// Recent 返回两名用户之间会话的最近消息，无论从哪一方发起查询。
func (s *ConversationStore) Recent(a, b uint) []chattypes.PrivateMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log := s.logs[PairID(a, b)]
	start := 0
	if len(log) > s.replayLimit {
		start = len(log) - s.replayLimit
	}
	out := make([]chattypes.PrivateMessage, 0, len(log)-start)
	for _, msg := range log[start:] {
		out = append(out, *msg)
	}
	return out
}

// MarkRead 将会话中所有发给 reader 的未读消息批量置为已读。
// read 只从 false 翻到 true，重复调用无副作用。
// 返回会话 ID 和本次实际翻转的消息数。
func (s *ConversationStore) MarkRead(reader, other uint) (conversationID string, marked int) {
	conversationID = PairID(reader, other)

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, msg := range s.logs[conversationID] {
		if msg.RecipientID == reader && !msg.Read {
			msg.Read = true
			marked++
		}
	}
	return conversationID, marked
}
