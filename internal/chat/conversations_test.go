package chat

import (
	"fmt"
	"testing"

	"chat-go/internal/chattypes"
)

func TestPairID(t *testing.T) {
	tests := []struct {
		name string
		a, b uint
		want string
	}{
		{"升序", 1, 2, "1_2"},
		{"降序", 2, 1, "1_2"},
		{"自己", 5, 5, "5_5"},
		{"大数", 100, 3, "3_100"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PairID(tt.a, tt.b); got != tt.want {
				t.Errorf("PairID(%d, %d) = %q, 期望 %q", tt.a, tt.b, got, tt.want)
			}
			// 与参数顺序无关
			if PairID(tt.a, tt.b) != PairID(tt.b, tt.a) {
				t.Errorf("PairID(%d, %d) != PairID(%d, %d)", tt.a, tt.b, tt.b, tt.a)
			}
		})
	}
}

func TestConversationStoreAppendRecent(t *testing.T) {
	s := NewConversationStore(50)

	msg := s.Append(testSender(1), 2, "hi", "")
	if msg.ConversationID != "1_2" {
		t.Errorf("ConversationID = %q, 期望 1_2", msg.ConversationID)
	}
	if msg.Read {
		t.Error("新私聊消息的 read 应为 false")
	}
	if msg.Type != chattypes.TextMessageType {
		t.Errorf("缺省消息类型 = %q, 期望 text", msg.Type)
	}

	s.Append(testSender(2), 1, "hello back", "")

	// 无论从哪一方查询，都命中同一份会话
	fromA := s.Recent(1, 2)
	fromB := s.Recent(2, 1)
	if len(fromA) != 2 || len(fromB) != 2 {
		t.Fatalf("Recent 条数: A=%d B=%d, 期望各 2", len(fromA), len(fromB))
	}
	if fromA[0].ID != fromB[0].ID {
		t.Error("两个方向的查询应返回同一会话")
	}

	if got := s.Recent(1, 99); len(got) != 0 {
		t.Errorf("不存在的会话应返回空, 实际 %d 条", len(got))
	}
}

func TestConversationStoreReplayWindow(t *testing.T) {
	s := NewConversationStore(3)

	var ids []string
	for i := 0; i < 5; i++ {
		msg := s.Append(testSender(1), 2, fmt.Sprintf("m-%d", i), "")
		ids = append(ids, msg.ID)
	}

	recent := s.Recent(2, 1)
	if len(recent) != 3 {
		t.Fatalf("Recent 返回 %d 条, 期望回放上限 3 条", len(recent))
	}
	for i, msg := range recent {
		if msg.ID != ids[i+2] {
			t.Errorf("回放第 %d 条 ID = %q, 期望 %q", i, msg.ID, ids[i+2])
		}
	}
}

func TestConversationStoreMarkRead(t *testing.T) {
	s := NewConversationStore(50)

	s.Append(testSender(1), 2, "one", "")
	s.Append(testSender(1), 2, "two", "")
	s.Append(testSender(2), 1, "reply", "")

	// 用户 2 阅读来自用户 1 的消息：只翻转发给 2 的那两条
	convoID, marked := s.MarkRead(2, 1)
	if convoID != "1_2" {
		t.Errorf("conversationID = %q, 期望 1_2", convoID)
	}
	if marked != 2 {
		t.Errorf("marked = %d, 期望 2", marked)
	}

	for _, msg := range s.Recent(1, 2) {
		if msg.RecipientID == 2 && !msg.Read {
			t.Errorf("发给用户 2 的消息 %q 应已读", msg.ID)
		}
		if msg.RecipientID == 1 && msg.Read {
			t.Errorf("发给用户 1 的消息 %q 不应被标记", msg.ID)
		}
	}

	// read 只从 false 翻到 true，重复调用无副作用
	if _, marked := s.MarkRead(2, 1); marked != 0 {
		t.Errorf("重复 MarkRead 翻转了 %d 条, 期望 0", marked)
	}
}
