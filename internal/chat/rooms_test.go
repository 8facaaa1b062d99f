package chat

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"chat-go/internal/chattypes"
	"chat-go/internal/config"
	"chat-go/internal/models"
)

func testChatConfig(replayLimit int) config.ChatConfig {
	return config.ChatConfig{
		ReplayLimit: replayLimit,
		DefaultRoom: "general",
		Rooms: []config.RoomConfig{
			{ID: "general", Name: "General", Description: "General discussion"},
			{ID: "random", Name: "Random", Description: "Random topics"},
		},
	}
}

func testSender(id uint) *models.UserBasicInfo {
	return &models.UserBasicInfo{ID: id, Username: fmt.Sprintf("user%d", id)}
}

func TestRoomDirectoryJoinLeave(t *testing.T) {
	d := NewRoomDirectory(testChatConfig(50))

	if !d.Exists("general") || d.Exists("nope") {
		t.Fatal("Exists 对已配置房间应为真，对未知房间应为假")
	}

	if err := d.Join("general", 1); err != nil {
		t.Fatalf("Join 返回错误: %v", err)
	}
	// 重复加入幂等
	if err := d.Join("general", 1); err != nil {
		t.Fatalf("重复 Join 返回错误: %v", err)
	}
	if err := d.Join("random", 1); err != nil {
		t.Fatalf("Join 返回错误: %v", err)
	}

	if got := d.RoomsOf(1); !reflect.DeepEqual(got, []string{"general", "random"}) {
		t.Errorf("RoomsOf(1) = %v, 期望 [general random]", got)
	}

	if err := d.Join("nope", 1); !errors.Is(err, ErrUnknownRoom) {
		t.Errorf("加入未知房间应返回 ErrUnknownRoom, 实际: %v", err)
	}

	if err := d.Leave("random", 1); err != nil {
		t.Fatalf("Leave 返回错误: %v", err)
	}
	if got := d.RoomsOf(1); !reflect.DeepEqual(got, []string{"general"}) {
		t.Errorf("Leave 后 RoomsOf(1) = %v, 期望 [general]", got)
	}
}

func TestRoomDirectorySnapshot(t *testing.T) {
	d := NewRoomDirectory(testChatConfig(50))
	d.Join("general", 1)
	d.Join("general", 2)
	d.Join("random", 2)

	snap := d.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("Snapshot 返回 %d 个房间, 期望 2", len(snap))
	}
	// 按 ID 排序
	if snap[0].ID != "general" || snap[1].ID != "random" {
		t.Errorf("Snapshot 顺序错误: %v", snap)
	}
	if snap[0].UserCount != 2 || snap[1].UserCount != 1 {
		t.Errorf("Snapshot 成员数错误: general=%d random=%d", snap[0].UserCount, snap[1].UserCount)
	}
}

func TestRoomDirectoryAppend(t *testing.T) {
	d := NewRoomDirectory(testChatConfig(50))

	msg, err := d.Append("general", testSender(7), "hello", "")
	if err != nil {
		t.Fatalf("Append 返回错误: %v", err)
	}
	if msg.ID == "" {
		t.Error("消息应分配 ID")
	}
	if msg.Type != chattypes.TextMessageType {
		t.Errorf("缺省消息类型 = %q, 期望 text", msg.Type)
	}
	if !reflect.DeepEqual(msg.ReadBy, []uint{7}) {
		t.Errorf("新消息的 readBy = %v, 期望只含发送者 [7]", msg.ReadBy)
	}
	if len(msg.Reactions) != 0 {
		t.Errorf("新消息的 reactions 应为空, 实际: %v", msg.Reactions)
	}

	if _, err := d.Append("nope", testSender(7), "hello", ""); !errors.Is(err, ErrUnknownRoom) {
		t.Errorf("向未知房间发消息应返回 ErrUnknownRoom, 实际: %v", err)
	}
}

func TestRoomDirectoryMessageIDsStrictlyIncrease(t *testing.T) {
	d := NewRoomDirectory(testChatConfig(50))

	prev := ""
	for i := 0; i < 10; i++ {
		msg, err := d.Append("general", testSender(1), "m", "")
		if err != nil {
			t.Fatalf("Append 返回错误: %v", err)
		}
		if msg.ID == prev {
			t.Fatalf("连续两条消息拿到相同 ID %q", msg.ID)
		}
		prev = msg.ID
	}
}

func TestRoomDirectoryRecentReplayWindow(t *testing.T) {
	d := NewRoomDirectory(testChatConfig(3))

	var ids []string
	for i := 0; i < 5; i++ {
		msg, err := d.Append("general", testSender(1), fmt.Sprintf("msg-%d", i), "")
		if err != nil {
			t.Fatalf("Append 返回错误: %v", err)
		}
		ids = append(ids, msg.ID)
	}

	recent, err := d.Recent("general")
	if err != nil {
		t.Fatalf("Recent 返回错误: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("Recent 返回 %d 条, 期望回放上限 3 条", len(recent))
	}
	// 回放窗口内保持存储顺序
	for i, msg := range recent {
		if msg.ID != ids[i+2] {
			t.Errorf("回放第 %d 条 ID = %q, 期望 %q", i, msg.ID, ids[i+2])
		}
	}

	if _, err := d.Recent("nope"); !errors.Is(err, ErrUnknownRoom) {
		t.Errorf("回放未知房间应返回 ErrUnknownRoom, 实际: %v", err)
	}
}

func TestRoomDirectoryToggleReaction(t *testing.T) {
	d := NewRoomDirectory(testChatConfig(50))
	msg, _ := d.Append("general", testSender(1), "hello", "")

	reactions, err := d.ToggleReaction("general", msg.ID, "👍", 2)
	if err != nil {
		t.Fatalf("ToggleReaction 返回错误: %v", err)
	}
	if !reflect.DeepEqual(reactions["👍"], []uint{2}) {
		t.Errorf("首次切换后 reactions[👍] = %v, 期望 [2]", reactions["👍"])
	}

	reactions, err = d.ToggleReaction("general", msg.ID, "👍", 3)
	if err != nil {
		t.Fatalf("ToggleReaction 返回错误: %v", err)
	}
	if !reflect.DeepEqual(reactions["👍"], []uint{2, 3}) {
		t.Errorf("第二人切换后 reactions[👍] = %v, 期望 [2 3]", reactions["👍"])
	}

	// 再次切换即移除，两次切换互逆
	reactions, err = d.ToggleReaction("general", msg.ID, "👍", 2)
	if err != nil {
		t.Fatalf("ToggleReaction 返回错误: %v", err)
	}
	if !reflect.DeepEqual(reactions["👍"], []uint{3}) {
		t.Errorf("移除后 reactions[👍] = %v, 期望 [3]", reactions["👍"])
	}

	if _, err := d.ToggleReaction("general", "msg_nope", "👍", 2); !errors.Is(err, ErrMessageNotFound) {
		t.Errorf("未知消息应返回 ErrMessageNotFound, 实际: %v", err)
	}
	if _, err := d.ToggleReaction("nope", msg.ID, "👍", 2); !errors.Is(err, ErrUnknownRoom) {
		t.Errorf("未知房间应返回 ErrUnknownRoom, 实际: %v", err)
	}
}

func TestRoomDirectoryMarkRead(t *testing.T) {
	d := NewRoomDirectory(testChatConfig(50))
	msg, _ := d.Append("general", testSender(1), "hello", "")

	readBy, changed, err := d.MarkRead("general", msg.ID, 2)
	if err != nil {
		t.Fatalf("MarkRead 返回错误: %v", err)
	}
	if !changed {
		t.Error("新读者应报告 changed=true")
	}
	if !reflect.DeepEqual(readBy, []uint{1, 2}) {
		t.Errorf("readBy = %v, 期望 [1 2]", readBy)
	}

	// 已读集合单调：重复标记无变化
	readBy, changed, err = d.MarkRead("general", msg.ID, 2)
	if err != nil {
		t.Fatalf("MarkRead 返回错误: %v", err)
	}
	if changed {
		t.Error("重复标记不应报告 changed=true")
	}
	if !reflect.DeepEqual(readBy, []uint{1, 2}) {
		t.Errorf("重复标记后 readBy = %v, 期望不变 [1 2]", readBy)
	}

	// 发送者标记自己的消息也是无变化（已预置）
	_, changed, _ = d.MarkRead("general", msg.ID, 1)
	if changed {
		t.Error("发送者已在 readBy 中，不应报告变化")
	}
}

func TestRoomDirectoryCloneIsolation(t *testing.T) {
	d := NewRoomDirectory(testChatConfig(50))
	msg, _ := d.Append("general", testSender(1), "hello", "")

	// 修改返回的副本不应影响存储中的消息
	msg.ReadBy[0] = 999
	msg.Reactions["x"] = []uint{1}

	recent, _ := d.Recent("general")
	if recent[0].ReadBy[0] != 1 {
		t.Error("外部修改副本影响了存储中的 readBy")
	}
	if len(recent[0].Reactions) != 0 {
		t.Error("外部修改副本影响了存储中的 reactions")
	}
}
