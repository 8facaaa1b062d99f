package chat

import (
	"errors"
	"sort"
	"testing"
)

func TestSessionRegistryOpenClose(t *testing.T) {
	reg := NewSessionRegistry()

	first, err := reg.Open("conn-1", 7, "alice")
	if err != nil {
		t.Fatalf("Open 返回错误: %v", err)
	}
	if !first {
		t.Error("用户的第一条会话应返回 first=true")
	}

	// 同一用户的第二台设备不是上线边沿
	first, err = reg.Open("conn-2", 7, "alice")
	if err != nil {
		t.Fatalf("Open 返回错误: %v", err)
	}
	if first {
		t.Error("用户的第二条会话不应返回 first=true")
	}

	if !reg.Online(7) {
		t.Error("持有两条会话的用户应在线")
	}

	userID, last, err := reg.Close("conn-1")
	if err != nil {
		t.Fatalf("Close 返回错误: %v", err)
	}
	if userID != 7 {
		t.Errorf("Close 返回用户 %d, 期望 7", userID)
	}
	if last {
		t.Error("仍有另一条会话时不应返回 last=true")
	}
	if !reg.Online(7) {
		t.Error("关闭一条会话后用户应仍在线")
	}

	_, last, err = reg.Close("conn-2")
	if err != nil {
		t.Fatalf("Close 返回错误: %v", err)
	}
	if !last {
		t.Error("最后一条会话关闭应返回 last=true")
	}
	if reg.Online(7) {
		t.Error("全部会话关闭后用户应离线")
	}
}

func TestSessionRegistryDuplicateConnID(t *testing.T) {
	reg := NewSessionRegistry()

	if _, err := reg.Open("conn-1", 1, "alice"); err != nil {
		t.Fatalf("Open 返回错误: %v", err)
	}
	_, err := reg.Open("conn-1", 2, "bob")
	if !errors.Is(err, ErrDuplicateSession) {
		t.Errorf("重复的连接 ID 应返回 ErrDuplicateSession, 实际: %v", err)
	}

	// 原会话不受影响
	userID, err := reg.UserOf("conn-1")
	if err != nil || userID != 1 {
		t.Errorf("UserOf(conn-1) = (%d, %v), 期望 (1, nil)", userID, err)
	}
}

func TestSessionRegistryCloseUnknown(t *testing.T) {
	reg := NewSessionRegistry()

	_, _, err := reg.Close("nope")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("关闭未知会话应返回 ErrSessionNotFound, 实际: %v", err)
	}
}

func TestSessionRegistrySessionsOf(t *testing.T) {
	reg := NewSessionRegistry()
	reg.Open("conn-1", 7, "alice")
	reg.Open("conn-2", 7, "alice")
	reg.Open("conn-3", 8, "bob")

	conns := reg.SessionsOf(7)
	sort.Strings(conns)
	if len(conns) != 2 || conns[0] != "conn-1" || conns[1] != "conn-2" {
		t.Errorf("SessionsOf(7) = %v, 期望 [conn-1 conn-2]", conns)
	}

	if got := reg.SessionsOf(99); len(got) != 0 {
		t.Errorf("离线用户的 SessionsOf 应为空, 实际: %v", got)
	}

	ids := reg.OnlineUserIDs()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if len(ids) != 2 || ids[0] != 7 || ids[1] != 8 {
		t.Errorf("OnlineUserIDs = %v, 期望 [7 8]", ids)
	}
}

func TestSessionRegistryUsernameOf(t *testing.T) {
	reg := NewSessionRegistry()
	reg.Open("conn-1", 7, "alice")

	name, ok := reg.UsernameOf(7)
	if !ok || name != "alice" {
		t.Errorf("UsernameOf(7) = (%q, %v), 期望 (alice, true)", name, ok)
	}

	reg.Close("conn-1")
	if _, ok := reg.UsernameOf(7); ok {
		t.Error("用户离线后 UsernameOf 不应命中")
	}
}
