package chat

import "errors"

var (
	// ErrDuplicateSession 表示同一个连接 ID 被重复注册，属于契约违规，
	// 该连接会被强制关闭。
	ErrDuplicateSession = errors.New("连接 ID 已注册")
	// ErrSessionNotFound 表示按连接 ID 找不到会话；注销时遇到只记录不致命。
	ErrSessionNotFound = errors.New("会话不存在")
	// ErrUnknownRoom 表示操作引用了不存在的房间；按尽力而为语义静默忽略。
	ErrUnknownRoom = errors.New("房间不存在")
	// ErrMessageNotFound 表示在房间日志里找不到目标消息。
	ErrMessageNotFound = errors.New("消息不存在")
)
