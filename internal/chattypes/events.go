package chattypes

import "encoding/json"

// 客户端与服务端之间的事件名。
// 入站（客户端 → 服务端）：
const (
	EventRoomJoin     = "room:join"
	EventRoomLeave    = "room:leave"
	EventMessageSend  = "message:send"
	EventMessageReact = "message:react"
	EventMessageRead  = "message:read"
	EventTypingStart  = "typing:start"
	EventTypingStop   = "typing:stop"
	EventPrivateSend  = "private:send"
	EventPrivateLoad  = "private:load"
	EventPrivateRead  = "private:read"
)

// 出站（服务端 → 客户端）：
const (
	EventUserConnected         = "user:connected"
	EventUsersOnline           = "users:online"
	EventRoomMessages          = "room:messages"
	EventRoomUserJoined        = "room:user_joined"
	EventRoomUserLeft          = "room:user_left"
	EventMessageNew            = "message:new"
	EventMessageReactionUpdate = "message:reaction_update"
	EventMessageReadUpdate     = "message:read_update"
	EventTypingUpdate          = "typing:update"
	EventPrivateNew            = "private:new"
	EventPrivateMessages       = "private:messages"
	EventPrivateReadReceipt    = "private:read_receipt"
)

// Envelope is the frame exchanged over the websocket in both directions.
// Data 的具体结构由 Event 决定。
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}
