package chatserver

import (
	"encoding/json"
	"log"
	"net/http"

	"chat-go/internal/chat"
)

// RoomHandler 提供聊天室的只读 HTTP 查询接口。
type RoomHandler struct {
	router *chat.Router
}

// NewRoomHandler 创建一个新的 RoomHandler 实例。
func NewRoomHandler(router *chat.Router) *RoomHandler {
	return &RoomHandler{router: router}
}

// ListRoomsHandler 返回所有房间及其当前成员数量的快照。
func (h *RoomHandler) ListRoomsHandler(w http.ResponseWriter, r *http.Request) {
	rooms := h.router.RoomList()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(rooms); err != nil {
		log.Printf("序列化房间列表失败: %v", err)
	}
}
