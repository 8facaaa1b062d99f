package chatserver

import (
	"fmt"
	"log"
	"net/http"

	"chat-go/internal/auth"
	"chat-go/internal/chat"
	"chat-go/internal/config"
	ws "chat-go/internal/websocket"
)

// WebSocketHandler 负责处理 WebSocket 连接请求。
type WebSocketHandler struct {
	router    *chat.Router
	blacklist auth.TokenBlacklist
	cfg       config.Config // 用于获取 WebSocket 和 Auth 配置
}

// NewWebSocketHandler 创建一个新的 WebSocketHandler 实例。
func NewWebSocketHandler(router *chat.Router, blacklist auth.TokenBlacklist, cfg config.Config) *WebSocketHandler {
	return &WebSocketHandler{
		router:    router,
		blacklist: blacklist,
		cfg:       cfg,
	}
}

// ServeWS 处理传入的 WebSocket 请求。
// 认证必须在升级前完成：令牌无效时返回 401，不建立连接。
func (h *WebSocketHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		log.Println("WebSocket 连接尝试失败：缺少认证令牌")
		http.Error(w, "缺少认证令牌", http.StatusUnauthorized)
		return
	}

	claims, err := auth.ValidateToken(r.Context(), token, h.cfg.Auth.JWTSecretKey, h.blacklist)
	if err != nil {
		log.Printf("WebSocket 连接尝试失败：令牌无效: %v", err)
		http.Error(w, fmt.Sprintf("令牌无效: %v", err), http.StatusUnauthorized)
		return
	}

	log.Printf("用户 %s (ID: %d) 尝试连接 WebSocket", claims.Username, claims.UserID)

	// 将 HTTP 连接升级到 WebSocket，并将客户端注册到路由器
	ws.ServeConn(h.router, claims.UserID, claims.Username, w, r, h.cfg.WebSocket)
}
