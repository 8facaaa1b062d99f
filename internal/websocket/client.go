package websocket

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"chat-go/internal/chat"
	"chat-go/internal/chattypes"
	"chat-go/internal/config"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Client 是 websocket 连接与 Router 之间的中间人，实现 chat.Conn。
// 每条连接有独立的 ID，同一用户的多台设备各自持有一个 Client。
type Client struct {
	id       string
	userID   uint
	username string

	router *chat.Router
	conn   *websocket.Conn

	// Buffered channel of outbound frames.
	send chan []byte
}

// ID 返回连接 ID。
func (c *Client) ID() string { return c.id }

// UserID 返回握手时验证过的用户 ID。
func (c *Client) UserID() uint { return c.userID }

// Username 返回握手时验证过的用户名。
func (c *Client) Username() string { return c.username }

// Send 非阻塞地投递一帧出站数据；缓冲区满时返回 false。
func (c *Client) Send(payload []byte) bool {
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// Close 关闭底层连接；读循环随之退出并触发注销。
func (c *Client) Close() {
	c.conn.Close()
}

// readPump 将 websocket 帧解码为事件信封并交给 Router。
// 同一连接的事件严格按读取顺序进入调度循环。
func (c *Client) readPump(wsCfg config.WebSocketConfig) {
	defer func() {
		c.router.Unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(int64(wsCfg.MaxMessageSizeBytes))
	c.conn.SetReadDeadline(time.Now().Add(time.Duration(wsCfg.PongWaitSeconds) * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(time.Duration(wsCfg.PongWaitSeconds) * time.Second))
		return nil
	})

	for {
		messageType, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket 错误 (连接: %s): %v", c.id, err)
			}
			break
		}

		if messageType != websocket.TextMessage {
			log.Printf("警告: 连接 %s 发送了非文本消息类型: %d", c.id, messageType)
			continue
		}

		var env chattypes.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			log.Printf("错误: 无法反序列化来自连接 %s 的事件信封: %v, 原始消息: %s", c.id, err, string(raw))
			continue
		}
		if env.Event == "" {
			log.Printf("警告: 连接 %s 发送了缺少事件名的信封，已忽略。", c.id)
			continue
		}

		c.router.Dispatch(c, env)
	}
}

// writePump 将出站帧写到 websocket 连接，并定期发送 ping 维持链路。
func (c *Client) writePump(wsCfg config.WebSocketConfig) {
	ticker := time.NewTicker(time.Duration(wsCfg.PingPeriodSeconds) * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(time.Duration(wsCfg.WriteWaitSeconds) * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(time.Duration(wsCfg.WriteWaitSeconds) * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeConn 为一条已认证的 HTTP 请求完成 websocket 升级，
// 构造 Client 并注册到 Router。
func ServeConn(router *chat.Router, userID uint, username string, w http.ResponseWriter, r *http.Request, wsCfg config.WebSocketConfig) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("ServeConn - Upgrade失败:", err)
		return
	}

	client := &Client{
		id:       uuid.NewString(),
		userID:   userID,
		username: username,
		router:   router,
		conn:     conn,
		send:     make(chan []byte, 256),
	}
	client.router.Register(client)

	go client.writePump(wsCfg)
	go client.readPump(wsCfg)
}
