package chat

import (
	"context"
	"encoding/json"
	"log"

	"chat-go/internal/chattypes"
	"chat-go/internal/config"
	"chat-go/internal/models"
	"chat-go/internal/storage"
)

// Conn 是 Router 眼中的一条客户端连接。
// 由 websocket 层实现；Send 非阻塞，缓冲区满时返回 false。
type Conn interface {
	ID() string
	UserID() uint
	Username() string
	Send(payload []byte) bool
	Close()
}

// inboundEvent 是一条待处理的入站事件。
type inboundEvent struct {
	conn Conn
	env  chattypes.Envelope
}

// Router 是实时核心的调度器：入站事件经由单一 goroutine 顺序处理，
// 每个事件处理完才会开始下一个，处理器之间互不观察到中间状态。
// 同一连接的事件按到达顺序处理；不同连接之间只保证到达序。
//
// Router 同时维护两套独立的关系：连接到房间的绑定（投递目标）和
// 用户到房间的成员关系（由 RoomDirectory 持有），二者分别失效。
type Router struct {
	cfg      config.ChatConfig
	sessions *SessionRegistry
	rooms    *RoomDirectory
	convos   *ConversationStore
	typing   *TypingCoordinator
	presence *Presence
	users    storage.UserRepository

	register   chan Conn
	unregister chan Conn
	inbound    chan inboundEvent

	conns     map[string]Conn            // connID -> 连接
	connRooms map[string]map[string]bool // connID -> 绑定的房间
	roomConns map[string]map[string]bool // roomID -> 绑定的连接

	handlers map[string]func(Conn, json.RawMessage)
}

// NewRouter 组装调度器。各状态服务由外部注入，便于单独测试。
func NewRouter(cfg config.ChatConfig, sessions *SessionRegistry, rooms *RoomDirectory, convos *ConversationStore, typing *TypingCoordinator, presence *Presence, users storage.UserRepository) *Router {
	r := &Router{
		cfg:        cfg,
		sessions:   sessions,
		rooms:      rooms,
		convos:     convos,
		typing:     typing,
		presence:   presence,
		users:      users,
		register:   make(chan Conn),
		unregister: make(chan Conn),
		inbound:    make(chan inboundEvent, 256),
		conns:      make(map[string]Conn),
		connRooms:  make(map[string]map[string]bool),
		roomConns:  make(map[string]map[string]bool),
	}

	// 事件名到处理器的调度表。
	r.handlers = map[string]func(Conn, json.RawMessage){
		chattypes.EventRoomJoin:     r.handleRoomJoin,
		chattypes.EventRoomLeave:    r.handleRoomLeave,
		chattypes.EventMessageSend:  r.handleMessageSend,
		chattypes.EventMessageReact: r.handleMessageReact,
		chattypes.EventMessageRead:  r.handleMessageRead,
		chattypes.EventTypingStart:  r.handleTypingStart,
		chattypes.EventTypingStop:   r.handleTypingStop,
		chattypes.EventPrivateSend:  r.handlePrivateSend,
		chattypes.EventPrivateLoad:  r.handlePrivateLoad,
		chattypes.EventPrivateRead:  r.handlePrivateRead,
	}
	return r
}

// Register 将一条完成握手的连接交给调度循环。
func (r *Router) Register(c Conn) { r.register <- c }

// Unregister 通知调度循环连接已断开。
func (r *Router) Unregister(c Conn) { r.unregister <- c }

// Dispatch 将一条入站事件交给调度循环。
func (r *Router) Dispatch(c Conn, env chattypes.Envelope) {
	r.inbound <- inboundEvent{conn: c, env: env}
}

// RoomList 返回房间目录的只读视图（REST 房间列表用）。
func (r *Router) RoomList() []chattypes.RoomInfo {
	return r.rooms.Snapshot()
}

// Run 启动调度循环，应在独立的 goroutine 中运行。
func (r *Router) Run() {
	log.Println("Router 调度循环已启动。")
	for {
		select {
		case c := <-r.register:
			r.handleRegister(c)
		case c := <-r.unregister:
			r.handleUnregister(c)
		case ev := <-r.inbound:
			r.handleInbound(ev)
		}
	}
}

// handleInbound 按调度表分发一条入站事件。
// 单个事件的错误只记录日志，绝不影响进程或其他连接。
func (r *Router) handleInbound(ev inboundEvent) {
	handler, ok := r.handlers[ev.env.Event]
	if !ok {
		log.Printf("收到未知事件 %q (连接: %s)，已忽略。", ev.env.Event, ev.conn.ID())
		return
	}
	handler(ev.conn, ev.env.Data)
}

// handleRegister 完成连接握手后的注册流程：
// 登记会话、问候新连接、按需广播在线列表、自动加入默认房间。
func (r *Router) handleRegister(c Conn) {
	first, err := r.sessions.Open(c.ID(), c.UserID(), c.Username())
	if err != nil {
		// 重复的连接 ID 属于契约违规，断开这条连接了事。
		log.Printf("注册会话失败 (连接: %s, 用户: %d): %v", c.ID(), c.UserID(), err)
		c.Close()
		return
	}
	r.conns[c.ID()] = c
	r.connRooms[c.ID()] = make(map[string]bool)
	log.Printf("客户端已连接: 用户 %s (ID: %d, 连接: %s)", c.Username(), c.UserID(), c.ID())

	profile := r.profileOf(c.UserID(), c.Username())
	r.sendEvent(c, chattypes.EventUserConnected, chattypes.UserConnectedPayload{User: profile})

	// 只有离线转在线的边沿才向所有人广播；第二台设备上线时
	// 仅把当前在线列表发给新连接自己。
	if first {
		r.broadcastPresence()
	} else {
		online, err := r.presence.OnlineUsers(context.Background())
		if err != nil {
			log.Printf("获取在线用户列表失败: %v", err)
		} else {
			r.sendEvent(c, chattypes.EventUsersOnline, online)
		}
	}

	if r.cfg.DefaultRoom != "" {
		r.joinRoom(c, r.cfg.DefaultRoom)
	}
}

// handleUnregister 执行断连级联清理。顺序是契约的一部分：
// 先让在线列表反映离线，再广播退房，最后清理输入状态。
func (r *Router) handleUnregister(c Conn) {
	// 被拒的重复连接断开时也会走到这里；同 ID 在注册表里的记录
	// 属于原有连接，只有登记在案的那条连接本身才能触发清理。
	if r.conns[c.ID()] != c {
		log.Printf("忽略未注册连接的注销 (连接: %s)", c.ID())
		return
	}

	userID, last, err := r.sessions.Close(c.ID())
	if err != nil {
		log.Printf("注销会话时未找到记录 (连接: %s): %v", c.ID(), err)
		r.dropConn(c)
		return
	}
	r.dropConn(c)
	log.Printf("客户端已断开: 用户 %d (连接: %s)", userID, c.ID())

	if last {
		r.broadcastPresence()

		username, _ := r.sessions.UsernameOf(userID)
		if username == "" {
			username = c.Username()
		}
		for _, roomID := range r.rooms.RoomsOf(userID) {
			if err := r.rooms.Leave(roomID, userID); err != nil {
				continue
			}
			r.broadcastRoom(roomID, chattypes.EventRoomUserLeft, chattypes.RoomUserLeftPayload{
				RoomID:   roomID,
				UserID:   userID,
				Username: username,
			}, "")
		}
	}

	for _, roomID := range r.typing.Clear(userID) {
		r.broadcastTypingUpdate(roomID, "")
	}
}

// dropConn 清除连接级别的投递状态。
func (r *Router) dropConn(c Conn) {
	delete(r.conns, c.ID())
	for roomID := range r.connRooms[c.ID()] {
		delete(r.roomConns[roomID], c.ID())
	}
	delete(r.connRooms, c.ID())
}

func (r *Router) handleRoomJoin(c Conn, data json.RawMessage) {
	var req chattypes.RoomRequest
	if err := json.Unmarshal(data, &req); err != nil {
		log.Printf("room:join 载荷无效 (连接: %s): %v", c.ID(), err)
		return
	}
	r.joinRoom(c, req.RoomID)
}

// joinRoom 把用户加入房间成员、把连接绑定到房间的广播受众，
// 回放最近消息，并向房间广播入房通知。
// 同一用户的多条连接需要各自绑定：房间广播的目标是连接而不是用户。
func (r *Router) joinRoom(c Conn, roomID string) {
	if err := r.rooms.Join(roomID, c.UserID()); err != nil {
		log.Printf("加入房间 %q 失败 (用户: %d): %v", roomID, c.UserID(), err)
		return
	}

	r.connRooms[c.ID()][roomID] = true
	if r.roomConns[roomID] == nil {
		r.roomConns[roomID] = make(map[string]bool)
	}
	r.roomConns[roomID][c.ID()] = true

	messages, err := r.rooms.Recent(roomID)
	if err == nil {
		r.sendEvent(c, chattypes.EventRoomMessages, chattypes.RoomMessagesPayload{
			RoomID:   roomID,
			Messages: messages,
		})
	}

	r.broadcastRoom(roomID, chattypes.EventRoomUserJoined, chattypes.RoomUserJoinedPayload{
		RoomID: roomID,
		User:   r.profileOf(c.UserID(), c.Username()),
	}, "")
}

func (r *Router) handleRoomLeave(c Conn, data json.RawMessage) {
	var req chattypes.RoomRequest
	if err := json.Unmarshal(data, &req); err != nil {
		log.Printf("room:leave 载荷无效 (连接: %s): %v", c.ID(), err)
		return
	}
	if !r.rooms.Exists(req.RoomID) {
		log.Printf("离开未知房间 %q (用户: %d)，已忽略。", req.RoomID, c.UserID())
		return
	}

	delete(r.connRooms[c.ID()], req.RoomID)
	delete(r.roomConns[req.RoomID], c.ID())

	// 只有用户的最后一条绑定连接离开时才解除成员关系并广播。
	if r.userBoundToRoom(c.UserID(), req.RoomID) {
		return
	}
	if err := r.rooms.Leave(req.RoomID, c.UserID()); err != nil {
		return
	}
	r.broadcastRoom(req.RoomID, chattypes.EventRoomUserLeft, chattypes.RoomUserLeftPayload{
		RoomID:   req.RoomID,
		UserID:   c.UserID(),
		Username: c.Username(),
	}, "")
}

// userBoundToRoom 报告某用户是否仍有连接绑定在房间上。
func (r *Router) userBoundToRoom(userID uint, roomID string) bool {
	for _, connID := range r.sessions.SessionsOf(userID) {
		if r.connRooms[connID][roomID] {
			return true
		}
	}
	return false
}

func (r *Router) handleMessageSend(c Conn, data json.RawMessage) {
	var req chattypes.SendMessageRequest
	if err := json.Unmarshal(data, &req); err != nil {
		log.Printf("message:send 载荷无效 (连接: %s): %v", c.ID(), err)
		return
	}

	msg, err := r.rooms.Append(req.RoomID, r.profileOf(c.UserID(), c.Username()), req.Content, req.Type)
	if err != nil {
		log.Printf("发送消息到房间 %q 失败 (用户: %d): %v", req.RoomID, c.UserID(), err)
		return
	}

	r.broadcastRoom(req.RoomID, chattypes.EventMessageNew, msg, "")

	// 发出消息隐含停止输入。
	if r.typing.Stop(req.RoomID, c.UserID()) {
		r.broadcastTypingUpdate(req.RoomID, c.ID())
	}
}

func (r *Router) handleMessageReact(c Conn, data json.RawMessage) {
	var req chattypes.ReactRequest
	if err := json.Unmarshal(data, &req); err != nil {
		log.Printf("message:react 载荷无效 (连接: %s): %v", c.ID(), err)
		return
	}

	reactions, err := r.rooms.ToggleReaction(req.RoomID, req.MessageID, req.Reaction, c.UserID())
	if err != nil {
		// 消息或房间不存在：按尽力而为语义静默丢弃。
		log.Printf("切换回应失败 (房间: %q, 消息: %q): %v", req.RoomID, req.MessageID, err)
		return
	}

	r.broadcastRoom(req.RoomID, chattypes.EventMessageReactionUpdate, chattypes.ReactionUpdatePayload{
		MessageID: req.MessageID,
		Reactions: reactions,
	}, "")
}

func (r *Router) handleMessageRead(c Conn, data json.RawMessage) {
	var req chattypes.ReadRequest
	if err := json.Unmarshal(data, &req); err != nil {
		log.Printf("message:read 载荷无效 (连接: %s): %v", c.ID(), err)
		return
	}

	readBy, changed, err := r.rooms.MarkRead(req.RoomID, req.MessageID, c.UserID())
	if err != nil {
		log.Printf("标记已读失败 (房间: %q, 消息: %q): %v", req.RoomID, req.MessageID, err)
		return
	}
	if !changed {
		return
	}

	r.broadcastRoom(req.RoomID, chattypes.EventMessageReadUpdate, chattypes.ReadUpdatePayload{
		MessageID: req.MessageID,
		ReadBy:    readBy,
	}, "")
}

func (r *Router) handleTypingStart(c Conn, data json.RawMessage) {
	var req chattypes.RoomRequest
	if err := json.Unmarshal(data, &req); err != nil {
		log.Printf("typing:start 载荷无效 (连接: %s): %v", c.ID(), err)
		return
	}
	if !r.rooms.Exists(req.RoomID) {
		return
	}
	r.typing.Start(req.RoomID, c.UserID())
	r.broadcastTypingUpdate(req.RoomID, c.ID())
}

func (r *Router) handleTypingStop(c Conn, data json.RawMessage) {
	var req chattypes.RoomRequest
	if err := json.Unmarshal(data, &req); err != nil {
		log.Printf("typing:stop 载荷无效 (连接: %s): %v", c.ID(), err)
		return
	}
	if !r.rooms.Exists(req.RoomID) {
		return
	}
	r.typing.Stop(req.RoomID, c.UserID())
	r.broadcastTypingUpdate(req.RoomID, c.ID())
}

func (r *Router) handlePrivateSend(c Conn, data json.RawMessage) {
	var req chattypes.PrivateSendRequest
	if err := json.Unmarshal(data, &req); err != nil {
		log.Printf("private:send 载荷无效 (连接: %s): %v", c.ID(), err)
		return
	}

	msg := r.convos.Append(r.profileOf(c.UserID(), c.Username()), req.RecipientID, req.Content, req.Type)

	// 投递给接收方的全部会话，以及发送方自己的全部会话（其他设备
	// 也要看到自己发出的消息）。接收方离线时消息已入库，待其下次
	// private:load 时回放。
	r.sendToUser(req.RecipientID, chattypes.EventPrivateNew, msg)
	r.sendToUser(c.UserID(), chattypes.EventPrivateNew, msg)
}

func (r *Router) handlePrivateLoad(c Conn, data json.RawMessage) {
	var req chattypes.PrivateLoadRequest
	if err := json.Unmarshal(data, &req); err != nil {
		log.Printf("private:load 载荷无效 (连接: %s): %v", c.ID(), err)
		return
	}

	r.sendEvent(c, chattypes.EventPrivateMessages, chattypes.PrivateMessagesPayload{
		RecipientID: req.UserID,
		Messages:    r.convos.Recent(c.UserID(), req.UserID),
	})
}

func (r *Router) handlePrivateRead(c Conn, data json.RawMessage) {
	var req chattypes.PrivateReadRequest
	if err := json.Unmarshal(data, &req); err != nil {
		log.Printf("private:read 载荷无效 (连接: %s): %v", c.ID(), err)
		return
	}

	conversationID, _ := r.convos.MarkRead(c.UserID(), req.SenderID)

	r.sendToUser(req.SenderID, chattypes.EventPrivateReadReceipt, chattypes.PrivateReadReceiptPayload{
		UserID:         c.UserID(),
		ConversationID: conversationID,
	})
}

// broadcastPresence 向所有连接广播完整的在线用户列表。
func (r *Router) broadcastPresence() {
	online, err := r.presence.OnlineUsers(context.Background())
	if err != nil {
		log.Printf("获取在线用户列表失败: %v", err)
		return
	}
	payload, err := encodeEvent(chattypes.EventUsersOnline, online)
	if err != nil {
		return
	}
	for _, c := range r.conns {
		r.deliver(c, payload)
	}
}

// broadcastTypingUpdate 向房间内除 excludeConn 以外的连接重播输入列表。
// 只排除触发这次重播的那条连接；同一用户的其他设备照常收到。
// excludeConn 为空表示不排除任何连接。
func (r *Router) broadcastTypingUpdate(roomID string, excludeConn string) {
	names := make([]string, 0)
	for _, userID := range r.typing.TypingUsers(roomID) {
		if name, ok := r.sessions.UsernameOf(userID); ok {
			names = append(names, name)
		}
	}
	r.broadcastRoom(roomID, chattypes.EventTypingUpdate, chattypes.TypingUpdatePayload{
		RoomID: roomID,
		Users:  names,
	}, excludeConn)
}

// broadcastRoom 向绑定在房间上的连接广播事件。
func (r *Router) broadcastRoom(roomID, event string, data interface{}, excludeConn string) {
	payload, err := encodeEvent(event, data)
	if err != nil {
		log.Printf("编码事件 %q 失败: %v", event, err)
		return
	}
	for connID := range r.roomConns[roomID] {
		if connID == excludeConn {
			continue
		}
		c, ok := r.conns[connID]
		if !ok {
			continue
		}
		r.deliver(c, payload)
	}
}

// sendToUser 向某用户的每一条会话投递事件。
func (r *Router) sendToUser(userID uint, event string, data interface{}) {
	connIDs := r.sessions.SessionsOf(userID)
	if len(connIDs) == 0 {
		return
	}
	payload, err := encodeEvent(event, data)
	if err != nil {
		log.Printf("编码事件 %q 失败: %v", event, err)
		return
	}
	for _, connID := range connIDs {
		if c, ok := r.conns[connID]; ok {
			r.deliver(c, payload)
		}
	}
}

// sendEvent 向单条连接投递事件。
func (r *Router) sendEvent(c Conn, event string, data interface{}) {
	payload, err := encodeEvent(event, data)
	if err != nil {
		log.Printf("编码事件 %q 失败: %v", event, err)
		return
	}
	r.deliver(c, payload)
}

// deliver 非阻塞投递；缓冲区满视为客户端失速，断开连接，
// 由断连级联完成后续清理。
func (r *Router) deliver(c Conn, payload []byte) {
	if !c.Send(payload) {
		log.Printf("连接 %s 的发送缓冲区已满，断开该客户端。", c.ID())
		c.Close()
	}
}

// profileOf 解析用户公开资料；仓库不可用时退化为注册表里的用户名。
func (r *Router) profileOf(userID uint, fallbackName string) *models.UserBasicInfo {
	info, err := r.users.GetBasicInfoByID(context.Background(), userID)
	if err != nil {
		log.Printf("解析用户 %d 资料失败，使用会话用户名兜底: %v", userID, err)
		return &models.UserBasicInfo{ID: userID, Username: fallbackName}
	}
	return info
}

// encodeEvent 将事件封装为线缆帧。
func encodeEvent(event string, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(chattypes.Envelope{Event: event, Data: raw})
}
