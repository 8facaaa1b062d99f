package chat

import (
	"sync"
)

// session 将一条活跃连接绑定到一个已认证用户。
type session struct {
	connID   string
	userID   uint
	username string
}

// SessionRegistry 维护连接与用户之间的映射。
// 一个用户可以同时持有多条连接（多设备）；用户在线当且仅当至少有一条会话。
// 注册表本身不发出任何通知，上线/下线的边沿由 Open/Close 的返回值上报，
// 广播由 Router 负责。
type SessionRegistry struct {
	mu        sync.RWMutex
	sessions  map[string]session       // connID -> session
	userConns map[uint]map[string]bool // userID -> 连接 ID 集合
	usernames map[uint]string          // userID -> 最近一次握手携带的用户名
}

// NewSessionRegistry 创建一个空的会话注册表。
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		sessions:  make(map[string]session),
		userConns: make(map[uint]map[string]bool),
		usernames: make(map[uint]string),
	}
}

// Open 注册一条新会话。
// 返回 first=true 表示该用户由离线转为在线（这是其第一条会话）。
// 重复注册同一连接 ID 返回 ErrDuplicateSession。
func (r *SessionRegistry) Open(connID string, userID uint, username string) (first bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[connID]; exists {
		return false, ErrDuplicateSession
	}

	r.sessions[connID] = session{connID: connID, userID: userID, username: username}
	conns := r.userConns[userID]
	if conns == nil {
		conns = make(map[string]bool)
		r.userConns[userID] = conns
	}
	first = len(conns) == 0
	conns[connID] = true
	r.usernames[userID] = username
	return first, nil
}

// Close 注销一条会话。
// 返回 last=true 表示该用户由在线转为离线（这是其最后一条会话）。
// 未知的连接 ID 返回 ErrSessionNotFound；调用方应记录但不视为致命。
func (r *SessionRegistry) Close(connID string) (userID uint, last bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[connID]
	if !ok {
		return 0, false, ErrSessionNotFound
	}
	delete(r.sessions, connID)

	conns := r.userConns[s.userID]
	delete(conns, connID)
	if len(conns) == 0 {
		delete(r.userConns, s.userID)
		delete(r.usernames, s.userID)
		last = true
	}
	return s.userID, last, nil
}

// SessionsOf 返回某用户当前全部连接 ID；离线用户返回空切片。
func (r *SessionRegistry) SessionsOf(userID uint) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]string, 0, len(r.userConns[userID]))
	for connID := range r.userConns[userID] {
		conns = append(conns, connID)
	}
	return conns
}

// UserOf 返回连接所属的用户。
func (r *SessionRegistry) UserOf(connID string) (uint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[connID]
	if !ok {
		return 0, ErrSessionNotFound
	}
	return s.userID, nil
}

// UsernameOf 返回在线用户握手时携带的用户名。
func (r *SessionRegistry) UsernameOf(userID uint) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name, ok := r.usernames[userID]
	return name, ok
}

// Online 报告该用户当前是否至少有一条会话。
func (r *SessionRegistry) Online(userID uint) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.userConns[userID]) > 0
}

// OnlineUserIDs 返回当前在线（去重后）的用户 ID 集合。
func (r *SessionRegistry) OnlineUserIDs() []uint {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]uint, 0, len(r.userConns))
	for userID := range r.userConns {
		ids = append(ids, userID)
	}
	return ids
}
