package apiserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"chat-go/internal/auth"
	"chat-go/internal/middleware"
	"chat-go/internal/models"
	"chat-go/internal/services"
)

// AuthHandler 封装了认证相关的 HTTP 处理器方法。
type AuthHandler struct {
	AuthService    services.AuthService
	TokenBlacklist auth.TokenBlacklist
}

// NewAuthHandler 创建一个新的 AuthHandler 实例。
func NewAuthHandler(authService services.AuthService, tokenBlacklist auth.TokenBlacklist) *AuthHandler {
	return &AuthHandler{
		AuthService:    authService,
		TokenBlacklist: tokenBlacklist,
	}
}

// RegisterRequest 是用户注册请求的结构体。
type RegisterRequest struct {
	Username string `json:"username"`
	Nickname string `json:"nickname,omitempty"`
	Password string `json:"password"`
}

// LoginRequest 是用户登录请求的结构体。
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse 是注册或登录成功后返回的结构体。
type AuthResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"` // 返回用户信息，敏感字段已清除
}

// ErrorResponse 是 API 错误响应的通用结构体。
type ErrorResponse struct {
	Error string `json:"error"`
}

// Register 处理用户注册请求，成功后直接返回令牌（注册即登录）。
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "请求体无效", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if req.Username == "" || req.Password == "" {
		writeJSONError(w, "用户名和密码不能为空", http.StatusBadRequest)
		return
	}

	token, user, err := h.AuthService.Register(r.Context(), req.Username, req.Nickname, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrUserAlreadyExists) {
			writeJSONError(w, err.Error(), http.StatusConflict)
		} else {
			// 内部错误不向客户端暴露细节
			writeJSONError(w, "注册失败", http.StatusInternalServerError)
		}
		return
	}

	user.PasswordHash = "" // 清除敏感信息
	writeJSONResponse(w, http.StatusCreated, AuthResponse{Token: token, User: user})
}

// Login 处理用户登录请求。
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "请求体无效", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if req.Username == "" || req.Password == "" {
		writeJSONError(w, "用户名和密码不能为空", http.StatusBadRequest)
		return
	}

	token, user, err := h.AuthService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) || errors.Is(err, services.ErrInvalidCredentials) {
			writeJSONError(w, "用户名或密码错误", http.StatusUnauthorized)
		} else {
			writeJSONError(w, "登录失败", http.StatusInternalServerError)
		}
		return
	}

	user.PasswordHash = "" // 清除敏感信息
	writeJSONResponse(w, http.StatusOK, AuthResponse{Token: token, User: user})
}

// LogoutHandler 处理用户登出请求，将当前 Token 的 JTI 加入黑名单。
func (h *AuthHandler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaimsFromContext(r.Context())
	if !ok {
		writeJSONError(w, "用户未认证或无法解析用户声明", http.StatusUnauthorized)
		return
	}

	if claims.ID == "" { // JTI
		writeJSONError(w, "Token 缺少 JTI，无法执行登出", http.StatusInternalServerError)
		return
	}
	if claims.ExpiresAt == nil {
		writeJSONError(w, "Token 缺少过期时间，无法执行登出", http.StatusInternalServerError)
		return
	}

	if err := h.TokenBlacklist.Add(r.Context(), claims.ID, claims.ExpiresAt.Time); err != nil {
		writeJSONError(w, "登出过程中发生内部错误", http.StatusInternalServerError)
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]string{"message": "登出成功"})
}

// writeJSONResponse 是一个辅助函数，用于发送 JSON 响应。
func writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// 头部可能已发出，无法再写 http.Error；只能放弃
			return
		}
	}
}

// writeJSONError 是一个辅助函数，用于发送 JSON 格式的错误响应。
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	writeJSONResponse(w, statusCode, ErrorResponse{Error: message})
}
