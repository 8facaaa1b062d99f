package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"chat-go/internal/auth"
	"chat-go/internal/config"
)

func protectedHandler(t *testing.T, wantUserID uint) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := GetClaimsFromContext(r.Context())
		if !ok {
			t.Error("通过认证的请求应能从上下文取到声明")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		if claims.UserID != wantUserID {
			t.Errorf("claims.UserID = %d, 期望 %d", claims.UserID, wantUserID)
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddleware(t *testing.T) {
	authCfg := config.AuthConfig{JWTSecretKey: "test-secret", JWTExpiry: time.Hour}
	token, err := auth.GenerateToken(42, "alice", authCfg)
	if err != nil {
		t.Fatalf("GenerateToken 返回错误: %v", err)
	}

	mw := AuthMiddleware(authCfg.JWTSecretKey, nil)
	handler := mw(protectedHandler(t, 42))

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{"有效令牌", "Bearer " + token, http.StatusOK},
		{"缺少头部", "", http.StatusUnauthorized},
		{"格式错误", token, http.StatusUnauthorized},
		{"非 Bearer", "Basic " + token, http.StatusUnauthorized},
		{"伪造令牌", "Bearer not.a.jwt", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("状态码 = %d, 期望 %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestGetClaimsFromContextMissing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, ok := GetClaimsFromContext(req.Context()); ok {
		t.Error("未经过中间件的上下文不应取到声明")
	}
}
