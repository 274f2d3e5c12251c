package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"projet-5iw/backend/config"
	"projet-5iw/backend/pkg/jwt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestJWT(ttl time.Duration) *jwt.Manager {
	return jwt.NewManager(&config.AuthConfig{
		JWTSecret:      "test-secret-key-at-least-16",
		AccessTokenTTL: ttl,
		Issuer:         "projet-5iw",
	})
}

// echoIdentity 回写中间件注入的身份
func echoIdentity(c *gin.Context) {
	c.String(http.StatusOK, c.GetString(ContextUserID)+"|"+c.GetString(ContextRole))
}

func TestJWTAuth(t *testing.T) {
	mgr := newTestJWT(time.Hour)
	valid, _ := mgr.GenerateAccessToken("user-1", jwt.RoleGuardian)
	expired, _ := newTestJWT(-time.Minute).GenerateAccessToken("user-1", jwt.RoleGuardian)

	tests := []struct {
		name     string
		header   string
		wantCode int
		wantBody string
	}{
		{"有效 Token", "Bearer " + valid, http.StatusOK, "user-1|guardian"},
		{"Bearer 大小写不敏感", "bearer " + valid, http.StatusOK, "user-1|guardian"},
		{"缺少认证头", "", http.StatusUnauthorized, ""},
		{"格式错误", "Token " + valid, http.StatusUnauthorized, ""},
		{"已过期", "Bearer " + expired, http.StatusUnauthorized, ""},
		{"伪造 Token", "Bearer abc.def.ghi", http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/x", JWTAuth(mgr), echoIdentity)

			w := httptest.NewRecorder()
			req := httptest.NewRequest("GET", "/x", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			r.ServeHTTP(w, req)

			if w.Code != tt.wantCode {
				t.Errorf("期望 %d，实际 %d", tt.wantCode, w.Code)
			}
			if tt.wantBody != "" && w.Body.String() != tt.wantBody {
				t.Errorf("期望注入 %q，实际 %q", tt.wantBody, w.Body.String())
			}
		})
	}
}

func TestRoleAuth(t *testing.T) {
	tests := []struct {
		role     string
		wantCode int
	}{
		{"admin", http.StatusOK},
		{"staff", http.StatusOK},
		{"guardian", http.StatusForbidden},
		{"", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		r := gin.New()
		r.GET("/x", func(c *gin.Context) {
			if tt.role != "" {
				c.Set(ContextRole, tt.role)
			}
			c.Next()
		}, RoleAuth("admin", "staff"), func(c *gin.Context) { c.Status(http.StatusOK) })

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("GET", "/x", nil))
		if w.Code != tt.wantCode {
			t.Errorf("角色 %q: 期望 %d，实际 %d", tt.role, tt.wantCode, w.Code)
		}
	}
}

// fakeLimiter 按 key 计数的内存限流器
type fakeLimiter struct {
	counts map[string]int
	err    error
}

func (f *fakeLimiter) Allow(_ context.Context, key string, limit int, _ time.Duration) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.counts[key]++
	return f.counts[key] <= limit, nil
}

func TestRateLimit(t *testing.T) {
	limiter := &fakeLimiter{counts: map[string]int{}}
	r := gin.New()
	r.POST("/import/:id", RateLimit(limiter, 2, time.Minute), func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for _, id := range []string{"a", "b", "c"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("POST", "/import/"+id, nil))
		codes = append(codes, w.Code)
	}
	// 同一路由模板共享计数
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("期望 [200 200 429]，实际 %v", codes)
	}
	if len(limiter.counts) != 1 {
		t.Errorf("期望单个计数 key，实际 %v", limiter.counts)
	}
}

func TestRateLimit_DegradesOpen(t *testing.T) {
	cases := map[string]Limiter{
		"limiter 为 nil": nil,
		"限流器出错":        &fakeLimiter{counts: map[string]int{}, err: errors.New("redis down")},
	}
	for name, limiter := range cases {
		r := gin.New()
		r.POST("/import", RateLimit(limiter, 1, time.Minute), func(c *gin.Context) { c.Status(http.StatusOK) })
		for i := 0; i < 3; i++ {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest("POST", "/import", nil))
			if w.Code != http.StatusOK {
				t.Errorf("%s: 第 %d 次请求期望放行，实际 %d", name, i+1, w.Code)
			}
		}
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.GET("/x", RequestID(), func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/x", nil)
	req.Header.Set("X-Request-ID", "trace-42")
	r.ServeHTTP(w, req)
	if w.Body.String() != "trace-42" || w.Header().Get("X-Request-ID") != "trace-42" {
		t.Errorf("应沿用外部 Request-ID，实际 %q", w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/x", nil))
	if len(w.Body.String()) != 36 {
		t.Errorf("应生成 UUID，实际 %q", w.Body.String())
	}
}

func TestIsBodyTooLarge(t *testing.T) {
	if !IsBodyTooLarge(&http.MaxBytesError{Limit: 10}) {
		t.Error("MaxBytesError 应被识别")
	}
	if IsBodyTooLarge(errors.New("other")) {
		t.Error("普通错误不应被识别")
	}
}
