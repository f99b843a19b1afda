package middleware

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"sistema-notas/backend/config"
	"sistema-notas/backend/pkg/jwt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeBlacklist struct {
	revoked map[string]bool
	err     error
}

func (f *fakeBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	return f.revoked[jti], f.err
}

type fakeLimiter struct {
	counts map[string]int
	err    error
}

func (f *fakeLimiter) CheckRateLimit(_ context.Context, key string, limit int, _ time.Duration) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.counts[key]++
	return f.counts[key] <= limit, nil
}

func newTestManager() *jwt.Manager {
	return jwt.NewManager(&config.AuthConfig{
		JWTSecret:       "middleware-test-secret-2026",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: time.Hour,
	})
}

func serveWithToken(handler gin.HandlerFunc, token string) (*httptest.ResponseRecorder, map[string]interface{}) {
	seen := map[string]interface{}{}
	r := gin.New()
	r.GET("/p", handler, func(c *gin.Context) {
		seen["user_id"] = c.GetString("user_id")
		seen["role"] = c.GetString("role")
		seen["token_jti"] = c.GetString("token_jti")
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/p", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	r.ServeHTTP(w, req)
	return w, seen
}

func TestJWTAuth_InjectsClaims(t *testing.T) {
	m := newTestManager()
	token, _ := m.GenerateAccessToken("u-1", "teacher")

	w, seen := serveWithToken(JWTAuth(m, nil), token)
	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际 %d", w.Code)
	}
	if seen["user_id"] != "u-1" || seen["role"] != "teacher" {
		t.Errorf("上下文注入错误: %+v", seen)
	}
	if seen["token_jti"] == "" {
		t.Error("token_jti 不应为空")
	}
}

func TestJWTAuth_RejectsRefreshToken(t *testing.T) {
	m := newTestManager()
	token, _ := m.GenerateRefreshToken("u-1", "teacher")

	w, _ := serveWithToken(JWTAuth(m, nil), token)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Refresh Token 不应通过认证，实际 %d", w.Code)
	}
}

func TestJWTAuth_MissingHeader(t *testing.T) {
	w, _ := serveWithToken(JWTAuth(newTestManager(), nil), "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("期望 401，实际 %d", w.Code)
	}
}

func TestJWTAuth_BlacklistedToken(t *testing.T) {
	m := newTestManager()
	token, _ := m.GenerateAccessToken("u-1", "admin")
	claims, _ := m.ParseToken(token)

	bl := &fakeBlacklist{revoked: map[string]bool{claims.ID: true}}
	w, _ := serveWithToken(JWTAuth(m, bl), token)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("已登出的 Token 应被拒绝，实际 %d", w.Code)
	}
}

func TestJWTAuth_BlacklistErrorDegrades(t *testing.T) {
	m := newTestManager()
	token, _ := m.GenerateAccessToken("u-1", "admin")

	bl := &fakeBlacklist{err: errors.New("redis down")}
	w, _ := serveWithToken(JWTAuth(m, bl), token)
	if w.Code != http.StatusOK {
		t.Errorf("Redis 故障时应降级放行，实际 %d", w.Code)
	}
}

func TestRoleAuth(t *testing.T) {
	r := gin.New()
	r.GET("/p", func(c *gin.Context) {
		c.Set("role", c.Query("role"))
	}, RoleAuth("admin", "director"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	for role, want := range map[string]int{
		"admin":    http.StatusOK,
		"director": http.StatusOK,
		"teacher":  http.StatusForbidden,
		"student":  http.StatusForbidden,
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("GET", "/p?role="+role, nil))
		if w.Code != want {
			t.Errorf("role=%s 期望 %d，实际 %d", role, want, w.Code)
		}
	}
}

func TestRateLimit(t *testing.T) {
	limiter := &fakeLimiter{counts: map[string]int{}}
	r := gin.New()
	r.POST("/login", RateLimit(limiter, 2, time.Minute), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	codes := make([]int, 3)
	for i := range codes {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("POST", "/login", nil))
		codes[i] = w.Code
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("期望 [200 200 429]，实际 %v", codes)
	}
}

func TestRateLimit_DegradesWithoutRedis(t *testing.T) {
	for _, limiter := range []Limiter{nil, &fakeLimiter{err: errors.New("redis down")}} {
		r := gin.New()
		r.POST("/login", RateLimit(limiter, 0, time.Minute), func(c *gin.Context) {
			c.Status(http.StatusOK)
		})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("POST", "/login", nil))
		if w.Code != http.StatusOK {
			t.Errorf("限流器不可用时应放行，实际 %d", w.Code)
		}
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/p", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/p", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	r.ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("应沿用传入的 Request-ID，实际 %q", got)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/p", nil))
	if got := w.Header().Get("X-Request-ID"); len(got) != 36 {
		t.Errorf("应生成 UUID，实际 %q", got)
	}
}

func TestBodyLimit_PerRoute(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.Use(BodyLimit(16, map[string]int64{"/upload": 64}))
	r.POST("/json", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/upload", func(c *gin.Context) { c.Status(http.StatusOK) })

	body := strings.Repeat("x", 32)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/json", strings.NewReader(body)))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("超过默认上限期望 413，实际 %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "request_id=") {
		t.Errorf("413 响应应带 request_id: %s", w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/upload", strings.NewReader(body)))
	if w.Code != http.StatusOK {
		t.Errorf("上传路由应放宽上限，实际 %d", w.Code)
	}
}

func TestBodyLimit_ChunkedBodyReportedByHandler(t *testing.T) {
	r := gin.New()
	r.Use(BodyLimit(8, nil))
	r.POST("/p", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			_ = c.Error(err)
			return
		}
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest("POST", "/p", io.NopCloser(bytes.NewReader(bytes.Repeat([]byte("y"), 32))))
	req.ContentLength = -1
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("未声明长度的超限请求体期望 413，实际 %d", w.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	for _, hsts := range []bool{false, true} {
		r := gin.New()
		r.Use(SecurityHeaders(hsts))
		r.GET("/p", func(c *gin.Context) { c.Status(http.StatusOK) })

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("GET", "/p", nil))
		if got := w.Header().Get("Cache-Control"); got != "no-store" {
			t.Errorf("Cache-Control 期望 no-store，实际 %q", got)
		}
		if got := w.Header().Get("Strict-Transport-Security") != ""; got != hsts {
			t.Errorf("hsts=%v 时 HSTS 头存在=%v", hsts, got)
		}
	}
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"https://notas.example.edu/"}))
	r.GET("/p", func(c *gin.Context) { c.Status(http.StatusOK) })

	preflight := func(origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("OPTIONS", "/p", nil)
		req.Header.Set("Origin", origin)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := preflight("https://notas.example.edu")
	if w.Code != http.StatusNoContent {
		t.Errorf("已登记来源的预检期望 204，实际 %d", w.Code)
	}
	if !strings.Contains(w.Header().Get("Access-Control-Expose-Headers"), "Content-Disposition") {
		t.Errorf("应暴露 Content-Disposition 以便下载成绩表")
	}

	w = preflight("https://evil.example.com")
	if w.Code != http.StatusForbidden {
		t.Errorf("未登记来源的预检期望 403，实际 %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Errorf("未登记来源不应返回 Allow-Origin")
	}
}

func TestLogger_RecordsRequestAndUser(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)

	r := gin.New()
	r.Use(RequestID())
	r.Use(Logger(zap.New(core)))
	r.GET("/grades/:id", func(c *gin.Context) {
		c.Set("user_id", "teacher-1")
		c.Set("role", "teacher")
		c.Status(http.StatusNotFound)
	})

	req := httptest.NewRequest("GET", "/grades/42", nil)
	req.Header.Set("X-Request-ID", "rid-7")
	r.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("期望 1 条日志，实际 %d", len(entries))
	}
	if entries[0].Level != zap.WarnLevel {
		t.Errorf("4xx 应记为 Warn，实际 %v", entries[0].Level)
	}
	fields := entries[0].ContextMap()
	if fields["request_id"] != "rid-7" || fields["user_id"] != "teacher-1" || fields["route"] != "/grades/:id" {
		t.Errorf("日志字段不完整: %v", fields)
	}
}
