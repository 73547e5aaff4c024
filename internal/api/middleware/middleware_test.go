package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"nucleo-coop/backend/config"
	"nucleo-coop/backend/pkg/jwt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeChecker struct {
	revoked map[string]bool
	err     error
}

func (f *fakeChecker) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	return f.revoked[jti], f.err
}

type fakeLimiter struct {
	calls int
	limit int
	err   error
	keys  []string
}

func (f *fakeLimiter) CheckRateLimit(_ context.Context, key string, limit int, _ time.Duration) (bool, error) {
	f.calls++
	f.keys = append(f.keys, key)
	if f.err != nil {
		return false, f.err
	}
	return f.calls <= limit, nil
}

func newTestManager() *jwt.Manager {
	return jwt.NewManager(&config.AuthConfig{
		JWTSecret:       "middleware-test-secret-0123",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: time.Hour,
	})
}

func do(r *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", "/protected", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuth(t *testing.T) {
	mgr := newTestManager()
	access, _ := mgr.GenerateAccessToken("u1", "student")
	refresh, _ := mgr.GenerateRefreshToken("u1", "student")
	claims, _ := mgr.ParseToken(access)

	checker := &fakeChecker{revoked: map[string]bool{}}
	r := gin.New()
	r.GET("/protected", JWTAuth(mgr, checker), func(c *gin.Context) {
		if c.GetString("user_id") != "u1" || c.GetString("role") != "student" {
			t.Errorf("上下文未注入用户信息")
		}
		if c.GetString("token_jti") != claims.ID {
			t.Errorf("token_jti 不匹配")
		}
		c.Status(http.StatusOK)
	})

	if w := do(r, access); w.Code != http.StatusOK {
		t.Errorf("合法 Access Token 应放行，实际=%d", w.Code)
	}
	if w := do(r, ""); w.Code != http.StatusUnauthorized {
		t.Errorf("缺少认证头应返回 401，实际=%d", w.Code)
	}
	if w := do(r, refresh); w.Code != http.StatusUnauthorized {
		t.Errorf("Refresh Token 不可用于访问接口，实际=%d", w.Code)
	}

	checker.revoked[claims.ID] = true
	if w := do(r, access); w.Code != http.StatusUnauthorized {
		t.Errorf("已注销 Token 应返回 401，实际=%d", w.Code)
	}

	// 黑名单查询故障时降级放行
	checker.err = errors.New("redis down")
	checker.revoked = map[string]bool{}
	if w := do(r, access); w.Code != http.StatusOK {
		t.Errorf("黑名单故障应降级放行，实际=%d", w.Code)
	}
}

func TestRoleAuth(t *testing.T) {
	tests := []struct {
		role   string
		expect int
	}{
		{"manager", http.StatusOK},
		{"teacher", http.StatusOK},
		{"student", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			r := gin.New()
			r.GET("/protected", func(c *gin.Context) {
				c.Set("role", tt.role)
				c.Next()
			}, RoleAuth("teacher", "manager"), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})
			if w := do(r, ""); w.Code != tt.expect {
				t.Errorf("期望 %d，实际=%d", tt.expect, w.Code)
			}
		})
	}
}

func TestRateLimit(t *testing.T) {
	limiter := &fakeLimiter{}
	r := gin.New()
	r.GET("/protected", func(c *gin.Context) {
		c.Set("user_id", "u1")
		c.Next()
	}, RateLimit(limiter, 2, time.Minute), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	for i := 0; i < 2; i++ {
		if w := do(r, ""); w.Code != http.StatusOK {
			t.Fatalf("第 %d 次请求应放行，实际=%d", i+1, w.Code)
		}
	}
	if w := do(r, ""); w.Code != http.StatusTooManyRequests {
		t.Errorf("超出限额应返回 429，实际=%d", w.Code)
	}
	if limiter.keys[0] != "rate_limit:u1:/protected" {
		t.Errorf("限流键应按用户计数，实际=%s", limiter.keys[0])
	}

	failing := &fakeLimiter{err: errors.New("redis down")}
	r = gin.New()
	r.GET("/protected", RateLimit(failing, 1, time.Minute), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	for i := 0; i < 3; i++ {
		if w := do(r, ""); w.Code != http.StatusOK {
			t.Errorf("限流器故障应降级放行，实际=%d", w.Code)
		}
	}

	r = gin.New()
	r.GET("/protected", RateLimit(nil, 1, time.Minute), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	if w := do(r, ""); w.Code != http.StatusOK {
		t.Errorf("未配置限流器时应放行，实际=%d", w.Code)
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/protected", func(c *gin.Context) { c.Status(http.StatusOK) })

	tests := []struct {
		name   string
		header string
		keep   bool
	}{
		{"合法 ID 原样透传", "req-2026.10_15", true},
		{"缺失时生成", "", false},
		{"含换行视为非法", "abc\ninjected", false},
		{"超长视为非法", strings.Repeat("a", requestIDMaxLen+1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/protected", nil)
			if tt.header != "" {
				req.Header.Set("X-Request-ID", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			got := w.Header().Get("X-Request-ID")
			if tt.keep && got != tt.header {
				t.Errorf("期望透传 %q，实际=%q", tt.header, got)
			}
			if !tt.keep {
				if _, err := uuid.Parse(got); err != nil {
					t.Errorf("期望生成 UUID，实际=%q", got)
				}
			}
		})
	}
}

func TestLogger_BallotRouteOmitsVoter(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	r := gin.New()
	r.Use(RequestID(), Logger(zap.New(core)))
	withUser := func(c *gin.Context) {
		c.Set("user_id", "student-1")
		c.Status(http.StatusOK)
	}
	r.POST("/elections/:id/ballot", withUser)
	r.GET("/elections/:id/results", withUser)

	for _, path := range []string{"/elections/e1/ballot", "/elections/e1/results"} {
		method := "GET"
		if strings.HasSuffix(path, "/ballot") {
			method = "POST"
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	}

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("期望 2 条请求日志，实际=%d", len(entries))
	}
	ballot, results := entries[0].ContextMap(), entries[1].ContextMap()
	if ballot["route"] != "/elections/:id/ballot" || ballot["election_id"] != "e1" {
		t.Errorf("投票日志应记录路由模板与选举 ID: %v", ballot)
	}
	if _, ok := ballot["user_id"]; ok {
		t.Errorf("投票日志不应记录用户: %v", ballot)
	}
	if _, ok := ballot["ip"]; ok {
		t.Errorf("投票日志不应记录 IP: %v", ballot)
	}
	if results["user_id"] != "student-1" {
		t.Errorf("其他接口应记录用户: %v", results)
	}
}
