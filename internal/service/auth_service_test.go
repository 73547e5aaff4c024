package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"nucleo-coop/backend/config"
	"nucleo-coop/backend/internal/dto"
	"nucleo-coop/backend/internal/model"
	"nucleo-coop/backend/pkg/jwt"
)

// ── 测试辅助 ──

type fakeBlacklist struct {
	mu      sync.Mutex
	revoked map[string]time.Duration
}

func newFakeBlacklist() *fakeBlacklist {
	return &fakeBlacklist{revoked: make(map[string]time.Duration)}
}

func (b *fakeBlacklist) BlacklistToken(_ context.Context, jti string, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.revoked[jti] = ttl
	return nil
}

func (b *fakeBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.revoked[jti]
	return ok, nil
}

func setupTestAuthService() (AuthService, *mockStore, *fakeBlacklist, *jwt.Manager) {
	jwtMgr := jwt.NewManager(&config.AuthConfig{
		JWTSecret:       "test-secret-key-for-unit-testing-2026",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
	})
	store := newMockStore()
	blacklist := newFakeBlacklist()
	svc := NewAuthService(newMockRepository(store), jwtMgr, blacklist, zap.NewNop())
	return svc, store, blacklist, jwtMgr
}

func createTestUser(store *mockStore, email, password, role string) *model.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	u := &model.User{
		UserID:       uuid.NewString(),
		Name:         "测试用户",
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		IsActive:     true,
	}
	store.mu.Lock()
	store.users[u.UserID] = u
	store.mu.Unlock()
	return u
}

// ── Login ──

func TestLogin_Success(t *testing.T) {
	svc, store, _, jwtMgr := setupTestAuthService()
	user := createTestUser(store, "aluno@escola.br", "password123", model.RoleStudent)

	resp, err := svc.Login(context.Background(), &dto.LoginRequest{Email: "aluno@escola.br", Password: "password123"})
	if err != nil {
		t.Fatalf("Login 应成功: %v", err)
	}
	if resp.User.ID != user.UserID || resp.User.Role != model.RoleStudent {
		t.Errorf("用户信息不符: %+v", resp.User)
	}
	if resp.ExpiresIn != int((15 * time.Minute).Seconds()) {
		t.Errorf("ExpiresIn 期望 900，实际=%d", resp.ExpiresIn)
	}

	claims, err := jwtMgr.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("AccessToken 应可解析: %v", err)
	}
	if claims.UserID != user.UserID || claims.TokenType != jwt.TokenTypeAccess {
		t.Errorf("AccessToken 声明不符: %+v", claims)
	}
}

func TestLogin_Failures(t *testing.T) {
	svc, store, _, _ := setupTestAuthService()
	createTestUser(store, "aluno@escola.br", "password123", model.RoleStudent)
	disabled := createTestUser(store, "inativo@escola.br", "password123", model.RoleTeacher)
	store.mu.Lock()
	store.users[disabled.UserID].IsActive = false
	store.mu.Unlock()

	tests := []struct {
		name string
		req  dto.LoginRequest
		want error
	}{
		{"密码错误", dto.LoginRequest{Email: "aluno@escola.br", Password: "wrong"}, ErrInvalidCredentials},
		{"用户不存在", dto.LoginRequest{Email: "nobody@escola.br", Password: "password123"}, ErrInvalidCredentials},
		{"账号停用", dto.LoginRequest{Email: "inativo@escola.br", Password: "password123"}, ErrUserDisabled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Login(context.Background(), &tt.req); !errors.Is(err, tt.want) {
				t.Errorf("期望 %v，实际=%v", tt.want, err)
			}
		})
	}
}

// ── Refresh ──

func TestRefreshToken_Rotation(t *testing.T) {
	svc, store, blacklist, _ := setupTestAuthService()
	createTestUser(store, "prof@escola.br", "password123", model.RoleTeacher)
	ctx := context.Background()

	login, err := svc.Login(ctx, &dto.LoginRequest{Email: "prof@escola.br", Password: "password123"})
	if err != nil {
		t.Fatalf("Login 应成功: %v", err)
	}

	refreshed, err := svc.Refresh(ctx, &dto.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	if err != nil {
		t.Fatalf("Refresh 应成功: %v", err)
	}
	if refreshed.RefreshToken == login.RefreshToken {
		t.Error("刷新后应签发新的 RefreshToken")
	}
	if len(blacklist.revoked) != 1 {
		t.Errorf("旧 RefreshToken 应加入黑名单，实际数量=%d", len(blacklist.revoked))
	}

	// 旧 RefreshToken 不能再次使用
	if _, err := svc.Refresh(ctx, &dto.RefreshTokenRequest{RefreshToken: login.RefreshToken}); !errors.Is(err, ErrRefreshTokenInvalid) {
		t.Errorf("重复使用旧 RefreshToken 期望 ErrRefreshTokenInvalid，实际=%v", err)
	}
}

func TestRefreshToken_Invalid(t *testing.T) {
	svc, _, _, _ := setupTestAuthService()
	ctx := context.Background()

	if _, err := svc.Refresh(ctx, &dto.RefreshTokenRequest{RefreshToken: "not-a-token"}); !errors.Is(err, ErrRefreshTokenInvalid) {
		t.Errorf("非法 Token 期望 ErrRefreshTokenInvalid，实际=%v", err)
	}
}

func TestRefreshToken_RejectsAccessToken(t *testing.T) {
	svc, store, _, _ := setupTestAuthService()
	createTestUser(store, "aluno@escola.br", "password123", model.RoleStudent)
	ctx := context.Background()

	login, err := svc.Login(ctx, &dto.LoginRequest{Email: "aluno@escola.br", Password: "password123"})
	if err != nil {
		t.Fatalf("Login 应成功: %v", err)
	}
	if _, err := svc.Refresh(ctx, &dto.RefreshTokenRequest{RefreshToken: login.AccessToken}); !errors.Is(err, ErrRefreshTokenInvalid) {
		t.Errorf("AccessToken 不能用于刷新，实际=%v", err)
	}
}

// ── Logout / Me ──

func TestLogout(t *testing.T) {
	svc, _, blacklist, _ := setupTestAuthService()
	jti := uuid.NewString()

	if err := svc.Logout(context.Background(), jti, time.Now().Add(10*time.Minute)); err != nil {
		t.Fatalf("Logout 应成功: %v", err)
	}
	ttl, ok := blacklist.revoked[jti]
	if !ok || ttl <= 0 || ttl > 10*time.Minute {
		t.Errorf("黑名单 TTL 应为 Token 剩余有效期，实际=%s", ttl)
	}

	// 未配置黑名单时登出为空操作
	noCache := NewAuthService(newMockRepository(newMockStore()), nil, nil, zap.NewNop())
	if err := noCache.Logout(context.Background(), jti, time.Now().Add(time.Minute)); err != nil {
		t.Errorf("无黑名单时 Logout 不应报错: %v", err)
	}
}

func TestMe(t *testing.T) {
	svc, store, _, _ := setupTestAuthService()
	user := createTestUser(store, "gestor@escola.br", "password123", model.RoleManager)

	resp, err := svc.Me(context.Background(), user.UserID)
	if err != nil {
		t.Fatalf("Me 应成功: %v", err)
	}
	if resp.Email != user.Email || resp.Role != model.RoleManager {
		t.Errorf("用户信息不符: %+v", resp)
	}

	if _, err := svc.Me(context.Background(), uuid.NewString()); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("期望 ErrUserNotFound，实际=%v", err)
	}
}
