package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_DefaultsAndEnv(t *testing.T) {
	t.Setenv("NUCLEO_AUTH_JWT_SECRET", "0123456789abcdef-test")
	t.Setenv("NUCLEO_SERVER_PORT", "9090")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("election:\n  scheduler_interval: 30s\n"), 0o600); err != nil {
		t.Fatalf("写入配置文件失败: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load 应成功: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("期望 port=9090（环境变量覆盖），实际=%d", cfg.Server.Port)
	}
	if cfg.Election.SchedulerInterval != 30*time.Second {
		t.Errorf("期望 scheduler_interval=30s，实际=%s", cfg.Election.SchedulerInterval)
	}
	if cfg.Election.BallotRateLimit != 10 {
		t.Errorf("期望 ballot_rate_limit 默认值=10，实际=%d", cfg.Election.BallotRateLimit)
	}
	if cfg.Log.Service != "nucleo-eleicoes" {
		t.Errorf("期望 log.service 默认值=nucleo-eleicoes，实际=%s", cfg.Log.Service)
	}
	if cfg.Auth.AccessTokenTTL != 15*time.Minute {
		t.Errorf("期望 access_token_ttl=15m，实际=%s", cfg.Auth.AccessTokenTTL)
	}
}

func TestValidate(t *testing.T) {
	base := Config{
		Server: ServerConfig{Port: 8080},
		Auth:   AuthConfig{JWTSecret: "0123456789abcdef"},
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("合法配置不应报错: %v", err)
	}

	short := base
	short.Auth.JWTSecret = "short"
	if err := short.Validate(); err == nil {
		t.Error("过短的 jwt_secret 应报错")
	}

	badPort := base
	badPort.Server.Port = 70000
	if err := badPort.Validate(); err == nil {
		t.Error("越界端口应报错")
	}

	badInterval := base
	badInterval.Election.SchedulerInterval = -time.Second
	if err := badInterval.Validate(); err == nil {
		t.Error("负数调度间隔应报错")
	}
}
