package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearCredentialEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ANTHROPIC_API_KEY", "OPENAI_API_KEY", "DOUBAO_API_KEY", "ARK_API_KEY", "DASHSCOPE_API_KEY",
		"MIRROR_VISION_PROVIDER", "MIRROR_ANTHROPIC_API_KEY",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	clearCredentialEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Server.Port != 8080 || cfg.Vision.Provider != "anthropic" || cfg.Vision.MinImageBytes != 75 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Vision.Timeout != 30*time.Second {
		t.Fatalf("vision timeout=%v, want 30s", cfg.Vision.Timeout)
	}
	if cfg.Anthropic.Model != "claude-3-opus-20240229" || cfg.Anthropic.MaxTokens != 1000 {
		t.Fatalf("unexpected anthropic defaults: %+v", cfg.Anthropic)
	}
	if cfg.Anthropic.APIKey != "" {
		t.Fatal("api key should be empty without env")
	}
	if Get() != cfg {
		t.Fatal("Get() does not return the loaded config")
	}
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	clearCredentialEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := []byte("server:\n  port: 9090\nvision:\n  provider: openai\n  timeout: 5s\ngame:\n  emotion_set: expressive\n")
	if err := os.WriteFile(path, yaml, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("MIRROR_VISION_PROVIDER", "mock")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Server.Port != 9090 || cfg.Vision.Timeout != 5*time.Second || cfg.Game.EmotionSet != "expressive" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Vision.Provider != "mock" {
		t.Fatalf("provider=%s, want env override mock", cfg.Vision.Provider)
	}
	if cfg.Anthropic.APIKey != "sk-ant-test" {
		t.Fatalf("anthropic key=%q, want value from ANTHROPIC_API_KEY", cfg.Anthropic.APIKey)
	}
}

func TestPrefixedKeyWinsOverPlainEnv(t *testing.T) {
	clearCredentialEnv(t)
	t.Setenv("MIRROR_ANTHROPIC_API_KEY", "from-prefixed")
	t.Setenv("ANTHROPIC_API_KEY", "from-plain")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Anthropic.APIKey != "from-prefixed" {
		t.Fatalf("anthropic key=%q, want from-prefixed", cfg.Anthropic.APIKey)
	}
}

func TestLoadRejectsBrokenYAML(t *testing.T) {
	clearCredentialEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server: [port"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load accepted malformed YAML")
	}
}
