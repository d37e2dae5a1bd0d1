package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "MODEL_PROVIDER", "CHAT_TEMPERATURE", "CHAT_MAX_TOKENS", "REGISTRY_PROJECT", "OLLAMA_TIMEOUT"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}

	if cfg.Server.Addr != ":8080" {
		t.Fatalf("unexpected addr: %s", cfg.Server.Addr)
	}
	if cfg.AI.Provider != ProviderOllama {
		t.Fatalf("unexpected provider: %s", cfg.AI.Provider)
	}
	if cfg.AI.Temperature != 0.7 || cfg.AI.MaxTokens != 500 {
		t.Fatalf("unexpected sampling defaults: %v %d", cfg.AI.Temperature, cfg.AI.MaxTokens)
	}
	if cfg.Registry.Project != "memory-chatbot" {
		t.Fatalf("unexpected project: %s", cfg.Registry.Project)
	}
	if len(cfg.AI.FallbackModels) != 2 {
		t.Fatalf("expected two fallback models, got %v", cfg.AI.FallbackModels)
	}
	if !cfg.AI.Enabled() {
		t.Fatal("ollama provider should be enabled with the default base URL")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "127.0.0.1:9000")
	t.Setenv("CHAT_TEMPERATURE", "0.3")
	t.Setenv("CHAT_MAX_TOKENS", "256")
	t.Setenv("OLLAMA_TIMEOUT", "45")
	t.Setenv("MODEL_PROVIDER", "ARK")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Fatalf("unexpected addr: %s", cfg.Server.Addr)
	}
	if cfg.AI.Temperature != 0.3 || cfg.AI.MaxTokens != 256 {
		t.Fatalf("unexpected sampling overrides: %v %d", cfg.AI.Temperature, cfg.AI.MaxTokens)
	}
	if cfg.AI.OllamaTimeout != 45*time.Second {
		t.Fatalf("unexpected timeout: %v", cfg.AI.OllamaTimeout)
	}
	if cfg.AI.Provider != ProviderArk {
		t.Fatalf("unexpected provider: %s", cfg.AI.Provider)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"PORT":             "80 80",
		"CHAT_TEMPERATURE": "1.5",
		"CHAT_MAX_TOKENS":  "zero",
		"MODEL_PROVIDER":   "openai",
		"LOG_DEVELOPMENT":  "maybe",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%q", key, value)
			}
		})
	}
}

func TestArkRequiresCredentials(t *testing.T) {
	cfg := AIConfig{Provider: ProviderArk}
	if cfg.Enabled() {
		t.Fatal("ark provider without credentials should be disabled")
	}
	if _, err := cfg.NewChatModel(t.Context(), "doubao"); err == nil {
		t.Fatal("expected error creating ark model without credentials")
	}
}
