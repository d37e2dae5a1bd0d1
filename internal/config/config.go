package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/ollama"
	"github.com/cloudwego/eino/components/model"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server   ServerConfig
	Log      LogConfig
	Registry RegistryConfig
	AI       AIConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	logCfg, err := loadLogConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:   server,
		Log:      logCfg,
		Registry: loadRegistryConfig(),
		AI:       ai,
	}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// LogConfig 描述日志输出配置。
type LogConfig struct {
	Level       string
	Development bool
}

func loadLogConfig() (LogConfig, error) {
	dev, err := parseBoolEnv("LOG_DEVELOPMENT", false)
	if err != nil {
		return LogConfig{}, err
	}
	return LogConfig{
		Level:       getEnvOrDefault("LOG_LEVEL", "info"),
		Development: dev,
	}, nil
}

// RegistryConfig 描述 prompt registry 的存储位置与命名空间。
type RegistryConfig struct {
	Path    string
	Project string
	Author  string
}

func loadRegistryConfig() RegistryConfig {
	return RegistryConfig{
		Path:    getEnvOrDefault("REGISTRY_PATH", "prompts.db"),
		Project: getEnvOrDefault("REGISTRY_PROJECT", "memory-chatbot"),
		Author:  getEnvOrDefault("REGISTRY_AUTHOR", "admin"),
	}
}

// Providers understood by NewChatModel.
const (
	ProviderOllama = "ollama"
	ProviderArk    = "ark"
)

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	Provider       string
	DefaultModel   string
	Temperature    float64
	MaxTokens      int
	FallbackModels []string

	OllamaBaseURL string
	OllamaBin     string
	OllamaTimeout time.Duration

	ArkAPIKey    string
	ArkAccessKey string
	ArkSecretKey string
	ArkBaseURL   string
	ArkRegion    string
}

// Enabled 表示当前 provider 所需的配置是否齐全。
func (c AIConfig) Enabled() bool {
	switch c.Provider {
	case ProviderOllama:
		return c.OllamaBaseURL != ""
	case ProviderArk:
		return c.ArkAPIKey != "" || (c.ArkAccessKey != "" && c.ArkSecretKey != "")
	default:
		return false
	}
}

// NewChatModel 为一次对话创建模型实例，modelID 为空时使用默认模型。
func (c AIConfig) NewChatModel(ctx context.Context, modelID string) (model.BaseChatModel, error) {
	if modelID == "" {
		modelID = c.DefaultModel
	}

	switch c.Provider {
	case ProviderOllama:
		cm, err := ollama.NewChatModel(ctx, &ollama.ChatModelConfig{
			BaseURL: c.OllamaBaseURL,
			Timeout: c.OllamaTimeout,
			Model:   modelID,
		})
		if err != nil {
			return nil, fmt.Errorf("create ollama chat model: %w", err)
		}
		return cm, nil
	case ProviderArk:
		if !c.Enabled() {
			return nil, fmt.Errorf("Ark 凭证缺失，至少提供 ARK_API_KEY 或 AK/SK 组合")
		}
		cm, err := ark.NewChatModel(ctx, &ark.ChatModelConfig{
			BaseURL:   c.ArkBaseURL,
			Region:    c.ArkRegion,
			APIKey:    c.ArkAPIKey,
			AccessKey: c.ArkAccessKey,
			SecretKey: c.ArkSecretKey,
			Model:     modelID,
		})
		if err != nil {
			return nil, fmt.Errorf("create ark chat model: %w", err)
		}
		return cm, nil
	default:
		return nil, fmt.Errorf("unknown MODEL_PROVIDER %q", c.Provider)
	}
}

func loadAIConfig() (AIConfig, error) {
	temperature := 0.7
	if override, err := parseOptionalFloatEnv("CHAT_TEMPERATURE"); err != nil {
		return AIConfig{}, err
	} else if override != nil {
		if *override < 0 || *override > 1 {
			return AIConfig{}, fmt.Errorf("invalid CHAT_TEMPERATURE value %v: must be within [0, 1]", *override)
		}
		temperature = *override
	}

	maxTokens := 500
	if override, err := parseOptionalIntEnv("CHAT_MAX_TOKENS"); err != nil {
		return AIConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return AIConfig{}, fmt.Errorf("invalid CHAT_MAX_TOKENS value %d: must be positive", *override)
		}
		maxTokens = *override
	}

	var timeout time.Duration
	if seconds, err := parseOptionalIntEnv("OLLAMA_TIMEOUT"); err != nil {
		return AIConfig{}, err
	} else if seconds != nil {
		timeout = time.Duration(*seconds) * time.Second
	}

	provider := strings.ToLower(getEnvOrDefault("MODEL_PROVIDER", ProviderOllama))
	if provider != ProviderOllama && provider != ProviderArk {
		return AIConfig{}, fmt.Errorf("invalid MODEL_PROVIDER value %q", provider)
	}

	return AIConfig{
		Provider:       provider,
		DefaultModel:   getEnvOrDefault("CHAT_DEFAULT_MODEL", "llama3.1"),
		Temperature:    temperature,
		MaxTokens:      maxTokens,
		FallbackModels: []string{"mixtral", "llama3.1"},
		OllamaBaseURL:  getEnvOrDefault("OLLAMA_BASE_URL", "http://localhost:11434"),
		OllamaBin:      getEnvOrDefault("OLLAMA_BIN", "ollama"),
		OllamaTimeout:  timeout,
		ArkAPIKey:      strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		ArkAccessKey:   strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		ArkSecretKey:   strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		ArkBaseURL:     getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		ArkRegion:      getEnvOrDefault("ARK_REGION", "cn-beijing"),
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
