package ai

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/zhouzirui/persona-chat/backend/internal/config"
)

// ModelFactory opens a chat model handle for one completion.
type ModelFactory func(ctx context.Context, modelID string) (model.BaseChatModel, error)

// CompletionRequest is everything a single streamed completion needs.
type CompletionRequest struct {
	Model        string
	SystemPrompt string
	UserMessage  string
	Temperature  float64
	MaxTokens    int
}

// Service encapsulates AI-powered chat functionality
type Service struct {
	newModel ModelFactory
	cfg      config.AIConfig
	logger   *zap.Logger
}

// NewService creates a service that builds models from cfg.
func NewService(cfg config.AIConfig, logger *zap.Logger) *Service {
	return NewServiceWithFactory(cfg.NewChatModel, cfg, logger)
}

// NewServiceWithFactory creates a service around a custom model factory.
func NewServiceWithFactory(factory ModelFactory, cfg config.AIConfig, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{newModel: factory, cfg: cfg, logger: logger}
}

// DefaultModel is the model used when neither the request nor the persona names one.
func (s *Service) DefaultModel() string {
	return s.cfg.DefaultModel
}

// DefaultTemperature is the sampling temperature used when the request omits one.
func (s *Service) DefaultTemperature() float64 {
	return s.cfg.Temperature
}

// StreamResponse opens a fresh model handle and streams the reply to a
// system+user message pair.
func (s *Service) StreamResponse(ctx context.Context, req CompletionRequest) (*schema.StreamReader[*schema.Message], error) {
	modelID := req.Model
	if modelID == "" {
		modelID = s.cfg.DefaultModel
	}

	cm, err := s.newModel(ctx, modelID)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = s.cfg.MaxTokens
	}

	messages := []*schema.Message{
		schema.SystemMessage(req.SystemPrompt),
		schema.UserMessage(req.UserMessage),
	}
	opts := []model.Option{model.WithTemperature(float32(req.Temperature))}
	if maxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(maxTokens))
	}

	s.logger.Debug("streaming completion",
		zap.String("model", modelID),
		zap.Float64("temperature", req.Temperature),
		zap.Int("max_tokens", maxTokens),
		zap.Int("system_prompt_len", len(req.SystemPrompt)),
	)

	stream, err := cm.Stream(ctx, messages, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to stream completion from %s: %w", modelID, err)
	}
	return stream, nil
}
