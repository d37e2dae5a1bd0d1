package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zhouzirui/persona-chat/backend/internal/model/chat"
	"github.com/zhouzirui/persona-chat/backend/internal/service/ai"
	"github.com/zhouzirui/persona-chat/backend/internal/service/persona"
)

var (
	ErrSessionNotFound    = errors.New("session not found")
	ErrMessageRequired    = errors.New("message is required")
	ErrPersonaRequired    = errors.New("persona alias is required")
	ErrInvalidTemperature = errors.New("temperature must be between 0 and 1")
)

// PersonaResolver looks up the persona selected for a turn.
type PersonaResolver interface {
	Resolve(ctx context.Context, alias string) persona.Resolution
}

// Completer streams a model reply.
type Completer interface {
	StreamResponse(ctx context.Context, req ai.CompletionRequest) (*schema.StreamReader[*schema.Message], error)
	DefaultTemperature() float64
}

// TurnRequest carries the user's message and the controls selected for it.
type TurnRequest struct {
	Message      string
	PersonaAlias string
	Model        string
	// Temperature is optional; nil selects the configured default.
	Temperature *float64
}

// TurnResult summarizes one handled turn.
type TurnResult struct {
	SessionID string   `json:"sessionId"`
	Reply     string   `json:"reply"`
	Failed    bool     `json:"failed,omitempty"`
	Notices   []Notice `json:"notices,omitempty"`
}

type sessionState struct {
	// mu serializes turns within one session.
	mu      sync.Mutex
	session chat.Session
	ended   bool
}

// Service owns the per-session conversation state and runs chat turns.
type Service struct {
	resolver  PersonaResolver
	completer Completer
	logger    *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*sessionState
}

// NewService bootstraps the in-memory chat service.
func NewService(resolver PersonaResolver, completer Completer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		resolver:  resolver,
		completer: completer,
		logger:    logger,
		sessions:  make(map[string]*sessionState),
	}
}

// CreateSession provisions an empty conversation.
func (s *Service) CreateSession(_ context.Context) (chat.Session, error) {
	session := chat.Session{
		ID:        uuid.NewString(),
		Turns:     make([]chat.Turn, 0, 16),
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.sessions[session.ID] = &sessionState{session: session}
	s.mu.Unlock()

	s.logger.Debug("session created", zap.String("session_id", session.ID))
	return session, nil
}

// ResetSession implements "new chat": the previous session, if any, is
// discarded and a fresh one with a new identifier is returned.
func (s *Service) ResetSession(ctx context.Context, previousID string) (chat.Session, error) {
	if previousID != "" {
		if err := s.EndSession(ctx, previousID); err != nil && !errors.Is(err, ErrSessionNotFound) {
			return chat.Session{}, err
		}
	}
	return s.CreateSession(ctx)
}

// EndSession discards a session and its log.
func (s *Service) EndSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	state, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}

	state.mu.Lock()
	state.ended = true
	state.mu.Unlock()

	s.logger.Debug("session ended", zap.String("session_id", sessionID))
	return nil
}

// GetSession retrieves a snapshot of a session.
func (s *Service) GetSession(_ context.Context, sessionID string) (chat.Session, error) {
	state, err := s.lookup(sessionID)
	if err != nil {
		return chat.Session{}, err
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	snapshot := state.session
	snapshot.Turns = make([]chat.Turn, len(state.session.Turns))
	copy(snapshot.Turns, state.session.Turns)
	return snapshot, nil
}

// LoadTranscript returns the stored turns for the provided session.
func (s *Service) LoadTranscript(ctx context.Context, sessionID string) ([]chat.Turn, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return session.Turns, nil
}

// ValidateTurn checks a request before any state is touched.
func ValidateTurn(req TurnRequest) error {
	if strings.TrimSpace(req.Message) == "" {
		return ErrMessageRequired
	}
	if req.PersonaAlias == "" {
		return ErrPersonaRequired
	}
	if req.Temperature != nil && (*req.Temperature < 0 || *req.Temperature > 1) {
		return fmt.Errorf("%w: got %v", ErrInvalidTemperature, *req.Temperature)
	}
	return nil
}

// HandleTurn answers one user message: it records the message, builds the
// persona prompt with the recent history, streams the reply into display and
// records the reply. Registry, template and model failures are reported as
// notices; only invalid input or an unknown session return an error.
func (s *Service) HandleTurn(ctx context.Context, sessionID string, req TurnRequest, display Display) (TurnResult, error) {
	if err := ValidateTurn(req); err != nil {
		return TurnResult{}, err
	}
	if display == nil {
		display = DiscardDisplay{}
	}

	state, err := s.lookup(sessionID)
	if err != nil {
		return TurnResult{}, err
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	if state.ended {
		return TurnResult{}, ErrSessionNotFound
	}

	history := append([]chat.Turn(nil), state.session.Turns...)
	state.session.Turns = append(state.session.Turns, chat.Turn{
		Role:      chat.RoleUser,
		Content:   req.Message,
		CreatedAt: time.Now().UTC(),
	})

	rec := &noticeRecorder{Display: display}
	systemPrompt, modelID := s.buildSystemPrompt(ctx, history, req, rec)

	temperature := s.completer.DefaultTemperature()
	if req.Temperature != nil {
		temperature = *req.Temperature
	}

	reply, streamErr := RenderStream(func() (*schema.StreamReader[*schema.Message], error) {
		return s.completer.StreamResponse(ctx, ai.CompletionRequest{
			Model:        modelID,
			SystemPrompt: systemPrompt,
			UserMessage:  req.Message,
			Temperature:  temperature,
		})
	}, rec)

	state.session.Turns = append(state.session.Turns, chat.Turn{
		Role:      chat.RoleAssistant,
		Content:   reply,
		CreatedAt: time.Now().UTC(),
	})

	if streamErr != nil {
		s.logger.Warn("completion failed",
			zap.String("session_id", sessionID),
			zap.String("persona", req.PersonaAlias),
			zap.String("model", modelID),
			zap.Error(streamErr))
	} else {
		s.logger.Info("turn completed",
			zap.String("session_id", sessionID),
			zap.String("persona", req.PersonaAlias),
			zap.String("model", modelID),
			zap.Int("reply_len", len(reply)))
	}

	return TurnResult{
		SessionID: sessionID,
		Reply:     reply,
		Failed:    streamErr != nil,
		Notices:   rec.notices,
	}, nil
}

// buildSystemPrompt resolves the persona and fills its template. The returned
// model is the request's choice, else the persona's configured model.
func (s *Service) buildSystemPrompt(ctx context.Context, history []chat.Turn, req TurnRequest, display Display) (string, string) {
	res := s.resolver.Resolve(ctx, req.PersonaAlias)
	if !res.Found {
		display.Notify(Notice{Level: NoticeWarning, Message: res.Warning})
		return res.SystemPrompt, req.Model
	}

	modelID := req.Model
	if modelID == "" {
		modelID = res.Entry.Meta.Model
	}

	prompt, err := ai.RenderSystemPrompt(history, req.Message, res.Entry.Template, res.Name)
	if err != nil {
		display.Notify(Notice{Level: NoticeWarning, Message: fmt.Sprintf("%v. Using default prompt.", err)})
		s.logger.Warn("persona template could not be formatted",
			zap.String("persona", req.PersonaAlias),
			zap.Error(err))
	}
	return prompt, modelID
}

func (s *Service) lookup(sessionID string) (*sessionState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return state, nil
}
