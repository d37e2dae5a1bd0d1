package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/persona-chat/backend/internal/model/chat"
	"github.com/zhouzirui/persona-chat/backend/internal/model/persona"
)

// MemoryWindow is the number of prior turns injected into the memory context.
const MemoryWindow = 4

const memoryHeader = "Previous conversations:\n"

// TemplateError reports a persona template that could not be slot-filled.
type TemplateError struct {
	Slot string
	Err  error
}

func (e *TemplateError) Error() string {
	if e.Slot != "" {
		return fmt.Sprintf("template format error: missing slot {%s}", e.Slot)
	}
	return fmt.Sprintf("template format error: %v", e.Err)
}

func (e *TemplateError) Unwrap() error {
	return e.Err
}

// BuildMemoryContext renders the "Previous conversations" block from the most
// recent MemoryWindow turns of history. history must not contain the turn being answered.
func BuildMemoryContext(history []chat.Turn) string {
	start := 0
	if len(history) > MemoryWindow {
		start = len(history) - MemoryWindow
	}

	lines := make([]string, 0, len(history)-start)
	for _, turn := range history[start:] {
		lines = append(lines, turn.Role.Label()+": "+turn.Content)
	}
	return memoryHeader + strings.Join(lines, "\n")
}

// FallbackSystemPrompt is used when a persona cannot be loaded from the registry.
func FallbackSystemPrompt(personaName string) string {
	return fmt.Sprintf("You are a helpful assistant with a %s personality.", personaName)
}

// RenderSystemPrompt fills the persona template's memory_context and user_message slots.
// When the template cannot be formatted it returns a synthesized prompt built from
// personaName and the memory block together with a *TemplateError; callers should
// surface the error as a warning and continue with the returned prompt.
func RenderSystemPrompt(history []chat.Turn, userMessage, template, personaName string) (string, error) {
	memory := BuildMemoryContext(history)

	rendered, err := formatTemplate(template, memory, userMessage)
	if err != nil {
		return FallbackSystemPrompt(personaName) + " Previous context: " + memory, err
	}
	return rendered, nil
}

func formatTemplate(template, memory, userMessage string) (string, error) {
	for _, slot := range []string{persona.SlotMemoryContext, persona.SlotUserMessage} {
		if !strings.Contains(template, "{"+slot+"}") {
			return "", &TemplateError{Slot: slot}
		}
	}

	tpl := prompt.FromMessages(schema.FString, schema.SystemMessage(template))
	msgs, err := tpl.Format(context.Background(), map[string]any{
		persona.SlotMemoryContext: memory,
		persona.SlotUserMessage:   userMessage,
	})
	if err != nil {
		return "", &TemplateError{Err: err}
	}
	if len(msgs) == 0 {
		return "", &TemplateError{Err: fmt.Errorf("template produced no message")}
	}
	return msgs[0].Content, nil
}
