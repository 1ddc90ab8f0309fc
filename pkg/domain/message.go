package domain

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message mirrors the OpenAI chat message wire format. Content is either a
// plain string or a []Content with image parts. Assistant messages carry
// exactly one of Content / ToolCalls; use the constructors below.
type Message struct {
	Role       string     `json:"role"`
	Content    any        `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
}

type Content struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

type ImageURL struct {
	URL string `json:"url"`
}

type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

func NewSystemMessage(text string) Message {
	return Message{Role: RoleSystem, Content: text}
}

func NewUserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

func NewUserImageMessage(text, imageURL string) Message {
	parts := []Content{{Type: "image_url", ImageURL: &ImageURL{URL: imageURL}}}
	if text != "" {
		parts = append([]Content{{Type: "text", Text: text}}, parts...)
	}
	return Message{Role: RoleUser, Content: parts}
}

func NewAssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Content: text}
}

func NewAssistantToolCallMessage(calls []ToolCall) Message {
	return Message{Role: RoleAssistant, Content: nil, ToolCalls: calls}
}

func NewToolMessage(callID, name, content string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: callID, Name: name}
}

// TextContent returns the message content when it is a plain string.
func (m Message) TextContent() string {
	if s, ok := m.Content.(string); ok {
		return s
	}
	return ""
}

func (m Message) HasToolCalls() bool {
	return len(m.ToolCalls) > 0
}
