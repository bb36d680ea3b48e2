// Package chatbot defines the contracts between the escalation adapter and
// the host chatbot engine. The engine itself (rendering, input handling,
// event dispatch) lives outside this module; the adapter only consumes these
// interfaces.
package chatbot

// Role identifies the author of a transcript turn.
type Role string

const (
	RoleAssistant Role = "assistant"
	RoleGuest     Role = "guest"
	RoleSystem    Role = "system"
)

// ConversationTurn is one entry of the chatbot conversation transcript, in
// display order.
type ConversationTurn struct {
	Role Role
	Text string
}

// MessageOption is a selectable option attached to a system message.
type MessageOption struct {
	Label string
	Value string
}

// SystemMessage is a host-translated notice shown in the conversation flow.
// Message is a label key resolved by the host UI, not final copy.
type SystemMessage struct {
	Message      string
	ID           string
	Replacements map[string]string
	Options      []MessageOption
}

// ActionSink receives UI effects from the adapter. Implementations must be
// safe to call from the adapter's poll and timer goroutines.
type ActionSink interface {
	// DisplayChatbotMessage shows text as a regular answer bubble.
	DisplayChatbotMessage(text string)
	// DisplaySystemMessage shows a translated system notice.
	DisplaySystemMessage(msg SystemMessage)

	DisplayChatbotActivity()
	HideChatbotActivity()
	EnableInput()
	DisableInput()

	// SetChatbotIcon and SetChatbotName switch the conversation branding
	// between the default bot identity and the connected agent. An empty
	// value restores the default.
	SetChatbotIcon(url string)
	SetChatbotName(name string)

	// ConversationTranscript returns the conversation so far, oldest first.
	ConversationTranscript() []ConversationTurn

	// Track forwards an analytics event to the host.
	Track(event string, payload map[string]string)
}

// EventSource is the host chatbot's subscription surface. Handlers returning
// a bool report whether the adapter consumed the event; the host falls
// through to its own handling when false.
type EventSource interface {
	// OnEscalationRequested fires when the user asks for a human agent.
	// The data map carries escalation form fields keyed by field name.
	OnEscalationRequested(fn func(data map[string]string))
	// OnUserMessage fires for every message the user submits.
	OnUserMessage(fn func(text string) bool)
	// OnChatbotMessageDisplay fires just before an answer bubble renders.
	OnChatbotMessageDisplay(fn func())
	// OnSystemMessageOption fires when the user selects a system message
	// option; id is the SystemMessage.ID, value the chosen option value.
	OnSystemMessageOption(fn func(id, value string) bool)
	// OnSystemMessageDisplay fires just before a system notice renders.
	OnSystemMessageDisplay(fn func(message string))
	// OnSessionReset fires when the host resets the conversation.
	OnSessionReset(fn func())
	// OnReady fires once the host finished booting, including after a
	// page reload.
	OnReady(fn func())
}
