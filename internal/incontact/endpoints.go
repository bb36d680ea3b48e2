package incontact

import (
	"fmt"
	"net/url"
	"strings"
)

// Endpoint identifies a remote API operation. Response routing is keyed on
// this identifier instead of reconstructed URL strings.
type Endpoint int

const (
	EndpointToken Endpoint = iota
	EndpointAccessKeyToken
	EndpointChatProfile
	EndpointChatCreate
	EndpointChatPoll
	EndpointChatSend
	EndpointChatDelete
	EndpointHoursOfOperation
	EndpointAgentStates
)

func (e Endpoint) String() string {
	switch e {
	case EndpointToken:
		return "token"
	case EndpointAccessKeyToken:
		return "token/access-key"
	case EndpointChatProfile:
		return "chat-profile"
	case EndpointChatCreate:
		return "chat-create"
	case EndpointChatPoll:
		return "chat-poll"
	case EndpointChatSend:
		return "chat-send"
	case EndpointChatDelete:
		return "chat-delete"
	case EndpointHoursOfOperation:
		return "hours-of-operation"
	case EndpointAgentStates:
		return "agent-states"
	default:
		return "unknown"
	}
}

// routed reports whether the status table applies to this endpoint. Only the
// chat-room operations participate; token, profile and availability lookups
// handle their responses inline.
func (e Endpoint) routed() bool {
	switch e {
	case EndpointChatCreate, EndpointChatPoll, EndpointChatSend:
		return true
	default:
		return false
	}
}

// serviceURL builds a resource-server URL for the given path segments.
func serviceURL(baseURL, version string, segments ...string) string {
	var b strings.Builder
	b.WriteString(strings.TrimSuffix(baseURL, "/"))
	b.WriteString("/services/")
	b.WriteString(version)
	for _, s := range segments {
		b.WriteString("/")
		b.WriteString(url.PathEscape(s))
	}
	return b.String()
}

func chatPollURL(baseURL, version, sessionID string, timeoutMillis int64) string {
	return fmt.Sprintf("%s?timeout=%d", serviceURL(baseURL, version, "contacts", "chats", sessionID), timeoutMillis)
}
