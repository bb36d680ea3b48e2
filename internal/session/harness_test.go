package session

// Test doubles: a fake vendor API served over httptest and a fake chatbot
// host recording every sink action while exposing the event bus.

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goatkit/agentlink/internal/chatbot"
	"github.com/goatkit/agentlink/internal/config"
	"github.com/goatkit/agentlink/internal/incontact"
)

type sentText struct {
	Label   string
	Message string
}

type pollReply struct {
	status int
	body   incontact.PollResponse
}

type fakeVendor struct {
	t   *testing.T
	srv *httptest.Server

	mu           sync.Mutex
	createStatus int
	accessKey    string
	hoursBody    any
	agentsBody   any
	pollQueue    []pollReply
	polls        int
	created      int
	deleted      []string
	sends        []sentText
}

func newFakeVendor(t *testing.T) *fakeVendor {
	t.Helper()
	v := &fakeVendor{t: t, createStatus: http.StatusOK}
	v.srv = httptest.NewServer(http.HandlerFunc(v.handle))
	t.Cleanup(v.srv.Close)
	return v
}

func (v *fakeVendor) tokenURL() string { return v.srv.URL + "/token" }
func (v *fakeVendor) baseURL() string  { return v.srv.URL + "/res/" }

func (v *fakeVendor) queuePoll(status int, messages ...incontact.ChatMessage) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.pollQueue = append(v.pollQueue, pollReply{status: status, body: incontact.PollResponse{Messages: messages}})
}

func (v *fakeVendor) nextPoll() pollReply {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.polls++
	if len(v.pollQueue) > 0 {
		next := v.pollQueue[0]
		v.pollQueue = v.pollQueue[1:]
		return next
	}
	return pollReply{status: http.StatusOK}
}

func (v *fakeVendor) pollCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.polls
}

func (v *fakeVendor) sentMessages() []sentText {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]sentText(nil), v.sends...)
}

func (v *fakeVendor) deletedSessions() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.deleted...)
}

func (v *fakeVendor) createdCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.created
}

func (v *fakeVendor) handle(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case path == "/token" && r.Method == http.MethodPost:
		json.NewEncoder(w).Encode(map[string]string{
			"access_token":             "tok-test",
			"resource_server_base_uri": v.baseURL(),
		})
	case path == "/token/access-key":
		v.mu.Lock()
		body := v.accessKey
		v.mu.Unlock()
		if body == "" {
			body = "{}"
		}
		w.Write([]byte(body))
	case strings.Contains(path, "/points-of-contact/"):
		w.Write([]byte(`{"chatProfile":{}}`))
	case strings.HasSuffix(path, "/hours-of-operation"):
		v.mu.Lock()
		body := v.hoursBody
		v.mu.Unlock()
		json.NewEncoder(w).Encode(body)
	case strings.HasSuffix(path, "/agents/states"):
		v.mu.Lock()
		body := v.agentsBody
		v.mu.Unlock()
		json.NewEncoder(w).Encode(body)
	case path == "/res/services/v13.0/contacts/chats" && r.Method == http.MethodPost:
		v.mu.Lock()
		v.created++
		status := v.createStatus
		v.mu.Unlock()
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"chatSessionId": "chat-test"})
	case strings.HasSuffix(path, "/send-text") && r.Method == http.MethodPost:
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		v.mu.Lock()
		v.sends = append(v.sends, sentText{Label: body["label"], Message: body["message"]})
		v.mu.Unlock()
	case r.Method == http.MethodDelete:
		v.mu.Lock()
		v.deleted = append(v.deleted, path[strings.LastIndex(path, "/")+1:])
		v.mu.Unlock()
	case r.Method == http.MethodGet && strings.Contains(path, "/contacts/chats/"):
		reply := v.nextPoll()
		w.WriteHeader(reply.status)
		if reply.status == http.StatusOK {
			json.NewEncoder(w).Encode(reply.body)
		}
	default:
		v.t.Logf("fake vendor: unhandled %s %s", r.Method, path)
		w.WriteHeader(http.StatusNotFound)
	}
}

// fakeHost implements chatbot.ActionSink and chatbot.EventSource.
type fakeHost struct {
	mu             sync.Mutex
	botMessages    []string
	systemMessages []chatbot.SystemMessage
	transcript     []chatbot.ConversationTurn
	iconSets       []string
	nameSets       []string
	tracked        []string
	inputEnabled   bool

	escalationHandlers []func(map[string]string)
	userMsgHandlers    []func(string) bool
	displayHandlers    []func()
	optionHandlers     []func(string, string) bool
	sysDisplayHandlers []func(string)
	resetHandlers      []func()
	readyHandlers      []func()
}

func newFakeHost(turns ...chatbot.ConversationTurn) *fakeHost {
	return &fakeHost{transcript: turns, inputEnabled: true}
}

// ActionSink

func (h *fakeHost) DisplayChatbotMessage(text string) {
	h.mu.Lock()
	handlers := make([]func(), len(h.displayHandlers))
	copy(handlers, h.displayHandlers)
	h.botMessages = append(h.botMessages, text)
	h.mu.Unlock()
	for _, fn := range handlers {
		fn()
	}
}

func (h *fakeHost) DisplaySystemMessage(msg chatbot.SystemMessage) {
	h.mu.Lock()
	handlers := make([]func(string), len(h.sysDisplayHandlers))
	copy(handlers, h.sysDisplayHandlers)
	h.systemMessages = append(h.systemMessages, msg)
	h.mu.Unlock()
	for _, fn := range handlers {
		fn(msg.Message)
	}
}

func (h *fakeHost) DisplayChatbotActivity() {}
func (h *fakeHost) HideChatbotActivity()    {}

func (h *fakeHost) EnableInput() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.inputEnabled = true
}

func (h *fakeHost) DisableInput() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.inputEnabled = false
}

func (h *fakeHost) SetChatbotIcon(url string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.iconSets = append(h.iconSets, url)
}

func (h *fakeHost) SetChatbotName(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nameSets = append(h.nameSets, name)
}

func (h *fakeHost) ConversationTranscript() []chatbot.ConversationTurn {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]chatbot.ConversationTurn(nil), h.transcript...)
}

func (h *fakeHost) Track(event string, _ map[string]string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.tracked = append(h.tracked, event)
}

// EventSource

func (h *fakeHost) OnEscalationRequested(fn func(map[string]string)) {
	h.escalationHandlers = append(h.escalationHandlers, fn)
}

func (h *fakeHost) OnUserMessage(fn func(string) bool) {
	h.userMsgHandlers = append(h.userMsgHandlers, fn)
}

func (h *fakeHost) OnChatbotMessageDisplay(fn func()) {
	h.displayHandlers = append(h.displayHandlers, fn)
}

func (h *fakeHost) OnSystemMessageOption(fn func(string, string) bool) {
	h.optionHandlers = append(h.optionHandlers, fn)
}

func (h *fakeHost) OnSystemMessageDisplay(fn func(string)) {
	h.sysDisplayHandlers = append(h.sysDisplayHandlers, fn)
}

func (h *fakeHost) OnSessionReset(fn func()) {
	h.resetHandlers = append(h.resetHandlers, fn)
}

func (h *fakeHost) OnReady(fn func()) {
	h.readyHandlers = append(h.readyHandlers, fn)
}

// Event triggers

func (h *fakeHost) requestEscalation(data map[string]string) {
	for _, fn := range h.escalationHandlers {
		fn(data)
	}
}

func (h *fakeHost) userSays(text string) bool {
	h.mu.Lock()
	h.transcript = append(h.transcript, chatbot.ConversationTurn{Role: chatbot.RoleGuest, Text: text})
	handlers := make([]func(string) bool, len(h.userMsgHandlers))
	copy(handlers, h.userMsgHandlers)
	h.mu.Unlock()
	for _, fn := range handlers {
		if fn(text) {
			return true
		}
	}
	return false
}

func (h *fakeHost) selectOption(id, value string) bool {
	for _, fn := range h.optionHandlers {
		if fn(id, value) {
			return true
		}
	}
	return false
}

// Recorded-state accessors

func (h *fakeHost) systemMessageCount(name string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, m := range h.systemMessages {
		if m.Message == name {
			n++
		}
	}
	return n
}

func (h *fakeHost) botMessageList() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.botMessages...)
}

func (h *fakeHost) trackedEvents() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.tracked...)
}

func (h *fakeHost) nameSetList() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.nameSets...)
}

// testSettings returns settings tuned for fast polling in tests.
func testSettings(v *fakeVendor) *config.Settings {
	return &config.Settings{
		Enabled:            true,
		ApplicationName:    "bot",
		ApplicationSecret:  "s3cret",
		VendorName:         "acme",
		PointOfContact:     "poc-1",
		TokenURL:           v.tokenURL(),
		APIVersion:         "v13.0",
		AgentWaitTimeout:   2 * time.Second,
		GetMessageTimeout:  10 * time.Millisecond,
		OutOfTimeDetection: "department is currently closed",
		DefaultUserName:    "Visitor",
		DefaultChatbotName: "Bot",
		DefaultSystemName:  "System",
		Agent:              config.AgentProfile{Name: "Sam"},
		SessionLifetime:    30 * time.Minute,
	}
}
