package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/goatkit/agentlink/internal/chatbot"
)

// console is a minimal terminal stand-in for the host chatbot: it renders
// sink actions as text lines and feeds stdin lines through the event bus.
// It implements both chatbot.ActionSink and chatbot.EventSource.
type console struct {
	out io.Writer
	in  io.Reader

	mu         sync.Mutex
	transcript []chatbot.ConversationTurn

	escalationHandlers    []func(map[string]string)
	userMessageHandlers   []func(string) bool
	optionHandlers        []func(string, string) bool
	systemDisplayHandlers []func(string)
	readyHandlers         []func()
	resetHandlers         []func()
	displayHandlers       []func()
}

func newConsole(out io.Writer, in io.Reader) *console {
	return &console{out: out, in: in}
}

// ready fires the host-booted event, letting the adapter restore a
// persisted session.
func (c *console) ready() {
	for _, fn := range c.readyHandlers {
		fn()
	}
}

// loop reads stdin lines until EOF. "/escalate" requests a human agent,
// "/exit" leaves an active chat, anything else is a user message.
func (c *console) loop(ctx context.Context) error {
	fmt.Fprintln(c.out, "type /escalate to request an agent, /exit to leave a chat")
	scanner := bufio.NewScanner(c.in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/escalate":
			for _, fn := range c.escalationHandlers {
				fn(nil)
			}
		case line == "/exit":
			for _, fn := range c.optionHandlers {
				if fn("exitConversation", "yes") {
					break
				}
			}
		default:
			c.record(chatbot.RoleGuest, line)
			handled := false
			for _, fn := range c.userMessageHandlers {
				if fn(line) {
					handled = true
					break
				}
			}
			if !handled {
				fmt.Fprintln(c.out, "(no active chat; message kept in transcript)")
			}
		}
	}
	return scanner.Err()
}

func (c *console) record(role chatbot.Role, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transcript = append(c.transcript, chatbot.ConversationTurn{Role: role, Text: text})
}

// ActionSink

func (c *console) DisplayChatbotMessage(text string) {
	for _, fn := range c.displayHandlers {
		fn()
	}
	c.record(chatbot.RoleAssistant, text)
	fmt.Fprintf(c.out, "bot> %s\n", text)
}

func (c *console) DisplaySystemMessage(msg chatbot.SystemMessage) {
	for _, fn := range c.systemDisplayHandlers {
		fn(msg.Message)
	}
	fmt.Fprintf(c.out, "system> %s", msg.Message)
	if name := msg.Replacements["agentName"]; name != "" {
		fmt.Fprintf(c.out, " (%s)", name)
	}
	for _, opt := range msg.Options {
		fmt.Fprintf(c.out, " [%s=%s]", opt.Label, opt.Value)
	}
	fmt.Fprintln(c.out)
}

func (c *console) DisplayChatbotActivity() { fmt.Fprintln(c.out, "... agent is typing") }
func (c *console) HideChatbotActivity()    {}
func (c *console) EnableInput()            {}
func (c *console) DisableInput()           {}

func (c *console) SetChatbotIcon(url string)  {}
func (c *console) SetChatbotName(name string) {}

func (c *console) ConversationTranscript() []chatbot.ConversationTurn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]chatbot.ConversationTurn(nil), c.transcript...)
}

func (c *console) Track(event string, payload map[string]string) {}

// EventSource

func (c *console) OnEscalationRequested(fn func(map[string]string)) {
	c.escalationHandlers = append(c.escalationHandlers, fn)
}

func (c *console) OnUserMessage(fn func(string) bool) {
	c.userMessageHandlers = append(c.userMessageHandlers, fn)
}

func (c *console) OnChatbotMessageDisplay(fn func()) {
	c.displayHandlers = append(c.displayHandlers, fn)
}

func (c *console) OnSystemMessageOption(fn func(string, string) bool) {
	c.optionHandlers = append(c.optionHandlers, fn)
}

func (c *console) OnSystemMessageDisplay(fn func(string)) {
	c.systemDisplayHandlers = append(c.systemDisplayHandlers, fn)
}

func (c *console) OnSessionReset(fn func()) {
	c.resetHandlers = append(c.resetHandlers, fn)
}

func (c *console) OnReady(fn func()) {
	c.readyHandlers = append(c.readyHandlers, fn)
}
