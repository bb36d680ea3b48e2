package session

import (
	"context"

	"github.com/goatkit/agentlink/internal/chatbot"
	"github.com/goatkit/agentlink/internal/incontact"
)

// greetingPrompt is the vendor's literal opening question. It is filtered
// out of first-question capture so the agent's real opening question, not
// the boilerplate greeting, is replayed when the agent joins.
const greetingPrompt = "Hello, what is your name?"

// Status is the remote session status reported through poll messages.
type Status string

const (
	StatusWaiting      Status = "Waiting"
	StatusActive       Status = "Active"
	StatusDisconnected Status = "Disconnected"
)

// EventKind tags an InboundEvent variant.
type EventKind int

const (
	EventStatusChanged EventKind = iota
	EventAgentText
	EventSystemAsk
	EventAgentTyping
)

// InboundEvent is one normalized occurrence extracted from a poll response.
type InboundEvent struct {
	Kind   EventKind
	Status Status
	Text   string
	Typing bool
}

// parsePoll flattens the vendor's mixed message records into ordered
// events. A single record can produce both a status change and a text or
// typing event, matching how the vendor overloads the record shape.
func parsePoll(resp incontact.PollResponse) []InboundEvent {
	var events []InboundEvent
	for _, m := range resp.Messages {
		if m.Type != "" && m.Status != "" {
			switch Status(m.Status) {
			case StatusWaiting, StatusActive, StatusDisconnected:
				events = append(events, InboundEvent{Kind: EventStatusChanged, Status: Status(m.Status)})
			}
		}

		switch {
		case m.Text != "" && m.PartyTypeValue != "":
			switch m.PartyTypeValue {
			case "1", "Agent":
				events = append(events, InboundEvent{Kind: EventAgentText, Text: m.Text})
			case "System":
				if m.Type == "Ask" {
					events = append(events, InboundEvent{Kind: EventSystemAsk, Text: m.Text})
				}
			}
		case m.PartyTypeValue != "" && m.Type == "AgentTyping":
			typing := m.IsTextEntered == "True" || m.IsTyping == "True"
			events = append(events, InboundEvent{Kind: EventAgentTyping, Typing: typing})
		}
	}
	return events
}

// labelFor maps a transcript author role to the label shown to the remote
// agent.
func (c *Controller) labelFor(role chatbot.Role) string {
	switch role {
	case chatbot.RoleAssistant:
		return c.cfg.DefaultChatbotName
	case chatbot.RoleGuest:
		c.mu.Lock()
		name := c.fromName
		c.mu.Unlock()
		if name != "" {
			return name
		}
		return c.cfg.DefaultUserName
	default:
		return c.cfg.DefaultSystemName
	}
}

// flushTranscript relays the conversation so far to the remote agent,
// strictly in order: each send starts only after the previous round-trip
// completes. The flush stops silently as soon as the session leaves a
// sendable state.
func (c *Controller) flushTranscript(epoch uint64) {
	turns := c.sink.ConversationTranscript()
	go c.sendSequential(epoch, turns)
}

func (c *Controller) sendSequential(epoch uint64, turns []chatbot.ConversationTurn) {
	ctx := context.Background()
	for _, turn := range turns {
		c.mu.Lock()
		sendable := epoch == c.epoch && c.sess.IsOpen && c.sess.SessionID != ""
		sessionID := c.sess.SessionID
		c.mu.Unlock()
		if !sendable {
			return
		}
		if _, err := c.client.SendText(ctx, sessionID, c.labelFor(turn.Role), turn.Text); err != nil {
			c.logger.Debug("transcript send failed", "error", err)
			return
		}
		c.metrics.sendRecorded()
	}
}

// consumeEvents applies poll events to the state machine and the UI.
// Processing stops once an event closes the session.
func (c *Controller) consumeEvents(epoch uint64, events []InboundEvent) {
	for _, ev := range events {
		c.mu.Lock()
		if epoch != c.epoch || !c.sess.IsOpen {
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()

		switch ev.Kind {
		case EventStatusChanged:
			switch ev.Status {
			case StatusWaiting:
				c.onWaiting(epoch)
			case StatusActive:
				c.onAgentJoined(epoch)
			case StatusDisconnected:
				c.close(epoch, CloseReasonDisconnected)
				return
			}
		case EventAgentText:
			c.sink.HideChatbotActivity()
			c.sink.DisplayChatbotMessage(ev.Text)
		case EventSystemAsk:
			if ev.Text != greetingPrompt {
				c.mu.Lock()
				c.sess.FirstQueuedAnswer = ev.Text
				c.mu.Unlock()
			}
		case EventAgentTyping:
			if ev.Typing {
				c.sink.DisplayChatbotActivity()
			} else {
				c.sink.HideChatbotActivity()
			}
		}
	}
}

// onWaiting fires on the first Waiting status: the transcript is flushed to
// the remote side exactly once per session.
func (c *Controller) onWaiting(epoch uint64) {
	c.mu.Lock()
	if c.transcriptFlushed {
		c.mu.Unlock()
		return
	}
	c.transcriptFlushed = true
	c.mu.Unlock()
	c.flushTranscript(epoch)
}

// onAgentJoined handles the Waiting→Active transition: the no-agents wait
// timer is cancelled, the UI is unlocked, and a queued first question is
// replayed once.
func (c *Controller) onAgentJoined(epoch uint64) {
	c.mu.Lock()
	if epoch != c.epoch || c.sess.AgentConnected {
		c.mu.Unlock()
		return
	}
	c.sess.AgentConnected = true
	c.phase = PhaseAgentActive
	stopTimer(c.waitTimer)
	first := c.sess.FirstQueuedAnswer
	c.sess.FirstQueuedAnswer = ""
	c.mu.Unlock()

	c.sink.DisplaySystemMessage(chatbot.SystemMessage{
		Message:      "agent-joined",
		Replacements: map[string]string{"agentName": c.cfg.Agent.Name},
	})
	c.sink.HideChatbotActivity()
	c.sink.EnableInput()
	if first != "" {
		c.sink.DisplayChatbotMessage(first)
	}
}
