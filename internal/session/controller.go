// Package session implements the escalation session lifecycle: connecting
// to the contact center, polling the chat room, relaying messages in both
// directions, and converging every termination path on one cleanup.
package session

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goatkit/agentlink/internal/availability"
	"github.com/goatkit/agentlink/internal/chatbot"
	"github.com/goatkit/agentlink/internal/config"
	"github.com/goatkit/agentlink/internal/incontact"
	"github.com/goatkit/agentlink/internal/store"
)

// Controller owns the single active session per chatbot instance and every
// transition of its lifecycle. All state changes funnel through one mutex;
// poll responses and timer callbacks that outlive the session are detected
// by an epoch counter and discarded.
type Controller struct {
	cfg    *config.Settings
	client *incontact.Client
	sink   chatbot.ActionSink
	gate   *availability.Gate
	store  store.Store
	logger *slog.Logger
	metrics *sessionMetrics

	mu    sync.Mutex
	phase Phase
	sess  Session
	// epoch increments on every cleanup; callbacks carrying a stale epoch
	// are no-ops.
	epoch             uint64
	waitTimer         *time.Timer
	pollTimer         *time.Timer
	agentIconSet      bool
	transcriptFlushed bool
	fromName          string
	fromAddress       string
	parameters        []string
	avatarImage       string
}

// New creates a controller. The client, sink, and settings are required;
// everything else has working defaults (in-memory store, no availability
// gate, default logger).
func New(cfg *config.Settings, client *incontact.Client, sink chatbot.ActionSink, opts ...Option) *Controller {
	c := &Controller{
		cfg:     cfg,
		client:  client,
		sink:    sink,
		store:   store.NewMemoryStore(),
		logger:  slog.Default(),
		metrics: globalMetrics(),
		sess:    Session{ClosedByTimeout: true},
	}
	c.fromName = cfg.FromName
	c.fromAddress = cfg.FromAddress
	c.parameters = append(c.parameters, cfg.Parameters...)
	c.avatarImage = cfg.Agent.AvatarImage
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Phase returns the current lifecycle phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Open reports whether a session is currently open.
func (c *Controller) Open() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess.IsOpen
}

// Attach registers the controller against the host chatbot's event bus.
// A disabled adapter registers nothing.
func (c *Controller) Attach(events chatbot.EventSource) {
	if !c.cfg.Enabled {
		c.logger.Info("escalation adapter disabled by configuration")
		return
	}

	events.OnEscalationRequested(func(data map[string]string) {
		go c.handleEscalation(context.Background(), data)
	})

	events.OnUserMessage(func(text string) bool {
		if !c.Open() {
			return false
		}
		go c.Send(context.Background(), text)
		return true
	})

	events.OnChatbotMessageDisplay(func() {
		c.applyAgentBranding()
	})

	events.OnSystemMessageOption(func(id, value string) bool {
		switch {
		case value == "try-again":
			c.enterQuestion()
			return true
		case id == "exitConversation" && value == "yes" && c.Open():
			ctx := context.Background()
			c.Terminate(ctx, CloseReasonUserExit)
			c.sink.SetChatbotIcon("")
			c.sink.SetChatbotName("")
			c.sink.DisplaySystemMessage(chatbot.SystemMessage{Message: "chat-closed"})
			return true
		default:
			return false
		}
	})

	events.OnSystemMessageDisplay(func(message string) {
		switch message {
		case "agent-joined":
			c.sink.Track("CHAT_ATTENDED", map[string]string{"value": "TRUE"})
		case "no-agents":
			c.sink.Track("CHAT_UNATTENDED", map[string]string{"value": "TRUE"})
		}
	})

	events.OnSessionReset(func() {
		c.mu.Lock()
		stopTimer(c.waitTimer)
		stopTimer(c.pollTimer)
		c.mu.Unlock()
	})

	events.OnReady(func() {
		c.Restore(context.Background())
	})
}

// handleEscalation runs the availability gate and, on Proceed, opens the
// session. A blocked decision returns the user to the normal flow with the
// block reason as a chatbot message.
func (c *Controller) handleEscalation(ctx context.Context, data map[string]string) {
	c.updateChatInfo(ctx, data)

	c.sink.DisableInput()
	c.sink.DisplayChatbotActivity()

	if c.gate != nil {
		decision := c.gate.Check(ctx)
		if !decision.Proceed {
			c.metrics.blockedRecorded()
			c.sink.HideChatbotActivity()
			c.sink.EnableInput()
			c.sink.DisplayChatbotMessage("<em>" + decision.Reason + "</em>")
			return
		}
	}

	c.sink.DisplaySystemMessage(chatbot.SystemMessage{Message: "wait-for-agent"})
	c.Escalate(ctx)
}

// Escalate drives Idle→Connecting→Open: app token, chat profile, chat-room
// creation, then the poll loop. The no-agents wait timer starts immediately
// so a stalled connection attempt still resolves to a no-agents notice.
func (c *Controller) Escalate(ctx context.Context) {
	c.mu.Lock()
	if c.phase != PhaseIdle {
		c.mu.Unlock()
		return
	}
	c.phase = PhaseConnecting
	c.sess.ClosedByTimeout = false
	epoch := c.epoch
	c.startWaitTimerLocked(epoch)
	c.mu.Unlock()

	tok, err := c.client.FetchAppToken(ctx, c.cfg.AuthCode())
	if err != nil {
		c.logger.Warn("app token grant failed", "error", err)
		c.abortConnecting(epoch)
		return
	}
	c.client.SetSession(tok.AccessToken, tok.ResourceBaseURL)
	c.mu.Lock()
	c.sess.AccessToken = tok.AccessToken
	c.sess.ResourceBaseURL = tok.ResourceBaseURL
	c.mu.Unlock()

	c.fetchChatProfile(ctx)

	created, status, err := c.client.CreateChat(ctx, c.chatPayload())
	if err != nil || created.ChatSessionID == "" {
		if route := incontact.Route(incontact.EndpointChatCreate, status, nil, c.cfg.OutOfTimeDetection); route.Effect == incontact.EffectGenericError {
			c.logger.Warn("chat-room creation rejected", "status", status)
			c.abortConnecting(epoch)
			return
		}
		// Transport failure or empty id: leave the wait timer to resolve
		// this attempt as no-agents.
		c.logger.Warn("chat-room creation failed", "status", status, "error", err)
		return
	}

	c.mu.Lock()
	if epoch != c.epoch || c.phase != PhaseConnecting {
		c.mu.Unlock()
		return
	}
	c.sess.SessionID = created.ChatSessionID
	c.sess.IsOpen = true
	c.phase = PhaseWaitingForAgent
	c.persistSession(ctx)
	c.mu.Unlock()

	c.metrics.openedRecorded()
	c.logger.Info("chat session opened", "session_id", created.ChatSessionID)
	go c.poll(epoch)
}

// abortConnecting unwinds a failed connection attempt with a retryable
// error prompt. Nothing was persisted yet, so cleanup is local.
func (c *Controller) abortConnecting(epoch uint64) {
	c.mu.Lock()
	if epoch != c.epoch || c.phase != PhaseConnecting {
		c.mu.Unlock()
		return
	}
	c.epoch++
	c.phase = PhaseIdle
	c.sess = Session{ClosedByTimeout: true}
	stopTimer(c.waitTimer)
	stopTimer(c.pollTimer)
	c.mu.Unlock()

	c.sink.HideChatbotActivity()
	c.genericError()
	c.sink.EnableInput()
}

// Send relays one user message to the open chat room. Closed sessions skip
// the send silently.
func (c *Controller) Send(ctx context.Context, text string) {
	c.mu.Lock()
	if !c.sess.IsOpen || c.sess.SessionID == "" {
		c.mu.Unlock()
		return
	}
	epoch := c.epoch
	sessionID := c.sess.SessionID
	c.mu.Unlock()

	status, err := c.client.SendText(ctx, sessionID, c.labelFor(chatbot.RoleGuest), text)
	if err != nil {
		c.logger.Debug("send failed", "error", err)
		return
	}
	c.metrics.sendRecorded()

	switch route := incontact.Route(incontact.EndpointChatSend, status, nil, c.cfg.OutOfTimeDetection); route.Effect {
	case incontact.EffectGenericError:
		c.genericError()
	case incontact.EffectAgentLeft:
		c.agentLeft(epoch)
	}
}

// Terminate closes the session from the given reason's path. Calling it on
// an already-closed controller is a no-op.
func (c *Controller) Terminate(ctx context.Context, reason CloseReason) {
	c.mu.Lock()
	epoch := c.epoch
	c.mu.Unlock()
	c.close(epoch, reason)
}

// Restore resumes a persisted session after a host restart: session fields
// come back from the store and polling continues without re-creating the
// chat room. Until the next poll reports a status the sub-state is
// unknown, so the controller re-enters waiting-for-agent.
func (c *Controller) Restore(ctx context.Context) {
	marker, ok, err := c.store.Get(ctx, keyActive)
	if err != nil || !ok || marker != activeMarker {
		return
	}
	token, okToken, _ := c.store.Get(ctx, keyAccessToken)
	baseURL, okBase, _ := c.store.Get(ctx, keyResourceBaseURL)
	sessionID, okID, _ := c.store.Get(ctx, keySessionID)
	if !okToken || !okBase || !okID || sessionID == "" {
		c.clearPersisted(ctx)
		return
	}
	if name, okName, _ := c.store.Get(ctx, keyUserName); okName {
		c.mu.Lock()
		c.fromName = name
		c.mu.Unlock()
	}

	c.client.SetSession(token, baseURL)

	c.mu.Lock()
	if c.sess.IsOpen {
		c.mu.Unlock()
		return
	}
	c.sess = Session{
		SessionID:       sessionID,
		AccessToken:     token,
		ResourceBaseURL: baseURL,
		IsOpen:          true,
	}
	c.phase = PhaseWaitingForAgent
	epoch := c.epoch
	c.mu.Unlock()

	c.logger.Info("restored persisted chat session", "session_id", sessionID)
	c.fetchChatProfile(ctx)
	c.schedulePoll(epoch)
}

// poll issues one chat poll and feeds the response through the router and
// the event consumer. Transport errors stop the loop silently, matching
// the vendor adapter.
func (c *Controller) poll(epoch uint64) {
	c.mu.Lock()
	if epoch != c.epoch || !c.sess.IsOpen {
		c.mu.Unlock()
		return
	}
	sessionID := c.sess.SessionID
	c.mu.Unlock()

	resp, status, err := c.client.PollChat(context.Background(), sessionID, c.cfg.GetMessageTimeout)
	if err != nil {
		c.logger.Debug("poll failed", "error", err)
		return
	}
	c.handlePoll(epoch, resp, status)
}

func (c *Controller) handlePoll(epoch uint64, resp incontact.PollResponse, status int) {
	ctx := context.Background()

	c.mu.Lock()
	if epoch != c.epoch || !c.sess.IsOpen {
		// SessionClosedRace: the session ended while this poll was in
		// flight. Stale but harmless.
		c.mu.Unlock()
		return
	}
	if resp.ChatSession != "" && resp.ChatSession != c.sess.SessionID {
		c.sess.SessionID = resp.ChatSession
		c.persistSessionID(ctx)
	}
	c.mu.Unlock()

	route := incontact.Route(incontact.EndpointChatPoll, status, resp.Messages, c.cfg.OutOfTimeDetection)
	c.metrics.pollRecorded(route.Effect)

	switch route.Effect {
	case incontact.EffectOutOfTime:
		c.outOfTime(epoch, route.Text)
	case incontact.EffectAgentLeft:
		c.agentLeft(epoch)
	case incontact.EffectGenericError:
		c.genericError()
	case incontact.EffectReschedule:
		if status == 200 {
			c.consumeEvents(epoch, parsePoll(resp))
		}
		c.schedulePoll(epoch)
	case incontact.EffectIgnore:
		// Deliberate gap: polling stops with no notice on unlisted
		// statuses.
	}
}

// schedulePoll arms the poll timer for the configured interval, replacing
// any pending one. Closed sessions schedule nothing.
func (c *Controller) schedulePoll(epoch uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if epoch != c.epoch || !c.sess.IsOpen || c.sess.ClosedByTimeout {
		return
	}
	stopTimer(c.pollTimer)
	c.pollTimer = time.AfterFunc(c.cfg.GetMessageTimeout, func() {
		c.poll(epoch)
	})
}

// startWaitTimerLocked arms the bounded agent wait. If it fires before an
// agent joins, the session resolves as no-agents.
func (c *Controller) startWaitTimerLocked(epoch uint64) {
	stopTimer(c.waitTimer)
	c.waitTimer = time.AfterFunc(c.cfg.AgentWaitTimeout, func() {
		c.onWaitTimeout(epoch)
	})
}

func (c *Controller) onWaitTimeout(epoch uint64) {
	c.mu.Lock()
	if epoch != c.epoch || c.sess.AgentConnected {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	c.sink.DisplaySystemMessage(chatbot.SystemMessage{Message: "no-agents"})
	c.close(epoch, CloseReasonNoAgents)
}

// outOfTime closes the session and shows the matched message text
// verbatim as the final message.
func (c *Controller) outOfTime(epoch uint64, text string) {
	c.close(epoch, CloseReasonOutOfTime)
	c.sink.DisplayChatbotMessage(text)
}

// agentLeft handles a 404: the remote room is already gone, so cleanup
// skips the delete call, resets branding, and shows one agent-left notice.
func (c *Controller) agentLeft(epoch uint64) {
	c.mu.Lock()
	if epoch != c.epoch {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	c.sink.SetChatbotIcon("")
	c.sink.SetChatbotName("")
	c.sink.DisplaySystemMessage(chatbot.SystemMessage{
		Message:      "agent-left",
		Replacements: map[string]string{"agentName": c.cfg.Agent.Name},
	})
	c.close(epoch, CloseReasonAgentLeft)
}

// close is the single convergence point for every termination path. It is
// idempotent: a second call with the same epoch, or any call after
// cleanup, does nothing.
func (c *Controller) close(epoch uint64, reason CloseReason) {
	ctx := context.Background()

	c.mu.Lock()
	if epoch != c.epoch || c.phase == PhaseClosing {
		c.mu.Unlock()
		return
	}
	if c.phase == PhaseIdle && c.sess.SessionID == "" && !c.sess.IsOpen {
		c.mu.Unlock()
		return
	}
	c.phase = PhaseClosing
	sessionID := c.sess.SessionID
	c.mu.Unlock()

	// A 404 already means the room is gone; everything else deletes it,
	// unless no room was ever created.
	if reason != CloseReasonAgentLeft && sessionID != "" {
		if err := c.client.DeleteChat(ctx, sessionID); err != nil {
			c.logger.Debug("chat delete failed", "error", err)
		}
	}
	c.finish(ctx, epoch, reason)
}

// finish resets all session state. The wait timer and the poll timer are
// always cancelled together here, on every termination path.
func (c *Controller) finish(ctx context.Context, epoch uint64, reason CloseReason) {
	c.mu.Lock()
	if epoch != c.epoch {
		c.mu.Unlock()
		return
	}
	c.epoch++
	c.sess = Session{ClosedByTimeout: true}
	c.phase = PhaseIdle
	c.agentIconSet = false
	c.transcriptFlushed = false
	stopTimer(c.waitTimer)
	stopTimer(c.pollTimer)
	c.mu.Unlock()

	c.clearPersisted(ctx)
	c.metrics.closedRecorded(reason)
	c.logger.Info("chat session closed", "reason", string(reason))

	c.sink.HideChatbotActivity()
	c.enterQuestion()
	c.sink.EnableInput()
}

// updateChatInfo merges escalation form data into the chat payload. An
// EMAIL_ADDRESS field becomes the contact address, FIRST_NAME the visible
// user name (persisted for later visits); every value joins the payload
// parameters.
func (c *Controller) updateChatInfo(ctx context.Context, data map[string]string) {
	if len(data) == 0 {
		return
	}
	fields := make([]string, 0, len(data))
	for field := range data {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, field := range fields {
		value := data[field]
		switch strings.ToLower(field) {
		case "email_address":
			c.fromAddress = value
		case "first_name":
			c.fromName = value
			c.setStored(ctx, keyUserName, value, c.cfg.SessionLifetime)
		}
		c.parameters = append(c.parameters, value)
	}
}

func (c *Controller) chatPayload() incontact.ChatPayload {
	c.mu.Lock()
	defer c.mu.Unlock()
	return incontact.ChatPayload{
		PointOfContact: c.cfg.PointOfContact,
		FromName:       c.fromName,
		FromAddress:    c.fromAddress,
		Parameters:     append([]string(nil), c.parameters...),
	}
}

// fetchChatProfile adopts the point-of-contact hero image as the agent
// avatar when none is configured. Best effort; failures are ignored.
func (c *Controller) fetchChatProfile(ctx context.Context) {
	if c.cfg.Agent.AvatarImage != "" {
		return
	}
	resp, err := c.client.ChatProfile(ctx, c.cfg.PointOfContact)
	if err != nil {
		c.logger.Debug("chat profile fetch failed", "error", err)
		return
	}
	for _, entry := range resp.ChatProfile {
		if entry.HeroImage != "" {
			c.mu.Lock()
			c.avatarImage = entry.HeroImage
			c.mu.Unlock()
			return
		}
	}
}

// applyAgentBranding swaps the conversation branding to the agent identity.
// While waiting it happens once per session; once the agent is connected it
// is re-applied on every displayed message, so the host cannot drift back
// to the bot identity mid-conversation. Otherwise the bot name is blanked.
func (c *Controller) applyAgentBranding() {
	c.mu.Lock()
	open := c.sess.IsOpen
	connected := c.sess.AgentConnected
	done := c.agentIconSet
	avatar := c.avatarImage
	apply := connected || (open && !done)
	if apply {
		c.agentIconSet = true
	}
	c.mu.Unlock()

	if apply {
		if avatar != "" {
			c.sink.SetChatbotIcon(avatar)
		}
		if c.cfg.Agent.Name != "" {
			c.sink.SetChatbotName(c.cfg.Agent.Name)
		}
		return
	}
	if !open {
		c.sink.SetChatbotName(" ")
	}
}

// genericError surfaces the retryable error prompt for 400/401 responses.
func (c *Controller) genericError() {
	c.sink.DisplaySystemMessage(chatbot.SystemMessage{
		Message: "alert-title",
		ID:      "incontact-error",
		Options: []chatbot.MessageOption{{Label: "alert-button", Value: "try-again"}},
	})
}

// enterQuestion returns the conversation to the normal question-answering
// prompt.
func (c *Controller) enterQuestion() {
	c.sink.DisplaySystemMessage(chatbot.SystemMessage{Message: "enter-question"})
}

func stopTimer(t *time.Timer) {
	if t != nil {
		t.Stop()
	}
}
