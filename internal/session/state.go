package session

import (
	"context"
	"time"
)

// Phase is the controller's position in the session lifecycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseConnecting
	PhaseWaitingForAgent
	PhaseAgentActive
	PhaseClosing
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseConnecting:
		return "connecting"
	case PhaseWaitingForAgent:
		return "waiting-for-agent"
	case PhaseAgentActive:
		return "agent-active"
	case PhaseClosing:
		return "closing"
	default:
		return "unknown"
	}
}

// CloseReason labels a termination path.
type CloseReason string

const (
	CloseReasonUserExit     CloseReason = "user-exit"
	CloseReasonNoAgents     CloseReason = "no-agents"
	CloseReasonAgentLeft    CloseReason = "agent-left"
	CloseReasonDisconnected CloseReason = "disconnected"
	CloseReasonOutOfTime    CloseReason = "out-of-time"
	CloseReasonError        CloseReason = "error"
)

// Session is the adapter's view of one live-chat room. SessionID is empty
// exactly when no session is open.
type Session struct {
	SessionID         string
	AccessToken       string
	ResourceBaseURL   string
	IsOpen            bool
	AgentConnected    bool
	ClosedByTimeout   bool
	FirstQueuedAnswer string
}

// Store keys for the persisted session mirror. The active marker gates
// restore; the remaining keys carry the fields needed to resume polling
// without re-creating the chat room.
const (
	keyActive          = "active"
	keyAccessToken     = "accessToken"
	keyResourceBaseURL = "resourceBaseUrl"
	keySessionID       = "chatSessionId"
	keyUserName        = "userName"
)

const activeMarker = "active"

// persistSession mirrors the open session into the store. Callers hold the
// controller lock; fields are written only while the session is open and
// never after a timeout close.
func (c *Controller) persistSession(ctx context.Context) {
	if !c.sess.IsOpen || c.sess.ClosedByTimeout {
		return
	}
	ttl := c.cfg.SessionLifetime
	c.setStored(ctx, keyActive, activeMarker, ttl)
	c.setStored(ctx, keyAccessToken, c.sess.AccessToken, ttl)
	c.setStored(ctx, keyResourceBaseURL, c.sess.ResourceBaseURL, ttl)
	c.setStored(ctx, keySessionID, c.sess.SessionID, ttl)
}

// persistSessionID refreshes only the session id, used when a poll renews
// it.
func (c *Controller) persistSessionID(ctx context.Context) {
	if !c.sess.IsOpen || c.sess.ClosedByTimeout {
		return
	}
	c.setStored(ctx, keySessionID, c.sess.SessionID, c.cfg.SessionLifetime)
}

func (c *Controller) setStored(ctx context.Context, key, value string, ttl time.Duration) {
	if err := c.store.Set(ctx, key, value, ttl); err != nil {
		c.logger.Debug("persist session field", "key", key, "error", err)
	}
}

// clearPersisted removes every persisted session field. Deleting absent
// keys is a no-op, so repeated cleanup is safe.
func (c *Controller) clearPersisted(ctx context.Context) {
	if err := c.store.Delete(ctx, keyActive, keyAccessToken, keyResourceBaseURL, keySessionID); err != nil {
		c.logger.Debug("clear persisted session", "error", err)
	}
}
