package session

import (
	"log/slog"

	"github.com/goatkit/agentlink/internal/availability"
	"github.com/goatkit/agentlink/internal/store"
)

// Option applies configuration to the controller.
type Option func(*Controller)

// WithLogger injects a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithStore replaces the default in-memory session store, typically with
// the Redis-backed one so sessions survive host restarts.
func WithStore(s store.Store) Option {
	return func(c *Controller) {
		c.store = s
	}
}

// WithGate enables the pre-escalation availability check. Without a gate
// every escalation proceeds directly to session creation.
func WithGate(g *availability.Gate) Option {
	return func(c *Controller) {
		c.gate = g
	}
}
