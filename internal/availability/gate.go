// Package availability decides whether an escalation attempt should reach
// the contact center at all, based on operating hours and agent presence.
//
// Every stage fails open: when a verification step cannot be completed the
// gate lets the escalation proceed. Only an explicit "closed" or "no
// available agent" signal blocks the user.
package availability

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/goatkit/agentlink/internal/chatbot"
	"github.com/goatkit/agentlink/internal/config"
	"github.com/goatkit/agentlink/internal/incontact"
)

// availableStateID is the vendor's numeric id for an agent ready to take a
// chat; the listing must also carry the matching state name.
const availableStateID = 1

// Decision is the gate's verdict. Reason is set only when blocked and is
// shown to the user as-is.
type Decision struct {
	Proceed bool
	Reason  string
}

// Gate runs the pre-escalation availability check.
type Gate struct {
	client *incontact.Client
	cfg    *config.Settings
	sink   chatbot.ActionSink
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Gate.
type Option func(*Gate)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) { g.logger = logger }
}

// WithClock overrides the time source, used by hours-of-operation tests.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

// WithSink sets the action sink used for the "looking for agents" notice.
func WithSink(sink chatbot.ActionSink) Option {
	return func(g *Gate) { g.sink = sink }
}

// NewGate creates a gate over the given client and settings.
func NewGate(client *incontact.Client, cfg *config.Settings, opts ...Option) *Gate {
	g := &Gate{
		client: client,
		cfg:    cfg,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Check runs the three fail-open stages: access-key token, operating hours,
// agent presence.
func (g *Gate) Check(ctx context.Context) Decision {
	tok, ok, err := g.client.FetchAccessKeyToken(ctx, g.cfg.AccessKeyID, g.cfg.AccessKeySecret)
	if err != nil {
		g.logger.Debug("availability: access-key grant failed, proceeding", "error", err)
		return Decision{Proceed: true}
	}
	if !ok {
		g.logger.Debug("availability: no usable access-key token, proceeding")
		return Decision{Proceed: true}
	}

	if g.sink != nil {
		g.sink.DisplayChatbotMessage("<em>Looking for agents</em>")
	}

	hours, err := g.client.HoursOfOperation(ctx, tok)
	if err != nil {
		g.logger.Debug("availability: hours fetch failed, proceeding", "error", err)
	} else if d := decideHours(hours.ResultSet.Profiles, g.now()); !d.Proceed {
		return d
	}

	states, err := g.client.AgentStates(ctx, tok)
	if err != nil {
		g.logger.Debug("availability: agent-state fetch failed, proceeding", "error", err)
		return Decision{Proceed: true}
	}
	return decideAgents(states.AgentStates)
}

// decideHours scans every profile's rules for the current weekday. The
// first rule whose primary or additional window contains now wins and
// short-circuits the scan. A closed-all-day rule blocks unless a later
// matching rule is in-window; an out-of-window rule records its hours for
// the blocked message. No usable profiles means proceed.
func decideHours(profiles []incontact.HoursProfile, now time.Time) Decision {
	if len(profiles) == 0 {
		return Decision{Proceed: true}
	}

	weekday := now.Weekday().String()
	nowSec := now.Hour()*3600 + now.Minute()*60 + now.Second()

	closed := false
	outOfTime := false
	outOfTimeMessage := ""

scan:
	for _, profile := range profiles {
		for _, rule := range profile.Days {
			if rule.Day != weekday {
				continue
			}
			if rule.IsClosedAllDay == "True" {
				closed = true
				continue
			}
			open, errOpen := clockSeconds(rule.OpenTime)
			close, errClose := clockSeconds(rule.CloseTime)
			if errOpen != nil || errClose != nil {
				continue
			}

			inAdditional := false
			additionalText := ""
			if rule.AdditionalOpenTime != "" && rule.AdditionalCloseTime != "" {
				addOpen, errAddOpen := clockSeconds(rule.AdditionalOpenTime)
				addClose, errAddClose := clockSeconds(rule.AdditionalCloseTime)
				if errAddOpen == nil && errAddClose == nil {
					inAdditional = nowSec >= addOpen && nowSec < addClose
					additionalText = " and from " + shortClock(rule.AdditionalOpenTime) + " to " + shortClock(rule.AdditionalCloseTime)
				}
			}

			if (nowSec >= open && nowSec < close) || inAdditional {
				closed = false
				outOfTime = false
				break scan
			}
			outOfTimeMessage = "Our Agents are available between " + shortClock(rule.OpenTime) + " and " + shortClock(rule.CloseTime) + additionalText
			outOfTime = true
		}
	}

	if closed {
		return Decision{Reason: "The operation for today is CLOSED"}
	}
	if outOfTime {
		return Decision{Reason: outOfTimeMessage}
	}
	return Decision{Proceed: true}
}

// decideAgents blocks only when the listing is present but holds no
// available agent; an absent listing is unverifiable and proceeds.
func decideAgents(states []incontact.AgentState) Decision {
	if states == nil {
		return Decision{Proceed: true}
	}
	for _, st := range states {
		if st.AgentStateID == availableStateID && st.AgentStateName == "Available" {
			return Decision{Proceed: true}
		}
	}
	return Decision{Reason: "No agents available"}
}

// clockSeconds converts an "HH:MM:SS" (or "HH:MM") string to seconds since
// midnight.
func clockSeconds(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 {
		return 0, fmt.Errorf("malformed clock time %q", s)
	}
	total := 0
	for i, p := range parts[:min(len(parts), 3)] {
		n, err := strconv.Atoi(p)
		if err != nil {
			return 0, fmt.Errorf("malformed clock time %q: %w", s, err)
		}
		switch i {
		case 0:
			total += n * 3600
		case 1:
			total += n * 60
		case 2:
			total += n
		}
	}
	return total, nil
}

// shortClock trims "HH:MM:SS" to "HH:MM" for user-facing messages.
func shortClock(s string) string {
	if len(s) > 5 {
		return s[:5]
	}
	return s
}
