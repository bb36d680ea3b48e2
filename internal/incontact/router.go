package incontact

import "strings"

// Effect is the continuation the session controller applies after a routed
// response.
type Effect int

const (
	// EffectIgnore takes no action and schedules nothing. Unlisted
	// statuses land here; polling silently stops with no user notice.
	// That mirrors the vendor adapter's behavior and is a known gap.
	EffectIgnore Effect = iota
	// EffectReschedule schedules the next poll.
	EffectReschedule
	// EffectGenericError surfaces a retryable error prompt.
	EffectGenericError
	// EffectAgentLeft closes the session as agent-left.
	EffectAgentLeft
	// EffectOutOfTime closes the session and shows the matched message
	// text verbatim.
	EffectOutOfTime
)

func (e Effect) String() string {
	switch e {
	case EffectReschedule:
		return "reschedule"
	case EffectGenericError:
		return "generic-error"
	case EffectAgentLeft:
		return "agent-left"
	case EffectOutOfTime:
		return "out-of-time"
	default:
		return "ignore"
	}
}

// RouteResult is the routed effect plus the out-of-time message text when
// Effect is EffectOutOfTime.
type RouteResult struct {
	Effect Effect
	Text   string
}

// Route maps (endpoint, HTTP status) to a continuation. For 200 responses
// the polled messages are scanned for the configured out-of-time marker
// first; a hit overrides rescheduling.
func Route(endpoint Endpoint, status int, messages []ChatMessage, outOfTimeMarker string) RouteResult {
	if !endpoint.routed() {
		return RouteResult{Effect: EffectIgnore}
	}
	switch status {
	case 200:
		for _, m := range messages {
			if m.Text != "" && outOfTimeMarker != "" && strings.Contains(m.Text, outOfTimeMarker) {
				return RouteResult{Effect: EffectOutOfTime, Text: m.Text}
			}
		}
		return RouteResult{Effect: EffectReschedule}
	case 202:
		return RouteResult{Effect: EffectIgnore}
	case 304:
		return RouteResult{Effect: EffectReschedule}
	case 400, 401:
		return RouteResult{Effect: EffectGenericError}
	case 404:
		return RouteResult{Effect: EffectAgentLeft}
	default:
		return RouteResult{Effect: EffectIgnore}
	}
}
