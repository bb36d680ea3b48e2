package incontact

// Token is the result of either grant flow.
type Token struct {
	AccessToken     string `json:"access_token"`
	ResourceBaseURL string `json:"resource_server_base_uri"`
}

// ChatMessage is a raw message record from the chat poll endpoint. The
// vendor mixes concerns in one record shape: status transitions, agent and
// system text, and typing indicators all arrive here, with boolean-ish
// values encoded as the strings "True"/"False".
type ChatMessage struct {
	Type           string `json:"Type"`
	Status         string `json:"Status"`
	Text           string `json:"Text"`
	PartyTypeValue string `json:"PartyTypeValue"`
	IsTextEntered  string `json:"IsTextEntered"`
	IsTyping       string `json:"IsTyping"`
}

// PollResponse is the body of a chat poll. ChatSession, when present,
// renews the session identifier.
type PollResponse struct {
	ChatSession string        `json:"chatSession"`
	Messages    []ChatMessage `json:"messages"`
}

// ChatCreateResponse is the body of a successful chat-room creation.
type ChatCreateResponse struct {
	ChatSessionID string `json:"chatSessionId"`
}

// ChatProfileEntry describes one point-of-contact chat profile.
type ChatProfileEntry struct {
	HeroImage string `json:"heroImage"`
}

// ChatProfileResponse maps profile ids to their entries.
type ChatProfileResponse struct {
	ChatProfile map[string]ChatProfileEntry `json:"chatProfile"`
}

// ChatPayload is the chat-room creation request. Parameters carry the raw
// escalation form values in submission order.
type ChatPayload struct {
	PointOfContact string   `json:"pointOfContact"`
	FromName       string   `json:"fromName,omitempty"`
	FromAddress    string   `json:"fromAddress,omitempty"`
	Parameters     []string `json:"parameters,omitempty"`
}

// DayRule is one weekday's operating hours within a profile. Times are
// "HH:MM:SS" local clock strings; IsClosedAllDay is the vendor's string
// boolean.
type DayRule struct {
	Day                 string `json:"day"`
	IsClosedAllDay      string `json:"isClosedAllDay"`
	OpenTime            string `json:"openTime"`
	CloseTime           string `json:"closeTime"`
	AdditionalOpenTime  string `json:"additionalOpenTime"`
	AdditionalCloseTime string `json:"additionalCloseTime"`
}

// HoursProfile is one hours-of-operation profile.
type HoursProfile struct {
	Days []DayRule `json:"days"`
}

// HoursResponse is the hours-of-operation listing.
type HoursResponse struct {
	ResultSet struct {
		Profiles []HoursProfile `json:"hoursOfOperationProfiles"`
	} `json:"resultSet"`
}

// AgentState is one row of the agent-state listing.
type AgentState struct {
	AgentStateID   int    `json:"agentStateId"`
	AgentStateName string `json:"agentStateName"`
	FirstName      string `json:"firstName"`
	IsActive       bool   `json:"isActive"`
}

// AgentStatesResponse is the agent-state listing. A nil AgentStates slice
// means the listing was absent or malformed, which callers treat as
// unverifiable rather than empty.
type AgentStatesResponse struct {
	AgentStates []AgentState `json:"agentStates"`
}
