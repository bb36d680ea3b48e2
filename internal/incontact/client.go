// Package incontact implements the contact-center vendor protocol: token
// grants, chat-room lifecycle calls, and the response routing table that
// drives the session state machine.
package incontact

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Client executes authenticated calls against the vendor REST API. The
// bearer token and resource base URL are set once a grant succeeds (or a
// persisted session is restored) and shared by all subsequent calls.
type Client struct {
	httpClient *http.Client
	tokenURL   string
	version    string
	logger     *slog.Logger

	mu          sync.Mutex
	accessToken string
	baseURL     string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a client for the given token endpoint and API version.
func NewClient(tokenURL, version string, opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		tokenURL:   tokenURL,
		version:    version,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetSession installs the bearer token and resource base URL used by the
// chat-room calls.
func (c *Client) SetSession(accessToken, baseURL string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = accessToken
	c.baseURL = baseURL
}

// BaseURL returns the current resource base URL, empty before any grant.
func (c *Client) BaseURL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.baseURL
}

func (c *Client) bearer() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return "bearer " + c.accessToken
}

// do issues one request. An empty authorization falls back to the stored
// bearer token. The response body is returned raw; callers decode with
// decodeBody so vendor HTML error pages degrade to empty results.
func (c *Client) do(ctx context.Context, method, url, authorization string, headers map[string]string, body any) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	if authorization == "" {
		authorization = c.bearer()
	}
	req.Header.Set("Authorization", authorization)
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	correlationID := uuid.NewString()
	req.Header.Set("X-Correlation-Id", correlationID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	c.logger.Debug("request completed",
		"method", method, "url", url,
		"status", resp.StatusCode, "correlation_id", correlationID)
	return resp.StatusCode, raw, nil
}

// decodeBody unmarshals a JSON response. Empty bodies and vendor HTML error
// pages leave v untouched: malformed responses degrade to empty results
// instead of failing the session.
func decodeBody(raw []byte, v any) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.HasPrefix(trimmed, []byte("<")) {
		return
	}
	if err := json.Unmarshal(trimmed, v); err != nil {
		// ProtocolError: treated as an empty result.
		return
	}
}

// ChatProfile fetches the chat profile for a point of contact.
func (c *Client) ChatProfile(ctx context.Context, pointOfContact string) (ChatProfileResponse, error) {
	var out ChatProfileResponse
	url := serviceURL(c.BaseURL(), c.version, "points-of-contact", pointOfContact, "chat-profile")
	_, raw, err := c.do(ctx, http.MethodGet, url, "", nil, nil)
	if err != nil {
		return out, err
	}
	decodeBody(raw, &out)
	return out, nil
}

// CreateChat opens a chat room and returns its session id together with the
// HTTP status for routing.
func (c *Client) CreateChat(ctx context.Context, payload ChatPayload) (ChatCreateResponse, int, error) {
	var out ChatCreateResponse
	url := serviceURL(c.BaseURL(), c.version, "contacts", "chats")
	status, raw, err := c.do(ctx, http.MethodPost, url, "", nil, payload)
	if err != nil {
		return out, status, err
	}
	decodeBody(raw, &out)
	return out, status, nil
}

// PollChat retrieves pending messages and status changes for an open chat.
func (c *Client) PollChat(ctx context.Context, sessionID string, timeout time.Duration) (PollResponse, int, error) {
	var out PollResponse
	url := chatPollURL(c.BaseURL(), c.version, sessionID, timeout.Milliseconds())
	status, raw, err := c.do(ctx, http.MethodGet, url, "", nil, nil)
	if err != nil {
		return out, status, err
	}
	decodeBody(raw, &out)
	return out, status, nil
}

// SendText posts one message to the chat under the given author label.
func (c *Client) SendText(ctx context.Context, sessionID, label, message string) (int, error) {
	url := serviceURL(c.BaseURL(), c.version, "contacts", "chats", sessionID, "send-text")
	body := map[string]string{"label": label, "message": message}
	status, _, err := c.do(ctx, http.MethodPost, url, "", nil, body)
	return status, err
}

// DeleteChat closes the chat room on the remote side.
func (c *Client) DeleteChat(ctx context.Context, sessionID string) error {
	url := serviceURL(c.BaseURL(), c.version, "contacts", "chats", sessionID)
	// Vendor expects this content type on deletes.
	headers := map[string]string{"Content-Type": "application/x-www-form-urlencoded"}
	_, _, err := c.do(ctx, http.MethodDelete, url, "", headers, nil)
	return err
}

// HoursOfOperation fetches the operating-hours profiles. URLs resolve
// against the access-key token's own resource base URL: no session exists
// yet when the availability check runs.
func (c *Client) HoursOfOperation(ctx context.Context, tok Token) (HoursResponse, error) {
	var out HoursResponse
	url := serviceURL(tok.ResourceBaseURL, c.version, "hours-of-operation")
	_, raw, err := c.do(ctx, http.MethodGet, url, "bearer "+tok.AccessToken, nil, nil)
	if err != nil {
		return out, err
	}
	decodeBody(raw, &out)
	return out, nil
}

// AgentStates lists up to 200 agent states under the access-key token.
func (c *Client) AgentStates(ctx context.Context, tok Token) (AgentStatesResponse, error) {
	var out AgentStatesResponse
	url := serviceURL(tok.ResourceBaseURL, c.version, "agents", "states") +
		"?fields=agentStateId,isActive,agentStateName,firstName&top=200"
	_, raw, err := c.do(ctx, http.MethodGet, url, "bearer "+tok.AccessToken, nil, nil)
	if err != nil {
		return out, err
	}
	decodeBody(raw, &out)
	return out, nil
}
