package incontact

import (
	"context"
	"fmt"
	"net/http"
)

// AuthError reports a failed or malformed token grant.
type AuthError struct {
	Status int
	Reason string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth failed (status %d): %s", e.Status, e.Reason)
}

// FetchAppToken performs the client-credentials grant using the pre-derived
// basic-auth code. The returned token carries the resource base URL for all
// chat-room calls.
func (c *Client) FetchAppToken(ctx context.Context, authCode string) (Token, error) {
	body := map[string]string{
		"grant_type": "client_credentials",
		"scope":      "PatronApi",
	}
	status, raw, err := c.do(ctx, http.MethodPost, c.tokenURL, "basic "+authCode, nil, body)
	if err != nil {
		return Token{}, fmt.Errorf("app token: %w", err)
	}
	if status < 200 || status >= 300 {
		return Token{}, &AuthError{Status: status, Reason: "token request rejected"}
	}
	var tok Token
	decodeBody(raw, &tok)
	if tok.AccessToken == "" || tok.ResourceBaseURL == "" {
		return Token{}, &AuthError{Status: status, Reason: "token response missing access_token or resource_server_base_uri"}
	}
	return tok, nil
}

// FetchAccessKeyToken performs the access-key grant used only for the
// pre-escalation availability check. The returned token carries its own
// resource base URL; the availability endpoints resolve against it, not
// against the session established later by FetchAppToken. A response
// missing either field is not an error: ok is false and the caller skips
// availability checking (fail-open).
func (c *Client) FetchAccessKeyToken(ctx context.Context, keyID, keySecret string) (Token, bool, error) {
	body := map[string]string{
		"accessKeyId":     keyID,
		"accessKeySecret": keySecret,
	}
	_, raw, err := c.do(ctx, http.MethodPost, c.tokenURL+"/access-key", "", map[string]string{"Content-Type": "application/json"}, body)
	if err != nil {
		return Token{}, false, fmt.Errorf("access-key token: %w", err)
	}
	var tok Token
	decodeBody(raw, &tok)
	if tok.AccessToken == "" || tok.ResourceBaseURL == "" {
		return Token{}, false, nil
	}
	return tok, true, nil
}
