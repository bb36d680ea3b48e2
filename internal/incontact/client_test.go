package incontact

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchAppToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "basic Ym90QGFjbWU6czNjcmV0", r.Header.Get("Authorization"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "client_credentials", body["grant_type"])
		assert.Equal(t, "PatronApi", body["scope"])

		json.NewEncoder(w).Encode(map[string]string{
			"access_token":             "tok-123",
			"resource_server_base_uri": "https://res.example.com/",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "v13.0")
	tok, err := c.FetchAppToken(context.Background(), "Ym90QGFjbWU6czNjcmV0")
	require.NoError(t, err)
	assert.Equal(t, "tok-123", tok.AccessToken)
	assert.Equal(t, "https://res.example.com/", tok.ResourceBaseURL)
}

func TestFetchAppTokenRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "v13.0")
	_, err := c.FetchAppToken(context.Background(), "bad")
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, http.StatusUnauthorized, authErr.Status)
}

func TestFetchAppTokenMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"access_token": ""}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "v13.0")
	_, err := c.FetchAppToken(context.Background(), "code")
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
}

func TestFetchAccessKeyTokenFailOpen(t *testing.T) {
	body := `{}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/access-key", r.URL.Path)
		w.Write([]byte(body))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "v13.0")

	// No usable token in the body.
	_, ok, err := c.FetchAccessKeyToken(context.Background(), "id", "secret")
	require.NoError(t, err)
	assert.False(t, ok)

	// A token without its resource base URL cannot reach the availability
	// endpoints either.
	body = `{"access_token": "ak-tok"}`
	_, ok, err = c.FetchAccessKeyToken(context.Background(), "id", "secret")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFetchAccessKeyToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "id", body["accessKeyId"])
		assert.Equal(t, "secret", body["accessKeySecret"])
		json.NewEncoder(w).Encode(map[string]string{
			"access_token":             "ak-tok",
			"resource_server_base_uri": "https://res.example.com/",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "v13.0")
	tok, ok, err := c.FetchAccessKeyToken(context.Background(), "id", "secret")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "ak-tok", tok.AccessToken)
	assert.Equal(t, "https://res.example.com/", tok.ResourceBaseURL)
}

func TestPollChatDecodesAndReportsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/res/services/v13.0/contacts/chats/chat-1", r.URL.Path)
		assert.Equal(t, "5000", r.URL.Query().Get("timeout"))
		assert.Equal(t, "bearer tok-123", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(PollResponse{
			ChatSession: "chat-2",
			Messages:    []ChatMessage{{Type: "Text", Text: "hi", PartyTypeValue: "Agent"}},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "v13.0")
	c.SetSession("tok-123", srv.URL+"/res/")
	resp, status, err := c.PollChat(context.Background(), "chat-1", 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 200, status)
	assert.Equal(t, "chat-2", resp.ChatSession)
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, "hi", resp.Messages[0].Text)
}

func TestDecodeBodyHTMLGuard(t *testing.T) {
	var out PollResponse
	decodeBody([]byte("<!DOCTYPE html><html>error page</html>"), &out)
	assert.Empty(t, out.Messages)

	decodeBody([]byte("  "), &out)
	assert.Empty(t, out.Messages)

	decodeBody([]byte("not json at all"), &out)
	assert.Empty(t, out.Messages)
}

func TestSendTextPostsLabelAndMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/res/services/v13.0/contacts/chats/chat-1/send-text", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Visitor", body["label"])
		assert.Equal(t, "hello", body["message"])
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "v13.0")
	c.SetSession("tok", srv.URL+"/res/")
	status, err := c.SendText(context.Background(), "chat-1", "Visitor", "hello")
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, status)
}
