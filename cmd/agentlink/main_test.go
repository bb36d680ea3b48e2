package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.Equal(t, "agentlink "+version+"\n", out.String())
}

// TestCheckCommandBlocksWhenClosed runs the check command against a fake
// vendor with every weekday closed. The gate must reach the hours endpoint
// from the access-key token alone and surface both the looking-for-agents
// notice and the block reason.
func TestCheckCommandBlocksWhenClosed(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/access-key", func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"access_token":             "ak",
			"resource_server_base_uri": srv.URL + "/res/",
		})
	})
	mux.HandleFunc("/res/services/v13.0/hours-of-operation", func(w http.ResponseWriter, _ *http.Request) {
		var days []map[string]string
		for _, day := range []string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"} {
			days = append(days, map[string]string{"day": day, "isClosedAllDay": "True"})
		}
		json.NewEncoder(w).Encode(map[string]any{
			"resultSet": map[string]any{
				"hoursOfOperationProfiles": []any{map[string]any{"days": days}},
			},
		})
	})

	t.Setenv("AGENTLINK_APPLICATIONNAME", "bot")
	t.Setenv("AGENTLINK_APPLICATIONSECRET", "s3cret")
	t.Setenv("AGENTLINK_VENDORNAME", "acme")
	t.Setenv("AGENTLINK_POINTOFCONTACT", "poc-1")
	t.Setenv("AGENTLINK_TOKENURL", srv.URL)
	t.Setenv("AGENTLINK_ACCESSKEYID", "id")
	t.Setenv("AGENTLINK_ACCESSKEYSECRET", "secret")

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"check"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "Looking for agents")
	assert.Contains(t, out.String(), "escalation blocked: The operation for today is CLOSED")
}
