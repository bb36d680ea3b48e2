// Package config loads and validates the adapter settings.
package config

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Defaults applied when the configuration omits a value.
const (
	DefaultTokenURL           = "https://api.incontact.com/InContactAuthorizationServer/Token"
	DefaultAPIVersion         = "v13.0"
	DefaultOutOfTimeDetection = "department is currently closed"
	DefaultUserName           = "User"
	DefaultChatbotName        = "Chatbot"
	DefaultSystemName         = "System"
)

// AgentProfile is the branding applied to the conversation while a human
// agent is connected.
type AgentProfile struct {
	Name        string
	AvatarImage string
}

// RedisSettings configure the optional Redis-backed session store.
type RedisSettings struct {
	Addr     string
	Password string
	DB       int
}

// Settings is the full adapter configuration. Credentials are immutable
// after Load.
type Settings struct {
	Enabled bool

	ApplicationName   string
	ApplicationSecret string
	VendorName        string
	PointOfContact    string

	AccessKeyID     string
	AccessKeySecret string

	TokenURL   string
	APIVersion string

	// AgentWaitTimeout bounds how long the adapter waits for an agent to
	// join before giving up with a no-agents notice.
	AgentWaitTimeout time.Duration
	// GetMessageTimeout is both the long-poll timeout passed to the remote
	// chat endpoint and the interval between poll reschedules.
	GetMessageTimeout time.Duration

	// OutOfTimeDetection is the marker substring that, when found in a
	// polled message, means the agent queue is closed.
	OutOfTimeDetection string

	DefaultUserName    string
	DefaultChatbotName string
	DefaultSystemName  string

	Agent AgentProfile

	// FromName and FromAddress seed the chat payload; escalation form data
	// can override both.
	FromName    string
	FromAddress string
	Parameters  []string

	// SessionLifetime is the TTL applied to persisted session fields.
	SessionLifetime time.Duration

	DebugMode bool

	Redis RedisSettings
}

// Load reads settings from the given config file (optional) and AGENTLINK_*
// environment variables.
func Load(path string) (*Settings, error) {
	v := viper.New()
	v.SetEnvPrefix("agentlink")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("enabled", true)
	v.SetDefault("tokenUrl", DefaultTokenURL)
	v.SetDefault("version", DefaultAPIVersion)
	v.SetDefault("agentWaitTimeout", 60)
	v.SetDefault("getMessageTimeout", 5000)
	v.SetDefault("outOfTimeDetection", DefaultOutOfTimeDetection)
	v.SetDefault("defaultUserName", DefaultUserName)
	v.SetDefault("defaultChatbotName", DefaultChatbotName)
	v.SetDefault("defaultSystemName", DefaultSystemName)
	v.SetDefault("sessionLifetime", 30)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	s := &Settings{
		Enabled:            v.GetBool("enabled"),
		ApplicationName:    v.GetString("applicationName"),
		ApplicationSecret:  v.GetString("applicationSecret"),
		VendorName:         v.GetString("vendorName"),
		PointOfContact:     v.GetString("pointOfContact"),
		AccessKeyID:        v.GetString("accessKeyId"),
		AccessKeySecret:    v.GetString("accessKeySecret"),
		TokenURL:           v.GetString("tokenUrl"),
		APIVersion:         v.GetString("version"),
		AgentWaitTimeout:   time.Duration(v.GetInt("agentWaitTimeout")) * time.Second,
		GetMessageTimeout:  time.Duration(v.GetInt("getMessageTimeout")) * time.Millisecond,
		OutOfTimeDetection: v.GetString("outOfTimeDetection"),
		DefaultUserName:    v.GetString("defaultUserName"),
		DefaultChatbotName: v.GetString("defaultChatbotName"),
		DefaultSystemName:  v.GetString("defaultSystemName"),
		Agent: AgentProfile{
			Name:        v.GetString("agent.name"),
			AvatarImage: v.GetString("agent.avatarImage"),
		},
		FromName:        v.GetString("fromName"),
		FromAddress:     v.GetString("fromAddress"),
		Parameters:      v.GetStringSlice("parameters"),
		SessionLifetime: time.Duration(v.GetInt("sessionLifetime")) * time.Minute,
		DebugMode:       v.GetBool("debugMode"),
		Redis: RedisSettings{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate reports configuration problems. A disabled adapter is always
// valid: the host keeps running without escalation support.
func (s *Settings) Validate() error {
	if !s.Enabled {
		return nil
	}
	var missing []string
	if s.ApplicationName == "" {
		missing = append(missing, "applicationName")
	}
	if s.ApplicationSecret == "" {
		missing = append(missing, "applicationSecret")
	}
	if s.VendorName == "" {
		missing = append(missing, "vendorName")
	}
	if s.PointOfContact == "" {
		missing = append(missing, "pointOfContact")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}
	return nil
}

// AuthCode derives the basic-auth code for the client-credentials grant:
// base64 of applicationName@vendorName:applicationSecret.
func (s *Settings) AuthCode() string {
	raw := s.ApplicationName + "@" + s.VendorName + ":" + s.ApplicationSecret
	return base64.StdEncoding.EncodeToString([]byte(raw))
}
