package models

import "time"

// PlatformProfile describes one backend endpoint as stored in platforms.json
type PlatformProfile struct {
	Name             string            `json:"name"`
	APIBaseURL       string            `json:"api_base_url"`
	Model            string            `json:"model"`
	SmallModel       string            `json:"small_model,omitempty"`
	APIKey           string            `json:"api_key,omitempty"`
	AuthToken        string            `json:"auth_token,omitempty"`
	LoginToken       string            `json:"login_token,omitempty"`
	Enabled          bool              `json:"enabled"`
	ClaudeCodeConfig *ClaudeCodeConfig `json:"claude_code_config,omitempty"`
}

// ClaudeCodeConfig holds per-platform tuning passed to Claude Code
type ClaudeCodeConfig struct {
	MaxOutputTokens int `json:"max_output_tokens,omitempty"`
}

// HasAuth reports whether any credential field is set.
func (p PlatformProfile) HasAuth() bool {
	return p.APIKey != "" || p.AuthToken != "" || p.LoginToken != ""
}

// EffectiveSmallModel returns SmallModel, defaulting to Model.
func (p PlatformProfile) EffectiveSmallModel() string {
	if p.SmallModel != "" {
		return p.SmallModel
	}
	return p.Model
}

// DisplayName returns the profile name or the given id when unnamed.
func (p PlatformProfile) DisplayName(id string) string {
	if p.Name != "" {
		return p.Name
	}
	return id
}

// Platform pairs a platform id with its profile
type Platform struct {
	ID      string
	Profile PlatformProfile
}

// PlatformStatus is a diagnostic projection of one platform
type PlatformStatus struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Enabled    bool   `json:"enabled"`
	Configured bool   `json:"configured"`
	HasAuth    bool   `json:"has_auth"`
	Available  bool   `json:"available"`
}

// SessionRecord represents one launched session
type SessionRecord struct {
	CanonicalID string    `json:"standard_uuid"`
	TaggedID    string    `json:"session_id"`
	PlatformID  string    `json:"platform"`
	CreatedAt   time.Time `json:"created_at"`
	LastActive  time.Time `json:"last_active"`
	Continued   bool      `json:"-"` // Whether this record was reused by --continue
}

// Activity returns LastActive, falling back to CreatedAt when never touched.
func (s SessionRecord) Activity() time.Time {
	if !s.LastActive.IsZero() {
		return s.LastActive
	}
	return s.CreatedAt
}

// PlatformSessionStats aggregates activity for one platform
type PlatformSessionStats struct {
	Total     int `json:"total_sessions"`
	Active24h int `json:"active_sessions_24h"`
	Active7d  int `json:"active_sessions_7d"`
}

// SessionStats summarizes the session mapping document
type SessionStats struct {
	TotalSessions int                             `json:"total_sessions"`
	PerPlatform   map[string]PlatformSessionStats `json:"platform_stats"`
	Platforms     []string                        `json:"platforms"`
	CreatedAt     time.Time                       `json:"created_at"`
	LastUpdated   time.Time                       `json:"last_updated"`
	Version       string                          `json:"version"`
}
