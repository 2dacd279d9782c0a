package environment

import (
	"sort"
	"strconv"
	"strings"

	"github.com/strrl/cc-launcher/pkg/models"
)

// Variables read by Claude Code
const (
	APIKey          = "ANTHROPIC_API_KEY"
	AuthToken       = "ANTHROPIC_AUTH_TOKEN"
	BaseURL         = "ANTHROPIC_BASE_URL"
	Model           = "ANTHROPIC_MODEL"
	SmallFastModel  = "ANTHROPIC_SMALL_FAST_MODEL"
	HaikuModel      = "ANTHROPIC_DEFAULT_HAIKU_MODEL"
	SonnetModel     = "ANTHROPIC_DEFAULT_SONNET_MODEL"
	OpusModel       = "ANTHROPIC_DEFAULT_OPUS_MODEL"
	MaxOutputTokens = "CLAUDE_CODE_MAX_OUTPUT_TOKENS"
)

// Stale lists provider variables removed from the inherited environment so a
// previous shell setup cannot leak into the launched platform.
var Stale = []string{
	APIKey,
	AuthToken,
	BaseURL,
	"ANTHROPIC_API_URL",
	"ANTHROPIC_API_VERSION",
	"ANTHROPIC_CUSTOM_HEADERS",
	"ANTHROPIC_DEFAULT_HEADERS",
	Model,
	SmallFastModel,
	"ANTHROPIC_SMALL_FAST_MODEL_AWS_REGION",
	"ANTHROPIC_TIMEOUT_MS",
	"ANTHROPIC_REQUEST_TIMEOUT",
	"ANTHROPIC_MAX_RETRIES",
	HaikuModel,
	OpusModel,
	SonnetModel,
	MaxOutputTokens,
	"MOONSHOT_API_KEY",
	"DEEPSEEK_API_KEY",
	"SILICONFLOW_API_KEY",
	"CLAUDE_API_KEY",
	"CLAUDE_AUTH_TOKEN",
	"CLAUDE_BASE_URL",
	"CLAUDE_MODEL",
}

// ForPlatform returns the variables that point Claude Code at profile.
//
// Exactly one credential variable carries a value: api_key, then auth_token,
// then login_token (sent as an API key). The other one is set empty.
func ForPlatform(profile models.PlatformProfile) map[string]string {
	vars := make(map[string]string)

	switch {
	case profile.APIKey != "":
		vars[APIKey] = profile.APIKey
		vars[AuthToken] = ""
	case profile.AuthToken != "":
		vars[AuthToken] = profile.AuthToken
		vars[APIKey] = ""
	case profile.LoginToken != "":
		vars[APIKey] = profile.LoginToken
		vars[AuthToken] = ""
	}

	if profile.APIBaseURL != "" {
		vars[BaseURL] = profile.APIBaseURL
	}
	if profile.Model != "" {
		for _, key := range []string{Model, HaikuModel, SonnetModel, OpusModel} {
			vars[key] = profile.Model
		}
	}
	if small := profile.EffectiveSmallModel(); small != "" {
		vars[SmallFastModel] = small
	}
	if cfg := profile.ClaudeCodeConfig; cfg != nil && cfg.MaxOutputTokens > 0 {
		vars[MaxOutputTokens] = strconv.Itoa(cfg.MaxOutputTokens)
	}
	return vars
}

// Compose strips Stale from environ and appends vars in key order. The result
// is suitable for exec.Cmd.Env.
func Compose(environ []string, vars map[string]string) []string {
	drop := make(map[string]struct{}, len(Stale)+len(vars))
	for _, key := range Stale {
		drop[key] = struct{}{}
	}
	for key := range vars {
		drop[key] = struct{}{}
	}

	env := make([]string, 0, len(environ)+len(vars))
	for _, kv := range environ {
		key, _, _ := strings.Cut(kv, "=")
		if _, ok := drop[key]; ok {
			continue
		}
		env = append(env, kv)
	}

	keys := make([]string, 0, len(vars))
	for key := range vars {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		env = append(env, key+"="+vars[key])
	}
	return env
}

// Lookup returns the value of key in an environment list
func Lookup(env []string, key string) (string, bool) {
	for i := len(env) - 1; i >= 0; i-- {
		if k, v, ok := strings.Cut(env[i], "="); ok && k == key {
			return v, true
		}
	}
	return "", false
}

// Credential reports which credential variable of env carries a value
func Credential(env []string) (key, value string) {
	for _, key := range []string{APIKey, AuthToken} {
		if v, ok := Lookup(env, key); ok && v != "" {
			return key, v
		}
	}
	return "", ""
}

// Mask hides all but the last four characters of a credential
func Mask(secret string) string {
	if len(secret) <= 4 {
		return strings.Repeat("*", len(secret))
	}
	return strings.Repeat("*", 8) + secret[len(secret)-4:]
}
