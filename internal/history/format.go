package history

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
)

// FormatMessage renders one transcript message as a single preview line,
// e.g. "[User] fix the tests" or "[Assistant] 🔧 Bash: go test ./...".
// It returns "" for messages without displayable content.
func FormatMessage(role, raw string) string {
	// to_json may hand back the message as a quoted JSON string
	if strings.HasPrefix(raw, `"`) && strings.HasSuffix(raw, `"`) {
		var unquoted string
		if err := json.Unmarshal([]byte(raw), &unquoted); err == nil {
			raw = unquoted
		}
	}

	var message struct {
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal([]byte(raw), &message); err != nil || len(message.Content) == 0 {
		return ""
	}

	prefix := rolePrefix(role)

	var text string
	if err := json.Unmarshal(message.Content, &text); err == nil {
		if text = Truncate(text, 50); text == "" {
			return ""
		}
		return prefix + text
	}

	var items []contentItem
	if err := json.Unmarshal(message.Content, &items); err != nil {
		return ""
	}
	var parts []string
	for _, item := range items {
		if part := item.render(); part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return prefix + strings.Join(parts, " | ")
}

func rolePrefix(role string) string {
	switch role {
	case "user":
		return "[User] "
	case "assistant":
		return "[Assistant] "
	default:
		return fmt.Sprintf("[%s] ", role)
	}
}

type contentItem struct {
	Type    string          `json:"type"`
	Text    string          `json:"text"`
	Name    string          `json:"name"`
	Input   map[string]any  `json:"input"`
	Content json.RawMessage `json:"content"`
}

func (c contentItem) render() string {
	switch c.Type {
	case "text":
		if c.Text == "" || strings.Contains(c.Text, "system-reminder") {
			return ""
		}
		return Truncate(c.Text, 50)
	case "tool_use":
		name := c.Name
		if name == "" {
			name = "unknown"
		}
		if input := summarizeInput(c.Input); input != "" {
			return fmt.Sprintf("🔧 %s: %s", name, input)
		}
		return "🔧 " + name
	case "tool_result":
		var result string
		if err := json.Unmarshal(c.Content, &result); err == nil {
			return "↩ " + Truncate(result, 40)
		}
	}
	return ""
}

func summarizeInput(input map[string]any) string {
	if len(input) == 0 {
		return ""
	}
	if cmd, ok := input["command"].(string); ok {
		return Truncate(cmd, 30)
	}
	if path, ok := input["file_path"].(string); ok {
		return filepath.Base(path)
	}
	if pattern, ok := input["pattern"].(string); ok {
		return Truncate(pattern, 20)
	}
	data, _ := json.Marshal(input)
	return Truncate(string(data), 30)
}

// Truncate collapses whitespace and cuts s to maxLen runes, appending "..."
func Truncate(s string, maxLen int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
