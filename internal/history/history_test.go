package history

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strrl/cc-launcher/internal/db"
)

func TestFormatMessage(t *testing.T) {
	tests := []struct {
		name string
		role string
		raw  string
		want string
	}{
		{"string content", "user", `{"role":"user","content":"fix   the\ntests"}`, "[User] fix the tests"},
		{"quoted json", "user", `"{\"content\":\"hello\"}"`, "[User] hello"},
		{"text items", "assistant", `{"content":[{"type":"text","text":"done"},{"type":"text","text":"<system-reminder>x"}]}`, "[Assistant] done"},
		{"tool use command", "assistant", `{"content":[{"type":"tool_use","name":"Bash","input":{"command":"go test ./..."}}]}`, "[Assistant] 🔧 Bash: go test ./..."},
		{"tool use path", "assistant", `{"content":[{"type":"tool_use","name":"Read","input":{"file_path":"/a/b/main.go"}}]}`, "[Assistant] 🔧 Read: main.go"},
		{"tool use no input", "assistant", `{"content":[{"type":"tool_use","name":"Task"}]}`, "[Assistant] 🔧 Task"},
		{"tool result", "user", `{"content":[{"type":"tool_result","content":"ok"}]}`, "[User] ↩ ok"},
		{"other role", "system", `{"content":"boot"}`, "[system] boot"},
		{"no content", "user", `{"role":"user"}`, ""},
		{"not json", "user", `nope`, ""},
		{"empty items", "assistant", `{"content":[]}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatMessage(tt.role, tt.raw))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "a b", Truncate(" a \t\n b ", 10))
	assert.Equal(t, "abc...", Truncate("abcdef", 3))
	assert.Equal(t, "日本...", Truncate("日本語です", 2))
}

func TestReaderWithoutTranscripts(t *testing.T) {
	r := NewReader(nil, filepath.Join(t.TempDir(), "projects"), nil)
	assert.False(t, r.Available())

	ctx := context.Background()
	summaries, err := r.Summaries(ctx, []string{"01abc"})
	require.NoError(t, err)
	assert.Empty(t, summaries)

	activity, err := r.Activity(ctx, []string{"01abc"})
	require.NoError(t, err)
	assert.Empty(t, activity)

	preview, err := r.Preview(ctx, "01abc")
	require.NoError(t, err)
	assert.Empty(t, preview)
}

func writeTranscript(t *testing.T, dir, sessionID string, messages int) {
	t.Helper()
	base := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	var lines []string
	last := ""
	for i := 0; i < messages; i++ {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		last = fmt.Sprintf("u-%s-%d", sessionID, i)
		lines = append(lines, fmt.Sprintf(
			`{"type":%q,"sessionId":%q,"uuid":%q,"cwd":"/work/app","timestamp":%q,"message":{"role":%q,"content":"message %d"}}`,
			role, sessionID, last, base.Add(time.Duration(i)*time.Minute).Format(time.RFC3339), role, i))
	}
	lines = append(lines, fmt.Sprintf(`{"type":"summary","summary":"Refactor the app","leafUuid":%q}`, last))

	projectDir := filepath.Join(dir, "-work-app")
	require.NoError(t, os.MkdirAll(projectDir, 0o755))
	path := filepath.Join(projectDir, sessionID+".jsonl")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600))
}

func openReader(t *testing.T, dir string) *Reader {
	t.Helper()
	conn, err := db.Open(context.Background())
	if err != nil {
		t.Skipf("Skipping test, DuckDB unavailable: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return NewReader(conn, dir, nil)
}

func TestReaderQueriesTranscripts(t *testing.T) {
	dir := t.TempDir()
	writeTranscript(t, dir, "01aaaaaa-0000-4000-8000-000000000001", 25)
	writeTranscript(t, dir, "02bbbbbb-0000-4000-8000-000000000002", 2)
	r := openReader(t, dir)
	ctx := context.Background()

	summaries, err := r.Summaries(ctx, []string{"01aaaaaa-0000-4000-8000-000000000001", "missing"})
	if err != nil {
		t.Skipf("Skipping test, read_json unavailable: %v", err)
	}
	assert.Equal(t, map[string]string{"01aaaaaa-0000-4000-8000-000000000001": "Refactor the app"}, summaries)

	activity, err := r.Activity(ctx, []string{"01aaaaaa-0000-4000-8000-000000000001", "02bbbbbb-0000-4000-8000-000000000002"})
	require.NoError(t, err)
	require.Len(t, activity, 2)
	assert.Equal(t, "/work/app", activity["01aaaaaa-0000-4000-8000-000000000001"].ProjectPath)
	assert.Equal(t, 25, activity["01aaaaaa-0000-4000-8000-000000000001"].MessageCount)
	assert.Equal(t, 2, activity["02bbbbbb-0000-4000-8000-000000000002"].MessageCount)

	preview, err := r.Preview(ctx, "01aaaaaa-0000-4000-8000-000000000001")
	require.NoError(t, err)
	require.Len(t, preview, 21)
	assert.Equal(t, "[User] message 0", preview[0])
	assert.Equal(t, "... (5 messages omitted) ...", preview[10])
	assert.Equal(t, "[User] message 24", preview[20])

	short, err := r.Preview(ctx, "02bbbbbb-0000-4000-8000-000000000002")
	require.NoError(t, err)
	assert.Equal(t, []string{"[User] message 0", "[Assistant] message 1"}, short)
}
