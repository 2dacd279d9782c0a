package detector

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	mu      sync.Mutex
	outputs map[string]string
	calls   []string
}

func (f *fakeRunner) Output(_ context.Context, name string, args ...string) ([]byte, error) {
	line := strings.Join(append([]string{name}, args...), " ")
	f.mu.Lock()
	f.calls = append(f.calls, line)
	f.mu.Unlock()
	if out, ok := f.outputs[line]; ok {
		return []byte(out), nil
	}
	return nil, errors.New("executable file not found")
}

func noPath(string) (string, error) { return "", errors.New("not found") }

func noFiles(string) bool { return false }

func newTestDetector(r Runner, opts ...Option) *Detector {
	base := []Option{WithRunner(r), WithLookPath(noPath), WithFileExists(noFiles), WithHome("/home/u")}
	return New(nil, append(base, opts...)...)
}

func TestCandidatesOrder(t *testing.T) {
	d := newTestDetector(&fakeRunner{},
		WithExecutable("  /opt/claude/bin/claude --verbose "),
		WithLookPath(func(name string) (string, error) { return "/usr/bin/" + name, nil }),
		WithFileExists(func(path string) bool { return path == "/home/u/.claude/local/claude" }),
	)

	assert.Equal(t, [][]string{
		{"/opt/claude/bin/claude", "--verbose"},
		{"claude"},
		{"npx", "@anthropic-ai/claude-code"},
		{"pnpx", "claude"},
		{"yarn", "claude"},
		{"/usr/bin/claude"},
		{"/usr/bin/npx", "@anthropic-ai/claude-code"},
		{"/home/u/.claude/local/claude"},
	}, d.Candidates())
}

func TestCandidatesDeduplicate(t *testing.T) {
	d := newTestDetector(&fakeRunner{}, WithExecutable("claude"))
	candidates := d.Candidates()
	assert.Equal(t, []string{"claude"}, candidates[0])
	assert.Equal(t, []string{"npx", "@anthropic-ai/claude-code"}, candidates[1])
}

func TestDetectPrefersPriorityOrder(t *testing.T) {
	r := &fakeRunner{outputs: map[string]string{
		"yarn claude --version":                   "1.0.0 (Claude Code)",
		"npx @anthropic-ai/claude-code --version": "1.0.3 (Claude Code)\n",
	}}
	inst, err := newTestDetector(r).Detect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"npx", "@anthropic-ai/claude-code"}, inst.Command)
	assert.Equal(t, "1.0.3 (Claude Code)", inst.Version)
	assert.Equal(t, "npx @anthropic-ai/claude-code", inst.Name())
	assert.Len(t, r.calls, 4)
}

func TestDetectRejectsUnrelatedOutput(t *testing.T) {
	r := &fakeRunner{outputs: map[string]string{
		"claude --version": "some other tool 2.0",
	}}
	_, err := newTestDetector(r).Detect(context.Background())
	assert.ErrorIs(t, err, ErrClaudeNotFound)
}

func TestDetectAcceptsAnthropicOutput(t *testing.T) {
	r := &fakeRunner{outputs: map[string]string{
		"pnpx claude --version": "Anthropic CLI 0.9",
	}}
	inst, err := newTestDetector(r).Detect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"pnpx", "claude"}, inst.Command)
}

func TestDetectCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestDetector(&fakeRunner{}).Detect(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
