package detector

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrClaudeNotFound is returned when no candidate answers --version like Claude Code
var ErrClaudeNotFound = errors.New("claude code not found")

const (
	probeTimeout = 10 * time.Second
	maxProbes    = 4
)

// Runner runs a probe command and returns its combined output
type Runner interface {
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec
type ExecRunner struct{}

func (ExecRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Installation is a working Claude Code command line
type Installation struct {
	Command []string
	Version string
}

// Name returns the command line as typed in a shell
func (i Installation) Name() string {
	return strings.Join(i.Command, " ")
}

// Detector finds a runnable Claude Code command
type Detector struct {
	runner     Runner
	lookPath   func(string) (string, error)
	fileExists func(string) bool
	home       string
	configured string
	logger     *zap.Logger
}

// Option configures a Detector
type Option func(*Detector)

// WithRunner replaces the command runner
func WithRunner(r Runner) Option {
	return func(d *Detector) { d.runner = r }
}

// WithLookPath replaces exec.LookPath
func WithLookPath(fn func(string) (string, error)) Option {
	return func(d *Detector) { d.lookPath = fn }
}

// WithFileExists replaces the check used for well-known install paths
func WithFileExists(fn func(string) bool) Option {
	return func(d *Detector) { d.fileExists = fn }
}

// WithHome sets the home directory used for well-known install paths
func WithHome(home string) Option {
	return func(d *Detector) { d.home = home }
}

// WithExecutable puts a user-configured command line ahead of every other candidate
func WithExecutable(cmdline string) Option {
	return func(d *Detector) { d.configured = strings.TrimSpace(cmdline) }
}

// New creates a detector
func New(logger *zap.Logger, opts ...Option) *Detector {
	if logger == nil {
		logger = zap.NewNop()
	}
	home, _ := os.UserHomeDir()
	d := &Detector{
		runner:   ExecRunner{},
		lookPath: exec.LookPath,
		fileExists: func(path string) bool {
			info, err := os.Stat(path)
			return err == nil && !info.IsDir()
		},
		home:   home,
		logger: logger.Named("detector"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Candidates lists command lines to probe, highest priority first, without duplicates
func (d *Detector) Candidates() [][]string {
	var candidates [][]string
	seen := map[string]bool{}
	add := func(cmd ...string) {
		if len(cmd) == 0 || cmd[0] == "" {
			return
		}
		key := strings.Join(cmd, "\x00")
		if seen[key] {
			return
		}
		seen[key] = true
		candidates = append(candidates, cmd)
	}

	if d.configured != "" {
		add(strings.Fields(d.configured)...)
	}
	add("claude")
	add("npx", "@anthropic-ai/claude-code")
	add("pnpx", "claude")
	add("yarn", "claude")
	if path, err := d.lookPath("claude"); err == nil {
		add(path)
	}
	if path, err := d.lookPath("npx"); err == nil {
		add(path, "@anthropic-ai/claude-code")
	}

	var known []string
	if d.home != "" {
		known = append(known, filepath.Join(d.home, ".claude", "local", "claude"))
	}
	known = append(known, "/usr/local/bin/claude", "/opt/homebrew/bin/claude")
	for _, path := range known {
		if d.fileExists(path) {
			add(path)
		}
	}
	return candidates
}

// Detect probes every candidate with --version and returns the highest
// priority one whose output mentions claude or anthropic
func (d *Detector) Detect(ctx context.Context) (*Installation, error) {
	candidates := d.Candidates()
	versions := make([]string, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxProbes)
	for i, cmd := range candidates {
		g.Go(func() error {
			versions[i] = d.probe(gctx, cmd)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for i, cmd := range candidates {
		if versions[i] != "" {
			inst := &Installation{Command: cmd, Version: versions[i]}
			d.logger.Info("Detected Claude Code", zap.String("command", inst.Name()), zap.String("version", inst.Version))
			return inst, nil
		}
	}
	d.logger.Warn("Claude Code not found", zap.Int("candidates", len(candidates)))
	return nil, ErrClaudeNotFound
}

func (d *Detector) probe(ctx context.Context, cmd []string) string {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	args := append(append([]string(nil), cmd[1:]...), "--version")
	out, err := d.runner.Output(ctx, cmd[0], args...)
	if err != nil {
		d.logger.Debug("Candidate failed", zap.Strings("command", cmd), zap.Error(err))
		return ""
	}
	version := strings.TrimSpace(string(out))
	lower := strings.ToLower(version)
	if !strings.Contains(lower, "claude") && !strings.Contains(lower, "anthropic") {
		d.logger.Debug("Candidate is not Claude Code", zap.Strings("command", cmd), zap.String("output", version))
		return ""
	}
	return version
}

// InstallHints lists ways to install Claude Code
func InstallHints() []string {
	return []string{
		"npm install -g @anthropic-ai/claude-code",
		"npx @anthropic-ai/claude-code",
		"set claude_executable in launcher.json to a custom command",
	}
}
