package launcher

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/strrl/cc-launcher/internal/config"
	"github.com/strrl/cc-launcher/internal/console"
	"github.com/strrl/cc-launcher/internal/detector"
	"github.com/strrl/cc-launcher/internal/environment"
	"github.com/strrl/cc-launcher/internal/platforms"
	"github.com/strrl/cc-launcher/internal/sessions"
	"github.com/strrl/cc-launcher/pkg/models"
)

// Exit codes
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitInterrupted = 130
)

// Detector finds the Claude Code command line
type Detector interface {
	Detect(ctx context.Context) (*detector.Installation, error)
}

// Options describe one launch
type Options struct {
	Platform  string
	Continue  bool
	Resume    string // Tagged or canonical id of a recorded session to resume
	ExtraArgs []string
}

// Launcher wires platform selection, session identity, environment staging
// and the Claude Code process together
type Launcher struct {
	paths    config.Paths
	settings config.Launcher
	registry *platforms.Registry
	resolver *platforms.Resolver
	manager  *sessions.Manager
	detector Detector
	stager   *environment.Settings
	runner   ToolRunner
	printer  *console.Printer
	environ  func() []string
	logger   *zap.Logger
}

// Option configures a Launcher
type Option func(*Launcher)

// WithDetector replaces Claude Code detection
func WithDetector(d Detector) Option {
	return func(l *Launcher) { l.detector = d }
}

// WithToolRunner replaces the process runner
func WithToolRunner(r ToolRunner) Option {
	return func(l *Launcher) { l.runner = r }
}

// WithEnviron replaces os.Environ as the inherited environment
func WithEnviron(fn func() []string) Option {
	return func(l *Launcher) { l.environ = fn }
}

// WithMapperOptions passes options to the session mapper
func WithMapperOptions(opts ...sessions.MapperOption) Option {
	return func(l *Launcher) {
		store := sessions.NewStore(l.paths.MappingsFile(), l.logger)
		mapper := sessions.NewMapper(store, l.registry, l.logger, opts...)
		l.manager = sessions.NewManager(mapper, l.paths.SessionsDir, l.logger)
	}
}

// New builds a launcher over the layout in paths
func New(paths config.Paths, settings config.Launcher, printer *console.Printer, logger *zap.Logger, opts ...Option) *Launcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Launcher{
		paths:    paths,
		settings: settings,
		printer:  printer,
		environ:  os.Environ,
		runner:   NewExecRunner(),
		logger:   logger,
	}
	l.registry = platforms.NewRegistry(paths.PlatformsFile(), logger)
	l.resolver = platforms.NewResolver(l.registry, logger, platforms.WithDefaultPlatform(settings.DefaultPlatform))
	l.stager = environment.NewSettings(paths.SettingsFile(), logger)
	l.detector = detector.New(logger, detector.WithExecutable(settings.ClaudeExecutable))
	for _, opt := range opts {
		opt(l)
	}
	if l.manager == nil {
		WithMapperOptions()(l)
	}
	return l
}

func (l *Launcher) Registry() *platforms.Registry { return l.registry }
func (l *Launcher) Resolver() *platforms.Resolver { return l.resolver }
func (l *Launcher) Sessions() *sessions.Manager   { return l.manager }
func (l *Launcher) Printer() *console.Printer     { return l.printer }
func (l *Launcher) Settings() config.Launcher     { return l.settings }

// Run launches Claude Code and returns the exit code for the launcher process.
// SIGINT and SIGTERM interrupt the tool and yield 130 once the settings file
// has been restored.
func (l *Launcher) Run(ctx context.Context, opts Options) int {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if l.settings.StageSettings {
		if err := l.stager.Restore(); err != nil {
			l.logger.Warn("Failed to recover settings backup", zap.Error(err))
		}
	}

	var resumed *models.SessionRecord
	if opts.Resume != "" {
		record, ok := l.manager.Mapper().Lookup(opts.Resume)
		if !ok {
			l.printer.Error("Unknown session: %s", opts.Resume)
			return ExitFailure
		}
		record.Continued = true
		resumed = &record
		if opts.Platform == "" {
			opts.Platform = record.PlatformID
		}
	}

	platform, err := l.resolver.Resolve(opts.Platform)
	if err != nil {
		l.reportResolveError(opts.Platform, err)
		return ExitFailure
	}

	l.printer.Header()
	l.printer.Info("Platform: %s (%s)", platform.Profile.DisplayName(platform.ID), platform.ID)
	l.printer.Field("Model", platform.Profile.Model)
	l.printer.Field("API", platform.Profile.APIBaseURL)

	if l.settings.AutoCleanup {
		if removed, err := l.manager.Cleanup(l.settings.SessionRetentionDays); err != nil {
			l.logger.Warn("Session cleanup incomplete", zap.Error(err))
		} else if removed > 0 {
			l.printer.Muted("Cleaned up %d expired sessions", removed)
		}
	}

	record := resumed
	if record != nil && record.PlatformID != platform.ID {
		l.printer.Warn("Session %s was created on %s", record.TaggedID, record.PlatformID)
	}
	if record == nil {
		record = l.session(platform.ID, opts.Continue || l.settings.ContinueLastSession)
	} else {
		l.printer.Info("Resuming session %s", record.TaggedID)
	}

	inst, err := l.detector.Detect(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ExitInterrupted
		}
		l.printer.Error("Claude Code not found")
		l.printer.Plain("Install it with one of:")
		for _, hint := range detector.InstallHints() {
			l.printer.Plain("  %s", hint)
		}
		return ExitFailure
	}

	env := environment.Compose(l.environ(), environment.ForPlatform(platform.Profile))
	authVar, secret := environment.Credential(env)
	l.logger.Debug("Environment prepared",
		zap.String("platform", platform.ID),
		zap.String("auth", authVar),
		zap.String("credential", environment.Mask(secret)))

	if l.settings.StageSettings {
		removed, err := l.stager.Stage(environment.Stale)
		if err != nil {
			l.logger.Warn("Failed to stage settings file", zap.Error(err))
		}
		if len(removed) > 0 {
			l.printer.Muted("Temporarily removed %d overriding keys from settings.json", len(removed))
		}
		defer func() {
			if err := l.stager.Restore(); err != nil {
				l.logger.Error("Failed to restore settings file", zap.Error(err))
				l.printer.Error("Failed to restore %s: %v", l.paths.SettingsFile(), err)
			}
		}()
	}

	command := append(append([]string(nil), inst.Command...), sessionArgs(record)...)
	command = append(command, opts.ExtraArgs...)

	l.printer.Muted("Starting %s", inst.Name())
	l.logger.Info("Launching Claude Code",
		zap.String("platform", platform.ID),
		zap.Strings("command", command))

	code, err := l.runner.Run(ctx, command, env)

	if record != nil && l.manager.Mapper().Touch(record.TaggedID) {
		l.logger.Debug("Session activity recorded", zap.String("session", record.TaggedID))
	}

	if ctx.Err() != nil {
		l.printer.Warn("Interrupted")
		return ExitInterrupted
	}
	if err != nil {
		l.logger.Error("Failed to run Claude Code", zap.Error(err))
		l.printer.Error("Failed to run Claude Code: %v", err)
		return ExitFailure
	}
	if code < 0 {
		return ExitFailure
	}
	return code
}

func (l *Launcher) session(platformID string, continueRequested bool) *models.SessionRecord {
	if !l.settings.AutoCreateSession && !continueRequested {
		return nil
	}
	record, err := l.manager.CreateOrContinue(platformID, continueRequested)
	if err != nil {
		l.logger.Warn("Session bookkeeping degraded", zap.Error(err))
	}
	if record == nil {
		l.printer.Warn("Could not create a session id, starting without one")
		return nil
	}
	if record.Continued {
		l.printer.Info("Continuing session %s", record.TaggedID)
	} else {
		l.printer.Info("Session: %s", record.TaggedID)
	}
	return record
}

func sessionArgs(record *models.SessionRecord) []string {
	if record == nil {
		return nil
	}
	if record.Continued {
		return []string{"--resume", record.TaggedID}
	}
	return []string{"--session-id=" + record.TaggedID}
}

func (l *Launcher) reportResolveError(requested string, err error) {
	switch {
	case errors.Is(err, platforms.ErrPlatformNotFound):
		l.printer.Error("Unknown platform: %s", requested)
	case errors.Is(err, platforms.ErrPlatformUnavailable):
		l.printer.Error("Platform %s is not available", requested)
		status := l.resolver.Status(requested)
		l.printer.Plain("%s", describeStatus(status))
	default:
		l.printer.Error("No available platform configured")
	}
	if available := l.resolver.ListAvailable(); len(available) > 0 {
		l.printer.Plain("Available platforms:")
		for _, p := range available {
			l.printer.Plain("  %s (%s)", p.ID, p.Profile.DisplayName(p.ID))
		}
	} else {
		l.printer.Plain("Edit %s to configure a platform", l.paths.PlatformsFile())
	}
}
