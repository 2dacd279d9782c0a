package launcher

import (
	"context"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/strrl/cc-launcher/internal/config"
	"github.com/strrl/cc-launcher/internal/detector"
	"github.com/strrl/cc-launcher/pkg/models"
)

// describeStatus explains in one line why a platform is or is not usable
func describeStatus(s models.PlatformStatus) string {
	var problems []string
	if !s.Enabled {
		problems = append(problems, "disabled")
	}
	if !s.Configured {
		problems = append(problems, "missing api_base_url or model")
	}
	if !s.HasAuth {
		problems = append(problems, "no api_key, auth_token or login_token")
	}
	if len(problems) == 0 {
		return "ready"
	}
	return strings.Join(problems, "; ")
}

// ListPlatforms prints enabled platforms with their readiness and model
func (l *Launcher) ListPlatforms() int {
	doc, err := l.registry.Load()
	if err != nil {
		l.printer.Warn("Using default platforms: %v", err)
	}

	l.printer.Section("Available platforms:")
	shown := 0
	for _, p := range doc.Platforms {
		if !p.Profile.Enabled {
			continue
		}
		shown++
		status := l.resolver.Status(p.ID)
		line := l.printer.Status(status.Available) + " " + p.ID + " (" + p.Profile.DisplayName(p.ID) + ")"
		if p.ID == doc.DefaultPlatform {
			line += " [default]"
		}
		l.printer.Plain("  %s", line)
		l.printer.Muted("      Model: %s", p.Profile.Model)
	}
	if shown == 0 {
		l.printer.Muted("  none enabled")
	}

	if len(doc.Aliases) > 0 {
		l.printer.Section("Aliases:")
		for _, alias := range sortedKeys(doc.Aliases) {
			l.printer.Plain("  %s -> %s", alias, doc.Aliases[alias])
		}
	}
	return ExitOK
}

// PrintStatus prints the diagnostic state of the given platforms, or of every
// configured platform when ids is empty
func (l *Launcher) PrintStatus(ids []string) int {
	if len(ids) == 0 {
		for _, p := range l.resolver.ListAll() {
			ids = append(ids, p.ID)
		}
	}
	code := ExitOK
	for _, id := range ids {
		s := l.resolver.Status(id)
		l.printer.Plain("%s %s (%s)", l.printer.Status(s.Available), s.ID, s.Name)
		l.printer.Field("enabled", s.Enabled)
		l.printer.Field("configured", s.Configured)
		l.printer.Field("has_auth", s.HasAuth)
		l.printer.Field("status", describeStatus(s))
		if !s.Available {
			code = ExitFailure
		}
	}
	return code
}

// CheckConfig validates the configuration files, the platforms and the Claude
// Code installation. It returns 0 when a launch could succeed.
func (l *Launcher) CheckConfig(ctx context.Context) int {
	l.printer.Header()
	l.printer.Section("Configuration")
	l.printer.Field("platforms", l.paths.PlatformsFile())
	l.printer.Field("launcher", l.paths.LauncherFile())
	l.printer.Field("sessions", l.paths.MappingsFile())

	ok := true
	if _, err := l.registry.Load(); err != nil {
		l.printer.Error("platforms.json is invalid: %v", err)
		ok = false
	}
	if _, err := config.LoadLauncher(l.paths.LauncherFile()); err != nil {
		l.printer.Error("launcher.json is invalid: %v", err)
		ok = false
	}

	l.printer.Section("Platforms")
	available := 0
	for _, p := range l.resolver.ListAll() {
		s := l.resolver.Status(p.ID)
		if s.Available {
			available++
		}
		l.printer.Plain("  %s %s: %s", l.printer.Status(s.Available), p.ID, describeStatus(s))
	}
	if available == 0 {
		l.printer.Error("No platform is ready to use")
		ok = false
	}

	l.printer.Section("Claude Code")
	inst, err := l.detector.Detect(ctx)
	if err != nil {
		l.printer.Error("Claude Code not found")
		for _, hint := range detector.InstallHints() {
			l.printer.Plain("  %s", hint)
		}
		ok = false
	} else {
		l.printer.Plain("  %s %s", l.printer.Status(true), inst.Name())
		l.printer.Field("version", inst.Version)
	}

	if !ok {
		return ExitFailure
	}
	l.printer.Success("Configuration OK")
	return ExitOK
}

// InitConfig creates the directory layout, platforms.json and launcher.json,
// leaving existing files untouched
func (l *Launcher) InitConfig() int {
	if err := l.paths.Ensure(); err != nil {
		l.printer.Error("%v", err)
		return ExitFailure
	}

	existed := fileExists(l.registry.Path())
	if _, err := l.registry.Load(); err != nil {
		l.printer.Warn("Keeping existing %s: %v", l.registry.Path(), err)
	} else if existed {
		l.printer.Muted("Exists: %s", l.registry.Path())
	} else {
		l.printer.Success("Created %s", l.registry.Path())
	}

	created, err := config.InitLauncher(l.paths.LauncherFile())
	switch {
	case err != nil:
		l.logger.Error("Failed to create launcher settings", zap.Error(err))
		l.printer.Error("%v", err)
		return ExitFailure
	case created:
		l.printer.Success("Created %s", l.paths.LauncherFile())
	default:
		l.printer.Muted("Exists: %s", l.paths.LauncherFile())
	}

	l.printer.Info("Add your credentials to %s, then run cc-launcher --check-config", l.registry.Path())
	return ExitOK
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
