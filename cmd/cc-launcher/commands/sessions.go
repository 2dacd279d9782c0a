package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/strrl/cc-launcher/internal/db"
	"github.com/strrl/cc-launcher/internal/history"
	"github.com/strrl/cc-launcher/internal/launcher"
	"github.com/strrl/cc-launcher/internal/platforms"
	"github.com/strrl/cc-launcher/internal/tui"
	"github.com/strrl/cc-launcher/pkg/models"
)

const timeLayout = "2006-01-02 15:04"

// NewSessionsCommand creates the sessions command and its subcommands
func NewSessionsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect and maintain launcher sessions",
	}
	cmd.AddCommand(newSessionsListCommand(a))
	cmd.AddCommand(newSessionsStatsCommand(a))
	cmd.AddCommand(newSessionsCleanupCommand(a))
	cmd.AddCommand(newSessionsShowCommand(a))
	cmd.AddCommand(newSessionsBrowseCommand(a))
	return cmd
}

func newSessionsListCommand(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list [platform]",
		Short: "List recent sessions, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l := a.launcher(cmd)
			mapper := l.Sessions().Mapper()

			var records []models.SessionRecord
			if len(args) == 1 {
				doc, _ := l.Registry().Load()
				platform := platforms.ResolveAlias(doc, args[0])
				records = mapper.ListPlatformSessions(platform, limit)
			} else {
				records = mapper.ListRecentSessions(limit)
			}

			p := l.Printer()
			if len(records) == 0 {
				p.Muted("No sessions found")
				return nil
			}

			summaries := a.summaries(cmd.Context(), records)
			for i, r := range records {
				p.Plain("%d. %s  %s", i+1, r.TaggedID, r.PlatformID)
				p.Muted("   Last active: %s", r.Activity().Local().Format(timeLayout))
				if s, ok := summaries[r.TaggedID]; ok {
					p.Muted("   Summary: %s", history.Truncate(s, 80))
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of sessions to show (0 for all)")
	return cmd
}

func newSessionsStatsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show session counts per platform",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			l := a.launcher(cmd)
			stats := l.Sessions().Mapper().Statistics()
			p := l.Printer()

			p.Section("Sessions")
			p.Field("total", stats.TotalSessions)
			p.Field("version", stats.Version)
			if !stats.CreatedAt.IsZero() {
				p.Field("created", stats.CreatedAt.Local().Format(timeLayout))
			}
			if !stats.LastUpdated.IsZero() {
				p.Field("updated", stats.LastUpdated.Local().Format(timeLayout))
			}

			platforms := make([]string, 0, len(stats.PerPlatform))
			for id := range stats.PerPlatform {
				platforms = append(platforms, id)
			}
			sort.Strings(platforms)
			for _, id := range platforms {
				s := stats.PerPlatform[id]
				p.Plain("  %s: %d total, %d in 24h, %d in 7d", id, s.Total, s.Active24h, s.Active7d)
			}
			return nil
		},
	}
}

func newSessionsCleanupCommand(a *app) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove sessions inactive for longer than the retention period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			l := a.launcher(cmd)
			if !cmd.Flags().Changed("days") {
				days = a.settings.SessionRetentionDays
			}
			removed, err := l.Sessions().Cleanup(days)
			if err != nil {
				a.logger.Warn("Session cleanup incomplete", zap.Error(err))
			}
			l.Printer().Success("Removed %d sessions older than %d days", removed, days)
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "Retention in days (defaults to session_retention_days)")
	return cmd
}

func newSessionsShowCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show a session's identifiers and transcript preview",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l := a.launcher(cmd)
			mapper := l.Sessions().Mapper()
			record, ok := mapper.Lookup(args[0])
			if !ok {
				return fmt.Errorf("unknown session: %s", args[0])
			}

			p := l.Printer()
			p.Section("Session")
			p.Field("platform", record.PlatformID)
			p.Field("session_id", record.TaggedID)
			p.Field("standard_uuid", record.CanonicalID)
			p.Field("created", record.CreatedAt.Local().Format(timeLayout))
			p.Field("last_active", record.Activity().Local().Format(timeLayout))

			reader, err := a.history(cmd.Context())
			if err != nil {
				p.Muted("Transcripts unavailable: %v", err)
				return nil
			}
			ctx := cmd.Context()
			if activity, err := reader.Activity(ctx, []string{record.TaggedID}); err == nil {
				if act, ok := activity[record.TaggedID]; ok {
					p.Field("project", act.ProjectPath)
					p.Field("messages", act.MessageCount)
				}
			}
			if summaries, err := reader.Summaries(ctx, []string{record.TaggedID}); err == nil {
				if s, ok := summaries[record.TaggedID]; ok {
					p.Field("summary", s)
				}
			}

			lines, err := reader.Preview(ctx, record.TaggedID)
			if err != nil {
				return fmt.Errorf("failed to load transcript: %w", err)
			}
			p.Section("Messages")
			if len(lines) == 0 {
				p.Muted("No messages found")
			}
			for _, line := range lines {
				p.Plain("%s", line)
			}
			return nil
		},
	}
}

func newSessionsBrowseCommand(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Pick a recent session interactively and resume it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !term.IsTerminal(int(os.Stdout.Fd())) || !term.IsTerminal(int(os.Stdin.Fd())) {
				return errors.New("browse needs an interactive terminal; use 'sessions list' instead")
			}

			l := a.launcher(cmd)
			records := l.Sessions().Mapper().ListRecentSessions(limit)
			if len(records) == 0 {
				l.Printer().Muted("No sessions found")
				return nil
			}

			var preview tui.PreviewFunc
			if reader, err := a.history(cmd.Context()); err == nil {
				preview = reader.Preview
			} else {
				a.logger.Debug("Transcript previews disabled", zap.Error(err))
			}

			selected, err := tui.ShowTUI(cmd.Context(), records, preview)
			if err != nil {
				return fmt.Errorf("TUI error: %w", err)
			}
			if selected == nil {
				return nil
			}
			return exit(l.Run(cmd.Context(), launcher.Options{Resume: selected.TaggedID}))
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Number of sessions to offer (0 for all)")
	return cmd
}

// history opens the transcript reader, failing when there is nothing to read
func (a *app) history(ctx context.Context) (*history.Reader, error) {
	conn, err := db.Shared(ctx)
	if err != nil {
		return nil, err
	}
	reader := history.NewReader(conn, a.paths.ProjectsDir, a.logger)
	if !reader.Available() {
		return nil, fmt.Errorf("no transcripts under %s", a.paths.ProjectsDir)
	}
	return reader, nil
}

// summaries returns transcript summaries for records, or nothing when the
// transcripts cannot be queried
func (a *app) summaries(ctx context.Context, records []models.SessionRecord) map[string]string {
	reader, err := a.history(ctx)
	if err != nil {
		a.logger.Debug("Skipping summaries", zap.Error(err))
		return nil
	}
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.TaggedID
	}
	summaries, err := reader.Summaries(ctx, ids)
	if err != nil {
		a.logger.Debug("Skipping summaries", zap.Error(err))
		return nil
	}
	return summaries
}
