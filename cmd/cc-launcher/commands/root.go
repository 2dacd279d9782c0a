package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/strrl/cc-launcher/internal/config"
	"github.com/strrl/cc-launcher/internal/console"
	"github.com/strrl/cc-launcher/internal/launcher"
	"github.com/strrl/cc-launcher/internal/logging"
)

// app carries what every command needs once flags are parsed
type app struct {
	debug    bool
	paths    config.Paths
	settings config.Launcher
	logger   *zap.Logger
	closeLog func()
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	paths, err := config.DefaultPaths()
	if err != nil {
		return err
	}
	a.paths = paths

	logFile := ""
	if err := paths.Ensure(); err == nil {
		logFile = paths.LogFile()
	}
	a.logger, a.closeLog = logging.NewOrConsole(logging.Options{
		File:    logFile,
		Console: cmd.ErrOrStderr(),
		Debug:   a.debug,
	})

	settings, err := config.LoadLauncher(paths.LauncherFile())
	if err != nil {
		a.logger.Warn("Using default launcher settings", zap.Error(err))
	}
	a.settings = settings
	return nil
}

func (a *app) close() {
	if a.closeLog != nil {
		a.closeLog()
		a.closeLog = nil
	}
}

func (a *app) launcher(cmd *cobra.Command, opts ...launcher.Option) *launcher.Launcher {
	return launcher.New(a.paths, a.settings, console.New(cmd.OutOrStdout()), a.logger, opts...)
}

// exit turns a launcher exit code into the command's error
func exit(code int) error {
	if code == launcher.ExitOK {
		return nil
	}
	return &launcher.ExitError{Code: code}
}

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	return newRootCommand(&app{})
}

func newRootCommand(a *app) *cobra.Command {
	var (
		continueSession bool
		list            bool
		checkConfig     bool
		initConfig      bool
	)

	rootCmd := &cobra.Command{
		Use:   "cc-launcher [platform] [-- claude args...]",
		Short: "Launch Claude Code against a configured API platform",
		Long: `cc-launcher starts Claude Code with the endpoint, model and credentials of one
configured platform, giving every launch a session id that records its platform.`,
		Args:              cobra.ArbitraryArgs,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		RunE: func(cmd *cobra.Command, args []string) error {
			l := a.launcher(cmd)
			switch {
			case initConfig:
				return exit(l.InitConfig())
			case checkConfig:
				return exit(l.CheckConfig(cmd.Context()))
			case list:
				return exit(l.ListPlatforms())
			}

			opts := launcher.Options{Continue: continueSession}
			platformArgs, extra := splitArgs(cmd, args)
			if len(platformArgs) > 1 {
				return fmt.Errorf("expected at most one platform, got %d", len(platformArgs))
			}
			if len(platformArgs) == 1 {
				opts.Platform = platformArgs[0]
			}
			opts.ExtraArgs = extra
			return exit(l.Run(cmd.Context(), opts))
		},
	}

	flags := rootCmd.Flags()
	flags.BoolVarP(&continueSession, "continue", "c", false, "Continue the platform's last session")
	flags.BoolVar(&list, "list", false, "List available platforms")
	flags.BoolVar(&checkConfig, "check-config", false, "Validate configuration and Claude Code installation")
	flags.BoolVar(&initConfig, "init-config", false, "Create default configuration files")
	rootCmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "Log debug output to stderr")

	rootCmd.AddCommand(NewStatusCommand(a))
	rootCmd.AddCommand(NewSessionsCommand(a))

	return rootCmd
}

// splitArgs separates positional arguments from those after "--", which are
// passed through to Claude Code
func splitArgs(cmd *cobra.Command, args []string) (positional, extra []string) {
	dash := cmd.ArgsLenAtDash()
	if dash < 0 {
		return args, nil
	}
	return args[:dash], args[dash:]
}

// Execute runs the root command and exits with the launcher's exit code
func Execute() {
	a := &app{}
	err := newRootCommand(a).ExecuteContext(context.Background())
	a.close()
	if err == nil {
		return
	}
	var exitErr *launcher.ExitError
	if errors.As(err, &exitErr) {
		os.Exit(exitErr.Code)
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(launcher.ExitFailure)
}
