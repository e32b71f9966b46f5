// Shellquest is an interactive quest that teaches UNIX commands through
// hands-on challenges.
// Usage: shellquest [play|validate|stats|generate|reset|version] [flags]
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nathoo/shellquest/config"
	"github.com/nathoo/shellquest/logging"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	// Global flags
	verbose    bool
	levelsPath string
	envFile    string

	cfg    *config.Config
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "shellquest",
	Short: "Learn UNIX commands by solving terminal challenges",
	Long: `shellquest is a text adventure played in your shell.

Each level sets a challenge; you solve it by typing the right command.
Commands really run, in a scratch directory, and are checked against the
level's expected command and output.

Run without arguments to start playing.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		if err := config.LoadEnvFile(envFile); err != nil {
			return err
		}
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		if levelsPath != "" {
			cfg.Levels = levelsPath
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}

		logger, err = logging.New(logging.Options{
			Dir:     cfg.Logging.Dir,
			Level:   cfg.Logging.Level,
			Console: verbose && !usesTUI(cmd),
		})
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger.Debug("configuration loaded",
			zap.String("levels", cfg.Levels),
			zap.String("store", cfg.Store.Kind),
			zap.String("executor", cfg.Executor.Kind),
			zap.String("player", cfg.Player))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "shellquest %s (commit %s, built %s)\n", version, commit, date)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&levelsPath, "levels", "l", "", "Level file or directory (default: $QUEST_LEVELS or levels.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Optional .env file with QUEST_* settings")

	rootCmd.RunE = runPlay
	playCmd.RunE = runPlay
	addPlayFlags(rootCmd)
	addPlayFlags(playCmd)
	validateCmd.Flags().BoolVar(&watchLevels, "watch", false, "Revalidate whenever level files change")
	statsCmd.Flags().BoolVar(&showLevels, "levels", false, "Show detailed level information")
	statsCmd.Flags().IntVar(&leaderboardSize, "leaderboard", 0, "Show the top N players (sqlite store only)")
	generateCmd.Flags().StringVarP(&generateOut, "output", "o", "QUEST.md", "Output file")
	generateCmd.Flags().BoolVar(&generatePreview, "preview", false, "Render the guide in the terminal instead of writing it")
	generateCmd.Flags().StringVar(&generateReadme, "readme", "", "Also refresh the quest block in this README")
	generateCmd.Flags().StringVar(&generateTemplate, "template", "", "Also write a level authoring template to this file")
	resetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "Do not ask for confirmation")

	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// isTerminal returns true if stdout is a terminal (not piped/redirected).
func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
