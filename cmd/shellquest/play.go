package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nathoo/shellquest/cli"
	"github.com/nathoo/shellquest/config"
	"github.com/nathoo/shellquest/engine"
	"github.com/nathoo/shellquest/executor"
	"github.com/nathoo/shellquest/loader"
	"github.com/nathoo/shellquest/store"
	"github.com/nathoo/shellquest/tui"
)

var (
	workDir    string
	plain      bool
	scriptFile string
	ephemeral  bool
	trace      bool
	markdown   bool
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Start the interactive game",
	Long: `Start or resume the quest. Progress is saved after every level.

Commands run in --work-dir, or in a temporary directory that is removed on
exit. With --script, lines are read from a file and echoed, which is useful
for demos and tests.`,
	Args: cobra.NoArgs,
}

func addPlayFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&workDir, "work-dir", "w", "", "Working directory for command execution (default: temporary)")
	cmd.Flags().BoolVar(&plain, "plain", false, "Use the plain line interface instead of the TUI")
	cmd.Flags().StringVar(&scriptFile, "script", "", "Play commands from a file (implies --plain)")
	cmd.Flags().BoolVar(&ephemeral, "ephemeral", false, "Keep progress in memory only")
	cmd.Flags().BoolVar(&trace, "trace", false, "Show debug trace output")
	cmd.Flags().BoolVar(&markdown, "markdown", true, "Render level text as markdown in the TUI")
}

// usesTUI reports whether cmd will take over the terminal.
func usesTUI(cmd *cobra.Command) bool {
	return playsInTUI(cmd, isTerminal())
}

// playsInTUI matches the root and play commands by name; referring to
// the command variables here would make their initializers cyclic.
func playsInTUI(cmd *cobra.Command, terminal bool) bool {
	isPlay := !cmd.HasParent() || (cmd.Name() == "play" && !cmd.Parent().HasParent())
	return isPlay && !plain && scriptFile == "" && terminal
}

func runPlay(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cat, warnings, err := loader.LoadWithWarnings(cfg.Levels)
	if err != nil {
		return fmt.Errorf("loading levels from %s: %w", cfg.Levels, err)
	}
	for _, w := range warnings {
		logger.Warn("level warning", zap.String("issue", w.String()))
	}

	if workDir != "" {
		cfg.Executor.WorkDir = workDir
	}
	dir := cfg.Executor.WorkDir
	if cfg.Executor.Kind != config.ExecutorDocker {
		// Docker paths live in the container; only local runs get a workspace.
		ws, err := executor.OpenWorkspace(cfg.Executor.WorkDir)
		if err != nil {
			return err
		}
		defer ws.Close()
		dir = ws.Dir()
	}

	exec, err := executor.New(cfg.Executor, logger)
	if err != nil {
		return fmt.Errorf("creating executor: %w", err)
	}
	defer executor.Close(exec)

	if ephemeral {
		cfg.Store.Kind = config.StoreMemory
	}
	st, err := store.Open(ctx, cfg.Store, cfg.Player, logger)
	if err != nil {
		return fmt.Errorf("opening progress store: %w", err)
	}
	defer store.Close(st)

	eng, err := engine.New(cat, engine.Options{
		Executor:    exec,
		Store:       st,
		Logger:      logger,
		WorkDir:     dir,
		SkipPenalty: skipPenalty(cfg.Game.SkipPenalty),
	})
	if err != nil {
		return err
	}
	logger.Info("starting quest",
		zap.Int("levels", cat.Len()),
		zap.String("work_dir", dir),
		zap.String("store", cfg.Store.Kind))

	// Script mode: open file, force plain, echo commands.
	if scriptFile != "" {
		f, err := os.Open(scriptFile)
		if err != nil {
			return fmt.Errorf("opening script: %w", err)
		}
		defer f.Close()
		c := newCLI(cmd, eng)
		c.In = f
		c.EchoInput = true
		return c.Run(ctx)
	}

	if !usesTUI(cmd) {
		return newCLI(cmd, eng).Run(ctx)
	}

	err = tui.Run(ctx, eng, tui.Options{Markdown: markdown})
	if err == nil || ctx.Err() != nil {
		fmt.Fprintln(cmd.OutOrStdout(), "Thanks for playing! Your progress is saved.")
		return nil
	}
	return err
}

func newCLI(cmd *cobra.Command, eng *engine.Engine) *cli.CLI {
	c := cli.New(eng)
	c.Out = cmd.OutOrStdout()
	c.Trace = trace
	return c
}

// skipPenalty maps the configured penalty to engine options, where zero
// means the default.
func skipPenalty(configured int) int {
	if configured <= 0 {
		return engine.NoSkipPenalty
	}
	return configured
}

// openStore opens the configured progress store for non-play commands.
func openStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store, cfg.Player, logger)
	if err != nil {
		return nil, fmt.Errorf("opening progress store: %w", err)
	}
	return st, nil
}
