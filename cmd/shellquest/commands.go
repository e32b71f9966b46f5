package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nathoo/shellquest/docs"
	"github.com/nathoo/shellquest/engine/catalog"
	"github.com/nathoo/shellquest/engine/state"
	"github.com/nathoo/shellquest/loader"
	"github.com/nathoo/shellquest/store"
	"github.com/nathoo/shellquest/types"
)

var (
	watchLevels      bool
	showLevels       bool
	leaderboardSize  int
	generateOut      string
	generatePreview  bool
	generateReadme   string
	generateTemplate string
	resetYes         bool
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate level definitions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if !watchLevels {
			fmt.Fprintf(out, "Validating %s...\n", cfg.Levels)
			cat, warnings, err := loader.LoadWithWarnings(cfg.Levels)
			return reportValidation(out, cat, warnings, err)
		}

		fmt.Fprintf(out, "Watching %s for changes (Ctrl+C to stop)...\n", cfg.Levels)
		return loader.Watch(cmd.Context(), cfg.Levels, func(cat *catalog.Catalog, warnings []loader.Issue, err error) {
			_ = reportValidation(out, cat, warnings, err)
		})
	},
}

// reportValidation prints every issue and warning. The returned error is
// non-nil when the levels are unusable.
func reportValidation(w io.Writer, cat *catalog.Catalog, warnings []loader.Issue, err error) error {
	var verr *loader.ValidationError
	if errors.As(err, &verr) {
		fmt.Fprintf(w, "Found %d validation issue(s):\n", len(verr.Issues))
		for _, is := range verr.Issues {
			fmt.Fprintf(w, "  - %s\n", is)
		}
	} else if err != nil {
		fmt.Fprintf(w, "Validation failed: %v\n", err)
	}
	for _, is := range warnings {
		fmt.Fprintf(w, "  warning: %s\n", is)
	}
	if err != nil {
		return errors.New("level validation failed")
	}
	fmt.Fprintf(w, "All %d levels are valid!\n", cat.Len())
	return nil
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show quest statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := loader.Load(cfg.Levels)
		if err != nil {
			return fmt.Errorf("loading levels from %s: %w", cfg.Levels, err)
		}
		out := cmd.OutOrStdout()
		printStats(out, cat, showLevels)

		if leaderboardSize > 0 {
			return printLeaderboard(cmd, leaderboardSize)
		}
		return nil
	},
}

func printStats(w io.Writer, cat *catalog.Catalog, details bool) {
	st := cat.Statistics()
	var diffs []string
	for _, d := range []types.Difficulty{types.Beginner, types.Intermediate, types.Advanced} {
		if n := st.DifficultyBreakdown[d]; n > 0 {
			diffs = append(diffs, fmt.Sprintf("%s (%d)", d, n))
		}
	}

	fmt.Fprintln(w, "Quest Statistics:")
	fmt.Fprintf(w, "  Total Levels: %d\n", st.TotalLevels)
	fmt.Fprintf(w, "  Categories: %s\n", strings.Join(st.Categories, ", "))
	fmt.Fprintf(w, "  Difficulties: %s\n", strings.Join(diffs, ", "))
	fmt.Fprintf(w, "  Total Points: %d\n", st.TotalPoints)
	fmt.Fprintf(w, "  Average Points: %.1f\n", st.AveragePoints)

	if !details {
		return
	}
	fmt.Fprintln(w, "\nLevel Details:")
	for i, l := range cat.Ordered() {
		fmt.Fprintf(w, "  %2d. %s\n", i+1, l.Title)
		fmt.Fprintf(w, "      Category: %s, Difficulty: %s, Points: %d\n", l.Category, l.Difficulty, l.Points)
	}
}

func printLeaderboard(cmd *cobra.Command, limit int) error {
	st, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer store.Close(st)

	sq, ok := st.(*store.SQLiteStore)
	if !ok {
		return fmt.Errorf("leaderboard needs the sqlite store, not %q", cfg.Store.Kind)
	}
	entries, err := sq.Leaderboard(cmd.Context(), limit)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "\nLeaderboard:")
	if len(entries) == 0 {
		fmt.Fprintln(out, "  no players yet")
	}
	for i, e := range entries {
		fmt.Fprintf(out, "  %2d. %-20s %d\n", i+1, e.Player, e.Score)
	}
	return nil
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate quest documentation",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := loader.Load(cfg.Levels)
		if err != nil {
			return fmt.Errorf("loading levels from %s: %w", cfg.Levels, err)
		}
		out := cmd.OutOrStdout()

		if generatePreview {
			var buf strings.Builder
			if err := docs.Generate(&buf, "", cat); err != nil {
				return err
			}
			rendered, err := docs.Preview(buf.String(), 0)
			if err != nil {
				return err
			}
			fmt.Fprint(out, rendered)
		} else {
			if err := docs.GenerateFile(generateOut, "", cat); err != nil {
				return err
			}
			fmt.Fprintf(out, "Quest documentation generated: %s\n", generateOut)
		}

		if generateReadme != "" {
			data, err := os.ReadFile(generateReadme)
			if err != nil {
				return err
			}
			updated, err := docs.UpdateReadme(data, cat)
			if err != nil {
				return fmt.Errorf("%s: %w", generateReadme, err)
			}
			if err := os.WriteFile(generateReadme, updated, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(out, "Updated %s with quest content\n", generateReadme)
		}

		if generateTemplate != "" {
			if err := os.WriteFile(generateTemplate, []byte(docs.LevelTemplate), 0o644); err != nil {
				return err
			}
			fmt.Fprintf(out, "Level template generated: %s\n", generateTemplate)
		}
		return nil
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Discard saved progress for the current player",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if !resetYes {
			fmt.Fprintf(out, "Reset all progress for %s? [y/N] ", cfg.Player)
			answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
				fmt.Fprintln(out, "Aborted.")
				return nil
			}
		}

		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer store.Close(st)

		if err := st.Save(cmd.Context(), state.NewProgress(time.Now())); err != nil {
			return fmt.Errorf("resetting progress: %w", err)
		}
		fmt.Fprintln(out, "Progress reset.")
		return nil
	},
}
