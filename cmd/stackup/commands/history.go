package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/aistack/stackup/pkg/config"
	"github.com/aistack/stackup/pkg/stores"
)

func newHistoryCommand() *cobra.Command {
	var limit int
	var runID string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show prior provisioning runs on this host",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd.Context(), limit, runID)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum runs to list")
	cmd.Flags().StringVar(&runID, "run", "", "show step results for one run")
	return cmd
}

func runHistory(ctx context.Context, limit int, runID string) error {
	settings, err := config.Load(configPath)
	if err != nil {
		return err
	}

	store, err := stores.NewRunStore(filepath.Join(settings.StateDir, "history.db"))
	if err != nil {
		return err
	}
	if err := store.Init(ctx); err != nil {
		return err
	}
	defer store.Close()

	if runID != "" {
		steps, err := store.GetSteps(ctx, runID)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(steps)
		}
		for _, s := range steps {
			line := fmt.Sprintf("%-28s %-10s %s", s.Name, s.Outcome, s.Duration.Round(time.Millisecond))
			if s.Error != "" {
				line += "  (" + s.Error + ")"
			}
			fmt.Println(line)
		}
		return nil
	}

	runs, err := store.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(runs)
	}
	for _, r := range runs {
		fmt.Printf("%s  %-10s  %s  %s\n",
			r.ID, r.Status, r.StartedAt.Format(time.RFC3339), r.Duration.Round(time.Millisecond))
	}
	return nil
}

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}
