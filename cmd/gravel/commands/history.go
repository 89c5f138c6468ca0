package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gravelbuild/gravel/pkg/stores"
)

func newHistoryCommand() *cobra.Command {
	var (
		dbPath     string
		limit      int
		failedOnly bool
	)

	cmd := &cobra.Command{
		Use:   "history [evaluation-id]",
		Short: "Inspect recorded evaluations",
		Long: `List recorded evaluation runs, or show the node outcomes of one run.

Without arguments the most recent evaluations are listed. With an
evaluation ID the per-node outcomes of that run are printed.`,
		Example: `  # List recent evaluations
  gravel history --db gravel.db

  # Show all node outcomes of one run
  gravel history --db gravel.db 2f1c...

  # Show only the failures
  gravel history --db gravel.db --failed 2f1c...`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := openStore(ctx, dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			if len(args) == 0 {
				evals, err := store.ListEvaluations(ctx, limit, 0)
				if err != nil {
					return err
				}
				if len(evals) == 0 {
					cmd.Println("no recorded evaluations")
					return nil
				}
				for _, eval := range evals {
					line := fmt.Sprintf("%s  %-9s  %d roots  %d computed  %d failed  %s",
						eval.ID, eval.Status, eval.RootCount, eval.Computed, eval.Failed,
						eval.StartedAt.Format("2006-01-02 15:04:05"))
					if eval.Error != nil {
						line += "  (" + *eval.Error + ")"
					}
					cmd.Println(line)
				}
				return nil
			}

			id := args[0]
			eval, err := store.GetEvaluation(ctx, id)
			if err != nil {
				return err
			}
			cmd.Printf("evaluation %s: %s, %d roots, %d computed, %d failed, %d restarts\n\n",
				eval.ID, eval.Status, eval.RootCount, eval.Computed, eval.Failed, eval.Restarts)

			var outcomes []*stores.NodeOutcome
			if failedOnly {
				outcomes, err = store.ListFailedNodes(ctx, id)
			} else {
				outcomes, err = store.ListNodeOutcomes(ctx, id)
			}
			if err != nil {
				return err
			}
			for _, outcome := range outcomes {
				if outcome.Status == stores.NodeStatusOK {
					cmd.Printf("ok      %s\n", outcome.NodeKey)
					continue
				}
				class := ""
				if outcome.ErrorClass != nil {
					class = *outcome.ErrorClass
				}
				msg := ""
				if outcome.ErrorMessage != nil {
					msg = *outcome.ErrorMessage
				}
				cmd.Printf("failed  %s  [%s] %s\n", outcome.NodeKey, class, msg)
			}

			events, err := store.ListAnalysisEvents(ctx, &id, nil, limit, 0)
			if err != nil {
				return err
			}
			if len(events) > 0 {
				cmd.Println()
				for _, event := range events {
					label := ""
					if event.Label != nil {
						label = *event.Label + ": "
					}
					cmd.Printf("%-7s %s%s\n", event.Severity, label, event.Message)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "gravel.db", "SQLite history database")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum entries to list")
	cmd.Flags().BoolVar(&failedOnly, "failed", false, "show only failed nodes")

	return cmd
}
