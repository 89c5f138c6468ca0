package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/gravelbuild/gravel/pkg/analysis"
	"github.com/gravelbuild/gravel/pkg/engine"
	"github.com/gravelbuild/gravel/pkg/graph"
	"github.com/gravelbuild/gravel/pkg/loader"
	"github.com/gravelbuild/gravel/pkg/model"
	"github.com/gravelbuild/gravel/pkg/stores"
	"github.com/gravelbuild/gravel/pkg/telemetry"
)

func newAnalyzeCommand() *cobra.Command {
	var (
		manifestPath string
		configName   string
		parallelism  int
		dbPath       string
		enableTrace  bool
	)

	cmd := &cobra.Command{
		Use:   "analyze <label>...",
		Short: "Analyze build targets",
		Long: `Analyze one or more targets from a workspace manifest.

Each target is resolved against the selected configuration: its package
is loaded, configurable attributes are keyed by their conditions, every
dependency is analyzed in turn, and the resulting actions are reported.
Results are memoized per (label, configuration) pair, so shared
dependencies are analyzed exactly once.`,
		Example: `  # Analyze a target under the default (absent) configuration
  gravel analyze --manifest workspace.yaml //app:bin

  # Analyze several targets under a named configuration
  gravel analyze --manifest workspace.yaml --config dev //app:bin //app:lib

  # Record the evaluation in the history database
  gravel analyze --manifest workspace.yaml --db gravel.db //app:bin`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			manifest, err := loader.LoadManifestFile(manifestPath)
			if err != nil {
				return err
			}

			registry := model.NewConfigurationRegistry()
			var config *model.Configuration
			if configName != "" {
				config = manifest.Configuration(configName)
				if config == nil {
					return fmt.Errorf("manifest declares no configuration %q", configName)
				}
			}
			config = registry.Intern(config)

			roots := make([]graph.Key, len(args))
			for i, arg := range args {
				label, err := model.ParseLabel(arg)
				if err != nil {
					return err
				}
				roots[i] = analysis.NewConfiguredTargetKey(label, config)
			}

			telCfg := telemetry.DefaultConfig()
			if verbose {
				telCfg.Logging.Level = "debug"
			}
			if enableTrace {
				telCfg.Tracing.Enabled = true
				telCfg.Tracing.Exporter = "stdout"
			}
			tel, err := telemetry.NewTelemetry(telCfg)
			if err != nil {
				return fmt.Errorf("failed to initialize telemetry: %w", err)
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = tel.Shutdown(shutdownCtx)
			}()

			var store *stores.SQLiteStore
			evaluationID := uuid.New().String()
			startedAt := time.Now()
			if dbPath != "" {
				store, err = openStore(ctx, dbPath)
				if err != nil {
					return err
				}
				defer store.Close()

				record := &stores.Evaluation{
					ID:        evaluationID,
					Status:    stores.EvaluationStatusRunning,
					RootCount: len(roots),
					StartedAt: startedAt,
					CreatedAt: startedAt,
					UpdatedAt: startedAt,
				}
				if err := store.CreateEvaluation(ctx, record); err != nil {
					return err
				}
			}

			// Diagnostics always reach the log; recorded runs keep a
			// copy in the history database.
			var sink analysis.EventSink = analysis.NewLoggerSink(tel.Logger)
			if store != nil {
				sink = analysis.NewMultiSink(sink,
					stores.NewAnalysisEventSink(store, evaluationID, tel.Logger))
			}

			ev := engine.New(engine.Options{
				Parallelism: parallelism,
				Telemetry:   tel,
			})
			ev.Register(analysis.KindPackage,
				analysis.NewPackageFunction(manifest.Loader(), tel.Logger))
			ev.Register(analysis.KindConfiguredTarget,
				analysis.NewConfiguredTargetFunction(
					registry,
					analysis.NewDefaultResolver(),
					analysis.NewDefaultTargetFactory(),
					sink,
					tel.Logger,
				))
			ev.Register(analysis.KindCompletion, analysis.NewCompletionFunction())

			res, err := ev.Evaluate(ctx, roots)
			if err != nil {
				if store != nil {
					msg := err.Error()
					_ = store.FinishEvaluation(context.Background(), evaluationID,
						stores.EvaluationStatusCancelled, stores.EvaluationStats{}, &msg)
				}
				return err
			}

			if store != nil {
				if err := recordResult(ctx, store, evaluationID, res); err != nil {
					return err
				}
			}

			printResult(cmd, res)

			if failures := countRootFailures(res); failures > 0 {
				return fmt.Errorf("analysis failed for %d of %d targets", failures, len(roots))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", "workspace.yaml", "workspace manifest file")
	cmd.Flags().StringVarP(&configName, "config", "c", "", "configuration name from the manifest")
	cmd.Flags().IntVarP(&parallelism, "parallelism", "j", 0, "worker count (0 = default)")
	cmd.Flags().StringVar(&dbPath, "db", "", "record the evaluation in this SQLite database")
	cmd.Flags().BoolVar(&enableTrace, "trace", false, "emit trace spans to stdout")

	return cmd
}

func printResult(cmd *cobra.Command, res *engine.EvaluationResult) {
	for _, key := range res.Roots() {
		value, err, ok := res.Get(key)
		switch {
		case err != nil:
			cmd.PrintErrf("FAILED  %s: %v\n", key, err)
		case !ok:
			cmd.PrintErrf("FAILED  %s: no result\n", key)
		default:
			ctValue, isCT := value.(*analysis.ConfiguredTargetValue)
			if isCT {
				cmd.Printf("OK      %s (%d actions)\n", key, len(ctValue.Actions))
			} else {
				cmd.Printf("OK      %s\n", key)
			}
		}
	}

	stats := res.Stats
	cmd.Printf("\n%d computed, %d failed, %d restarts, %d cache hits, %d dep requests\n",
		stats.Computed, stats.Failed, stats.Restarts, stats.CacheHits, stats.DepRequests)
}

func countRootFailures(res *engine.EvaluationResult) int {
	n := 0
	for _, key := range res.Roots() {
		if res.Err(key) != nil {
			n++
		}
	}
	return n
}

func openStore(ctx context.Context, path string) (*stores.SQLiteStore, error) {
	store, err := stores.NewSQLiteStore(stores.Config{Path: path})
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

// recordResult persists every touched node's outcome and the run's
// aggregate counters.
func recordResult(ctx context.Context, store *stores.SQLiteStore, evaluationID string, res *engine.EvaluationResult) error {
	now := time.Now()
	outcomes := make([]*stores.NodeOutcome, 0, res.Len())
	for _, key := range res.Keys() {
		_, err, ok := res.Get(key)
		if !ok {
			continue
		}
		outcome := &stores.NodeOutcome{
			EvaluationID: evaluationID,
			Kind:         string(key.Kind),
			NodeKey:      key.String(),
			Status:       stores.NodeStatusOK,
			RecordedAt:   now,
		}
		if err != nil {
			outcome.Status = stores.NodeStatusFailed
			if class := graph.ClassOf(err); class != "" {
				s := string(class)
				outcome.ErrorClass = &s
			}
			msg := err.Error()
			outcome.ErrorMessage = &msg
		}
		outcomes = append(outcomes, outcome)
	}
	if err := store.RecordNodeOutcomes(ctx, outcomes); err != nil {
		return err
	}

	status := stores.EvaluationStatusCompleted
	if res.HasErrors() {
		status = stores.EvaluationStatusFailed
	}
	stats := stores.EvaluationStats{
		Computed:    res.Stats.Computed,
		Failed:      res.Stats.Failed,
		Restarts:    res.Stats.Restarts,
		CacheHits:   res.Stats.CacheHits,
		DepRequests: res.Stats.DepRequests,
	}
	return store.FinishEvaluation(ctx, evaluationID, status, stats, nil)
}
