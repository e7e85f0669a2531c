package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mkealey/salience/internal/config"
	"github.com/mkealey/salience/internal/engine"
	"github.com/mkealey/salience/internal/ingest"
	"github.com/mkealey/salience/internal/store"
)

var (
	analyzeTop       int
	analyzeNoPersist bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <glob>",
	Short: "Score a CSV event corpus and print the ranking",
	Long:  "Analyze loads every CSV matched by the glob (doublestar syntax, e.g. 'data/**/*.csv'), scores each event, persists the run, and prints the ranking.",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().IntVarP(&analyzeTop, "top", "n", 0, "Only print the N highest-scoring events (0 = all)")
	analyzeCmd.Flags().BoolVar(&analyzeNoPersist, "no-persist", false, "Skip writing the run to the database")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	summary, eng, err := analyze(cfg, args[0], !analyzeNoPersist)
	if err != nil {
		return err
	}
	if eng.DB != nil {
		defer eng.DB.Close()
	}

	ranked := summary.Ranked()
	if analyzeTop > 0 && analyzeTop < len(ranked) {
		ranked = ranked[:analyzeTop]
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tSCORE\tEVENT\tLABEL\tCD\tCG\tSTATE")
	for i, r := range ranked {
		state := r.State
		if r.FellBack {
			state += "*"
		}
		label := r.Label
		if r.Truth {
			label += " !"
		}
		fmt.Fprintf(w, "%d\t%.3f\t%d\t%s\t%.2f\t%.2f\t%s\n",
			i+1, r.Score, r.EventID, label, r.Cd, r.Cg, state)
	}
	w.Flush()

	fmt.Fprintf(os.Stderr, "\n%d events, %d labels, strategy %s, load %s\n",
		summary.Events, len(summary.Labels), summary.Strategy, summary.LoadID)
	if ev := summary.Evaluation; ev != nil {
		fmt.Fprintf(os.Stderr, "ground truth: %d notable (!), AUC %.3f\n", ev.Positives, ev.AUC)
	}
	return nil
}

// analyze loads the corpus, runs the engine, and optionally persists. The
// serve and explore commands share it.
func analyze(cfg config.Config, glob string, persist bool) (*engine.RunSummary, *engine.Engine, error) {
	policy, err := ingest.Policy(cfg.Ingest.OnError)
	if err != nil {
		return nil, nil, err
	}

	corpus, err := ingest.LoadGlob(glob, policy)
	if err != nil {
		return nil, nil, err
	}

	var db *store.DB
	if persist {
		dbPath := cfg.Database.Path
		if dbPath == "" {
			dbPath, err = store.DefaultDBPath()
			if err != nil {
				return nil, nil, fmt.Errorf("resolve db path: %w", err)
			}
		}
		db, err = store.Open(dbPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open database: %w", err)
		}
	}

	eng := engine.New(db, cfg)
	summary, err := eng.Run(context.Background(), corpus, glob)
	if err != nil {
		if db != nil {
			db.Close()
		}
		return nil, nil, err
	}
	return summary, eng, nil
}
