package cli

import (
	"github.com/spf13/cobra"

	"github.com/mkealey/salience/internal/config"
	"github.com/mkealey/salience/internal/explore"
)

var exploreNoPersist bool

var exploreCmd = &cobra.Command{
	Use:   "explore <glob>",
	Short: "Analyze a corpus and browse the ranking interactively",
	Args:  cobra.ExactArgs(1),
	RunE:  runExplore,
}

func init() {
	exploreCmd.Flags().BoolVar(&exploreNoPersist, "no-persist", false, "Skip writing the run to the database")
}

func runExplore(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	summary, eng, err := analyze(cfg, args[0], !exploreNoPersist)
	if err != nil {
		return err
	}
	if eng.DB != nil {
		defer eng.DB.Close()
	}

	return explore.Run(summary)
}
