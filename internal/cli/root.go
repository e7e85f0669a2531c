package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "salience",
	Short: "Memorability scoring for event streams",
	Long:  "Salience scores how memorable each event in a stream is by comparing the cost of describing it against the cost of deriving it from what came before.",
}

// configPath is the --config flag, shared by the commands that load one.
var configPath string

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(exploreCmd)
	rootCmd.AddCommand(infoCmd)
}
