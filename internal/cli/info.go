package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mkealey/salience/internal/config"
	"github.com/mkealey/salience/internal/store"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the database location and the latest recorded run",
	RunE:  runInfo,
}

func runInfo(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	dbPath := cfg.Database.Path
	if dbPath == "" {
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return fmt.Errorf("resolve db path: %w", err)
		}
	}

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Printf("db: %s (not created yet; run 'salience analyze' first)\n", dbPath)
		return nil
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	version, err := db.SchemaVersion()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "db\t%s\n", dbPath)
	fmt.Fprintf(w, "schema\tv%d\n", version)

	load, err := db.LatestLoad()
	if err != nil {
		return err
	}
	if load == nil {
		fmt.Fprintf(w, "runs\tnone recorded\n")
	} else {
		fmt.Fprintf(w, "latest load\t%s\n", load.LoadID)
		fmt.Fprintf(w, "source\t%s\n", load.Source)
		fmt.Fprintf(w, "events\t%d\n", load.EventCount)
	}
	return w.Flush()
}
