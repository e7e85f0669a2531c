package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mkealey/salience/internal/config"
	"github.com/mkealey/salience/internal/engine"
	"github.com/mkealey/salience/internal/ingest"
	"github.com/mkealey/salience/internal/server"
	"github.com/mkealey/salience/internal/store"
)

var serveWatch bool

var serveCmd = &cobra.Command{
	Use:   "serve [glob]",
	Short: "Start the HTTP API server",
	Long:  "Serve starts the API over the persisted results. With a glob argument it analyzes that corpus first; with --watch it re-analyzes whenever the matched files change.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "Re-analyze when the corpus files change (requires a glob)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if serveWatch && len(args) == 0 {
		return fmt.Errorf("--watch requires a corpus glob")
	}

	dbPath := cfg.Database.Path
	if dbPath == "" {
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return fmt.Errorf("resolve db path: %w", err)
		}
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	eng := engine.New(db, cfg)

	runOnce := func(glob string) error {
		policy, err := ingest.Policy(cfg.Ingest.OnError)
		if err != nil {
			return err
		}
		corpus, err := ingest.LoadGlob(glob, policy)
		if err != nil {
			return err
		}
		_, err = eng.Run(cmd.Context(), corpus, glob)
		return err
	}

	if len(args) == 1 {
		if err := runOnce(args[0]); err != nil {
			return err
		}
	}

	srv := server.New(db, eng.Graphs, VersionString())
	addr := cfg.ListenAddr()

	httpServer := &http.Server{
		Addr:    addr,
		Handler: srv,
	}

	watchCtx, stopWatch := context.WithCancel(cmd.Context())
	defer stopWatch()
	if serveWatch {
		go func() {
			if err := ingest.Watch(watchCtx, args[0], func() error {
				return runOnce(args[0])
			}); err != nil {
				fmt.Fprintf(os.Stderr, "watch error: %v\n", err)
			}
		}()
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		fmt.Fprintf(os.Stderr, "salience serving on %s\n", addr)
		fmt.Fprintf(os.Stderr, "  db: %s\n", dbPath)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "server error: %v\n", err)
			os.Exit(1)
		}
	}()

	<-done
	fmt.Fprintln(os.Stderr, "\nshutting down...")
	stopWatch()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return httpServer.Shutdown(ctx)
}
