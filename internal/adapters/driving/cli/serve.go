package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mediflow-labs/mediflow/internal/adapters/driving/watch"
	"github.com/mediflow-labs/mediflow/internal/agents"
	"github.com/mediflow-labs/mediflow/internal/logger"
)

var serveWatchDir string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run all agent workers",
	Long: `Starts the worker pools for every agent queue and blocks until
interrupted. With a watch directory configured, dropped documents are
queued for intake automatically.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveWatchDir, "watch", "", "directory to watch for intake documents (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	runner := agents.NewRunner(a.queue)
	a.handlers.Bind(runner, agents.Pools{
		Intake:      agents.PoolConfig(a.cfg.Agents.Intake),
		RAG:         agents.PoolConfig(a.cfg.Agents.RAG),
		Diagnostics: agents.PoolConfig(a.cfg.Agents.Diagnostics),
		Billing:     agents.PoolConfig(a.cfg.Agents.Billing),
		Security:    agents.PoolConfig(a.cfg.Agents.Security),
	})
	runner.Start(ctx)

	watchDir := serveWatchDir
	if watchDir == "" {
		watchDir = a.cfg.Watch.Dir
	}
	if watchDir != "" {
		watcher, err := watch.NewWatcher(watchDir, a.queue)
		if err != nil {
			runner.Stop()
			return err
		}
		watcher.Start(ctx)
		defer watcher.Stop() //nolint:errcheck
	}

	cmd.Printf("mediflow agents running (queue backend: %s). Ctrl-C to stop.\n", a.cfg.Queue.Backend)
	<-ctx.Done()

	logger.Info("shutting down, draining in-flight jobs")
	runner.Stop()
	return nil
}
