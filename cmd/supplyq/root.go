package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/supplymap/supplyq/internal/config"
)

type globalFlags struct {
	configPath string
	dbPath     string
	apiKey     string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:   "supplyq",
		Short: "Supply-chain agent task orchestrator",
		Long: `supplyq queues, runs and reviews the data-collection agents behind the
refined products supply chain map.

Examples:
  supplyq daily                      enqueue the daily tasks and process the queue
  supplyq process --max-tasks 5      run up to five pending tasks
  supplyq status                     show task counts and catalogue coverage
  supplyq review                     list completed tasks awaiting review
  supplyq ack <task-id> --notes ok   mark a task as reviewed`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "config file (default ./supplyq.yaml if present)")
	pf.StringVar(&g.dbPath, "db", "", "SQLite database path (overrides database.path)")
	pf.StringVar(&g.apiKey, "api-key", "", "LLM API key (overrides llm.api_key)")
	pf.StringVar(&g.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		newScheduleCmd("daily", "Enqueue the daily tasks, then process the queue", g),
		newScheduleCmd("weekly", "Enqueue the weekly tasks, then process the queue", g),
		newScheduleCmd("monthly", "Enqueue the monthly tasks, then process the queue", g),
		newProcessCmd(g),
		newStatusCmd(g),
		newListCmd(g),
		newReviewCmd(g),
		newAckCmd(g),
		newRetryCmd(g),
		newInitDBCmd(g),
		newServeCmd(g),
	)
	return root
}

// load reads configuration and applies the global flag overrides.
func (g *globalFlags) load() (*config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, err
	}
	if g.dbPath != "" {
		cfg.Database.Path = g.dbPath
	}
	if g.apiKey != "" {
		cfg.LLM.APIKey = g.apiKey
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	return cfg, nil
}

// open loads configuration and wires the app. The caller closes it.
func (g *globalFlags) open(ctx context.Context) (*app, error) {
	cfg, err := g.load()
	if err != nil {
		return nil, err
	}
	return newApp(ctx, cfg)
}
