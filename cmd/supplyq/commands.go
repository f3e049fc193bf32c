package main

import (
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/supplymap/supplyq"
)

const defaultMaxTasks = 10

func newScheduleCmd(name, short string, g *globalFlags) *cobra.Command {
	var maxTasks int
	cmd := &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			// Fail before enqueueing anything when the LLM is not configured.
			exec, err := a.executor()
			if err != nil {
				return err
			}
			ids, err := supplyq.NewProducer(a.client, a.log).Schedule(cmd.Context(), name)
			if err != nil {
				return err
			}
			pterm.Success.WithWriter(cmd.OutOrStdout()).Printfln("Scheduled %d %s tasks", len(ids), name)
			return runBatch(cmd, exec, maxTasks, "")
		},
	}
	cmd.Flags().IntVar(&maxTasks, "max-tasks", defaultMaxTasks, "maximum tasks to process after scheduling")
	return cmd
}

func newProcessCmd(g *globalFlags) *cobra.Command {
	var (
		maxTasks  int
		agentType string
	)
	cmd := &cobra.Command{
		Use:   "process",
		Short: "Run pending tasks in priority order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			exec, err := a.executor()
			if err != nil {
				return err
			}
			return runBatch(cmd, exec, maxTasks, agentType)
		},
	}
	cmd.Flags().IntVar(&maxTasks, "max-tasks", defaultMaxTasks, "maximum tasks to process")
	cmd.Flags().StringVar(&agentType, "agent-type", "", "only process tasks of this agent type")
	return cmd
}

func runBatch(cmd *cobra.Command, exec *supplyq.Executor, maxTasks int, agentType string) error {
	results, err := exec.ProcessQueue(cmd.Context(), maxTasks, agentType)
	renderResults(cmd.OutOrStdout(), results)
	return err
}

func newStatusCmd(g *globalFlags) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show task counts, catalogue coverage and the review backlog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			rep, err := supplyq.NewReporter(a.store, a.assets).Report(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				out, err := sonic.ConfigStd.MarshalIndent(rep, "", "  ")
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
				return err
			}
			renderReport(cmd.OutOrStdout(), rep)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

func newListCmd(g *globalFlags) *cobra.Command {
	var (
		status    string
		agentType string
		limit     int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			var st supplyq.Status
			if status != "" {
				if st, err = supplyq.ParseStatus(status); err != nil {
					return err
				}
			}
			var filter supplyq.TaskFilter
			if agentType != "" {
				filter = func(t *supplyq.Task) bool { return t.AgentType == agentType }
			}
			tasks, err := a.client.ListTasks(cmd.Context(), st, filter)
			if err != nil {
				return err
			}
			if limit > 0 && len(tasks) > limit {
				tasks = tasks[:limit]
			}
			renderTasks(cmd.OutOrStdout(), tasks)
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Pending, In Progress, Completed or Failed")
	cmd.Flags().StringVar(&agentType, "agent-type", "", "only tasks of this agent type")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum rows (0 for all)")
	return cmd
}

func newReviewCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "review",
		Short: "List completed tasks awaiting human review",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			items, err := supplyq.NewReviewGate(a.store).ListReviewQueue(cmd.Context())
			if err != nil {
				return err
			}
			renderReviewQueue(cmd.OutOrStdout(), items)
			return nil
		},
	}
}

func newAckCmd(g *globalFlags) *cobra.Command {
	var notes string
	cmd := &cobra.Command{
		Use:   "ack <task-id>",
		Short: "Mark a task in the review queue as reviewed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.client.MarkReviewed(cmd.Context(), args[0], notes); err != nil {
				return err
			}
			pterm.Success.WithWriter(cmd.OutOrStdout()).Printfln("Reviewed %s", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&notes, "notes", "", "review notes")
	return cmd
}

func newRetryCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <task-id>",
		Short: "Put a failed task back in the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.client.RetryFailed(cmd.Context(), args[0]); err != nil {
				return err
			}
			pterm.Success.WithWriter(cmd.OutOrStdout()).Printfln("Requeued %s", args[0])
			return nil
		},
	}
}

func newInitDBCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "init-db",
		Short: "Create the task and asset tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			pterm.Success.WithWriter(cmd.OutOrStdout()).Printfln("Database ready at %s", a.cfg.Database.Path)
			return nil
		},
	}
}

func newServeCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Process the queue periodically until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			exec, err := a.executor()
			if err != nil {
				return err
			}

			sc := a.cfg.Server
			srv := supplyq.NewServer(exec, supplyq.ServerConfig{
				Interval:  sc.Interval,
				MaxTasks:  sc.MaxTasks,
				AgentType: sc.AgentType,
				Producer:  supplyq.NewProducer(a.client, a.log),
				Schedules: sc.Schedules,
				Logger:    a.log,
			})
			srv.Start()
			<-cmd.Context().Done()
			srv.Stop()
			return nil
		},
	}
}
