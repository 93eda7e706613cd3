package main

import (
	"fmt"
	"os"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/htafolla/StringRay-sub003/internal/agent"
	"github.com/htafolla/StringRay-sub003/internal/complexity"
	"github.com/htafolla/StringRay-sub003/internal/config"
	"github.com/htafolla/StringRay-sub003/internal/delegate"
	"github.com/htafolla/StringRay-sub003/internal/registry"
	"github.com/htafolla/StringRay-sub003/internal/scheduler"
	"github.com/htafolla/StringRay-sub003/internal/state"
	"github.com/htafolla/StringRay-sub003/internal/store"
	"github.com/htafolla/StringRay-sub003/pkg/models"
)

var (
	delegateFiles        []string
	delegateChangeVolume int
	delegateDeps         int
	delegateRisk         string
	delegateSession      string
	delegatePriority     string
	delegateDryRun       bool
	delegateDebug        bool
)

var delegateCmd = &cobra.Command{
	Use:   "delegate <operation> [description]",
	Short: "Delegate a unit of work to agents",
	Long: `Analyze a request, plan a delegation, and execute it.

The operation is a short tag (e.g. "refactor", "security-review");
the optional description adds free text the agent selection keys on.
Context flags feed the complexity analysis. With --dry-run, only the
plan is printed and nothing executes.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runDelegate,
}

func init() {
	delegateCmd.Flags().StringSliceVar(&delegateFiles, "files", nil, "Affected file paths")
	delegateCmd.Flags().IntVar(&delegateChangeVolume, "change-volume", 0, "Estimated changed line count")
	delegateCmd.Flags().IntVar(&delegateDeps, "deps", 0, "Number of affected dependencies")
	delegateCmd.Flags().StringVar(&delegateRisk, "risk", "low", "Risk level (low|medium|high|critical)")
	delegateCmd.Flags().StringVar(&delegateSession, "session", "", "Session ID to group history under")
	delegateCmd.Flags().StringVar(&delegatePriority, "priority", "", "Priority hint")
	delegateCmd.Flags().BoolVar(&delegateDryRun, "dry-run", false, "Print the plan without executing")
	delegateCmd.Flags().BoolVar(&delegateDebug, "debug", false, "Write scheduler debug logs to .strray/logs")
}

func runDelegate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	req := models.DelegationRequest{
		Operation: args[0],
		SessionID: delegateSession,
		Priority:  delegatePriority,
		Context: models.RequestContext{
			Files:        delegateFiles,
			ChangeVolume: delegateChangeVolume,
			Dependencies: delegateDeps,
			RiskLevel:    models.RiskLevel(delegateRisk),
		},
	}
	if len(args) > 1 {
		req.Description = args[1]
	}

	kv := store.NewCacheStore()
	reg, err := buildRegistry(cfg, kv)
	if err != nil {
		return err
	}

	if delegateDryRun {
		// Analysis only; the nil executor is never invoked.
		d := delegate.New(nil, delegate.WithRegistry(reg), delegate.WithAnalyzer(analyzerFromConfig(cfg)))
		printPlan(d.Analyze(req))
		return nil
	}

	if delegateDebug {
		if cwd, err := os.Getwd(); err == nil {
			lg := scheduler.NewDebugLoggerForProject(cwd)
			defer lg.Close()
			scheduler.SetPackageLogger(lg)
		}
	}

	exec, err := agent.NewClaudeExecutor(agent.ClientConfig{
		Model:         anthropic.Model(cfg.Anthropic.Model),
		APIKey:        cfg.Anthropic.APIKey,
		UseAWSBedrock: cfg.Anthropic.UseAWSBedrock,
		AWSRegion:     cfg.Anthropic.AWSRegion,
		AWSProfile:    cfg.Anthropic.AWSProfile,
	})
	if err != nil {
		return err
	}

	sched := scheduler.New(reg, exec, scheduler.WithConfig(scheduler.Config{
		MaxConcurrentTasks: cfg.Scheduler.MaxConcurrentTasks,
		TaskTimeout:        cfg.Scheduler.TaskTimeout,
		ConflictStrategy:   cfg.Scheduler.ResolveConflictStrategy(),
		MaxRetries:         cfg.Scheduler.MaxRetries,
		RetryBackoff:       cfg.Scheduler.RetryBackoff,
	}))
	kv.Set(store.OrchestratorKey, sched)

	opts := []delegate.Option{
		delegate.WithRegistry(reg),
		delegate.WithAnalyzer(analyzerFromConfig(cfg)),
	}
	if coord := delegate.DiscoverCoordinator(kv); coord != nil {
		opts = append(opts, delegate.WithCoordinator(coord))
	}
	if db := openHistory(); db != nil {
		defer db.Close()
		opts = append(opts, delegate.WithRecorder(db))
	}
	d := delegate.New(exec, opts...)

	out, err := d.Delegate(cmd.Context(), req)
	if err != nil {
		return err
	}

	printPlan(out.Plan)
	printOutcome(out)
	return nil
}

// analyzerFromConfig builds an analyzer with any configured threshold
// overrides, keeping defaults for unset values.
func analyzerFromConfig(cfg *config.Config) *complexity.Analyzer {
	t := complexity.DefaultThresholds()
	if cfg.Complexity.ModerateThreshold > 0 {
		t.Moderate = cfg.Complexity.ModerateThreshold
	}
	if cfg.Complexity.ComplexThreshold > 0 {
		t.Complex = cfg.Complexity.ComplexThreshold
	}
	if cfg.Complexity.EnterpriseThreshold > 0 {
		t.Enterprise = cfg.Complexity.EnterpriseThreshold
	}
	return complexity.NewAnalyzerWithConfig(complexity.DefaultWeights(), t)
}

// buildRegistry loads the configured roster, or the built-in one,
// mirroring records into the shared store.
func buildRegistry(cfg *config.Config, kv store.KV) (*registry.Registry, error) {
	opts := []registry.Option{registry.WithStore(kv)}
	if cfg.Registry.Fallback != "" {
		opts = append(opts, registry.WithFallback(cfg.Registry.Fallback))
	}
	if cfg.Registry.RosterPath != "" {
		return registry.LoadRoster(cfg.Registry.RosterPath, opts...)
	}
	return registry.New(opts...), nil
}

// openHistory opens the project-local history database, best effort.
func openHistory() *state.DB {
	cwd, err := os.Getwd()
	if err != nil {
		return nil
	}
	db, err := state.OpenProject(cwd)
	if err != nil {
		return nil
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil
	}
	return db
}

func printPlan(plan *models.DelegationPlan) {
	bold := color.New(color.Bold)
	bold.Println("Delegation plan")
	fmt.Printf("  strategy:    %s\n", plan.Strategy)
	fmt.Printf("  complexity:  %s (score %.1f)\n", plan.Complexity.Level, plan.Complexity.Score)
	fmt.Printf("  agents:      %v\n", plan.Agents)
	fmt.Printf("  conflicts:   %s\n", plan.ConflictResolution)
	fmt.Printf("  est. time:   %s\n", plan.EstimatedDuration)
}

func printOutcome(out *delegate.Outcome) {
	fmt.Println()
	if out.Success {
		color.Green("✓ delegation succeeded (%d/%d agents, %s)",
			out.Succeeded, out.Succeeded+out.Failed, out.Duration.Round(time.Millisecond))
	} else {
		color.Red("✗ delegation failed (%d/%d agents, %s)",
			out.Succeeded, out.Succeeded+out.Failed, out.Duration.Round(time.Millisecond))
	}
	if out.Consolidated {
		fmt.Println("  (consolidated by orchestrator)")
	}
	for _, slot := range out.Agents {
		mark := color.GreenString("✓")
		if !slot.Success {
			mark = color.RedString("✗")
		}
		fmt.Printf("  %s %s\n", mark, slot.Agent)
	}
	if out.Output != "" {
		fmt.Println()
		fmt.Println(out.Output)
	}
}
