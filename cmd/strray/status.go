package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/htafolla/StringRay-sub003/internal/config"
	"github.com/htafolla/StringRay-sub003/internal/state"
	"github.com/htafolla/StringRay-sub003/pkg/models"
)

var (
	statusLimit int
	statusWatch bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show delegation history and metrics",
	Long: `Display recent delegations and aggregate metrics.

Shows:
  - Recent delegations with strategy, agents, and outcome
  - Success and failure counts
  - Average complexity and duration per delegation

With --watch, the display refreshes whenever the history database
changes.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().IntVar(&statusLimit, "limit", 10, "Number of recent delegations to show")
	statusCmd.Flags().BoolVar(&statusWatch, "watch", false, "Re-render when the history database changes")
}

var (
	statusHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#4ECDC4"))
	statusLabelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	statusOKStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#96E6A1"))
	statusFailStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
)

func runStatus(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	// Try the project database first, then global.
	dbPath := state.ProjectDBPath(cwd)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		dbPath = state.GlobalDBPath()
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Println("No delegation history. Run 'strray delegate <operation>' to start.")
		return nil
	}

	db, err := state.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	if err := renderStatus(db, statusLimit); err != nil {
		return err
	}
	if !statusWatch {
		return nil
	}

	refresh := func() {
		fmt.Println()
		if err := renderStatus(db, statusLimit); err != nil {
			fmt.Fprintf(os.Stderr, "refresh: %v\n", err)
		}
	}
	// In WAL mode writes land in the -wal sibling before the main file.
	for _, p := range []string{dbPath, dbPath + "-wal"} {
		stop, err := config.Watch(p, refresh)
		if err != nil {
			return fmt.Errorf("watch %s: %w", p, err)
		}
		defer stop()
	}
	<-cmd.Context().Done()
	return nil
}

// renderStatus prints the metrics summary and recent delegations.
func renderStatus(db *state.DB, limit int) error {
	metrics, err := db.MetricsSummary()
	if err != nil {
		return fmt.Errorf("load metrics: %w", err)
	}
	displayMetrics(metrics)

	recent, err := db.ListRecent(limit)
	if err != nil {
		return fmt.Errorf("list delegations: %w", err)
	}
	fmt.Println()
	displayRecent(recent)
	return nil
}

func displayMetrics(m models.DelegationMetrics) {
	fmt.Println(statusHeaderStyle.Render("Delegation metrics"))
	fmt.Printf("  %s %d (%d ok, %d failed)\n",
		statusLabelStyle.Render("total:"),
		m.TotalDelegations, m.SuccessfulDelegations, m.FailedDelegations)
	fmt.Printf("  %s %.1f\n", statusLabelStyle.Render("avg complexity:"), m.AverageComplexity)
	fmt.Printf("  %s %s\n", statusLabelStyle.Render("avg duration:"), m.AverageDuration.Round(time.Millisecond))
	if len(m.StrategyUsage) > 0 {
		var parts []string
		for _, s := range []models.Strategy{models.StrategySingle, models.StrategyMulti, models.StrategyOrchestrated} {
			if n := m.StrategyUsage[s]; n > 0 {
				parts = append(parts, fmt.Sprintf("%s=%d", s, n))
			}
		}
		fmt.Printf("  %s %s\n", statusLabelStyle.Render("strategies:"), strings.Join(parts, " "))
	}
}

func displayRecent(recs []models.DelegationRecord) {
	if len(recs) == 0 {
		fmt.Println("No delegations recorded yet.")
		return
	}

	fmt.Println(statusHeaderStyle.Render("Recent delegations"))
	for _, rec := range recs {
		mark := statusOKStyle.Render("✓")
		if !rec.Success {
			mark = statusFailStyle.Render("✗")
		}
		elapsed := formatAge(time.Since(rec.CreatedAt))
		fmt.Printf("  %s %-16s %-16s %s  %s %s\n",
			mark, rec.Operation, rec.Strategy,
			statusLabelStyle.Render(strings.Join(rec.Agents, ",")),
			rec.Duration.Round(time.Millisecond),
			statusLabelStyle.Render(elapsed+" ago"))
	}
}

// formatAge formats a duration in a compact human-readable way.
func formatAge(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		h := int(d.Hours())
		m := int(d.Minutes()) % 60
		if m > 0 {
			return fmt.Sprintf("%dh%dm", h, m)
		}
		return fmt.Sprintf("%dh", h)
	}
	return fmt.Sprintf("%dd", int(d.Hours())/24)
}
