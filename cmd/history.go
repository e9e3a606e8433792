package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"labload/internal/storage"
	"labload/internal/tui/styles"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [id]",
	Short: "List past runs, or print one run as JSON",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := historyPath
		if path == "" {
			var err error
			if path, err = storage.DefaultPath(); err != nil {
				return err
			}
		}

		store, err := storage.Open(path)
		if err != nil {
			return err
		}
		defer store.Close()

		if len(args) == 1 {
			run, err := store.Get(args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(run)
		}

		runs, err := store.List(historyLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println(styles.Subtle.Render("No history found. Run a test to generate data."))
			return nil
		}
		fmt.Println(renderRuns(runs))
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of runs to list (0 lists all)")
}

func renderRuns(runs []storage.Run) string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		id := run.ID
		if len(id) > 8 {
			id = id[:8]
		}
		rows = append(rows, []string{
			run.Timestamp.Local().Format("2006-01-02 15:04:05"),
			id,
			run.Config.Host,
			fmt.Sprintf("%d", run.Config.NumUsers),
			fmt.Sprintf("%d", run.Summary.TotalRequests),
			fmt.Sprintf("%.2f%%", run.Summary.ErrorRate),
			fmt.Sprintf("%.1f", run.Summary.P95Ms),
		})
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(styles.ColorBorder)).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styles.Active.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers("TIME", "ID", "HOST", "USERS", "REQS", "FAIL", "P95 (ms)").
		Rows(rows...).
		String()
}
