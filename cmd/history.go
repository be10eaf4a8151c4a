package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/abhisek/examtaker/internal/exam"
	"github.com/abhisek/examtaker/internal/screens/history"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List your past results",
	RunE: func(cmd *cobra.Command, args []string) error {
		local, _ := cmd.Flags().GetBool("local")
		limit, _ := cmd.Flags().GetInt("limit")

		ctx, d, err := setup(cmd, depsOpts{remote: !local})
		if err != nil {
			return err
		}
		defer d.Close()

		var list []exam.Result
		if local {
			stored, err := d.store.ReportRepo().List(ctx, limit)
			if err != nil {
				return err
			}
			for _, s := range stored {
				var r exam.Result
				if err := json.Unmarshal(s.Payload, &r); err != nil {
					d.logger.Warn("skip cached result", "result_id", s.ResultID, "error", err)
					continue
				}
				list = append(list, r)
			}
		} else {
			list, err = d.client.ListMyResults(ctx)
			if err != nil {
				return fmt.Errorf("list results: %w", err)
			}
			if limit > 0 && len(list) > limit {
				list = list[:limit]
			}
		}

		if len(list) == 0 {
			fmt.Println("No results found.")
			return nil
		}

		fmt.Printf("%-8s  %-8s  %-10s  %8s  %7s  %s\n", "Result", "Exam", "Date", "Points", "Score", "Passed")
		fmt.Println(strings.Repeat("─", 60))
		for _, r := range list {
			passed := "✓"
			if !r.Passed {
				passed = "✗"
			}
			fmt.Printf("%-8d  %-8d  %-10s  %8.1f  %6.1f%%  %s\n",
				r.ID, r.ExamID, history.DateOf(r), r.TotalPoints, r.PercentageScore, passed)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().Bool("local", false, "List results cached on this machine instead of calling the API")
	historyCmd.Flags().Int("limit", 0, "Maximum number of results (0 = all)")
}
