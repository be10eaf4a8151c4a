package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/abhisek/examtaker/internal/exam"
	"github.com/abhisek/examtaker/internal/report"
	"github.com/abhisek/examtaker/internal/results"
	"github.com/abhisek/examtaker/internal/store"
	"github.com/spf13/cobra"
)

var resultsCmd = &cobra.Command{
	Use:   "results <result-id>",
	Short: "Print a graded result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resultID, err := parseID(args[0])
		if err != nil {
			return err
		}
		output, _ := cmd.Flags().GetString("output")
		format, err := report.ParseFormat(output)
		if err != nil {
			return err
		}
		offline, _ := cmd.Flags().GetBool("offline")
		questionID, _ := cmd.Flags().GetInt("question")

		ctx, d, err := setup(cmd, depsOpts{remote: !offline})
		if err != nil {
			return err
		}
		defer d.Close()

		var res *exam.Result
		if offline {
			r, fetchedAt, err := report.Cached(ctx, d.store.ReportRepo(), resultID)
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("result %d has not been fetched on this machine", resultID)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "Cached copy from %s\n", fetchedAt.Local().Format("2006-01-02 15:04:05"))
			res = r
		} else {
			r, err := d.reports.FetchResult(ctx, resultID)
			if err != nil {
				return fmt.Errorf("fetch result %d: %w", resultID, err)
			}
			res = r
		}

		view := results.NewView(res, d.logger)
		if questionID == 0 {
			return report.Write(os.Stdout, view, format)
		}
		err = report.WriteQuestion(os.Stdout, view, questionID, format)
		if errors.Is(err, report.ErrQuestionNotFound) && !res.Detailed {
			return fmt.Errorf("result %d has no per-question detail: %w", resultID, err)
		}
		return err
	},
}

func init() {
	resultsCmd.Flags().StringP("output", "o", string(report.FormatText), "Output format: text, json or yaml")
	resultsCmd.Flags().Bool("offline", false, "Print the locally cached copy without calling the API")
	resultsCmd.Flags().Int("question", 0, "Print only the drill-down of this question ID")
}
