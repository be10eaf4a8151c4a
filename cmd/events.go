package cmd

import (
	"fmt"
	"strings"

	"github.com/abhisek/examtaker/internal/store"
	"github.com/spf13/cobra"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect the local audit log",
}

var eventsAPICmd = &cobra.Command{
	Use:   "api",
	Short: "List recent API calls",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		operation, _ := cmd.Flags().GetString("operation")

		ctx, d, err := setup(cmd, depsOpts{})
		if err != nil {
			return err
		}
		defer d.Close()

		events, err := d.store.EventRepo().QueryAPICalls(ctx, store.QueryOpts{Limit: limit})
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}

		if len(events) == 0 {
			fmt.Println("No API calls recorded.")
			return nil
		}

		fmt.Printf("%-6s  %-19s  %-14s  %-6s  %-36s  %-6s  %-3s  %s\n",
			"Seq", "Timestamp", "Operation", "Method", "Path", "Status", "Try", "Ms")
		fmt.Println(strings.Repeat("─", 110))

		for _, e := range events {
			if operation != "" && e.Operation != operation {
				continue
			}
			path := e.Path
			if len(path) > 36 {
				path = path[:36]
			}
			status := fmt.Sprintf("%d", e.StatusCode)
			if e.ErrorMessage != "" {
				status = "ERR"
			}
			fmt.Printf("%-6d  %-19s  %-14s  %-6s  %-36s  %-6s  %-3d  %d\n",
				e.Sequence,
				e.Timestamp.Local().Format("2006-01-02 15:04:05"),
				e.Operation,
				e.Method,
				path,
				status,
				e.Attempt,
				e.LatencyMs,
			)
		}
		return nil
	},
}

var eventsSessionCmd = &cobra.Command{
	Use:   "session",
	Short: "List exam session lifecycle events",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		sessionID, _ := cmd.Flags().GetString("session")

		ctx, d, err := setup(cmd, depsOpts{})
		if err != nil {
			return err
		}
		defer d.Close()

		events, err := d.store.EventRepo().QuerySessionEvents(ctx, store.QueryOpts{
			Limit:     limit,
			SessionID: sessionID,
		})
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}

		if len(events) == 0 {
			fmt.Println("No session events recorded.")
			return nil
		}

		fmt.Printf("%-6s  %-19s  %-8s  %-6s  %-3s  %-10s  %-8s  %s\n",
			"Seq", "Timestamp", "Session", "Exam", "Gen", "Kind", "Trigger", "Detail")
		fmt.Println(strings.Repeat("─", 100))

		for _, e := range events {
			sid := e.SessionID
			if len(sid) > 8 {
				sid = sid[:8]
			}
			fmt.Printf("%-6d  %-19s  %-8s  %-6d  %-3d  %-10s  %-8s  %s\n",
				e.Sequence,
				e.Timestamp.Local().Format("2006-01-02 15:04:05"),
				sid,
				e.ExamID,
				e.Generation,
				e.Kind,
				e.Trigger,
				e.Detail,
			)
		}
		return nil
	},
}

func init() {
	eventsAPICmd.Flags().Int("limit", 20, "Number of events to show")
	eventsAPICmd.Flags().String("operation", "", "Filter by operation (e.g. submit_exam, get_report)")
	eventsSessionCmd.Flags().Int("limit", 50, "Number of events to show")
	eventsSessionCmd.Flags().String("session", "", "Filter by session ID")

	eventsCmd.AddCommand(eventsAPICmd)
	eventsCmd.AddCommand(eventsSessionCmd)
}
