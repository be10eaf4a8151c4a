package cmd

import (
	"fmt"
	"strconv"

	"github.com/abhisek/examtaker/internal/app"
	"github.com/abhisek/examtaker/internal/auth"
	"github.com/spf13/cobra"
)

var takeCmd = &cobra.Command{
	Use:   "take <exam-id>",
	Short: "Start a session on one exam",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		examID, err := parseID(args[0])
		if err != nil {
			return err
		}

		ctx, d, err := setup(cmd, depsOpts{interactive: true, remote: true})
		if err != nil {
			return err
		}
		defer d.Close()

		user, err := d.currentUser(ctx)
		if err != nil {
			return err
		}
		if err := user.Role.Require(auth.CapTakeExam); err != nil {
			return err
		}

		return app.Run(d.navigation(ctx).openExam(examID), user.DisplayName())
	},
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid ID %q", s)
	}
	return id, nil
}
