package cmd

import (
	"context"

	"github.com/abhisek/examtaker/internal/app"
	"github.com/abhisek/examtaker/internal/screen"
	examscreen "github.com/abhisek/examtaker/internal/screens/exam"
	"github.com/abhisek/examtaker/internal/screens/history"
	"github.com/abhisek/examtaker/internal/screens/home"
	resultsscreen "github.com/abhisek/examtaker/internal/screens/results"
	"github.com/spf13/cobra"
)

// runApp builds dependencies, identifies the user and launches the TUI on
// the home screen.
func runApp(cmd *cobra.Command) error {
	ctx, d, err := setup(cmd, depsOpts{interactive: true, remote: true})
	if err != nil {
		return err
	}
	defer d.Close()

	user, err := d.currentUser(ctx)
	if err != nil {
		return err
	}
	d.logger.Info("session user", "user", user.Username, "role", user.Role)

	nav := d.navigation(ctx)
	root := home.New(ctx, d.client, *user, home.Navigation{
		OpenExam:    nav.openExam,
		OpenHistory: nav.openHistory,
	})
	return app.Run(root, user.DisplayName())
}

// navigator builds screens that share the command's dependencies.
type navigator struct {
	ctx context.Context
	d   *deps
}

func (d *deps) navigation(ctx context.Context) navigator {
	return navigator{ctx: ctx, d: d}
}

func (n navigator) openExam(examID int) screen.Screen {
	return examscreen.New(n.ctx, n.d.newController(), examID, n.openResult)
}

func (n navigator) openResult(resultID int) screen.Screen {
	return resultsscreen.New(n.ctx, n.d.reports, resultID, n.d.logger)
}

func (n navigator) openHistory() screen.Screen {
	return history.New(n.ctx, n.d.client, n.openResult)
}
