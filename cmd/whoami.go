package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/abhisek/examtaker/internal/auth"
	"github.com/spf13/cobra"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the identity behind the configured credential",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, d, err := setup(cmd, depsOpts{remote: true})
		if err != nil {
			return err
		}
		defer d.Close()

		user, err := d.currentUser(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("User:      %s (%s)\n", user.DisplayName(), user.Username)
		if user.Email != "" {
			fmt.Printf("Email:     %s\n", user.Email)
		}
		fmt.Printf("Role:      %s\n", user.Role)

		var caps []string
		for _, c := range []auth.Capability{auth.CapTakeExam, auth.CapViewOwnResults, auth.CapViewAllResults} {
			if user.Role.Can(c) {
				caps = append(caps, c.String())
			}
		}
		if len(caps) == 0 {
			caps = []string{"none"}
		}
		fmt.Printf("Can:       %s\n", strings.Join(caps, ", "))

		cred, _ := auth.CredentialFrom(ctx)
		claims, err := cred.Inspect()
		if err != nil {
			return err
		}
		if !claims.ExpiresAt.IsZero() {
			fmt.Printf("Expires:   %s (in %s)\n",
				claims.ExpiresAt.Local().Format("2006-01-02 15:04:05"),
				time.Until(claims.ExpiresAt).Round(time.Minute))
		}
		return nil
	},
}
