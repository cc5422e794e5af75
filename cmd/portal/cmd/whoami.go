package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/voxbridge/customer-portal/internal/session"
)

func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "whoami",
		SilenceUsage: true,
		Short:        "Print the logged-in account and token expiry",
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			source := "session file " + a.store.Path()
			token := a.cfg.Session.Token
			if token != "" {
				source = "configuration"
			} else {
				st, err := a.store.Load()
				if err != nil {
					return err
				}
				token = st.Token
			}

			claims, err := session.Inspect(token)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if globals.JSON {
				return printJSON(out, struct {
					session.Claims
					Source  string `json:"source"`
					Expired bool   `json:"expired"`
				}{claims, source, claims.Expired(time.Now())})
			}

			fmt.Fprintf(out, "Email:   %s\n", orDash(claims.Email))
			fmt.Fprintf(out, "Subject: %s\n", orDash(claims.Subject))
			switch {
			case claims.ExpiresAt.IsZero():
				fmt.Fprintln(out, "Expires: never")
			case claims.Expired(time.Now()):
				fmt.Fprintf(out, "Expires: %s (expired)\n", claims.ExpiresAt.In(a.display).Format(time.RFC1123))
			default:
				fmt.Fprintf(out, "Expires: %s\n", claims.ExpiresAt.In(a.display).Format(time.RFC1123))
			}
			fmt.Fprintf(out, "Source:  %s\n", source)
			return nil
		},
	}
}
