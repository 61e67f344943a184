package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/epicevents/crm/app"
	"github.com/spf13/cobra"
)

func (c *CLI) loginCommand() *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Exchange credentials for an access token",
		Long: "Prints the access token on stdout. Without --password the password is read from the first line of stdin.\n" +
			"Pass the token to other commands with --token or $" + TokenEnv + ".",
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("password") {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return usagef("no password given: pass --password or pipe it on stdin")
				}
				password = strings.TrimRight(line, "\r\n")
			}
			return c.run(cmd, func(ctx context.Context, deps *app.Dependencies) error {
				session, err := deps.Users.Login(ctx, username, password)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), session.Token)
				fmt.Fprintf(cmd.ErrOrStderr(), "Logged in as %s (%s), token expires at %s\n",
					session.User.Username, session.User.Department, session.ExpiresAt.Format(time.RFC3339))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (read from stdin when omitted)")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}
