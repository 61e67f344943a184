package cli

import (
	"context"
	"fmt"

	"github.com/epicevents/crm/app"
	"github.com/epicevents/crm/models"
	"github.com/spf13/cobra"
)

// changed returns &v when the flag was given on the command line
func changed[T any](cmd *cobra.Command, name string, v T) *T {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return &v
}

func bindUserFlags(cmd *cobra.Command, in *models.CreateUserInput) {
	cmd.Flags().StringVar(&in.Username, "username", "", "login name")
	cmd.Flags().StringVar(&in.Password, "password", "", "password, at least 8 characters")
	cmd.Flags().StringVar(&in.FullName, "full-name", "", "full name")
	cmd.Flags().StringVar(&in.Email, "email", "", "email address")
	cmd.Flags().StringVar(&in.Phone, "phone", "", "phone number")
}

func (c *CLI) usersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage collaborators",
	}
	cmd.AddCommand(
		c.usersBootstrapCommand(),
		c.usersCreateCommand(),
		c.usersUpdateCommand(),
		c.usersDeleteCommand(),
		c.usersListCommand(),
		c.usersGetCommand(),
		c.whoamiCommand(),
	)
	return cmd
}

func (c *CLI) usersBootstrapCommand() *cobra.Command {
	var in models.CreateUserInput
	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Create the first Gestion collaborator of an empty database",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, deps *app.Dependencies) error {
				user, err := deps.Users.Bootstrap(ctx, in)
				if err != nil {
					return err
				}
				return printJSON(cmd, user)
			})
		},
	}
	bindUserFlags(cmd, &in)
	return cmd
}

func (c *CLI) usersCreateCommand() *cobra.Command {
	var in models.CreateUserInput
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a collaborator",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.authed(cmd, func(ctx context.Context, deps *app.Dependencies, token string) error {
				user, err := deps.Users.Create(ctx, token, in)
				if err != nil {
					return err
				}
				return printJSON(cmd, user)
			})
		},
	}
	bindUserFlags(cmd, &in)
	cmd.Flags().StringVar(&in.Department, "department", "", "Gestion, Commercial or Support")
	return cmd
}

func (c *CLI) usersUpdateCommand() *cobra.Command {
	var fullName, email, phone, department, password string
	cmd := &cobra.Command{
		Use:   "update USER_ID",
		Short: "Change a collaborator's profile, department or password",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "user id")
			if err != nil {
				return err
			}
			in := models.UpdateUserInput{
				FullName:   changed(cmd, "full-name", fullName),
				Email:      changed(cmd, "email", email),
				Phone:      changed(cmd, "phone", phone),
				Department: changed(cmd, "department", department),
				Password:   changed(cmd, "password", password),
			}
			return c.authed(cmd, func(ctx context.Context, deps *app.Dependencies, token string) error {
				user, err := deps.Users.Update(ctx, token, id, in)
				if err != nil {
					return err
				}
				return printJSON(cmd, user)
			})
		},
	}
	cmd.Flags().StringVar(&fullName, "full-name", "", "full name")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&department, "department", "", "Gestion, Commercial or Support")
	cmd.Flags().StringVar(&password, "password", "", "new password")
	return cmd
}

func (c *CLI) usersDeleteCommand() *cobra.Command {
	var cascade bool
	cmd := &cobra.Command{
		Use:   "delete USER_ID",
		Short: "Delete a collaborator",
		Long:  "A collaborator still responsible for clients, contracts or events is only deleted with --cascade.",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "user id")
			if err != nil {
				return err
			}
			return c.authed(cmd, func(ctx context.Context, deps *app.Dependencies, token string) error {
				if err := deps.Users.Delete(ctx, token, id, cascade); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "user %d deleted\n", id)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&cascade, "cascade", false, "also delete the user's clients and contracts and unassign their events")
	return cmd
}

func (c *CLI) usersListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List collaborators",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.authed(cmd, func(ctx context.Context, deps *app.Dependencies, token string) error {
				users, err := deps.Users.List(ctx, token)
				if err != nil {
					return err
				}
				return printJSON(cmd, users)
			})
		},
	}
}

func (c *CLI) usersGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get USER_ID",
		Short: "Show one collaborator",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "user id")
			if err != nil {
				return err
			}
			return c.authed(cmd, func(ctx context.Context, deps *app.Dependencies, token string) error {
				user, err := deps.Users.Get(ctx, token, id)
				if err != nil {
					return err
				}
				return printJSON(cmd, user)
			})
		},
	}
}

func (c *CLI) whoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the collaborator the token belongs to",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.authed(cmd, func(ctx context.Context, deps *app.Dependencies, token string) error {
				user, err := deps.Users.Me(ctx, token)
				if err != nil {
					return err
				}
				return printJSON(cmd, user)
			})
		},
	}
}
