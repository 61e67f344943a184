package cli

import (
	"context"

	"github.com/epicevents/crm/app"
	"github.com/epicevents/crm/models"
	"github.com/spf13/cobra"
)

func (c *CLI) clientsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clients",
		Short: "Manage clients",
	}
	cmd.AddCommand(
		c.clientsCreateCommand(),
		c.clientsUpdateCommand(),
		c.clientsListCommand(),
		c.clientsGetCommand(),
	)
	return cmd
}

func (c *CLI) clientsCreateCommand() *cobra.Command {
	var in models.CreateClientInput
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a client; you become its sales contact",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.authed(cmd, func(ctx context.Context, deps *app.Dependencies, token string) error {
				client, err := deps.Clients.Create(ctx, token, in)
				if err != nil {
					return err
				}
				return printJSON(cmd, client)
			})
		},
	}
	cmd.Flags().StringVar(&in.FullName, "full-name", "", "contact name")
	cmd.Flags().StringVar(&in.Email, "email", "", "email address")
	cmd.Flags().StringVar(&in.Phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&in.CompanyName, "company", "", "company name")
	return cmd
}

func (c *CLI) clientsUpdateCommand() *cobra.Command {
	var fullName, email, phone, company string
	cmd := &cobra.Command{
		Use:   "update CLIENT_ID",
		Short: "Update a client",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "client id")
			if err != nil {
				return err
			}
			in := models.UpdateClientInput{
				FullName:    changed(cmd, "full-name", fullName),
				Email:       changed(cmd, "email", email),
				Phone:       changed(cmd, "phone", phone),
				CompanyName: changed(cmd, "company", company),
			}
			return c.authed(cmd, func(ctx context.Context, deps *app.Dependencies, token string) error {
				client, err := deps.Clients.Update(ctx, token, id, in)
				if err != nil {
					return err
				}
				return printJSON(cmd, client)
			})
		},
	}
	cmd.Flags().StringVar(&fullName, "full-name", "", "contact name")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&company, "company", "", "company name")
	return cmd
}

func (c *CLI) clientsListCommand() *cobra.Command {
	var mine bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List clients",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.authed(cmd, func(ctx context.Context, deps *app.Dependencies, token string) error {
				list := deps.Clients.List
				if mine {
					list = deps.Clients.ListMine
				}
				clients, err := list(ctx, token)
				if err != nil {
					return err
				}
				return printJSON(cmd, clients)
			})
		},
	}
	cmd.Flags().BoolVar(&mine, "mine", false, "only clients you are the sales contact of")
	return cmd
}

func (c *CLI) clientsGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get CLIENT_ID",
		Short: "Show one client",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "client id")
			if err != nil {
				return err
			}
			return c.authed(cmd, func(ctx context.Context, deps *app.Dependencies, token string) error {
				client, err := deps.Clients.Get(ctx, token, id)
				if err != nil {
					return err
				}
				return printJSON(cmd, client)
			})
		},
	}
}
