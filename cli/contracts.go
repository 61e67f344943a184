package cli

import (
	"context"
	"fmt"

	"github.com/epicevents/crm/app"
	"github.com/epicevents/crm/models"
	"github.com/epicevents/crm/services/contracts"
	"github.com/spf13/cobra"
)

// moneyFlag parses a decimal amount flag; nil when the flag was not given
func moneyFlag(cmd *cobra.Command, name, raw string) (*models.Money, error) {
	if !cmd.Flags().Changed(name) {
		return nil, nil
	}
	m, err := models.ParseMoney(raw)
	if err != nil {
		return nil, usagef("invalid --%s: %v", name, err)
	}
	return &m, nil
}

func (c *CLI) contractsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contracts",
		Short: "Manage contracts",
	}
	cmd.AddCommand(
		c.contractsCreateCommand(),
		c.contractsUpdateCommand(),
		c.contractsSignCommand(),
		c.contractsDeleteCommand(),
		c.contractsListCommand(),
		c.contractsGetCommand(),
		c.contractsFilterCommand(),
	)
	return cmd
}

func (c *CLI) contractsCreateCommand() *cobra.Command {
	var clientID int64
	var amount, remaining string
	var signed bool
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a contract for a client",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := models.CreateContractInput{ClientID: clientID, Signed: signed}
			total, err := moneyFlag(cmd, "amount", amount)
			if err != nil {
				return err
			}
			if total != nil {
				in.Amount = *total
			}
			left, err := moneyFlag(cmd, "remaining", remaining)
			if err != nil {
				return err
			}
			if left != nil {
				in.RemainingAmount = *left
			}
			return c.authed(cmd, func(ctx context.Context, deps *app.Dependencies, token string) error {
				contract, err := deps.Contracts.Create(ctx, token, in)
				if err != nil {
					return err
				}
				return printJSON(cmd, contract)
			})
		},
	}
	cmd.Flags().Int64Var(&clientID, "client-id", 0, "client the contract is for")
	cmd.Flags().StringVar(&amount, "amount", "", "total amount, e.g. 1500.00")
	cmd.Flags().StringVar(&remaining, "remaining", "", "amount still due; 0 when fully paid")
	cmd.Flags().BoolVar(&signed, "signed", false, "create the contract signed; requires nothing left to pay")
	_ = cmd.MarkFlagRequired("client-id")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("remaining")
	return cmd
}

func (c *CLI) contractsUpdateCommand() *cobra.Command {
	var amount, remaining string
	var signed bool
	cmd := &cobra.Command{
		Use:   "update CONTRACT_ID",
		Short: "Update an unsigned contract",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "contract id")
			if err != nil {
				return err
			}
			in := models.UpdateContractInput{Signed: changed(cmd, "signed", signed)}
			if in.Amount, err = moneyFlag(cmd, "amount", amount); err != nil {
				return err
			}
			if in.RemainingAmount, err = moneyFlag(cmd, "remaining", remaining); err != nil {
				return err
			}
			return c.authed(cmd, func(ctx context.Context, deps *app.Dependencies, token string) error {
				contract, err := deps.Contracts.Update(ctx, token, id, in)
				if err != nil {
					return err
				}
				return printJSON(cmd, contract)
			})
		},
	}
	cmd.Flags().StringVar(&amount, "amount", "", "total amount")
	cmd.Flags().StringVar(&remaining, "remaining", "", "amount still due")
	cmd.Flags().BoolVar(&signed, "signed", false, "sign the contract")
	return cmd
}

func (c *CLI) contractsSignCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sign CONTRACT_ID",
		Short: "Sign a fully paid contract",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "contract id")
			if err != nil {
				return err
			}
			return c.authed(cmd, func(ctx context.Context, deps *app.Dependencies, token string) error {
				contract, err := deps.Contracts.Sign(ctx, token, id)
				if err != nil {
					return err
				}
				return printJSON(cmd, contract)
			})
		},
	}
}

func (c *CLI) contractsDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete CONTRACT_ID",
		Short: "Delete an unsigned contract",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "contract id")
			if err != nil {
				return err
			}
			return c.authed(cmd, func(ctx context.Context, deps *app.Dependencies, token string) error {
				if err := deps.Contracts.Delete(ctx, token, id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "contract %d deleted\n", id)
				return nil
			})
		},
	}
}

func (c *CLI) contractsListCommand() *cobra.Command {
	var clientID int64
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List contracts",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.authed(cmd, func(ctx context.Context, deps *app.Dependencies, token string) error {
				var list []*models.Contract
				var err error
				if clientID > 0 {
					list, err = deps.Contracts.ListByClient(ctx, token, clientID)
				} else {
					list, err = deps.Contracts.List(ctx, token)
				}
				if err != nil {
					return err
				}
				return printJSON(cmd, list)
			})
		},
	}
	cmd.Flags().Int64Var(&clientID, "client-id", 0, "only contracts of this client")
	return cmd
}

func (c *CLI) contractsGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get CONTRACT_ID",
		Short: "Show one contract",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "contract id")
			if err != nil {
				return err
			}
			return c.authed(cmd, func(ctx context.Context, deps *app.Dependencies, token string) error {
				contract, err := deps.Contracts.Get(ctx, token, id)
				if err != nil {
					return err
				}
				return printJSON(cmd, contract)
			})
		},
	}
}

func (c *CLI) contractsFilterCommand() *cobra.Command {
	var opts contracts.FilterOptions
	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Filter contracts by signature and payment status",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.authed(cmd, func(ctx context.Context, deps *app.Dependencies, token string) error {
				list, err := deps.Contracts.Filter(ctx, token, opts)
				if err != nil {
					return err
				}
				return printJSON(cmd, list)
			})
		},
	}
	cmd.Flags().BoolVar(&opts.Unsigned, "unsigned", false, "only unsigned contracts")
	cmd.Flags().BoolVar(&opts.Unpaid, "unpaid", false, "only contracts with an amount still due")
	cmd.Flags().BoolVar(&opts.Mine, "mine", false, "only contracts you are the sales contact of")
	return cmd
}
