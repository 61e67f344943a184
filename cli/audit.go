package cli

import (
	"context"

	"github.com/epicevents/crm/app"
	"github.com/epicevents/crm/services/audit"
	"github.com/spf13/cobra"
)

func (c *CLI) auditCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Read the audit trail",
	}
	cmd.AddCommand(c.auditHistoryCommand())
	return cmd
}

func (c *CLI) auditHistoryCommand() *cobra.Command {
	var q audit.TrailQuery
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the changes made to one record, or by one collaborator",
		Example: "  epicevents audit history --resource contract --id 12\n" +
			"  epicevents audit history --actor 4 --limit 20",
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			byResource := q.ResourceType != "" || q.ResourceID != 0
			if byResource == (q.ActorID != 0) {
				return usagef("give either --resource with --id, or --actor")
			}
			return c.authed(cmd, func(ctx context.Context, deps *app.Dependencies, token string) error {
				logs, err := deps.AuditTrail.History(ctx, token, q)
				if err != nil {
					return err
				}
				return printJSON(cmd, logs)
			})
		},
	}
	cmd.Flags().StringVar(&q.ResourceType, "resource", "", "user, client, contract or event")
	cmd.Flags().Int64Var(&q.ResourceID, "id", 0, "id of the record")
	cmd.Flags().Int64Var(&q.ActorID, "actor", 0, "id of the collaborator")
	cmd.Flags().IntVar(&q.Limit, "limit", audit.DefaultTrailLimit, "maximum number of entries")
	return cmd
}
