package cli

import (
	"context"
	"time"

	"github.com/epicevents/crm/app"
	"github.com/epicevents/crm/models"
	"github.com/epicevents/crm/services/events"
	"github.com/spf13/cobra"
)

// dateLayouts are accepted for --start and --end. Layouts without a zone are read as local time.
var dateLayouts = []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02T15:04"}

func parseDate(name, raw string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, usagef("invalid --%s %q: use RFC 3339 or \"YYYY-MM-DD HH:MM\"", name, raw)
}

// dateFlag parses a date flag; nil when the flag was not given
func dateFlag(cmd *cobra.Command, name, raw string) (*time.Time, error) {
	if !cmd.Flags().Changed(name) {
		return nil, nil
	}
	t, err := parseDate(name, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *CLI) eventsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Manage events",
	}
	cmd.AddCommand(
		c.eventsCreateCommand(),
		c.eventsUpdateCommand(),
		c.eventsAssignSupportCommand(),
		c.eventsListCommand(),
		c.eventsGetCommand(),
		c.eventsFilterCommand(),
	)
	return cmd
}

func (c *CLI) eventsCreateCommand() *cobra.Command {
	var in models.CreateEventInput
	var start, end string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create the event of one of your signed contracts",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if in.StartDate, err = parseDate("start", start); err != nil {
				return err
			}
			if in.EndDate, err = parseDate("end", end); err != nil {
				return err
			}
			return c.authed(cmd, func(ctx context.Context, deps *app.Dependencies, token string) error {
				event, err := deps.Events.Create(ctx, token, in)
				if err != nil {
					return err
				}
				return printJSON(cmd, event)
			})
		},
	}
	cmd.Flags().Int64Var(&in.ContractID, "contract-id", 0, "signed contract the event belongs to")
	cmd.Flags().StringVar(&in.Name, "name", "", "event name")
	cmd.Flags().StringVar(&start, "start", "", "start date, at least 24 hours from now")
	cmd.Flags().StringVar(&end, "end", "", "end date, after the start")
	cmd.Flags().StringVar(&in.Location, "location", "", "venue")
	cmd.Flags().IntVar(&in.Attendees, "attendees", 0, "expected attendees")
	cmd.Flags().StringVar(&in.Notes, "notes", "", "free-form notes")
	_ = cmd.MarkFlagRequired("contract-id")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

func (c *CLI) eventsUpdateCommand() *cobra.Command {
	var name, start, end, location, notes string
	var attendees int
	cmd := &cobra.Command{
		Use:   "update EVENT_ID",
		Short: "Update an event that has not ended",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "event id")
			if err != nil {
				return err
			}
			in := models.UpdateEventInput{
				Name:      changed(cmd, "name", name),
				Location:  changed(cmd, "location", location),
				Attendees: changed(cmd, "attendees", attendees),
				Notes:     changed(cmd, "notes", notes),
			}
			if in.StartDate, err = dateFlag(cmd, "start", start); err != nil {
				return err
			}
			if in.EndDate, err = dateFlag(cmd, "end", end); err != nil {
				return err
			}
			return c.authed(cmd, func(ctx context.Context, deps *app.Dependencies, token string) error {
				event, err := deps.Events.Update(ctx, token, id, in)
				if err != nil {
					return err
				}
				return printJSON(cmd, event)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "event name")
	cmd.Flags().StringVar(&start, "start", "", "start date")
	cmd.Flags().StringVar(&end, "end", "", "end date")
	cmd.Flags().StringVar(&location, "location", "", "venue")
	cmd.Flags().IntVar(&attendees, "attendees", 0, "expected attendees")
	cmd.Flags().StringVar(&notes, "notes", "", "free-form notes")
	return cmd
}

func (c *CLI) eventsAssignSupportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "assign-support EVENT_ID USER_ID",
		Short: "Make a Support collaborator responsible for an event",
		Args:  usageArgs(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			eventID, err := parseID(args[0], "event id")
			if err != nil {
				return err
			}
			supportID, err := parseID(args[1], "user id")
			if err != nil {
				return err
			}
			return c.authed(cmd, func(ctx context.Context, deps *app.Dependencies, token string) error {
				event, err := deps.Events.AssignSupport(ctx, token, eventID, supportID)
				if err != nil {
					return err
				}
				return printJSON(cmd, event)
			})
		},
	}
}

func (c *CLI) eventsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List events",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.authed(cmd, func(ctx context.Context, deps *app.Dependencies, token string) error {
				list, err := deps.Events.List(ctx, token)
				if err != nil {
					return err
				}
				return printJSON(cmd, list)
			})
		},
	}
}

func (c *CLI) eventsGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get EVENT_ID",
		Short: "Show one event",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "event id")
			if err != nil {
				return err
			}
			return c.authed(cmd, func(ctx context.Context, deps *app.Dependencies, token string) error {
				event, err := deps.Events.Get(ctx, token, id)
				if err != nil {
					return err
				}
				return printJSON(cmd, event)
			})
		},
	}
}

func (c *CLI) eventsFilterCommand() *cobra.Command {
	var opts events.FilterOptions
	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Filter events by support assignment",
		Long:  "Support collaborators always see the events assigned to them.",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.authed(cmd, func(ctx context.Context, deps *app.Dependencies, token string) error {
				list, err := deps.Events.Filter(ctx, token, opts)
				if err != nil {
					return err
				}
				return printJSON(cmd, list)
			})
		},
	}
	cmd.Flags().BoolVar(&opts.WithoutSupport, "no-support", false, "only events without a support contact")
	cmd.Flags().BoolVar(&opts.Mine, "mine", false, "only events assigned to you")
	return cmd
}
