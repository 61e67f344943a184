// Package cli is the epicevents command tree. Each invocation loads the
// dependencies, runs one operation and maps its outcome to an exit code.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/epicevents/crm/app"
	"github.com/epicevents/crm/config"
	"github.com/epicevents/crm/internal/observability"
	"github.com/epicevents/crm/services"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Exit codes
const (
	ExitOK       = 0
	ExitBusiness = 1
	ExitUsage    = 2
	ExitInternal = 3
)

// TokenEnv is read when --token is not given.
const TokenEnv = "EPICEVENTS_TOKEN"

// Loader builds the dependencies for one command run
type Loader func(ctx context.Context) (*app.Dependencies, error)

// DefaultLoader reads the environment configuration and wires the application
func DefaultLoader(ctx context.Context) (*app.Dependencies, error) {
	cfg, err := config.New(ctx)
	if err != nil {
		return nil, err
	}
	logger, err := observability.NewLogger(cfg.Observability)
	if err != nil {
		return nil, err
	}
	return app.NewDependencies(ctx, cfg, logger)
}

// CLI holds what every command shares
type CLI struct {
	load   Loader
	logger *zap.Logger
	token  string
}

// New creates a CLI. logger records infrastructure faults that happen before
// the configured logger exists.
func New(load Loader, logger *zap.Logger) *CLI {
	return &CLI{load: load, logger: logger}
}

// usageError marks a malformed invocation
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

func usagef(format string, args ...interface{}) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

// infraError marks a fault outside the domain, e.g. an unreachable database
type infraError struct {
	err error
}

func (e *infraError) Error() string { return e.err.Error() }
func (e *infraError) Unwrap() error { return e.err }

// ExitCode maps a command error to the process exit status. Errors that are
// neither domain errors nor infrastructure faults come from argument parsing.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var usage *usageError
	if errors.As(err, &usage) {
		return ExitUsage
	}
	var infra *infraError
	if errors.As(err, &infra) {
		return ExitInternal
	}
	var domain *services.DomainError
	if !errors.As(err, &domain) {
		return ExitUsage
	}
	if services.IsBusinessError(err) {
		return ExitBusiness
	}
	return ExitInternal
}

// Command builds the root command
func (c *CLI) Command() *cobra.Command {
	root := &cobra.Command{
		Use:           "epicevents",
		Short:         "Epic Events CRM",
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{msg: err.Error()}
	})
	root.PersistentFlags().StringVar(&c.token, "token", "", "access token (defaults to $"+TokenEnv+")")

	root.AddCommand(
		c.loginCommand(),
		c.usersCommand(),
		c.clientsCommand(),
		c.contractsCommand(),
		c.eventsCommand(),
		c.auditCommand(),
		c.migrateCommand(),
		c.serveCommand(),
	)
	return root
}

// Execute runs the command line and returns the exit code. Business errors
// print their message; infrastructure faults print a generic message and are logged.
func (c *CLI) Execute(ctx context.Context, args []string, stdout, stderr io.Writer, stdin io.Reader) int {
	root := c.Command()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetIn(stdin)

	err := root.ExecuteContext(ctx)
	code := ExitCode(err)
	switch code {
	case ExitUsage:
		fmt.Fprintf(stderr, "Error: %s\nRun 'epicevents --help' for usage.\n", err)
	case ExitBusiness:
		fmt.Fprintln(stderr, describe(err))
	case ExitInternal:
		fmt.Fprintln(stderr, services.ErrInternal.Message)
		c.logger.Error("command failed", zap.Strings("args", args), zap.Error(err))
	}
	return code
}

// describe renders a domain error's message with its details in key order
func describe(err error) string {
	msg := services.PublicMessage(err)
	details := services.GetErrorDetails(err)
	if len(details) == 0 {
		return msg
	}
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, details[k]))
	}
	return fmt.Sprintf("%s (%s)", msg, strings.Join(parts, ", "))
}

// run loads the dependencies, hands them to fn and closes them afterwards
func (c *CLI) run(cmd *cobra.Command, fn func(ctx context.Context, deps *app.Dependencies) error) error {
	ctx := cmd.Context()
	deps, err := c.load(ctx)
	if err != nil {
		return &infraError{err: fmt.Errorf("failed to initialize: %w", err)}
	}
	c.logger = deps.Logger
	defer deps.Close(ctx)

	return fn(ctx, deps)
}

// requireToken returns --token or the environment fallback
func (c *CLI) requireToken() (string, error) {
	token := strings.TrimSpace(c.token)
	if token == "" {
		token = strings.TrimSpace(os.Getenv(TokenEnv))
	}
	if token == "" {
		return "", usagef("an access token is required: pass --token or set %s", TokenEnv)
	}
	return token, nil
}

// authed is run for commands acting on behalf of a logged-in collaborator
func (c *CLI) authed(cmd *cobra.Command, fn func(ctx context.Context, deps *app.Dependencies, token string) error) error {
	token, err := c.requireToken()
	if err != nil {
		return err
	}
	return c.run(cmd, func(ctx context.Context, deps *app.Dependencies) error {
		return fn(ctx, deps, token)
	})
}

// usageArgs turns positional argument errors into usage errors
func usageArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return &usageError{msg: err.Error()}
		}
		return nil
	}
}

func parseID(raw, what string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, usagef("invalid %s %q", what, raw)
	}
	return id, nil
}

// printJSON writes v as indented JSON
func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return &infraError{err: err}
	}
	return nil
}
