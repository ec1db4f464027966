package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/dmitrijs2005/delegsync/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

type rootOptions struct {
	configFile string
	json       bool
}

// NewRootCommand builds the command tree. The App is created in
// PersistentPreRunE once flags are parsed; the returned func closes it.
func NewRootCommand(out io.Writer) (*cobra.Command, func() error) {
	var (
		opts rootOptions
		app  *App
	)

	root := &cobra.Command{
		Use:           "delegsync",
		Short:         "Synchronize delegates, requests and schedules with the shared dataset",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(opts.configFile, cmd.Flags())
			if err != nil {
				return err
			}
			app, err = newApp(cmd.Context(), cfg, out)
			return err
		},
	}
	root.SetOut(out)

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configFile, "config", "", "JSON, YAML or TOML config file")
	pf.BoolVar(&opts.json, "json", false, "print results as JSON")
	config.RegisterFlags(pf)

	current := func() *App { return app }
	root.AddCommand(
		cycleCommand("pull", "Apply remote changes to the local store", current,
			func(ctx context.Context, a *App) error { return a.pull(ctx, opts.json) }),
		cycleCommand("push", "Send local changes to the remote dataset", current,
			func(ctx context.Context, a *App) error { return a.push(ctx, opts.json) }),
		cycleCommand("sync", "Pull, then push", current,
			func(ctx context.Context, a *App) error { return a.sync(ctx, opts.json) }),
		cycleCommand("status", "Show the watermark, local counts and open conflicts", current,
			func(ctx context.Context, a *App) error { return a.status(ctx, opts.json) }),
		conflictsCommand(current, &opts),
	)

	closeApp := func() error {
		if app == nil {
			return nil
		}
		return app.Close()
	}
	return root, closeApp
}

func cycleCommand(use, short string, app func() *App, run func(context.Context, *App) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), app())
		},
	}
}

func conflictsCommand(app func() *App, opts *rootOptions) *cobra.Command {
	var all bool

	list := &cobra.Command{
		Use:   "list",
		Short: "List open conflicts (all with --all)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app().listConflicts(cmd.Context(), !all, opts.json)
		},
	}
	list.Flags().BoolVar(&all, "all", false, "include resolved conflicts")

	resolve := &cobra.Command{
		Use:   "resolve <id>",
		Short: "Mark a conflict as resolved so the row syncs again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid conflict id %q", args[0])
			}
			return app().resolveConflict(cmd.Context(), id)
		},
	}

	cmd := &cobra.Command{Use: "conflicts", Short: "Review sync conflicts"}
	cmd.AddCommand(list, resolve)
	return cmd
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context, args []string, out, errOut io.Writer) int {
	root, closeApp := NewRootCommand(out)
	root.SetArgs(args)
	root.SetErr(errOut)
	err := root.ExecuteContext(ctx)
	err = multierr.Append(err, closeApp())
	if err != nil {
		fmt.Fprintln(errOut, "error:", err)
		if h := hint(err); h != "" {
			fmt.Fprintln(errOut, h)
		}
		return 1
	}
	return 0
}
