package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

// SessionsOptions holds flags for the sessions command.
type SessionsOptions struct {
	*RootOptions
	Delete string
}

// NewSessionsCommand creates the sessions command.
func NewSessionsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SessionsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List archived sessions",
		Long: `List archived sessions, newest first.

Examples:
  smuctl sessions --database runs.db
  smuctl sessions --database runs.db --delete 1b4e28ba-2fa1-11d2-883f-0016d3cca427`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessions(opts, cmd)
		},
	}

	cmd.Flags().String("database", "", "session archive to list")
	cmd.Flags().StringVar(&opts.Delete, "delete", "", "delete the session with this id instead of listing")

	return cmd
}

func runSessions(opts *SessionsOptions, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts.RootOptions, cmd)
	if err != nil {
		return err
	}

	repo, err := openArchive(cfg.Output.Database)
	if err != nil {
		return err
	}
	defer repo.Close()

	if opts.Delete != "" {
		if err := repo.DeleteSession(context.Background(), opts.Delete); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted session %s\n", opts.Delete)

		return nil
	}

	sessions, err := repo.ListSessions(context.Background())
	if err != nil {
		return err
	}

	if len(sessions) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No archived sessions.")

		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tRESOURCE\tPOINTS\tOUTCOME")
	for _, s := range sessions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
			s.ID, s.StartedAt.Format(time.RFC3339), s.Resource, s.Readings, s.Outcome)
	}

	return tw.Flush()
}
