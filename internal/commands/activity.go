package commands

import (
	"github.com/spf13/cobra"

	"github.com/folio-dev/folio/internal/activity"
	"github.com/folio-dev/folio/internal/render"
)

func newActivityCommand(repoDir *string) *cobra.Command {
	var (
		pretty bool
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Show the activity log, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), *repoDir)
			if err != nil {
				return err
			}
			defer a.Close()

			entries, err := activity.Read(a.root)
			if err != nil {
				return err
			}
			return printMarkdown(cmd, render.Activity(entries, limit), pretty)
		},
	}
	cmd.Flags().BoolVar(&pretty, "pretty", false, "style the output for the terminal")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "show at most this many entries, 0 for all")
	return cmd
}
