package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kidventure/kidventure/internal/app"
	"github.com/kidventure/kidventure/internal/curriculum"
)

func newCurriculumCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "curriculum",
		Short: "Inspect curriculum content",
	}

	validate := &cobra.Command{
		Use:   "validate DIR",
		Short: "Validate a directory of track files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loader, err := curriculum.NewLoader(args[0])
			if err != nil {
				return err
			}
			cur := loader.Curriculum()
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d files, %d tracks, %d units\n",
				len(loader.Files()), len(cur.Tracks()), cur.Len())
			return nil
		},
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the configured curriculum",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			cur, err := app.LoadCurriculum(cfg.Curriculum)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TRACK\t#\tUNIT\tKIND\tPOINTS\tTITLE")
			for _, u := range cur.Units() {
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%d\t%s\n", u.Track, u.Ordinal, u.ID, u.Kind, u.Points, u.Title)
			}
			return tw.Flush()
		},
	}

	cmd.AddCommand(validate, show)
	return cmd
}
