package main

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kidventure/kidventure/internal/app"
	"github.com/kidventure/kidventure/internal/progress"
)

func newUnitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unit",
		Short: "Complete curriculum units",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "complete STUDENT_ID UNIT_ID",
		Short: "Mark a unit complete and award its points",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				out, err := a.Service.Complete(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), out)
			})
		},
	})
	return cmd
}

func newPointsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "points",
		Short: "Award points",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "award STUDENT_ID UNIT_ID POINTS",
		Short: "Award bonus points for a unit",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			points, err := strconv.ParseInt(args[2], 10, 64)
			if err != nil {
				return progress.InvalidArgument("points", "must be an integer")
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				award, err := a.Service.AwardBonus(ctx, args[0], args[1], points)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), award)
			})
		},
	})
	return cmd
}

func newLeaderboardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Show students ranked by points",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				board, err := a.Service.Leaderboard(ctx, limit)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "RANK\tSTUDENT\tPOINTS\tBADGES")
				for _, s := range board {
					fmt.Fprintf(tw, "%d\t%s\t%d\t%d\n", s.Rank, s.StudentID, s.Points, len(s.Badges))
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().Int("limit", 10, "Maximum rows (0 for all)")
	return cmd
}
