package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kidventure/kidventure/internal/app"
)

func newStudentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "student",
		Short: "Manage student progress records",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "create STUDENT_ID",
			Short: "Create a student record if it does not exist",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cmd, func(ctx context.Context, a *app.App) error {
					rec, err := a.Service.Register(ctx, args[0])
					if err != nil {
						return err
					}
					return printJSON(cmd.OutOrStdout(), rec)
				})
			},
		},
		&cobra.Command{
			Use:   "show STUDENT_ID",
			Short: "Show a student's record and unit states",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cmd, func(ctx context.Context, a *app.App) error {
					snap, err := a.Service.Snapshot(ctx, args[0])
					if err != nil {
						return err
					}
					return printJSON(cmd.OutOrStdout(), snap)
				})
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List every student record",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cmd, func(ctx context.Context, a *app.App) error {
					recs, err := a.Service.List(ctx)
					if err != nil {
						return err
					}
					return printJSON(cmd.OutOrStdout(), recs)
				})
			},
		},
		&cobra.Command{
			Use:   "delete STUDENT_ID",
			Short: "Delete a student record",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cmd, func(ctx context.Context, a *app.App) error {
					if err := a.Service.Delete(ctx, args[0]); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
					return nil
				})
			},
		},
	)
	return cmd
}
