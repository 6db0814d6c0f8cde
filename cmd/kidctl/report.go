package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kidventure/kidventure/internal/app"
	"github.com/kidventure/kidventure/internal/report"
)

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Export progress reports",
	}
	export := &cobra.Command{
		Use:   "export",
		Short: "Write an Excel progress report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("out")
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				recs, err := a.Service.List(ctx)
				if err != nil {
					return err
				}
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("create report: %w", err)
				}
				if err := report.WriteWorkbook(f, a.Service.Curriculum(), recs); err != nil {
					f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return fmt.Errorf("close report: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %d students to %s\n", len(recs), out)
				return nil
			})
		},
	}
	export.Flags().String("out", "progress-report.xlsx", "Output file")
	cmd.AddCommand(export)
	return cmd
}
