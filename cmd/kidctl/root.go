package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kidventure/kidventure/internal/app"
	"github.com/kidventure/kidventure/internal/platform/config"
	"github.com/kidventure/kidventure/internal/platform/logging"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "kidctl",
		Short:         "Kidventure progress administration",
		Long:          "kidctl manages student progress records, points and badges for the Kidventure K-2 math app.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.String("store", "", "Store backend: memory, postgres, redis or sqlite (overrides KIDVENTURE_STORE_BACKEND)")
	flags.String("sqlite", "", "Path to SQLite database file (overrides KIDVENTURE_SQLITE_PATH)")
	flags.String("database-url", "", "PostgreSQL URL (overrides KIDVENTURE_DATABASE_URL)")
	flags.String("cache-url", "", "Redis URL (overrides KIDVENTURE_CACHE_URL)")
	flags.String("curriculum", "", "Curriculum directory (overrides KIDVENTURE_CURRICULUM_PATH)")
	flags.String("badges", "", "Badge definitions file (overrides KIDVENTURE_BADGES_PATH)")
	flags.BoolP("verbose", "v", false, "Log at debug level")

	root.AddCommand(newStudentCmd())
	root.AddCommand(newUnitCmd())
	root.AddCommand(newPointsCmd())
	root.AddCommand(newLeaderboardCmd())
	root.AddCommand(newReportCmd())
	root.AddCommand(newCurriculumCmd())
	root.AddCommand(newAdminCmd())
	return root
}

// loadConfig reads environment configuration and applies flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	overrides := []struct {
		flag string
		dst  *string
	}{
		{"store", &cfg.Store.Backend},
		{"sqlite", &cfg.SQLite.Path},
		{"database-url", &cfg.Database.URL},
		{"cache-url", &cfg.Cache.URL},
		{"curriculum", &cfg.Curriculum.Path},
		{"badges", &cfg.Curriculum.BadgesPath},
	}
	for _, o := range overrides {
		if v, _ := cmd.Flags().GetString(o.flag); v != "" {
			*o.dst = v
		}
	}

	// One-shot commands have no live subscribers; only a shared hub is useful.
	if cfg.Live.Backend != config.BackendRedis {
		cfg.Live.Enabled = false
	}
	cfg.Log.Format = "text"
	cfg.Log.Level = "warn"
	if v, _ := cmd.Flags().GetBool("verbose"); v {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

// withApp opens the configured backends, runs fn and closes them.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := logging.New(cfg.Log, cmd.ErrOrStderr())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
