package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/angelmondragon/coursehub-backend/pkg/config"
	"github.com/angelmondragon/coursehub-backend/pkg/db"
	"github.com/angelmondragon/coursehub-backend/pkg/logger"
	"github.com/angelmondragon/coursehub-backend/pkg/migrate"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var dir string
	rootCmd := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage the settlement database schema",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&dir, "dir", migrate.DefaultDir, "goose migrations directory")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "create <name>",
			Short: "Scaffold a new SQL migration",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := migrate.CreateSQLMigration(dir, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "created migration:", path)
				return nil
			},
		},
		&cobra.Command{
			Use:   "validate",
			Short: "Check migration filenames and goose sections",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				files, err := migrate.Scan(dir)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d migrations valid, latest %d\n", len(files), files[len(files)-1].Version)
				return nil
			},
		},
		dbCmd("up", "Apply all pending migrations", cobra.NoArgs, func(ctx context.Context, cmd *cobra.Command, m *migrate.Migrator, _ []string) error {
			applied, err := m.Up(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d migrations\n", applied)
			return nil
		}),
		dbCmd("down", "Roll back the latest migration", cobra.NoArgs, func(ctx context.Context, _ *cobra.Command, m *migrate.Migrator, _ []string) error {
			return m.Down(ctx)
		}),
		dbCmd("status", "Print applied and pending migrations", cobra.NoArgs, func(ctx context.Context, cmd *cobra.Command, m *migrate.Migrator, _ []string) error {
			statuses, err := m.Status(ctx)
			if err != nil {
				return err
			}
			return printStatus(cmd.OutOrStdout(), statuses)
		}),
		dbCmd("to <version>", "Migrate up or down to a YYYYMMDDHHMMSS version", cobra.ExactArgs(1), func(ctx context.Context, _ *cobra.Command, m *migrate.Migrator, args []string) error {
			target, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || target < 0 {
				return fmt.Errorf("invalid version %q", args[0])
			}
			return m.To(ctx, target)
		}),
	)
	return rootCmd
}

type migrationFunc func(ctx context.Context, cmd *cobra.Command, m *migrate.Migrator, args []string) error

// dbCmd builds a subcommand that needs a live database. Migrations come from
// the binary unless --dir was given explicitly.
func dbCmd(use, short string, args cobra.PositionalArgs, run migrationFunc) *cobra.Command {
	name, _, _ := strings.Cut(use, " ")
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, argv []string) error {
			var source fs.FS
			if cmd.Flags().Changed("dir") {
				dir, _ := cmd.Flags().GetString("dir")
				src, err := migrate.DirSource(dir)
				if err != nil {
					return err
				}
				source = src
			}
			return withDatabase(cmd.Context(), name, func(ctx context.Context, sqlDB *sql.DB) error {
				m, err := migrate.NewMigrator(sqlDB, source)
				if err != nil {
					return err
				}
				return run(ctx, cmd, m, argv)
			})
		},
	}
}

func printStatus(out io.Writer, statuses []migrate.Status) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tNAME\tAPPLIED AT")
	for _, s := range statuses {
		applied := "pending"
		if s.Applied {
			applied = s.AppliedAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\n", s.Version, s.Name, applied)
	}
	return tw.Flush()
}

// withDatabase opens the configured database for a migration command. SQLite
// deployments have no goose history, so only "up" is served for them, via
// gorm's AutoMigrate.
func withDatabase(ctx context.Context, command string, fn func(context.Context, *sql.DB) error) error {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "cmd": command})

	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer dbClient.Close()

	if cfg.FeatureFlags.UseSQLite {
		if command != "up" {
			return fmt.Errorf("%s is not supported for sqlite databases", command)
		}
		if err := dbClient.DB().WithContext(ctx).AutoMigrate(migrate.Models()...); err != nil {
			return fmt.Errorf("sqlite auto-migrate: %w", err)
		}
		logg.Info(ctx, "sqlite schema migrated")
		return nil
	}

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		return fmt.Errorf("sql database: %w", err)
	}
	logg.Info(ctx, "migrate ready")
	if err := fn(ctx, sqlDB); err != nil {
		logg.Error(ctx, "migration failed", err)
		return err
	}
	return nil
}
