package main

import (
	"fmt"
	"os"
	"time"

	"coursesync/internal/app"
	"coursesync/internal/config"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an App. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "Sync", "SeedDB").
func newApp(operation string) (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewApp(cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

var rootCmd = &cobra.Command{
	Use:   "coursesync",
	Short: "Synchronize course file access with membership records",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Database: %s\n", cfg.Database.Path)
		fmt.Printf("Log Dir:  %s\n", cfg.LogDir)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Database:    %s (%s)\n", cfg.Database.Path, cfg.Database.Type)
		fmt.Printf("Drive:       %s\n", cfg.Drive.Type)
		fmt.Printf("Credentials: %s\n", cfg.Drive.CredentialsPath)
		fmt.Printf("Log Dir:     %s\n", cfg.LogDir)
		return nil
	},
}

// db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the membership database",
}

var dbInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create or migrate the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("getting defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("reading config: %w", err)
		}

		if err := app.InitDB(cfg); err != nil {
			return fmt.Errorf("initializing database: %w", err)
		}

		fmt.Printf("Database ready at %s\n", cfg.Database.Path)
		return nil
	},
}

var dbSeedCmd = &cobra.Command{
	Use:   "seed [FILE]",
	Short: "Populate the database from a JSON mock-data file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("SeedDB")
		if err != nil {
			return err
		}
		defer a.Close()

		dataPath := ""
		if len(args) > 0 {
			dataPath = args[0]
		}

		if err := a.SeedDB(dataPath); err != nil {
			return fmt.Errorf("seeding database: %w", err)
		}

		fmt.Println("Database seeded.")
		return nil
	},
}

var dbClearCmd = &cobra.Command{
	Use:   "clear [TABLE...]",
	Short: "Delete all rows from the given tables (default: all)",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ClearDB")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.ClearDB(args...); err != nil {
			return fmt.Errorf("clearing database: %w", err)
		}

		fmt.Println("Tables cleared.")
		return nil
	},
}

// sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Grant access to New users and revoke it from Fired users",
	RunE: func(cmd *cobra.Command, args []string) error {
		restrictCopy, _ := cmd.Flags().GetBool("restrict-copy")

		a, err := newApp("Sync")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Sync(cmd.Context(), restrictCopy); err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}

		fmt.Println("Sync complete.")
		return nil
	},
}

// restrict-copy command
var restrictCopyCmd = &cobra.Command{
	Use:   "restrict-copy",
	Short: "Disallow copying presentation files without writer permission",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("RestrictCopy")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.RestrictCopy(cmd.Context()); err != nil {
			return fmt.Errorf("restrict-copy failed: %w", err)
		}

		fmt.Println("Copy restriction applied.")
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View sync operation history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp("History")
		if err != nil {
			return err
		}
		defer a.Close()

		ops, err := a.History(limit)
		if err != nil {
			return err
		}

		if len(ops) == 0 {
			fmt.Println("No sync operations recorded.")
			return nil
		}

		for _, op := range ops {
			duration := ""
			if op.FinishedAt != nil {
				d := op.FinishedAt.Sub(op.StartedAt)
				duration = d.Truncate(time.Millisecond).String()
			}
			fmt.Printf("#%d  %-15s  %s  %-10s  %s\n",
				op.ID,
				op.Operation,
				op.StartedAt.Format("2006-01-02 15:04:05"),
				op.Status,
				duration,
			)
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	dbCmd.AddCommand(dbInitCmd)
	dbCmd.AddCommand(dbSeedCmd)
	dbCmd.AddCommand(dbClearCmd)

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().Bool("restrict-copy", false, "Also apply the copy restriction to presentation files")
	rootCmd.AddCommand(restrictCopyCmd)
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of operations to show")
}
