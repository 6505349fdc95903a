// Package cmd contains the CLI commands for devctl.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/devroom/internal/storage"
)

// defaultDBPath can be overridden via the DEVROOM_DB_PATH env var.
var defaultDBPath = "./data/devroom.db"

func init() {
	if envPath := os.Getenv("DEVROOM_DB_PATH"); envPath != "" {
		defaultDBPath = envPath
	}
}

var (
	dbPath  string
	output  string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "devctl",
	Short: "devctl - devroom administration",
	Long: `devctl manages devroom accounts and projects directly in the database file,
for operators working outside of the editor.

Examples:
  # Create an account
  devctl user create --email alice@example.com

  # List the projects alice belongs to
  devctl project list --email alice@example.com

  # Show a project's members, files and recent messages
  devctl project show --id 0b6c...`,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", defaultDBPath, "path to SQLite database file")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "output format (table, json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// openDatabase opens an existing SQLite database and applies pending migrations.
func openDatabase(path string) (*storage.SQLiteStorage, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("database file not found: %s", path)
	}

	store := storage.NewSQLiteStorage(path)
	if err := store.Open(); err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := store.Migrate(); err != nil {
		store.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return store, nil
}

// printVerbose prints a message only if verbose mode is enabled.
func printVerbose(cmd *cobra.Command, format string, args ...any) {
	if verbose {
		fmt.Fprintf(cmd.ErrOrStderr(), format+"\n", args...)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 2 {
		return s[:n]
	}
	return s[:n-2] + ".."
}
