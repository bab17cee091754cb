package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jward/waypoint"
	"github.com/jward/waypoint/internal/config"
	"github.com/jward/waypoint/internal/logging"
	"github.com/jward/waypoint/internal/mapsvc"
)

var (
	flagDB     string
	flagFormat string
	flagConfig string
)

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

// Populated by the root PersistentPreRunE.
var (
	cfg    *config.Config
	logger = zap.NewNop()
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "waypoint",
	Short:         "Browse places, mark favorites and walk the screen flow",
	Long:          "Waypoint keeps location records in a local SQLite database, tracks favorites, and replays screen-to-screen navigation sessions.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := validateFormat(flagFormat); err != nil {
			return err
		}
		loaded, err := config.Load(flagConfig)
		if err != nil {
			return outputError(cmd.Name(), err)
		}
		if err := loaded.Validate(); err != nil {
			return outputError(cmd.Name(), err)
		}
		l, err := logging.New(loaded.Log.Level, loaded.Log.Format)
		if err != nil {
			return outputError(cmd.Name(), err)
		}
		cfg, logger = loaded, l
		for _, w := range cfg.Warnings() {
			logger.Warn(w)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
	// No Run; prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database path (default: db.path, else .waypoint/waypoint.db relative to repo root)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "json", "output format: json|text")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: ./waypoint.yaml if present)")

	rootCmd.AddCommand(tablesCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(mapCmd)
	rootCmd.AddCommand(favCmd)
	rootCmd.AddCommand(navCmd)
	rootCmd.AddCommand(sessionCmd)
}

// openApp opens the App on the resolved database, creating its directory.
func openApp() (*waypoint.App, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting cwd: %w", err)
	}
	dbPath := resolveDBPath(findRepoRoot(cwd))
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", filepath.Dir(dbPath), err)
	}

	opts := []waypoint.Option{
		waypoint.WithLogger(logger),
		waypoint.WithRetryBackoff(cfg.Store.RetryBackoff),
		waypoint.WithPageSize(cfg.Dispatch.PageSize),
	}
	if !cfg.Map.Disabled {
		p, err := mapsvc.New(mapsvc.Config{
			APIKey:     cfg.Map.APIKey,
			BaseURL:    cfg.Map.BaseURL,
			RestrictTo: cfg.Map.RestrictTo,
		})
		if err != nil {
			return nil, err
		}
		opts = append(opts, waypoint.WithMapProvider(p))
	}

	app, err := waypoint.New(dbPath, opts...)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", dbPath, err)
	}
	return app, nil
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return startDir
		}
		dir = parent
	}
}

// resolveDBPath returns the database path from --db, then db.path, then the
// default. Relative paths are taken from repoRoot.
func resolveDBPath(repoRoot string) string {
	p := flagDB
	if p == "" && cfg != nil {
		p = cfg.DB.Path
	}
	if p == "" {
		return filepath.Join(repoRoot, ".waypoint", "waypoint.db")
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(repoRoot, p)
}
