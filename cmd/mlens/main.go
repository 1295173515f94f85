package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jward/mlens"
	"github.com/jward/mlens/internal/settings"
)

var (
	flagDB         string
	flagFormat     string
	flagLocale     string
	flagVerbose    bool
	flagScriptsDir string
)

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

// logger is configured by the root command before any subcommand runs.
var logger = slog.New(slog.DiscardHandler)

func main() {
	// A missing .env is not an error.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "mlens",
	Short:         "Semantic inspection for Power Query M syntax trees",
	Long:          "mlens indexes M syntax tree dumps into SQLite and answers scope, type and cursor queries against them.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := validateFormat(flagFormat); err != nil {
			return err
		}
		applyEnvDefaults(cmd)
		level := slog.LevelWarn
		if flagVerbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		return nil
	},
	// No Run: prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database path (default: .mlens/index.db relative to repo root, or $MLENS_DB)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "json", "output format: json|text")
	rootCmd.PersistentFlags().StringVar(&flagLocale, "locale", settings.DefaultLocale, "locale for error messages (or $MLENS_LOCALE)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "log analysis passes to stderr")
	rootCmd.PersistentFlags().StringVar(&flagScriptsDir, "scripts-dir", "", "load check scripts from disk path instead of embedded")

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(checkCmd)
}

// applyEnvDefaults fills flags the user did not set from the environment.
func applyEnvDefaults(cmd *cobra.Command) {
	if v := os.Getenv("MLENS_DB"); v != "" && !cmd.Flags().Changed("db") {
		flagDB = v
	}
	if v := os.Getenv("MLENS_LOCALE"); v != "" && !cmd.Flags().Changed("locale") {
		flagLocale = v
	}
}

// cliSettings are the settings every analysis pass runs with.
func cliSettings() settings.Settings {
	return settings.Settings{Locale: flagLocale, Logger: logger}
}

// newEngine opens the engine on dbPath with the CLI's settings.
func newEngine(dbPath string, parallel bool) (*mlens.Engine, error) {
	engine, err := mlens.New(dbPath, flagScriptsDir,
		mlens.WithSettings(cliSettings()),
		mlens.WithParallel(parallel),
	)
	if err != nil {
		return nil, fmt.Errorf("creating engine: %w", err)
	}
	return engine, nil
}

var (
	flagForce  bool
	flagWatch  bool
	flagSerial bool
)

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Index M syntax tree dumps",
	Long:  "Decodes and validates every .json, .yaml, .yml and .cbor tree dump under path and writes the trees to the SQLite database. Unchanged dumps are skipped.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&flagForce, "force", false, "delete database and reindex from scratch")
	indexCmd.Flags().BoolVar(&flagWatch, "watch", false, "keep running and reindex dumps as they change")
	indexCmd.Flags().BoolVar(&flagSerial, "serial", false, "decode dumps one at a time")
}

func runIndex(cmd *cobra.Command, args []string) error {
	start := time.Now()

	targetDir, err := resolveTargetDir(args)
	if err != nil {
		return err
	}

	repoRoot := findRepoRoot(targetDir)
	dbPath := resolveDBPath(repoRoot)

	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dbDir, err)
	}

	if flagForce {
		if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing database for --force: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Cleared database: %s\n", dbPath)
	}

	engine, err := newEngine(dbPath, !flagSerial)
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := engine.IndexDirectory(ctx, targetDir); err != nil {
		return fmt.Errorf("indexing: %w", err)
	}

	docs, err := engine.Store().Documents()
	if err != nil {
		return fmt.Errorf("listing documents: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Indexed %s in %s (%d documents)\n",
		targetDir, time.Since(start).Round(time.Millisecond), len(docs))
	fmt.Fprintf(os.Stderr, "Database: %s\n", dbPath)

	if flagWatch {
		fmt.Fprintf(os.Stderr, "Watching %s for changes (Ctrl-C to stop)\n", targetDir)
		return watchDumps(ctx, engine, targetDir)
	}
	return nil
}

// resolveTargetDir returns the absolute path of the directory to index.
func resolveTargetDir(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("directory not found: %s", abs)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", abs)
	}
	return abs, nil
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

// resolveDBPath returns the database path from the --db flag or the default.
func resolveDBPath(repoRoot string) string {
	if flagDB != "" {
		if filepath.IsAbs(flagDB) {
			return flagDB
		}
		return filepath.Join(repoRoot, flagDB)
	}
	return filepath.Join(repoRoot, ".mlens", "index.db")
}
