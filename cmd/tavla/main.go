package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/fang"
	"github.com/evanschultz/tavla/internal/adapters/storage/sqlite"
	"github.com/evanschultz/tavla/internal/app"
	"github.com/evanschultz/tavla/internal/config"
	"github.com/evanschultz/tavla/internal/platform"
	"github.com/evanschultz/tavla/internal/tui"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// version stores a package-level helper value.
var version = "dev"

// program represents program data used by this package.
type program interface {
	Run() (tea.Model, error)
}

// programFactory stores a package-level helper value.
var programFactory = func(m tea.Model) program {
	return tea.NewProgram(m)
}

// main handles main.
func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	configPath string
	dbPath     string
	appName    string
	devMode    bool
}

// run builds the command tree and executes args through fang.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	root := newRootCommand()
	root.SetArgs(args)
	root.SetIn(os.Stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return fang.Execute(ctx, root, fang.WithVersion(version))
}

// newRootCommand builds the tavla command tree.
func newRootCommand() *cobra.Command {
	opts := &rootOptions{appName: platform.DefaultAppName, devMode: version == "dev"}
	if envDev, ok := parseBoolEnv("TAVLA_DEV_MODE"); ok {
		opts.devMode = envDev
	}
	if envApp := strings.TrimSpace(os.Getenv("TAVLA_APP_NAME")); envApp != "" {
		opts.appName = envApp
	}

	root := &cobra.Command{
		Use:   "tavla",
		Short: "Drag-and-drop kanban boards in the terminal",
		Long: `tavla keeps named kanban boards in a local sqlite database.

Run without a subcommand to open the board view, where cards and columns
can be dragged with the mouse or moved with the keyboard.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd, opts)
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to config TOML")
	flags.StringVar(&opts.dbPath, "db", "", "path to sqlite database")
	flags.StringVar(&opts.appName, "app", opts.appName, "application name for config/data path resolution")
	flags.BoolVar(&opts.devMode, "dev", opts.devMode, "use dev mode paths (<app>-dev)")

	root.AddCommand(
		newPathsCommand(opts),
		newBoardsCommand(opts),
		newExportCommand(opts),
		newImportCommand(opts),
		newServeCommand(opts),
		newPaletteCommand(opts),
	)
	return root
}

// newPathsCommand prints resolved file locations.
func newPathsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print resolved config, data and database paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			paths, err := opts.paths()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "app: %s\n", opts.appName)
			_, _ = fmt.Fprintf(out, "dev_mode: %t\n", opts.devMode)
			_, _ = fmt.Fprintf(out, "config: %s\n", opts.resolveConfigPath(paths))
			_, _ = fmt.Fprintf(out, "data_dir: %s\n", paths.DataDir)
			_, _ = fmt.Fprintf(out, "state_dir: %s\n", paths.StateDir)
			db, _ := opts.resolveDBPath(paths)
			_, _ = fmt.Fprintf(out, "db: %s\n", db)
			return nil
		},
	}
}

// paths resolves per-user locations for the configured app name.
func (o *rootOptions) paths() (platform.Paths, error) {
	return platform.DefaultPathsWithOptions(platform.Options{
		AppName: o.appName,
		DevMode: o.devMode,
	})
}

// resolveConfigPath applies --config, then TAVLA_CONFIG, then the platform default.
func (o *rootOptions) resolveConfigPath(paths platform.Paths) string {
	if strings.TrimSpace(o.configPath) != "" {
		return o.configPath
	}
	if envPath := strings.TrimSpace(os.Getenv("TAVLA_CONFIG")); envPath != "" {
		return envPath
	}
	return paths.ConfigPath
}

// resolveDBPath applies --db, then TAVLA_DB_PATH, then the platform default.
// The bool reports whether the path overrides the config file.
func (o *rootOptions) resolveDBPath(paths platform.Paths) (string, bool) {
	if strings.TrimSpace(o.dbPath) != "" {
		return o.dbPath, true
	}
	if envPath := strings.TrimSpace(os.Getenv("TAVLA_DB_PATH")); envPath != "" {
		return envPath, true
	}
	return paths.DBPath, false
}

// runtimeDeps holds the opened storage, service and loggers for one command.
type runtimeDeps struct {
	cfg        config.Config
	// defaults is written to a missing config file; it keeps the platform
	// database path even when --db overrides it for this run.
	defaults   config.Config
	configPath string
	logger     *runtimeLogger
	repo       *sqlite.Repository
	persister  *app.Persister
	svc        *app.Service
}

// openRuntime resolves config, logging and storage for commands that touch boards.
func (o *rootOptions) openRuntime(cmd *cobra.Command, command string, tuiMode bool) (*runtimeDeps, error) {
	paths, err := o.paths()
	if err != nil {
		return nil, err
	}
	configPath := o.resolveConfigPath(paths)
	dbPath, dbOverridden := o.resolveDBPath(paths)

	cfg, err := config.Load(configPath, config.Default(dbPath))
	if err != nil {
		return nil, fmt.Errorf("load config %q: %w", configPath, err)
	}
	if dbOverridden {
		cfg.Database.Path = dbPath
	}

	logger, err := newRuntimeLogger(cmd.ErrOrStderr(), o.appName, o.devMode, cfg.Logging, time.Now)
	if err != nil {
		return nil, fmt.Errorf("configure runtime logger: %w", err)
	}
	if tuiMode {
		// Runtime logs stay in the dev-file sink while the board is on screen.
		logger.SetConsoleEnabled(false)
	}

	logger.Info("startup configuration resolved", "app", o.appName, "dev_mode", o.devMode, "command", command)
	logger.Debug("runtime paths resolved", "config_path", configPath, "data_dir", paths.DataDir, "db_path", dbPath)
	logger.Info("configuration loaded", "config_path", configPath, "db_path", cfg.Database.Path, "log_level", cfg.Logging.Level)
	if devPath := logger.DevLogPath(); devPath != "" {
		logger.Info("dev file logging enabled", "path", devPath)
	}

	logger.Info("opening sqlite repository", "db_path", cfg.Database.Path)
	repo, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Error("sqlite open failed", "db_path", cfg.Database.Path, "err", err)
		_ = logger.Close()
		return nil, fmt.Errorf("open sqlite repository: %w", err)
	}
	logger.Info("sqlite repository ready", "db_path", cfg.Database.Path, "migrations", "ensured")

	persister := app.NewPersister(repo, app.PersisterConfig{
		Interval: cfg.SaveInterval(),
		Logger:   logger.Component("persist"),
	})
	svc := app.NewService(repo, uuid.NewString, nil, app.ServiceConfig{
		DefaultColumns: cfg.Board.DefaultColumns,
		Persister:      persister,
	})
	logger.Debug("application service initialized", "default_columns", len(cfg.Board.DefaultColumns), "save_interval", cfg.SaveInterval())

	return &runtimeDeps{
		cfg:        cfg,
		defaults:   config.Default(paths.DBPath),
		configPath: configPath,
		logger:     logger,
		repo:       repo,
		persister:  persister,
		svc:        svc,
	}, nil
}

// Close flushes pending saves and releases storage and log files.
func (r *runtimeDeps) Close(ctx context.Context) error {
	if r == nil {
		return nil
	}
	var errs []error
	if err := r.persister.Close(ctx); err != nil {
		r.logger.Error("pending saves failed", "err", err)
		errs = append(errs, fmt.Errorf("flush pending saves: %w", err))
	}
	if err := r.repo.Close(); err != nil {
		r.logger.Warn("sqlite close failed", "db_path", r.cfg.Database.Path, "err", err)
		errs = append(errs, fmt.Errorf("close sqlite: %w", err))
	}
	if err := r.logger.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close runtime log sink: %w", err))
	}
	return errors.Join(errs...)
}

// withRuntime opens the runtime, runs fn and closes it.
func (o *rootOptions) withRuntime(cmd *cobra.Command, command string, tuiMode bool, fn func(*runtimeDeps) error) (err error) {
	deps, err := o.openRuntime(cmd, command, tuiMode)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := deps.Close(context.WithoutCancel(cmd.Context())); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	deps.logger.Info("command flow start", "command", command)
	if err := fn(deps); err != nil {
		deps.logger.Error("command flow failed", "command", command, "err", err)
		return fmt.Errorf("run %s command: %w", command, err)
	}
	deps.logger.Info("command flow complete", "command", command)
	return nil
}

// runTUI opens the board view.
func runTUI(cmd *cobra.Command, opts *rootOptions) error {
	return opts.withRuntime(cmd, "tui", true, func(deps *runtimeDeps) error {
		if wrote, err := config.WriteDefault(deps.configPath, deps.defaults); err != nil {
			deps.logger.Warn("default config write failed", "config_path", deps.configPath, "err", err)
		} else if wrote {
			deps.logger.Info("default config written", "config_path", deps.configPath)
		}

		m := tui.NewModel(
			deps.svc,
			tui.WithRuntimeConfig(toTUIRuntimeConfig(deps.cfg)),
			tui.WithLogger(deps.logger.Component("tui")),
		)
		deps.logger.Info("starting tui program loop")
		if _, err := programFactory(m).Run(); err != nil {
			return fmt.Errorf("run tui program: %w", err)
		}
		return nil
	})
}

// toTUIRuntimeConfig maps persisted config values into runtime model options.
func toTUIRuntimeConfig(cfg config.Config) tui.RuntimeConfig {
	return tui.RuntimeConfig{
		ShowDescriptions: cfg.Board.ShowDescriptions,
		ColumnWidth:      cfg.Board.ColumnWidth,
		HighlightColor:   cfg.Drag.HighlightColor,
		DragColor:        cfg.Drag.DragColor,
		MarkdownStyle:    cfg.Board.MarkdownStyle,
		CopyPayload:      cfg.Drag.CopyPayloadToClipboard,
		Keys: tui.KeyConfig{
			BoardPicker: cfg.Keys.BoardPicker,
			NewBoard:    cfg.Keys.NewBoard,
			CopyCardID:  cfg.Keys.CopyCardID,
		},
	}
}

// parseBoolEnv parses input into a normalized form.
func parseBoolEnv(name string) (bool, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
