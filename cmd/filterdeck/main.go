package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/fang"
	"github.com/evanschultz/filterdeck/internal/adapters/server"
	"github.com/evanschultz/filterdeck/internal/adapters/server/common"
	"github.com/evanschultz/filterdeck/internal/adapters/storage/sqlite"
	"github.com/evanschultz/filterdeck/internal/app"
	"github.com/evanschultz/filterdeck/internal/config"
	"github.com/evanschultz/filterdeck/internal/domain"
	"github.com/evanschultz/filterdeck/internal/editor"
	"github.com/evanschultz/filterdeck/internal/filterlist"
	"github.com/evanschultz/filterdeck/internal/platform"
	"github.com/evanschultz/filterdeck/internal/tui"
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

// serverRun stores the serve entrypoint.
var serverRun = server.Run

// main handles main.
func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}

// run builds the command tree and executes args against it.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	root := newRootCommand(stdout, stderr)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return fang.Execute(
		ctx,
		root,
		fang.WithVersion(version),
		fang.WithoutManpage(),
		fang.WithNotifySignal(os.Interrupt, syscall.SIGTERM),
	)
}

// globalFlags holds flags shared by every command.
type globalFlags struct {
	configPath string
	dbPath     string
	appName    string
	devMode    bool
}

// newRootCommand builds the filterdeck command tree.
func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	flags := &globalFlags{appName: platform.DefaultAppName, devMode: version == "dev"}
	if envDev, ok := parseBoolEnv("FILTERDECK_DEV_MODE"); ok {
		flags.devMode = envDev
	}
	if envApp := strings.TrimSpace(os.Getenv("FILTERDECK_APP_NAME")); envApp != "" {
		flags.appName = envApp
	}

	root := &cobra.Command{
		Use:           "filterdeck",
		Short:         "Edit ad-blocking filter lists in the terminal",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context(), flags, stderr)
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "path to config TOML")
	pf.StringVar(&flags.dbPath, "db", "", "path to sqlite database")
	pf.StringVar(&flags.appName, "app", flags.appName, "application name for config/data path resolution")
	pf.BoolVar(&flags.devMode, "dev", flags.devMode, "use dev mode paths (<app>-dev)")

	root.AddCommand(
		newPathsCommand(flags, stdout),
		newImportCommand(flags, stdout, stderr),
		newExportCommand(flags, stdout, stderr),
		newHistoryCommand(flags, stdout, stderr),
		newRenameCommand(flags, stdout, stderr),
		newBackupCommand(flags, stdout, stderr),
		newRestoreCommand(flags, stderr),
		newServeCommand(flags, stderr),
		newVersionCommand(stdout),
	)
	return root
}

// newPathsCommand prints resolved runtime paths.
func newPathsCommand(flags *globalFlags, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print config, data, and database paths",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			paths, err := resolvePaths(flags)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(stdout, "app: %s\n", flags.appName)
			_, _ = fmt.Fprintf(stdout, "dev_mode: %t\n", flags.devMode)
			_, _ = fmt.Fprintf(stdout, "config: %s\n", paths.ConfigPath)
			_, _ = fmt.Fprintf(stdout, "data_dir: %s\n", paths.DataDir)
			_, _ = fmt.Fprintf(stdout, "db: %s\n", paths.DBPath)
			_, _ = fmt.Fprintf(stdout, "log_dir: %s\n", paths.LogDir)
			return nil
		},
	}
}

// newImportCommand appends the rules of a list file to an editable subscription.
func newImportCommand(flags *globalFlags, stdout, stderr io.Writer) *cobra.Command {
	var inPath, subRef string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import filters from an Adblock-style list file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd.Context(), flags, stderr, "import", func(ctx context.Context, rt *runtimeEnv) error {
				return runImport(ctx, rt.svc, inPath, subRef, stdout)
			})
		},
	}
	cmd.Flags().StringVar(&inPath, "file", "", "filter list file to import ('-' for stdin)")
	cmd.Flags().StringVar(&subRef, "subscription", "", "subscription id or title (default list when empty)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// newExportCommand writes a subscription as a list file.
func newExportCommand(flags *globalFlags, stdout, stderr io.Writer) *cobra.Command {
	var outPath, subRef string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a subscription as an Adblock-style list file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd.Context(), flags, stderr, "export", func(ctx context.Context, rt *runtimeEnv) error {
				return runExport(ctx, rt.svc, subRef, outPath, stdout)
			})
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "-", "output file path ('-' for stdout)")
	cmd.Flags().StringVar(&subRef, "subscription", "", "subscription id or title (default list when empty)")
	return cmd
}

// newHistoryCommand prints recent change events of a subscription.
func newHistoryCommand(flags *globalFlags, stdout, stderr io.Writer) *cobra.Command {
	var subRef string
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent edits of a subscription",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd.Context(), flags, stderr, "history", func(ctx context.Context, rt *runtimeEnv) error {
				return runHistory(ctx, rt.svc, subRef, limit, stdout)
			})
		},
	}
	cmd.Flags().StringVar(&subRef, "subscription", "", "subscription id or title (default list when empty)")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of events")
	return cmd
}

// newRenameCommand retitles a subscription.
func newRenameCommand(flags *globalFlags, stdout, stderr io.Writer) *cobra.Command {
	var subRef, title string
	cmd := &cobra.Command{
		Use:   "rename",
		Short: "Change a subscription's title",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd.Context(), flags, stderr, "rename", func(ctx context.Context, rt *runtimeEnv) error {
				return runRename(ctx, rt.svc, subRef, title, stdout)
			})
		},
	}
	cmd.Flags().StringVar(&subRef, "subscription", "", "subscription id or title (default list when empty)")
	cmd.Flags().StringVar(&title, "title", "", "new subscription title")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

// newBackupCommand writes a JSON snapshot of every subscription.
func newBackupCommand(flags *globalFlags, stdout, stderr io.Writer) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Write a JSON snapshot of every subscription and filter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd.Context(), flags, stderr, "backup", func(ctx context.Context, rt *runtimeEnv) error {
				return runBackup(ctx, rt.svc, outPath, stdout)
			})
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "-", "output file path ('-' for stdout)")
	return cmd
}

// newRestoreCommand merges a JSON snapshot into the database.
func newRestoreCommand(flags *globalFlags, stderr io.Writer) *cobra.Command {
	var inPath string
	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Merge a JSON snapshot written by backup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd.Context(), flags, stderr, "restore", func(ctx context.Context, rt *runtimeEnv) error {
				return runRestore(ctx, rt.svc, inPath)
			})
		},
	}
	cmd.Flags().StringVar(&inPath, "in", "", "input snapshot JSON file")
	_ = cmd.MarkFlagRequired("in")
	return cmd
}

// serveFlags holds serve command flags.
type serveFlags struct {
	httpBind    string
	apiEndpoint string
	mcpEndpoint string
	readOnly    bool
}

// newServeCommand serves the filter HTTP API and MCP tools until interrupted.
func newServeCommand(flags *globalFlags, stderr io.Writer) *cobra.Command {
	sf := &serveFlags{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the filter HTTP API and MCP tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd.Context(), flags, stderr, "serve", func(ctx context.Context, rt *runtimeEnv) error {
				return runServe(ctx, rt, sf)
			})
		},
	}
	cmd.Flags().StringVar(&sf.httpBind, "http", "127.0.0.1:8080", "HTTP listen address")
	cmd.Flags().StringVar(&sf.apiEndpoint, "api-endpoint", "/api/v1", "HTTP API base path")
	cmd.Flags().StringVar(&sf.mcpEndpoint, "mcp-endpoint", "/mcp", "MCP streamable HTTP path")
	cmd.Flags().BoolVar(&sf.readOnly, "read-only", false, "expose list queries only")
	return cmd
}

// runServe blocks serving the filter service until ctx is canceled.
func runServe(ctx context.Context, rt *runtimeEnv, sf *serveFlags) error {
	cfg := server.Config{
		HTTPBind:      sf.httpBind,
		APIEndpoint:   sf.apiEndpoint,
		MCPEndpoint:   sf.mcpEndpoint,
		ServerName:    "filterdeck",
		ServerVersion: version,
	}
	deps := server.Dependencies{
		Filters:  common.NewAppServiceAdapter(rt.svc),
		ReadOnly: sf.readOnly,
		Logger:   rt.logger.ServerLogger(),
	}
	if err := serverRun(ctx, cfg, deps); err != nil {
		return fmt.Errorf("serve filters: %w", err)
	}
	return nil
}

// newVersionCommand prints the build version.
func newVersionCommand(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			_, _ = fmt.Fprintf(stdout, "filterdeck %s\n", version)
			return nil
		},
	}
}

// runtimeEnv is the resolved state shared by commands that touch the database.
type runtimeEnv struct {
	paths      platform.Paths
	configPath string
	cfg        config.Config
	logger     *runtimeLogger
	svc        *app.Service
}

// withRuntime resolves config, logging, and storage, runs fn, then releases them.
func withRuntime(ctx context.Context, flags *globalFlags, stderr io.Writer, command string, fn func(context.Context, *runtimeEnv) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	paths, err := resolvePaths(flags)
	if err != nil {
		return err
	}

	configPath := strings.TrimSpace(flags.configPath)
	if configPath == "" {
		if envPath := strings.TrimSpace(os.Getenv("FILTERDECK_CONFIG")); envPath != "" {
			configPath = envPath
		} else {
			configPath = paths.ConfigPath
		}
	}
	dbPath := strings.TrimSpace(flags.dbPath)
	dbOverridden := dbPath != ""
	if !dbOverridden {
		if envPath := strings.TrimSpace(os.Getenv("FILTERDECK_DB_PATH")); envPath != "" {
			dbPath = envPath
			dbOverridden = true
		} else {
			dbPath = paths.DBPath
		}
	}

	cfg, err := config.Load(configPath, config.Default(dbPath))
	if err != nil {
		return fmt.Errorf("load config %q: %w", configPath, err)
	}
	if dbOverridden {
		cfg.Database.Path = dbPath
	}

	logger, err := newRuntimeLogger(stderr, flags.appName, flags.devMode, cfg.Logging, time.Now)
	if err != nil {
		return fmt.Errorf("configure runtime logger: %w", err)
	}
	if command == "tui" {
		// Runtime logs stay in the dev-file sink while the editor owns the terminal.
		logger.SetConsoleEnabled(false)
	}
	defer func() {
		if closeErr := logger.Close(); closeErr != nil && logger.shouldLogToSink(logger.consoleSink) {
			_, _ = fmt.Fprintf(stderr, "warning: close runtime log sink: %v\n", closeErr)
		}
	}()

	logger.Info("startup configuration resolved", "app", flags.appName, "dev_mode", flags.devMode, "command", command)
	logger.Debug("runtime paths resolved", "config_path", configPath, "data_dir", paths.DataDir, "db_path", dbPath)
	if devPath := logger.DevLogPath(); devPath != "" {
		logger.Info("dev file logging enabled", "path", devPath)
	}

	logger.Info("opening sqlite repository", "db_path", cfg.Database.Path)
	repo, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Error("sqlite open failed", "db_path", cfg.Database.Path, "err", err)
		return fmt.Errorf("open sqlite repository: %w", err)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			logger.Warn("sqlite close failed", "db_path", cfg.Database.Path, "err", closeErr)
		}
	}()

	rt := &runtimeEnv{
		paths:      paths,
		configPath: configPath,
		cfg:        cfg,
		logger:     logger,
		svc:        app.NewService(repo, uuid.NewString, nil),
	}
	logger.Info("command flow start", "command", command)
	if err := fn(ctx, rt); err != nil {
		logger.Error("command flow failed", "command", command, "err", err)
		return fmt.Errorf("run %s command: %w", command, err)
	}
	logger.Info("command flow complete", "command", command)
	return nil
}

// runTUI starts the interactive editor.
func runTUI(ctx context.Context, flags *globalFlags, stderr io.Writer) error {
	return withRuntime(ctx, flags, stderr, "tui", func(_ context.Context, rt *runtimeEnv) error {
		opts, err := tuiOptions(rt.cfg, runtime.GOOS)
		if err != nil {
			return err
		}
		opts = append(opts, tui.WithLogger(rt.logger.EditorLogger()))
		m := tui.NewModel(rt.svc, opts...)
		rt.logger.Info("starting tui program loop")
		if _, err := programFactory(m).Run(); err != nil {
			return fmt.Errorf("run tui program: %w", err)
		}
		return nil
	})
}

// tuiOptions maps config values onto TUI options.
func tuiOptions(cfg config.Config, goos string) ([]tui.Option, error) {
	accel, err := editor.ParseAccelerator(string(cfg.Keys.Accelerator), goos)
	if err != nil {
		return nil, fmt.Errorf("keys.accelerator: %w", err)
	}
	hidden := make([]editor.Column, 0, len(editor.Columns))
	visible := map[editor.Column]bool{
		editor.ColumnFilter:   cfg.Columns.Filter,
		editor.ColumnSlow:     cfg.Columns.Slow,
		editor.ColumnEnabled:  cfg.Columns.Enabled,
		editor.ColumnHitCount: cfg.Columns.HitCount,
		editor.ColumnLastHit:  cfg.Columns.LastHit,
	}
	for _, col := range editor.Columns {
		if !visible[col] {
			hidden = append(hidden, col)
		}
	}

	sortCfg := tui.SortConfig{}
	if raw := strings.TrimSpace(cfg.Sort.Column); raw != "" {
		col, err := editor.ParseColumn(raw)
		if err != nil {
			return nil, fmt.Errorf("sort.column: %w", err)
		}
		dir, err := editor.ParseSortDirection(cfg.Sort.Direction)
		if err != nil {
			return nil, fmt.Errorf("sort.direction: %w", err)
		}
		if dir == editor.SortNatural {
			dir = editor.SortAscending
		}
		sortCfg = tui.SortConfig{Column: col, Direction: dir}
	}

	return []tui.Option{
		tui.WithAccelerator(accel),
		tui.WithHiddenColumns(hidden...),
		tui.WithSort(sortCfg),
		tui.WithKeyConfig(tui.KeyConfig{
			Insert:    cfg.Keys.Insert,
			Edit:      cfg.Keys.Edit,
			Delete:    cfg.Keys.Delete,
			ToggleRow: cfg.Keys.ToggleRow,
			Copy:      cfg.Keys.Copy,
			Columns:   cfg.Keys.Columns,
		}),
		tui.WithBulkDeleteConfirm(cfg.Confirm.BulkDelete),
	}, nil
}

// runImport parses a list file and appends its rules.
func runImport(ctx context.Context, svc *app.Service, inPath, subRef string, stdout io.Writer) error {
	if strings.TrimSpace(inPath) == "" {
		return errors.New("--file is required")
	}
	var in io.Reader = os.Stdin
	if inPath != "-" {
		f, err := os.Open(inPath)
		if err != nil {
			return fmt.Errorf("open import file: %w", err)
		}
		defer func() { _ = f.Close() }()
		in = f
	}
	list, err := filterlist.Parse(in)
	if err != nil {
		return fmt.Errorf("parse import file: %w", err)
	}
	sub, err := resolveSubscription(ctx, svc, subRef)
	if err != nil {
		return err
	}
	added, err := svc.ImportFilters(ctx, sub.ID, list.Rules)
	if err != nil {
		return fmt.Errorf("import filters: %w", err)
	}
	_, _ = fmt.Fprintf(stdout, "imported %d filters into %s\n", added, sub.Title)
	return nil
}

// runExport writes a subscription's rules in list-file format.
func runExport(ctx context.Context, svc *app.Service, subRef, outPath string, stdout io.Writer) error {
	sub, err := resolveSubscription(ctx, svc, subRef)
	if err != nil {
		return err
	}
	rules, err := svc.ExportFilters(ctx, sub.ID)
	if err != nil {
		return fmt.Errorf("export filters: %w", err)
	}
	list := filterlist.List{Title: sub.Title, Rules: rules}

	if outPath == "" || outPath == "-" {
		if err := filterlist.Write(stdout, list); err != nil {
			return fmt.Errorf("write list to stdout: %w", err)
		}
		return nil
	}
	if err := config.EnsureConfigDir(outPath); err != nil {
		return fmt.Errorf("create export output dir: %w", err)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	if err := filterlist.Write(f, list); err != nil {
		_ = f.Close()
		return fmt.Errorf("write export file: %w", err)
	}
	return f.Close()
}

// runBackup encodes the snapshot as indented JSON.
func runBackup(ctx context.Context, svc *app.Service, outPath string, stdout io.Writer) error {
	snap, err := svc.ExportSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("export snapshot: %w", err)
	}
	encoded, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot json: %w", err)
	}
	encoded = append(encoded, '\n')

	if outPath == "" || outPath == "-" {
		if _, err := stdout.Write(encoded); err != nil {
			return fmt.Errorf("write snapshot to stdout: %w", err)
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create backup output dir: %w", err)
	}
	if err := os.WriteFile(outPath, encoded, 0o644); err != nil {
		return fmt.Errorf("write backup file: %w", err)
	}
	return nil
}

// runRestore decodes and merges one snapshot file.
func runRestore(ctx context.Context, svc *app.Service, inPath string) error {
	if strings.TrimSpace(inPath) == "" {
		return errors.New("--in is required")
	}
	content, err := os.ReadFile(inPath)
	if err != nil {
		return fmt.Errorf("read restore file: %w", err)
	}
	var snap app.Snapshot
	if err := json.Unmarshal(content, &snap); err != nil {
		return fmt.Errorf("decode snapshot json: %w", err)
	}
	if err := svc.ImportSnapshot(ctx, snap); err != nil {
		return fmt.Errorf("import snapshot: %w", err)
	}
	return nil
}

// runHistory prints the newest change events, one per line.
func runHistory(ctx context.Context, svc *app.Service, subRef string, limit int, stdout io.Writer) error {
	sub, err := resolveSubscription(ctx, svc, subRef)
	if err != nil {
		return err
	}
	events, err := svc.ListChangeEvents(ctx, sub.ID, limit)
	if err != nil {
		return fmt.Errorf("list change events: %w", err)
	}
	if len(events) == 0 {
		_, _ = fmt.Fprintf(stdout, "no changes in %s\n", sub.Title)
		return nil
	}
	for _, ev := range events {
		_, _ = fmt.Fprintf(stdout, "%s  %-6s  %s%s\n", ev.OccurredAt.UTC().Format(time.RFC3339), ev.Operation, ev.FilterID, formatMetadata(ev.Metadata))
	}
	return nil
}

// runRename retitles the referenced subscription.
func runRename(ctx context.Context, svc *app.Service, subRef, title string, stdout io.Writer) error {
	sub, err := resolveSubscription(ctx, svc, subRef)
	if err != nil {
		return err
	}
	renamed, err := svc.RenameSubscription(ctx, sub.ID, title)
	if err != nil {
		return fmt.Errorf("rename subscription: %w", err)
	}
	_, _ = fmt.Fprintf(stdout, "renamed %s to %s\n", sub.Title, renamed.Title)
	return nil
}

// formatMetadata renders event metadata as sorted key=value pairs.
func formatMetadata(meta map[string]string) string {
	if len(meta) == 0 {
		return ""
	}
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	var b strings.Builder
	for _, k := range keys {
		b.WriteString("  ")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(strconv.Quote(meta[k]))
	}
	return b.String()
}

// resolveSubscription finds a subscription by id or case-insensitive title; empty means the default list.
func resolveSubscription(ctx context.Context, svc *app.Service, ref string) (domain.Subscription, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return svc.EnsureDefaultSubscription(ctx)
	}
	subs, err := svc.ListSubscriptions(ctx)
	if err != nil {
		return domain.Subscription{}, err
	}
	for _, sub := range subs {
		if sub.ID == ref || strings.EqualFold(sub.Title, ref) {
			return sub, nil
		}
	}
	return domain.Subscription{}, fmt.Errorf("subscription %q: %w", ref, app.ErrNotFound)
}

// resolvePaths resolves platform paths from the global flags.
func resolvePaths(flags *globalFlags) (platform.Paths, error) {
	return platform.DefaultPathsWithOptions(platform.Options{
		AppName: flags.appName,
		DevMode: flags.devMode,
	})
}

// parseBoolEnv parses a boolean environment variable when it is set.
func parseBoolEnv(name string) (bool, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return false, false
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return value, true
}
