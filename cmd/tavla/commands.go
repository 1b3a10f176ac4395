package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/evanschultz/tavla/internal/adapters/server"
	servercommon "github.com/evanschultz/tavla/internal/adapters/server/common"
	"github.com/evanschultz/tavla/internal/app"
	"github.com/evanschultz/tavla/internal/domain"
	"github.com/spf13/cobra"
)

// newBoardsCommand groups board management subcommands.
func newBoardsCommand(opts *rootOptions) *cobra.Command {
	boards := &cobra.Command{
		Use:     "boards",
		Aliases: []string{"board"},
		Short:   "Manage boards",
	}
	boards.AddCommand(
		newBoardsListCommand(opts),
		newBoardsCreateCommand(opts),
		newBoardsRenameCommand(opts),
		newBoardsDeleteCommand(opts),
		newBoardsSelectCommand(opts),
		newBoardsEventsCommand(opts),
	)
	return boards
}

// boardListEntry is the JSON shape of one listed board.
type boardListEntry struct {
	Key       string    `json:"key"`
	Name      string    `json:"name"`
	Current   bool      `json:"current"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newBoardsListCommand(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List boards",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withRuntime(cmd, "boards list", false, func(deps *runtimeDeps) error {
				ctx := cmd.Context()
				boards, err := deps.svc.ListBoards(ctx)
				if err != nil {
					return err
				}
				currentKey := ""
				if current, err := deps.svc.CurrentBoard(ctx); err == nil {
					currentKey = current.Key
				} else if !errors.Is(err, app.ErrNoActiveBoard) {
					return err
				}

				entries := make([]boardListEntry, 0, len(boards))
				for _, b := range boards {
					entries = append(entries, boardListEntry{
						Key:       b.Key,
						Name:      b.Name,
						Current:   b.Key == currentKey,
						UpdatedAt: b.UpdatedAt,
					})
				}
				if asJSON {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(entries)
				}
				return writeBoardTable(cmd.OutOrStdout(), entries)
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print boards as JSON")
	return cmd
}

// writeBoardTable renders listed boards as a bordered table.
func writeBoardTable(out io.Writer, entries []boardListEntry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(out, "no boards yet")
		return err
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("62"))).
		Headers("", "Key", "Name", "Updated").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230")).Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	for _, e := range entries {
		marker := ""
		if e.Current {
			marker = "•"
		}
		t.Row(marker, e.Key, e.Name, e.UpdatedAt.Local().Format(time.DateTime))
	}
	_, err := fmt.Fprintln(out, t.Render())
	return err
}

func newBoardsCreateCommand(opts *rootOptions) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "create [key]",
		Short: "Create a board; a blank key is generated",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := ""
			if len(args) == 1 {
				key = args[0]
			}
			return opts.withRuntime(cmd, "boards create", false, func(deps *runtimeDeps) error {
				b, err := deps.svc.CreateBoard(cmd.Context(), key, name)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "created board %s (%s)\n", b.Key, b.Name)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name (defaults to the key)")
	return cmd
}

func newBoardsRenameCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <key> <name>",
		Short: "Change a board's display name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withRuntime(cmd, "boards rename", false, func(deps *runtimeDeps) error {
				b, err := deps.svc.RenameBoard(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "renamed board %s to %s\n", b.Key, b.Name)
				return err
			})
		},
	}
}

func newBoardsDeleteCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <key>",
		Aliases: []string{"rm"},
		Short:   "Delete a board with its columns, cards and history",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withRuntime(cmd, "boards delete", false, func(deps *runtimeDeps) error {
				if err := deps.svc.DeleteBoard(cmd.Context(), args[0]); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "deleted board %s\n", args[0])
				return err
			})
		},
	}
}

func newBoardsSelectCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "select <key>",
		Short: "Make a board the one the TUI opens",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withRuntime(cmd, "boards select", false, func(deps *runtimeDeps) error {
				b, err := deps.svc.SelectBoard(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "current board %s\n", b.Key)
				return err
			})
		},
	}
}

func newBoardsEventsCommand(opts *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "events <key>",
		Short: "Show recent changes recorded for a board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withRuntime(cmd, "boards events", false, func(deps *runtimeDeps) error {
				events, err := deps.svc.ListChangeEvents(cmd.Context(), args[0], limit)
				if err != nil {
					return err
				}
				return writeEvents(cmd.OutOrStdout(), events)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of events")
	return cmd
}

// writeEvents prints one change event per line, newest first.
func writeEvents(out io.Writer, events []domain.ChangeEvent) error {
	if len(events) == 0 {
		_, err := fmt.Fprintln(out, "no changes recorded")
		return err
	}
	for _, ev := range events {
		line := fmt.Sprintf("%s  %-6s %-7s %s",
			ev.OccurredAt.Local().Format(time.DateTime),
			ev.Operation,
			ev.SubjectKind,
			ev.SubjectID,
		)
		if meta := formatMetadata(ev.Metadata); meta != "" {
			line += "  " + meta
		}
		if _, err := fmt.Fprintln(out, line); err != nil {
			return err
		}
	}
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
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+strconv.Quote(meta[k]))
	}
	return strings.Join(parts, " ")
}

func newExportCommand(opts *rootOptions) *cobra.Command {
	var (
		outPath string
		format  string
		boards  []string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write boards to a JSON or YAML snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snapFormat, err := resolveSnapshotFormat(format, outPath)
			if err != nil {
				return err
			}
			return opts.withRuntime(cmd, "export", false, func(deps *runtimeDeps) error {
				snap, err := deps.svc.ExportSnapshot(cmd.Context(), boards...)
				if err != nil {
					return fmt.Errorf("export snapshot: %w", err)
				}
				if outPath == "" || outPath == "-" {
					return app.EncodeSnapshot(cmd.OutOrStdout(), snap, snapFormat)
				}
				if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
					return fmt.Errorf("create export dir: %w", err)
				}
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("create export file: %w", err)
				}
				if err := app.EncodeSnapshot(f, snap, snapFormat); err != nil {
					_ = f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return fmt.Errorf("close export file: %w", err)
				}
				deps.logger.Info("snapshot exported", "path", outPath, "boards", len(snap.Boards), "format", snapFormat)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "-", "output file path ('-' for stdout)")
	cmd.Flags().StringVar(&format, "format", "", "snapshot format: json or yaml (defaults from --out extension)")
	cmd.Flags().StringSliceVar(&boards, "board", nil, "board key to export (repeatable; default all)")
	return cmd
}

func newImportCommand(opts *rootOptions) *cobra.Command {
	var (
		inPath string
		format string
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load boards from a JSON or YAML snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(inPath) == "" {
				return errors.New("--in is required")
			}
			snapFormat, err := resolveSnapshotFormat(format, inPath)
			if err != nil {
				return err
			}
			var in io.Reader = cmd.InOrStdin()
			if inPath != "-" {
				f, err := os.Open(inPath)
				if err != nil {
					return fmt.Errorf("open import file: %w", err)
				}
				defer func() {
					_ = f.Close()
				}()
				in = f
			}
			snap, err := app.DecodeSnapshot(in, snapFormat)
			if err != nil {
				return fmt.Errorf("decode snapshot: %w", err)
			}
			return opts.withRuntime(cmd, "import", false, func(deps *runtimeDeps) error {
				if err := deps.svc.ImportSnapshot(cmd.Context(), snap); err != nil {
					return fmt.Errorf("import snapshot: %w", err)
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "imported %d board(s)\n", len(snap.Boards))
				return err
			})
		},
	}
	cmd.Flags().StringVar(&inPath, "in", "", "input snapshot path ('-' for stdin)")
	cmd.Flags().StringVar(&format, "format", "", "snapshot format: json or yaml (defaults from --in extension)")
	return cmd
}

// resolveSnapshotFormat prefers an explicit --format over the file extension.
func resolveSnapshotFormat(raw, path string) (app.SnapshotFormat, error) {
	if strings.TrimSpace(raw) != "" {
		return app.ParseSnapshotFormat(raw)
	}
	return app.FormatFromPath(path), nil
}

func newServeCommand(opts *rootOptions) *cobra.Command {
	var (
		bind        string
		apiEndpoint string
		mcpEndpoint string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve boards over HTTP and MCP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return opts.withRuntime(cmd, "serve", false, func(deps *runtimeDeps) error {
				cfg := server.Config{
					HTTPBind:      firstNonEmpty(bind, deps.cfg.Server.HTTPBind),
					APIEndpoint:   firstNonEmpty(apiEndpoint, deps.cfg.Server.APIEndpoint),
					MCPEndpoint:   firstNonEmpty(mcpEndpoint, deps.cfg.Server.MCPEndpoint),
					ServerName:    "tavla",
					ServerVersion: version,
				}
				deps.logger.Info("serve configuration", "bind", cfg.HTTPBind, "api", cfg.APIEndpoint, "mcp", cfg.MCPEndpoint)
				return server.Run(ctx, cfg, server.Dependencies{
					Boards: servercommon.NewAppServiceAdapter(deps.svc),
					Ready:  deps.repo.Ping,
					Logger: deps.logger.Component("server"),
				})
			})
		},
	}
	cmd.Flags().StringVar(&bind, "bind", "", "listen address (defaults to server.http_bind)")
	cmd.Flags().StringVar(&apiEndpoint, "api-endpoint", "", "REST base path (defaults to server.api_endpoint)")
	cmd.Flags().StringVar(&mcpEndpoint, "mcp-endpoint", "", "MCP path (defaults to server.mcp_endpoint)")
	return cmd
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
