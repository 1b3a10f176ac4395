package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config is the persisted TOML configuration.
type Config struct {
	Database DatabaseConfig `toml:"database"`
	Logging  LoggingConfig  `toml:"logging"`
	Board    BoardConfig    `toml:"board"`
	Drag     DragConfig     `toml:"drag"`
	Server   ServerConfig   `toml:"server"`
	Persist  PersistConfig  `toml:"persist"`
	Keys     KeyConfig      `toml:"keys"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type LoggingConfig struct {
	Level   string        `toml:"level"`
	DevFile DevFileConfig `toml:"dev_file"`
}

type DevFileConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

type BoardConfig struct {
	DefaultColumns   []string `toml:"default_columns"`
	ShowDescriptions bool     `toml:"show_descriptions"`
	ColumnWidth      int      `toml:"column_width"`
	MarkdownStyle    string   `toml:"markdown_style"`
}

// DragConfig controls drag rendering and the drag payload.
type DragConfig struct {
	// CopyPayloadToClipboard publishes the dragged id to the system
	// clipboard when a drag starts.
	CopyPayloadToClipboard bool   `toml:"copy_payload_to_clipboard"`
	HighlightColor         string `toml:"highlight_color"`
	DragColor              string `toml:"drag_color"`
}

type ServerConfig struct {
	HTTPBind    string `toml:"http_bind"`
	APIEndpoint string `toml:"api_endpoint"`
	MCPEndpoint string `toml:"mcp_endpoint"`
}

type PersistConfig struct {
	DebounceMS int `toml:"debounce_ms"`
}

// KeyConfig holds TUI key overrides. Blank values keep the built-in keys.
type KeyConfig struct {
	BoardPicker string `toml:"board_picker"`
	NewBoard    string `toml:"new_board"`
	CopyCardID  string `toml:"copy_card_id"`
}

var logLevels = []string{"debug", "info", "warn", "error", "fatal"}

var markdownStyles = []string{"dark", "light", "notty", "ascii", "dracula", "pink", "tokyo-night"}

// Default returns the built-in configuration.
func Default(dbPath string) Config {
	return Config{
		Database: DatabaseConfig{
			Path: dbPath,
		},
		Logging: LoggingConfig{
			Level: "info",
			DevFile: DevFileConfig{
				Enabled: true,
				Dir:     ".tavla/log",
			},
		},
		Board: BoardConfig{
			DefaultColumns:   []string{"To Do", "In Progress", "Done"},
			ShowDescriptions: true,
			ColumnWidth:      28,
			MarkdownStyle:    "dark",
		},
		Drag: DragConfig{
			CopyPayloadToClipboard: false,
			HighlightColor:         "#7D56F4",
			DragColor:              "#F25D94",
		},
		Server: ServerConfig{
			HTTPBind:    "127.0.0.1:5437",
			APIEndpoint: "/api/v1",
			MCPEndpoint: "/mcp",
		},
		Persist: PersistConfig{
			DebounceMS: 150,
		},
	}
}

// Load reads path over defaults. A missing or empty file yields defaults.
func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, nil
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c *Config) normalize() {
	c.Database.Path = strings.TrimSpace(c.Database.Path)
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	columns := make([]string, 0, len(c.Board.DefaultColumns))
	for _, title := range c.Board.DefaultColumns {
		if title = strings.TrimSpace(title); title != "" {
			columns = append(columns, title)
		}
	}
	c.Board.DefaultColumns = columns
	c.Board.MarkdownStyle = strings.ToLower(strings.TrimSpace(c.Board.MarkdownStyle))
	c.Keys.BoardPicker = strings.TrimSpace(c.Keys.BoardPicker)
	c.Keys.NewBoard = strings.TrimSpace(c.Keys.NewBoard)
	c.Keys.CopyCardID = strings.TrimSpace(c.Keys.CopyCardID)
	c.Server.APIEndpoint = strings.TrimSpace(c.Server.APIEndpoint)
	c.Server.MCPEndpoint = strings.TrimSpace(c.Server.MCPEndpoint)
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("database path is required")
	}
	if !slices.Contains(logLevels, strings.ToLower(strings.TrimSpace(c.Logging.Level))) {
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}

	seen := map[string]struct{}{}
	for idx, title := range c.Board.DefaultColumns {
		title = strings.TrimSpace(title)
		if title == "" {
			return fmt.Errorf("board.default_columns[%d] is required", idx)
		}
		if _, ok := seen[title]; ok {
			return fmt.Errorf("board.default_columns[%d] is duplicated: %s", idx, title)
		}
		seen[title] = struct{}{}
	}
	if c.Board.ColumnWidth != 0 && (c.Board.ColumnWidth < 12 || c.Board.ColumnWidth > 80) {
		return fmt.Errorf("board.column_width must be between 12 and 80, got %d", c.Board.ColumnWidth)
	}
	if style := c.Board.MarkdownStyle; style != "" && !slices.Contains(markdownStyles, style) {
		return fmt.Errorf("invalid board.markdown_style: %q", style)
	}

	keys := map[string]string{}
	for _, binding := range []struct{ name, value string }{
		{"keys.board_picker", c.Keys.BoardPicker},
		{"keys.new_board", c.Keys.NewBoard},
		{"keys.copy_card_id", c.Keys.CopyCardID},
	} {
		if binding.value == "" {
			continue
		}
		if other, ok := keys[binding.value]; ok {
			return fmt.Errorf("%s duplicates %s: %q", binding.name, other, binding.value)
		}
		keys[binding.value] = binding.name
	}

	for name, color := range map[string]string{"drag.highlight_color": c.Drag.HighlightColor, "drag.drag_color": c.Drag.DragColor} {
		if color != "" && !isHexColor(color) {
			return fmt.Errorf("invalid %s: %q", name, color)
		}
	}

	if bind := strings.TrimSpace(c.Server.HTTPBind); bind != "" {
		if _, _, err := net.SplitHostPort(bind); err != nil {
			return fmt.Errorf("invalid server.http_bind %q: %w", bind, err)
		}
	}
	for name, endpoint := range map[string]string{"server.api_endpoint": c.Server.APIEndpoint, "server.mcp_endpoint": c.Server.MCPEndpoint} {
		if endpoint != "" && !strings.HasPrefix(strings.TrimSpace(endpoint), "/") {
			return fmt.Errorf("%s must start with /: %q", name, endpoint)
		}
	}

	if c.Persist.DebounceMS < 0 {
		return fmt.Errorf("persist.debounce_ms must be >= 0, got %d", c.Persist.DebounceMS)
	}
	return nil
}

// SaveInterval returns the persistence batching window.
func (c Config) SaveInterval() time.Duration {
	return time.Duration(c.Persist.DebounceMS) * time.Millisecond
}

func isHexColor(v string) bool {
	v = strings.TrimSpace(v)
	if !strings.HasPrefix(v, "#") || (len(v) != 4 && len(v) != 7) {
		return false
	}
	for _, r := range v[1:] {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return false
		}
	}
	return true
}

// EnsureConfigDir creates the parent directory of path.
func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// WriteDefault writes cfg to path unless a file already exists there.
func WriteDefault(path string, cfg Config) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("stat config: %w", err)
	}
	if err := EnsureConfigDir(path); err != nil {
		return false, fmt.Errorf("create config dir: %w", err)
	}
	content, err := toml.Marshal(cfg)
	if err != nil {
		return false, fmt.Errorf("encode toml: %w", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return false, fmt.Errorf("write config: %w", err)
	}
	return true, nil
}
