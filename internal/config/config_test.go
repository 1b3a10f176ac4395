package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default("/tmp/tavla.db")
	if cfg.Database.Path != "/tmp/tavla.db" {
		t.Fatalf("unexpected db path %q", cfg.Database.Path)
	}
	if len(cfg.Board.DefaultColumns) != 3 {
		t.Fatalf("unexpected default columns %#v", cfg.Board.DefaultColumns)
	}
	if cfg.Drag.CopyPayloadToClipboard {
		t.Fatal("expected clipboard payload disabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if cfg.SaveInterval() != 150*time.Millisecond {
		t.Fatalf("unexpected save interval %v", cfg.SaveInterval())
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	defaults := Default("/tmp/tavla.db")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"), defaults)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.Path != defaults.Database.Path {
		t.Fatalf("expected default db path, got %q", cfg.Database.Path)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[database]
path = "/custom/tavla.db"

[logging]
level = "DEBUG"

[board]
default_columns = [" Backlog ", "", "Shipped"]
column_width = 32

[drag]
copy_payload_to_clipboard = true
highlight_color = "#abc"

[server]
http_bind = "0.0.0.0:9000"

[persist]
debounce_ms = 20
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(path, Default("/tmp/default.db"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.Path != "/custom/tavla.db" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected config %#v", cfg)
	}
	if strings.Join(cfg.Board.DefaultColumns, ",") != "Backlog,Shipped" {
		t.Fatalf("unexpected columns %#v", cfg.Board.DefaultColumns)
	}
	if !cfg.Drag.CopyPayloadToClipboard || cfg.Drag.DragColor != "#F25D94" {
		t.Fatalf("unexpected drag config %#v", cfg.Drag)
	}
	if cfg.Server.MCPEndpoint != "/mcp" || cfg.SaveInterval() != 20*time.Millisecond {
		t.Fatalf("unexpected server/persist config %#v %#v", cfg.Server, cfg.Persist)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"level":    "[logging]\nlevel = \"loud\"\n",
		"color":    "[drag]\nhighlight_color = \"purple\"\n",
		"bind":     "[server]\nhttp_bind = \"nope\"\n",
		"endpoint": "[server]\napi_endpoint = \"api\"\n",
		"width":    "[board]\ncolumn_width = 4\n",
		"debounce": "[persist]\ndebounce_ms = -1\n",
		"syntax":   "[board\n",
		"markdown": "[board]\nmarkdown_style = \"neon\"\n",
		"keys":     "[keys]\nboard_picker = \"v\"\nnew_board = \"v\"\n",
	}
	for name, content := range cases {
		path := filepath.Join(t.TempDir(), name+".toml")
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
		if _, err := Load(path, Default("/tmp/tavla.db")); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoadKeyOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := "[keys]\nboard_picker = \" ctrl+b \"\ncopy_card_id = \"Y\"\n\n[board]\nmarkdown_style = \"Light\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	cfg, err := Load(path, Default("/tmp/tavla.db"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Keys.BoardPicker != "ctrl+b" || cfg.Keys.NewBoard != "" || cfg.Keys.CopyCardID != "Y" {
		t.Fatalf("unexpected keys %#v", cfg.Keys)
	}
	if cfg.Board.MarkdownStyle != "light" {
		t.Fatalf("expected normalized markdown style, got %q", cfg.Board.MarkdownStyle)
	}
}

func TestWriteDefaultDoesNotOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	wrote, err := WriteDefault(path, Default("/tmp/tavla.db"))
	if err != nil || !wrote {
		t.Fatalf("WriteDefault() = %v, %v", wrote, err)
	}
	cfg, err := Load(path, Default("/other.db"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.Path != "/tmp/tavla.db" {
		t.Fatalf("unexpected db path %q", cfg.Database.Path)
	}
	wrote, err = WriteDefault(path, Default("/x.db"))
	if err != nil || wrote {
		t.Fatalf("second WriteDefault() = %v, %v", wrote, err)
	}
}
