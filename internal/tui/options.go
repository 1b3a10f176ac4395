package tui

import (
	"strings"

	"github.com/charmbracelet/log"
)

// RuntimeConfig holds the display and drag settings applied to a Model.
type RuntimeConfig struct {
	ShowDescriptions bool
	ColumnWidth      int
	HighlightColor   string
	DragColor        string
	MarkdownStyle    string
	// CopyPayload publishes the dragged id to the system clipboard.
	CopyPayload bool
	Keys        KeyConfig
}

// KeyConfig holds optional key overrides. Blank fields keep defaults.
type KeyConfig struct {
	BoardPicker string
	NewBoard    string
	CopyCardID  string
}

// Option defines a functional option for model configuration.
type Option func(*Model)

// DefaultRuntimeConfig returns the built-in display settings.
func DefaultRuntimeConfig() RuntimeConfig {
	return RuntimeConfig{
		ShowDescriptions: true,
		ColumnWidth:      28,
		HighlightColor:   "#7D56F4",
		DragColor:        "#F25D94",
		MarkdownStyle:    "dark",
	}
}

// WithRuntimeConfig applies display and drag settings.
func WithRuntimeConfig(cfg RuntimeConfig) Option {
	return func(m *Model) {
		m.applyRuntimeConfig(cfg)
	}
}

// WithLogger routes model diagnostics to logger.
func WithLogger(logger *log.Logger) Option {
	return func(m *Model) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithClipboardWriter replaces the clipboard sink used for drag payloads and copy actions.
func WithClipboardWriter(write func(string) error) Option {
	return func(m *Model) {
		if write != nil {
			m.writeClipboard = write
		}
	}
}

// applyRuntimeConfig stores cfg after filling blank values from defaults.
func (m *Model) applyRuntimeConfig(cfg RuntimeConfig) {
	defaults := DefaultRuntimeConfig()
	if cfg.ColumnWidth <= 0 {
		cfg.ColumnWidth = defaults.ColumnWidth
	}
	if strings.TrimSpace(cfg.HighlightColor) == "" {
		cfg.HighlightColor = defaults.HighlightColor
	}
	if strings.TrimSpace(cfg.DragColor) == "" {
		cfg.DragColor = defaults.DragColor
	}
	if strings.TrimSpace(cfg.MarkdownStyle) == "" {
		cfg.MarkdownStyle = defaults.MarkdownStyle
	}
	m.runtime = cfg
	if m.markdown != nil {
		m.markdown.setStyle(cfg.MarkdownStyle)
	}
	m.keys.applyConfig(cfg.Keys)
}
