package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/evanschultz/tavla/internal/config"
	"github.com/spf13/cobra"
)

// boardColor names one color the board view draws with.
type boardColor struct {
	role  string
	value string
	usage string
}

// boardColors lists the colors in use for cfg: the configurable drag
// colors first, then the fixed chrome colors.
func boardColors(cfg config.Config) []boardColor {
	return []boardColor{
		{"highlight", cfg.Drag.HighlightColor, "drop target under the pointer"},
		{"drag", cfg.Drag.DragColor, "lifted card or column"},
		{"selected", "62", "keyboard selection border"},
		{"muted", "241", "descriptions and help"},
		{"dim", "239", "idle column borders"},
	}
}

func newPaletteCommand(opts *rootOptions) *cobra.Command {
	var show256 bool
	cmd := &cobra.Command{
		Use:   "palette",
		Short: "Preview board colors and the ANSI 256 palette",
		Long: `palette renders the highlight and drag colors from the config file next
to the fixed board colors, so drag.highlight_color and drag.drag_color can be
tuned against the terminal theme.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			paths, err := opts.paths()
			if err != nil {
				return err
			}
			dbPath, _ := opts.resolveDBPath(paths)
			configPath := opts.resolveConfigPath(paths)
			cfg, err := config.Load(configPath, config.Default(dbPath))
			if err != nil {
				return fmt.Errorf("load config %q: %w", configPath, err)
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintln(out, "=== BOARD COLORS ===")
			_, _ = fmt.Fprintln(out, renderBoardColors(boardColors(cfg)))
			if show256 {
				_, _ = fmt.Fprintln(out, "\n=== ANSI 256 COLORS ===")
				write256Colors(out)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&show256, "all", false, "also print the ANSI 256 color grid")
	return cmd
}

// renderBoardColors draws one table row per color with a rendered sample.
func renderBoardColors(colors []boardColor) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("62"))).
		Headers("Role", "Value", "Sample", "Used for").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230"))
			}
			return lipgloss.NewStyle()
		})
	for _, c := range colors {
		sample := lipgloss.NewStyle().
			Background(lipgloss.Color(c.value)).
			Foreground(contrastColor(c.value)).
			Width(10).
			Align(lipgloss.Center).
			Render(c.value)
		t.Row(c.role, c.value, sample, c.usage)
	}
	return t.Render()
}

// write256Colors prints the standard, cube and grayscale ranges.
func write256Colors(out io.Writer) {
	_, _ = fmt.Fprintln(out, "Standard 16 Colors:")
	writeColorBlock(out, 0, 15, 8)

	_, _ = fmt.Fprintln(out, "\n216 Color Cube (16-231):")
	for i := range 6 {
		writeColorBlock(out, 16+i*36, 16+(i+1)*36-1, 6)
		_, _ = fmt.Fprintln(out)
	}

	_, _ = fmt.Fprintln(out, "Grayscale (232-255):")
	writeColorBlock(out, 232, 255, 12)
}

func writeColorBlock(out io.Writer, start, end, perRow int) {
	var b strings.Builder
	count := 0
	for i := start; i <= end; i++ {
		code := strconv.Itoa(i)
		b.WriteString(lipgloss.NewStyle().
			Background(lipgloss.Color(code)).
			Foreground(contrastColor(code)).
			Width(6).
			Align(lipgloss.Center).
			Render(fmt.Sprintf("%3d", i)))
		count++
		if count%perRow == 0 {
			b.WriteByte('\n')
		} else {
			b.WriteByte(' ')
		}
	}
	if count%perRow != 0 {
		b.WriteByte('\n')
	}
	_, _ = io.WriteString(out, b.String())
}

// contrastColor picks white or black text for a background color.
func contrastColor(value string) lipgloss.Color {
	white, black := lipgloss.Color("15"), lipgloss.Color("0")
	if strings.HasPrefix(value, "#") {
		r, g, bl, ok := parseHex(value)
		if !ok {
			return white
		}
		// Rec. 601 luma.
		if (299*r+587*g+114*bl)/1000 > 140 {
			return black
		}
		return white
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return white
	}
	switch {
	case n < 16:
		switch n {
		case 0, 1, 4, 5, 8:
			return white
		}
		return black
	case n >= 232:
		if n < 244 {
			return white
		}
		return black
	default:
		return white
	}
}

// parseHex reads #rgb or #rrggbb.
func parseHex(value string) (int, int, int, bool) {
	hex := strings.TrimPrefix(value, "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return 0, 0, 0, false
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, 0, 0, false
	}
	return int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff), true
}
