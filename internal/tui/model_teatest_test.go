package tui

import (
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/x/exp/teatest/v2"
)

// TestModelWithTeatest verifies the board renders and quits.
func TestModelWithTeatest(t *testing.T) {
	m := NewModel(newFakeService())
	tm := teatest.NewTestModel(t, m, teatest.WithInitialTermSize(120, 35))
	t.Cleanup(func() {
		_ = tm.Quit()
	})

	teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
		return strings.Contains(string(out), "Write")
	}, teatest.WithDuration(2*time.Second), teatest.WithCheckInterval(10*time.Millisecond))

	tm.Send(tea.KeyPressMsg{Code: 'q', Text: "q"})
	tm.WaitFinished(t, teatest.WithFinalTimeout(2*time.Second))
}

// TestModelWithTeatestHelpAndBoardPicker verifies overlays and board switching in a running program.
func TestModelWithTeatestHelpAndBoardPicker(t *testing.T) {
	m := NewModel(newFakeService())
	tm := teatest.NewTestModel(t, m, teatest.WithInitialTermSize(120, 35))
	t.Cleanup(func() {
		_ = tm.Quit()
	})

	teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
		return strings.Contains(string(out), "Demo")
	}, teatest.WithDuration(2*time.Second), teatest.WithCheckInterval(10*time.Millisecond))

	tm.Send(tea.KeyPressMsg{Code: '?', Text: "?"})
	teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
		return strings.Contains(string(out), "esc cancels an active drag")
	}, teatest.WithDuration(2*time.Second), teatest.WithCheckInterval(10*time.Millisecond))
	tm.Send(tea.KeyPressMsg{Code: '?', Text: "?"})

	tm.Send(tea.KeyPressMsg{Code: 'b', Text: "b"})
	teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
		return strings.Contains(string(out), "Boards")
	}, teatest.WithDuration(2*time.Second), teatest.WithCheckInterval(10*time.Millisecond))

	tm.Send(tea.KeyPressMsg{Code: tea.KeyDown})
	tm.Send(tea.KeyPressMsg{Code: tea.KeyEnter})
	teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
		return strings.Contains(string(out), "Backlog")
	}, teatest.WithDuration(2*time.Second), teatest.WithCheckInterval(10*time.Millisecond))

	tm.Send(tea.KeyPressMsg{Code: 'q', Text: "q"})
	tm.WaitFinished(t, teatest.WithFinalTimeout(2*time.Second))
}

// TestModelWithTeatestMouseDrag verifies a press-move-release sequence moves a card.
func TestModelWithTeatestMouseDrag(t *testing.T) {
	ready := loadReadyModel(t, NewModel(newFakeService()))
	fromX, fromY := cardCell(t, ready, "ca0")
	toX, toY := cardCell(t, ready, "ca2")

	tm := teatest.NewTestModel(t, NewModel(newFakeService()), teatest.WithInitialTermSize(120, 30))
	t.Cleanup(func() {
		_ = tm.Quit()
	})
	teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
		return strings.Contains(string(out), "Ship")
	}, teatest.WithDuration(2*time.Second), teatest.WithCheckInterval(10*time.Millisecond))

	tm.Send(tea.MouseClickMsg{X: fromX, Y: fromY, Button: tea.MouseLeft})
	tm.Send(tea.MouseMotionMsg{X: toX, Y: toY, Button: tea.MouseLeft})
	tm.Send(tea.MouseReleaseMsg{X: toX, Y: toY, Button: tea.MouseLeft})
	teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
		return strings.Contains(string(out), "dropped ca0")
	}, teatest.WithDuration(2*time.Second), teatest.WithCheckInterval(10*time.Millisecond))

	tm.Send(tea.KeyPressMsg{Code: 'q', Text: "q"})
	final, ok := tm.FinalModel(t, teatest.WithFinalTimeout(2*time.Second)).(Model)
	if !ok {
		t.Fatal("expected final Model")
	}
	if got := cardIDs(final.store.CardsByColumn("col1")); len(got) != 2 || got[0] != "ca0" {
		t.Fatalf("expected ca0 dropped before ca2, got %v", got)
	}
}
