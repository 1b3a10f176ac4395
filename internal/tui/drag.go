package tui

import (
	"slices"

	tea "charm.land/bubbletea/v2"
	"github.com/evanschultz/tavla/internal/dnd"
)

// dragTracker turns terminal press/motion/release sequences into dnd events.
type dragTracker struct {
	pressed bool
	active  bool
	source  dnd.Target
	payload dnd.Session
	// over is the ordered chain of targets currently under the pointer,
	// innermost first.
	over     []dnd.Target
	transfer dnd.DataTransfer
}

// controller rebuilds the controller for target.
func (m Model) controller(target dnd.Target) *dnd.Controller {
	switch target.Kind {
	case dnd.KindColumn:
		return dnd.NewColumnController(m.dnd, target.ID)
	case dnd.KindBoardEnd:
		return dnd.NewBoardEndController(m.dnd)
	default:
		return dnd.NewCardController(m.dnd, target.ID, target.ColumnID)
	}
}

// overBoardEnd reports whether the pointer is past the last column.
func (d dragTracker) overBoardEnd() bool {
	return slices.ContainsFunc(d.over, func(t dnd.Target) bool { return t.Kind == dnd.KindBoardEnd })
}

// targetsAt returns the drop targets under one screen cell, card before column.
func (m Model) targetsAt(x, y int) []dnd.Target {
	_, layout := m.renderBoard()
	hit, ok := layout.hitTest(x, y)
	if !ok {
		return nil
	}
	if hit.end {
		return []dnd.Target{{Kind: dnd.KindBoardEnd}}
	}
	column := dnd.Target{Kind: dnd.KindColumn, ID: hit.columnID, ColumnID: hit.columnID}
	if hit.cardID == "" {
		return []dnd.Target{column}
	}
	return []dnd.Target{{Kind: dnd.KindCard, ID: hit.cardID, ColumnID: hit.columnID}, column}
}

// handleMousePress selects what was pressed and arms a pending drag.
func (m Model) handleMousePress(x, y int, button tea.MouseButton) (tea.Model, tea.Cmd) {
	if button != tea.MouseLeft || m.help.ShowAll || m.mode != modeNone || m.store == nil {
		return m, nil
	}
	_, layout := m.renderBoard()
	hit, ok := layout.hitTest(x, y)
	if !ok || hit.end {
		return m, nil
	}
	m.drag = dragTracker{}
	switch {
	case hit.cardID != "":
		card, found := m.store.Card(hit.cardID)
		if !found {
			return m, nil
		}
		m.focusCard(card.ID)
		m.drag = dragTracker{
			pressed: true,
			source:  dnd.Target{Kind: dnd.KindCard, ID: card.ID, ColumnID: card.ColumnID},
			payload: dnd.CardDrag{
				CardID:         card.ID,
				Title:          card.Title,
				Description:    card.Description,
				OriginColumnID: card.ColumnID,
			},
		}
	case hit.header:
		column, found := m.store.Column(hit.columnID)
		if !found {
			return m, nil
		}
		m.focusColumn(column.ID)
		m.drag = dragTracker{
			pressed: true,
			source:  dnd.Target{Kind: dnd.KindColumn, ID: column.ID, ColumnID: column.ID},
			payload: dnd.ColumnDrag{ColumnID: column.ID, Title: column.Title},
		}
	default:
		m.focusColumn(hit.columnID)
	}
	return m, nil
}

// handleMouseMotion starts the pending drag and updates the hover chain.
func (m Model) handleMouseMotion(x, y int) (tea.Model, tea.Cmd) {
	if !m.drag.pressed {
		return m, nil
	}
	if !m.drag.active {
		m.startDrag()
	}
	m.dragOver(x, y)
	return m, nil
}

// handleMouseRelease drops onto the targets under the pointer.
func (m Model) handleMouseRelease(x, y int) (tea.Model, tea.Cmd) {
	if !m.drag.pressed {
		return m, nil
	}
	if !m.drag.active {
		m.drag = dragTracker{}
		return m, nil
	}
	m.dragOver(x, y)
	ev := dnd.NewEvent(m.drag.transfer)
	for _, target := range m.drag.over {
		m.controller(target).OnDrop(ev)
	}
	m.controller(m.drag.source).OnDragEnd()
	m.finishDrag()
	subject := m.drag.source
	m.drag = dragTracker{}
	switch subject.Kind {
	case dnd.KindCard:
		m.focusCard(subject.ID)
	case dnd.KindColumn:
		m.focusColumn(subject.ID)
	}
	m.status = "dropped " + subject.ID
	return m, flushDrag
}

// cancelDrag abandons an active drag without moving anything.
func (m Model) cancelDrag() (tea.Model, tea.Cmd) {
	if !m.drag.active {
		m.drag = dragTracker{}
		return m, nil
	}
	for _, target := range m.drag.over {
		m.controller(target).OnDragLeave()
	}
	m.controller(m.drag.source).OnDragEnd()
	m.finishDrag()
	m.drag = dragTracker{}
	m.status = "drag cancelled"
	return m, flushDrag
}

// startDrag fires dragstart on the pressed element.
func (m *Model) startDrag() {
	var transfer dnd.DataTransfer = dnd.NewMemoryTransfer()
	if m.runtime.CopyPayload {
		transfer = newClipboardTransfer(m.writeClipboard)
	}
	m.drag.transfer = transfer
	m.drag.active = true
	m.controller(m.drag.source).OnDragStart(dnd.NewEvent(transfer), m.drag.payload)
	m.logger.Debug("drag start", "kind", m.drag.source.Kind, "id", m.drag.source.ID)
}

// dragOver fires dragleave on targets the pointer left and dragover on the new chain.
func (m *Model) dragOver(x, y int) {
	next := m.targetsAt(x, y)
	for _, prev := range m.drag.over {
		if !slices.Contains(next, prev) {
			m.controller(prev).OnDragLeave()
		}
	}
	ev := dnd.NewEvent(m.drag.transfer)
	for _, target := range next {
		m.controller(target).OnDragOver(ev)
	}
	m.drag.over = next
}

// finishDrag reports clipboard failures from the drag transfer.
func (m *Model) finishDrag() {
	ct, ok := m.drag.transfer.(*clipboardTransfer)
	if !ok || ct.err == nil {
		return
	}
	m.logger.Warn("clipboard write failed", "err", ct.err)
}
