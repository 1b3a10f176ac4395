// Package dnd implements the drag-and-drop interaction state machine for
// cards and columns.
//
// A Context groups the shared drag State, the board being reordered and the
// Scheduler used for deferred drag-end cleanup. One Context is owned by one
// goroutine at a time; every Controller bound to it must be driven from
// that owner.
package dnd

// Board is the ordered store a Context reorders.
type Board interface {
	MoveCard(cardID, toColumnID, beforeCardID string)
	MoveColumn(columnID, beforeColumnID string)
	CardColumn(cardID string) (string, bool)
	RemoveCard(cardID string)
	RemoveCardsInColumn(columnID string) int
	RemoveColumn(columnID string)
}

// Context is the explicit owner of drag state for one board.
type Context struct {
	state     *State
	board     Board
	scheduler Scheduler
}

// NewContext constructs a context. A nil scheduler runs deferred work
// immediately.
func NewContext(board Board, scheduler Scheduler) *Context {
	if scheduler == nil {
		scheduler = ImmediateScheduler{}
	}
	return &Context{
		state:     NewState(),
		board:     board,
		scheduler: scheduler,
	}
}

// State returns the shared drag state.
func (c *Context) State() *State {
	return c.state
}

// Board returns the bound board.
func (c *Context) Board() Board {
	return c.board
}

// Rebind points the context at another board and drops any active drag.
func (c *Context) Rebind(board Board) {
	c.board = board
	c.state.EndSession()
}

// RemoveCard deletes a card, ending any drag of that card.
func (c *Context) RemoveCard(cardID string) {
	if c.board == nil {
		return
	}
	if drag, ok := c.state.CardSession(); ok && drag.CardID == cardID {
		c.state.EndSession()
	}
	c.board.RemoveCard(cardID)
	if c.state.Hover().CardID == cardID {
		c.state.SetHoveredCard("")
	}
}

// RemoveColumnCascade deletes every card of a column and then the column.
// A drag of the column or of one of its cards ends.
func (c *Context) RemoveColumnCascade(columnID string) {
	if c.board == nil {
		return
	}
	switch drag := c.state.Session().(type) {
	case CardDrag:
		if col, ok := c.board.CardColumn(drag.CardID); ok && col == columnID {
			c.state.EndSession()
		}
	case ColumnDrag:
		if drag.ColumnID == columnID {
			c.state.EndSession()
		}
	case nil:
	}
	c.board.RemoveCardsInColumn(columnID)
	c.board.RemoveColumn(columnID)
	if c.state.Hover().ColumnID == columnID {
		c.state.ClearHover()
	}
}
