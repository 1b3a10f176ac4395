package dnd

// Kind identifies what a Controller is bound to.
type Kind int

// Kind values.
const (
	KindCard Kind = iota
	KindColumn
	// KindBoardEnd is the zone past the last column. Dropping a column
	// there moves it to the end of the board.
	KindBoardEnd
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindColumn:
		return "column"
	case KindBoardEnd:
		return "board_end"
	default:
		return "card"
	}
}

// Target is the element a Controller is bound to. ColumnID is the
// containing column of a card and equals ID for a column.
type Target struct {
	Kind     Kind
	ID       string
	ColumnID string
}

// Highlights are the render flags derived for one element.
type Highlights struct {
	HoveringColumn bool
	Hovering       bool
	Dragging       bool
	// Lifted reports that this element is the subject of the active
	// session, card or column.
	Lifted bool
}

// Controller translates native drag events for one card or column into
// State transitions and board moves.
type Controller struct {
	ctx    *Context
	target Target
}

// NewCardController binds a controller to a card inside columnID.
func NewCardController(ctx *Context, cardID, columnID string) *Controller {
	return &Controller{ctx: ctx, target: Target{Kind: KindCard, ID: cardID, ColumnID: columnID}}
}

// NewColumnController binds a controller to a column.
func NewColumnController(ctx *Context, columnID string) *Controller {
	return &Controller{ctx: ctx, target: Target{Kind: KindColumn, ID: columnID, ColumnID: columnID}}
}

// NewBoardEndController binds a controller to the trailing board zone.
func NewBoardEndController(ctx *Context) *Controller {
	return &Controller{ctx: ctx, target: Target{Kind: KindBoardEnd}}
}

// Target returns the bound element.
func (c *Controller) Target() Target {
	return c.target
}

// OnDragStart begins a drag of the bound element. payload must match the
// bound kind; a nil payload is filled from the target.
func (c *Controller) OnDragStart(ev Event, payload Session) {
	state := c.ctx.state
	switch c.target.Kind {
	case KindCard:
		drag, ok := c.cardPayload(payload)
		if !ok {
			return
		}
		if _, stale := state.ColumnSession(); stale {
			state.EndSession()
		}
		state.ClearHover()
		writeTransfer(ev, drag.CardID)
		state.StartCardDrag(drag)
	case KindColumn:
		drag, ok := c.columnPayload(payload)
		if !ok {
			return
		}
		if _, stale := state.CardSession(); stale {
			state.EndSession()
		}
		state.ClearHover()
		writeTransfer(ev, drag.ColumnID)
		state.StartColumnDrag(drag)
	}
}

func (c *Controller) cardPayload(payload Session) (CardDrag, bool) {
	var drag CardDrag
	switch p := payload.(type) {
	case CardDrag:
		drag = p
	case nil:
	case ColumnDrag:
		return CardDrag{}, false
	}
	// The session is always keyed by the bound card so its own drag-end
	// clears it.
	drag.CardID = c.target.ID
	if drag.OriginColumnID == "" {
		drag.OriginColumnID = c.target.ColumnID
	}
	return drag, drag.CardID != ""
}

func (c *Controller) columnPayload(payload Session) (ColumnDrag, bool) {
	var drag ColumnDrag
	switch p := payload.(type) {
	case ColumnDrag:
		drag = p
	case nil:
	case CardDrag:
		return ColumnDrag{}, false
	}
	drag.ColumnID = c.target.ID
	return drag, drag.ColumnID != ""
}

func writeTransfer(ev Event, id string) {
	if ev == nil {
		return
	}
	dt := ev.DataTransfer()
	if dt == nil {
		return
	}
	dt.SetData(PayloadFormat, id)
	dt.SetEffectAllowed(EffectMove)
}

func acceptDrop(ev Event) {
	if ev == nil {
		return
	}
	ev.PreventDefault()
	if dt := ev.DataTransfer(); dt != nil {
		dt.SetDropEffect(EffectMove)
	}
}

// OnDragOver marks the bound element as the hover target.
func (c *Controller) OnDragOver(ev Event) {
	acceptDrop(ev)
	state := c.ctx.state
	columnDrag, columnDragging := state.ColumnSession()

	switch c.target.Kind {
	case KindBoardEnd:
		state.ClearHover()
	case KindColumn:
		if columnDragging && columnDrag.ColumnID == c.target.ID {
			state.ClearHover()
			return
		}
		state.SetHoveredColumn(c.target.ID)
		hoveredCard := state.Hover().CardID
		if hoveredCard == "" {
			return
		}
		if owner, ok := c.cardColumn(hoveredCard); !ok || owner != c.target.ID {
			state.ClearHover()
		}
	case KindCard:
		if columnDragging {
			state.SetHoveredCard("")
			if c.target.ColumnID == columnDrag.ColumnID {
				state.SetHoveredColumn("")
				return
			}
			state.SetHoveredColumn(c.target.ColumnID)
			return
		}
		state.SetHoveredColumn(c.target.ColumnID)
		state.SetHoveredCard(c.target.ID)
	}
}

func (c *Controller) cardColumn(cardID string) (string, bool) {
	if c.ctx.board == nil {
		return "", false
	}
	return c.ctx.board.CardColumn(cardID)
}

// OnDragLeave clears the hover field that still points at the bound element.
func (c *Controller) OnDragLeave() {
	state := c.ctx.state
	hover := state.Hover()
	switch c.target.Kind {
	case KindCard:
		if hover.CardID == c.target.ID {
			state.SetHoveredCard("")
		}
	case KindColumn:
		if hover.ColumnID == c.target.ID {
			state.SetHoveredColumn("")
		}
	}
}

// OnDrop performs the move for the active session and ends it. A card
// target only consumes card sessions, the board end only consumes column
// sessions and a column target consumes both.
func (c *Controller) OnDrop(ev Event) {
	acceptDrop(ev)
	state := c.ctx.state
	board := c.ctx.board

	switch drag := state.Session().(type) {
	case nil:
		return
	case CardDrag:
		if c.target.Kind == KindBoardEnd {
			return
		}
		if board != nil {
			switch c.target.Kind {
			case KindCard:
				if drag.CardID != c.target.ID && c.target.ColumnID != "" {
					board.MoveCard(drag.CardID, c.target.ColumnID, c.target.ID)
				}
			case KindColumn:
				board.MoveCard(drag.CardID, c.target.ID, "")
			}
		}
	case ColumnDrag:
		switch c.target.Kind {
		case KindCard:
			return
		case KindBoardEnd:
			if board != nil {
				board.MoveColumn(drag.ColumnID, "")
			}
		case KindColumn:
			if board != nil && drag.ColumnID != c.target.ID {
				board.MoveColumn(drag.ColumnID, c.target.ID)
			}
		}
	}
	state.ClearHover()
	state.EndSession()
}

// OnDragEnd schedules cleanup for the drag that started on the bound
// element. The session is cleared only if it still belongs to this element.
func (c *Controller) OnDragEnd() {
	c.ctx.scheduler.Defer(func() {
		state := c.ctx.state
		if c.ownsSession() {
			state.EndSession()
			return
		}
		state.ClearHover()
	})
}

func (c *Controller) ownsSession() bool {
	switch drag := c.ctx.state.Session().(type) {
	case CardDrag:
		return c.target.Kind == KindCard && drag.CardID == c.target.ID
	case ColumnDrag:
		return c.target.Kind == KindColumn && drag.ColumnID == c.target.ID
	default:
		return false
	}
}

// IsHoveringColumn reports whether the bound column is the hovered column.
func (c *Controller) IsHoveringColumn() bool {
	return c.target.Kind == KindColumn && c.ctx.state.Hover().ColumnID == c.target.ID
}

// IsHovering reports whether the bound element is the current drop
// candidate. A card is never a candidate for itself. A column is a
// candidate only while no card inside it is hovered.
func (c *Controller) IsHovering() bool {
	state := c.ctx.state
	hover := state.Hover()
	switch c.target.Kind {
	case KindCard:
		if hover.CardID != c.target.ID {
			return false
		}
		drag, ok := state.CardSession()
		return !ok || drag.CardID != c.target.ID
	case KindColumn:
		if hover.ColumnID != c.target.ID || hover.CardID != "" {
			return false
		}
		switch drag := state.Session().(type) {
		case CardDrag:
			return true
		case ColumnDrag:
			return drag.ColumnID != c.target.ID
		default:
			return false
		}
	default:
		return false
	}
}

// IsDragging reports whether the bound card is the one being dragged.
func (c *Controller) IsDragging() bool {
	drag, ok := c.ctx.state.CardSession()
	return ok && c.target.Kind == KindCard && drag.CardID == c.target.ID
}

// Highlights derives all render flags from the current state.
func (c *Controller) Highlights() Highlights {
	return Highlights{
		HoveringColumn: c.IsHoveringColumn(),
		Hovering:       c.IsHovering(),
		Dragging:       c.IsDragging(),
		Lifted:         c.ownsSession(),
	}
}
