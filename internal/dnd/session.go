package dnd

// Session is the record of what is being dragged. CardDrag and ColumnDrag
// are the only implementations.
type Session interface {
	// SubjectID returns the id of the dragged card or column.
	SubjectID() string
	isSession()
}

// CardDrag is the session of a card being dragged.
type CardDrag struct {
	CardID         string
	Title          string
	Description    string
	OriginColumnID string
}

// SubjectID returns the dragged card id.
func (c CardDrag) SubjectID() string { return c.CardID }

func (CardDrag) isSession() {}

// ColumnDrag is the session of a column being dragged.
type ColumnDrag struct {
	ColumnID string
	Title    string
}

// SubjectID returns the dragged column id.
func (c ColumnDrag) SubjectID() string { return c.ColumnID }

func (ColumnDrag) isSession() {}

// Phase is the coarse state of a State.
type Phase int

// Phase values.
const (
	PhaseIdle Phase = iota
	PhaseCardDragging
	PhaseColumnDragging
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseCardDragging:
		return "card_dragging"
	case PhaseColumnDragging:
		return "column_dragging"
	default:
		return "idle"
	}
}

// Hover holds the advisory hover targets. Empty means none.
type Hover struct {
	CardID   string
	ColumnID string
}

// State is the single source of truth for the active drag and hover.
// It is not safe for concurrent use.
type State struct {
	session Session
	hover   Hover
}

// NewState constructs an idle state.
func NewState() *State {
	return &State{}
}

// StartCardDrag replaces any active session and hover with a card drag.
func (s *State) StartCardDrag(payload CardDrag) {
	s.hover = Hover{}
	s.session = payload
}

// StartColumnDrag replaces any active session and hover with a column drag.
func (s *State) StartColumnDrag(payload ColumnDrag) {
	s.hover = Hover{}
	s.session = payload
}

// SetHoveredCard sets the hovered card id.
func (s *State) SetHoveredCard(id string) {
	s.hover.CardID = id
}

// SetHoveredColumn sets the hovered column id.
func (s *State) SetHoveredColumn(id string) {
	s.hover.ColumnID = id
}

// ClearHover clears both hover fields.
func (s *State) ClearHover() {
	s.hover = Hover{}
}

// EndSession clears the session and both hover fields.
func (s *State) EndSession() {
	s.session = nil
	s.hover = Hover{}
}

// Session returns the active session, or nil.
func (s *State) Session() Session {
	return s.session
}

// Hover returns the current hover targets.
func (s *State) Hover() Hover {
	return s.hover
}

// CardSession returns the active card drag.
func (s *State) CardSession() (CardDrag, bool) {
	switch session := s.session.(type) {
	case CardDrag:
		return session, true
	case ColumnDrag, nil:
		return CardDrag{}, false
	default:
		return CardDrag{}, false
	}
}

// ColumnSession returns the active column drag.
func (s *State) ColumnSession() (ColumnDrag, bool) {
	switch session := s.session.(type) {
	case ColumnDrag:
		return session, true
	case CardDrag, nil:
		return ColumnDrag{}, false
	default:
		return ColumnDrag{}, false
	}
}

// Phase derives the phase from the active session.
func (s *State) Phase() Phase {
	switch s.session.(type) {
	case CardDrag:
		return PhaseCardDragging
	case ColumnDrag:
		return PhaseColumnDragging
	default:
		return PhaseIdle
	}
}
