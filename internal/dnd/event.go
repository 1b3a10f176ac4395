package dnd

// PayloadFormat is the data-transfer format that carries the dragged id.
const PayloadFormat = "text/plain"

// EffectMove is the only drag effect used.
const EffectMove = "move"

// DataTransfer is the native payload carrier attached to a drag event.
type DataTransfer interface {
	SetData(format, value string)
	SetEffectAllowed(effect string)
	SetDropEffect(effect string)
}

// Event is the native event handed to a controller. DataTransfer may
// return nil.
type Event interface {
	PreventDefault()
	DataTransfer() DataTransfer
}

// BasicEvent is an Event for hosts that synthesize drag events.
type BasicEvent struct {
	Transfer  DataTransfer
	prevented bool
}

// NewEvent returns an event carrying transfer, which may be nil.
func NewEvent(transfer DataTransfer) *BasicEvent {
	return &BasicEvent{Transfer: transfer}
}

// PreventDefault marks the event as handled.
func (e *BasicEvent) PreventDefault() {
	if e == nil {
		return
	}
	e.prevented = true
}

// DefaultPrevented reports whether PreventDefault ran.
func (e *BasicEvent) DefaultPrevented() bool { return e != nil && e.prevented }

// DataTransfer returns the attached transfer.
func (e *BasicEvent) DataTransfer() DataTransfer {
	if e == nil {
		return nil
	}
	return e.Transfer
}

// MemoryTransfer is an in-process DataTransfer.
type MemoryTransfer struct {
	Data          map[string]string
	EffectAllowed string
	DropEffect    string
}

// NewMemoryTransfer returns an empty transfer.
func NewMemoryTransfer() *MemoryTransfer {
	return &MemoryTransfer{Data: map[string]string{}}
}

// SetData stores value under format.
func (t *MemoryTransfer) SetData(format, value string) {
	if t.Data == nil {
		t.Data = map[string]string{}
	}
	t.Data[format] = value
}

// SetEffectAllowed records the allowed effect.
func (t *MemoryTransfer) SetEffectAllowed(effect string) { t.EffectAllowed = effect }

// SetDropEffect records the drop effect.
func (t *MemoryTransfer) SetDropEffect(effect string) { t.DropEffect = effect }

// GetData returns the value stored under format.
func (t *MemoryTransfer) GetData(format string) string { return t.Data[format] }
