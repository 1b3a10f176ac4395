package domain

import "time"

// ChangeOperation describes a persisted board mutation.
type ChangeOperation string

// ChangeOperation values used by the local activity ledger.
const (
	ChangeOperationCreate ChangeOperation = "create"
	ChangeOperationUpdate ChangeOperation = "update"
	ChangeOperationMove   ChangeOperation = "move"
	ChangeOperationDelete ChangeOperation = "delete"
)

// SubjectKind names the entity a change event refers to.
type SubjectKind string

// SubjectKind values.
const (
	SubjectCard   SubjectKind = "card"
	SubjectColumn SubjectKind = "column"
	SubjectBoard  SubjectKind = "board"
)

// ChangeEvent represents a single activity-log entry for a board.
type ChangeEvent struct {
	ID          int64
	BoardKey    string
	SubjectKind SubjectKind
	SubjectID   string
	Operation   ChangeOperation
	Metadata    map[string]string
	OccurredAt  time.Time
}
