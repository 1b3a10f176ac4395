package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/evanschultz/tavla/internal/app"
	"github.com/evanschultz/tavla/internal/board"
	"github.com/evanschultz/tavla/internal/domain"
	_ "modernc.org/sqlite"
)

// driverName defines a package constant value.
const driverName = "sqlite"

// Repository represents repository data used by this package.
type Repository struct {
	db *sql.DB
}

// Open opens the requested operation.
func Open(path string) (*Repository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open(driverName, "file:"+path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return newRepository(db)
}

// OpenInMemory opens a private in-memory database.
func OpenInMemory() (*Repository, error) {
	db, err := sql.Open(driverName, ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}
	// Every pooled connection would otherwise see its own empty database.
	db.SetMaxOpenConns(1)
	return newRepository(db)
}

func newRepository(db *sql.DB) (*Repository, error) {
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// Close closes the requested operation.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Ping reports whether the database is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// migrate handles migrate.
func (r *Repository) migrate(ctx context.Context) error {
	stmts := []string{
		`PRAGMA foreign_keys = ON;`,
		`CREATE TABLE IF NOT EXISTS boards (
			id TEXT PRIMARY KEY,
			key TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			next_card_id INTEGER NOT NULL DEFAULT 0,
			next_column_id INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS board_columns (
			board_key TEXT NOT NULL,
			id TEXT NOT NULL,
			title TEXT NOT NULL,
			position INTEGER NOT NULL,
			PRIMARY KEY(board_key, id),
			FOREIGN KEY(board_key) REFERENCES boards(key) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS cards (
			board_key TEXT NOT NULL,
			id TEXT NOT NULL,
			column_id TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			position INTEGER NOT NULL,
			PRIMARY KEY(board_key, id),
			FOREIGN KEY(board_key) REFERENCES boards(key) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS change_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			board_key TEXT NOT NULL,
			subject_kind TEXT NOT NULL,
			subject_id TEXT NOT NULL DEFAULT '',
			operation TEXT NOT NULL,
			metadata_json TEXT NOT NULL DEFAULT '{}',
			created_at TEXT NOT NULL,
			FOREIGN KEY(board_key) REFERENCES boards(key) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS settings (
			name TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_board_columns_position ON board_columns(board_key, position);`,
		`CREATE INDEX IF NOT EXISTS idx_cards_position ON cards(board_key, position);`,
		`CREATE INDEX IF NOT EXISTS idx_change_events_board_created_at ON change_events(board_key, created_at DESC, id DESC);`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return nil
}

// CreateBoard creates board.
func (r *Repository) CreateBoard(ctx context.Context, b domain.Board) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO boards(id, key, name, next_card_id, next_column_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, b.ID, b.Key, b.Name, b.NextCardID, b.NextColumnID, ts(b.CreatedAt), ts(b.UpdatedAt))
	if isUniqueErr(err) {
		return fmt.Errorf("%w: %q", app.ErrBoardExists, b.Key)
	}
	return err
}

// UpdateBoard updates state for the requested operation.
func (r *Repository) UpdateBoard(ctx context.Context, b domain.Board) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE boards
		SET name = ?, next_card_id = ?, next_column_id = ?, updated_at = ?
		WHERE key = ?
	`, b.Name, b.NextCardID, b.NextColumnID, ts(b.UpdatedAt), b.Key)
	if err != nil {
		return err
	}
	return translateNoRows(res)
}

// GetBoard returns board.
func (r *Repository) GetBoard(ctx context.Context, key string) (domain.Board, error) {
	return getBoard(ctx, r.db, key)
}

// ListBoards lists boards.
func (r *Repository) ListBoards(ctx context.Context) ([]domain.Board, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, key, name, next_card_id, next_column_id, created_at, updated_at
		FROM boards
		ORDER BY created_at ASC, key ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Board{}
	for rows.Next() {
		b, err := scanBoard(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// DeleteBoard deletes a board with its columns, cards and events.
func (r *Repository) DeleteBoard(ctx context.Context, key string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range []string{
		`DELETE FROM cards WHERE board_key = ?`,
		`DELETE FROM board_columns WHERE board_key = ?`,
		`DELETE FROM change_events WHERE board_key = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, key); err != nil {
			return err
		}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM boards WHERE key = ?`, key)
	if err != nil {
		return err
	}
	if err := translateNoRows(res); err != nil {
		return err
	}
	return tx.Commit()
}

// LoadBoardState returns the board's columns and cards in stored order.
func (r *Repository) LoadBoardState(ctx context.Context, key string) (board.State, error) {
	b, err := getBoard(ctx, r.db, key)
	if err != nil {
		return board.State{}, err
	}
	state := board.State{
		NextCardID:   b.NextCardID,
		NextColumnID: b.NextColumnID,
		Columns:      []domain.Column{},
		Cards:        []domain.Card{},
	}

	colRows, err := r.db.QueryContext(ctx, `
		SELECT id, title
		FROM board_columns
		WHERE board_key = ?
		ORDER BY position ASC, id ASC
	`, key)
	if err != nil {
		return board.State{}, err
	}
	defer colRows.Close()
	for colRows.Next() {
		var c domain.Column
		if err := colRows.Scan(&c.ID, &c.Title); err != nil {
			return board.State{}, err
		}
		state.Columns = append(state.Columns, c)
	}
	if err := colRows.Err(); err != nil {
		return board.State{}, err
	}

	cardRows, err := r.db.QueryContext(ctx, `
		SELECT id, column_id, title, description
		FROM cards
		WHERE board_key = ?
		ORDER BY position ASC, id ASC
	`, key)
	if err != nil {
		return board.State{}, err
	}
	defer cardRows.Close()
	for cardRows.Next() {
		var c domain.Card
		if err := cardRows.Scan(&c.ID, &c.ColumnID, &c.Title, &c.Description); err != nil {
			return board.State{}, err
		}
		state.Cards = append(state.Cards, c)
	}
	return state, cardRows.Err()
}

// SaveBoardState replaces the stored order of a board and appends events.
// Position is the index in the flat sequence.
func (r *Repository) SaveBoardState(ctx context.Context, key string, state board.State, events []domain.ChangeEvent) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE boards
		SET next_card_id = ?, next_column_id = ?, updated_at = ?
		WHERE key = ?
	`, state.NextCardID, state.NextColumnID, ts(time.Now()), key)
	if err != nil {
		return fmt.Errorf("update board counters: %w", err)
	}
	if err := translateNoRows(res); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM board_columns WHERE board_key = ?`, key); err != nil {
		return fmt.Errorf("clear columns: %w", err)
	}
	for i, c := range state.Columns {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO board_columns(board_key, id, title, position)
			VALUES (?, ?, ?, ?)
		`, key, c.ID, c.Title, i); err != nil {
			return fmt.Errorf("insert column %q: %w", c.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM cards WHERE board_key = ?`, key); err != nil {
		return fmt.Errorf("clear cards: %w", err)
	}
	for i, c := range state.Cards {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO cards(board_key, id, column_id, title, description, position)
			VALUES (?, ?, ?, ?, ?, ?)
		`, key, c.ID, c.ColumnID, c.Title, c.Description, i); err != nil {
			return fmt.Errorf("insert card %q: %w", c.ID, err)
		}
	}

	for _, event := range events {
		event.BoardKey = key
		if err := insertChangeEvent(ctx, tx, event); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListChangeEvents lists the newest change events for a board.
func (r *Repository) ListChangeEvents(ctx context.Context, key string, limit int) ([]domain.ChangeEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, board_key, subject_kind, subject_id, operation, metadata_json, created_at
		FROM change_events
		WHERE board_key = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, key, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.ChangeEvent, 0)
	for rows.Next() {
		var (
			event       domain.ChangeEvent
			kindRaw     string
			opRaw       string
			metadataRaw string
			createdRaw  string
		)
		if err := rows.Scan(&event.ID, &event.BoardKey, &kindRaw, &event.SubjectID, &opRaw, &metadataRaw, &createdRaw); err != nil {
			return nil, err
		}
		event.SubjectKind = domain.SubjectKind(kindRaw)
		event.Operation = normalizeChangeOperation(opRaw)
		event.OccurredAt = parseTS(createdRaw)
		if strings.TrimSpace(metadataRaw) == "" {
			metadataRaw = "{}"
		}
		if err := json.Unmarshal([]byte(metadataRaw), &event.Metadata); err != nil {
			return nil, fmt.Errorf("decode change_events.metadata_json: %w", err)
		}
		if event.Metadata == nil {
			event.Metadata = map[string]string{}
		}
		out = append(out, event)
	}
	return out, rows.Err()
}

// GetSetting returns one stored setting.
func (r *Repository) GetSetting(ctx context.Context, name string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE name = ?`, name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", app.ErrNotFound
	}
	return value, err
}

// SetSetting stores one setting.
func (r *Repository) SetSetting(ctx context.Context, name, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO settings(name, value) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value
	`, name, value)
	return err
}

// queryRower represents a query-only DB contract used by DB and Tx implementations.
type queryRower interface {
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// execerContext represents a write-only DB contract used by DB and Tx implementations.
type execerContext interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
}

// scanner represents a row that can be scanned.
type scanner interface {
	Scan(dest ...any) error
}

func getBoard(ctx context.Context, q queryRower, key string) (domain.Board, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, key, name, next_card_id, next_column_id, created_at, updated_at
		FROM boards
		WHERE key = ?
	`, key)
	return scanBoard(row)
}

func scanBoard(s scanner) (domain.Board, error) {
	var (
		b          domain.Board
		createdRaw string
		updatedRaw string
	)
	if err := s.Scan(&b.ID, &b.Key, &b.Name, &b.NextCardID, &b.NextColumnID, &createdRaw, &updatedRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Board{}, app.ErrNotFound
		}
		return domain.Board{}, err
	}
	b.CreatedAt = parseTS(createdRaw)
	b.UpdatedAt = parseTS(updatedRaw)
	return b, nil
}

// insertChangeEvent inserts a change-event ledger record.
func insertChangeEvent(ctx context.Context, execer execerContext, event domain.ChangeEvent) error {
	metadata := event.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("encode change event metadata: %w", err)
	}
	kind := event.SubjectKind
	if kind == "" {
		kind = domain.SubjectBoard
	}
	_, err = execer.ExecContext(ctx, `
		INSERT INTO change_events(board_key, subject_kind, subject_id, operation, metadata_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		event.BoardKey,
		string(kind),
		event.SubjectID,
		string(normalizeChangeOperation(string(event.Operation))),
		string(metadataJSON),
		ts(normalizeEventTS(event.OccurredAt)),
	)
	if err != nil {
		return fmt.Errorf("insert change event: %w", err)
	}
	return nil
}

// normalizeChangeOperation maps stored operation names to known values.
func normalizeChangeOperation(raw string) domain.ChangeOperation {
	switch op := domain.ChangeOperation(strings.TrimSpace(strings.ToLower(raw))); op {
	case domain.ChangeOperationCreate, domain.ChangeOperationMove, domain.ChangeOperationDelete:
		return op
	default:
		return domain.ChangeOperationUpdate
	}
}

// normalizeEventTS defaults a zero event time to now.
func normalizeEventTS(in time.Time) time.Time {
	if in.IsZero() {
		return time.Now().UTC()
	}
	return in.UTC()
}

// translateNoRows handles translate no rows.
func translateNoRows(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return app.ErrNotFound
	}
	return nil
}

// ts handles ts.
func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTS parses input into a normalized form.
func parseTS(v string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}

// isUniqueErr reports whether err is a unique-constraint violation.
func isUniqueErr(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}
