package app

import (
	"context"
	"errors"
	"io"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/evanschultz/tavla/internal/board"
	"github.com/evanschultz/tavla/internal/domain"
)

// DefaultSaveInterval is the batching window used when none is configured.
const DefaultSaveInterval = 150 * time.Millisecond

type pendingSave struct {
	state  board.State
	events []domain.ChangeEvent
}

// Persister saves board state in the background. Mutations only record the
// latest snapshot per board; a ticker writes pending snapshots. Failed
// saves are logged and never undo the in-memory change.
type Persister struct {
	repo     Repository
	logger   *log.Logger
	clock    Clock
	interval time.Duration

	mu      sync.Mutex
	pending map[string]*pendingSave
	closed  bool

	// saveMu serializes writes so a flush and a tick never interleave.
	saveMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// PersisterConfig holds configuration for a Persister.
type PersisterConfig struct {
	Interval time.Duration
	Logger   *log.Logger
	Clock    Clock
}

// NewPersister constructs a persister and starts its batching goroutine.
func NewPersister(repo Repository, cfg PersisterConfig) *Persister {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultSaveInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard)
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Persister{
		repo:     repo,
		logger:   cfg.Logger,
		clock:    cfg.Clock,
		interval: cfg.Interval,
		pending:  map[string]*pendingSave{},
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go p.run()
	return p
}

// Observer returns a board observer that schedules saves for boardKey.
func (p *Persister) Observer(boardKey string) board.Observer {
	return func(store *board.Store, change board.Change) {
		if change.Mutation == board.MutationLoad {
			return
		}
		p.enqueue(boardKey, store.Snapshot(), changeEventFor(boardKey, change, p.clock()))
	}
}

func (p *Persister) enqueue(boardKey string, state board.State, event domain.ChangeEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		p.logger.Warn("save dropped after close", "board", boardKey)
		return
	}
	entry, ok := p.pending[boardKey]
	if !ok {
		entry = &pendingSave{}
		p.pending[boardKey] = entry
	}
	entry.state = state
	entry.events = append(entry.events, event)
}

// Pending reports the number of boards waiting to be written.
func (p *Persister) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// Discard drops any unsaved state for boardKey.
func (p *Persister) Discard(boardKey string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.pending, boardKey)
}

// Flush writes every pending snapshot now and returns the joined errors.
func (p *Persister) Flush(ctx context.Context) error {
	p.saveMu.Lock()
	defer p.saveMu.Unlock()

	p.mu.Lock()
	batch := p.pending
	p.pending = map[string]*pendingSave{}
	p.mu.Unlock()

	var errs []error
	for _, key := range slices.Sorted(maps.Keys(batch)) {
		entry := batch[key]
		if err := p.repo.SaveBoardState(ctx, key, entry.state, entry.events); err != nil {
			p.logger.Error("save board state failed", "board", key, "err", err)
			errs = append(errs, err)
			continue
		}
		p.logger.Debug("board state saved", "board", key, "events", len(entry.events))
	}
	return errors.Join(errs...)
}

// Close stops the batching goroutine and writes what is still pending.
func (p *Persister) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	p.cancel()
	<-p.done
	return p.Flush(ctx)
}

func (p *Persister) run() {
	defer close(p.done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			if p.Pending() == 0 {
				continue
			}
			_ = p.Flush(p.ctx)
		}
	}
}

func changeEventFor(boardKey string, change board.Change, now time.Time) domain.ChangeEvent {
	event := domain.ChangeEvent{
		BoardKey:    boardKey,
		SubjectKind: domain.SubjectCard,
		SubjectID:   change.SubjectID,
		Metadata:    map[string]string{"mutation": string(change.Mutation)},
		OccurredAt:  now.UTC(),
	}
	switch change.Mutation {
	case board.MutationAddCard:
		event.Operation = domain.ChangeOperationCreate
	case board.MutationUpdateCard:
		event.Operation = domain.ChangeOperationUpdate
	case board.MutationMoveCard:
		event.Operation = domain.ChangeOperationMove
	case board.MutationRemoveCard:
		event.Operation = domain.ChangeOperationDelete
	case board.MutationRemoveCards:
		event.Operation = domain.ChangeOperationDelete
		event.SubjectKind = domain.SubjectColumn
	case board.MutationAddColumn:
		event.Operation = domain.ChangeOperationCreate
		event.SubjectKind = domain.SubjectColumn
	case board.MutationUpdateColumn:
		event.Operation = domain.ChangeOperationUpdate
		event.SubjectKind = domain.SubjectColumn
	case board.MutationMoveColumn:
		event.Operation = domain.ChangeOperationMove
		event.SubjectKind = domain.SubjectColumn
	case board.MutationRemoveColumn:
		event.Operation = domain.ChangeOperationDelete
		event.SubjectKind = domain.SubjectColumn
	default:
		event.Operation = domain.ChangeOperationUpdate
		event.SubjectKind = domain.SubjectBoard
	}
	if change.ColumnID != "" {
		event.Metadata["column_id"] = change.ColumnID
	}
	return event
}
