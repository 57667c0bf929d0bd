// Package syncer keeps the local note cache and the remote spreadsheet in step:
// optimistic local writes replayed in the background with rollback, pulls with
// last-write-wins, replay of leftover pending entries and the guarded cache reset.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sheetnotes/internal/notes/domain/entities"
	"sheetnotes/internal/notes/ports/cache"
	"sheetnotes/internal/notes/ports/remote"
	"sheetnotes/internal/notes/ports/repositories"
	"sheetnotes/pkg/logger"
)

// Draft поля новой заметки.
type Draft struct {
	Title   string
	Content string
	Tags    string
}

// Patch изменяемые поля заметки; nil означает "не менять".
type Patch struct {
	Title   *string
	Content *string
	Tags    *string
}

// Engine движок синхронизации заметок.
type Engine struct {
	store    repositories.Store
	remote   remote.Store
	rows     cache.RowIndexCache
	resolver *Resolver
	notices  *Notifier

	gates *gates
	locks *keyedLock

	now   func() time.Time
	newID func() string

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// Option настраивает Engine.
type Option func(*Engine)

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator подменяет генератор идентификаторов.
func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

// WithNotifier задает рассыльщик уведомлений.
func WithNotifier(n *Notifier) Option {
	return func(e *Engine) { e.notices = n }
}

// NewEngine создает движок.
func NewEngine(store repositories.Store, remoteStore remote.Store, rows cache.RowIndexCache, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		remote:   remoteStore,
		rows:     rows,
		resolver: NewResolver(remoteStore, rows),
		gates:    newGates(),
		locks:    newKeyedLock(),
		now:      func() time.Time { return time.Now().UTC() },
		newID:    func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(e)
	}
	clock := e.now
	e.now = func() time.Time { return clock().Truncate(entities.TimePrecision) }
	if e.notices == nil {
		e.notices = NewNotifier(0)
	}
	return e
}

// Notices возвращает рассыльщик уведомлений.
func (e *Engine) Notices() *Notifier {
	return e.notices
}

// Receipt результат мутации, доставка которой в таблицу идет в фоне.
type Receipt struct {
	note *entities.Note
	done chan struct{}
	err  error
}

func newReceipt(note *entities.Note) *Receipt {
	return &Receipt{note: note, done: make(chan struct{})}
}

func completedReceipt(note *entities.Note) *Receipt {
	r := newReceipt(note)
	close(r.done)
	return r
}

func (r *Receipt) finish(err error) {
	r.err = err
	close(r.done)
}

// Note возвращает заметку в том виде, в каком она записана локально.
func (r *Receipt) Note() *entities.Note {
	return r.note.Clone()
}

// Done закрывается, когда доставка завершена или изменение отменено.
func (r *Receipt) Done() <-chan struct{} {
	return r.done
}

// Wait ждет результата доставки. Ошибка означает, что изменение отменено локально.
func (r *Receipt) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return r.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Create создает заметку локально и ставит ее создание в таблице в фон.
func (e *Engine) Create(ctx context.Context, source entities.NoteSource, draft Draft) (*Receipt, error) {
	id := e.newID()
	return e.mutate(ctx, source, id, entities.OperationCreate, func(*entities.Note) (*entities.Note, bool, error) {
		return entities.NewNote(id, source.ID, draft.Title, draft.Content, draft.Tags, e.now()), true, nil
	})
}

// Update меняет неудаленную заметку источника.
func (e *Engine) Update(ctx context.Context, source entities.NoteSource, noteID string, patch Patch) (*Receipt, error) {
	return e.mutate(ctx, source, noteID, entities.OperationUpdate, func(prev *entities.Note) (*entities.Note, bool, error) {
		if prev == nil || prev.SourceID != source.ID || prev.IsDeleted() {
			return nil, false, fmt.Errorf("%w: %s", ErrNoteNotFound, noteID)
		}
		next := prev.Clone()
		if patch.Title != nil {
			next.Title = *patch.Title
		}
		if patch.Content != nil {
			next.Content = *patch.Content
		}
		if patch.Tags != nil {
			next.Tags = entities.NormalizeTags(*patch.Tags)
		}
		next.Touch(e.now())
		return next, true, nil
	})
}

// Delete мягко удаляет заметку. Повторное удаление возвращает заметку без изменений.
func (e *Engine) Delete(ctx context.Context, source entities.NoteSource, noteID string) (*Receipt, error) {
	return e.mutate(ctx, source, noteID, entities.OperationDelete, func(prev *entities.Note) (*entities.Note, bool, error) {
		if prev == nil || prev.SourceID != source.ID {
			return nil, false, fmt.Errorf("%w: %s", ErrNoteNotFound, noteID)
		}
		if prev.IsDeleted() {
			return prev, false, nil
		}
		next := prev.Clone()
		next.MarkDeleted(e.now())
		return next, true, nil
	})
}

func (e *Engine) begin() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrEngineClosed
	}
	e.wg.Add(1)
	return nil
}

// mutate применяет изменение локально и запускает фоновую доставку.
// Шлюз источника и блокировка заметки держатся до завершения доставки или отката.
func (e *Engine) mutate(
	ctx context.Context,
	source entities.NoteSource,
	noteID string,
	op entities.Operation,
	build func(prev *entities.Note) (next *entities.Note, changed bool, err error),
) (*Receipt, error) {
	if source.SpreadsheetID == "" {
		return nil, ErrInvalidSource
	}
	if err := e.begin(); err != nil {
		return nil, err
	}

	gate := e.gates.get(source.ID)
	gate.RLock()
	unlock, err := e.locks.Lock(ctx, noteID)
	if err != nil {
		gate.RUnlock()
		e.wg.Done()
		return nil, err
	}
	release := func() {
		unlock()
		gate.RUnlock()
		e.wg.Done()
	}

	prev, err := e.store.Notes().Get(ctx, noteID)
	if err != nil {
		release()
		return nil, fmt.Errorf("%s: %w", ErrReadLocal, err)
	}

	next, changed, err := build(prev)
	if err != nil {
		release()
		return nil, err
	}
	if !changed {
		release()
		return completedReceipt(next.Clone()), nil
	}

	entry := &entities.PendingSync{
		ID:        e.newID(),
		SourceID:  source.ID,
		NoteID:    noteID,
		Operation: op,
		Timestamp: e.now(),
	}
	if op != entities.OperationDelete {
		entry.Payload = next.Clone()
	}

	err = e.store.RunInTx(ctx, func(tx repositories.Store) error {
		if err := tx.Notes().Put(ctx, next); err != nil {
			return err
		}
		return tx.Pending().Add(ctx, entry)
	})
	if err != nil {
		release()
		return nil, fmt.Errorf("%s: %w", ErrApplyLocal, err)
	}

	logger.Log(ctx).Debug(ctx, LogMutationApplied,
		zap.String("source_id", source.ID),
		zap.String("note_id", noteID),
		zap.String("operation", string(op)))

	receipt := newReceipt(next.Clone())
	replayCtx := context.WithoutCancel(ctx)
	go func() {
		err := e.replay(replayCtx, source, op, prev, next, entry)
		release()
		receipt.finish(err)
	}()

	return receipt, nil
}

// replay доставляет изменение в таблицу, при сбое восстанавливает снимок.
func (e *Engine) replay(
	ctx context.Context,
	source entities.NoteSource,
	op entities.Operation,
	prev, next *entities.Note,
	entry *entities.PendingSync,
) error {
	log := logger.Log(ctx).With(
		zap.String("method", "Engine.replay"),
		zap.String("source_id", source.ID),
		zap.String("note_id", next.ID),
		zap.String("operation", string(op)),
	)

	err := e.push(ctx, source, op, next)
	if err == nil {
		if rmErr := e.store.Pending().Remove(ctx, entry.ID); rmErr != nil {
			log.Error(ctx, LogPendingRemoveFail, zap.Error(rmErr))
		}
		log.Debug(ctx, LogReplaySucceeded)
		return nil
	}

	log.Warn(ctx, LogReplayFailed, zap.Error(err))

	if errors.Is(err, remote.ErrNotFound) {
		if dErr := e.rows.Delete(ctx, source.RowScope(), next.ID); dErr != nil {
			log.Warn(ctx, LogRowIndexFailed, zap.Error(dErr))
		}
	}

	rbErr := e.store.RunInTx(ctx, func(tx repositories.Store) error {
		if prev == nil {
			if err := tx.Notes().Delete(ctx, next.ID); err != nil {
				return err
			}
		} else if err := tx.Notes().Put(ctx, prev); err != nil {
			return err
		}
		return tx.Pending().Remove(ctx, entry.ID)
	})
	if rbErr != nil {
		log.Error(ctx, LogRollbackFailed, zap.Error(rbErr))
		err = errors.Join(err, rbErr)
	}

	e.notices.Publish(Notice{
		Kind:      NoticeReverted,
		SourceID:  source.ID,
		NoteID:    next.ID,
		Operation: op,
		Err:       err,
		At:        e.now(),
	})
	return err
}

// push выполняет удаленную операцию для мутации.
func (e *Engine) push(ctx context.Context, source entities.NoteSource, op entities.Operation, note *entities.Note) error {
	if op == entities.OperationCreate {
		row, err := e.remote.CreateRow(ctx, source.SpreadsheetID, note)
		if err != nil {
			return fmt.Errorf("%s: %w", ErrWriteRemote, err)
		}
		e.setRow(ctx, source.RowScope(), note.ID, row)
		return nil
	}

	row, err := e.resolver.Resolve(ctx, source, note.ID)
	if err != nil {
		return err
	}
	if err := e.remote.UpdateRow(ctx, source.SpreadsheetID, row, note); err != nil {
		return fmt.Errorf("%s: %w", ErrWriteRemote, err)
	}
	return nil
}

func (e *Engine) setRow(ctx context.Context, scope, noteID string, row int) {
	if row <= 0 {
		return
	}
	if err := e.rows.Set(ctx, scope, noteID, row); err != nil {
		logger.Log(ctx).Warn(ctx, LogRowIndexFailed,
			zap.String("scope", scope), zap.String("note_id", noteID), zap.Error(err))
	}
}

// PendingCount возвращает число неподтвержденных изменений по всем источникам.
func (e *Engine) PendingCount(ctx context.Context) (int, error) {
	n, err := e.store.Pending().CountAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", ErrCountPending, err)
	}
	return n, nil
}

// Close запрещает новые мутации и ждет завершения фоновых доставок.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()

	logger.Log(ctx).Info(ctx, LogWaitingReplays)

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
