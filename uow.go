package users

import (
	"context"
	"database/sql"
	"sync"

	"github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

var uowTxCtxKey = &contextKey{"uow-tx"}

// Entity is implemented by persistable models so the generic write
// operations can tell new records from existing ones.
type Entity interface {
	EntityID() int64
}

// UnitOfWork multiplexes persistence operations onto one ambient
// transaction per logical request. The transaction handle travels in the
// context, so any code reachable from Run participates without an explicit
// session argument. Two concurrent requests never share a handle: each Run
// derives its own context.
type UnitOfWork struct {
	db     *bun.DB
	logger Logger
}

func NewUnitOfWork(db *bun.DB) *UnitOfWork {
	return &UnitOfWork{
		db:     db,
		logger: defLogger{},
	}
}

func (u *UnitOfWork) WithLogger(logger Logger) *UnitOfWork {
	if logger != nil {
		u.logger = logger
	}
	return u
}

func (u *UnitOfWork) DB() *bun.DB {
	return u.db
}

// Run executes work inside the ambient transaction. If the context already
// carries one, the nested call joins it and only the outermost Run commits
// or rolls back. Any error from work, or from an operation inside it, rolls
// the whole transaction back; the session is released on every exit path.
func (u *UnitOfWork) Run(ctx context.Context, work func(ctx context.Context) error) error {
	if _, ok := ctx.Value(uowTxCtxKey).(bun.Tx); ok {
		return work(ctx)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	return u.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return work(context.WithValue(ctx, uowTxCtxKey, tx))
	})
}

// InTx reports whether the context is inside an active unit of work.
func (u *UnitOfWork) InTx(ctx context.Context) bool {
	_, ok := ctx.Value(uowTxCtxKey).(bun.Tx)
	return ok
}

// IDB resolves the ambient handle: the in-flight transaction inside Run,
// the bare connection outside. Operations issued outside Run still execute,
// each as its own implicit transaction, matching the lazy session the
// original contract asks for.
func (u *UnitOfWork) IDB(ctx context.Context) bun.IDB {
	if tx, ok := ctx.Value(uowTxCtxKey).(bun.Tx); ok {
		return tx
	}
	return u.db
}

// FindByID loads the entity with the given id, or nil if absent. Absence is
// a normal result, not an error.
func FindByID[T any](ctx context.Context, u *UnitOfWork, id int64) (*T, error) {
	record := new(T)
	err := u.IDB(ctx).NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapStoreError(err, "find by id")
	}

	return record, nil
}

// FindAll loads a page of entities. A non-positive limit falls back to 100.
func FindAll[T any](ctx context.Context, u *UnitOfWork, offset, limit int) ([]T, error) {
	if limit <= 0 {
		limit = 100
	}

	var records []T
	err := u.IDB(ctx).NewSelect().
		Model(&records).
		Offset(offset).
		Limit(limit).
		Scan(ctx)

	if err != nil {
		return nil, wrapStoreError(err, "find all")
	}

	return records, nil
}

// FindByQuery runs a registered named query expecting at most one row.
func FindByQuery[T any](ctx context.Context, u *UnitOfWork, queryName string, params ...any) (*T, error) {
	query, ok := lookupQuery(queryName)
	if !ok {
		return nil, errors.New("unknown named query: "+queryName, errors.CategoryBadInput)
	}

	record := new(T)
	err := u.IDB(ctx).NewRaw(query, params...).Scan(ctx, record)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapStoreError(err, queryName)
	}

	return record, nil
}

// FindAllByQuery runs a registered named query returning every matching row.
func FindAllByQuery[T any](ctx context.Context, u *UnitOfWork, queryName string, params ...any) ([]T, error) {
	query, ok := lookupQuery(queryName)
	if !ok {
		return nil, errors.New("unknown named query: "+queryName, errors.CategoryBadInput)
	}

	var records []T
	err := u.IDB(ctx).NewRaw(query, params...).Scan(ctx, &records)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return records, nil
		}
		return nil, wrapStoreError(err, queryName)
	}

	return records, nil
}

// Save creates the entity when its id is unassigned and updates it
// otherwise. The store assigns ids on insert.
func Save[T Entity](ctx context.Context, u *UnitOfWork, record T) (T, error) {
	var err error
	if record.EntityID() == 0 {
		_, err = u.IDB(ctx).NewInsert().Model(record).Exec(ctx)
	} else {
		_, err = u.IDB(ctx).NewUpdate().Model(record).WherePK().Exec(ctx)
	}

	if err != nil {
		var zero T
		return zero, wrapStoreError(err, "save")
	}

	return record, nil
}

// Remove deletes the entity. Removing an entity the store does not know is
// not an error; the store simply reports nothing deleted.
func Remove[T Entity](ctx context.Context, u *UnitOfWork, record T) error {
	_, err := u.IDB(ctx).NewDelete().Model(record).WherePK().Exec(ctx)
	if err != nil {
		return wrapStoreError(err, "remove")
	}
	return nil
}

var (
	queriesMu    sync.RWMutex
	namedQueries = map[string]string{}
)

// RegisterQuery adds a named parametrized query to the shared registry.
func RegisterQuery(name, query string) {
	queriesMu.Lock()
	defer queriesMu.Unlock()
	namedQueries[name] = query
}

func lookupQuery(name string) (string, bool) {
	queriesMu.RLock()
	defer queriesMu.RUnlock()
	query, ok := namedQueries[name]
	return query, ok
}
