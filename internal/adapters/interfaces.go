package adapters

import "context"

// DBAdapter defines the interface for database operations needed by the storage engines.
type DBAdapter interface {
	Query(ctx context.Context, query string, args ...any) (DBRows, error)
	Exec(ctx context.Context, query string, args ...any) (DBResult, error)
	Begin(ctx context.Context) (DBTx, error)
}

// DBTx defines the interface for a single database transaction. It exposes the
// same query operations as DBAdapter plus termination; Rollback after a
// successful Commit must be a no-op so it can be deferred on all exit paths.
type DBTx interface {
	Query(ctx context.Context, query string, args ...any) (DBRows, error)
	Exec(ctx context.Context, query string, args ...any) (DBResult, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// DBRows defines the interface for query result rows. Err reports any error
// that terminated iteration early; callers must check it once Next returns
// false, since a mid-result-set connection failure is only visible there.
type DBRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// DBResult defines the interface for execution results.
type DBResult interface {
	RowsAffected() (int64, error)
}
