package database

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

func NewPostgresPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	config.MaxConns = 20
	config.MinConns = 2
	return pgxpool.NewWithConfig(ctx, config)
}

// maxTxRetries bounds the retry loop for serialization failures.
const maxTxRetries = 3

// Store bundles the connection pool with pool-backed repositories and runs
// mutations in serializable transactions.
type Store struct {
	pool *pgxpool.Pool
	*Repositories
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, Repositories: NewRepositories(pool)}
}

// NewStoreWithRepositories builds a Store over pre-built repositories without
// a pool. InTx then runs its function against those repositories directly;
// callers bring their own atomicity (in-memory fakes, an enclosing tx).
func NewStoreWithRepositories(r *Repositories) *Store {
	return &Store{Repositories: r}
}

// InTx runs fn inside a serializable transaction, handing it repositories
// bound to that transaction. Serialization failures (SQLSTATE 40001) are
// retried up to maxTxRetries times; the mutations are idempotent to retry
// because duplicate-edge checks reject replayed work.
func (s *Store) InTx(ctx context.Context, fn func(r *Repositories) error) error {
	if s.pool == nil {
		return fn(s.Repositories)
	}
	var err error
	for attempt := 0; attempt < maxTxRetries; attempt++ {
		err = s.runTx(ctx, fn)
		if err == nil || !isSerializationFailure(err) {
			return err
		}
	}
	return err
}

func (s *Store) runTx(ctx context.Context, fn func(r *Repositories) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(NewRepositories(tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "40001"
}
