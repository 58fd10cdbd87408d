package annotation

import (
	"context"
	"sync"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-autotrade/internal/logger"
	"github.com/rxtech-lab/argo-autotrade/internal/types"
	"github.com/rxtech-lab/argo-autotrade/pkg/errors"
	"go.uber.org/zap"
)

// PostgresStore persists annotations in a shared Postgres database, for
// deployments where several processes list the same account.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
	mu     sync.Mutex
	now    func() time.Time
}

func NewPostgresStore(ctx context.Context, dsn string, log *logger.Logger) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorageFailed, "failed to create postgres pool", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()

		return nil, errors.Wrap(errors.ErrCodeStorageFailed, "failed to connect to postgres", err)
	}

	store := &PostgresStore{
		pool:   pool,
		logger: log.Named("annotations"),
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		mu:     sync.Mutex{},
		now:    time.Now,
	}

	if _, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS annotations (
			ticket BIGINT PRIMARY KEY,
			text TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)
	`); err != nil {
		pool.Close()

		return nil, errors.Wrap(errors.ErrCodeStorageFailed, "failed to create annotations table", err)
	}

	return store, nil
}

func (s *PostgresStore) Put(ctx context.Context, ticket uint64, text string) error {
	if err := checkTicket(ticket); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pool == nil {
		return errors.New(errors.ErrCodeStorageFailed, "annotation store is closed")
	}

	now := s.now().UTC()

	query, args, err := s.sq.
		Insert(tableName).
		Columns("ticket", "text", "created_at", "updated_at").
		Values(int64(ticket), text, now, now).
		Suffix("ON CONFLICT (ticket) DO UPDATE SET text = EXCLUDED.text, updated_at = EXCLUDED.updated_at").
		ToSql()
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorageFailed, "failed to build annotation upsert", err)
	}

	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return errors.Wrapf(errors.ErrCodeStorageFailed, err, "failed to store annotation for ticket %d", ticket)
	}

	s.logger.Debug("Stored annotation", zap.Uint64("ticket", ticket), zap.Int("length", len(text)))

	return nil
}

func (s *PostgresStore) Get(ctx context.Context, ticket uint64) (optional.Option[string], error) {
	record, err := s.Record(ctx, ticket)
	if err != nil || record.IsNone() {
		return optional.None[string](), err
	}

	return optional.Some(record.Unwrap().Text), nil
}

func (s *PostgresStore) Record(ctx context.Context, ticket uint64) (optional.Option[types.AnnotationRecord], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pool == nil {
		return optional.None[types.AnnotationRecord](), errors.New(errors.ErrCodeStorageFailed, "annotation store is closed")
	}

	query, args, err := s.sq.
		Select("text", "created_at", "updated_at").
		From(tableName).
		Where(squirrel.Eq{"ticket": int64(ticket)}).
		ToSql()
	if err != nil {
		return optional.None[types.AnnotationRecord](), errors.Wrap(errors.ErrCodeQueryFailed, "failed to build annotation query", err)
	}

	record := types.AnnotationRecord{
		Ticket:    ticket,
		Text:      "",
		CreatedAt: time.Time{},
		UpdatedAt: time.Time{},
	}

	err = s.pool.QueryRow(ctx, query, args...).Scan(&record.Text, &record.CreatedAt, &record.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return optional.None[types.AnnotationRecord](), nil
	}

	if err != nil {
		return optional.None[types.AnnotationRecord](), errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to read annotation for ticket %d", ticket)
	}

	record.CreatedAt = record.CreatedAt.UTC()
	record.UpdatedAt = record.UpdatedAt.UTC()

	return optional.Some(record), nil
}

func (s *PostgresStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pool != nil {
		s.pool.Close()
		s.pool = nil
	}

	return nil
}
