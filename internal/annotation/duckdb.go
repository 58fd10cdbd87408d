package annotation

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-autotrade/internal/logger"
	"github.com/rxtech-lab/argo-autotrade/internal/types"
	"github.com/rxtech-lab/argo-autotrade/pkg/errors"
	"go.uber.org/zap"
)

// DuckDBStore persists annotations in a DuckDB database file.
type DuckDBStore struct {
	db     *sql.DB
	path   string
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
	mu     sync.Mutex
	now    func() time.Time
}

// NewDuckDBStore opens (or creates) the database at path. An empty path or
// ":memory:" keeps everything in memory.
func NewDuckDBStore(path string, log *logger.Logger) (*DuckDBStore, error) {
	dsn := path
	if dsn == "" {
		dsn = ":memory:"
	}

	if dsn != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			return nil, errors.Wrap(errors.ErrCodeStorageFailed, "failed to create annotation directory", err)
		}
	}

	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeStorageFailed, err, "failed to open annotation database %s", dsn)
	}

	if err := db.Ping(); err != nil {
		db.Close()

		return nil, errors.Wrapf(errors.ErrCodeStorageFailed, err, "failed to connect to annotation database %s", dsn)
	}

	store := &DuckDBStore{
		db:     db,
		path:   dsn,
		logger: log.Named("annotations"),
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
		mu:     sync.Mutex{},
		now:    time.Now,
	}

	if err := store.initialize(); err != nil {
		db.Close()

		return nil, err
	}

	return store, nil
}

func (s *DuckDBStore) initialize() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS annotations (
			ticket BIGINT PRIMARY KEY,
			text TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorageFailed, "failed to create annotations table", err)
	}

	return nil
}

func (s *DuckDBStore) Put(ctx context.Context, ticket uint64, text string) error {
	if err := checkTicket(ticket); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return errors.New(errors.ErrCodeStorageFailed, "annotation store is closed")
	}

	now := s.now().UTC()

	query, args, err := s.sq.
		Insert(tableName).
		Columns("ticket", "text", "created_at", "updated_at").
		Values(int64(ticket), text, now, now).
		Suffix("ON CONFLICT (ticket) DO UPDATE SET text = excluded.text, updated_at = excluded.updated_at").
		ToSql()
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorageFailed, "failed to build annotation upsert", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrapf(errors.ErrCodeStorageFailed, err, "failed to store annotation for ticket %d", ticket)
	}

	s.logger.Debug("Stored annotation", zap.Uint64("ticket", ticket), zap.Int("length", len(text)))

	return nil
}

func (s *DuckDBStore) Get(ctx context.Context, ticket uint64) (optional.Option[string], error) {
	record, err := s.Record(ctx, ticket)
	if err != nil {
		return optional.None[string](), err
	}

	if record.IsNone() {
		return optional.None[string](), nil
	}

	return optional.Some(record.Unwrap().Text), nil
}

func (s *DuckDBStore) Record(ctx context.Context, ticket uint64) (optional.Option[types.AnnotationRecord], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return optional.None[types.AnnotationRecord](), errors.New(errors.ErrCodeStorageFailed, "annotation store is closed")
	}

	record := types.AnnotationRecord{
		Ticket:    ticket,
		Text:      "",
		CreatedAt: time.Time{},
		UpdatedAt: time.Time{},
	}

	err := s.sq.
		Select("text", "created_at", "updated_at").
		From(tableName).
		Where(squirrel.Eq{"ticket": int64(ticket)}).
		RunWith(s.db).
		QueryRowContext(ctx).
		Scan(&record.Text, &record.CreatedAt, &record.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return optional.None[types.AnnotationRecord](), nil
	}

	if err != nil {
		return optional.None[types.AnnotationRecord](), errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to read annotation for ticket %d", ticket)
	}

	return optional.Some(record), nil
}

// Count returns the number of stored annotations.
func (s *DuckDBStore) Count(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return 0, errors.New(errors.ErrCodeStorageFailed, "annotation store is closed")
	}

	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM annotations").Scan(&count); err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to count annotations", err)
	}

	return count, nil
}

// Path returns the database location.
func (s *DuckDBStore) Path() string {
	return s.path
}

func (s *DuckDBStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}

	err := s.db.Close()
	s.db = nil

	if err != nil {
		return errors.Wrap(errors.ErrCodeStorageFailed, "failed to close annotation database", err)
	}

	return nil
}
