package annotation

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-autotrade/internal/config"
	"github.com/rxtech-lab/argo-autotrade/internal/logger"
	"github.com/rxtech-lab/argo-autotrade/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type DuckDBStoreTestSuite struct {
	suite.Suite
	ctx   context.Context
	path  string
	store *DuckDBStore
}

func TestDuckDBStoreSuite(t *testing.T) {
	suite.Run(t, new(DuckDBStoreTestSuite))
}

func (s *DuckDBStoreTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.path = filepath.Join(s.T().TempDir(), "data", "annotations.duckdb")

	store, err := NewDuckDBStore(s.path, logger.NewNop())
	s.Require().NoError(err)
	s.store = store
}

func (s *DuckDBStoreTestSuite) TearDownTest() {
	if s.store != nil {
		s.NoError(s.store.Close())
	}
}

// ============================================================================
// Put / Get
// ============================================================================

func (s *DuckDBStoreTestSuite) TestGetMissing() {
	text, err := s.store.Get(s.ctx, 42)
	s.Require().NoError(err)
	s.True(text.IsNone())
}

func (s *DuckDBStoreTestSuite) TestRoundTrip() {
	full := "BUY EURUSD | breakout above 1.1050 with rising volume, RSI 58, targeting prior swing high"

	s.Require().NoError(s.store.Put(s.ctx, 123456, full))

	text, err := s.store.Get(s.ctx, 123456)
	s.Require().NoError(err)
	s.Require().True(text.IsSome())
	s.Equal(full, text.Unwrap())
}

func (s *DuckDBStoreTestSuite) TestUpsertKeepsCreatedAt() {
	first := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	second := first.Add(time.Hour)

	s.store.now = func() time.Time { return first }
	s.Require().NoError(s.store.Put(s.ctx, 7, "first"))

	s.store.now = func() time.Time { return second }
	s.Require().NoError(s.store.Put(s.ctx, 7, "second"))

	record, err := s.store.Record(s.ctx, 7)
	s.Require().NoError(err)
	s.Require().True(record.IsSome())
	s.Equal("second", record.Unwrap().Text)
	s.True(first.Equal(record.Unwrap().CreatedAt))
	s.True(second.Equal(record.Unwrap().UpdatedAt))

	count, err := s.store.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, count)
}

func (s *DuckDBStoreTestSuite) TestZeroTicketRejected() {
	err := s.store.Put(s.ctx, 0, "x")
	s.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))
}

func (s *DuckDBStoreTestSuite) TestUnicodeAndQuotes() {
	text := `Stop moved to "breakeven"; O'Neil pattern ✓`
	s.Require().NoError(s.store.Put(s.ctx, 9, text))

	got, err := s.store.Get(s.ctx, 9)
	s.Require().NoError(err)
	s.Equal(text, got.Unwrap())
}

// ============================================================================
// Durability
// ============================================================================

func (s *DuckDBStoreTestSuite) TestSurvivesRestart() {
	s.Require().NoError(s.store.Put(s.ctx, 1001, "opened on London breakout"))
	s.Require().NoError(s.store.Close())

	reopened, err := NewDuckDBStore(s.path, logger.NewNop())
	s.Require().NoError(err)
	s.store = reopened

	text, err := s.store.Get(s.ctx, 1001)
	s.Require().NoError(err)
	s.Require().True(text.IsSome())
	s.Equal("opened on London breakout", text.Unwrap())
}

func (s *DuckDBStoreTestSuite) TestClosedStore() {
	s.Require().NoError(s.store.Close())
	s.NoError(s.store.Close())

	err := s.store.Put(s.ctx, 1, "x")
	s.True(errors.HasCode(err, errors.ErrCodeStorageFailed))

	_, err = s.store.Get(s.ctx, 1)
	s.True(errors.HasCode(err, errors.ErrCodeStorageFailed))

	s.store = nil
}

// ============================================================================
// Concurrency
// ============================================================================

func (s *DuckDBStoreTestSuite) TestConcurrentWritersNeverTear() {
	const writers = 8

	var wg sync.WaitGroup

	for i := 0; i < writers; i++ {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			for j := 0; j < 10; j++ {
				_ = s.store.Put(s.ctx, 55, fmt.Sprintf("writer-%d-iteration-%d", i, j))
				_ = s.store.Put(s.ctx, uint64(100+i), "own")
			}
		}(i)
	}

	wg.Wait()

	text, err := s.store.Get(s.ctx, 55)
	s.Require().NoError(err)
	s.Regexp(`^writer-\d-iteration-\d$`, text.Unwrap())

	count, err := s.store.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(writers+1, count)
}

// ============================================================================
// Factory
// ============================================================================

func (s *DuckDBStoreTestSuite) TestNewFromConfig() {
	store, err := New(s.ctx, config.AnnotationsConfig{
		Driver: DriverDuckDB,
		Path:   filepath.Join(s.T().TempDir(), "other.duckdb"),
		DSN:    "",
	}, logger.NewNop())
	s.Require().NoError(err)
	s.NoError(store.Close())

	_, err = New(s.ctx, config.AnnotationsConfig{Driver: "sqlite", Path: "", DSN: ""}, logger.NewNop())
	s.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func (s *DuckDBStoreTestSuite) TestInMemory() {
	store, err := NewDuckDBStore("", logger.NewNop())
	s.Require().NoError(err)
	defer store.Close()

	s.Equal(":memory:", store.Path())
	s.Require().NoError(store.Put(s.ctx, 3, "volatile"))

	text, err := store.Get(s.ctx, 3)
	s.Require().NoError(err)
	s.Equal("volatile", text.Unwrap())
}
