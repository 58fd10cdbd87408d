// Package annotation keeps the full decision rationale for each ticket.
//
// The venue truncates order comments to a few dozen bytes, so the untruncated
// text is stored here keyed by ticket and substituted back when positions and
// pending orders are listed.
package annotation

import (
	"context"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-autotrade/internal/config"
	"github.com/rxtech-lab/argo-autotrade/internal/logger"
	"github.com/rxtech-lab/argo-autotrade/internal/types"
	"github.com/rxtech-lab/argo-autotrade/pkg/errors"
)

// Store is a durable ticket → text mapping with upsert semantics.
// A Put is atomic: Get observes either the previous text or the new one.
type Store interface {
	// Put inserts or replaces the text for ticket. The first creation time is kept.
	Put(ctx context.Context, ticket uint64, text string) error
	// Get returns None when nothing was stored for ticket.
	Get(ctx context.Context, ticket uint64) (optional.Option[string], error)
	// Record returns the full row including timestamps.
	Record(ctx context.Context, ticket uint64) (optional.Option[types.AnnotationRecord], error)
	Close() error
}

const (
	DriverDuckDB   = "duckdb"
	DriverPostgres = "postgres"
)

const tableName = "annotations"

// New opens the store selected by cfg.Driver.
func New(ctx context.Context, cfg config.AnnotationsConfig, log *logger.Logger) (Store, error) {
	switch cfg.Driver {
	case DriverDuckDB:
		return NewDuckDBStore(cfg.Path, log)
	case DriverPostgres:
		return NewPostgresStore(ctx, cfg.DSN, log)
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "unsupported annotation driver: %s", cfg.Driver)
	}
}

func checkTicket(ticket uint64) error {
	if ticket == 0 {
		return errors.New(errors.ErrCodeInvalidParameter, "annotation ticket must be non-zero")
	}

	return nil
}
