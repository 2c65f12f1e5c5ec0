package ports

import (
	"context"

	"github.com/wadjakorntonsri/go-beacon/pkg/core/domain"
)

// VisitSink appends visits to durable output. Implementations must write
// each visit as one whole line and be safe for concurrent use.
type VisitSink interface {
	Append(ctx context.Context, visit domain.Visit) error
}

// BeaconService defines the business logic behind the tracking pixel
type BeaconService interface {
	Record(ctx context.Context, hit domain.Hit) (domain.Visit, error)
}

// VisitRepository defines the report store used by offline tooling
type VisitRepository interface {
	RecordVisit(ctx context.Context, visit *domain.Visit) error
	RecordVisits(ctx context.Context, visits []domain.Visit) error
	ReplaceVisits(ctx context.Context, visits []domain.Visit) error
	Count(ctx context.Context) (int64, error)
	Dump(ctx context.Context) ([]domain.Visit, error) // For export

	// Stats
	GetStats(ctx context.Context, limit int) (*domain.VisitStats, error)
}
