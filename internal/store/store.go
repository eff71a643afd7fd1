// Package store persists disasters and their field resources.
package store

import (
	"context"
	"errors"

	"github.com/reliefgrid/disaster-aggregator/internal/domain"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Store persists disaster records and resources. Implementations assign IDs
// on save when the record has none.
type Store interface {
	SaveDisaster(ctx context.Context, d domain.Disaster) (domain.Disaster, error)
	Disaster(ctx context.Context, id string) (domain.Disaster, error)
	Disasters(ctx context.Context) ([]domain.Disaster, error)

	SaveResource(ctx context.Context, r domain.Resource) (domain.Resource, error)
	Resources(ctx context.Context) ([]domain.Resource, error)
	ResourcesByDisaster(ctx context.Context, disasterID string) ([]domain.Resource, error)
}
