// Package passes provides the PostgreSQL-backed repository for pass
// metadata rows.
package passes

import (
	"context"

	"github.com/passbeam/passbeam/internal/server/models"
)

// Repository persists pass metadata. FindByVanityName returns
// common.ErrNotFound when no row matches.
type Repository interface {
	FindByVanityName(ctx context.Context, vanityName string) (*models.Pass, error)
	Create(ctx context.Context, pass *models.Pass) error
	UpdateArtifact(ctx context.Context, pass *models.Pass) error
}
