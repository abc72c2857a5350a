// Package registrations provides read access to device registration rows.
// Registration lifecycle belongs to the wallet web-service endpoints; this
// slice of the server only ever lists them for notification fan-out.
package registrations

import (
	"context"

	"github.com/passbeam/passbeam/internal/server/models"
)

// Repository reads device registrations.
type Repository interface {
	FindByPassID(ctx context.Context, passID string) ([]*models.Registration, error)
}
