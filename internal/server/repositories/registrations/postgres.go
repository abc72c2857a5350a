package registrations

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/passbeam/passbeam/internal/dbx"
	"github.com/passbeam/passbeam/internal/server/models"
)

// PostgresRepository implements registration reads over a dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// FindByPassID returns every registration row referencing passID.
// Duplicates are returned as stored; dedup is not this layer's concern.
func (r *PostgresRepository) FindByPassID(ctx context.Context, passID string) ([]*models.Registration, error) {
	query := `
		SELECT id, pass_id, device_library_identifier, device_token, client_app
		FROM registrations
		WHERE pass_id = $1
	`
	rows, err := r.db.QueryContext(ctx, query, passID)
	if err != nil {
		return nil, fmt.Errorf("failed to select registrations: %w", err)
	}
	defer rows.Close()

	var result []*models.Registration
	for rows.Next() {
		var (
			item      models.Registration
			clientApp sql.NullString
		)
		if err := rows.Scan(
			&item.ID, &item.PassID, &item.DeviceLibraryIdentifier, &item.DeviceToken, &clientApp,
		); err != nil {
			return nil, err
		}
		item.ClientApp = models.ClientApp(clientApp.String)
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
