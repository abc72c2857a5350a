package passes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/passbeam/passbeam/internal/common"
	"github.com/passbeam/passbeam/internal/dbx"
	"github.com/passbeam/passbeam/internal/server/models"
)

// PostgresRepository implements pass storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// FindByVanityName returns the pass registered under vanityName, or
// common.ErrNotFound when no such row exists. Vanity names are stored
// exactly as created; the match is exact.
func (r *PostgresRepository) FindByVanityName(ctx context.Context, vanityName string) (*models.Pass, error) {
	query := `
		SELECT id, vanity_name, authentication_token, pass_type_identifier, serial_number, pass_path, updated_at
		FROM passes
		WHERE vanity_name = $1
	`
	var (
		item     models.Pass
		passPath sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query, vanityName).Scan(
		&item.ID, &item.VanityName, &item.AuthenticationToken,
		&item.PassTypeIdentifier, &item.SerialNumber, &passPath, &item.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	item.PassPath = passPath.String
	return &item, nil
}

// Create inserts a new pass row, assigning an ID when the caller did not.
// A vanity name collision surfaces as common.ErrAlreadyExists via the
// unique index on vanity_name.
func (r *PostgresRepository) Create(ctx context.Context, pass *models.Pass) error {
	if pass.ID == "" {
		pass.ID = uuid.NewString()
	}
	query := `
		INSERT INTO passes (id, vanity_name, authentication_token, pass_type_identifier, serial_number, pass_path, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		pass.ID, pass.VanityName, pass.AuthenticationToken,
		pass.PassTypeIdentifier, pass.SerialNumber, nullableString(pass.PassPath), pass.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return common.ErrAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a Postgres unique_violation
// (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// UpdateArtifact persists a new artifact handle and timestamp for an
// existing pass. Returns common.ErrNotFound when the row is gone.
func (r *PostgresRepository) UpdateArtifact(ctx context.Context, pass *models.Pass) error {
	query := `
		UPDATE passes SET pass_path = $1, updated_at = $2 WHERE id = $3
	`
	res, err := r.db.ExecContext(ctx, query, nullableString(pass.PassPath), pass.UpdatedAt, pass.ID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
