// Package services implements the application operations behind the
// vanity pass endpoints.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/passbeam/passbeam/internal/common"
	"github.com/passbeam/passbeam/internal/dbx"
	"github.com/passbeam/passbeam/internal/logging"
	"github.com/passbeam/passbeam/internal/server/blob"
	"github.com/passbeam/passbeam/internal/server/models"
	"github.com/passbeam/passbeam/internal/server/repositories/repomanager"
)

// UpdateNotifier triggers the notification fan-out after a pass update.
// Satisfied by push.Dispatcher.
type UpdateNotifier interface {
	PassUpdated(ctx context.Context, pass *models.Pass) error
}

// PassService owns pass lifecycle: lookup, artifact fetch, create-once and
// update-with-fan-out.
type PassService struct {
	db       *sql.DB
	repos    repomanager.RepositoryManager
	blobs    blob.Store
	notifier UpdateNotifier
	logger   logging.Logger
}

// NewPassService wires the service over its collaborators.
func NewPassService(db *sql.DB, repos repomanager.RepositoryManager, blobs blob.Store, notifier UpdateNotifier, logger logging.Logger) *PassService {
	return &PassService{
		db:       db,
		repos:    repos,
		blobs:    blobs,
		notifier: notifier,
		logger:   logger,
	}
}

// FindByVanityName resolves a bare vanity name against the pass store.
func (s *PassService) FindByVanityName(ctx context.Context, vanityName string) (*models.Pass, error) {
	return s.repos.Passes(s.db).FindByVanityName(ctx, vanityName)
}

// Artifact returns the stored pass bytes. A pass without an uploaded
// artifact yields common.ErrNotFound rather than an empty body.
func (s *PassService) Artifact(ctx context.Context, pass *models.Pass) ([]byte, error) {
	if !pass.HasArtifact() {
		return nil, common.ErrNotFound
	}
	return s.blobs.Fetch(ctx, pass.PassPath)
}

// CreatePassInput carries the multipart fields of a create request.
type CreatePassInput struct {
	VanityName          string
	AuthenticationToken string
	PassTypeIdentifier  string
	SerialNumber        string
	Data                []byte
}

// Create registers a new pass under its vanity name. The name is taken
// exactly once: an existing row yields common.ErrAlreadyExists before any
// blob write happens.
func (s *PassService) Create(ctx context.Context, in CreatePassInput) (*models.Pass, error) {
	_, err := s.repos.Passes(s.db).FindByVanityName(ctx, in.VanityName)
	if err == nil {
		return nil, common.ErrAlreadyExists
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("checking vanity name: %w", err)
	}

	passPath, err := s.blobs.Upload(ctx, blob.ArtifactKey(in.VanityName), in.Data, models.PassContentType)
	if err != nil {
		return nil, fmt.Errorf("uploading artifact: %w", err)
	}

	pass := &models.Pass{
		VanityName:          in.VanityName,
		AuthenticationToken: in.AuthenticationToken,
		PassTypeIdentifier:  in.PassTypeIdentifier,
		SerialNumber:        in.SerialNumber,
		PassPath:            passPath,
		UpdatedAt:           time.Now().UTC(),
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		// Re-check so a create committed since the pre-check is reported
		// as a conflict; the unique index on vanity_name backstops the
		// race this read cannot see.
		if _, err := s.repos.Passes(tx).FindByVanityName(ctx, in.VanityName); err == nil {
			return common.ErrAlreadyExists
		} else if !errors.Is(err, common.ErrNotFound) {
			return err
		}
		return s.repos.Passes(tx).Create(ctx, pass)
	})
	if err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return nil, common.ErrAlreadyExists
		}
		return nil, fmt.Errorf("creating pass: %w", err)
	}

	return pass, nil
}

// Update replaces the pass artifact, persists the new version, and then
// triggers the notification fan-out. Upload and save failures are fatal;
// fan-out failures are logged and never surfaced, so notification delivery
// can never fail the update that triggered it.
func (s *PassService) Update(ctx context.Context, pass *models.Pass, data []byte) (*models.Pass, error) {
	passPath, err := s.blobs.Upload(ctx, blob.ArtifactKey(pass.VanityName), data, models.PassContentType)
	if err != nil {
		return nil, fmt.Errorf("uploading artifact: %w", err)
	}

	pass.PassPath = passPath
	pass.UpdatedAt = time.Now().UTC()
	if err := s.repos.Passes(s.db).UpdateArtifact(ctx, pass); err != nil {
		return nil, fmt.Errorf("saving pass: %w", err)
	}

	// Registrations are notified against the already-persisted version.
	if err := s.notifier.PassUpdated(ctx, pass); err != nil {
		s.logger.Error(ctx, "notification fan-out failed",
			"vanity_name", pass.VanityName, "error", err.Error())
	}

	return pass, nil
}
