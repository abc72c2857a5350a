package services

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/passbeam/passbeam/internal/common"
	"github.com/passbeam/passbeam/internal/dbx"
	"github.com/passbeam/passbeam/internal/logging"
	"github.com/passbeam/passbeam/internal/server/models"
	"github.com/passbeam/passbeam/internal/server/push"
	"github.com/passbeam/passbeam/internal/server/repositories/passes"
	"github.com/passbeam/passbeam/internal/server/repositories/registrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePassRepo struct {
	byVanity  map[string]*models.Pass
	created   []*models.Pass
	createErr error
	updateErr error
}

func newFakePassRepo() *fakePassRepo {
	return &fakePassRepo{byVanity: map[string]*models.Pass{}}
}

func (f *fakePassRepo) FindByVanityName(ctx context.Context, vanityName string) (*models.Pass, error) {
	if p, ok := f.byVanity[vanityName]; ok {
		return p, nil
	}
	return nil, common.ErrNotFound
}

func (f *fakePassRepo) Create(ctx context.Context, pass *models.Pass) error {
	if f.createErr != nil {
		return f.createErr
	}
	pass.ID = "generated-id"
	f.byVanity[pass.VanityName] = pass
	f.created = append(f.created, pass)
	return nil
}

func (f *fakePassRepo) UpdateArtifact(ctx context.Context, pass *models.Pass) error {
	return f.updateErr
}

type fakeRepoManager struct {
	passes *fakePassRepo
}

func (f *fakeRepoManager) Passes(db dbx.DBTX) passes.Repository { return f.passes }
func (f *fakeRepoManager) Registrations(db dbx.DBTX) registrations.Repository {
	return nil
}
func (f *fakeRepoManager) RunMigrations(ctx context.Context, db *sql.DB) error { return nil }

type fakeBlobStore struct {
	uploads   int
	uploadErr error
	objects   map[string][]byte
	fetchErr  error
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{objects: map[string][]byte{}}
}

func (f *fakeBlobStore) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	f.uploads++
	f.objects[key] = data
	return key, nil
}

func (f *fakeBlobStore) Fetch(ctx context.Context, key string) ([]byte, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.objects[key], nil
}

type fakeNotifier struct {
	calls []*models.Pass
	err   error
}

func (f *fakeNotifier) PassUpdated(ctx context.Context, pass *models.Pass) error {
	f.calls = append(f.calls, pass)
	return f.err
}

type serviceFixture struct {
	svc      *PassService
	repo     *fakePassRepo
	blobs    *fakeBlobStore
	notifier *fakeNotifier
	mock     sqlmock.Sqlmock
}

func newFixture(t *testing.T) *serviceFixture {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := newFakePassRepo()
	blobs := newFakeBlobStore()
	notifier := &fakeNotifier{}
	svc := NewPassService(db, &fakeRepoManager{passes: repo}, blobs, notifier, logging.NewNopLogger())
	return &serviceFixture{svc: svc, repo: repo, blobs: blobs, notifier: notifier, mock: mock}
}

func TestCreate_NewPass(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	pass, err := f.svc.Create(context.Background(), CreatePassInput{
		VanityName:          "concert",
		AuthenticationToken: "tok",
		PassTypeIdentifier:  "pass.com.example.ticket",
		SerialNumber:        "SN-1",
		Data:                []byte("pkpass-bytes"),
	})
	require.NoError(t, err)

	assert.Equal(t, "passes/concert.pkpass", pass.PassPath)
	assert.WithinDuration(t, time.Now(), pass.UpdatedAt, 5*time.Second)
	assert.Equal(t, 1, f.blobs.uploads)
	require.Len(t, f.repo.created, 1)
	assert.Empty(t, f.notifier.calls, "create must not trigger fan-out")
}

func TestCreate_DuplicateName(t *testing.T) {
	f := newFixture(t)
	f.repo.byVanity["concert"] = &models.Pass{ID: "p1", VanityName: "concert"}

	_, err := f.svc.Create(context.Background(), CreatePassInput{VanityName: "concert", Data: []byte("x")})
	require.ErrorIs(t, err, common.ErrAlreadyExists)

	// Neither a second row nor a second blob write may happen.
	assert.Empty(t, f.repo.created)
	assert.Equal(t, 0, f.blobs.uploads)
}

func TestCreate_LostInsertRaceReportsConflict(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	// A rival create commits between the pre-check and our insert; the
	// unique index rejects the insert and the caller sees a conflict.
	f.repo.createErr = common.ErrAlreadyExists

	_, err := f.svc.Create(context.Background(), CreatePassInput{VanityName: "concert", Data: []byte("x")})
	require.ErrorIs(t, err, common.ErrAlreadyExists)
	assert.Empty(t, f.repo.created)
}

func TestCreate_UploadFailureAbortsBeforeInsert(t *testing.T) {
	f := newFixture(t)
	f.blobs.uploadErr = errors.New("bucket gone")

	_, err := f.svc.Create(context.Background(), CreatePassInput{VanityName: "concert", Data: []byte("x")})
	require.Error(t, err)
	assert.Empty(t, f.repo.created)
}

func TestUpdate_PersistsThenNotifies(t *testing.T) {
	f := newFixture(t)
	pass := &models.Pass{ID: "p1", VanityName: "concert", PassTypeIdentifier: "pass.com.example.ticket"}

	updated, err := f.svc.Update(context.Background(), pass, []byte("v2"))
	require.NoError(t, err)

	assert.Equal(t, "passes/concert.pkpass", updated.PassPath)
	require.Len(t, f.notifier.calls, 1)
	assert.Equal(t, "p1", f.notifier.calls[0].ID)
	assert.Equal(t, []byte("v2"), f.blobs.objects["passes/concert.pkpass"])
}

func TestUpdate_FanOutFailureDoesNotFailUpdate(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("registration store down")
	pass := &models.Pass{ID: "p1", VanityName: "concert"}

	_, err := f.svc.Update(context.Background(), pass, []byte("v2"))
	require.NoError(t, err)
}

func TestUpdate_SaveFailureSkipsFanOut(t *testing.T) {
	f := newFixture(t)
	f.repo.updateErr = errors.New("conn reset")
	pass := &models.Pass{ID: "p1", VanityName: "concert"}

	_, err := f.svc.Update(context.Background(), pass, []byte("v2"))
	require.Error(t, err)
	assert.Empty(t, f.notifier.calls)
}

// fakeRegistrationRepo backs a real push.Dispatcher in the end-to-end
// fan-out test below.
type fakeRegistrationRepo struct {
	regs []*models.Registration
}

func (f *fakeRegistrationRepo) FindByPassID(ctx context.Context, passID string) ([]*models.Registration, error) {
	return f.regs, nil
}

func TestUpdate_RelayServerErrorStillSucceeds(t *testing.T) {
	relay := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "relay exploded", http.StatusInternalServerError)
	}))
	defer relay.Close()

	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	regs := &fakeRegistrationRepo{regs: []*models.Registration{
		{PassID: "p1", DeviceToken: "tok-1", ClientApp: models.ClientWalletPasses},
	}}
	dispatcher := push.NewDispatcher(regs, map[models.ClientApp]push.Notifier{
		models.ClientWalletPasses: push.NewWalletPassesNotifier(relay.URL, "key", logging.NewNopLogger()),
	}, logging.NewNopLogger())

	svc := NewPassService(db, &fakeRepoManager{passes: newFakePassRepo()}, newFakeBlobStore(), dispatcher, logging.NewNopLogger())

	pass := &models.Pass{ID: "p1", VanityName: "concert", PassTypeIdentifier: "pass.com.example.ticket"}
	_, err = svc.Update(context.Background(), pass, []byte("v2"))
	require.NoError(t, err, "a failing relay must never fail the update")
}

func TestArtifact_NoUploadYet(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Artifact(context.Background(), &models.Pass{ID: "p1", VanityName: "concert"})
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestArtifact_ReturnsStoredBytes(t *testing.T) {
	f := newFixture(t)
	f.blobs.objects["passes/concert.pkpass"] = []byte("payload")

	data, err := f.svc.Artifact(context.Background(), &models.Pass{ID: "p1", PassPath: "passes/concert.pkpass"})
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)
}
