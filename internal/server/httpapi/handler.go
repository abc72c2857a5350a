// Package httpapi serves the vanity pass HTTP surface: public artifact
// distribution plus the authenticated create/update endpoints.
package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/passbeam/passbeam/internal/common"
	"github.com/passbeam/passbeam/internal/logging"
	"github.com/passbeam/passbeam/internal/server/models"
	"github.com/passbeam/passbeam/internal/server/services"
	"github.com/passbeam/passbeam/internal/server/vanity"
)

// Pass artifacts stay small; cap multipart memory generously.
const maxMultipartMemory = 32 << 20

// PassService is the slice of the service layer the handlers depend on.
type PassService interface {
	FindByVanityName(ctx context.Context, vanityName string) (*models.Pass, error)
	Artifact(ctx context.Context, pass *models.Pass) ([]byte, error)
	Create(ctx context.Context, in services.CreatePassInput) (*models.Pass, error)
	Update(ctx context.Context, pass *models.Pass, data []byte) (*models.Pass, error)
}

// Handler implements the vanity pass endpoints.
type Handler struct {
	passes PassService
	logger logging.Logger

	// updatePassword guards POST/PUT. Empty means the gate is open.
	updatePassword string
}

// NewHandler constructs the endpoint handler.
func NewHandler(passes PassService, updatePassword string, logger logging.Logger) *Handler {
	return &Handler{passes: passes, updatePassword: updatePassword, logger: logger}
}

// isAuthenticated checks the mutation auth gate: with no configured
// secret every request is authenticated, otherwise the Authorization
// header must literally equal "Bearer <secret>".
func (h *Handler) isAuthenticated(r *http.Request) bool {
	if h.updatePassword == "" {
		return true
	}
	return r.Header.Get("Authorization") == "Bearer "+h.updatePassword
}

// ShowPass serves GET /{passName}: the stored artifact bytes with the
// wallet media type and a Last-Modified header derived from the pass.
func (h *Handler) ShowPass(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	vanityName, err := vanity.ParseName(chi.URLParam(r, "passName"))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	pass, err := h.passes.FindByVanityName(ctx, vanityName)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error(ctx, "pass lookup failed", "vanity_name", vanityName, "error", err.Error())
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	data, err := h.passes.Artifact(ctx, pass)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error(ctx, "artifact read failed", "vanity_name", vanityName, "error", err.Error())
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	updatedAt := pass.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	w.Header().Set("Content-Type", models.PassContentType)
	w.Header().Set("Last-Modified", updatedAt.UTC().Format(http.TimeFormat))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// CreatePass serves POST /{passName}: registers a brand-new pass under the
// vanity name. Names are taken exactly once.
func (h *Handler) CreatePass(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !h.isAuthenticated(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	vanityName, err := vanity.ParseName(chi.URLParam(r, "passName"))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	if _, err := h.passes.FindByVanityName(ctx, vanityName); err == nil {
		http.Error(w, "pass already exists", http.StatusPreconditionFailed)
		return
	} else if !errors.Is(err, common.ErrNotFound) {
		h.logger.Error(ctx, "pass lookup failed", "vanity_name", vanityName, "error", err.Error())
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	in := services.CreatePassInput{
		VanityName:          vanityName,
		AuthenticationToken: r.FormValue("authentication_token"),
		PassTypeIdentifier:  r.FormValue("pass_type_identifier"),
		SerialNumber:        r.FormValue("serial_number"),
	}
	if in.AuthenticationToken == "" || in.PassTypeIdentifier == "" || in.SerialNumber == "" {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	data, ok := h.readPassFile(w, r)
	if !ok {
		return
	}
	in.Data = data

	if _, err := h.passes.Create(ctx, in); err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			http.Error(w, "pass already exists", http.StatusPreconditionFailed)
			return
		}
		h.logger.Error(ctx, "pass create failed", "vanity_name", vanityName, "error", err.Error())
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	h.logger.Info(ctx, "pass created", "vanity_name", vanityName)
	w.WriteHeader(http.StatusCreated)
}

// UpdatePass serves PUT /{passName}: replaces the artifact of an existing
// pass, triggers fan-out, and redirects the uploader to the distribution
// endpoint with 303 See Other.
func (h *Handler) UpdatePass(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !h.isAuthenticated(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	vanityName, err := vanity.ParseName(chi.URLParam(r, "passName"))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	pass, err := h.passes.FindByVanityName(ctx, vanityName)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error(ctx, "pass lookup failed", "vanity_name", vanityName, "error", err.Error())
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	data, ok := h.readPassFile(w, r)
	if !ok {
		return
	}

	if _, err := h.passes.Update(ctx, pass, data); err != nil {
		h.logger.Error(ctx, "pass update failed", "vanity_name", vanityName, "error", err.Error())
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	h.logger.Info(ctx, "pass updated", "vanity_name", vanityName)
	w.Header().Set("Content-Type", models.PassContentType)
	w.Header().Set("Location", r.URL.RequestURI())
	w.WriteHeader(http.StatusSeeOther)
}

// readPassFile pulls the required "pass" binary part out of the already
// parsed multipart form, answering 400 itself when the part is missing or
// unreadable.
func (h *Handler) readPassFile(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	file, _, err := r.FormFile("pass")
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return nil, false
	}
	return data, true
}
