package push

import (
	"context"
	"fmt"

	"github.com/passbeam/passbeam/internal/logging"
	"github.com/passbeam/passbeam/internal/server/models"
	"github.com/passbeam/passbeam/internal/server/observability/metrics"
	"github.com/passbeam/passbeam/internal/server/repositories/registrations"
)

// Dispatcher fans an update notification out to every device registered
// for a pass, partitioned by push backend.
type Dispatcher struct {
	registrations registrations.Repository
	notifiers     map[models.ClientApp]Notifier
	logger        logging.Logger

	// launch runs a backend branch; replaced in tests to run synchronously.
	launch func(fn func())
}

// NewDispatcher builds a dispatcher over the given registration store and
// backend notifiers. The notifier map is read-only after construction.
func NewDispatcher(repo registrations.Repository, notifiers map[models.ClientApp]Notifier, logger logging.Logger) *Dispatcher {
	return &Dispatcher{
		registrations: repo,
		notifiers:     notifiers,
		logger:        logger,
		launch:        func(fn func()) { go fn() },
	}
}

// GroupTokens partitions registrations into device-token lists keyed by
// push backend. Untagged rows predate the client_app column and group
// under the Apple Wallet backend. Duplicate registrations stay duplicated;
// the backends treat repeated pushes as idempotent.
func GroupTokens(regs []*models.Registration) map[models.ClientApp][]string {
	groups := make(map[models.ClientApp][]string)
	for _, reg := range regs {
		backend := reg.Backend()
		groups[backend] = append(groups[backend], reg.DeviceToken)
	}
	return groups
}

// PassUpdated notifies every registered device that pass has a new
// version. The registration read is the only caller-visible failure;
// everything past it is best-effort and must not block the caller. The
// backend branches run concurrently and independently, detached from the
// request's cancellation.
func (d *Dispatcher) PassUpdated(ctx context.Context, pass *models.Pass) error {
	regs, err := d.registrations.FindByPassID(ctx, pass.ID)
	if err != nil {
		return fmt.Errorf("loading registrations: %w", err)
	}

	word := "registrations"
	if len(regs) == 1 {
		word = "registration"
	}
	d.logger.Info(ctx, fmt.Sprintf("found %d %s", len(regs), word),
		"vanity_name", pass.VanityName, "pass_type_identifier", pass.PassTypeIdentifier)

	groups := GroupTokens(regs)

	// Dispatch outlives the triggering request.
	ctx = context.WithoutCancel(ctx)

	for backend, tokens := range groups {
		notifier, ok := d.notifiers[backend]
		if !ok {
			d.logger.Warn(ctx, "no notifier configured for backend",
				"backend", string(backend), "devices", len(tokens))
			continue
		}
		metrics.RegistrationsNotifiedTotal.WithLabelValues(string(backend)).Add(float64(len(tokens)))

		tokens := tokens
		d.launch(func() {
			notifier.Notify(ctx, pass.PassTypeIdentifier, tokens)
		})
	}

	return nil
}
