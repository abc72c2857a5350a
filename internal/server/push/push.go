// Package push delivers "this pass changed" signals to registered devices.
//
// Two backends exist: the Apple push gateway (APNs, per-device HTTP/2
// calls behind one batch submission) and the WalletPasses relay (one JSON
// POST per batch). Both sit behind the Notifier interface and are selected
// by the registration's client tag. Delivery is best-effort by design:
// implementations log and count outcomes but never report them back to the
// caller, so a broken backend can never fail the pass update that
// triggered the fan-out.
package push

import "context"

// Notifier submits one notification batch to a single push backend.
//
// Implementations must tolerate partial failure internally; Notify has no
// error return on purpose.
type Notifier interface {
	Notify(ctx context.Context, passTypeIdentifier string, deviceTokens []string)
}
