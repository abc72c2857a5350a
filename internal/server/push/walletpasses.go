package push

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/passbeam/passbeam/internal/logging"
	"github.com/passbeam/passbeam/internal/server/observability/metrics"
)

// DefaultWalletPassesEndpoint is the cross-platform relay's push endpoint.
const DefaultWalletPassesEndpoint = "https://walletpasses.appspot.com/api/v1/push"

// WalletPassesNotifier pushes a whole token batch to the WalletPasses
// relay in a single JSON POST.
type WalletPassesNotifier struct {
	endpoint string
	apiKey   string
	client   *http.Client
	logger   logging.Logger
}

// NewWalletPassesNotifier constructs a notifier for the relay at endpoint
// (DefaultWalletPassesEndpoint when empty), authorized by apiKey.
func NewWalletPassesNotifier(endpoint, apiKey string, logger logging.Logger) *WalletPassesNotifier {
	if endpoint == "" {
		endpoint = DefaultWalletPassesEndpoint
	}
	return &WalletPassesNotifier{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 30 * time.Second},
		logger:   logger,
	}
}

type walletPassesPush struct {
	PassTypeIdentifier string   `json:"passTypeIdentifier"`
	PushTokens         []string `json:"pushTokens"`
}

// Notify posts the batch and logs the relay's verdict. A transport failure
// or a status of 300 and above is an error outcome; nothing is retried.
func (n *WalletPassesNotifier) Notify(ctx context.Context, passTypeIdentifier string, deviceTokens []string) {
	payload, err := json.Marshal(walletPassesPush{
		PassTypeIdentifier: passTypeIdentifier,
		PushTokens:         deviceTokens,
	})
	if err != nil {
		metrics.PushDispatchesTotal.WithLabelValues("walletpasses", "failure").Inc()
		n.logger.Error(ctx, "walletpasses payload encoding failed", "error", err.Error())
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(payload))
	if err != nil {
		metrics.PushDispatchesTotal.WithLabelValues("walletpasses", "failure").Inc()
		n.logger.Error(ctx, "walletpasses request build failed", "error", err.Error())
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", n.apiKey)

	resp, err := n.client.Do(req)
	if err != nil {
		metrics.PushDispatchesTotal.WithLabelValues("walletpasses", "failure").Inc()
		n.logger.Error(ctx, "walletpasses push failed", "error", err.Error(), "devices", len(deviceTokens))
		return
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode >= 300 {
		metrics.PushDispatchesTotal.WithLabelValues("walletpasses", "failure").Inc()
		n.logger.Error(ctx, "walletpasses push rejected",
			"status", resp.StatusCode, "response", strings.TrimSpace(string(body)), "devices", len(deviceTokens))
		return
	}

	metrics.PushDispatchesTotal.WithLabelValues("walletpasses", "success").Inc()
	n.logger.Info(ctx, "walletpasses push accepted", "status", resp.StatusCode, "devices", len(deviceTokens))
}
