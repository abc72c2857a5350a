package push

import (
	"context"
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/passbeam/passbeam/internal/logging"
	"github.com/passbeam/passbeam/internal/server/observability/metrics"
)

// DefaultAPNSGateway is the production Apple push gateway.
const DefaultAPNSGateway = "https://api.push.apple.com"

// Provider tokens are valid for an hour; re-mint well before that.
const providerTokenLifetime = 40 * time.Minute

// APNSSettings holds the provider-token credentials for the Apple gateway.
// GatewayURL is overridable for tests and the sandbox environment.
type APNSSettings struct {
	TeamID     string
	KeyID      string
	AuthKey    *ecdsa.PrivateKey
	GatewayURL string
}

// LoadAuthKey reads and parses a PKCS#8 .p8 signing key from disk.
func LoadAuthKey(path string) (*ecdsa.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading auth key: %w", err)
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, fmt.Errorf("auth key %s is not PEM encoded", path)
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parsing auth key: %w", err)
	}
	key, ok := parsed.(*ecdsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("auth key %s is not an ECDSA key", path)
	}
	return key, nil
}

// APNSNotifier pushes empty pass-update payloads to the Apple gateway,
// one HTTP/2 request per device token, addressed by the pass type
// identifier as the topic.
type APNSNotifier struct {
	settings APNSSettings
	client   *http.Client
	logger   logging.Logger

	// onResult is invoked once per device; the default logs the outcome.
	onResult func(ctx context.Context, deviceToken string, err error)

	mu       sync.Mutex
	token    string
	mintedAt time.Time
}

// NewAPNSNotifier constructs a notifier for the configured gateway.
func NewAPNSNotifier(settings APNSSettings, logger logging.Logger) *APNSNotifier {
	if settings.GatewayURL == "" {
		settings.GatewayURL = DefaultAPNSGateway
	}
	n := &APNSNotifier{
		settings: settings,
		client:   &http.Client{Timeout: 30 * time.Second},
		logger:   logger,
	}
	n.onResult = func(ctx context.Context, deviceToken string, err error) {
		if err != nil {
			metrics.PushDispatchesTotal.WithLabelValues("apns", "failure").Inc()
			n.logger.Error(ctx, "apns push failed", "device_token", deviceToken, "error", err.Error())
			return
		}
		metrics.PushDispatchesTotal.WithLabelValues("apns", "success").Inc()
		n.logger.Info(ctx, "apns push delivered", "device_token", deviceToken)
	}
	return n
}

// providerToken returns a cached provider token, minting a fresh one when
// the cached token is older than providerTokenLifetime.
func (n *APNSNotifier) providerToken(now time.Time) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.token != "" && now.Sub(n.mintedAt) < providerTokenLifetime {
		return n.token, nil
	}

	t := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.MapClaims{
		"iss": n.settings.TeamID,
		"iat": now.Unix(),
	})
	t.Header["kid"] = n.settings.KeyID

	signed, err := t.SignedString(n.settings.AuthKey)
	if err != nil {
		return "", fmt.Errorf("signing provider token: %w", err)
	}
	n.token = signed
	n.mintedAt = now
	return signed, nil
}

// Notify submits the whole token list to the gateway, invoking the
// per-device result callback as responses come in. Outcomes are logged,
// never returned.
func (n *APNSNotifier) Notify(ctx context.Context, passTypeIdentifier string, deviceTokens []string) {
	providerToken, err := n.providerToken(time.Now())
	if err != nil {
		n.logger.Error(ctx, "apns dispatch aborted", "error", err.Error(), "devices", len(deviceTokens))
		for range deviceTokens {
			metrics.PushDispatchesTotal.WithLabelValues("apns", "failure").Inc()
		}
		return
	}

	var wg sync.WaitGroup
	for _, deviceToken := range deviceTokens {
		wg.Add(1)
		go func(deviceToken string) {
			defer wg.Done()
			n.onResult(ctx, deviceToken, n.pushOne(ctx, providerToken, passTypeIdentifier, deviceToken))
		}(deviceToken)
	}
	wg.Wait()
}

// pushOne sends a single empty-payload push. The topic carries the pass
// type identifier and priority 10 requests immediate delivery.
func (n *APNSNotifier) pushOne(ctx context.Context, providerToken, topic, deviceToken string) error {
	url := strings.TrimSuffix(n.settings.GatewayURL, "/") + "/3/device/" + deviceToken
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(`{"aps":{}}`))
	if err != nil {
		return err
	}
	req.Header.Set("authorization", "bearer "+providerToken)
	req.Header.Set("apns-topic", topic)
	req.Header.Set("apns-priority", "10")
	req.Header.Set("apns-push-type", "background")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
