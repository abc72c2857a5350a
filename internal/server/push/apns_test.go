package push

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/passbeam/passbeam/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAuthKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	return key
}

func newTestAPNSNotifier(t *testing.T, gatewayURL string) *APNSNotifier {
	t.Helper()
	return NewAPNSNotifier(APNSSettings{
		TeamID:     "TEAM123456",
		KeyID:      "KEY1234567",
		AuthKey:    testAuthKey(t),
		GatewayURL: gatewayURL,
	}, logging.NewNopLogger())
}

func TestAPNSNotify_OneRequestPerDevice(t *testing.T) {
	var (
		mu     sync.Mutex
		paths  []string
		topics []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		topics = append(topics, r.Header.Get("apns-topic"))
		mu.Unlock()

		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "10", r.Header.Get("apns-priority"))
		assert.Equal(t, "background", r.Header.Get("apns-push-type"))
		assert.True(t, strings.HasPrefix(r.Header.Get("authorization"), "bearer "))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := newTestAPNSNotifier(t, srv.URL)

	var (
		resMu   sync.Mutex
		results = map[string]error{}
	)
	n.onResult = func(ctx context.Context, deviceToken string, err error) {
		resMu.Lock()
		results[deviceToken] = err
		resMu.Unlock()
	}

	n.Notify(context.Background(), "pass.com.example.ticket", []string{"dev-a", "dev-b"})

	sort.Strings(paths)
	assert.Equal(t, []string{"/3/device/dev-a", "/3/device/dev-b"}, paths)
	for _, topic := range topics {
		assert.Equal(t, "pass.com.example.ticket", topic)
	}

	require.Len(t, results, 2)
	assert.NoError(t, results["dev-a"])
	assert.NoError(t, results["dev-b"])
}

func TestAPNSNotify_PerDeviceFailureDoesNotAffectOthers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "bad-token") {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"reason":"BadDeviceToken"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := newTestAPNSNotifier(t, srv.URL)

	var (
		mu      sync.Mutex
		results = map[string]error{}
	)
	n.onResult = func(ctx context.Context, deviceToken string, err error) {
		mu.Lock()
		results[deviceToken] = err
		mu.Unlock()
	}

	n.Notify(context.Background(), "pass.com.example.ticket", []string{"good-token", "bad-token"})

	require.Len(t, results, 2)
	assert.NoError(t, results["good-token"])
	require.Error(t, results["bad-token"])
	assert.Contains(t, results["bad-token"].Error(), "BadDeviceToken")
}

func TestAPNSNotify_GatewayUnreachableReportsPerDevice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	n := newTestAPNSNotifier(t, srv.URL)

	var (
		mu      sync.Mutex
		results = map[string]error{}
	)
	n.onResult = func(ctx context.Context, deviceToken string, err error) {
		mu.Lock()
		results[deviceToken] = err
		mu.Unlock()
	}

	n.Notify(context.Background(), "pass.com.example.ticket", []string{"dev-a"})

	require.Len(t, results, 1)
	assert.Error(t, results["dev-a"])
}

func TestProviderToken_CachedUntilStale(t *testing.T) {
	n := newTestAPNSNotifier(t, "http://unused.invalid")

	now := time.Now()
	first, err := n.providerToken(now)
	require.NoError(t, err)

	again, err := n.providerToken(now.Add(10 * time.Minute))
	require.NoError(t, err)
	assert.Equal(t, first, again, "token must be reused while fresh")

	later, err := n.providerToken(now.Add(providerTokenLifetime + time.Minute))
	require.NoError(t, err)
	assert.NotEqual(t, first, later, "stale token must be re-minted")
}
