package integration

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	httpHandler "token-ledger/internal/adapter/http/handler"
	"token-ledger/internal/adapter/notify"
	redisStorage "token-ledger/internal/adapter/storage/redis"
	"token-ledger/internal/core/domain"
	"token-ledger/internal/core/ports"
	"token-ledger/internal/service"
	"token-ledger/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testApp builds the full application stack on an in-memory Redis
// (miniredis): real HTTP layer, middleware, handlers, ledger service,
// Redis-backed store, and the notification stream end-to-end.

type testApp struct {
	server *httptest.Server
	redis  *miniredis.Miniredis
	client *goredis.Client
	store  ports.LedgerStore
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})

	store := redisStorage.NewStore(rdb)
	sink := notify.NewMulti(redisStorage.NewNotificationStream(rdb))

	log := logger.New("debug", false)
	tokenSvc := service.NewJWTTokenService("test-jwt-secret-key-32bytes!!", 24*time.Hour, "test-issuer")
	ledgerSvc := service.NewLedgerService(store, sink, log)

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		LedgerSvc:      ledgerSvc,
		TokenSvc:       tokenSvc,
		HealthCheckers: []ports.HealthChecker{redisStorage.NewHealthCheck(rdb)},
		DebugAuth:      true,
		Logger:         log,
	})

	server := httptest.NewServer(router)

	return &testApp{
		server: server,
		redis:  mr,
		client: rdb,
		store:  store,
	}
}

func (a *testApp) close() {
	a.server.Close()
	a.redis.Close()
}

// issueToken obtains a JWT for the principal derived from pubKey and returns
// the token together with the derived principal address.
func (a *testApp) issueToken(t *testing.T, pubKey string) (string, string) {
	t.Helper()

	body, _ := json.Marshal(map[string]string{
		"public_key": hex.EncodeToString([]byte(pubKey)),
	})
	resp, err := http.Post(a.server.URL+"/api/v1/auth/token", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload struct {
		Data struct {
			Token     string `json:"token"`
			Principal string `json:"principal"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return payload.Data.Token, payload.Data.Principal
}

// post sends an authenticated mutation and returns the response status plus
// decoded body.
func (a *testApp) post(t *testing.T, path, token string, body map[string]string) (int, map[string]interface{}) {
	t.Helper()

	raw, _ := json.Marshal(body)
	req, err := http.NewRequest(http.MethodPost, a.server.URL+path, bytes.NewReader(raw))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp.StatusCode, decoded
}

func (a *testApp) getBalance(t *testing.T, address string) string {
	t.Helper()

	resp, err := http.Get(a.server.URL + "/api/v1/ledger/balances/" + address)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload struct {
		Data struct {
			Balance string `json:"balance"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return payload.Data.Balance
}

func (a *testApp) getSupply(t *testing.T) string {
	t.Helper()

	resp, err := http.Get(a.server.URL + "/api/v1/ledger/supply")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload struct {
		Data struct {
			TotalSupply string `json:"total_supply"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return payload.Data.TotalSupply
}

// --- Integration Tests ---

func TestIntegration_HealthCheck(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	resp, err := http.Get(app.server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
}

func TestIntegration_AuthRequired(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	status, _ := app.post(t, "/api/v1/ledger/init", "", map[string]string{"initial_supply": "1000"})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestIntegration_LedgerLifecycle(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	aliceToken, aliceAddr := app.issueToken(t, "alice-public-key")
	bobToken, bobAddr := app.issueToken(t, "bob-public-key")

	// Mutations before init are rejected.
	status, body := app.post(t, "/api/v1/ledger/transfer", aliceToken, map[string]string{
		"to": bobAddr, "amount": "10",
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "LED_005", body["error_code"])

	// One-time init credits the caller with the full supply.
	status, _ = app.post(t, "/api/v1/ledger/init", aliceToken, map[string]string{"initial_supply": "1000"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "1000", app.getBalance(t, aliceAddr))
	assert.Equal(t, "1000", app.getSupply(t))

	// Re-running init fails and changes nothing.
	status, body = app.post(t, "/api/v1/ledger/init", bobToken, map[string]string{"initial_supply": "5"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "LED_006", body["error_code"])
	assert.Equal(t, "1000", app.getSupply(t))

	// Transfer moves value without changing supply.
	status, _ = app.post(t, "/api/v1/ledger/transfer", aliceToken, map[string]string{
		"to": bobAddr, "amount": "300",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "700", app.getBalance(t, aliceAddr))
	assert.Equal(t, "300", app.getBalance(t, bobAddr))
	assert.Equal(t, "1000", app.getSupply(t))

	// Overdraft is rejected with the balance intact.
	status, body = app.post(t, "/api/v1/ledger/transfer", bobToken, map[string]string{
		"to": aliceAddr, "amount": "301",
	})
	assert.Equal(t, http.StatusPaymentRequired, status)
	assert.Equal(t, "LED_003", body["error_code"])
	assert.Equal(t, "300", app.getBalance(t, bobAddr))

	// Burn destroys caller-held tokens and shrinks the supply.
	status, _ = app.post(t, "/api/v1/ledger/burn", bobToken, map[string]string{"amount": "300"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "0", app.getBalance(t, bobAddr))
	assert.Equal(t, "700", app.getSupply(t))

	// Every committed mutation left a notification in the stream.
	entries, err := app.client.XRange(context.Background(), "ledger:notifications", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "transfer", entries[0].Values["kind"])
	assert.Equal(t, "burn", entries[1].Values["kind"])
}

func TestIntegration_MintAuthority(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	ownerToken, ownerAddr := app.issueToken(t, "owner-public-key")
	aliceToken, aliceAddr := app.issueToken(t, "alice-public-key")

	owner, err := domain.ParsePrincipal(ownerAddr)
	require.NoError(t, err)
	require.NoError(t, app.store.SetOwner(context.Background(), owner))

	status, _ := app.post(t, "/api/v1/ledger/init", aliceToken, map[string]string{"initial_supply": "1000"})
	require.Equal(t, http.StatusOK, status)

	// Only the owner may mint.
	status, body := app.post(t, "/api/v1/ledger/mint", aliceToken, map[string]string{
		"to": aliceAddr, "amount": "50",
	})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "LED_004", body["error_code"])
	assert.Equal(t, "1000", app.getSupply(t))

	status, _ = app.post(t, "/api/v1/ledger/mint", ownerToken, map[string]string{
		"to": aliceAddr, "amount": "50",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "1050", app.getBalance(t, aliceAddr))
	assert.Equal(t, "1050", app.getSupply(t))
}

func TestIntegration_ValidationErrors(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	token, _ := app.issueToken(t, "alice-public-key")

	status, _ := app.post(t, "/api/v1/ledger/transfer", token, map[string]string{
		"to": "not-an-address", "amount": "10",
	})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = app.post(t, "/api/v1/ledger/transfer", token, map[string]string{
		"to": "0x2222222222222222222222222222222222222222", "amount": "-5",
	})
	assert.Equal(t, http.StatusBadRequest, status)

	// The zero principal passes hex validation but is rejected by the engine.
	app.mustInit(t, token)
	status, body := app.post(t, "/api/v1/ledger/transfer", token, map[string]string{
		"to": "0x0000000000000000000000000000000000000000", "amount": "10",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "LED_001", body["error_code"])
}

func (a *testApp) mustInit(t *testing.T, token string) {
	t.Helper()
	status, _ := a.post(t, "/api/v1/ledger/init", token, map[string]string{"initial_supply": "1000"})
	require.Equal(t, http.StatusOK, status)
}
