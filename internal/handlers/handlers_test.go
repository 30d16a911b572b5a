package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"bipv-docs/internal/api"
	"bipv-docs/internal/database"
	"bipv-docs/internal/engine"
	"bipv-docs/internal/middleware"
	"bipv-docs/internal/models"
	"bipv-docs/internal/utils"
	"bipv-docs/internal/websocket"

	"github.com/asynkron/protoactor-go/actor"
	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testEnv struct {
	ts  *httptest.Server
	hub *websocket.Hub
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	hub := websocket.NewHub()
	go hub.Run(ctx)

	metrics := utils.NewMetricsCollector()
	system := actor.NewActorSystem()
	orgs := models.DefaultOrganizations()
	eng := engine.NewEngine(system, database.NewMemoryDB(), metrics, orgs, engine.Options{
		BcryptCost:     bcrypt.MinCost,
		RequestTimeout: 3 * time.Second,
		Notifier:       hub,
	})

	server := NewServer(eng, metrics, middleware.NewJWT("test-secret", time.Hour), hub, orgs, []string{"*"})
	ts := httptest.NewServer(server.Handler())

	t.Cleanup(func() {
		ts.Close()
		cancel()
		system.Shutdown()
	})
	return &testEnv{ts: ts, hub: hub}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (int, api.Response) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, e.ts.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	var resp api.Response
	require.NoError(t, json.NewDecoder(res.Body).Decode(&resp))
	return res.StatusCode, resp
}

func (e *testEnv) login(t *testing.T, username, password, org string) string {
	t.Helper()
	status, _ := e.do(t, http.MethodPost, "/user/register", "", map[string]string{
		"username": username, "password": password, "organization": org,
	})
	require.Equal(t, http.StatusCreated, status)

	status, resp := e.do(t, http.MethodPost, "/user/login", "", map[string]string{
		"username": username, "password": password,
	})
	require.Equal(t, http.StatusOK, status)
	payload := resp.AdditionalPayload.(map[string]any)
	assert.Equal(t, username, payload["username"])
	assert.Equal(t, org, payload["organization"])
	return payload["token"].(string)
}

func payloadCode(resp api.Response) string {
	payload, _ := resp.AdditionalPayload.(map[string]any)
	code, _ := payload["code"].(string)
	return code
}

func TestHealthIsPublic(t *testing.T) {
	env := newTestEnv(t)

	status, resp := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, resp.Status)
	assert.Equal(t, "ok", resp.Message)
	assert.Equal(t, "healthy", resp.AdditionalPayload.(map[string]any)["status"])
}

func TestRegistrationAndLogin(t *testing.T) {
	env := newTestEnv(t)

	token := env.login(t, "alice", "password1", "org1")
	assert.NotEmpty(t, token)

	status, resp := env.do(t, http.MethodPost, "/user/register", "", map[string]string{
		"username": "alice", "password": "password2", "organization": "org2",
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.False(t, resp.Status)
	assert.Equal(t, "Username already registered", resp.Message)

	status, resp = env.do(t, http.MethodPost, "/user/register", "", map[string]string{
		"username": "bob", "password": "123", "organization": "org1",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation failed on password (min)", resp.Message)
	assert.Equal(t, utils.ErrInvalidInput, payloadCode(resp))

	status, resp = env.do(t, http.MethodPost, "/user/register", "", map[string]string{
		"username": "bob", "password": "password1", "organization": "org42",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, utils.ErrUnknownOrg, payloadCode(resp))

	status, resp = env.do(t, http.MethodPost, "/user/login", "", map[string]string{
		"username": "alice", "password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Invalid credentials", resp.Message)

	status, resp = env.do(t, http.MethodGet, "/user/profile", token, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "org1", resp.AdditionalPayload.(map[string]any)["organization"])

	status, resp = env.do(t, http.MethodGet, "/channels", token, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, []any{"channel1", "channel2", "channel4"}, resp.AdditionalPayload.(map[string]any)["channels"])
}

func TestLedgerRoutesNeedTokenAndChannel(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "carol", "password1", "org3")

	status, resp := env.do(t, http.MethodGet, "/assets?channel=channel2", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.False(t, resp.Status)

	status, resp = env.do(t, http.MethodGet, "/assets", token, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "channel query parameter is required", resp.Message)

	status, resp = env.do(t, http.MethodGet, "/assets?channel=channel1", token, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "Organization org3 is not a member of channel channel1", resp.Message)

	status, resp = env.do(t, http.MethodGet, "/assets?channel=channel2", token, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, resp.Status)

	status, resp = env.do(t, http.MethodGet, "/nowhere", token, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, utils.ErrNotFound, resp.AdditionalPayload.(map[string]any)["code"])

	for _, chaincode := range []string{"basic%00channel2", "a%2Fb", strings.Repeat("c", 65)} {
		status, resp = env.do(t, http.MethodGet, "/assets?channel=channel2&chaincode="+chaincode, token, nil)
		assert.Equal(t, http.StatusBadRequest, status, chaincode)
		assert.Equal(t, utils.ErrInvalidInput, resp.AdditionalPayload.(map[string]any)["code"], chaincode)
	}
	assert.Empty(t, resp.AdditionalPayload)
}

func TestAssetLifecycle(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "alice", "password1", "org1")
	const q = "?channel=channel1"

	status, resp := env.do(t, http.MethodPost, "/ledger/init"+q, token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, resp.AdditionalPayload, 2)

	doc := map[string]string{
		"documentNo":   "900",
		"documentName": "Inverter datasheet",
		"documentType": "pdf",
		"documentSize": "300 KB",
		"documentLink": "https://docs.example.com/900.pdf",
	}
	status, resp = env.do(t, http.MethodPost, "/assets"+q, token, doc)
	require.Equal(t, http.StatusCreated, status)
	created := resp.AdditionalPayload.(map[string]any)
	assert.Equal(t, "alice", created["ownedBy"])
	assert.True(t, strings.HasSuffix(created["lastModification"].(string), " GMT"))

	status, resp = env.do(t, http.MethodPost, "/assets"+q, token, doc)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "The asset 900 already exists", resp.Message)
	assert.Equal(t, utils.ErrAssetExists, payloadCode(resp))

	status, resp = env.do(t, http.MethodPost, "/assets"+q, token, map[string]string{"documentNo": "901", "documentSize": "1 KB", "documentLink": "not a url"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation failed on documentLink (url)", resp.Message)

	doc["documentSize"] = "310 KB"
	status, resp = env.do(t, http.MethodPut, "/asset"+q, token, doc)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "310 KB", resp.AdditionalPayload.(map[string]any)["documentSize"])

	status, resp = env.do(t, http.MethodGet, "/asset"+q+"&documentNo=404", token, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "The asset 404 does not exist", resp.Message)

	status, resp = env.do(t, http.MethodGet, "/asset/exists"+q+"&documentNo=671", token, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, resp.AdditionalPayload)

	status, resp = env.do(t, http.MethodDelete, "/asset"+q+"&documentNo=671", token, nil)
	require.Equal(t, http.StatusOK, status)
	remaining := resp.AdditionalPayload.([]any)
	require.Len(t, remaining, 2)
	assert.Equal(t, "672", remaining[0].(map[string]any)["documentNo"])
	assert.Equal(t, "900", remaining[1].(map[string]any)["documentNo"])

	status, resp = env.do(t, http.MethodGet, "/assets/deleted"+q, token, nil)
	require.Equal(t, http.StatusOK, status)
	deleted := resp.AdditionalPayload.([]any)
	require.Len(t, deleted, 1)
	assert.Equal(t, "alice", deleted[0].(map[string]any)["deletedBy"])

	// Another chaincode on the same channel is a separate ledger.
	status, resp = env.do(t, http.MethodGet, "/assets"+q+"&chaincode=private", token, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Empty(t, resp.AdditionalPayload)

	status, resp = env.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, status)
	ledgers := resp.AdditionalPayload.(map[string]any)["ledgers"].(map[string]any)
	assert.Equal(t, float64(2), ledgers["channel1/basic-channel1"])
	assert.Equal(t, float64(0), ledgers["channel1/private"])
}

func TestTransferNotifiesNewOwner(t *testing.T) {
	env := newTestEnv(t)
	aliceToken := env.login(t, "alice", "password1", "org1")
	bobToken := env.login(t, "bob", "password1", "org2")

	wsURL := "ws" + strings.TrimPrefix(env.ts.URL, "http") + "/ws?token=" + bobToken
	conn, _, err := ws.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return env.hub.ConnectedUsers() == 1 }, 2*time.Second, 10*time.Millisecond)

	status, _ := env.do(t, http.MethodPost, "/ledger/init?channel=channel1", aliceToken, nil)
	require.Equal(t, http.StatusOK, status)

	status, resp := env.do(t, http.MethodPost, "/asset/transfer?channel=channel1", aliceToken, map[string]string{
		"documentNo": "671", "newOwner": "bob",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "bob", resp.AdditionalPayload.(map[string]any)["ownedBy"])

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var note api.Typed[models.Asset]
	require.NoError(t, json.Unmarshal(raw, &note))
	assert.True(t, note.Status)
	assert.Equal(t, "asset transferred", note.Message)
	assert.Equal(t, "671", note.AdditionalPayload.DocumentNo)
	assert.Equal(t, "bob", note.AdditionalPayload.OwnedBy)
}

func TestWebSocketRejectsBadToken(t *testing.T) {
	env := newTestEnv(t)

	wsURL := "ws" + strings.TrimPrefix(env.ts.URL, "http") + "/ws?token=garbage"
	_, res, err := ws.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}
