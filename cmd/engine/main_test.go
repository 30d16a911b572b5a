package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"bipv-docs/internal/api"
	"bipv-docs/internal/config"
	"bipv-docs/internal/database"
	"bipv-docs/internal/utils"
	"bipv-docs/internal/websocket"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, h http.Handler, method, path, token string, body any) (int, api.Response) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var resp api.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w.Code, resp
}

func TestIntegrationFlow(t *testing.T) {
	t.Setenv("DB_TYPE", "memory")
	t.Setenv("BCRYPT_COST", "4")
	t.Setenv("JWT_SECRET", "integration-secret")
	t.Setenv("ORG_CHANNELS", "org1=channel1;org2=channel1|channel2")

	cfg, err := config.FromEnv()
	require.NoError(t, err)

	store, err := database.Open(cfg.Database)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := websocket.NewHub()
	go hub.Run(ctx)

	system := actor.NewActorSystem()
	defer system.Shutdown()

	h := buildServer(cfg, store, utils.NewMetricsCollector(), hub, system).Handler()

	// Step 1: Register two users in different organizations
	status, _ := serve(t, h, http.MethodPost, "/user/register", "", map[string]string{
		"username": "installer", "password": "password123", "organization": "org1",
	})
	require.Equal(t, http.StatusCreated, status)
	status, _ = serve(t, h, http.MethodPost, "/user/register", "", map[string]string{
		"username": "designer", "password": "password456", "organization": "org2",
	})
	require.Equal(t, http.StatusCreated, status)

	// Step 2: Log in
	login := func(username, password string) string {
		status, resp := serve(t, h, http.MethodPost, "/user/login", "", map[string]string{
			"username": username, "password": password,
		})
		require.Equal(t, http.StatusOK, status)
		return resp.AdditionalPayload.(map[string]any)["token"].(string)
	}
	installer := login("installer", "password123")
	designer := login("designer", "password456")

	// Step 3: Installer publishes a document on the shared channel
	status, resp := serve(t, h, http.MethodPost, "/assets?channel=channel1", installer, map[string]string{
		"documentNo":   "PV-001",
		"documentName": "String layout",
		"documentType": "dwg",
		"documentSize": "820 KB",
		"documentLink": "https://files.example.com/PV-001.dwg",
	})
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "asset created", resp.Message)

	// Step 4: Designer sees it, installer cannot use channel2
	status, resp = serve(t, h, http.MethodGet, "/asset?channel=channel1&documentNo=PV-001", designer, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "installer", resp.AdditionalPayload.(map[string]any)["ownedBy"])

	status, _ = serve(t, h, http.MethodGet, "/assets?channel=channel2", installer, nil)
	assert.Equal(t, http.StatusForbidden, status)

	// Step 5: Transfer then delete
	status, resp = serve(t, h, http.MethodPost, "/asset/transfer?channel=channel1", installer, map[string]string{
		"documentNo": "PV-001", "newOwner": "designer",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "designer", resp.AdditionalPayload.(map[string]any)["ownedBy"])

	status, resp = serve(t, h, http.MethodDelete, "/asset?channel=channel1&documentNo=PV-001", designer, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, resp.AdditionalPayload)

	status, resp = serve(t, h, http.MethodGet, "/asset/exists?channel=channel1&documentNo=PV-001", designer, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, resp.AdditionalPayload)

	// Step 6: Health reflects the activity
	status, resp = serve(t, h, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, status)
	metrics := resp.AdditionalPayload.(map[string]any)["metrics"].(map[string]any)
	assert.Greater(t, metrics["requests"].(float64), float64(5))
}
