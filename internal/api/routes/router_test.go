package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/skyserver1508/skyserver-hosting/internal/database"
	"github.com/skyserver1508/skyserver-hosting/internal/models"
	"github.com/skyserver1508/skyserver-hosting/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAdminEmail    = "admin@skyserver1508.org"
	testAdminPassword = "launch-code-1234"
)

// newTestServer stands up the full HTTP stack over a throwaway sqlite
// database, with the manual provisioner and a seeded admin account.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"), logger)
	require.NoError(t, err)
	sqlDB, err := db.DB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	events := service.NewHub(logger)
	capacity := service.NewCapacityService(database.NewCapacityRepository(db), events, logger)
	auth := service.NewAuthService(database.NewUserRepository(db), database.NewSessionRepository(db), logger)
	lifecycle := service.NewLifecycleService(
		database.NewRequestRepository(db),
		capacity,
		database.NewSettingsRepository(db),
		service.ManualProvisioner{},
		events,
		logger,
	)

	ctx := context.Background()
	require.NoError(t, capacity.EnsureDefaults(ctx, map[models.Game]int{
		models.GameMinecraft:    2,
		models.GameSatisfactory: 1,
		models.GameTerraria:     1,
	}))
	require.NoError(t, auth.EnsureAdmin(ctx, testAdminEmail, testAdminPassword))

	server := httptest.NewServer(NewRouter(Services{
		Lifecycle: lifecycle,
		Capacity:  capacity,
		Auth:      auth,
		Events:    events,
	}, logger))
	t.Cleanup(server.Close)
	return server
}

func doJSON(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()

	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func loginAdmin(t *testing.T, server *httptest.Server) string {
	t.Helper()

	resp := doJSON(t, http.MethodPost, server.URL+"/api/v1/auth/login", "", models.LoginRequest{
		Email:    testAdminEmail,
		Password: testAdminPassword,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return decodeBody[models.AuthResponse](t, resp).Token
}

func submitBody(email string) models.SubmitRequest {
	return models.SubmitRequest{
		Name:             "Alex Example",
		Email:            email,
		Discord:          "alex#1234",
		Game:             models.GameMinecraft,
		ServerName:       "skyblock-haven",
		MinecraftVersion: "1.21.1",
	}
}

func TestHealthEndpoint(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody[map[string]string](t, resp)
	assert.Equal(t, "healthy", body["status"])
}

func TestSubmitRequest(t *testing.T) {
	server := newTestServer(t)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/v1/requests", "", submitBody("alex@example.com"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	created := decodeBody[models.ServerRequest](t, resp)
	assert.Equal(t, models.StatusPending, created.Status)
	assert.Equal(t, "alex@example.com", created.Owner)
	assert.Nil(t, created.Credentials)

	// A second submission for the same owner is refused
	resp = doJSON(t, http.MethodPost, server.URL+"/api/v1/requests", "", submitBody("alex@example.com"))
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	body := decodeBody[map[string]string](t, resp)
	assert.Equal(t, "conflict", body["code"])
}

func TestSubmitRequest_ValidationError(t *testing.T) {
	server := newTestServer(t)

	payload := submitBody("alex@example.com")
	payload.MinecraftVersion = ""

	resp := doJSON(t, http.MethodPost, server.URL+"/api/v1/requests", "", payload)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decodeBody[map[string]string](t, resp)
	assert.Equal(t, "validation_failed", body["code"])
}

func TestSubmitRequest_IdempotencyKey(t *testing.T) {
	server := newTestServer(t)

	send := func() models.ServerRequest {
		data, err := json.Marshal(submitBody("alex@example.com"))
		require.NoError(t, err)
		req, err := http.NewRequest(http.MethodPost, server.URL+"/api/v1/requests", bytes.NewReader(data))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Idempotency-Key", "retry-key-http")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		return decodeBody[models.ServerRequest](t, resp)
	}

	first := send()
	second := send()
	assert.Equal(t, first.ID, second.ID)
}

func TestStatusEndpoint(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/v1/status")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	status := decodeBody[models.StatusResponse](t, resp)
	assert.Equal(t, models.StatusOperational, status.SystemStatus)
	assert.Len(t, status.Capacity, 3)
}

func TestMeRequiresToken(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/v1/me")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, server.URL+"/api/v1/me", "bogus-token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRegisterAndDashboard(t *testing.T) {
	server := newTestServer(t)
	adminToken := loginAdmin(t, server)

	// The visitor submits a request first, then registers with the same email
	resp := doJSON(t, http.MethodPost, server.URL+"/api/v1/requests", "", submitBody("alex@example.com"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeBody[models.ServerRequest](t, resp)

	resp = doJSON(t, http.MethodPost, server.URL+"/api/v1/auth/register", "", models.RegisterRequest{
		Name:     "Alex Example",
		Email:    "Alex@Example.com",
		Password: "correct-horse-battery",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	userToken := decodeBody[models.AuthResponse](t, resp).Token

	// Admin approves with manual panel credentials
	resp = doJSON(t, http.MethodPost, server.URL+"/api/v1/admin/requests/"+created.ID+"/approve", adminToken, models.Credentials{
		PanelURL: "https://panel.skyserver1508.org",
		Username: "alex",
		Password: "panel-secret",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	approved := decodeBody[models.ServerRequest](t, resp)
	assert.Equal(t, models.StatusActive, approved.Status)

	// The dashboard shows the active server including its credentials
	resp = doJSON(t, http.MethodGet, server.URL+"/api/v1/me/requests", userToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	mine := decodeBody[[]models.ServerRequest](t, resp)
	require.Len(t, mine, 1)
	require.NotNil(t, mine[0].Credentials)
	assert.Equal(t, "panel-secret", mine[0].Credentials.Password)
}

func TestAdminEndpointsRequireAdmin(t *testing.T) {
	server := newTestServer(t)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/v1/auth/register", "", models.RegisterRequest{
		Name:     "Kim Example",
		Email:    "kim@example.com",
		Password: "correct-horse-battery",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	userToken := decodeBody[models.AuthResponse](t, resp).Token

	resp = doJSON(t, http.MethodGet, server.URL+"/api/v1/admin/requests", userToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, server.URL+"/api/v1/admin/requests", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAdminReviewWorkflow(t *testing.T) {
	server := newTestServer(t)
	adminToken := loginAdmin(t, server)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/v1/requests", "", submitBody("alex@example.com"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeBody[models.ServerRequest](t, resp)

	// Pending filter finds it
	resp = doJSON(t, http.MethodGet, server.URL+"/api/v1/admin/requests?status=pending", adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	pending := decodeBody[[]models.ServerRequest](t, resp)
	require.Len(t, pending, 1)

	// Manual provisioner refuses an approval without credentials
	resp = doJSON(t, http.MethodPost, server.URL+"/api/v1/admin/requests/"+created.ID+"/approve", adminToken, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, server.URL+"/api/v1/admin/requests/"+created.ID+"/approve", adminToken, models.Credentials{
		PanelURL: "https://panel.skyserver1508.org",
		Username: "alex",
		Password: "panel-secret",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Rejecting an active request is an invalid transition
	resp = doJSON(t, http.MethodPost, server.URL+"/api/v1/admin/requests/"+created.ID+"/reject", adminToken, nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	body := decodeBody[map[string]string](t, resp)
	assert.Equal(t, "invalid_transition", body["code"])

	// Terminate the server and verify the request is gone
	resp = doJSON(t, http.MethodDelete, server.URL+"/api/v1/admin/requests/"+created.ID, adminToken, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, server.URL+"/api/v1/admin/requests/"+created.ID, adminToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAdminCapacityShrinkConflict(t *testing.T) {
	server := newTestServer(t)
	adminToken := loginAdmin(t, server)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/v1/requests", "", submitBody("alex@example.com"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeBody[models.ServerRequest](t, resp)

	resp = doJSON(t, http.MethodPost, server.URL+"/api/v1/admin/requests/"+created.ID+"/approve", adminToken, models.Credentials{
		PanelURL: "https://panel.skyserver1508.org",
		Username: "alex",
		Password: "panel-secret",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodPut, server.URL+"/api/v1/admin/capacity", adminToken, models.UpdateCapacityRequest{
		Game:       models.GameMinecraft,
		TotalSlots: 0,
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	body := decodeBody[map[string]string](t, resp)
	assert.Equal(t, "conflict", body["code"])
}

func TestMaintenanceModeBlocksSubmissions(t *testing.T) {
	server := newTestServer(t)
	adminToken := loginAdmin(t, server)

	resp := doJSON(t, http.MethodPut, server.URL+"/api/v1/admin/settings", adminToken, models.UpdateSettingsRequest{
		SystemStatus: models.StatusMaintenance,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, server.URL+"/api/v1/requests", "", submitBody("alex@example.com"))
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	body := decodeBody[map[string]string](t, resp)
	assert.Equal(t, "maintenance", body["code"])
}

func TestAdminDeleteUserPurgesRequests(t *testing.T) {
	server := newTestServer(t)
	adminToken := loginAdmin(t, server)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/v1/auth/register", "", models.RegisterRequest{
		Name:     "Alex Example",
		Email:    "alex@example.com",
		Password: "correct-horse-battery",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	userID := decodeBody[models.AuthResponse](t, resp).User.ID

	resp = doJSON(t, http.MethodPost, server.URL+"/api/v1/requests", "", submitBody("alex@example.com"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodDelete, server.URL+"/api/v1/admin/users/"+userID, adminToken, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, server.URL+"/api/v1/admin/requests?owner=alex@example.com", adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	remaining := decodeBody[[]models.ServerRequest](t, resp)
	assert.Empty(t, remaining)
}

func TestEventStreamSendsSnapshotAndEvents(t *testing.T) {
	server := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/events"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	// First frame is the status snapshot
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var snapshot struct {
		Type    string                `json:"type"`
		Payload models.StatusResponse `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(data, &snapshot))
	assert.Equal(t, "status.snapshot", snapshot.Type)
	assert.Len(t, snapshot.Payload.Capacity, 3)

	// Give the handler a moment to register its hub subscription
	time.Sleep(50 * time.Millisecond)

	// A submission shows up as a lifecycle event
	resp := doJSON(t, http.MethodPost, server.URL+"/api/v1/requests", "", submitBody("alex@example.com"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	_, data, err = conn.Read(ctx)
	require.NoError(t, err)
	var evt struct {
		Type string `json:"type"`
	}
	require.NoError(t, json.Unmarshal(data, &evt))
	assert.Equal(t, "request.submitted", evt.Type)
}

func TestCORSPreflight(t *testing.T) {
	server := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, server.URL+"/api/v1/requests", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Headers"), "Idempotency-Key")
}
