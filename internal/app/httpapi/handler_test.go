package httpapi

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nezasa/credstore/internal/authz"
	"github.com/nezasa/credstore/internal/infra/audit"
	"github.com/nezasa/credstore/internal/infra/config"
	"github.com/nezasa/credstore/internal/infra/persistence"
	"github.com/nezasa/credstore/internal/secrets"
	"github.com/nezasa/credstore/internal/service"
	"github.com/nezasa/credstore/internal/validation"
)

var testKeys = map[string]config.APIKey{
	"admin-key":   {Role: "admin", Actor: "admin@demo.com"},
	"devops-key":  {Role: "devops", Actor: "devops@demo.com"},
	"cs-key":      {Role: "cs", Actor: "cs@demo.com"},
	"partner-key": {Role: "partner", Actor: "partner@demo.com"},
}

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.New(
		persistence.NewMemoryStore(),
		authz.New(),
		secrets.NewGenerator(),
		validation.NewRequestValidator(),
		audit.NewLogger(logger),
		logger,
	)

	app := fiber.New()
	RegisterRoutes(app, NewHandler(logger, svc), testKeys, logger)
	return app
}

func doRequest(t *testing.T, app *fiber.App, method, path, apiKey, body string) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded map[string]any
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp, decoded
}

const createBody = `{
	"supplier": "Sabre",
	"environment": "production",
	"auth_type": "api_key",
	"secret_data": {"api_key": "sk_live_abc123456789"},
	"allow_self_rotation": true
}`

func createTestCredential(t *testing.T, app *fiber.App) string {
	t.Helper()
	resp, body := doRequest(t, app, http.MethodPost, "/api/v1/credentials", "admin-key", createBody)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id, ok := body["id"].(string)
	require.True(t, ok)
	return id
}

func TestAuthRejectsMissingAndUnknownKeys(t *testing.T) {
	app := newTestApp(t)

	resp, _ := doRequest(t, app, http.MethodGet, "/api/v1/credentials", "", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = doRequest(t, app, http.MethodGet, "/api/v1/credentials", "bogus", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHealthAndMetricsAreOpen(t *testing.T) {
	app := newTestApp(t)

	resp, body := doRequest(t, app, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestCreateCredential(t *testing.T) {
	app := newTestApp(t)

	resp, body := doRequest(t, app, http.MethodPost, "/api/v1/credentials", "admin-key", createBody)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "Sabre", body["supplier"])
	assert.Equal(t, "api_key", body["auth_type"])
	assert.NotEmpty(t, body["id"])
}

func TestCreateCredentialForbiddenForCS(t *testing.T) {
	app := newTestApp(t)

	resp, body := doRequest(t, app, http.MethodPost, "/api/v1/credentials", "cs-key", createBody)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Contains(t, body["error"], "cs")
}

func TestCreateCredentialMalformedBody(t *testing.T) {
	app := newTestApp(t)

	resp, _ := doRequest(t, app, http.MethodPost, "/api/v1/credentials", "admin-key", `{"supplier":`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetCredentialMaskedByDefault(t *testing.T) {
	app := newTestApp(t)
	id := createTestCredential(t, app)

	resp, body := doRequest(t, app, http.MethodGet, "/api/v1/credentials/"+id, "admin-key", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	secret := body["secret_data"].(map[string]any)
	assert.Equal(t, "sk_live_...6789", secret["api_key"])
	assert.Equal(t, true, body["masked"])
}

func TestGetCredentialUnmasked(t *testing.T) {
	app := newTestApp(t)
	id := createTestCredential(t, app)

	resp, body := doRequest(t, app, http.MethodGet, "/api/v1/credentials/"+id+"?unmasked=true", "devops-key", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	secret := body["secret_data"].(map[string]any)
	assert.Equal(t, "sk_live_abc123456789", secret["api_key"])

	// The unmasked read left a view entry behind.
	resp, logs := doRequest(t, app, http.MethodGet, "/api/v1/audit-logs?action=view", "admin-key", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), logs["total"])

	// cs holds view but not view_unmasked.
	resp, _ = doRequest(t, app, http.MethodGet, "/api/v1/credentials/"+id+"?unmasked=true", "cs-key", "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestGetCredentialInvalidID(t *testing.T) {
	app := newTestApp(t)

	resp, _ := doRequest(t, app, http.MethodGet, "/api/v1/credentials/not-a-uuid", "admin-key", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetCredentialNotFound(t *testing.T) {
	app := newTestApp(t)

	resp, _ := doRequest(t, app, http.MethodGet, "/api/v1/credentials/8a9f6c1e-1b2d-4e3f-9a8b-7c6d5e4f3a2b", "admin-key", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListCredentialsAlwaysMasked(t *testing.T) {
	app := newTestApp(t)
	createTestCredential(t, app)

	resp, body := doRequest(t, app, http.MethodGet, "/api/v1/credentials", "admin-key", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["total"])
	first := body["credentials"].([]any)[0].(map[string]any)
	assert.Equal(t, true, first["masked"])

	resp, body = doRequest(t, app, http.MethodGet, "/api/v1/credentials?supplier=Nonexistent", "admin-key", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(0), body["total"])
}

func TestUpdateCredential(t *testing.T) {
	app := newTestApp(t)
	id := createTestCredential(t, app)

	resp, body := doRequest(t, app, http.MethodPut, "/api/v1/credentials/"+id, "devops-key", `{"environment": "staging"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "staging", body["environment"])

	resp, _ = doRequest(t, app, http.MethodPut, "/api/v1/credentials/"+id, "devops-key", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRotateCredential(t *testing.T) {
	app := newTestApp(t)
	id := createTestCredential(t, app)

	resp, body := doRequest(t, app, http.MethodPost, "/api/v1/credentials/"+id+"/rotate", "partner-key", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Credential rotated successfully", body["message"])
	newData := body["new_data"].(map[string]any)
	assert.True(t, strings.HasPrefix(newData["api_key"].(string), "sk_rotated_"))
	assert.NotEmpty(t, body["rotated_at"])
}

func TestDeleteCredential(t *testing.T) {
	app := newTestApp(t)
	id := createTestCredential(t, app)

	resp, _ := doRequest(t, app, http.MethodDelete, "/api/v1/credentials/"+id, "devops-key", "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body := doRequest(t, app, http.MethodDelete, "/api/v1/credentials/"+id, "admin-key", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Credential deleted successfully", body["message"])

	resp, _ = doRequest(t, app, http.MethodGet, "/api/v1/credentials/"+id, "admin-key", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListAuditLogs(t *testing.T) {
	app := newTestApp(t)
	id := createTestCredential(t, app)
	doRequest(t, app, http.MethodPost, "/api/v1/credentials/"+id+"/rotate", "admin-key", "")

	resp, body := doRequest(t, app, http.MethodGet, "/api/v1/audit-logs", "admin-key", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), body["total"])

	resp, body = doRequest(t, app, http.MethodGet, "/api/v1/audit-logs?action=rotate", "admin-key", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["total"])
	entry := body["entries"].([]any)[0].(map[string]any)
	assert.Equal(t, id, entry["credential_id"])

	resp, _ = doRequest(t, app, http.MethodGet, "/api/v1/audit-logs", "partner-key", "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = doRequest(t, app, http.MethodGet, "/api/v1/audit-logs?limit=bogus", "admin-key", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
