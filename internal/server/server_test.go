package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"supplydesk/internal/adminreg"
	"supplydesk/internal/config"
	"supplydesk/internal/database"
	"supplydesk/internal/ldap"
	"supplydesk/internal/middleware"
	"supplydesk/internal/models"
	"supplydesk/internal/repository"
	"supplydesk/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// stubVerifier answers credential checks without a network hop.
type stubVerifier struct {
	identity *ldap.Identity
	err      error
}

func (v *stubVerifier) Authenticate(ctx context.Context, username, password string) (*ldap.Identity, error) {
	if v.err != nil {
		return nil, v.err
	}
	return v.identity, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Port:      "8080",
		JWTSecret: "test_secret",
		APIToken:  "machine_token",
		LDAPURL:   "http://unused.invalid",
		DBDriver:  "sqlite",
		Env:       "test",
	}
}

func setupServerTest(t *testing.T, verifier CredentialVerifier) (*Server, *fiber.App, *gorm.DB) {
	t.Helper()
	t.Setenv("APP_ENV", "test")

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.EnsureSchema(db))

	registry := adminreg.NewRegistry(filepath.Join(t.TempDir(), "admins.env"))
	_, _, err = registry.Add("root")
	require.NoError(t, err)

	if verifier == nil {
		verifier = &stubVerifier{identity: &ldap.Identity{Username: "alice", DisplayName: "Alice Smith"}}
	}

	appRepo := repository.NewApplicationRepository(db)
	reportRepo := repository.NewReportRepository(db)
	s := &Server{
		config:        testConfig(),
		db:            db,
		verifier:      verifier,
		adminReg:      registry,
		appService:    service.NewApplicationService(appRepo),
		reportService: service.NewReportService(reportRepo),
	}

	app := fiber.New()
	s.SetupRoutes(app)
	return s, app, db
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	var parsed map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &parsed), "body: %s", raw)
	}
	return resp, parsed
}

func sessionToken(t *testing.T, s *Server, username, displayName string, isAdmin bool) string {
	t.Helper()
	token, err := s.issueToken(username, displayName, isAdmin)
	require.NoError(t, err)
	return token
}

func seedServerApp(t *testing.T, db *gorm.DB, app *models.Application) *models.Application {
	t.Helper()
	if app.Status == "" {
		app.Status = models.ApplicationStatusActive
	}
	if app.Priority == "" {
		app.Priority = models.ApplicationPriorityNormal
	}
	require.NoError(t, db.Create(app).Error)
	return app
}

func TestAuthenticateSuccess(t *testing.T) {
	_, app, _ := setupServerTest(t, nil)

	resp, body := doJSON(t, app, http.MethodPost, "/api/auth", "", fiber.Map{
		"username": "alice",
		"password": "secret",
	})

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["token"])
	assert.Equal(t, "Alice Smith", body["user"])
	assert.Equal(t, "alice", body["username"])
	assert.Equal(t, false, body["isAdmin"])

	// The issued token is accepted on a protected route.
	resp, _ = doJSON(t, app, http.MethodGet, "/api/my-applications", body["token"].(string), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthenticateAdminFlagFromRegistry(t *testing.T) {
	verifier := &stubVerifier{identity: &ldap.Identity{Username: "Root", DisplayName: "Root User"}}
	_, app, _ := setupServerTest(t, verifier)

	// Registry holds "root"; comparison is case-insensitive.
	resp, body := doJSON(t, app, http.MethodPost, "/api/auth", "", fiber.Map{
		"username": "Root",
		"password": "secret",
	})

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["isAdmin"])
}

func TestAuthenticateMissingFields(t *testing.T) {
	_, app, _ := setupServerTest(t, nil)

	resp, body := doJSON(t, app, http.MethodPost, "/api/auth", "", fiber.Map{"username": "alice"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.NotEmpty(t, body["error"])
}

func TestAuthenticateInvalidCredentials(t *testing.T) {
	verifier := &stubVerifier{err: models.NewUnauthorizedError("Invalid username or password")}
	_, app, _ := setupServerTest(t, verifier)

	resp, body := doJSON(t, app, http.MethodPost, "/api/auth", "", fiber.Map{
		"username": "alice",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.NotEmpty(t, body["error"])
}

func TestAuthenticateUpstreamTimeout(t *testing.T) {
	verifier := &stubVerifier{err: models.NewUpstreamTimeoutError("Authentication provider timed out")}
	_, app, _ := setupServerTest(t, verifier)

	resp, _ := doJSON(t, app, http.MethodPost, "/api/auth", "", fiber.Map{
		"username": "alice",
		"password": "secret",
	})
	assert.Equal(t, http.StatusRequestTimeout, resp.StatusCode)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	_, app, _ := setupServerTest(t, nil)

	resp, _ := doJSON(t, app, http.MethodGet, "/api/my-applications", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, "/api/my-applications", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestBearerPrefixOptional(t *testing.T) {
	s, app, _ := setupServerTest(t, nil)
	token := sessionToken(t, s, "alice", "Alice Smith", false)

	resp, _ := doJSON(t, app, http.MethodGet, "/api/my-applications", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, "/api/my-applications", "Bearer "+token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthStampsUsernameIntoContext(t *testing.T) {
	s, _, _ := setupServerTest(t, nil)
	token := sessionToken(t, s, "alice", "Alice Smith", false)

	app := fiber.New()
	app.Get("/whoami", s.AuthRequired(), func(c *fiber.Ctx) error {
		username, _ := c.UserContext().Value(middleware.UsernameKey).(string)
		return c.JSON(fiber.Map{"username": username})
	})

	resp, body := doJSON(t, app, http.MethodGet, "/whoami", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "alice", body["username"])
}

func TestCreateApplication(t *testing.T) {
	s, app, db := setupServerTest(t, nil)
	token := sessionToken(t, s, "alice", "Alice Smith", false)

	resp, body := doJSON(t, app, http.MethodPost, "/api/applications", token, fiber.Map{
		"subject":      "Printer paper",
		"quantity":     5,
		"need_by_date": "2026-09-15",
		"link":         "https://example.org/paper",
	})

	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	require.NotNil(t, body["id"])

	var stored models.Application
	require.NoError(t, db.First(&stored, uint(body["id"].(float64))).Error)
	assert.Equal(t, "alice", stored.OwnerUsername)
	assert.Equal(t, "Alice Smith", stored.OwnerDisplayName)
	assert.Equal(t, models.ApplicationStatusActive, stored.Status)
	assert.Equal(t, models.ApplicationPriorityNormal, stored.Priority)
}

func TestCreateApplicationValidation(t *testing.T) {
	s, app, _ := setupServerTest(t, nil)
	token := sessionToken(t, s, "alice", "Alice Smith", false)

	resp, _ := doJSON(t, app, http.MethodPost, "/api/applications", token, fiber.Map{
		"subject":      "Paper",
		"quantity":     0,
		"need_by_date": "2026-09-15",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPost, "/api/applications", token, fiber.Map{
		"subject":      "Paper",
		"quantity":     1,
		"need_by_date": "2026-09-15",
		"priority":     "critical",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetMyApplicationsScopedToOwner(t *testing.T) {
	s, app, db := setupServerTest(t, nil)

	seedServerApp(t, db, &models.Application{
		OwnerUsername: "alice", OwnerDisplayName: "Alice Smith",
		Subject: "mine", Quantity: 1, NeedByDate: "2026-09-01",
	})
	seedServerApp(t, db, &models.Application{
		OwnerUsername: "bob", OwnerDisplayName: "Bob Jones",
		Subject: "not mine", Quantity: 1, NeedByDate: "2026-09-01",
	})

	token := sessionToken(t, s, "alice", "Alice Smith", false)
	resp, body := doJSON(t, app, http.MethodGet, "/api/my-applications", token, nil)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["count"])
	apps := body["applications"].([]any)
	require.Len(t, apps, 1)
	assert.Equal(t, "mine", apps[0].(map[string]any)["subject"])
}

func TestGetMyApplicationsStatusFilter(t *testing.T) {
	s, app, db := setupServerTest(t, nil)

	seedServerApp(t, db, &models.Application{
		OwnerUsername: "alice", OwnerDisplayName: "Alice Smith",
		Subject: "open", Quantity: 1, NeedByDate: "2026-09-01",
		Status: models.ApplicationStatusActive,
	})
	seedServerApp(t, db, &models.Application{
		OwnerUsername: "alice", OwnerDisplayName: "Alice Smith",
		Subject: "done", Quantity: 1, NeedByDate: "2026-09-01",
		Status: models.ApplicationStatusCompleted,
	})

	token := sessionToken(t, s, "alice", "Alice Smith", false)
	resp, body := doJSON(t, app, http.MethodGet, "/api/my-applications?status=completed", token, nil)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["count"])
}

func TestOwnerStatusUpdate(t *testing.T) {
	s, app, db := setupServerTest(t, nil)
	stored := seedServerApp(t, db, &models.Application{
		OwnerUsername: "alice", OwnerDisplayName: "Alice Smith",
		Subject: "paper", Quantity: 1, NeedByDate: "2026-09-01",
	})

	token := sessionToken(t, s, "alice", "Alice Smith", false)

	resp, _ := doJSON(t, app, http.MethodPatch, "/api/applications/1/status", token, fiber.Map{"status": "cancelled"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var reloaded models.Application
	require.NoError(t, db.First(&reloaded, stored.ID).Error)
	assert.Equal(t, models.ApplicationStatusCancelled, reloaded.Status)

	// Owners cannot complete requests.
	resp, _ = doJSON(t, app, http.MethodPatch, "/api/applications/1/status", token, fiber.Map{"status": "completed"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestOwnerStatusUpdateForeignApplication(t *testing.T) {
	s, app, db := setupServerTest(t, nil)
	seedServerApp(t, db, &models.Application{
		OwnerUsername: "bob", OwnerDisplayName: "Bob Jones",
		Subject: "paper", Quantity: 1, NeedByDate: "2026-09-01",
	})

	token := sessionToken(t, s, "alice", "Alice Smith", false)
	resp, _ := doJSON(t, app, http.MethodPatch, "/api/applications/1/status", token, fiber.Map{"status": "cancelled"})

	// Someone else's request looks like a missing one.
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestOwnerPriorityUpdate(t *testing.T) {
	s, app, db := setupServerTest(t, nil)
	stored := seedServerApp(t, db, &models.Application{
		OwnerUsername: "alice", OwnerDisplayName: "Alice Smith",
		Subject: "paper", Quantity: 1, NeedByDate: "2026-09-01",
	})

	token := sessionToken(t, s, "alice", "Alice Smith", false)
	resp, _ := doJSON(t, app, http.MethodPatch, "/api/applications/1/priority", token, fiber.Map{"priority": "urgent"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var reloaded models.Application
	require.NoError(t, db.First(&reloaded, stored.ID).Error)
	assert.Equal(t, models.ApplicationPriorityUrgent, reloaded.Priority)

	resp, _ = doJSON(t, app, http.MethodPatch, "/api/applications/1/priority", token, fiber.Map{"priority": "critical"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestInvalidApplicationID(t *testing.T) {
	s, app, _ := setupServerTest(t, nil)
	token := sessionToken(t, s, "alice", "Alice Smith", false)

	resp, _ := doJSON(t, app, http.MethodPatch, "/api/applications/abc/status", token, fiber.Map{"status": "cancelled"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAdminStatusUpdate(t *testing.T) {
	s, app, db := setupServerTest(t, nil)
	stored := seedServerApp(t, db, &models.Application{
		OwnerUsername: "bob", OwnerDisplayName: "Bob Jones",
		Subject: "paper", Quantity: 1, NeedByDate: "2026-09-01",
	})

	adminToken := sessionToken(t, s, "root", "Root User", true)
	resp, _ := doJSON(t, app, http.MethodPatch, "/api/applications/1/admin-status", adminToken, fiber.Map{"status": "completed"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var reloaded models.Application
	require.NoError(t, db.First(&reloaded, stored.ID).Error)
	assert.Equal(t, models.ApplicationStatusCompleted, reloaded.Status)
}

func TestAdminStatusUpdateForbiddenForNonAdmin(t *testing.T) {
	s, app, db := setupServerTest(t, nil)
	seedServerApp(t, db, &models.Application{
		OwnerUsername: "bob", OwnerDisplayName: "Bob Jones",
		Subject: "paper", Quantity: 1, NeedByDate: "2026-09-01",
	})

	token := sessionToken(t, s, "alice", "Alice Smith", false)
	resp, _ := doJSON(t, app, http.MethodPatch, "/api/applications/1/admin-status", token, fiber.Map{"status": "completed"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAdminApplicationsList(t *testing.T) {
	s, app, db := setupServerTest(t, nil)
	seedServerApp(t, db, &models.Application{
		OwnerUsername: "alice", OwnerDisplayName: "Alice Smith",
		Subject: "a", Quantity: 1, NeedByDate: "2026-09-01",
	})
	seedServerApp(t, db, &models.Application{
		OwnerUsername: "bob", OwnerDisplayName: "Bob Jones",
		Subject: "b", Quantity: 1, NeedByDate: "2026-09-01",
	})

	adminToken := sessionToken(t, s, "root", "Root User", true)
	resp, body := doJSON(t, app, http.MethodGet, "/api/admin/applications", adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), body["count"])

	userToken := sessionToken(t, s, "alice", "Alice Smith", false)
	resp, _ = doJSON(t, app, http.MethodGet, "/api/admin/applications", userToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAdminUserManagement(t *testing.T) {
	s, app, _ := setupServerTest(t, nil)
	adminToken := sessionToken(t, s, "root", "Root User", true)

	resp, body := doJSON(t, app, http.MethodGet, "/api/admin/users", adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["count"])

	resp, body = doJSON(t, app, http.MethodPost, "/api/admin/users/alice", adminToken, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Len(t, body["admins"], 2)

	// Adding again conflicts, even in a different case.
	resp, _ = doJSON(t, app, http.MethodPost, "/api/admin/users/ALICE", adminToken, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body = doJSON(t, app, http.MethodDelete, "/api/admin/users/alice", adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["admins"], 1)

	resp, _ = doJSON(t, app, http.MethodDelete, "/api/admin/users/alice", adminToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPITokenGate(t *testing.T) {
	s, app, db := setupServerTest(t, nil)
	seedServerApp(t, db, &models.Application{
		OwnerUsername: "alice", OwnerDisplayName: "Alice Smith",
		Subject: "paper", Quantity: 1, NeedByDate: "2026-09-01",
	})

	resp, _ := doJSON(t, app, http.MethodGet, "/api/applications", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, "/api/applications", "wrong_token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body := doJSON(t, app, http.MethodGet, "/api/applications", s.config.APIToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["count"])

	resp, body = doJSON(t, app, http.MethodGet, "/api/applications/1", s.config.APIToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "paper", body["application"].(map[string]any)["subject"])

	resp, _ = doJSON(t, app, http.MethodGet, "/api/applications/999", s.config.APIToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestFullReportEndpoint(t *testing.T) {
	s, app, db := setupServerTest(t, nil)
	seedServerApp(t, db, &models.Application{
		OwnerUsername: "alice", OwnerDisplayName: "Alice Smith",
		Subject: "paper", Quantity: 5, NeedByDate: "2026-09-01",
		Priority: models.ApplicationPriorityUrgent,
	})

	resp, body := doJSON(t, app, http.MethodGet, "/api/reports/full", s.config.APIToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, true, body["success"])
	report := body["report"].(map[string]any)
	assert.NotEmpty(t, report["timestamp"])
	summary := report["summary"].(map[string]any)
	assert.Equal(t, float64(1), summary["total"])
	assert.Equal(t, float64(1), summary["urgent"])
	require.Len(t, report["users"], 1)
	require.Len(t, report["pendingItems"], 1)
	require.Len(t, report["weeklyStats"], 1)
}

func TestWeeklyReportEndpoint(t *testing.T) {
	s, app, db := setupServerTest(t, nil)
	seedServerApp(t, db, &models.Application{
		OwnerUsername: "alice", OwnerDisplayName: "Alice Smith",
		Subject: "paper", Quantity: 5, NeedByDate: "2026-09-01",
	})

	resp, body := doJSON(t, app, http.MethodGet, "/api/reports/weekly", s.config.APIToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, true, body["success"])
	report := body["report"].(map[string]any)
	require.Len(t, report["weeklyStats"], 1)
}

func TestReportEndpointsRequireAPIToken(t *testing.T) {
	_, app, _ := setupServerTest(t, nil)

	for _, path := range []string{
		"/api/reports/full",
		"/api/reports/status",
		"/api/reports/priority",
		"/api/reports/users",
		"/api/reports/pending-items",
		"/api/reports/weekly",
	} {
		resp, _ := doJSON(t, app, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "path %s", path)
	}
}

func TestBreakdownReportEndpoints(t *testing.T) {
	s, app, db := setupServerTest(t, nil)
	seedServerApp(t, db, &models.Application{
		OwnerUsername: "alice", OwnerDisplayName: "Alice Smith",
		Subject: "a", Quantity: 1, NeedByDate: "2026-09-01",
		Status: models.ApplicationStatusActive, Priority: models.ApplicationPriorityUrgent,
	})
	seedServerApp(t, db, &models.Application{
		OwnerUsername: "alice", OwnerDisplayName: "Alice Smith",
		Subject: "b", Quantity: 1, NeedByDate: "2026-09-01",
		Status: models.ApplicationStatusCompleted, Priority: models.ApplicationPriorityNormal,
	})

	resp, body := doJSON(t, app, http.MethodGet, "/api/reports/status", s.config.APIToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rows := body["report"].([]any)
	require.Len(t, rows, 2)
	assert.InDelta(t, 50.0, rows[0].(map[string]any)["percentage"], 0.01)

	resp, body = doJSON(t, app, http.MethodGet, "/api/reports/priority", s.config.APIToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rows = body["report"].([]any)
	require.Len(t, rows, 2)
	assert.Equal(t, "urgent", rows[0].(map[string]any)["priority"])
}

func TestLivenessCheck(t *testing.T) {
	_, app, _ := setupServerTest(t, nil)

	resp, body := doJSON(t, app, http.MethodGet, "/health/live", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "up", body["status"])
}

func TestReadinessCheck(t *testing.T) {
	_, app, _ := setupServerTest(t, nil)

	resp, body := doJSON(t, app, http.MethodGet, "/health/ready", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])

	checks := body["checks"].(map[string]any)
	assert.Equal(t, "healthy", checks["database"])
	assert.Equal(t, "unavailable", checks["redis"])
}
