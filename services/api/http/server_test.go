package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eln-lab/eln-backend/services/api/auth"
	"github.com/eln-lab/eln-backend/services/api/blob"
	"github.com/eln-lab/eln-backend/services/api/config"
)

func testServer(t *testing.T) (*Server, *auth.TokenIssuer) {
	t.Helper()

	cfg := config.Config{Port: 0, JWTIssuer: "eln-test"}
	issuer := auth.NewTokenIssuer("test-secret", "eln-test", time.Hour)
	authn := auth.StaticAuthenticator{"alice": "secret"}
	log := zap.NewNop().Sugar()

	return New(cfg, nil, blob.NewMemory(), issuer, authn, log), issuer
}

func bearerFor(t *testing.T, issuer *auth.TokenIssuer, id auth.Identity) string {
	t.Helper()
	token, _, err := issuer.Issue(id)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestHealthz(t *testing.T) {
	server, _ := testServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	server.Engine().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProtectedRoutesRejectMissingToken(t *testing.T) {
	server, _ := testServer(t)

	for _, path := range []string{"/api/v1/templates", "/api/v1/series", "/api/v1/measurements"} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		server.Engine().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestProtectedRoutesRejectBadToken(t *testing.T) {
	server, _ := testServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/templates", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	server.Engine().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestValidateEndpoint(t *testing.T) {
	server, issuer := testServer(t)
	token := bearerFor(t, issuer, auth.Identity{UserID: 1, Username: "alice", Role: "Student"})

	body := `{
		"sections": [
			{"name": "General", "fields": [{"name": "RunNumber", "type": "int", "required": true}]}
		],
		"data": {"General": {"RunNumber": 1.5}}
	}`

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/validate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", token)
	server.Engine().ServeHTTP(rec, req)

	// Validation failures are data, not an HTTP error.
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data struct {
			Valid  bool `json:"isValid"`
			Errors []struct {
				Section string `json:"section"`
				Field   string `json:"field"`
				Message string `json:"error"`
			} `json:"errors"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Data.Valid)
	require.Len(t, resp.Data.Errors, 1)
	assert.Equal(t, "RunNumber", resp.Data.Errors[0].Field)
}

func TestValidateEndpointValidPayload(t *testing.T) {
	server, issuer := testServer(t)
	token := bearerFor(t, issuer, auth.Identity{UserID: 1, Username: "alice", Role: "Student"})

	body := `{
		"sections": [
			{"name": "General", "fields": [{"name": "Operator", "type": "string", "required": true}]}
		],
		"data": {"General": {"Operator": "alice"}}
	}`

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/validate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", token)
	server.Engine().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"isValid":true`)
}

func TestValidateEndpointBadRequest(t *testing.T) {
	server, issuer := testServer(t)
	token := bearerFor(t, issuer, auth.Identity{UserID: 1, Username: "alice", Role: "Student"})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/validate", strings.NewReader(`{"data": {}}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", token)
	server.Engine().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIDParamValidation(t *testing.T) {
	server, issuer := testServer(t)
	token := bearerFor(t, issuer, auth.Identity{UserID: 1, Username: "staff", Role: "Staff"})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/templates/abc", nil)
	req.Header.Set("Authorization", token)
	server.Engine().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLockRequiresStaff(t *testing.T) {
	server, issuer := testServer(t)
	token := bearerFor(t, issuer, auth.Identity{UserID: 1, Username: "alice", Role: "Student"})

	for _, path := range []string{"/api/v1/series/1/lock", "/api/v1/series/1/unlock"} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.Header.Set("Authorization", token)
		server.Engine().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code, path)
	}
}

func TestCORSPreflight(t *testing.T) {
	server, _ := testServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/templates", nil)
	server.Engine().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
