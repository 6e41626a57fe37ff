package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"anoa.com/mentorconnect/internal/config"
	"anoa.com/mentorconnect/internal/entity"
	"anoa.com/mentorconnect/internal/testutil"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

const jwtSecret = "server-test-secret"

type apiClient struct {
	t       *testing.T
	handler http.Handler
}

func (a apiClient) do(method, path string, userID uuid.UUID, body any) (int, map[string]any) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != uuid.Nil {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		})
		signed, err := token.SignedString([]byte(jwtSecret))
		require.NoError(a.t, err)
		req.Header.Set("Authorization", "Bearer "+signed)
	}

	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") != "" {
		_ = json.Unmarshal(w.Body.Bytes(), &out)
	}
	return w.Code, out
}

func newTestServer(t *testing.T) (*gorm.DB, *Server, apiClient) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.NewDB(t)

	cfg := &config.Config{
		App:  config.AppConfig{Name: "mentorconnect", Env: "test", Port: "0"},
		Auth: config.AuthConfig{JWTSecret: jwtSecret},
		Notifications: config.NotificationsConfig{
			Window: 50,
		},
	}
	srv := NewServer(cfg, db, nil, zaptest.NewLogger(t))
	t.Cleanup(srv.Shutdown)
	return db, srv, apiClient{t: t, handler: srv.Handler()}
}

func TestHealthAndMetrics(t *testing.T) {
	_, _, api := newTestServer(t)

	code, body := api.do(http.MethodGet, "/healthz", uuid.Nil, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["database"])
	assert.Equal(t, "disabled", body["redis"])

	code, _ = api.do(http.MethodGet, "/metrics", uuid.Nil, nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	_, _, api := newTestServer(t)

	code, body := api.do(http.MethodGet, "/api/connections/incoming", uuid.Nil, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "UNAUTHORIZED", body["code"])
}

func TestConnectionFlowOverHTTP(t *testing.T) {
	db, _, api := newTestServer(t)
	alice := testutil.CreateUser(t, db, "alice", entity.RoleLearner)
	bob := testutil.CreateUser(t, db, "bob", entity.RoleMentor)

	code, body := api.do(http.MethodPost, "/api/connections", alice.ID, map[string]any{"message": "hi"})
	assert.Equal(t, http.StatusBadRequest, code, "recipient is required")
	assert.Contains(t, body["error"], "Recipient")
	assert.Equal(t, "INVALID_INPUT", body["code"])
	assert.Equal(t, false, body["retryable"])

	code, body = api.do(http.MethodPost, "/api/connections", alice.ID, map[string]any{
		"to_user_id": bob.ID.String(),
		"message":    "Could you mentor me?",
	})
	require.Equal(t, http.StatusCreated, code)
	requestID := body["data"].(map[string]any)["id"].(string)

	code, body = api.do(http.MethodPost, "/api/connections", bob.ID, map[string]any{"to_user_id": alice.ID.String()})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "DUPLICATE_REQUEST", body["code"])
	assert.Equal(t, false, body["retryable"])

	code, body = api.do(http.MethodGet, "/api/connections/status/"+alice.ID.String(), bob.ID, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["data"].(map[string]any)["is_incoming"])

	code, body = api.do(http.MethodGet, "/api/notifications", bob.ID, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), body["unread_count"])
	notifications := body["data"].([]any)
	require.Len(t, notifications, 1)
	notificationID := notifications[0].(map[string]any)["id"].(string)

	code, _ = api.do(http.MethodPost, "/api/notifications/"+notificationID+"/accept", bob.ID, map[string]any{"request_id": requestID})
	require.Equal(t, http.StatusOK, code)

	code, body = api.do(http.MethodGet, "/api/notifications/unread-count", bob.ID, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(0), body["count"])

	code, body = api.do(http.MethodGet, "/api/connections/accepted", alice.ID, nil)
	require.Equal(t, http.StatusOK, code)
	connections := body["data"].([]any)
	require.Len(t, connections, 1)
	counterpart := connections[0].(map[string]any)["counterpart"].(map[string]any)
	assert.Equal(t, "bob full", counterpart["name"])

	code, body = api.do(http.MethodPost, "/api/connections/"+requestID+"/reject", bob.ID, nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "INVALID_TRANSITION", body["code"])

	code, _ = api.do(http.MethodDelete, "/api/connections/not-a-uuid", alice.ID, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestButtonTextRoute(t *testing.T) {
	_, _, api := newTestServer(t)
	code, body := api.do(http.MethodGet, "/api/connections/button-text?from_role=mentor&to_role=learner", uuid.New(), nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Offer Mentorship", body["text"])
}

func TestProjectJoinRoute(t *testing.T) {
	db, _, api := newTestServer(t)
	owner := testutil.CreateUser(t, db, "olga", entity.RoleMentor)
	member := testutil.CreateUser(t, db, "mia", entity.RoleLearner)
	project := testutil.CreateProject(t, db, owner.ID, "Compiler club")

	code, _ := api.do(http.MethodPost, "/api/projects/"+project.ID.String()+"/join", member.ID, nil)
	require.Equal(t, http.StatusCreated, code)

	code, body := api.do(http.MethodPost, "/api/projects/"+project.ID.String()+"/join", member.ID, nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "ALREADY_MEMBER", body["code"])

	code, body = api.do(http.MethodGet, "/api/notifications", owner.ID, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["data"].([]any), 1)
}

func TestLiveSnapshotRequiresKnownUser(t *testing.T) {
	db, _, api := newTestServer(t)
	alice := testutil.CreateUser(t, db, "alice", entity.RoleLearner)

	code, _ := api.do(http.MethodGet, "/api/live", uuid.New(), nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, body := api.do(http.MethodGet, "/api/live", alice.ID, nil)
	require.Equal(t, http.StatusOK, code)
	snap := body["data"].(map[string]any)
	for _, view := range []string{"incoming_requests", "outgoing_requests", "connections", "notifications"} {
		assert.Contains(t, snap, view)
	}
}

func TestBindingErrorsUseErrorEnvelope(t *testing.T) {
	db, _, api := newTestServer(t)
	alice := testutil.CreateUser(t, db, "alice", entity.RoleLearner)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
	}{
		{"send without recipient", http.MethodPost, "/api/connections", map[string]any{"message": "hi"}},
		{"notification page out of range", http.MethodGet, "/api/notifications?limit=1000", nil},
		{"accept without request id", http.MethodPost, "/api/notifications/" + uuid.NewString() + "/accept", map[string]any{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := api.do(tt.method, tt.path, alice.ID, tt.body)
			assert.Equal(t, http.StatusBadRequest, code)
			assert.Equal(t, "INVALID_INPUT", body["code"])
			assert.Equal(t, false, body["retryable"])
			assert.NotEmpty(t, body["error"])
		})
	}
}
