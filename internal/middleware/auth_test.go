package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"anoa.com/mentorconnect/internal/entity"
	userRepo "anoa.com/mentorconnect/internal/modules/user/repository"
	"anoa.com/mentorconnect/internal/testutil"
	"anoa.com/mentorconnect/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func sign(t *testing.T, key []byte, method jwt.SigningMethod, subject string, expires time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(method, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(expires),
	})
	s, err := token.SignedString(key)
	require.NoError(t, err)
	return s
}

func newRouter(m *AuthMiddleware) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", m.RequireAuth(), func(c *gin.Context) {
		id, err := response.GetUserID(c)
		if err != nil {
			response.ResponseError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_id": id.String()})
	})
	r.GET("/profile", m.RequireAuth(), m.RequireUser(), func(c *gin.Context) {
		user := c.MustGet(ContextUserKey).(*entity.User)
		c.JSON(http.StatusOK, gin.H{"username": user.Username})
	})
	return r
}

func TestRequireAuth(t *testing.T) {
	m := NewAuthMiddleware(nil, secret)
	router := newRouter(m)
	subject := uuid.NewString()
	hour := time.Now().Add(time.Hour)

	tests := []struct {
		name   string
		header string
		query  string
		want   int
	}{
		{"bearer header", "Bearer " + sign(t, []byte(secret), jwt.SigningMethodHS256, subject, hour), "", http.StatusOK},
		{"lowercase scheme", "bearer " + sign(t, []byte(secret), jwt.SigningMethodHS256, subject, hour), "", http.StatusOK},
		{"query token", "", sign(t, []byte(secret), jwt.SigningMethodHS256, subject, hour), http.StatusOK},
		{"missing", "", "", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + sign(t, []byte("other"), jwt.SigningMethodHS256, subject, hour), "", http.StatusUnauthorized},
		{"expired", "Bearer " + sign(t, []byte(secret), jwt.SigningMethodHS256, subject, time.Now().Add(-time.Minute)), "", http.StatusUnauthorized},
		{"subject is not a uuid", "Bearer " + sign(t, []byte(secret), jwt.SigningMethodHS256, "alice", hour), "", http.StatusUnauthorized},
		{"basic auth", "Basic dXNlcjpwYXNz", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := "/me"
			if tt.query != "" {
				target += "?token=" + tt.query
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusOK {
				assert.Contains(t, w.Body.String(), subject)
			}
		})
	}
}

func TestRequireUser(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "alice", entity.RoleLearner)
	router := newRouter(NewAuthMiddleware(userRepo.NewUserRepository(db), secret))
	hour := time.Now().Add(time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.Header.Set("Authorization", "Bearer "+sign(t, []byte(secret), jwt.SigningMethodHS256, user.ID.String(), hour))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "alice")

	req = httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.Header.Set("Authorization", "Bearer "+sign(t, []byte(secret), jwt.SigningMethodHS256, uuid.NewString(), hour))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
