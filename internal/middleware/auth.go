package middleware

import (
	"fmt"
	"net/http"
	"strings"

	userRepo "anoa.com/mentorconnect/internal/modules/user/repository"
	"anoa.com/mentorconnect/pkg/apperror"
	"anoa.com/mentorconnect/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ContextUserKey holds the *entity.User loaded by RequireUser.
const ContextUserKey = "user"

// AuthMiddleware validates HS256 tokens issued by the identity provider. The
// token subject is the user id.
type AuthMiddleware struct {
	userRepo userRepo.UserRepository
	secret   []byte
}

func NewAuthMiddleware(userRepo userRepo.UserRepository, secret string) *AuthMiddleware {
	return &AuthMiddleware{
		userRepo: userRepo,
		secret:   []byte(secret),
	}
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""
		authHeader := c.GetHeader("Authorization")

		if authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
				tokenString = strings.TrimSpace(parts[1])
			}
		}

		// Fallback to query parameter "token" (useful for WebSockets)
		if tokenString == "" {
			tokenString = c.Query("token")
		}

		if tokenString == "" {
			abort(c, "authorization required")
			return
		}

		token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return m.secret, nil
		})
		if err != nil || !token.Valid {
			abort(c, "invalid or expired token")
			return
		}

		claims, ok := token.Claims.(*jwt.RegisteredClaims)
		if !ok {
			abort(c, "invalid token claims")
			return
		}
		if _, err := uuid.Parse(claims.Subject); err != nil {
			abort(c, "invalid token subject")
			return
		}

		c.Set(response.ContextUserIDKey, claims.Subject)
		c.Next()
	}
}

// RequireUser must run after RequireAuth. It rejects tokens whose subject
// has no user record and stores the user under ContextUserKey.
func (m *AuthMiddleware) RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := response.GetUserID(c)
		if err != nil {
			response.ResponseError(c, err)
			c.Abort()
			return
		}

		user, err := m.userRepo.FindByID(c.Request.Context(), userID)
		if err != nil {
			response.ResponseError(c, err)
			c.Abort()
			return
		}

		c.Set(ContextUserKey, user)
		c.Next()
	}
}

func abort(c *gin.Context, message string) {
	response.ResponseError(c, apperror.New(http.StatusUnauthorized, message, apperror.ErrUnauthorized))
	c.Abort()
}
