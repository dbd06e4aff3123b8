package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/servicedesk/repair-crm/internal/models"
	"github.com/servicedesk/repair-crm/internal/services"
	"github.com/servicedesk/repair-crm/pkg/jwt"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestJWTService() *jwt.Service {
	return jwt.NewService("test-access-secret-key-123456789", time.Hour)
}

// activeAccounts treats every token subject as an active user
type activeAccounts struct{}

func (activeAccounts) GetUser(_ context.Context, id int64) (*models.User, error) {
	return &models.User{ID: id, IsActive: true}, nil
}

type accountTable map[int64]*models.User

func (t accountTable) GetUser(_ context.Context, id int64) (*models.User, error) {
	if id == 99 {
		return nil, errors.New("connection refused")
	}
	if u, ok := t[id]; ok {
		return u, nil
	}
	return nil, fmt.Errorf("user %d: %w", id, services.ErrNotFound)
}

func setupTestRouter() (*gin.Engine, *logrus.Logger) {
	gin.SetMode(gin.TestMode)
	logger, _ := test.NewNullLogger()
	return gin.New(), logger
}

func TestAuthMiddleware_Success(t *testing.T) {
	jwtService := setupTestJWTService()
	router, logger := setupTestRouter()

	token, _, err := jwtService.GenerateAccessToken(7, "anil", "technician")
	require.NoError(t, err)

	router.GET("/protected", AuthMiddleware(jwtService, activeAccounts{}, logger), func(c *gin.Context) {
		userCtx, exists := GetUserContext(c)
		assert.True(t, exists)
		c.JSON(http.StatusOK, gin.H{
			"message":  "success",
			"userId":   userCtx.UserID,
			"username": userCtx.Username,
		})
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"success","userId":7,"username":"anil"}`, w.Body.String())
}

func TestAuthMiddleware_MissingAuthHeader(t *testing.T) {
	jwtService := setupTestJWTService()
	router, logger := setupTestRouter()

	router.GET("/protected", AuthMiddleware(jwtService, activeAccounts{}, logger), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "should not reach here"})
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Authorization header is required")
	assert.Contains(t, w.Body.String(), "MISSING_AUTH_HEADER")
}

func TestAuthMiddleware_InvalidAuthFormat(t *testing.T) {
	jwtService := setupTestJWTService()
	router, logger := setupTestRouter()

	router.GET("/protected", AuthMiddleware(jwtService, activeAccounts{}, logger), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "should not reach here"})
	})

	tests := []struct {
		name   string
		header string
	}{
		{"Missing Bearer", "some-token"},
		{"Wrong prefix", "Basic some-token"},
		{"Empty Bearer", "Bearer "},
		{"No token", "Bearer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			req.Header.Set("Authorization", tt.header)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), "INVALID_AUTH_FORMAT")
		})
	}
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	jwtService := setupTestJWTService()
	router, logger := setupTestRouter()

	wrongService := jwt.NewService("wrong-secret-key", time.Hour)
	forged, _, err := wrongService.GenerateAccessToken(1, "admin", "admin")
	require.NoError(t, err)

	router.GET("/protected", AuthMiddleware(jwtService, activeAccounts{}, logger), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "should not reach here"})
	})

	tests := []struct {
		name  string
		token string
		codes []string
	}{
		// unparseable tokens have no expiry, either code is acceptable
		{"Malformed", "invalid.token.here", []string{"INVALID_TOKEN", "TOKEN_EXPIRED"}},
		{"Random", "randomstringnotavalidtoken", []string{"INVALID_TOKEN", "TOKEN_EXPIRED"}},
		{"Wrong secret", forged, []string{"INVALID_TOKEN"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			req.Header.Set("Authorization", "Bearer "+tt.token)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			var body struct {
				Code string `json:"code"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Contains(t, tt.codes, body.Code)
		})
	}
}

func TestAuthMiddleware_ExpiredToken(t *testing.T) {
	jwtService := jwt.NewService("test-access-secret-key-123456789", time.Millisecond)
	router, logger := setupTestRouter()

	token, _, err := jwtService.GenerateAccessToken(7, "anil", "technician")
	require.NoError(t, err)

	// jwt expiry has second granularity
	time.Sleep(1100 * time.Millisecond)

	router.GET("/protected", AuthMiddleware(jwtService, activeAccounts{}, logger), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "should not reach here"})
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "TOKEN_EXPIRED")
}

func TestRequireRole(t *testing.T) {
	jwtService := setupTestJWTService()
	router, logger := setupTestRouter()

	router.DELETE("/admin-only", AuthMiddleware(jwtService, activeAccounts{}, logger), RequireRole("admin"), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	tests := []struct {
		role     string
		expected int
	}{
		{"admin", http.StatusNoContent},
		{"technician", http.StatusForbidden},
		{"service_engineer", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			token, _, err := jwtService.GenerateAccessToken(1, "someone", tt.role)
			require.NoError(t, err)

			req := httptest.NewRequest(http.MethodDelete, "/admin-only", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expected, w.Code)
		})
	}
}

func TestRequireRole_WithoutAuth(t *testing.T) {
	router, _ := setupTestRouter()
	router.GET("/admin-only", RequireRole("admin"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin-only", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "MISSING_USER_CONTEXT")
}

func TestGetUserContext(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("Context exists", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		expected := UserContext{UserID: 3, Username: "meena", Role: "admin"}
		c.Set(UserContextKey, expected)

		userCtx, exists := GetUserContext(c)
		assert.True(t, exists)
		assert.Equal(t, expected, userCtx)
		assert.True(t, userCtx.IsAdmin())
	})

	t.Run("Context missing", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		_, exists := GetUserContext(c)
		assert.False(t, exists)
	})

	t.Run("Wrong type", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Set(UserContextKey, "not a user context")
		_, exists := GetUserContext(c)
		assert.False(t, exists)
	})
}

func TestRequestID(t *testing.T) {
	router, _ := setupTestRouter()
	router.Use(RequestID())
	router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, GetRequestID(c))
	})

	t.Run("Generated", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

		id := w.Header().Get(RequestIDHeader)
		assert.Len(t, id, 36)
		assert.Equal(t, id, w.Body.String())
	})

	t.Run("Propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set(RequestIDHeader, "abc-123")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
	})
}

func TestRequestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger, hook := test.NewNullLogger()

	router := gin.New()
	router.Use(RequestID(), RequestLogger(logger))
	router.GET("/missing", func(c *gin.Context) {
		c.Status(http.StatusNotFound)
	})

	req := httptest.NewRequest(http.MethodGet, "/missing?x=1", nil)
	req.Header.Set("User-Agent", "Mozilla/5.0 (Linux; Android 12; Pixel 6) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/112.0.0.0 Mobile Safari/537.36")
	router.ServeHTTP(httptest.NewRecorder(), req)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, 404, entry.Data["status"])
	assert.Equal(t, "x=1", entry.Data["query"])
	assert.Equal(t, "android", entry.Data["platform"])
	assert.NotEmpty(t, entry.Data["request_id"])
}

func TestAuthMiddleware_AccountState(t *testing.T) {
	jwtService := setupTestJWTService()
	router, logger := setupTestRouter()

	accounts := accountTable{
		1: {ID: 1, IsActive: true},
		2: {ID: 2, IsActive: false},
		3: {ID: 3, IsActive: true, IsDeleted: true},
	}

	router.GET("/protected", AuthMiddleware(jwtService, accounts, logger), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	tests := []struct {
		name     string
		userID   int64
		expected int
		code     string
	}{
		{"Active", 1, http.StatusNoContent, ""},
		{"Deactivated", 2, http.StatusForbidden, "ACCOUNT_DISABLED"},
		{"Deleted", 3, http.StatusForbidden, "ACCOUNT_DISABLED"},
		{"Unknown", 4, http.StatusUnauthorized, "ACCOUNT_NOT_FOUND"},
		{"Lookup Failure", 99, http.StatusInternalServerError, "ACCOUNT_LOOKUP_FAILED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, _, err := jwtService.GenerateAccessToken(tt.userID, "someone", "admin")
			require.NoError(t, err)

			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expected, w.Code)
			if tt.code != "" {
				var body map[string]interface{}
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				assert.Equal(t, tt.code, body["code"])
				assert.Equal(t, false, body["success"])
			}
		})
	}
}
