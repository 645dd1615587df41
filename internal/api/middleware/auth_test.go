package middleware_test

import (
	"ballotbox/internal/api/middleware"
	"ballotbox/internal/testutil"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	m.Run()
}

func TestAuthMiddleware_AuthRequired(t *testing.T) {
	tests := []struct {
		name       string
		setupAuth  func(*testutil.TestContext) string
		wantStatus int
		wantErr    string
	}{
		{
			name: "Valid Session Token",
			setupAuth: func(tc *testutil.TestContext) string {
				user := tc.CreateTestVoter("Voter", "voter@example.com", "password123")
				return tc.GetTestJWT(user.ID)
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "Missing Authorization Header",
			setupAuth: func(tc *testutil.TestContext) string {
				return ""
			},
			wantStatus: http.StatusUnauthorized,
			wantErr:    "no authorization header",
		},
		{
			name: "Invalid Authorization Header Format",
			setupAuth: func(tc *testutil.TestContext) string {
				return "InvalidFormat Token"
			},
			wantStatus: http.StatusUnauthorized,
			wantErr:    "invalid authorization header",
		},
		{
			name: "Token Signed With Wrong Secret",
			setupAuth: func(tc *testutil.TestContext) string {
				token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
					"user_id": "00000000-0000-0000-0000-000000000000",
					"exp":     time.Now().Add(time.Hour).Unix(),
				})
				tokenString, err := token.SignedString([]byte("wrong-secret"))
				require.NoError(t, err)
				return tokenString
			},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "Face Verify Token Rejected",
			setupAuth: func(tc *testutil.TestContext) string {
				user := tc.CreateTestVoter("Mid Login", "midlogin@example.com", "password123")
				fetched, err := tc.UserRepo.GetByID(context.Background(), user.ID)
				require.NoError(t, err)
				token, err := tc.AuthService.GenerateFaceVerifyToken(fetched)
				require.NoError(t, err)
				return token
			},
			wantStatus: http.StatusUnauthorized,
			wantErr:    "token not valid for this operation",
		},
		{
			name: "Deleted User",
			setupAuth: func(tc *testutil.TestContext) string {
				user := tc.CreateTestVoter("Ghost", "ghost@example.com", "password123")
				token := tc.GetTestJWT(user.ID)
				_, err := tc.DB.Exec("DELETE FROM users WHERE id = $1", user.ID)
				require.NoError(t, err)
				return token
			},
			wantStatus: http.StatusUnauthorized,
			wantErr:    "user not found",
		},
		{
			name: "Suspended User",
			setupAuth: func(tc *testutil.TestContext) string {
				user := tc.CreateTestVoter("Suspended", "suspended@example.com", "password123")
				token := tc.GetTestJWT(user.ID)
				_, err := tc.DB.Exec("UPDATE users SET account_status = 'suspended' WHERE id = $1", user.ID)
				require.NoError(t, err)
				return token
			},
			wantStatus: http.StatusForbidden,
			wantErr:    "account is suspended",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := testutil.NewTestContext(t)

			authMiddleware := middleware.NewAuthMiddleware(tc.AuthService, tc.UserRepo)

			router := gin.New()
			router.GET("/test", authMiddleware.AuthRequired(), func(c *gin.Context) {
				user, exists := c.Get("user")
				require.True(t, exists)
				require.NotNil(t, user)
				c.Status(http.StatusOK)
			})

			w := httptest.NewRecorder()
			req := httptest.NewRequest("GET", "/test", nil)
			if token := tt.setupAuth(tc); token != "" {
				req.Header.Set("Authorization", "Bearer "+token)
			}
			router.ServeHTTP(w, req)

			require.Equal(t, tt.wantStatus, w.Code)
			if tt.wantErr != "" {
				var resp gin.H
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				require.Equal(t, tt.wantErr, resp["error"])
			}
		})
	}
}

func TestAuthMiddleware_AdminRequired(t *testing.T) {
	tests := []struct {
		name       string
		setupAuth  func(*testutil.TestContext) string
		wantStatus int
		wantErr    string
	}{
		{
			name: "Admin Access Allowed",
			setupAuth: func(tc *testutil.TestContext) string {
				user := tc.CreateTestAdmin("Admin", "admin@example.com", "password123")
				return tc.GetTestJWT(user.ID)
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "Voter Access Denied",
			setupAuth: func(tc *testutil.TestContext) string {
				user := tc.CreateTestVoter("Voter", "voter@example.com", "password123")
				return tc.GetTestJWT(user.ID)
			},
			wantStatus: http.StatusForbidden,
			wantErr:    "admin access required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := testutil.NewTestContext(t)

			authMiddleware := middleware.NewAuthMiddleware(tc.AuthService, tc.UserRepo)

			router := gin.New()
			router.GET("/test",
				authMiddleware.AuthRequired(),
				authMiddleware.AdminRequired(),
				func(c *gin.Context) {
					c.Status(http.StatusOK)
				},
			)

			w := httptest.NewRecorder()
			req := httptest.NewRequest("GET", "/test", nil)
			if token := tt.setupAuth(tc); token != "" {
				req.Header.Set("Authorization", "Bearer "+token)
			}
			router.ServeHTTP(w, req)

			require.Equal(t, tt.wantStatus, w.Code)
			if tt.wantErr != "" {
				var resp gin.H
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				require.Equal(t, tt.wantErr, resp["error"])
			}
		})
	}
}
