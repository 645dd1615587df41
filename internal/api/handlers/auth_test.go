package handlers_test

import (
	"ballotbox/internal/auth"
	"ballotbox/internal/models"
	"ballotbox/internal/testutil"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	m.Run()
}

func postJSON(t *testing.T, router *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func loginRouter(tc *testutil.TestContext) *gin.Engine {
	router := gin.New()
	router.POST("/login", tc.AuthHandler.Login)
	router.POST("/change-password", tc.AuthHandler.ChangePassword)
	return router
}

func decodeLogin(t *testing.T, w *httptest.ResponseRecorder) models.LoginResponse {
	t.Helper()
	var resp models.LoginResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp
}

func TestAuthHandler_Login(t *testing.T) {
	capturedImage := base64.StdEncoding.EncodeToString([]byte("captured-face-bytes"))

	tests := []struct {
		name       string
		setupFunc  func(tc *testutil.TestContext)
		input      models.LoginRequest
		wantStatus int
		check      func(t *testing.T, tc *testutil.TestContext, resp models.LoginResponse)
	}{
		{
			name: "Success - Password Only",
			setupFunc: func(tc *testutil.TestContext) {
				tc.CreateTestVoter("Plain Voter", "plain@example.com", "correct-password")
			},
			input: models.LoginRequest{
				VoterID:  "plain@example.com",
				Password: "correct-password",
			},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, tc *testutil.TestContext, resp models.LoginResponse) {
				require.True(t, resp.Success)
				require.NotEmpty(t, resp.Token)
				require.False(t, resp.RequiresPasswordChange)
				require.False(t, resp.RequiresFaceVerification)
				require.False(t, resp.RequiresOTP)
			},
		},
		{
			name:      "Unknown Voter",
			setupFunc: nil,
			input: models.LoginRequest{
				VoterID:  "ghost@example.com",
				Password: "whatever",
			},
			wantStatus: http.StatusUnauthorized,
			check: func(t *testing.T, tc *testutil.TestContext, resp models.LoginResponse) {
				require.Equal(t, "invalid credentials", resp.Message)
				require.NotNil(t, resp.AttemptsRemaining)
				require.Equal(t, 4, *resp.AttemptsRemaining)
			},
		},
		{
			name: "Wrong Password Reports Attempts Remaining",
			setupFunc: func(tc *testutil.TestContext) {
				tc.CreateTestVoter("Fumble Voter", "fumble@example.com", "correct-password")
			},
			input: models.LoginRequest{
				VoterID:  "fumble@example.com",
				Password: "wrong-password",
			},
			wantStatus: http.StatusUnauthorized,
			check: func(t *testing.T, tc *testutil.TestContext, resp models.LoginResponse) {
				require.Equal(t, "invalid credentials", resp.Message)
				require.NotNil(t, resp.AttemptsRemaining)
				require.Equal(t, 4, *resp.AttemptsRemaining)
			},
		},
		{
			name: "Email Case And Whitespace Normalized",
			setupFunc: func(tc *testutil.TestContext) {
				tc.CreateTestVoter("Cased Voter", "cased@example.com", "correct-password")
			},
			input: models.LoginRequest{
				VoterID:  "  Cased@Example.COM ",
				Password: "correct-password",
			},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, tc *testutil.TestContext, resp models.LoginResponse) {
				require.NotEmpty(t, resp.Token)
			},
		},
		{
			name: "Suspended Account",
			setupFunc: func(tc *testutil.TestContext) {
				user := tc.CreateTestVoter("Suspended Voter", "suspended@example.com", "correct-password")
				_, err := tc.DB.Exec("UPDATE users SET account_status = 'suspended' WHERE id = $1", user.ID)
				require.NoError(t, err)
			},
			input: models.LoginRequest{
				VoterID:  "suspended@example.com",
				Password: "correct-password",
			},
			wantStatus: http.StatusForbidden,
			check: func(t *testing.T, tc *testutil.TestContext, resp models.LoginResponse) {
				require.Equal(t, "account is suspended", resp.Message)
			},
		},
		{
			name: "Temporary Password Forces Change",
			setupFunc: func(tc *testutil.TestContext) {
				tc.CreateTestVoterWithTempPassword("Fresh Voter", "fresh@example.com", "temp-password")
			},
			input: models.LoginRequest{
				VoterID:  "fresh@example.com",
				Password: "temp-password",
			},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, tc *testutil.TestContext, resp models.LoginResponse) {
				require.True(t, resp.RequiresPasswordChange)
				require.NotEmpty(t, resp.ResetToken)
				require.NotEmpty(t, resp.VerifyToken)
				require.Empty(t, resp.Token)
			},
		},
		{
			name: "Face Verification Requested",
			setupFunc: func(tc *testutil.TestContext) {
				user := tc.CreateTestVoter("Face Voter", "face@example.com", "correct-password")
				tc.SetFaceImage(user.ID, "/var/lib/ballotbox/faces/face-voter.png")
			},
			input: models.LoginRequest{
				VoterID:  "face@example.com",
				Password: "correct-password",
			},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, tc *testutil.TestContext, resp models.LoginResponse) {
				require.True(t, resp.RequiresFaceVerification)
				require.Empty(t, resp.Token)
			},
		},
		{
			name: "Face Match Completes Login",
			setupFunc: func(tc *testutil.TestContext) {
				user := tc.CreateTestVoter("Face Voter", "face@example.com", "correct-password")
				tc.SetFaceImage(user.ID, "/var/lib/ballotbox/faces/face-voter.png")
				tc.FaceMatcher.Result = true
			},
			input: models.LoginRequest{
				VoterID:   "face@example.com",
				Password:  "correct-password",
				FaceImage: capturedImage,
			},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, tc *testutil.TestContext, resp models.LoginResponse) {
				require.NotEmpty(t, resp.Token)
				require.Equal(t, 1, tc.FaceMatcher.Calls)
			},
		},
		{
			name: "Face Mismatch Counts As Failed Attempt",
			setupFunc: func(tc *testutil.TestContext) {
				user := tc.CreateTestVoter("Face Voter", "face@example.com", "correct-password")
				tc.SetFaceImage(user.ID, "/var/lib/ballotbox/faces/face-voter.png")
				tc.FaceMatcher.Result = false
			},
			input: models.LoginRequest{
				VoterID:   "face@example.com",
				Password:  "correct-password",
				FaceImage: capturedImage,
			},
			wantStatus: http.StatusUnauthorized,
			check: func(t *testing.T, tc *testutil.TestContext, resp models.LoginResponse) {
				require.Equal(t, "invalid credentials", resp.Message)
				require.NotNil(t, resp.AttemptsRemaining)
				require.Equal(t, 4, *resp.AttemptsRemaining)
			},
		},
		{
			name: "Malformed Face Image Counts As Failed Attempt",
			setupFunc: func(tc *testutil.TestContext) {
				user := tc.CreateTestVoter("Face Voter", "face@example.com", "correct-password")
				tc.SetFaceImage(user.ID, "/var/lib/ballotbox/faces/face-voter.png")
			},
			input: models.LoginRequest{
				VoterID:   "face@example.com",
				Password:  "correct-password",
				FaceImage: "not-valid-base64!!!",
			},
			wantStatus: http.StatusUnauthorized,
			check: func(t *testing.T, tc *testutil.TestContext, resp models.LoginResponse) {
				require.NotNil(t, resp.AttemptsRemaining)
			},
		},
		{
			name:      "Missing Password",
			setupFunc: nil,
			input: models.LoginRequest{
				VoterID: "someone@example.com",
			},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := testutil.NewTestContext(t)
			if tt.setupFunc != nil {
				tt.setupFunc(tc)
			}

			w := postJSON(t, loginRouter(tc), "/login", tt.input)
			require.Equal(t, tt.wantStatus, w.Code)

			if tt.check != nil {
				tt.check(t, tc, decodeLogin(t, w))
			}
		})
	}
}

func TestAuthHandler_LoginOTPFlow(t *testing.T) {
	tc := testutil.NewTestContext(t)
	router := loginRouter(tc)

	user := tc.CreateTestVoter("OTP Voter", "otp@example.com", "correct-password")
	tc.RequireOTP(user.ID)

	// Password alone triggers the OTP stage and an email
	w := postJSON(t, router, "/login", models.LoginRequest{
		VoterID:  "otp@example.com",
		Password: "correct-password",
	})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeLogin(t, w)
	require.True(t, resp.RequiresOTP)
	require.Empty(t, resp.Token)
	code := tc.EmailSender.LastOTP(t)
	require.Len(t, code, 6)

	// A wrong code is a failed attempt
	w = postJSON(t, router, "/login", models.LoginRequest{
		VoterID:  "otp@example.com",
		Password: "correct-password",
		OTP:      "000000",
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	resp = decodeLogin(t, w)
	require.NotNil(t, resp.AttemptsRemaining)
	require.Equal(t, 4, *resp.AttemptsRemaining)

	// Retrying without a code re-sends the same unexpired code
	w = postJSON(t, router, "/login", models.LoginRequest{
		VoterID:  "otp@example.com",
		Password: "correct-password",
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, code, tc.EmailSender.LastOTP(t))

	// The mailed code completes the login
	w = postJSON(t, router, "/login", models.LoginRequest{
		VoterID:  "otp@example.com",
		Password: "correct-password",
		OTP:      code,
	})
	require.Equal(t, http.StatusOK, w.Code)
	resp = decodeLogin(t, w)
	require.NotEmpty(t, resp.Token)

	// Success clears the failed-attempt counter
	fetched, err := tc.UserRepo.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	require.Zero(t, fetched.LoginAttempts)
}

func TestAuthHandler_LoginLockout(t *testing.T) {
	tc := testutil.NewTestContext(t)
	router := loginRouter(tc)

	tc.CreateTestVoter("Locked Voter", "lockme@example.com", "correct-password")

	// Four failures leave one attempt
	for i := 0; i < 4; i++ {
		w := postJSON(t, router, "/login", models.LoginRequest{
			VoterID:  "lockme@example.com",
			Password: "wrong-password",
		})
		require.Equal(t, http.StatusUnauthorized, w.Code)
	}

	// The fifth locks the account
	w := postJSON(t, router, "/login", models.LoginRequest{
		VoterID:  "lockme@example.com",
		Password: "wrong-password",
	})
	require.Equal(t, http.StatusForbidden, w.Code)
	resp := decodeLogin(t, w)
	require.NotNil(t, resp.LockedMinutes)
	require.Greater(t, *resp.LockedMinutes, 0)

	// Even the correct password is refused while locked
	w = postJSON(t, router, "/login", models.LoginRequest{
		VoterID:  "lockme@example.com",
		Password: "correct-password",
	})
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestAuthHandler_LoginFailuresAccumulateAcrossStages(t *testing.T) {
	tc := testutil.NewTestContext(t)
	router := loginRouter(tc)

	user := tc.CreateTestVoter("Stage Voter", "stages@example.com", "correct-password")
	tc.SetFaceImage(user.ID, "/var/lib/ballotbox/faces/stage-voter.png")
	tc.RequireOTP(user.ID)
	capturedImage := base64.StdEncoding.EncodeToString([]byte("captured-face-bytes"))

	// Two password failures
	for i := 0; i < 2; i++ {
		w := postJSON(t, router, "/login", models.LoginRequest{
			VoterID:  "stages@example.com",
			Password: "wrong-password",
		})
		require.Equal(t, http.StatusUnauthorized, w.Code)
	}

	// Two face failures on top
	tc.FaceMatcher.Result = false
	for i := 0; i < 2; i++ {
		w := postJSON(t, router, "/login", models.LoginRequest{
			VoterID:   "stages@example.com",
			Password:  "correct-password",
			FaceImage: capturedImage,
		})
		require.Equal(t, http.StatusUnauthorized, w.Code)
	}
	tc.FaceMatcher.Result = true

	// Request the OTP, then fail it: the fifth cumulative failure locks
	w := postJSON(t, router, "/login", models.LoginRequest{
		VoterID:   "stages@example.com",
		Password:  "correct-password",
		FaceImage: capturedImage,
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = postJSON(t, router, "/login", models.LoginRequest{
		VoterID:   "stages@example.com",
		Password:  "correct-password",
		FaceImage: capturedImage,
		OTP:       "000000",
	})
	require.Equal(t, http.StatusForbidden, w.Code)
	resp := decodeLogin(t, w)
	require.NotNil(t, resp.LockedMinutes)
}

func TestAuthHandler_ChangePassword(t *testing.T) {
	tc := testutil.NewTestContext(t)
	router := loginRouter(tc)

	tc.CreateTestVoterWithTempPassword("Change Voter", "change@example.com", "temp-password")

	// First login hands out a reset token
	w := postJSON(t, router, "/login", models.LoginRequest{
		VoterID:  "change@example.com",
		Password: "temp-password",
	})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeLogin(t, w)
	require.True(t, resp.RequiresPasswordChange)
	token := resp.ResetToken

	// Mismatched confirmation is rejected
	w = postJSON(t, router, "/change-password", models.ChangePasswordRequest{
		Token:           token,
		NewPassword:     "brand-new-password",
		ConfirmPassword: "different-password",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	// An unknown token is rejected
	w = postJSON(t, router, "/change-password", models.ChangePasswordRequest{
		Token:           "bogus-token",
		NewPassword:     "brand-new-password",
		ConfirmPassword: "brand-new-password",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	// The issued token works once and hands out a session token
	w = postJSON(t, router, "/change-password", models.ChangePasswordRequest{
		Token:           token,
		NewPassword:     "brand-new-password",
		ConfirmPassword: "brand-new-password",
	})
	require.Equal(t, http.StatusOK, w.Code)
	changed := decodeLogin(t, w)
	require.True(t, changed.Success)
	require.NotEmpty(t, changed.Token)
	claims, err := tc.AuthService.ValidateToken(changed.Token)
	require.NoError(t, err)
	require.Equal(t, auth.ScopeSession, claims.Scope)

	// And only once
	w = postJSON(t, router, "/change-password", models.ChangePasswordRequest{
		Token:           token,
		NewPassword:     "another-password",
		ConfirmPassword: "another-password",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	// The old temporary password no longer works
	w = postJSON(t, router, "/login", models.LoginRequest{
		VoterID:  "change@example.com",
		Password: "temp-password",
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	// The new password logs straight in
	w = postJSON(t, router, "/login", models.LoginRequest{
		VoterID:  "change@example.com",
		Password: "brand-new-password",
	})
	require.Equal(t, http.StatusOK, w.Code)
	resp = decodeLogin(t, w)
	require.NotEmpty(t, resp.Token)
	require.False(t, resp.RequiresPasswordChange)
}

func TestAuthHandler_LoginUnknownVoterIndistinguishable(t *testing.T) {
	tc := testutil.NewTestContext(t)
	router := loginRouter(tc)

	tc.CreateTestVoter("Known Voter", "known@example.com", "correct-password")

	unknown := postJSON(t, router, "/login", models.LoginRequest{
		VoterID:  "nobody@example.com",
		Password: "wrong-password",
	})
	wrong := postJSON(t, router, "/login", models.LoginRequest{
		VoterID:  "known@example.com",
		Password: "wrong-password",
	})

	// An unknown voter ID and a first wrong password must be byte-identical
	// to the caller, or voter IDs can be enumerated.
	require.Equal(t, http.StatusUnauthorized, unknown.Code)
	require.Equal(t, wrong.Code, unknown.Code)
	require.Equal(t, wrong.Body.String(), unknown.Body.String())
}

func TestAuthHandler_LoginWithVerifyToken(t *testing.T) {
	tc := testutil.NewTestContext(t)
	router := loginRouter(tc)

	tc.CreateTestVoterWithTempPassword("Resume Voter", "resume@example.com", "temp-password")

	w := postJSON(t, router, "/login", models.LoginRequest{
		VoterID:  "resume@example.com",
		Password: "temp-password",
	})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeLogin(t, w)
	require.True(t, resp.RequiresPasswordChange)
	require.NotEmpty(t, resp.VerifyToken)
	verifyToken := resp.VerifyToken

	// The verify token is not a session token
	claims, err := tc.AuthService.ValidateToken(verifyToken)
	require.NoError(t, err)
	require.Equal(t, auth.ScopeFaceVerify, claims.Scope)

	w = postJSON(t, router, "/change-password", models.ChangePasswordRequest{
		Token:           resp.ResetToken,
		NewPassword:     "brand-new-password",
		ConfirmPassword: "brand-new-password",
	})
	require.Equal(t, http.StatusOK, w.Code)

	// The verify token resumes the flow without a password
	w = postJSON(t, router, "/login", models.LoginRequest{
		VoterID:     "resume@example.com",
		VerifyToken: verifyToken,
	})
	require.Equal(t, http.StatusOK, w.Code)
	resp = decodeLogin(t, w)
	require.NotEmpty(t, resp.Token)

	// A garbage verify token does not stand in for the password
	w = postJSON(t, router, "/login", models.LoginRequest{
		VoterID:     "resume@example.com",
		VerifyToken: "not-a-token",
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	resp = decodeLogin(t, w)
	require.NotNil(t, resp.AttemptsRemaining)
}
