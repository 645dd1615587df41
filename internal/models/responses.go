package models

// ErrorResponse represents an error response
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// LoginResponse represents the response to a login request. Exactly one of
// the Requires* flags is set until the flow reaches a session token.
// VerifyToken accompanies a forced password change and is good only for
// resuming the login flow, never as a session token.
type LoginResponse struct {
	Success                  bool   `json:"success"`
	Message                  string `json:"message,omitempty"`
	RequiresPasswordChange   bool   `json:"requires_password_change,omitempty"`
	RequiresFaceVerification bool   `json:"requires_face_verification,omitempty"`
	RequiresOTP              bool   `json:"requires_otp,omitempty"`
	Token                    string `json:"token,omitempty"`
	ResetToken               string `json:"reset_token,omitempty"`
	VerifyToken              string `json:"verify_token,omitempty"`
	AttemptsRemaining        *int   `json:"attempts_remaining,omitempty"`
	LockedMinutes            *int   `json:"locked_minutes,omitempty"`
}

// RegisterVoterData is the payload of a successful voter registration
type RegisterVoterData struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	EmailSent bool   `json:"email_sent"`
	CSVStatus string `json:"csv_status"`
}

// CastVoteResponse is the payload of a successful vote cast
type CastVoteResponse struct {
	Success           bool   `json:"success"`
	TransactionHash   string `json:"transaction_hash,omitempty"`
	BlockchainAddress string `json:"blockchain_address,omitempty"`
	Message           string `json:"message,omitempty"`
	Code              string `json:"code,omitempty"`
}

// DeleteVotersData reports per-category removal counts for voter deletion
type DeleteVotersData struct {
	Accounts       int `json:"accounts"`
	Votes          int `json:"votes"`
	Eligibility    int `json:"eligibility"`
	PasswordResets int `json:"password_resets"`
	FaceImages     int `json:"face_images"`
}
