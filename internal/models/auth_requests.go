package models

// LoginRequest represents a login request. FaceImage and OTP are supplied on
// the second and third round trips of the login flow. VerifyToken is the
// short-lived token issued with a forced password change; it stands in for
// the password when the voter resumes the flow after resetting it.
type LoginRequest struct {
	VoterID     string `json:"voter_id" binding:"required,max=100"`
	Password    string `json:"password" binding:"required_without=VerifyToken"`
	VerifyToken string `json:"verify_token,omitempty"`
	FaceImage   string `json:"face_image,omitempty"`
	OTP         string `json:"otp,omitempty"`
}

// ChangePasswordRequest represents the request to change a password using a
// single-use reset token
type ChangePasswordRequest struct {
	Token           string `json:"token" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8,max=72"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
}

// RegisterVoterRequest represents the admin request to register a voter
type RegisterVoterRequest struct {
	Name        string `json:"name" binding:"required,max=200"`
	Email       string `json:"email" binding:"required,email"`
	DateOfBirth string `json:"date_of_birth" binding:"required,adult"`
	FaceImage   string `json:"face_image" binding:"required"`
	ElectionID  string `json:"election_id" binding:"required,uuid"`
}

// DeleteVoterRequest represents the admin request to delete a single voter
type DeleteVoterRequest struct {
	UserID string `json:"user_id" binding:"required,uuid"`
}

// DeleteAllVotersRequest requires explicit confirmation for a bulk delete
type DeleteAllVotersRequest struct {
	Confirm bool `json:"confirm"`
}
