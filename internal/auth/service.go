package auth

import (
	"crypto/rand"
	"errors"
	"math/big"
	"time"

	"ballotbox/internal/config"
	"ballotbox/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidToken indicates the token is invalid
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired indicates the token has expired
	ErrTokenExpired = errors.New("token expired")
	// ErrWrongScope indicates the token is valid but not for this operation
	ErrWrongScope = errors.New("token not valid for this operation")
)

// Token scopes. A session token grants full API access for the role; a
// face-verify token is issued mid-login and is only good for completing
// face verification or a forced password change.
const (
	ScopeSession    = "session"
	ScopeFaceVerify = "face_verify"
)

// Claims are the JWT claims carried by every token
type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	Scope  string `json:"scope"`
	jwt.RegisteredClaims
}

// Service provides authentication functionality
type Service struct {
	config *config.Config
}

// NewService creates a new authentication service
func NewService(config *config.Config) *Service {
	return &Service{config: config}
}

// GenerateSessionToken issues a full session token for an authenticated user
func (s *Service) GenerateSessionToken(user *models.User) (string, error) {
	return s.generate(user, ScopeSession, s.config.Auth.SessionTokenDuration)
}

// GenerateFaceVerifyToken issues a short-lived token only sufficient for the
// face-verification and forced password-change steps of login
func (s *Service) GenerateFaceVerifyToken(user *models.User) (string, error) {
	return s.generate(user, ScopeFaceVerify, 15*time.Minute)
}

func (s *Service) generate(user *models.User, scope string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: user.ID.String(),
		Role:   string(user.Role),
		Scope:  scope,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.Auth.JWTSecret))
}

// ValidateToken validates a JWT token and returns its claims
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(s.config.Auth.JWTSecret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// HashPassword hashes a password using bcrypt
func (s *Service) HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// ComparePasswords compares a hashed password with a plain text password
func (s *Service) ComparePasswords(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

const tempPasswordAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnpqrstuvwxyz23456789"

// GenerateTempPassword returns a random 12-character temporary password.
// Ambiguous characters (0, O, 1, l, I) are excluded.
func GenerateTempPassword() (string, error) {
	b := make([]byte, 12)
	max := big.NewInt(int64(len(tempPasswordAlphabet)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = tempPasswordAlphabet[n.Int64()]
	}
	return string(b), nil
}

// GenerateOTP returns a random 6-digit numeric one-time code
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	code := n.Int64()
	digits := make([]byte, 6)
	for i := 5; i >= 0; i-- {
		digits[i] = byte('0' + code%10)
		code /= 10
	}
	return string(digits), nil
}

// GetUserFromContext retrieves the authenticated user from the gin context
func GetUserFromContext(c *gin.Context) *models.User {
	user, exists := c.Get("user")
	if !exists {
		return nil
	}
	if u, ok := user.(*models.User); ok {
		return u
	}
	return nil
}

// GetUserIDFromContext retrieves the authenticated user's ID from the gin context
func GetUserIDFromContext(c *gin.Context) (uuid.UUID, bool) {
	user := GetUserFromContext(c)
	if user == nil {
		return uuid.Nil, false
	}
	return user.ID, true
}
