package service

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sonderhq/account-api/internal/model"
	"github.com/sonderhq/account-api/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid token")
)

const rememberTokenLength = 40

const rememberTokenCharset = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

type AuthService struct {
	userRepository  repository.UserRepository
	tokenRepository repository.RevokedTokenRepository
	jwtSecret       string
	jwtTTL          time.Duration
}

func NewAuthService(
	userRepository repository.UserRepository,
	tokenRepository repository.RevokedTokenRepository,
	jwtSecret string,
	jwtTTL time.Duration,
) *AuthService {
	return &AuthService{
		userRepository:  userRepository,
		tokenRepository: tokenRepository,
		jwtSecret:       jwtSecret,
		jwtTTL:          jwtTTL,
	}
}

// Login verifies credentials and returns the matching user. Unknown email
// and wrong password collapse into the same error so the response cannot be
// used to probe for accounts.
func (s *AuthService) Login(email, password string) (*model.User, error) {
	user, err := s.userRepository.ByEmail(email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	err = s.ComparePassword(password, user.Password)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

func (s *AuthService) HashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

func (s *AuthService) ComparePassword(password, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// TTLSeconds is the advertised expires_in value.
func (s *AuthService) TTLSeconds() int {
	return int(s.jwtTTL.Seconds())
}

// IssueJWT signs a fresh HS256 bearer token for the user. Each token carries
// a unique jti so it can be revoked individually.
func (s *AuthService) IssueJWT(user *model.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"jti":     uuid.New().String(),
		"exp":     now.Add(s.jwtTTL).Unix(),
		"iat":     now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// VerifyJWT parses and validates a bearer token, including the revocation
// list check, and returns its claims.
func (s *AuthService) VerifyJWT(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	jti, ok := claims["jti"].(string)
	if !ok || jti == "" {
		return nil, ErrInvalidToken
	}

	revoked, err := s.tokenRepository.IsRevoked(jti)
	if err != nil {
		return nil, fmt.Errorf("failed to check revocation: %w", err)
	}
	if revoked {
		return nil, repository.ErrTokenRevoked
	}

	return claims, nil
}

// RevokeJWT invalidates the token behind the given claims until its natural
// expiry. Used by logout and by refresh (which retires the old token).
func (s *AuthService) RevokeJWT(claims jwt.MapClaims) error {
	jti, ok := claims["jti"].(string)
	if !ok || jti == "" {
		return ErrInvalidToken
	}

	userID, _ := claims["user_id"].(string)

	expiresAt := time.Now().Add(s.jwtTTL)
	exp, err := claims.GetExpirationTime()
	if err == nil && exp != nil {
		expiresAt = exp.Time
	}

	return s.tokenRepository.Revoke(&model.RevokedToken{
		JTI:       jti,
		UserID:    userID,
		ExpiresAt: expiresAt,
	})
}

// RefreshJWT retires the presented token and issues a new one for the same
// user.
func (s *AuthService) RefreshJWT(claims jwt.MapClaims, user *model.User) (string, error) {
	err := s.RevokeJWT(claims)
	if err != nil {
		return "", fmt.Errorf("failed to revoke current token: %w", err)
	}

	return s.IssueJWT(user)
}

// GenerateRememberToken returns a 40-character alphanumeric verification
// token.
func (s *AuthService) GenerateRememberToken() (string, error) {
	b := make([]byte, rememberTokenLength)
	charsetLen := big.NewInt(int64(len(rememberTokenCharset)))
	for i := range b {
		n, err := rand.Int(rand.Reader, charsetLen)
		if err != nil {
			return "", err
		}
		b[i] = rememberTokenCharset[n.Int64()]
	}
	return string(b), nil
}
