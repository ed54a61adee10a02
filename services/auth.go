package services

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/atelierhq/atelier/guard"
)

// AuthService signs and validates the bearer tokens the identity gate
// consumes. Token issuance is a convenience for running the stack end to
// end; every protected route only ever reads the validated account id.
type AuthService struct {
	PG        *sql.DB
	jwtSecret []byte
	tokenTTL  time.Duration
}

// Claims are the token claims the gate cares about.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// NewAuthService creates a new AuthService
func NewAuthService(pg *sql.DB, jwtSecret string) *AuthService {
	return &AuthService{
		PG:        pg,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  14 * 24 * time.Hour,
	}
}

// HashPassword creates a bcrypt hash of the password
func (s *AuthService) HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// Login verifies the credentials and returns a signed token for the account.
func (s *AuthService) Login(email, password string) (string, *guard.Account, error) {
	var a guard.Account
	err := s.PG.QueryRow(`
		SELECT id, email, username, password_hash, COALESCE(firstname, ''), COALESCE(lastname, ''), created_at
		FROM accounts
		WHERE email = $1
	`, email).Scan(&a.ID, &a.Email, &a.Username, &a.PasswordHash, &a.Firstname, &a.Lastname, &a.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil, guard.ErrUnauthorized
		}
		return "", nil, fmt.Errorf("failed to load account: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)) != nil {
		return "", nil, guard.ErrUnauthorized
	}

	token, err := s.SignToken(a.ID, a.Email)
	if err != nil {
		return "", nil, err
	}
	return token, &a, nil
}

// SignToken issues an HS256 token whose subject is the account id.
func (s *AuthService) SignToken(accountID, email string) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and verifies a token, returning its claims.
func (s *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// ExtractTokenFromHeader pulls the bearer token out of an Authorization header.
func (s *AuthService) ExtractTokenFromHeader(header string) (string, error) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", errors.New("authorization header must be 'Bearer <token>'")
	}
	return parts[1], nil
}
