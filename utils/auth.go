package utils

import (
	"errors"
	"fmt"
	"shopease/models"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
)

// Token verification errors
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidToken = errors.New("invalid token")
)

// DefaultTokenTTL is the validity of login-issued tokens
const DefaultTokenTTL = 7 * 24 * time.Hour

// Claims represents the JWT claims
type Claims struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.StandardClaims
}

// IsAdmin reports whether the token belongs to an admin
func (c *Claims) IsAdmin() bool {
	return c.Role == models.RoleAdmin
}

// TokenService signs and verifies bearer tokens with a server-side secret
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService. A non-positive ttl falls back to DefaultTokenTTL.
func NewTokenService(secret string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}
}

// Issue generates a signed token for a user
func (ts *TokenService) Issue(user models.User) (string, error) {
	now := time.Now()
	claims := &Claims{
		ID:    user.ID.Hex(),
		Email: user.Email,
		Role:  user.Role,
		StandardClaims: jwt.StandardClaims{
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(ts.ttl).Unix(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(ts.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify validates a raw token and returns its claims.
// An empty token yields ErrUnauthorized; anything else that fails yields ErrInvalidToken.
func (ts *TokenService) Verify(tokenStr string) (*Claims, error) {
	tokenStr = strings.TrimSpace(tokenStr)
	if tokenStr == "" {
		return nil, ErrUnauthorized
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return ts.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Email == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
