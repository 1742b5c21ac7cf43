package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt"
)

// Role is the actor kind carried in a session token.
type Role string

const (
	RoleClient Role = "client"
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleClient || r == RoleOwner || r == RoleAdmin
}

// Claims are the JWT claims of a session token.
type Claims struct {
	Email string `json:"email"`
	Role  Role   `json:"role"`
	jwt.StandardClaims
}

// TokenIssuer signs and validates HS256 session tokens.
type TokenIssuer struct {
	secret []byte
	now    func() time.Time
}

// NewTokenIssuer creates a TokenIssuer for secret.
func NewTokenIssuer(secret string) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), now: time.Now}
}

// GenerateToken creates a signed JWT token for subject with the given role.
// The token expires after duration.
func (t *TokenIssuer) GenerateToken(subject, email string, role Role, duration time.Duration) (string, error) {
	now := t.now()
	claims := Claims{
		Email: email,
		Role:  role,
		StandardClaims: jwt.StandardClaims{
			Subject:   subject,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(duration).Unix(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// ValidateToken parses tokenString and returns its claims if the signature,
// expiry and role are valid.
func (t *TokenIssuer) ValidateToken(tokenString string) (*Claims, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		// Ensure that the token's signing method is HMAC.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return t.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return nil, errors.New("token does not contain a valid 'sub' claim")
	}
	if !claims.Role.Valid() {
		return nil, errors.New("token does not contain a valid 'role' claim")
	}
	return &claims, nil
}
