package utils

import (
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
)

// Claims represents the JWT claims of a storefront session
type Claims struct {
	UserID string `json:"uid"`
	Email  string `json:"email"`
	jwt.StandardClaims
}

// TokenIssuer signs and verifies session tokens with an HMAC secret
type TokenIssuer struct {
	key []byte
	ttl time.Duration
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenIssuer{key: []byte(secret), ttl: ttl}
}

// GenerateJWT generates a JWT token for a user
func (t *TokenIssuer) GenerateJWT(uid, email string) (string, *Claims, error) {
	now := time.Now()
	claims := &Claims{
		UserID: uid,
		Email:  email,
		StandardClaims: jwt.StandardClaims{
			Id:        uuid.NewString(),
			Subject:   uid,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(t.ttl).Unix(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(t.key)
	if err != nil {
		return "", nil, err
	}
	return tokenString, claims, nil
}

// ParseJWT validates the signature and expiry of a token and returns its claims
func (t *TokenIssuer) ParseJWT(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return t.key, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}
