// Package jwtservice verifies the tokens the chat gateway attaches to its
// calls. The gateway is the only issuer; a token carries the platform user
// id the gateway resolved from the interaction.
package jwtservice

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	tokenTTL = 5 * time.Minute

	ErrInvalidToken = errors.New("invalid gateway token")
)

type GatewayClaims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

type JWTService struct {
	secret []byte
}

func New(secret string) *JWTService {
	return &JWTService{
		secret: []byte(secret),
	}
}

// GenerateToken is used by the gateway side and by tests.
func (s *JWTService) GenerateToken(userID int64) (string, error) {
	claims := &GatewayClaims{
		UserID: strconv.FormatInt(userID, 10),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ParseToken validates the token and returns the acting platform user id.
func (s *JWTService) ParseToken(tokenString string) (int64, error) {
	token, err := jwt.ParseWithClaims(tokenString, &GatewayClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return 0, ErrInvalidToken
	}
	claims, ok := token.Claims.(*GatewayClaims)
	if !ok || !token.Valid {
		return 0, ErrInvalidToken
	}
	uid, err := strconv.ParseInt(claims.UserID, 10, 64)
	if err != nil {
		return 0, ErrInvalidToken
	}
	return uid, nil
}
