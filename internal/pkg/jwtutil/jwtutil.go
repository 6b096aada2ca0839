package jwtutil

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RolePartner1 = "partner1"
	RolePartner2 = "partner2"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims binds a bearer token to one session and the partner seat it holds.
type Claims struct {
	SessionCode string `json:"session_code"`
	Role        string `json:"role"`
	jwt.RegisteredClaims
}

func GenerateToken(secret string, expiration time.Duration, sessionCode, role string) (string, error) {
	now := time.Now()
	claims := Claims{
		SessionCode: sessionCode,
		Role:        role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sessionCode + ":" + role,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiration)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token failed: %w", err)
	}
	return signed, nil
}

func ParseToken(secret, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.SessionCode == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
