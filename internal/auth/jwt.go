// Pitwall - Formula SAE Team Dashboard Server
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-fsae/pitwall

package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pitwall-fsae/pitwall/internal/apperrors"
	"github.com/pitwall-fsae/pitwall/internal/metrics"
	"github.com/pitwall-fsae/pitwall/internal/models"
)

// Claims are the JWT claims carried by every Pitwall token. Subject
// holds the username; UserID is the numeric database id.
type Claims struct {
	UserID  int64    `json:"uid"`
	IsAdmin bool     `json:"is_admin"`
	Roles   []string `json:"roles"`
	jwt.RegisteredClaims
}

// JWTManager creates and validates HS256-signed tokens.
type JWTManager struct {
	secret []byte
	ttl    time.Duration
}

// NewJWTManager builds a token manager. The secret must be non-empty;
// length is validated at config load.
func NewJWTManager(secret string, ttl time.Duration) (*JWTManager, error) {
	if secret == "" {
		return nil, fmt.Errorf("JWT secret is required but was empty")
	}
	return &JWTManager{secret: []byte(secret), ttl: ttl}, nil
}

// GenerateToken issues a signed token for the user, valid for the
// configured TTL.
func (m *JWTManager) GenerateToken(user *models.User) (string, error) {
	now := time.Now()
	roles := user.Roles
	if roles == nil {
		roles = []string{}
	}
	claims := &Claims{
		UserID:  user.ID,
		IsAdmin: user.IsAdmin,
		Roles:   roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Username,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", apperrors.Wrap(apperrors.Internal, err, "sign token")
	}
	return signed, nil
}

// ValidateToken verifies signature, algorithm, and time claims, and
// returns the embedded claims.
func (m *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Reject anything but HMAC to block algorithm confusion.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			metrics.RecordTokenValidation("expired")
		} else {
			metrics.RecordTokenValidation("invalid")
		}
		return nil, apperrors.Wrap(apperrors.Unauthorized, err, "invalid token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		metrics.RecordTokenValidation("invalid")
		return nil, apperrors.E(apperrors.Unauthorized, "invalid token claims")
	}

	metrics.RecordTokenValidation("valid")
	return claims, nil
}

// Username returns the token subject.
func (c *Claims) Username() string {
	return c.Subject
}

// SubjectID returns the casbin subject identifier for this user.
func (c *Claims) SubjectID() string {
	return "user:" + strconv.FormatInt(c.UserID, 10)
}
