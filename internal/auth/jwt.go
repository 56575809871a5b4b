// SWAB Mentor Sync - Jotform/Givebutter Volunteer Data Pipeline
// Copyright 2026 SWAB Mentor Program
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swab-program/mentorsync

// Package auth implements dashboard authentication: a JWT session token
// issued against the configured admin credentials, and the middleware
// that guards the API routes.
package auth

import (
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/swab-program/mentorsync/internal/config"
)

// Claims are the JWT claims carried by a session token.
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// JWTManager signs and validates session tokens with HMAC-SHA256.
type JWTManager struct {
	secret  []byte
	timeout time.Duration

	adminUsername string
	adminPassword string
}

// NewJWTManager creates a token manager. The secret must be configured;
// length checks happen during config validation.
func NewJWTManager(cfg *config.SecurityConfig) (*JWTManager, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT secret is required but was empty")
	}
	timeout := cfg.SessionTimeout
	if timeout <= 0 {
		timeout = 24 * time.Hour
	}
	return &JWTManager{
		secret:        []byte(cfg.JWTSecret),
		timeout:       timeout,
		adminUsername: cfg.AdminUsername,
		adminPassword: cfg.AdminPassword,
	}, nil
}

// Authenticate checks credentials against the configured admin account
// in constant time.
func (m *JWTManager) Authenticate(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(m.adminUsername)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(m.adminPassword)) == 1
	return userOK && passOK
}

// GenerateToken signs a session token for an authenticated user.
func (m *JWTManager) GenerateToken(username, role string) (string, error) {
	now := time.Now()
	claims := &Claims{
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.timeout)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken verifies a token's signature, algorithm, and time claims.
// Rejecting non-HMAC methods blocks algorithm confusion attacks.
func (m *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// TokenTTL returns the configured session lifetime.
func (m *JWTManager) TokenTTL() time.Duration {
	return m.timeout
}
