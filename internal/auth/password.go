// Pitwall - Formula SAE Team Dashboard Server
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-fsae/pitwall

// Package auth implements password hashing, JWT issuance and
// verification, and the request authentication middleware.
package auth

import (
	"crypto/sha256"
	"encoding/base64"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"github.com/pitwall-fsae/pitwall/internal/apperrors"
)

// Password length bounds enforced on set/change.
const (
	PasswordMinLength = 8
	PasswordMaxLength = 128
)

// normalizePassword pre-hashes the password with SHA-256 and encodes it
// base64 so arbitrary-length inputs fit bcrypt's 72-byte limit without
// silent truncation.
func normalizePassword(password string) []byte {
	sum := sha256.Sum256([]byte(password))
	out := make([]byte, base64.StdEncoding.EncodedLen(len(sum)))
	base64.StdEncoding.Encode(out, sum[:])
	return out
}

// HashPassword hashes a password for storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(normalizePassword(password), bcrypt.DefaultCost)
	if err != nil {
		return "", apperrors.Wrap(apperrors.Internal, err, "hash password")
	}
	return string(hash), nil
}

// VerifyPassword checks a password against its stored hash.
func VerifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), normalizePassword(password)) == nil
}

// ValidatePasswordPolicy enforces the account password policy:
// 8-128 characters, not all digits, not all letters, and at least three
// distinct characters. Returns a Validation error naming the first
// violated rule.
func ValidatePasswordPolicy(password string) error {
	runes := []rune(password)
	if len(runes) < PasswordMinLength {
		return apperrors.Ef(apperrors.Validation, "Password must be at least %d characters", PasswordMinLength)
	}
	if len(runes) > PasswordMaxLength {
		return apperrors.Ef(apperrors.Validation, "Password must be at most %d characters", PasswordMaxLength)
	}

	allDigits := true
	allLetters := true
	distinct := map[rune]struct{}{}
	for _, r := range runes {
		if !unicode.IsDigit(r) {
			allDigits = false
		}
		if !unicode.IsLetter(r) {
			allLetters = false
		}
		distinct[r] = struct{}{}
	}

	if allDigits {
		return apperrors.E(apperrors.Validation, "Password cannot be all digits")
	}
	if allLetters {
		return apperrors.E(apperrors.Validation, "Password cannot be all letters")
	}
	if len(distinct) < 3 {
		return apperrors.E(apperrors.Validation, "Password must contain at least 3 distinct characters")
	}
	return nil
}
