// Pitwall - Formula SAE Team Dashboard Server
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-fsae/pitwall

package logging

import "strings"

// SanitizeToken masks a token, showing only first and last 4 characters.
// Example: "eyJhbGciOiJSUzI1NiIsInR5cCI6IkpXVCJ9..." -> "eyJh...kpXV"
func SanitizeToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 12 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

// SanitizeValue prepares a user-supplied string for logging: control
// characters are stripped (log injection) and the result is truncated.
// Usernames, file names, and form field names pass through here before
// appearing in log output.
func SanitizeValue(value string) string {
	const maxLen = 100

	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		if r < 32 || r == 127 {
			continue
		}
		b.WriteRune(r)
	}

	s := b.String()
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}
