// Pitwall - Formula SAE Team Dashboard Server
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-fsae/pitwall

package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pitwall-fsae/pitwall/internal/apperrors"
	"github.com/pitwall-fsae/pitwall/internal/models"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct-horse-7")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !VerifyPassword(hash, "correct-horse-7") {
		t.Error("correct password rejected")
	}
	if VerifyPassword(hash, "wrong-password-7") {
		t.Error("wrong password accepted")
	}

	t.Run("long passwords are not truncated", func(t *testing.T) {
		// bcrypt alone ignores bytes past 72; the SHA-256 pre-hash must not.
		long := strings.Repeat("a", 72) + "tail1"
		longer := strings.Repeat("a", 72) + "tail2"
		h, err := HashPassword(long)
		if err != nil {
			t.Fatalf("HashPassword: %v", err)
		}
		if VerifyPassword(h, longer) {
			t.Error("passwords differing past byte 72 collide")
		}
	})
}

func TestValidatePasswordPolicy(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  string
	}{
		{"valid", "pitcrew42", ""},
		{"too short", "ab1", "at least 8"},
		{"too long", strings.Repeat("a1", 80), "at most 128"},
		{"all digits", "12345678", "all digits"},
		{"all letters", "abcdefgh", "all letters"},
		{"too few distinct", "a1a1a1a1", "distinct"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePasswordPolicy(tt.password)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error")
			}
			if !apperrors.IsKind(err, apperrors.Validation) {
				t.Errorf("kind = %v, want Validation", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func testUser() *models.User {
	return &models.User{
		ID:       7,
		Username: "driver1",
		IsAdmin:  false,
		Roles:    []string{models.RolePowertrain},
	}
}

func TestJWTRoundTrip(t *testing.T) {
	m, err := NewJWTManager("test-secret-at-least-16-chars", time.Hour)
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}

	token, err := m.GenerateToken(testUser())
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.Username() != "driver1" || claims.UserID != 7 || claims.IsAdmin {
		t.Errorf("claims = %+v", claims)
	}
	if len(claims.Roles) != 1 || claims.Roles[0] != models.RolePowertrain {
		t.Errorf("roles = %v", claims.Roles)
	}
	if claims.SubjectID() != "user:7" {
		t.Errorf("subject id = %q", claims.SubjectID())
	}
}

func TestJWTRejections(t *testing.T) {
	m, _ := NewJWTManager("test-secret-at-least-16-chars", time.Hour)

	t.Run("expired token", func(t *testing.T) {
		expired, _ := NewJWTManager("test-secret-at-least-16-chars", -time.Minute)
		token, _ := expired.GenerateToken(testUser())
		if _, err := m.ValidateToken(token); !apperrors.IsKind(err, apperrors.Unauthorized) {
			t.Errorf("got %v, want Unauthorized", err)
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		other, _ := NewJWTManager("another-secret-16-chars-long", time.Hour)
		token, _ := other.GenerateToken(testUser())
		if _, err := m.ValidateToken(token); err == nil {
			t.Error("token signed with other secret accepted")
		}
	})

	t.Run("garbage token", func(t *testing.T) {
		if _, err := m.ValidateToken("not.a.token"); err == nil {
			t.Error("garbage token accepted")
		}
	})

	t.Run("empty secret refused", func(t *testing.T) {
		if _, err := NewJWTManager("", time.Hour); err == nil {
			t.Error("empty secret accepted")
		}
	})
}

func TestAuthenticateMiddleware(t *testing.T) {
	m, _ := NewJWTManager("test-secret-at-least-16-chars", time.Hour)
	mw := NewMiddleware(m)
	token, _ := m.GenerateToken(testUser())

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			t.Error("claims missing from context")
		} else if claims.Username() != "driver1" {
			t.Errorf("username = %q", claims.Username())
		}
		w.WriteHeader(http.StatusOK)
	})
	handler := mw.Authenticate(next)

	t.Run("bearer header", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		if w.Code != http.StatusOK {
			t.Errorf("status = %d", w.Code)
		}
	})

	t.Run("query parameter", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/ws/telemetry?token="+token, nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		if w.Code != http.StatusOK {
			t.Errorf("status = %d", w.Code)
		}
	})

	t.Run("cookie", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
		r.AddCookie(&http.Cookie{Name: "token", Value: token})
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		if w.Code != http.StatusOK {
			t.Errorf("status = %d", w.Code)
		}
	})

	t.Run("missing token", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", w.Code)
		}
		if !strings.Contains(w.Body.String(), "detail") {
			t.Errorf("body = %s", w.Body.String())
		}
	})

	t.Run("malformed header", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
		r.Header.Set("Authorization", "Token abc")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", w.Code)
		}
	})

	t.Run("invalid token", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
		r.Header.Set("Authorization", "Bearer bogus")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", w.Code)
		}
	})
}

func TestLoginRateLimiter(t *testing.T) {
	rl := NewLoginRateLimiter(3, time.Hour)
	defer rl.Stop()

	for i := 0; i < 3; i++ {
		if !rl.Allow("10.0.0.1") {
			t.Fatalf("attempt %d blocked within burst", i+1)
		}
	}
	if rl.Allow("10.0.0.1") {
		t.Error("attempt beyond burst allowed")
	}
	if !rl.Allow("10.0.0.2") {
		t.Error("unrelated IP blocked")
	}
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/api/login", nil)
	r.RemoteAddr = "192.168.1.5:51234"
	if ip := ClientIP(r); ip != "192.168.1.5" {
		t.Errorf("ip = %q", ip)
	}

	r.Header.Set("X-Forwarded-For", "203.0.113.9, 192.168.1.5")
	if ip := ClientIP(r); ip != "203.0.113.9" {
		t.Errorf("forwarded ip = %q", ip)
	}
}
