package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSessions_Lifecycle(t *testing.T) {
	s := NewSessions(time.Hour)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	token := s.Create()
	if !s.Valid(token) {
		t.Fatal("fresh token should be valid")
	}
	if s.Valid("") || s.Valid("forged") {
		t.Error("unknown tokens must be rejected")
	}

	now = now.Add(2 * time.Hour)
	if s.Valid(token) {
		t.Error("expired token should be rejected")
	}

	now = now.Add(-2 * time.Hour)
	other := s.Create()
	s.Revoke(other)
	if s.Valid(other) {
		t.Error("revoked token should be rejected")
	}
}

func TestAuthMiddleware(t *testing.T) {
	sessions := NewSessions(time.Hour)
	token := sessions.Create()

	handler := AuthMiddleware(sessions)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name     string
		path     string
		cookie   string
		expected int
	}{
		{"login page is public", "/login", "", http.StatusOK},
		{"login endpoint is public", "/auth/login", "", http.StatusOK},
		{"api without session", "/api/status", "", http.StatusUnauthorized},
		{"page without session", "/", "", http.StatusSeeOther},
		{"forged session", "/api/status", "not-a-token", http.StatusUnauthorized},
		{"valid session", "/api/status", token, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: SessionCookie, Value: tt.cookie})
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.expected {
				t.Errorf("status %d, expected %d", rec.Code, tt.expected)
			}
		})
	}
}
