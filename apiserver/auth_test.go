package apiserver

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestIssueAndVerifyToken(t *testing.T) {
	a := NewAuthenticator("test-secret")
	token, err := a.IssueToken("calibration-worker", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	claims, err := a.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Subject != "calibration-worker" {
		t.Errorf("Subject = %q, want %q", claims.Subject, "calibration-worker")
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	a := NewAuthenticator("secret-a")
	token, err := a.IssueToken("x", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if _, err := NewAuthenticator("secret-b").Verify(token); err == nil {
		t.Error("Verify with wrong secret should have failed")
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	a := NewAuthenticator("test-secret")
	token, err := a.IssueToken("x", -time.Minute)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if _, err := a.Verify(token); err == nil {
		t.Error("Verify should reject an expired token")
	}
}

func TestRequireAuthRejectsMissingHeader(t *testing.T) {
	a := NewAuthenticator("test-secret")
	handler := a.requireAuth(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/runs", nil)
	rr := httptest.NewRecorder()
	handler(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("Code = %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestRequireAuthAcceptsValidToken(t *testing.T) {
	a := NewAuthenticator("test-secret")
	token, err := a.IssueToken("x", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	handler := a.requireAuth(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/runs", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("Code = %d, want %d", rr.Code, http.StatusOK)
	}
}
