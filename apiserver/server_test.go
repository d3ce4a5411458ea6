package apiserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pmonasse/disparity-with-graph-cuts/jobstore"
)

func testDeps(t *testing.T) *Dependencies {
	t.Helper()
	store, err := jobstore.Open(":memory:")
	if err != nil {
		t.Fatalf("jobstore.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return &Dependencies{
		Store:  store,
		Auth:   NewAuthenticator("test-secret"),
		OutDir: t.TempDir(),
	}
}

func TestHealthNeedsNoAuth(t *testing.T) {
	mux := NewMux(testDeps(t))
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("Code = %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestRunsRequireAuth(t *testing.T) {
	mux := NewMux(testDeps(t))
	req := httptest.NewRequest(http.MethodGet, "/runs", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("Code = %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestCreateRunRejectsMissingPaths(t *testing.T) {
	deps := testDeps(t)
	token, err := deps.Auth.IssueToken("tester", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	mux := NewMux(deps)
	req := httptest.NewRequest(http.MethodPost, "/runs", strings.NewReader(`{}`))
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("Code = %d, want %d, body=%s", rr.Code, http.StatusBadRequest, rr.Body.String())
	}
}

func TestGetRunNotFound(t *testing.T) {
	deps := testDeps(t)
	token, err := deps.Auth.IssueToken("tester", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	mux := NewMux(deps)
	req := httptest.NewRequest(http.MethodGet, "/runs/does-not-exist", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("Code = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestListRunsEmpty(t *testing.T) {
	deps := testDeps(t)
	token, err := deps.Auth.IssueToken("tester", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	mux := NewMux(deps)
	req := httptest.NewRequest(http.MethodGet, "/runs", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("Code = %d, want %d", rr.Code, http.StatusOK)
	}
	var runs []*jobstore.Run
	if err := json.Unmarshal(rr.Body.Bytes(), &runs); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("len(runs) = %d, want 0", len(runs))
	}
}

func TestParseFraction(t *testing.T) {
	cases := []struct {
		in      string
		wantAuto bool
		num, den int
	}{
		{"", true, 0, 0},
		{"AUTO", true, 0, 0},
		{"3/7", false, 3, 7},
		{"garbage", true, 0, 0},
	}
	for _, c := range cases {
		got := parseFraction(c.in)
		if c.wantAuto {
			if got.Num != -1 {
				t.Errorf("parseFraction(%q) = %+v, want AUTO", c.in, got)
			}
			continue
		}
		if got.Num != c.num || got.Den != c.den {
			t.Errorf("parseFraction(%q) = %+v, want {%d %d}", c.in, got, c.num, c.den)
		}
	}
}
