package ebay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/riguy5000/bravo-ebay-hunter-sub000/internal/model"
)

func TestTokenCacheRefresh(t *testing.T) {
	var issued atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		issued.Add(1)
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok",
			"expires_in":   7200,
		})
	}))
	defer srv.Close()

	tc := NewTokenCache(srv.Client(), srv.URL)
	now := time.Now()
	tc.now = func() time.Time { return now }
	credA := model.Credential{AppID: "A", CertID: "c", Status: model.CredentialOK}

	for i := 0; i < 3; i++ {
		if _, err := tc.Token(context.Background(), credA); err != nil {
			t.Fatal(err)
		}
	}
	if issued.Load() != 1 {
		t.Fatalf("issued %d tokens, want 1 (cached)", issued.Load())
	}

	// Within the refresh margin of expiry a new token is fetched.
	now = now.Add(7200*time.Second - 30*time.Second)
	if _, err := tc.Token(context.Background(), credA); err != nil {
		t.Fatal(err)
	}
	if issued.Load() != 2 {
		t.Fatalf("issued %d tokens, want 2 after refresh", issued.Load())
	}
}

func TestTokenCacheAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	tc := NewTokenCache(srv.Client(), srv.URL)
	_, err := tc.Token(context.Background(), model.Credential{AppID: "A", CertID: "c"})
	authErr, ok := err.(*AuthError)
	if !ok || authErr.AppID != "A" {
		t.Fatalf("err = %v, want AuthError for A", err)
	}
}

func TestTokenCacheEvict(t *testing.T) {
	var issued atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		issued.Add(1)
		json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "expires_in": 7200})
	}))
	defer srv.Close()

	tc := NewTokenCache(srv.Client(), srv.URL)
	cred := model.Credential{AppID: "A", CertID: "c"}
	if _, err := tc.Token(context.Background(), cred); err != nil {
		t.Fatal(err)
	}
	tc.Evict("A")
	if _, err := tc.Token(context.Background(), cred); err != nil {
		t.Fatal(err)
	}
	if issued.Load() != 2 {
		t.Fatalf("issued %d tokens, want 2 after evict", issued.Load())
	}
}
