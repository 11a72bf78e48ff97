package security

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lifeinventory/inventory-identity/internal/core/domain"
)

func newTokenInfoServer(t *testing.T, status int, info googleTokenInfo) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("id_token") == "" {
			t.Error("tokeninfo call without id_token parameter")
		}
		w.WriteHeader(status)
		if status == http.StatusOK {
			if err := json.NewEncoder(w).Encode(info); err != nil {
				t.Errorf("encode tokeninfo response: %v", err)
			}
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func testGoogleVerifier(server *httptest.Server, clientID string) *GoogleVerifier {
	verifier := NewGoogleVerifier(clientID)
	verifier.endpoint = server.URL
	verifier.client = server.Client()
	return verifier
}

func TestGoogleVerify(t *testing.T) {
	server := newTokenInfoServer(t, http.StatusOK, googleTokenInfo{
		Audience:      "client-123",
		Subject:       "google-sub-1",
		Email:         "ada@example.com",
		EmailVerified: "true",
		GivenName:     "Ada",
		FamilyName:    "Lovelace",
		Picture:       "https://lh3.example.com/a.png",
		Locale:        "en-GB",
	})
	verifier := testGoogleVerifier(server, "client-123")

	identity, err := verifier.Verify(context.Background(), domain.ProviderGoogle, "id-token")
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}

	if identity.Provider != domain.ProviderGoogle {
		t.Errorf("provider = %q", identity.Provider)
	}
	if identity.ExternalID != "google-sub-1" {
		t.Errorf("external id = %q", identity.ExternalID)
	}
	if identity.Email != "ada@example.com" {
		t.Errorf("email = %q", identity.Email)
	}
	if identity.FirstName != "Ada" || identity.LastName != "Lovelace" {
		t.Errorf("name = %q %q", identity.FirstName, identity.LastName)
	}
	if identity.Locale != "en-GB" {
		t.Errorf("locale = %q", identity.Locale)
	}
}

func TestGoogleVerifyRejections(t *testing.T) {
	valid := googleTokenInfo{
		Audience:      "client-123",
		Subject:       "google-sub-1",
		Email:         "ada@example.com",
		EmailVerified: "true",
	}

	t.Run("provider mismatch", func(t *testing.T) {
		server := newTokenInfoServer(t, http.StatusOK, valid)
		verifier := testGoogleVerifier(server, "client-123")
		if _, err := verifier.Verify(context.Background(), domain.ProviderApple, "id-token"); err == nil {
			t.Error("non-google provider must be rejected")
		}
	})

	t.Run("empty credential", func(t *testing.T) {
		server := newTokenInfoServer(t, http.StatusOK, valid)
		verifier := testGoogleVerifier(server, "client-123")
		if _, err := verifier.Verify(context.Background(), domain.ProviderGoogle, ""); !errors.Is(err, ErrExternalTokenRejected) {
			t.Errorf("got %v, want ErrExternalTokenRejected", err)
		}
	})

	t.Run("provider answers 400", func(t *testing.T) {
		server := newTokenInfoServer(t, http.StatusBadRequest, googleTokenInfo{})
		verifier := testGoogleVerifier(server, "client-123")
		if _, err := verifier.Verify(context.Background(), domain.ProviderGoogle, "id-token"); !errors.Is(err, ErrExternalTokenRejected) {
			t.Errorf("got %v, want ErrExternalTokenRejected", err)
		}
	})

	t.Run("audience mismatch", func(t *testing.T) {
		server := newTokenInfoServer(t, http.StatusOK, valid)
		verifier := testGoogleVerifier(server, "some-other-client")
		if _, err := verifier.Verify(context.Background(), domain.ProviderGoogle, "id-token"); !errors.Is(err, ErrExternalTokenRejected) {
			t.Errorf("got %v, want ErrExternalTokenRejected", err)
		}
	})

	t.Run("unverified email", func(t *testing.T) {
		info := valid
		info.EmailVerified = "false"
		server := newTokenInfoServer(t, http.StatusOK, info)
		verifier := testGoogleVerifier(server, "client-123")
		if _, err := verifier.Verify(context.Background(), domain.ProviderGoogle, "id-token"); !errors.Is(err, ErrExternalTokenRejected) {
			t.Errorf("got %v, want ErrExternalTokenRejected", err)
		}
	})

	t.Run("missing subject", func(t *testing.T) {
		info := valid
		info.Subject = ""
		server := newTokenInfoServer(t, http.StatusOK, info)
		verifier := testGoogleVerifier(server, "client-123")
		if _, err := verifier.Verify(context.Background(), domain.ProviderGoogle, "id-token"); !errors.Is(err, ErrExternalTokenRejected) {
			t.Errorf("got %v, want ErrExternalTokenRejected", err)
		}
	})
}
