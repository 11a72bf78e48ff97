package security

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/lifeinventory/inventory-identity/internal/core/domain"
	"github.com/lifeinventory/inventory-identity/internal/core/port"
)

const googleTokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"

// ErrExternalTokenRejected indicates the provider did not accept the
// supplied credential.
var ErrExternalTokenRejected = errors.New("external token rejected")

// GoogleVerifier validates Google ID tokens against the tokeninfo endpoint
// and maps the payload onto an external identity. It satisfies
// port.ExternalIdentityVerifier for the google provider.
type GoogleVerifier struct {
	clientID string
	endpoint string
	client   *http.Client
}

// NewGoogleVerifier constructs a verifier bound to the given OAuth client ID.
func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{
		clientID: clientID,
		endpoint: googleTokenInfoURL,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type googleTokenInfo struct {
	Audience      string `json:"aud"`
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified string `json:"email_verified"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
	Locale        string `json:"locale"`
}

// Verify checks the ID token with Google and returns the asserted identity.
// Tokens minted for a different OAuth client or with an unverified email are
// rejected.
func (v *GoogleVerifier) Verify(ctx context.Context, provider domain.AuthProvider, credential string) (*port.ExternalIdentity, error) {
	if provider != domain.ProviderGoogle {
		return nil, fmt.Errorf("google verifier: unsupported provider %q", provider)
	}
	if credential == "" {
		return nil, ErrExternalTokenRejected
	}

	endpoint := v.endpoint + "?id_token=" + url.QueryEscape(credential)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("google verifier: build request: %w", err)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("google verifier: call tokeninfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, ErrExternalTokenRejected
	}

	var info googleTokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("google verifier: decode tokeninfo: %w", err)
	}

	if v.clientID != "" && info.Audience != v.clientID {
		return nil, ErrExternalTokenRejected
	}
	if info.Subject == "" || info.Email == "" || info.EmailVerified != "true" {
		return nil, ErrExternalTokenRejected
	}

	return &port.ExternalIdentity{
		Provider:   domain.ProviderGoogle,
		ExternalID: info.Subject,
		Email:      info.Email,
		FirstName:  info.GivenName,
		LastName:   info.FamilyName,
		AvatarURL:  info.Picture,
		Locale:     info.Locale,
	}, nil
}
