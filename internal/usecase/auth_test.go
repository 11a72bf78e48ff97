package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lifeinventory/inventory-identity/internal/core/domain"
	"github.com/lifeinventory/inventory-identity/internal/core/port"
)

func newVerifiedLocalAccount(t *testing.T, email, password string) domain.Account {
	t.Helper()
	account, err := domain.NewLocalAccount(email, "hash:"+password)
	if err != nil {
		t.Fatalf("failed to build account: %v", err)
	}
	return account.MarkEmailVerified()
}

func TestLoginIssuesAndPersistsTokenPair(t *testing.T) {
	account := newVerifiedLocalAccount(t, "user@example.com", "Sup3r-Secret")
	accounts := newMemAccountRepo(account)
	tokens := newMemTokenRepo()
	events := &captureEvents{}
	service := NewAuthService(accounts, tokens, stubHasher{}, newStubIssuer(), events)

	result, err := service.Login(context.Background(), "User@Example.com", "Sup3r-Secret")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	if result.Account.ID != account.ID {
		t.Errorf("result account = %q, want %q", result.Account.ID, account.ID)
	}
	if result.AccessToken.Kind != domain.TokenKindAccess {
		t.Errorf("access token kind = %q", result.AccessToken.Kind)
	}
	if result.RefreshToken.Kind != domain.TokenKindRefresh {
		t.Errorf("refresh token kind = %q", result.RefreshToken.Kind)
	}

	if _, err := tokens.GetByValue(context.Background(), result.AccessToken.Value); err != nil {
		t.Errorf("access token not persisted: %v", err)
	}
	if _, err := tokens.GetByValue(context.Background(), result.RefreshToken.Value); err != nil {
		t.Errorf("refresh token not persisted: %v", err)
	}

	stored, ok := accounts.stored(account.ID)
	if !ok {
		t.Fatal("account vanished from repository")
	}
	if stored.LastLoginAt == nil {
		t.Error("login must stamp the last-login timestamp")
	}
	if !events.has("identity.account.authenticated") {
		t.Errorf("expected authenticated event, got %v", events.types())
	}
}

func TestLoginDoesNotRevealWhichCheckFailed(t *testing.T) {
	local := newVerifiedLocalAccount(t, "known@example.com", "Sup3r-Secret")
	external, err := domain.NewExternalAccount("ext@example.com", domain.ProviderGoogle, "sub-1", domain.Profile{})
	if err != nil {
		t.Fatalf("failed to build external account: %v", err)
	}
	accounts := newMemAccountRepo(local, external)
	service := NewAuthService(accounts, newMemTokenRepo(), stubHasher{}, newStubIssuer(), &captureEvents{})

	cases := []struct {
		name     string
		email    string
		password string
	}{
		{"unknown email", "missing@example.com", "Sup3r-Secret"},
		{"wrong password", "known@example.com", "wrong-password"},
		{"external account", "ext@example.com", "Sup3r-Secret"},
	}

	for _, tc := range cases {
		if _, err := service.Login(context.Background(), tc.email, tc.password); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("%s: got %v, want ErrInvalidCredentials", tc.name, err)
		}
	}
}

func TestLoginGates(t *testing.T) {
	unverified, err := domain.NewLocalAccount("fresh@example.com", "hash:Sup3r-Secret")
	if err != nil {
		t.Fatalf("failed to build account: %v", err)
	}
	inactive := newVerifiedLocalAccount(t, "gone@example.com", "Sup3r-Secret").Deactivate()
	accounts := newMemAccountRepo(unverified, inactive)
	service := NewAuthService(accounts, newMemTokenRepo(), stubHasher{}, newStubIssuer(), &captureEvents{})

	if _, err := service.Login(context.Background(), "fresh@example.com", "Sup3r-Secret"); !errors.Is(err, ErrEmailNotVerified) {
		t.Errorf("unverified: got %v, want ErrEmailNotVerified", err)
	}
	if _, err := service.Login(context.Background(), "gone@example.com", "Sup3r-Secret"); !errors.Is(err, ErrAccountNotActive) {
		t.Errorf("inactive: got %v, want ErrAccountNotActive", err)
	}
}

func TestLoginInputValidation(t *testing.T) {
	service := NewAuthService(newMemAccountRepo(), newMemTokenRepo(), stubHasher{}, newStubIssuer(), &captureEvents{})

	if _, err := service.Login(context.Background(), "  ", "password"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("blank email: got %v, want ErrInvalidInput", err)
	}
	if _, err := service.Login(context.Background(), "user@example.com", ""); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("blank password: got %v, want ErrInvalidInput", err)
	}
}

func TestRefreshRotationIsSingleUse(t *testing.T) {
	account := newVerifiedLocalAccount(t, "user@example.com", "Sup3r-Secret")
	accounts := newMemAccountRepo(account)
	tokens := newMemTokenRepo()
	service := NewAuthService(accounts, tokens, stubHasher{}, newStubIssuer(), &captureEvents{})

	first, err := service.Login(context.Background(), "user@example.com", "Sup3r-Secret")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	second, err := service.RefreshTokens(context.Background(), first.RefreshToken.Value)
	if err != nil {
		t.Fatalf("RefreshTokens returned error: %v", err)
	}
	if second.RefreshToken.Value == first.RefreshToken.Value {
		t.Error("rotation must issue a different refresh token")
	}

	rotated, err := tokens.GetByValue(context.Background(), first.RefreshToken.Value)
	if err != nil {
		t.Fatalf("rotated token lookup failed: %v", err)
	}
	if !rotated.Revoked {
		t.Error("presented refresh token must be revoked on rotation")
	}

	if _, err := service.RefreshTokens(context.Background(), first.RefreshToken.Value); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("replayed token: got %v, want ErrInvalidToken", err)
	}
}

func TestRefreshRejectsUnknownAndExpired(t *testing.T) {
	account := newVerifiedLocalAccount(t, "user@example.com", "Sup3r-Secret")
	accounts := newMemAccountRepo(account)
	tokens := newMemTokenRepo()
	service := NewAuthService(accounts, tokens, stubHasher{}, newStubIssuer(), &captureEvents{})

	if _, err := service.RefreshTokens(context.Background(), "never-issued"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("unknown token: got %v, want ErrInvalidToken", err)
	}

	expired, err := domain.NewRefreshToken(account.ID, "stale-refresh", time.Minute)
	if err != nil {
		t.Fatalf("failed to build token: %v", err)
	}
	expired.ExpiresAt = time.Now().UTC().Add(-time.Minute)
	if err := tokens.Save(context.Background(), expired); err != nil {
		t.Fatalf("failed to store token: %v", err)
	}

	if _, err := service.RefreshTokens(context.Background(), "stale-refresh"); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("expired token: got %v, want ErrTokenExpired", err)
	}
}

func TestLogoutSingleSession(t *testing.T) {
	account := newVerifiedLocalAccount(t, "user@example.com", "Sup3r-Secret")
	accounts := newMemAccountRepo(account)
	tokens := newMemTokenRepo()
	events := &captureEvents{}
	service := NewAuthService(accounts, tokens, stubHasher{}, newStubIssuer(), events)

	result, err := service.Login(context.Background(), "user@example.com", "Sup3r-Secret")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	if err := service.Logout(context.Background(), account.ID, result.RefreshToken.Value, false); err != nil {
		t.Fatalf("Logout returned error: %v", err)
	}

	stored, err := tokens.GetByValue(context.Background(), result.RefreshToken.Value)
	if err != nil {
		t.Fatalf("token lookup failed: %v", err)
	}
	if !stored.Revoked {
		t.Error("logout must revoke the presented refresh token")
	}
	if !events.has("identity.account.logged_out") {
		t.Errorf("expected logged_out event, got %v", events.types())
	}

	// A token that was never issued still yields a clean logout, but since
	// nothing was revoked no session-end event goes out.
	published := len(events.types())
	if err := service.Logout(context.Background(), account.ID, "never-issued", false); err != nil {
		t.Errorf("logout with unknown token: %v", err)
	}
	if got := len(events.types()); got != published {
		t.Errorf("logout that revoked nothing emitted an event: %v", events.types())
	}
}

func TestLogoutAllDevices(t *testing.T) {
	account := newVerifiedLocalAccount(t, "user@example.com", "Sup3r-Secret")
	accounts := newMemAccountRepo(account)
	tokens := newMemTokenRepo()
	events := &captureEvents{}
	revocations := newMemRevocationCache()
	service := NewAuthService(accounts, tokens, stubHasher{}, newStubIssuer(), events).
		WithRevocationCache(revocations, time.Hour)

	if _, err := service.Login(context.Background(), "user@example.com", "Sup3r-Secret"); err != nil {
		t.Fatalf("first login returned error: %v", err)
	}
	if _, err := service.Login(context.Background(), "user@example.com", "Sup3r-Secret"); err != nil {
		t.Fatalf("second login returned error: %v", err)
	}

	if err := service.Logout(context.Background(), account.ID, "", true); err != nil {
		t.Fatalf("Logout returned error: %v", err)
	}

	for _, token := range tokens.byKind(account.ID, domain.TokenKindRefresh) {
		if !token.Revoked {
			t.Errorf("refresh token %s survived an all-devices logout", token.ID)
		}
	}

	if _, found, _ := revocations.RevokedSince(context.Background(), account.ID); !found {
		t.Error("all-devices logout must mark a revocation cutoff")
	}
	if got := revocations.reason(account.ID); got != "logout_all_devices" {
		t.Errorf("cutoff reason = %q, want logout_all_devices", got)
	}
	if !events.has("identity.account.logged_out") {
		t.Errorf("expected logged_out event, got %v", events.types())
	}
}

func TestRequestPasswordResetStaysQuietForUnknownEmail(t *testing.T) {
	external, err := domain.NewExternalAccount("ext@example.com", domain.ProviderGoogle, "sub-1", domain.Profile{})
	if err != nil {
		t.Fatalf("failed to build external account: %v", err)
	}
	accounts := newMemAccountRepo(external)
	events := &captureEvents{}
	service := NewAuthService(accounts, newMemTokenRepo(), stubHasher{}, newStubIssuer(), events)

	token, err := service.RequestPasswordReset(context.Background(), "missing@example.com")
	if err != nil {
		t.Fatalf("unknown email: unexpected error: %v", err)
	}
	if token != nil {
		t.Error("unknown email must not yield a token")
	}

	token, err = service.RequestPasswordReset(context.Background(), "ext@example.com")
	if err != nil {
		t.Fatalf("external account: unexpected error: %v", err)
	}
	if token != nil {
		t.Error("external account must not yield a token")
	}

	if len(events.types()) != 0 {
		t.Errorf("no events expected, got %v", events.types())
	}
}

func TestRequestPasswordResetReplacesPreviousToken(t *testing.T) {
	account := newVerifiedLocalAccount(t, "user@example.com", "Sup3r-Secret")
	accounts := newMemAccountRepo(account)
	tokens := newMemTokenRepo()
	events := &captureEvents{}
	service := NewAuthService(accounts, tokens, stubHasher{}, newStubIssuer(), events)

	first, err := service.RequestPasswordReset(context.Background(), "user@example.com")
	if err != nil {
		t.Fatalf("first request returned error: %v", err)
	}
	second, err := service.RequestPasswordReset(context.Background(), "user@example.com")
	if err != nil {
		t.Fatalf("second request returned error: %v", err)
	}

	live := tokens.byKind(account.ID, domain.TokenKindPasswordReset)
	if len(live) != 1 {
		t.Fatalf("expected exactly one stored reset token, got %d", len(live))
	}
	if live[0].Value != second.Value {
		t.Error("the surviving token must be the most recent one")
	}
	if first.Value == second.Value {
		t.Error("a new request must mint a new value")
	}
	if !events.has("identity.password.reset_requested") {
		t.Errorf("expected reset_requested event, got %v", events.types())
	}
}

func TestResetPasswordReplacesCredentialAndKillsSessions(t *testing.T) {
	account := newVerifiedLocalAccount(t, "user@example.com", "Old-Secret-1")
	accounts := newMemAccountRepo(account)
	tokens := newMemTokenRepo()
	events := &captureEvents{}
	revocations := newMemRevocationCache()
	service := NewAuthService(accounts, tokens, stubHasher{}, newStubIssuer(), events).
		WithRevocationCache(revocations, time.Hour)

	session, err := service.Login(context.Background(), "user@example.com", "Old-Secret-1")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	reset, err := service.RequestPasswordReset(context.Background(), "user@example.com")
	if err != nil {
		t.Fatalf("RequestPasswordReset returned error: %v", err)
	}

	updated, err := service.ResetPassword(context.Background(), reset.Value, "New-Secret-2")
	if err != nil {
		t.Fatalf("ResetPassword returned error: %v", err)
	}
	if updated.PasswordHash != "hash:New-Secret-2" {
		t.Errorf("password hash = %q, want the new credential", updated.PasswordHash)
	}

	consumed, err := tokens.GetByValue(context.Background(), reset.Value)
	if err != nil {
		t.Fatalf("reset token lookup failed: %v", err)
	}
	if !consumed.Revoked {
		t.Error("reset token must be consumed")
	}

	refreshed, err := tokens.GetByValue(context.Background(), session.RefreshToken.Value)
	if err != nil {
		t.Fatalf("refresh token lookup failed: %v", err)
	}
	if !refreshed.Revoked {
		t.Error("outstanding refresh tokens must die with the old password")
	}

	if got := revocations.reason(account.ID); got != "password_reset" {
		t.Errorf("cutoff reason = %q, want password_reset", got)
	}
	if !events.has("identity.password.changed") {
		t.Errorf("expected password.changed event, got %v", events.types())
	}

	if _, err := service.Login(context.Background(), "user@example.com", "New-Secret-2"); err != nil {
		t.Errorf("login with the new password failed: %v", err)
	}
}

func TestResetPasswordRejectsExpiredToken(t *testing.T) {
	account := newVerifiedLocalAccount(t, "user@example.com", "Old-Secret-1")
	accounts := newMemAccountRepo(account)
	tokens := newMemTokenRepo()
	service := NewAuthService(accounts, tokens, stubHasher{}, newStubIssuer(), &captureEvents{})

	stale, err := domain.NewPasswordResetToken(account.ID, "stale-reset", time.Minute)
	if err != nil {
		t.Fatalf("failed to build token: %v", err)
	}
	stale.ExpiresAt = time.Now().UTC().Add(-time.Minute)
	if err := tokens.Save(context.Background(), stale); err != nil {
		t.Fatalf("failed to store token: %v", err)
	}

	if _, err := service.ResetPassword(context.Background(), "stale-reset", "New-Secret-2"); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("expired token: got %v, want ErrTokenExpired", err)
	}

	stored, ok := accounts.stored(account.ID)
	if !ok {
		t.Fatal("account vanished from repository")
	}
	if stored.PasswordHash != "hash:Old-Secret-1" {
		t.Error("a failed reset must leave the credential untouched")
	}
}

func TestResetPasswordRejectsShortPassword(t *testing.T) {
	service := NewAuthService(newMemAccountRepo(), newMemTokenRepo(), stubHasher{}, newStubIssuer(), &captureEvents{})

	if _, err := service.ResetPassword(context.Background(), "whatever", "short"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("short password: got %v, want ErrInvalidInput", err)
	}
}

func TestLoginExternalCreatesAccountOnFirstSignIn(t *testing.T) {
	accounts := newMemAccountRepo()
	tokens := newMemTokenRepo()
	events := &captureEvents{}
	verifier := &stubVerifier{identity: &port.ExternalIdentity{
		Provider:   domain.ProviderGoogle,
		ExternalID: "google-sub-1",
		Email:      "ada@example.com",
		FirstName:  "Ada",
		LastName:   "Lovelace",
		Locale:     "en-GB",
	}}
	service := NewAuthService(accounts, tokens, stubHasher{}, newStubIssuer(), events).
		WithExternalVerifier(verifier)

	first, err := service.LoginExternal(context.Background(), domain.ProviderGoogle, "id-token")
	if err != nil {
		t.Fatalf("first external login returned error: %v", err)
	}
	if first.Account.Provider != domain.ProviderGoogle {
		t.Errorf("provider = %q, want google", first.Account.Provider)
	}
	if first.Account.Profile.DisplayName != "Ada Lovelace" {
		t.Errorf("display name = %q", first.Account.Profile.DisplayName)
	}
	if first.Account.Profile.Locale != "en-GB" {
		t.Errorf("locale = %q, want en-GB", first.Account.Profile.Locale)
	}
	if !events.has("identity.account.registered") {
		t.Errorf("expected registered event, got %v", events.types())
	}

	second, err := service.LoginExternal(context.Background(), domain.ProviderGoogle, "id-token")
	if err != nil {
		t.Fatalf("second external login returned error: %v", err)
	}
	if second.Account.ID != first.Account.ID {
		t.Error("a repeat sign-in must reuse the existing account")
	}

	count, err := accounts.Count(context.Background())
	if err != nil {
		t.Fatalf("Count returned error: %v", err)
	}
	if count != 1 {
		t.Errorf("account count = %d, want 1", count)
	}
}

func TestLoginExternalRejectsBadCredential(t *testing.T) {
	verifier := &stubVerifier{err: errors.New("audience mismatch")}
	service := NewAuthService(newMemAccountRepo(), newMemTokenRepo(), stubHasher{}, newStubIssuer(), &captureEvents{}).
		WithExternalVerifier(verifier)

	if _, err := service.LoginExternal(context.Background(), domain.ProviderGoogle, "bad-token"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("rejected credential: got %v, want ErrInvalidCredentials", err)
	}
}

func TestLoginSurvivesEventSinkFailure(t *testing.T) {
	account := newVerifiedLocalAccount(t, "user@example.com", "Sup3r-Secret")
	events := &captureEvents{publishErr: errors.New("broker unavailable")}
	service := NewAuthService(newMemAccountRepo(account), newMemTokenRepo(), stubHasher{}, newStubIssuer(), events)

	if _, err := service.Login(context.Background(), "user@example.com", "Sup3r-Secret"); err != nil {
		t.Fatalf("a failing event sink must not fail the login: %v", err)
	}
}

func TestLoginExternalRequiresConfiguredVerifier(t *testing.T) {
	service := NewAuthService(newMemAccountRepo(), newMemTokenRepo(), stubHasher{}, newStubIssuer(), &captureEvents{})

	if _, err := service.LoginExternal(context.Background(), domain.ProviderGoogle, "id-token"); err == nil {
		t.Error("expected an error without a configured verifier")
	}
}
