package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lifeinventory/inventory-identity/internal/core/domain"
	"github.com/lifeinventory/inventory-identity/internal/core/port"
	"github.com/lifeinventory/inventory-identity/internal/repository"
)

var (
	// ErrInvalidCredentials indicates the identifier or password is incorrect.
	// Deliberately undifferentiated: an absent account, a non-local account,
	// and a failed hash check all collapse to this error so responses do not
	// reveal which emails are registered.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrAccountNotActive indicates the account is deactivated.
	ErrAccountNotActive = errors.New("account is not active")
	// ErrEmailNotVerified indicates a local account has not confirmed its email.
	ErrEmailNotVerified = errors.New("email is not verified")
	// ErrInvalidToken indicates the presented token is absent, revoked, or of the wrong kind.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired indicates the presented token exists but has elapsed.
	// Distinguished from ErrInvalidToken so callers can offer a resend.
	ErrTokenExpired = errors.New("token expired")
	// ErrInvalidInput indicates a blank or malformed command field.
	ErrInvalidInput = errors.New("invalid input")
)

// AuthService coordinates login, token rotation, logout, and the password
// reset flow. It is request-scoped and stateless between calls; durable
// state lives behind the repository ports.
type AuthService struct {
	accounts      port.AccountRepository
	tokens        port.TokenRepository
	hasher        port.PasswordHasher
	issuer        port.TokenIssuer
	events        port.EventPublisher
	verifier      port.ExternalIdentityVerifier
	revocations   port.RevocationCache
	revocationTTL time.Duration
	logger        *zap.Logger
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(
	accounts port.AccountRepository,
	tokens port.TokenRepository,
	hasher port.PasswordHasher,
	issuer port.TokenIssuer,
	events port.EventPublisher,
) *AuthService {
	return &AuthService{
		accounts: accounts,
		tokens:   tokens,
		hasher:   hasher,
		issuer:   issuer,
		events:   events,
		logger:   zap.NewNop(),
	}
}

// WithLogger attaches a structured logger.
func (s *AuthService) WithLogger(logger *zap.Logger) *AuthService {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithExternalVerifier enables external provider sign-in.
func (s *AuthService) WithExternalVerifier(verifier port.ExternalIdentityVerifier) *AuthService {
	s.verifier = verifier
	return s
}

// WithRevocationCache enables access-token cutoff marks on session
// invalidation cascades.
func (s *AuthService) WithRevocationCache(cache port.RevocationCache, ttl time.Duration) *AuthService {
	s.revocations = cache
	s.revocationTTL = ttl
	return s
}

// Login authenticates a local account and issues a fresh token pair. Both
// tokens are persisted before the result is returned.
func (s *AuthService) Login(ctx context.Context, email, password string) (domain.AuthenticationResult, error) {
	var zero domain.AuthenticationResult

	email = domain.NormalizeEmail(email)
	if email == "" {
		return zero, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	if password == "" {
		return zero, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return zero, ErrInvalidCredentials
		}
		return zero, fmt.Errorf("lookup account: %w", err)
	}

	if !account.IsLocal() {
		return zero, ErrInvalidCredentials
	}

	ok, err := s.hasher.Verify(password, account.PasswordHash)
	if err != nil {
		return zero, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return zero, ErrInvalidCredentials
	}

	return s.establishSession(ctx, *account)
}

// LoginExternal verifies a provider credential and signs the asserted
// identity in, creating the account on first sign-in.
func (s *AuthService) LoginExternal(ctx context.Context, provider domain.AuthProvider, credential string) (domain.AuthenticationResult, error) {
	var zero domain.AuthenticationResult

	if s.verifier == nil {
		return zero, fmt.Errorf("external identity verifier not configured")
	}
	if strings.TrimSpace(credential) == "" {
		return zero, fmt.Errorf("%w: credential is required", ErrInvalidInput)
	}

	identity, err := s.verifier.Verify(ctx, provider, credential)
	if err != nil {
		return zero, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}

	account, err := s.accounts.GetByProviderExternalID(ctx, identity.Provider, identity.ExternalID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return zero, fmt.Errorf("lookup account: %w", err)
		}
		created, err := s.registerExternal(ctx, identity)
		if err != nil {
			return zero, err
		}
		account = &created
	}

	return s.establishSession(ctx, *account)
}

func (s *AuthService) registerExternal(ctx context.Context, identity *port.ExternalIdentity) (domain.Account, error) {
	profile := domain.EmptyProfile().WithName(identity.FirstName, identity.LastName)
	profile.AvatarURL = identity.AvatarURL
	if identity.Locale != "" {
		profile.Locale = identity.Locale
	}

	account, err := domain.NewExternalAccount(identity.Email, identity.Provider, identity.ExternalID, profile)
	if err != nil {
		return domain.Account{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	if err := s.accounts.Save(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return domain.Account{}, ErrAlreadyExists
		}
		return domain.Account{}, fmt.Errorf("store account: %w", err)
	}

	s.publish(ctx, domain.NewAccountRegistered(account))

	return account, nil
}

// establishSession gates the account, issues and persists a token pair, and
// records the login. Tokens are written before the result is assembled so a
// returned pair is always durably valid.
func (s *AuthService) establishSession(ctx context.Context, account domain.Account) (domain.AuthenticationResult, error) {
	var zero domain.AuthenticationResult

	if !account.CanLogin() {
		if !account.Active {
			return zero, ErrAccountNotActive
		}
		return zero, ErrEmailNotVerified
	}

	accessToken, err := s.issuer.IssueAccess(account)
	if err != nil {
		return zero, fmt.Errorf("issue access token: %w", err)
	}
	refreshToken, err := s.issuer.IssueRefresh(account)
	if err != nil {
		return zero, fmt.Errorf("issue refresh token: %w", err)
	}

	if err := s.tokens.Save(ctx, accessToken); err != nil {
		return zero, fmt.Errorf("store access token: %w", err)
	}
	if err := s.tokens.Save(ctx, refreshToken); err != nil {
		return zero, fmt.Errorf("store refresh token: %w", err)
	}

	updated := account.RecordLogin()
	if err := s.accounts.Save(ctx, updated); err != nil {
		return zero, fmt.Errorf("record login: %w", err)
	}

	s.publish(ctx, domain.NewAccountAuthenticated(updated))

	result, err := domain.NewAuthenticationResult(updated, accessToken, refreshToken)
	if err != nil {
		return zero, fmt.Errorf("assemble authentication result: %w", err)
	}

	return result, nil
}

// RefreshTokens rotates a refresh token: the presented token is revoked and
// a fresh pair is issued, limiting replay of a stolen value to a single use.
func (s *AuthService) RefreshTokens(ctx context.Context, refreshValue string) (domain.AuthenticationResult, error) {
	var zero domain.AuthenticationResult

	refreshValue = strings.TrimSpace(refreshValue)
	if refreshValue == "" {
		return zero, fmt.Errorf("%w: refresh token is required", ErrInvalidInput)
	}

	record, err := s.tokens.GetByValueAndKind(ctx, refreshValue, domain.TokenKindRefresh)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return zero, ErrInvalidToken
		}
		return zero, fmt.Errorf("lookup refresh token: %w", err)
	}

	if record.IsExpired() {
		return zero, ErrTokenExpired
	}
	if record.Revoked {
		return zero, ErrInvalidToken
	}

	account, err := s.accounts.GetByID(ctx, record.AccountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return zero, ErrInvalidToken
		}
		return zero, fmt.Errorf("lookup account: %w", err)
	}

	if !account.CanLogin() {
		return zero, ErrAccountNotActive
	}

	if err := s.tokens.Save(ctx, record.Revoke()); err != nil {
		return zero, fmt.Errorf("revoke refresh token: %w", err)
	}

	accessToken, err := s.issuer.IssueAccess(*account)
	if err != nil {
		return zero, fmt.Errorf("issue access token: %w", err)
	}
	refreshToken, err := s.issuer.IssueRefresh(*account)
	if err != nil {
		return zero, fmt.Errorf("issue refresh token: %w", err)
	}

	if err := s.tokens.Save(ctx, accessToken); err != nil {
		return zero, fmt.Errorf("store access token: %w", err)
	}
	if err := s.tokens.Save(ctx, refreshToken); err != nil {
		return zero, fmt.Errorf("store refresh token: %w", err)
	}

	s.publish(ctx, domain.NewTokensRefreshed(*account))

	result, err := domain.NewAuthenticationResult(*account, accessToken, refreshToken)
	if err != nil {
		return zero, fmt.Errorf("assemble authentication result: %w", err)
	}

	return result, nil
}

// Logout ends one session or all of them. With allDevices set every token
// owned by the account is revoked; otherwise only the supplied refresh token
// is. When neither applies the call is a no-op and emits nothing.
func (s *AuthService) Logout(ctx context.Context, accountID, refreshValue string, allDevices bool) error {
	if accountID == "" {
		return fmt.Errorf("%w: account id is required", ErrInvalidInput)
	}

	switch {
	case allDevices:
		if _, err := s.tokens.RevokeAllForAccount(ctx, accountID); err != nil {
			return fmt.Errorf("revoke tokens: %w", err)
		}
		s.markRevoked(ctx, accountID, "logout_all_devices")
		s.publish(ctx, domain.NewAccountLoggedOutEverywhere(accountID))
	case strings.TrimSpace(refreshValue) != "":
		record, err := s.tokens.GetByValueAndKind(ctx, strings.TrimSpace(refreshValue), domain.TokenKindRefresh)
		if err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("lookup refresh token: %w", err)
			}
			// Nothing was revoked, so no session ended.
			return nil
		}
		if err := s.tokens.Save(ctx, record.Revoke()); err != nil {
			return fmt.Errorf("revoke refresh token: %w", err)
		}
		s.publish(ctx, domain.NewAccountLoggedOut(accountID))
	}

	return nil
}

// RequestPasswordReset issues a new reset token for a local account. For an
// unknown email or an external account it returns (nil, nil): the caller
// must answer with the same accepted response either way so the endpoint
// cannot be used to enumerate registered emails.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (*domain.Token, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	if !account.IsLocal() {
		return nil, nil
	}

	// At most one live reset token per account.
	if err := s.tokens.DeleteAllForAccountByKind(ctx, account.ID, domain.TokenKindPasswordReset); err != nil {
		return nil, fmt.Errorf("delete previous reset tokens: %w", err)
	}

	token, err := s.issuer.IssuePasswordReset(*account)
	if err != nil {
		return nil, fmt.Errorf("issue reset token: %w", err)
	}

	if err := s.tokens.Save(ctx, token); err != nil {
		return nil, fmt.Errorf("store reset token: %w", err)
	}

	s.publish(ctx, domain.NewPasswordResetRequested(*account, token))

	return &token, nil
}

// ResetPassword consumes a reset token and replaces the account's
// credential material, invalidating every outstanding refresh token.
func (s *AuthService) ResetPassword(ctx context.Context, tokenValue, newPassword string) (domain.Account, error) {
	var zero domain.Account

	tokenValue = strings.TrimSpace(tokenValue)
	if tokenValue == "" {
		return zero, fmt.Errorf("%w: token is required", ErrInvalidInput)
	}
	if err := validateNewPassword(newPassword); err != nil {
		return zero, err
	}

	record, err := s.tokens.GetByValueAndKind(ctx, tokenValue, domain.TokenKindPasswordReset)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return zero, ErrInvalidToken
		}
		return zero, fmt.Errorf("lookup reset token: %w", err)
	}

	if record.IsExpired() {
		return zero, ErrTokenExpired
	}
	if record.Revoked {
		return zero, ErrInvalidToken
	}

	account, err := s.accounts.GetByID(ctx, record.AccountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return zero, ErrInvalidToken
		}
		return zero, fmt.Errorf("lookup account: %w", err)
	}

	newHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return zero, fmt.Errorf("hash password: %w", err)
	}

	updated, err := account.WithPasswordHash(newHash)
	if err != nil {
		if errors.Is(err, domain.ErrNotLocalProvider) {
			return zero, ErrNotLocalAccount
		}
		return zero, fmt.Errorf("apply password hash: %w", err)
	}

	if err := s.accounts.Save(ctx, updated); err != nil {
		return zero, fmt.Errorf("store account: %w", err)
	}

	if err := s.tokens.Save(ctx, record.Revoke()); err != nil {
		return zero, fmt.Errorf("revoke reset token: %w", err)
	}

	// Global session invalidation: every outstanding refresh token dies with
	// the old password.
	if _, err := s.tokens.RevokeAllForAccountByKind(ctx, updated.ID, domain.TokenKindRefresh); err != nil {
		return zero, fmt.Errorf("revoke refresh tokens: %w", err)
	}
	s.markRevoked(ctx, updated.ID, "password_reset")

	s.publish(ctx, domain.NewPasswordChanged(updated))

	return updated, nil
}

// publish delivers an event without letting a sink failure surface to the
// caller. At most one delivery attempt is made here; redelivery is the
// transport's concern.
func (s *AuthService) publish(ctx context.Context, event domain.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("event publish failed",
			zap.String("event_type", event.EventType()),
			zap.String("account_id", event.AccountID()),
			zap.Error(err),
		)
	}
}

func (s *AuthService) markRevoked(ctx context.Context, accountID, reason string) {
	if s.revocations == nil {
		return
	}
	ttl := s.revocationTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if err := s.revocations.MarkAccountRevoked(ctx, accountID, reason, ttl); err != nil {
		s.logger.Warn("revocation mark failed",
			zap.String("account_id", accountID),
			zap.String("reason", reason),
			zap.Error(err),
		)
	}
}
