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
	"github.com/lifeinventory/inventory-identity/internal/infra/security"
	"github.com/lifeinventory/inventory-identity/internal/repository"
)

const minPasswordLength = 8

var (
	// ErrAlreadyExists indicates the email is already registered.
	ErrAlreadyExists = errors.New("account already exists")
	// ErrAccountNotFound indicates no account matches the identifier.
	ErrAccountNotFound = errors.New("account not found")
	// ErrNotLocalAccount indicates a password operation on an externally
	// authenticated account.
	ErrNotLocalAccount = errors.New("account does not use local authentication")
	// ErrUnauthorized indicates cross-account access without the required permission.
	ErrUnauthorized = errors.New("not authorized")
)

// RegisterInput carries the fields of a registration command. A local
// registration supplies Password; an external one supplies Provider and
// ExternalID.
type RegisterInput struct {
	Email      string
	Password   string
	Provider   domain.AuthProvider
	ExternalID string
	Profile    *domain.Profile
}

// IsLocal reports whether the command registers a password-based account.
func (in RegisterInput) IsLocal() bool {
	return in.Provider == "" || in.Provider == domain.ProviderLocal
}

// UpdateProfileInput carries a partial profile edit. Nil fields are left
// untouched on the stored profile.
type UpdateProfileInput struct {
	AccountID   string
	RequesterID string
	DisplayName *string
	FirstName   *string
	LastName    *string
	AvatarURL   *string
	Locale      *string
	Timezone    *string
}

// UserService orchestrates account creation, profile edits, password
// changes, and email verification.
type UserService struct {
	accounts      port.AccountRepository
	tokens        port.TokenRepository
	hasher        port.PasswordHasher
	issuer        port.TokenIssuer
	events        port.EventPublisher
	policy        *security.PasswordValidator
	revocations   port.RevocationCache
	revocationTTL time.Duration
	logger        *zap.Logger
}

// NewUserService constructs a UserService instance.
func NewUserService(
	accounts port.AccountRepository,
	tokens port.TokenRepository,
	hasher port.PasswordHasher,
	issuer port.TokenIssuer,
	events port.EventPublisher,
	policy *security.PasswordValidator,
) *UserService {
	if policy == nil {
		policy = security.DefaultPasswordValidator()
	}
	return &UserService{
		accounts: accounts,
		tokens:   tokens,
		hasher:   hasher,
		issuer:   issuer,
		events:   events,
		policy:   policy,
		logger:   zap.NewNop(),
	}
}

// WithLogger attaches a structured logger.
func (s *UserService) WithLogger(logger *zap.Logger) *UserService {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithRevocationCache enables access-token cutoff marks on password changes.
func (s *UserService) WithRevocationCache(cache port.RevocationCache, ttl time.Duration) *UserService {
	s.revocations = cache
	s.revocationTTL = ttl
	return s
}

// Register creates a new account. Local registrations additionally receive
// a persisted email-verification token announced through the event sink;
// the opaque token value itself never rides on the event.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (domain.Account, error) {
	var zero domain.Account

	email := domain.NormalizeEmail(in.Email)
	if email == "" {
		return zero, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}

	exists, err := s.accounts.ExistsByEmail(ctx, email)
	if err != nil {
		return zero, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return zero, ErrAlreadyExists
	}

	var account domain.Account
	if in.IsLocal() {
		if err := s.validatePassword(in.Password); err != nil {
			return zero, err
		}
		hash, err := s.hasher.Hash(in.Password)
		if err != nil {
			return zero, fmt.Errorf("hash password: %w", err)
		}
		account, err = domain.NewLocalAccount(email, hash)
		if err != nil {
			return zero, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		if in.Profile != nil {
			account = account.WithProfile(*in.Profile)
		}
	} else {
		profile := domain.EmptyProfile()
		if in.Profile != nil {
			profile = *in.Profile
		}
		account, err = domain.NewExternalAccount(email, in.Provider, in.ExternalID, profile)
		if err != nil {
			return zero, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}

	if err := s.accounts.Save(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return zero, ErrAlreadyExists
		}
		return zero, fmt.Errorf("store account: %w", err)
	}

	s.publish(ctx, domain.NewAccountRegistered(account))

	if in.IsLocal() {
		token, err := s.issuer.IssueEmailVerification(account)
		if err != nil {
			return zero, fmt.Errorf("issue verification token: %w", err)
		}
		if err := s.tokens.Save(ctx, token); err != nil {
			return zero, fmt.Errorf("store verification token: %w", err)
		}
		s.publish(ctx, domain.NewEmailVerificationRequested(account, token))
	}

	return account, nil
}

// UpdateProfile applies a partial edit to the target account's profile.
// Editing another account requires the user:update:any permission.
func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (domain.Account, error) {
	var zero domain.Account

	if in.AccountID == "" || in.RequesterID == "" {
		return zero, fmt.Errorf("%w: account id and requester id are required", ErrInvalidInput)
	}

	account, err := s.accounts.GetByID(ctx, in.AccountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return zero, ErrAccountNotFound
		}
		return zero, fmt.Errorf("lookup account: %w", err)
	}

	if in.RequesterID != in.AccountID {
		requester, err := s.accounts.GetByID(ctx, in.RequesterID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return zero, ErrAccountNotFound
			}
			return zero, fmt.Errorf("lookup requester: %w", err)
		}
		if !requester.HasPermission(domain.PermissionUserUpdateAny) {
			return zero, ErrUnauthorized
		}
	}

	updated := account.WithProfile(mergeProfile(account.Profile, in))
	if err := s.accounts.Save(ctx, updated); err != nil {
		return zero, fmt.Errorf("store account: %w", err)
	}

	s.publish(ctx, domain.NewProfileUpdated(updated))

	return updated, nil
}

// mergeProfile overlays the supplied fields on the stored profile. A change
// to either name part recomputes the display name; an explicit display name
// wins over the recomputed one.
func mergeProfile(current domain.Profile, in UpdateProfileInput) domain.Profile {
	merged := current

	if in.FirstName != nil || in.LastName != nil {
		firstName := merged.FirstName
		lastName := merged.LastName
		if in.FirstName != nil {
			firstName = *in.FirstName
		}
		if in.LastName != nil {
			lastName = *in.LastName
		}
		merged = merged.WithName(firstName, lastName)
	}
	if in.DisplayName != nil {
		merged.DisplayName = *in.DisplayName
	}
	if in.AvatarURL != nil {
		merged.AvatarURL = *in.AvatarURL
	}
	if in.Locale != nil {
		merged.Locale = *in.Locale
	}
	if in.Timezone != nil {
		merged.Timezone = *in.Timezone
	}

	return merged
}

// ChangePassword replaces the credential material after verifying the
// current password, then revokes every outstanding refresh token so other
// sessions must re-authenticate.
func (s *UserService) ChangePassword(ctx context.Context, accountID, currentPassword, newPassword string) (domain.Account, error) {
	var zero domain.Account

	if accountID == "" {
		return zero, fmt.Errorf("%w: account id is required", ErrInvalidInput)
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return zero, ErrAccountNotFound
		}
		return zero, fmt.Errorf("lookup account: %w", err)
	}

	if !account.IsLocal() {
		return zero, ErrNotLocalAccount
	}

	ok, err := s.hasher.Verify(currentPassword, account.PasswordHash)
	if err != nil {
		return zero, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return zero, ErrInvalidCredentials
	}

	if newPassword == currentPassword {
		return zero, fmt.Errorf("%w: new password must differ from the current one", ErrInvalidInput)
	}
	if err := s.validatePassword(newPassword); err != nil {
		return zero, err
	}

	newHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return zero, fmt.Errorf("hash password: %w", err)
	}

	updated, err := account.WithPasswordHash(newHash)
	if err != nil {
		return zero, fmt.Errorf("apply password hash: %w", err)
	}

	if err := s.accounts.Save(ctx, updated); err != nil {
		return zero, fmt.Errorf("store account: %w", err)
	}

	if _, err := s.tokens.RevokeAllForAccountByKind(ctx, updated.ID, domain.TokenKindRefresh); err != nil {
		return zero, fmt.Errorf("revoke refresh tokens: %w", err)
	}
	s.markRevoked(ctx, updated.ID, "password_change")

	s.publish(ctx, domain.NewPasswordChanged(updated))

	return updated, nil
}

// VerifyEmail consumes an email-verification token. Verifying an account
// that is already verified returns it unchanged without emitting a
// duplicate event.
func (s *UserService) VerifyEmail(ctx context.Context, tokenValue string) (domain.Account, error) {
	var zero domain.Account

	tokenValue = strings.TrimSpace(tokenValue)
	if tokenValue == "" {
		return zero, fmt.Errorf("%w: token is required", ErrInvalidInput)
	}

	record, err := s.tokens.GetByValueAndKind(ctx, tokenValue, domain.TokenKindEmailVerification)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return zero, ErrInvalidToken
		}
		return zero, fmt.Errorf("lookup verification token: %w", err)
	}

	if record.Revoked {
		return zero, ErrInvalidToken
	}
	if record.IsExpired() {
		return zero, ErrTokenExpired
	}

	account, err := s.accounts.GetByID(ctx, record.AccountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return zero, ErrInvalidToken
		}
		return zero, fmt.Errorf("lookup account: %w", err)
	}

	if account.EmailVerified {
		return *account, nil
	}

	updated := account.MarkEmailVerified()
	if err := s.accounts.Save(ctx, updated); err != nil {
		return zero, fmt.Errorf("store account: %w", err)
	}

	if err := s.tokens.Save(ctx, record.Revoke()); err != nil {
		return zero, fmt.Errorf("revoke verification token: %w", err)
	}

	s.publish(ctx, domain.NewEmailVerified(updated))

	return updated, nil
}

// GetByID returns the account with the given identifier.
func (s *UserService) GetByID(ctx context.Context, id string) (domain.Account, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Account{}, ErrAccountNotFound
		}
		return domain.Account{}, fmt.Errorf("lookup account: %w", err)
	}
	return *account, nil
}

// GetByEmail returns the account registered under the normalized email.
func (s *UserService) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	account, err := s.accounts.GetByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Account{}, ErrAccountNotFound
		}
		return domain.Account{}, fmt.Errorf("lookup account: %w", err)
	}
	return *account, nil
}

// GetByExternalID returns the account linked to an external provider identity.
func (s *UserService) GetByExternalID(ctx context.Context, provider domain.AuthProvider, externalID string) (domain.Account, error) {
	account, err := s.accounts.GetByProviderExternalID(ctx, provider, externalID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Account{}, ErrAccountNotFound
		}
		return domain.Account{}, fmt.Errorf("lookup account: %w", err)
	}
	return *account, nil
}

// List returns a page of accounts.
func (s *UserService) List(ctx context.Context, page, size int) ([]domain.Account, error) {
	if page < 0 || size <= 0 {
		return nil, fmt.Errorf("%w: page must be non-negative and size positive", ErrInvalidInput)
	}
	accounts, err := s.accounts.List(ctx, page, size)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, nil
}

// Count returns the total number of accounts.
func (s *UserService) Count(ctx context.Context) (int64, error) {
	count, err := s.accounts.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}
	return count, nil
}

func (s *UserService) validatePassword(password string) error {
	if len([]rune(password)) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters long", ErrInvalidInput, minPasswordLength)
	}
	if s.policy != nil {
		if err := s.policy.Validate(password); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}
	return nil
}

func (s *UserService) publish(ctx context.Context, event domain.Event) {
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

func (s *UserService) markRevoked(ctx context.Context, accountID, reason string) {
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

// validateNewPassword applies the baseline length rule shared by the reset
// flow, which has no access to the current password for an equality check.
func validateNewPassword(password string) error {
	if len([]rune(password)) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters long", ErrInvalidInput, minPasswordLength)
	}
	return nil
}
