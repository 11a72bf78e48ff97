package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lifeinventory/inventory-identity/internal/core/domain"
	"github.com/lifeinventory/inventory-identity/internal/core/port"
	"github.com/lifeinventory/inventory-identity/internal/repository"
)

// memAccountRepo is an in-memory AccountRepository keyed by account id.
type memAccountRepo struct {
	mu       sync.Mutex
	accounts map[string]domain.Account
	saveErr  error
}

func newMemAccountRepo(accounts ...domain.Account) *memAccountRepo {
	repo := &memAccountRepo{accounts: make(map[string]domain.Account)}
	for _, account := range accounts {
		repo.accounts[account.ID] = account
	}
	return repo
}

func (r *memAccountRepo) Save(_ context.Context, account domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.saveErr != nil {
		return r.saveErr
	}
	for id, existing := range r.accounts {
		if id != account.ID && existing.Email == account.Email {
			return repository.ErrDuplicate
		}
	}
	r.accounts[account.ID] = account
	return nil
}

func (r *memAccountRepo) GetByID(_ context.Context, id string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if account, ok := r.accounts[id]; ok {
		copied := account
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (r *memAccountRepo) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, account := range r.accounts {
		if account.Email == email {
			copied := account
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memAccountRepo) GetByProviderExternalID(_ context.Context, provider domain.AuthProvider, externalID string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, account := range r.accounts {
		if account.Provider == provider && account.ExternalID == externalID {
			copied := account
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memAccountRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, account := range r.accounts {
		if account.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *memAccountRepo) List(_ context.Context, page, size int) ([]domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := make([]domain.Account, 0, len(r.accounts))
	for _, account := range r.accounts {
		all = append(all, account)
	}
	start := page * size
	if start >= len(all) {
		return nil, nil
	}
	end := start + size
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], nil
}

func (r *memAccountRepo) Count(context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.accounts)), nil
}

func (r *memAccountRepo) stored(id string) (domain.Account, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[id]
	return account, ok
}

// memTokenRepo is an in-memory TokenRepository matching on the clear value.
type memTokenRepo struct {
	mu     sync.Mutex
	tokens map[string]domain.Token
}

func newMemTokenRepo() *memTokenRepo {
	return &memTokenRepo{tokens: make(map[string]domain.Token)}
}

func (r *memTokenRepo) Save(_ context.Context, token domain.Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[token.ID] = token
	return nil
}

func (r *memTokenRepo) GetByID(_ context.Context, id string) (*domain.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if token, ok := r.tokens[id]; ok {
		copied := token
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (r *memTokenRepo) GetByValue(_ context.Context, value string) (*domain.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, token := range r.tokens {
		if token.Value == value {
			copied := token
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memTokenRepo) GetByValueAndKind(_ context.Context, value string, kind domain.TokenKind) (*domain.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, token := range r.tokens {
		if token.Value == value && token.Kind == kind {
			copied := token
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memTokenRepo) ListByAccount(_ context.Context, accountID string) ([]domain.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []domain.Token
	for _, token := range r.tokens {
		if token.AccountID == accountID {
			matched = append(matched, token)
		}
	}
	return matched, nil
}

func (r *memTokenRepo) ListByAccountAndKind(_ context.Context, accountID string, kind domain.TokenKind) ([]domain.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []domain.Token
	for _, token := range r.tokens {
		if token.AccountID == accountID && token.Kind == kind {
			matched = append(matched, token)
		}
	}
	return matched, nil
}

func (r *memTokenRepo) DeleteByValue(_ context.Context, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, token := range r.tokens {
		if token.Value == value {
			delete(r.tokens, id)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *memTokenRepo) DeleteAllForAccount(_ context.Context, accountID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, token := range r.tokens {
		if token.AccountID == accountID {
			delete(r.tokens, id)
		}
	}
	return nil
}

func (r *memTokenRepo) DeleteAllForAccountByKind(_ context.Context, accountID string, kind domain.TokenKind) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, token := range r.tokens {
		if token.AccountID == accountID && token.Kind == kind {
			delete(r.tokens, id)
		}
	}
	return nil
}

func (r *memTokenRepo) DeleteAllExpired(context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed int64
	for id, token := range r.tokens {
		if token.IsExpired() {
			delete(r.tokens, id)
			removed++
		}
	}
	return removed, nil
}

func (r *memTokenRepo) RevokeAllForAccount(_ context.Context, accountID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var revoked int64
	for id, token := range r.tokens {
		if token.AccountID == accountID && !token.Revoked {
			r.tokens[id] = token.Revoke()
			revoked++
		}
	}
	return revoked, nil
}

func (r *memTokenRepo) RevokeAllForAccountByKind(_ context.Context, accountID string, kind domain.TokenKind) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var revoked int64
	for id, token := range r.tokens {
		if token.AccountID == accountID && token.Kind == kind && !token.Revoked {
			r.tokens[id] = token.Revoke()
			revoked++
		}
	}
	return revoked, nil
}

func (r *memTokenRepo) byKind(accountID string, kind domain.TokenKind) []domain.Token {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []domain.Token
	for _, token := range r.tokens {
		if token.AccountID == accountID && token.Kind == kind {
			matched = append(matched, token)
		}
	}
	return matched
}

// stubHasher encodes passwords with a recognisable prefix instead of a real KDF.
type stubHasher struct{}

func (stubHasher) Hash(password string) (string, error) {
	return "hash:" + password, nil
}

func (stubHasher) Verify(password, encoded string) (bool, error) {
	return encoded == "hash:"+password, nil
}

// stubIssuer mints tokens with deterministic incrementing values.
type stubIssuer struct {
	counter         int
	accessTTL       time.Duration
	refreshTTL      time.Duration
	resetTTL        time.Duration
	verificationTTL time.Duration
}

func newStubIssuer() *stubIssuer {
	return &stubIssuer{
		accessTTL:       15 * time.Minute,
		refreshTTL:      7 * 24 * time.Hour,
		resetTTL:        30 * time.Minute,
		verificationTTL: 24 * time.Hour,
	}
}

func (i *stubIssuer) next(prefix string) string {
	i.counter++
	return fmt.Sprintf("%s-%d", prefix, i.counter)
}

func (i *stubIssuer) IssueAccess(account domain.Account) (domain.Token, error) {
	return domain.NewAccessToken(account.ID, i.next("access"), i.accessTTL)
}

func (i *stubIssuer) IssueRefresh(account domain.Account) (domain.Token, error) {
	return domain.NewRefreshToken(account.ID, i.next("refresh"), i.refreshTTL)
}

func (i *stubIssuer) IssuePasswordReset(account domain.Account) (domain.Token, error) {
	return domain.NewPasswordResetToken(account.ID, i.next("reset"), i.resetTTL)
}

func (i *stubIssuer) IssueEmailVerification(account domain.Account) (domain.Token, error) {
	return domain.NewEmailVerificationToken(account.ID, i.next("verify"), i.verificationTTL)
}

// captureEvents records published events for assertions.
type captureEvents struct {
	mu         sync.Mutex
	events     []domain.Event
	publishErr error
}

func (c *captureEvents) Publish(_ context.Context, event domain.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.publishErr != nil {
		return c.publishErr
	}
	c.events = append(c.events, event)
	return nil
}

func (c *captureEvents) PublishAll(ctx context.Context, events []domain.Event) error {
	for _, event := range events {
		if err := c.Publish(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

func (c *captureEvents) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	types := make([]string, 0, len(c.events))
	for _, event := range c.events {
		types = append(types, event.EventType())
	}
	return types
}

func (c *captureEvents) has(eventType string) bool {
	for _, got := range c.types() {
		if got == eventType {
			return true
		}
	}
	return false
}

// memRevocationCache records cutoff marks per account.
type memRevocationCache struct {
	mu      sync.Mutex
	marks   map[string]time.Time
	reasons map[string]string
}

func newMemRevocationCache() *memRevocationCache {
	return &memRevocationCache{
		marks:   make(map[string]time.Time),
		reasons: make(map[string]string),
	}
}

func (c *memRevocationCache) MarkAccountRevoked(_ context.Context, accountID, reason string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.marks[accountID] = time.Now().UTC()
	c.reasons[accountID] = reason
	return nil
}

func (c *memRevocationCache) RevokedSince(_ context.Context, accountID string) (time.Time, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cutoff, ok := c.marks[accountID]
	return cutoff, ok, nil
}

func (c *memRevocationCache) ClearAccountRevocation(_ context.Context, accountID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.marks, accountID)
	delete(c.reasons, accountID)
	return nil
}

func (c *memRevocationCache) reason(accountID string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reasons[accountID]
}

// stubVerifier returns a fixed identity or an error.
type stubVerifier struct {
	identity *port.ExternalIdentity
	err      error
}

func (v *stubVerifier) Verify(context.Context, domain.AuthProvider, string) (*port.ExternalIdentity, error) {
	if v.err != nil {
		return nil, v.err
	}
	return v.identity, nil
}

var (
	_ port.AccountRepository        = (*memAccountRepo)(nil)
	_ port.TokenRepository          = (*memTokenRepo)(nil)
	_ port.PasswordHasher           = stubHasher{}
	_ port.TokenIssuer              = (*stubIssuer)(nil)
	_ port.EventPublisher           = (*captureEvents)(nil)
	_ port.RevocationCache          = (*memRevocationCache)(nil)
	_ port.ExternalIdentityVerifier = (*stubVerifier)(nil)
)
