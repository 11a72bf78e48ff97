package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lifeinventory/inventory-identity/internal/core/domain"
	"github.com/lifeinventory/inventory-identity/internal/repository"
)

const uniqueViolationCode = "23505"

var accountColumns = []string{
	"id",
	"email",
	"password_hash",
	"provider",
	"external_id",
	"display_name",
	"first_name",
	"last_name",
	"avatar_url",
	"locale",
	"timezone",
	"roles",
	"permissions",
	"email_verified",
	"active",
	"last_login_at",
	"created_at",
	"updated_at",
}

// AccountRepository implements port.AccountRepository using PostgreSQL.
type AccountRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewAccountRepository wires an account repository over any executor that
// satisfies pgExecutor.
func NewAccountRepository(exec pgExecutor) *AccountRepository {
	repo := &AccountRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *AccountRepository) WithTx(tx pgx.Tx) *AccountRepository {
	if tx == nil {
		return r
	}
	return &AccountRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Save upserts the account row keyed on the aggregate ID. Unique violations
// on the email or provider identity surface as repository.ErrDuplicate.
func (r *AccountRepository) Save(ctx context.Context, account domain.Account) error {
	var externalID any
	if account.ExternalID != "" {
		externalID = account.ExternalID
	}

	permissions := make([]string, 0, len(account.Permissions))
	for permission := range account.Permissions {
		permissions = append(permissions, string(permission))
	}

	stmt, args, err := r.builder.Insert("identity.accounts").
		Columns(accountColumns...).
		Values(
			account.ID,
			account.Email,
			account.PasswordHash,
			string(account.Provider),
			externalID,
			account.Profile.DisplayName,
			account.Profile.FirstName,
			account.Profile.LastName,
			account.Profile.AvatarURL,
			account.Profile.Locale,
			account.Profile.Timezone,
			account.RoleNames(),
			permissions,
			account.EmailVerified,
			account.Active,
			account.LastLoginAt,
			account.CreatedAt,
			account.UpdatedAt,
		).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			password_hash = EXCLUDED.password_hash,
			display_name = EXCLUDED.display_name,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			avatar_url = EXCLUDED.avatar_url,
			locale = EXCLUDED.locale,
			timezone = EXCLUDED.timezone,
			roles = EXCLUDED.roles,
			permissions = EXCLUDED.permissions,
			email_verified = EXCLUDED.email_verified,
			active = EXCLUDED.active,
			last_login_at = EXCLUDED.last_login_at,
			updated_at = EXCLUDED.updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert account sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("upsert account: %w", err)
	}

	return nil
}

// GetByID retrieves an account by identifier.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	return r.getBy(ctx, squirrel.Eq{"id": id})
}

// GetByEmail retrieves an account by its normalized email.
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.getBy(ctx, squirrel.Eq{"email": email})
}

// GetByProviderExternalID retrieves an account by its external identity.
func (r *AccountRepository) GetByProviderExternalID(ctx context.Context, provider domain.AuthProvider, externalID string) (*domain.Account, error) {
	return r.getBy(ctx, squirrel.Eq{
		"provider":    string(provider),
		"external_id": externalID,
	})
}

func (r *AccountRepository) getBy(ctx context.Context, where squirrel.Eq) (*domain.Account, error) {
	stmt, args, err := r.builder.
		Select(accountColumns...).
		From("identity.accounts").
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select account sql: %w", err)
	}

	account, err := scanAccount(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}

	return account, nil
}

// ExistsByEmail reports whether an account is registered under the email.
func (r *AccountRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	stmt, args, err := r.builder.
		Select("1").
		From("identity.accounts").
		Where(squirrel.Eq{"email": email}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build exists account sql: %w", err)
	}

	var one int
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check account existence: %w", err)
	}

	return true, nil
}

// List returns a page of accounts ordered by creation time.
func (r *AccountRepository) List(ctx context.Context, page, size int) ([]domain.Account, error) {
	stmt, args, err := r.builder.
		Select(accountColumns...).
		From("identity.accounts").
		OrderBy("created_at ASC").
		Limit(uint64(size)).
		Offset(uint64(page * size)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list accounts sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, *account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}

	return accounts, nil
}

// Count returns the total number of accounts.
func (r *AccountRepository) Count(ctx context.Context) (int64, error) {
	stmt, args, err := r.builder.
		Select("COUNT(*)").
		From("identity.accounts").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count accounts sql: %w", err)
	}

	var count int64
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}

	return count, nil
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		account     domain.Account
		externalID  sql.NullString
		roles       []string
		permissions []string
		lastLogin   *time.Time
	)

	if err := row.Scan(
		&account.ID,
		&account.Email,
		&account.PasswordHash,
		&account.Provider,
		&externalID,
		&account.Profile.DisplayName,
		&account.Profile.FirstName,
		&account.Profile.LastName,
		&account.Profile.AvatarURL,
		&account.Profile.Locale,
		&account.Profile.Timezone,
		&roles,
		&permissions,
		&account.EmailVerified,
		&account.Active,
		&lastLogin,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if externalID.Valid {
		account.ExternalID = externalID.String
	}
	account.LastLoginAt = lastLogin

	account.Roles = make(map[domain.Role]struct{}, len(roles))
	for _, role := range roles {
		account.Roles[domain.Role(role)] = struct{}{}
	}
	account.Permissions = make(map[domain.Permission]struct{}, len(permissions))
	for _, permission := range permissions {
		account.Permissions[domain.Permission(permission)] = struct{}{}
	}

	return &account, nil
}
