package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lifeinventory/inventory-identity/internal/core/domain"
	"github.com/lifeinventory/inventory-identity/internal/infra/security"
	"github.com/lifeinventory/inventory-identity/internal/repository"
)

var tokenColumns = []string{
	"id",
	"account_id",
	"kind",
	"token_hash",
	"created_at",
	"expires_at",
	"revoked",
}

// TokenRepository implements port.TokenRepository using PostgreSQL. Opaque
// token values are indexed by their SHA-256 digest; the clear value never
// reaches the table.
type TokenRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewTokenRepository constructs a token repository over any executor that
// satisfies pgExecutor.
func NewTokenRepository(exec pgExecutor) *TokenRepository {
	repo := &TokenRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// WithTx returns a repository instance executing within the provided transaction.
func (r *TokenRepository) WithTx(tx pgx.Tx) *TokenRepository {
	if tx == nil {
		return r
	}
	return &TokenRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Save upserts the token row keyed on the token ID. On conflict only the
// mutable fields change; the stored digest stays intact, so re-saving a
// record loaded without its clear value is safe.
func (r *TokenRepository) Save(ctx context.Context, token domain.Token) error {
	stmt, args, err := r.builder.Insert("identity.tokens").
		Columns(tokenColumns...).
		Values(
			token.ID,
			token.AccountID,
			string(token.Kind),
			security.HashToken(token.Value),
			token.CreatedAt,
			token.ExpiresAt,
			token.Revoked,
		).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			expires_at = EXCLUDED.expires_at,
			revoked = EXCLUDED.revoked`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert token sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("upsert token: %w", err)
	}

	return nil
}

// GetByID retrieves a token by identifier. The returned record carries an
// empty Value because only the digest is stored.
func (r *TokenRepository) GetByID(ctx context.Context, id string) (*domain.Token, error) {
	return r.getBy(ctx, squirrel.Eq{"id": id}, "")
}

// GetByValue retrieves a token by its opaque value.
func (r *TokenRepository) GetByValue(ctx context.Context, value string) (*domain.Token, error) {
	return r.getBy(ctx, squirrel.Eq{"token_hash": security.HashToken(value)}, value)
}

// GetByValueAndKind retrieves a token by value, constrained to a kind.
func (r *TokenRepository) GetByValueAndKind(ctx context.Context, value string, kind domain.TokenKind) (*domain.Token, error) {
	return r.getBy(ctx, squirrel.Eq{
		"token_hash": security.HashToken(value),
		"kind":       string(kind),
	}, value)
}

func (r *TokenRepository) getBy(ctx context.Context, where squirrel.Eq, clearValue string) (*domain.Token, error) {
	stmt, args, err := r.builder.
		Select(tokenColumns...).
		From("identity.tokens").
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select token sql: %w", err)
	}

	token, err := scanToken(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan token: %w", err)
	}

	token.Value = clearValue
	return token, nil
}

// ListByAccount returns every stored token of the account.
func (r *TokenRepository) ListByAccount(ctx context.Context, accountID string) ([]domain.Token, error) {
	return r.listBy(ctx, squirrel.Eq{"account_id": accountID})
}

// ListByAccountAndKind returns the account's tokens of one kind.
func (r *TokenRepository) ListByAccountAndKind(ctx context.Context, accountID string, kind domain.TokenKind) ([]domain.Token, error) {
	return r.listBy(ctx, squirrel.Eq{
		"account_id": accountID,
		"kind":       string(kind),
	})
}

func (r *TokenRepository) listBy(ctx context.Context, where squirrel.Eq) ([]domain.Token, error) {
	stmt, args, err := r.builder.
		Select(tokenColumns...).
		From("identity.tokens").
		Where(where).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list tokens sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	defer rows.Close()

	var tokens []domain.Token
	for rows.Next() {
		token, err := scanToken(rows)
		if err != nil {
			return nil, fmt.Errorf("scan token: %w", err)
		}
		tokens = append(tokens, *token)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tokens: %w", err)
	}

	return tokens, nil
}

// DeleteByValue removes the token matching the opaque value. Deleting an
// absent token is not an error.
func (r *TokenRepository) DeleteByValue(ctx context.Context, value string) error {
	stmt, args, err := r.builder.
		Delete("identity.tokens").
		Where(squirrel.Eq{"token_hash": security.HashToken(value)}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete token sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}

	return nil
}

// DeleteAllForAccount removes every token of the account.
func (r *TokenRepository) DeleteAllForAccount(ctx context.Context, accountID string) error {
	stmt, args, err := r.builder.
		Delete("identity.tokens").
		Where(squirrel.Eq{"account_id": accountID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete account tokens sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("delete account tokens: %w", err)
	}

	return nil
}

// DeleteAllForAccountByKind removes the account's tokens of one kind.
func (r *TokenRepository) DeleteAllForAccountByKind(ctx context.Context, accountID string, kind domain.TokenKind) error {
	stmt, args, err := r.builder.
		Delete("identity.tokens").
		Where(squirrel.Eq{
			"account_id": accountID,
			"kind":       string(kind),
		}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete account tokens sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("delete account tokens: %w", err)
	}

	return nil
}

// DeleteAllExpired removes every token past its expiry and reports how many
// rows went away.
func (r *TokenRepository) DeleteAllExpired(ctx context.Context) (int64, error) {
	stmt, args, err := r.builder.
		Delete("identity.tokens").
		Where(squirrel.Lt{"expires_at": time.Now().UTC()}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete expired tokens sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}

	return tag.RowsAffected(), nil
}

// RevokeAllForAccount marks every live token of the account revoked.
func (r *TokenRepository) RevokeAllForAccount(ctx context.Context, accountID string) (int64, error) {
	return r.revokeWhere(ctx, squirrel.Eq{"account_id": accountID})
}

// RevokeAllForAccountByKind marks the account's live tokens of one kind revoked.
func (r *TokenRepository) RevokeAllForAccountByKind(ctx context.Context, accountID string, kind domain.TokenKind) (int64, error) {
	return r.revokeWhere(ctx, squirrel.Eq{
		"account_id": accountID,
		"kind":       string(kind),
	})
}

func (r *TokenRepository) revokeWhere(ctx context.Context, where squirrel.Eq) (int64, error) {
	stmt, args, err := r.builder.
		Update("identity.tokens").
		Set("revoked", true).
		Where(where).
		Where(squirrel.Eq{"revoked": false}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build revoke tokens sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("revoke tokens: %w", err)
	}

	return tag.RowsAffected(), nil
}

func scanToken(row pgx.Row) (*domain.Token, error) {
	var (
		token domain.Token
		hash  string
	)

	if err := row.Scan(
		&token.ID,
		&token.AccountID,
		&token.Kind,
		&hash,
		&token.CreatedAt,
		&token.ExpiresAt,
		&token.Revoked,
	); err != nil {
		return nil, err
	}

	return &token, nil
}
