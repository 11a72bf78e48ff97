package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lifeinventory/inventory-identity/internal/core/domain"
)

const opaqueTokenBytes = 32

var (
	// ErrTokenMalformed indicates the access token could not be parsed or its
	// signature did not verify.
	ErrTokenMalformed = errors.New("jwt: malformed token")
	// ErrTokenExpired indicates the access token is past its exp claim.
	ErrTokenExpired = errors.New("jwt: token expired")
)

// AccessClaims is the claim set carried by access tokens. Roles and
// permissions are embedded so resource servers can authorize without a
// directory round trip.
type AccessClaims struct {
	Email       string   `json:"email,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	jwt.RegisteredClaims
}

// JWTConfig holds signing material and per-kind validity windows.
type JWTConfig struct {
	Secret          string
	Issuer          string
	AccessTTL       time.Duration
	RefreshTTL      time.Duration
	ResetTTL        time.Duration
	VerificationTTL time.Duration
}

// JWTIssuer mints access tokens as HS256-signed JWTs and the remaining
// kinds as opaque random values. It satisfies port.TokenIssuer.
type JWTIssuer struct {
	cfg    JWTConfig
	secret []byte
	now    func() time.Time
}

// NewJWTIssuer constructs an issuer from the supplied configuration.
func NewJWTIssuer(cfg JWTConfig) (*JWTIssuer, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt: signing secret is required")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 || cfg.ResetTTL <= 0 || cfg.VerificationTTL <= 0 {
		return nil, errors.New("jwt: all token lifetimes must be positive")
	}
	return &JWTIssuer{
		cfg:    cfg,
		secret: []byte(cfg.Secret),
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// IssueAccess mints a signed access token carrying the account's roles and
// derived permissions. The jti claim matches the stored token record ID.
func (i *JWTIssuer) IssueAccess(account domain.Account) (domain.Token, error) {
	token, err := domain.NewAccessToken(account.ID, "pending", i.cfg.AccessTTL)
	if err != nil {
		return domain.Token{}, err
	}

	roles := account.RoleNames()
	permissions := make([]string, 0, len(account.Permissions))
	for permission := range account.Permissions {
		permissions = append(permissions, string(permission))
	}

	claims := AccessClaims{
		Email:       account.Email,
		Roles:       roles,
		Permissions: permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        token.ID,
			Subject:   account.ID,
			Issuer:    i.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(token.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(token.ExpiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return domain.Token{}, fmt.Errorf("jwt: sign access token: %w", err)
	}

	token.Value = signed
	return token, nil
}

// IssueRefresh mints an opaque single-use refresh token.
func (i *JWTIssuer) IssueRefresh(account domain.Account) (domain.Token, error) {
	value, err := GenerateSecureToken(opaqueTokenBytes)
	if err != nil {
		return domain.Token{}, err
	}
	return domain.NewRefreshToken(account.ID, value, i.cfg.RefreshTTL)
}

// IssuePasswordReset mints an opaque password-reset token.
func (i *JWTIssuer) IssuePasswordReset(account domain.Account) (domain.Token, error) {
	value, err := GenerateSecureToken(opaqueTokenBytes)
	if err != nil {
		return domain.Token{}, err
	}
	return domain.NewPasswordResetToken(account.ID, value, i.cfg.ResetTTL)
}

// IssueEmailVerification mints an opaque email-verification token.
func (i *JWTIssuer) IssueEmailVerification(account domain.Account) (domain.Token, error) {
	value, err := GenerateSecureToken(opaqueTokenBytes)
	if err != nil {
		return domain.Token{}, err
	}
	return domain.NewEmailVerificationToken(account.ID, value, i.cfg.VerificationTTL)
}

// ParseAccess validates the signature and standard claims of an access token
// and returns its claim set.
func (i *JWTIssuer) ParseAccess(tokenValue string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	parsed, err := jwt.ParseWithClaims(tokenValue, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now), jwt.WithIssuer(i.cfg.Issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
	if !parsed.Valid {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}
