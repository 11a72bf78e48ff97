package domain

import "errors"

// ErrTokenOwnerMismatch indicates a token pair issued for a different
// account reached result assembly. This is a programming error, not a
// user-facing failure.
var ErrTokenOwnerMismatch = errors.New("token owner does not match account")

// AuthenticationResult bundles a successfully authenticated account with its
// freshly issued token pair.
type AuthenticationResult struct {
	Account      Account
	AccessToken  Token
	RefreshToken Token
}

// NewAuthenticationResult validates token ownership before assembly.
func NewAuthenticationResult(account Account, accessToken, refreshToken Token) (AuthenticationResult, error) {
	if accessToken.AccountID != account.ID || refreshToken.AccountID != account.ID {
		return AuthenticationResult{}, ErrTokenOwnerMismatch
	}
	return AuthenticationResult{
		Account:      account,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}
