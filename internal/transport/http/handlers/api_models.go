package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lifeinventory/inventory-identity/internal/core/domain"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context.
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	return ErrorResponse{
		Error:   errorMsg,
		TraceID: traceIDStr,
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// ProfilePayload carries the presentation attributes of an account.
type ProfilePayload struct {
	DisplayName string `json:"display_name,omitempty"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	Locale      string `json:"locale,omitempty"`
	Timezone    string `json:"timezone,omitempty"`
}

// AccountSummary describes the API view of an account. The password hash
// never leaves the service.
type AccountSummary struct {
	ID            string         `json:"id"`
	Email         string         `json:"email"`
	Provider      string         `json:"provider"`
	Profile       ProfilePayload `json:"profile"`
	Roles         []string       `json:"roles"`
	EmailVerified bool           `json:"email_verified"`
	Active        bool           `json:"active"`
	LastLoginAt   *time.Time     `json:"last_login_at,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

func newAccountSummary(account domain.Account) AccountSummary {
	return AccountSummary{
		ID:       account.ID,
		Email:    account.Email,
		Provider: string(account.Provider),
		Profile: ProfilePayload{
			DisplayName: account.Profile.DisplayName,
			FirstName:   account.Profile.FirstName,
			LastName:    account.Profile.LastName,
			AvatarURL:   account.Profile.AvatarURL,
			Locale:      account.Profile.Locale,
			Timezone:    account.Profile.Timezone,
		},
		Roles:         account.RoleNames(),
		EmailVerified: account.EmailVerified,
		Active:        account.Active,
		LastLoginAt:   account.LastLoginAt,
		CreatedAt:     account.CreatedAt,
	}
}

// RegistrationRequest defines the payload for the register endpoint.
type RegistrationRequest struct {
	Email     string `json:"email" binding:"required"`
	Password  string `json:"password" binding:"required"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Locale    string `json:"locale"`
	Timezone  string `json:"timezone"`
}

// RegistrationResponse describes the response for a successful registration.
type RegistrationResponse struct {
	Account              AccountSummary `json:"account"`
	RequiresVerification bool           `json:"requires_verification"`
	Message              string         `json:"message,omitempty"`
}

// LoginRequest defines the payload for the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// ExternalLoginRequest defines the payload for provider-backed login.
type ExternalLoginRequest struct {
	Provider   string `json:"provider" binding:"required"`
	Credential string `json:"credential" binding:"required"`
}

// TokenPairResponse describes the response for login and refresh.
type TokenPairResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	TokenType    string         `json:"token_type"`
	ExpiresIn    int            `json:"expires_in"`
	Account      AccountSummary `json:"account"`
}

func newTokenPairResponse(result domain.AuthenticationResult) TokenPairResponse {
	return TokenPairResponse{
		AccessToken:  result.AccessToken.Value,
		RefreshToken: result.RefreshToken.Value,
		TokenType:    "Bearer",
		ExpiresIn:    int(time.Until(result.AccessToken.ExpiresAt).Seconds()),
		Account:      newAccountSummary(result.Account),
	}
}

// TokenRefreshRequest represents the payload to rotate a refresh token.
type TokenRefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// LogoutRequest represents the payload for the logout endpoint.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
	AllDevices   bool   `json:"all_devices"`
}

// ForgotPasswordRequest carries the email for a reset request.
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required"`
}

// ResetPasswordRequest carries the reset token and replacement password.
type ResetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// ChangePasswordRequest carries the credential rotation payload.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

// VerifyEmailRequest carries the verification token.
type VerifyEmailRequest struct {
	Token string `json:"token" binding:"required"`
}

// UpdateProfileRequest carries a partial profile edit. Absent fields stay
// untouched.
type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name"`
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	AvatarURL   *string `json:"avatar_url"`
	Locale      *string `json:"locale"`
	Timezone    *string `json:"timezone"`
}

// AccountListResponse describes a page of accounts.
type AccountListResponse struct {
	Accounts []AccountSummary `json:"accounts"`
	Page     int              `json:"page"`
	Size     int              `json:"size"`
	Total    int64            `json:"total"`
}
