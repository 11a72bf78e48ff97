package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lifeinventory/inventory-identity/internal/core/domain"
	"github.com/lifeinventory/inventory-identity/internal/transport/http/middleware"
	"github.com/lifeinventory/inventory-identity/internal/usecase"
)

// LoginRecorder counts login attempts by provider and outcome.
type LoginRecorder interface {
	CountLogin(provider, outcome string)
}

// AuthHandler exposes authentication endpoints.
type AuthHandler struct {
	auth    *usecase.AuthService
	users   *usecase.UserService
	metrics LoginRecorder
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(auth *usecase.AuthService, users *usecase.UserService, metrics LoginRecorder) *AuthHandler {
	return &AuthHandler{auth: auth, users: users, metrics: metrics}
}

func (h *AuthHandler) countLogin(provider string, err error) {
	if h.metrics == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	h.metrics.CountLogin(provider, outcome)
}

// RegisterRoutes binds authentication routes. The authMiddleware guards the
// logout endpoint.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup, authMiddleware gin.HandlerFunc) {
	r.POST("/register", h.register)
	r.POST("/login", h.login)
	r.POST("/login/external", h.loginExternal)
	r.POST("/refresh", h.refresh)
	r.POST("/logout", authMiddleware, h.logout)
	r.POST("/email/verify", h.verifyEmail)
}

func (h *AuthHandler) register(c *gin.Context) {
	var req RegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid registration payload"))
		return
	}

	input := usecase.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
	}
	if req.FirstName != "" || req.LastName != "" || req.Locale != "" || req.Timezone != "" {
		profile := domain.EmptyProfile().WithName(req.FirstName, req.LastName)
		if req.Locale != "" {
			profile.Locale = req.Locale
		}
		if req.Timezone != "" {
			profile.Timezone = req.Timezone
		}
		input.Profile = &profile
	}

	account, err := h.users.Register(c.Request.Context(), input)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrAlreadyExists, Status: http.StatusConflict, Message: "email already registered"},
			{Err: usecase.ErrInvalidInput, Status: http.StatusUnprocessableEntity, Message: strings.TrimSpace(err.Error())},
		}, http.StatusInternalServerError, "failed to register account")
		return
	}

	c.JSON(http.StatusCreated, RegistrationResponse{
		Account:              newAccountSummary(account),
		RequiresVerification: !account.EmailVerified,
		Message:              "verification required",
	})
}

func (h *AuthHandler) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid login payload"))
		return
	}

	result, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	h.countLogin(string(domain.ProviderLocal), err)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "invalid credentials"},
			{Err: usecase.ErrEmailNotVerified, Status: http.StatusForbidden, Message: "email not verified"},
			{Err: usecase.ErrAccountNotActive, Status: http.StatusLocked, Message: "account deactivated"},
		}, http.StatusInternalServerError, "login failed")
		return
	}

	c.JSON(http.StatusOK, newTokenPairResponse(result))
}

func (h *AuthHandler) loginExternal(c *gin.Context) {
	var req ExternalLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid login payload"))
		return
	}

	result, err := h.auth.LoginExternal(c.Request.Context(), domain.AuthProvider(req.Provider), req.Credential)
	h.countLogin(req.Provider, err)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "invalid credentials"},
			{Err: usecase.ErrAccountNotActive, Status: http.StatusLocked, Message: "account deactivated"},
		}, http.StatusInternalServerError, "login failed")
		return
	}

	c.JSON(http.StatusOK, newTokenPairResponse(result))
}

func (h *AuthHandler) refresh(c *gin.Context) {
	var req TokenRefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid refresh payload"))
		return
	}

	result, err := h.auth.RefreshTokens(c.Request.Context(), req.RefreshToken)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrTokenExpired, Status: http.StatusUnauthorized, Message: "refresh token expired"},
			{Err: usecase.ErrInvalidToken, Status: http.StatusUnauthorized, Message: "invalid refresh token"},
			{Err: usecase.ErrAccountNotActive, Status: http.StatusLocked, Message: "account deactivated"},
			{Err: usecase.ErrEmailNotVerified, Status: http.StatusForbidden, Message: "email not verified"},
		}, http.StatusInternalServerError, "token refresh failed")
		return
	}

	c.JSON(http.StatusOK, newTokenPairResponse(result))
}

func (h *AuthHandler) logout(c *gin.Context) {
	accountID := middleware.GetAccountID(c)
	if accountID == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req LogoutRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid logout payload"))
			return
		}
	}

	if err := h.auth.Logout(c.Request.Context(), accountID, req.RefreshToken, req.AllDevices); err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "logout failed"))
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *AuthHandler) verifyEmail(c *gin.Context) {
	var req VerifyEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid verification payload"))
		return
	}

	account, err := h.users.VerifyEmail(c.Request.Context(), req.Token)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrTokenExpired, Status: http.StatusGone, Message: "verification token expired"},
			{Err: usecase.ErrInvalidToken, Status: http.StatusUnauthorized, Message: "invalid verification token"},
		}, http.StatusInternalServerError, "email verification failed")
		return
	}

	c.JSON(http.StatusOK, newAccountSummary(account))
}
