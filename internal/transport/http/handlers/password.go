package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lifeinventory/inventory-identity/internal/transport/http/middleware"
	"github.com/lifeinventory/inventory-identity/internal/usecase"
)

// PasswordHandler exposes password lifecycle endpoints.
type PasswordHandler struct {
	auth  *usecase.AuthService
	users *usecase.UserService
}

// NewPasswordHandler constructs PasswordHandler.
func NewPasswordHandler(auth *usecase.AuthService, users *usecase.UserService) *PasswordHandler {
	return &PasswordHandler{auth: auth, users: users}
}

// RegisterRoutes binds password routes. Change requires authentication;
// forgot and reset are anonymous by design.
func (h *PasswordHandler) RegisterRoutes(r *gin.RouterGroup, authMiddleware gin.HandlerFunc) {
	r.POST("/forgot", h.forgot)
	r.POST("/reset", h.reset)
	r.POST("/change", authMiddleware, h.change)
}

// forgot always answers 202 so the endpoint cannot be used to probe which
// emails are registered.
func (h *PasswordHandler) forgot(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return
	}

	if _, err := h.auth.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to process reset request"))
		return
	}

	c.JSON(http.StatusAccepted, MessageResponse{
		Message: "if the email is registered, a reset link has been sent",
	})
}

func (h *PasswordHandler) reset(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return
	}

	if _, err := h.auth.ResetPassword(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrTokenExpired, Status: http.StatusGone, Message: "reset token expired"},
			{Err: usecase.ErrInvalidToken, Status: http.StatusUnauthorized, Message: "invalid reset token"},
			{Err: usecase.ErrNotLocalAccount, Status: http.StatusConflict, Message: "account does not use a password"},
			{Err: usecase.ErrInvalidInput, Status: http.StatusUnprocessableEntity, Message: "password does not meet requirements"},
		}, http.StatusInternalServerError, "failed to reset password")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "password has been reset"})
}

func (h *PasswordHandler) change(c *gin.Context) {
	accountID := middleware.GetAccountID(c)
	if accountID == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return
	}

	if _, err := h.users.ChangePassword(c.Request.Context(), accountID, req.CurrentPassword, req.NewPassword); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "current password is incorrect"},
			{Err: usecase.ErrNotLocalAccount, Status: http.StatusConflict, Message: "account does not use a password"},
			{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "account not found"},
			{Err: usecase.ErrInvalidInput, Status: http.StatusUnprocessableEntity, Message: "password does not meet requirements"},
		}, http.StatusInternalServerError, "failed to change password")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "password has been changed"})
}
