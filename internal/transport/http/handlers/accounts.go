package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/lifeinventory/inventory-identity/internal/core/domain"
	"github.com/lifeinventory/inventory-identity/internal/transport/http/middleware"
	"github.com/lifeinventory/inventory-identity/internal/usecase"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// AccountHandler exposes account and profile endpoints.
type AccountHandler struct {
	users *usecase.UserService
}

// NewAccountHandler constructs AccountHandler.
func NewAccountHandler(users *usecase.UserService) *AccountHandler {
	return &AccountHandler{users: users}
}

// RegisterRoutes binds account routes. Every route requires authentication;
// the listing additionally requires the admin role.
func (h *AccountHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/me", h.me)
	r.PATCH("/me", h.updateOwnProfile)
	r.GET("", middleware.RequireRole(string(domain.RoleAdmin), string(domain.RoleSystem)), h.list)
	r.GET("/:id", middleware.RequirePermission(string(domain.PermissionUserReadAny)), h.getByID)
	r.PATCH("/:id", h.updateProfile)
}

func (h *AccountHandler) me(c *gin.Context) {
	accountID := middleware.GetAccountID(c)
	if accountID == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	account, err := h.users.GetByID(c.Request.Context(), accountID)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "account not found"},
		}, http.StatusInternalServerError, "failed to load account")
		return
	}

	c.JSON(http.StatusOK, newAccountSummary(account))
}

func (h *AccountHandler) updateOwnProfile(c *gin.Context) {
	h.applyProfileUpdate(c, middleware.GetAccountID(c))
}

func (h *AccountHandler) updateProfile(c *gin.Context) {
	h.applyProfileUpdate(c, c.Param("id"))
}

func (h *AccountHandler) applyProfileUpdate(c *gin.Context, targetID string) {
	requesterID := middleware.GetAccountID(c)
	if requesterID == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid profile payload"))
		return
	}

	account, err := h.users.UpdateProfile(c.Request.Context(), usecase.UpdateProfileInput{
		AccountID:   targetID,
		RequesterID: requesterID,
		DisplayName: req.DisplayName,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		AvatarURL:   req.AvatarURL,
		Locale:      req.Locale,
		Timezone:    req.Timezone,
	})
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "account not found"},
			{Err: usecase.ErrUnauthorized, Status: http.StatusForbidden, Message: "insufficient permissions"},
			{Err: usecase.ErrInvalidInput, Status: http.StatusUnprocessableEntity, Message: "invalid profile payload"},
		}, http.StatusInternalServerError, "failed to update profile")
		return
	}

	c.JSON(http.StatusOK, newAccountSummary(account))
}

func (h *AccountHandler) getByID(c *gin.Context) {
	account, err := h.users.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "account not found"},
		}, http.StatusInternalServerError, "failed to load account")
		return
	}

	c.JSON(http.StatusOK, newAccountSummary(account))
}

func (h *AccountHandler) list(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "0"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", strconv.Itoa(defaultPageSize)))
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	if page < 0 {
		page = 0
	}

	accounts, err := h.users.List(c.Request.Context(), page, size)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to list accounts"))
		return
	}

	total, err := h.users.Count(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to count accounts"))
		return
	}

	summaries := make([]AccountSummary, 0, len(accounts))
	for _, account := range accounts {
		summaries = append(summaries, newAccountSummary(account))
	}

	c.JSON(http.StatusOK, AccountListResponse{
		Accounts: summaries,
		Page:     page,
		Size:     size,
		Total:    total,
	})
}
