package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lifeinventory/inventory-identity/internal/core/port"
	"github.com/lifeinventory/inventory-identity/internal/infra/security"
)

const (
	claimsKey = "claims"
	rolesKey  = "roles"
)

// ErrorResponse matches the handlers.ErrorResponse structure.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

func newErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:   errorMsg,
		TraceID: GetTraceID(c),
	}
}

// RequireAuth validates the Authorization header, verifies the access token
// signature, and rejects tokens issued before the account's revocation
// cutoff. A revocation-cache failure degrades to signature-only validation.
func RequireAuth(issuer *security.JWTIssuer, revocations port.RevocationCache, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "missing authorization header"))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "invalid authorization format: expected 'Bearer <token>'"))
			return
		}

		token := strings.TrimSpace(parts[1])
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "missing access token"))
			return
		}

		claims, err := issuer.ParseAccess(token)
		if err != nil {
			switch {
			case errors.Is(err, security.ErrTokenExpired):
				c.AbortWithStatusJSON(http.StatusUnauthorized,
					newErrorResponse(c, "access token expired"))
			default:
				c.AbortWithStatusJSON(http.StatusUnauthorized,
					newErrorResponse(c, "invalid access token"))
			}
			return
		}

		if revocations != nil && claims.IssuedAt != nil {
			cutoff, found, err := revocations.RevokedSince(c.Request.Context(), claims.Subject)
			if err != nil {
				log.Warn("revocation check failed",
					zap.String("account_id", claims.Subject),
					zap.Error(err),
				)
			} else if found && !claims.IssuedAt.Time.After(cutoff) {
				c.AbortWithStatusJSON(http.StatusUnauthorized,
					newErrorResponse(c, "access token revoked"))
				return
			}
		}

		c.Set(AccountIDKey, claims.Subject)
		c.Set(claimsKey, claims)
		c.Set(rolesKey, claims.Roles)

		if reqCtx := GetRequestContext(c); reqCtx != nil {
			reqCtx.AccountID = claims.Subject
		}

		c.Next()
	}
}

// RequireRole checks that the authenticated account holds any of the roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		rolesVal, exists := c.Get(rolesKey)
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "authentication required"))
			return
		}

		accountRoles, ok := rolesVal.([]string)
		if !ok || !hasAnyRole(accountRoles, roles) {
			c.AbortWithStatusJSON(http.StatusForbidden,
				newErrorResponse(c, "insufficient permissions"))
			return
		}

		c.Next()
	}
}

// RequirePermission checks that the authenticated account's token carries
// every listed permission.
func RequirePermission(permissions ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claimsVal, exists := c.Get(claimsKey)
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "authentication required"))
			return
		}

		claims, ok := claimsVal.(*security.AccessClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "authentication required"))
			return
		}

		held := make(map[string]bool, len(claims.Permissions))
		for _, permission := range claims.Permissions {
			held[permission] = true
		}
		for _, required := range permissions {
			if !held[required] {
				c.AbortWithStatusJSON(http.StatusForbidden,
					newErrorResponse(c, "insufficient permissions"))
				return
			}
		}

		c.Next()
	}
}

func hasAnyRole(accountRoles []string, requiredRoles []string) bool {
	roleMap := make(map[string]bool, len(accountRoles))
	for _, role := range accountRoles {
		roleMap[role] = true
	}

	for _, required := range requiredRoles {
		if roleMap[required] {
			return true
		}
	}
	return false
}
