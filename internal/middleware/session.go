package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/idgate/internal/model"
	"github.com/xxxsen/idgate/internal/pkg/errcode"
	"github.com/xxxsen/idgate/internal/pkg/response"
)

const (
	ContextUserIDKey    = "user_id"
	ContextPrincipalKey = "principal"
)

type SessionValidator interface {
	Validate(ctx context.Context, token string) (*model.SessionPrincipal, error)
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// SessionAuth validates the bearer token against the live account on every
// request.
func SessionAuth(validator SessionValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Abort(c, errcode.ErrUnauthorized, "missing authorization")
			return
		}
		token, ok := bearerToken(header)
		if !ok {
			response.Abort(c, errcode.ErrUnauthorized, "invalid authorization")
			return
		}
		principal, err := validator.Validate(c.Request.Context(), token)
		if err != nil {
			response.Abort(c, errcode.ErrUnauthorized, "invalid session")
			return
		}
		c.Set(ContextUserIDKey, principal.AccountID)
		c.Set(ContextPrincipalKey, principal)
		c.Next()
	}
}

func Principal(c *gin.Context) *model.SessionPrincipal {
	value, _ := c.Get(ContextPrincipalKey)
	principal, _ := value.(*model.SessionPrincipal)
	return principal
}
