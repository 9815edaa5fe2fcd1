package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/idgate/internal/middleware"
	"github.com/xxxsen/idgate/internal/pkg/errcode"
	appErr "github.com/xxxsen/idgate/internal/pkg/errors"
	"github.com/xxxsen/idgate/internal/pkg/response"
)

func getUserID(c *gin.Context) string {
	return c.GetString(middleware.ContextUserIDKey)
}

type errMapping struct {
	err  error
	code int
}

// Order matters: wrapped store errors also match their cause.
var errMappings = []errMapping{
	{appErr.ErrPersistenceUnavailable, errcode.ErrPersistenceUnavailable},
	{appErr.ErrDomainNotAllowed, errcode.ErrDomainNotAllowed},
	{appErr.ErrAccountAlreadyVerified, errcode.ErrAccountAlreadyVerified},
	{appErr.ErrAccountNotFound, errcode.ErrAccountNotFound},
	{appErr.ErrInvalidOrExpiredCode, errcode.ErrInvalidOrExpiredCode},
	{appErr.ErrInvalidCredentials, errcode.ErrInvalidCredentials},
	{appErr.ErrEmailNotVerified, errcode.ErrEmailNotVerified},
	{appErr.ErrDeliveryFailed, errcode.ErrDeliveryFailed},
	{appErr.ErrReauthRequired, errcode.ErrReauthRequired},
	{appErr.ErrUnauthorized, errcode.ErrUnauthorized},
	{appErr.ErrForbidden, errcode.ErrForbidden},
	{appErr.ErrNotFound, errcode.ErrNotFound},
	{appErr.ErrInvalid, errcode.ErrInvalid},
	{appErr.ErrConflict, errcode.ErrConflict},
}

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	logger := logutil.GetLogger(c.Request.Context()).With(
		zap.String("request_id", c.GetString(middleware.ContextRequestIDKey)),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.String("user_id", getUserID(c)),
		zap.Error(err),
	)
	for _, m := range errMappings {
		if !errors.Is(err, m.err) {
			continue
		}
		msg := m.err.Error()
		switch m.code {
		case errcode.ErrInvalid:
			msg = err.Error()
		case errcode.ErrPersistenceUnavailable:
			logger.Error("request failed")
		default:
			logger.Debug("request rejected")
		}
		response.Error(c, m.code, msg)
		return
	}
	logger.Error("request failed")
	response.Error(c, errcode.ErrInternal, "internal error")
}

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return false
	}
	return true
}

// bindOptionalJSON accepts an absent or empty body, whatever its framing.
func bindOptionalJSON(c *gin.Context, req interface{}) bool {
	if c.Request.Body == nil || c.Request.Body == http.NoBody {
		return true
	}
	if err := c.ShouldBindJSON(req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return false
	}
	return true
}
