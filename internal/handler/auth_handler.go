package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/idgate/internal/middleware"
	"github.com/xxxsen/idgate/internal/pkg/errcode"
	"github.com/xxxsen/idgate/internal/pkg/response"
	"github.com/xxxsen/idgate/internal/service"
)

type AuthHandler struct {
	auth      *service.AuthService
	verifier  *service.EmailVerificationService
	sessions  *service.SessionGuard
	passwords *service.PasswordService
}

func NewAuthHandler(auth *service.AuthService, verifier *service.EmailVerificationService,
	sessions *service.SessionGuard, passwords *service.PasswordService) *AuthHandler {
	return &AuthHandler{auth: auth, verifier: verifier, sessions: sessions, passwords: passwords}
}

type emailRequest struct {
	Email string `json:"email"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type resetConfirmRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type resetCompleteRequest struct {
	Email    string `json:"email"`
	Code     string `json:"code"`
	Password string `json:"password"`
}

type logoutRequest struct {
	All bool `json:"all"`
}

type verifyPasswordRequest struct {
	Password string `json:"password"`
}

type updatePasswordRequest struct {
	Ticket   string `json:"ticket"`
	Password string `json:"password"`
}

func (h *AuthHandler) SendRegisterCode(c *gin.Context) {
	var req emailRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.auth.SendRegisterCode(c.Request.Context(), req.Email); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"sent": true})
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req service.RegisterInput
	if !bindJSON(c, &req) {
		return
	}
	acc, err := h.auth.FinalizeRegistration(c.Request.Context(), req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"account": acc})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}
	sess, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, sess)
}

func (h *AuthHandler) InspectVerification(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, errcode.ErrInvalid, "token required")
		return
	}
	info, err := h.verifier.Inspect(c.Request.Context(), token)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, info)
}

func (h *AuthHandler) RequestReset(c *gin.Context) {
	var req emailRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.passwords.RequestReset(c.Request.Context(), req.Email); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"sent": true})
}

func (h *AuthHandler) ConfirmReset(c *gin.Context) {
	var req resetConfirmRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.passwords.ConfirmReset(c.Request.Context(), req.Email, req.Code); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"valid": true})
}

func (h *AuthHandler) CompleteReset(c *gin.Context) {
	var req resetCompleteRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.passwords.CompleteReset(c.Request.Context(), req.Email, req.Code, req.Password); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"relogin": true})
}

func (h *AuthHandler) Me(c *gin.Context) {
	response.Success(c, gin.H{"principal": middleware.Principal(c)})
}

// Logout acknowledges the client dropping its token. With all=true every
// session of the account is ended.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req logoutRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	if req.All {
		if err := h.sessions.RevokeAll(c.Request.Context(), getUserID(c)); err != nil {
			handleError(c, err)
			return
		}
	}
	response.Success(c, gin.H{"ok": true})
}

func (h *AuthHandler) VerifyPassword(c *gin.Context) {
	var req verifyPasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	proof, err := h.passwords.VerifyCurrent(c.Request.Context(), getUserID(c), req.Password)
	if err != nil {
		handleError(c, err)
		return
	}
	ticket, err := h.passwords.SealReauth(proof)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ticket": ticket, "expires_in": int64(5 * time.Minute / time.Second)})
}

func (h *AuthHandler) UpdatePassword(c *gin.Context) {
	var req updatePasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	proof, err := h.passwords.OpenReauth(c.Request.Context(), getUserID(c), req.Ticket)
	if err != nil {
		handleError(c, err)
		return
	}
	if err := h.passwords.UpdatePassword(c.Request.Context(), proof, req.Password); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"relogin": true})
}
