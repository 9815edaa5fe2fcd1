package service

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/idgate/internal/model"
)

type Authorization struct {
	Principal *model.SessionPrincipal
	Token     string
	ExpiresAt int64
}

// Host is the surface a hosting session framework calls into. Every callback
// answers nil to deny.
type Host struct {
	auth      *AuthService
	sessions  *SessionGuard
	admission *AdmissionPolicy
}

func NewHost(auth *AuthService, sessions *SessionGuard, admission *AdmissionPolicy) *Host {
	return &Host{auth: auth, sessions: sessions, admission: admission}
}

func authorizationOf(sess *Session) *Authorization {
	return &Authorization{Principal: sess.Principal, Token: sess.Token, ExpiresAt: sess.ExpiresAt}
}

func (h *Host) OnCredentialAuthorize(ctx context.Context, email, password string) *Authorization {
	sess, err := h.auth.Login(ctx, email, password)
	if err != nil {
		logutil.GetLogger(ctx).Debug("credential authorize denied", zap.String("email", email), zap.Error(err))
		return nil
	}
	return authorizationOf(sess)
}

func (h *Host) OnFederatedSignIn(ctx context.Context, email, displayName string) *Authorization {
	sess, err := h.auth.SignInFederated(ctx, email, displayName)
	if err != nil {
		logutil.GetLogger(ctx).Debug("federated sign-in denied", zap.String("email", email), zap.Error(err))
		return nil
	}
	return authorizationOf(sess)
}

func (h *Host) OnSessionCallback(ctx context.Context, token string) *model.SessionPrincipal {
	principal, err := h.sessions.Validate(ctx, token)
	if err != nil {
		return nil
	}
	return principal
}

func (h *Host) IsEmailDomainAllowed(email string) bool {
	return h.admission.Allowed(email)
}
