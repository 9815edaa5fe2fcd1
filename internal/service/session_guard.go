package service

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/idgate/internal/model"
	appErr "github.com/xxxsen/idgate/internal/pkg/errors"
	"github.com/xxxsen/idgate/internal/pkg/jwt"
	"github.com/xxxsen/idgate/internal/pkg/timeutil"
)

const purposeSession = "session"

type Session struct {
	Token     string                  `json:"token"`
	ExpiresAt int64                   `json:"expires_at"`
	Principal *model.SessionPrincipal `json:"principal"`
}

// SessionGuard mints session tokens and re-checks the backing account on
// every validation. A token outlives neither its account nor the account's
// current session version.
type SessionGuard struct {
	accounts AccountStore
	secret   []byte
	ttl      time.Duration
	clock    timeutil.Clock
}

func NewSessionGuard(accounts AccountStore, secret []byte, ttl time.Duration, opts ...Option) *SessionGuard {
	o := applyOptions(opts)
	return &SessionGuard{accounts: accounts, secret: secret, ttl: ttl, clock: o.clock}
}

func principalOf(acc *model.Account, issuedAt int64) *model.SessionPrincipal {
	return &model.SessionPrincipal{
		AccountID: acc.ID,
		Email:     acc.Email,
		Role:      acc.Role,
		Provider:  acc.Provider,
		IssuedAt:  issuedAt,
	}
}

func (g *SessionGuard) Issue(acc *model.Account) (*Session, error) {
	now := g.clock.Now()
	token, err := jwt.Sign(jwt.Claims{
		UserID:   acc.ID,
		Email:    acc.Email,
		Role:     string(acc.Role),
		Provider: string(acc.Provider),
		Purpose:  purposeSession,
		Version:  acc.SessionVersion,
	}, g.secret, now, g.ttl)
	if err != nil {
		return nil, err
	}
	return &Session{
		Token:     token,
		ExpiresAt: now.Add(g.ttl).Unix(),
		Principal: principalOf(acc, now.Unix()),
	}, nil
}

// Validate returns ErrUnauthorized for anything short of a live, verified
// account at the token's session version, including store failures.
func (g *SessionGuard) Validate(ctx context.Context, token string) (*model.SessionPrincipal, error) {
	claims, err := jwt.ParseTokenAt(token, g.secret, g.clock.Now)
	if err != nil {
		return nil, appErr.ErrUnauthorized
	}
	if claims.Purpose != purposeSession || claims.UserID == "" || claims.IssuedAt == nil {
		return nil, appErr.ErrUnauthorized
	}
	acc, err := g.accounts.GetByID(ctx, claims.UserID)
	if err != nil {
		if !appErr.IsNotFound(err) {
			logutil.GetLogger(ctx).Error("session lookup failed, denying",
				zap.String("account_id", claims.UserID), zap.Error(err))
		}
		return nil, appErr.ErrUnauthorized
	}
	if !acc.IsVerified() || acc.Email != claims.Email || acc.SessionVersion != claims.Version {
		return nil, appErr.ErrUnauthorized
	}
	return principalOf(acc, claims.IssuedAt.Unix()), nil
}

// RevokeAll ends every outstanding session of the account.
func (g *SessionGuard) RevokeAll(ctx context.Context, accountID string) error {
	if err := g.accounts.BumpSessionVersion(ctx, accountID, g.clock.Unix()); err != nil {
		if appErr.IsNotFound(err) {
			return appErr.ErrAccountNotFound
		}
		return unavailable(err)
	}
	return nil
}
