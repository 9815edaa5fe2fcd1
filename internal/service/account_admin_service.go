package service

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/idgate/internal/model"
	appErr "github.com/xxxsen/idgate/internal/pkg/errors"
	"github.com/xxxsen/idgate/internal/pkg/timeutil"
)

// AccountAdminService backs the operator commands. Deleting an account is
// enough to end its sessions, since SessionGuard looks the account up on
// every validation.
type AccountAdminService struct {
	accounts AccountStore
	clock    timeutil.Clock
}

func NewAccountAdminService(accounts AccountStore, opts ...Option) *AccountAdminService {
	o := applyOptions(opts)
	return &AccountAdminService{accounts: accounts, clock: o.clock}
}

func (s *AccountAdminService) SetRole(ctx context.Context, email string, role model.Role) error {
	if !role.Valid() {
		return appErr.ErrInvalid
	}
	email = normalizeEmail(email)
	if err := s.accounts.SetRole(ctx, email, role, s.clock.Unix()); err != nil {
		return adminErr(err)
	}
	logutil.GetLogger(ctx).Info("account role changed", zap.String("email", email), zap.String("role", string(role)))
	return nil
}

func (s *AccountAdminService) Delete(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if err := s.accounts.Delete(ctx, email); err != nil {
		return adminErr(err)
	}
	logutil.GetLogger(ctx).Info("account deleted", zap.String("email", email))
	return nil
}

func adminErr(err error) error {
	if appErr.IsNotFound(err) {
		return appErr.ErrAccountNotFound
	}
	return unavailable(err)
}
