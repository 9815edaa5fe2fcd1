package service

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/idgate/internal/model"
	appErr "github.com/xxxsen/idgate/internal/pkg/errors"
	"github.com/xxxsen/idgate/internal/pkg/jwt"
	"github.com/xxxsen/idgate/internal/pkg/password"
	"github.com/xxxsen/idgate/internal/pkg/timeutil"
)

const (
	purposeReauth = "reauth"
	reauthTTL     = 5 * time.Minute
)

// ReauthProof records that the account holder re-entered the current
// password. It is bound to the session version seen at that moment.
type ReauthProof struct {
	accountID  string
	version    int64
	verifiedAt int64
}

func (p *ReauthProof) AccountID() string {
	return p.accountID
}

type PasswordService struct {
	accounts AccountStore
	verifier *EmailVerificationService
	secret   []byte
	clock    timeutil.Clock
}

func NewPasswordService(accounts AccountStore, verifier *EmailVerificationService, secret []byte, opts ...Option) *PasswordService {
	o := applyOptions(opts)
	return &PasswordService{accounts: accounts, verifier: verifier, secret: secret, clock: o.clock}
}

func (s *PasswordService) VerifyCurrent(ctx context.Context, accountID, currentPassword string) (*ReauthProof, error) {
	acc, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if appErr.IsNotFound(err) {
			return nil, appErr.ErrAccountNotFound
		}
		return nil, unavailable(err)
	}
	if !acc.HasPassword() || !password.Matches(acc.PasswordHash, currentPassword) {
		return nil, appErr.ErrInvalidCredentials
	}
	return &ReauthProof{accountID: acc.ID, version: acc.SessionVersion, verifiedAt: s.clock.Unix()}, nil
}

// SealReauth turns a proof into a short lived ticket the client hands back
// with the new password.
func (s *PasswordService) SealReauth(proof *ReauthProof) (string, error) {
	if proof == nil {
		return "", appErr.ErrReauthRequired
	}
	return jwt.Sign(jwt.Claims{UserID: proof.accountID, Purpose: purposeReauth, Version: proof.version},
		s.secret, time.Unix(proof.verifiedAt, 0), reauthTTL)
}

func (s *PasswordService) OpenReauth(ctx context.Context, accountID, ticket string) (*ReauthProof, error) {
	claims, err := jwt.ParseTokenAt(ticket, s.secret, s.clock.Now)
	if err != nil || claims.Purpose != purposeReauth || claims.UserID != accountID || claims.IssuedAt == nil {
		return nil, appErr.ErrReauthRequired
	}
	return &ReauthProof{accountID: claims.UserID, version: claims.Version, verifiedAt: claims.IssuedAt.Unix()}, nil
}

// UpdatePassword succeeds only while the account is still at the version the
// proof was taken at. Every existing session stops validating afterwards.
func (s *PasswordService) UpdatePassword(ctx context.Context, proof *ReauthProof, newPassword string) error {
	if proof == nil || s.clock.Unix()-proof.verifiedAt > int64(reauthTTL/time.Second) {
		return appErr.ErrReauthRequired
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	hash, err := password.Hash(newPassword)
	if err != nil {
		return err
	}
	err = s.accounts.UpdatePassword(ctx, proof.accountID, hash, proof.version, s.clock.Unix())
	switch {
	case err == nil:
		logutil.GetLogger(ctx).Info("password changed", zap.String("account_id", proof.accountID))
		return nil
	case appErr.IsConflict(err):
		return appErr.ErrReauthRequired
	case appErr.IsNotFound(err):
		return appErr.ErrAccountNotFound
	default:
		return unavailable(err)
	}
}

func (s *PasswordService) RequestReset(ctx context.Context, email string) error {
	return s.verifier.IssueCode(ctx, email, model.PurposeReset)
}

// ConfirmReset checks the code without spending it, so the UI can move on to
// the new password form.
func (s *PasswordService) ConfirmReset(ctx context.Context, email, code string) error {
	return s.verifier.Check(ctx, email, code, model.PurposeReset)
}

func (s *PasswordService) CompleteReset(ctx context.Context, email, code, newPassword string) error {
	email = normalizeEmail(email)
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	if _, err := s.accounts.GetByEmail(ctx, email); err != nil {
		if appErr.IsNotFound(err) {
			return appErr.ErrAccountNotFound
		}
		return unavailable(err)
	}
	proof, err := s.verifier.Consume(ctx, email, code, model.PurposeReset)
	if err != nil {
		return err
	}
	hash, err := password.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.accounts.ResetPassword(ctx, proof.Email(), hash, s.clock.Unix()); err != nil {
		if appErr.IsNotFound(err) {
			return appErr.ErrAccountNotFound
		}
		return unavailable(err)
	}
	logutil.GetLogger(ctx).Info("password reset", zap.String("email", proof.Email()))
	return nil
}
