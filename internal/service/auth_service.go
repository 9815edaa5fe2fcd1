package service

import (
	"context"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/idgate/internal/model"
	appErr "github.com/xxxsen/idgate/internal/pkg/errors"
	"github.com/xxxsen/idgate/internal/pkg/password"
	"github.com/xxxsen/idgate/internal/pkg/timeutil"
)

type AuthService struct {
	accounts  AccountStore
	verifier  *EmailVerificationService
	admission *AdmissionPolicy
	sessions  *SessionGuard
	clock     timeutil.Clock
}

func NewAuthService(accounts AccountStore, verifier *EmailVerificationService, admission *AdmissionPolicy,
	sessions *SessionGuard, opts ...Option) *AuthService {
	o := applyOptions(opts)
	return &AuthService{
		accounts:  accounts,
		verifier:  verifier,
		admission: admission,
		sessions:  sessions,
		clock:     o.clock,
	}
}

func (s *AuthService) SendRegisterCode(ctx context.Context, email string) error {
	return s.verifier.IssueCode(ctx, email, model.PurposeRegister)
}

// FinalizeRegistration spends the registration code and stores a verified
// credentials account. It does not sign the caller in.
func (s *AuthService) FinalizeRegistration(ctx context.Context, in RegisterInput) (*model.Account, error) {
	in.normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := s.admission.Check(in.Email); err != nil {
		return nil, err
	}
	proof, err := s.verifier.Consume(ctx, in.Email, in.Code, model.PurposeRegister)
	if err != nil {
		return nil, err
	}
	hash, err := password.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	now := s.clock.Unix()
	acc := &model.Account{
		ID:           newID(),
		Email:        proof.Email(),
		DisplayName:  in.DisplayName,
		PasswordHash: hash,
		Role:         model.RoleViewer,
		Provider:     model.ProviderCredentials,
		VerifiedAt:   now,
		Ctime:        now,
		Mtime:        now,
	}
	if err := s.accounts.UpsertRegistered(ctx, acc); err != nil {
		if appErr.IsConflict(err) {
			return nil, appErr.ErrAccountAlreadyVerified
		}
		logutil.GetLogger(ctx).Error("store registered account failed", zap.String("email", acc.Email), zap.Error(err))
		return nil, unavailable(err)
	}
	return acc, nil
}

// Login never tells a missing account apart from a wrong password.
func (s *AuthService) Login(ctx context.Context, email, plainPassword string) (*Session, error) {
	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := s.admission.Check(email); err != nil {
		return nil, err
	}
	acc, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if appErr.IsNotFound(err) {
			return nil, appErr.ErrInvalidCredentials
		}
		return nil, unavailable(err)
	}
	if !acc.HasPassword() || !password.Matches(acc.PasswordHash, plainPassword) {
		return nil, appErr.ErrInvalidCredentials
	}
	if !acc.IsVerified() {
		return nil, appErr.ErrEmailNotVerified
	}
	return s.sessions.Issue(acc)
}

// SignInFederated is called once an external identity provider has proven
// control of email.
func (s *AuthService) SignInFederated(ctx context.Context, email, displayName string) (*Session, error) {
	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := s.admission.Check(email); err != nil {
		return nil, err
	}
	acc, err := s.federatedAccount(ctx, email, strings.TrimSpace(displayName), true)
	if err != nil {
		return nil, err
	}
	return s.sessions.Issue(acc)
}

// federatedAccount retries once when a concurrent first sign-in wins the
// insert.
func (s *AuthService) federatedAccount(ctx context.Context, email, displayName string, retry bool) (*model.Account, error) {
	now := s.clock.Unix()
	acc, err := s.accounts.GetByEmail(ctx, email)
	if err == nil {
		if !acc.IsVerified() {
			if err := s.accounts.MarkVerified(ctx, acc.ID, now); err != nil {
				return nil, unavailable(err)
			}
			acc.VerifiedAt = now
		}
		return acc, nil
	}
	if !appErr.IsNotFound(err) {
		return nil, unavailable(err)
	}
	if displayName == "" {
		displayName = email[:strings.Index(email, "@")]
	}
	acc = &model.Account{
		ID:          newID(),
		Email:       email,
		DisplayName: displayName,
		Role:        model.RoleViewer,
		Provider:    model.ProviderFederated,
		VerifiedAt:  now,
		Ctime:       now,
		Mtime:       now,
	}
	if err := s.accounts.CreateFederated(ctx, acc); err != nil {
		if !appErr.IsConflict(err) || !retry {
			return nil, unavailable(err)
		}
		return s.federatedAccount(ctx, email, displayName, false)
	}
	return acc, nil
}
