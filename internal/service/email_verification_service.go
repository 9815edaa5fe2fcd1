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

const verificationTTL = 10 * time.Minute

// OwnershipProof shows that the caller presented the live code for Email.
// Only EmailVerificationService.Consume produces one.
type OwnershipProof struct {
	email      string
	purpose    model.Purpose
	consumedAt int64
}

func (p *OwnershipProof) Email() string {
	return p.email
}

func (p *OwnershipProof) Purpose() model.Purpose {
	return p.purpose
}

type TokenInfo struct {
	Email     string        `json:"email"`
	Purpose   model.Purpose `json:"purpose"`
	ExpiresAt int64         `json:"expires_at"`
}

type EmailVerificationService struct {
	records   VerificationStore
	accounts  AccountStore
	mailer    VerificationMailer
	admission *AdmissionPolicy
	secret    []byte
	clock     timeutil.Clock
	genCode   CodeGenerator
}

func NewEmailVerificationService(records VerificationStore, accounts AccountStore, mailer VerificationMailer,
	admission *AdmissionPolicy, secret []byte, opts ...Option) *EmailVerificationService {
	o := applyOptions(opts)
	return &EmailVerificationService{
		records:   records,
		accounts:  accounts,
		mailer:    mailer,
		admission: admission,
		secret:    secret,
		clock:     o.clock,
		genCode:   o.genCode,
	}
}

func validPurpose(p model.Purpose) bool {
	return p == model.PurposeRegister || p == model.PurposeReset
}

// IssueCode replaces any live record for the email and mails the new code.
// The record is kept when delivery fails.
func (s *EmailVerificationService) IssueCode(ctx context.Context, email string, purpose model.Purpose) error {
	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return err
	}
	if !validPurpose(purpose) {
		return appErr.ErrInvalid
	}
	if err := s.checkIssuable(ctx, email, purpose); err != nil {
		return err
	}
	code, err := s.genCode(ctx)
	if err != nil {
		return err
	}
	hash, err := password.Hash(code)
	if err != nil {
		return err
	}
	now := s.clock.Now()
	claims := jwt.Claims{Email: email, Purpose: string(purpose)}
	claims.ID = newID()
	token, err := jwt.Sign(claims, s.secret, now, verificationTTL)
	if err != nil {
		return err
	}
	rec := &model.VerificationRecord{
		Email:    email,
		Purpose:  purpose,
		CodeHash: hash,
		Token:    token,
		IssuedAt: now.Unix(),
	}
	if err := s.records.Upsert(ctx, rec); err != nil {
		logutil.GetLogger(ctx).Error("store verification record failed", zap.String("email", email), zap.Error(err))
		return unavailable(err)
	}
	if err := s.mailer.SendVerificationMessage(ctx, email, token, code); err != nil {
		logutil.GetLogger(ctx).Error("send verification message failed",
			zap.String("email", email), zap.String("purpose", string(purpose)), zap.Error(err))
		return appErr.ErrDeliveryFailed
	}
	return nil
}

func (s *EmailVerificationService) checkIssuable(ctx context.Context, email string, purpose model.Purpose) error {
	if purpose == model.PurposeRegister {
		if err := s.admission.Check(email); err != nil {
			return err
		}
	}
	acc, err := s.accounts.GetByEmail(ctx, email)
	if err != nil && !appErr.IsNotFound(err) {
		return unavailable(err)
	}
	switch purpose {
	case model.PurposeRegister:
		if acc.IsVerified() {
			return appErr.ErrAccountAlreadyVerified
		}
	case model.PurposeReset:
		if acc == nil {
			return appErr.ErrAccountNotFound
		}
	}
	return nil
}

// Consume spends the live code. Of two concurrent callers with the right code
// exactly one receives a proof.
func (s *EmailVerificationService) Consume(ctx context.Context, email, code string, purpose model.Purpose) (*OwnershipProof, error) {
	rec, err := s.match(ctx, email, code, purpose)
	if err != nil {
		return nil, err
	}
	removed, err := s.records.DeleteIssued(ctx, rec.Email, rec.CodeHash)
	if err != nil {
		return nil, unavailable(err)
	}
	if !removed {
		return nil, appErr.ErrInvalidOrExpiredCode
	}
	return &OwnershipProof{email: rec.Email, purpose: rec.Purpose, consumedAt: s.clock.Unix()}, nil
}

// Check runs the same checks as Consume and leaves the record in place.
func (s *EmailVerificationService) Check(ctx context.Context, email, code string, purpose model.Purpose) error {
	_, err := s.match(ctx, email, code, purpose)
	return err
}

func (s *EmailVerificationService) match(ctx context.Context, email, code string, purpose model.Purpose) (*model.VerificationRecord, error) {
	in := codeInput{Email: normalizeEmail(email), Code: code}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	rec, err := s.records.GetByEmail(ctx, in.Email)
	if err != nil {
		if appErr.IsNotFound(err) {
			return nil, appErr.ErrInvalidOrExpiredCode
		}
		return nil, unavailable(err)
	}
	if rec.Purpose != purpose || s.expired(rec) {
		return nil, appErr.ErrInvalidOrExpiredCode
	}
	if !password.Matches(rec.CodeHash, in.Code) {
		return nil, appErr.ErrInvalidOrExpiredCode
	}
	return rec, nil
}

func (s *EmailVerificationService) expired(rec *model.VerificationRecord) bool {
	return s.clock.Unix()-rec.IssuedAt > int64(verificationTTL/time.Second)
}

// Inspect resolves the token carried by a mailed link. A token from an
// earlier issuance no longer resolves even when its signature is still valid.
func (s *EmailVerificationService) Inspect(ctx context.Context, token string) (*TokenInfo, error) {
	claims, err := jwt.ParseTokenAt(token, s.secret, s.clock.Now)
	if err != nil {
		return nil, appErr.ErrInvalidOrExpiredCode
	}
	purpose := model.Purpose(claims.Purpose)
	if !validPurpose(purpose) || claims.Email == "" {
		return nil, appErr.ErrInvalidOrExpiredCode
	}
	rec, err := s.records.GetByEmail(ctx, claims.Email)
	if err != nil {
		if appErr.IsNotFound(err) {
			return nil, appErr.ErrInvalidOrExpiredCode
		}
		return nil, unavailable(err)
	}
	if rec.Token != token || rec.Purpose != purpose || s.expired(rec) {
		return nil, appErr.ErrInvalidOrExpiredCode
	}
	return &TokenInfo{Email: rec.Email, Purpose: rec.Purpose, ExpiresAt: claims.ExpiresAt.Unix()}, nil
}

func (s *EmailVerificationService) PurgeExpired(ctx context.Context) (int64, error) {
	cutoff := s.clock.Unix() - int64(verificationTTL/time.Second)
	n, err := s.records.DeleteExpiredBefore(ctx, cutoff)
	if err != nil {
		return 0, unavailable(err)
	}
	return n, nil
}
