package service

import (
	"context"
	"fmt"

	"github.com/xxxsen/idgate/internal/model"
	appErr "github.com/xxxsen/idgate/internal/pkg/errors"
)

// AccountStore is implemented by repo.AccountRepo and repo.MemoryAccountRepo.
// Every write is a single atomic statement.
type AccountStore interface {
	GetByEmail(ctx context.Context, email string) (*model.Account, error)
	GetByID(ctx context.Context, id string) (*model.Account, error)
	UpsertRegistered(ctx context.Context, acc *model.Account) error
	CreateFederated(ctx context.Context, acc *model.Account) error
	MarkVerified(ctx context.Context, id string, verifiedAt int64) error
	UpdatePassword(ctx context.Context, id, passwordHash string, expectVersion, mtime int64) error
	ResetPassword(ctx context.Context, email, passwordHash string, now int64) error
	BumpSessionVersion(ctx context.Context, id string, mtime int64) error
	SetRole(ctx context.Context, email string, role model.Role, mtime int64) error
	Delete(ctx context.Context, email string) error
}

type VerificationStore interface {
	Upsert(ctx context.Context, rec *model.VerificationRecord) error
	GetByEmail(ctx context.Context, email string) (*model.VerificationRecord, error)
	DeleteIssued(ctx context.Context, email, codeHash string) (bool, error)
	DeleteExpiredBefore(ctx context.Context, cutoff int64) (int64, error)
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", appErr.ErrPersistenceUnavailable, err)
}
