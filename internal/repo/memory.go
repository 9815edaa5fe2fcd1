package repo

import (
	"context"
	"sync"

	"github.com/xxxsen/idgate/internal/model"
	appErr "github.com/xxxsen/idgate/internal/pkg/errors"
)

// MemoryAccountRepo mirrors AccountRepo for the "memory" database driver and
// for tests. Each method holds the lock for its whole read-modify-write.
type MemoryAccountRepo struct {
	mu      sync.Mutex
	byEmail map[string]*model.Account
}

func NewMemoryAccountRepo() *MemoryAccountRepo {
	return &MemoryAccountRepo{byEmail: make(map[string]*model.Account)}
}

func (r *MemoryAccountRepo) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.byEmail[email]
	if !ok {
		return nil, appErr.ErrNotFound
	}
	cp := *acc
	return &cp, nil
}

func (r *MemoryAccountRepo) GetByID(ctx context.Context, id string) (*model.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc := r.findByID(id)
	if acc == nil {
		return nil, appErr.ErrNotFound
	}
	cp := *acc
	return &cp, nil
}

func (r *MemoryAccountRepo) findByID(id string) *model.Account {
	for _, acc := range r.byEmail {
		if acc.ID == id {
			return acc
		}
	}
	return nil
}

func (r *MemoryAccountRepo) UpsertRegistered(ctx context.Context, acc *model.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.byEmail[acc.Email]
	if ok {
		if existing.VerifiedAt != 0 {
			return appErr.ErrConflict
		}
		acc.ID = existing.ID
		acc.Ctime = existing.Ctime
		acc.SessionVersion = existing.SessionVersion + 1
	}
	cp := *acc
	r.byEmail[acc.Email] = &cp
	return nil
}

func (r *MemoryAccountRepo) CreateFederated(ctx context.Context, acc *model.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[acc.Email]; ok {
		return appErr.ErrConflict
	}
	cp := *acc
	cp.PasswordHash = ""
	r.byEmail[acc.Email] = &cp
	return nil
}

func (r *MemoryAccountRepo) MarkVerified(ctx context.Context, id string, verifiedAt int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if acc := r.findByID(id); acc != nil && acc.VerifiedAt == 0 {
		acc.VerifiedAt = verifiedAt
		acc.Mtime = verifiedAt
	}
	return nil
}

func (r *MemoryAccountRepo) UpdatePassword(ctx context.Context, id, passwordHash string, expectVersion, mtime int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc := r.findByID(id)
	if acc == nil {
		return appErr.ErrNotFound
	}
	if acc.SessionVersion != expectVersion {
		return appErr.ErrConflict
	}
	acc.PasswordHash = passwordHash
	acc.SessionVersion++
	acc.Mtime = mtime
	return nil
}

func (r *MemoryAccountRepo) ResetPassword(ctx context.Context, email, passwordHash string, now int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.byEmail[email]
	if !ok {
		return appErr.ErrNotFound
	}
	acc.PasswordHash = passwordHash
	acc.SessionVersion++
	if acc.VerifiedAt == 0 {
		acc.VerifiedAt = now
	}
	acc.Mtime = now
	return nil
}

func (r *MemoryAccountRepo) BumpSessionVersion(ctx context.Context, id string, mtime int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc := r.findByID(id)
	if acc == nil {
		return appErr.ErrNotFound
	}
	acc.SessionVersion++
	acc.Mtime = mtime
	return nil
}

func (r *MemoryAccountRepo) SetRole(ctx context.Context, email string, role model.Role, mtime int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.byEmail[email]
	if !ok {
		return appErr.ErrNotFound
	}
	acc.Role = role
	acc.Mtime = mtime
	return nil
}

func (r *MemoryAccountRepo) Delete(ctx context.Context, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[email]; !ok {
		return appErr.ErrNotFound
	}
	delete(r.byEmail, email)
	return nil
}

type MemoryVerificationRepo struct {
	mu      sync.Mutex
	records map[string]model.VerificationRecord
}

func NewMemoryVerificationRepo() *MemoryVerificationRepo {
	return &MemoryVerificationRepo{records: make(map[string]model.VerificationRecord)}
}

func (r *MemoryVerificationRepo) Upsert(ctx context.Context, rec *model.VerificationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[rec.Email] = *rec
	return nil
}

func (r *MemoryVerificationRepo) GetByEmail(ctx context.Context, email string) (*model.VerificationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[email]
	if !ok {
		return nil, appErr.ErrNotFound
	}
	return &rec, nil
}

func (r *MemoryVerificationRepo) DeleteIssued(ctx context.Context, email, codeHash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[email]
	if !ok || rec.CodeHash != codeHash {
		return false, nil
	}
	delete(r.records, email)
	return true, nil
}

func (r *MemoryVerificationRepo) DeleteExpiredBefore(ctx context.Context, cutoff int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for email, rec := range r.records {
		if rec.IssuedAt < cutoff {
			delete(r.records, email)
			n++
		}
	}
	return n, nil
}
