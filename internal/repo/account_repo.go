package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/idgate/internal/model"
	"github.com/xxxsen/idgate/internal/pkg/dbutil"
	appErr "github.com/xxxsen/idgate/internal/pkg/errors"
)

const accountTable = "accounts"

var accountFields = []string{
	"id", "email", "display_name", "password_hash", "role", "provider",
	"verified_at", "session_version", "ctime", "mtime",
}

// upsertRegisteredSQL only replaces an account that was never verified. An
// empty RETURNING set means a verified account already owns the email.
const upsertRegisteredSQL = `INSERT INTO accounts (id, email, display_name, password_hash, role, provider, verified_at, session_version, ctime, mtime)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (email) DO UPDATE SET
	display_name = EXCLUDED.display_name,
	password_hash = EXCLUDED.password_hash,
	role = EXCLUDED.role,
	provider = EXCLUDED.provider,
	verified_at = EXCLUDED.verified_at,
	session_version = accounts.session_version + 1,
	mtime = EXCLUDED.mtime
WHERE accounts.verified_at = 0
RETURNING id, session_version, ctime`

const updatePasswordSQL = `UPDATE accounts SET password_hash = ?, session_version = session_version + 1, mtime = ?
WHERE id = ? AND session_version = ?`

const bumpSessionVersionSQL = `UPDATE accounts SET session_version = session_version + 1, mtime = ? WHERE id = ?`

const resetPasswordSQL = `UPDATE accounts SET password_hash = ?, session_version = session_version + 1,
	verified_at = CASE WHEN verified_at = 0 THEN ? ELSE verified_at END, mtime = ?
WHERE email = ?`

type AccountRepo struct {
	db *sql.DB
}

func NewAccountRepo(db *sql.DB) *AccountRepo {
	return &AccountRepo{db: db}
}

func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	return r.getOne(ctx, map[string]interface{}{"email": email})
}

func (r *AccountRepo) GetByID(ctx context.Context, id string) (*model.Account, error) {
	return r.getOne(ctx, map[string]interface{}{"id": id})
}

func (r *AccountRepo) getOne(ctx context.Context, where map[string]interface{}) (*model.Account, error) {
	sqlStr, args, err := builder.BuildSelect(accountTable, where, accountFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, appErr.ErrNotFound
	}
	var acc model.Account
	if err := rows.Scan(&acc.ID, &acc.Email, &acc.DisplayName, &acc.PasswordHash, &acc.Role, &acc.Provider,
		&acc.VerifiedAt, &acc.SessionVersion, &acc.Ctime, &acc.Mtime); err != nil {
		return nil, err
	}
	return &acc, nil
}

// UpsertRegistered writes the account in one statement and fills ID,
// SessionVersion and Ctime from the stored row. It returns ErrConflict when
// the email already belongs to a verified account.
func (r *AccountRepo) UpsertRegistered(ctx context.Context, acc *model.Account) error {
	sqlStr, args := dbutil.Finalize(upsertRegisteredSQL, []interface{}{
		acc.ID, acc.Email, acc.DisplayName, acc.PasswordHash, acc.Role, acc.Provider,
		acc.VerifiedAt, acc.SessionVersion, acc.Ctime, acc.Mtime,
	})
	row := r.db.QueryRowContext(ctx, sqlStr, args...)
	if err := row.Scan(&acc.ID, &acc.SessionVersion, &acc.Ctime); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}

func (r *AccountRepo) CreateFederated(ctx context.Context, acc *model.Account) error {
	data := map[string]interface{}{
		"id":              acc.ID,
		"email":           acc.Email,
		"display_name":    acc.DisplayName,
		"password_hash":   "",
		"role":            acc.Role,
		"provider":        acc.Provider,
		"verified_at":     acc.VerifiedAt,
		"session_version": acc.SessionVersion,
		"ctime":           acc.Ctime,
		"mtime":           acc.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert(accountTable, []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	if _, err = r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}

// MarkVerified is a no-op for accounts that are already verified.
func (r *AccountRepo) MarkVerified(ctx context.Context, id string, verifiedAt int64) error {
	where := map[string]interface{}{"id": id, "verified_at": 0}
	update := map[string]interface{}{"verified_at": verifiedAt, "mtime": verifiedAt}
	sqlStr, args, err := builder.BuildUpdate(accountTable, where, update)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

// UpdatePassword swaps the hash only while the account is still at
// expectVersion. A moved version yields ErrConflict, a missing account
// ErrNotFound.
func (r *AccountRepo) UpdatePassword(ctx context.Context, id, passwordHash string, expectVersion, mtime int64) error {
	sqlStr, args := dbutil.Finalize(updatePasswordSQL, []interface{}{passwordHash, mtime, id, expectVersion})
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	err = dbutil.AffectedOne(result)
	if !appErr.IsNotFound(err) {
		return err
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return appErr.ErrConflict
}

func (r *AccountRepo) ResetPassword(ctx context.Context, email, passwordHash string, now int64) error {
	sqlStr, args := dbutil.Finalize(resetPasswordSQL, []interface{}{passwordHash, now, now, email})
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	return dbutil.AffectedOne(result)
}

// BumpSessionVersion invalidates every session minted for the account.
func (r *AccountRepo) BumpSessionVersion(ctx context.Context, id string, mtime int64) error {
	sqlStr, args := dbutil.Finalize(bumpSessionVersionSQL, []interface{}{mtime, id})
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	return dbutil.AffectedOne(result)
}

func (r *AccountRepo) SetRole(ctx context.Context, email string, role model.Role, mtime int64) error {
	where := map[string]interface{}{"email": email}
	update := map[string]interface{}{"role": role, "mtime": mtime}
	sqlStr, args, err := builder.BuildUpdate(accountTable, where, update)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	return dbutil.AffectedOne(result)
}

func (r *AccountRepo) Delete(ctx context.Context, email string) error {
	sqlStr, args, err := builder.BuildDelete(accountTable, map[string]interface{}{"email": email})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	return dbutil.AffectedOne(result)
}
