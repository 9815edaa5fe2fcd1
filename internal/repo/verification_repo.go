package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/idgate/internal/model"
	"github.com/xxxsen/idgate/internal/pkg/dbutil"
	appErr "github.com/xxxsen/idgate/internal/pkg/errors"
)

const verificationTable = "verification_records"

const upsertVerificationSQL = `INSERT INTO verification_records (email, purpose, code_hash, token, issued_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (email) DO UPDATE SET
	purpose = EXCLUDED.purpose,
	code_hash = EXCLUDED.code_hash,
	token = EXCLUDED.token,
	issued_at = EXCLUDED.issued_at`

type VerificationRepo struct {
	db *sql.DB
}

func NewVerificationRepo(db *sql.DB) *VerificationRepo {
	return &VerificationRepo{db: db}
}

func (r *VerificationRepo) Upsert(ctx context.Context, rec *model.VerificationRecord) error {
	sqlStr, args := dbutil.Finalize(upsertVerificationSQL, []interface{}{
		rec.Email, rec.Purpose, rec.CodeHash, rec.Token, rec.IssuedAt,
	})
	_, err := r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *VerificationRepo) GetByEmail(ctx context.Context, email string) (*model.VerificationRecord, error) {
	where := map[string]interface{}{"email": email}
	sqlStr, args, err := builder.BuildSelect(verificationTable, where, []string{"email", "purpose", "code_hash", "token", "issued_at"})
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
	var rec model.VerificationRecord
	if err := rows.Scan(&rec.Email, &rec.Purpose, &rec.CodeHash, &rec.Token, &rec.IssuedAt); err != nil {
		return nil, err
	}
	return &rec, nil
}

// DeleteIssued removes the record only if it still carries codeHash. The
// boolean reports whether this call was the one that removed it.
func (r *VerificationRepo) DeleteIssued(ctx context.Context, email, codeHash string) (bool, error) {
	where := map[string]interface{}{"email": email, "code_hash": codeHash}
	sqlStr, args, err := builder.BuildDelete(verificationTable, where)
	if err != nil {
		return false, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *VerificationRepo) DeleteExpiredBefore(ctx context.Context, cutoff int64) (int64, error) {
	where := map[string]interface{}{"issued_at <": cutoff}
	sqlStr, args, err := builder.BuildDelete(verificationTable, where)
	if err != nil {
		return 0, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
