package repo

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/idgate/internal/config"
	"github.com/xxxsen/idgate/internal/db"
	"github.com/xxxsen/idgate/internal/model"
	appErr "github.com/xxxsen/idgate/internal/pkg/errors"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	host := os.Getenv("TEST_DB_HOST")
	if host == "" {
		t.Skip("TEST_DB_HOST not set, skipping postgres test")
	}
	ctx := context.Background()
	conn, err := db.Open(ctx, config.DatabaseConfig{
		Host:     host,
		Port:     5432,
		User:     "idgate",
		Password: "idgate_pass",
		DBName:   "idgate_test",
		SSLMode:  "disable",
	})
	require.NoError(t, err)
	require.NoError(t, db.ApplyMigrations(ctx, conn))
	_, err = conn.ExecContext(ctx, "TRUNCATE accounts, verification_records")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestPostgresAccountLifecycle(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	accounts := NewAccountRepo(conn)

	pending := &model.Account{ID: "a1", Email: "ana@holaprime.com", PasswordHash: "h0", Role: model.RoleViewer,
		Provider: model.ProviderCredentials, Ctime: 1, Mtime: 1}
	require.NoError(t, accounts.UpsertRegistered(ctx, pending))

	verified := &model.Account{ID: "a2", Email: "ana@holaprime.com", PasswordHash: "h1", Role: model.RoleViewer,
		Provider: model.ProviderCredentials, VerifiedAt: 2, Ctime: 2, Mtime: 2}
	require.NoError(t, accounts.UpsertRegistered(ctx, verified))
	require.Equal(t, "a1", verified.ID)
	require.Equal(t, int64(1), verified.SessionVersion)

	again := &model.Account{ID: "a3", Email: "ana@holaprime.com", VerifiedAt: 3, Ctime: 3, Mtime: 3}
	require.ErrorIs(t, accounts.UpsertRegistered(ctx, again), appErr.ErrConflict)

	require.ErrorIs(t, accounts.UpdatePassword(ctx, "a1", "h2", 0, 4), appErr.ErrConflict)
	require.NoError(t, accounts.UpdatePassword(ctx, "a1", "h2", 1, 4))
	require.NoError(t, accounts.ResetPassword(ctx, "ana@holaprime.com", "h3", 5))

	acc, err := accounts.GetByID(ctx, "a1")
	require.NoError(t, err)
	require.Equal(t, "h3", acc.PasswordHash)
	require.Equal(t, int64(3), acc.SessionVersion)
	require.Equal(t, int64(2), acc.VerifiedAt)

	require.NoError(t, accounts.Delete(ctx, "ana@holaprime.com"))
	_, err = accounts.GetByEmail(ctx, "ana@holaprime.com")
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestPostgresVerificationLifecycle(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	records := NewVerificationRepo(conn)

	require.NoError(t, records.Upsert(ctx, &model.VerificationRecord{Email: "ana@holaprime.com", Purpose: model.PurposeRegister, CodeHash: "h1", Token: "t1", IssuedAt: 10}))
	require.NoError(t, records.Upsert(ctx, &model.VerificationRecord{Email: "ana@holaprime.com", Purpose: model.PurposeReset, CodeHash: "h2", Token: "t2", IssuedAt: 20}))

	rec, err := records.GetByEmail(ctx, "ana@holaprime.com")
	require.NoError(t, err)
	require.Equal(t, model.PurposeReset, rec.Purpose)

	won, err := records.DeleteIssued(ctx, "ana@holaprime.com", "h1")
	require.NoError(t, err)
	require.False(t, won)
	won, err = records.DeleteIssued(ctx, "ana@holaprime.com", "h2")
	require.NoError(t, err)
	require.True(t, won)

	require.NoError(t, records.Upsert(ctx, &model.VerificationRecord{Email: "old@holaprime.com", Purpose: model.PurposeRegister, CodeHash: "h", Token: "t", IssuedAt: 1}))
	n, err := records.DeleteExpiredBefore(ctx, 5)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}
