package repo

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/idgate/internal/model"
	appErr "github.com/xxxsen/idgate/internal/pkg/errors"
)

func TestMemoryAccountRepoUpsertRegistered(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryAccountRepo()

	first := &model.Account{ID: "a1", Email: "ana@holaprime.com", Role: model.RoleViewer, Ctime: 10}
	require.NoError(t, repo.UpsertRegistered(ctx, first))

	second := &model.Account{ID: "a2", Email: "ana@holaprime.com", Role: model.RoleViewer, VerifiedAt: 20, Ctime: 20}
	require.NoError(t, repo.UpsertRegistered(ctx, second))
	require.Equal(t, "a1", second.ID)
	require.Equal(t, int64(10), second.Ctime)
	require.Equal(t, int64(1), second.SessionVersion)

	third := &model.Account{ID: "a3", Email: "ana@holaprime.com", VerifiedAt: 30}
	require.ErrorIs(t, repo.UpsertRegistered(ctx, third), appErr.ErrConflict)

	got, err := repo.GetByID(ctx, "a1")
	require.NoError(t, err)
	require.Equal(t, int64(20), got.VerifiedAt)
}

func TestMemoryAccountRepoReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryAccountRepo()
	require.NoError(t, repo.CreateFederated(ctx, &model.Account{ID: "f1", Email: "ana@holaprime.com", PasswordHash: "ignored"}))

	got, err := repo.GetByEmail(ctx, "ana@holaprime.com")
	require.NoError(t, err)
	require.Empty(t, got.PasswordHash)
	got.Role = model.RoleAdmin

	again, err := repo.GetByEmail(ctx, "ana@holaprime.com")
	require.NoError(t, err)
	require.NotEqual(t, model.RoleAdmin, again.Role)

	require.ErrorIs(t, repo.CreateFederated(ctx, &model.Account{ID: "f2", Email: "ana@holaprime.com"}), appErr.ErrConflict)
}

func TestMemoryAccountRepoPasswordWrites(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryAccountRepo()
	require.NoError(t, repo.UpsertRegistered(ctx, &model.Account{ID: "a1", Email: "ana@holaprime.com", PasswordHash: "h0"}))

	require.ErrorIs(t, repo.UpdatePassword(ctx, "a1", "h1", 5, 1), appErr.ErrConflict)
	require.ErrorIs(t, repo.UpdatePassword(ctx, "nope", "h1", 0, 1), appErr.ErrNotFound)
	require.NoError(t, repo.UpdatePassword(ctx, "a1", "h1", 0, 1))

	acc, err := repo.GetByID(ctx, "a1")
	require.NoError(t, err)
	require.Equal(t, "h1", acc.PasswordHash)
	require.Equal(t, int64(1), acc.SessionVersion)
	require.False(t, acc.IsVerified())

	require.NoError(t, repo.ResetPassword(ctx, "ana@holaprime.com", "h2", 50))
	acc, err = repo.GetByID(ctx, "a1")
	require.NoError(t, err)
	require.Equal(t, int64(2), acc.SessionVersion)
	require.Equal(t, int64(50), acc.VerifiedAt)
	require.ErrorIs(t, repo.ResetPassword(ctx, "ghost@holaprime.com", "h", 1), appErr.ErrNotFound)
}

func TestMemoryAccountRepoAdmin(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryAccountRepo()
	require.NoError(t, repo.UpsertRegistered(ctx, &model.Account{ID: "a1", Email: "ana@holaprime.com", Role: model.RoleViewer}))

	require.NoError(t, repo.MarkVerified(ctx, "a1", 7))
	require.NoError(t, repo.MarkVerified(ctx, "a1", 9))
	acc, err := repo.GetByID(ctx, "a1")
	require.NoError(t, err)
	require.Equal(t, int64(7), acc.VerifiedAt)

	require.NoError(t, repo.BumpSessionVersion(ctx, "a1", 8))
	acc, err = repo.GetByID(ctx, "a1")
	require.NoError(t, err)
	require.Equal(t, int64(1), acc.SessionVersion)
	require.ErrorIs(t, repo.BumpSessionVersion(ctx, "ghost", 8), appErr.ErrNotFound)

	require.NoError(t, repo.SetRole(ctx, "ana@holaprime.com", model.RoleEditor, 8))
	require.ErrorIs(t, repo.SetRole(ctx, "ghost@holaprime.com", model.RoleEditor, 8), appErr.ErrNotFound)
	require.NoError(t, repo.Delete(ctx, "ana@holaprime.com"))
	require.ErrorIs(t, repo.Delete(ctx, "ana@holaprime.com"), appErr.ErrNotFound)
	_, err = repo.GetByID(ctx, "a1")
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestMemoryVerificationRepoSingleWinner(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryVerificationRepo()
	require.NoError(t, repo.Upsert(ctx, &model.VerificationRecord{Email: "ana@holaprime.com", CodeHash: "h", IssuedAt: 1}))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			won, err := repo.DeleteIssued(ctx, "ana@holaprime.com", "h")
			require.NoError(t, err)
			if won {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, wins)
}

func TestMemoryVerificationRepoOverwriteAndPurge(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryVerificationRepo()
	require.NoError(t, repo.Upsert(ctx, &model.VerificationRecord{Email: "ana@holaprime.com", CodeHash: "old", IssuedAt: 1}))
	require.NoError(t, repo.Upsert(ctx, &model.VerificationRecord{Email: "ana@holaprime.com", CodeHash: "new", IssuedAt: 5}))
	require.NoError(t, repo.Upsert(ctx, &model.VerificationRecord{Email: "bob@holaprime.com", CodeHash: "b", IssuedAt: 2}))

	won, err := repo.DeleteIssued(ctx, "ana@holaprime.com", "old")
	require.NoError(t, err)
	require.False(t, won)

	n, err := repo.DeleteExpiredBefore(ctx, 3)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	rec, err := repo.GetByEmail(ctx, "ana@holaprime.com")
	require.NoError(t, err)
	require.Equal(t, "new", rec.CodeHash)
	_, err = repo.GetByEmail(ctx, "bob@holaprime.com")
	require.ErrorIs(t, err, appErr.ErrNotFound)
}
