package service

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/idgate/internal/model"
	appErr "github.com/xxxsen/idgate/internal/pkg/errors"
)

func TestRegisterAndLoginScenario(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.auth.SendRegisterCode(f.ctx, "ana@holaprime.com"))
	require.Equal(t, "482913", f.mailer.last(t).Code)

	f.clock.Advance(9 * time.Minute)
	acc, err := f.auth.FinalizeRegistration(f.ctx, RegisterInput{
		Email: "ana@holaprime.com", Code: "482913", DisplayName: "Ana", Password: "Secret123!",
	})
	require.NoError(t, err)
	require.Equal(t, model.ProviderCredentials, acc.Provider)
	require.Equal(t, model.RoleViewer, acc.Role)
	require.True(t, acc.IsVerified())
	require.NotEmpty(t, acc.PasswordHash)
	require.NotEqual(t, "Secret123!", acc.PasswordHash)

	stored, err := f.accounts.GetByEmail(f.ctx, "ana@holaprime.com")
	require.NoError(t, err)
	require.Equal(t, acc.ID, stored.ID)
	require.True(t, stored.IsVerified())

	sess, err := f.auth.Login(f.ctx, "ana@holaprime.com", "Secret123!")
	require.NoError(t, err)
	require.NotEmpty(t, sess.Token)
	require.Equal(t, acc.ID, sess.Principal.AccountID)
	require.Equal(t, model.ProviderCredentials, sess.Principal.Provider)

	_, err = f.auth.Login(f.ctx, "ana@holaprime.com", "secret123!")
	require.ErrorIs(t, err, appErr.ErrInvalidCredentials)
}

func TestRegisterDomainNotAllowedWritesNothing(t *testing.T) {
	f := newFixture(t)
	require.ErrorIs(t, f.auth.SendRegisterCode(f.ctx, "bob@other.com"), appErr.ErrDomainNotAllowed)
	_, err := f.records.GetByEmail(f.ctx, "bob@other.com")
	require.ErrorIs(t, err, appErr.ErrNotFound)

	_, err = f.auth.FinalizeRegistration(f.ctx, RegisterInput{
		Email: "bob@other.com", Code: "482913", DisplayName: "Bob", Password: "Secret123!",
	})
	require.ErrorIs(t, err, appErr.ErrDomainNotAllowed)
}

func TestFinalizeOverwritesUnverifiedAccount(t *testing.T) {
	f := newFixture(t)
	pending := f.seedUnverified(t, "ana@holaprime.com", "OldPassword1")

	require.NoError(t, f.auth.SendRegisterCode(f.ctx, "ana@holaprime.com"))
	acc, err := f.auth.FinalizeRegistration(f.ctx, RegisterInput{
		Email: "ana@holaprime.com", Code: "482913", DisplayName: "Ana", Password: "Secret123!",
	})
	require.NoError(t, err)
	require.Equal(t, pending.ID, acc.ID)
	require.Equal(t, "Ana", acc.DisplayName)

	_, err = f.auth.Login(f.ctx, "ana@holaprime.com", "OldPassword1")
	require.ErrorIs(t, err, appErr.ErrInvalidCredentials)
	_, err = f.auth.Login(f.ctx, "ana@holaprime.com", "Secret123!")
	require.NoError(t, err)
}

func TestFinalizeLosesToVerifiedAccount(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.auth.SendRegisterCode(f.ctx, "ana@holaprime.com"))

	// a verified account shows up between issuance and finalization
	_, err := f.auth.SignInFederated(f.ctx, "ana@holaprime.com", "Ana")
	require.NoError(t, err)

	_, err = f.auth.FinalizeRegistration(f.ctx, RegisterInput{
		Email: "ana@holaprime.com", Code: "482913", DisplayName: "Ana", Password: "Secret123!",
	})
	require.ErrorIs(t, err, appErr.ErrAccountAlreadyVerified)
}

func TestFinalizeValidation(t *testing.T) {
	f := newFixture(t)
	cases := map[string]RegisterInput{
		"bad email":     {Email: "ana", Code: "482913", DisplayName: "Ana", Password: "Secret123!"},
		"short code":    {Email: "ana@holaprime.com", Code: "4829", DisplayName: "Ana", Password: "Secret123!"},
		"no name":       {Email: "ana@holaprime.com", Code: "482913", DisplayName: "  ", Password: "Secret123!"},
		"weak password": {Email: "ana@holaprime.com", Code: "482913", DisplayName: "Ana", Password: "short"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.auth.FinalizeRegistration(f.ctx, in)
			require.ErrorIs(t, err, appErr.ErrInvalid)
		})
	}
}

func TestFinalizeRejectsOverlongPasswordBeforeSpendingCode(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.auth.SendRegisterCode(f.ctx, "ana@holaprime.com"))

	_, err := f.auth.FinalizeRegistration(f.ctx, RegisterInput{
		Email: "ana@holaprime.com", Code: "482913", DisplayName: "Ana", Password: strings.Repeat("a", 73),
	})
	require.ErrorIs(t, err, appErr.ErrInvalid)

	longest := strings.Repeat("a", 72)
	_, err = f.auth.FinalizeRegistration(f.ctx, RegisterInput{
		Email: "ana@holaprime.com", Code: "482913", DisplayName: "Ana", Password: longest,
	})
	require.NoError(t, err)
	_, err = f.auth.Login(f.ctx, "ana@holaprime.com", longest)
	require.NoError(t, err)
}

func TestFinalizeWithoutCode(t *testing.T) {
	f := newFixture(t)
	_, err := f.auth.FinalizeRegistration(f.ctx, RegisterInput{
		Email: "ana@holaprime.com", Code: "482913", DisplayName: "Ana", Password: "Secret123!",
	})
	require.ErrorIs(t, err, appErr.ErrInvalidOrExpiredCode)
	_, err = f.accounts.GetByEmail(f.ctx, "ana@holaprime.com")
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestLoginFailures(t *testing.T) {
	f := newFixture(t)
	f.seedUnverified(t, "pending@holaprime.com", "Secret123!")
	_, err := f.auth.SignInFederated(f.ctx, "fed@holaprime.com", "Fed")
	require.NoError(t, err)

	_, err = f.auth.Login(f.ctx, "ghost@holaprime.com", "Secret123!")
	require.ErrorIs(t, err, appErr.ErrInvalidCredentials)
	_, err = f.auth.Login(f.ctx, "fed@holaprime.com", "")
	require.ErrorIs(t, err, appErr.ErrInvalidCredentials)
	_, err = f.auth.Login(f.ctx, "pending@holaprime.com", "wrong-password")
	require.ErrorIs(t, err, appErr.ErrInvalidCredentials)
	_, err = f.auth.Login(f.ctx, "pending@holaprime.com", "Secret123!")
	require.ErrorIs(t, err, appErr.ErrEmailNotVerified)
	_, err = f.auth.Login(f.ctx, "bob@other.com", "Secret123!")
	require.ErrorIs(t, err, appErr.ErrDomainNotAllowed)
}

func TestLoginStoreFailure(t *testing.T) {
	f := newFixture(t)
	f.wire(failingAccounts{AccountStore: f.accounts, err: errStoreDown}, f.records)

	_, err := f.auth.Login(f.ctx, "ana@holaprime.com", "Secret123!")
	require.ErrorIs(t, err, appErr.ErrPersistenceUnavailable)
}

func TestSignInFederated(t *testing.T) {
	f := newFixture(t)
	sess, err := f.auth.SignInFederated(f.ctx, "Fed@HolaPrime.com", "")
	require.NoError(t, err)
	require.Equal(t, model.ProviderFederated, sess.Principal.Provider)
	require.Equal(t, "fed@holaprime.com", sess.Principal.Email)

	acc, err := f.accounts.GetByEmail(f.ctx, "fed@holaprime.com")
	require.NoError(t, err)
	require.True(t, acc.IsVerified())
	require.False(t, acc.HasPassword())
	require.Equal(t, "fed", acc.DisplayName)

	again, err := f.auth.SignInFederated(f.ctx, "fed@holaprime.com", "Other")
	require.NoError(t, err)
	require.Equal(t, acc.ID, again.Principal.AccountID)

	_, err = f.auth.SignInFederated(f.ctx, "fed@other.com", "x")
	require.ErrorIs(t, err, appErr.ErrDomainNotAllowed)
}

func TestSignInFederatedVerifiesPendingAccount(t *testing.T) {
	f := newFixture(t)
	pending := f.seedUnverified(t, "ana@holaprime.com", "Secret123!")

	sess, err := f.auth.SignInFederated(f.ctx, "ana@holaprime.com", "Ana")
	require.NoError(t, err)
	require.Equal(t, pending.ID, sess.Principal.AccountID)
	require.Equal(t, model.ProviderCredentials, sess.Principal.Provider)

	_, err = f.auth.Login(f.ctx, "ana@holaprime.com", "Secret123!")
	require.NoError(t, err)
}

func TestSignInFederatedRetriesConflictOnce(t *testing.T) {
	f := newFixture(t)
	store := &conflictingAccounts{AccountStore: f.accounts}
	f.wire(store, f.records)

	_, err := f.auth.SignInFederated(f.ctx, "fed@holaprime.com", "Fed")
	require.ErrorIs(t, err, appErr.ErrPersistenceUnavailable)
	require.ErrorIs(t, err, appErr.ErrConflict)
	require.Equal(t, 2, store.inserts)
}
