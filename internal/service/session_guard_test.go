package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/idgate/internal/model"
	appErr "github.com/xxxsen/idgate/internal/pkg/errors"
	"github.com/xxxsen/idgate/internal/pkg/jwt"
)

func loginSession(t *testing.T, f *fixture) *Session {
	t.Helper()
	f.register(t, "ana@holaprime.com", "Secret123!")
	sess, err := f.auth.Login(f.ctx, "ana@holaprime.com", "Secret123!")
	require.NoError(t, err)
	return sess
}

func TestValidateLiveAccount(t *testing.T) {
	f := newFixture(t)
	sess := loginSession(t, f)
	f.clock.Advance(time.Hour)

	principal, err := f.sessions.Validate(f.ctx, sess.Token)
	require.NoError(t, err)
	require.Equal(t, sess.Principal.AccountID, principal.AccountID)
	require.Equal(t, "ana@holaprime.com", principal.Email)
	require.Equal(t, sess.Principal.IssuedAt, principal.IssuedAt)
}

func TestValidateRefreshesRole(t *testing.T) {
	f := newFixture(t)
	sess := loginSession(t, f)
	require.NoError(t, f.admin.SetRole(f.ctx, "ana@holaprime.com", model.RoleAdmin))

	principal, err := f.sessions.Validate(f.ctx, sess.Token)
	require.NoError(t, err)
	require.Equal(t, model.RoleAdmin, principal.Role)
}

func TestValidateDeletedAccount(t *testing.T) {
	f := newFixture(t)
	sess := loginSession(t, f)
	require.NoError(t, f.admin.Delete(f.ctx, "ana@holaprime.com"))

	principal, err := f.sessions.Validate(f.ctx, sess.Token)
	require.ErrorIs(t, err, appErr.ErrUnauthorized)
	require.Nil(t, principal)
}

func TestValidateExpiredToken(t *testing.T) {
	f := newFixture(t)
	sess := loginSession(t, f)
	f.clock.Advance(72*time.Hour + time.Second)

	_, err := f.sessions.Validate(f.ctx, sess.Token)
	require.ErrorIs(t, err, appErr.ErrUnauthorized)
}

func TestValidateFailsClosedOnStoreError(t *testing.T) {
	f := newFixture(t)
	sess := loginSession(t, f)
	f.wire(failingAccounts{AccountStore: f.accounts, err: errStoreDown}, f.records)

	_, err := f.sessions.Validate(f.ctx, sess.Token)
	require.ErrorIs(t, err, appErr.ErrUnauthorized)
}

func TestValidateRejectsForeignTokens(t *testing.T) {
	f := newFixture(t)
	sess := loginSession(t, f)

	proof, err := f.passwords.VerifyCurrent(f.ctx, sess.Principal.AccountID, "Secret123!")
	require.NoError(t, err)
	ticket, err := f.passwords.SealReauth(proof)
	require.NoError(t, err)

	forged, err := jwt.Sign(jwt.Claims{UserID: sess.Principal.AccountID, Email: "ana@holaprime.com", Purpose: "session"},
		[]byte("other-secret"), f.clock.Now(), time.Hour)
	require.NoError(t, err)

	for name, token := range map[string]string{"reauth ticket": ticket, "wrong key": forged, "garbage": "x.y.z", "empty": ""} {
		t.Run(name, func(t *testing.T) {
			_, err := f.sessions.Validate(f.ctx, token)
			require.ErrorIs(t, err, appErr.ErrUnauthorized)
		})
	}
}

func TestRevokeAll(t *testing.T) {
	f := newFixture(t)
	sess := loginSession(t, f)

	require.NoError(t, f.sessions.RevokeAll(f.ctx, sess.Principal.AccountID))
	_, err := f.sessions.Validate(f.ctx, sess.Token)
	require.ErrorIs(t, err, appErr.ErrUnauthorized)

	fresh, err := f.auth.Login(f.ctx, "ana@holaprime.com", "Secret123!")
	require.NoError(t, err)
	_, err = f.sessions.Validate(f.ctx, fresh.Token)
	require.NoError(t, err)

	require.ErrorIs(t, f.sessions.RevokeAll(f.ctx, "missing"), appErr.ErrAccountNotFound)
}
