package service_test

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/aussiebroadwan/uome/internal/group/service"
	"github.com/aussiebroadwan/uome/internal/group/store"
	"github.com/aussiebroadwan/uome/internal/group/store/drivers/sqlite"
	"github.com/aussiebroadwan/uome/pkg/cryptox"
	"github.com/aussiebroadwan/uome/pkg/wire"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()

	st, err := sqlite.NewStore("file:" + filepath.Join(t.TempDir(), "group.db"))
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	return st
}

func newKeyPair(t *testing.T) *cryptox.KeyPair {
	t.Helper()
	kp, err := cryptox.GenerateKeyPair()
	require.NoError(t, err)
	return kp
}

// fakeLedger stands in for the ledger authority. It signs acknowledgements
// with a real key so signature verification on our side is exercised.
type fakeLedger struct {
	keys      *cryptox.KeyPair
	groupUUID string

	joined []cryptox.Identity
}

func (f *fakeLedger) RegisterGroup(_ context.Context, name string, key cryptox.Identity, _ []byte) (string, []byte, error) {
	mainSig, err := wire.Sign(f.keys, wire.KindRegisterGroup, wire.SigMain, wire.Values{
		"group_uuid": f.groupUUID,
		"group_name": name,
		"group_key":  string(key),
	})
	return f.groupUUID, mainSig, err
}

func (f *fakeLedger) MainJoin(_ context.Context, groupUUID string, user cryptox.Identity, _ []byte) ([]byte, error) {
	f.joined = append(f.joined, user)
	return wire.Sign(f.keys, wire.KindMainJoin, wire.SigMain, wire.Values{
		"group_uuid": groupUUID,
		"user":       user,
	})
}

// captureMailer records sent invitations instead of delivering them.
type captureMailer struct {
	email  string
	secret string
	sent   int
}

func (m *captureMailer) SendInvitation(_ context.Context, email string, _ cryptox.Identity, secretCode string) error {
	m.email = email
	m.secret = secretCode
	m.sent++
	return nil
}

type env struct {
	st        store.Store
	groupKeys *cryptox.KeyPair
	ledger    *fakeLedger
	mailer    *captureMailer
	founder   *cryptox.KeyPair
	groupUUID string

	invites *service.InviteService
	joins   *service.JoinService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()

	e := &env{
		st:        newTestStore(t),
		groupKeys: newKeyPair(t),
		founder:   newKeyPair(t),
		mailer:    &captureMailer{},
	}
	e.ledger = &fakeLedger{keys: newKeyPair(t), groupUUID: uuid.NewString()}

	registrar := &service.RegistrarService{
		Store:           e.st,
		Signer:          e.groupKeys,
		Ledger:          e.ledger,
		Logger:          slog.Default(),
		GroupName:       "flat 42",
		LedgerIdentity:  e.ledger.keys.Identity(),
		FounderIdentity: e.founder.Identity(),
		FounderEmail:    "founder@example.com",
	}
	groupUUID, err := registrar.EnsureRegistered(ctx)
	require.NoError(t, err)
	e.groupUUID = groupUUID

	e.invites = &service.InviteService{Store: e.st, Signer: e.groupKeys, Mailer: e.mailer}
	e.joins = &service.JoinService{
		Store:          e.st,
		Signer:         e.groupKeys,
		Ledger:         e.ledger,
		LedgerIdentity: e.ledger.keys.Identity(),
	}

	return e
}

func (e *env) inviterSig(t *testing.T, inviter *cryptox.KeyPair, invitee cryptox.Identity, email string) []byte {
	t.Helper()
	sig, err := wire.Sign(inviter, wire.KindInvite, wire.SigInviter, wire.Values{
		"group_uuid":    e.groupUUID,
		"inviter":       inviter.Identity(),
		"invitee":       invitee,
		"invitee_email": email,
	})
	require.NoError(t, err)
	return sig
}

func (e *env) joinSig(t *testing.T, user *cryptox.KeyPair, secretCode string) []byte {
	t.Helper()
	sig, err := wire.Sign(user, wire.KindJoin, wire.SigUser, wire.Values{
		"group_uuid":  e.groupUUID,
		"user":        user.Identity(),
		"secret_code": secretCode,
	})
	require.NoError(t, err)
	return sig
}

func TestEnsureRegistered(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("stores the assigned uuid and seeds the founder", func(t *testing.T) {
		e := newEnv(t)

		stored, err := e.st.Meta().Get(ctx, store.MetaGroupUUID)
		require.NoError(t, err)
		require.Equal(t, e.ledger.groupUUID, stored)

		member, err := e.st.Members().GetMember(ctx, e.founder.Identity())
		require.NoError(t, err)
		require.True(t, member.Confirmed)
		require.Contains(t, e.ledger.joined, e.founder.Identity())
	})

	t.Run("is idempotent across restarts", func(t *testing.T) {
		e := newEnv(t)

		registrar := &service.RegistrarService{
			Store:           e.st,
			Signer:          e.groupKeys,
			Ledger:          e.ledger,
			Logger:          slog.Default(),
			GroupName:       "flat 42",
			LedgerIdentity:  e.ledger.keys.Identity(),
			FounderIdentity: e.founder.Identity(),
		}
		groupUUID, err := registrar.EnsureRegistered(ctx)
		require.NoError(t, err)
		require.Equal(t, e.groupUUID, groupUUID)
	})

	t.Run("rejects a forged ledger acknowledgement", func(t *testing.T) {
		st := newTestStore(t)
		groupKeys := newKeyPair(t)
		ledger := &fakeLedger{keys: newKeyPair(t), groupUUID: uuid.NewString()}

		registrar := &service.RegistrarService{
			Store:          st,
			Signer:         groupKeys,
			Ledger:         ledger,
			Logger:         slog.Default(),
			GroupName:      "flat 42",
			LedgerIdentity: newKeyPair(t).Identity(), // pinned to the wrong key
		}
		_, err := registrar.EnsureRegistered(context.Background())
		require.ErrorIs(t, err, cryptox.ErrInvalidSignature)
	})
}

func TestInvite(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("confirmed member invites a newcomer", func(t *testing.T) {
		e := newEnv(t)
		newcomer := newKeyPair(t)

		sig := e.inviterSig(t, e.founder, newcomer.Identity(), "new@example.com")
		groupSig, err := e.invites.Invite(ctx, e.groupUUID, e.founder.Identity(), newcomer.Identity(), "new@example.com", sig)
		require.NoError(t, err)

		require.NoError(t, wire.Verify(e.groupKeys.Identity(), wire.KindInvite, wire.SigGroup, groupSig, wire.Values{
			"group_uuid":    e.groupUUID,
			"inviter":       e.founder.Identity(),
			"invitee":       newcomer.Identity(),
			"invitee_email": "new@example.com",
		}))

		require.Equal(t, 1, e.mailer.sent)
		require.Equal(t, "new@example.com", e.mailer.email)
		require.NotEmpty(t, e.mailer.secret)

		invitation, err := e.st.Invitations().GetActiveByInvitee(ctx, newcomer.Identity())
		require.NoError(t, err)
		require.Equal(t, e.founder.Identity(), invitation.Inviter)
		require.False(t, invitation.Used)
	})

	t.Run("unconfirmed identities cannot invite", func(t *testing.T) {
		e := newEnv(t)
		stranger := newKeyPair(t)
		newcomer := newKeyPair(t)

		sig := e.inviterSig(t, stranger, newcomer.Identity(), "new@example.com")
		_, err := e.invites.Invite(ctx, e.groupUUID, stranger.Identity(), newcomer.Identity(), "new@example.com", sig)
		require.ErrorIs(t, err, service.ErrInviterNotMember)
	})

	t.Run("confirmed members cannot be re-invited", func(t *testing.T) {
		e := newEnv(t)

		sig := e.inviterSig(t, e.founder, e.founder.Identity(), "founder@example.com")
		_, err := e.invites.Invite(ctx, e.groupUUID, e.founder.Identity(), e.founder.Identity(), "founder@example.com", sig)
		require.ErrorIs(t, err, service.ErrInviteeAlreadyMember)
	})

	t.Run("rejects a signature over different terms", func(t *testing.T) {
		e := newEnv(t)
		newcomer := newKeyPair(t)

		sig := e.inviterSig(t, e.founder, newcomer.Identity(), "new@example.com")
		_, err := e.invites.Invite(ctx, e.groupUUID, e.founder.Identity(), newcomer.Identity(), "other@example.com", sig)
		require.ErrorIs(t, err, cryptox.ErrInvalidSignature)
	})

	t.Run("rejects a foreign group uuid", func(t *testing.T) {
		e := newEnv(t)
		newcomer := newKeyPair(t)

		_, err := e.invites.Invite(ctx, uuid.NewString(), e.founder.Identity(), newcomer.Identity(), "new@example.com", nil)
		require.ErrorIs(t, err, service.ErrWrongGroup)
	})
}

func TestJoinAndConfirm(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	invite := func(t *testing.T, e *env, newcomer *cryptox.KeyPair) string {
		t.Helper()
		sig := e.inviterSig(t, e.founder, newcomer.Identity(), "new@example.com")
		_, err := e.invites.Invite(ctx, e.groupUUID, e.founder.Identity(), newcomer.Identity(), "new@example.com", sig)
		require.NoError(t, err)
		return e.mailer.secret
	}

	t.Run("full chain confirms the member", func(t *testing.T) {
		e := newEnv(t)
		newcomer := newKeyPair(t)
		secret := invite(t, e, newcomer)

		invitation, groupSig, err := e.joins.Join(ctx, e.groupUUID, newcomer.Identity(), secret, e.joinSig(t, newcomer, secret))
		require.NoError(t, err)
		require.Equal(t, e.founder.Identity(), invitation.Inviter)

		// The invitee verifies the chain before signing over it.
		require.NoError(t, wire.Verify(e.founder.Identity(), wire.KindInvite, wire.SigInviter, invitation.InviterSignature, wire.Values{
			"group_uuid":    e.groupUUID,
			"inviter":       e.founder.Identity(),
			"invitee":       newcomer.Identity(),
			"invitee_email": invitation.InviteeEmail,
		}))
		require.NoError(t, wire.Verify(e.groupKeys.Identity(), wire.KindJoin, wire.SigGroup, groupSig, wire.Values{
			"inviter_signature": invitation.InviterSignature,
		}))

		userSig, err := wire.Sign(newcomer, wire.KindConfirmJoin, wire.SigUser, wire.Values{
			"group_uuid":      e.groupUUID,
			"user":            newcomer.Identity(),
			"group_signature": groupSig,
		})
		require.NoError(t, err)

		mainSig, err := e.joins.ConfirmJoin(ctx, e.groupUUID, newcomer.Identity(), groupSig, userSig)
		require.NoError(t, err)
		require.NoError(t, wire.Verify(e.ledger.keys.Identity(), wire.KindMainJoin, wire.SigMain, mainSig, wire.Values{
			"group_uuid": e.groupUUID,
			"user":       newcomer.Identity(),
		}))

		member, err := e.st.Members().GetMember(ctx, newcomer.Identity())
		require.NoError(t, err)
		require.True(t, member.Confirmed)
		require.Contains(t, e.ledger.joined, newcomer.Identity())
	})

	t.Run("wrong secret is rejected", func(t *testing.T) {
		e := newEnv(t)
		newcomer := newKeyPair(t)
		invite(t, e, newcomer)

		_, _, err := e.joins.Join(ctx, e.groupUUID, newcomer.Identity(), "not-the-secret", e.joinSig(t, newcomer, "not-the-secret"))
		require.ErrorIs(t, err, service.ErrSecretMismatch)
	})

	t.Run("secret is single-use", func(t *testing.T) {
		e := newEnv(t)
		newcomer := newKeyPair(t)
		secret := invite(t, e, newcomer)

		_, _, err := e.joins.Join(ctx, e.groupUUID, newcomer.Identity(), secret, e.joinSig(t, newcomer, secret))
		require.NoError(t, err)

		_, _, err = e.joins.Join(ctx, e.groupUUID, newcomer.Identity(), secret, e.joinSig(t, newcomer, secret))
		require.ErrorIs(t, err, service.ErrInvitationUsed)
	})

	t.Run("join without invitation", func(t *testing.T) {
		e := newEnv(t)
		stranger := newKeyPair(t)

		_, _, err := e.joins.Join(ctx, e.groupUUID, stranger.Identity(), "whatever", e.joinSig(t, stranger, "whatever"))
		require.ErrorIs(t, err, service.ErrInvitationNotFound)
	})

	t.Run("confirm before redeeming the secret", func(t *testing.T) {
		e := newEnv(t)
		newcomer := newKeyPair(t)
		invite(t, e, newcomer)

		_, err := e.joins.ConfirmJoin(ctx, e.groupUUID, newcomer.Identity(), nil, nil)
		require.ErrorIs(t, err, service.ErrNotInvited)
	})

	t.Run("confirm with a foreign countersignature", func(t *testing.T) {
		e := newEnv(t)
		newcomer := newKeyPair(t)
		secret := invite(t, e, newcomer)

		invitation, _, err := e.joins.Join(ctx, e.groupUUID, newcomer.Identity(), secret, e.joinSig(t, newcomer, secret))
		require.NoError(t, err)

		forged, err := wire.Sign(newKeyPair(t), wire.KindJoin, wire.SigGroup, wire.Values{
			"inviter_signature": invitation.InviterSignature,
		})
		require.NoError(t, err)

		_, err = e.joins.ConfirmJoin(ctx, e.groupUUID, newcomer.Identity(), forged, nil)
		require.ErrorIs(t, err, cryptox.ErrInvalidSignature)
	})
}
