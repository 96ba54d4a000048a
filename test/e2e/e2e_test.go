// Package e2e wires both authorities together in-process and drives them
// through the SDK, exactly as a member's client would over the network.
package e2e

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	groupapi "github.com/aussiebroadwan/uome/internal/group/http"
	groupservice "github.com/aussiebroadwan/uome/internal/group/service"
	groupsqlite "github.com/aussiebroadwan/uome/internal/group/store/drivers/sqlite"
	ledgerapi "github.com/aussiebroadwan/uome/internal/ledger/http"
	ledgerservice "github.com/aussiebroadwan/uome/internal/ledger/service"
	ledgersqlite "github.com/aussiebroadwan/uome/internal/ledger/store/drivers/sqlite"
	"github.com/aussiebroadwan/uome/pkg/cryptox"
	"github.com/aussiebroadwan/uome/pkg/uomesdk"

	"github.com/stretchr/testify/require"
)

// captureMailer lets the test read the secret a real deployment would email.
type captureMailer struct {
	secret string
}

func (m *captureMailer) SendInvitation(_ context.Context, _ string, _ cryptox.Identity, secretCode string) error {
	m.secret = secretCode
	return nil
}

// world is a ledger authority and one group authority registered against it,
// both served over loopback HTTP.
type world struct {
	groupUUID string
	mainKeys  *cryptox.KeyPair
	groupKeys *cryptox.KeyPair
	mailer    *captureMailer

	ledgerURL string
	groupURL  string

	founder *uomesdk.Member
}

func newWorld(t *testing.T) *world {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	w := &world{mailer: &captureMailer{}}

	var err error
	w.mainKeys, err = cryptox.GenerateKeyPair()
	require.NoError(t, err)
	w.groupKeys, err = cryptox.GenerateKeyPair()
	require.NoError(t, err)
	founderKeys, err := cryptox.GenerateKeyPair()
	require.NoError(t, err)

	// Ledger authority.
	lst, err := ledgersqlite.NewStore("file:" + filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	require.NoError(t, lst.ApplyMigrations())
	t.Cleanup(func() { _ = lst.Close() })

	ledgerRouter := ledgerapi.NewRouter("test", lst, logger)
	ledgerRouter.RegistryService = &ledgerservice.RegistryService{Store: lst, Signer: w.mainKeys}
	ledgerRouter.MembershipService = &ledgerservice.MembershipService{Store: lst, Signer: w.mainKeys}
	ledgerRouter.UOMeService = &ledgerservice.UOMeService{Store: lst, Signer: w.mainKeys}
	ledgerRouter.QueryService = &ledgerservice.QueryService{Store: lst}
	ledgerRouter.ApplyRoutes()

	ledgerSrv := httptest.NewServer(ledgerRouter)
	t.Cleanup(ledgerSrv.Close)
	w.ledgerURL = ledgerSrv.URL

	// Group authority, registering with the ledger on startup.
	gst, err := groupsqlite.NewStore("file:" + filepath.Join(t.TempDir(), "group.db"))
	require.NoError(t, err)
	require.NoError(t, gst.ApplyMigrations())
	t.Cleanup(func() { _ = gst.Close() })

	ledgerClient := uomesdk.NewClient(ledgerSrv.URL)
	registrar := &groupservice.RegistrarService{
		Store:           gst,
		Signer:          w.groupKeys,
		Ledger:          ledgerClient,
		Logger:          logger,
		GroupName:       "flat 42",
		LedgerIdentity:  w.mainKeys.Identity(),
		FounderIdentity: founderKeys.Identity(),
		FounderEmail:    "founder@example.com",
	}
	w.groupUUID, err = registrar.EnsureRegistered(ctx)
	require.NoError(t, err)

	groupRouter := groupapi.NewRouter("test", gst, logger)
	groupRouter.InviteService = &groupservice.InviteService{Store: gst, Signer: w.groupKeys, Mailer: w.mailer}
	groupRouter.JoinService = &groupservice.JoinService{
		Store:          gst,
		Signer:         w.groupKeys,
		Ledger:         ledgerClient,
		LedgerIdentity: w.mainKeys.Identity(),
	}
	groupRouter.ApplyRoutes()

	groupSrv := httptest.NewServer(groupRouter)
	t.Cleanup(groupSrv.Close)
	w.groupURL = groupSrv.URL

	w.founder = w.member(founderKeys)
	return w
}

func (w *world) member(keys *cryptox.KeyPair) *uomesdk.Member {
	return &uomesdk.Member{
		Group:          uomesdk.NewClient(w.groupURL),
		Ledger:         uomesdk.NewClient(w.ledgerURL),
		Keys:           keys,
		GroupIdentity:  w.groupKeys.Identity(),
		LedgerIdentity: w.mainKeys.Identity(),
	}
}

// admit runs the full invite, join, confirm chain for a fresh identity.
func (w *world) admit(t *testing.T, inviter *uomesdk.Member, email string) *uomesdk.Member {
	t.Helper()
	ctx := context.Background()

	keys, err := cryptox.GenerateKeyPair()
	require.NoError(t, err)
	m := w.member(keys)

	require.NoError(t, inviter.Invite(ctx, w.groupUUID, m.Identity(), email))
	res, err := m.Join(ctx, w.groupUUID, w.mailer.secret)
	require.NoError(t, err)
	require.Equal(t, inviter.Identity(), res.Inviter)
	require.NoError(t, m.ConfirmJoin(ctx, w.groupUUID, res.GroupSignature))

	return m
}

// settle drives one UOMe from issue through accept.
func settle(t *testing.T, groupUUID string, lender, borrower *uomesdk.Member, value int64, description string) {
	t.Helper()
	ctx := context.Background()

	entry, err := lender.Issue(ctx, groupUUID, borrower.Identity(), value, description)
	require.NoError(t, err)
	require.NoError(t, lender.Confirm(ctx, entry))
	require.NoError(t, borrower.Accept(ctx, entry))
}

func TestJoinChain(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	w := newWorld(t)

	bob := w.admit(t, w.founder, "bob@example.com")

	t.Run("admitted members can transact", func(t *testing.T) {
		settle(t, w.groupUUID, w.founder, bob, 100, "welcome beer")

		balance, _, err := bob.Totals(ctx, w.groupUUID)
		require.NoError(t, err)
		require.Equal(t, int64(-100), balance)
	})

	t.Run("secrets are single-use", func(t *testing.T) {
		keys, err := cryptox.GenerateKeyPair()
		require.NoError(t, err)
		carol := w.member(keys)

		require.NoError(t, w.founder.Invite(ctx, w.groupUUID, carol.Identity(), "carol@example.com"))
		secret := w.mailer.secret

		_, err = carol.Join(ctx, w.groupUUID, secret)
		require.NoError(t, err)

		_, err = carol.Join(ctx, w.groupUUID, secret)
		var apiErr *uomesdk.APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, http.StatusConflict, apiErr.StatusCode)
	})

	t.Run("wrong secret is refused", func(t *testing.T) {
		keys, err := cryptox.GenerateKeyPair()
		require.NoError(t, err)
		dave := w.member(keys)

		require.NoError(t, w.founder.Invite(ctx, w.groupUUID, dave.Identity(), "dave@example.com"))

		_, err = dave.Join(ctx, w.groupUUID, "not-the-secret")
		var apiErr *uomesdk.APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	})

	t.Run("strangers cannot invite", func(t *testing.T) {
		keys, err := cryptox.GenerateKeyPair()
		require.NoError(t, err)
		stranger := w.member(keys)

		err = stranger.Invite(ctx, w.groupUUID, cryptox.Identity("whoever"), "x@example.com")
		var apiErr *uomesdk.APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	})
}

func TestUOMeLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	w := newWorld(t)
	bob := w.admit(t, w.founder, "bob@example.com")

	t.Run("issued then confirmed then accepted", func(t *testing.T) {
		entry, err := w.founder.Issue(ctx, w.groupUUID, bob.Identity(), 300, "groceries")
		require.NoError(t, err)
		require.NotEmpty(t, entry.UOMeUUID)

		// Before confirmation the borrower has nothing actionable.
		_, waitingOnUser, err := bob.Pending(ctx, w.groupUUID)
		require.NoError(t, err)
		require.Empty(t, waitingOnUser)

		require.NoError(t, w.founder.Confirm(ctx, entry))

		_, waitingOnUser, err = bob.Pending(ctx, w.groupUUID)
		require.NoError(t, err)
		require.Len(t, waitingOnUser, 1)
		require.Equal(t, "groceries", waitingOnUser[0].Description)

		require.NoError(t, bob.Accept(ctx, waitingOnUser[0]))

		lenderBalance, _, err := w.founder.Totals(ctx, w.groupUUID)
		require.NoError(t, err)
		require.Equal(t, int64(300), lenderBalance)
		borrowerBalance, settlements, err := bob.Totals(ctx, w.groupUUID)
		require.NoError(t, err)
		require.Equal(t, int64(-300), borrowerBalance)
		require.Len(t, settlements, 1)
		require.Equal(t, w.founder.Identity(), settlements[0].Counterparty)
		require.Equal(t, int64(300), settlements[0].Value)
	})

	t.Run("cancelled uomes disappear", func(t *testing.T) {
		entry, err := w.founder.Issue(ctx, w.groupUUID, bob.Identity(), 50, "mistake")
		require.NoError(t, err)
		require.NoError(t, w.founder.Confirm(ctx, entry))
		require.NoError(t, w.founder.Cancel(ctx, w.groupUUID, entry.UOMeUUID))

		err = bob.Accept(ctx, entry)
		var apiErr *uomesdk.APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	})

	t.Run("borrowers cannot cancel", func(t *testing.T) {
		entry, err := w.founder.Issue(ctx, w.groupUUID, bob.Identity(), 50, "held")
		require.NoError(t, err)

		err = bob.Cancel(ctx, w.groupUUID, entry.UOMeUUID)
		var apiErr *uomesdk.APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	})

	t.Run("outsiders cannot issue", func(t *testing.T) {
		keys, err := cryptox.GenerateKeyPair()
		require.NoError(t, err)
		outsider := w.member(keys)

		_, err = outsider.Issue(ctx, w.groupUUID, bob.Identity(), 100, "nope")
		var apiErr *uomesdk.APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	})
}

// TestNetting drives three members into a tangle of accepted debts and checks
// the ledger collapses it into the minimal payment plan.
func TestNetting(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	w := newWorld(t)

	a := w.founder
	b := w.admit(t, a, "b@example.com")
	c := w.admit(t, a, "c@example.com")

	settle(t, w.groupUUID, b, a, 5, "round one")
	settle(t, w.groupUUID, a, b, 2, "round two")
	settle(t, w.groupUUID, c, b, 1, "round three")
	settle(t, w.groupUUID, a, c, 4, "round four")

	// Balances: a +1, b +2, c -3. Everything conserves.
	members := []*uomesdk.Member{a, b, c}
	want := []int64{1, 2, -3}
	var sum int64
	for i, m := range members {
		balance, _, err := m.Totals(ctx, w.groupUUID)
		require.NoError(t, err)
		require.Equal(t, want[i], balance)
		sum += balance
	}
	require.Zero(t, sum)

	// c settles the whole group with two payments.
	balance, settlements, err := c.Totals(ctx, w.groupUUID)
	require.NoError(t, err)
	require.Equal(t, int64(-3), balance)
	require.Len(t, settlements, 2)

	owed := make(map[cryptox.Identity]int64)
	for _, s := range settlements {
		require.Positive(t, s.Value)
		owed[s.Counterparty] += s.Value
	}
	require.Equal(t, int64(1), owed[a.Identity()])
	require.Equal(t, int64(2), owed[b.Identity()])

	// Creditors see the same edges from the other side.
	_, fromA, err := a.Totals(ctx, w.groupUUID)
	require.NoError(t, err)
	require.Len(t, fromA, 1)
	require.Equal(t, c.Identity(), fromA[0].Counterparty)
	require.Equal(t, int64(-1), fromA[0].Value)
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()
	w := newWorld(t)

	for _, url := range []string{w.ledgerURL, w.groupURL} {
		for _, path := range []string{"/livez", "/readyz"} {
			resp, err := http.Get(url + path)
			require.NoError(t, err)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			require.NoError(t, resp.Body.Close())
		}
	}
}
