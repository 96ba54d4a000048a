package uomesdk

import (
	"context"
	"fmt"

	"github.com/aussiebroadwan/uome/pkg/cryptox"
	"github.com/aussiebroadwan/uome/pkg/wire"
)

// Member is a group member's view of the protocol: it signs requests with the
// member's key pair and verifies every signature the authorities return
// before trusting a response. GroupIdentity must be known out of band (it is
// how the member decided to trust the group in the first place);
// LedgerIdentity is optional and, when set, main signatures are checked too.
type Member struct {
	Group  *Client // the group authority
	Ledger *Client // the ledger authority
	Keys   *cryptox.KeyPair

	GroupIdentity  cryptox.Identity
	LedgerIdentity cryptox.Identity
}

// Identity returns the member's public identity.
func (m *Member) Identity() cryptox.Identity { return m.Keys.Identity() }

// Invite asks the group authority to invite another user. The inviter signs
// the full invite tuple; the returned group countersignature is verified
// before the call reports success.
func (m *Member) Invite(ctx context.Context, groupUUID string, invitee cryptox.Identity, inviteeEmail string) error {
	values := wire.Values{
		"group_uuid":    groupUUID,
		"inviter":       m.Identity(),
		"invitee":       invitee,
		"invitee_email": inviteeEmail,
	}
	inviterSig, err := wire.Sign(m.Keys, wire.KindInvite, wire.SigInviter, values)
	if err != nil {
		return err
	}

	rec, err := m.Group.Do(ctx, wire.KindInvite, wire.Values{
		"group_uuid":        groupUUID,
		"inviter":           string(m.Identity()),
		"invitee":           string(invitee),
		"invitee_email":     inviteeEmail,
		"inviter_signature": inviterSig,
	})
	if err != nil {
		return err
	}

	if err := wire.Verify(m.GroupIdentity, wire.KindInvite, wire.SigGroup, rec.Bytes("group_signature"), values); err != nil {
		return fmt.Errorf("%w: group invite countersignature: %v", ErrChainBroken, err)
	}
	return nil
}

// JoinResult is what a successful secret redemption establishes: who invited
// this member and the group countersignature to present at confirmation.
type JoinResult struct {
	Inviter        cryptox.Identity
	InviteeEmail   string
	GroupSignature []byte
}

// Join redeems an invitation secret. Before returning, it verifies the whole
// chain the response claims: the inviter's signature over the original invite
// tuple (with this member as invitee) and the group's countersignature over
// that inviter signature. Either failing means the invitation cannot be
// trusted and the join must stop.
func (m *Member) Join(ctx context.Context, groupUUID, secretCode string) (JoinResult, error) {
	userSig, err := wire.Sign(m.Keys, wire.KindJoin, wire.SigUser, wire.Values{
		"group_uuid":  groupUUID,
		"user":        m.Identity(),
		"secret_code": secretCode,
	})
	if err != nil {
		return JoinResult{}, err
	}

	rec, err := m.Group.Do(ctx, wire.KindJoin, wire.Values{
		"group_uuid":     groupUUID,
		"user":           string(m.Identity()),
		"secret_code":    secretCode,
		"user_signature": userSig,
	})
	if err != nil {
		return JoinResult{}, err
	}

	inviter := cryptox.Identity(rec.String("inviter"))
	inviterSig := rec.Bytes("inviter_signature")
	groupSig := rec.Bytes("group_signature")

	// Verify the inviter really invited this member.
	inviteValues := wire.Values{
		"group_uuid":    groupUUID,
		"inviter":       inviter,
		"invitee":       m.Identity(),
		"invitee_email": rec.String("invitee_email"),
	}
	if err := wire.Verify(inviter, wire.KindInvite, wire.SigInviter, inviterSig, inviteValues); err != nil {
		return JoinResult{}, fmt.Errorf("%w: inviter signature: %v", ErrChainBroken, err)
	}

	// Verify the group authority vouched for that exact invitation.
	if err := wire.Verify(m.GroupIdentity, wire.KindJoin, wire.SigGroup, groupSig, wire.Values{
		"inviter_signature": inviterSig,
	}); err != nil {
		return JoinResult{}, fmt.Errorf("%w: group countersignature: %v", ErrChainBroken, err)
	}

	return JoinResult{
		Inviter:        inviter,
		InviteeEmail:   rec.String("invitee_email"),
		GroupSignature: groupSig,
	}, nil
}

// ConfirmJoin completes the join: the member signs over the group
// countersignature it verified in Join, and the group authority responds with
// the ledger's acknowledgement that the membership now exists.
func (m *Member) ConfirmJoin(ctx context.Context, groupUUID string, groupSig []byte) error {
	userSig, err := wire.Sign(m.Keys, wire.KindConfirmJoin, wire.SigUser, wire.Values{
		"group_uuid":      groupUUID,
		"user":            m.Identity(),
		"group_signature": groupSig,
	})
	if err != nil {
		return err
	}

	rec, err := m.Group.Do(ctx, wire.KindConfirmJoin, wire.Values{
		"group_uuid":      groupUUID,
		"user":            string(m.Identity()),
		"group_signature": groupSig,
		"user_signature":  userSig,
	})
	if err != nil {
		return err
	}

	if m.LedgerIdentity != "" {
		if err := wire.Verify(m.LedgerIdentity, wire.KindConfirmJoin, wire.SigMain, rec.Bytes("main_signature"), wire.Values{
			"group_uuid": groupUUID,
			"user":       m.Identity(),
		}); err != nil {
			return fmt.Errorf("%w: ledger acknowledgement: %v", ErrChainBroken, err)
		}
	}
	return nil
}

// Issue declares that the member lent value cents to borrower. The returned
// entry carries the server-assigned uuid alongside the signed terms, ready to
// be confirmed.
func (m *Member) Issue(ctx context.Context, groupUUID string, borrower cryptox.Identity, value int64, description string) (wire.UOMeEntry, error) {
	values := wire.Values{
		"group_uuid":  groupUUID,
		"lender":      m.Identity(),
		"borrower":    borrower,
		"value":       value,
		"description": description,
	}
	userSig, err := wire.Sign(m.Keys, wire.KindIssue, wire.SigUser, values)
	if err != nil {
		return wire.UOMeEntry{}, err
	}

	rec, err := m.Ledger.Do(ctx, wire.KindIssue, wire.Values{
		"group_uuid":     groupUUID,
		"lender":         string(m.Identity()),
		"borrower":       string(borrower),
		"value":          value,
		"description":    description,
		"user_signature": userSig,
	})
	if err != nil {
		return wire.UOMeEntry{}, err
	}

	entry := wire.UOMeEntry{
		UOMeUUID:        rec.String("uome_uuid"),
		GroupUUID:       groupUUID,
		Lender:          m.Identity(),
		Borrower:        borrower,
		Value:           value,
		Description:     description,
		IssuerSignature: userSig,
	}

	if m.LedgerIdentity != "" {
		values["uome_uuid"] = entry.UOMeUUID
		if err := wire.Verify(m.LedgerIdentity, wire.KindIssue, wire.SigMain, rec.Bytes("main_signature"), values); err != nil {
			return wire.UOMeEntry{}, fmt.Errorf("%w: issue acknowledgement: %v", ErrChainBroken, err)
		}
	}
	return entry, nil
}

// Confirm re-signs an issued UOMe's terms, now including its uuid.
func (m *Member) Confirm(ctx context.Context, entry wire.UOMeEntry) error {
	userSig, err := wire.Sign(m.Keys, wire.KindConfirm, wire.SigUser, entryValues(entry))
	if err != nil {
		return err
	}

	rec, err := m.Ledger.Do(ctx, wire.KindConfirm, wire.Values{
		"group_uuid":     entry.GroupUUID,
		"lender":         string(m.Identity()),
		"uome_uuid":      entry.UOMeUUID,
		"user_signature": userSig,
	})
	if err != nil {
		return err
	}
	return m.verifyAck(wire.KindConfirm, entry.GroupUUID, entry.UOMeUUID, rec.Bytes("main_signature"))
}

// Accept countersigns a UOMe naming this member as borrower. The entry should
// come from Pending, where its issuer signature has already been re-verified.
func (m *Member) Accept(ctx context.Context, entry wire.UOMeEntry) error {
	userSig, err := wire.Sign(m.Keys, wire.KindAccept, wire.SigUser, wire.Values{
		"group_uuid":  entry.GroupUUID,
		"lender":      entry.Lender,
		"borrower":    entry.Borrower,
		"value":       entry.Value,
		"description": entry.Description,
		"uome_uuid":   entry.UOMeUUID,
	})
	if err != nil {
		return err
	}

	rec, err := m.Ledger.Do(ctx, wire.KindAccept, wire.Values{
		"group_uuid":     entry.GroupUUID,
		"borrower":       string(m.Identity()),
		"uome_uuid":      entry.UOMeUUID,
		"user_signature": userSig,
	})
	if err != nil {
		return err
	}
	return m.verifyAck(wire.KindAccept, entry.GroupUUID, entry.UOMeUUID, rec.Bytes("main_signature"))
}

// Cancel withdraws an unaccepted UOMe this member issued.
func (m *Member) Cancel(ctx context.Context, groupUUID, uomeUUID string) error {
	userSig, err := wire.Sign(m.Keys, wire.KindCancel, wire.SigUser, wire.Values{
		"group_uuid": groupUUID,
		"lender":     m.Identity(),
		"uome_uuid":  uomeUUID,
	})
	if err != nil {
		return err
	}

	rec, err := m.Ledger.Do(ctx, wire.KindCancel, wire.Values{
		"group_uuid":     groupUUID,
		"lender":         string(m.Identity()),
		"uome_uuid":      uomeUUID,
		"user_signature": userSig,
	})
	if err != nil {
		return err
	}
	return m.verifyAck(wire.KindCancel, groupUUID, uomeUUID, rec.Bytes("main_signature"))
}

// Pending fetches the member's open UOMes. Every entry's issuer signature is
// re-verified locally; the amounts shown to a user must rest on the issuer's
// own key, not on the ledger's say-so.
func (m *Member) Pending(ctx context.Context, groupUUID string) (waitingOnOthers, waitingOnUser []wire.UOMeEntry, err error) {
	userSig, err := wire.Sign(m.Keys, wire.KindPending, wire.SigUser, wire.Values{
		"group_uuid": groupUUID,
		"user":       m.Identity(),
	})
	if err != nil {
		return nil, nil, err
	}

	rec, err := m.Ledger.Do(ctx, wire.KindPending, wire.Values{
		"group_uuid":     groupUUID,
		"user":           string(m.Identity()),
		"user_signature": userSig,
	})
	if err != nil {
		return nil, nil, err
	}

	waitingOnOthers = rec.UOMeEntries("waiting_on_others")
	waitingOnUser = rec.UOMeEntries("waiting_on_user")
	for _, entry := range append(append([]wire.UOMeEntry{}, waitingOnOthers...), waitingOnUser...) {
		if err := verifyEntry(entry); err != nil {
			return nil, nil, err
		}
	}
	return waitingOnOthers, waitingOnUser, nil
}

// Totals fetches the member's balance and their slice of the settlement plan.
func (m *Member) Totals(ctx context.Context, groupUUID string) (int64, []wire.SettlementEntry, error) {
	userSig, err := wire.Sign(m.Keys, wire.KindTotals, wire.SigUser, wire.Values{
		"group_uuid": groupUUID,
		"user":       m.Identity(),
	})
	if err != nil {
		return 0, nil, err
	}

	rec, err := m.Ledger.Do(ctx, wire.KindTotals, wire.Values{
		"group_uuid":     groupUUID,
		"user":           string(m.Identity()),
		"user_signature": userSig,
	})
	if err != nil {
		return 0, nil, err
	}
	return rec.Int("balance"), rec.SettlementEntries("settlements"), nil
}

func (m *Member) verifyAck(kind wire.Kind, groupUUID, uomeUUID string, mainSig []byte) error {
	if m.LedgerIdentity == "" {
		return nil
	}
	err := wire.Verify(m.LedgerIdentity, kind, wire.SigMain, mainSig, wire.Values{
		"group_uuid": groupUUID,
		"uome_uuid":  uomeUUID,
	})
	if err != nil {
		return fmt.Errorf("%w: %s acknowledgement: %v", ErrChainBroken, kind, err)
	}
	return nil
}

// verifyEntry checks a pending entry's stored issuer signature against its
// own terms.
func verifyEntry(entry wire.UOMeEntry) error {
	err := wire.Verify(entry.Lender, wire.KindIssue, wire.SigUser, entry.IssuerSignature, wire.Values{
		"group_uuid":  entry.GroupUUID,
		"lender":      entry.Lender,
		"borrower":    entry.Borrower,
		"value":       entry.Value,
		"description": entry.Description,
	})
	if err != nil {
		return fmt.Errorf("%w: uome %s: %v", ErrEntryTampered, entry.UOMeUUID, err)
	}
	return nil
}

func entryValues(entry wire.UOMeEntry) wire.Values {
	return wire.Values{
		"uome_uuid":   entry.UOMeUUID,
		"group_uuid":  entry.GroupUUID,
		"lender":      entry.Lender,
		"borrower":    entry.Borrower,
		"value":       entry.Value,
		"description": entry.Description,
	}
}
