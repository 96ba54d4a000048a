package sqlite

import (
	"context"

	"github.com/aussiebroadwan/uome/internal/group/domain"
	"github.com/aussiebroadwan/uome/pkg/cryptox"
)

type invitationsRepo struct {
	q querier
}

const invitationColumns = `id, inviter, invitee, invitee_email, secret_hash,
	inviter_signature, used, created_at`

func (r *invitationsRepo) CreateInvitation(ctx context.Context, inv domain.Invitation) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO invitations (id, inviter, invitee, invitee_email, secret_hash, inviter_signature, used)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, string(inv.Inviter), string(inv.Invitee), inv.InviteeEmail,
		inv.SecretHash, inv.InviterSignature, inv.Used,
	)
	return mapConflict(err)
}

func (r *invitationsRepo) GetActiveByInvitee(ctx context.Context, invitee cryptox.Identity) (domain.Invitation, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+invitationColumns+` FROM invitations
		  WHERE invitee = ? AND used = 0
		  ORDER BY created_at DESC LIMIT 1`,
		string(invitee),
	)
	return scanInvitation(row)
}

func (r *invitationsRepo) GetByInvitee(ctx context.Context, invitee cryptox.Identity) (domain.Invitation, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+invitationColumns+` FROM invitations
		  WHERE invitee = ?
		  ORDER BY created_at DESC LIMIT 1`,
		string(invitee),
	)
	return scanInvitation(row)
}

func (r *invitationsRepo) MarkUsed(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE invitations SET used = 1 WHERE id = ?`, id,
	)
	if err != nil {
		return err
	}
	return mapAffected(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvitation(row rowScanner) (domain.Invitation, error) {
	var inv domain.Invitation
	var inviter, invitee string
	err := row.Scan(
		&inv.ID, &inviter, &invitee, &inv.InviteeEmail,
		&inv.SecretHash, &inv.InviterSignature, &inv.Used, &inv.CreatedAt,
	)
	if err != nil {
		return domain.Invitation{}, mapNotFound(err)
	}
	inv.Inviter = cryptox.Identity(inviter)
	inv.Invitee = cryptox.Identity(invitee)
	return inv, nil
}
