package sqlite

import (
	"context"

	"github.com/aussiebroadwan/uome/internal/ledger/domain"
	"github.com/aussiebroadwan/uome/internal/ledger/store"
	"github.com/aussiebroadwan/uome/pkg/cryptox"
)

type membershipsRepo struct {
	q querier
}

func (r *membershipsRepo) CreateMembership(ctx context.Context, m domain.Membership) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO memberships (group_uuid, identity, balance) VALUES (?, ?, ?)`,
		m.GroupUUID, string(m.Identity), m.Balance,
	)
	return mapConflict(err)
}

func (r *membershipsRepo) GetMembership(ctx context.Context, groupUUID string, id cryptox.Identity) (domain.Membership, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT group_uuid, identity, balance, created_at
		   FROM memberships WHERE group_uuid = ? AND identity = ?`,
		groupUUID, string(id),
	)

	var m domain.Membership
	var identity string
	if err := row.Scan(&m.GroupUUID, &identity, &m.Balance, &m.CreatedAt); err != nil {
		return domain.Membership{}, mapNotFound(err)
	}
	m.Identity = cryptox.Identity(identity)
	return m, nil
}

func (r *membershipsRepo) ListBalances(ctx context.Context, groupUUID string) (map[cryptox.Identity]int64, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT identity, balance FROM memberships WHERE group_uuid = ?`,
		groupUUID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	balances := make(map[cryptox.Identity]int64)
	for rows.Next() {
		var identity string
		var balance int64
		if err := rows.Scan(&identity, &balance); err != nil {
			return nil, err
		}
		balances[cryptox.Identity(identity)] = balance
	}
	return balances, rows.Err()
}

func (r *membershipsRepo) AdjustBalance(ctx context.Context, groupUUID string, id cryptox.Identity, delta int64) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE memberships SET balance = balance + ? WHERE group_uuid = ? AND identity = ?`,
		delta, groupUUID, string(id),
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}
