package sqlite

import (
	"context"

	"github.com/aussiebroadwan/uome/internal/ledger/domain"
	"github.com/aussiebroadwan/uome/pkg/cryptox"
)

type settlementsRepo struct {
	q querier
}

func (r *settlementsRepo) ReplaceForGroup(ctx context.Context, groupUUID string, settlements []domain.Settlement) error {
	if _, err := r.q.ExecContext(ctx,
		`DELETE FROM settlements WHERE group_uuid = ?`, groupUUID,
	); err != nil {
		return err
	}

	for _, s := range settlements {
		if _, err := r.q.ExecContext(ctx,
			`INSERT INTO settlements (group_uuid, debtor, creditor, value) VALUES (?, ?, ?, ?)`,
			groupUUID, string(s.Debtor), string(s.Creditor), s.Value,
		); err != nil {
			return err
		}
	}
	return nil
}

func (r *settlementsRepo) ListForMember(ctx context.Context, groupUUID string, id cryptox.Identity) ([]domain.Settlement, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT group_uuid, debtor, creditor, value FROM settlements
		  WHERE group_uuid = ? AND (debtor = ? OR creditor = ?)
		  ORDER BY debtor, creditor`,
		groupUUID, string(id), string(id),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Settlement
	for rows.Next() {
		var s domain.Settlement
		var debtor, creditor string
		if err := rows.Scan(&s.GroupUUID, &debtor, &creditor, &s.Value); err != nil {
			return nil, err
		}
		s.Debtor = cryptox.Identity(debtor)
		s.Creditor = cryptox.Identity(creditor)
		out = append(out, s)
	}
	return out, rows.Err()
}
