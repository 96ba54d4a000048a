package sqlite

import (
	"context"
	"database/sql"

	"github.com/aussiebroadwan/uome/internal/group/domain"
	"github.com/aussiebroadwan/uome/internal/group/store"
	"github.com/aussiebroadwan/uome/pkg/cryptox"
)

type membersRepo struct {
	q querier
}

func (r *membersRepo) CreateMember(ctx context.Context, m domain.Member) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO members (identity, email, confirmed) VALUES (?, ?, ?)`,
		string(m.Identity), m.Email, m.Confirmed,
	)
	return mapConflict(err)
}

func (r *membersRepo) GetMember(ctx context.Context, id cryptox.Identity) (domain.Member, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT identity, email, confirmed, created_at FROM members WHERE identity = ?`,
		string(id),
	)

	var m domain.Member
	var identity string
	if err := row.Scan(&identity, &m.Email, &m.Confirmed, &m.CreatedAt); err != nil {
		return domain.Member{}, mapNotFound(err)
	}
	m.Identity = cryptox.Identity(identity)
	return m, nil
}

func (r *membersRepo) ConfirmMember(ctx context.Context, id cryptox.Identity) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE members SET confirmed = 1 WHERE identity = ?`,
		string(id),
	)
	if err != nil {
		return err
	}
	return mapAffected(res)
}

func (r *membersRepo) DeleteMember(ctx context.Context, id cryptox.Identity) error {
	res, err := r.q.ExecContext(ctx,
		`DELETE FROM members WHERE identity = ? AND confirmed = 0`,
		string(id),
	)
	if err != nil {
		return err
	}
	return mapAffected(res)
}

func mapAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}
