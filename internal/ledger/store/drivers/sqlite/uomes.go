package sqlite

import (
	"context"
	"database/sql"

	"github.com/aussiebroadwan/uome/internal/ledger/domain"
	"github.com/aussiebroadwan/uome/internal/ledger/store"
	"github.com/aussiebroadwan/uome/pkg/cryptox"
)

type uomesRepo struct {
	q querier
}

const uomeColumns = `uuid, group_uuid, lender, borrower, value, description,
	issuer_signature, borrower_signature, state, created_at, updated_at`

func (r *uomesRepo) CreateUOMe(ctx context.Context, u domain.UOMe) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO uomes (uuid, group_uuid, lender, borrower, value, description, issuer_signature, state)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.UUID, u.GroupUUID, string(u.Lender), string(u.Borrower),
		u.Value, u.Description, u.IssuerSignature, string(u.State),
	)
	return mapConflict(err)
}

func (r *uomesRepo) GetUOMe(ctx context.Context, groupUUID, uuid string) (domain.UOMe, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+uomeColumns+` FROM uomes WHERE group_uuid = ? AND uuid = ?`,
		groupUUID, uuid,
	)
	return scanUOMe(row)
}

func (r *uomesRepo) SetState(ctx context.Context, uuid string, state domain.UOMeState) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE uomes SET state = ?, updated_at = CURRENT_TIMESTAMP WHERE uuid = ?`,
		string(state), uuid,
	)
	if err != nil {
		return err
	}
	return mapAffected(res)
}

func (r *uomesRepo) Accept(ctx context.Context, uuid string, borrowerSignature []byte) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE uomes SET state = ?, borrower_signature = ?, updated_at = CURRENT_TIMESTAMP WHERE uuid = ?`,
		string(domain.UOMeAccepted), borrowerSignature, uuid,
	)
	if err != nil {
		return err
	}
	return mapAffected(res)
}

func (r *uomesRepo) DeleteUOMe(ctx context.Context, uuid string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM uomes WHERE uuid = ?`, uuid)
	if err != nil {
		return err
	}
	return mapAffected(res)
}

func (r *uomesRepo) ListByLender(ctx context.Context, groupUUID string, id cryptox.Identity) ([]domain.UOMe, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+uomeColumns+` FROM uomes
		  WHERE group_uuid = ? AND lender = ? AND state != ?
		  ORDER BY created_at`,
		groupUUID, string(id), string(domain.UOMeAccepted),
	)
	if err != nil {
		return nil, err
	}
	return scanUOMes(rows)
}

func (r *uomesRepo) ListAwaitingBorrower(ctx context.Context, groupUUID string, id cryptox.Identity) ([]domain.UOMe, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+uomeColumns+` FROM uomes
		  WHERE group_uuid = ? AND borrower = ? AND state = ?
		  ORDER BY created_at`,
		groupUUID, string(id), string(domain.UOMeConfirmed),
	)
	if err != nil {
		return nil, err
	}
	return scanUOMes(rows)
}

func scanUOMe(row rowScanner) (domain.UOMe, error) {
	var u domain.UOMe
	var lender, borrower, state string
	var borrowerSig []byte
	err := row.Scan(
		&u.UUID, &u.GroupUUID, &lender, &borrower, &u.Value, &u.Description,
		&u.IssuerSignature, &borrowerSig, &state, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return domain.UOMe{}, mapNotFound(err)
	}
	u.Lender = cryptox.Identity(lender)
	u.Borrower = cryptox.Identity(borrower)
	u.BorrowerSignature = borrowerSig
	u.State = domain.UOMeState(state)
	return u, nil
}

func scanUOMes(rows *sql.Rows) ([]domain.UOMe, error) {
	defer rows.Close()

	var out []domain.UOMe
	for rows.Next() {
		u, err := scanUOMe(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
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
