package sqlite

import (
	"context"
	"strings"

	"github.com/aussiebroadwan/uome/internal/ledger/domain"
	"github.com/aussiebroadwan/uome/internal/ledger/store"
	"github.com/aussiebroadwan/uome/pkg/cryptox"
)

type groupsRepo struct {
	q querier
}

func (r *groupsRepo) CreateGroup(ctx context.Context, g domain.Group) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO groups (uuid, name, group_key) VALUES (?, ?, ?)`,
		g.UUID, g.Name, string(g.Key),
	)
	return mapConflict(err)
}

func (r *groupsRepo) GetGroupByUUID(ctx context.Context, uuid string) (domain.Group, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT uuid, name, group_key, created_at FROM groups WHERE uuid = ?`,
		uuid,
	)
	return scanGroup(row)
}

func (r *groupsRepo) GetGroupByKey(ctx context.Context, key cryptox.Identity) (domain.Group, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT uuid, name, group_key, created_at FROM groups WHERE group_key = ?`,
		string(key),
	)
	return scanGroup(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGroup(row rowScanner) (domain.Group, error) {
	var g domain.Group
	var key string
	if err := row.Scan(&g.UUID, &g.Name, &key, &g.CreatedAt); err != nil {
		return domain.Group{}, mapNotFound(err)
	}
	g.Key = cryptox.Identity(key)
	return g, nil
}

// mapConflict translates sqlite unique/primary key violations into the
// store's sentinel error.
func mapConflict(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "constraint failed") && strings.Contains(msg, "2067") {
		return store.ErrAlreadyExists
	}
	return err
}
