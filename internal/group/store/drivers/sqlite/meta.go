package sqlite

import "context"

type metaRepo struct {
	q querier
}

func (r *metaRepo) Get(ctx context.Context, key string) (string, error) {
	row := r.q.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, key)

	var value string
	if err := row.Scan(&value); err != nil {
		return "", mapNotFound(err)
	}
	return value, nil
}

func (r *metaRepo) Set(ctx context.Context, key, value string) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO meta (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}
