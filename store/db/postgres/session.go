package postgres

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/newsroomhq/newsdesk/store"
)

func (d *DB) CreateSession(ctx context.Context, create *store.Session) (*store.Session, error) {
	stmt := `INSERT INTO session (id, user_id)
		VALUES (` + placeholders(2) + `)
		RETURNING created_ts`

	if err := d.db.QueryRowContext(ctx, stmt, create.ID, create.UserID).Scan(
		&create.CreatedTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to create session")
	}

	return create, nil
}

func (d *DB) ListSessions(ctx context.Context, find *store.FindSession) ([]*store.Session, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.ID; v != nil {
		where, args = append(where, "session.id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.UserID; v != nil {
		where, args = append(where, "session.user_id = "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `
		SELECT id, user_id, created_ts
		FROM session
		WHERE ` + strings.Join(where, " AND ") + ` ORDER BY session.created_ts ASC`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query sessions")
	}
	defer rows.Close()

	list := make([]*store.Session, 0)
	for rows.Next() {
		var session store.Session
		if err := rows.Scan(&session.ID, &session.UserID, &session.CreatedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan session")
		}
		list = append(list, &session)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate sessions")
	}

	return list, nil
}

func (d *DB) DeleteSession(ctx context.Context, delete *store.DeleteSession) error {
	stmt := `DELETE FROM session WHERE id = ` + placeholder(1)
	if _, err := d.db.ExecContext(ctx, stmt, delete.ID); err != nil {
		return errors.Wrap(err, "failed to delete session")
	}
	return nil
}
