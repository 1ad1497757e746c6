package note

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/healthgateway/gateway/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) db.Queryable {
	return db.Conn(ctx, r.pool)
}

const noteCols = `id, hdid, title, text, journal_date, created_at, updated_at, version`

func scanNote(row pgx.Row) (*Note, error) {
	var n Note
	err := row.Scan(&n.ID, &n.Hdid, &n.Title, &n.Text, &n.JournalDate.Time,
		&n.CreatedAt, &n.UpdatedAt, &n.Version)
	if err != nil {
		return nil, db.Wrap(err)
	}
	return &n, nil
}

func (r *repoPG) Create(ctx context.Context, n *Note) error {
	n.ID = uuid.New()
	n.Version = 1
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO note (id, hdid, title, text, journal_date, version)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		n.ID, n.Hdid, n.Title, n.Text, n.JournalDate.Time, n.Version,
	).Scan(&n.CreatedAt, &n.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Note, error) {
	return scanNote(r.conn(ctx).QueryRow(ctx, `SELECT `+noteCols+` FROM note WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, n *Note) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE note SET title=$2, text=$3, journal_date=$4, updated_at=NOW(), version=version+1
		WHERE id = $1 AND version = $5
		RETURNING updated_at, version`,
		n.ID, n.Title, n.Text, n.JournalDate.Time, n.Version,
	).Scan(&n.UpdatedAt, &n.Version)
	if db.IsNotFound(err) {
		return fmt.Errorf("update note %s: %w", n.ID, db.ErrStaleVersion)
	}
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID, version int) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM note WHERE id = $1 AND version = $2`, id, version)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete note %s: %w", id, db.ErrStaleVersion)
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, hdid string, limit, offset int) ([]*Note, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM note WHERE hdid = $1`, hdid).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+noteCols+` FROM note WHERE hdid = $1
		ORDER BY journal_date DESC, created_at DESC LIMIT $2 OFFSET $3`, hdid, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, n)
	}
	return items, total, rows.Err()
}
