package comment

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

const commentCols = `id, hdid, parent_entry_id, entry_type_code, text, created_at, updated_at, version`

func scanComment(row pgx.Row) (*Comment, error) {
	var c Comment
	err := row.Scan(&c.ID, &c.Hdid, &c.ParentEntryID, &c.EntryTypeCode, &c.Text,
		&c.CreatedAt, &c.UpdatedAt, &c.Version)
	if err != nil {
		return nil, db.Wrap(err)
	}
	return &c, nil
}

func (r *repoPG) Create(ctx context.Context, c *Comment) error {
	c.ID = uuid.New()
	c.Version = 1
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO comment (id, hdid, parent_entry_id, entry_type_code, text, version)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		c.ID, c.Hdid, c.ParentEntryID, c.EntryTypeCode, c.Text, c.Version,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Comment, error) {
	return scanComment(r.conn(ctx).QueryRow(ctx, `SELECT `+commentCols+` FROM comment WHERE id = $1`, id))
}

func (r *repoPG) list(ctx context.Context, sql string, args ...interface{}) ([]*Comment, error) {
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

func (r *repoPG) ListByEntry(ctx context.Context, hdid, parentEntryID string) ([]*Comment, error) {
	return r.list(ctx, `SELECT `+commentCols+` FROM comment
		WHERE hdid = $1 AND parent_entry_id = $2 ORDER BY created_at`, hdid, parentEntryID)
}

func (r *repoPG) ListByHdid(ctx context.Context, hdid string) ([]*Comment, error) {
	return r.list(ctx, `SELECT `+commentCols+` FROM comment
		WHERE hdid = $1 ORDER BY parent_entry_id, created_at`, hdid)
}

func (r *repoPG) Update(ctx context.Context, c *Comment) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE comment SET text=$2, entry_type_code=$3, updated_at=NOW(), version=version+1
		WHERE id = $1 AND version = $4
		RETURNING updated_at, version`,
		c.ID, c.Text, c.EntryTypeCode, c.Version,
	).Scan(&c.UpdatedAt, &c.Version)
	if db.IsNotFound(err) {
		return fmt.Errorf("update comment %s: %w", c.ID, db.ErrStaleVersion)
	}
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID, version int) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM comment WHERE id = $1 AND version = $2`, id, version)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete comment %s: %w", id, db.ErrStaleVersion)
	}
	return nil
}
