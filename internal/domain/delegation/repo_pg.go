package delegation

import (
	"context"
	"time"

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

const delegationCols = `id, resource_owner_hdid, nickname, data_sources, expiry_date, status,
	sharing_code_hash, failed_attempts, COALESCE(profile_hdid, ''), created_at, updated_at`

func scanDelegation(row pgx.Row) (*Delegation, error) {
	var d Delegation
	err := row.Scan(&d.ID, &d.ResourceOwnerHdid, &d.Nickname, &d.DataSources, &d.ExpiryDate, &d.Status,
		&d.SharingCodeHash, &d.FailedAttempts, &d.ProfileHdid, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, db.Wrap(err)
	}
	return &d, nil
}

func (r *repoPG) Create(ctx context.Context, d *Delegation) error {
	d.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO delegation (id, resource_owner_hdid, nickname, data_sources, expiry_date, status, sharing_code_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`,
		d.ID, d.ResourceOwnerHdid, d.Nickname, d.DataSources, d.ExpiryDate, d.Status, d.SharingCodeHash,
	).Scan(&d.CreatedAt, &d.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Delegation, error) {
	return scanDelegation(r.conn(ctx).QueryRow(ctx, `SELECT `+delegationCols+` FROM delegation WHERE id = $1`, id))
}

func (r *repoPG) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Delegation, error) {
	return scanDelegation(r.conn(ctx).QueryRow(ctx, `SELECT `+delegationCols+` FROM delegation WHERE id = $1 FOR UPDATE`, id))
}

func (r *repoPG) Update(ctx context.Context, d *Delegation) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE delegation SET status=$2, failed_attempts=$3, profile_hdid=NULLIF($4, ''), updated_at=NOW()
		WHERE id = $1`,
		d.ID, d.Status, d.FailedAttempts, d.ProfileHdid)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM delegation WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

func (r *repoPG) ListByOwner(ctx context.Context, ownerHdid string) ([]*Delegation, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+delegationCols+` FROM delegation
		WHERE resource_owner_hdid = $1 ORDER BY created_at DESC`, ownerHdid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Delegation
	for rows.Next() {
		d, err := scanDelegation(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

func (r *repoPG) ExpirePending(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE delegation SET status = 'Expired', updated_at = NOW()
		WHERE status = 'Pending' AND expiry_date IS NOT NULL AND expiry_date < $1::date`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
