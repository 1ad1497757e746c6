package dependent

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

const delegateCols = `resource_owner_hdid, profile_hdid, reason_code, delegation_id, expiry_date, created_at`

func scanDelegate(row pgx.Row) (*ResourceDelegate, error) {
	var d ResourceDelegate
	err := row.Scan(&d.ResourceOwnerHdid, &d.ProfileHdid, &d.ReasonCode, &d.DelegationID, &d.ExpiryDate, &d.CreatedAt)
	if err != nil {
		return nil, db.Wrap(err)
	}
	return &d, nil
}

func (r *repoPG) Create(ctx context.Context, d *ResourceDelegate) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO resource_delegate (resource_owner_hdid, profile_hdid, reason_code, delegation_id, expiry_date)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		d.ResourceOwnerHdid, d.ProfileHdid, d.ReasonCode, d.DelegationID, d.ExpiryDate,
	).Scan(&d.CreatedAt)
}

func (r *repoPG) Get(ctx context.Context, ownerHdid, delegateHdid string) (*ResourceDelegate, error) {
	return scanDelegate(r.conn(ctx).QueryRow(ctx, `SELECT `+delegateCols+` FROM resource_delegate
		WHERE resource_owner_hdid = $1 AND profile_hdid = $2`, ownerHdid, delegateHdid))
}

func (r *repoPG) ListByDelegate(ctx context.Context, delegateHdid string) ([]*ResourceDelegate, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+delegateCols+` FROM resource_delegate
		WHERE profile_hdid = $1 ORDER BY created_at`, delegateHdid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*ResourceDelegate
	for rows.Next() {
		d, err := scanDelegate(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

func (r *repoPG) Delete(ctx context.Context, ownerHdid, delegateHdid string) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM resource_delegate
		WHERE resource_owner_hdid = $1 AND profile_hdid = $2`, ownerHdid, delegateHdid)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

func (r *repoPG) DeleteByDelegation(ctx context.Context, delegationID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM resource_delegate WHERE delegation_id = $1`, delegationID)
	return err
}

func (r *repoPG) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM resource_delegate
		WHERE expiry_date IS NOT NULL AND expiry_date < $1::date`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
