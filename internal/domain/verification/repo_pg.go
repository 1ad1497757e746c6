package verification

import (
	"context"

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

const verificationCols = `id, hdid, verification_type, COALESCE(email, ''),
	COALESCE(invite_key, '00000000-0000-0000-0000-000000000000'::uuid), COALESCE(sms_number, ''),
	COALESCE(sms_validation_code, ''), validated, deleted, verification_attempts, expire_date,
	created_at, updated_at`

func scanVerification(row pgx.Row) (*MessagingVerification, error) {
	var v MessagingVerification
	err := row.Scan(&v.ID, &v.Hdid, &v.Type, &v.Email, &v.InviteKey, &v.SmsNumber,
		&v.SmsValidationCode, &v.Validated, &v.Deleted, &v.VerificationAttempts, &v.ExpireDate,
		&v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, db.Wrap(err)
	}
	return &v, nil
}

func (r *repoPG) Create(ctx context.Context, v *MessagingVerification) error {
	v.ID = uuid.New()
	var inviteKey *uuid.UUID
	if v.InviteKey != uuid.Nil {
		inviteKey = &v.InviteKey
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO messaging_verification (id, hdid, verification_type, email, invite_key,
			sms_number, sms_validation_code, validated, expire_date)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, NULLIF($6, ''), NULLIF($7, ''), $8, $9)
		RETURNING created_at, updated_at`,
		v.ID, v.Hdid, v.Type, v.Email, inviteKey, v.SmsNumber, v.SmsValidationCode, v.Validated, v.ExpireDate,
	).Scan(&v.CreatedAt, &v.UpdatedAt)
}

func (r *repoPG) GetLatest(ctx context.Context, hdid string, typ Type) (*MessagingVerification, error) {
	return scanVerification(r.conn(ctx).QueryRow(ctx, `
		SELECT `+verificationCols+` FROM messaging_verification
		WHERE hdid = $1 AND verification_type = $2
		ORDER BY created_at DESC LIMIT 1`, hdid, typ))
}

func (r *repoPG) GetLatestForUpdate(ctx context.Context, hdid string, typ Type) (*MessagingVerification, error) {
	return scanVerification(r.conn(ctx).QueryRow(ctx, `
		SELECT `+verificationCols+` FROM messaging_verification
		WHERE hdid = $1 AND verification_type = $2
		ORDER BY created_at DESC LIMIT 1 FOR UPDATE`, hdid, typ))
}

func (r *repoPG) Update(ctx context.Context, v *MessagingVerification) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE messaging_verification SET validated=$2, deleted=$3, verification_attempts=$4, updated_at=NOW()
		WHERE id = $1`,
		v.ID, v.Validated, v.Deleted, v.VerificationAttempts)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

func (r *repoPG) DeleteOpen(ctx context.Context, hdid string, typ Type) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE messaging_verification SET deleted = TRUE, updated_at = NOW()
		WHERE hdid = $1 AND verification_type = $2 AND NOT validated AND NOT deleted`, hdid, typ)
	return err
}
