package profile

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/healthgateway/gateway/internal/platform/db"
)

// =========== Profile Repository ===========

type profileRepoPG struct{ pool *pgxpool.Pool }

func NewProfileRepoPG(pool *pgxpool.Pool) ProfileRepository {
	return &profileRepoPG{pool: pool}
}

func (r *profileRepoPG) conn(ctx context.Context) db.Queryable {
	return db.Conn(ctx, r.pool)
}

const profileCols = `hdid, terms_of_service_id, COALESCE(email, ''), COALESCE(sms_number, ''),
	COALESCE(encryption_key, ''), closed_at, last_login_at, created_at, updated_at, version`

func scanProfile(row pgx.Row) (*UserProfile, error) {
	var p UserProfile
	err := row.Scan(&p.Hdid, &p.TermsOfServiceID, &p.Email, &p.SmsNumber,
		&p.EncryptionKey, &p.ClosedAt, &p.LastLoginAt, &p.CreatedAt, &p.UpdatedAt, &p.Version)
	if err != nil {
		return nil, db.Wrap(err)
	}
	return &p, nil
}

func (r *profileRepoPG) Create(ctx context.Context, p *UserProfile) error {
	p.Version = 1
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO user_profile (hdid, terms_of_service_id, email, sms_number, encryption_key, last_login_at, version)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6, $7)
		RETURNING created_at, updated_at`,
		p.Hdid, p.TermsOfServiceID, p.Email, p.SmsNumber, p.EncryptionKey, p.LastLoginAt, p.Version,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *profileRepoPG) GetByHdid(ctx context.Context, hdid string) (*UserProfile, error) {
	return scanProfile(r.conn(ctx).QueryRow(ctx, `SELECT `+profileCols+` FROM user_profile WHERE hdid = $1`, hdid))
}

func (r *profileRepoPG) Update(ctx context.Context, p *UserProfile) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE user_profile SET terms_of_service_id=$2, email=NULLIF($3, ''), sms_number=NULLIF($4, ''),
			encryption_key=$5, closed_at=$6, updated_at=NOW(), version=version+1
		WHERE hdid = $1 AND version = $7`,
		p.Hdid, p.TermsOfServiceID, p.Email, p.SmsNumber, p.EncryptionKey, p.ClosedAt, p.Version)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update profile %s: %w", p.Hdid, db.ErrStaleVersion)
	}
	p.Version++
	return nil
}

func (r *profileRepoPG) UpdateLastLogin(ctx context.Context, hdid string, at time.Time) error {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE user_profile SET last_login_at = $2 WHERE hdid = $1`, hdid, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

// =========== Terms Repository ===========

type termsRepoPG struct{ pool *pgxpool.Pool }

func NewTermsRepoPG(pool *pgxpool.Pool) TermsRepository {
	return &termsRepoPG{pool: pool}
}

const termsCols = `id, agreement_type, legal_text, effective_date`

func scanTerms(row pgx.Row) (*LegalAgreement, error) {
	var a LegalAgreement
	if err := row.Scan(&a.ID, &a.AgreementType, &a.Text, &a.EffectiveDate); err != nil {
		return nil, db.Wrap(err)
	}
	return &a, nil
}

func (r *termsRepoPG) GetActive(ctx context.Context, now time.Time) (*LegalAgreement, error) {
	return scanTerms(db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT `+termsCols+` FROM legal_agreement
		WHERE agreement_type = 'ToS' AND effective_date <= $1
		ORDER BY effective_date DESC LIMIT 1`, now))
}

func (r *termsRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*LegalAgreement, error) {
	return scanTerms(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+termsCols+` FROM legal_agreement WHERE id = $1`, id))
}

// =========== Preference Repository ===========

type preferenceRepoPG struct{ pool *pgxpool.Pool }

func NewPreferenceRepoPG(pool *pgxpool.Pool) PreferenceRepository {
	return &preferenceRepoPG{pool: pool}
}

func (r *preferenceRepoPG) ListByHdid(ctx context.Context, hdid string) ([]*UserPreference, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT hdid, name, value, created_at, updated_at, version
		FROM user_preference WHERE hdid = $1 ORDER BY name`, hdid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*UserPreference
	for rows.Next() {
		var p UserPreference
		if err := rows.Scan(&p.Hdid, &p.Name, &p.Value, &p.CreatedAt, &p.UpdatedAt, &p.Version); err != nil {
			return nil, err
		}
		items = append(items, &p)
	}
	return items, rows.Err()
}

func (r *preferenceRepoPG) Create(ctx context.Context, p *UserPreference) error {
	p.Version = 1
	return db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO user_preference (hdid, name, value, version)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`,
		p.Hdid, p.Name, p.Value, p.Version,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *preferenceRepoPG) Update(ctx context.Context, p *UserPreference) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE user_preference SET value=$3, updated_at=NOW(), version=version+1
		WHERE hdid = $1 AND name = $2 AND version = $4
		RETURNING updated_at, version`,
		p.Hdid, p.Name, p.Value, p.Version,
	).Scan(&p.UpdatedAt, &p.Version)
	if db.IsNotFound(err) {
		return fmt.Errorf("update preference %s: %w", p.Name, db.ErrStaleVersion)
	}
	return err
}
