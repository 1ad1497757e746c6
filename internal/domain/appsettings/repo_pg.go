package appsettings

import (
	"context"

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

func (r *repoPG) Get(ctx context.Context, application, component, key string) (*ApplicationSetting, error) {
	var s ApplicationSetting
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT application, component, key, value, updated_at FROM application_setting
		WHERE application = $1 AND component = $2 AND key = $3`,
		application, component, key,
	).Scan(&s.Application, &s.Component, &s.Key, &s.Value, &s.UpdatedAt)
	if err != nil {
		return nil, db.Wrap(err)
	}
	return &s, nil
}

func (r *repoPG) Upsert(ctx context.Context, s *ApplicationSetting) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO application_setting (application, component, key, value)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (application, component, key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
		RETURNING updated_at`,
		s.Application, s.Component, s.Key, s.Value,
	).Scan(&s.UpdatedAt)
}
