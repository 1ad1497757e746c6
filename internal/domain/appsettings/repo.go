package appsettings

import "context"

type Repository interface {
	Get(ctx context.Context, application, component, key string) (*ApplicationSetting, error)
	Upsert(ctx context.Context, s *ApplicationSetting) error
}
