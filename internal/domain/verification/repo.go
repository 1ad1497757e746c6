package verification

import "context"

type Repository interface {
	Create(ctx context.Context, v *MessagingVerification) error
	// GetLatest returns the newest verification of typ for hdid, deleted or not.
	GetLatest(ctx context.Context, hdid string, typ Type) (*MessagingVerification, error)
	// GetLatestForUpdate is GetLatest that also locks the row until the
	// surrounding transaction ends.
	GetLatestForUpdate(ctx context.Context, hdid string, typ Type) (*MessagingVerification, error)
	Update(ctx context.Context, v *MessagingVerification) error
	// DeleteOpen marks every unvalidated, undeleted verification of typ deleted.
	DeleteOpen(ctx context.Context, hdid string, typ Type) error
}
