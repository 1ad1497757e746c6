package dependent

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, d *ResourceDelegate) error
	Get(ctx context.Context, ownerHdid, delegateHdid string) (*ResourceDelegate, error)
	ListByDelegate(ctx context.Context, delegateHdid string) ([]*ResourceDelegate, error)
	Delete(ctx context.Context, ownerHdid, delegateHdid string) error
	DeleteByDelegation(ctx context.Context, delegationID uuid.UUID) error
	// DeleteExpired removes grants whose expiry date is before now's day.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
