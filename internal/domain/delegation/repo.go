package delegation

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, d *Delegation) error
	GetByID(ctx context.Context, id uuid.UUID) (*Delegation, error)
	// GetByIDForUpdate also locks the row until the surrounding transaction
	// ends.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Delegation, error)
	Update(ctx context.Context, d *Delegation) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByOwner(ctx context.Context, ownerHdid string) ([]*Delegation, error)
	// ExpirePending marks pending invitations whose expiry date is before
	// now's day as Expired.
	ExpirePending(ctx context.Context, now time.Time) (int64, error)
}
