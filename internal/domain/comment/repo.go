package comment

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, c *Comment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Comment, error)
	ListByEntry(ctx context.Context, hdid, parentEntryID string) ([]*Comment, error)
	ListByHdid(ctx context.Context, hdid string) ([]*Comment, error)
	Update(ctx context.Context, c *Comment) error
	Delete(ctx context.Context, id uuid.UUID, version int) error
}
