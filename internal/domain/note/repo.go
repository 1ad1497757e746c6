package note

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, n *Note) error
	GetByID(ctx context.Context, id uuid.UUID) (*Note, error)
	Update(ctx context.Context, n *Note) error
	Delete(ctx context.Context, id uuid.UUID, version int) error
	// List pages hdid's notes, newest journal date first.
	List(ctx context.Context, hdid string, limit, offset int) ([]*Note, int, error)
}
