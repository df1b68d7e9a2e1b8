package todos

import (
	"context"

	"github.com/manukko/todos/internal/server/models"
)

// UpdateParams carries the optional fields of a todo update. Nil fields
// are left unchanged.
type UpdateParams struct {
	Title       *string
	Description *string
	Completed   *bool
}

// Repository is the persistence contract for todo items. All reads and
// writes are scoped to an owner so one user can never touch another's items.
type Repository interface {
	Create(ctx context.Context, ownerID int64, title, description string) (*models.Todo, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]*models.Todo, error)
	GetByID(ctx context.Context, ownerID, id int64) (*models.Todo, error)
	FindByTitle(ctx context.Context, ownerID int64, title string) ([]*models.Todo, error)
	Update(ctx context.Context, ownerID, id int64, params UpdateParams) (*models.Todo, error)
	SetAttachmentKey(ctx context.Context, ownerID, id int64, key string) error
	Delete(ctx context.Context, ownerID, id int64) error
}
