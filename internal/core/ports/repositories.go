package ports

import (
	"context"
	"time"

	"github.com/staffdesk/ops-system/internal/core/domain"
)

// AuthRepository defines the interface for user account persistence used
// by the REST facade's auth path.
type AuthRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
}

// UserRepository exposes the administration view over user accounts.
type UserRepository interface {
	List(ctx context.Context) ([]domain.User, error)
	UpdateRole(ctx context.Context, userID string, role domain.Role) error
}

// DocumentRepository handles document writes. Reads go through the
// offline fetch layer instead.
type DocumentRepository interface {
	Insert(ctx context.Context, doc *domain.Document) (string, error)
	FindByID(ctx context.Context, id string) (*domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, at time.Time) error
}

// SaleRepository handles sale writes.
type SaleRepository interface {
	Insert(ctx context.Context, sale *domain.Sale) (string, error)
}

// ShiftRepository handles schedule writes.
type ShiftRepository interface {
	Insert(ctx context.Context, shift *domain.Shift) (string, error)
}
