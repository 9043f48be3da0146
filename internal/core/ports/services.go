package ports

import (
	"context"
	"time"

	"github.com/staffdesk/ops-system/internal/core/domain"
)

// Fetcher is the offline-resilient read path: memory cache, local mirror,
// then remote with retry. Fails only when every tier is exhausted.
type Fetcher interface {
	Fetch(ctx context.Context, collection string, constraints []Constraint) ([]Record, error)
}

type AuthService interface {
	Register(ctx context.Context, email, password, firstName, lastName string, role domain.Role) (*domain.User, error)
	Login(ctx context.Context, email, password string) (string, *domain.User, error)
	Profile(ctx context.Context, email string) (*domain.User, error)
}

// UploadDocumentInput carries the caller-supplied fields of a new document.
type UploadDocumentInput struct {
	Title       string
	Type        string
	Description string
	Notes       string
	DueDate     time.Time
}

type DocumentService interface {
	List(ctx context.Context) ([]domain.Document, error)
	Get(ctx context.Context, id string) (*domain.Document, error)
	Upload(ctx context.Context, in UploadDocumentInput) (*domain.Document, error)
	Sign(ctx context.Context, id string) error
	Reject(ctx context.Context, id string) error
}

type SalesService interface {
	ByDateRange(ctx context.Context, start, end time.Time) ([]domain.Sale, error)
	ForPeriod(ctx context.Context, period domain.SalesPeriod) ([]domain.Sale, error)
	Record(ctx context.Context, sale *domain.Sale) (*domain.Sale, error)
}

type ScheduleService interface {
	InRange(ctx context.Context, start, end time.Time) ([]domain.Shift, error)
	Create(ctx context.Context, shift *domain.Shift) (*domain.Shift, error)
}

type UserService interface {
	List(ctx context.Context) ([]domain.User, error)
	UpdateRole(ctx context.Context, userID string, role domain.Role) error
}
