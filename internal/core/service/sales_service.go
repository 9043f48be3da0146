package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/staffdesk/ops-system/internal/core/domain"
	"github.com/staffdesk/ops-system/internal/core/ports"
)

const salesCollection = "sales"

const salesRangeLimit = 100

type SalesService struct {
	repo    ports.SaleRepository
	fetcher ports.Fetcher
	now     func() time.Time
	logger  zerolog.Logger
}

func NewSalesService(repo ports.SaleRepository, fetcher ports.Fetcher, logger zerolog.Logger) *SalesService {
	return &SalesService{repo: repo, fetcher: fetcher, now: time.Now, logger: logger}
}

// ByDateRange returns sales inside [start, end], newest first, capped at
// salesRangeLimit.
func (s *SalesService) ByDateRange(ctx context.Context, start, end time.Time) ([]domain.Sale, error) {
	records, err := s.fetcher.Fetch(ctx, salesCollection, []ports.Constraint{
		ports.Where("date", ">=", start.UTC()),
		ports.Where("date", "<=", end.UTC()),
		ports.OrderBy("date", true),
		ports.Limit(salesRangeLimit),
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to fetch sales")
		return nil, err
	}

	sales := make([]domain.Sale, 0, len(records))
	for _, r := range records {
		sales = append(sales, domain.Sale{
			ID:     r.String("id"),
			Amount: r.Float("amount"),
			Date:   r.Time("date"),
			UserID: r.String("user_id"),
		})
	}
	return sales, nil
}

// ForPeriod returns sales for the day, week, or month containing now.
func (s *SalesService) ForPeriod(ctx context.Context, period domain.SalesPeriod) ([]domain.Sale, error) {
	start, end := period.Range(s.now())
	return s.ByDateRange(ctx, start, end)
}

// Record persists a new sale.
func (s *SalesService) Record(ctx context.Context, sale *domain.Sale) (*domain.Sale, error) {
	if sale.Date.IsZero() {
		sale.Date = s.now().UTC()
	}
	id, err := s.repo.Insert(ctx, sale)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to record sale")
		return nil, err
	}
	sale.ID = id
	return sale, nil
}
