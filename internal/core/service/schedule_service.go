package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/staffdesk/ops-system/internal/core/domain"
	"github.com/staffdesk/ops-system/internal/core/ports"
)

const schedulesCollection = "schedules"

type ScheduleService struct {
	repo    ports.ShiftRepository
	fetcher ports.Fetcher
	logger  zerolog.Logger
}

func NewScheduleService(repo ports.ShiftRepository, fetcher ports.Fetcher, logger zerolog.Logger) *ScheduleService {
	return &ScheduleService{repo: repo, fetcher: fetcher, logger: logger}
}

// InRange returns shifts whose start time falls inside [start, end].
func (s *ScheduleService) InRange(ctx context.Context, start, end time.Time) ([]domain.Shift, error) {
	records, err := s.fetcher.Fetch(ctx, schedulesCollection, []ports.Constraint{
		ports.Where("start_time", ">=", start.UTC()),
		ports.Where("start_time", "<=", end.UTC()),
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to fetch schedule")
		return nil, err
	}

	shifts := make([]domain.Shift, 0, len(records))
	for _, r := range records {
		shifts = append(shifts, domain.Shift{
			ID:        r.String("id"),
			UserID:    r.String("user_id"),
			StartTime: r.Time("start_time"),
			EndTime:   r.Time("end_time"),
		})
	}
	return shifts, nil
}

// Create persists a new shift.
func (s *ScheduleService) Create(ctx context.Context, shift *domain.Shift) (*domain.Shift, error) {
	id, err := s.repo.Insert(ctx, shift)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to create shift")
		return nil, err
	}
	shift.ID = id
	return shift, nil
}
