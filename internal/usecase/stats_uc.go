package usecase

import (
	"context"
	"time"

	"telegram-english-tutor/internal/domain/ports/repository"
)

// Stats is the operator dashboard snapshot.
type Stats struct {
	TotalUsers          int
	ActiveSubscriptions int
	ConversionPercent   float64
	AverageMessages     float64
	UsersByLevel        map[string]int
}

var _ StatsUseCase = (*statsUC)(nil)

type StatsUseCase interface {
	Snapshot(ctx context.Context) (*Stats, error)
}

type statsUC struct {
	users repository.UserRepository
	subs  repository.SubscriptionRepository
}

func NewStatsUseCase(users repository.UserRepository, subs repository.SubscriptionRepository) *statsUC {
	return &statsUC{users: users, subs: subs}
}

func (s *statsUC) Snapshot(ctx context.Context) (*Stats, error) {
	total, err := s.users.CountUsers(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	active, err := s.subs.CountActive(ctx, repository.NoTX, time.Now())
	if err != nil {
		return nil, err
	}
	avg, err := s.users.AverageMessages(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	byLevel, err := s.users.CountByLevel(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}

	st := &Stats{
		TotalUsers:          total,
		ActiveSubscriptions: active,
		AverageMessages:     avg,
		UsersByLevel:        byLevel,
	}
	if total > 0 {
		st.ConversionPercent = float64(active) / float64(total) * 100
	}
	return st, nil
}
