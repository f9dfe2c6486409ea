package usecase

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"telegram-english-tutor/internal/config"
	"telegram-english-tutor/internal/domain"
	"telegram-english-tutor/internal/domain/model"
	"telegram-english-tutor/internal/domain/ports/repository"
	"telegram-english-tutor/internal/infra/metrics"
)

// StreakResult describes what happened to the user's practice streak after
// one message. Extended means the streak moved today (first message of the
// day) and the surface should announce it.
type StreakResult struct {
	Days              int
	Extended          bool
	RewardMilestone   int // 0 when no reward was granted this time
	RewardMessages    int
	RewardPremiumDays int
	NextMilestoneIn   int // days until the next reward, 0 when all earned
}

var _ StreakUseCase = (*streakUC)(nil)

type StreakUseCase interface {
	Track(ctx context.Context, tx repository.Tx, user *model.User, now time.Time) (*StreakResult, error)
	NextMilestoneIn(days int) int
}

type streakUC struct {
	users      repository.UserRepository
	subs       repository.SubscriptionRepository
	milestones []config.Milestone // sorted ascending by Days
	log        *zerolog.Logger
}

func NewStreakUseCase(users repository.UserRepository, subs repository.SubscriptionRepository, milestones []config.Milestone, logger *zerolog.Logger) *streakUC {
	return &streakUC{users: users, subs: subs, milestones: milestones, log: logger}
}

// Track advances the streak for one processed message. Consecutive calendar
// days grow the streak; a gap resets it to one. At most one milestone reward
// is granted per extension, tracked through the user's highest rewarded
// milestone so a reward never repeats.
func (s *streakUC) Track(ctx context.Context, tx repository.Tx, user *model.User, now time.Time) (*StreakResult, error) {
	if user == nil {
		return nil, domain.ErrInvalidArgument
	}

	today := now.Format("2006-01-02")
	yesterday := now.AddDate(0, 0, -1).Format("2006-01-02")

	res := &StreakResult{Days: user.StreakDays}
	switch user.LastActiveDate {
	case today:
		res.NextMilestoneIn = s.NextMilestoneIn(res.Days)
		return res, nil
	case yesterday:
		res.Days = user.StreakDays + 1
	default:
		res.Days = 1
	}
	res.Extended = true

	if err := s.users.UpdateStreak(ctx, tx, user.ID, res.Days, today); err != nil {
		return nil, err
	}
	user.StreakDays = res.Days
	user.LastActiveDate = today

	// One reward per extension, lowest unearned milestone first.
	for _, m := range s.milestones {
		if res.Days < m.Days || user.LastStreakReward >= m.Days {
			continue
		}
		if m.BonusMessages > 0 {
			if err := s.users.AddBonusMessages(ctx, tx, user.ID, m.BonusMessages); err != nil {
				return nil, err
			}
			user.BonusMessages += m.BonusMessages
		}
		if m.PremiumDays > 0 {
			if err := s.extendPremium(ctx, tx, user.ID, m.PremiumDays, now); err != nil {
				return nil, err
			}
		}
		if err := s.users.SetLastStreakReward(ctx, tx, user.ID, m.Days); err != nil {
			return nil, err
		}
		user.LastStreakReward = m.Days
		res.RewardMilestone = m.Days
		res.RewardMessages = m.BonusMessages
		res.RewardPremiumDays = m.PremiumDays
		metrics.ObserveStreakReward(strconv.Itoa(m.Days))
		s.log.Info().Int64("user_id", user.ID).Int("milestone", m.Days).Msg("streak reward granted")
		break
	}

	res.NextMilestoneIn = s.NextMilestoneIn(res.Days)
	return res, nil
}

func (s *streakUC) extendPremium(ctx context.Context, tx repository.Tx, userID int64, days int, now time.Time) error {
	sub, err := s.subs.Find(ctx, tx, userID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	newExpiry := sub.ExtendedBy(now, days)
	if err := s.subs.Upsert(ctx, tx, userID, newExpiry); err != nil {
		return err
	}
	metrics.ObserveSubscriptionDays("streak", days)
	return nil
}

// NextMilestoneIn reports how many more days until the next reward.
func (s *streakUC) NextMilestoneIn(days int) int {
	for _, m := range s.milestones {
		if days < m.Days {
			return m.Days - days
		}
	}
	return 0
}
