package model

import (
	"time"

	"telegram-english-tutor/internal/domain"
)

// User is a domain entity representing a Telegram user of the tutor bot.
// MessageCount is the lifetime number of processed messages; BonusMessages
// is extra quota granted by referrals and streak rewards on top of the
// free allowance.
type User struct {
	ID                  int64 // Telegram user id, stable and immutable
	Username            string
	MessageCount        int
	BonusMessages       int
	Level               Level
	OnboardingCompleted bool
	LastActiveDate      string // ISO date (YYYY-MM-DD), empty until first turn
	StreakDays          int
	LastStreakReward    int // highest milestone day-count already rewarded
	ReferralCode        string
	LastReferralBonusAt *time.Time // inviter-side reward cooldown marker
	CreatedAt           time.Time
}

func NewUser(id int64, username string) (*User, error) {
	if id <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &User{
		ID:        id,
		Username:  username,
		CreatedAt: time.Now(),
	}, nil
}

func (u *User) IsZero() bool { return u == nil || u.ID == 0 }

// TotalLimit computes the free-tier allowance given the configured base.
// Negative bonus balances never shrink the base quota.
func (u *User) TotalLimit(baseFree int) int {
	bonus := u.BonusMessages
	if bonus < 0 {
		bonus = 0
	}
	return baseFree + bonus
}

// MessagesLeft reports the remaining free-tier quota, never below zero.
func (u *User) MessagesLeft(baseFree int) int {
	left := u.TotalLimit(baseFree) - u.MessageCount
	if left < 0 {
		return 0
	}
	return left
}
