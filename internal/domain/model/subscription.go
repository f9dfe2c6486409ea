package model

import "time"

// Subscription holds the single premium row per user: an expiry timestamp.
// "Active" means now is before ExpiresAt. Extension always grows the expiry,
// never shortens it.
type Subscription struct {
	UserID    int64
	ExpiresAt time.Time
}

func (s *Subscription) Active(now time.Time) bool {
	return s != nil && now.Before(s.ExpiresAt)
}

// ExtendedBy returns the expiry after adding days on top of
// max(now, current expiry). A lapsed subscription restarts from now.
func (s *Subscription) ExtendedBy(now time.Time, days int) time.Time {
	base := now
	if s != nil && s.ExpiresAt.After(now) {
		base = s.ExpiresAt
	}
	return base.Add(time.Duration(days) * 24 * time.Hour)
}
