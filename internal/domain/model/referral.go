package model

import "time"

// Referral is one activation row linking inviter and invitee. InviteeID is
// unique across all rows: a user may only ever activate one code.
type Referral struct {
	ID           int64
	InviterID    int64
	InviteeID    int64
	ReferralCode string
	CreatedAt    time.Time
}
