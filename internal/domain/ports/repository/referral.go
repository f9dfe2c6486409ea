package repository

import (
	"context"

	"telegram-english-tutor/internal/domain/model"
)

// ReferralRepository records code activations. The invitee column is
// unique; Add returns domain.ErrReferralAlreadyActivated and performs no
// mutation when the invitee has already activated any code.
type ReferralRepository interface {
	Add(ctx context.Context, tx Tx, ref *model.Referral) error
	FindByInvitee(ctx context.Context, tx Tx, inviteeID int64) (*model.Referral, error)
	CountByInviter(ctx context.Context, tx Tx, inviterID int64) (int, error)
}
