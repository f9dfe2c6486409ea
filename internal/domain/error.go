package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound            = errors.New("entity not found")
	ErrAlreadyExists       = errors.New("entity already exists")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrInvalidExecContext  = errors.New("invalid executor context")
	ErrMessageLimitReached = errors.New("free message limit reached")
	ErrOnboardingRequired  = errors.New("onboarding not completed")
	ErrRateLimited         = errors.New("too many messages, slow down")
	ErrEmptyTranscript     = errors.New("speech recognition returned no text")

	// Referral flow
	ErrReferralCodeNotFound     = errors.New("referral code not found")
	ErrSelfReferral             = errors.New("cannot activate own referral code")
	ErrReferralAlreadyActivated = errors.New("referral already activated for this user")
	ErrInviterNotEligible       = errors.New("inviter may not send referral links")

	// Payments
	ErrDuplicateTransaction = errors.New("transaction already processed")
)
