package repository

import "context"

// QuizQuestion is one multiple-choice question as shown to the user.
type QuizQuestion struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Correct  int      `json:"correct"`
	Level    string   `json:"level,omitempty"`
}

// QuizSession is the short-lived state of a level test. Questions are fixed
// at session start so a retry never sees shifting answers.
type QuizSession struct {
	Kind      string         `json:"kind"` // "verify" (onboarding) | "express" (viral quiz)
	Level     string         `json:"level,omitempty"`
	Questions []QuizQuestion `json:"questions"`
	Current   int            `json:"current"`
	Score     int            `json:"score"`
}

// QuizStateRepository stores in-flight quiz sessions with a TTL. A missing
// session returns domain.ErrNotFound.
type QuizStateRepository interface {
	SetSession(ctx context.Context, userID int64, s *QuizSession) error
	GetSession(ctx context.Context, userID int64) (*QuizSession, error)
	ClearSession(ctx context.Context, userID int64) error
}
