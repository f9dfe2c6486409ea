package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"telegram-english-tutor/internal/domain"
	"telegram-english-tutor/internal/domain/ports/repository"
)

var _ repository.QuizStateRepository = (*QuizStateRepo)(nil)

// QuizStateRepo keeps in-flight level-test sessions in Redis so the bot can
// restart without users losing their place mid-quiz. Sessions expire on
// their own; an expired session reads as domain.ErrNotFound.
type QuizStateRepo struct {
	client RedisClient
	ttl    time.Duration
}

func NewQuizStateRepo(client RedisClient, ttl time.Duration) *QuizStateRepo {
	return &QuizStateRepo{client: client, ttl: ttl}
}

func quizKey(userID int64) string {
	return fmt.Sprintf("quiz_session:%d", userID)
}

func (s *QuizStateRepo) SetSession(ctx context.Context, userID int64, session *repository.QuizSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, quizKey(userID), data, s.ttl)
}

func (s *QuizStateRepo) GetSession(ctx context.Context, userID int64) (*repository.QuizSession, error) {
	data, err := s.client.Get(ctx, quizKey(userID))
	if err != nil {
		if IsNil(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	var session repository.QuizSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *QuizStateRepo) ClearSession(ctx context.Context, userID int64) error {
	return s.client.Del(ctx, quizKey(userID))
}
