package usecase

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"telegram-english-tutor/internal/domain"
	"telegram-english-tutor/internal/domain/model"
	"telegram-english-tutor/internal/domain/ports/repository"
)

var _ UserUseCase = (*userUC)(nil)

type UserUseCase interface {
	// Register returns the user, creating the row on first contact. The
	// second result reports whether the user is new.
	Register(ctx context.Context, id int64, username string) (*model.User, bool, error)
	Get(ctx context.Context, id int64) (*model.User, error)
}

type userUC struct {
	users repository.UserRepository
	log   *zerolog.Logger
}

func NewUserUseCase(users repository.UserRepository, logger *zerolog.Logger) *userUC {
	return &userUC{users: users, log: logger}
}

func (u *userUC) Register(ctx context.Context, id int64, username string) (*model.User, bool, error) {
	user, err := u.users.FindByID(ctx, repository.NoTX, id)
	if err == nil {
		if username != "" && username != user.Username {
			// Create upserts the handle, nothing else changes.
			fresh := *user
			fresh.Username = username
			if err := u.users.Create(ctx, repository.NoTX, &fresh); err != nil {
				return nil, false, err
			}
			user.Username = username
		}
		return user, false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, false, err
	}

	user, err = model.NewUser(id, username)
	if err != nil {
		return nil, false, err
	}
	if err := u.users.Create(ctx, repository.NoTX, user); err != nil {
		return nil, false, err
	}
	u.log.Info().Int64("user_id", id).Str("username", username).Msg("user registered")
	return user, true, nil
}

func (u *userUC) Get(ctx context.Context, id int64) (*model.User, error) {
	return u.users.FindByID(ctx, repository.NoTX, id)
}
