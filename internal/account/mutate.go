package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"laundry/internal/apperr"
	"laundry/internal/models"
	"laundry/internal/store"
)

// commitError asks mutate to persist the changes made so far and then
// report the wrapped error. Failed logins use it to keep their counters.
type commitError struct {
	err error
}

func (e *commitError) Error() string { return e.err.Error() }

func (e *commitError) Unwrap() error { return e.err }

func commitAndFail(err error) error {
	return &commitError{err: err}
}

// mutate applies fn to user and writes the result with a version check. On
// a conflict the user is reloaded and fn runs again on the fresh copy. On
// success *user holds the stored state.
func (s *Service) mutate(ctx context.Context, user *models.User, fn func(u *models.User, now time.Time) error) error {
	for attempt := 1; ; attempt++ {
		var commit *commitError
		if err := fn(user, s.clock.Now()); err != nil && !errors.As(err, &commit) {
			return err
		}

		err := s.users.Update(ctx, user)
		switch {
		case err == nil:
			if commit != nil {
				return commit.err
			}
			return nil
		case errors.Is(err, store.ErrVersionConflict) && attempt < maxWriteAttempts:
			s.log.WithField("userId", user.ID.Hex()).Debug("version conflict, retrying")
			fresh, loadErr := s.load(ctx, user.ID)
			if loadErr != nil {
				return loadErr
			}
			*user = *fresh
		case errors.Is(err, store.ErrNotFound):
			return errUserNotFound
		default:
			return apperr.Internal(fmt.Errorf("update user: %w", err))
		}
	}
}
