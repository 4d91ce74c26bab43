package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"laundry/internal/apperr"
	"laundry/internal/models"
	"laundry/internal/security"
	"laundry/internal/store"
	"laundry/internal/validation"
)

const (
	defaultMaxLoginAttempts = 5
	defaultLockDuration     = 15 * time.Minute
	defaultRefreshTokenTTL  = 7 * 24 * time.Hour

	maxActiveRefreshTokens = 10
	maxWriteAttempts       = 5
)

// AccessTokenIssuer signs access tokens for authenticated accounts.
type AccessTokenIssuer interface {
	IssueAccessToken(userID, email, role string) (string, error)
	TTL() time.Duration
}

type Options struct {
	RefreshTokenTTL  time.Duration
	MaxLoginAttempts int
	LockDuration     time.Duration
}

// Service implements the account lifecycle on top of a UserStore. Every
// write is a read-modify-write of one user document, retried on version
// conflicts.
type Service struct {
	users     store.UserStore
	hasher    security.PasswordHasher
	tokens    AccessTokenIssuer
	clock     security.Clock
	log       logrus.FieldLogger
	validate  *validator.Validate
	opts      Options
	dummyHash string
}

func NewService(users store.UserStore, hasher security.PasswordHasher, tokens AccessTokenIssuer, clock security.Clock, log logrus.FieldLogger, opts Options) (*Service, error) {
	if opts.RefreshTokenTTL <= 0 {
		opts.RefreshTokenTTL = defaultRefreshTokenTTL
	}
	if opts.MaxLoginAttempts <= 0 {
		opts.MaxLoginAttempts = defaultMaxLoginAttempts
	}
	if opts.LockDuration <= 0 {
		opts.LockDuration = defaultLockDuration
	}
	if clock == nil {
		clock = security.RealClock{}
	}

	// Compared against when the email is unknown so both failure paths
	// cost one bcrypt comparison.
	dummy, err := hasher.Hash(uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("account: dummy hash: %w", err)
	}

	return &Service{
		users:     users,
		hasher:    hasher,
		tokens:    tokens,
		clock:     clock,
		log:       log.WithField("area", "auth"),
		validate:  validation.New(),
		opts:      opts,
		dummyHash: dummy,
	}, nil
}

// AuthResult is returned by every operation that starts or extends a session.
type AuthResult struct {
	User         models.UserView
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

type RegisterInput struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Name     string `json:"name" validate:"required,max=100"`
	Mobile   string `json:"mobile" validate:"omitempty,mobile"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type ChangePasswordInput struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,max=72"`
}

type ProfileInput struct {
	Name   *string `json:"name" validate:"omitempty,min=1,max=100"`
	Mobile *string `json:"mobile" validate:"omitempty,mobile"`
}

type AddressInput struct {
	Label     string   `json:"label" validate:"required,oneof=home work favorite other"`
	Address   string   `json:"address" validate:"required,max=500"`
	Lat       *float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Lng       *float64 `json:"lng" validate:"required,gte=-180,lte=180"`
	IsDefault bool     `json:"isDefault"`
}

var (
	errInvalidCredentials = apperr.Unauthorized(apperr.CodeInvalidCredentials, "invalid email or password")
	errAccountLocked      = apperr.Unauthorized(apperr.CodeAccountLocked, "account is temporarily locked, try again later")
	errInvalidRefresh     = apperr.Unauthorized(apperr.CodeInvalidToken, "invalid refresh token")
	errUserNotFound       = apperr.NotFound("user not found")
	errAddressNotFound    = apperr.NotFound("address not found")
)

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) Register(ctx context.Context, in RegisterInput, ip string) (*AuthResult, error) {
	in.Email = NormalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	in.Mobile = strings.TrimSpace(in.Mobile)
	if err := validation.Check(s.validate, in); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("hash password: %w", err))
	}

	now := s.clock.Now()
	user := &models.User{
		ID:            primitive.NewObjectID(),
		Email:         in.Email,
		PasswordHash:  hash,
		Name:          in.Name,
		Role:          models.RoleUser,
		Mobile:        in.Mobile,
		Addresses:     []models.Address{},
		RefreshTokens: []models.RefreshToken{},
		LastLogin:     &now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	plainRefresh, err := s.attachRefreshToken(user, ip, now)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Duplicate("email is already registered")
		}
		return nil, apperr.Internal(fmt.Errorf("create user: %w", err))
	}

	s.log.WithField("userId", user.ID.Hex()).Info("user registered")
	return s.authResult(user, plainRefresh)
}

func (s *Service) Login(ctx context.Context, in LoginInput, ip string) (*AuthResult, error) {
	in.Email = NormalizeEmail(in.Email)
	if err := validation.Check(s.validate, in); err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, in.Email)
	if errors.Is(err, store.ErrNotFound) {
		s.hasher.Compare(in.Password, s.dummyHash)
		return nil, errInvalidCredentials
	}
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("find user: %w", err))
	}

	var plainRefresh string
	err = s.mutate(ctx, user, func(u *models.User, now time.Time) error {
		if u.LockUntil != nil && !u.LockUntil.After(now) {
			u.LockUntil = nil
			u.LoginAttempts = 0
		}
		if u.IsLocked(now) {
			return errAccountLocked
		}

		if !s.hasher.Compare(in.Password, u.PasswordHash) {
			u.LoginAttempts++
			if u.LoginAttempts >= s.opts.MaxLoginAttempts {
				lock := now.Add(s.opts.LockDuration)
				u.LockUntil = &lock
				s.log.WithFields(logrus.Fields{"userId": u.ID.Hex(), "ip": ip}).Warn("account locked after failed logins")
			}
			u.UpdatedAt = now
			return commitAndFail(errInvalidCredentials)
		}

		u.LoginAttempts = 0
		u.LockUntil = nil
		u.LastLogin = &now
		u.UpdatedAt = now

		token, err := s.attachRefreshToken(u, ip, now)
		if err != nil {
			return apperr.Internal(err)
		}
		plainRefresh = token
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithField("userId", user.ID.Hex()).Info("user logged in")
	return s.authResult(user, plainRefresh)
}

// Refresh exchanges an active refresh token for a new pair. Presenting a
// token that was already rotated out revokes every session of the account.
func (s *Service) Refresh(ctx context.Context, plain, ip string) (*AuthResult, error) {
	plain = strings.TrimSpace(plain)
	if plain == "" {
		return nil, apperr.Unauthorized("", "refresh token is required")
	}
	hash := security.HashToken(plain)

	user, err := s.users.FindByRefreshToken(ctx, hash)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errInvalidRefresh
	}
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("find refresh token: %w", err))
	}

	var plainRefresh string
	err = s.mutate(ctx, user, func(u *models.User, now time.Time) error {
		idx := -1
		for i := range u.RefreshTokens {
			if u.RefreshTokens[i].TokenHash == hash {
				idx = i
				break
			}
		}
		if idx < 0 {
			return errInvalidRefresh
		}

		current := u.RefreshTokens[idx]
		if current.Revoked != nil || current.ReplacedByToken != "" {
			revokeAll(u, ip, now)
			u.UpdatedAt = now
			s.log.WithFields(logrus.Fields{"userId": u.ID.Hex(), "ip": ip}).Warn("refresh token reuse detected, sessions revoked")
			return commitAndFail(errInvalidRefresh)
		}
		if current.IsExpired(now) {
			return errInvalidRefresh
		}

		next, record, err := security.NewRefreshToken(ip, s.opts.RefreshTokenTTL, now)
		if err != nil {
			return apperr.Internal(err)
		}
		u.RefreshTokens[idx].Revoked = &now
		u.RefreshTokens[idx].RevokedByIP = ip
		u.RefreshTokens[idx].ReplacedByToken = record.TokenHash
		u.RefreshTokens = append(pruneRefreshTokens(u.RefreshTokens, now), record)
		u.UpdatedAt = now
		plainRefresh = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.authResult(user, plainRefresh)
}

// Logout revokes the given refresh token. Unknown or inactive tokens are
// ignored.
func (s *Service) Logout(ctx context.Context, plain, ip string) error {
	plain = strings.TrimSpace(plain)
	if plain == "" {
		return nil
	}
	hash := security.HashToken(plain)

	user, err := s.users.FindByRefreshToken(ctx, hash)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return apperr.Internal(fmt.Errorf("find refresh token: %w", err))
	}

	return s.mutate(ctx, user, func(u *models.User, now time.Time) error {
		for i := range u.RefreshTokens {
			if u.RefreshTokens[i].TokenHash == hash && u.RefreshTokens[i].IsActive(now) {
				u.RefreshTokens[i].Revoked = &now
				u.RefreshTokens[i].RevokedByIP = ip
			}
		}
		u.RefreshTokens = pruneRefreshTokens(u.RefreshTokens, now)
		return nil
	})
}

// ChangePassword replaces the password and ends every refresh session.
func (s *Service) ChangePassword(ctx context.Context, userID primitive.ObjectID, in ChangePasswordInput) error {
	if err := validation.Check(s.validate, in); err != nil {
		return err
	}

	user, err := s.load(ctx, userID)
	if err != nil {
		return err
	}

	return s.mutate(ctx, user, func(u *models.User, now time.Time) error {
		if !s.hasher.Compare(in.CurrentPassword, u.PasswordHash) {
			return errInvalidCredentials
		}
		if len(in.NewPassword) < validation.MinPasswordLength {
			return validation.WeakPassword()
		}
		hash, err := s.hasher.Hash(in.NewPassword)
		if err != nil {
			return apperr.Internal(fmt.Errorf("hash password: %w", err))
		}
		u.PasswordHash = hash
		revokeAll(u, "", now)
		u.UpdatedAt = now
		return nil
	})
}

func (s *Service) GetUser(ctx context.Context, userID primitive.ObjectID) (models.UserView, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return models.UserView{}, err
	}
	return user.View(), nil
}

// UpdateProfile changes the fields present in in. An empty mobile clears it.
func (s *Service) UpdateProfile(ctx context.Context, userID primitive.ObjectID, in ProfileInput) (models.UserView, error) {
	if in.Name != nil {
		trimmed := strings.TrimSpace(*in.Name)
		in.Name = &trimmed
	}
	clearMobile := false
	if in.Mobile != nil {
		trimmed := strings.TrimSpace(*in.Mobile)
		in.Mobile = &trimmed
		// An empty mobile removes the stored number.
		if trimmed == "" {
			clearMobile = true
			in.Mobile = nil
		}
	}
	if err := validation.Check(s.validate, in); err != nil {
		return models.UserView{}, err
	}

	user, err := s.load(ctx, userID)
	if err != nil {
		return models.UserView{}, err
	}

	err = s.mutate(ctx, user, func(u *models.User, now time.Time) error {
		if in.Name != nil {
			u.Name = *in.Name
		}
		switch {
		case clearMobile:
			u.Mobile = ""
		case in.Mobile != nil:
			u.Mobile = *in.Mobile
		}
		u.UpdatedAt = now
		return nil
	})
	if err != nil {
		return models.UserView{}, err
	}
	return user.View(), nil
}

// SetProfileImage stores a reference to an already validated upload and
// returns the reference it replaced.
func (s *Service) SetProfileImage(ctx context.Context, userID primitive.ObjectID, path string) (string, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return "", err
	}

	var previous string
	err = s.mutate(ctx, user, func(u *models.User, now time.Time) error {
		previous = u.ProfileImage
		u.ProfileImage = path
		u.UpdatedAt = now
		return nil
	})
	if err != nil {
		return "", err
	}
	return previous, nil
}

func (s *Service) ListAddresses(ctx context.Context, userID primitive.ObjectID) ([]models.Address, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.View().Addresses, nil
}

func (s *Service) AddAddress(ctx context.Context, userID primitive.ObjectID, in AddressInput) (models.Address, []models.Address, error) {
	in.Label = strings.ToLower(strings.TrimSpace(in.Label))
	in.Address = strings.TrimSpace(in.Address)
	if err := validation.Check(s.validate, in); err != nil {
		return models.Address{}, nil, err
	}

	user, err := s.load(ctx, userID)
	if err != nil {
		return models.Address{}, nil, err
	}

	added := models.Address{
		ID:        uuid.NewString(),
		Label:     in.Label,
		Address:   in.Address,
		Lat:       *in.Lat,
		Lng:       *in.Lng,
		IsDefault: in.IsDefault,
	}
	err = s.mutate(ctx, user, func(u *models.User, now time.Time) error {
		u.Addresses = appendAddress(u.Addresses, added)
		u.UpdatedAt = now
		return nil
	})
	if err != nil {
		return models.Address{}, nil, err
	}

	stored := user.Addresses[findAddress(user.Addresses, added.ID)]
	return stored, user.Addresses, nil
}

func (s *Service) DeleteAddress(ctx context.Context, userID primitive.ObjectID, addressID string) ([]models.Address, error) {
	return s.editAddresses(ctx, userID, func(list []models.Address) ([]models.Address, bool) {
		return removeAddress(list, addressID)
	})
}

func (s *Service) SetDefaultAddress(ctx context.Context, userID primitive.ObjectID, addressID string) ([]models.Address, error) {
	return s.editAddresses(ctx, userID, func(list []models.Address) ([]models.Address, bool) {
		return setDefaultAddress(list, addressID)
	})
}

func (s *Service) editAddresses(ctx context.Context, userID primitive.ObjectID, edit func([]models.Address) ([]models.Address, bool)) ([]models.Address, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	err = s.mutate(ctx, user, func(u *models.User, now time.Time) error {
		updated, ok := edit(u.Addresses)
		if !ok {
			return errAddressNotFound
		}
		u.Addresses = updated
		u.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user.View().Addresses, nil
}

func (s *Service) ListUsers(ctx context.Context, page store.Page) ([]models.UserView, int64, error) {
	users, total, err := s.users.List(ctx, page)
	if err != nil {
		return nil, 0, apperr.Internal(fmt.Errorf("list users: %w", err))
	}
	views := make([]models.UserView, 0, len(users))
	for i := range users {
		views = append(views, users[i].View())
	}
	return views, total, nil
}

// SetRole changes another account's role. Admins cannot change their own.
func (s *Service) SetRole(ctx context.Context, actorID, userID primitive.ObjectID, role string) (models.UserView, error) {
	if role != models.RoleUser && role != models.RoleAdmin {
		return models.UserView{}, apperr.Validation("role must be one of: user, admin")
	}
	if actorID == userID {
		return models.UserView{}, apperr.Forbidden("cannot change your own role")
	}

	user, err := s.load(ctx, userID)
	if err != nil {
		return models.UserView{}, err
	}

	err = s.mutate(ctx, user, func(u *models.User, now time.Time) error {
		u.Role = role
		u.UpdatedAt = now
		return nil
	})
	if err != nil {
		return models.UserView{}, err
	}

	s.log.WithFields(logrus.Fields{"userId": userID.Hex(), "by": actorID.Hex(), "role": role}).Info("role changed")
	return user.View(), nil
}

func (s *Service) load(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errUserNotFound
	}
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("find user: %w", err))
	}
	return user, nil
}

func (s *Service) attachRefreshToken(u *models.User, ip string, now time.Time) (string, error) {
	plain, record, err := security.NewRefreshToken(ip, s.opts.RefreshTokenTTL, now)
	if err != nil {
		return "", fmt.Errorf("refresh token: %w", err)
	}
	u.RefreshTokens = append(pruneRefreshTokens(u.RefreshTokens, now), record)
	return plain, nil
}

func (s *Service) authResult(u *models.User, plainRefresh string) (*AuthResult, error) {
	access, err := s.tokens.IssueAccessToken(u.ID.Hex(), u.Email, u.Role)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("sign access token: %w", err))
	}
	return &AuthResult{
		User:         u.View(),
		AccessToken:  access,
		RefreshToken: plainRefresh,
		ExpiresIn:    int64(s.tokens.TTL().Seconds()),
	}, nil
}
