package account

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"laundry/internal/apperr"
	"laundry/internal/logging"
	"laundry/internal/models"
	"laundry/internal/security"
	"laundry/internal/store"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	svc    *Service
	users  *store.MemoryUsers
	clock  *testClock
	tokens *security.TokenIssuer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := &testClock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	tokens, err := security.NewTokenIssuer("test-secret", 20*time.Minute, "laundry", clock)
	require.NoError(t, err)

	users := store.NewMemoryUsers()
	svc, err := NewService(users, security.BcryptHasher{Cost: bcrypt.MinCost}, tokens, clock, logging.Discard(), Options{})
	require.NoError(t, err)
	return &fixture{svc: svc, users: users, clock: clock, tokens: tokens}
}

func (f *fixture) register(t *testing.T, email, password string) *AuthResult {
	t.Helper()
	res, err := f.svc.Register(context.Background(), RegisterInput{
		Email:    email,
		Password: password,
		Name:     "A",
		Mobile:   "0712345678",
	}, "127.0.0.1")
	require.NoError(t, err)
	return res
}

func userID(t *testing.T, res *AuthResult) primitive.ObjectID {
	t.Helper()
	id, err := primitive.ObjectIDFromHex(res.User.ID)
	require.NoError(t, err)
	return id
}

func floatPtr(v float64) *float64 { return &v }

func TestRegisterThenLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res := f.register(t, "  A@B.com ", "secret1")
	assert.Equal(t, "a@b.com", res.User.Email)
	assert.Equal(t, models.RoleUser, res.User.Role)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.Equal(t, int64(1200), res.ExpiresIn)

	identity, err := f.tokens.VerifyAccessToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, identity.ID)

	stored, err := f.users.FindByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", stored.PasswordHash)
	require.Len(t, stored.RefreshTokens, 1)
	assert.NotEqual(t, res.RefreshToken, stored.RefreshTokens[0].TokenHash)

	login, err := f.svc.Login(ctx, LoginInput{Email: "a@b.com", Password: "secret1"}, "127.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, login.User.ID)
}

func TestRegisterRejectsDuplicateEmailCaseInsensitively(t *testing.T) {
	f := newFixture(t)
	f.register(t, "a@b.com", "secret1")

	_, err := f.svc.Register(context.Background(), RegisterInput{Email: "A@B.COM", Password: "secret1", Name: "B"}, "")
	require.True(t, apperr.IsKind(err, apperr.KindDuplicate), "got %v", err)
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, RegisterInput{Email: "a@b.com", Password: "12345", Name: "A"}, "")
	assert.True(t, apperr.HasCode(err, apperr.CodeWeakPassword))

	_, err = f.svc.Register(ctx, RegisterInput{Email: "not-an-email", Password: "secret1", Name: "A"}, "")
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	_, err = f.svc.Register(ctx, RegisterInput{Email: "a@b.com", Password: "secret1", Name: "   "}, "")
	assert.Equal(t, "name is required", apperr.As(err).Message)

	_, err = f.svc.Register(ctx, RegisterInput{Email: "a@b.com", Password: "secret1", Name: "A", Mobile: "12"}, "")
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestLoginDoesNotRevealUnknownEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "a@b.com", "secret1")

	_, unknown := f.svc.Login(ctx, LoginInput{Email: "x@b.com", Password: "secret1"}, "")
	_, wrong := f.svc.Login(ctx, LoginInput{Email: "a@b.com", Password: "nope123"}, "")

	require.Error(t, unknown)
	require.Error(t, wrong)
	assert.Equal(t, apperr.As(wrong).Code, apperr.As(unknown).Code)
	assert.Equal(t, apperr.As(wrong).Message, apperr.As(unknown).Message)
	assert.Equal(t, apperr.CodeInvalidCredentials, apperr.As(unknown).Code)
}

func TestLoginLocksAfterFiveFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "a@b.com", "secret1")

	for i := 0; i < 5; i++ {
		_, err := f.svc.Login(ctx, LoginInput{Email: "a@b.com", Password: "wrong-pass"}, "")
		require.True(t, apperr.HasCode(err, apperr.CodeInvalidCredentials), "attempt %d: %v", i+1, err)
	}

	_, err := f.svc.Login(ctx, LoginInput{Email: "a@b.com", Password: "secret1"}, "")
	require.True(t, apperr.HasCode(err, apperr.CodeAccountLocked), "got %v", err)
	assert.Equal(t, 401, apperr.As(err).Status())

	f.clock.Advance(15*time.Minute + time.Second)

	res, err := f.svc.Login(ctx, LoginInput{Email: "a@b.com", Password: "secret1"}, "")
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)

	stored, err := f.users.FindByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, 0, stored.LoginAttempts)
	assert.Nil(t, stored.LockUntil)
}

func TestExpiredLockStartsFreshCount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "a@b.com", "secret1")

	for i := 0; i < 5; i++ {
		_, _ = f.svc.Login(ctx, LoginInput{Email: "a@b.com", Password: "wrong-pass"}, "")
	}
	f.clock.Advance(16 * time.Minute)

	_, err := f.svc.Login(ctx, LoginInput{Email: "a@b.com", Password: "wrong-pass"}, "")
	require.True(t, apperr.HasCode(err, apperr.CodeInvalidCredentials))

	stored, err := f.users.FindByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, 1, stored.LoginAttempts)
	assert.Nil(t, stored.LockUntil)
}

func TestSuccessfulLoginResetsAttempts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "a@b.com", "secret1")

	for i := 0; i < 3; i++ {
		_, _ = f.svc.Login(ctx, LoginInput{Email: "a@b.com", Password: "wrong-pass"}, "")
	}
	_, err := f.svc.Login(ctx, LoginInput{Email: "a@b.com", Password: "secret1"}, "")
	require.NoError(t, err)

	stored, err := f.users.FindByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, 0, stored.LoginAttempts)
	require.NotNil(t, stored.LastLogin)
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reg := f.register(t, "a@b.com", "secret1")
	id := userID(t, reg)

	err := f.svc.ChangePassword(ctx, id, ChangePasswordInput{CurrentPassword: "bad-pass", NewPassword: "another1"})
	require.True(t, apperr.HasCode(err, apperr.CodeInvalidCredentials))

	err = f.svc.ChangePassword(ctx, id, ChangePasswordInput{CurrentPassword: "secret1", NewPassword: "short"})
	require.True(t, apperr.HasCode(err, apperr.CodeWeakPassword))

	require.NoError(t, f.svc.ChangePassword(ctx, id, ChangePasswordInput{CurrentPassword: "secret1", NewPassword: "another1"}))

	_, err = f.svc.Login(ctx, LoginInput{Email: "a@b.com", Password: "secret1"}, "")
	assert.True(t, apperr.HasCode(err, apperr.CodeInvalidCredentials))

	_, err = f.svc.Login(ctx, LoginInput{Email: "a@b.com", Password: "another1"}, "")
	assert.NoError(t, err)

	_, err = f.svc.Refresh(ctx, reg.RefreshToken, "")
	assert.True(t, apperr.HasCode(err, apperr.CodeInvalidToken), "sessions from before the change are revoked")
}

func TestUpdateProfileIsPartial(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := userID(t, f.register(t, "a@b.com", "secret1"))

	name := "  New Name "
	view, err := f.svc.UpdateProfile(ctx, id, ProfileInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "New Name", view.Name)
	assert.Equal(t, "0712345678", view.Mobile)
	assert.Equal(t, "a@b.com", view.Email)
	assert.Equal(t, models.RoleUser, view.Role)

	bad := "123"
	_, err = f.svc.UpdateProfile(ctx, id, ProfileInput{Mobile: &bad})
	require.True(t, apperr.IsKind(err, apperr.KindValidation))

	_, err = f.svc.UpdateProfile(ctx, primitive.NewObjectID(), ProfileInput{Name: &name})
	require.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestUpdateProfileClearsMobile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := userID(t, f.register(t, "a@b.com", "secret1"))

	blank := "  "
	view, err := f.svc.UpdateProfile(ctx, id, ProfileInput{Mobile: &blank})
	require.NoError(t, err)
	assert.Empty(t, view.Mobile)

	stored, err := f.svc.GetUser(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, stored.Mobile)

	number := "+94712345678"
	view, err = f.svc.UpdateProfile(ctx, id, ProfileInput{Mobile: &number})
	require.NoError(t, err)
	assert.Equal(t, number, view.Mobile)
}

func TestSetProfileImageReturnsPrevious(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := userID(t, f.register(t, "a@b.com", "secret1"))

	previous, err := f.svc.SetProfileImage(ctx, id, "uploads/profiles/one.png")
	require.NoError(t, err)
	assert.Empty(t, previous)

	previous, err = f.svc.SetProfileImage(ctx, id, "uploads/profiles/two.png")
	require.NoError(t, err)
	assert.Equal(t, "uploads/profiles/one.png", previous)

	view, err := f.svc.GetUser(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "uploads/profiles/two.png", view.ProfileImage)
}

func countDefaults(list []models.Address) int {
	n := 0
	for _, a := range list {
		if a.IsDefault {
			n++
		}
	}
	return n
}

func TestAddressLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := userID(t, f.register(t, "a@b.com", "secret1"))

	home, list, err := f.svc.AddAddress(ctx, id, AddressInput{Label: "home", Address: " 1 Main St ", Lat: floatPtr(1), Lng: floatPtr(2)})
	require.NoError(t, err)
	assert.True(t, home.IsDefault, "first address becomes default")
	assert.Equal(t, "1 Main St", home.Address)
	assert.Len(t, list, 1)

	work, list, err := f.svc.AddAddress(ctx, id, AddressInput{Label: "work", Address: "2 Side St", Lat: floatPtr(-1), Lng: floatPtr(-2)})
	require.NoError(t, err)
	assert.False(t, work.IsDefault)
	assert.Equal(t, 1, countDefaults(list))

	fav, list, err := f.svc.AddAddress(ctx, id, AddressInput{Label: "favorite", Address: "3 Park", Lat: floatPtr(0), Lng: floatPtr(0), IsDefault: true})
	require.NoError(t, err)
	assert.True(t, fav.IsDefault)
	assert.Equal(t, 1, countDefaults(list))

	list, err = f.svc.SetDefaultAddress(ctx, id, work.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, countDefaults(list))
	def, ok := DefaultAddress(list)
	require.True(t, ok)
	assert.Equal(t, work.ID, def.ID)

	list, err = f.svc.DeleteAddress(ctx, id, work.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 1, countDefaults(list))
	assert.Equal(t, home.ID, list[0].ID)
	assert.True(t, list[0].IsDefault, "first remaining entry is promoted")

	_, err = f.svc.DeleteAddress(ctx, id, "missing")
	require.True(t, apperr.IsKind(err, apperr.KindNotFound))
	_, err = f.svc.SetDefaultAddress(ctx, id, "missing")
	require.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestAddAddressValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := userID(t, f.register(t, "a@b.com", "secret1"))

	cases := []AddressInput{
		{Label: "castle", Address: "x", Lat: floatPtr(0), Lng: floatPtr(0)},
		{Label: "home", Address: "   ", Lat: floatPtr(0), Lng: floatPtr(0)},
		{Label: "home", Address: "x", Lat: floatPtr(90.5), Lng: floatPtr(0)},
		{Label: "home", Address: "x", Lat: floatPtr(0), Lng: floatPtr(-181)},
		{Label: "home", Address: "x", Lng: floatPtr(0)},
	}
	for _, in := range cases {
		_, _, err := f.svc.AddAddress(ctx, id, in)
		assert.True(t, apperr.IsKind(err, apperr.KindValidation), "input %+v: %v", in, err)
	}

	list, err := f.svc.ListAddresses(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRepeatedDefaultAddsKeepOneDefault(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := userID(t, f.register(t, "a@b.com", "secret1"))

	for i := 0; i < 6; i++ {
		_, list, err := f.svc.AddAddress(ctx, id, AddressInput{Label: "other", Address: "somewhere", Lat: floatPtr(0), Lng: floatPtr(0), IsDefault: true})
		require.NoError(t, err)
		assert.Equal(t, 1, countDefaults(list))
	}
}

func TestConcurrentAddAddressKeepsEveryWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := userID(t, f.register(t, "a@b.com", "secret1"))

	const writers = 5
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := f.svc.AddAddress(ctx, id, AddressInput{Label: "home", Address: "x", Lat: floatPtr(0), Lng: floatPtr(0), IsDefault: true})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	list, err := f.svc.ListAddresses(ctx, id)
	require.NoError(t, err)
	assert.Len(t, list, writers)
	assert.Equal(t, 1, countDefaults(list))
}

func TestRefreshRotatesAndDetectsReuse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.register(t, "a@b.com", "secret1")

	second, err := f.svc.Refresh(ctx, first.RefreshToken, "10.0.0.2")
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
	assert.NotEmpty(t, second.AccessToken)

	_, err = f.svc.Refresh(ctx, first.RefreshToken, "10.0.0.3")
	require.True(t, apperr.HasCode(err, apperr.CodeInvalidToken), "rotated token must be rejected: %v", err)

	_, err = f.svc.Refresh(ctx, second.RefreshToken, "10.0.0.2")
	require.True(t, apperr.HasCode(err, apperr.CodeInvalidToken), "reuse revokes the whole family: %v", err)
}

func TestRefreshRejectsExpiredAndUnknown(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.register(t, "a@b.com", "secret1")

	_, err := f.svc.Refresh(ctx, "deadbeef", "")
	require.True(t, apperr.HasCode(err, apperr.CodeInvalidToken))

	_, err = f.svc.Refresh(ctx, "", "")
	require.True(t, apperr.IsKind(err, apperr.KindUnauthorized))

	f.clock.Advance(7*24*time.Hour + time.Second)
	_, err = f.svc.Refresh(ctx, res.RefreshToken, "")
	require.True(t, apperr.HasCode(err, apperr.CodeInvalidToken))
}

func TestLogoutRevokesTokenAndIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.register(t, "a@b.com", "secret1")

	require.NoError(t, f.svc.Logout(ctx, res.RefreshToken, "127.0.0.1"))
	require.NoError(t, f.svc.Logout(ctx, res.RefreshToken, "127.0.0.1"))
	require.NoError(t, f.svc.Logout(ctx, "unknown", "127.0.0.1"))

	_, err := f.svc.Refresh(ctx, res.RefreshToken, "")
	require.True(t, apperr.HasCode(err, apperr.CodeInvalidToken))
}

func TestSessionCap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "a@b.com", "secret1")

	for i := 0; i < maxActiveRefreshTokens+3; i++ {
		_, err := f.svc.Login(ctx, LoginInput{Email: "a@b.com", Password: "secret1"}, "")
		require.NoError(t, err)
	}

	stored, err := f.users.FindByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Len(t, stored.RefreshTokens, maxActiveRefreshTokens)
}

func TestSetRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := userID(t, f.register(t, "admin@b.com", "secret1"))
	target := userID(t, f.register(t, "a@b.com", "secret1"))

	view, err := f.svc.SetRole(ctx, admin, target, models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, view.Role)

	_, err = f.svc.SetRole(ctx, admin, admin, models.RoleUser)
	require.True(t, apperr.IsKind(err, apperr.KindForbidden))

	_, err = f.svc.SetRole(ctx, admin, target, "root")
	require.True(t, apperr.IsKind(err, apperr.KindValidation))

	views, total, err := f.svc.ListUsers(ctx, store.Page{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, views, 2)
}
