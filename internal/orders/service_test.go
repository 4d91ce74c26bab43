package orders

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"laundry/internal/apperr"
	"laundry/internal/logging"
	"laundry/internal/models"
	"laundry/internal/security"
	"laundry/internal/store"
)

type addressBook map[primitive.ObjectID][]models.Address

func (b addressBook) ListAddresses(_ context.Context, userID primitive.ObjectID) ([]models.Address, error) {
	return b[userID], nil
}

type fixture struct {
	svc      *Service
	orders   *store.MemoryOrders
	packages *store.MemoryPackages
	book     addressBook
	now      time.Time
	user     primitive.ObjectID
	admin    primitive.ObjectID
	wash     models.Package
	shirts   models.Package
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		orders:   store.NewMemoryOrders(),
		packages: store.NewMemoryPackages(),
		book:     addressBook{},
		now:      time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC),
		user:     primitive.NewObjectID(),
		admin:    primitive.NewObjectID(),
	}
	f.svc = NewService(f.orders, f.packages, f.book, security.ClockFunc(func() time.Time { return f.now }), logging.Discard())

	f.wash = f.addPackage(t, "wash-fold", models.UnitKg, 3.5, true)
	f.shirts = f.addPackage(t, "shirt-press", models.UnitItem, 2.25, true)
	f.book[f.user] = []models.Address{
		{ID: "home", Label: models.LabelHome, Address: "1 Main St", IsDefault: true},
		{ID: "work", Label: models.LabelWork, Address: "9 Office Rd"},
	}
	return f
}

func (f *fixture) addPackage(t *testing.T, slug, unit string, price float64, active bool) models.Package {
	t.Helper()
	pkg := &models.Package{Name: slug, Slug: slug, Category: models.CategoryWash, Unit: unit, Price: price, TurnaroundHours: 24, IsActive: active}
	require.NoError(t, f.packages.Create(context.Background(), pkg))
	return *pkg
}

func (f *fixture) input() CreateInput {
	return CreateInput{
		Items: []ItemInput{
			{PackageID: f.wash.ID.Hex(), Quantity: 2.5},
			{PackageID: f.shirts.ID.Hex(), Quantity: 4},
		},
		PickupAt:      f.now.Add(24 * time.Hour),
		PaymentMethod: "Cash",
	}
}

func (f *fixture) place(t *testing.T) *models.Order {
	t.Helper()
	order, err := f.svc.Create(context.Background(), f.user, f.input())
	require.NoError(t, err)
	return order
}

func TestCreatePricesFromPackages(t *testing.T) {
	f := newFixture(t)
	order := f.place(t)

	assert.Equal(t, models.OrderPending, order.Status)
	assert.Equal(t, 17.75, order.TotalPrice)
	assert.Equal(t, "home", order.PickupAddress.ID)
	assert.Equal(t, models.PaymentCash, order.PaymentMethod)
	require.Len(t, order.Items, 2)
	assert.Equal(t, 3.5, order.Items[0].Price)
	require.Len(t, order.StatusHistory, 1)
	assert.Equal(t, f.user, order.StatusHistory[0].By)
}

func TestCreateUsesExplicitAddress(t *testing.T) {
	f := newFixture(t)
	in := f.input()
	in.AddressID = "work"

	order, err := f.svc.Create(context.Background(), f.user, in)
	require.NoError(t, err)
	assert.Equal(t, "9 Office Rd", order.PickupAddress.Address)
}

func TestCreateRejects(t *testing.T) {
	f := newFixture(t)
	inactive := f.addPackage(t, "retired", models.UnitKg, 1, false)

	cases := map[string]func(in *CreateInput){
		"no items":          func(in *CreateInput) { in.Items = nil },
		"bad package id":    func(in *CreateInput) { in.Items[0].PackageID = "nope" },
		"zero quantity":     func(in *CreateInput) { in.Items[0].Quantity = 0 },
		"fractional items":  func(in *CreateInput) { in.Items[1].Quantity = 1.5 },
		"duplicate package": func(in *CreateInput) { in.Items[1].PackageID = f.wash.ID.Hex() },
		"inactive package":  func(in *CreateInput) { in.Items[0].PackageID = inactive.ID.Hex() },
		"unknown package":   func(in *CreateInput) { in.Items[0].PackageID = primitive.NewObjectID().Hex() },
		"past pickup":       func(in *CreateInput) { in.PickupAt = f.now.Add(-time.Minute) },
		"payment method":    func(in *CreateInput) { in.PaymentMethod = "crypto" },
		"unknown address":   func(in *CreateInput) { in.AddressID = "moon" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := f.input()
			mutate(&in)
			_, err := f.svc.Create(context.Background(), f.user, in)
			require.Error(t, err)
			assert.True(t, apperr.IsKind(err, apperr.KindValidation), err.Error())
		})
	}

	_, total, err := f.orders.List(context.Background(), store.OrderFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestCreateRequiresAnAddress(t *testing.T) {
	f := newFixture(t)
	stranger := primitive.NewObjectID()

	_, err := f.svc.Create(context.Background(), stranger, f.input())
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestUserSeesOnlyOwnOrders(t *testing.T) {
	f := newFixture(t)
	order := f.place(t)
	other := primitive.NewObjectID()

	_, err := f.svc.GetForUser(context.Background(), other, order.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	got, err := f.svc.GetForUser(context.Background(), f.user, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)

	list, total, err := f.svc.ListForUser(context.Background(), other, store.Page{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, list)
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	order := f.place(t)

	_, err := f.svc.Cancel(context.Background(), primitive.NewObjectID(), order.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	cancelled, err := f.svc.Cancel(context.Background(), f.user, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, cancelled.Status)
	assert.Len(t, cancelled.StatusHistory, 2)

	_, err = f.svc.Cancel(context.Background(), f.user, order.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestCancelAfterPickupIsRejected(t *testing.T) {
	f := newFixture(t)
	order := f.place(t)
	ctx := context.Background()

	_, err := f.svc.Transition(ctx, f.admin, order.ID, models.OrderConfirmed)
	require.NoError(t, err)
	_, err = f.svc.Transition(ctx, f.admin, order.ID, models.OrderPickedUp)
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, f.user, order.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestTransitionFollowsLifecycle(t *testing.T) {
	f := newFixture(t)
	order := f.place(t)
	ctx := context.Background()

	_, err := f.svc.Transition(ctx, f.admin, order.ID, models.OrderReady)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation), "cannot skip states")

	_, err = f.svc.Transition(ctx, f.admin, order.ID, "lost")
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	path := []string{models.OrderConfirmed, models.OrderPickedUp, models.OrderProcessing, models.OrderReady, models.OrderOutForDelivery, models.OrderDelivered}
	var last *models.Order
	for _, status := range path {
		f.now = f.now.Add(time.Hour)
		last, err = f.svc.Transition(ctx, f.admin, order.ID, status)
		require.NoError(t, err, status)
	}
	assert.Equal(t, models.OrderDelivered, last.Status)
	assert.Len(t, last.StatusHistory, len(path)+1)
	require.NotNil(t, last.DeliveryAt)
	assert.Equal(t, f.now, *last.DeliveryAt)

	_, err = f.svc.Transition(ctx, f.admin, order.ID, models.OrderCancelled)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(models.OrderReady, models.OrderDelivered))
	assert.False(t, CanTransition(models.OrderProcessing, models.OrderCancelled))
	assert.False(t, CanTransition(models.OrderDelivered, models.OrderPending))
	assert.False(t, CanTransition(models.OrderCancelled, models.OrderConfirmed))
}

func TestAdminListAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.place(t)
	f.place(t)
	_, err := f.svc.Transition(ctx, f.admin, first.ID, models.OrderConfirmed)
	require.NoError(t, err)

	confirmed, total, err := f.svc.List(ctx, store.OrderFilter{Status: models.OrderConfirmed})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, first.ID, confirmed[0].ID)

	_, _, err = f.svc.List(ctx, store.OrderFilter{Status: "bogus"})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	require.NoError(t, f.svc.Delete(ctx, first.ID))
	assert.True(t, apperr.IsKind(f.svc.Delete(ctx, first.ID), apperr.KindNotFound))
}

func TestOrderLogsUseOrderArea(t *testing.T) {
	f := newFixture(t)
	logger, hook := logtest.NewNullLogger()
	f.svc = NewService(f.orders, f.packages, f.book, security.ClockFunc(func() time.Time { return f.now }), logger)

	f.place(t)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "order placed", entry.Message)
	assert.Equal(t, "order", entry.Data["area"])
}
