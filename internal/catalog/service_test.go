package catalog

import (
	"context"
	"testing"
	"time"

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

func newService() *Service {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	return NewService(store.NewMemoryPackages(), security.ClockFunc(func() time.Time { return now }), logging.Discard())
}

func validInput() CreateInput {
	return CreateInput{
		Name:            "Wash & Fold",
		Category:        "Wash",
		Unit:            "kg",
		Price:           3.5,
		TurnaroundHours: 48,
		Features:        []string{" eco detergent ", "", "folded"},
	}
}

func strPtr(v string) *string { return &v }

func TestSlugify(t *testing.T) {
	assert.Equal(t, "wash-fold", Slugify("Wash & Fold"))
	assert.Equal(t, "dry-clean-48h", Slugify("  Dry--Clean (48h) "))
	assert.Equal(t, "", Slugify("!!!"))
}

func TestCreatePackage(t *testing.T) {
	svc := newService()
	pkg, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	assert.Equal(t, "wash-fold", pkg.Slug)
	assert.Equal(t, models.CategoryWash, pkg.Category)
	assert.True(t, pkg.IsActive)
	assert.Equal(t, models.StringList{"eco detergent", "folded"}, pkg.Features)

	_, err = svc.Create(context.Background(), validInput())
	assert.True(t, apperr.IsKind(err, apperr.KindDuplicate))
}

func TestCreatePackageValidation(t *testing.T) {
	svc := newService()
	cases := map[string]func(in *CreateInput){
		"name":       func(in *CreateInput) { in.Name = " " },
		"price":      func(in *CreateInput) { in.Price = 0 },
		"turnaround": func(in *CreateInput) { in.TurnaroundHours = -1 },
		"category":   func(in *CreateInput) { in.Category = "shoes" },
		"unit":       func(in *CreateInput) { in.Unit = "bag" },
		"slug":       func(in *CreateInput) { in.Name = "???" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := validInput()
			mutate(&in)
			_, err := svc.Create(context.Background(), in)
			assert.True(t, apperr.IsKind(err, apperr.KindValidation), "%v", err)
		})
	}
}

func TestUpdateIsPartial(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	pkg, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	price := 4.0
	updated, err := svc.Update(ctx, pkg.ID, UpdateInput{Price: &price, Slug: strPtr("Wash Fold Plus")})
	require.NoError(t, err)
	assert.Equal(t, 4.0, updated.Price)
	assert.Equal(t, "wash-fold-plus", updated.Slug)
	assert.Equal(t, "Wash & Fold", updated.Name)

	_, err = svc.Update(ctx, pkg.ID, UpdateInput{Name: strPtr("")})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	_, err = svc.Update(ctx, primitive.NewObjectID(), UpdateInput{Price: &price})
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestDeactivateHidesFromCustomers(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	pkg, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(ctx, pkg.ID))

	_, err = svc.GetActive(ctx, pkg.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	active, total, err := svc.ListActive(ctx, store.PackageFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, active)

	all, total, err := svc.List(ctx, store.PackageFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.False(t, all[0].IsActive)
	assert.NotNil(t, all[0].DeletedAt)

	assert.True(t, apperr.IsKind(svc.Deactivate(ctx, primitive.NewObjectID()), apperr.KindNotFound))
}

func TestPackageLogsUsePackageArea(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	svc := NewService(store.NewMemoryPackages(), nil, logger)

	_, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "package created", entry.Message)
	assert.Equal(t, "package", entry.Data["area"])
}
