package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"laundry/internal/apperr"
	"laundry/internal/models"
	"laundry/internal/security"
	"laundry/internal/store"
	"laundry/internal/validation"
)

type CreateInput struct {
	Name            string   `json:"name" validate:"required,max=120"`
	Slug            string   `json:"slug" validate:"omitempty,max=140"`
	Description     string   `json:"description" validate:"max=2000"`
	Category        string   `json:"category" validate:"required,oneof=wash dry_clean iron wash_and_iron special"`
	Unit            string   `json:"unit" validate:"required,oneof=kg item load"`
	Price           float64  `json:"price" validate:"gt=0"`
	TurnaroundHours int      `json:"turnaroundHours" validate:"gt=0,lte=720"`
	Features        []string `json:"features" validate:"max=20,dive,max=120"`
	IsActive        *bool    `json:"isActive"`
}

// UpdateInput is a partial update; nil fields are left unchanged.
type UpdateInput struct {
	Name            *string  `json:"name" validate:"omitempty,min=1,max=120"`
	Slug            *string  `json:"slug" validate:"omitempty,min=1,max=140"`
	Description     *string  `json:"description" validate:"omitempty,max=2000"`
	Category        *string  `json:"category" validate:"omitempty,oneof=wash dry_clean iron wash_and_iron special"`
	Unit            *string  `json:"unit" validate:"omitempty,oneof=kg item load"`
	Price           *float64 `json:"price" validate:"omitempty,gt=0"`
	TurnaroundHours *int     `json:"turnaroundHours" validate:"omitempty,gt=0,lte=720"`
	Features        []string `json:"features" validate:"omitempty,max=20,dive,max=120"`
	IsActive        *bool    `json:"isActive"`
}

var (
	errPackageNotFound = apperr.NotFound("package not found")
	errSlugTaken       = apperr.Duplicate("a package with this slug already exists")
)

// Service manages the laundry packages customers order from.
type Service struct {
	packages store.PackageStore
	clock    security.Clock
	log      logrus.FieldLogger
	validate *validator.Validate
}

func NewService(packages store.PackageStore, clock security.Clock, log logrus.FieldLogger) *Service {
	if clock == nil {
		clock = security.RealClock{}
	}
	return &Service{
		packages: packages,
		clock:    clock,
		log:      log.WithField("area", "package"),
		validate: validation.New(),
	}
}

// ListActive returns the packages shown to customers.
func (s *Service) ListActive(ctx context.Context, filter store.PackageFilter) ([]models.Package, int64, error) {
	filter.ActiveOnly = true
	return s.List(ctx, filter)
}

func (s *Service) List(ctx context.Context, filter store.PackageFilter) ([]models.Package, int64, error) {
	filter.Category = strings.TrimSpace(filter.Category)
	filter.Search = strings.TrimSpace(filter.Search)
	list, total, err := s.packages.List(ctx, filter)
	if err != nil {
		return nil, 0, apperr.Internal(fmt.Errorf("list packages: %w", err))
	}
	return list, total, nil
}

// GetActive returns a package only while it is offered.
func (s *Service) GetActive(ctx context.Context, id primitive.ObjectID) (*models.Package, error) {
	pkg, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !pkg.IsActive {
		return nil, errPackageNotFound
	}
	return pkg, nil
}

func (s *Service) Get(ctx context.Context, id primitive.ObjectID) (*models.Package, error) {
	pkg, err := s.packages.FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errPackageNotFound
	}
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("find package: %w", err))
	}
	return pkg, nil
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Package, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.ToLower(strings.TrimSpace(in.Category))
	in.Unit = strings.ToLower(strings.TrimSpace(in.Unit))
	if err := validation.Check(s.validate, in); err != nil {
		return nil, err
	}

	slug := Slugify(in.Slug)
	if slug == "" {
		slug = Slugify(in.Name)
	}
	if slug == "" {
		return nil, apperr.Validation("slug must contain letters or digits")
	}

	now := s.clock.Now()
	pkg := &models.Package{
		ID:              primitive.NewObjectID(),
		Name:            in.Name,
		Slug:            slug,
		Description:     in.Description,
		Category:        in.Category,
		Unit:            in.Unit,
		Price:           in.Price,
		TurnaroundHours: in.TurnaroundHours,
		Features:        cleanFeatures(in.Features),
		IsActive:        in.IsActive == nil || *in.IsActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.packages.Create(ctx, pkg); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, errSlugTaken
		}
		return nil, apperr.Internal(fmt.Errorf("create package: %w", err))
	}

	s.log.WithFields(logrus.Fields{"packageId": pkg.ID.Hex(), "slug": pkg.Slug}).Info("package created")
	return pkg, nil
}

func (s *Service) Update(ctx context.Context, id primitive.ObjectID, in UpdateInput) (*models.Package, error) {
	if err := validation.Check(s.validate, in); err != nil {
		return nil, err
	}

	patch := store.PackagePatch{
		Description:     trimmed(in.Description),
		Price:           in.Price,
		TurnaroundHours: in.TurnaroundHours,
		IsActive:        in.IsActive,
	}
	if in.Name != nil {
		patch.Name = trimmed(in.Name)
		if *patch.Name == "" {
			return nil, apperr.Validation("name is required")
		}
	}
	if in.Slug != nil {
		slug := Slugify(*in.Slug)
		if slug == "" {
			return nil, apperr.Validation("slug must contain letters or digits")
		}
		patch.Slug = &slug
	}
	if in.Category != nil {
		category := strings.ToLower(strings.TrimSpace(*in.Category))
		patch.Category = &category
	}
	if in.Unit != nil {
		unit := strings.ToLower(strings.TrimSpace(*in.Unit))
		patch.Unit = &unit
	}
	if in.Features != nil {
		patch.Features = cleanFeatures(in.Features)
	}

	pkg, err := s.packages.Update(ctx, id, patch, s.clock.Now())
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil, errPackageNotFound
	case errors.Is(err, store.ErrDuplicate):
		return nil, errSlugTaken
	case err != nil:
		return nil, apperr.Internal(fmt.Errorf("update package: %w", err))
	}

	s.log.WithField("packageId", id.Hex()).Info("package updated")
	return pkg, nil
}

// Deactivate hides a package from customers. Orders keep their snapshot.
func (s *Service) Deactivate(ctx context.Context, id primitive.ObjectID) error {
	err := s.packages.Deactivate(ctx, id, s.clock.Now())
	if errors.Is(err, store.ErrNotFound) {
		return errPackageNotFound
	}
	if err != nil {
		return apperr.Internal(fmt.Errorf("deactivate package: %w", err))
	}
	s.log.WithField("packageId", id.Hex()).Info("package deactivated")
	return nil
}

// Slugify lowercases value and joins its runs of letters and digits with
// single dashes.
func Slugify(value string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(value)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false
			continue
		}
		dash = true
	}
	return b.String()
}

func cleanFeatures(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if t := strings.TrimSpace(v); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	return &t
}
