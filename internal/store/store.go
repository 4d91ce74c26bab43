package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"laundry/internal/models"
)

var (
	ErrNotFound        = errors.New("store: not found")
	ErrDuplicate       = errors.New("store: duplicate key")
	ErrVersionConflict = errors.New("store: version conflict")
)

// Page selects a slice of a listing. A zero Limit means everything.
type Page struct {
	Page  int64
	Limit int64
}

func (p Page) skip() int64 {
	if p.Limit <= 0 || p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// UserStore persists accounts. Update is optimistic: it succeeds only when
// the stored version equals user.Version, and bumps the version on success.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByRefreshToken(ctx context.Context, tokenHash string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	List(ctx context.Context, page Page) ([]models.User, int64, error)
}

type PackageFilter struct {
	Category   string
	Search     string
	ActiveOnly bool
	Page
}

// PackagePatch carries the fields of a partial package update.
type PackagePatch struct {
	Name            *string
	Slug            *string
	Description     *string
	Category        *string
	Unit            *string
	Price           *float64
	TurnaroundHours *int
	Features        []string
	IsActive        *bool
}

type PackageStore interface {
	Create(ctx context.Context, pkg *models.Package) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Package, error)
	FindActiveByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Package, error)
	List(ctx context.Context, filter PackageFilter) ([]models.Package, int64, error)
	Update(ctx context.Context, id primitive.ObjectID, patch PackagePatch, now time.Time) (*models.Package, error)
	Deactivate(ctx context.Context, id primitive.ObjectID, now time.Time) error
}

type OrderFilter struct {
	UserID *primitive.ObjectID
	Status string
	Page
}

type OrderStore interface {
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]models.Order, int64, error)
	// UpdateStatus moves an order from one status to another. It returns
	// ErrVersionConflict when the order exists but is no longer in from.
	UpdateStatus(ctx context.Context, id primitive.ObjectID, from string, change models.StatusChange) (*models.Order, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type ContactFilter struct {
	UnreadOnly bool
	Page
}

type ContactStore interface {
	Create(ctx context.Context, msg *models.ContactMessage) error
	List(ctx context.Context, filter ContactFilter) ([]models.ContactMessage, int64, error)
	MarkRead(ctx context.Context, id primitive.ObjectID) (*models.ContactMessage, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}
