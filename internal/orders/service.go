package orders

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"laundry/internal/account"
	"laundry/internal/apperr"
	"laundry/internal/models"
	"laundry/internal/security"
	"laundry/internal/store"
	"laundry/internal/validation"
)

const maxTransitionAttempts = 3

// transitions lists the statuses an order may move to from each status.
var transitions = map[string][]string{
	models.OrderPending:        {models.OrderConfirmed, models.OrderCancelled},
	models.OrderConfirmed:      {models.OrderPickedUp, models.OrderCancelled},
	models.OrderPickedUp:       {models.OrderProcessing},
	models.OrderProcessing:     {models.OrderReady},
	models.OrderReady:          {models.OrderOutForDelivery, models.OrderDelivered},
	models.OrderOutForDelivery: {models.OrderDelivered},
}

// CanTransition reports whether an order in status from may move to to.
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// userCancellable are the statuses in which the customer may still cancel.
var userCancellable = map[string]bool{
	models.OrderPending:   true,
	models.OrderConfirmed: true,
}

// AddressBook resolves the saved addresses of a customer.
type AddressBook interface {
	ListAddresses(ctx context.Context, userID primitive.ObjectID) ([]models.Address, error)
}

type ItemInput struct {
	PackageID string  `json:"packageId" validate:"required,mongodb"`
	Quantity  float64 `json:"quantity" validate:"gt=0,lte=1000"`
}

type CreateInput struct {
	Items         []ItemInput `json:"items" validate:"required,min=1,max=20,dive"`
	AddressID     string      `json:"addressId"`
	PickupAt      time.Time   `json:"pickupAt" validate:"required"`
	Notes         string      `json:"notes" validate:"max=500"`
	PaymentMethod string      `json:"paymentMethod" validate:"required,oneof=cash card"`
}

var errOrderNotFound = apperr.NotFound("order not found")

type Service struct {
	orders    store.OrderStore
	packages  store.PackageStore
	addresses AddressBook
	clock     security.Clock
	log       logrus.FieldLogger
	validate  *validator.Validate
}

func NewService(orders store.OrderStore, packages store.PackageStore, addresses AddressBook, clock security.Clock, log logrus.FieldLogger) *Service {
	if clock == nil {
		clock = security.RealClock{}
	}
	return &Service{
		orders:    orders,
		packages:  packages,
		addresses: addresses,
		clock:     clock,
		log:       log.WithField("area", "order"),
		validate:  validation.New(),
	}
}

// Create places an order for userID. Prices come from the active packages,
// never from the request.
func (s *Service) Create(ctx context.Context, userID primitive.ObjectID, in CreateInput) (*models.Order, error) {
	in.AddressID = strings.TrimSpace(in.AddressID)
	in.Notes = strings.TrimSpace(in.Notes)
	in.PaymentMethod = strings.ToLower(strings.TrimSpace(in.PaymentMethod))
	if err := validation.Check(s.validate, in); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if !in.PickupAt.After(now) {
		return nil, apperr.Validation("pickupAt must be in the future")
	}

	ids := make([]primitive.ObjectID, 0, len(in.Items))
	seen := make(map[primitive.ObjectID]bool, len(in.Items))
	for _, item := range in.Items {
		id, err := primitive.ObjectIDFromHex(item.PackageID)
		if err != nil {
			return nil, apperr.Validation("packageId is invalid")
		}
		if seen[id] {
			return nil, apperr.Validation("each package may appear only once per order")
		}
		seen[id] = true
		ids = append(ids, id)
	}

	packages, err := s.packages.FindActiveByIDs(ctx, ids)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("load packages: %w", err))
	}

	items := make([]models.OrderItem, 0, len(in.Items))
	var total float64
	for i, item := range in.Items {
		pkg, ok := packages[ids[i]]
		if !ok {
			return nil, apperr.Validation(fmt.Sprintf("package %s is not available", item.PackageID))
		}
		if pkg.Unit != models.UnitKg && item.Quantity != math.Trunc(item.Quantity) {
			return nil, apperr.Validation(fmt.Sprintf("quantity for %s must be a whole number", pkg.Name))
		}
		items = append(items, models.OrderItem{
			PackageID: pkg.ID,
			Name:      pkg.Name,
			Unit:      pkg.Unit,
			Price:     pkg.Price,
			Quantity:  item.Quantity,
		})
		total += pkg.Price * item.Quantity
	}

	address, err := s.resolveAddress(ctx, userID, in.AddressID)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		ID:            primitive.NewObjectID(),
		UserID:        userID,
		Items:         items,
		TotalPrice:    roundPrice(total),
		PickupAddress: address,
		PickupAt:      in.PickupAt.UTC(),
		Notes:         in.Notes,
		PaymentMethod: in.PaymentMethod,
		Status:        models.OrderPending,
		StatusHistory: []models.StatusChange{{Status: models.OrderPending, At: now, By: userID}},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.orders.Create(ctx, order); err != nil {
		return nil, apperr.Internal(fmt.Errorf("create order: %w", err))
	}

	s.log.WithFields(logrus.Fields{"orderId": order.ID.Hex(), "userId": userID.Hex(), "total": order.TotalPrice}).Info("order placed")
	return order, nil
}

func (s *Service) resolveAddress(ctx context.Context, userID primitive.ObjectID, addressID string) (models.Address, error) {
	list, err := s.addresses.ListAddresses(ctx, userID)
	if err != nil {
		return models.Address{}, err
	}
	if addressID != "" {
		for _, addr := range list {
			if addr.ID == addressID {
				return addr, nil
			}
		}
		return models.Address{}, apperr.Validation("addressId does not match a saved address")
	}
	if addr, ok := account.DefaultAddress(list); ok {
		return addr, nil
	}
	return models.Address{}, apperr.Validation("add a pickup address before placing an order")
}

// ListForUser returns the caller's orders, newest first.
func (s *Service) ListForUser(ctx context.Context, userID primitive.ObjectID, page store.Page) ([]models.Order, int64, error) {
	return s.List(ctx, store.OrderFilter{UserID: &userID, Page: page})
}

func (s *Service) List(ctx context.Context, filter store.OrderFilter) ([]models.Order, int64, error) {
	filter.Status = strings.TrimSpace(filter.Status)
	if filter.Status != "" && !knownStatus(filter.Status) {
		return nil, 0, apperr.Validation("status is invalid")
	}
	list, total, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, 0, apperr.Internal(fmt.Errorf("list orders: %w", err))
	}
	return list, total, nil
}

// GetForUser returns one of the caller's orders. Orders of other customers
// are reported as missing.
func (s *Service) GetForUser(ctx context.Context, userID, orderID primitive.ObjectID) (*models.Order, error) {
	order, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, errOrderNotFound
	}
	return order, nil
}

func (s *Service) Get(ctx context.Context, orderID primitive.ObjectID) (*models.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errOrderNotFound
	}
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("find order: %w", err))
	}
	return order, nil
}

// Cancel lets a customer withdraw an order that has not been picked up.
func (s *Service) Cancel(ctx context.Context, userID, orderID primitive.ObjectID) (*models.Order, error) {
	return s.move(ctx, userID, orderID, models.OrderCancelled, func(o *models.Order) error {
		if o.UserID != userID {
			return errOrderNotFound
		}
		if !userCancellable[o.Status] {
			return apperr.Validation(fmt.Sprintf("an order that is %s can no longer be cancelled", o.Status))
		}
		return nil
	})
}

// Transition moves an order along its lifecycle on behalf of staff.
func (s *Service) Transition(ctx context.Context, actorID, orderID primitive.ObjectID, status string) (*models.Order, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if !knownStatus(status) {
		return nil, apperr.Validation("status is invalid")
	}
	return s.move(ctx, actorID, orderID, status, func(o *models.Order) error {
		if !CanTransition(o.Status, status) {
			return apperr.Validation(fmt.Sprintf("cannot move order from %s to %s", o.Status, status))
		}
		return nil
	})
}

// move applies a guarded status change. The store only applies it when the
// order is still in the status the guard saw; otherwise the order is
// reloaded and the guard evaluated again.
func (s *Service) move(ctx context.Context, actorID, orderID primitive.ObjectID, status string, guard func(*models.Order) error) (*models.Order, error) {
	for attempt := 0; attempt < maxTransitionAttempts; attempt++ {
		order, err := s.Get(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if err := guard(order); err != nil {
			return nil, err
		}

		change := models.StatusChange{Status: status, At: s.clock.Now(), By: actorID}
		updated, err := s.orders.UpdateStatus(ctx, orderID, order.Status, change)
		switch {
		case err == nil:
			s.log.WithFields(logrus.Fields{
				"orderId": orderID.Hex(),
				"from":    order.Status,
				"to":      status,
				"by":      actorID.Hex(),
			}).Info("order status changed")
			return updated, nil
		case errors.Is(err, store.ErrVersionConflict):
			continue
		case errors.Is(err, store.ErrNotFound):
			return nil, errOrderNotFound
		default:
			return nil, apperr.Internal(fmt.Errorf("update order status: %w", err))
		}
	}
	return nil, apperr.Internal(fmt.Errorf("order %s: status kept changing", orderID.Hex()))
}

func (s *Service) Delete(ctx context.Context, orderID primitive.ObjectID) error {
	err := s.orders.Delete(ctx, orderID)
	if errors.Is(err, store.ErrNotFound) {
		return errOrderNotFound
	}
	if err != nil {
		return apperr.Internal(fmt.Errorf("delete order: %w", err))
	}
	s.log.WithField("orderId", orderID.Hex()).Info("order deleted")
	return nil
}

func knownStatus(status string) bool {
	switch status {
	case models.OrderPending, models.OrderConfirmed, models.OrderPickedUp, models.OrderProcessing,
		models.OrderReady, models.OrderOutForDelivery, models.OrderDelivered, models.OrderCancelled:
		return true
	}
	return false
}

func roundPrice(v float64) float64 {
	return math.Round(v*100) / 100
}
