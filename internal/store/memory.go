package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"laundry/internal/models"
)

// The Memory* stores implement the store interfaces in process. They back
// the service and handler tests and follow the same conflict semantics as
// the Mongo implementations.

type MemoryUsers struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]models.User
}

func NewMemoryUsers() *MemoryUsers {
	return &MemoryUsers{users: make(map[primitive.ObjectID]models.User)}
}

func cloneUser(u models.User) models.User {
	if u.Addresses != nil {
		u.Addresses = append([]models.Address(nil), u.Addresses...)
	}
	if u.RefreshTokens != nil {
		u.RefreshTokens = append([]models.RefreshToken(nil), u.RefreshTokens...)
	}
	return u
}

func (s *MemoryUsers) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Email == user.Email {
			return ErrDuplicate
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	user.Version = 1
	s.users[user.ID] = cloneUser(*user)
	return nil
}

func (s *MemoryUsers) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneUser(user)
	return &out, nil
}

func (s *MemoryUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	return s.find(func(u models.User) bool { return u.Email == email })
}

func (s *MemoryUsers) FindByRefreshToken(_ context.Context, tokenHash string) (*models.User, error) {
	return s.find(func(u models.User) bool {
		for _, token := range u.RefreshTokens {
			if token.TokenHash == tokenHash {
				return true
			}
		}
		return false
	})
}

func (s *MemoryUsers) find(match func(models.User) bool) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.users {
		if match(user) {
			out := cloneUser(user)
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryUsers) Update(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.users[user.ID]
	if !ok {
		return ErrNotFound
	}
	if current.Version != user.Version {
		return ErrVersionConflict
	}
	for id, other := range s.users {
		if id != user.ID && other.Email == user.Email {
			return ErrDuplicate
		}
	}
	user.Version++
	s.users[user.ID] = cloneUser(*user)
	return nil
}

func (s *MemoryUsers) List(_ context.Context, page Page) ([]models.User, int64, error) {
	s.mu.Lock()
	all := make([]models.User, 0, len(s.users))
	for _, user := range s.users {
		all = append(all, cloneUser(user))
	}
	s.mu.Unlock()

	sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return paginate(all, page), int64(len(all)), nil
}

type MemoryPackages struct {
	mu       sync.Mutex
	packages map[primitive.ObjectID]models.Package
}

func NewMemoryPackages() *MemoryPackages {
	return &MemoryPackages{packages: make(map[primitive.ObjectID]models.Package)}
}

func (s *MemoryPackages) slugTaken(slug string, except primitive.ObjectID) bool {
	for id, pkg := range s.packages {
		if id != except && pkg.Slug == slug {
			return true
		}
	}
	return false
}

func (s *MemoryPackages) Create(_ context.Context, pkg *models.Package) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.slugTaken(pkg.Slug, primitive.NilObjectID) {
		return ErrDuplicate
	}
	if pkg.ID.IsZero() {
		pkg.ID = primitive.NewObjectID()
	}
	s.packages[pkg.ID] = *pkg
	return nil
}

func (s *MemoryPackages) FindByID(_ context.Context, id primitive.ObjectID) (*models.Package, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pkg, ok := s.packages[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &pkg, nil
}

func (s *MemoryPackages) FindActiveByIDs(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Package, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[primitive.ObjectID]models.Package, len(ids))
	for _, id := range ids {
		if pkg, ok := s.packages[id]; ok && pkg.IsActive {
			out[id] = pkg
		}
	}
	return out, nil
}

func (s *MemoryPackages) List(_ context.Context, filter PackageFilter) ([]models.Package, int64, error) {
	s.mu.Lock()
	matched := make([]models.Package, 0, len(s.packages))
	search := strings.ToLower(filter.Search)
	for _, pkg := range s.packages {
		if filter.ActiveOnly && !pkg.IsActive {
			continue
		}
		if filter.Category != "" && pkg.Category != filter.Category {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(pkg.Name), search) {
			continue
		}
		matched = append(matched, pkg)
	}
	s.mu.Unlock()

	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].Price != matched[j].Price {
			return matched[i].Price < matched[j].Price
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return paginate(matched, filter.Page), int64(len(matched)), nil
}

func (s *MemoryPackages) Update(_ context.Context, id primitive.ObjectID, patch PackagePatch, now time.Time) (*models.Package, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pkg, ok := s.packages[id]
	if !ok {
		return nil, ErrNotFound
	}
	if patch.Slug != nil && s.slugTaken(*patch.Slug, id) {
		return nil, ErrDuplicate
	}
	if patch.Name != nil {
		pkg.Name = *patch.Name
	}
	if patch.Slug != nil {
		pkg.Slug = *patch.Slug
	}
	if patch.Description != nil {
		pkg.Description = *patch.Description
	}
	if patch.Category != nil {
		pkg.Category = *patch.Category
	}
	if patch.Unit != nil {
		pkg.Unit = *patch.Unit
	}
	if patch.Price != nil {
		pkg.Price = *patch.Price
	}
	if patch.TurnaroundHours != nil {
		pkg.TurnaroundHours = *patch.TurnaroundHours
	}
	if patch.Features != nil {
		pkg.Features = models.StringList(patch.Features)
	}
	if patch.IsActive != nil {
		pkg.IsActive = *patch.IsActive
		if pkg.IsActive {
			pkg.DeletedAt = nil
		}
	}
	pkg.UpdatedAt = now
	s.packages[id] = pkg
	return &pkg, nil
}

func (s *MemoryPackages) Deactivate(_ context.Context, id primitive.ObjectID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pkg, ok := s.packages[id]
	if !ok {
		return ErrNotFound
	}
	pkg.IsActive = false
	pkg.DeletedAt = &now
	pkg.UpdatedAt = now
	s.packages[id] = pkg
	return nil
}

type MemoryOrders struct {
	mu     sync.Mutex
	orders map[primitive.ObjectID]models.Order
}

func NewMemoryOrders() *MemoryOrders {
	return &MemoryOrders{orders: make(map[primitive.ObjectID]models.Order)}
}

func cloneOrder(o models.Order) models.Order {
	o.Items = append([]models.OrderItem(nil), o.Items...)
	o.StatusHistory = append([]models.StatusChange(nil), o.StatusHistory...)
	return o
}

func (s *MemoryOrders) Create(_ context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	s.orders[order.ID] = cloneOrder(*order)
	return nil
}

func (s *MemoryOrders) FindByID(_ context.Context, id primitive.ObjectID) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneOrder(order)
	return &out, nil
}

func (s *MemoryOrders) List(_ context.Context, filter OrderFilter) ([]models.Order, int64, error) {
	s.mu.Lock()
	matched := make([]models.Order, 0, len(s.orders))
	for _, order := range s.orders {
		if filter.UserID != nil && order.UserID != *filter.UserID {
			continue
		}
		if filter.Status != "" && order.Status != filter.Status {
			continue
		}
		matched = append(matched, cloneOrder(order))
	}
	s.mu.Unlock()

	sort.SliceStable(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	return paginate(matched, filter.Page), int64(len(matched)), nil
}

func (s *MemoryOrders) UpdateStatus(_ context.Context, id primitive.ObjectID, from string, change models.StatusChange) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	if order.Status != from {
		return nil, ErrVersionConflict
	}
	order = cloneOrder(order)
	order.Status = change.Status
	order.UpdatedAt = change.At
	if change.Status == models.OrderDelivered {
		at := change.At
		order.DeliveryAt = &at
	}
	order.StatusHistory = append(order.StatusHistory, change)
	s.orders[id] = order

	out := cloneOrder(order)
	return &out, nil
}

func (s *MemoryOrders) Delete(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[id]; !ok {
		return ErrNotFound
	}
	delete(s.orders, id)
	return nil
}

type MemoryContacts struct {
	mu       sync.Mutex
	messages map[primitive.ObjectID]models.ContactMessage
}

func NewMemoryContacts() *MemoryContacts {
	return &MemoryContacts{messages: make(map[primitive.ObjectID]models.ContactMessage)}
}

func (s *MemoryContacts) Create(_ context.Context, msg *models.ContactMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg.ID.IsZero() {
		msg.ID = primitive.NewObjectID()
	}
	s.messages[msg.ID] = *msg
	return nil
}

func (s *MemoryContacts) List(_ context.Context, filter ContactFilter) ([]models.ContactMessage, int64, error) {
	s.mu.Lock()
	matched := make([]models.ContactMessage, 0, len(s.messages))
	for _, msg := range s.messages {
		if filter.UnreadOnly && msg.IsRead {
			continue
		}
		matched = append(matched, msg)
	}
	s.mu.Unlock()

	sort.SliceStable(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	return paginate(matched, filter.Page), int64(len(matched)), nil
}

func (s *MemoryContacts) MarkRead(_ context.Context, id primitive.ObjectID) (*models.ContactMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.messages[id]
	if !ok {
		return nil, ErrNotFound
	}
	msg.IsRead = true
	s.messages[id] = msg
	return &msg, nil
}

func (s *MemoryContacts) Delete(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.messages[id]; !ok {
		return ErrNotFound
	}
	delete(s.messages, id)
	return nil
}

func paginate[T any](items []T, page Page) []T {
	if page.Limit <= 0 {
		return items
	}
	start := page.skip()
	if start >= int64(len(items)) {
		return []T{}
	}
	end := start + page.Limit
	if end > int64(len(items)) {
		end = int64(len(items))
	}
	return items[start:end]
}
