package contact

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"laundry/internal/apperr"
	"laundry/internal/models"
	"laundry/internal/security"
	"laundry/internal/store"
	"laundry/internal/validation"
)

type MessageInput struct {
	Name    string `json:"name" validate:"required,max=100"`
	Email   string `json:"email" validate:"required,email,max=254"`
	Phone   string `json:"phone" validate:"omitempty,mobile"`
	Subject string `json:"subject" validate:"max=200"`
	Message string `json:"message" validate:"required,max=5000"`
}

var errMessageNotFound = apperr.NotFound("message not found")

type Service struct {
	messages store.ContactStore
	clock    security.Clock
	log      logrus.FieldLogger
	validate *validator.Validate
}

func NewService(messages store.ContactStore, clock security.Clock, log logrus.FieldLogger) *Service {
	if clock == nil {
		clock = security.RealClock{}
	}
	return &Service{
		messages: messages,
		clock:    clock,
		log:      log.WithField("area", "contact"),
		validate: validation.New(),
	}
}

func (s *Service) Submit(ctx context.Context, in MessageInput) (*models.ContactMessage, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = strings.TrimSpace(in.Phone)
	in.Subject = strings.TrimSpace(in.Subject)
	in.Message = strings.TrimSpace(in.Message)
	if err := validation.Check(s.validate, in); err != nil {
		return nil, err
	}

	msg := &models.ContactMessage{
		ID:        primitive.NewObjectID(),
		Name:      in.Name,
		Email:     in.Email,
		Phone:     in.Phone,
		Subject:   in.Subject,
		Message:   in.Message,
		CreatedAt: s.clock.Now(),
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, apperr.Internal(fmt.Errorf("save contact message: %w", err))
	}
	s.log.WithField("messageId", msg.ID.Hex()).Info("contact message received")
	return msg, nil
}

func (s *Service) List(ctx context.Context, filter store.ContactFilter) ([]models.ContactMessage, int64, error) {
	list, total, err := s.messages.List(ctx, filter)
	if err != nil {
		return nil, 0, apperr.Internal(fmt.Errorf("list contact messages: %w", err))
	}
	return list, total, nil
}

func (s *Service) MarkRead(ctx context.Context, id primitive.ObjectID) (*models.ContactMessage, error) {
	msg, err := s.messages.MarkRead(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errMessageNotFound
	}
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("mark contact message read: %w", err))
	}
	return msg, nil
}

func (s *Service) Delete(ctx context.Context, id primitive.ObjectID) error {
	err := s.messages.Delete(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return errMessageNotFound
	}
	if err != nil {
		return apperr.Internal(fmt.Errorf("delete contact message: %w", err))
	}
	return nil
}
