package contact

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"laundry/internal/apperr"
	"laundry/internal/logging"
	"laundry/internal/security"
	"laundry/internal/store"
)

func TestSubmitAndTriage(t *testing.T) {
	now := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	svc := NewService(store.NewMemoryContacts(), security.ClockFunc(func() time.Time { return now }), logging.Discard())
	ctx := context.Background()

	msg, err := svc.Submit(ctx, MessageInput{Name: " Ada ", Email: "ADA@example.com", Phone: "0712345678", Message: "Do you iron curtains?"})
	require.NoError(t, err)
	assert.Equal(t, "Ada", msg.Name)
	assert.Equal(t, "ada@example.com", msg.Email)
	assert.False(t, msg.IsRead)

	unread, total, err := svc.List(ctx, store.ContactFilter{UnreadOnly: true})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, msg.ID, unread[0].ID)

	read, err := svc.MarkRead(ctx, msg.ID)
	require.NoError(t, err)
	assert.True(t, read.IsRead)

	_, total, err = svc.List(ctx, store.ContactFilter{UnreadOnly: true})
	require.NoError(t, err)
	assert.Zero(t, total)

	require.NoError(t, svc.Delete(ctx, msg.ID))
	assert.True(t, apperr.IsKind(svc.Delete(ctx, msg.ID), apperr.KindNotFound))
	_, err = svc.MarkRead(ctx, primitive.NewObjectID())
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestSubmitValidation(t *testing.T) {
	svc := NewService(store.NewMemoryContacts(), nil, logging.Discard())
	cases := map[string]MessageInput{
		"missing message": {Name: "A", Email: "a@b.co"},
		"bad email":       {Name: "A", Email: "nope", Message: "hi"},
		"bad phone":       {Name: "A", Email: "a@b.co", Phone: "12", Message: "hi"},
		"long phone":      {Name: "A", Email: "a@b.co", Phone: "05321234567", Message: "hi"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Submit(context.Background(), in)
			assert.True(t, apperr.IsKind(err, apperr.KindValidation))
		})
	}
}
