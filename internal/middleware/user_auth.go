package middleware

import (
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"laundry/internal/security"
)

const identityKey = "identity"

// CurrentIdentity returns the identity stored by AuthGuard.
func CurrentIdentity(c *gin.Context) (security.Identity, bool) {
	value, ok := c.Get(identityKey)
	if !ok {
		return security.Identity{}, false
	}
	identity, ok := value.(security.Identity)
	return identity, ok
}

// CurrentUserID returns the caller's id as an ObjectID.
func CurrentUserID(c *gin.Context) (primitive.ObjectID, bool) {
	identity, ok := CurrentIdentity(c)
	if !ok {
		return primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(identity.ID)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return id, true
}
