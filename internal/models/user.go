package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Address labels accepted by the address book.
const (
	LabelHome     = "home"
	LabelWork     = "work"
	LabelFavorite = "favorite"
	LabelOther    = "other"
)

// Address represents a single address entry for a user.
type Address struct {
	ID        string  `bson:"id" json:"id"`
	Label     string  `bson:"label" json:"label"`
	Address   string  `bson:"address" json:"address"`
	Lat       float64 `bson:"lat" json:"lat"`
	Lng       float64 `bson:"lng" json:"lng"`
	IsDefault bool    `bson:"isDefault" json:"isDefault"`
}

// User represents the application user account. Credentials, lock state and
// refresh tokens never leave the server; use View for responses.
type User struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email         string             `bson:"email" json:"email"`
	PasswordHash  string             `bson:"passwordHash" json:"-"`
	Name          string             `bson:"name" json:"name"`
	Role          string             `bson:"role" json:"role"`
	Mobile        string             `bson:"mobile,omitempty" json:"mobile,omitempty"`
	ProfileImage  string             `bson:"profileImage,omitempty" json:"profileImage,omitempty"`
	Addresses     []Address          `bson:"addresses" json:"addresses"`
	LoginAttempts int                `bson:"loginAttempts" json:"-"`
	LockUntil     *time.Time         `bson:"lockUntil,omitempty" json:"-"`
	LastLogin     *time.Time         `bson:"lastLogin,omitempty" json:"lastLogin,omitempty"`
	RefreshTokens []RefreshToken     `bson:"refreshTokens" json:"-"`
	Version       int64              `bson:"version" json:"-"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// IsLocked reports whether login is currently refused for this account.
func (u *User) IsLocked(now time.Time) bool {
	return u.LockUntil != nil && u.LockUntil.After(now)
}

// UserView is the sanitized projection of a User returned to clients.
type UserView struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	Role         string     `json:"role"`
	Mobile       string     `json:"mobile,omitempty"`
	ProfileImage string     `json:"profileImage,omitempty"`
	Addresses    []Address  `json:"addresses"`
	LastLogin    *time.Time `json:"lastLogin,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

func (u *User) View() UserView {
	addresses := u.Addresses
	if addresses == nil {
		addresses = []Address{}
	}
	return UserView{
		ID:           u.ID.Hex(),
		Email:        u.Email,
		Name:         u.Name,
		Role:         u.Role,
		Mobile:       u.Mobile,
		ProfileImage: u.ProfileImage,
		Addresses:    addresses,
		LastLogin:    u.LastLogin,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}
