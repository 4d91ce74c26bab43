package models

import "time"

// RefreshToken is embedded in its User. Only the SHA-256 of the issued value
// is stored.
type RefreshToken struct {
	TokenHash       string     `bson:"tokenHash" json:"-"`
	Expires         time.Time  `bson:"expires" json:"expires"`
	Created         time.Time  `bson:"created" json:"created"`
	CreatedByIP     string     `bson:"createdByIp" json:"createdByIp"`
	Revoked         *time.Time `bson:"revoked,omitempty" json:"revoked,omitempty"`
	RevokedByIP     string     `bson:"revokedByIp,omitempty" json:"revokedByIp,omitempty"`
	ReplacedByToken string     `bson:"replacedByToken,omitempty" json:"-"`
}

func (t RefreshToken) IsExpired(now time.Time) bool {
	return !now.Before(t.Expires)
}

// IsActive is false once the token expired, was revoked, or was rotated out.
func (t RefreshToken) IsActive(now time.Time) bool {
	return t.Revoked == nil && t.ReplacedByToken == "" && !t.IsExpired(now)
}
