package account

import (
	"time"

	"laundry/internal/models"
)

// pruneRefreshTokens drops expired tokens, and the oldest active ones when
// the account is at its session cap, leaving room for one more. Rotated and
// revoked tokens stay until they expire so reuse can be detected.
func pruneRefreshTokens(tokens []models.RefreshToken, now time.Time) []models.RefreshToken {
	active := 0
	for _, token := range tokens {
		if token.IsActive(now) {
			active++
		}
	}
	excess := active - (maxActiveRefreshTokens - 1)

	kept := make([]models.RefreshToken, 0, len(tokens)+1)
	for _, token := range tokens {
		if token.IsExpired(now) {
			continue
		}
		if excess > 0 && token.IsActive(now) {
			excess--
			continue
		}
		kept = append(kept, token)
	}
	return kept
}

func revokeAll(u *models.User, ip string, now time.Time) {
	for i := range u.RefreshTokens {
		if u.RefreshTokens[i].IsActive(now) {
			u.RefreshTokens[i].Revoked = &now
			u.RefreshTokens[i].RevokedByIP = ip
		}
	}
}
