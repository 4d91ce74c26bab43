package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"laundry/internal/models"
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("invalid token")
	ErrNoSecret     = errors.New("signing secret is required")
)

// refreshTokenBytes is the amount of randomness in a refresh token.
const refreshTokenBytes = 40

// Identity is what a verified access token proves.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type AccessClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// TokenVerifier is the read side of the issuer, used by request guards.
type TokenVerifier interface {
	VerifyAccessToken(token string) (Identity, error)
}

type TokenIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	clock  Clock
}

func NewTokenIssuer(secret string, ttl time.Duration, issuer string, clock Clock) (*TokenIssuer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrNoSecret
	}
	if ttl <= 0 {
		ttl = 20 * time.Minute
	}
	if clock == nil {
		clock = RealClock{}
	}
	return &TokenIssuer{secret: []byte(secret), issuer: issuer, ttl: ttl, clock: clock}, nil
}

// TTL is the access token lifetime.
func (i *TokenIssuer) TTL() time.Duration {
	return i.ttl
}

func (i *TokenIssuer) IssueAccessToken(userID, email, role string) (string, error) {
	now := i.clock.Now()
	claims := AccessClaims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// VerifyAccessToken returns ErrTokenExpired for a well-formed token past its
// expiry and ErrTokenInvalid for every other failure.
func (i *TokenIssuer) VerifyAccessToken(raw string) (Identity, error) {
	claims := &AccessClaims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.clock.Now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) && !errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return Identity{}, ErrTokenExpired
		}
		return Identity{}, ErrTokenInvalid
	}
	if !parsed.Valid || strings.TrimSpace(claims.Subject) == "" {
		return Identity{}, ErrTokenInvalid
	}
	if i.issuer != "" && claims.Issuer != i.issuer {
		return Identity{}, ErrTokenInvalid
	}
	return Identity{ID: claims.Subject, Email: claims.Email, Role: claims.Role}, nil
}

// NewRefreshToken returns the plaintext token for the client and the record
// to persist, which carries only its hash.
func NewRefreshToken(ip string, ttl time.Duration, now time.Time) (string, models.RefreshToken, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", models.RefreshToken{}, err
	}
	plain := hex.EncodeToString(buf)
	return plain, models.RefreshToken{
		TokenHash:   HashToken(plain),
		Expires:     now.Add(ttl),
		Created:     now,
		CreatedByIP: ip,
	}, nil
}

func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
