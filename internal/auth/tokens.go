package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
)

const (
	typeAccess  = "access"
	typeRefresh = "refresh"
)

// Claims identify the user a token was issued for.
type Claims struct {
	UserID string `json:"id"`
	Type   string `json:"typ"`
	jwt.RegisteredClaims
}

// Pair is a freshly issued access and refresh token.
type Pair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// TokenManager signs and verifies HS256 tokens. Access and refresh tokens use
// separate secrets so one kind never verifies as the other.
type TokenManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
	now           func() time.Time
}

func NewTokenManager(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		issuer:        "taakra",
		now:           time.Now,
	}
}

// WithClock replaces the time source, for tests.
func (tm *TokenManager) WithClock(now func() time.Time) *TokenManager {
	cp := *tm
	cp.now = now
	return &cp
}

// AccessTTL is the lifetime of access tokens.
func (tm *TokenManager) AccessTTL() time.Duration { return tm.accessTTL }

// RefreshTTL is the lifetime of refresh tokens.
func (tm *TokenManager) RefreshTTL() time.Duration { return tm.refreshTTL }

// GeneratePair issues a new access and refresh token for userID.
func (tm *TokenManager) GeneratePair(userID uuid.UUID) (Pair, error) {
	now := tm.now()
	access, accessExp, err := tm.sign(userID, typeAccess, tm.accessSecret, now, tm.accessTTL)
	if err != nil {
		return Pair{}, err
	}
	refresh, refreshExp, err := tm.sign(userID, typeRefresh, tm.refreshSecret, now, tm.refreshTTL)
	if err != nil {
		return Pair{}, err
	}
	return Pair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (tm *TokenManager) sign(userID uuid.UUID, typ string, secret []byte, now time.Time, ttl time.Duration) (string, time.Time, error) {
	exp := now.Add(ttl)
	claims := Claims{
		UserID: userID.String(),
		Type:   typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tm.issuer,
			Subject:   userID.String(),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", typ, err)
	}
	return s, exp, nil
}

// ParseAccess verifies an access token and returns the user id it carries.
func (tm *TokenManager) ParseAccess(token string) (uuid.UUID, error) {
	return tm.parse(token, typeAccess, tm.accessSecret)
}

// ParseRefresh verifies a refresh token and returns the user id it carries.
func (tm *TokenManager) ParseRefresh(token string) (uuid.UUID, error) {
	return tm.parse(token, typeRefresh, tm.refreshSecret)
}

func (tm *TokenManager) parse(token, typ string, secret []byte) (uuid.UUID, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tm.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(tm.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return uuid.Nil, ErrTokenExpired
		}
		return uuid.Nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if claims.Type != typ {
		return uuid.Nil, ErrTokenInvalid
	}
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return uuid.Nil, ErrTokenInvalid
	}
	return id, nil
}
