package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"github.com/warp/leave-engine/generic"
)

// Claims is the bearer token payload.
type Claims struct {
	EmployeeID generic.EmployeeID `json:"employee_id"`
	Role       Role               `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 bearer tokens.
type TokenIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    generic.Clock
}

func NewTokenIssuer(secret, issuer string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), issuer: issuer, ttl: ttl, now: generic.SystemClock}
}

// WithClock pins the signing time; used by tests.
func (t *TokenIssuer) WithClock(c generic.Clock) *TokenIssuer {
	t.now = c
	return t
}

// Issue returns a signed token for the actor.
func (t *TokenIssuer) Issue(actor Actor) (string, error) {
	now := t.now.Now()
	claims := Claims{
		EmployeeID: actor.EmployeeID,
		Role:       actor.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}
	return signed, nil
}

// Parse verifies a token and returns the actor it carries.
func (t *TokenIssuer) Parse(tokenString string) (Actor, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now.Now))
	if err != nil {
		return Actor{}, errors.Wrap(generic.ErrUnauthenticated, err.Error())
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Actor{}, generic.ErrUnauthenticated
	}
	if t.issuer != "" && claims.Issuer != t.issuer {
		return Actor{}, errors.Wrap(generic.ErrUnauthenticated, "unexpected issuer")
	}
	role, ok := ParseRole(string(claims.Role))
	if !ok || claims.EmployeeID == 0 {
		return Actor{}, errors.Wrap(generic.ErrUnauthenticated, "malformed claims")
	}
	return Actor{EmployeeID: claims.EmployeeID, Role: role}, nil
}
