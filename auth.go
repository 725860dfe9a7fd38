package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt"
	bcrypt "golang.org/x/crypto/bcrypt"
)

type Claims struct {
	CustomerID int64  `json:"cid"`
	FullName   string `json:"name"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	jwt.StandardClaims
}

// TokenIssuer signs and validates session tokens. The token is the only
// session state; it is parsed once per request into an Actor.
type TokenIssuer struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{
		key: []byte(secret),
		ttl: ttl,
		now: time.Now,
	}
}

func (t *TokenIssuer) generateJWT(a Actor) (string, error) {
	now := t.now()
	claims := &Claims{
		CustomerID: a.CustomerID,
		FullName:   a.FullName,
		Email:      a.Email,
		Role:       a.Role,
		StandardClaims: jwt.StandardClaims{
			Subject:   fmt.Sprint(a.CustomerID),
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(t.ttl).Unix(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.key)
}

func (t *TokenIssuer) ParseJWT(tokenString string) (Actor, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.key, nil
	})
	if err != nil {
		return Actor{}, err
	}
	if !token.Valid {
		return Actor{}, errors.New("invalid token")
	}
	if claims.CustomerID <= 0 {
		return Actor{}, errors.New("token has no customer")
	}
	return Actor{
		CustomerID: claims.CustomerID,
		FullName:   claims.FullName,
		Email:      claims.Email,
		Role:       claims.Role,
	}, nil
}

// tokenFromHeader accepts "Authorization: Bearer <t>" and the bare
// X-Authorization header.
func tokenFromHeader(authorization, xAuthorization string) string {
	if t, ok := strings.CutPrefix(authorization, "Bearer "); ok {
		return strings.TrimSpace(t)
	}
	return strings.TrimSpace(xAuthorization)
}

func HashPassword(password string, cost int) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	return string(bytes), err
}

func HashToPassword(hash, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
