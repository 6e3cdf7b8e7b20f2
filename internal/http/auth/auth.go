// Package auth turns a bearer token into the client.Actor every service call
// needs.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/ledgerly/internal/client"
	"github.com/MrJamesThe3rd/ledgerly/internal/http/respond"
	"github.com/MrJamesThe3rd/ledgerly/internal/ledger"
)

var ErrUnauthenticated = respond.ErrUnauthenticated

// Claims carries the actor. The subject is the actor's id: an employee id, a
// client id, or an admin's own id.
type Claims struct {
	Role ledger.Role `json:"role"`
	Name string      `json:"name"`
	jwt.RegisteredClaims
}

type Authenticator struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func New(secret, issuer string) *Authenticator {
	return &Authenticator{secret: []byte(secret), issuer: issuer, now: time.Now}
}

// WithClock is used by tests to pin token validation to a fixed instant.
func (a *Authenticator) WithClock(now func() time.Time) *Authenticator {
	a.now = now
	return a
}

// Issue signs a token for actor, valid for ttl.
func (a *Authenticator) Issue(actor client.Actor, ttl time.Duration) (string, error) {
	now := a.now()

	claims := Claims{
		Role: actor.Role,
		Name: actor.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID.String(),
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}

	return signed, nil
}

// Parse validates a signed token and returns its actor.
func (a *Authenticator) Parse(token string) (client.Actor, error) {
	var claims Claims

	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return a.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(a.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return client.Actor{}, errors.Join(ErrUnauthenticated, err)
	}

	if !claims.Role.Valid() {
		return client.Actor{}, fmt.Errorf("%w: unknown role %q", ErrUnauthenticated, claims.Role)
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return client.Actor{}, fmt.Errorf("%w: subject is not an id", ErrUnauthenticated)
	}

	return client.Actor{Role: claims.Role, ID: id, Name: claims.Name}, nil
}

type ctxKey struct{}

// Middleware rejects requests without a valid bearer token and stores the
// actor in the request context.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			respond.Error(w, r, ErrUnauthenticated)
			return
		}

		actor, err := a.Parse(token)
		if err != nil {
			respond.Error(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
	})
}

func WithActor(ctx context.Context, actor client.Actor) context.Context {
	return context.WithValue(ctx, ctxKey{}, actor)
}

// ActorFrom returns the actor stored by Middleware.
func ActorFrom(ctx context.Context) (client.Actor, bool) {
	actor, ok := ctx.Value(ctxKey{}).(client.Actor)
	return actor, ok
}

// RequireRole only lets the given roles through.
func RequireRole(roles ...ledger.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFrom(r.Context())
			if !ok {
				respond.Error(w, r, ErrUnauthenticated)
				return
			}

			if !slices.Contains(roles, actor.Role) {
				respond.Error(w, r, ledger.ErrForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
