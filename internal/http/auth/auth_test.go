package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/ledgerly/internal/client"
	"github.com/MrJamesThe3rd/ledgerly/internal/http/auth"
	"github.com/MrJamesThe3rd/ledgerly/internal/ledger"
)

var issuedAt = time.Date(2025, 6, 5, 10, 0, 0, 0, time.UTC)

func newAuth() *auth.Authenticator {
	return auth.New("secret", "ledgerly").WithClock(func() time.Time { return issuedAt })
}

func TestAuthenticator_RoundTrip(t *testing.T) {
	a := newAuth()
	actor := client.Actor{Role: ledger.RoleEmployee, ID: uuid.New(), Name: "Ana"}

	token, err := a.Issue(actor, time.Hour)
	require.NoError(t, err)

	got, err := a.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, actor, got)
}

func TestAuthenticator_Rejects(t *testing.T) {
	actor := client.Actor{Role: ledger.RoleAdmin, ID: uuid.New(), Name: "root"}

	expired, err := newAuth().Issue(actor, time.Minute)
	require.NoError(t, err)

	otherSecret, err := auth.New("other", "ledgerly").WithClock(func() time.Time { return issuedAt }).Issue(actor, time.Hour)
	require.NoError(t, err)

	otherIssuer, err := auth.New("secret", "someone-else").WithClock(func() time.Time { return issuedAt }).Issue(actor, time.Hour)
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, auth.Claims{
		Role:             ledger.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{Subject: actor.ID.String(), Issuer: "ledgerly", ExpiresAt: jwt.NewNumericDate(issuedAt.Add(time.Hour))},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	badRole, err := newAuth().Issue(client.Actor{Role: "owner", ID: actor.ID}, time.Hour)
	require.NoError(t, err)

	later := auth.New("secret", "ledgerly").WithClock(func() time.Time { return issuedAt.Add(2 * time.Minute) })

	tests := []struct {
		name  string
		token string
		a     *auth.Authenticator
	}{
		{name: "Expired", token: expired, a: later},
		{name: "WrongSecret", token: otherSecret, a: newAuth()},
		{name: "WrongIssuer", token: otherIssuer, a: newAuth()},
		{name: "NoneAlgorithm", token: unsigned, a: newAuth()},
		{name: "UnknownRole", token: badRole, a: newAuth()},
		{name: "Garbage", token: "not-a-token", a: newAuth()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.a.Parse(tt.token)
			assert.ErrorIs(t, err, auth.ErrUnauthenticated)
		})
	}
}

func TestMiddleware(t *testing.T) {
	a := newAuth()
	actor := client.Actor{Role: ledger.RoleClient, ID: uuid.New(), Name: "Acme"}

	token, err := a.Issue(actor, time.Hour)
	require.NoError(t, err)

	var seen client.Actor

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = auth.ActorFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name   string
		header string
		guard  []ledger.Role
		want   int
	}{
		{name: "Valid", header: "Bearer " + token, want: http.StatusNoContent},
		{name: "Missing", header: "", want: http.StatusUnauthorized},
		{name: "NotBearer", header: "Basic abc", want: http.StatusUnauthorized},
		{name: "RoleAllowed", header: "Bearer " + token, guard: []ledger.Role{ledger.RoleClient}, want: http.StatusNoContent},
		{name: "RoleDenied", header: "Bearer " + token, guard: []ledger.Role{ledger.RoleAdmin}, want: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var h http.Handler = next
			if tt.guard != nil {
				h = auth.RequireRole(tt.guard...)(h)
			}

			h = a.Middleware(h)

			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}

			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)

			assert.Equal(t, tt.want, w.Code)

			if tt.want == http.StatusNoContent {
				assert.Equal(t, actor, seen)
			}
		})
	}
}
