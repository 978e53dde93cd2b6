package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/tunesmith-hq/tunesmith/internal/shared"
)

type contextKey string

const identityKey contextKey = "identity"

// PermissionSet enumerates what an authenticated caller may do. Tokens carry
// explicit booleans rather than free-form permission strings.
type PermissionSet struct {
	ReadCatalog   bool `json:"read_catalog"`
	WriteCatalog  bool `json:"write_catalog"`
	ManageSplits  bool `json:"manage_splits"`
	RunImports    bool `json:"run_imports"`
	ManageMembers bool `json:"manage_members"`
}

// FullAccess grants every permission. Used for owner tokens and tests.
func FullAccess() PermissionSet {
	return PermissionSet{
		ReadCatalog:   true,
		WriteCatalog:  true,
		ManageSplits:  true,
		RunImports:    true,
		ManageMembers: true,
	}
}

// Claims is the JWT payload for API tokens.
type Claims struct {
	OrganizationID string        `json:"org"`
	UserID         string        `json:"uid"`
	Permissions    PermissionSet `json:"perms"`
	jwt.RegisteredClaims
}

// Identity is the authenticated caller attached to the request context.
type Identity struct {
	OrganizationID string
	UserID         string
	Permissions    PermissionSet
}

// IdentityFrom extracts the caller identity from a request context.
func IdentityFrom(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityKey).(*Identity)
	return identity, ok
}

// ParseToken validates a bearer token and returns its claims.
func ParseToken(tokenString, secret string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}
	if !token.Valid || claims.OrganizationID == "" {
		return nil, shared.ErrAuthFailed
	}
	return claims, nil
}

// IssueToken signs a token for the given identity. Used by the CLI and tests.
func IssueToken(identity Identity, secret string) (string, error) {
	claims := Claims{
		OrganizationID: identity.OrganizationID,
		UserID:         identity.UserID,
		Permissions:    identity.Permissions,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// authenticate is middleware requiring a valid bearer token. The caller's
// identity is attached to the request context.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			respondError(w, http.StatusUnauthorized, "unauthenticated", "missing bearer token")
			return
		}

		claims, err := ParseToken(token, s.jwtSecret)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "unauthenticated", "invalid bearer token")
			return
		}

		identity := &Identity{
			OrganizationID: claims.OrganizationID,
			UserID:         claims.UserID,
			Permissions:    claims.Permissions,
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey, identity)))
	})
}

// requirePermission gates a route on one PermissionSet field.
func requirePermission(check func(PermissionSet) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFrom(r.Context())
			if !ok {
				respondError(w, http.StatusUnauthorized, "unauthenticated", "missing identity")
				return
			}
			if !check(identity.Permissions) {
				respondError(w, http.StatusForbidden, "forbidden", "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken extracts the token from the Authorization header, falling back
// to the token query parameter for WebSocket upgrades.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return r.URL.Query().Get("token")
}
