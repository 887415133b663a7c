package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/frostlabs/frostgate/internal/auth"
	"github.com/frostlabs/frostgate/internal/storage"
)

const authFailDetail = "Invalid or missing API key"

// Principal is the identity attached to a request after it passes the
// auth boundary.
type Principal struct {
	TenantID string
	Scopes   []string

	// Unscoped is set for the global key, tenant-key auth, and the
	// auth-disabled path; those bypass per-route scope checks.
	Unscoped bool
}

// HasScope reports whether the principal may use the given scope.
func (p *Principal) HasScope(scope string) bool {
	if p.Unscoped {
		return true
	}
	for _, s := range p.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// authMiddleware enforces the API key boundary. Order:
//  1. X-Tenant-Id present: tenant path applies regardless of global
//     auth mode. Tenant must be active and X-API-Key must equal the
//     tenant key verbatim.
//  2. Global auth disabled: pass.
//  3. X-API-Key equals the global key: pass, scopes bypassed.
//  4. Scoped key <prefix>.<token>.<secret>: sha256 of the secret must
//     match a non-revoked api_keys row; scopes enforced per route.
//
// Health endpoints are outside the boundary.
func authMiddleware(db *storage.DB, authEnabled bool, globalKey string, logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/health") {
			next.ServeHTTP(w, r)
			return
		}

		presented := r.Header.Get("X-API-Key")

		if tenantID := r.Header.Get("X-Tenant-Id"); tenantID != "" {
			tenant, err := db.GetTenant(r.Context(), tenantID)
			if err != nil {
				if !errors.Is(err, storage.ErrNotFound) {
					logger.Error("tenant lookup failed", "tenant_id", tenantID, "error", err)
				}
				writeError(w, http.StatusUnauthorized, authFailDetail)
				return
			}
			if !tenant.Active() || presented == "" || !auth.SecureCompare(presented, tenant.APIKey) {
				writeError(w, http.StatusUnauthorized, authFailDetail)
				return
			}
			serveAs(w, r, next, &Principal{TenantID: tenantID, Unscoped: true})
			return
		}

		if !authEnabled {
			serveAs(w, r, next, &Principal{Unscoped: true})
			return
		}

		if presented != "" && auth.SecureCompare(presented, globalKey) {
			serveAs(w, r, next, &Principal{Unscoped: true})
			return
		}

		if key, ok := auth.ParseScopedKey(presented); ok {
			rec, err := db.GetAPIKeyByHash(r.Context(), auth.HashSecret(key.Secret))
			if err == nil {
				serveAs(w, r, next, &Principal{TenantID: rec.TenantID, Scopes: rec.Scopes})
				return
			}
			if !errors.Is(err, storage.ErrNotFound) {
				logger.Error("api key lookup failed", "error", err)
			}
		}

		writeError(w, http.StatusUnauthorized, authFailDetail)
	})
}

func serveAs(w http.ResponseWriter, r *http.Request, next http.Handler, p *Principal) {
	ctx := context.WithValue(r.Context(), contextKeyPrincipal, p)
	next.ServeHTTP(w, r.WithContext(ctx))
}

// requireScope returns middleware that enforces one scope on a route.
func requireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := PrincipalFromContext(r.Context())
			if p == nil {
				writeError(w, http.StatusUnauthorized, authFailDetail)
				return
			}
			if !p.HasScope(scope) {
				writeError(w, http.StatusForbidden, "Insufficient scope: "+scope+" required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// rateLimitKey keys the limiter by tenant and route. Unauthenticated
// tenancy collapses to a single shared bucket.
func rateLimitKey(r *http.Request) string {
	tenantID := "anon"
	if p := PrincipalFromContext(r.Context()); p != nil && p.TenantID != "" {
		tenantID = p.TenantID
	}
	return tenantID + "|" + r.URL.Path
}
