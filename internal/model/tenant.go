package model

import "time"

// TenantStatusActive is the only status that passes the tenant auth path.
const TenantStatusActive = "active"

// Tenant is a per-tenant identity row. Tenant API keys are compared
// verbatim (legacy raw-key path); scoped keys live in api_keys.
type Tenant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	APIKey    string    `json:"-"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Active reports whether the tenant may authenticate.
func (t Tenant) Active() bool {
	return t.Status == TenantStatusActive
}
