package model

import "time"

// API key scopes recognized by the auth boundary.
const (
	ScopeDefendWrite   = "defend:write"
	ScopeDecisionsRead = "decisions:read"
	ScopeFeedRead      = "feed:read"
)

// APIKey is a scoped key record. The secret itself is never stored;
// key_hash holds the sha256 hex of the secret segment.
type APIKey struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	KeyHash   string     `json:"-"`
	Scopes    []string   `json:"scopes"`
	TenantID  string     `json:"tenant_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

// HasScope reports whether the key grants the given scope.
func (k APIKey) HasScope(scope string) bool {
	for _, s := range k.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}
