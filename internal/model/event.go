package model

import "time"

// CanonicalEvent is the normalized form of an inbound telemetry event.
// It is produced by the normalizer and consumed by the rule engine and
// the doctrine gate. All lookups that fed it are recorded nowhere; the
// canonical request JSON (not this struct) is what event IDs hash over.
type CanonicalEvent struct {
	Source         string         `json:"source"`
	TenantID       string         `json:"tenant_id,omitempty"`
	Timestamp      time.Time      `json:"timestamp"`
	Classification string         `json:"classification,omitempty"`
	Persona        string         `json:"persona,omitempty"`
	EventType      string         `json:"event_type"`
	SrcIP          string         `json:"src_ip,omitempty"`
	FailedAuths    int            `json:"failed_auths"`
	Payload        map[string]any `json:"payload"`
}
