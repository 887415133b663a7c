package model

// Feed severities derived from threat levels.
const (
	SeverityInfo     = "info"
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Actions synthesized by the presentation engine.
const (
	ActionQuarantine = "quarantine"
	ActionChallenge  = "challenge"
	ActionLogOnly    = "log_only"
)

// FeedItem is a UI-ready view of a DecisionRecord. Every field is a
// deterministic function of the underlying row.
type FeedItem struct {
	ID           int64   `json:"id"`
	Timestamp    string  `json:"timestamp"`
	TenantID     string  `json:"tenant_id,omitempty"`
	Source       string  `json:"source"`
	EventID      string  `json:"event_id"`
	EventType    string  `json:"event_type"`
	ThreatLevel  string  `json:"threat_level"`
	Severity     string  `json:"severity"`
	ScoreDisplay int     `json:"score_display"`
	Confidence   float64 `json:"confidence"`
	ActionTaken  string  `json:"action_taken"`
	Title        string  `json:"title"`
	Summary      string  `json:"summary"`
	Changed      bool    `json:"changed"`
}
