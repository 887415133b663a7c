package model

// Threat levels, ordered by severity. The MVP rule set never emits
// "critical", but the contract and the feed enumerations permit it.
const (
	ThreatNone     = "none"
	ThreatLow      = "low"
	ThreatMedium   = "medium"
	ThreatHigh     = "high"
	ThreatCritical = "critical"
)

// Gating decisions produced by the doctrine gate.
const (
	GatingAllow           = "allow"
	GatingRequireApproval = "require_approval"
	GatingReject          = "reject"
)

// ActionBlockIP is the only disruptive mitigation in the MVP.
const ActionBlockIP = "block_ip"

// MitigationAction is a structured action attached to a decision.
type MitigationAction struct {
	Action     string  `json:"action"`
	Target     string  `json:"target,omitempty"`
	Reason     string  `json:"reason,omitempty"`
	Confidence float64 `json:"confidence"`
}

// Disruptive reports whether the mitigation interrupts service for a target.
func (m MitigationAction) Disruptive() bool {
	return m.Action == ActionBlockIP
}

// TieD is the impact tuple attached to every decision. Both fields are
// always in [0,1] and the struct is never null in a response.
type TieD struct {
	ServiceImpact float64 `json:"service_impact"`
	UserImpact    float64 `json:"user_impact"`
}

// Explain carries the decision rationale returned to the caller.
type Explain struct {
	Summary        string   `json:"summary"`
	RulesTriggered []string `json:"rules_triggered"`
	AnomalyScore   float64  `json:"anomaly_score"`
	Score          int      `json:"score"`
	TieD           TieD     `json:"tie_d"`
}

// Decision is the per-event assessment returned by POST /defend.
type Decision struct {
	EventID           string             `json:"event_id"`
	ThreatLevel       string             `json:"threat_level"`
	Score             int                `json:"score"`
	AnomalyScore      float64            `json:"anomaly_score"`
	RulesTriggered    []string           `json:"rules_triggered"`
	Mitigations       []MitigationAction `json:"mitigations"`
	Explain           Explain            `json:"explain"`
	TieD              TieD               `json:"tie_d"`
	ROEApplied        bool               `json:"roe_applied"`
	AORequired        bool               `json:"ao_required"`
	DisruptionLimited bool               `json:"disruption_limited"`
	GatingDecision    string             `json:"gating_decision"`
	ClockDriftMS      int64              `json:"clock_drift_ms"`
	ExplanationBrief  string             `json:"explanation_brief"`
}
