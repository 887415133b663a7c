package model

import (
	"encoding/json"
	"time"
)

// DecisionRecord is the persisted audit row for a decision. Rows are
// immutable once committed; chain_hash links each row to the one with
// the immediately preceding id.
type DecisionRecord struct {
	ID                 int64           `json:"id"`
	CreatedAt          time.Time       `json:"created_at"`
	TenantID           string          `json:"tenant_id"`
	Source             string          `json:"source"`
	EventID            string          `json:"event_id"`
	EventType          string          `json:"event_type"`
	ThreatLevel        string          `json:"threat_level"`
	AnomalyScore       float64         `json:"anomaly_score"`
	AIAdversarialScore float64         `json:"ai_adversarial_score"`
	PQFallback         bool            `json:"pq_fallback"`
	RulesTriggered     []string        `json:"rules_triggered"`
	DecisionDiff       json.RawMessage `json:"decision_diff_json,omitempty"`
	RequestJSON        json.RawMessage `json:"request_json,omitempty"`
	ResponseJSON       json.RawMessage `json:"response_json,omitempty"`
	PrevHash           string          `json:"prev_hash"`
	ChainHash          string          `json:"chain_hash"`
	LatencyMS          int64           `json:"latency_ms"`
	ExplainSummary     string          `json:"explain_summary"`
}

// FieldDelta describes one numeric field change inside a decision diff.
type FieldDelta struct {
	From  int `json:"from"`
	To    int `json:"to"`
	Delta int `json:"delta"`
}

// StringDelta describes one string field change inside a decision diff.
type StringDelta struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// DecisionDiff is the structured delta between a prior record and the
// current decision under the same (tenant_id, source, event_type) key.
type DecisionDiff struct {
	Score        FieldDelta  `json:"score"`
	ThreatLevel  StringDelta `json:"threat_level"`
	RulesAdded   []string    `json:"rules_added"`
	RulesRemoved []string    `json:"rules_removed"`
	Changes      []string    `json:"changes"`
	NoChange     bool        `json:"no_change,omitempty"`
}
