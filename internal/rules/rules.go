// Package rules implements the deterministic threat rule engine. The
// engine is a stateless pure function of the canonical event: same event
// in, same assessment out.
package rules

import (
	"fmt"

	"github.com/frostlabs/frostgate/internal/model"
)

// Rule identifiers.
const (
	RuleSSHBruteforce = "rule:ssh_bruteforce"
	RuleDefaultAllow  = "rule:default_allow"
)

// RuleScores maps triggered rules to their score contribution.
var RuleScores = map[string]int{
	RuleSSHBruteforce: 85,
	RuleDefaultAllow:  0,
}

// bruteforceThreshold is the minimum failed auth count for the SSH
// brute-force rule to fire.
const bruteforceThreshold = 5

var bruteforceEventTypes = map[string]bool{
	"auth":            true,
	"auth.bruteforce": true,
	"auth_attempt":    true,
}

// Result is the raw rule engine output, before doctrine gating.
type Result struct {
	RulesTriggered []string
	Score          int
	ThreatLevel    string
	AnomalyScore   float64
	Mitigations    []model.MitigationAction
}

// Evaluate runs the rule set against a canonical event.
func Evaluate(ev model.CanonicalEvent) Result {
	var res Result

	if bruteforceEventTypes[ev.EventType] && ev.FailedAuths >= bruteforceThreshold && ev.SrcIP != "" {
		res.RulesTriggered = append(res.RulesTriggered, RuleSSHBruteforce)
		res.Mitigations = append(res.Mitigations, model.MitigationAction{
			Action:     model.ActionBlockIP,
			Target:     ev.SrcIP,
			Reason:     fmt.Sprintf("%d failed authentications from %s", ev.FailedAuths, ev.SrcIP),
			Confidence: 0.9,
		})
	}

	if len(res.RulesTriggered) == 0 {
		res.RulesTriggered = append(res.RulesTriggered, RuleDefaultAllow)
	}

	res.RulesTriggered = dedupe(res.RulesTriggered)
	for _, r := range res.RulesTriggered {
		res.Score += RuleScores[r]
	}
	res.ThreatLevel = ThreatLevel(res.Score)
	res.AnomalyScore = anomalyScore(res.Score, res.RulesTriggered)

	return res
}

// ThreatLevel maps a score to a threat tier. The critical tier is
// reserved for future rules; no current score reaches it.
func ThreatLevel(score int) string {
	switch {
	case score >= 80:
		return model.ThreatHigh
	case score >= 50:
		return model.ThreatMedium
	case score >= 20:
		return model.ThreatLow
	default:
		return model.ThreatNone
	}
}

// anomalyScore is a monotone function of the score plus a fixed bump per
// anomalous rule identity, clamped to [0,1]. Baseline 0.1.
func anomalyScore(score int, triggered []string) float64 {
	a := 0.1 + float64(score)/400.0
	for _, r := range triggered {
		if r == RuleSSHBruteforce {
			a += 0.5
		}
	}
	if a > 1 {
		a = 1
	}
	return a
}

// dedupe removes duplicate rule IDs preserving first occurrence.
func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
