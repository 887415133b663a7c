// Package doctrine applies the rules-of-engagement layer on top of the
// raw rule engine output: persona and classification gating, disruption
// limits, and the TieD impact estimate.
package doctrine

import (
	"strings"

	"github.com/frostlabs/frostgate/internal/model"
)

// Personas recognized by the gate.
const (
	PersonaGuardian = "guardian"
	PersonaSentinel = "sentinel"
)

// ClassificationSecret triggers the guardian ROE policy.
const ClassificationSecret = "SECRET"

// Baseline impact floors when a disruptive mitigation is present.
const (
	baselineServiceImpact = 0.35
	baselineUserImpact    = 0.20
)

// Quiescent impact when nothing disruptive is planned.
const (
	quietServiceImpact = 0.05
	quietUserImpact    = 0.0
)

// disruptionReduction scales both impacts when the gate drops
// mitigations. Impacts never increase under doctrine limiting.
const disruptionReduction = 0.5

// Outcome is the doctrine gate result applied to a decision.
type Outcome struct {
	Mitigations       []model.MitigationAction
	TieD              model.TieD
	ROEApplied        bool
	AORequired        bool
	DisruptionLimited bool
	GatingDecision    string
}

// Apply post-processes the rule engine mitigations under the event's
// persona and classification. TieD is always populated.
func Apply(ev model.CanonicalEvent, mitigations []model.MitigationAction) Outcome {
	out := Outcome{
		Mitigations:    mitigations,
		TieD:           baselineImpact(mitigations),
		GatingDecision: model.GatingAllow,
	}

	if !guardianSecret(ev) {
		return out
	}

	out.ROEApplied = true
	out.AORequired = true

	limited, dropped := limitDisruption(mitigations)
	out.Mitigations = limited
	out.DisruptionLimited = dropped
	if dropped {
		out.TieD.ServiceImpact *= disruptionReduction
		out.TieD.UserImpact *= disruptionReduction
	}

	if anyDisruptive(out.Mitigations) {
		out.GatingDecision = model.GatingRequireApproval
	}

	return out
}

// guardianSecret reports whether the guardian+SECRET policy applies.
// Comparison is case-insensitive on both fields.
func guardianSecret(ev model.CanonicalEvent) bool {
	return strings.EqualFold(ev.Persona, PersonaGuardian) &&
		strings.EqualFold(ev.Classification, ClassificationSecret)
}

// limitDisruption keeps at most one block_ip mitigation, preserving
// order. Returns the filtered list and whether anything was dropped.
func limitDisruption(mitigations []model.MitigationAction) ([]model.MitigationAction, bool) {
	out := make([]model.MitigationAction, 0, len(mitigations))
	blocks := 0
	dropped := false
	for _, m := range mitigations {
		if m.Disruptive() {
			blocks++
			if blocks > 1 {
				dropped = true
				continue
			}
		}
		out = append(out, m)
	}
	return out, dropped
}

func anyDisruptive(mitigations []model.MitigationAction) bool {
	for _, m := range mitigations {
		if m.Disruptive() {
			return true
		}
	}
	return false
}

// baselineImpact estimates TieD before any doctrine reduction.
func baselineImpact(mitigations []model.MitigationAction) model.TieD {
	if anyDisruptive(mitigations) {
		return model.TieD{ServiceImpact: baselineServiceImpact, UserImpact: baselineUserImpact}
	}
	return model.TieD{ServiceImpact: quietServiceImpact, UserImpact: quietUserImpact}
}
