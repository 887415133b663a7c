// Package feed turns persisted decision rows into UI-ready feed items.
//
// Presentation is a pure function of the row: the same DecisionRecord
// always yields the same FeedItem, so the live feed and the SSE stream
// render identically.
package feed

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/frostlabs/frostgate/internal/model"
)

// threatWeight maps a threat level to its floor display score.
var threatWeight = map[string]float64{
	model.ThreatNone:     5,
	model.ThreatLow:      25,
	model.ThreatMedium:   55,
	model.ThreatHigh:     85,
	model.ThreatCritical: 95,
}

// Thresholds for the synthesized action.
const (
	quarantineScore = 85
	challengeScore  = 65
	quarantineAdv   = 0.6
)

// Present renders one decision row as a feed item.
func Present(rec *model.DecisionRecord) model.FeedItem {
	weight, ok := threatWeight[rec.ThreatLevel]
	if !ok {
		weight = threatWeight[model.ThreatNone]
	}

	raw := math.Max(weight, math.Max(rec.AnomalyScore*100, rec.AIAdversarialScore*100))
	scoreDisplay := int(math.Round(clamp(raw, 0, 100)))
	confidence := clamp(0.5+float64(scoreDisplay)/200, 0, 1)

	action := model.ActionLogOnly
	switch {
	case scoreDisplay >= quarantineScore ||
		((rec.ThreatLevel == model.ThreatHigh || rec.ThreatLevel == model.ThreatCritical) &&
			rec.AIAdversarialScore >= quarantineAdv):
		action = model.ActionQuarantine
	case scoreDisplay >= challengeScore:
		action = model.ActionChallenge
	}

	severity := severityFor(rec.ThreatLevel)

	return model.FeedItem{
		ID:           rec.ID,
		Timestamp:    rec.CreatedAt.UTC().Format(time.RFC3339),
		TenantID:     rec.TenantID,
		Source:       rec.Source,
		EventID:      rec.EventID,
		EventType:    rec.EventType,
		ThreatLevel:  rec.ThreatLevel,
		Severity:     severity,
		ScoreDisplay: scoreDisplay,
		Confidence:   confidence,
		ActionTaken:  action,
		Title:        fmt.Sprintf("[%s] %s from %s", strings.ToUpper(severity), rec.EventType, rec.Source),
		Summary:      fmt.Sprintf("%s event from %s scored %d, action %s.", rec.EventType, rec.Source, scoreDisplay, action),
		Changed:      changed(rec.DecisionDiff),
	}
}

// PresentAll renders a page of rows, preserving order.
func PresentAll(recs []model.DecisionRecord) []model.FeedItem {
	items := make([]model.FeedItem, 0, len(recs))
	for i := range recs {
		items = append(items, Present(&recs[i]))
	}
	return items
}

// LiveFilter holds the post-presentation filters of the live feed.
type LiveFilter struct {
	OnlyActionable bool
	OnlyChanged    bool
}

// Apply drops items the filter suppresses.
func (f LiveFilter) Apply(items []model.FeedItem) []model.FeedItem {
	out := make([]model.FeedItem, 0, len(items))
	for _, item := range items {
		if f.OnlyActionable && item.ActionTaken == model.ActionLogOnly &&
			(item.Severity == model.SeverityInfo || item.Severity == model.SeverityLow) {
			continue
		}
		if f.OnlyChanged && !item.Changed {
			continue
		}
		out = append(out, item)
	}
	return out
}

// ThreatLevelsForSeverity translates a severity query value into the
// stored threat levels it selects. The info severity covers rows whose
// threat level was never set.
func ThreatLevelsForSeverity(severity string) []string {
	if severity == model.SeverityInfo {
		return []string{model.ThreatNone, "info", ""}
	}
	return []string{severity}
}

func severityFor(threatLevel string) string {
	switch threatLevel {
	case model.ThreatLow:
		return model.SeverityLow
	case model.ThreatMedium:
		return model.SeverityMedium
	case model.ThreatHigh:
		return model.SeverityHigh
	case model.ThreatCritical:
		return model.SeverityCritical
	default:
		return model.SeverityInfo
	}
}

func changed(diffJSON json.RawMessage) bool {
	if len(diffJSON) == 0 {
		return false
	}
	var diff model.DecisionDiff
	if err := json.Unmarshal(diffJSON, &diff); err != nil {
		return false
	}
	return !diff.NoChange && len(diff.Changes) > 0
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
