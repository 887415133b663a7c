package feed

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frostlabs/frostgate/internal/model"
)

func baseRecord() *model.DecisionRecord {
	return &model.DecisionRecord{
		ID:          7,
		CreatedAt:   time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC),
		TenantID:    "acme",
		Source:      "edge-fw",
		EventID:     "ev-7",
		EventType:   "auth",
		ThreatLevel: model.ThreatNone,
	}
}

func TestPresentNoiseRow(t *testing.T) {
	item := Present(baseRecord())

	assert.Equal(t, 5, item.ScoreDisplay)
	assert.InDelta(t, 0.525, item.Confidence, 1e-9)
	assert.Equal(t, model.ActionLogOnly, item.ActionTaken)
	assert.Equal(t, model.SeverityInfo, item.Severity)
	assert.Equal(t, "2026-08-24T12:00:00Z", item.Timestamp)
	assert.False(t, item.Changed)
	assert.Contains(t, item.Title, "auth")
	assert.Contains(t, item.Summary, "edge-fw")
}

func TestPresentHighThreatQuarantines(t *testing.T) {
	rec := baseRecord()
	rec.ThreatLevel = model.ThreatHigh
	rec.AnomalyScore = 0.7

	item := Present(rec)
	assert.Equal(t, 85, item.ScoreDisplay)
	assert.Equal(t, model.ActionQuarantine, item.ActionTaken)
	assert.Equal(t, model.SeverityHigh, item.Severity)
	assert.InDelta(t, 0.925, item.Confidence, 1e-9)
}

func TestPresentAdversarialHighThreatQuarantines(t *testing.T) {
	rec := baseRecord()
	rec.ThreatLevel = model.ThreatHigh
	rec.AIAdversarialScore = 0.6

	item := Present(rec)
	assert.Equal(t, model.ActionQuarantine, item.ActionTaken)
}

func TestPresentMediumChallenges(t *testing.T) {
	rec := baseRecord()
	rec.ThreatLevel = model.ThreatMedium
	rec.AnomalyScore = 0.66

	item := Present(rec)
	assert.Equal(t, 66, item.ScoreDisplay)
	assert.Equal(t, model.ActionChallenge, item.ActionTaken)
}

func TestPresentClampsScore(t *testing.T) {
	rec := baseRecord()
	rec.AnomalyScore = 3.5

	item := Present(rec)
	assert.Equal(t, 100, item.ScoreDisplay)
	assert.Equal(t, 1.0, item.Confidence)
}

func TestPresentUnknownThreatIsInfo(t *testing.T) {
	rec := baseRecord()
	rec.ThreatLevel = "weird"

	item := Present(rec)
	assert.Equal(t, model.SeverityInfo, item.Severity)
	assert.Equal(t, 5, item.ScoreDisplay)
}

func TestPresentIsPure(t *testing.T) {
	rec := baseRecord()
	rec.ThreatLevel = model.ThreatHigh
	rec.AnomalyScore = 0.9

	first := Present(rec)
	second := Present(rec)
	assert.Equal(t, first, second)
}

func TestChangedTracksDiff(t *testing.T) {
	rec := baseRecord()
	diff, err := json.Marshal(model.DecisionDiff{
		Changes: []string{"score"},
	})
	require.NoError(t, err)
	rec.DecisionDiff = diff
	assert.True(t, Present(rec).Changed)

	noChange, err := json.Marshal(model.DecisionDiff{NoChange: true, Changes: []string{}})
	require.NoError(t, err)
	rec.DecisionDiff = noChange
	assert.False(t, Present(rec).Changed)
}

func TestLiveFilterOnlyActionable(t *testing.T) {
	noise := baseRecord()
	hot := baseRecord()
	hot.ID = 8
	hot.ThreatLevel = model.ThreatHigh
	hot.AnomalyScore = 0.9

	items := PresentAll([]model.DecisionRecord{*noise, *hot})
	filtered := LiveFilter{OnlyActionable: true}.Apply(items)
	require.Len(t, filtered, 1)
	assert.Equal(t, int64(8), filtered[0].ID)
}

func TestLiveFilterOnlyChanged(t *testing.T) {
	unchanged := baseRecord()
	changedRec := baseRecord()
	changedRec.ID = 9
	diff, err := json.Marshal(model.DecisionDiff{Changes: []string{"threat_level"}})
	require.NoError(t, err)
	changedRec.DecisionDiff = diff

	items := PresentAll([]model.DecisionRecord{*unchanged, *changedRec})
	filtered := LiveFilter{OnlyChanged: true}.Apply(items)
	require.Len(t, filtered, 1)
	assert.Equal(t, int64(9), filtered[0].ID)
}

func TestThreatLevelsForSeverity(t *testing.T) {
	assert.Equal(t, []string{"none", "info", ""}, ThreatLevelsForSeverity(model.SeverityInfo))
	assert.Equal(t, []string{"high"}, ThreatLevelsForSeverity(model.SeverityHigh))
}
