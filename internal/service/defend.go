// Package service orchestrates the per-event decision pipeline:
// normalize, evaluate rules, apply doctrine, assemble the decision, and
// persist the audit row.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/frostlabs/frostgate/internal/canonical"
	"github.com/frostlabs/frostgate/internal/doctrine"
	"github.com/frostlabs/frostgate/internal/model"
	"github.com/frostlabs/frostgate/internal/normalize"
	"github.com/frostlabs/frostgate/internal/rules"
	"github.com/frostlabs/frostgate/internal/storage"
)

// Store is the persistence surface the pipeline needs.
type Store interface {
	InsertDecision(ctx context.Context, rec *model.DecisionRecord) (*model.DecisionRecord, bool, error)
}

// Defender runs the decision pipeline for POST /defend.
type Defender struct {
	store      Store
	logger     *slog.Logger
	clockStale time.Duration
	now        func() time.Time

	persistErrors metric.Int64Counter
}

// NewDefender wires the pipeline. store may be nil in tests that only
// exercise assembly; persistence is then skipped.
func NewDefender(store Store, logger *slog.Logger, clockStale time.Duration) *Defender {
	d := &Defender{
		store:      store,
		logger:     logger,
		clockStale: clockStale,
		now:        func() time.Time { return time.Now().UTC() },
	}
	meter := otel.GetMeterProvider().Meter("frostgate/service")
	if counter, err := meter.Int64Counter("frostgate.persist.errors"); err == nil {
		d.persistErrors = counter
	}
	return d
}

// WithNow overrides the clock, for tests.
func (d *Defender) WithNow(now func() time.Time) *Defender {
	d.now = now
	return d
}

// Defend evaluates one telemetry event and returns the decision. The
// audit row is written best-effort: a persistence failure is logged and
// counted but never fails the response.
func (d *Defender) Defend(ctx context.Context, rawBody []byte, raw map[string]any) (*model.Decision, error) {
	start := d.now()

	eventID, err := canonical.EventID(rawBody)
	if err != nil {
		return nil, fmt.Errorf("service: compute event id: %w", err)
	}

	ev := normalize.Event(ctx, raw, start)
	res := rules.Evaluate(ev)
	gate := doctrine.Apply(ev, res.Mitigations)

	decision := d.assemble(eventID, start, ev, res, gate)
	d.persist(ctx, rawBody, raw, ev, decision, start)
	return decision, nil
}

// assemble builds the response contract from the pipeline stages.
func (d *Defender) assemble(eventID string, now time.Time, ev model.CanonicalEvent, res rules.Result, gate doctrine.Outcome) *model.Decision {
	mitigations := gate.Mitigations
	if mitigations == nil {
		mitigations = []model.MitigationAction{}
	}

	summary := explanationBrief(res.RulesTriggered, ev)
	dec := &model.Decision{
		EventID:        eventID,
		ThreatLevel:    res.ThreatLevel,
		Score:          res.Score,
		AnomalyScore:   res.AnomalyScore,
		RulesTriggered: res.RulesTriggered,
		Mitigations:    mitigations,
		Explain: model.Explain{
			Summary:        summary,
			RulesTriggered: res.RulesTriggered,
			AnomalyScore:   res.AnomalyScore,
			Score:          res.Score,
			TieD:           gate.TieD,
		},
		TieD:              gate.TieD,
		ROEApplied:        gate.ROEApplied,
		AORequired:        gate.AORequired,
		DisruptionLimited: gate.DisruptionLimited,
		GatingDecision:    gate.GatingDecision,
		ClockDriftMS:      clockDrift(now, ev.Timestamp, d.clockStale),
		ExplanationBrief:  summary,
	}
	return dec
}

// persist writes the audit row. Best effort only.
func (d *Defender) persist(ctx context.Context, rawBody []byte, raw map[string]any, ev model.CanonicalEvent, dec *model.Decision, start time.Time) {
	if d.store == nil {
		return
	}

	reqJSON, err := canonical.Bytes(rawBody)
	if err != nil {
		reqJSON = rawBody
	}
	respJSON, err := json.Marshal(dec)
	if err != nil {
		d.warnPersist(ctx, dec.EventID, fmt.Errorf("marshal response: %w", err))
		return
	}

	rec := &model.DecisionRecord{
		CreatedAt:          d.now(),
		TenantID:           ev.TenantID,
		Source:             ev.Source,
		EventID:            dec.EventID,
		EventType:          ev.EventType,
		ThreatLevel:        dec.ThreatLevel,
		AnomalyScore:       dec.AnomalyScore,
		AIAdversarialScore: optFloat(raw, ev.Payload, "ai_adversarial_score"),
		PQFallback:         optBool(raw, ev.Payload, "pq_fallback"),
		RulesTriggered:     dec.RulesTriggered,
		RequestJSON:        reqJSON,
		ResponseJSON:       respJSON,
		LatencyMS:          d.now().Sub(start).Milliseconds(),
		ExplainSummary:     dec.ExplanationBrief,
	}

	stored, existing, err := d.store.InsertDecision(ctx, rec)
	if err != nil {
		d.warnPersist(ctx, dec.EventID, err)
		return
	}
	if existing {
		d.logger.Debug("decision already recorded", "event_id", dec.EventID, "id", stored.ID)
	}
}

func (d *Defender) warnPersist(ctx context.Context, eventID string, err error) {
	d.logger.Warn("decision persistence failed", "event_id", eventID, "error", err)
	if d.persistErrors != nil {
		d.persistErrors.Add(ctx, 1)
	}
}

// clockDrift returns |now - ts| in milliseconds, or 0 when the event is
// older than the staleness window.
func clockDrift(now, ts time.Time, stale time.Duration) int64 {
	age := now.Sub(ts)
	if age < 0 {
		age = -age
	}
	if age > stale {
		return 0
	}
	return age.Milliseconds()
}

// explanationBrief renders the one-line rationale. Never empty.
func explanationBrief(triggered []string, ev model.CanonicalEvent) string {
	primary := ""
	for _, r := range triggered {
		if r != rules.RuleDefaultAllow {
			primary = r
			break
		}
	}
	if primary == "" {
		return "No threat rules triggered for this event."
	}

	switch primary {
	case rules.RuleSSHBruteforce:
		return fmt.Sprintf("Brute-force authentication pattern detected: %d failed attempts from %s.",
			ev.FailedAuths, ev.SrcIP)
	default:
		return fmt.Sprintf("Suspicious behavior matched rule '%s'.", primary)
	}
}

// optFloat reads an optional numeric field from the request root, then
// the payload.
func optFloat(root, payload map[string]any, key string) float64 {
	for _, m := range []map[string]any{root, payload} {
		if m == nil {
			continue
		}
		switch v := m[key].(type) {
		case float64:
			return v
		case int:
			return float64(v)
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return f
			}
		}
	}
	return 0
}

// optBool reads an optional boolean field from the request root, then
// the payload.
func optBool(root, payload map[string]any, key string) bool {
	for _, m := range []map[string]any{root, payload} {
		if m == nil {
			continue
		}
		switch v := m[key].(type) {
		case bool:
			return v
		case string:
			return strings.EqualFold(v, "true")
		}
	}
	return false
}

var _ Store = (*storage.DB)(nil)
