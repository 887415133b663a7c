// Package seed emits deterministic synthetic telemetry through the
// decision pipeline. Used by demos and end-to-end tests; mounted only
// when FG_DEV_EVENTS_ENABLED is set.
package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/frostlabs/frostgate/internal/service"
)

// Source marks every seeded row so real telemetry is never confused
// with synthetic data.
const Source = "dev_seed"

// Seeder drives the pipeline with canned events.
type Seeder struct {
	defender *service.Defender
	logger   *slog.Logger
}

// New creates a Seeder.
func New(defender *service.Defender, logger *slog.Logger) *Seeder {
	return &Seeder{defender: defender, logger: logger}
}

// dataset is the fixed seed corpus. The heartbeat and process rows are
// noise. The auth rows escalate under the same (tenant, source,
// event_type) key, opening with a benign login so every later row with
// a threat verdict has a predecessor and therefore a decision diff.
func dataset() []map[string]any {
	return []map[string]any{
		{
			"source":     Source,
			"tenant_id":  "dev",
			"event_type": "heartbeat",
			"payload":    map[string]any{"seq": 1},
		},
		{
			"source":     Source,
			"tenant_id":  "dev",
			"event_type": "process_start",
			"payload":    map[string]any{"process": "frostgated", "seq": 2},
		},
		{
			"source":     Source,
			"tenant_id":  "dev",
			"event_type": "auth",
			"payload":    map[string]any{"src_ip": "203.0.113.7", "failed_auths": 1, "seq": 3},
		},
		{
			"source":     Source,
			"tenant_id":  "dev",
			"event_type": "auth",
			"payload":    map[string]any{"src_ip": "203.0.113.7", "failed_auths": 6, "seq": 4},
		},
		{
			"source":     Source,
			"tenant_id":  "dev",
			"event_type": "auth",
			"payload":    map[string]any{"src_ip": "203.0.113.7", "failed_auths": 11, "seq": 5},
		},
	}
}

// Result summarizes one seed run.
type Result struct {
	Inserted int      `json:"inserted"`
	EventIDs []string `json:"event_ids"`
}

// Seed pushes the full dataset through the pipeline. Bodies are fixed,
// so re-running is idempotent: duplicate event IDs resolve to the
// already-stored rows.
func (s *Seeder) Seed(ctx context.Context) (*Result, error) {
	return s.run(ctx, dataset())
}

// Emit pushes count variant events through the pipeline. Recognized
// variants are "noise" and "bruteforce".
func (s *Seeder) Emit(ctx context.Context, variant string, count int) (*Result, error) {
	if count <= 0 {
		count = 1
	}

	events := make([]map[string]any, 0, count)
	for i := 0; i < count; i++ {
		switch variant {
		case "bruteforce":
			events = append(events, map[string]any{
				"source":     Source,
				"tenant_id":  "dev",
				"event_type": "auth",
				"payload": map[string]any{
					"src_ip":       "203.0.113.7",
					"failed_auths": 6 + i,
					"seq":          i,
				},
			})
		case "noise", "":
			events = append(events, map[string]any{
				"source":     Source,
				"tenant_id":  "dev",
				"event_type": "heartbeat",
				"payload":    map[string]any{"seq": i},
			})
		default:
			return nil, fmt.Errorf("seed: unknown variant %q", variant)
		}
	}
	return s.run(ctx, events)
}

func (s *Seeder) run(ctx context.Context, events []map[string]any) (*Result, error) {
	res := &Result{}
	for _, ev := range events {
		body, err := json.Marshal(ev)
		if err != nil {
			return nil, fmt.Errorf("seed: marshal event: %w", err)
		}

		dec, err := s.defender.Defend(ctx, body, ev)
		if err != nil {
			return nil, fmt.Errorf("seed: defend: %w", err)
		}
		res.Inserted++
		res.EventIDs = append(res.EventIDs, dec.EventID)
		s.logger.Debug("seeded event",
			"event_id", dec.EventID,
			"event_type", ev["event_type"],
			"threat_level", dec.ThreatLevel,
		)
	}
	return res, nil
}
