// Package normalize converts heterogeneous telemetry request shapes into
// the canonical event record consumed by the rule engine.
//
// The normalizer is deliberately permissive: extra fields pass through,
// legacy aliases are resolved, and nothing in here ever fails a request.
package normalize

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/frostlabs/frostgate/internal/model"
)

var meter = otel.GetMeterProvider().Meter("frostgate/normalize")

// Alias resolution order for legacy field names.
var (
	srcIPKeys       = []string{"src_ip", "source_ip", "source_ip_addr", "ip", "remote_ip"}
	failedAuthsKeys = []string{"failed_auths", "fail_count", "failures", "attempts", "failed_attempts"}
)

// Event builds a CanonicalEvent from a decoded request body. The input
// map is not modified. now supplies the fallback timestamp.
func Event(ctx context.Context, raw map[string]any, now time.Time) model.CanonicalEvent {
	payload := asMap(raw["payload"])
	event := asMap(raw["event"])

	// One container mirrors the other; both default to empty.
	switch {
	case len(payload) == 0 && len(event) > 0:
		payload = event
	case len(event) == 0 && len(payload) > 0:
		event = payload
	case payload == nil:
		payload = map[string]any{}
	}

	ev := model.CanonicalEvent{
		Source:         asString(raw["source"]),
		TenantID:       asString(raw["tenant_id"]),
		Classification: asString(raw["classification"]),
		Persona:        asString(raw["persona"]),
		Payload:        payload,
	}

	ev.Timestamp = parseTimestamp(ctx, asString(raw["timestamp"]), now)

	// event_type: root, then payload, then event container, then "unknown".
	ev.EventType = firstNonEmpty(
		asString(raw["event_type"]),
		asString(payload["event_type"]),
		asString(event["event_type"]),
	)
	if ev.EventType == "" {
		ev.EventType = "unknown"
	}

	ev.SrcIP = resolveAlias(raw, payload, srcIPKeys, asString)
	ev.FailedAuths = resolveAlias(raw, payload, failedAuthsKeys, asInt)

	return ev
}

// parseTimestamp accepts RFC3339 (including a trailing Z). Absent or
// unparseable timestamps become now UTC; a counter makes malformed
// clients visible without failing them.
func parseTimestamp(ctx context.Context, s string, now time.Time) time.Time {
	if s == "" {
		return now.UTC()
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC()
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC()
	}
	if counter, err := meter.Int64Counter("frostgate.normalize.bad_timestamps"); err == nil {
		counter.Add(ctx, 1)
	}
	return now.UTC()
}

// resolveAlias returns the first key present at the root, then in the
// payload, converted by conv; the zero value if none match.
func resolveAlias[T comparable](root, payload map[string]any, keys []string, conv func(any) T) T {
	var zero T
	for _, k := range keys {
		if v, ok := root[k]; ok {
			if out := conv(v); out != zero {
				return out
			}
		}
	}
	for _, k := range keys {
		if v, ok := payload[k]; ok {
			if out := conv(v); out != zero {
				return out
			}
		}
	}
	return zero
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func asMap(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return nil
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case fmt.Stringer:
		return s.String()
	default:
		return ""
	}
}

// asInt coerces JSON numbers and numeric strings to int, defaulting to 0.
func asInt(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return i
		}
	}
	return 0
}
