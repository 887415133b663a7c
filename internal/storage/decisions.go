package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/frostlabs/frostgate/internal/canonical"
	"github.com/frostlabs/frostgate/internal/model"
)

// prevRow is the subset of a prior decision row needed to compute a diff.
type prevRow struct {
	ThreatLevel    string
	RulesTriggered []string
	Score          int
}

// InsertDecision commits a decision record to the audit log. It computes
// the per-key decision diff against the most recent row with the same
// (tenant_id, source, event_type), links the row into the global hash
// chain, and inserts everything in one transaction.
//
// If a row with the same event_id already exists, the existing record is
// returned with existing=true and no new row is written.
func (db *DB) InsertDecision(ctx context.Context, rec *model.DecisionRecord) (stored *model.DecisionRecord, existing bool, err error) {
	unlock := db.lockKey(rec.TenantID, rec.Source, rec.EventType)
	defer unlock()

	tx, err := db.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("storage: begin insert decision: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var existingID int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM decisions WHERE event_id = ?`, rec.EventID,
	).Scan(&existingID)
	switch {
	case err == nil:
		prior, getErr := db.getDecisionTx(ctx, tx, existingID, true)
		if getErr != nil {
			return nil, false, fmt.Errorf("storage: load existing decision %d: %w", existingID, getErr)
		}
		db.logger.Warn("duplicate event_id, returning existing decision",
			"event_id", rec.EventID, "id", existingID)
		return prior, true, nil
	case errors.Is(err, sql.ErrNoRows):
		// First time we see this event.
	default:
		return nil, false, fmt.Errorf("storage: check duplicate event_id: %w", err)
	}

	prev, err := db.latestForKeyTx(ctx, tx, rec.TenantID, rec.Source, rec.EventType)
	if err != nil {
		return nil, false, fmt.Errorf("storage: lookup diff predecessor: %w", err)
	}
	if prev != nil {
		diff := buildDiff(prev, rec)
		diffJSON, mErr := json.Marshal(diff)
		if mErr != nil {
			return nil, false, fmt.Errorf("storage: marshal decision diff: %w", mErr)
		}
		rec.DecisionDiff = diffJSON
	}

	var prevHash string
	err = tx.QueryRowContext(ctx,
		`SELECT chain_hash FROM decisions ORDER BY id DESC LIMIT 1`,
	).Scan(&prevHash)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("storage: lookup chain head: %w", err)
	}
	rec.PrevHash = prevHash

	chainHash, err := canonical.ChainHash(prevHash, chainProjection(rec))
	if err != nil {
		// A row with an empty chain_hash is recorded rather than
		// refusing the decision; verification reports the break.
		db.logger.Error("chain hash computation failed", "event_id", rec.EventID, "error", err)
		chainHash = ""
	}
	rec.ChainHash = chainHash

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	rulesJSON, err := json.Marshal(nonNil(rec.RulesTriggered))
	if err != nil {
		return nil, false, fmt.Errorf("storage: marshal rules: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO decisions (
			created_at, tenant_id, source, event_id, event_type,
			threat_level, anomaly_score, ai_adversarial_score, pq_fallback,
			rules_triggered_json, decision_diff_json, request_json, response_json,
			prev_hash, chain_hash, latency_ms, explain_summary
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.CreatedAt.Format(time.RFC3339Nano),
		rec.TenantID, rec.Source, rec.EventID, rec.EventType,
		rec.ThreatLevel, rec.AnomalyScore, rec.AIAdversarialScore, boolToInt(rec.PQFallback),
		string(rulesJSON), nullableRaw(rec.DecisionDiff), nullableRaw(rec.RequestJSON), nullableRaw(rec.ResponseJSON),
		rec.PrevHash, rec.ChainHash, rec.LatencyMS, rec.ExplainSummary,
	)
	if err != nil {
		return nil, false, fmt.Errorf("storage: insert decision: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, false, fmt.Errorf("storage: insert decision id: %w", err)
	}
	rec.ID = id

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("storage: commit insert decision: %w", err)
	}
	return rec, false, nil
}

// latestForKeyTx returns the diff-relevant fields of the most recent row
// for the diff key, or nil when the key has no history.
func (db *DB) latestForKeyTx(ctx context.Context, tx *sql.Tx, tenantID, source, eventType string) (*prevRow, error) {
	var (
		threatLevel string
		rulesJSON   string
		respJSON    sql.NullString
	)
	err := tx.QueryRowContext(ctx, `
		SELECT threat_level, rules_triggered_json, response_json
		FROM decisions
		WHERE tenant_id = ? AND source = ? AND event_type = ?
		ORDER BY id DESC LIMIT 1`,
		tenantID, source, eventType,
	).Scan(&threatLevel, &rulesJSON, &respJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	prev := &prevRow{ThreatLevel: threatLevel}
	if err := json.Unmarshal([]byte(rulesJSON), &prev.RulesTriggered); err != nil {
		return nil, fmt.Errorf("decode rules: %w", err)
	}
	if respJSON.Valid {
		prev.Score = scoreFromResponse([]byte(respJSON.String))
	}
	return prev, nil
}

// buildDiff computes the structured delta between the prior row and the
// incoming record.
func buildDiff(prev *prevRow, rec *model.DecisionRecord) model.DecisionDiff {
	curScore := scoreFromResponse(rec.ResponseJSON)
	curRules := nonNil(rec.RulesTriggered)
	prevRules := nonNil(prev.RulesTriggered)

	diff := model.DecisionDiff{
		Score: model.FieldDelta{
			From:  prev.Score,
			To:    curScore,
			Delta: curScore - prev.Score,
		},
		ThreatLevel: model.StringDelta{
			From: prev.ThreatLevel,
			To:   rec.ThreatLevel,
		},
		RulesAdded:   subtract(curRules, prevRules),
		RulesRemoved: subtract(prevRules, curRules),
		Changes:      []string{},
	}

	if diff.Score.Delta != 0 {
		diff.Changes = append(diff.Changes, "score")
	}
	if diff.ThreatLevel.From != diff.ThreatLevel.To {
		diff.Changes = append(diff.Changes, "threat_level")
	}
	if len(diff.RulesAdded) > 0 || len(diff.RulesRemoved) > 0 {
		diff.Changes = append(diff.Changes, "rules_triggered")
	}
	diff.NoChange = len(diff.Changes) == 0
	return diff
}

// chainProjection builds the canonical hash input for a record. Fields
// assigned by the database (id, created_at) and the hashes themselves
// are excluded so the projection is stable before insert.
func chainProjection(rec *model.DecisionRecord) map[string]any {
	return map[string]any{
		"tenant_id":            rec.TenantID,
		"source":               rec.Source,
		"event_id":             rec.EventID,
		"event_type":           rec.EventType,
		"threat_level":         rec.ThreatLevel,
		"anomaly_score":        rec.AnomalyScore,
		"ai_adversarial_score": rec.AIAdversarialScore,
		"pq_fallback":          rec.PQFallback,
		"rules_triggered":      nonNil(rec.RulesTriggered),
		"decision_diff":        rawOrNil(rec.DecisionDiff),
		"request":              rawOrNil(rec.RequestJSON),
		"response":             rawOrNil(rec.ResponseJSON),
		"latency_ms":           rec.LatencyMS,
		"explain_summary":      rec.ExplainSummary,
	}
}

// DecisionFilter narrows ListDecisions. Zero values mean "no filter".
type DecisionFilter struct {
	Limit        int
	SinceID      int64
	TenantID     string
	Source       string
	EventType    string
	ThreatLevels []string
	Query        string
	IncludeRaw   bool
}

const defaultListLimit = 50

// maxListLimit caps a single page of the audit log.
const maxListLimit = 500

// ListDecisions returns decision rows newest first. When SinceID is set,
// only rows with id > SinceID are returned (still newest first). Raw
// request/response snapshots are omitted unless IncludeRaw is set.
func (db *DB) ListDecisions(ctx context.Context, f DecisionFilter) ([]model.DecisionRecord, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	var (
		where []string
		args  []any
	)
	if f.SinceID > 0 {
		where = append(where, "id > ?")
		args = append(args, f.SinceID)
	}
	if f.TenantID != "" {
		where = append(where, "tenant_id = ?")
		args = append(args, f.TenantID)
	}
	if f.Source != "" {
		where = append(where, "source = ?")
		args = append(args, f.Source)
	}
	if f.EventType != "" {
		where = append(where, "event_type = ?")
		args = append(args, f.EventType)
	}
	if len(f.ThreatLevels) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(f.ThreatLevels)), ",")
		where = append(where, "threat_level IN ("+placeholders+")")
		for _, tl := range f.ThreatLevels {
			args = append(args, tl)
		}
	}
	if f.Query != "" {
		pattern := "%" + f.Query + "%"
		where = append(where, "(tenant_id LIKE ? OR source LIKE ? OR event_type LIKE ? OR event_id LIKE ? OR explain_summary LIKE ?)")
		args = append(args, pattern, pattern, pattern, pattern, pattern)
	}

	query := `
		SELECT id, created_at, tenant_id, source, event_id, event_type,
		       threat_level, anomaly_score, ai_adversarial_score, pq_fallback,
		       rules_triggered_json, decision_diff_json, request_json, response_json,
		       prev_hash, chain_hash, latency_ms, explain_summary
		FROM decisions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := db.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: list decisions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.DecisionRecord
	for rows.Next() {
		rec, err := scanDecision(rows, f.IncludeRaw)
		if err != nil {
			return nil, fmt.Errorf("storage: scan decision: %w", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: list decisions: %w", err)
	}
	return out, nil
}

// GetDecision returns a single decision row by id, including the raw
// request/response snapshots. Returns ErrNotFound when no row exists.
func (db *DB) GetDecision(ctx context.Context, id int64) (*model.DecisionRecord, error) {
	return db.getDecisionTx(ctx, nil, id, true)
}

func (db *DB) getDecisionTx(ctx context.Context, tx *sql.Tx, id int64, includeRaw bool) (*model.DecisionRecord, error) {
	query := `
		SELECT id, created_at, tenant_id, source, event_id, event_type,
		       threat_level, anomaly_score, ai_adversarial_score, pq_fallback,
		       rules_triggered_json, decision_diff_json, request_json, response_json,
		       prev_hash, chain_hash, latency_ms, explain_summary
		FROM decisions WHERE id = ?`

	var row *sql.Row
	if tx != nil {
		row = tx.QueryRowContext(ctx, query, id)
	} else {
		row = db.sqlDB.QueryRowContext(ctx, query, id)
	}

	rec, err := scanDecision(row, includeRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("storage: get decision %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: get decision %d: %w", id, err)
	}
	return rec, nil
}

// LatestDecisionID returns the highest decision id, or 0 for an empty log.
func (db *DB) LatestDecisionID(ctx context.Context) (int64, error) {
	var id int64
	err := db.sqlDB.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(id), 0) FROM decisions`,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("storage: latest decision id: %w", err)
	}
	return id, nil
}

// CountDecisions returns the total number of audit rows.
func (db *DB) CountDecisions(ctx context.Context) (int64, error) {
	var n int64
	err := db.sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM decisions`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("storage: count decisions: %w", err)
	}
	return n, nil
}

// ChainReport is the result of a full audit-chain verification walk.
type ChainReport struct {
	Checked   int64   `json:"checked"`
	Intact    bool    `json:"intact"`
	BrokenIDs []int64 `json:"broken_ids,omitempty"`
}

// VerifyChain recomputes the hash chain over every audit row in id order
// and reports rows whose stored linkage does not match.
func (db *DB) VerifyChain(ctx context.Context) (*ChainReport, error) {
	rows, err := db.sqlDB.QueryContext(ctx, `
		SELECT id, created_at, tenant_id, source, event_id, event_type,
		       threat_level, anomaly_score, ai_adversarial_score, pq_fallback,
		       rules_triggered_json, decision_diff_json, request_json, response_json,
		       prev_hash, chain_hash, latency_ms, explain_summary
		FROM decisions ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("storage: verify chain: %w", err)
	}
	defer func() { _ = rows.Close() }()

	report := &ChainReport{Intact: true}
	expectedPrev := ""
	for rows.Next() {
		rec, err := scanDecision(rows, true)
		if err != nil {
			return nil, fmt.Errorf("storage: verify chain scan: %w", err)
		}
		report.Checked++

		want, hashErr := canonical.ChainHash(expectedPrev, chainProjection(rec))
		broken := hashErr != nil ||
			rec.PrevHash != expectedPrev ||
			rec.ChainHash == "" ||
			rec.ChainHash != want
		if broken {
			report.Intact = false
			report.BrokenIDs = append(report.BrokenIDs, rec.ID)
		}
		expectedPrev = rec.ChainHash
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: verify chain: %w", err)
	}
	return report, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDecision(s rowScanner, includeRaw bool) (*model.DecisionRecord, error) {
	var (
		rec       model.DecisionRecord
		createdAt string
		pqInt     int
		rulesJSON string
		diffJSON  sql.NullString
		reqJSON   sql.NullString
		respJSON  sql.NullString
	)
	err := s.Scan(
		&rec.ID, &createdAt, &rec.TenantID, &rec.Source, &rec.EventID, &rec.EventType,
		&rec.ThreatLevel, &rec.AnomalyScore, &rec.AIAdversarialScore, &pqInt,
		&rulesJSON, &diffJSON, &reqJSON, &respJSON,
		&rec.PrevHash, &rec.ChainHash, &rec.LatencyMS, &rec.ExplainSummary,
	)
	if err != nil {
		return nil, err
	}

	rec.CreatedAt = parseStoredTime(createdAt)
	rec.PQFallback = pqInt != 0
	if err := json.Unmarshal([]byte(rulesJSON), &rec.RulesTriggered); err != nil {
		return nil, fmt.Errorf("decode rules: %w", err)
	}
	rec.RulesTriggered = nonNil(rec.RulesTriggered)
	if diffJSON.Valid {
		rec.DecisionDiff = json.RawMessage(diffJSON.String)
	}
	if respJSON.Valid {
		rec.ResponseJSON = json.RawMessage(respJSON.String)
	}
	if reqJSON.Valid {
		rec.RequestJSON = json.RawMessage(reqJSON.String)
	}
	if !includeRaw {
		rec.RequestJSON = nil
		rec.ResponseJSON = nil
	}
	return &rec, nil
}

func parseStoredTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// scoreFromResponse pulls the numeric score out of a stored decision
// response snapshot. Missing or malformed snapshots yield 0.
func scoreFromResponse(raw []byte) int {
	if len(raw) == 0 {
		return 0
	}
	var partial struct {
		Score int `json:"score"`
	}
	if err := json.Unmarshal(raw, &partial); err != nil {
		return 0
	}
	return partial.Score
}

// subtract returns the elements of a that are not in b, preserving order.
func subtract(a, b []string) []string {
	out := []string{}
	for _, v := range a {
		if !slices.Contains(b, v) {
			out = append(out, v)
		}
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func rawOrNil(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}

func nullableRaw(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
