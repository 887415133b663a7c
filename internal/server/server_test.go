package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frostlabs/frostgate/internal/auth"
	"github.com/frostlabs/frostgate/internal/config"
	"github.com/frostlabs/frostgate/internal/model"
	"github.com/frostlabs/frostgate/internal/ratelimit"
	"github.com/frostlabs/frostgate/internal/seed"
	"github.com/frostlabs/frostgate/internal/service"
	"github.com/frostlabs/frostgate/internal/storage"
	"github.com/frostlabs/frostgate/migrations"
)

const testAPIKey = "test-global-key"

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		Port:           0,
		ReadTimeout:    5 * time.Second,
		WriteTimeout:   5 * time.Second,
		MaxBodyBytes:   1 << 20,
		Service:        "frostgate-core",
		Env:            "test",
		AuthEnabled:    false,
		APIKey:         testAPIKey,
		DBPath:         filepath.Join(t.TempDir(), "frostgate_test.db"),
		DBPoolSize:     2,
		ClockStaleMS:   300000,
		RateLimitRPS:   1000,
		RateLimitBurst: 1000,
	}
}

func newTestServer(t *testing.T, mutate func(*config.Config)) (*httptest.Server, *storage.DB) {
	t.Helper()
	cfg := testConfig(t)
	if mutate != nil {
		mutate(&cfg)
	}

	logger := slog.New(slog.DiscardHandler)
	ctx := context.Background()

	db, err := storage.Open(ctx, cfg.DBPath, cfg.DBPoolSize, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.RunMigrations(ctx, migrations.FS))

	defender := service.NewDefender(db, logger, time.Duration(cfg.ClockStaleMS)*time.Millisecond)
	limiter := ratelimit.NewMemoryLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	t.Cleanup(func() { _ = limiter.Close() })

	srv := New(ServerConfig{
		Config:   cfg,
		DB:       db,
		Defender: defender,
		Seeder:   seed.New(defender, logger),
		Limiter:  limiter,
		Logger:   logger,
		Version:  "test",
	})

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, db
}

func doJSON(t *testing.T, method, url string, body any, headers map[string]string) (*http.Response, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func TestHealthEndpoints(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/health", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "frostgate-core", body["service"])
	assert.Equal(t, "test", body["env"])
	assert.Equal(t, false, body["auth_enabled"])

	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/health/live", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/health/ready", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDefendBruteforceEndToEnd(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/defend", map[string]any{
		"source":     "pytest",
		"event_type": "auth.bruteforce",
		"payload":    map[string]any{"src_ip": "1.2.3.4", "failed_auths": 7},
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, "high", body["threat_level"])
	assert.Contains(t, body["rules_triggered"], "rule:ssh_bruteforce")
	mitigations := body["mitigations"].([]any)
	require.Len(t, mitigations, 1)
	m := mitigations[0].(map[string]any)
	assert.Equal(t, "block_ip", m["action"])
	assert.Equal(t, "1.2.3.4", m["target"])
	assert.NotEmpty(t, body["explanation_brief"])
	assert.NotNil(t, body["tie_d"])
	assert.NotNil(t, body["explain"])

	resp, list := doJSON(t, http.MethodGet, ts.URL+"/decisions", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), list["count"])
}

func TestDefendDefaultAllow(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/defend", map[string]any{
		"source":     "pytest",
		"event_type": "heartbeat",
		"payload":    map[string]any{},
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, "none", body["threat_level"])
	assert.Equal(t, []any{"rule:default_allow"}, body["rules_triggered"])
	assert.Empty(t, body["mitigations"])
	assert.Equal(t, "No threat rules triggered for this event.", body["explanation_brief"])
}

func TestDefendGuardianSecret(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/defend", map[string]any{
		"source":         "pytest",
		"event_type":     "auth.bruteforce",
		"classification": "SECRET",
		"persona":        "guardian",
		"payload":        map[string]any{"src_ip": "1.2.3.4", "failed_auths": 7},
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, true, body["roe_applied"])
	assert.Equal(t, true, body["ao_required"])
	assert.Equal(t, "require_approval", body["gating_decision"])
	assert.Len(t, body["mitigations"], 1)

	tieD := body["tie_d"].(map[string]any)
	assert.GreaterOrEqual(t, tieD["service_impact"].(float64), 0.35)
}

func TestDefendDiffOnSecondCall(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	for _, failed := range []int{1, 10} {
		resp, _ := doJSON(t, http.MethodPost, ts.URL+"/defend", map[string]any{
			"source":     "pytest",
			"event_type": "auth.bruteforce",
			"payload":    map[string]any{"src_ip": "1.2.3.4", "failed_auths": failed},
		}, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp, list := doJSON(t, http.MethodGet, ts.URL+"/decisions?limit=1", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	items := list["items"].([]any)
	require.Len(t, items, 1)

	latest := items[0].(map[string]any)
	diffRaw, ok := latest["decision_diff_json"]
	require.True(t, ok, "second row must carry a diff")
	require.NotNil(t, diffRaw)

	diffJSON, err := json.Marshal(diffRaw)
	require.NoError(t, err)
	var diff model.DecisionDiff
	require.NoError(t, json.Unmarshal(diffJSON, &diff))
	assert.NotEmpty(t, diff.Changes)
	assert.Contains(t, []string{"score", "threat_level", "rules_triggered"}, diff.Changes[0])
}

func TestDuplicatePostNeverErrors(t *testing.T) {
	ts, db := newTestServer(t, nil)
	body := map[string]any{
		"source":     "pytest",
		"event_type": "heartbeat",
	}

	var first, second map[string]any
	resp, first := doJSON(t, http.MethodPost, ts.URL+"/defend", body, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, second = doJSON(t, http.MethodPost, ts.URL+"/defend", body, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, first["event_id"], second["event_id"])

	n, err := db.CountDecisions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestDefendRejectsInvalidJSON(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/defend", strings.NewReader("{nope"))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Invalid JSON body", body["detail"])
}

func TestGlobalAuthRequiredWhenEnabled(t *testing.T) {
	ts, _ := newTestServer(t, func(c *config.Config) { c.AuthEnabled = true })

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/status", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Invalid or missing API key", body["detail"])

	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/status", nil, map[string]string{"X-API-Key": testAPIKey})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Health stays open.
	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/health", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestTenantPathOverridesGlobalAuth(t *testing.T) {
	ts, db := newTestServer(t, nil) // global auth disabled
	ctx := context.Background()

	require.NoError(t, db.UpsertTenant(ctx, &model.Tenant{
		ID: "acme", Name: "Acme", APIKey: "k-acme", Status: model.TenantStatusActive,
	}))
	require.NoError(t, db.UpsertTenant(ctx, &model.Tenant{
		ID: "globex", Name: "Globex", APIKey: "k-globex", Status: "suspended",
	}))

	// Revoked tenant fails even with the right key and global auth off.
	resp, body := doJSON(t, http.MethodGet, ts.URL+"/status", nil, map[string]string{
		"X-Tenant-Id": "globex", "X-API-Key": "k-globex",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Invalid or missing API key", body["detail"])

	// Wrong key fails.
	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/status", nil, map[string]string{
		"X-Tenant-Id": "acme", "X-API-Key": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Unknown tenant fails.
	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/status", nil, map[string]string{
		"X-Tenant-Id": "nobody", "X-API-Key": "k",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Active tenant with matching key passes.
	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/status", nil, map[string]string{
		"X-Tenant-Id": "acme", "X-API-Key": "k-acme",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestScopedKeyEnforcesScopes(t *testing.T) {
	ts, db := newTestServer(t, func(c *config.Config) { c.AuthEnabled = true })
	ctx := context.Background()

	_, err := db.CreateAPIKey(ctx, &model.APIKey{
		Name:     "feed-reader",
		KeyHash:  auth.HashSecret("s3cret"),
		Scopes:   []string{model.ScopeFeedRead},
		TenantID: "acme",
	})
	require.NoError(t, err)

	scopedKey := map[string]string{"X-API-Key": "fg.reader.s3cret"}

	resp, _ := doJSON(t, http.MethodGet, ts.URL+"/feed/live", nil, scopedKey)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/defend", map[string]any{"event_type": "heartbeat"}, scopedKey)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Contains(t, body["detail"], "defend:write")

	// Garbage scoped key is a 401.
	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/feed/live", nil, map[string]string{"X-API-Key": "fg.reader.wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// The global key bypasses scopes entirely.
	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/defend", map[string]any{"event_type": "heartbeat"},
		map[string]string{"X-API-Key": testAPIKey})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRateLimitOnDefend(t *testing.T) {
	ts, _ := newTestServer(t, func(c *config.Config) {
		c.RateLimitRPS = 0.001
		c.RateLimitBurst = 1
	})

	body := map[string]any{"event_type": "heartbeat", "payload": map[string]any{"seq": 1}}
	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/defend", body, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, errBody := doJSON(t, http.MethodPost, ts.URL+"/defend", body, nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "Rate limit exceeded", errBody["detail"])
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))

	// Reads are not rate limited.
	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/feed/live", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGetDecisionByID(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/defend", map[string]any{"event_type": "heartbeat"}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, rec := doJSON(t, http.MethodGet, ts.URL+"/decisions/1", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), rec["id"])
	assert.NotNil(t, rec["response_json"])

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/decisions/999", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Decision not found", body["detail"])

	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/decisions/abc", nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestFeedLiveFilters(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	// One noise and one actionable row.
	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/defend", map[string]any{
		"source": "pytest", "event_type": "heartbeat",
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/defend", map[string]any{
		"source": "pytest", "event_type": "auth",
		"payload": map[string]any{"src_ip": "9.9.9.9", "failed_auths": 8},
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, all := doJSON(t, http.MethodGet, ts.URL+"/feed/live", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), all["count"])

	resp, actionable := doJSON(t, http.MethodGet, ts.URL+"/feed/live?only_actionable=1", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, float64(1), actionable["count"])
	item := actionable["items"].([]any)[0].(map[string]any)
	assert.Equal(t, "high", item["threat_level"])
	assert.Equal(t, "quarantine", item["action_taken"])

	resp, info := doJSON(t, http.MethodGet, ts.URL+"/feed/live?severity=info", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), info["count"])
}

func TestSSEHandshakeAndFrames(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	// Seed one row so the first poll has something to emit.
	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/defend", map[string]any{
		"source": "pytest", "event_type": "heartbeat",
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// HEAD is headers-only.
	headReq, err := http.NewRequest(http.MethodHead, ts.URL+"/feed/stream", nil)
	require.NoError(t, err)
	headResp, err := http.DefaultClient.Do(headReq)
	require.NoError(t, err)
	_ = headResp.Body.Close()
	assert.Equal(t, http.StatusOK, headResp.StatusCode)
	assert.Equal(t, "text/event-stream", headResp.Header.Get("Content-Type"))
	assert.Equal(t, "no-store, max-age=0", headResp.Header.Get("Cache-Control"))
	assert.Equal(t, "nosniff", headResp.Header.Get("X-Content-Type-Options"))

	// GET streams at least one items frame, then terminates on disconnect.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/feed/stream?interval=0.2", nil)
	require.NoError(t, err)
	streamResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = streamResp.Body.Close() }()
	assert.Equal(t, "text/event-stream", streamResp.Header.Get("Content-Type"))

	scanner := bufio.NewScanner(streamResp.Body)
	var sawRetry, sawItems, sawData bool
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "retry: 1000") {
			sawRetry = true
		}
		if line == "event: items" {
			sawItems = true
		}
		if strings.HasPrefix(line, "data: ") {
			sawData = true
			cancel()
			break
		}
	}
	assert.True(t, sawRetry, "stream opens with a retry hint")
	assert.True(t, sawItems, "stream emits an items event")
	assert.True(t, sawData, "stream emits a data frame")
}

func TestDevSeedGating(t *testing.T) {
	// Disabled: the route does not exist.
	ts, _ := newTestServer(t, nil)
	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/dev/seed", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Enabled: dataset lands and satisfies the demo invariants.
	ts2, _ := newTestServer(t, func(c *config.Config) { c.DevEventsEnabled = true })
	resp, res := doJSON(t, http.MethodPost, ts2.URL+"/dev/seed", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(5), res["inserted"])

	resp, feedBody := doJSON(t, http.MethodGet, ts2.URL+"/feed/live", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	items := feedBody["items"].([]any)
	require.NotEmpty(t, items)

	var noise, actionable, actionableChanged bool
	for _, it := range items {
		item := it.(map[string]any)
		assert.Equal(t, "dev_seed", item["source"])
		sev := item["severity"].(string)
		action := item["action_taken"].(string)
		if (sev == "info" || sev == "low") && action == "log_only" {
			noise = true
		}
		if (sev == "high" || sev == "critical") && action != "log_only" {
			actionable = true
			if item["changed"] == true {
				actionableChanged = true
			}
		}
	}
	assert.True(t, noise, "dataset contains a noise row")
	assert.True(t, actionable, "dataset contains an actionable row")
	assert.True(t, actionableChanged, "an actionable row carries a diff")

	// Every stored row with a threat verdict must carry a decision diff.
	resp, decisions := doJSON(t, http.MethodGet, ts2.URL+"/decisions", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	for _, it := range decisions["items"].([]any) {
		row := it.(map[string]any)
		level := row["threat_level"].(string)
		if level == "high" || level == "critical" {
			assert.NotNil(t, row["decision_diff_json"],
				"row %v threat %s has no decision diff", row["id"], level)
		}
	}

	resp, emit := doJSON(t, http.MethodPost, ts2.URL+"/dev/emit",
		map[string]any{"variant": "noise", "count": 2}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), emit["inserted"])
}

func TestFeatureFlaggedModules(t *testing.T) {
	// All off: nothing mounted.
	ts, _ := newTestServer(t, nil)
	resp, _ := doJSON(t, http.MethodGet, ts.URL+"/forensics/chain/verify", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/roe/policies", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	ts2, _ := newTestServer(t, func(c *config.Config) {
		c.ForensicsEnabled = true
		c.RingRouterEnabled = true
		c.ROEEngineEnabled = true
		c.GovernanceEnabled = true
		c.MissionEnvelopeEnabled = true
	})

	resp, _ = doJSON(t, http.MethodPost, ts2.URL+"/defend", map[string]any{"event_type": "heartbeat"}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, report := doJSON(t, http.MethodGet, ts2.URL+"/forensics/chain/verify", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, report["intact"])
	assert.Equal(t, float64(1), report["checked"])

	resp, ring := doJSON(t, http.MethodGet, ts2.URL+"/ring/route?threat_level=high", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(3), ring["ring"])

	resp, roe := doJSON(t, http.MethodGet, ts2.URL+"/roe/policies", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, roe["policies"])

	resp, _ = doJSON(t, http.MethodPost, ts2.URL+"/governance/tenants",
		map[string]any{"id": "acme", "name": "Acme", "api_key": "k", "status": "active"}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, tenants := doJSON(t, http.MethodGet, ts2.URL+"/governance/tenants", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, tenants["tenants"], 1)

	resp, _ = doJSON(t, http.MethodPost, ts2.URL+"/mission/envelope",
		map[string]any{"objective": "containment"}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, envelope := doJSON(t, http.MethodGet, ts2.URL+"/mission/envelope", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "containment", envelope["envelope"].(map[string]any)["objective"])
}

func TestBodySizeLimit(t *testing.T) {
	ts, _ := newTestServer(t, func(c *config.Config) { c.MaxBodyBytes = 64 })

	big := map[string]any{"event_type": "heartbeat", "blob": strings.Repeat("x", 256)}
	resp, body := doJSON(t, http.MethodPost, ts.URL+"/defend", big, nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	assert.Equal(t, "Request body too large", body["detail"])
}

func TestStatusMetadata(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/v1/status", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "frostgate-core", body["service"])
	assert.Equal(t, "test", body["version"])
	assert.NotNil(t, body["features"])
}
