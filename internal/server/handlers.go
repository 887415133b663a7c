package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/frostlabs/frostgate/internal/config"
	"github.com/frostlabs/frostgate/internal/feed"
	"github.com/frostlabs/frostgate/internal/model"
	"github.com/frostlabs/frostgate/internal/seed"
	"github.com/frostlabs/frostgate/internal/service"
	"github.com/frostlabs/frostgate/internal/storage"
)

// Handlers holds all HTTP handlers and their dependencies.
type Handlers struct {
	db       *storage.DB
	defender *service.Defender
	seeder   *seed.Seeder
	cfg      config.Config
	logger   *slog.Logger
	version  string
}

// HandlersDeps holds dependencies for creating Handlers.
type HandlersDeps struct {
	DB       *storage.DB
	Defender *service.Defender
	Seeder   *seed.Seeder
	Config   config.Config
	Logger   *slog.Logger
	Version  string
}

// NewHandlers creates the handler set.
func NewHandlers(deps HandlersDeps) *Handlers {
	return &Handlers{
		db:       deps.DB,
		defender: deps.Defender,
		seeder:   deps.Seeder,
		cfg:      deps.Config,
		logger:   deps.Logger,
		version:  deps.Version,
	}
}

// HandleHealth reports the service identity and auth mode.
func (h *Handlers) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"service":      h.cfg.Service,
		"env":          h.cfg.Env,
		"auth_enabled": h.cfg.AuthEnabled,
	})
}

// HandleHealthLive always reports 200; the process is up.
func (h *Handlers) HandleHealthLive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "live"})
}

// HandleHealthReady reports 200 only when the database file exists and
// answers queries.
func (h *Handlers) HandleHealthReady(w http.ResponseWriter, r *http.Request) {
	if _, err := os.Stat(h.db.Path()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "DB missing: "+h.db.Path())
		return
	}
	if err := h.db.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "DB not queryable: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// HandleStatus returns service metadata for authenticated callers.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	count, err := h.db.CountDecisions(r.Context())
	if err != nil {
		h.logger.Error("count decisions failed", "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"service":      h.cfg.Service,
		"env":          h.cfg.Env,
		"version":      h.version,
		"auth_enabled": h.cfg.AuthEnabled,
		"db_path":      h.db.Path(),
		"decisions":    count,
		"features": map[string]bool{
			"dev_events":       h.cfg.DevEventsEnabled,
			"mission_envelope": h.cfg.MissionEnvelopeEnabled,
			"ring_router":      h.cfg.RingRouterEnabled,
			"roe_engine":       h.cfg.ROEEngineEnabled,
			"forensics":        h.cfg.ForensicsEnabled,
			"governance":       h.cfg.GovernanceEnabled,
		},
	})
}

// HandleDefend runs the decision pipeline on one telemetry event.
func (h *Handlers) HandleDefend(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.cfg.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Unable to read request body")
		return
	}
	if len(body) == 0 {
		body = []byte("{}")
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	dec, err := h.defender.Defend(r.Context(), body, raw)
	if err != nil {
		h.logger.Error("defend pipeline failed", "error", err,
			"request_id", RequestIDFromContext(r.Context()))
		writeError(w, http.StatusInternalServerError, "Decision pipeline failure")
		return
	}
	writeJSON(w, http.StatusOK, dec)
}

// HandleListDecisions pages the audit log newest first.
func (h *Handlers) HandleListDecisions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := storage.DecisionFilter{
		Limit:      queryInt(q.Get("limit"), 0),
		SinceID:    int64(queryInt(q.Get("since_id"), 0)),
		TenantID:   q.Get("tenant_id"),
		Source:     q.Get("source"),
		EventType:  q.Get("event_type"),
		IncludeRaw: queryBool(q.Get("include_raw")),
	}
	if tl := q.Get("threat_level"); tl != "" {
		filter.ThreatLevels = []string{tl}
	}

	recs, err := h.db.ListDecisions(r.Context(), filter)
	if err != nil {
		h.logger.Error("list decisions failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Query failure")
		return
	}
	if recs == nil {
		recs = []model.DecisionRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": recs, "count": len(recs)})
}

// HandleGetDecision returns one audit row by id.
func (h *Handlers) HandleGetDecision(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid decision id")
		return
	}

	rec, err := h.db.GetDecision(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Decision not found")
		return
	}
	if err != nil {
		h.logger.Error("get decision failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Query failure")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// HandleFeedLive returns the presentation-engine view of the audit log.
func (h *Handlers) HandleFeedLive(w http.ResponseWriter, r *http.Request) {
	items, err := h.feedItems(r, 0)
	if err != nil {
		h.logger.Error("feed query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Query failure")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

// feedItems runs the shared live-feed query for both /feed/live and the
// SSE stream. sinceID overrides the query parameter when positive.
func (h *Handlers) feedItems(r *http.Request, sinceID int64) ([]model.FeedItem, error) {
	q := r.URL.Query()
	filter := storage.DecisionFilter{
		Limit:     queryInt(q.Get("limit"), 0),
		SinceID:   int64(queryInt(q.Get("since_id"), 0)),
		TenantID:  q.Get("tenant_id"),
		Source:    q.Get("source"),
		EventType: q.Get("event_type"),
		Query:     q.Get("q"),
	}
	if sinceID > 0 {
		filter.SinceID = sinceID
	}
	if tl := q.Get("threat_level"); tl != "" {
		filter.ThreatLevels = []string{tl}
	}
	if sev := q.Get("severity"); sev != "" {
		filter.ThreatLevels = feed.ThreatLevelsForSeverity(sev)
	}

	recs, err := h.db.ListDecisions(r.Context(), filter)
	if err != nil {
		return nil, err
	}

	live := feed.LiveFilter{
		OnlyActionable: queryBool(q.Get("only_actionable")),
		OnlyChanged:    queryBool(q.Get("only_changed")),
	}
	return live.Apply(feed.PresentAll(recs)), nil
}

func queryInt(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

func queryBool(s string) bool {
	switch strings.ToLower(s) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
