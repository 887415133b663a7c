package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/frostlabs/frostgate/internal/model"
	"github.com/frostlabs/frostgate/internal/storage"
)

// Module is an optional, feature-flagged route surface. Modules that
// are not mounted simply do not exist: their paths 404.
type Module interface {
	Name() string
	Mount(mux *http.ServeMux)
}

// missionModule exposes the mission envelope: an operator-set context
// document (objective, constraints) attached to subsequent decisions.
type missionModule struct {
	mu       sync.RWMutex
	envelope map[string]any
	updated  time.Time
}

func newMissionModule() *missionModule {
	return &missionModule{envelope: map[string]any{}}
}

func (m *missionModule) Name() string { return "mission_envelope" }

func (m *missionModule) Mount(mux *http.ServeMux) {
	mux.HandleFunc("GET /mission/envelope", func(w http.ResponseWriter, _ *http.Request) {
		m.mu.RLock()
		defer m.mu.RUnlock()
		writeJSON(w, http.StatusOK, map[string]any{
			"envelope":   m.envelope,
			"updated_at": m.updated.UTC().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("POST /mission/envelope", func(w http.ResponseWriter, r *http.Request) {
		var envelope map[string]any
		if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}
		m.mu.Lock()
		m.envelope = envelope
		m.updated = time.Now().UTC()
		m.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]string{"status": "stored"})
	})
}

// ringModule maps threat levels onto response rings: which tier of the
// defense posture should absorb an event of a given severity.
type ringModule struct{}

func (ringModule) Name() string { return "ring_router" }

var ringAssignments = map[string]int{
	model.ThreatNone:     0,
	model.ThreatLow:      1,
	model.ThreatMedium:   2,
	model.ThreatHigh:     3,
	model.ThreatCritical: 3,
}

func (ringModule) Mount(mux *http.ServeMux) {
	mux.HandleFunc("GET /ring/route", func(w http.ResponseWriter, r *http.Request) {
		level := r.URL.Query().Get("threat_level")
		ring, ok := ringAssignments[level]
		if !ok {
			writeError(w, http.StatusBadRequest, "Unknown threat_level")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"threat_level": level,
			"ring":         ring,
		})
	})
	mux.HandleFunc("GET /ring/assignments", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, ringAssignments)
	})
}

// roeModule exposes the active doctrine policies as data so operators
// can inspect what the gate will do without sending traffic.
type roeModule struct{}

func (roeModule) Name() string { return "roe_engine" }

func (roeModule) Mount(mux *http.ServeMux) {
	mux.HandleFunc("GET /roe/policies", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"policies": []map[string]any{
				{
					"id":             "roe:guardian_secret",
					"persona":        "guardian",
					"classification": "SECRET",
					"effects": []string{
						"ao_required",
						"max_one_block_ip",
						"require_approval_when_disruptive",
					},
				},
			},
			"disruptive_actions": []string{model.ActionBlockIP},
		})
	})
}

// forensicsModule walks the audit hash chain and reports integrity.
type forensicsModule struct {
	db *storage.DB
}

func (forensicsModule) Name() string { return "forensics" }

func (f forensicsModule) Mount(mux *http.ServeMux) {
	mux.HandleFunc("GET /forensics/chain/verify", func(w http.ResponseWriter, r *http.Request) {
		report, err := f.db.VerifyChain(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Chain verification failure")
			return
		}
		writeJSON(w, http.StatusOK, report)
	})
}

// governanceModule administers tenants.
type governanceModule struct {
	db *storage.DB
}

func (governanceModule) Name() string { return "governance" }

func (g governanceModule) Mount(mux *http.ServeMux) {
	mux.HandleFunc("GET /governance/tenants", func(w http.ResponseWriter, r *http.Request) {
		tenants, err := g.db.ListTenants(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Query failure")
			return
		}
		if tenants == nil {
			tenants = []model.Tenant{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"tenants": tenants})
	})
	mux.HandleFunc("POST /governance/tenants", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     string `json:"id"`
			Name   string `json:"name"`
			APIKey string `json:"api_key"`
			Status string `json:"status"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
			writeError(w, http.StatusBadRequest, "Tenant id is required")
			return
		}
		if req.Status == "" {
			req.Status = model.TenantStatusActive
		}
		tenant := &model.Tenant{ID: req.ID, Name: req.Name, APIKey: req.APIKey, Status: req.Status}
		if err := g.db.UpsertTenant(r.Context(), tenant); err != nil {
			writeError(w, http.StatusInternalServerError, "Tenant write failure")
			return
		}
		writeJSON(w, http.StatusOK, tenant)
	})
	mux.HandleFunc("POST /governance/tenants/{id}/status", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Status string `json:"status"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Status == "" {
			writeError(w, http.StatusBadRequest, "Status is required")
			return
		}
		err := g.db.SetTenantStatus(r.Context(), r.PathValue("id"), req.Status)
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Tenant not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Tenant write failure")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": req.Status})
	})
}
