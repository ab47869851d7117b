// Package api serves the benchmark status REST API.
package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"s7bench/bench"
	"s7bench/config"
	"s7bench/kafka"
	"s7bench/mqtt"
	"s7bench/push"
	"s7bench/valkey"
)

// Managers provides access to the shared run state. Any sink manager may
// be nil.
type Managers interface {
	GetConfig() *config.Config
	GetStore() *Store
	GetMQTTMgr() *mqtt.Manager
	GetValkeyMgr() *valkey.Manager
	GetKafkaMgr() *kafka.Manager
	GetPushMgr() *push.Manager
}

// HealthResponse is the JSON response for /health.
type HealthResponse struct {
	Status    string   `json:"status"`
	Runs      int      `json:"runs"`
	Drivers   []string `json:"drivers"`
	Clients   int      `json:"sse_clients"`
	UptimeSec int64    `json:"uptime_s"`
	Timestamp string   `json:"timestamp"`
}

// ScenarioResponse describes the configured benchmark.
type ScenarioResponse struct {
	Host             string   `json:"host"`
	Rack             int      `json:"rack"`
	Slot             int      `json:"slot"`
	Bus              string   `json:"bus"`
	Cycles           int      `json:"cycles"`
	CycleTimeMs      int64    `json:"cycle_time_ms"`
	Drivers          []string `json:"drivers"`
	MaxItemsPerBatch int      `json:"max_items_per_batch"`
	Namespace        string   `json:"namespace"`
}

// SinkResponse is the JSON response for one report sink.
type SinkResponse struct {
	Type    string `json:"type"`
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
	Sent    int64  `json:"sent,omitempty"`
}

// handlers holds the API handler functions.
type handlers struct {
	managers Managers
	hub      *eventHub
	started  time.Time
}

// NewRouter creates the REST API router. The returned function stops the
// event stream and must be called when the router is discarded.
func NewRouter(managers Managers) (chi.Router, func()) {
	r := chi.NewRouter()
	h := &handlers{
		managers: managers,
		hub:      newEventHub(),
		started:  time.Now(),
	}
	cleanup := h.setupSSE()

	r.Get("/health", h.handleHealth)
	r.Get("/scenario", h.handleScenario)
	r.Get("/sinks", h.handleSinks)
	r.Get("/events", h.handleSSE)

	r.Route("/runs", func(r chi.Router) {
		r.Get("/", h.handleRuns)
		r.Get("/latest", h.handleLatest)
		r.Get("/{driver}", h.handleDriverRun)
	})

	return r, cleanup
}

func (h *handlers) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func (h *handlers) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func (h *handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	store := h.managers.GetStore()
	h.writeJSON(w, HealthResponse{
		Status:    "ok",
		Runs:      store.Len(),
		Drivers:   store.Drivers(),
		Clients:   h.hub.ClientCount(),
		UptimeSec: int64(time.Since(h.started).Seconds()),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *handlers) handleScenario(w http.ResponseWriter, r *http.Request) {
	cfg := h.managers.GetConfig()
	if cfg == nil {
		h.writeError(w, http.StatusServiceUnavailable, "no configuration loaded")
		return
	}
	drivers := make([]string, len(cfg.Drivers))
	copy(drivers, cfg.Drivers)
	h.writeJSON(w, ScenarioResponse{
		Host:             cfg.Host,
		Rack:             cfg.Rack,
		Slot:             cfg.Slot,
		Bus:              cfg.Bus,
		Cycles:           cfg.NumCycles,
		CycleTimeMs:      cfg.CycleTime.Milliseconds(),
		Drivers:          drivers,
		MaxItemsPerBatch: cfg.MaxItemsPerBatch,
		Namespace:        cfg.Namespace,
	})
}

func (h *handlers) handleRuns(w http.ResponseWriter, r *http.Request) {
	runs := h.managers.GetStore().All()
	if r.URL.Query().Get("failed") == "true" {
		failed := make([]*bench.Report, 0, len(runs))
		for _, rep := range runs {
			if !rep.OK() {
				failed = append(failed, rep)
			}
		}
		runs = failed
	}
	h.writeJSON(w, runs)
}

func (h *handlers) handleLatest(w http.ResponseWriter, r *http.Request) {
	rep := h.managers.GetStore().Latest()
	if rep == nil {
		h.writeError(w, http.StatusNotFound, "no runs yet")
		return
	}
	h.writeJSON(w, rep)
}

func (h *handlers) handleDriverRun(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "driver"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid URL encoding in driver name")
		return
	}
	rep := h.managers.GetStore().ByDriver(name)
	if rep == nil {
		h.writeError(w, http.StatusNotFound, "no run for driver "+name)
		return
	}
	h.writeJSON(w, rep)
}

func (h *handlers) handleSinks(w http.ResponseWriter, r *http.Request) {
	sinks := make([]SinkResponse, 0)

	if mgr := h.managers.GetMQTTMgr(); mgr != nil {
		for _, pub := range mgr.List() {
			sinks = append(sinks, SinkResponse{
				Type:    "mqtt",
				Name:    pub.Name(),
				Address: pub.Address(),
				Status:  runningStatus(pub.IsRunning()),
			})
		}
	}

	if mgr := h.managers.GetValkeyMgr(); mgr != nil {
		for _, pub := range mgr.List() {
			sinks = append(sinks, SinkResponse{
				Type:    "valkey",
				Name:    pub.Name(),
				Address: pub.Address(),
				Status:  runningStatus(pub.IsRunning()),
			})
		}
	}

	if mgr := h.managers.GetKafkaMgr(); mgr != nil {
		for _, name := range mgr.ListClusters() {
			p := mgr.GetProducer(name)
			if p == nil {
				continue
			}
			sent, _, _ := p.GetStats()
			resp := SinkResponse{
				Type:   "kafka",
				Name:   name,
				Status: p.GetStatus().String(),
				Sent:   sent,
			}
			if err := p.GetError(); err != nil {
				resp.Error = err.Error()
			}
			sinks = append(sinks, resp)
		}
	}

	if mgr := h.managers.GetPushMgr(); mgr != nil {
		for _, info := range mgr.GetAllPushInfo() {
			resp := SinkResponse{
				Type:    "push",
				Name:    info.Name,
				Address: info.URL,
				Status:  "ready",
				Sent:    info.SendCount,
			}
			if info.Error != nil {
				resp.Status = "error"
				resp.Error = info.Error.Error()
			}
			sinks = append(sinks, resp)
		}
	}

	h.writeJSON(w, sinks)
}

func runningStatus(running bool) string {
	if running {
		return "running"
	}
	return "stopped"
}
