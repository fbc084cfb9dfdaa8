package handler

import (
	"net/http"
	"strings"

	"github.com/dandantas/turnstile/pkg/middleware"
)

// Router handles HTTP routing
type Router struct {
	sessionHandler   *SessionHandler
	jobHandler       *JobHandler
	alertRuleHandler *AlertRuleHandler
	healthHandler    *HealthHandler
	corsConfig       middleware.CORSConfig
}

// NewRouter creates a new router
func NewRouter(
	sessionHandler *SessionHandler,
	jobHandler *JobHandler,
	alertRuleHandler *AlertRuleHandler,
	healthHandler *HealthHandler,
	corsConfig middleware.CORSConfig,
) *Router {
	return &Router{
		sessionHandler:   sessionHandler,
		jobHandler:       jobHandler,
		alertRuleHandler: alertRuleHandler,
		healthHandler:    healthHandler,
		corsConfig:       corsConfig,
	}
}

// Handler returns the configured HTTP handler with middleware
func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()

	// Health endpoints (no middleware)
	mux.HandleFunc("/health", rt.healthHandler.Health)
	mux.HandleFunc("/ready", rt.healthHandler.Ready)

	// API endpoints
	mux.HandleFunc("/api/v1/sessions", rt.handleSessions)
	mux.HandleFunc("/api/v1/sessions/", rt.handleSessionsWithID)
	mux.HandleFunc("/api/v1/jobs", rt.handleJobs)
	mux.HandleFunc("/api/v1/jobs/", rt.handleJobsWithID)
	mux.HandleFunc("/api/v1/alert-rules", rt.handleAlertRules)
	mux.HandleFunc("/api/v1/alert-rules/", rt.handleAlertRulesWithID)

	// Apply middleware (CORS first to handle preflight requests)
	handler := middleware.CORS(rt.corsConfig)(mux)
	handler = middleware.Recovery(handler)
	handler = middleware.Logging(handler)
	handler = middleware.CorrelationID(handler)

	return handler
}

// handleSessions routes session collection endpoints
func (rt *Router) handleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		rt.sessionHandler.Create(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleSessionsWithID routes individual session endpoints and their actions
func (rt *Router) handleSessionsWithID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/sessions/")
	id, action, _ := strings.Cut(path, "/")
	if id == "" {
		writeError(w, http.StatusNotFound, "Endpoint not found")
		return
	}

	switch action {
	case "":
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		rt.sessionHandler.Get(w, r, id)
	case "submit":
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		rt.sessionHandler.Submit(w, r, id)
	case "reset":
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		rt.sessionHandler.Reset(w, r, id)
	case "history.csv":
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		rt.sessionHandler.ExportCSV(w, r, id)
	case "forecast":
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		rt.sessionHandler.Forecast(w, r, id)
	default:
		writeError(w, http.StatusNotFound, "Endpoint not found")
	}
}

// handleJobs routes job collection endpoints
func (rt *Router) handleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		rt.jobHandler.List(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleJobsWithID routes individual job endpoints
func (rt *Router) handleJobsWithID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/jobs/")
	jobID, action, _ := strings.Cut(path, "/")
	if jobID == "" {
		writeError(w, http.StatusNotFound, "Endpoint not found")
		return
	}

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	switch action {
	case "":
		rt.jobHandler.Get(w, r, jobID)
	case "history":
		rt.jobHandler.History(w, r, jobID)
	case "alerts":
		rt.jobHandler.Alerts(w, r, jobID)
	default:
		writeError(w, http.StatusNotFound, "Endpoint not found")
	}
}

// handleAlertRules routes alert rule collection endpoints
func (rt *Router) handleAlertRules(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		rt.alertRuleHandler.List(w, r)
	case http.MethodPost:
		rt.alertRuleHandler.Create(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleAlertRulesWithID routes individual alert rule endpoints
func (rt *Router) handleAlertRulesWithID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/alert-rules/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, "Endpoint not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		rt.alertRuleHandler.Get(w, r, id)
	case http.MethodPut:
		rt.alertRuleHandler.Update(w, r, id)
	case http.MethodDelete:
		rt.alertRuleHandler.Delete(w, r, id)
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}
