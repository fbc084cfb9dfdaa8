package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/dandantas/turnstile/internal/database"
	"github.com/dandantas/turnstile/internal/model"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AlertRuleHandler handles alert rule CRUD operations
type AlertRuleHandler struct {
	rules *database.AlertRuleRepository
}

// NewAlertRuleHandler creates a new alert rule handler
func NewAlertRuleHandler(rules *database.AlertRuleRepository) *AlertRuleHandler {
	return &AlertRuleHandler{rules: rules}
}

// List handles GET /api/v1/alert-rules
func (h *AlertRuleHandler) List(w http.ResponseWriter, r *http.Request) {
	rules, err := h.rules.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list alert rules")
		return
	}
	if rules == nil {
		rules = []model.AlertRule{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"rules": rules,
		"count": len(rules),
	})
}

// Create handles POST /api/v1/alert-rules
func (h *AlertRuleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var rule model.AlertRule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if err := rule.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	now := time.Now().UTC()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	if err := h.rules.Create(r.Context(), &rule); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	slog.Info("Alert rule created", "rule_id", rule.ID.Hex(), "name", rule.Name)
	writeJSON(w, http.StatusCreated, rule)
}

// Get handles GET /api/v1/alert-rules/{id}
func (h *AlertRuleHandler) Get(w http.ResponseWriter, r *http.Request, id string) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid rule ID format")
		return
	}

	rule, err := h.rules.GetByID(r.Context(), objectID)
	if err != nil {
		if errors.Is(err, database.ErrRuleNotFound) {
			writeError(w, http.StatusNotFound, "Alert rule not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get alert rule")
		return
	}

	writeJSON(w, http.StatusOK, rule)
}

// Update handles PUT /api/v1/alert-rules/{id}
func (h *AlertRuleHandler) Update(w http.ResponseWriter, r *http.Request, id string) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid rule ID format")
		return
	}

	var rule model.AlertRule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if err := rule.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	existing, err := h.rules.GetByID(r.Context(), objectID)
	if err != nil {
		if errors.Is(err, database.ErrRuleNotFound) {
			writeError(w, http.StatusNotFound, "Alert rule not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get alert rule")
		return
	}

	rule.CreatedAt = existing.CreatedAt
	rule.UpdatedAt = time.Now().UTC()

	if err := h.rules.Update(r.Context(), objectID, &rule); err != nil {
		if errors.Is(err, database.ErrRuleNotFound) {
			writeError(w, http.StatusNotFound, "Alert rule not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to update alert rule")
		return
	}

	slog.Info("Alert rule updated", "rule_id", id, "name", rule.Name)
	writeJSON(w, http.StatusOK, rule)
}

// Delete handles DELETE /api/v1/alert-rules/{id}
func (h *AlertRuleHandler) Delete(w http.ResponseWriter, r *http.Request, id string) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid rule ID format")
		return
	}

	if err := h.rules.Delete(r.Context(), objectID); err != nil {
		if errors.Is(err, database.ErrRuleNotFound) {
			writeError(w, http.StatusNotFound, "Alert rule not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete alert rule")
		return
	}

	slog.Info("Alert rule deleted", "rule_id", id)
	w.WriteHeader(http.StatusNoContent)
}
