package interfaces

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"safetyband-cloud/internal/audit"
	"safetyband-cloud/internal/auth"
	settingsapp "safetyband-cloud/internal/settings/application"
	settings "safetyband-cloud/internal/settings/domain"
)

// ConfigurationHandler serves /api/v1/organizations/{orgID}/configurations.
type ConfigurationHandler struct {
	service     *settingsapp.Service
	auditLogger audit.Logger
	logger      *log.Logger
}

// NewConfigurationHandler constructs a handler. auditLogger may be nil.
func NewConfigurationHandler(service *settingsapp.Service, auditLogger audit.Logger, logger *log.Logger) (*ConfigurationHandler, error) {
	if service == nil {
		return nil, errors.New("configuration handler: nil service")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &ConfigurationHandler{service: service, auditLogger: auditLogger, logger: logger}, nil
}

// Routes mounts the handler on r.
func (h *ConfigurationHandler) Routes(r chi.Router) {
	r.Get("/api/v1/organizations/{orgID}/configurations", h.Get)
	r.Put("/api/v1/organizations/{orgID}/configurations", h.Put)
}

type configurationsResponse struct {
	OrganizationID string                   `json:"organization_id"`
	WearableID     string                   `json:"wearable_id,omitempty"`
	Configurations []settings.Configuration `json:"configurations"`
}

type putRequest struct {
	Configurations []settings.Configuration `json:"configurations"`
}

// Get returns the effective configuration, one row per category.
func (h *ConfigurationHandler) Get(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "orgID")
	if err := auth.EnsureOrganization(r.Context(), orgID); err != nil {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	wearableID := strings.TrimSpace(r.URL.Query().Get("wearableId"))

	merged, err := h.service.Effective(r.Context(), orgID, wearableID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	out := make([]settings.Configuration, 0, len(settings.Categories))
	for _, c := range settings.Categories {
		out = append(out, merged[c])
	}
	writeJSON(w, http.StatusOK, configurationsResponse{OrganizationID: orgID, WearableID: wearableID, Configurations: out})
}

// Put upserts configuration rows.
func (h *ConfigurationHandler) Put(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "orgID")
	if err := auth.EnsureOrganization(r.Context(), orgID); err != nil {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	wearableID := strings.TrimSpace(r.URL.Query().Get("wearableId"))

	var req putRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if len(req.Configurations) == 0 {
		http.Error(w, "configurations required", http.StatusBadRequest)
		return
	}

	saved, err := h.service.Upsert(r.Context(), orgID, wearableID, req.Configurations)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, configurationsResponse{OrganizationID: orgID, WearableID: wearableID, Configurations: saved})

	categories := make([]string, len(saved))
	for i, cfg := range saved {
		categories[i] = string(cfg.Category)
	}
	entry := audit.FromRequest(r, "configuration.upsert", "organization", orgID, map[string]any{
		"wearable_id": wearableID,
		"categories":  categories,
	})
	audit.Record(r.Context(), h.auditLogger, entry, h.logger)
}

func (h *ConfigurationHandler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, settings.ErrInvalidCategory), errors.Is(err, settings.ErrInvalidThreshold):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, settings.ErrWearableMismatch):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, settingsapp.ErrOrganizationNotFound), errors.Is(err, settingsapp.ErrWearableNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		h.logger.Printf("configuration handler: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
