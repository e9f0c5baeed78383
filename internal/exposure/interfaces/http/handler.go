package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"safetyband-cloud/internal/audit"
	"safetyband-cloud/internal/auth"
	exposureapp "safetyband-cloud/internal/exposure/application"
	exposure "safetyband-cloud/internal/exposure/domain"
	"safetyband-cloud/internal/exposure/interfaces/report"
	masterdata "safetyband-cloud/internal/masterdata/domain"
	"safetyband-cloud/internal/observability/metrics"
)

const defaultReportSpan = 24 * time.Hour

// Grouper runs a grouping for one wearable.
type Grouper interface {
	GroupWearable(ctx context.Context, displayID string) (exposureapp.GroupResult, error)
}

// Handler serves exposure report and manual grouping APIs.
type Handler struct {
	wearables   masterdata.WearableRepository
	events      exposure.EventReader
	grouper     Grouper
	auditLogger audit.Logger
	logger      *log.Logger
	now         func() time.Time
}

// NewHandler constructs a handler. grouper and auditLogger may be nil.
func NewHandler(wearables masterdata.WearableRepository, events exposure.EventReader, grouper Grouper, auditLogger audit.Logger, logger *log.Logger) (*Handler, error) {
	if wearables == nil {
		return nil, errors.New("exposure handler: nil wearable repository")
	}
	if events == nil {
		return nil, errors.New("exposure handler: nil event reader")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{
		wearables:   wearables,
		events:      events,
		grouper:     grouper,
		auditLogger: auditLogger,
		logger:      logger,
		now:         time.Now,
	}, nil
}

// HandleReport serves GET /api/v1/exposure/report?wearable=&from=&to=&format=json|xlsx|pdf.
func (h *Handler) HandleReport(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format == "" {
		format = "json"
	}
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveReportExport(format, result, time.Since(start))
	}()

	displayID := strings.TrimSpace(r.URL.Query().Get("wearable"))
	if displayID == "" {
		result = metrics.ResultError
		http.Error(w, "wearable is required", http.StatusBadRequest)
		return
	}
	from, to, err := h.parseRange(r)
	if err != nil {
		result = metrics.ResultError
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	wearable, ok := h.loadWearable(w, r, displayID)
	if !ok {
		result = metrics.ResultError
		return
	}
	events, err := h.events.ListEvents(r.Context(), wearable.ID, from, to)
	if err != nil {
		result = metrics.ResultError
		h.logger.Printf("exposure handler: list events: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	rep := report.NewReport(wearable.ID, wearable.DisplayID, from, to, h.now(), events)

	switch format {
	case "json":
		writeJSON(w, http.StatusOK, reportResponse(rep))
	case "pdf":
		data, err := report.BuildPDF(rep)
		if err != nil {
			result = metrics.ResultError
			http.Error(w, "export pdf error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	case "xlsx":
		data, err := report.BuildXLSX(rep)
		if err != nil {
			result = metrics.ResultError
			http.Error(w, "export xlsx error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	default:
		result = metrics.ResultError
		http.Error(w, "unsupported format", http.StatusBadRequest)
		return
	}

	audit.Record(r.Context(), h.auditLogger, withWearable(audit.FromRequest(r, "exposure.report", "wearable", wearable.DisplayID,
		map[string]any{"format": format, "from": from, "to": to}), wearable.ID), h.logger)
}

// HandleGroup serves POST /api/v1/exposure/group with body {"wearable_id": "..."}.
func (h *Handler) HandleGroup(w http.ResponseWriter, r *http.Request) {
	if h.grouper == nil {
		http.Error(w, "grouping disabled", http.StatusServiceUnavailable)
		return
	}
	var req struct {
		WearableID string `json:"wearable_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.WearableID) == "" {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	wearable, ok := h.loadWearable(w, r, strings.TrimSpace(req.WearableID))
	if !ok {
		return
	}

	res, err := h.grouper.GroupWearable(r.Context(), wearable.DisplayID)
	if err != nil {
		respondGroupingError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"wearable_id": wearable.DisplayID,
		"consumed":    res.Consumed,
		"written":     res.Written,
		"totals":      totalsMap(res.Totals),
	})
	audit.Record(r.Context(), h.auditLogger, withWearable(audit.FromRequest(r, "exposure.group", "wearable", wearable.DisplayID,
		map[string]any{"consumed": res.Consumed, "written": res.Written}), wearable.ID), h.logger)
}

func (h *Handler) loadWearable(w http.ResponseWriter, r *http.Request, displayID string) (*masterdata.Wearable, bool) {
	wearable, err := h.wearables.GetByDisplayID(r.Context(), displayID)
	if err != nil {
		h.logger.Printf("exposure handler: load wearable: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return nil, false
	}
	if wearable == nil {
		http.Error(w, "wearable not found", http.StatusNotFound)
		return nil, false
	}
	if err := auth.EnsureOrganization(r.Context(), wearable.OrganizationID); err != nil {
		http.Error(w, "forbidden", http.StatusForbidden)
		return nil, false
	}
	return wearable, true
}

func (h *Handler) parseRange(r *http.Request) (time.Time, time.Time, error) {
	to := h.now().UTC()
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := parseTime(raw)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid to")
		}
		to = parsed
	}
	from := to.Add(-defaultReportSpan)
	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := parseTime(raw)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid from")
		}
		from = parsed
	}
	if !from.Before(to) {
		return time.Time{}, time.Time{}, errors.New("from must be before to")
	}
	return from, to, nil
}

func parseTime(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func respondGroupingError(w http.ResponseWriter, logger *log.Logger, err error) {
	switch {
	case errors.Is(err, exposure.ErrGroupingInProgress):
		http.Error(w, "grouping in progress", http.StatusConflict)
	case errors.Is(err, exposure.ErrWearableNotFound), errors.Is(err, exposure.ErrOrganizationNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		logger.Printf("exposure handler: group: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

type reportEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Severity  string    `json:"severity"`
	Duration  int       `json:"duration"`
}

func reportResponse(rep report.Report) map[string]any {
	events := make([]reportEvent, len(rep.Events))
	for i, evt := range rep.Events {
		events[i] = reportEvent{Timestamp: evt.Timestamp, Severity: evt.Severity.String(), Duration: evt.Duration}
	}
	return map[string]any{
		"wearable_id":   rep.DisplayID,
		"from":          rep.From,
		"to":            rep.To,
		"totals":        totalsMap(rep.Totals),
		"total_seconds": rep.TotalSeconds(),
		"events":        events,
	}
}

func totalsMap(totals [exposure.SeverityCount]int) map[string]int {
	out := make(map[string]int, exposure.SeverityCount)
	for _, sev := range exposure.Severities {
		out[sev.String()] = totals[sev]
	}
	return out
}

func withWearable(entry audit.Entry, wearableID string) audit.Entry {
	entry.WearableID = wearableID
	return entry
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
