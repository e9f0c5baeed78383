package apihttp

import (
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"safetyband-cloud/internal/auth"
	exposure "safetyband-cloud/internal/exposure/domain"
)

const (
	timeLayout   = time.RFC3339
	havEventType = "HandArmVibration"
)

// EventsHandler serves stored safety event queries.
type EventsHandler struct {
	db *sql.DB
}

// NewEventsHandler constructs an EventsHandler.
func NewEventsHandler(db *sql.DB) *EventsHandler {
	return &EventsHandler{db: db}
}

// ServeHTTP handles GET /api/v1/events.
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.db == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	filter, status, err := parseEventFilter(r)
	if err != nil {
		http.Error(w, err.Error(), status)
		return
	}

	rows, err := queryEvents(r.Context(), h.db, filter)
	if err != nil {
		http.Error(w, "query events error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(rows)
}

// ExportEventsCSVHandler serves event CSV exports.
type ExportEventsCSVHandler struct {
	db *sql.DB
}

// NewExportEventsCSVHandler constructs an ExportEventsCSVHandler.
func NewExportEventsCSVHandler(db *sql.DB) *ExportEventsCSVHandler {
	return &ExportEventsCSVHandler{db: db}
}

// ServeHTTP handles GET /api/v1/exports/events.csv.
func (h *ExportEventsCSVHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.db == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	filter, status, err := parseEventFilter(r)
	if err != nil {
		http.Error(w, err.Error(), status)
		return
	}

	rows, err := queryEvents(r.Context(), h.db, filter)
	if err != nil {
		http.Error(w, "query events error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	writer := csv.NewWriter(w)
	_ = writer.Write([]string{
		"id",
		"ts",
		"type",
		"wearable_id",
		"display_id",
		"beacon_id",
		"imu_level",
		"duration",
	})
	for _, row := range rows {
		_ = writer.Write([]string{
			row.ID,
			formatTime(row.Timestamp),
			row.Type,
			row.WearableID,
			row.DisplayID,
			row.BeaconID,
			row.IMULevel,
			formatInt(row.Duration),
		})
	}
	writer.Flush()
}

// ExposureSummaryHandler serves HAV seconds per wearable, period and severity.
type ExposureSummaryHandler struct {
	db *sql.DB
}

// NewExposureSummaryHandler constructs an ExposureSummaryHandler.
func NewExposureSummaryHandler(db *sql.DB) *ExposureSummaryHandler {
	return &ExposureSummaryHandler{db: db}
}

// ServeHTTP handles GET /api/v1/exposure/summary.
func (h *ExposureSummaryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.db == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	orgID, status, err := resolveOrganization(r)
	if err != nil {
		http.Error(w, err.Error(), status)
		return
	}
	from, err := parseTimeQuery(r, "from")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	to, err := parseTimeQuery(r, "to")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !to.After(from) {
		http.Error(w, "to must be after from", http.StatusBadRequest)
		return
	}
	unit, err := resolvePeriod(r.URL.Query().Get("granularity"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rows, err := queryExposureSummary(r.Context(), h.db, orgID, unit, from, to)
	if err != nil {
		http.Error(w, "query exposure summary error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(rows)
}

type eventFilter struct {
	OrganizationID string
	DisplayID      string
	Type           string
	From           time.Time
	To             time.Time
}

type eventRow struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"ts"`
	Type       string    `json:"type"`
	WearableID string    `json:"wearable_id"`
	DisplayID  string    `json:"display_id"`
	BeaconID   string    `json:"beacon_id,omitempty"`
	IMULevel   string    `json:"imu_level,omitempty"`
	Duration   int       `json:"duration"`
}

type summaryRow struct {
	DisplayID   string    `json:"display_id"`
	PeriodStart time.Time `json:"period_start"`
	Low         int       `json:"low"`
	Medium      int       `json:"medium"`
	High        int       `json:"high"`
	Extreme     int       `json:"extreme"`
	Total       int       `json:"total"`
}

func (s *summaryRow) add(severity exposure.Severity, seconds int) {
	switch severity {
	case exposure.SeverityMedium:
		s.Medium += seconds
	case exposure.SeverityHigh:
		s.High += seconds
	case exposure.SeverityExtreme:
		s.Extreme += seconds
	default:
		s.Low += seconds
	}
	s.Total += seconds
}

func parseEventFilter(r *http.Request) (eventFilter, int, error) {
	orgID, status, err := resolveOrganization(r)
	if err != nil {
		return eventFilter{}, status, err
	}
	from, err := parseTimeQuery(r, "from")
	if err != nil {
		return eventFilter{}, http.StatusBadRequest, err
	}
	to, err := parseTimeQuery(r, "to")
	if err != nil {
		return eventFilter{}, http.StatusBadRequest, err
	}
	if !to.After(from) {
		return eventFilter{}, http.StatusBadRequest, errors.New("to must be after from")
	}
	return eventFilter{
		OrganizationID: orgID,
		DisplayID:      strings.TrimSpace(r.URL.Query().Get("wearable")),
		Type:           strings.TrimSpace(r.URL.Query().Get("type")),
		From:           from,
		To:             to,
	}, http.StatusOK, nil
}

// resolveOrganization takes organization_id from the query, or from the caller's
// token when the query omits it.
func resolveOrganization(r *http.Request) (string, int, error) {
	orgID := strings.TrimSpace(r.URL.Query().Get("organization_id"))
	if orgID == "" {
		orgID = auth.OrganizationIDFromContext(r.Context())
	}
	if orgID == "" {
		return "", http.StatusBadRequest, errors.New("organization_id is required")
	}
	if err := auth.EnsureOrganization(r.Context(), orgID); err != nil {
		return "", http.StatusForbidden, errors.New("forbidden")
	}
	return orgID, http.StatusOK, nil
}

func queryEvents(ctx context.Context, db *sql.DB, filter eventFilter) ([]eventRow, error) {
	rows, err := db.QueryContext(ctx, `
SELECT
	e.id,
	e.ts,
	e.type,
	e.wearable_id,
	w.display_id,
	e.beacon_id,
	e.imu_level,
	e.duration
FROM events e
JOIN wearables w ON w.id = e.wearable_id
WHERE e.organization_id = $1
	AND e.ts >= $2
	AND e.ts < $3
	AND ($4 = '' OR w.display_id = $4)
	AND ($5 = '' OR e.type = $5)
ORDER BY e.ts ASC`, filter.OrganizationID, filter.From.UTC(), filter.To.UTC(), filter.DisplayID, filter.Type)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []eventRow
	for rows.Next() {
		var row eventRow
		var beaconID, level sql.NullString
		if err := rows.Scan(
			&row.ID,
			&row.Timestamp,
			&row.Type,
			&row.WearableID,
			&row.DisplayID,
			&beaconID,
			&level,
			&row.Duration,
		); err != nil {
			return nil, err
		}
		row.Timestamp = row.Timestamp.UTC()
		row.BeaconID = beaconID.String
		row.IMULevel = level.String
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func queryExposureSummary(ctx context.Context, db *sql.DB, orgID, unit string, from, to time.Time) ([]summaryRow, error) {
	rows, err := db.QueryContext(ctx, `
SELECT
	w.display_id,
	date_trunc($2, e.ts AT TIME ZONE 'UTC') AS period_start,
	e.imu_level,
	SUM(e.duration)
FROM events e
JOIN wearables w ON w.id = e.wearable_id
WHERE e.organization_id = $1
	AND e.type = $3
	AND e.ts >= $4
	AND e.ts < $5
GROUP BY w.display_id, period_start, e.imu_level
ORDER BY w.display_id ASC, period_start ASC`, orgID, unit, havEventType, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []summaryRow
	index := make(map[string]int)
	for rows.Next() {
		var (
			displayID string
			period    time.Time
			level     sql.NullString
			seconds   int
		)
		if err := rows.Scan(&displayID, &period, &level, &seconds); err != nil {
			return nil, err
		}
		period = time.Date(period.Year(), period.Month(), period.Day(), period.Hour(), 0, 0, 0, time.UTC)
		key := displayID + "|" + period.Format(timeLayout)
		pos, ok := index[key]
		if !ok {
			result = append(result, summaryRow{DisplayID: displayID, PeriodStart: period})
			pos = len(result) - 1
			index[key] = pos
		}
		severity, _ := exposure.ParseSeverity(level.String)
		result[pos].add(severity, seconds)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func parseTimeQuery(r *http.Request, key string) (time.Time, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return time.Time{}, errors.New(key + " is required")
	}
	parsed, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}, errors.New(key + " must be RFC3339")
	}
	return parsed.UTC(), nil
}

func resolvePeriod(granularity string) (string, error) {
	switch granularity {
	case "", "hour":
		return "hour", nil
	case "day":
		return "day", nil
	default:
		return "", errors.New("granularity must be hour or day")
	}
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(timeLayout)
}

func formatInt(value int) string {
	return strconv.Itoa(value)
}
