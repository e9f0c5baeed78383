package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	exposureevents "safetyband-cloud/internal/exposure/application/events"
	masterdata "safetyband-cloud/internal/masterdata/domain"
	"safetyband-cloud/internal/observability/metrics"
	settingsapp "safetyband-cloud/internal/settings/application"
	settings "safetyband-cloud/internal/settings/domain"
	telemetryapp "safetyband-cloud/internal/telemetry/application"
	telemetry "safetyband-cloud/internal/telemetry/domain"
)

const (
	ackReply           = "ACK\r\n"
	missingDeviceReply = "ERROR: No device_id in message\r\n"
	missingCharger     = "ERROR: No charger_id in message\r\n"
	maxMessageBytes    = 64 << 10
)

// Receiver stores wearable events.
type Receiver interface {
	Receive(ctx context.Context, msg telemetry.DeviceMessage) (telemetryapp.Outcome, error)
}

// SettingsProvider answers settings requests.
type SettingsProvider interface {
	SettingsFor(ctx context.Context, req settingsapp.Request) (settings.WearableSettings, error)
}

// TimezoneResolver answers charger timezone requests.
type TimezoneResolver interface {
	ResolveChargerTimezone(ctx context.Context, chargerDisplayID string) (string, error)
}

// EventPublisher publishes domain events.
type EventPublisher interface {
	Publish(ctx context.Context, event any) error
}

// DeviceHandler serves POST /ingest/device for messages relayed by chargers.
type DeviceHandler struct {
	receiver        Receiver
	settings        SettingsProvider
	timezones       TimezoneResolver
	chargers        masterdata.ChargerRepository
	publisher       EventPublisher
	firmwareVersion string
	logger          *log.Logger
	now             func() time.Time
}

// NewDeviceHandler constructs a device handler. publisher may be nil.
func NewDeviceHandler(
	receiver Receiver,
	settingsProvider SettingsProvider,
	timezones TimezoneResolver,
	chargers masterdata.ChargerRepository,
	publisher EventPublisher,
	firmwareVersion string,
	logger *log.Logger,
) (*DeviceHandler, error) {
	if receiver == nil {
		return nil, errors.New("device handler: nil receiver")
	}
	if settingsProvider == nil {
		return nil, errors.New("device handler: nil settings provider")
	}
	if timezones == nil {
		return nil, errors.New("device handler: nil timezone resolver")
	}
	if chargers == nil {
		return nil, errors.New("device handler: nil charger repository")
	}
	if firmwareVersion == "" {
		firmwareVersion = telemetry.DefaultWearableVersion
	}
	if logger == nil {
		logger = log.Default()
	}
	return &DeviceHandler{
		receiver:        receiver,
		settings:        settingsProvider,
		timezones:       timezones,
		chargers:        chargers,
		publisher:       publisher,
		firmwareVersion: firmwareVersion,
		logger:          logger,
		now:             time.Now,
	}, nil
}

type timezoneReply struct {
	RequestType     telemetry.RequestType `json:"request_type"`
	ChargerID       string                `json:"charger_id,omitempty"`
	RequestTimezone string                `json:"request_timezone"`
}

type firmwareReply struct {
	RequestType     telemetry.RequestType `json:"request_type"`
	DeviceID        string                `json:"device_id"`
	FirmwareVersion string                `json:"firmware_version"`
}

// ServeHTTP dispatches on request_type.
func (h *DeviceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	start := time.Now()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxMessageBytes))
	if err != nil {
		h.logger.Printf("device ingest: read body error: %v", err)
		metrics.IncIngestError("read_body")
		http.Error(w, "read body error", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var msg telemetry.DeviceMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		h.logger.Printf("device ingest: decode error: %v", err)
		metrics.IncIngestError("decode")
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	result := h.dispatch(r.Context(), w, msg)
	metrics.ObserveDeviceMessage(msg.RequestType.String(), result, time.Since(start))
}

func (h *DeviceHandler) dispatch(ctx context.Context, w http.ResponseWriter, msg telemetry.DeviceMessage) string {
	switch msg.RequestType {
	case telemetry.RequestChargerVersion:
		return h.chargerVersion(ctx, w, msg)
	case telemetry.RequestTimezone:
		return h.timezone(ctx, w, msg)
	}

	if msg.DeviceID == "" {
		h.logger.Printf("device ingest: message without device_id: request_type=%d", msg.RequestType)
		metrics.IncIngestError("missing_device_id")
		writeText(w, http.StatusBadRequest, missingDeviceReply)
		return metrics.ResultError
	}

	switch msg.RequestType {
	case telemetry.RequestEvent:
		return h.event(ctx, w, msg)
	case telemetry.RequestSettings:
		return h.settingsRequest(ctx, w, msg)
	case telemetry.RequestFirmwareVersion:
		writeJSON(w, firmwareReply{
			RequestType:     telemetry.RequestFirmwareVersion,
			DeviceID:        msg.DeviceID,
			FirmwareVersion: h.firmwareVersion,
		})
		return metrics.ResultSuccess
	case telemetry.RequestHAVGrouping:
		return h.groupingRequest(ctx, w, msg)
	default:
		metrics.IncIngestError("unknown_request_type")
		writeText(w, http.StatusBadRequest, "ERROR: Unknown request_type\r\n")
		return metrics.ResultError
	}
}

func (h *DeviceHandler) event(ctx context.Context, w http.ResponseWriter, msg telemetry.DeviceMessage) string {
	outcome, err := h.receiver.Receive(ctx, msg)
	if err != nil {
		h.logger.Printf("device ingest: receive %s: %v", msg.DeviceID, err)
		metrics.IncIngestError("receive")
		writeText(w, http.StatusInternalServerError, "ERROR: "+err.Error()+"\r\n")
		return metrics.ResultError
	}
	writeText(w, http.StatusOK, ackReply)
	switch outcome {
	case telemetryapp.OutcomeDuplicate:
		return metrics.ResultDuplicate
	case telemetryapp.OutcomeIgnored:
		return metrics.ResultIgnored
	case telemetryapp.OutcomeDropped:
		return metrics.ResultSkipped
	default:
		return metrics.ResultSuccess
	}
}

func (h *DeviceHandler) settingsRequest(ctx context.Context, w http.ResponseWriter, msg telemetry.DeviceMessage) string {
	reply, err := h.settings.SettingsFor(ctx, settingsapp.Request{
		DeviceID:     msg.DeviceID,
		Version:      msg.SettingsVersion(),
		FirstRequest: msg.FirstRequest.Int() == 1,
	})
	if err != nil {
		h.logger.Printf("device ingest: settings %s: %v", msg.DeviceID, err)
		metrics.IncIngestError("settings")
		writeText(w, http.StatusInternalServerError, "ERROR: "+err.Error()+"\r\n")
		return metrics.ResultError
	}
	writeJSON(w, reply)
	return metrics.ResultSuccess
}

func (h *DeviceHandler) chargerVersion(ctx context.Context, w http.ResponseWriter, msg telemetry.DeviceMessage) string {
	displayID := msg.ChargerDisplayID()
	if displayID == "" {
		metrics.IncIngestError("missing_charger_id")
		writeText(w, http.StatusBadRequest, missingCharger)
		return metrics.ResultError
	}
	charger, err := h.chargers.GetByDisplayID(ctx, displayID)
	if err != nil {
		h.logger.Printf("device ingest: load charger %s: %v", displayID, err)
		metrics.IncIngestError("charger")
		writeText(w, http.StatusInternalServerError, "ERROR: "+err.Error()+"\r\n")
		return metrics.ResultError
	}
	if charger == nil {
		h.logger.Printf("device ingest: charging station not found: %s", displayID)
		writeText(w, http.StatusOK, ackReply)
		return metrics.ResultSkipped
	}
	if err := h.chargers.Touch(ctx, charger.ID, msg.FirmwareVersion); err != nil {
		h.logger.Printf("device ingest: touch charger %s: %v", displayID, err)
		metrics.IncIngestError("charger")
		writeText(w, http.StatusInternalServerError, "ERROR: "+err.Error()+"\r\n")
		return metrics.ResultError
	}
	writeText(w, http.StatusOK, ackReply)
	return metrics.ResultSuccess
}

func (h *DeviceHandler) timezone(ctx context.Context, w http.ResponseWriter, msg telemetry.DeviceMessage) string {
	zone, err := h.timezones.ResolveChargerTimezone(ctx, msg.ChargerDisplayID())
	if err != nil {
		h.logger.Printf("device ingest: timezone %s: %v", msg.ChargerID, err)
		metrics.IncIngestError("timezone")
		writeText(w, http.StatusInternalServerError, "ERROR: "+err.Error()+"\r\n")
		return metrics.ResultError
	}
	writeJSON(w, timezoneReply{
		RequestType:     telemetry.RequestTimezone,
		ChargerID:       msg.ChargerID,
		RequestTimezone: zone,
	})
	return metrics.ResultSuccess
}

func (h *DeviceHandler) groupingRequest(ctx context.Context, w http.ResponseWriter, msg telemetry.DeviceMessage) string {
	if h.publisher != nil {
		evt := exposureevents.GroupingRequested{
			DisplayID:   msg.DeviceID,
			Reason:      exposureevents.ReasonDevice,
			RequestedAt: h.now().UTC(),
		}
		if err := h.publisher.Publish(ctx, evt); err != nil {
			h.logger.Printf("device ingest: grouping request %s: %v", msg.DeviceID, err)
		}
	}
	writeText(w, http.StatusOK, ackReply)
	return metrics.ResultSuccess
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func writeJSON(w http.ResponseWriter, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "encode error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(append(data, '\r', '\n'))
}
