package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"safetyband-cloud/internal/auth"

	"github.com/google/uuid"
)

// Entry is one administrative action recorded for later review.
type Entry struct {
	ID             string
	OrganizationID string
	Actor          string
	Role           string
	Action         string
	ResourceType   string
	ResourceID     string
	WearableID     string
	Metadata       json.RawMessage
	PayloadDigest  string
	IP             string
	UserAgent      string
	CreatedAt      time.Time
}

// Logger writes audit entries.
type Logger interface {
	Log(ctx context.Context, entry Entry) error
}

// NewID generates a random audit id.
func NewID() string {
	return "audit-" + uuid.NewString()
}

// DigestJSON computes a SHA256 hex digest for metadata payloads.
func DigestJSON(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// FromRequest builds an entry carrying the caller identity stored by the auth middleware.
func FromRequest(r *http.Request, action, resourceType, resourceID string, metadata map[string]any) Entry {
	ctx := r.Context()
	entry := Entry{
		OrganizationID: auth.OrganizationIDFromContext(ctx),
		Actor:          auth.SubjectFromContext(ctx),
		Role:           string(auth.RoleFromContext(ctx)),
		Action:         action,
		ResourceType:   resourceType,
		ResourceID:     resourceID,
		IP:             r.RemoteAddr,
		UserAgent:      r.UserAgent(),
	}
	if len(metadata) > 0 {
		if raw, err := json.Marshal(metadata); err == nil {
			entry.Metadata = raw
		}
	}
	return entry
}

// Record writes entry when logger is set; failures are only logged.
func Record(ctx context.Context, logger Logger, entry Entry, errLog *log.Logger) {
	if logger == nil {
		return
	}
	if err := logger.Log(ctx, entry); err != nil {
		if errLog == nil {
			errLog = log.Default()
		}
		errLog.Printf("audit: %s %s/%s: %v", entry.Action, entry.ResourceType, entry.ResourceID, err)
	}
}

// MemoryLogger keeps entries in memory.
type MemoryLogger struct {
	Entries []Entry
}

// Log implements Logger.
func (m *MemoryLogger) Log(_ context.Context, entry Entry) error {
	m.Entries = append(m.Entries, entry)
	return nil
}
