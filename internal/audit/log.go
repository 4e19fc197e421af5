package audit

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"artledger.org/internal/auth"
	"artledger.org/internal/obs"
)

type ctxKey string

const requestIDKey ctxKey = "audit_request_id"

// WithRequestID attaches the request identifier to the context for audit logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// Entry is one audited state change on the platform. Entity and EntityID name
// what changed (an artwork token, a verification hash, a listing, an
// account); Actor is the on-chain address that initiated the change, distinct
// from the gateway user in the JWT.
type Entry struct {
	Event    string            `json:"event"`
	Entity   string            `json:"entity,omitempty"`
	EntityID string            `json:"entity_id,omitempty"`
	Actor    string            `json:"actor,omitempty"`
	Meta     map[string]string `json:"meta,omitempty"`
}

// Log writes an audit entry as one JSON line, enriched with the request id
// and authenticated user from ctx.
func Log(ctx context.Context, e Entry) error {
	e.Event = strings.TrimSpace(e.Event)
	if e.Event == "" {
		return errors.New("event name is required")
	}

	line := struct {
		TS   string `json:"ts"`
		Type string `json:"type"`
		Entry
		RequestID string `json:"request_id,omitempty"`
		UserID    string `json:"user_id,omitempty"`
	}{
		TS:        time.Now().UTC().Format(time.RFC3339Nano),
		Type:      "audit",
		Entry:     e,
		RequestID: requestIDFromContext(ctx),
	}
	if userID, ok := auth.UserIDFromContext(ctx); ok {
		line.UserID = userID
	}

	data, err := json.Marshal(line)
	if err != nil {
		return err
	}
	obs.Logger().Println(string(data))
	return nil
}
