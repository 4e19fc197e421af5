package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"artledger.org/internal/auth"
	"artledger.org/internal/obs"
)

func TestLogEmitsTypedEntry(t *testing.T) {
	logger := obs.Logger()
	original := logger.Writer()
	logger.SetFlags(0)
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	defer logger.SetOutput(original)

	ctx := context.Background()
	ctx = WithRequestID(ctx, "req-123")
	ctx = auth.ContextWithUser(ctx, "curator-42", []string{"admin"})

	err := Log(ctx, Entry{
		Event:    "market.listing.create",
		Entity:   "listing",
		EntityID: "7",
		Actor:    "0x00000000000000000000000000000000000000a1",
		Meta:     map[string]string{"price": "1000"},
	})
	if err != nil {
		t.Fatalf("Log failed: %v", err)
	}

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log not valid JSON: %v", err)
	}
	if entry["type"] != "audit" || entry["event"] != "market.listing.create" {
		t.Fatalf("unexpected entry: %v", entry)
	}
	if entry["entity"] != "listing" || entry["entity_id"] != "7" {
		t.Fatalf("entity fields missing: %v", entry)
	}
	if entry["actor"] != "0x00000000000000000000000000000000000000a1" {
		t.Fatalf("actor missing: %v", entry)
	}
	if entry["request_id"] != "req-123" || entry["user_id"] != "curator-42" {
		t.Fatalf("context fields missing: %v", entry)
	}
	meta, ok := entry["meta"].(map[string]any)
	if !ok || meta["price"] != "1000" {
		t.Fatalf("meta missing or incorrect: %v", entry["meta"])
	}
}

func TestLogRequiresEventName(t *testing.T) {
	if err := Log(context.Background(), Entry{Event: "  "}); err == nil {
		t.Fatal("expected error for empty event name")
	}
}
