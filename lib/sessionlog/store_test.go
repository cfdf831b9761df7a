package sessionlog

import (
	"path/filepath"
	"testing"
	"time"
)

// TestRecordAndRecent tests that recorded events survive a recorder
// restart and come back newest first
func TestRecordAndRecent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")

	r, err := NewRecorder(path)
	if err != nil {
		t.Fatalf("Failed to create recorder: %v", err)
	}

	events := []Event{
		{ConnID: "c1", RemoteAddr: "127.0.0.1:50001", Type: EventConnected},
		{ConnID: "c1", RemoteAddr: "127.0.0.1:50001", Type: EventDisconnected},
		{ConnID: "", RemoteAddr: "127.0.0.1:50002", Type: EventRejected},
	}
	for _, ev := range events {
		r.Record(ev)
	}

	// Close flushes the queue
	if err := r.Close(); err != nil {
		t.Fatalf("Failed to close recorder: %v", err)
	}

	// Reopen and query
	r2, err := NewRecorder(path)
	if err != nil {
		t.Fatalf("Failed to reopen recorder: %v", err)
	}
	defer r2.Close()

	got, err := r2.Recent(10)
	if err != nil {
		t.Fatalf("Failed to query events: %v", err)
	}
	if len(got) != len(events) {
		t.Fatalf("Expected %d events, got %d", len(events), len(got))
	}

	// Newest first
	if got[0].Type != EventRejected {
		t.Errorf("Expected newest event to be a rejection, got %s", got[0].Type)
	}
	if got[2].Type != EventConnected || got[2].ConnID != "c1" {
		t.Errorf("Expected oldest event to be the c1 connect, got %+v", got[2])
	}
}

// TestRecentLimit tests that the limit bounds the result
func TestRecentLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")

	r, err := NewRecorder(path)
	if err != nil {
		t.Fatalf("Failed to create recorder: %v", err)
	}
	defer r.Close()

	for i := 0; i < 5; i++ {
		r.Record(Event{ConnID: "c", RemoteAddr: "127.0.0.1:50001", Type: EventConnected})
	}

	// Wait for the background writer to flush
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		got, err := r.Recent(2)
		if err != nil {
			t.Fatalf("Failed to query events: %v", err)
		}
		if len(got) == 2 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("Recorder never flushed 2 events")
}

// TestRecordAfterClose tests that late events are dropped, not persisted
func TestRecordAfterClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")

	r, err := NewRecorder(path)
	if err != nil {
		t.Fatalf("Failed to create recorder: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Failed to close recorder: %v", err)
	}

	// Must not panic or write
	r.Record(Event{ConnID: "late", RemoteAddr: "127.0.0.1:50001", Type: EventConnected})

	r2, err := NewRecorder(path)
	if err != nil {
		t.Fatalf("Failed to reopen recorder: %v", err)
	}
	defer r2.Close()

	got, err := r2.Recent(10)
	if err != nil {
		t.Fatalf("Failed to query events: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Expected no events, got %d", len(got))
	}
}
