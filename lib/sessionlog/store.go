package sessionlog

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/eapache/queue"
	_ "modernc.org/sqlite"

	"github.com/machingclee/muxtcp/mux/common"
)

var Logger = common.GetLogger("sessionlog")

// --------------------------------------------------------------------------
// Event Definition
// --------------------------------------------------------------------------

// EventType classifies a session event
type EventType string

const (
	// EventConnected marks a connection placed into the table
	EventConnected EventType = "connected"
	// EventDisconnected marks an orderly close or read error
	EventDisconnected EventType = "disconnected"
	// EventRejected marks a connection closed because the table was full
	EventRejected EventType = "rejected"
)

// Event is one session audit record
type Event struct {
	// ConnID is the connection identifier. Empty for rejections, which
	// never receive an identity
	ConnID string
	// RemoteAddr is the peer's host:port
	RemoteAddr string
	// Type classifies the event
	Type EventType
	// At is the event time. The recorder fills it when zero
	At time.Time
}

// --------------------------------------------------------------------------
// Recorder
// --------------------------------------------------------------------------

// Recorder persists session events to a sqlite database. Record never
// blocks the caller: events are buffered in a FIFO queue and written by a
// background goroutine, so the control loop is decoupled from disk latency
type Recorder struct {
	db *sql.DB

	mu      sync.Mutex
	pending *queue.Queue
	closed  bool

	wake     chan struct{}
	done     chan struct{}
	finished chan struct{}
}

// NewRecorder opens (or creates) the session database at the given path
// and starts the background writer
func NewRecorder(path string) (*Recorder, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create session db dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}

	r := &Recorder{
		db:       db,
		pending:  queue.New(),
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
		finished: make(chan struct{}),
	}

	if err := r.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}

	go r.run()
	return r, nil
}

// Record enqueues an event for persistence. Events recorded after Close
// are dropped
func (r *Recorder) Record(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.pending.Add(ev)
	r.mu.Unlock()

	// Nudge the writer; a pending nudge already covers us
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Recent returns up to limit events, newest first
func (r *Recorder) Recent(limit int) ([]Event, error) {
	rows, err := r.db.Query(
		"SELECT conn_id, remote_addr, event, at FROM sessions ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ev Event
		var eventType string
		var at int64
		if err := rows.Scan(&ev.ConnID, &ev.RemoteAddr, &eventType, &at); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		ev.Type = EventType(eventType)
		ev.At = time.Unix(at, 0)
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Close flushes all pending events, stops the writer and closes the
// database
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	close(r.done)
	<-r.finished

	return r.db.Close()
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (r *Recorder) initSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id INTEGER PRIMARY KEY,
			conn_id TEXT,
			remote_addr TEXT NOT NULL,
			event TEXT NOT NULL,
			at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_at ON sessions(at);`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.Exec(stmt); err != nil {
			return fmt.Errorf("init session schema: %w", err)
		}
	}
	return nil
}

// run is the background writer loop
func (r *Recorder) run() {
	defer close(r.finished)

	for {
		select {
		case <-r.wake:
			r.drain()
		case <-r.done:
			// Final flush before shutdown
			r.drain()
			return
		}
	}
}

// drain writes every queued event
func (r *Recorder) drain() {
	for {
		r.mu.Lock()
		if r.pending.Length() == 0 {
			r.mu.Unlock()
			return
		}
		ev := r.pending.Remove().(Event)
		r.mu.Unlock()

		if err := r.insert(ev); err != nil {
			Logger.Errorf("Failed to persist session event: %v", err)
		}
	}
}

func (r *Recorder) insert(ev Event) error {
	_, err := r.db.Exec(
		"INSERT INTO sessions (conn_id, remote_addr, event, at) VALUES (?, ?, ?, ?)",
		ev.ConnID, ev.RemoteAddr, string(ev.Type), ev.At.Unix())
	return err
}
