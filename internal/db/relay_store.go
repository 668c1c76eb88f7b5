package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/banshee-data/roi-relay/internal/objmeta"
	"github.com/banshee-data/roi-relay/internal/timeutil"
)

// ErrRunNotFound is returned when a run ID has no row.
var ErrRunNotFound = errors.New("db: run not found")

// Run is one invocation of a pipeline over a stream of frames.
type Run struct {
	RunID        string `json:"run_id"`
	ConfigPath   string `json:"config_path"`
	Version      string `json:"version"`
	StartedAt    int64  `json:"started_at"`
	FinishedAt   *int64 `json:"finished_at,omitempty"`
	Frames       uint64 `json:"frames"`
	FailedFrames uint64 `json:"failed_frames"`
	Relayed      uint64 `json:"relayed"`
}

// RelayRecord is one attribute copied onto a parent node.
type RelayRecord struct {
	RecordID     int64   `json:"record_id"`
	RunID        string  `json:"run_id"`
	FrameID      string  `json:"frame_id"`
	SourceID     string  `json:"source_id,omitempty"`
	PTS          int64   `json:"pts,omitempty"`
	NodeID       uint64  `json:"node_id"`
	ExternalID   uint64  `json:"external_id,omitempty"`
	NodeCategory string  `json:"node_category"`
	NodeLabel    string  `json:"node_label"`
	AttrCategory string  `json:"attr_category"`
	AttrLabel    string  `json:"attr_label"`
	Value        any     `json:"value"`
	Confidence   float64 `json:"confidence"`
	RecordedAt   int64   `json:"recorded_at"`
}

// RelayStore provides persistence for runs and relayed attributes.
type RelayStore struct {
	db    *sql.DB
	clock timeutil.Clock
}

// NewRelayStore creates a RelayStore using the wall clock.
func NewRelayStore(db *sql.DB) *RelayStore {
	return &RelayStore{db: db, clock: timeutil.RealClock{}}
}

// NewRelayStoreWithClock creates a RelayStore with an injected clock.
func NewRelayStoreWithClock(db *sql.DB, clock timeutil.Clock) *RelayStore {
	return &RelayStore{db: db, clock: clock}
}

// StartRun inserts a new run. If run.RunID is empty, a new UUID is
// generated; StartedAt defaults to now.
func (s *RelayStore) StartRun(run *Run) error {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.StartedAt == 0 {
		run.StartedAt = s.clock.Now().UnixNano()
	}
	_, err := s.db.Exec(`
		INSERT INTO relay_runs (run_id, config_path, version, started_at)
		VALUES (?, ?, ?, ?)
	`, run.RunID, run.ConfigPath, run.Version, run.StartedAt)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// FinishRun stores the final counters of a run.
func (s *RelayStore) FinishRun(runID string, frames, failedFrames, relayed uint64) error {
	res, err := s.db.Exec(`
		UPDATE relay_runs
		SET finished_at = ?, frames = ?, failed_frames = ?, relayed = ?
		WHERE run_id = ?
	`, s.clock.Now().UnixNano(), frames, failedFrames, relayed, runID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: %w", runID, ErrRunNotFound)
	}
	return nil
}

// GetRun returns the run with the given ID.
func (s *RelayStore) GetRun(runID string) (*Run, error) {
	var run Run
	var finished sql.NullInt64
	err := s.db.QueryRow(`
		SELECT run_id, config_path, version, started_at, finished_at, frames, failed_frames, relayed
		FROM relay_runs WHERE run_id = ?
	`, runID).Scan(&run.RunID, &run.ConfigPath, &run.Version, &run.StartedAt, &finished,
		&run.Frames, &run.FailedFrames, &run.Relayed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get run %s: %w", runID, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	if finished.Valid {
		run.FinishedAt = &finished.Int64
	}
	return &run, nil
}

// InsertRelay stores one relayed attribute. The value is stored as JSON.
func (s *RelayStore) InsertRelay(rec *RelayRecord) error {
	value, err := json.Marshal(rec.Value)
	if err != nil {
		return fmt.Errorf("failed to encode attribute value: %w", err)
	}
	if rec.RecordedAt == 0 {
		rec.RecordedAt = s.clock.Now().UnixNano()
	}
	res, err := s.db.Exec(`
		INSERT INTO relayed_attributes (
			run_id, frame_id, source_id, pts, node_id, external_id, node_category, node_label,
			attr_category, attr_label, value_json, confidence, recorded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.RunID, rec.FrameID, rec.SourceID, rec.PTS, rec.NodeID, rec.ExternalID, rec.NodeCategory, rec.NodeLabel,
		rec.AttrCategory, rec.AttrLabel, string(value), rec.Confidence, rec.RecordedAt)
	if err != nil {
		return fmt.Errorf("failed to insert relayed attribute: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		rec.RecordID = id
	}
	return nil
}

// ListRelays returns the relayed attributes of a run in insertion order.
func (s *RelayStore) ListRelays(runID string) ([]RelayRecord, error) {
	rows, err := s.db.Query(`
		SELECT record_id, run_id, frame_id, source_id, pts, node_id, external_id, node_category, node_label,
		       attr_category, attr_label, value_json, confidence, recorded_at
		FROM relayed_attributes
		WHERE run_id = ?
		ORDER BY record_id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query relayed attributes: %w", err)
	}
	defer rows.Close()

	var out []RelayRecord
	for rows.Next() {
		var rec RelayRecord
		var value string
		if err := rows.Scan(&rec.RecordID, &rec.RunID, &rec.FrameID, &rec.SourceID, &rec.PTS,
			&rec.NodeID, &rec.ExternalID, &rec.NodeCategory, &rec.NodeLabel, &rec.AttrCategory, &rec.AttrLabel,
			&value, &rec.Confidence, &rec.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan relayed attribute: %w", err)
		}
		if err := json.Unmarshal([]byte(value), &rec.Value); err != nil {
			return nil, fmt.Errorf("record %d: failed to decode value: %w", rec.RecordID, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// RelayRecorder stores relays for one run. Observe matches the relay
// hook of the attribute relay stage; since the hook cannot fail, the
// first write error is kept and reported by Err.
type RelayRecorder struct {
	store *RelayStore
	runID string

	mu    sync.Mutex
	count uint64
	err   error
}

// Recorder returns a RelayRecorder bound to runID.
func (s *RelayStore) Recorder(runID string) *RelayRecorder {
	return &RelayRecorder{store: s, runID: runID}
}

// Observe records attr as relayed onto parent in frame.
func (r *RelayRecorder) Observe(frame *objmeta.Frame, parent *objmeta.ObjectNode, attr objmeta.Attribute) {
	rec := &RelayRecord{
		RunID:        r.runID,
		FrameID:      frame.FrameID,
		SourceID:     frame.SourceID,
		PTS:          frame.PTS,
		NodeID:       uint64(parent.ID()),
		ExternalID:   parent.ExternalID,
		NodeCategory: parent.Category,
		NodeLabel:    parent.Label,
		AttrCategory: attr.Category,
		AttrLabel:    attr.Label,
		Value:        attr.Value,
		Confidence:   attr.Confidence,
	}
	err := r.store.InsertRelay(rec)

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		if r.err == nil {
			r.err = err
		}
		return
	}
	r.count++
}

// Count returns the number of relays stored.
func (r *RelayRecorder) Count() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Err returns the first write error, if any.
func (r *RelayRecorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}
