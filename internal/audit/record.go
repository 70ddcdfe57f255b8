// Package audit keeps decision records for rtcheck runs: one entry per
// analyzer verdict or design outcome, keyed by a hash of its inputs so that
// repeated runs on the same input can be compared.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fentz26/rtcheck/internal/sched"
)

// Actions recorded by the CLI.
const (
	ActionAnalyze = "analyze"
	ActionDesign  = "design"
)

// Record is one decision.
type Record struct {
	ID         string    `json:"id"`
	RunID      string    `json:"run_id"`
	Action     string    `json:"action"`
	Subject    string    `json:"subject"`
	InputsHash string    `json:"inputs_hash"`
	Outcome    string    `json:"outcome"`
	Details    string    `json:"details,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Log collects the records of one run in memory.
type Log struct {
	mu      sync.Mutex
	runID   string
	records []Record
	now     func() time.Time
}

// NewLog creates an empty log with a fresh run ID.
func NewLog() *Log {
	return &Log{
		runID: uuid.New().String(),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// RunID identifies the run every record belongs to.
func (l *Log) RunID() string { return l.runID }

// Record appends a decision for a state-changing outcome.
func (l *Log) Record(action, subject string, inputs any, outcome, details string) Record {
	rec := Record{
		ID:         uuid.New().String(),
		RunID:      l.runID,
		Action:     action,
		Subject:    subject,
		InputsHash: HashInputs(inputs),
		Outcome:    outcome,
		Details:    details,
		Timestamp:  l.now(),
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, rec)
	return rec
}

// RecordOutcome records subject with the kind of err as outcome and the
// error text as details.
func (l *Log) RecordOutcome(action, subject string, inputs any, err error) Record {
	details := ""
	if err != nil {
		details = err.Error()
	}
	return l.Record(action, subject, inputs, sched.KindOf(err).String(), details)
}

// Records returns a copy of every record in insertion order.
func (l *Log) Records() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Record(nil), l.records...)
}

// Find returns the records whose inputs hash to hash.
func (l *Log) Find(hash string) []Record {
	l.mu.Lock()
	defer l.mu.Unlock()

	var found []Record
	for _, rec := range l.records {
		if rec.InputsHash == hash {
			found = append(found, rec)
		}
	}
	return found
}

// WriteJSON writes the records as JSON lines.
func (l *Log) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	for _, rec := range l.Records() {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("writing record %s: %w", rec.ID, err)
		}
	}
	return nil
}

// HashInputs creates a SHA256 hash of the inputs for reproducibility.
func HashInputs(inputs any) string {
	data, err := json.Marshal(inputs)
	if err != nil {
		return "hash_error"
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
