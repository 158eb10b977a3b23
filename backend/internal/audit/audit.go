// Package audit implements structured JSON audit logging for every
// authorization decision and every policy mutation.
package audit

import (
	"encoding/json"
	"log"
	"os"
	"sync"
	"time"
)

// Principal identifies the caller an audit entry is about.
type Principal struct {
	HRN  string `json:"hrn"`
	Type string `json:"type"` // entity type, e.g. "DocApp::User"
}

// Entry represents one structured audit log entry: either an
// authorization decision or a policy store mutation.
type Entry struct {
	Timestamp time.Time     `json:"timestamp"`
	RequestID string        `json:"request_id"`
	Principal Principal     `json:"principal"`
	Action    string        `json:"action"`
	Resource  string        `json:"resource,omitempty"`
	Decision  string        `json:"decision,omitempty"`
	PolicyOp  string        `json:"policy_op,omitempty"`
	PolicyID  string        `json:"policy_id,omitempty"`
	Reason    string        `json:"reason,omitempty"`
	Latency   time.Duration `json:"latency_ns"`
}

// Logger handles structured audit logging.
type Logger struct {
	mu       sync.Mutex
	file     *os.File
	encoder  *json.Encoder
	fallback *log.Logger
}

// NewLogger creates a new audit logger. If filePath is empty, logs to
// stdout in JSON format.
func NewLogger(filePath string) (*Logger, error) {
	var file *os.File
	var err error

	if filePath != "" {
		file, err = os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, err
		}
	} else {
		file = os.Stdout
	}

	return &Logger{
		file:     file,
		encoder:  json.NewEncoder(file),
		fallback: log.New(os.Stderr, "[audit] ", log.LstdFlags),
	}, nil
}

// Log writes an audit entry.
func (l *Logger) Log(entry Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	if err := l.encoder.Encode(entry); err != nil {
		l.fallback.Printf("failed to write audit entry: %v, entry: %+v", err, entry)
	}
}

// LogDecision is a convenience method for logging one authorization
// decision.
func (l *Logger) LogDecision(requestID string, principal Principal, action, resource, decision string, latency time.Duration) {
	l.Log(Entry{
		RequestID: requestID,
		Principal: principal,
		Action:    action,
		Resource:  resource,
		Decision:  decision,
		Latency:   latency,
	})
}

// LogPolicyMutation is a convenience method for logging a policy store
// mutation (create/update/delete).
func (l *Logger) LogPolicyMutation(requestID string, principal Principal, op, policyID string) {
	l.Log(Entry{
		RequestID: requestID,
		Principal: principal,
		PolicyOp:  op,
		PolicyID:  policyID,
	})
}

// Close closes the audit log file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil && l.file != os.Stdout {
		return l.file.Close()
	}
	return nil
}
