package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"arbiter-hq/arbiter/pkg/policy/engine"
)

// Record is one audited evaluation.
type Record struct {
	// ID uniquely identifies the record.
	ID string `json:"id"`

	// SubjectID, ResourceID, and ActionName identify the request.
	SubjectID  string `json:"subject_id"`
	ResourceID string `json:"resource_id"`
	ActionName string `json:"action_name"`

	// Decision is the final decision.
	Decision engine.Decision `json:"decision"`

	// EvaluatedPolicies and MatchedRules mirror the evaluation result.
	EvaluatedPolicies []string             `json:"evaluated_policies"`
	MatchedRules      []engine.MatchedRule `json:"matched_rules"`

	// Duration is how long the evaluation took.
	Duration time.Duration `json:"duration"`

	// Timestamp is when the evaluation completed.
	Timestamp time.Time `json:"timestamp"`
}

// Filter narrows a Query. Zero-valued fields are ignored.
type Filter struct {
	// SubjectID restricts records to one subject.
	SubjectID string

	// Decision restricts records to one decision.
	Decision engine.Decision

	// Since restricts records to timestamps at or after this time.
	Since time.Time

	// Limit caps the number of returned records. Zero means 100.
	Limit int
}

// Store is an append-only audit trail backed by SQLite. It uses WAL
// mode and a single writer connection.
type Store struct {
	db *sql.DB

	closeOnce sync.Once

	insertStmt *sql.Stmt
}

// Open opens or creates the audit database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("audit database path cannot be empty")
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}

	// SQLite only supports a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize audit schema: %w", err)
	}
	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare audit statements: %w", err)
	}

	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS audit_records (
		id TEXT PRIMARY KEY,
		subject_id TEXT NOT NULL,
		resource_id TEXT NOT NULL,
		action_name TEXT NOT NULL,
		decision TEXT NOT NULL,
		evaluated_policies TEXT NOT NULL,
		matched_rules TEXT NOT NULL,
		duration_ns INTEGER NOT NULL,
		timestamp INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_audit_subject ON audit_records(subject_id);
	CREATE INDEX IF NOT EXISTS idx_audit_decision ON audit_records(decision);
	CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_records(timestamp);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) prepareStatements() error {
	var err error
	s.insertStmt, err = s.db.Prepare(`
		INSERT INTO audit_records
			(id, subject_id, resource_id, action_name, decision,
			 evaluated_policies, matched_rules, duration_ns, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert statement: %w", err)
	}
	return nil
}

// RecordEvaluation appends an audit record for the given evaluation.
func (s *Store) RecordEvaluation(ctx context.Context, evalCtx *engine.EvaluationContext, result *engine.EvaluationResult) (*Record, error) {
	record := &Record{
		ID:                uuid.New().String(),
		SubjectID:         evalCtx.Subject.ID,
		ResourceID:        evalCtx.Resource.ID,
		ActionName:        evalCtx.Action.Name,
		Decision:          result.Decision,
		EvaluatedPolicies: result.EvaluatedPolicies,
		MatchedRules:      result.MatchedRules,
		Duration:          result.Duration,
		Timestamp:         result.Timestamp,
	}

	policies, err := json.Marshal(record.EvaluatedPolicies)
	if err != nil {
		return nil, fmt.Errorf("failed to encode evaluated policies: %w", err)
	}
	rules, err := json.Marshal(record.MatchedRules)
	if err != nil {
		return nil, fmt.Errorf("failed to encode matched rules: %w", err)
	}

	_, err = s.insertStmt.ExecContext(ctx,
		record.ID,
		record.SubjectID,
		record.ResourceID,
		record.ActionName,
		string(record.Decision),
		string(policies),
		string(rules),
		record.Duration.Nanoseconds(),
		record.Timestamp.UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert audit record: %w", err)
	}

	return record, nil
}

// Query returns audit records matching the filter, newest first.
func (s *Store) Query(ctx context.Context, filter Filter) ([]*Record, error) {
	query := `
		SELECT id, subject_id, resource_id, action_name, decision,
		       evaluated_policies, matched_rules, duration_ns, timestamp
		FROM audit_records
		WHERE 1=1
	`
	var args []any

	if filter.SubjectID != "" {
		query += " AND subject_id = ?"
		args = append(args, filter.SubjectID)
	}
	if filter.Decision != "" {
		query += " AND decision = ?"
		args = append(args, string(filter.Decision))
	}
	if !filter.Since.IsZero() {
		query += " AND timestamp >= ?"
		args = append(args, filter.Since.UnixNano())
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " ORDER BY timestamp DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit records: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read audit records: %w", err)
	}

	return records, nil
}

func scanRecord(rows *sql.Rows) (*Record, error) {
	var (
		record     Record
		decision   string
		policies   string
		rules      string
		durationNs int64
		timestamp  int64
	)
	if err := rows.Scan(
		&record.ID,
		&record.SubjectID,
		&record.ResourceID,
		&record.ActionName,
		&decision,
		&policies,
		&rules,
		&durationNs,
		&timestamp,
	); err != nil {
		return nil, fmt.Errorf("failed to scan audit record: %w", err)
	}

	record.Decision = engine.Decision(decision)
	record.Duration = time.Duration(durationNs)
	record.Timestamp = time.Unix(0, timestamp).UTC()

	if err := json.Unmarshal([]byte(policies), &record.EvaluatedPolicies); err != nil {
		return nil, fmt.Errorf("failed to decode evaluated policies: %w", err)
	}
	if err := json.Unmarshal([]byte(rules), &record.MatchedRules); err != nil {
		return nil, fmt.Errorf("failed to decode matched rules: %w", err)
	}
	return &record, nil
}

// Count returns the total number of audit records.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_records").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count audit records: %w", err)
	}
	return count, nil
}

// Close releases the database. It is safe to call more than once.
func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.insertStmt != nil {
			s.insertStmt.Close()
		}
		err = s.db.Close()
	})
	return err
}
