// Package journal is the append-only SQLite audit journal. It records
// identity events, registration outcomes and hire tasks; nothing reads
// state back from it.
package journal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/opspawn/hedera-apex-marketplace/internal/clock"
	"github.com/opspawn/hedera-apex-marketplace/internal/marketplace"
)

// Event kinds written by the journal itself.
const (
	KindRegistration = "agent.registered"
	KindHireTask     = "hire.task"
)

const timeLayout = time.RFC3339Nano

// Journal writes audit records to SQLite.
type Journal struct {
	db    *sql.DB
	clock clock.Clock
}

// Open opens or creates the journal database at path.
func Open(path string, c clock.Clock) (*Journal, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open journal db: %w", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	if c == nil {
		c = clock.Real()
	}
	return &Journal{db: db, clock: c}, nil
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// DB returns the underlying database handle.
func (j *Journal) DB() *sql.DB {
	return j.db
}

func (j *Journal) now() string {
	return j.clock.Now().UTC().Format(timeLayout)
}

// Record appends an event. It satisfies identity.Auditor.
func (j *Journal) Record(kind, subject string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	data, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("marshal %s details: %w", kind, err)
	}
	_, err = j.db.Exec(`INSERT INTO events (kind, subject, details, created_at) VALUES (?, ?, ?, ?)`,
		kind, subject, string(data), j.now())
	if err != nil {
		return fmt.Errorf("insert event %s: %w", kind, err)
	}
	return nil
}

// RecordRegistration stores a registration outcome and a matching event.
// It satisfies marketplace.Recorder.
func (j *Journal) RecordRegistration(result marketplace.RegistrationResult) error {
	failed := result.FailedSteps()
	if failed == nil {
		failed = []string{}
	}
	failedJSON, err := json.Marshal(failed)
	if err != nil {
		return fmt.Errorf("marshal failed steps: %w", err)
	}
	stepsJSON, err := json.Marshal(result.Steps)
	if err != nil {
		return fmt.Errorf("marshal steps: %w", err)
	}
	_, err = j.db.Exec(`INSERT INTO registrations
		(agent_id, identity_handle, decentralized_id, complete, failed_steps, steps, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		result.AgentID, result.IdentityHandle, result.DecentralizedID, result.Complete(),
		string(failedJSON), string(stepsJSON), j.now())
	if err != nil {
		return fmt.Errorf("insert registration %s: %w", result.AgentID, err)
	}
	return j.Record(KindRegistration, result.AgentID, map[string]any{
		"identity_handle": result.IdentityHandle,
		"complete":        result.Complete(),
		"failed_steps":    failed,
	})
}

// RecordHireTask stores a hire task. Re-recording a task id replaces the
// stored status and settlement.
func (j *Journal) RecordHireTask(task marketplace.HireTask) error {
	output := task.Output
	if output == nil {
		output = map[string]any{}
	}
	outJSON, err := json.Marshal(output)
	if err != nil {
		return fmt.Errorf("marshal task output: %w", err)
	}
	var payer, payee, token, sstatus sql.NullString
	var amount sql.NullFloat64
	if s := task.Settlement; s != nil {
		payer = sql.NullString{String: s.Payer, Valid: true}
		payee = sql.NullString{String: s.Payee, Valid: true}
		token = sql.NullString{String: s.Token, Valid: true}
		sstatus = sql.NullString{String: string(s.Status), Valid: true}
		amount = sql.NullFloat64{Float64: s.Amount, Valid: true}
	}
	_, err = j.db.Exec(`INSERT INTO hire_tasks
		(task_id, agent_id, skill_id, client_id, status, error_code, output,
		 settlement_payer, settlement_payee, settlement_amount, settlement_token, settlement_status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(task_id) DO UPDATE SET
			status = excluded.status,
			error_code = excluded.error_code,
			output = excluded.output,
			settlement_payer = excluded.settlement_payer,
			settlement_payee = excluded.settlement_payee,
			settlement_amount = excluded.settlement_amount,
			settlement_token = excluded.settlement_token,
			settlement_status = excluded.settlement_status`,
		task.TaskID, task.AgentID, task.SkillID, task.ClientID, string(task.Status), task.ErrorCode(), string(outJSON),
		payer, payee, amount, token, sstatus, task.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("upsert hire task %s: %w", task.TaskID, err)
	}
	return j.Record(KindHireTask, task.TaskID, map[string]any{
		"agent_id": task.AgentID,
		"status":   string(task.Status),
	})
}

// ListEvents returns events newest first, filtered by kind unless empty. A
// non-positive limit returns all.
func (j *Journal) ListEvents(kind string, limit int) ([]Event, error) {
	query := `SELECT id, kind, subject, details, created_at FROM events`
	var args []any
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, kind)
	}
	query += ` ORDER BY id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := j.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		var details, created string
		if err := rows.Scan(&e.ID, &e.Kind, &e.Subject, &details, &created); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if err := json.Unmarshal([]byte(details), &e.Details); err != nil {
			return nil, fmt.Errorf("decode event %d details: %w", e.ID, err)
		}
		e.CreatedAt, _ = time.Parse(timeLayout, created)
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListRegistrations returns registration records newest first.
func (j *Journal) ListRegistrations(limit int) ([]RegistrationRecord, error) {
	query := `SELECT id, agent_id, COALESCE(identity_handle, ''), COALESCE(decentralized_id, ''), complete, failed_steps, created_at
		FROM registrations ORDER BY id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := j.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query registrations: %w", err)
	}
	defer rows.Close()

	var out []RegistrationRecord
	for rows.Next() {
		var r RegistrationRecord
		var failed, created string
		if err := rows.Scan(&r.ID, &r.AgentID, &r.IdentityHandle, &r.DecentralizedID, &r.Complete, &failed, &created); err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		if err := json.Unmarshal([]byte(failed), &r.FailedSteps); err != nil {
			return nil, fmt.Errorf("decode registration %d: %w", r.ID, err)
		}
		r.CreatedAt, _ = time.Parse(timeLayout, created)
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListHireTasks returns hire tasks in creation order, filtered by agent
// unless agentID is empty.
func (j *Journal) ListHireTasks(agentID string, limit int) ([]HireTaskRecord, error) {
	query := `SELECT task_id, agent_id, COALESCE(skill_id, ''), COALESCE(client_id, ''), status,
		COALESCE(error_code, ''), output,
		COALESCE(settlement_payer, ''), COALESCE(settlement_payee, ''), COALESCE(settlement_amount, 0),
		COALESCE(settlement_token, ''), COALESCE(settlement_status, ''), created_at
		FROM hire_tasks`
	var args []any
	if agentID != "" {
		query += ` WHERE agent_id = ?`
		args = append(args, agentID)
	}
	query += ` ORDER BY created_at ASC, rowid ASC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := j.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query hire tasks: %w", err)
	}
	defer rows.Close()

	var out []HireTaskRecord
	for rows.Next() {
		var r HireTaskRecord
		var output, created string
		if err := rows.Scan(&r.TaskID, &r.AgentID, &r.SkillID, &r.ClientID, &r.Status, &r.ErrorCode, &output,
			&r.SettlementPayer, &r.SettlementPayee, &r.SettlementAmount, &r.SettlementToken, &r.SettlementStatus, &created); err != nil {
			return nil, fmt.Errorf("scan hire task: %w", err)
		}
		if err := json.Unmarshal([]byte(output), &r.Output); err != nil {
			return nil, fmt.Errorf("decode hire task %s output: %w", r.TaskID, err)
		}
		r.CreatedAt, _ = time.Parse(timeLayout, created)
		out = append(out, r)
	}
	return out, rows.Err()
}
