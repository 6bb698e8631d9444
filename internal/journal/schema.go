package journal

import "time"

// Schema is applied on every Open; all statements are idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	kind TEXT NOT NULL,
	subject TEXT NOT NULL,
	details TEXT NOT NULL DEFAULT '{}',
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_kind ON events(kind);
CREATE INDEX IF NOT EXISTS idx_events_subject ON events(subject);

CREATE TABLE IF NOT EXISTS registrations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	agent_id TEXT NOT NULL,
	identity_handle TEXT,
	decentralized_id TEXT,
	complete BOOLEAN NOT NULL,
	failed_steps TEXT NOT NULL DEFAULT '[]',
	steps TEXT NOT NULL DEFAULT '[]',
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_registrations_agent ON registrations(agent_id);

CREATE TABLE IF NOT EXISTS hire_tasks (
	task_id TEXT PRIMARY KEY,
	agent_id TEXT NOT NULL,
	skill_id TEXT,
	client_id TEXT,
	status TEXT NOT NULL,
	error_code TEXT,
	output TEXT NOT NULL DEFAULT '{}',
	settlement_payer TEXT,
	settlement_payee TEXT,
	settlement_amount REAL,
	settlement_token TEXT,
	settlement_status TEXT,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_hire_tasks_agent ON hire_tasks(agent_id);
CREATE INDEX IF NOT EXISTS idx_hire_tasks_status ON hire_tasks(status);
`

// Event is one audit record.
type Event struct {
	ID        int64          `json:"id"`
	Kind      string         `json:"kind"`
	Subject   string         `json:"subject"`
	Details   map[string]any `json:"details"`
	CreatedAt time.Time      `json:"created_at"`
}

// RegistrationRecord is the stored summary of one registration.
type RegistrationRecord struct {
	ID              int64     `json:"id"`
	AgentID         string    `json:"agent_id"`
	IdentityHandle  string    `json:"identity_handle,omitempty"`
	DecentralizedID string    `json:"decentralized_id,omitempty"`
	Complete        bool      `json:"complete"`
	FailedSteps     []string  `json:"failed_steps"`
	CreatedAt       time.Time `json:"created_at"`
}

// HireTaskRecord is the stored form of a hire task.
type HireTaskRecord struct {
	TaskID           string         `json:"task_id"`
	AgentID          string         `json:"agent_id"`
	SkillID          string         `json:"skill_id"`
	ClientID         string         `json:"client_id"`
	Status           string         `json:"status"`
	ErrorCode        string         `json:"error_code,omitempty"`
	Output           map[string]any `json:"output,omitempty"`
	SettlementPayer  string         `json:"settlement_payer,omitempty"`
	SettlementPayee  string         `json:"settlement_payee,omitempty"`
	SettlementAmount float64        `json:"settlement_amount,omitempty"`
	SettlementToken  string         `json:"settlement_token,omitempty"`
	SettlementStatus string         `json:"settlement_status,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
}
