package report

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// Store persists activity records to SQLite so reports survive process
// restarts. The pure-Go driver keeps the module CGO-free.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

const schema = `
CREATE TABLE IF NOT EXISTS activities (
	id          TEXT PRIMARY KEY,
	agent_name  TEXT NOT NULL,
	type        TEXT NOT NULL,
	description TEXT NOT NULL,
	ts          INTEGER NOT NULL,
	fields      TEXT
);
CREATE INDEX IF NOT EXISTS idx_activities_agent ON activities(agent_name, ts);

CREATE TABLE IF NOT EXISTS task_executions (
	id          TEXT PRIMARY KEY,
	agent_name  TEXT NOT NULL,
	task        TEXT NOT NULL,
	task_type   TEXT NOT NULL,
	success     INTEGER NOT NULL,
	duration_ms REAL NOT NULL,
	result      TEXT,
	ts          INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tasks_agent ON task_executions(agent_name, ts);

CREATE TABLE IF NOT EXISTS consultations (
	id          TEXT PRIMARY KEY,
	from_agent  TEXT NOT NULL,
	to_agent    TEXT NOT NULL,
	query       TEXT NOT NULL,
	success     INTEGER NOT NULL,
	duration_ms REAL NOT NULL,
	ts          INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_consultations_from ON consultations(from_agent, ts);
`

// OpenStore initializes the activity database at path, creating directories
// and schema as needed.
func OpenStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create activity store directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open activity store: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	// WAL + NORMAL is the standard tradeoff here: the store only ever appends.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy_timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set journal_mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set synchronous: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize activity schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// AppendActivity inserts one activity record.
func (s *Store) AppendActivity(a Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var fields []byte
	if len(a.Fields) > 0 {
		var err error
		fields, err = json.Marshal(a.Fields)
		if err != nil {
			return fmt.Errorf("failed to encode activity fields: %w", err)
		}
	}
	_, err := s.db.Exec(
		`INSERT INTO activities (id, agent_name, type, description, ts, fields) VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.AgentName, a.Type, a.Description, a.Timestamp.UnixMilli(), string(fields),
	)
	return err
}

// AppendTask inserts one task execution record.
func (s *Store) AppendTask(t TaskRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT INTO task_executions (id, agent_name, task, task_type, success, duration_ms, result, ts) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.AgentName, t.Task, t.TaskType, boolToInt(t.Success),
		float64(t.Duration.Microseconds())/1000.0, t.Result, t.Timestamp.UnixMilli(),
	)
	return err
}

// AppendConsultation inserts one consultation record.
func (s *Store) AppendConsultation(c ConsultationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT INTO consultations (id, from_agent, to_agent, query, success, duration_ms, ts) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.FromAgent, c.ToAgent, c.Query, boolToInt(c.Success),
		float64(c.Duration.Microseconds())/1000.0, c.Timestamp.UnixMilli(),
	)
	return err
}

// CountActivities returns the number of stored activities for an agent.
func (s *Store) CountActivities(agentName string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM activities WHERE agent_name = ?`, agentName).Scan(&n)
	return n, err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
