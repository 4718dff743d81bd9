package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service is the in-process report sink. It keeps per-agent records in memory
// for report generation and mirrors every record into the SQLite store when
// one is attached. Both the store mirror and report file writes are
// best-effort: errors are logged and swallowed, never propagated to callers
// on the primary task path.
type Service struct {
	mu            sync.Mutex
	activities    []Activity
	tasks         map[string][]TaskRecord
	consultations map[string][]ConsultationRecord

	reportsDir string
	store      *Store
	log        *zap.Logger
	now        func() time.Time
}

// NewService creates a report sink writing markdown reports under reportsDir.
// store may be nil (no persistence).
func NewService(reportsDir string, store *Store, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		tasks:         make(map[string][]TaskRecord),
		consultations: make(map[string][]ConsultationRecord),
		reportsDir:    reportsDir,
		store:         store,
		log:           log,
		now:           time.Now,
	}
}

// LogActivity records a generic agent activity.
func (s *Service) LogActivity(agentName, activityType, description string, fields map[string]any) error {
	a := Activity{
		ID:          uuid.NewString(),
		AgentName:   agentName,
		Type:        activityType,
		Description: description,
		Timestamp:   s.now(),
		Fields:      fields,
	}

	s.mu.Lock()
	s.activities = append(s.activities, a)
	s.mu.Unlock()

	if s.store != nil {
		if err := s.store.AppendActivity(a); err != nil {
			s.log.Warn("failed to persist activity", zap.String("agent", agentName), zap.Error(err))
			return err
		}
	}
	return nil
}

// LogTaskExecution records a task execution and mirrors it as an activity.
func (s *Service) LogTaskExecution(agentName, task, taskType string, success bool, duration time.Duration, result string) error {
	t := TaskRecord{
		ID:        uuid.NewString(),
		AgentName: agentName,
		Task:      task,
		TaskType:  taskType,
		Success:   success,
		Duration:  duration,
		Result:    truncate(result, maxQueryLen),
		Timestamp: s.now(),
	}

	s.mu.Lock()
	s.tasks[agentName] = append(s.tasks[agentName], t)
	s.mu.Unlock()

	status := "successful"
	if !success {
		status = "failed"
	}
	_ = s.LogActivity(agentName, "task_execution",
		fmt.Sprintf("Executed %s: %s (%s)", taskType, truncate(task, 100), status),
		map[string]any{"task_type": taskType, "success": success, "duration_ms": t.Duration.Milliseconds()})

	if s.store != nil {
		if err := s.store.AppendTask(t); err != nil {
			s.log.Warn("failed to persist task execution", zap.String("agent", agentName), zap.Error(err))
			return err
		}
	}
	return nil
}

// LogConsultation records an inter-agent consultation attempt.
func (s *Service) LogConsultation(fromAgent, toAgent, query string, success bool, duration time.Duration) error {
	c := ConsultationRecord{
		ID:        uuid.NewString(),
		FromAgent: fromAgent,
		ToAgent:   toAgent,
		Query:     truncate(query, maxQueryLen),
		Success:   success,
		Duration:  duration,
		Timestamp: s.now(),
	}

	s.mu.Lock()
	s.consultations[fromAgent] = append(s.consultations[fromAgent], c)
	s.mu.Unlock()

	status := "successful"
	if !success {
		status = "failed"
	}
	_ = s.LogActivity(fromAgent, "consultation",
		fmt.Sprintf("Consulted %s: %s (%s)", toAgent, truncate(query, 100), status),
		map[string]any{"to_agent": toAgent, "success": success, "duration_ms": duration.Milliseconds()})

	if s.store != nil {
		if err := s.store.AppendConsultation(c); err != nil {
			s.log.Warn("failed to persist consultation", zap.String("from", fromAgent), zap.Error(err))
			return err
		}
	}
	return nil
}

// AgentActivities returns the recorded activities for one agent, in order.
func (s *Service) AgentActivities(agentName string) []Activity {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Activity
	for _, a := range s.activities {
		if a.AgentName == agentName {
			out = append(out, a)
		}
	}
	return out
}

// GenerateAgentReport renders the markdown report for one agent.
func (s *Service) GenerateAgentReport(agentName string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "# Agent Report: %s\n\n", agentName)
	fmt.Fprintf(&b, "**Generated:** %s\n\n", s.now().Format("2006-01-02 15:04:05"))

	var activities []Activity
	for _, a := range s.activities {
		if a.AgentName == agentName {
			activities = append(activities, a)
		}
	}
	fmt.Fprintf(&b, "## Total activities: %d\n\n", len(activities))

	if tasks := s.tasks[agentName]; len(tasks) > 0 {
		fmt.Fprintf(&b, "### Executed tasks (%d)\n\n", len(tasks))
		for i, t := range tasks {
			icon := "OK"
			if !t.Success {
				icon = "FAILED"
			}
			fmt.Fprintf(&b, "%d. **[%s] %s**\n", i+1, icon, t.TaskType)
			fmt.Fprintf(&b, "   - Task: %s\n", t.Task)
			fmt.Fprintf(&b, "   - Time: %s\n", t.Timestamp.Format(time.RFC3339))
			fmt.Fprintf(&b, "   - Duration: %dms\n", t.Duration.Milliseconds())
			if t.Result != "" {
				fmt.Fprintf(&b, "   - Result: %s\n", t.Result)
			}
		}
		b.WriteString("\n")
	}

	if consults := s.consultations[agentName]; len(consults) > 0 {
		fmt.Fprintf(&b, "### Consultations (%d)\n\n", len(consults))
		for i, c := range consults {
			icon := "OK"
			if !c.Success {
				icon = "FAILED"
			}
			fmt.Fprintf(&b, "%d. **[%s] -> %s**\n", i+1, icon, c.ToAgent)
			fmt.Fprintf(&b, "   - Query: %s\n", c.Query)
			fmt.Fprintf(&b, "   - Duration: %dms\n", c.Duration.Milliseconds())
		}
		b.WriteString("\n")
	}

	if len(activities) > 0 {
		b.WriteString("### Activity log\n\n")
		for _, a := range activities {
			fmt.Fprintf(&b, "- `%s` [%s] %s\n", a.Timestamp.Format("15:04:05"), a.Type, a.Description)
		}
		b.WriteString("\n")
	}

	return b.String()
}

// SaveAgentReport writes the agent's report to
// reportsDir/YYYY-MM-DD/<agent>_<HHMM>.md and returns the path.
func (s *Service) SaveAgentReport(agentName string) (string, error) {
	now := s.now()
	dateDir := filepath.Join(s.reportsDir, now.Format("2006-01-02"))
	if err := os.MkdirAll(dateDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	path := filepath.Join(dateDir, fmt.Sprintf("%s_%s.md", agentName, now.Format("1504")))
	if err := os.WriteFile(path, []byte(s.GenerateAgentReport(agentName)), 0644); err != nil {
		return "", fmt.Errorf("failed to write agent report: %w", err)
	}
	return path, nil
}

// SaveSummaryReport writes a cross-agent summary to
// reportsDir/YYYY-MM-DD/Summary_<HHMM>.md and returns the path.
func (s *Service) SaveSummaryReport() (string, error) {
	now := s.now()
	dateDir := filepath.Join(s.reportsDir, now.Format("2006-01-02"))
	if err := os.MkdirAll(dateDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	path := filepath.Join(dateDir, fmt.Sprintf("Summary_%s.md", now.Format("1504")))
	if err := os.WriteFile(path, []byte(s.generateSummary()), 0644); err != nil {
		return "", fmt.Errorf("failed to write summary report: %w", err)
	}
	return path, nil
}

func (s *Service) generateSummary() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[string]int)
	for _, a := range s.activities {
		counts[a.AgentName]++
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("# Summary Report\n\n")
	fmt.Fprintf(&b, "**Generated:** %s\n\n", s.now().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Total activities: %d across %d agent(s)\n\n", len(s.activities), len(names))
	for _, name := range names {
		fmt.Fprintf(&b, "- **%s**: %d activities, %d tasks, %d consultations\n",
			name, counts[name], len(s.tasks[name]), len(s.consultations[name]))
	}
	return b.String()
}
