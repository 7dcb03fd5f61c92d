// Package teamstore implements file-backed team/task storage: a per-team
// directory holding config.json, tasks.json, a JSONL mailbox per recipient,
// and a tasks.lock file guarding read-modify-write mutations.
package teamstore

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// TaskStatus is a teammate task's lifecycle state.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskActive    TaskStatus = "active"
	TaskCompleted TaskStatus = "completed"
	TaskDeleted   TaskStatus = "deleted"
)

// Task is one unit of work tracked in a team's tasks.json.
type Task struct {
	ID          string     `json:"id"`
	Subject     string     `json:"subject"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
	Owner       string     `json:"owner,omitempty"`
	BlockedBy   []string   `json:"blocked_by,omitempty"`
	Blocks      []string   `json:"blocks,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TeamConfig is a team's config.json.
type TeamConfig struct {
	Name      string   `json:"name"`
	Teammates []string `json:"teammates"`
}

// lockTimeout bounds how long Store waits to acquire tasks.lock before
// giving up, to keep a stuck holder from wedging every caller forever.
const lockTimeout = 10 * time.Second

// Store manages one team's directory under baseDir/<team>/.
type Store struct {
	dir  string
	lock *flock.Flock
	mu   sync.Mutex
}

// Open returns a Store rooted at baseDir/team, creating the directory and
// mailbox subdirectory if absent.
func Open(baseDir, team string) (*Store, error) {
	dir := filepath.Join(baseDir, team)
	if err := os.MkdirAll(filepath.Join(dir, "mailbox"), 0o755); err != nil {
		return nil, fmt.Errorf("create team dir: %w", err)
	}
	return &Store{
		dir:  dir,
		lock: flock.New(filepath.Join(dir, "tasks.lock")),
	}, nil
}

func (s *Store) tasksPath() string  { return filepath.Join(s.dir, "tasks.json") }
func (s *Store) configPath() string { return filepath.Join(s.dir, "config.json") }

// WithTasks takes the exclusive tasks.lock, reads the current task list,
// runs fn against a mutable copy, writes the result back, then releases the
// lock. The lock is never held across any I/O other than this read/write.
func (s *Store) WithTasks(fn func(tasks []Task) ([]Task, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()
	locked, err := s.lock.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return fmt.Errorf("acquire tasks lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("acquire tasks lock: timed out after %s", lockTimeout)
	}
	defer s.lock.Unlock()

	tasks, err := s.readTasksLocked()
	if err != nil {
		return err
	}
	updated, err := fn(tasks)
	if err != nil {
		return err
	}
	return s.writeTasksLocked(updated)
}

func (s *Store) readTasksLocked() ([]Task, error) {
	data, err := os.ReadFile(s.tasksPath())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var tasks []Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("parse tasks.json: %w", err)
	}
	return tasks, nil
}

func (s *Store) writeTasksLocked(tasks []Task) error {
	data, err := json.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.tasksPath(), data, 0o644)
}

// AssignTask sets a task's owner, failing if any of its BlockedBy tasks are
// not yet TaskCompleted.
func (s *Store) AssignTask(taskID, owner string) error {
	return s.WithTasks(func(tasks []Task) ([]Task, error) {
		byID := make(map[string]*Task, len(tasks))
		for i := range tasks {
			byID[tasks[i].ID] = &tasks[i]
		}
		target, ok := byID[taskID]
		if !ok {
			return tasks, fmt.Errorf("task %q not found", taskID)
		}
		for _, dep := range target.BlockedBy {
			depTask, ok := byID[dep]
			if !ok || depTask.Status != TaskCompleted {
				return tasks, fmt.Errorf("task %q is blocked by incomplete dependency %q", taskID, dep)
			}
		}
		target.Owner = owner
		target.Status = TaskActive
		target.UpdatedAt = time.Now()
		return tasks, nil
	})
}

// RemoveTeammate deletes a teammate from config.json, failing if they hold
// any active or pending task.
func (s *Store) RemoveTeammate(name string) error {
	return s.WithTasks(func(tasks []Task) ([]Task, error) {
		for _, t := range tasks {
			if t.Owner == name && (t.Status == TaskActive || t.Status == TaskPending) {
				return tasks, fmt.Errorf("teammate %q holds task %q (%s)", name, t.ID, t.Status)
			}
		}
		cfg, err := s.readConfig()
		if err != nil {
			return tasks, err
		}
		cfg.Teammates = removeString(cfg.Teammates, name)
		if err := s.writeConfig(cfg); err != nil {
			return tasks, err
		}
		return tasks, nil
	})
}

func (s *Store) readConfig() (TeamConfig, error) {
	data, err := os.ReadFile(s.configPath())
	if os.IsNotExist(err) {
		return TeamConfig{}, nil
	}
	if err != nil {
		return TeamConfig{}, err
	}
	var cfg TeamConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return TeamConfig{}, fmt.Errorf("parse config.json: %w", err)
	}
	return cfg, nil
}

func (s *Store) writeConfig(cfg TeamConfig) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.configPath(), data, 0o644)
}

func removeString(list []string, target string) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		if v != target {
			out = append(out, v)
		}
	}
	return out
}

// Mailbox message envelope appended to mailbox/<recipient>.jsonl.
type Mailbox struct {
	From string    `json:"from"`
	To   string    `json:"to"`
	Body string    `json:"body"`
	Sent time.Time `json:"sent"`
}

// Send appends msg to the recipient's mailbox file. Mailbox writes are
// append-only; concurrent senders to different recipients never contend.
func (s *Store) Send(recipient string, msg Mailbox) error {
	path := filepath.Join(s.dir, "mailbox", recipient+".jsonl")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	line, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	_, err = f.Write(append(line, '\n'))
	return err
}

// offsetPath is where a recipient's last-read byte offset is persisted.
func (s *Store) offsetPath(recipient string) string {
	return filepath.Join(s.dir, "mailbox", recipient+".offset")
}

// ReadNew returns messages appended to recipient's mailbox since the last
// ReadNew call, then persists the new read offset.
func (s *Store) ReadNew(recipient string) ([]Mailbox, error) {
	path := filepath.Join(s.dir, "mailbox", recipient+".jsonl")
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	offset := s.readOffset(recipient)
	if _, err := f.Seek(offset, 0); err != nil {
		return nil, err
	}

	var messages []Mailbox
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	var read int64
	for scanner.Scan() {
		line := scanner.Bytes()
		read += int64(len(line)) + 1
		var msg Mailbox
		if err := json.Unmarshal(line, &msg); err != nil {
			continue
		}
		messages = append(messages, msg)
	}
	if err := scanner.Err(); err != nil {
		return messages, err
	}
	if err := os.WriteFile(s.offsetPath(recipient), []byte(fmt.Sprintf("%d", offset+read)), 0o644); err != nil {
		return messages, err
	}
	return messages, nil
}

func (s *Store) readOffset(recipient string) int64 {
	data, err := os.ReadFile(s.offsetPath(recipient))
	if err != nil {
		return 0
	}
	var offset int64
	_, _ = fmt.Sscanf(string(data), "%d", &offset)
	return offset
}
