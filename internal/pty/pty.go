// Package pty multiplexes long-lived shell sessions behind pseudo-terminals:
// spawn, read, write, resize, and gracefully terminate, with a scrollback
// buffer the agent can inspect between reads.
package pty

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"
	"github.com/google/uuid"
)

// Status is a PTY session's lifecycle state.
type Status string

const (
	StatusSpawning Status = "spawning"
	StatusRunning  Status = "running"
	StatusExiting  Status = "exiting"
	StatusClosed   Status = "closed"
)

// killGrace is how long terminate waits after SIGTERM before escalating to
// SIGKILL.
const killGrace = 3 * time.Second

// Size is a terminal's column/row dimensions.
type Size struct {
	Cols int
	Rows int
}

// Metadata is returned from Close: a snapshot of the session at the moment
// it stopped being live.
type Metadata struct {
	ID       string
	Command  string
	Args     []string
	ExitCode *int
	Output   string
	ClosedAt time.Time
}

// Info is a lightweight session descriptor for ListSessions.
type Info struct {
	ID      string
	Command string
	Args    []string
	Cwd     string
	Size    Size
	Status  Status
}

// Session is one managed PTY-backed child process.
//
// Lock order is fixed to avoid deadlock: writer -> child -> reader-thread.
// The terminal's own lock (see terminal.go) is independent of the master fd
// and is never held while the writer or child locks are held.
type Session struct {
	id      string
	command string
	args    []string
	cwd     string

	writerMu sync.Mutex
	master   *os.File

	childMu  sync.Mutex
	cmd      *exec.Cmd
	status   Status
	exitCode *int

	term       *terminal
	readCursor int

	readerDone chan struct{}
	exited     chan struct{} // closed once, by awaitExit, after cmd.Wait() returns
}

// Manager owns the set of live PTY sessions.
type Manager struct {
	mu        sync.RWMutex
	sessions  map[string]*Session
	workspace string
}

// NewManager creates a Manager rooted at workspace (used by
// SyncSessionsToFiles for the .vtcode/terminals mirror).
func NewManager(workspace string) *Manager {
	return &Manager{
		sessions:  make(map[string]*Session),
		workspace: workspace,
	}
}

// Spawn starts command under a new PTY of the given size and returns its
// session ID.
func (m *Manager) Spawn(command string, args []string, size Size, cwd string) (string, error) {
	if size.Cols <= 0 {
		size.Cols = 80
	}
	if size.Rows <= 0 {
		size.Rows = 24
	}

	cmd := exec.Command(command, args...)
	if cwd != "" {
		cmd.Dir = cwd
	}

	master, err := pty.StartWithSize(cmd, &pty.Winsize{Cols: uint16(size.Cols), Rows: uint16(size.Rows)})
	if err != nil {
		return "", fmt.Errorf("spawn pty: %w", err)
	}

	sess := &Session{
		id:         uuid.NewString(),
		command:    command,
		args:       args,
		cwd:        cwd,
		master:     master,
		cmd:        cmd,
		status:     StatusRunning,
		term:       newTerminal(size.Cols, size.Rows),
		readerDone: make(chan struct{}),
		exited:     make(chan struct{}),
	}

	go sess.pumpOutput()
	go sess.awaitExit()

	m.mu.Lock()
	m.sessions[sess.id] = sess
	m.mu.Unlock()

	return sess.id, nil
}

func (s *Session) pumpOutput() {
	defer close(s.readerDone)
	buf := make([]byte, 4096)
	for {
		n, err := s.master.Read(buf)
		if n > 0 {
			s.term.write(buf[:n])
		}
		if err != nil {
			return
		}
	}
}

// awaitExit is the single, sole caller of cmd.Wait() for this session;
// terminateChild only sends signals and waits on s.exited, never Wait()
// itself, since calling Wait() twice on an *exec.Cmd is invalid.
func (s *Session) awaitExit() {
	err := s.cmd.Wait()
	s.childMu.Lock()
	code := 0
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.ExitCode()
	}
	s.exitCode = &code
	s.status = StatusExiting
	s.childMu.Unlock()
	close(s.exited)
}

// ListSessions returns a descriptor for every tracked session.
func (m *Manager) ListSessions() []Info {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Info, 0, len(m.sessions))
	for _, s := range m.sessions {
		s.childMu.Lock()
		status := s.status
		s.childMu.Unlock()
		s.term.mu.RLock()
		size := Size{Cols: s.term.cols, Rows: s.term.rows}
		s.term.mu.RUnlock()
		out = append(out, Info{
			ID: s.id, Command: s.command, Args: s.args, Cwd: s.cwd,
			Size: size, Status: status,
		})
	}
	return out
}

func (m *Manager) get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Snapshot returns the full retained scrollback for a session.
func (m *Manager) Snapshot(id string) (string, bool) {
	s, ok := m.get(id)
	if !ok {
		return "", false
	}
	return s.term.snapshot(), true
}

// ReadOutput returns output appended since the last ReadOutput call. If
// drain is true the read cursor advances past what's returned.
func (m *Manager) ReadOutput(id string, drain bool) (string, bool) {
	s, ok := m.get(id)
	if !ok {
		return "", false
	}
	return s.term.read(drain, &s.readCursor), true
}

// SendInput writes data to the session's PTY master, optionally appending a
// trailing newline, and returns the number of bytes written.
func (m *Manager) SendInput(id string, data []byte, appendNewline bool) (int, error) {
	s, ok := m.get(id)
	if !ok {
		return 0, fmt.Errorf("pty session %q not found", id)
	}
	if appendNewline {
		data = append(append([]byte(nil), data...), '\n')
	}
	s.writerMu.Lock()
	defer s.writerMu.Unlock()
	return s.master.Write(data)
}

// Resize changes a session's PTY window size.
func (m *Manager) Resize(id string, size Size) error {
	s, ok := m.get(id)
	if !ok {
		return fmt.Errorf("pty session %q not found", id)
	}
	if err := pty.Setsize(s.master, &pty.Winsize{Cols: uint16(size.Cols), Rows: uint16(size.Rows)}); err != nil {
		return err
	}
	s.term.resize(size.Cols, size.Rows)
	return nil
}

// IsCompleted reports whether the session's child has exited, and its exit
// code if so.
func (m *Manager) IsCompleted(id string) (*int, bool) {
	s, ok := m.get(id)
	if !ok {
		return nil, false
	}
	s.childMu.Lock()
	defer s.childMu.Unlock()
	return s.exitCode, s.exitCode != nil
}

// Close terminates a session following the fixed lock order: remove from
// the session map, write a trailing "exit\n", gracefully terminate the
// child (SIGTERM then SIGKILL after a grace period), join the reader
// goroutine, and return a metadata snapshot.
func (m *Manager) Close(id string) (*Metadata, error) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("pty session %q not found", id)
	}

	s.writerMu.Lock()
	_, _ = s.master.Write([]byte("exit\n"))
	s.writerMu.Unlock()

	s.terminateChild()

	<-s.readerDone

	_ = s.master.Close()

	s.childMu.Lock()
	exitCode := s.exitCode
	s.status = StatusClosed
	s.childMu.Unlock()

	return &Metadata{
		ID:       s.id,
		Command:  s.command,
		Args:     s.args,
		ExitCode: exitCode,
		Output:   s.term.snapshot(),
		ClosedAt: time.Now(),
	}, nil
}

func (s *Session) terminateChild() {
	s.childMu.Lock()
	proc := s.cmd.Process
	alreadyExited := s.exitCode != nil
	s.status = StatusExiting
	s.childMu.Unlock()

	if alreadyExited || proc == nil {
		return
	}

	_ = proc.Signal(syscall.SIGTERM)
	select {
	case <-s.exited:
	case <-time.After(killGrace):
		_ = proc.Signal(syscall.SIGKILL)
		<-s.exited
	}
}

// TerminateAll closes every live session, best-effort, ignoring individual
// errors (used on process shutdown).
func (m *Manager) TerminateAll() {
	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	for _, id := range ids {
		_, _ = m.Close(id)
	}
}
