package pty

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

var sanitizeIDPattern = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

func sanitizeID(id string) string {
	return sanitizeIDPattern.ReplaceAllString(id, "_")
}

// terminalsDir is where SyncSessionsToFiles mirrors session buffers so the
// agent can inspect terminal output through its ordinary read_file tool.
func (m *Manager) terminalsDir() string {
	return filepath.Join(m.workspace, ".vtcode", "terminals")
}

// SyncSessionsToFiles writes each session's current scrollback buffer to
// <workspace>/.vtcode/terminals/<sanitized-id>.txt and refreshes INDEX.md
// with the list of currently active sessions.
func (m *Manager) SyncSessionsToFiles() error {
	dir := m.terminalsDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create terminals dir: %w", err)
	}

	infos := m.ListSessions()
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })

	var index strings.Builder
	index.WriteString("# Active terminal sessions\n\n")

	for _, info := range infos {
		s, ok := m.get(info.ID)
		if !ok {
			continue
		}
		name := sanitizeID(info.ID) + ".txt"
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(s.term.snapshot()), 0o644); err != nil {
			return fmt.Errorf("write terminal buffer %s: %w", name, err)
		}
		fmt.Fprintf(&index, "- `%s` — %s %s (%s) → %s\n",
			info.ID, info.Command, strings.Join(info.Args, " "), info.Status, name)
	}

	return os.WriteFile(filepath.Join(dir, "INDEX.md"), []byte(index.String()), 0o644)
}
