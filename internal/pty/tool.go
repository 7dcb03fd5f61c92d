package pty

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vtcode/vtcode/internal/agent"
)

// Tool exposes the PTY manager's operations to the agent as a single
// action-dispatched tool, grounded on internal/tools/exec's ExecTool shape.
type Tool struct {
	name    string
	manager *Manager
}

// NewTool creates a PTY tool backed by manager.
func NewTool(manager *Manager) *Tool {
	return &Tool{name: "terminal", manager: manager}
}

func (t *Tool) Name() string { return t.name }

func (t *Tool) Description() string {
	return "Spawn and interact with long-lived shell sessions via a pseudo-terminal: " +
		"spawn, list, read_output, send_input, resize, is_completed, close, terminate_all."
}

func (t *Tool) Schema() json.RawMessage {
	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"action": map[string]interface{}{
				"type": "string",
				"enum": []string{"spawn", "list", "snapshot", "read_output", "send_input",
					"resize", "is_completed", "close", "terminate_all"},
			},
			"session_id":     map[string]interface{}{"type": "string"},
			"command":        map[string]interface{}{"type": "string"},
			"args":           map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
			"cwd":            map[string]interface{}{"type": "string"},
			"cols":           map[string]interface{}{"type": "integer"},
			"rows":           map[string]interface{}{"type": "integer"},
			"input":          map[string]interface{}{"type": "string"},
			"append_newline": map[string]interface{}{"type": "boolean"},
			"drain":          map[string]interface{}{"type": "boolean"},
		},
		"required": []string{"action"},
	}
	payload, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return payload
}

type ptyParams struct {
	Action        string   `json:"action"`
	SessionID     string   `json:"session_id"`
	Command       string   `json:"command"`
	Args          []string `json:"args"`
	Cwd           string   `json:"cwd"`
	Cols          int      `json:"cols"`
	Rows          int      `json:"rows"`
	Input         string   `json:"input"`
	AppendNewline bool     `json:"append_newline"`
	Drain         bool     `json:"drain"`
}

func (t *Tool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	if t.manager == nil {
		return toolError("pty manager unavailable"), nil
	}
	var p ptyParams
	if err := json.Unmarshal(params, &p); err != nil {
		return toolError(fmt.Sprintf("invalid params: %v", err)), nil
	}

	switch strings.ToLower(p.Action) {
	case "spawn":
		if p.Command == "" {
			return toolError("command is required"), nil
		}
		id, err := t.manager.Spawn(p.Command, p.Args, Size{Cols: p.Cols, Rows: p.Rows}, p.Cwd)
		if err != nil {
			return toolError(err.Error()), nil
		}
		return toolOK(fmt.Sprintf("session_id=%s", id)), nil

	case "list":
		infos := t.manager.ListSessions()
		var sb strings.Builder
		for _, info := range infos {
			fmt.Fprintf(&sb, "%s\t%s %s\t%s\n", info.ID, info.Command, strings.Join(info.Args, " "), info.Status)
		}
		return toolOK(sb.String()), nil

	case "snapshot":
		out, ok := t.manager.Snapshot(p.SessionID)
		if !ok {
			return toolError("session not found"), nil
		}
		return toolOK(out), nil

	case "read_output":
		out, ok := t.manager.ReadOutput(p.SessionID, p.Drain)
		if !ok {
			return toolError("session not found"), nil
		}
		return toolOK(out), nil

	case "send_input":
		n, err := t.manager.SendInput(p.SessionID, []byte(p.Input), p.AppendNewline)
		if err != nil {
			return toolError(err.Error()), nil
		}
		return toolOK(fmt.Sprintf("wrote %d bytes", n)), nil

	case "resize":
		if err := t.manager.Resize(p.SessionID, Size{Cols: p.Cols, Rows: p.Rows}); err != nil {
			return toolError(err.Error()), nil
		}
		return toolOK("resized"), nil

	case "is_completed":
		code, done := t.manager.IsCompleted(p.SessionID)
		if !done {
			return toolOK("running"), nil
		}
		return toolOK(fmt.Sprintf("exit_code=%d", *code)), nil

	case "close":
		meta, err := t.manager.Close(p.SessionID)
		if err != nil {
			return toolError(err.Error()), nil
		}
		return toolOK(fmt.Sprintf("closed session_id=%s exit_code=%v", meta.ID, meta.ExitCode)), nil

	case "terminate_all":
		t.manager.TerminateAll()
		return toolOK("terminated all sessions"), nil

	default:
		return toolError(fmt.Sprintf("unknown action %q", p.Action)), nil
	}
}

func toolOK(content string) *agent.ToolResult {
	return &agent.ToolResult{Content: content}
}

func toolError(content string) *agent.ToolResult {
	return &agent.ToolResult{Content: content, IsError: true}
}
