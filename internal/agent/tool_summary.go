package agent

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/vtcode/vtcode/pkg/models"
)

// ExecuteDual runs a tool by name and applies per-tool summarization,
// returning the dual-channel ToolOutput (verbose UI content, condensed
// LLM content) in addition to the raw ToolResult semantics of Execute.
func (r *ToolRegistry) ExecuteDual(ctx context.Context, toolCallID, name string, params json.RawMessage) (*models.ToolOutput, error) {
	result, err := r.Execute(ctx, name, params)
	if err != nil {
		return nil, err
	}
	output := SummarizeToolOutput(toolCallID, name, result.Content, result.IsError)
	return output, nil
}

// dualOutputTools is the set of tool names (and common aliases) whose raw
// content receives per-tool summarization into a condensed LLM channel,
// per spec 4.3's execute_tool_dual facade (grep, list, read, bash, write, edit).
var dualOutputTools = map[string]func(string) string{
	"grep":        summarizeGrepOutput,
	"grep_search": summarizeGrepOutput,
	"search":      summarizeGrepOutput,
	"list":        summarizeListOutput,
	"list_dir":    summarizeListOutput,
	"read":        summarizeReadOutput,
	"read_file":   summarizeReadOutput,
	"bash":        summarizeBashOutput,
	"command":     summarizeBashOutput,
	"run_command": summarizeBashOutput,
	"write":       summarizeWriteOutput,
	"write_file":  summarizeWriteOutput,
	"edit":        summarizeEditOutput,
	"edit_file":   summarizeEditOutput,
	"apply_patch": summarizeEditOutput,
}

// maxSummaryLines caps how many lines of verbose output survive into the
// condensed LLM channel for line-oriented tools (grep, list, read).
const maxSummaryLines = 40

// SummarizeToolOutput builds a ToolOutput with dual UI/LLM channels for the
// named tool. Tools outside dualOutputTools pass the raw content through on
// both channels unchanged.
func SummarizeToolOutput(toolCallID, toolName, content string, isError bool) *models.ToolOutput {
	ui := content
	llm := content
	if summarize, ok := dualOutputTools[toolName]; ok && !isError {
		llm = summarize(content)
	}
	uiTokens := estimateTokens(ui)
	llmTokens := estimateTokens(llm)
	return &models.ToolOutput{
		ToolCallID: toolCallID,
		ToolName:   toolName,
		UIContent:  ui,
		LLMContent: llm,
		Tokens:     models.ComputeTokenCounts(uiTokens, llmTokens),
		Success:    !isError,
	}
}

// estimateTokens is a rough, provider-agnostic token estimate (~4 chars per
// token) used only to populate TokenCounts for display; it is not a
// tokenizer and must not be relied on for provider request budgeting.
func estimateTokens(s string) int {
	if s == "" {
		return 0
	}
	return (len(s) + 3) / 4
}

func summarizeGrepOutput(content string) string {
	lines := strings.Split(content, "\n")
	if len(lines) <= maxSummaryLines {
		return content
	}
	kept := lines[:maxSummaryLines]
	return strings.Join(kept, "\n") + "\n… " + strconv.Itoa(len(lines)-maxSummaryLines) + " more matches truncated"
}

func summarizeListOutput(content string) string {
	lines := strings.Split(content, "\n")
	if len(lines) <= maxSummaryLines {
		return content
	}
	kept := lines[:maxSummaryLines]
	return strings.Join(kept, "\n") + "\n… " + strconv.Itoa(len(lines)-maxSummaryLines) + " more entries truncated"
}

func summarizeReadOutput(content string) string {
	lines := strings.Split(content, "\n")
	if len(lines) <= maxSummaryLines {
		return content
	}
	head := lines[:maxSummaryLines/2]
	tail := lines[len(lines)-maxSummaryLines/2:]
	return strings.Join(head, "\n") + "\n… " + strconv.Itoa(len(lines)-maxSummaryLines) + " lines omitted …\n" + strings.Join(tail, "\n")
}

func summarizeBashOutput(content string) string {
	lines := strings.Split(strings.TrimRight(content, "\n"), "\n")
	const tailLines = 30
	if len(lines) <= tailLines {
		return content
	}
	return "… " + strconv.Itoa(len(lines)-tailLines) + " lines omitted …\n" + strings.Join(lines[len(lines)-tailLines:], "\n")
}

func summarizeWriteOutput(content string) string {
	if len(content) <= 200 {
		return content
	}
	return content[:200] + "… (truncated)"
}

func summarizeEditOutput(content string) string {
	lines := strings.Split(content, "\n")
	if len(lines) <= maxSummaryLines {
		return content
	}
	added, removed := 0, 0
	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++"):
			added++
		case strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "---"):
			removed++
		}
	}
	return strings.Join(lines[:maxSummaryLines], "\n") + "\n… diff truncated (+" + strconv.Itoa(added) + "/-" + strconv.Itoa(removed) + " total)"
}
