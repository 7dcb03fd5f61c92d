package models

// TokenCounts summarizes the dual-channel token accounting for a tool output.
// Invariant: LLMTokens <= UITokens once summarization has run.
type TokenCounts struct {
	UITokens       int     `json:"ui_tokens"`
	LLMTokens      int     `json:"llm_tokens"`
	SavingsTokens  int     `json:"savings_tokens"`
	SavingsPercent float64 `json:"savings_percent"`
}

// ComputeTokenCounts derives SavingsTokens/SavingsPercent from UITokens/LLMTokens.
// SavingsPercent is clamped to [0, 100]; it is zero when UITokens is zero.
func ComputeTokenCounts(uiTokens, llmTokens int) TokenCounts {
	if llmTokens > uiTokens {
		llmTokens = uiTokens
	}
	savings := uiTokens - llmTokens
	if savings < 0 {
		savings = 0
	}
	percent := 0.0
	if uiTokens > 0 {
		percent = float64(savings) / float64(uiTokens) * 100
		if percent < 0 {
			percent = 0
		}
	}
	return TokenCounts{
		UITokens:       uiTokens,
		LLMTokens:      llmTokens,
		SavingsTokens:  savings,
		SavingsPercent: percent,
	}
}

// ToolOutput is the dual-channel result of executing a tool: a verbose
// UIContent for display and a condensed LLMContent for model context.
type ToolOutput struct {
	ToolCallID  string         `json:"tool_call_id"`
	ToolName    string         `json:"tool_name"`
	UIContent   string         `json:"ui_content"`
	LLMContent  string         `json:"llm_content"`
	Tokens      TokenCounts    `json:"token_counts"`
	Success     bool           `json:"success"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	StdoutTail  string         `json:"stdout,omitempty"`
	ModifiedFiles []string     `json:"modified_files,omitempty"`
	HasMore     bool           `json:"has_more,omitempty"`
}

// ToolExecutionStatusKind tags the variant carried by a ToolExecutionStatus.
type ToolExecutionStatusKind string

const (
	StatusSuccess   ToolExecutionStatusKind = "success"
	StatusFailure   ToolExecutionStatusKind = "failure"
	StatusTimeout   ToolExecutionStatusKind = "timeout"
	StatusCancelled ToolExecutionStatusKind = "cancelled"
	StatusBlocked   ToolExecutionStatusKind = "blocked"
)

// ToolExecutionStatus is a tagged union over the outcome of one tool call.
// Exactly the fields relevant to Kind are populated.
type ToolExecutionStatus struct {
	Kind ToolExecutionStatusKind `json:"kind"`

	// Success fields
	Output         *ToolOutput `json:"output,omitempty"`
	Stdout         string      `json:"stdout,omitempty"`
	ModifiedFiles  []string    `json:"modified_files,omitempty"`
	CommandSuccess bool        `json:"command_success,omitempty"`
	HasMore        bool        `json:"has_more,omitempty"`

	// Failure/Timeout fields
	Error string `json:"error,omitempty"`

	// Blocked fields
	Reason string `json:"reason,omitempty"`
}

// NewSuccessStatus builds a Success-variant ToolExecutionStatus.
func NewSuccessStatus(output *ToolOutput, stdout string, modifiedFiles []string, commandSuccess, hasMore bool) ToolExecutionStatus {
	return ToolExecutionStatus{
		Kind:           StatusSuccess,
		Output:         output,
		Stdout:         stdout,
		ModifiedFiles:  modifiedFiles,
		CommandSuccess: commandSuccess,
		HasMore:        hasMore,
	}
}

// NewFailureStatus builds a Failure-variant ToolExecutionStatus.
func NewFailureStatus(err string) ToolExecutionStatus {
	return ToolExecutionStatus{Kind: StatusFailure, Error: err}
}

// NewTimeoutStatus builds a Timeout-variant ToolExecutionStatus.
func NewTimeoutStatus(err string) ToolExecutionStatus {
	return ToolExecutionStatus{Kind: StatusTimeout, Error: err}
}

// NewCancelledStatus builds a Cancelled-variant ToolExecutionStatus.
func NewCancelledStatus() ToolExecutionStatus {
	return ToolExecutionStatus{Kind: StatusCancelled}
}

// NewBlockedStatus builds a Blocked-variant ToolExecutionStatus.
func NewBlockedStatus(reason string) ToolExecutionStatus {
	return ToolExecutionStatus{Kind: StatusBlocked, Reason: reason}
}
