package sessions

// ScopeConfig holds session scoping configuration.
// This mirrors config.SessionScopeConfig to avoid import cycles.
type ScopeConfig struct {
	// Reset configures default session reset behavior.
	Reset ResetConfig

	// ResetByType configures reset behavior per conversation type (repl, task, subagent).
	ResetByType map[string]ResetConfig
}

// ResetConfig controls when sessions are automatically reset.
type ResetConfig struct {
	// Mode is the reset mode: "daily", "idle", "daily+idle", or "never" (default).
	Mode string

	// AtHour is the hour (0-23) to reset sessions when mode includes "daily".
	AtHour int

	// IdleMinutes is the number of minutes of inactivity before reset when mode includes "idle".
	IdleMinutes int
}

// SessionKeyBuilder builds session keys based on scoping configuration.
type SessionKeyBuilder struct {
	cfg ScopeConfig
}

// NewSessionKeyBuilder creates a new SessionKeyBuilder with the given configuration.
func NewSessionKeyBuilder(cfg ScopeConfig) *SessionKeyBuilder {
	return &SessionKeyBuilder{cfg: cfg}
}

// BuildKey generates a session key for an agent's conversation.
// Parameters:
//   - agentID: the agent identifier
//   - convType: the conversation kind (repl, task, subagent)
//   - peerID: the conversation's stable identifier (task ID, subagent call ID, or
//     empty for the single interactive repl conversation)
//   - threadID: optional sub-thread identifier within the conversation
func (b *SessionKeyBuilder) BuildKey(agentID string, convType string, peerID string, threadID string) string {
	base := agentID + ":" + convType
	if peerID != "" {
		base += ":" + peerID
	}
	if threadID != "" {
		base += ":" + threadID
	}
	return base
}

// BuildSessionKey is a convenience function for building session keys directly.
func BuildSessionKey(agentID string, convType string, peerID string) string {
	builder := &SessionKeyBuilder{}
	return builder.BuildKey(agentID, convType, peerID, "")
}

// BuildSessionKeyWithThread builds a session key with thread support.
func BuildSessionKeyWithThread(agentID string, convType string, peerID string, threadID string) string {
	builder := &SessionKeyBuilder{}
	return builder.BuildKey(agentID, convType, peerID, threadID)
}
