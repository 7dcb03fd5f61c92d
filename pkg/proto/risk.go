// Package proto holds the small set of shared wire-level enums used across
// the tool approval and policy layers.
package proto

// RiskLevel classifies how dangerous a tool invocation is, driving approval
// policy decisions in internal/tools/policy.
type RiskLevel int32

const (
	RiskLevel_RISK_LEVEL_UNSPECIFIED RiskLevel = 0
	RiskLevel_RISK_LEVEL_LOW         RiskLevel = 1
	RiskLevel_RISK_LEVEL_MEDIUM      RiskLevel = 2
	RiskLevel_RISK_LEVEL_HIGH        RiskLevel = 3
	RiskLevel_RISK_LEVEL_CRITICAL    RiskLevel = 4
)

func (r RiskLevel) String() string {
	switch r {
	case RiskLevel_RISK_LEVEL_LOW:
		return "low"
	case RiskLevel_RISK_LEVEL_MEDIUM:
		return "medium"
	case RiskLevel_RISK_LEVEL_HIGH:
		return "high"
	case RiskLevel_RISK_LEVEL_CRITICAL:
		return "critical"
	default:
		return "unspecified"
	}
}
