package constants

import "strings"

// AutonomyMode controls how many tool-call iterations the agent may spend
// on a single run before the session is cut off.
type AutonomyMode string

const (
	AutonomyAssisted   AutonomyMode = "ASSISTED"
	AutonomySupervised AutonomyMode = "SUPERVISED"
	AutonomyAutonomous AutonomyMode = "AUTONOMOUS"
)

// Iteration ceilings per mode.
const (
	assistedMaxIterations   = 8
	supervisedMaxIterations = 16
	autonomousMaxIterations = 32
)

// MaxIterations returns the tool-call ceiling for the mode.
// Unknown modes fall back to the most conservative tier.
func (m AutonomyMode) MaxIterations() int {
	switch m {
	case AutonomySupervised:
		return supervisedMaxIterations
	case AutonomyAutonomous:
		return autonomousMaxIterations
	default:
		return assistedMaxIterations
	}
}

// ParseAutonomyMode normalizes a raw mode string.
func ParseAutonomyMode(s string) AutonomyMode {
	switch AutonomyMode(strings.ToUpper(strings.TrimSpace(s))) {
	case AutonomySupervised:
		return AutonomySupervised
	case AutonomyAutonomous:
		return AutonomyAutonomous
	default:
		return AutonomyAssisted
	}
}
