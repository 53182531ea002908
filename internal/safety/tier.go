// Package safety classifies shell commands by risk tier.
//
// Classification is total and deterministic: every command string maps to
// exactly one Tier, using only the command text. Nothing here touches the
// filesystem, environment, or process state, so the classifier can be unit
// tested in isolation.
package safety

// Tier is the risk classification of a single command.
type Tier int

const (
	// Safe commands are read-only and may auto-execute (ls, pwd, cat, ...).
	Safe Tier = iota

	// Moderate commands change state but are recoverable (mkdir, git add,
	// package installs). They are also the default for unknown commands.
	Moderate

	// Dangerous commands are potentially destructive (rm, dd, chmod) and
	// always require explicit confirmation.
	Dangerous

	// Blocked commands are never executed, regardless of confirmation or
	// any other code path (rm -rf /, mkfs, fork bombs).
	Blocked
)

// String returns the display name of the tier.
func (t Tier) String() string {
	switch t {
	case Safe:
		return "safe"
	case Moderate:
		return "moderate"
	case Dangerous:
		return "dangerous"
	case Blocked:
		return "blocked"
	default:
		return "unknown"
	}
}
