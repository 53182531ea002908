package safety

import "strings"

// Policy is an ordered, read-only classification table. Rules are applied
// with fixed precedence: blocked, then the sudo floor, then dangerous,
// then moderate, then safe, then the moderate default. The table is built
// once at init and never mutated, so a single process-wide instance is
// shared by every caller.
type Policy struct {
	blocked   []string
	dangerous []string
	moderate  []string
	safe      []string
}

// sudoPrefix marks a command that requests privileged execution.
const sudoPrefix = "sudo "

// defaultPolicy is the process-wide classification table.
var defaultPolicy = &Policy{
	// Patterns that are never executed, under any code path.
	blocked: []string{
		"rm -rf /",
		"rm -rf /*",
		"dd if=/dev/zero of=/dev/sd",
		"mkfs",
		":(){:|:&};:",
		"> /dev/sda",
		"chmod -R 777 /",
	},

	// Destructive operations that require explicit confirmation.
	dangerous: []string{
		"rm", "mv", "dd", "chmod", "chown",
		"git reset", "git rebase", "git push --force",
		"docker rm", "docker rmi", "docker system prune",
		"kill", "pkill", "killall",
		"systemctl stop", "systemctl disable",
	},

	// State-changing but recoverable operations.
	moderate: []string{
		"mkdir", "touch", "cp", "git add", "git commit",
		"npm install", "pip install", "cargo build",
		"docker run", "docker start", "docker stop",
		"brew install", "apt install", "dnf install",
	},

	// Read-only / informational command prefixes, eligible to auto-execute.
	safe: []string{
		"ls", "pwd", "date", "whoami", "hostname", "uname",
		"cat", "head", "tail", "less", "more", "wc",
		"df", "du", "free", "top", "ps", "uptime",
		"which", "whereis", "type", "file", "stat",
		"echo", "printf", "env", "printenv",
		"git status", "git log", "git diff", "git branch",
		"docker ps", "docker images", "docker logs",
		"npm list", "pip list", "cargo --version",
		"curl -I", "ping -c", "dig", "nslookup", "host",
		"id", "groups", "last", "w", "who",
		"find", "grep", "awk", "sed -n", "sort", "uniq",
		"ip addr", "ifconfig", "netstat", "ss",
	},
}

// Default returns the process-wide policy table.
func Default() *Policy {
	return defaultPolicy
}

// Classify maps a command string to its risk tier using the default policy.
func Classify(command string) Tier {
	return defaultPolicy.Classify(command)
}

// Classify maps a command string to exactly one risk tier.
func (p *Policy) Classify(command string) Tier {
	cmd := strings.TrimSpace(strings.ToLower(command))

	// Blocked wins over everything; no later rule can downgrade it.
	for _, pattern := range p.blocked {
		if matchBlocked(cmd, pattern) {
			return Blocked
		}
	}

	// A privileged command never silently escalates: it is Dangerous if it
	// matches a destructive pattern and floored at Moderate otherwise.
	if strings.HasPrefix(cmd, sudoPrefix) {
		for _, pattern := range p.dangerous {
			if strings.Contains(cmd, pattern) {
				return Dangerous
			}
		}
		return Moderate
	}

	for _, pattern := range p.dangerous {
		if matchWord(cmd, pattern) {
			return Dangerous
		}
	}

	for _, pattern := range p.moderate {
		if matchWord(cmd, pattern) {
			return Moderate
		}
	}

	for _, pattern := range p.safe {
		if strings.HasPrefix(cmd, pattern) {
			return Safe
		}
	}

	// Unknown commands are fail-safe: never auto-executed.
	return Moderate
}

// matchWord reports whether the command starts with the pattern or contains
// it as a space-delimited word. This deliberately mirrors the inherited
// policy, including its known under/over-match edges (see DESIGN.md).
func matchWord(cmd, pattern string) bool {
	return strings.HasPrefix(cmd, pattern) || strings.Contains(cmd, " "+pattern)
}

// matchBlocked reports whether the command contains a blocked pattern.
// Patterns targeting the filesystem root (trailing "/") only match when the
// root path is a complete token, so "rm -rf /" blocks "sudo rm -rf /" but
// not "rm -rf /tmp/x".
func matchBlocked(cmd, pattern string) bool {
	if !strings.HasSuffix(pattern, "/") {
		return strings.Contains(cmd, pattern)
	}
	idx := 0
	for {
		i := strings.Index(cmd[idx:], pattern)
		if i < 0 {
			return false
		}
		end := idx + i + len(pattern)
		if end == len(cmd) || cmd[end] == ' ' || cmd[end] == '\t' {
			return true
		}
		idx += i + 1
	}
}
