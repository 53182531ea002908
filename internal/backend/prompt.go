package backend

import (
	"fmt"
	"os"
	"runtime"
)

// QueryContext is the environment detail woven into the system prompt so
// the model suggests commands for the right platform.
type QueryContext struct {
	OS         string
	WorkingDir string
}

// DetectContext captures the current platform and working directory.
func DetectContext() QueryContext {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "~"
	}
	return QueryContext{OS: describeOS(), WorkingDir: cwd}
}

func describeOS() string {
	switch runtime.GOOS {
	case "darwin":
		return "macOS (use brew, not apt)"
	case "linux":
		return "Linux"
	default:
		return runtime.GOOS
	}
}

// BuildSystemPrompt builds the agent-focused system prompt.
func BuildSystemPrompt(qc QueryContext) string {
	return fmt.Sprintf(`You are cx, an AI terminal assistant.

OS: %s
Directory: %s

If the user wants to DO something on their computer (check files, install software, see system info, run programs), give a shell command in a `+"```bash"+` block.

If the user is just TALKING to you (greetings, questions about you, chitchat), respond naturally with text - no commands.

Keep commands simple. One command when possible. No explanations unless asked.`,
		qc.OS, qc.WorkingDir)
}
