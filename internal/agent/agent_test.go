package agent

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"cxterm/internal/confirm"
	"cxterm/internal/history"
)

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
}

// stubQuerier returns a canned response.
type stubQuerier struct {
	response string
	err      error
}

func (s *stubQuerier) Query(ctx context.Context, query string) (string, error) {
	return s.response, s.err
}

func newTestAgent(response, input string) (*Agent, *bytes.Buffer) {
	out := &bytes.Buffer{}
	a := New(&stubQuerier{response: response}, nil, strings.NewReader(input), out, nil)
	return a, out
}

func TestSingleSafeCommandAutoExecutes(t *testing.T) {
	requireShell(t)

	a, out := newTestAgent("```bash\necho hello\n```", "")
	err := a.Ask(context.Background(), "greet me", Options{})
	require.NoError(t, err)

	require.Contains(t, out.String(), "hello")
	require.NotContains(t, out.String(), "[E]xecute", "single safe commands must not prompt")
}

func TestMultiStepSafePlanAcceptsEnter(t *testing.T) {
	requireShell(t)

	a, out := newTestAgent("```bash\necho hello\necho world\n```", "\n")
	err := a.Ask(context.Background(), "greet me twice", Options{})
	require.NoError(t, err)

	require.Contains(t, out.String(), "(or Enter to execute)")
	require.Contains(t, out.String(), "hello")
	require.Contains(t, out.String(), "world")
}

func TestDangerousPlanPromptsAndCancels(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "marker")
	require.NoError(t, os.WriteFile(marker, []byte("x"), 0644))
	a, out := newTestAgent("```bash\nrm -rf "+marker+"\n```", "c\n")

	err := a.Ask(context.Background(), "remove the file", Options{})
	require.NoError(t, err)

	require.Contains(t, out.String(), "[E]xecute")
	require.Contains(t, out.String(), "Cancelled")
	_, statErr := os.Stat(marker)
	require.NoError(t, statErr, "cancelled plan must not run")
}

func TestDangerousPlanDryRun(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "marker")
	require.NoError(t, os.WriteFile(marker, []byte("x"), 0644))
	a, out := newTestAgent("```bash\nrm -rf "+marker+"\n```", "d\n")

	err := a.Ask(context.Background(), "remove the file", Options{})
	require.NoError(t, err)

	require.Contains(t, out.String(), "No commands were executed.")
	_, statErr := os.Stat(marker)
	require.NoError(t, statErr, "dry-run must not spawn anything")
}

func TestDangerousPlanExecutesAfterConfirmation(t *testing.T) {
	requireShell(t)

	marker := filepath.Join(t.TempDir(), "marker")
	require.NoError(t, os.WriteFile(marker, []byte("x"), 0644))
	a, _ := newTestAgent("```bash\nrm -rf "+marker+"\n```", "e\n")

	err := a.Ask(context.Background(), "remove the file", Options{})
	require.NoError(t, err)

	_, statErr := os.Stat(marker)
	require.True(t, os.IsNotExist(statErr))
}

func TestAutoConfirmSkipsPrompt(t *testing.T) {
	requireShell(t)

	marker := filepath.Join(t.TempDir(), "marker")
	require.NoError(t, os.WriteFile(marker, []byte("x"), 0644))
	a, out := newTestAgent("```bash\nrm -rf "+marker+"\n```", "")

	err := a.Ask(context.Background(), "remove the file", Options{AutoConfirm: true})
	require.NoError(t, err)

	require.NotContains(t, out.String(), "[E]xecute")
	_, statErr := os.Stat(marker)
	require.True(t, os.IsNotExist(statErr))
}

func TestInputClosedDuringConfirmation(t *testing.T) {
	a, _ := newTestAgent("```bash\nsudo touch /tmp/never\n```", "")

	err := a.Ask(context.Background(), "make the file", Options{})
	require.ErrorIs(t, err, confirm.ErrInputClosed)
}

func TestNoExecuteTextFormat(t *testing.T) {
	a, out := newTestAgent("Run this:\n```bash\necho hi\n```", "")

	err := a.Ask(context.Background(), "how do I greet", Options{NoExecute: true})
	require.NoError(t, err)

	require.Contains(t, out.String(), "echo hi")
	require.NotContains(t, out.String(), "[E]xecute")
}

func TestNoExecuteCommandsFormat(t *testing.T) {
	a, out := newTestAgent("```bash\necho one\necho two\n```", "")

	err := a.Ask(context.Background(), "q", Options{NoExecute: true, Format: "commands"})
	require.NoError(t, err)

	require.Equal(t, "echo one\necho two\n", out.String())
}

func TestNoExecuteJSONFormat(t *testing.T) {
	raw := `{"status":"success","source":"ollama","response":"run echo hi"}`
	a, out := newTestAgent(raw, "")

	err := a.Ask(context.Background(), "q", Options{NoExecute: true, Format: "json"})
	require.NoError(t, err)

	require.Equal(t, raw+"\n", out.String())
}

func TestSentinelRenderedAsMessage(t *testing.T) {
	sentinel := `{"status":"no_ai","message":"No AI backend available","hint":"Install Ollama or set an API key"}`
	a, out := newTestAgent(sentinel, "")

	err := a.Ask(context.Background(), "q", Options{})
	require.NoError(t, err)

	require.Contains(t, out.String(), "No AI backend available")
	require.Contains(t, out.String(), "Install Ollama")
	require.NotContains(t, out.String(), "Plan:")
}

func TestConversationalResponseRendered(t *testing.T) {
	a, out := newTestAgent("Hello! I am doing well, thanks for asking.", "")

	err := a.Ask(context.Background(), "how are you", Options{})
	require.NoError(t, err)

	require.Contains(t, out.String(), "Hello!")
	require.NotContains(t, out.String(), "Plan:")
}

func TestBackendErrorPropagates(t *testing.T) {
	boom := errors.New("socket melted")
	a := New(&stubQuerier{err: boom}, nil, strings.NewReader(""), &bytes.Buffer{}, nil)

	err := a.Ask(context.Background(), "q", Options{})
	require.ErrorIs(t, err, boom)
}

func TestHistoryRecordsExecutedPlan(t *testing.T) {
	requireShell(t)

	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer store.Close()

	response := `{"status":"success","source":"ollama","response":"` + "```bash\\necho recorded\\n```" + `"}`
	a := New(&stubQuerier{response: response}, store, strings.NewReader(""), &bytes.Buffer{}, nil)

	err = a.Ask(context.Background(), "say recorded", Options{})
	require.NoError(t, err)

	entries, err := store.Recent(1)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	e := entries[0]
	require.Equal(t, "say recorded", e.Query)
	require.Equal(t, "ollama", e.Source)
	require.True(t, e.Executed)
	require.True(t, e.Succeeded)
	require.Len(t, e.Commands, 1)
	require.Equal(t, "echo recorded", e.Commands[0].Command)
	require.Equal(t, "safe", e.Commands[0].Tier)
	require.NotNil(t, e.Commands[0].ExitCode)
	require.Equal(t, 0, *e.Commands[0].ExitCode)
}

func TestHistoryRecordsCancelledPlan(t *testing.T) {
	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer store.Close()

	a := New(&stubQuerier{response: "```bash\nsudo touch /tmp/never\n```"},
		store, strings.NewReader("c\n"), &bytes.Buffer{}, nil)

	err = a.Ask(context.Background(), "make it", Options{})
	require.NoError(t, err)

	entries, err := store.Recent(1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.False(t, entries[0].Executed)
	require.False(t, entries[0].Commands[0].Executed)
	require.Nil(t, entries[0].Commands[0].ExitCode)
}

func TestAbortedPlanRecordsFailure(t *testing.T) {
	requireShell(t)

	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer store.Close()

	a := New(&stubQuerier{response: "```bash\nfalse\necho never\n```"},
		store, strings.NewReader(""), &bytes.Buffer{}, nil)

	err = a.Ask(context.Background(), "fail then speak", Options{AutoConfirm: true})
	require.NoError(t, err)

	entries, err := store.Recent(1)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	e := entries[0]
	require.True(t, e.Executed)
	require.False(t, e.Succeeded)
	require.Len(t, e.Commands, 2)
	require.True(t, e.Commands[0].Executed)
	require.NotNil(t, e.Commands[0].ExitCode)
	require.Equal(t, 1, *e.Commands[0].ExitCode)
	require.False(t, e.Commands[1].Executed, "steps after the failure never run")
}

func TestBlockedPlanCancelsWithoutPrompting(t *testing.T) {
	a, out := newTestAgent("```bash\nsudo rm -rf /\n```", "")

	err := a.Ask(context.Background(), "wipe it", Options{})
	require.NoError(t, err)

	require.Contains(t, out.String(), "[BLOCKED]")
	require.Contains(t, out.String(), "Cancelled")
	require.NotContains(t, out.String(), "[E]xecute")
}

func TestEnvelopeResponseUnwrappedInTextMode(t *testing.T) {
	response := fmt.Sprintf(`{"status":"success","source":"claude","response":%q}`,
		"Just say hi out loud.")
	a, out := newTestAgent(response, "")

	err := a.Ask(context.Background(), "q", Options{})
	require.NoError(t, err)

	require.Contains(t, out.String(), "Just say hi out loud.")
	require.NotContains(t, out.String(), `"status"`)
}
