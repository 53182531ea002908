// Package extract parses AI response text into candidate shell commands.
//
// Responses arrive either as a JSON envelope (a "command"/"commands" field,
// or a "response" field wrapping markdown) or as plain text with fenced code
// blocks. Extraction is a pure function of the input: the same text always
// yields the same ordered command list.
package extract

import (
	"encoding/json"
	"strings"
)

// defaultSourceTag is assumed for commands extracted from JSON fields,
// unfenced prompt lines, and fences with no language tag.
const defaultSourceTag = "bash"

// Command is a single candidate command extracted from a response.
type Command struct {
	// Text is the command line itself.
	Text string

	// Source is the fenced-block language tag the command came from, or
	// "bash" when it came from JSON or a prompt-prefixed line.
	Source string

	// Description is optional human-readable context from a JSON envelope.
	Description string
}

// Result is the outcome of one extraction pass.
type Result struct {
	Commands    []Command
	Explanation string
}

// Extract parses response text into an ordered command list plus optional
// explanatory text.
func Extract(response string) Result {
	var result Result

	var envelope map[string]any
	if err := json.Unmarshal([]byte(response), &envelope); err == nil {
		result.Commands = fromJSON(envelope)
		if exp, ok := envelope["explanation"].(string); ok {
			result.Explanation = exp
		}
		if inner, ok := envelope["response"].(string); ok {
			// The wrapped response may itself carry markdown code blocks.
			result.Commands = append(result.Commands, fromMarkdown(inner)...)
			if result.Explanation == "" {
				result.Explanation = explanation(inner)
			}
		}
		return result
	}

	result.Commands = fromMarkdown(response)
	result.Explanation = explanation(response)
	return result
}

// fromJSON pulls commands out of a parsed JSON envelope, preserving array
// order.
func fromJSON(envelope map[string]any) []Command {
	var commands []Command

	if cmd, ok := envelope["command"].(string); ok {
		extracted := Command{Text: cmd, Source: defaultSourceTag}
		if desc, ok := envelope["description"].(string); ok {
			extracted.Description = desc
		}
		commands = append(commands, extracted)
	}

	if list, ok := envelope["commands"].([]any); ok {
		for _, entry := range list {
			switch v := entry.(type) {
			case string:
				commands = append(commands, Command{Text: v, Source: defaultSourceTag})
			case map[string]any:
				cmd, ok := v["command"].(string)
				if !ok {
					continue
				}
				extracted := Command{Text: cmd, Source: defaultSourceTag}
				if desc, ok := v["description"].(string); ok {
					extracted.Description = desc
				}
				commands = append(commands, extracted)
			}
		}
	}

	return commands
}

// fromMarkdown scans text for fenced code blocks and collects the command
// lines of shell-tagged blocks. If no fenced commands are found it falls
// back to "$ "-prefixed lines outside fences.
func fromMarkdown(text string) []Command {
	var commands []Command
	inBlock := false
	var lang string
	var block []string

	flush := func() {
		if !executableLanguage(lang) {
			return
		}
		for _, line := range block {
			cmd := strings.TrimSpace(line)
			if cmd == "" || strings.HasPrefix(cmd, "#") || !looksLikeCommand(cmd) {
				continue
			}
			commands = append(commands, Command{Text: cmd, Source: lang})
		}
	}

	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, "```") {
			if inBlock {
				flush()
				block = block[:0]
				inBlock = false
			} else {
				lang = strings.TrimSpace(strings.TrimLeft(line, "`"))
				if lang == "" {
					lang = defaultSourceTag
				}
				inBlock = true
			}
			continue
		}
		if inBlock {
			block = append(block, line)
		}
	}

	if len(commands) > 0 {
		return commands
	}

	// No fenced commands: fall back to prompt-prefixed lines.
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "$ ") {
			continue
		}
		cmd := strings.TrimPrefix(trimmed, "$ ")
		if cmd != "" && looksLikeCommand(cmd) {
			commands = append(commands, Command{Text: cmd, Source: defaultSourceTag})
		}
	}

	return commands
}

// conversationalWords are first words that mark a line as prose rather than
// a command.
var conversationalWords = map[string]bool{
	"why": true, "what": true, "how": true, "when": true, "where": true,
	"who": true, "which": true, "because": true,
	"the": true, "a": true, "an": true, "is": true, "are": true,
	"was": true, "were": true, "been": true, "being": true,
	"i": true, "you": true, "he": true, "she": true, "it": true,
	"we": true, "they": true, "my": true, "your": true, "our": true,
	"this": true, "that": true, "these": true, "those": true,
	"here": true, "there": true,
	"yes": true, "no": true, "maybe": true, "perhaps": true, "probably": true,
	"hello": true, "hi": true, "hey": true, "goodbye": true, "bye": true,
	"please": true, "thanks": true, "thank": true, "sorry": true,
}

// looksLikeCommand filters out prose that models sometimes emit inside or
// beside code fences.
func looksLikeCommand(text string) bool {
	text = strings.TrimSpace(text)
	if len(text) < 2 {
		return false
	}

	fields := strings.Fields(text)
	if len(fields) == 0 {
		return false
	}
	first := fields[0]

	// Commands start with a program name, path, or shell sigil.
	c := first[0]
	isAlpha := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
	if !isAlpha && c != '.' && c != '/' && c != '$' {
		return false
	}

	// Question marks mean conversation, not invocation.
	if strings.Contains(text, "?") {
		return false
	}

	return !conversationalWords[strings.ToLower(first)]
}

// executableLanguage reports whether a fence tag marks shell content.
func executableLanguage(lang string) bool {
	switch strings.ToLower(lang) {
	case "bash", "sh", "shell", "zsh", "fish", "":
		return true
	}
	return false
}

// explanation collects the non-code prose of a response into one line.
func explanation(text string) string {
	var sb strings.Builder
	inBlock := false

	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, "```") {
			inBlock = !inBlock
			continue
		}
		if inBlock {
			continue
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "$") {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(trimmed)
	}

	return sb.String()
}
