// Package hook parses agent tool events from stdin and shapes them
// into approval or question requests, plus the JSON verdicts the agent
// expects back.
package hook

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/fotescodev/claude-watch/internal/model"
)

// Event is the tool-use payload the agent pipes to a hook.
type Event struct {
	ToolName  string          `json:"tool_name"`
	ToolInput json.RawMessage `json:"tool_input"`
	SessionID string          `json:"session_id,omitempty"`
	CWD       string          `json:"cwd,omitempty"`
}

// approvalTools are the tools whose use needs a remote decision.
var approvalTools = map[string]struct{}{
	"Bash":         {},
	"Edit":         {},
	"Write":        {},
	"MultiEdit":    {},
	"NotebookEdit": {},
}

// NeedsApproval reports whether the tool is gated.
func NeedsApproval(toolName string) bool {
	_, ok := approvalTools[toolName]
	return ok
}

// ParseEvent decodes a tool event from the given reader.
func ParseEvent(r io.Reader) (*Event, error) {
	var e Event
	if err := json.NewDecoder(r).Decode(&e); err != nil {
		return nil, fmt.Errorf("decode hook event: %w", err)
	}
	return &e, nil
}

// toolInput is the superset of tool input fields the hook reads.
type toolInput struct {
	Command      string `json:"command"`
	FilePath     string `json:"file_path"`
	NotebookPath string `json:"notebook_path"`
	OldString    string `json:"old_string"`
	NewString    string `json:"new_string"`
	Content      string `json:"content"`
	Edits        []struct {
		OldString string `json:"old_string"`
		NewString string `json:"new_string"`
	} `json:"edits"`
}

// ApprovalRequest builds the request record for a gated tool use.
func (e *Event) ApprovalRequest() (*model.Request, error) {
	var in toolInput
	if len(e.ToolInput) > 0 {
		if err := json.Unmarshal(e.ToolInput, &in); err != nil {
			return nil, fmt.Errorf("decode tool input: %w", err)
		}
	}
	r := &model.Request{
		Kind:        model.KindApproval,
		Title:       buildTitle(e.ToolName, &in),
		Description: buildDescription(e.ToolName, &in),
		Command:     in.Command,
	}
	switch e.ToolName {
	case "NotebookEdit":
		r.FilePath = in.NotebookPath
	default:
		r.FilePath = in.FilePath
	}
	return r, nil
}

func buildTitle(toolName string, in *toolInput) string {
	switch toolName {
	case "Bash":
		first, _, _ := strings.Cut(in.Command, "\n")
		return "Run: " + clip(first, 40)
	case "Edit", "MultiEdit":
		return "Edit: " + baseName(in.FilePath)
	case "Write":
		return "Create: " + baseName(in.FilePath)
	case "NotebookEdit":
		return "Edit: " + baseName(in.NotebookPath)
	}
	return toolName
}

func buildDescription(toolName string, in *toolInput) string {
	switch toolName {
	case "Bash":
		return in.Command
	case "Edit":
		old := clip(in.OldString, 30)
		new := clip(in.NewString, 30)
		if old != "" && new != "" {
			return fmt.Sprintf("%q -> %q", old, new)
		}
		return "Edit file content"
	case "Write":
		return fmt.Sprintf("Write %d characters", len(in.Content))
	case "MultiEdit":
		return fmt.Sprintf("%d edits", len(in.Edits))
	}
	return ""
}

func baseName(path string) string {
	if path == "" {
		return "unknown"
	}
	return filepath.Base(path)
}

// clip truncates to max runes, never splitting a multi-byte character.
func clip(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
